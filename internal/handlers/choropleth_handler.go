package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/choropleth/internal/errors"
	"github.com/stwalsh4118/choropleth/internal/engine"
	"github.com/stwalsh4118/choropleth/internal/middleware"
	"github.com/stwalsh4118/choropleth/internal/services"
)

// ChoroplethHandler handles map, selection and style requests.
type ChoroplethHandler struct {
	service       services.ChoroplethService
	reloadTimeout time.Duration
}

// NewChoroplethHandler creates a new ChoroplethHandler instance.
// reloadTimeout bounds each POST /reload.
func NewChoroplethHandler(service services.ChoroplethService, reloadTimeout time.Duration) *ChoroplethHandler {
	return &ChoroplethHandler{
		service:       service,
		reloadTimeout: reloadTimeout,
	}
}

// RegisterRoutes mounts the choropleth endpoints on an /api/v1 group.
func (h *ChoroplethHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/map", h.Map)
	v1.GET("/status", h.Status)
	v1.POST("/reload", h.Reload)
	v1.GET("/datasets", h.Datasets)

	selection := v1.Group("/selection")
	{
		selection.GET("", h.Selection)
		selection.PUT("/dataset", h.SelectDataset)
		selection.PUT("/metric", h.SelectMetric)
		selection.PUT("/feature", h.SelectFeature)
		selection.DELETE("/feature", h.ClearFeature)
	}

	v1.POST("/overlay/toggle", h.ToggleOverlay)
	v1.GET("/legend", h.Legend)
	v1.GET("/styles", h.Styles)
	v1.GET("/features/:geoid", h.Feature)
	v1.GET("/classify", h.Classify)
}

// SelectRequest is the body of the dataset and metric selection endpoints.
type SelectRequest struct {
	ID string `json:"id" binding:"required,max=256"`
}

// FeatureRequest is the body of PUT /selection/feature.
type FeatureRequest struct {
	GeoID string `json:"geoid" binding:"required,max=64"`
}

// ClassifyRequest represents the query parameters of GET /classify.
type ClassifyRequest struct {
	Dataset string   `form:"dataset" binding:"required"`
	Metric  string   `form:"metric" binding:"required"`
	Value   *float64 `form:"value" binding:"required"`
}

// FeatureSelectionResponse is the selection after a feature click plus the
// focus request for the view.
type FeatureSelectionResponse struct {
	Selection services.SelectionView `json:"selection"`
	Focus     engine.FocusRequest    `json:"focus"`
}

// bindError writes the response for a failed request binding.
func bindError(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}

// serviceError maps service-level errors to responses.
func serviceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrNotReady):
		apierrors.ServiceUnavailable(c, err.Error(), nil)
	case errors.Is(err, services.ErrFeatureNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUnknownScale):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidValue):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}

// Map handles GET /api/v1/map.
func (h *ChoroplethHandler) Map(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.MapParams())
}

// Status handles GET /api/v1/status.
func (h *ChoroplethHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status())
}

// Reload handles POST /api/v1/reload. It waits for the load to finish.
// A failed load returns 503 with the store status; the previous data, if
// any, stays served.
func (h *ChoroplethHandler) Reload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.reloadTimeout)
	defer cancel()

	result, err := h.service.Reload(ctx)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Reload failed", map[string]interface{}{
			"error": err.Error(),
			"ready": result.Status.Ready,
			"token": result.Token,
		})
		return
	}

	middleware.GetLogger(c).Info("Reload requested", map[string]interface{}{
		"token":    result.Token,
		"accepted": result.Accepted,
	})
	c.JSON(http.StatusOK, result)
}

// Datasets handles GET /api/v1/datasets.
func (h *ChoroplethHandler) Datasets(c *gin.Context) {
	datasets, err := h.service.Datasets()
	if err != nil {
		serviceError(c, err, "Failed to list datasets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

// Selection handles GET /api/v1/selection.
func (h *ChoroplethHandler) Selection(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Selection())
}

// SelectDataset handles PUT /api/v1/selection/dataset.
// Unknown datasets leave the selection unchanged; the response shows the result.
func (h *ChoroplethHandler) SelectDataset(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Invalid dataset selection")
		return
	}
	c.JSON(http.StatusOK, h.service.SelectDataset(req.ID))
}

// SelectMetric handles PUT /api/v1/selection/metric.
func (h *ChoroplethHandler) SelectMetric(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Invalid metric selection")
		return
	}
	c.JSON(http.StatusOK, h.service.SelectMetric(req.ID))
}

// SelectFeature handles PUT /api/v1/selection/feature.
func (h *ChoroplethHandler) SelectFeature(c *gin.Context) {
	var req FeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Invalid feature selection")
		return
	}

	selection, focus, err := h.service.SelectFeature(req.GeoID)
	if err != nil {
		serviceError(c, err, "Failed to select feature")
		return
	}
	c.JSON(http.StatusOK, FeatureSelectionResponse{Selection: selection, Focus: focus})
}

// ClearFeature handles DELETE /api/v1/selection/feature (a background click).
func (h *ChoroplethHandler) ClearFeature(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ClearFeature())
}

// ToggleOverlay handles POST /api/v1/overlay/toggle.
func (h *ChoroplethHandler) ToggleOverlay(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ToggleOverlay())
}

// Legend handles GET /api/v1/legend.
func (h *ChoroplethHandler) Legend(c *gin.Context) {
	legend, err := h.service.Legend()
	if err != nil {
		serviceError(c, err, "Failed to build legend")
		return
	}
	c.JSON(http.StatusOK, legend)
}

// Styles handles GET /api/v1/styles.
func (h *ChoroplethHandler) Styles(c *gin.Context) {
	styles, err := h.service.Styles()
	if err != nil {
		serviceError(c, err, "Failed to resolve styles")
		return
	}
	c.JSON(http.StatusOK, styles)
}

// Feature handles GET /api/v1/features/:geoid.
func (h *ChoroplethHandler) Feature(c *gin.Context) {
	detail, err := h.service.Feature(c.Param("geoid"))
	if err != nil {
		serviceError(c, err, "Failed to inspect feature")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Classify handles GET /api/v1/classify.
func (h *ChoroplethHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err, "Invalid query parameters")
		return
	}

	result, err := h.service.Classify(req.Dataset, req.Metric, *req.Value)
	if err != nil {
		serviceError(c, err, "Failed to classify value")
		return
	}
	c.JSON(http.StatusOK, result)
}

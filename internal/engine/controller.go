package engine

import (
	"sync"

	"github.com/stwalsh4118/choropleth/internal/models"
)

// Catalog provides the currently published registry and geometry.
type Catalog interface {
	Registry() *models.DatasetRegistry
	Geometry() *models.GeoLayer
}

// FocusRequest asks the view to draw a feature above the others and to fit
// the map to its bounds. Bounds is nil when the feature has no loaded geometry.
type FocusRequest struct {
	GeoID        string               `json:"geoid"`
	RaiseToFront bool                 `json:"raiseToFront"`
	Bounds       *models.LatLngBounds `json:"bounds,omitempty"`
}

// Controller translates view events into state transitions.
// It is the only writer of the selection state; writes are serialized so
// that HTTP handlers may call it concurrently.
type Controller struct {
	catalog Catalog

	mu    sync.RWMutex
	state SelectionState
}

// NewController creates a Controller in the initial selection state.
func NewController(catalog Catalog) *Controller {
	return &Controller{
		catalog: catalog,
		state:   NewSelectionState(),
	}
}

// State returns a copy of the current selection.
func (c *Controller) State() SelectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Dispatch applies ev and returns the resulting state.
func (c *Controller) Dispatch(ev Event) SelectionState {
	registry := c.catalog.Registry()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Apply(c.state, ev, registry)
	return c.state
}

// OnFeatureClick makes geoid the active feature, replacing any previous one,
// and returns the focus request for the view.
func (c *Controller) OnFeatureClick(geoid string) (SelectionState, FocusRequest) {
	state := c.Dispatch(ClickFeature{GeoID: geoid})

	focus := FocusRequest{GeoID: geoid, RaiseToFront: true}
	if f, ok := c.catalog.Geometry().Feature(geoid); ok && !f.Bound.IsZero() {
		b := models.LatLngBoundsFrom(f.Bound)
		focus.Bounds = &b
	}
	return state, focus
}

// OnBackgroundClick clears the active feature.
func (c *Controller) OnBackgroundClick() SelectionState {
	return c.Dispatch(ClickBackground{})
}

// OnDatasetChange selects a dataset and resets the metric.
func (c *Controller) OnDatasetChange(datasetID string) SelectionState {
	return c.Dispatch(SelectDataset{DatasetID: datasetID})
}

// OnMetricChange selects a metric of the current dataset.
func (c *Controller) OnMetricChange(metricID string) SelectionState {
	return c.Dispatch(SelectMetric{MetricID: metricID})
}

// OnRegistryReloaded drops any selection the new registry no longer supports.
func (c *Controller) OnRegistryReloaded() SelectionState {
	return c.Dispatch(RegistryReloaded{})
}

// OnToggleOverlay flips overlay visibility.
func (c *Controller) OnToggleOverlay() SelectionState {
	return c.Dispatch(ToggleOverlay{})
}

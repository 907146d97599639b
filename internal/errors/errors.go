package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/choropleth/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// requestFields are the log fields shared by every error response.
func requestFields(c *gin.Context) map[string]interface{} {
	return map[string]interface{}{
		"request_id": middleware.GetRequestID(c),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
	}
}

func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	fields := requestFields(c)
	fields["message"] = message
	middleware.GetLogger(c).Warn("Resource not found", fields)

	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	fields := requestFields(c)
	fields["message"] = message
	if details != nil {
		fields["details"] = details
	}
	middleware.GetLogger(c).Warn("Bad request", fields)

	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// ServiceUnavailable returns a 503 Service Unavailable response, used while
// no data snapshot has been published yet.
func ServiceUnavailable(c *gin.Context, message string, details map[string]interface{}) {
	fields := requestFields(c)
	fields["message"] = message
	middleware.GetLogger(c).Warn("Service unavailable", fields)

	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, details)
}

// InternalServerError returns a 500 Internal Server Error response.
// The error itself is logged but never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	fields := requestFields(c)
	fields["message"] = message
	middleware.GetLogger(c).Error("Internal server error", err, fields)

	respond(c, http.StatusInternalServerError, ErrInternalServer, message, nil)
}

// Panic is the middleware.PanicResponder for the API. The recovery
// middleware has already logged the panic.
func Panic(c *gin.Context) {
	respond(c, http.StatusInternalServerError, ErrInternalServer, "An unexpected error occurred", nil)
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{})
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}

	fields := requestFields(c)
	fields["fields"] = details
	middleware.GetLogger(c).Warn("Validation error", fields)

	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "numeric":
		return "Must be a number"
	case "number":
		return "Must be a number"
	case "hexcolor":
		return "Must be a hex color such as #E31A1C"
	case "printascii":
		return "Must contain printable ASCII characters only"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}

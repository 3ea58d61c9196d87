package server

import (
	"errors"
	"net/http"

	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is an error carrying per-field details.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return "validation failed: " + v[0].Field + " " + v[0].Message
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the context into the
// common error envelope. Handlers that already wrote a response are left
// alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.JSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for the error middleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "request validation failed",
			Errors:  validationErrs,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "authentication required",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	case errors.Is(err, ingestdomain.ErrNoLiveAdapter):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, ingestdomain.ErrSyncInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, scheduledomain.ErrMissingCarrierName),
		errors.Is(err, scheduledomain.ErrMissingServiceCode),
		errors.Is(err, scheduledomain.ErrMissingVoyageNumber),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "an unexpected error occurred",
		}
	}
}

// classifyError feeds the request logger's error_type/error_code fields.
func classifyError(err error) (string, string) {
	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return "validation_error", "validation_failed"
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized", "unauthorized"
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found", "not_found"
	case errors.Is(err, ingestdomain.ErrNoLiveAdapter):
		return "not_found", "no_live_adapter"
	case errors.Is(err, ingestdomain.ErrSyncInProgress):
		return "conflict", "sync_in_progress"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, scheduledomain.ErrMissingCarrierName),
		errors.Is(err, scheduledomain.ErrMissingServiceCode),
		errors.Is(err, scheduledomain.ErrMissingVoyageNumber):
		return "invalid_request", "invalid_request"
	default:
		return "internal_error", "internal_error"
	}
}

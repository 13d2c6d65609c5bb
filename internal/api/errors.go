package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIError is the JSON error body of every failed request
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates an error without details
func NewError(code, message string, statusCode int) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: statusCode}
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details map[string]any) *APIError {
	out := *e
	out.Details = details
	return &out
}

var (
	ErrInvalidRequest = NewError("INVALID_REQUEST", "Invalid request parameters", http.StatusBadRequest)
	ErrUnknownStation = NewError("UNKNOWN_STATION", "Station is not part of the network", http.StatusNotFound)
	ErrNoPath         = NewError("NO_PATH", "No path between the waypoints", http.StatusNotFound)
	ErrNotSimple      = NewError("NOT_SIMPLE", "The route visits a station twice", http.StatusUnprocessableEntity)
	ErrNotFound       = NewError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrUnavailable    = NewError("UNAVAILABLE", "Feature is not configured", http.StatusServiceUnavailable)
	ErrInternalServer = NewError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

// ErrorHandler renders errors returned by handlers
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var apiErr *APIError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &fiberErr):
			code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
			apiErr = NewError(code, fiberErr.Message, fiberErr.Code)
		default:
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			apiErr = ErrInternalServer
		}
		return c.Status(apiErr.StatusCode).JSON(apiErr)
	}
}

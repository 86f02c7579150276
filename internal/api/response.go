package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/service"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// errorJSON is an alias for Error (used by some handlers).
var errorJSON = Error

// mapServiceError translates the service error taxonomy into HTTP responses.
// Invariant violations surface as 409 with their distinguished code so clients
// can tell them apart from plain conflicts.
func mapServiceError(c echo.Context, err error) error {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return Error(c, statusOf(svcErr.Err), svcErr.Code, svcErr.Message)
	}
	slog.Error("unhandled service error", "error", err)
	return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

func statusOf(sentinel error) int {
	switch {
	case errors.Is(sentinel, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(sentinel, service.ErrForbidden), errors.Is(sentinel, service.ErrRoleHierarchy):
		return http.StatusForbidden
	case errors.Is(sentinel, service.ErrConflict), errors.Is(sentinel, service.ErrInvariant):
		return http.StatusConflict
	case errors.Is(sentinel, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(sentinel, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(sentinel, service.ErrGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"los-backend/internal/domain/application"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// writeUsecaseError maps domain errors to HTTP codes.
func writeUsecaseError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, application.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "application not found"})
	case errors.Is(err, application.ErrDuplicateApplication),
		errors.Is(err, application.ErrPhaseNotReady),
		errors.Is(err, application.ErrPhaseInProgress),
		errors.Is(err, application.ErrPhaseFrozen):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

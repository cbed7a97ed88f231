package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
}

func New() *Handler {
	return &Handler{}
}

// Health returns application health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Index describes the service and its routes.
func (h *Handler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "earnings-quality",
		"routes": []string{
			"GET /health",
			"GET /decomposition?ticker=&horizon=&period=",
			"GET /admin/ingest/status",
			"POST /admin/ingest/banks",
			"POST /admin/ingest/financials?ticker=&freq=&full=",
			"POST /admin/decompose?ticker=",
		},
	})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

// AdminHandler exposes a manual sweep trigger.
type AdminHandler struct {
	Sweeper *service.Sweeper
}

// Sweep handles POST /v1/admin/sweep and returns the sweep report.
func (h *AdminHandler) Sweep(c echo.Context) error {
	rep, err := h.Sweeper.Sweep(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

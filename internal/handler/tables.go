package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

// TableHandler serves /v1/tables.
type TableHandler struct {
	Svc *service.TableService
}

func NewTableHandler(svc *service.TableService) *TableHandler {
	if svc == nil {
		panic("nil service passed to NewTableHandler")
	}
	return &TableHandler{Svc: svc}
}

// List handles GET /v1/tables.
func (h *TableHandler) List(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.Svc.List(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Free handles PUT /v1/tables/:id/free.
func (h *TableHandler) Free(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	t, err := h.Svc.Free(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type assignStaffRequest struct {
	StaffID *uint64 `json:"staff_id"`
}

// AssignStaff handles PUT /v1/tables/:id/staff.  A null staff_id clears
// the assignment.
func (h *TableHandler) AssignStaff(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	var body assignStaffRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Svc.AssignStaff(c.Request().Context(), actor, id, body.StaffID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// IssueCheckinCode handles PUT /v1/tables/:id/checkin-code.  The code is
// returned once; only its hash is kept.
func (h *TableHandler) IssueCheckinCode(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	code, err := h.Svc.IssueCheckinCode(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"table_id": id, "code": code})
}

type checkInRequest struct {
	Code string `json:"code"`
}

// CheckIn handles POST /v1/tables/:id/check-in.
func (h *TableHandler) CheckIn(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	var body checkInRequest
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		return badRequest(c, "code is required")
	}
	entry, err := h.Svc.ConfirmArrival(c.Request().Context(), actor.UserID, id, body.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

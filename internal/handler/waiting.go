package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

// WaitingListHandler serves /v1/waiting-list.
type WaitingListHandler struct {
	Svc *service.WaitingListService
}

func NewWaitingListHandler(svc *service.WaitingListService) *WaitingListHandler {
	if svc == nil {
		panic("nil service passed to NewWaitingListHandler")
	}
	return &WaitingListHandler{Svc: svc}
}

type joinRequest struct {
	ClientID        *uint64          `json:"client_id"`
	PartySize       int              `json:"party_size"`
	PreferredType   *model.TableType `json:"preferred_table_type"`
	SpecialRequests *string          `json:"special_requests"`
	Priority        *int             `json:"priority"`
}

// Join handles POST /v1/waiting-list.  Clients join as themselves; staff
// register a walk-in by passing client_id.
func (h *WaitingListHandler) Join(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body joinRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	entry, err := h.Svc.Join(c.Request().Context(), actor, service.JoinInput{
		ClientID:        body.ClientID,
		PartySize:       body.PartySize,
		PreferredType:   body.PreferredType,
		SpecialRequests: body.SpecialRequests,
		Priority:        body.Priority,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// List handles GET /v1/waiting-list.
func (h *WaitingListHandler) List(c echo.Context) error {
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

// Position handles GET /v1/waiting-list/position.
func (h *WaitingListHandler) Position(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	pos, err := h.Svc.Position(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pos)
}

// Cancel handles PUT /v1/waiting-list/:id/cancel.
func (h *WaitingListHandler) Cancel(c echo.Context) error {
	return h.close(c, h.Svc.Cancel)
}

// MarkNoShow handles PUT /v1/waiting-list/:id/no-show.
func (h *WaitingListHandler) MarkNoShow(c echo.Context) error {
	return h.close(c, h.Svc.MarkNoShow)
}

// Displace handles PUT /v1/waiting-list/:id/displace.
func (h *WaitingListHandler) Displace(c echo.Context) error {
	return h.close(c, h.Svc.Displace)
}

type closeFunc func(ctx context.Context, actor model.Actor, id uint64) (*model.WaitingListEntry, error)

func (h *WaitingListHandler) close(c echo.Context, op closeFunc) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid waiting entry id")
	}
	entry, err := op(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

type assignRequest struct {
	TableID uint64 `json:"table_id"`
}

// AssignTable handles PUT /v1/waiting-list/:id/assign with {"table_id":N}.
func (h *WaitingListHandler) AssignTable(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid waiting entry id")
	}
	var body assignRequest
	if err := c.Bind(&body); err != nil || body.TableID == 0 {
		return badRequest(c, "table_id is required")
	}
	entry, err := h.Svc.AssignTable(c.Request().Context(), actor, id, body.TableID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

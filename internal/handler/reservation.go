package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

// ReservationHandler serves /v1/reservations.
type ReservationHandler struct {
	Svc *service.ReservationService
}

// NewReservationHandler panics on a nil service.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationRequest struct {
	TableID   uint64  `json:"table_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	PartySize int     `json:"party_size"`
	Notes     *string `json:"notes"`
}

// Create handles POST /v1/reservations.  A taken slot answers 409 with the
// nearest free times under "suggestions".
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.TableID == 0 {
		return badRequest(c, "table_id is required")
	}
	res, err := h.Svc.Create(c.Request().Context(), actor.UserID, service.CreateReservationInput{
		TableID:   body.TableID,
		Date:      strings.TrimSpace(body.Date),
		Time:      strings.TrimSpace(body.Time),
		PartySize: body.PartySize,
		Notes:     body.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine handles GET /v1/reservations/mine.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.Svc.ListMine(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListByDate handles GET /v1/reservations?date=.
func (h *ReservationHandler) ListByDate(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.Svc.ListByDate(c.Request().Context(), actor, query(c, "date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

type decisionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Decide handles PUT /v1/reservations/:id/status with
// {"status":"approved"} or {"status":"rejected","reason":"..."}.
func (h *ReservationHandler) Decide(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var body decisionRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	decision := model.ReservationStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	res, err := h.Svc.Decide(c.Request().Context(), actor, id, decision, body.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles PUT /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Svc.Cancel(c.Request().Context(), id, actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DayAvailability handles GET /v1/reservations/availability?date=&party_size=.
func (h *ReservationHandler) DayAvailability(c echo.Context) error {
	party, ok := queryInt(c, "party_size", 0)
	if !ok {
		return badRequest(c, "party_size must be a number")
	}
	date := query(c, "date")
	out, err := h.Svc.DayAvailability(c.Request().Context(), date, party)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "party_size": party, "slots": out})
}

// TableAvailability handles GET /v1/reservations/table-availability?table_id=&date=.
func (h *ReservationHandler) TableAvailability(c echo.Context) error {
	tableID, ok := queryInt(c, "table_id", 0)
	if !ok || tableID <= 0 {
		return badRequest(c, "table_id is required")
	}
	date := query(c, "date")
	out, err := h.Svc.TableAvailability(c.Request().Context(), uint64(tableID), date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"table_id": tableID, "date": date, "slots": out})
}

// AvailableTables handles GET /v1/reservations/tables?type=&capacity=&date=&time=.
func (h *ReservationHandler) AvailableTables(c echo.Context) error {
	capacity, ok := queryInt(c, "capacity", 1)
	if !ok {
		return badRequest(c, "capacity must be a number")
	}
	typ := model.TableType(strings.ToLower(query(c, "type")))
	out, err := h.Svc.GetAvailableTables(c.Request().Context(), typ, capacity, query(c, "date"), query(c, "time"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Suggestions handles GET /v1/reservations/suggestions?type=&party_size=&date=&time=.
func (h *ReservationHandler) Suggestions(c echo.Context) error {
	party, ok := queryInt(c, "party_size", 0)
	if !ok {
		return badRequest(c, "party_size must be a number")
	}
	typ := model.TableType(strings.ToLower(query(c, "type")))
	out, err := h.Svc.SuggestAlternatives(c.Request().Context(), typ, party, query(c, "date"), query(c, "time"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"suggestions": out})
}

// CheckTableReserved handles GET /v1/reservations/check-table-reserved.
func (h *ReservationHandler) CheckTableReserved(c echo.Context) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	tableID, ok := queryInt(c, "table_id", 0)
	if !ok || tableID <= 0 {
		return badRequest(c, "table_id is required")
	}
	reserved, err := h.Svc.IsTableReserved(c.Request().Context(), actor, uint64(tableID), query(c, "date"), query(c, "time"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"table_id": tableID, "reserved": reserved})
}

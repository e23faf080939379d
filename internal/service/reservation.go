package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
	"github.com/iliyamo/restaurant-table-allocation/internal/slots"
)

// Reservation policy.
const (
	MinPartySize = 1
	MaxPartySize = 20
	MinLeadTime  = 15 * time.Minute
)

// ReservationService manages the reservation lifecycle and answers
// availability questions.  It never mutates tables; occupancy is handled by
// the sweeper and the waiting-list allocator.
type ReservationService struct {
	tables       TableStore
	reservations ReservationStore
	waiting      WaitingStore
	clock        Clock
	notify       dispatcher
	log          *log.Logger
}

// NewReservationService wires a ReservationService.  notifier may be nil.
func NewReservationService(tables TableStore, reservations ReservationStore, waiting WaitingStore, clock Clock, notifier Notifier, logger *log.Logger) *ReservationService {
	if logger == nil {
		logger = log.Default()
	}
	return &ReservationService{
		tables:       tables,
		reservations: reservations,
		waiting:      waiting,
		clock:        clock,
		notify:       newDispatcher(notifier, logger),
		log:          logger,
	}
}

// CreateReservationInput is a client's booking request.
type CreateReservationInput struct {
	TableID   uint64
	Date      string
	Time      string
	PartySize int
	Notes     *string
}

// Create books a table for the calling client.  The reservation starts
// pending and waits for a staff decision.
func (s *ReservationService) Create(ctx context.Context, clientID uint64, in CreateReservationInput) (*model.Reservation, error) {
	if err := checkPartySize(in.PartySize); err != nil {
		return nil, err
	}
	at, err := parseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if !at.InService() {
		return nil, fail(ErrValidation, "reservations are accepted between %s and %s", slots.Open, slots.Close)
	}
	now := s.clock.Now()
	today, _ := slots.ServiceDay(now)
	if in.Date < today {
		return nil, fail(ErrValidation, "date must not be in the past")
	}
	start, err := slots.Instant(in.Date, at, now.Location())
	if err != nil {
		return nil, fail(ErrValidation, "%v", err)
	}
	if start.Sub(now) < MinLeadTime {
		return nil, fail(ErrValidation, "your registration must be at least 15 minutes from now")
	}

	table, err := s.tables.Get(ctx, in.TableID)
	if err != nil {
		return nil, storeError(err, "table")
	}
	if table.Capacity < in.PartySize {
		return nil, fail(ErrValidation, "table %d seats %d, party of %d does not fit", table.Number, table.Capacity, in.PartySize)
	}

	existing, err := s.reservations.ListActiveForTableDate(ctx, table.ID, in.Date)
	if err != nil {
		return nil, storeError(err, "reservations")
	}
	if !slots.Free(slots.ClaimsFrom(existing), slots.Claim{TableID: table.ID, Date: in.Date, At: at}) {
		return nil, s.slotTaken(ctx, table, in.PartySize, in.Date, at)
	}

	res := &model.Reservation{
		ClientID:    clientID,
		TableID:     table.ID,
		ServiceDate: in.Date,
		Time:        at.String(),
		PartySize:   in.PartySize,
		Notes:       in.Notes,
		Status:      model.ReservationPending,
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.slotTaken(ctx, table, in.PartySize, in.Date, at)
		}
		return nil, storeError(err, "reservation")
	}
	s.log.Printf("reservation: created id=%d table=%d %s %s party=%d", res.ID, table.Number, res.ServiceDate, res.Time, res.PartySize)
	s.notify.send(ctx, queue.EventReservationCreated, reservationEvent(res, ""))
	return res, nil
}

// slotTaken builds the conflict returned when a slot is gone, with nearby
// times that still have a compatible table.
func (s *ReservationService) slotTaken(ctx context.Context, table *model.Table, partySize int, date string, at slots.Minute) error {
	e := fail(ErrConflict, "slot no longer available")
	alts, err := s.alternatives(ctx, table.Type, partySize, date, at)
	if err != nil {
		s.log.Printf("reservation: suggestions for %s %s failed: %v", date, at, err)
		return e
	}
	e.Suggestions = alts
	return e
}

// Decide approves or rejects a pending reservation.  Only owners and
// supervisors may decide; a rejection needs a reason.
func (s *ReservationService) Decide(ctx context.Context, actor model.Actor, id uint64, decision model.ReservationStatus, reason string) (*model.Reservation, error) {
	if !actor.CanDecide() {
		return nil, fail(ErrForbidden, "only owners and supervisors may decide reservations")
	}
	if decision != model.ReservationApproved && decision != model.ReservationRejected {
		return nil, fail(ErrValidation, "decision must be approved or rejected")
	}
	reason = strings.TrimSpace(reason)
	var reasonPtr *string
	if decision == model.ReservationRejected {
		if reason == "" {
			return nil, fail(ErrValidation, "a reason is required to reject a reservation")
		}
		reasonPtr = &reason
	}

	if _, err := s.reservations.Get(ctx, id); err != nil {
		return nil, storeError(err, "reservation")
	}
	ok, err := s.reservations.Decide(ctx, id, decision, actor.UserID, reasonPtr, s.clock.Now())
	if err != nil {
		return nil, storeError(err, "reservation")
	}
	if !ok {
		return nil, fail(ErrConflict, "reservation already decided")
	}
	res, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "reservation")
	}

	event := queue.EventReservationApproved
	if decision == model.ReservationRejected {
		event = queue.EventReservationRejected
	}
	s.log.Printf("reservation: %s id=%d by user=%d", decision, id, actor.UserID)
	s.notify.send(ctx, event, reservationEvent(res, reason))
	return res, nil
}

// Cancel lets the owning client withdraw a pending or approved reservation.
// An entry the sweeper already queued for it leaves the waiting list too.
func (s *ReservationService) Cancel(ctx context.Context, id, clientID uint64) (*model.Reservation, error) {
	res, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "reservation")
	}
	if res.ClientID != clientID {
		return nil, fail(ErrForbidden, "only the client who made the reservation can cancel it")
	}
	if !res.Status.Active() {
		return nil, fail(ErrForbidden, "a %s reservation can no longer be cancelled", res.Status)
	}
	ok, err := s.reservations.Transition(ctx, id,
		[]model.ReservationStatus{model.ReservationPending, model.ReservationApproved}, model.ReservationCancelled)
	if err != nil {
		return nil, storeError(err, "reservation")
	}
	if !ok {
		return nil, fail(ErrForbidden, "reservation can no longer be cancelled")
	}
	s.log.Printf("reservation: cancelled id=%d by client=%d", id, clientID)
	res.Status = model.ReservationCancelled

	entries, err := s.waiting.FindByReservation(ctx, id)
	if err != nil {
		s.log.Printf("reservation: load waiting entries of %d failed: %v", id, err)
		return res, nil
	}
	now := s.clock.Now()
	for _, e := range entries {
		if e.Status != model.WaitingActive {
			continue
		}
		if _, err := s.waiting.Close(ctx, e.ID, model.WaitingCancelled, now); err != nil {
			s.log.Printf("reservation: close waiting entry %d failed: %v", e.ID, err)
		}
	}
	return res, nil
}

// GetAvailableTables returns every table of the given type seating at least
// minCapacity whose slot at date/time is free.
func (s *ReservationService) GetAvailableTables(ctx context.Context, typ model.TableType, minCapacity int, date, hhmm string) ([]model.Table, error) {
	date = strings.TrimSpace(date)
	if !typ.Valid() {
		return nil, fail(ErrValidation, "unknown table type %q", typ)
	}
	if minCapacity < 1 {
		minCapacity = 1
	}
	at, err := parseSlot(date, hhmm)
	if err != nil {
		return nil, err
	}
	candidates, claims, err := s.candidates(ctx, typ, minCapacity, date)
	if err != nil {
		return nil, err
	}
	free := slots.FreeTables(candidates, claims, date, at)
	if free == nil {
		free = []model.Table{}
	}
	return free, nil
}

// DayAvailability returns the canonical slots of a date with the best-fit
// table that could seat the party in each.
func (s *ReservationService) DayAvailability(ctx context.Context, date string, partySize int) ([]model.TimeSlot, error) {
	date = strings.TrimSpace(date)
	if err := checkPartySize(partySize); err != nil {
		return nil, err
	}
	if _, err := slots.ParseDate(date, nil); err != nil {
		return nil, fail(ErrValidation, "%v", err)
	}
	tables, err := s.tables.List(ctx)
	if err != nil {
		return nil, storeError(err, "tables")
	}
	active, err := s.reservations.ListActiveForDate(ctx, date)
	if err != nil {
		return nil, storeError(err, "reservations")
	}
	return slots.DayPlan(tables, slots.ClaimsFrom(active), date, partySize), nil
}

// TableAvailability returns the canonical slots of one table on a date.
func (s *ReservationService) TableAvailability(ctx context.Context, tableID uint64, date string) ([]model.TimeSlot, error) {
	date = strings.TrimSpace(date)
	if _, err := slots.ParseDate(date, nil); err != nil {
		return nil, fail(ErrValidation, "%v", err)
	}
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return nil, storeError(err, "table")
	}
	active, err := s.reservations.ListActiveForTableDate(ctx, tableID, date)
	if err != nil {
		return nil, storeError(err, "reservations")
	}
	return slots.TableDay(slots.ClaimsFrom(active), *table, date), nil
}

// SuggestAlternatives returns nearby times at which a compatible table is
// free.  The ±90 minute candidates are only tried when nothing within ±45 is.
func (s *ReservationService) SuggestAlternatives(ctx context.Context, typ model.TableType, partySize int, date, hhmm string) ([]string, error) {
	date = strings.TrimSpace(date)
	if !typ.Valid() {
		return nil, fail(ErrValidation, "unknown table type %q", typ)
	}
	if err := checkPartySize(partySize); err != nil {
		return nil, err
	}
	at, err := parseSlot(date, hhmm)
	if err != nil {
		return nil, err
	}
	return s.alternatives(ctx, typ, partySize, date, at)
}

func (s *ReservationService) alternatives(ctx context.Context, typ model.TableType, partySize int, date string, at slots.Minute) ([]string, error) {
	candidates, claims, err := s.candidates(ctx, typ, partySize, date)
	if err != nil {
		return nil, err
	}
	found := slots.Alternatives(at, func(m slots.Minute) bool {
		return len(slots.FreeTables(candidates, claims, date, m)) > 0
	})
	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.String())
	}
	return out, nil
}

// candidates loads the tables of a type seating at least minCapacity along
// with the active claims of the date.
func (s *ReservationService) candidates(ctx context.Context, typ model.TableType, minCapacity int, date string) ([]model.Table, []slots.Claim, error) {
	tables, err := s.tables.ListByType(ctx, typ)
	if err != nil {
		return nil, nil, storeError(err, "tables")
	}
	var fit []model.Table
	for _, t := range tables {
		if t.Capacity >= minCapacity {
			fit = append(fit, t)
		}
	}
	active, err := s.reservations.ListActiveForDate(ctx, date)
	if err != nil {
		return nil, nil, storeError(err, "reservations")
	}
	return fit, slots.ClaimsFrom(active), nil
}

// IsTableReserved tells the host whether an active reservation's block
// window covers the given time on the table.
func (s *ReservationService) IsTableReserved(ctx context.Context, actor model.Actor, tableID uint64, date, hhmm string) (bool, error) {
	date = strings.TrimSpace(date)
	if !actor.CanCheckReserved() {
		return false, fail(ErrForbidden, "only hosts may check table reservations")
	}
	at, err := parseSlot(date, hhmm)
	if err != nil {
		return false, err
	}
	if _, err := s.tables.Get(ctx, tableID); err != nil {
		return false, storeError(err, "table")
	}
	active, err := s.reservations.ListActiveForTableDate(ctx, tableID, date)
	if err != nil {
		return false, storeError(err, "reservations")
	}
	return !slots.Free(slots.ClaimsFrom(active), slots.Claim{TableID: tableID, Date: date, At: at}), nil
}

// Get returns a reservation.  Clients only see their own; asking for
// someone else's looks the same as asking for a missing one.
func (s *ReservationService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "reservation")
	}
	if !actor.IsStaff() && res.ClientID != actor.UserID {
		return nil, fail(ErrNotFound, "reservation not found")
	}
	return res, nil
}

// ListMine returns the client's reservations.
func (s *ReservationService) ListMine(ctx context.Context, clientID uint64) ([]model.Reservation, error) {
	out, err := s.reservations.ListByClient(ctx, clientID)
	if err != nil {
		return nil, storeError(err, "reservations")
	}
	if out == nil {
		out = []model.Reservation{}
	}
	return out, nil
}

// ListByDate is the staff view of a service date.
func (s *ReservationService) ListByDate(ctx context.Context, actor model.Actor, date string) ([]model.Reservation, error) {
	date = strings.TrimSpace(date)
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	if _, err := slots.ParseDate(date, nil); err != nil {
		return nil, fail(ErrValidation, "%v", err)
	}
	out, err := s.reservations.ListByDate(ctx, date)
	if err != nil {
		return nil, storeError(err, "reservations")
	}
	if out == nil {
		out = []model.Reservation{}
	}
	return out, nil
}

func checkPartySize(n int) error {
	if n < MinPartySize || n > MaxPartySize {
		return fail(ErrValidation, "party size must be between %d and %d", MinPartySize, MaxPartySize)
	}
	return nil
}

// parseSlot validates a service date and an HH:MM time.
func parseSlot(date, hhmm string) (slots.Minute, error) {
	if _, err := slots.ParseDate(date, nil); err != nil {
		return 0, fail(ErrValidation, "%v", err)
	}
	at, err := slots.Parse(hhmm)
	if err != nil {
		return 0, fail(ErrValidation, "%v", err)
	}
	return at, nil
}

func reservationEvent(r *model.Reservation, reason string) queue.ReservationEvent {
	return queue.ReservationEvent{
		ReservationID: r.ID,
		ClientID:      r.ClientID,
		TableID:       r.TableID,
		Date:          r.ServiceDate,
		Time:          r.Time,
		PartySize:     r.PartySize,
		Status:        string(r.Status),
		Reason:        reason,
	}
}

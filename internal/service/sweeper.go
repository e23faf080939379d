package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
	"github.com/iliyamo/restaurant-table-allocation/internal/slots"
)

// ArrivalWindow is how long before and after its time a reservation may be
// claimed.  Activation opens at time-45; expiry happens at time+45.
const ArrivalWindow = 45

// SweepReport summarises one sweep.
type SweepReport struct {
	Expired       int           `json:"expired"`
	Completed     int           `json:"completed"`
	Activated     int           `json:"activated"`
	AlreadyActive []ActiveClaim `json:"already_active"`
	Deferred      int           `json:"deferred"`
	AlreadySeated int           `json:"already_seated"`
	Closed        int           `json:"closed"`
	Failed        int           `json:"failed"`
}

// ActiveClaim names a reservation whose client is already in the queue.
type ActiveClaim struct {
	ReservationID uint64 `json:"reservation_id"`
	TableNumber   int    `json:"table_number"`
}

func (r SweepReport) String() string {
	return fmt.Sprintf("expired=%d completed=%d activated=%d already_active=%d deferred=%d already_seated=%d closed=%d failed=%d",
		r.Expired, r.Completed, r.Activated, len(r.AlreadyActive), r.Deferred, r.AlreadySeated, r.Closed, r.Failed)
}

// Changed reports whether the sweep wrote anything.
func (r SweepReport) Changed() bool {
	return r.Expired+r.Completed+r.Activated > 0
}

// Sweeper promotes approved reservations into the waiting list when their
// arrival window opens and cancels those nobody claimed in time.  Every
// write is conditional on current status, so sweeps may overlap and may be
// repeated without side effects.
type Sweeper struct {
	tables       TableStore
	reservations ReservationStore
	waiting      WaitingStore
	clock        Clock
	notify       dispatcher
	log          *log.Logger

	// OnChange, when set, runs after a background sweep that expired,
	// completed or activated a reservation.  The server uses it to bump the
	// availability cache generation.
	OnChange func(ctx context.Context)
}

// NewSweeper wires a Sweeper.  notifier may be nil.
func NewSweeper(tables TableStore, reservations ReservationStore, waiting WaitingStore, clock Clock, notifier Notifier, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		tables:       tables,
		reservations: reservations,
		waiting:      waiting,
		clock:        clock,
		notify:       newDispatcher(notifier, logger),
		log:          logger,
	}
}

// Sweep runs expiry and then activation.  Expiry goes first so a table
// vacated by a no-show is visible to the activation pass of the same sweep.
// Failures on single reservations are logged and counted; only a failure to
// load the batch is returned.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	rep := SweepReport{AlreadyActive: []ActiveClaim{}}
	now := s.clock.Now()
	today, nowMin := slots.ServiceDay(now)

	due, err := s.reservations.ListApprovedThrough(ctx, today)
	if err != nil {
		return rep, storeError(err, "reservations")
	}
	for _, r := range due {
		if !overdue(r, today, nowMin) {
			continue
		}
		if err := s.expire(ctx, r, now, &rep); err != nil {
			rep.Failed++
			s.log.Printf("sweeper: expire reservation %d: %v", r.ID, err)
		}
	}

	due, err = s.reservations.ListApprovedThrough(ctx, today)
	if err != nil {
		return rep, storeError(err, "reservations")
	}
	for _, r := range due {
		if !activatable(r, today, nowMin) {
			continue
		}
		if err := s.activate(ctx, r, now, &rep); err != nil {
			rep.Failed++
			s.log.Printf("sweeper: activate reservation %d: %v", r.ID, err)
		}
	}
	return rep, nil
}

// overdue reports whether the arrival window of r has closed.  Past service
// days are always overdue.
func overdue(r model.Reservation, today string, now slots.Minute) bool {
	if r.ServiceDate < today {
		return true
	}
	if r.ServiceDate > today {
		return false
	}
	at, err := slots.Parse(r.Time)
	if err != nil {
		return false
	}
	return now >= at+ArrivalWindow
}

// activatable reports whether r is inside its arrival window today.
func activatable(r model.Reservation, today string, now slots.Minute) bool {
	if r.ServiceDate != today {
		return false
	}
	at, err := slots.Parse(r.Time)
	if err != nil {
		return false
	}
	return now >= at-ArrivalWindow && now < at+ArrivalWindow
}

func (s *Sweeper) expire(ctx context.Context, r model.Reservation, now time.Time, rep *SweepReport) error {
	entries, err := s.waiting.FindByReservation(ctx, r.ID)
	if err != nil {
		return err
	}
	seated := false
	for _, e := range entries {
		if e.Status == model.WaitingSeated {
			seated = true
		}
	}
	if !seated {
		if seated, err = s.seatedOnDay(ctx, r, now); err != nil {
			return err
		}
	}
	if seated {
		// The client dined but the reservation was never marked completed.
		return s.complete(ctx, r, entries, now, rep)
	}

	for _, e := range entries {
		if e.Status != model.WaitingActive {
			continue
		}
		if _, err := s.waiting.Close(ctx, e.ID, model.WaitingNoShow, now); err != nil {
			return err
		}
	}
	if _, err := s.tables.ReleaseHold(ctx, r.TableID, r.ClientID); err != nil {
		return err
	}
	ok, err := s.reservations.Transition(ctx, r.ID,
		[]model.ReservationStatus{model.ReservationApproved}, model.ReservationCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	rep.Expired++
	s.log.Printf("sweeper: reservation %d expired (client=%d %s %s)", r.ID, r.ClientID, r.ServiceDate, r.Time)
	r.Status = model.ReservationCancelled
	s.notify.send(ctx, queue.EventReservationExpired, reservationEvent(&r, "no-show"))
	return nil
}

// complete marks r completed and retires any entry of it still waiting.
func (s *Sweeper) complete(ctx context.Context, r model.Reservation, entries []model.WaitingListEntry, now time.Time, rep *SweepReport) error {
	for _, e := range entries {
		if e.Status != model.WaitingActive {
			continue
		}
		if _, err := s.waiting.Close(ctx, e.ID, model.WaitingDisplaced, now); err != nil {
			return err
		}
	}
	ok, err := s.reservations.Transition(ctx, r.ID,
		[]model.ReservationStatus{model.ReservationApproved}, model.ReservationCompleted)
	if err != nil {
		return err
	}
	if ok {
		rep.Completed++
		s.log.Printf("sweeper: reservation %d completed (client=%d already seated)", r.ID, r.ClientID)
	}
	return nil
}

// seatedOnDay reports whether r's client has been seated at any table since
// the start of r's service day.
func (s *Sweeper) seatedOnDay(ctx context.Context, r model.Reservation, now time.Time) (bool, error) {
	since, err := slots.DayStart(r.ServiceDate, now.Location())
	if err != nil {
		return false, err
	}
	return s.waiting.HasSeatedSince(ctx, r.ClientID, since)
}

func (s *Sweeper) activate(ctx context.Context, r model.Reservation, now time.Time, rep *SweepReport) error {
	table, err := s.tables.Get(ctx, r.TableID)
	if err != nil {
		return err
	}

	// Any earlier entry for r means it was already activated; a closed one
	// records a staff or client decision and is never reopened.
	entries, err := s.waiting.FindByReservation(ctx, r.ID)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		switch last.Status {
		case model.WaitingActive:
			rep.AlreadyActive = append(rep.AlreadyActive, ActiveClaim{ReservationID: r.ID, TableNumber: table.Number})
		case model.WaitingSeated:
			rep.AlreadySeated++
		default:
			rep.Closed++
		}
		return nil
	}

	seated, err := s.seatedOnDay(ctx, r, now)
	if err != nil {
		return err
	}
	if seated {
		rep.AlreadySeated++
		return nil
	}

	if _, err := s.waiting.GetWaitingByClient(ctx, r.ClientID); err == nil {
		rep.AlreadyActive = append(rep.AlreadyActive, ActiveClaim{ReservationID: r.ID, TableNumber: table.Number})
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if !table.FreeFor(r.ClientID) {
		rep.Deferred++
		return nil
	}

	typ := table.Type
	resID := r.ID
	entry := &model.WaitingListEntry{
		ClientID:           r.ClientID,
		ReservationID:      &resID,
		PartySize:          r.PartySize,
		PreferredTableType: &typ,
		Status:             model.WaitingActive,
		Priority:           model.PriorityReservation,
		JoinedAt:           now.UTC(),
	}
	if err := s.waiting.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			rep.AlreadyActive = append(rep.AlreadyActive, ActiveClaim{ReservationID: r.ID, TableNumber: table.Number})
			return nil
		}
		return err
	}
	rep.Activated++
	s.log.Printf("sweeper: reservation %d activated as waiting entry %d (table %d)", r.ID, entry.ID, table.Number)
	return nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	rep, err := s.Sweep(ctx)
	if err != nil {
		s.log.Printf("sweeper: sweep failed: %v", err)
		return
	}
	if rep.Changed() || rep.Failed > 0 {
		s.log.Printf("sweeper: %s", rep)
	}
	if rep.Changed() && s.OnChange != nil {
		s.OnChange(ctx)
	}
}

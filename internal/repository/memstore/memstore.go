// Package memstore keeps tables, reservations and waiting-list entries in
// process memory.  It applies the same conditional-update rules as the
// MySQL repositories and backs STORE_DRIVER=memory as well as the service
// and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
)

// Tables is an in-memory table registry.
type Tables struct {
	mu   sync.Mutex
	rows map[uint64]model.Table
}

// NewTables returns a registry holding the given tables.
func NewTables(tables ...model.Table) *Tables {
	s := &Tables{rows: make(map[uint64]model.Table)}
	for _, t := range tables {
		s.Put(t)
	}
	return s
}

// Put inserts or replaces a table.
func (s *Tables) Put(t model.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = t
}

func (s *Tables) Get(_ context.Context, id uint64) (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *Tables) List(_ context.Context) ([]model.Table, error) {
	return s.filter(func(model.Table) bool { return true }), nil
}

func (s *Tables) ListByType(_ context.Context, typ model.TableType) ([]model.Table, error) {
	return s.filter(func(t model.Table) bool { return t.Type == typ }), nil
}

func (s *Tables) filter(keep func(model.Table) bool) []model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Table
	for _, t := range s.rows {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// update applies fn to the table when cond holds and reports whether it did.
func (s *Tables) update(id uint64, cond func(model.Table) bool, fn func(*model.Table)) (found, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return false, false
	}
	if !cond(t) {
		return true, false
	}
	fn(&t)
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	s.rows[id] = t
	return true, true
}

func (s *Tables) Claim(_ context.Context, tableID, clientID uint64) error {
	_, ok := s.update(tableID,
		func(t model.Table) bool { return t.FreeFor(clientID) },
		func(t *model.Table) {
			c := clientID
			t.ClaimantID = &c
			t.Occupied = true
		})
	if !ok {
		return repository.ErrConflict
	}
	return nil
}

func (s *Tables) Unclaim(_ context.Context, tableID, clientID uint64) error {
	_, ok := s.update(tableID,
		func(t model.Table) bool { return t.ClaimantID != nil && *t.ClaimantID == clientID },
		func(t *model.Table) {
			t.ClaimantID = nil
			t.Occupied = false
		})
	if !ok {
		return repository.ErrConflict
	}
	return nil
}

func (s *Tables) ReleaseHold(_ context.Context, tableID, clientID uint64) (bool, error) {
	_, ok := s.update(tableID,
		func(t model.Table) bool { return !t.Occupied && t.ClaimantID != nil && *t.ClaimantID == clientID },
		func(t *model.Table) { t.ClaimantID = nil })
	return ok, nil
}

func (s *Tables) Free(_ context.Context, tableID uint64) error {
	found, _ := s.update(tableID,
		func(model.Table) bool { return true },
		func(t *model.Table) {
			t.ClaimantID = nil
			t.Occupied = false
		})
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Tables) AssignStaff(_ context.Context, tableID uint64, staffID *uint64) error {
	found, _ := s.update(tableID,
		func(model.Table) bool { return true },
		func(t *model.Table) { t.AssignedStaffID = staffID })
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Tables) SetCheckinCode(_ context.Context, tableID uint64, hash string) error {
	found, _ := s.update(tableID,
		func(model.Table) bool { return true },
		func(t *model.Table) { t.CheckinCodeHash = &hash })
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

// Reservations is an in-memory reservation store.  Create enforces the
// same uniqueness rule as the active_slot index.
type Reservations struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Reservation
}

// NewReservations returns an empty store.
func NewReservations() *Reservations {
	return &Reservations{rows: make(map[uint64]model.Reservation)}
}

// Put stores a reservation as is, assigning an ID when it has none.
func (s *Reservations) Put(r model.Reservation) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	} else if r.ID > s.nextID {
		s.nextID = r.ID
	}
	s.rows[r.ID] = r
	return r
}

func (s *Reservations) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.rows {
		if o.Status.Active() && o.TableID == r.TableID && o.ServiceDate == r.ServiceDate && o.Time == r.Time {
			return repository.ErrConflict
		}
	}
	now := time.Now().UTC()
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt, r.UpdatedAt = now, now
	s.rows[r.ID] = *r
	return nil
}

func (s *Reservations) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Reservations) filter(keep func(model.Reservation) bool) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Reservations) ListActiveForTableDate(_ context.Context, tableID uint64, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool {
		return r.Status.Active() && r.TableID == tableID && r.ServiceDate == date
	}), nil
}

func (s *Reservations) ListActiveForDate(_ context.Context, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.Status.Active() && r.ServiceDate == date }), nil
}

func (s *Reservations) ListApprovedThrough(_ context.Context, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool {
		return r.Status == model.ReservationApproved && r.ServiceDate <= date
	}), nil
}

func (s *Reservations) ListByClient(_ context.Context, clientID uint64) ([]model.Reservation, error) {
	out := s.filter(func(r model.Reservation) bool { return r.ClientID == clientID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ServiceDate > out[j].ServiceDate })
	return out, nil
}

func (s *Reservations) ListByDate(_ context.Context, date string) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.ServiceDate == date }), nil
}

func (s *Reservations) Transition(_ context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if r.Status == f {
			r.Status = to
			r.UpdatedAt = time.Now().UTC()
			s.rows[id] = r
			return true, nil
		}
	}
	return false, nil
}

func (s *Reservations) Decide(_ context.Context, id uint64, to model.ReservationStatus, deciderID uint64, reason *string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || r.Status != model.ReservationPending {
		return false, nil
	}
	r.Status = to
	r.RejectionReason = reason
	r.DecidedBy = &deciderID
	decided := at.UTC()
	r.DecidedAt = &decided
	r.UpdatedAt = time.Now().UTC()
	s.rows[id] = r
	return true, nil
}

// Waiting is an in-memory waiting list.  Create refuses a second waiting
// entry per client the way the waiting_client index does.
type Waiting struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.WaitingListEntry
}

// NewWaiting returns an empty waiting list.
func NewWaiting() *Waiting {
	return &Waiting{rows: make(map[uint64]model.WaitingListEntry)}
}

func (s *Waiting) Create(_ context.Context, e *model.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Status == model.WaitingActive {
		for _, o := range s.rows {
			if o.ClientID == e.ClientID && o.Status == model.WaitingActive {
				return repository.ErrConflict
			}
		}
	}
	s.nextID++
	e.ID = s.nextID
	s.rows[e.ID] = *e
	return nil
}

func (s *Waiting) Get(_ context.Context, id uint64) (*model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Waiting) GetWaitingByClient(_ context.Context, clientID uint64) (*model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.ClientID == clientID && e.Status == model.WaitingActive {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Waiting) FindByReservation(_ context.Context, reservationID uint64) ([]model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitingListEntry
	for _, e := range s.rows {
		if e.ReservationID != nil && *e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Waiting) HasSeatedSince(_ context.Context, clientID uint64, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.ClientID == clientID && e.Status == model.WaitingSeated && e.SeatedAt != nil && !e.SeatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Waiting) ListWaiting(_ context.Context) ([]model.WaitingListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitingListEntry
	for _, e := range s.rows {
		if e.Status == model.WaitingActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Waiting) Seat(_ context.Context, id, tableID uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok || e.Status != model.WaitingActive {
		return false, nil
	}
	e.Status = model.WaitingSeated
	e.TableID = &tableID
	seated := at.UTC()
	e.SeatedAt = &seated
	s.rows[id] = e
	return true, nil
}

func (s *Waiting) Close(_ context.Context, id uint64, to model.WaitingStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok || e.Status != model.WaitingActive {
		return false, nil
	}
	e.Status = to
	closed := at.UTC()
	e.CancelledAt = &closed
	s.rows[id] = e
	return true, nil
}

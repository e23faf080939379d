package service

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
)

// WaitingListService maintains the walk-in and activated-reservation queue
// and seats entries at tables.  Seating is a conditional claim on the table
// row; when two assignments race for one table exactly one wins.
type WaitingListService struct {
	tables       TableStore
	reservations ReservationStore
	waiting      WaitingStore
	clock        Clock
	notify       dispatcher
	log          *log.Logger
}

// NewWaitingListService wires a WaitingListService.  notifier may be nil.
func NewWaitingListService(tables TableStore, reservations ReservationStore, waiting WaitingStore, clock Clock, notifier Notifier, logger *log.Logger) *WaitingListService {
	if logger == nil {
		logger = log.Default()
	}
	return &WaitingListService{
		tables:       tables,
		reservations: reservations,
		waiting:      waiting,
		clock:        clock,
		notify:       newDispatcher(notifier, logger),
		log:          logger,
	}
}

// JoinInput describes a walk-in.  ClientID is only read when staff register
// someone at the door; clients always join as themselves.
type JoinInput struct {
	ClientID        *uint64
	PartySize       int
	PreferredType   *model.TableType
	SpecialRequests *string
	Priority        *int
}

// Join puts a client on the waiting list.
func (s *WaitingListService) Join(ctx context.Context, actor model.Actor, in JoinInput) (*model.WaitingListEntry, error) {
	clientID := actor.UserID
	if actor.IsStaff() {
		if in.ClientID == nil || *in.ClientID == 0 {
			return nil, fail(ErrValidation, "client_id is required when staff register a walk-in")
		}
		clientID = *in.ClientID
	}
	if err := checkPartySize(in.PartySize); err != nil {
		return nil, err
	}
	if in.PreferredType != nil && !in.PreferredType.Valid() {
		return nil, fail(ErrValidation, "unknown table type %q", *in.PreferredType)
	}
	priority := model.PriorityWalkIn
	if in.Priority != nil {
		if *in.Priority > model.PriorityWalkIn && !actor.IsStaff() {
			return nil, fail(ErrForbidden, "only staff may raise waiting-list priority")
		}
		priority = *in.Priority
	}

	if _, err := s.waiting.GetWaitingByClient(ctx, clientID); err == nil {
		return nil, fail(ErrConflict, "already on the waiting list")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "waiting entry")
	}

	entry := &model.WaitingListEntry{
		ClientID:           clientID,
		PartySize:          in.PartySize,
		PreferredTableType: in.PreferredType,
		SpecialRequests:    in.SpecialRequests,
		Status:             model.WaitingActive,
		Priority:           priority,
		JoinedAt:           s.clock.Now().UTC(),
	}
	if err := s.waiting.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fail(ErrConflict, "already on the waiting list")
		}
		return nil, storeError(err, "waiting entry")
	}
	s.log.Printf("waiting-list: client=%d joined entry=%d party=%d priority=%d", clientID, entry.ID, entry.PartySize, entry.Priority)

	ev := queue.WalkInEvent{EntryID: entry.ID, ClientID: clientID, PartySize: entry.PartySize, Priority: priority}
	if entry.PreferredTableType != nil {
		ev.PreferredType = string(*entry.PreferredTableType)
	}
	s.notify.send(ctx, queue.EventWalkInJoined, ev)
	return entry, nil
}

// AssignTable seats a waiting entry at a table on staff instruction.
func (s *WaitingListService) AssignTable(ctx context.Context, actor model.Actor, entryID, tableID uint64) (*model.WaitingListEntry, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "only staff may assign tables")
	}
	entry, err := s.waiting.Get(ctx, entryID)
	if err != nil {
		return nil, storeError(err, "waiting entry")
	}
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return nil, storeError(err, "table")
	}
	return s.seat(ctx, entry, table)
}

// seat claims table for entry's client and moves the entry to seated.  It
// is shared by staff assignment and client check-in.
func (s *WaitingListService) seat(ctx context.Context, entry *model.WaitingListEntry, table *model.Table) (*model.WaitingListEntry, error) {
	if entry.Status != model.WaitingActive {
		return nil, fail(ErrConflict, "waiting entry is already %s", entry.Status)
	}
	if !table.FreeFor(entry.ClientID) {
		return nil, fail(ErrConflict, "table already taken")
	}
	if table.Capacity < entry.PartySize {
		return nil, fail(ErrCapacity, "table %d seats %d, party has %d", table.Number, table.Capacity, entry.PartySize)
	}

	if err := s.tables.Claim(ctx, table.ID, entry.ClientID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fail(ErrConflict, "table already taken")
		}
		return nil, storeError(err, "table")
	}

	now := s.clock.Now()
	ok, err := s.waiting.Seat(ctx, entry.ID, table.ID, now)
	if err != nil || !ok {
		if uerr := s.tables.Unclaim(ctx, table.ID, entry.ClientID); uerr != nil {
			s.log.Printf("waiting-list: rollback claim on table %d failed: %v", table.Number, uerr)
		}
		if err != nil {
			return nil, storeError(err, "waiting entry")
		}
		return nil, fail(ErrConflict, "waiting entry is no longer waiting")
	}

	if entry.ReservationID != nil {
		if _, err := s.reservations.Transition(ctx, *entry.ReservationID,
			[]model.ReservationStatus{model.ReservationApproved}, model.ReservationCompleted); err != nil {
			s.log.Printf("waiting-list: complete reservation %d failed: %v", *entry.ReservationID, err)
		}
	}
	s.log.Printf("waiting-list: entry=%d client=%d seated at table %d", entry.ID, entry.ClientID, table.Number)
	s.notify.send(ctx, queue.EventTableAssigned, queue.TableAssignedEvent{
		EntryID:       entry.ID,
		ClientID:      entry.ClientID,
		TableID:       table.ID,
		TableNumber:   table.Number,
		ReservationID: entry.ReservationID,
	})

	seated := *entry
	seated.Status = model.WaitingSeated
	seated.TableID = &table.ID
	seatedAt := now.UTC()
	seated.SeatedAt = &seatedAt
	return &seated, nil
}

// Cancel withdraws a waiting entry.  The owning client or any staff member
// may do it.
func (s *WaitingListService) Cancel(ctx context.Context, actor model.Actor, entryID uint64) (*model.WaitingListEntry, error) {
	entry, err := s.waiting.Get(ctx, entryID)
	if err != nil {
		return nil, storeError(err, "waiting entry")
	}
	if !actor.IsStaff() && entry.ClientID != actor.UserID {
		return nil, fail(ErrForbidden, "only the client or staff may cancel this entry")
	}
	return s.close(ctx, entry, model.WaitingCancelled)
}

// MarkNoShow records that a called client never came forward.
func (s *WaitingListService) MarkNoShow(ctx context.Context, actor model.Actor, entryID uint64) (*model.WaitingListEntry, error) {
	return s.staffClose(ctx, actor, entryID, model.WaitingNoShow)
}

// Displace removes an entry that staff had to give up on, for example when
// the party was seated elsewhere.
func (s *WaitingListService) Displace(ctx context.Context, actor model.Actor, entryID uint64) (*model.WaitingListEntry, error) {
	return s.staffClose(ctx, actor, entryID, model.WaitingDisplaced)
}

func (s *WaitingListService) staffClose(ctx context.Context, actor model.Actor, entryID uint64, to model.WaitingStatus) (*model.WaitingListEntry, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	entry, err := s.waiting.Get(ctx, entryID)
	if err != nil {
		return nil, storeError(err, "waiting entry")
	}
	return s.close(ctx, entry, to)
}

// close ends a waiting entry without seating it.  Tables are untouched: an
// entry that never reached seated never held a claim.
func (s *WaitingListService) close(ctx context.Context, entry *model.WaitingListEntry, to model.WaitingStatus) (*model.WaitingListEntry, error) {
	now := s.clock.Now()
	ok, err := s.waiting.Close(ctx, entry.ID, to, now)
	if err != nil {
		return nil, storeError(err, "waiting entry")
	}
	if !ok {
		return nil, fail(ErrConflict, "waiting entry is no longer waiting")
	}
	s.log.Printf("waiting-list: entry=%d client=%d %s", entry.ID, entry.ClientID, to)
	closed := *entry
	closed.Status = to
	at := now.UTC()
	closed.CancelledAt = &at
	return &closed, nil
}

// QueuePosition is a client's place in line.
type QueuePosition struct {
	Position int                     `json:"position"`
	Ahead    int                     `json:"ahead"`
	Entry    *model.WaitingListEntry `json:"entry"`
}

// Position returns the 1-based rank of the client's waiting entry.
func (s *WaitingListService) Position(ctx context.Context, clientID uint64) (*QueuePosition, error) {
	queueRows, err := s.waiting.ListWaiting(ctx)
	if err != nil {
		return nil, storeError(err, "waiting list")
	}
	for i := range queueRows {
		if queueRows[i].ClientID == clientID {
			e := queueRows[i]
			return &QueuePosition{Position: i + 1, Ahead: i, Entry: &e}, nil
		}
	}
	return nil, fail(ErrNotFound, "you are not on the waiting list")
}

// List is the staff view of the queue in service order.
func (s *WaitingListService) List(ctx context.Context, actor model.Actor) ([]model.WaitingListEntry, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	out, err := s.waiting.ListWaiting(ctx)
	if err != nil {
		return nil, storeError(err, "waiting list")
	}
	if out == nil {
		out = []model.WaitingListEntry{}
	}
	return out, nil
}

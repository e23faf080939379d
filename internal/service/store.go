package service

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// TableStore is the table registry.  Claim, Unclaim and ReleaseHold are
// conditional: they return repository.ErrConflict (or false) when the row no
// longer matches the expected state.
type TableStore interface {
	Get(ctx context.Context, id uint64) (*model.Table, error)
	List(ctx context.Context) ([]model.Table, error)
	ListByType(ctx context.Context, typ model.TableType) ([]model.Table, error)
	Claim(ctx context.Context, tableID, clientID uint64) error
	Unclaim(ctx context.Context, tableID, clientID uint64) error
	ReleaseHold(ctx context.Context, tableID, clientID uint64) (bool, error)
	Free(ctx context.Context, tableID uint64) error
	AssignStaff(ctx context.Context, tableID uint64, staffID *uint64) error
	SetCheckinCode(ctx context.Context, tableID uint64, hash string) error
}

// ReservationStore persists reservations.  Create returns
// repository.ErrConflict when another active reservation holds the same
// table, date and time.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	ListActiveForTableDate(ctx context.Context, tableID uint64, date string) ([]model.Reservation, error)
	ListActiveForDate(ctx context.Context, date string) ([]model.Reservation, error)
	ListApprovedThrough(ctx context.Context, date string) ([]model.Reservation, error)
	ListByClient(ctx context.Context, clientID uint64) ([]model.Reservation, error)
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
	Transition(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error)
	Decide(ctx context.Context, id uint64, to model.ReservationStatus, deciderID uint64, reason *string, at time.Time) (bool, error)
}

// WaitingStore persists waiting-list entries.  Create returns
// repository.ErrConflict when the client already has a waiting entry.
type WaitingStore interface {
	Create(ctx context.Context, e *model.WaitingListEntry) error
	Get(ctx context.Context, id uint64) (*model.WaitingListEntry, error)
	GetWaitingByClient(ctx context.Context, clientID uint64) (*model.WaitingListEntry, error)
	FindByReservation(ctx context.Context, reservationID uint64) ([]model.WaitingListEntry, error)
	HasSeatedSince(ctx context.Context, clientID uint64, since time.Time) (bool, error)
	ListWaiting(ctx context.Context) ([]model.WaitingListEntry, error)
	Seat(ctx context.Context, id, tableID uint64, at time.Time) (bool, error)
	Close(ctx context.Context, id uint64, to model.WaitingStatus, at time.Time) (bool, error)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// WaitingRepo persists waiting-list entries.  A generated waiting_client
// column (client_id while status is waiting, NULL otherwise) carries a
// unique index, so a client can never hold two waiting entries.
type WaitingRepo struct {
	db *sqlx.DB
}

// NewWaitingRepo returns a new WaitingRepo bound to the given database.
func NewWaitingRepo(db *sqlx.DB) *WaitingRepo { return &WaitingRepo{db: db} }

const waitingColumns = `id, client_id, reservation_id, party_size,
	preferred_table_type, special_requests, status, priority, table_id,
	joined_at, seated_at, cancelled_at`

// Create inserts a waiting entry.  ErrConflict means the client already has
// one.
func (r *WaitingRepo) Create(ctx context.Context, e *model.WaitingListEntry) error {
	const q = `INSERT INTO waiting_list
		(client_id, reservation_id, party_size, preferred_table_type, special_requests, status, priority, joined_at)
		VALUES (:client_id, :reservation_id, :party_size, :preferred_table_type, :special_requests, :status, :priority, :joined_at)`
	result, err := r.db.NamedExecContext(ctx, q, e)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert waiting entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Get returns one entry or ErrNotFound.
func (r *WaitingRepo) Get(ctx context.Context, id uint64) (*model.WaitingListEntry, error) {
	var e model.WaitingListEntry
	if err := r.db.GetContext(ctx, &e, `SELECT `+waitingColumns+` FROM waiting_list WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// GetWaitingByClient returns the client's waiting entry or ErrNotFound.
func (r *WaitingRepo) GetWaitingByClient(ctx context.Context, clientID uint64) (*model.WaitingListEntry, error) {
	var e model.WaitingListEntry
	err := r.db.GetContext(ctx, &e,
		`SELECT `+waitingColumns+` FROM waiting_list WHERE client_id = ? AND status = 'waiting' LIMIT 1`, clientID)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// FindByReservation returns every entry created for a reservation.
func (r *WaitingRepo) FindByReservation(ctx context.Context, reservationID uint64) ([]model.WaitingListEntry, error) {
	var out []model.WaitingListEntry
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+waitingColumns+` FROM waiting_list WHERE reservation_id = ? ORDER BY id`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("find waiting by reservation: %w", err)
	}
	return out, nil
}

// HasSeatedSince reports whether the client was seated at any table at or
// after since.
func (r *WaitingRepo) HasSeatedSince(ctx context.Context, clientID uint64, since time.Time) (bool, error) {
	var seated bool
	err := r.db.GetContext(ctx, &seated,
		`SELECT EXISTS(SELECT 1 FROM waiting_list WHERE client_id = ? AND status = 'seated' AND seated_at >= ?)`,
		clientID, since.UTC())
	if err != nil {
		return false, fmt.Errorf("check seated client: %w", err)
	}
	return seated, nil
}

// ListWaiting returns the queue in service order: priority first, then
// arrival.
func (r *WaitingRepo) ListWaiting(ctx context.Context) ([]model.WaitingListEntry, error) {
	var out []model.WaitingListEntry
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+waitingColumns+` FROM waiting_list WHERE status = 'waiting'
		 ORDER BY priority DESC, joined_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list waiting: %w", err)
	}
	return out, nil
}

// Seat moves a waiting entry to seated at tableID.  It reports false when
// the entry had already left the waiting state.
func (r *WaitingRepo) Seat(ctx context.Context, id, tableID uint64, at time.Time) (bool, error) {
	const q = `UPDATE waiting_list SET status = 'seated', table_id = ?, seated_at = ?
		WHERE id = ? AND status = 'waiting'`
	res, err := r.db.ExecContext(ctx, q, tableID, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("seat waiting entry: %w", err)
	}
	return affected(res)
}

// Close moves a waiting entry into a terminal non-seated status
// (cancelled, no_show or displaced).
func (r *WaitingRepo) Close(ctx context.Context, id uint64, to model.WaitingStatus, at time.Time) (bool, error) {
	const q = `UPDATE waiting_list SET status = ?, cancelled_at = ?
		WHERE id = ? AND status = 'waiting'`
	res, err := r.db.ExecContext(ctx, q, to, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("close waiting entry: %w", err)
	}
	return affected(res)
}


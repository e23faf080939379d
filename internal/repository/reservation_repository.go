package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// ReservationRepo persists reservations.  The reservations table carries a
// generated active_slot column (1 while pending or approved, NULL
// otherwise) with a unique index on (table_id, service_date, res_time,
// active_slot), so the database refuses a second active reservation for
// the same table and time even if two requests pass the availability check
// together.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, client_id, table_id,
	DATE_FORMAT(service_date, '%Y-%m-%d') AS service_date, res_time,
	party_size, notes, status, rejection_reason, decided_by, decided_at,
	created_at, updated_at`

// Create inserts a pending reservation and reloads it so defaults and
// timestamps are populated.  A unique index violation yields ErrConflict.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(client_id, table_id, service_date, res_time, party_size, notes, status)
		VALUES (:client_id, :table_id, :service_date, :res_time, :party_size, :notes, :status)`
	result, err := r.db.NamedExecContext(ctx, q, res)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

// Get returns one reservation or ErrNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func (r *ReservationRepo) selectMany(ctx context.Context, op, where string, args ...interface{}) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := r.db.SelectContext(ctx, &out, `SELECT `+reservationColumns+` FROM reservations `+where, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListActiveForTableDate returns the pending and approved reservations of
// one table on one service date.
func (r *ReservationRepo) ListActiveForTableDate(ctx context.Context, tableID uint64, date string) ([]model.Reservation, error) {
	return r.selectMany(ctx, "list active reservations for table",
		`WHERE table_id = ? AND service_date = ? AND status IN ('pending', 'approved')`, tableID, date)
}

// ListActiveForDate returns every pending and approved reservation of a
// service date.
func (r *ReservationRepo) ListActiveForDate(ctx context.Context, date string) ([]model.Reservation, error) {
	return r.selectMany(ctx, "list active reservations",
		`WHERE service_date = ? AND status IN ('pending', 'approved')`, date)
}

// ListApprovedThrough returns approved reservations whose service date is on
// or before date.  The sweeper works through this set.
func (r *ReservationRepo) ListApprovedThrough(ctx context.Context, date string) ([]model.Reservation, error) {
	return r.selectMany(ctx, "list approved reservations",
		`WHERE status = 'approved' AND service_date <= ? ORDER BY service_date, id`, date)
}

// ListByClient returns a client's reservations, newest service date first.
func (r *ReservationRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Reservation, error) {
	return r.selectMany(ctx, "list reservations by client",
		`WHERE client_id = ? ORDER BY service_date DESC, id DESC`, clientID)
}

// ListByDate returns every reservation of a service date regardless of
// status.
func (r *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	return r.selectMany(ctx, "list reservations by date",
		`WHERE service_date = ? ORDER BY id`, date)
}

// Transition moves a reservation to status to, but only while its current
// status is one of from.  It reports whether the row changed.
func (r *ReservationRepo) Transition(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
	q, args, err := sqlx.In(
		`UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status IN (?)`,
		to, id, from)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return false, fmt.Errorf("transition reservation: %w", err)
	}
	return affected(res)
}

// Decide records an approval or rejection of a pending reservation.  It
// reports false when the reservation was no longer pending.
func (r *ReservationRepo) Decide(ctx context.Context, id uint64, to model.ReservationStatus, deciderID uint64, reason *string, at time.Time) (bool, error) {
	const q = `UPDATE reservations
		SET status = ?, rejection_reason = ?, decided_by = ?, decided_at = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, to, reason, deciderID, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("decide reservation: %w", err)
	}
	return affected(res)
}

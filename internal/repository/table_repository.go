package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// TableRepo is the table registry.  Tables are provisioned out of band;
// this repository only reads them and applies conditional claim and release
// updates.  Every mutation bumps the version column.
type TableRepo struct {
	db *sqlx.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sqlx.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, number, capacity, table_type, occupied, claimant_id,
	assigned_staff_id, checkin_code_hash, version, updated_at`

// Get returns a single table or ErrNotFound.
func (r *TableRepo) Get(ctx context.Context, id uint64) (*model.Table, error) {
	var t model.Table
	err := r.db.GetContext(ctx, &t, `SELECT `+tableColumns+` FROM dining_tables WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// List returns every table ordered by its number.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	var out []model.Table
	if err := r.db.SelectContext(ctx, &out, `SELECT `+tableColumns+` FROM dining_tables ORDER BY number`); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return out, nil
}

// ListByType returns the tables of one type ordered by number.
func (r *TableRepo) ListByType(ctx context.Context, typ model.TableType) ([]model.Table, error) {
	var out []model.Table
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+tableColumns+` FROM dining_tables WHERE table_type = ? ORDER BY number`, typ)
	if err != nil {
		return nil, fmt.Errorf("list tables by type: %w", err)
	}
	return out, nil
}

// Claim seats clientID at the table.  The update only matches while nobody
// is seated and the claimant is empty or already the same client, so of
// several concurrent claims exactly one succeeds; the others get
// ErrConflict.
func (r *TableRepo) Claim(ctx context.Context, tableID, clientID uint64) error {
	const q = `UPDATE dining_tables
		SET claimant_id = ?, occupied = 1, version = version + 1
		WHERE id = ? AND occupied = 0 AND (claimant_id IS NULL OR claimant_id = ?)`
	res, err := r.db.ExecContext(ctx, q, clientID, tableID, clientID)
	if err != nil {
		return fmt.Errorf("claim table: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Unclaim reverts a Claim made by clientID.  It is used when the waiting
// entry that triggered the claim could not be moved to seated.
func (r *TableRepo) Unclaim(ctx context.Context, tableID, clientID uint64) error {
	const q = `UPDATE dining_tables
		SET claimant_id = NULL, occupied = 0, version = version + 1
		WHERE id = ? AND claimant_id = ?`
	res, err := r.db.ExecContext(ctx, q, tableID, clientID)
	if err != nil {
		return fmt.Errorf("unclaim table: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// ReleaseHold clears a claimant that never sat down.  Nothing happens when
// the table is occupied or held by another client.
func (r *TableRepo) ReleaseHold(ctx context.Context, tableID, clientID uint64) (bool, error) {
	const q = `UPDATE dining_tables
		SET claimant_id = NULL, version = version + 1
		WHERE id = ? AND occupied = 0 AND claimant_id = ?`
	res, err := r.db.ExecContext(ctx, q, tableID, clientID)
	if err != nil {
		return false, fmt.Errorf("release hold: %w", err)
	}
	return affected(res)
}

// Free marks the table empty regardless of its current claimant.
func (r *TableRepo) Free(ctx context.Context, tableID uint64) error {
	const q = `UPDATE dining_tables
		SET occupied = 0, claimant_id = NULL, version = version + 1
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, tableID)
	if err != nil {
		return fmt.Errorf("free table: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AssignStaff sets or clears the waiter responsible for the table.
func (r *TableRepo) AssignStaff(ctx context.Context, tableID uint64, staffID *uint64) error {
	const q = `UPDATE dining_tables
		SET assigned_staff_id = ?, version = version + 1
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, staffID, tableID)
	if err != nil {
		return fmt.Errorf("assign staff: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SetCheckinCode stores the bcrypt hash of the table's arrival code.
func (r *TableRepo) SetCheckinCode(ctx context.Context, tableID uint64, hash string) error {
	const q = `UPDATE dining_tables
		SET checkin_code_hash = ?, version = version + 1
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, hash, tableID)
	if err != nil {
		return fmt.Errorf("set checkin code: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
	"github.com/iliyamo/restaurant-table-allocation/internal/utils"
)

// CheckinCodeLength is the number of characters printed on a table card.
const CheckinCodeLength = 6

// TableService covers the table operations outside the reservation flow:
// freeing, staff assignment and arrival check-in.
type TableService struct {
	tables  TableStore
	waiting WaitingStore
	seater  *WaitingListService
	log     *log.Logger

	// BcryptCost is used when issuing check-in codes.
	BcryptCost int
}

// NewTableService wires a TableService.  Check-in seats clients through
// the waiting-list service so both paths share the same conditional claim.
func NewTableService(tables TableStore, waiting WaitingStore, seater *WaitingListService, logger *log.Logger) *TableService {
	if logger == nil {
		logger = log.Default()
	}
	return &TableService{tables: tables, waiting: waiting, seater: seater, log: logger, BcryptCost: bcrypt.DefaultCost}
}

// List returns every table.
func (s *TableService) List(ctx context.Context, actor model.Actor) ([]model.Table, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	out, err := s.tables.List(ctx)
	if err != nil {
		return nil, storeError(err, "tables")
	}
	if out == nil {
		out = []model.Table{}
	}
	return out, nil
}

// Get returns one table.
func (s *TableService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Table, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	t, err := s.tables.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "table")
	}
	return t, nil
}

// Free empties a table.  The next party is not pulled automatically; the
// table simply becomes eligible for the next assignment or activation.
func (s *TableService) Free(ctx context.Context, actor model.Actor, id uint64) (*model.Table, error) {
	if !actor.IsStaff() {
		return nil, fail(ErrForbidden, "staff only")
	}
	if err := s.tables.Free(ctx, id); err != nil {
		return nil, storeError(err, "table")
	}
	t, err := s.tables.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "table")
	}
	s.log.Printf("tables: table %d freed by user=%d", t.Number, actor.UserID)
	return t, nil
}

// AssignStaff sets the waiter responsible for a table; nil clears it.
func (s *TableService) AssignStaff(ctx context.Context, actor model.Actor, id uint64, staffID *uint64) (*model.Table, error) {
	if !actor.CanDecide() {
		return nil, fail(ErrForbidden, "only owners and supervisors may assign staff")
	}
	if err := s.tables.AssignStaff(ctx, id, staffID); err != nil {
		return nil, storeError(err, "table")
	}
	t, err := s.tables.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "table")
	}
	return t, nil
}

// IssueCheckinCode generates a new arrival code for a table and returns it
// in clear text.  Only its hash is stored, so the code must be printed now.
func (s *TableService) IssueCheckinCode(ctx context.Context, actor model.Actor, id uint64) (string, error) {
	if !actor.CanDecide() {
		return "", fail(ErrForbidden, "only owners and supervisors may issue check-in codes")
	}
	code, err := utils.NewCheckinCode(CheckinCodeLength)
	if err != nil {
		return "", err
	}
	hash, err := utils.HashCheckinCode(code, s.BcryptCost)
	if err != nil {
		return "", err
	}
	if err := s.tables.SetCheckinCode(ctx, id, hash); err != nil {
		return "", storeError(err, "table")
	}
	s.log.Printf("tables: new check-in code issued for table id=%d", id)
	return code, nil
}

// ConfirmArrival seats a client who scanned the code printed on a table.
// The client must be on the waiting list, either as a walk-in or through an
// activated reservation.
func (s *TableService) ConfirmArrival(ctx context.Context, clientID, tableID uint64, code string) (*model.WaitingListEntry, error) {
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return nil, storeError(err, "table")
	}
	if table.CheckinCodeHash == nil || !utils.VerifyCheckinCode(*table.CheckinCodeHash, code) {
		return nil, fail(ErrForbidden, "invalid check-in code")
	}
	entry, err := s.waiting.GetWaitingByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "you are not on the waiting list")
		}
		return nil, storeError(err, "waiting entry")
	}
	return s.seater.seat(ctx, entry, table)
}

package model

import "time"

// TableType classifies a physical table.  Reservations and waiting-list
// entries ask for a type and only compatible tables are offered.
type TableType string

const (
	TableStandard   TableType = "standard"
	TableVIP        TableType = "vip"
	TableAccessible TableType = "accessible"
)

// Valid reports whether t is one of the known table types.
func (t TableType) Valid() bool {
	switch t {
	case TableStandard, TableVIP, TableAccessible:
		return true
	}
	return false
}

// Table is a physical table in the dining room.  It is provisioned out of
// band and never deleted; claim and release operations mutate Occupied,
// ClaimantID and Version through conditional updates.
//
// Fields:
//  ID              – primary key identifier.
//  Number          – sequence number printed on the table.
//  Capacity        – number of seats.
//  Type            – standard, vip or accessible.
//  Occupied        – someone is physically seated.
//  ClaimantID      – client currently holding the table (nil when free).
//  AssignedStaffID – waiter who owns the table (nil when unassigned).
//  CheckinCodeHash – bcrypt hash of the code clients scan on arrival.
//  Version         – bumped on every mutation.
//  UpdatedAt       – last mutation timestamp.
type Table struct {
	ID              uint64    `db:"id" json:"id"`
	Number          int       `db:"number" json:"number"`
	Capacity        int       `db:"capacity" json:"capacity"`
	Type            TableType `db:"table_type" json:"type"`
	Occupied        bool      `db:"occupied" json:"occupied"`
	ClaimantID      *uint64   `db:"claimant_id" json:"claimant_id,omitempty"`
	AssignedStaffID *uint64   `db:"assigned_staff_id" json:"assigned_staff_id,omitempty"`
	CheckinCodeHash *string   `db:"checkin_code_hash" json:"-"`
	Version         uint32    `db:"version" json:"version"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// FreeFor reports whether the table can be claimed by clientID: nobody is
// seated and the claimant is either empty or the same client.
func (t *Table) FreeFor(clientID uint64) bool {
	if t.Occupied {
		return false
	}
	return t.ClaimantID == nil || *t.ClaimantID == clientID
}

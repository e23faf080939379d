package model

import "time"

// WaitingStatus is the state of a waiting-list entry.  Only waiting is
// non-terminal.
type WaitingStatus string

const (
	WaitingActive    WaitingStatus = "waiting"
	WaitingSeated    WaitingStatus = "seated"
	WaitingCancelled WaitingStatus = "cancelled"
	WaitingNoShow    WaitingStatus = "no_show"
	WaitingDisplaced WaitingStatus = "displaced"
)

const (
	// PriorityWalkIn is the default priority of a walk-in entry.
	PriorityWalkIn = 0
	// PriorityReservation is given to entries created by reservation
	// activation so they are served before walk-ins.
	PriorityReservation = 100
)

// WaitingListEntry is an active claim attempt: either a walk-in or a
// reservation whose arrival window has opened (ReservationID set).
type WaitingListEntry struct {
	ID                 uint64        `db:"id" json:"id"`
	ClientID           uint64        `db:"client_id" json:"client_id"`
	ReservationID      *uint64       `db:"reservation_id" json:"reservation_id,omitempty"`
	PartySize          int           `db:"party_size" json:"party_size"`
	PreferredTableType *TableType    `db:"preferred_table_type" json:"preferred_table_type,omitempty"`
	SpecialRequests    *string       `db:"special_requests" json:"special_requests,omitempty"`
	Status             WaitingStatus `db:"status" json:"status"`
	Priority           int           `db:"priority" json:"priority"`
	TableID            *uint64       `db:"table_id" json:"table_id,omitempty"`
	JoinedAt           time.Time     `db:"joined_at" json:"joined_at"`
	SeatedAt           *time.Time    `db:"seated_at" json:"seated_at,omitempty"`
	CancelledAt        *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
	// ReservationCompleted is set once the client linked to the reservation
	// has been seated.
	ReservationCompleted ReservationStatus = "completed"
)

// Active reports whether the reservation still holds its slot.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationApproved
}

// Reservation is a client's request to hold a table at a future time.
// ServiceDate is the evening on which the service day starts, so a 01:00
// reservation on service date 2025-03-01 takes place on 2025-03-02.
// Time is stored as HH:MM.
type Reservation struct {
	ID              uint64            `db:"id" json:"id"`
	ClientID        uint64            `db:"client_id" json:"client_id"`
	TableID         uint64            `db:"table_id" json:"table_id"`
	ServiceDate     string            `db:"service_date" json:"date"`
	Time            string            `db:"res_time" json:"time"`
	PartySize       int               `db:"party_size" json:"party_size"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	Status          ReservationStatus `db:"status" json:"status"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	DecidedBy       *uint64           `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt       *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

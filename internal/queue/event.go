// Package queue carries allocation events over RabbitMQ.  The publisher
// sends every event to a topic exchange with the event name as routing key;
// the consumer drains a queue bound to that exchange into a log file.
package queue

import (
	"encoding/json"
	"time"
)

// Event names used as routing keys.
const (
	EventReservationCreated  = "reservation.created"
	EventReservationApproved = "reservation.approved"
	EventReservationRejected = "reservation.rejected"
	EventReservationExpired  = "reservation.expired"
	EventWalkInJoined        = "walkin.joined"
	EventTableAssigned       = "table.assigned"
)

// Envelope wraps every payload published to the exchange so consumers can
// route on the event name without knowing the payload type up front.
type Envelope struct {
	Event      string          `json:"event"`
	OccurredAt string          `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ReservationEvent is published on reservation lifecycle changes.  Reason
// is only set for rejections.
type ReservationEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	ClientID      uint64 `json:"client_id"`
	TableID       uint64 `json:"table_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PartySize     int    `json:"party_size"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// WalkInEvent tells host staff that someone joined the waiting list.
type WalkInEvent struct {
	EntryID       uint64 `json:"entry_id"`
	ClientID      uint64 `json:"client_id"`
	PartySize     int    `json:"party_size"`
	PreferredType string `json:"preferred_type,omitempty"`
	Priority      int    `json:"priority"`
}

// TableAssignedEvent is published when a waiting entry is seated.
type TableAssignedEvent struct {
	EntryID       uint64  `json:"entry_id"`
	ClientID      uint64  `json:"client_id"`
	TableID       uint64  `json:"table_id"`
	TableNumber   int     `json:"table_number"`
	ReservationID *uint64 `json:"reservation_id,omitempty"`
}

// Encode builds the wire form of an event.
func Encode(event string, payload interface{}, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Event:      event,
		OccurredAt: at.UTC().Format(time.RFC3339),
		Payload:    raw,
	})
}

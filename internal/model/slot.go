package model

// TimeSlot is a derived availability value: a candidate time, whether it can
// be booked and, when it can, the table that would serve it.
type TimeSlot struct {
	Time        string  `json:"time"`
	Available   bool    `json:"available"`
	TableID     *uint64 `json:"table_id,omitempty"`
	TableNumber *int    `json:"table_number,omitempty"`
}

package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatLine(t *testing.T) {
	at := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   string
		payload interface{}
		want    []string
	}{
		{
			name:    "rejection carries reason",
			event:   EventReservationRejected,
			payload: ReservationEvent{ReservationID: 3, ClientID: 9, TableID: 2, Date: "2025-03-01", Time: "21:00", PartySize: 4, Reason: "private event"},
			want:    []string{"[2025-03-01T20:00:00Z] reservation.rejected", "reservation_id=3", `reason="private event"`},
		},
		{
			name:    "walk-in",
			event:   EventWalkInJoined,
			payload: WalkInEvent{EntryID: 5, ClientID: 9, PartySize: 2},
			want:    []string{"walkin.joined", "entry_id=5", "priority=0"},
		},
		{
			name:    "seated",
			event:   EventTableAssigned,
			payload: TableAssignedEvent{EntryID: 5, ClientID: 9, TableID: 11, TableNumber: 4},
			want:    []string{"table.assigned", "table=4"},
		},
		{
			name:    "unknown event falls back to raw payload",
			event:   "custom.event",
			payload: map[string]int{"x": 1},
			want:    []string{"custom.event", `{"x":1}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Encode(tt.event, tt.payload, at)
			if err != nil {
				t.Fatal(err)
			}
			line, err := FormatLine(body)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasSuffix(line, "\n") {
				t.Errorf("line %q not newline terminated", line)
			}
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q missing %q", line, w)
				}
			}
		})
	}
}

func TestFormatLineRejectsGarbage(t *testing.T) {
	if _, err := FormatLine([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid body")
	}
	if _, err := FormatLine([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for missing event name")
	}
}

func TestAppendEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notifications.log")
	body, _ := Encode(EventWalkInJoined, WalkInEvent{EntryID: 1, ClientID: 2, PartySize: 3}, time.Now())
	for i := 0; i < 2; i++ {
		if err := appendEvent(path, body); err != nil {
			t.Fatalf("appendEvent: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "walkin.joined"); n != 2 {
		t.Fatalf("log has %d lines, want 2", n)
	}
}

package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
)

func TestCreateReservation(t *testing.T) {
	f := newFixture(t, at(1, 18, 0), table(1, 4, model.TableStandard))
	notes := "window seat"

	res, err := f.reservations.Create(context.Background(), 100, CreateReservationInput{
		TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 4, Notes: &notes,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID == 0 || res.Status != model.ReservationPending || res.ClientID != 100 || res.Time != "21:00" {
		t.Fatalf("unexpected reservation %+v", res)
	}
	if f.notes.count(queue.EventReservationCreated) != 1 {
		t.Fatalf("events = %v", f.notes.events)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tests := []struct {
		name    string
		now     [3]int
		in      CreateReservationInput
		kind    error
		message string
	}{
		{"party too small", [3]int{1, 18, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 0}, ErrValidation, "party size"},
		{"party too large", [3]int{1, 18, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 21}, ErrValidation, "party size"},
		{"bad time", [3]int{1, 18, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "9pm", PartySize: 2}, ErrValidation, "HH:MM"},
		{"bad date", [3]int{1, 18, 0}, CreateReservationInput{TableID: 1, Date: "01/03/2025", Time: "21:00", PartySize: 2}, ErrValidation, "YYYY-MM-DD"},
		{"before opening", [3]int{1, 12, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "18:30", PartySize: 2}, ErrValidation, "between 19:00 and 02:30"},
		{"after closing", [3]int{1, 12, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "02:45", PartySize: 2}, ErrValidation, "between 19:00 and 02:30"},
		{"past date", [3]int{2, 18, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 2}, ErrValidation, "past"},
		{"lead time", [3]int{1, 20, 50}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 2}, ErrValidation, "at least 15 minutes from now"},
		// 00:50 on March 2 is still the March 1 service day.
		{"lead time after midnight", [3]int{2, 0, 50}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "01:00", PartySize: 2}, ErrValidation, "at least 15 minutes from now"},
		{"table too small", [3]int{1, 18, 0}, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 5}, ErrValidation, "does not fit"},
		{"missing table", [3]int{1, 18, 0}, CreateReservationInput{TableID: 9, Date: "2025-03-01", Time: "21:00", PartySize: 2}, ErrNotFound, "table not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, at(tt.now[0], tt.now[1], tt.now[2]), table(1, 4, model.TableStandard))
			_, err := f.reservations.Create(context.Background(), 100, tt.in)
			wantKind(t, err, tt.kind)
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("message %q does not mention %q", err.Error(), tt.message)
			}
			if len(f.notes.events) != 0 {
				t.Fatalf("rejected request emitted %v", f.notes.events)
			}
		})
	}
}

func TestCreateLateNightAcrossMidnight(t *testing.T) {
	f := newFixture(t, at(2, 0, 30), table(1, 4, model.TableStandard))
	res, err := f.reservations.Create(context.Background(), 100, CreateReservationInput{
		TableID: 1, Date: "2025-03-01", Time: "01:45", PartySize: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ServiceDate != "2025-03-01" {
		t.Fatalf("service date = %s", res.ServiceDate)
	}
}

func TestCreateSlotTakenOffersSuggestions(t *testing.T) {
	f := newFixture(t, at(1, 18, 0), table(1, 4, model.TableStandard))
	f.resv.Put(approved(7, 1, "2025-03-01", "21:00", 2))

	_, err := f.reservations.Create(context.Background(), 100, CreateReservationInput{
		TableID: 1, Date: "2025-03-01", Time: "21:30", PartySize: 2,
	})
	wantKind(t, err, ErrConflict)
	var se *Error
	if !errors.As(err, &se) || se.Msg != "slot no longer available" {
		t.Fatalf("err = %v", err)
	}
	if !reflect.DeepEqual(se.Suggestions, []string{"22:15"}) {
		t.Fatalf("suggestions = %v, want [22:15]", se.Suggestions)
	}
}

func TestCreateNoDoubleBooking(t *testing.T) {
	f := newFixture(t, at(1, 18, 0), table(1, 4, model.TableStandard))

	const n = 12
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.reservations.Create(context.Background(), uint64(100+i), CreateReservationInput{
				TableID: 1, Date: "2025-03-01", Time: "21:00", PartySize: 2,
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrConflict):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d creates succeeded, want 1", ok)
	}
	active, _ := f.resv.ListActiveForTableDate(context.Background(), 1, "2025-03-01")
	if len(active) != 1 {
		t.Fatalf("%d active reservations, want 1", len(active))
	}
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard))
	res, err := f.reservations.Create(ctx, 100, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "20:30", PartySize: 2})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.reservations.Decide(ctx, host, res.ID, model.ReservationApproved, "")
	wantKind(t, err, ErrForbidden)

	_, err = f.reservations.Decide(ctx, owner, res.ID, model.ReservationRejected, "  ")
	wantKind(t, err, ErrValidation)

	_, err = f.reservations.Decide(ctx, owner, res.ID, model.ReservationCancelled, "")
	wantKind(t, err, ErrValidation)

	_, err = f.reservations.Decide(ctx, owner, 999, model.ReservationApproved, "")
	wantKind(t, err, ErrNotFound)

	got, err := f.reservations.Decide(ctx, supervisor, res.ID, model.ReservationApproved, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.ReservationApproved || got.DecidedBy == nil || *got.DecidedBy != supervisor.UserID || got.DecidedAt == nil {
		t.Fatalf("decision not recorded: %+v", got)
	}
	if f.notes.count(queue.EventReservationApproved) != 1 {
		t.Fatalf("events = %v", f.notes.events)
	}

	_, err = f.reservations.Decide(ctx, owner, res.ID, model.ReservationRejected, "changed my mind")
	wantKind(t, err, ErrConflict)
	if !strings.Contains(err.Error(), "already decided") {
		t.Fatalf("err = %v", err)
	}
}

func TestDecideRejectCarriesReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard))
	res, _ := f.reservations.Create(ctx, 100, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "20:30", PartySize: 2})

	got, err := f.reservations.Decide(ctx, owner, res.ID, model.ReservationRejected, "private event")
	if err != nil {
		t.Fatal(err)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "private event" {
		t.Fatalf("reason = %v", got.RejectionReason)
	}
	if f.notes.count(queue.EventReservationRejected) != 1 {
		t.Fatalf("events = %v", f.notes.events)
	}
	// A rejected reservation frees the slot.
	if _, err := f.reservations.Create(ctx, 200, CreateReservationInput{TableID: 1, Date: "2025-03-01", Time: "20:30", PartySize: 2}); err != nil {
		t.Fatalf("rebook after rejection: %v", err)
	}
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard))
	res := f.resv.Put(approved(100, 1, "2025-03-01", "21:00", 2))

	_, err := f.reservations.Cancel(ctx, res.ID, 200)
	wantKind(t, err, ErrForbidden)

	_, err = f.reservations.Cancel(ctx, 999, 100)
	wantKind(t, err, ErrNotFound)

	got, err := f.reservations.Cancel(ctx, res.ID, 100)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != model.ReservationCancelled {
		t.Fatalf("status = %s", got.Status)
	}

	_, err = f.reservations.Cancel(ctx, res.ID, 100)
	wantKind(t, err, ErrForbidden)
}

func TestCancelActivatedReservationLeavesQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 20, 20), table(1, 4, model.TableStandard))
	res := f.resv.Put(approved(100, 1, "2025-03-01", "21:00", 2))
	if rep := sweep(t, f); rep.Activated != 1 {
		t.Fatalf("report = %s", rep)
	}

	if _, err := f.reservations.Cancel(ctx, res.ID, 100); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.waiting.GetWaitingByClient(ctx, 100); err == nil {
		t.Fatal("cancelled reservation still waiting")
	}
	entries, _ := f.waiting.FindByReservation(ctx, res.ID)
	if len(entries) != 1 || entries[0].Status != model.WaitingCancelled || entries[0].CancelledAt == nil {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestGetAvailableTablesVIPScenario(t *testing.T) {
	f := newFixture(t, at(1, 12, 0),
		table(1, 4, model.TableVIP),
		table(2, 6, model.TableVIP),
		table(3, 8, model.TableStandard),
		table(4, 2, model.TableVIP),
	)
	f.resv.Put(approved(50, 1, "2025-03-01", "21:00", 4))

	got, err := f.reservations.GetAvailableTables(context.Background(), model.TableVIP, 4, "2025-03-01", "21:00")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("available = %+v, want only table 2", got)
	}

	_, err = f.reservations.GetAvailableTables(context.Background(), "patio", 4, "2025-03-01", "21:00")
	wantKind(t, err, ErrValidation)
}

func TestSuggestAlternativesScenario(t *testing.T) {
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard), table(2, 4, model.TableStandard))
	f.resv.Put(approved(50, 1, "2025-03-01", "19:30", 2))
	f.resv.Put(approved(51, 2, "2025-03-01", "20:31", 2))

	got, err := f.reservations.SuggestAlternatives(context.Background(), model.TableStandard, 4, "2025-03-01", "20:00")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"19:15", "20:45"}) {
		t.Fatalf("suggestions = %v, want [19:15 20:45]", got)
	}
}

func TestIsTableReserved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard))
	f.resv.Put(approved(50, 1, "2025-03-01", "20:30", 2))

	_, err := f.reservations.IsTableReserved(ctx, waiter, 1, "2025-03-01", "20:30")
	wantKind(t, err, ErrForbidden)
	_, err = f.reservations.IsTableReserved(ctx, client(50), 1, "2025-03-01", "20:30")
	wantKind(t, err, ErrForbidden)
	_, err = f.reservations.IsTableReserved(ctx, host, 9, "2025-03-01", "20:30")
	wantKind(t, err, ErrNotFound)

	for hhmm, want := range map[string]bool{"19:00": false, "19:45": true, "21:15": true, "22:00": false} {
		got, err := f.reservations.IsTableReserved(ctx, host, 1, "2025-03-01", hhmm)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("reserved at %s = %v, want %v", hhmm, got, want)
		}
	}
}

func TestAvailabilityViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 2, model.TableStandard), table(2, 4, model.TableStandard))
	f.resv.Put(approved(50, 2, "2025-03-01", "20:30", 4))

	day, err := f.reservations.DayAvailability(ctx, "2025-03-01", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range day {
		blocked := s.Time == "19:45" || s.Time == "20:30" || s.Time == "21:15"
		if s.Available == blocked {
			t.Errorf("day slot %s available = %v", s.Time, s.Available)
		}
	}

	perTable, err := f.reservations.TableAvailability(ctx, 1, "2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range perTable {
		if !s.Available {
			t.Errorf("table 1 slot %s should be free", s.Time)
		}
	}

	_, err = f.reservations.DayAvailability(ctx, "2025-03-01", 0)
	wantKind(t, err, ErrValidation)
	_, err = f.reservations.TableAvailability(ctx, 9, "2025-03-01")
	wantKind(t, err, ErrNotFound)
}

func TestReadViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 12, 0), table(1, 4, model.TableStandard))
	mine := f.resv.Put(approved(100, 1, "2025-03-01", "20:30", 2))
	f.resv.Put(approved(200, 1, "2025-03-01", "22:30", 2))

	if _, err := f.reservations.Get(ctx, client(100), mine.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	_, err := f.reservations.Get(ctx, client(200), mine.ID)
	wantKind(t, err, ErrNotFound)
	if _, err := f.reservations.Get(ctx, host, mine.ID); err != nil {
		t.Fatalf("staff Get: %v", err)
	}

	list, err := f.reservations.ListMine(ctx, 100)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListMine = %v, %v", list, err)
	}
	_, err = f.reservations.ListByDate(ctx, client(100), "2025-03-01")
	wantKind(t, err, ErrForbidden)
	all, err := f.reservations.ListByDate(ctx, waiter, "2025-03-01")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByDate = %v, %v", all, err)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
)

func join(t *testing.T, f *fixture, clientID uint64, party int) *model.WaitingListEntry {
	t.Helper()
	e, err := f.queue.Join(context.Background(), client(clientID), JoinInput{PartySize: party})
	if err != nil {
		t.Fatalf("Join(%d): %v", clientID, err)
	}
	return e
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0))
	vip := model.TableVIP

	e, err := f.queue.Join(ctx, client(100), JoinInput{PartySize: 3, PreferredType: &vip})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if e.Status != model.WaitingActive || e.Priority != model.PriorityWalkIn || e.ClientID != 100 || !e.JoinedAt.Equal(at(1, 19, 0)) {
		t.Fatalf("unexpected entry %+v", e)
	}
	if f.notes.count(queue.EventWalkInJoined) != 1 {
		t.Fatalf("events = %v", f.notes.events)
	}

	_, err = f.queue.Join(ctx, client(100), JoinInput{PartySize: 2})
	wantKind(t, err, ErrConflict)
}

func TestJoinRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0))
	high := 50
	patio := model.TableType("patio")
	guest := uint64(300)

	_, err := f.queue.Join(ctx, client(100), JoinInput{PartySize: 2, Priority: &high})
	wantKind(t, err, ErrForbidden)

	_, err = f.queue.Join(ctx, client(100), JoinInput{PartySize: 0})
	wantKind(t, err, ErrValidation)

	_, err = f.queue.Join(ctx, client(100), JoinInput{PartySize: 2, PreferredType: &patio})
	wantKind(t, err, ErrValidation)

	_, err = f.queue.Join(ctx, host, JoinInput{PartySize: 2})
	wantKind(t, err, ErrValidation)

	e, err := f.queue.Join(ctx, host, JoinInput{ClientID: &guest, PartySize: 2, Priority: &high})
	if err != nil {
		t.Fatalf("staff Join: %v", err)
	}
	if e.ClientID != guest || e.Priority != high {
		t.Fatalf("staff entry %+v", e)
	}
}

func TestAssignTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0), table(1, 4, model.TableStandard))
	e := join(t, f, 100, 4)

	_, err := f.queue.AssignTable(ctx, client(100), e.ID, 1)
	wantKind(t, err, ErrForbidden)

	seated, err := f.queue.AssignTable(ctx, waiter, e.ID, 1)
	if err != nil {
		t.Fatalf("AssignTable: %v", err)
	}
	if seated.Status != model.WaitingSeated || seated.TableID == nil || *seated.TableID != 1 || seated.SeatedAt == nil {
		t.Fatalf("entry not seated: %+v", seated)
	}
	tbl, _ := f.tables.Get(ctx, 1)
	if !tbl.Occupied || tbl.ClaimantID == nil || *tbl.ClaimantID != 100 || tbl.Version != 1 {
		t.Fatalf("table not claimed: %+v", tbl)
	}
	if f.notes.count(queue.EventTableAssigned) != 1 {
		t.Fatalf("events = %v", f.notes.events)
	}

	_, err = f.queue.AssignTable(ctx, waiter, e.ID, 1)
	wantKind(t, err, ErrConflict)
}

func TestAssignTableFailures(t *testing.T) {
	ctx := context.Background()
	other := uint64(999)
	claimed := table(2, 4, model.TableStandard)
	claimed.ClaimantID = &other
	f := newFixture(t, at(1, 19, 0), table(1, 2, model.TableStandard), claimed)
	e := join(t, f, 100, 4)

	_, err := f.queue.AssignTable(ctx, host, e.ID, 1)
	wantKind(t, err, ErrCapacity)

	_, err = f.queue.AssignTable(ctx, host, e.ID, 2)
	wantKind(t, err, ErrConflict)

	_, err = f.queue.AssignTable(ctx, host, e.ID, 7)
	wantKind(t, err, ErrNotFound)

	_, err = f.queue.AssignTable(ctx, host, 77, 1)
	wantKind(t, err, ErrNotFound)

	// Nothing above touched the tables.
	for _, id := range []uint64{1, 2} {
		tbl, _ := f.tables.Get(ctx, id)
		if tbl.Occupied || tbl.Version != 0 {
			t.Fatalf("table %d mutated: %+v", id, tbl)
		}
	}
}

func TestAssignTableClaimedBySameClient(t *testing.T) {
	ctx := context.Background()
	held := table(1, 4, model.TableStandard)
	me := uint64(100)
	held.ClaimantID = &me
	f := newFixture(t, at(1, 19, 0), held)
	e := join(t, f, 100, 2)

	if _, err := f.queue.AssignTable(ctx, host, e.ID, 1); err != nil {
		t.Fatalf("self-claimed table should be assignable: %v", err)
	}
}

// Exactly one of many concurrent assignments to the same table wins.
func TestAssignTableRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0), table(1, 4, model.TableStandard))

	const n = 25
	entries := make([]*model.WaitingListEntry, n)
	for i := range entries {
		entries[i] = join(t, f, uint64(100+i), 2)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, n)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.queue.AssignTable(ctx, host, entries[i].ID, 1)
		}(i)
	}
	close(start)
	wg.Wait()

	var winner = -1
	for i, err := range errs {
		if err == nil {
			if winner != -1 {
				t.Fatalf("entries %d and %d both seated", winner, i)
			}
			winner = i
			continue
		}
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("entry %d: unexpected error %v", i, err)
		}
	}
	if winner == -1 {
		t.Fatal("no assignment succeeded")
	}
	tbl, _ := f.tables.Get(ctx, 1)
	if tbl.ClaimantID == nil || *tbl.ClaimantID != entries[winner].ClientID {
		t.Fatalf("claimant = %v, want %d", tbl.ClaimantID, entries[winner].ClientID)
	}
	waitingLeft, _ := f.waiting.ListWaiting(ctx)
	if len(waitingLeft) != n-1 {
		t.Fatalf("%d entries still waiting, want %d", len(waitingLeft), n-1)
	}
}

func TestAssignCompletesLinkedReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 20, 20), table(1, 4, model.TableStandard))
	res := f.resv.Put(approved(100, 1, "2025-03-01", "21:00", 2))

	rep, err := f.sweeper.Sweep(ctx)
	if err != nil || rep.Activated != 1 {
		t.Fatalf("Sweep = %+v, %v", rep, err)
	}
	entry, err := f.waiting.GetWaitingByClient(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.queue.AssignTable(ctx, host, entry.ID, 1); err != nil {
		t.Fatalf("AssignTable: %v", err)
	}
	got, _ := f.resv.Get(ctx, res.ID)
	if got.Status != model.ReservationCompleted {
		t.Fatalf("reservation status = %s, want completed", got.Status)
	}
}

func TestCloseEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0), table(1, 4, model.TableStandard))
	a := join(t, f, 100, 2)
	b := join(t, f, 101, 2)
	c := join(t, f, 102, 2)

	_, err := f.queue.Cancel(ctx, client(101), a.ID)
	wantKind(t, err, ErrForbidden)
	_, err = f.queue.MarkNoShow(ctx, client(100), a.ID)
	wantKind(t, err, ErrForbidden)
	_, err = f.queue.Cancel(ctx, client(100), 404)
	wantKind(t, err, ErrNotFound)

	got, err := f.queue.Cancel(ctx, client(100), a.ID)
	if err != nil || got.Status != model.WaitingCancelled || got.CancelledAt == nil {
		t.Fatalf("Cancel = %+v, %v", got, err)
	}
	if got, err = f.queue.MarkNoShow(ctx, waiter, b.ID); err != nil || got.Status != model.WaitingNoShow {
		t.Fatalf("MarkNoShow = %+v, %v", got, err)
	}
	if got, err = f.queue.Displace(ctx, host, c.ID); err != nil || got.Status != model.WaitingDisplaced {
		t.Fatalf("Displace = %+v, %v", got, err)
	}

	_, err = f.queue.Cancel(ctx, host, a.ID)
	wantKind(t, err, ErrConflict)

	tbl, _ := f.tables.Get(ctx, 1)
	if tbl.Version != 0 {
		t.Fatalf("closing entries touched the table: %+v", tbl)
	}
	// A cancelled client may join again.
	join(t, f, 100, 2)
}

func TestPositionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0))
	join(t, f, 100, 2)
	f.clock.Set(at(1, 19, 5))
	join(t, f, 101, 2)
	f.clock.Set(at(1, 19, 10))
	high := model.PriorityReservation
	guest := uint64(102)
	if _, err := f.queue.Join(ctx, host, JoinInput{ClientID: &guest, PartySize: 2, Priority: &high}); err != nil {
		t.Fatal(err)
	}

	for clientID, want := range map[uint64]int{102: 1, 100: 2, 101: 3} {
		pos, err := f.queue.Position(ctx, clientID)
		if err != nil {
			t.Fatalf("Position(%d): %v", clientID, err)
		}
		if pos.Position != want || pos.Ahead != want-1 {
			t.Errorf("client %d position = %d, want %d", clientID, pos.Position, want)
		}
	}
	_, err := f.queue.Position(ctx, 555)
	wantKind(t, err, ErrNotFound)

	list, err := f.queue.List(ctx, waiter)
	if err != nil || len(list) != 3 || list[0].ClientID != 102 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	_, err = f.queue.List(ctx, client(100))
	wantKind(t, err, ErrForbidden)
}

func TestPositionTiesBreakOnID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at(1, 19, 0))
	join(t, f, 100, 2)
	join(t, f, 101, 2)
	pos, err := f.queue.Position(ctx, 101)
	if err != nil || pos.Position != 2 {
		t.Fatalf("Position = %+v, %v", pos, err)
	}
}

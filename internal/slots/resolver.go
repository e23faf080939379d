package slots

import (
	"sort"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// Claim is an existing hold on a table at a point of a service day.
type Claim struct {
	TableID uint64
	Date    string
	At      Minute
}

// ClaimsFrom converts reservations into claims.  Only pending and approved
// reservations hold their slot; rows with unreadable times are skipped.
func ClaimsFrom(reservations []model.Reservation) []Claim {
	out := make([]Claim, 0, len(reservations))
	for _, r := range reservations {
		if !r.Status.Active() {
			continue
		}
		at, err := Parse(r.Time)
		if err != nil {
			continue
		}
		out = append(out, Claim{TableID: r.TableID, Date: r.ServiceDate, At: at})
	}
	return out
}

// Conflicts reports whether two claims collide.  Claims on the same table
// and service day collide when they are at most BlockWindow minutes apart,
// bounds included.  Claims on different service days never collide: a night
// claim and an early-morning claim sharing a calendar date belong to
// different operational days.
func Conflicts(a, b Claim) bool {
	if a.TableID != b.TableID || a.Date != b.Date {
		return false
	}
	d := a.At - b.At
	if d < 0 {
		d = -d
	}
	return d <= BlockWindow
}

// Free reports whether candidate collides with none of existing.
func Free(existing []Claim, candidate Claim) bool {
	for _, c := range existing {
		if Conflicts(c, candidate) {
			return false
		}
	}
	return true
}

// TableDay flags every canonical slot of one table as free or taken.  Only
// reservations are considered; physical occupancy is a same-day concern.
func TableDay(existing []Claim, table model.Table, date string) []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(Canonical()))
	for _, m := range Canonical() {
		slot := model.TimeSlot{Time: m.String()}
		if Free(existing, Claim{TableID: table.ID, Date: date, At: m}) {
			slot.Available = true
			id, num := table.ID, table.Number
			slot.TableID = &id
			slot.TableNumber = &num
		}
		out = append(out, slot)
	}
	return out
}

// FreeTables filters tables down to those whose slot at (date, at) is free.
// Order of the input is preserved.
func FreeTables(tables []model.Table, existing []Claim, date string, at Minute) []model.Table {
	var out []model.Table
	for _, t := range tables {
		if Free(existing, Claim{TableID: t.ID, Date: date, At: at}) {
			out = append(out, t)
		}
	}
	return out
}

// BestFit picks the free table that wastes the fewest seats for the party,
// breaking ties by table number.  It returns nil when nothing fits.
func BestFit(tables []model.Table, existing []Claim, date string, at Minute, partySize int) *model.Table {
	var fits []model.Table
	for _, t := range FreeTables(tables, existing, date, at) {
		if t.Capacity >= partySize {
			fits = append(fits, t)
		}
	}
	if len(fits) == 0 {
		return nil
	}
	sort.SliceStable(fits, func(i, j int) bool {
		if fits[i].Capacity != fits[j].Capacity {
			return fits[i].Capacity < fits[j].Capacity
		}
		return fits[i].Number < fits[j].Number
	})
	best := fits[0]
	return &best
}

// DayPlan builds the full-day slot table for a party: each canonical slot
// with the best-fit table that could serve it.
func DayPlan(tables []model.Table, existing []Claim, date string, partySize int) []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(Canonical()))
	for _, m := range Canonical() {
		slot := model.TimeSlot{Time: m.String()}
		if t := BestFit(tables, existing, date, m, partySize); t != nil {
			slot.Available = true
			id, num := t.ID, t.Number
			slot.TableID = &id
			slot.TableNumber = &num
		}
		out = append(out, slot)
	}
	return out
}

// probeRings are tried nearest first; the outer ring is only probed when the
// inner one produced nothing.
var probeRings = [][]Minute{{-45, 45}, {-90, 90}}

// Alternatives probes times around requested and returns, in chronological
// order, those for which available reports true.  Offsets are applied on the
// service-day axis, so 00:30 - 90 is 23:00 of the same service day, and
// probes outside operating hours are dropped.
func Alternatives(requested Minute, available func(Minute) bool) []Minute {
	for _, ring := range probeRings {
		var found []Minute
		for _, off := range ring {
			m := requested + off
			if !m.InService() {
				continue
			}
			if available(m) {
				found = append(found, m)
			}
		}
		if len(found) > 0 {
			sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
			return found
		}
	}
	return nil
}

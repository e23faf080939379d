package memstore

import (
	"fmt"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// DefaultFloor is the dining room used when the service runs without a
// database: eight standard tables, two vip and two accessible.
func DefaultFloor() []model.Table {
	var out []model.Table
	add := func(capacity int, typ model.TableType) {
		n := len(out) + 1
		out = append(out, model.Table{ID: uint64(n), Number: n, Capacity: capacity, Type: typ})
	}
	for _, c := range []int{2, 2, 2, 4, 4, 4, 6, 8} {
		add(c, model.TableStandard)
	}
	add(4, model.TableVIP)
	add(6, model.TableVIP)
	add(2, model.TableAccessible)
	add(4, model.TableAccessible)
	return out
}

// Describe renders a short summary for startup logs.
func Describe(tables []model.Table) string {
	counts := map[model.TableType]int{}
	for _, t := range tables {
		counts[t.Type]++
	}
	return fmt.Sprintf("%d tables (%d standard, %d vip, %d accessible)",
		len(tables), counts[model.TableStandard], counts[model.TableVIP], counts[model.TableAccessible])
}

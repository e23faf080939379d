package app

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/restaurant-table-allocation/internal/config"
	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

func TestNewMemoryStore(t *testing.T) {
	a, err := New(config.Config{StoreDriver: config.StoreMemory, Timezone: time.UTC, BcryptCost: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.DB != nil || a.Publisher != nil {
		t.Fatalf("memory driver without broker should open nothing: %+v", a)
	}
	tables, err := a.Tables.List(context.Background(), model.Actor{UserID: 1, Role: model.RoleOwner})
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 12 {
		t.Fatalf("floor has %d tables", len(tables))
	}
	if _, err := a.Sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep on empty store: %v", err)
	}
}

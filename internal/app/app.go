// Package app assembles the stores, notifier and services shared by the
// HTTP server and the one-shot sweeper.
package app

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/restaurant-table-allocation/internal/config"
	"github.com/iliyamo/restaurant-table-allocation/internal/database"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository"
	"github.com/iliyamo/restaurant-table-allocation/internal/repository/memstore"
	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

// App holds the wired services.  DB is nil for the memory driver.
type App struct {
	DB        *sqlx.DB
	Publisher *queue.Publisher

	Reservations *service.ReservationService
	Waiting      *service.WaitingListService
	Tables       *service.TableService
	Sweeper      *service.Sweeper
}

// New opens the configured store and builds the services.  Close releases
// what New opened.
func New(cfg config.Config) (*App, error) {
	a := &App{}
	lg := log.Default()

	var (
		tables       service.TableStore
		reservations service.ReservationStore
		waiting      service.WaitingStore
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		floor := memstore.DefaultFloor()
		tables, reservations, waiting = memstore.NewTables(floor...), memstore.NewReservations(), memstore.NewWaiting()
		log.Printf("app: using in-memory store with %s", memstore.Describe(floor))
	default:
		db, err := database.Open(database.Options{
			User:     cfg.DBUser,
			Password: cfg.DBPass,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Name:     cfg.DBName,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.DB = db
		tables, reservations, waiting = repository.NewTableRepo(db), repository.NewReservationRepo(db), repository.NewWaitingRepo(db)
	}

	var notifier service.Notifier
	if cfg.Notify.URL != "" {
		a.Publisher = queue.NewPublisher(cfg.Notify.URL, cfg.Notify.Exchange, lg)
		notifier = a.Publisher
	}

	clock := service.SystemClock{Loc: cfg.Timezone}
	a.Reservations = service.NewReservationService(tables, reservations, waiting, clock, notifier, lg)
	a.Waiting = service.NewWaitingListService(tables, reservations, waiting, clock, notifier, lg)
	a.Tables = service.NewTableService(tables, waiting, a.Waiting, lg)
	a.Tables.BcryptCost = cfg.BcryptCost
	a.Sweeper = service.NewSweeper(tables, reservations, waiting, clock, notifier, lg)
	return a, nil
}

// Close shuts the publisher and the database pool.
func (a *App) Close() {
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// Command sweeper runs a single activation and expiry sweep and exits.  It
// is meant for cron or a scheduled task when the server runs with
// SWEEP_INTERVAL=0.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/restaurant-table-allocation/internal/app"
	"github.com/iliyamo/restaurant-table-allocation/internal/config"
	"github.com/iliyamo/restaurant-table-allocation/internal/middleware"
	"github.com/iliyamo/restaurant-table-allocation/internal/utils"
)

func main() {
	timeout := flag.Duration("timeout", 0, "sweep timeout (defaults to SWEEP_TIMEOUT)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()
	if *timeout <= 0 {
		*timeout = cfg.SweepTimeout
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	bump := middleware.BumpGeneration(config.LoadCacheConfig(), rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, func(ctx context.Context) error {
			start := time.Now()
			rep, err := a.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			log.Printf("sweeper: %s in %s", rep, time.Since(start).Round(time.Millisecond))
			if rep.Changed() {
				bump(ctx)
			}
			return nil
		})
	}()

	select {
	case sig := <-sigChan:
		log.Printf("sweeper: received %v, aborting", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			a.Close()
			log.Fatalf("sweeper: %v", err)
		}
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/restaurant-table-allocation/internal/app"
	"github.com/iliyamo/restaurant-table-allocation/internal/config"
	"github.com/iliyamo/restaurant-table-allocation/internal/handler"
	"github.com/iliyamo/restaurant-table-allocation/internal/middleware"
	"github.com/iliyamo/restaurant-table-allocation/internal/queue"
	"github.com/iliyamo/restaurant-table-allocation/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notify.URL != "" {
		go func() {
			err := queue.StartLogConsumer(ctx, queue.ConsumerConfig{
				URL:      cfg.Notify.URL,
				Exchange: cfg.Notify.Exchange,
				Queue:    cfg.Notify.LogQueue,
				LogPath:  cfg.Notify.LogPath,
			}, log.Default())
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event-consumer: stopped: %v", err)
			}
		}()
	}
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	if cfg.SweepInterval > 0 {
		a.Sweeper.OnChange = middleware.BumpGeneration(cacheCfg, rdb)
		go a.Sweeper.Run(ctx, cfg.SweepInterval)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	health := handler.Health{}
	if a.DB != nil {
		health.Store = a.DB
	}
	router.Register(e, router.Handlers{
		Health:       health,
		Reservations: handler.NewReservationHandler(a.Reservations),
		Waiting:      handler.NewWaitingListHandler(a.Waiting),
		Tables:       handler.NewTableHandler(a.Tables),
		Admin:        &handler.AdminHandler{Sweeper: a.Sweeper},
	}, router.Options{
		JWTSecret:  cfg.JWTSecret,
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:      middleware.NewRedisCache(cacheCfg, rdb),
		Invalidate: middleware.InvalidateOnWrite(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s, tz=%s)", addr, cfg.Env, cfg.StoreDriver, cfg.Timezone)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

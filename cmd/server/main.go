package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/config"
	"github.com/mealsync/api/internal/lifecycle"
	"github.com/mealsync/api/internal/router"
	"github.com/mealsync/api/internal/session"
	"github.com/mealsync/api/internal/store"
	"github.com/mealsync/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open record store: %v", err)
	}
	defer closeBackend()

	c := clock.Real{}
	st := store.New(backend, c)
	sessions := session.NewManager(session.DirCaches(filepath.Join(cfg.DataDir, "sessions")))
	sim := lifecycle.NewSimulator(c, lifecycle.Config{
		OutForDeliveryDelay: cfg.OutForDeliveryDelay,
		DeliveredDelay:      cfg.DeliveredDelay,
	})

	hub := ws.NewHub()
	go hub.Run(ctx)
	go sim.Dispatcher().Run(ctx)

	r := router.New(cfg, router.Deps{
		Store:     st,
		Clock:     c,
		Sessions:  sessions,
		Simulator: sim,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on :%s (store: %s)", cfg.Port, cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openBackend returns the configured record-store backend and its cleanup.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		return store.NewFileBackend(cfg.DataDir), func() {}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		return store.NewPostgresBackend(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

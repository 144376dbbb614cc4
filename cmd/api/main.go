// gighop API server.
//
// Community job marketplace: jobs posted into communities, applications
// gated on skills, an accept/reject ledger, payment confirmation and
// mutual rating driving job completion, and per-user job history with a
// recomputed rating aggregate. Publishes change events to Redis for the
// gateway's live feed.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcng81/gighop/internal/config"
	"github.com/rcng81/gighop/internal/db"
	"github.com/rcng81/gighop/internal/events"
	"github.com/rcng81/gighop/internal/geo"
	"github.com/rcng81/gighop/internal/lifecycle"
	"github.com/rcng81/gighop/internal/notify"
	"github.com/rcng81/gighop/internal/rating"
	"github.com/rcng81/gighop/internal/store"
	httpapi "github.com/rcng81/gighop/internal/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "api")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	st := store.New(pool)
	bus := events.NewBus(rdb)
	emitter := notify.NewEmitter(st, bus, log)
	aggregator := rating.NewAggregator(st, log)
	engine := lifecycle.NewEngine(st, emitter, aggregator, bus, log)

	handler := httpapi.NewHandler(engine, st, geo.NewClient(cfg.GeocoderURL), bus, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.Router(handler, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("stopped")
}

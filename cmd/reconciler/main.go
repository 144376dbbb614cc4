// gighop reconciler.
//
// Periodic sweep that recomputes every user's rating aggregate from job
// history and prunes read notifications past the retention window.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/rcng81/gighop/internal/config"
	"github.com/rcng81/gighop/internal/db"
	"github.com/rcng81/gighop/internal/rating"
	"github.com/rcng81/gighop/internal/reconcile"
	"github.com/rcng81/gighop/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "reconciler")

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

	st := store.New(pool)
	sweeper := reconcile.NewSweeper(st, rating.NewAggregator(st, log), cfg.NotificationRetention, log)

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSpec, func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error("sweep", "error", err)
		}
	}); err != nil {
		log.Error("cron", "error", err)
		os.Exit(1)
	}

	c.Start()
	log.Info("scheduler started", "spec", cfg.ReconcileSpec)

	// One sweep at startup so a fresh deploy converges immediately.
	go func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error("sweep", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	<-c.Stop().Done()
	log.Info("stopped")
}

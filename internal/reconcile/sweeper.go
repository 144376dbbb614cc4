// Package reconcile holds the periodic sweep that keeps derived data
// consistent: user rating aggregates and the notification table.
package reconcile

import (
	"context"
	"log/slog"
	"time"
)

type HistoryLister interface {
	UsersWithHistory(ctx context.Context) ([]string, error)
	PruneReadNotifications(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Recomputer interface {
	RecomputeRating(ctx context.Context, userID string) error
}

type Sweeper struct {
	store     HistoryLister
	ratings   Recomputer
	retention time.Duration
	log       *slog.Logger
}

func NewSweeper(store HistoryLister, ratings Recomputer, retention time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{store: store, ratings: ratings, retention: retention, log: log}
}

// Run recomputes every user's rating aggregate from job history and
// prunes read notifications past the retention window. Per-user
// failures are logged and do not stop the sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	users, err := s.store.UsersWithHistory(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, id := range users {
		if err := s.ratings.RecomputeRating(ctx, id); err != nil {
			failed++
			s.log.Warn("recompute rating failed", "user_id", id, "error", err)
		}
	}

	pruned, err := s.store.PruneReadNotifications(ctx, s.retention)
	if err != nil {
		s.log.Warn("prune notifications failed", "error", err)
	}

	s.log.Info("reconcile sweep finished",
		"users", len(users), "failed", failed, "notifications_pruned", pruned)
	return nil
}

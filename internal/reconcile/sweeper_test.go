package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeStore struct {
	users  []string
	pruned int64
}

func (f *fakeStore) UsersWithHistory(ctx context.Context) ([]string, error) {
	return f.users, nil
}

func (f *fakeStore) PruneReadNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.pruned = 3
	return 3, nil
}

type fakeRecomputer struct {
	seen    []string
	failFor string
}

func (f *fakeRecomputer) RecomputeRating(ctx context.Context, userID string) error {
	f.seen = append(f.seen, userID)
	if userID == f.failFor {
		return errors.New("boom")
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSweepsAllUsers(t *testing.T) {
	st := &fakeStore{users: []string{"u1", "u2", "u3"}}
	rc := &fakeRecomputer{}

	s := NewSweeper(st, rc, time.Hour, discard())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rc.seen) != 3 {
		t.Errorf("recomputed %d users, want 3", len(rc.seen))
	}
	if st.pruned != 3 {
		t.Errorf("pruned = %d, want 3", st.pruned)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	st := &fakeStore{users: []string{"u1", "u2", "u3"}}
	rc := &fakeRecomputer{failFor: "u2"}

	s := NewSweeper(st, rc, time.Hour, discard())
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rc.seen) != 3 {
		t.Errorf("recomputed %d users, want all 3 despite failure", len(rc.seen))
	}
}

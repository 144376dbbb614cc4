// Package rating turns closed jobs into permanent job-history entries and
// keeps each user's rating aggregate in sync with that history.
package rating

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// Role tags a history entry with the side the user played on the job.
type Role string

const (
	RoleEmployer Role = "employer"
	RoleEmployee Role = "employee"
)

// HistoryEntry is one user's permanent record of a completed job. Written
// exactly once per (user, job); immutable thereafter. Rating is the rating
// the user received on the job, not the one they gave — nil when the
// counterparty never rated.
type HistoryEntry struct {
	UserID    string    `json:"userId"`
	JobID     uuid.UUID `json:"jobId"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Rating    *int      `json:"rating"`
	Role      Role      `json:"role"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore is the persistence surface the aggregator needs.
type HistoryStore interface {
	// InsertEntry persists an entry unless one already exists for the same
	// (user, job) pair.
	InsertEntry(ctx context.Context, e HistoryEntry) error
	EntriesFor(ctx context.Context, userID string) ([]HistoryEntry, error)
	SetAggregate(ctx context.Context, userID string, average float64, count int) error
}

// Aggregator implements lifecycle.Finalizer.
type Aggregator struct {
	store HistoryStore
	log   *slog.Logger
}

// NewAggregator returns a configured Aggregator.
func NewAggregator(store HistoryStore, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{store: store, log: log}
}

// FinalizeJob writes one history entry for the employer and one per
// accepted worker, then recomputes each party's aggregate. The employer
// receives the rating given by the first accepted worker; each worker
// receives the rating given by the employer. Inserts are
// insert-if-absent, so re-running finalization for the same job never
// duplicates history.
func (a *Aggregator) FinalizeJob(ctx context.Context, job *lifecycle.Job) error {
	now := time.Now().UTC()

	var employerReceived *int
	if len(job.AcceptedApplicantIDs) > 0 {
		if v, ok := job.Ratings[job.AcceptedApplicantIDs[0]]; ok {
			employerReceived = &v
		}
	}
	if err := a.store.InsertEntry(ctx, HistoryEntry{
		UserID:    job.EmployerID,
		JobID:     job.ID,
		Title:     job.Title,
		Price:     job.Price,
		Rating:    employerReceived,
		Role:      RoleEmployer,
		Completed: true,
		Timestamp: now,
	}); err != nil {
		return err
	}

	var workerReceived *int
	if v, ok := job.Ratings[job.EmployerID]; ok {
		workerReceived = &v
	}
	for _, workerID := range job.AcceptedApplicantIDs {
		if err := a.store.InsertEntry(ctx, HistoryEntry{
			UserID:    workerID,
			JobID:     job.ID,
			Title:     job.Title,
			Price:     job.Price,
			Rating:    workerReceived,
			Role:      RoleEmployee,
			Completed: true,
			Timestamp: now,
		}); err != nil {
			return err
		}
	}

	for _, userID := range append([]string{job.EmployerID}, job.AcceptedApplicantIDs...) {
		if err := a.RecomputeRating(ctx, userID); err != nil {
			a.log.Warn("recompute rating failed", "userId", userID, "err", err)
		}
	}
	return nil
}

// RecomputeRating reads the user's full history and rewrites the stored
// aggregate. It is a pure function of history: re-running it with
// identical entries yields an identical aggregate.
func (a *Aggregator) RecomputeRating(ctx context.Context, userID string) error {
	entries, err := a.store.EntriesFor(ctx, userID)
	if err != nil {
		return err
	}
	avg, count := Summarize(entries)
	return a.store.SetAggregate(ctx, userID, avg, count)
}

// Summarize computes the mean and count of the non-nil ratings in entries.
// Zero entries yield (0, 0).
func Summarize(entries []HistoryEntry) (average float64, count int) {
	sum := 0
	for _, e := range entries {
		if e.Rating != nil {
			sum += *e.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

// Package notify records application-status notifications for users.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// KindApplicationStatus is the notification kind for applicant-status
// changes.
const KindApplicationStatus = "application_status"

// EventNotificationChanged is the live-feed channel for notification
// upserts.
const EventNotificationChanged = "gighop.notification.changed"

// Notification is a per-user, per-job message. At most one unread
// notification of a given kind exists per (user, job): a newer status
// event overwrites the existing unread one instead of piling up.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	JobID     uuid.UUID `json:"jobId"`
	Kind      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists notifications.
type Store interface {
	// UpsertUnread inserts n, or overwrites the existing unread
	// notification for the same (user, job) pair.
	UpsertUnread(ctx context.Context, n *Notification) error
}

// Emitter implements lifecycle.Notifier.
type Emitter struct {
	store Store
	bus   lifecycle.Publisher
	log   *slog.Logger
}

// NewEmitter returns a configured Emitter. bus may be nil.
func NewEmitter(store Store, bus lifecycle.Publisher, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{store: store, bus: bus, log: log}
}

// StatusChanged upserts the unread notification for (userID, job) with a
// message carrying the new status. The live-feed publish is best-effort.
func (e *Emitter) StatusChanged(ctx context.Context, userID string, job *lifecycle.Job, status lifecycle.ApplicantStatus) error {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		JobID:     job.ID,
		Kind:      KindApplicationStatus,
		Message:   StatusMessage(job.Title, status),
		Timestamp: time.Now().UTC(),
	}
	if err := e.store.UpsertUnread(ctx, n); err != nil {
		return err
	}
	if e.bus != nil {
		if err := e.bus.Publish(ctx, EventNotificationChanged, map[string]string{
			"userId": userID, "jobId": job.ID.String(),
		}); err != nil {
			e.log.Warn("publish notification event failed", "userId", userID, "err", err)
		}
	}
	return nil
}

// StatusMessage is the human-readable text shown for a status change.
func StatusMessage(jobTitle string, status lifecycle.ApplicantStatus) string {
	return fmt.Sprintf("Your application to %s was %s.", jobTitle, status)
}

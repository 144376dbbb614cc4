package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
	"github.com/rcng81/gighop/internal/notify"
)

// UpsertUnread inserts n, or overwrites the existing unread notification
// for the same (user, job) pair. The conflict target is the partial unique
// index over unread rows, so read notifications are never resurrected.
func (s *Store) UpsertUnread(ctx context.Context, n *notify.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, job_id, kind, message, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		 ON CONFLICT (user_id, job_id) WHERE NOT read
		 DO UPDATE SET kind = excluded.kind, message = excluded.message, created_at = excluded.created_at`,
		n.ID, n.UserID, n.JobID, n.Kind, n.Message, n.Timestamp,
	)
	return errors.Wrap(err, "upsert notification")
}

// Notifications returns the user's notifications, newest first.
func (s *Store) Notifications(ctx context.Context, userID string) ([]notify.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, job_id, kind, message, read, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query notifications")
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var n notify.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.JobID, &n.Kind, &n.Message, &n.Read, &n.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// PruneReadNotifications deletes read notifications older than the cutoff
// and reports how many were removed.
func (s *Store) PruneReadNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read AND created_at < NOW() - make_interval(secs => $1)`,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "prune notifications")
	}
	return tag.RowsAffected(), nil
}

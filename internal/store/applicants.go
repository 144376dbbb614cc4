package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// Applicant returns one application record by (job, user).
func (s *Store) Applicant(ctx context.Context, jobID uuid.UUID, userID string) (*lifecycle.Applicant, error) {
	var a lifecycle.Applicant
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT job_id, user_id, name, skills, status, applied_at
		 FROM applicants WHERE job_id = $1 AND user_id = $2`,
		jobID, userID,
	).Scan(&a.JobID, &a.UserID, &a.Name, &a.Skills, &status, &a.AppliedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan applicant")
	}
	a.Status = lifecycle.ApplicantStatus(status)
	return &a, nil
}

// CreateApplicant inserts a new application record.
func (s *Store) CreateApplicant(ctx context.Context, a *lifecycle.Applicant) error {
	if a.Skills == nil {
		a.Skills = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO applicants (job_id, user_id, name, skills, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING applied_at`,
		a.JobID, a.UserID, a.Name, a.Skills, string(a.Status),
	).Scan(&a.AppliedAt)
	return errors.Wrap(err, "insert applicant")
}

// setApplicantStatusTx is the raw status mutation, always run inside the
// owning transition's transaction. Transition legality is the lifecycle
// engine's concern, not enforced here.
func setApplicantStatusTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, userID string, st lifecycle.ApplicantStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE applicants SET status = $3 WHERE job_id = $1 AND user_id = $2`,
		jobID, userID, string(st),
	)
	if err != nil {
		return errors.Wrap(err, "set applicant status")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// Applicants returns a job's application records in apply order.
func (s *Store) Applicants(ctx context.Context, jobID uuid.UUID) ([]lifecycle.Applicant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, user_id, name, skills, status, applied_at
		 FROM applicants WHERE job_id = $1 ORDER BY applied_at ASC`,
		jobID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query applicants")
	}
	defer rows.Close()

	out := make([]lifecycle.Applicant, 0)
	for rows.Next() {
		var a lifecycle.Applicant
		var status string
		if err := rows.Scan(&a.JobID, &a.UserID, &a.Name, &a.Skills, &status, &a.AppliedAt); err != nil {
			return nil, errors.Wrap(err, "scan applicant")
		}
		a.Status = lifecycle.ApplicantStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Application is a user-facing row in their "applied jobs" view.
type Application struct {
	JobID       uuid.UUID                 `json:"jobId"`
	CommunityID uuid.UUID                 `json:"communityId"`
	Title       string                    `json:"title"`
	Status      lifecycle.ApplicantStatus `json:"status"`
	AppliedAt   time.Time                 `json:"appliedAt"`
}

// ApplicationsBy lists every job the user has applied to, newest first.
func (s *Store) ApplicationsBy(ctx context.Context, userID string) ([]Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.job_id, j.community_id, j.title, a.status, a.applied_at
		 FROM applicants a
		 JOIN jobs j ON j.id = a.job_id
		 WHERE a.user_id = $1
		 ORDER BY a.applied_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query applications")
	}
	defer rows.Close()

	out := make([]Application, 0)
	for rows.Next() {
		var ap Application
		var status string
		if err := rows.Scan(&ap.JobID, &ap.CommunityID, &ap.Title, &status, &ap.AppliedAt); err != nil {
			return nil, errors.Wrap(err, "scan application")
		}
		ap.Status = lifecycle.ApplicantStatus(status)
		out = append(out, ap)
	}
	return out, rows.Err()
}

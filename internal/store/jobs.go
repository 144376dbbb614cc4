package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
)

const jobColumns = `id, community_id, employer_id, title, description, price, tags,
	status, accepted_applicant_ids, ratings, poster_confirmed, worker_confirmed,
	created_at, updated_at`

func scanJob(row pgx.Row) (*lifecycle.Job, error) {
	var j lifecycle.Job
	var status string
	err := row.Scan(
		&j.ID, &j.CommunityID, &j.EmployerID, &j.Title, &j.Description, &j.Price, &j.Tags,
		&status, &j.AcceptedApplicantIDs, &j.Ratings, &j.Payment.PosterConfirmed, &j.Payment.WorkerConfirmed,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan job")
	}
	j.Status = lifecycle.JobStatus(status)
	if j.Ratings == nil {
		j.Ratings = map[string]int{}
	}
	return &j, nil
}

// Job returns the job aggregate by id.
func (s *Store) Job(ctx context.Context, jobID uuid.UUID) (*lifecycle.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// CreateJob inserts a new open job and fills in the generated timestamps.
func (s *Store) CreateJob(ctx context.Context, j *lifecycle.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.Status = lifecycle.JobOpen
	if j.Tags == nil {
		j.Tags = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, community_id, employer_id, title, description, price, tags, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'open')
		 RETURNING created_at, updated_at`,
		j.ID, j.CommunityID, j.EmployerID, j.Title, j.Description, j.Price, j.Tags,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	return errors.Wrap(err, "insert job")
}

// UpdateJobParams carries the employer-editable fields; nil means "leave
// unchanged".
type UpdateJobParams struct {
	Title       *string
	Description *string
	Price       *float64
	Tags        []string
}

// UpdateJob applies a partial edit to the job's posting fields. Status and
// sub-state are never touched here — those belong to the lifecycle engine.
func (s *Store) UpdateJob(ctx context.Context, jobID uuid.UUID, p UpdateJobParams) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET
		   title       = COALESCE($2, title),
		   description = COALESCE($3, description),
		   price       = COALESCE($4, price),
		   tags        = COALESCE($5, tags),
		   updated_at  = NOW()
		 WHERE id = $1`,
		jobID, p.Title, p.Description, p.Price, p.Tags,
	)
	if err != nil {
		return errors.Wrap(err, "update job")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// DeleteJob removes the job; the applicant sub-ledger cascades via FK.
func (s *Store) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return errors.Wrap(err, "delete job")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// JobsByCommunity returns a community's jobs, newest first.
func (s *Store) JobsByCommunity(ctx context.Context, communityID uuid.UUID) ([]lifecycle.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE community_id = $1 ORDER BY created_at DESC`,
		communityID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query jobs")
	}
	defer rows.Close()

	jobs := make([]lifecycle.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// AcceptApplicant marks the applicant accepted and appends it to the
// accepted list unless already present, atomically.
func (s *Store) AcceptApplicant(ctx context.Context, jobID uuid.UUID, userID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := setApplicantStatusTx(ctx, tx, jobID, userID, lifecycle.ApplicantAccepted); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE jobs
			 SET accepted_applicant_ids = array_append(accepted_applicant_ids, $2),
			     updated_at = NOW()
			 WHERE id = $1 AND NOT ($2 = ANY(accepted_applicant_ids))`,
			jobID, userID,
		)
		return errors.Wrap(err, "append accepted id")
	})
}

// RejectApplicant marks the applicant rejected and removes it from the
// accepted list if present, atomically.
func (s *Store) RejectApplicant(ctx context.Context, jobID uuid.UUID, userID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := setApplicantStatusTx(ctx, tx, jobID, userID, lifecycle.ApplicantRejected); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE jobs
			 SET accepted_applicant_ids = array_remove(accepted_applicant_ids, $2),
			     updated_at = NOW()
			 WHERE id = $1`,
			jobID, userID,
		)
		return errors.Wrap(err, "remove accepted id")
	})
}

// CloseJob marks the job closed; with cascade every applicant record is
// closed in the same transaction.
func (s *Store) CloseJob(ctx context.Context, jobID uuid.UUID, cascade bool) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE jobs SET status = 'closed', updated_at = NOW() WHERE id = $1`, jobID)
		if err != nil {
			return errors.Wrap(err, "close job")
		}
		if tag.RowsAffected() == 0 {
			return lifecycle.ErrNotFound
		}
		if !cascade {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE applicants SET status = 'closed' WHERE job_id = $1`, jobID)
		return errors.Wrap(err, "cascade close applicants")
	})
}

// ReopenJob marks the job open and reverts cascade-closed applicants to
// pending in the same transaction.
func (s *Store) ReopenJob(ctx context.Context, jobID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE jobs SET status = 'open', updated_at = NOW() WHERE id = $1`, jobID)
		if err != nil {
			return errors.Wrap(err, "reopen job")
		}
		if tag.RowsAffected() == 0 {
			return lifecycle.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE applicants SET status = 'pending' WHERE job_id = $1 AND status = 'closed'`, jobID)
		return errors.Wrap(err, "cascade reopen applicants")
	})
}

// ConfirmPayment sets the poster or worker confirmation flag. Flags only
// ever go from false to true.
func (s *Store) ConfirmPayment(ctx context.Context, jobID uuid.UUID, poster bool) error {
	column := "worker_confirmed"
	if poster {
		column = "poster_confirmed"
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET `+column+` = TRUE, updated_at = NOW() WHERE id = $1`, jobID)
	if err != nil {
		return errors.Wrap(err, "confirm payment")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// SetRating records raterID's rating in the job's ratings map.
func (s *Store) SetRating(ctx context.Context, jobID uuid.UUID, raterID string, value int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET ratings = ratings || jsonb_build_object($2::text, $3::int),
		     updated_at = NOW()
		 WHERE id = $1`,
		jobID, raterID, value,
	)
	if err != nil {
		return errors.Wrap(err, "set rating")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

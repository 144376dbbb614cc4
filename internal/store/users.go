package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
	"github.com/rcng81/gighop/internal/rating"
)

// User is the profile read model. Identity and names originate from the
// external auth service; the rating aggregate is owned by the rating
// package and recomputed from job history.
type User struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Skills        []string `json:"skills"`
	AverageRating float64  `json:"averageRating"`
	RatingCount   int      `json:"ratingCount"`
}

// DisplayName joins the first and last name.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// User returns a profile by id.
func (s *Store) User(ctx context.Context, userID string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, skills, average_rating, rating_count
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Skills, &u.AverageRating, &u.RatingCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

// EnsureUser upserts the identity fields supplied by the auth service,
// leaving skills and the rating aggregate alone on conflict.
func (s *Store) EnsureUser(ctx context.Context, userID, firstName, lastName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   first_name = CASE WHEN excluded.first_name <> '' THEN excluded.first_name ELSE users.first_name END,
		   last_name  = CASE WHEN excluded.last_name  <> '' THEN excluded.last_name  ELSE users.last_name  END`,
		userID, firstName, lastName,
	)
	return errors.Wrap(err, "ensure user")
}

// UpdateSkills replaces the user's advertised skill set.
func (s *Store) UpdateSkills(ctx context.Context, userID string, skills []string) error {
	if skills == nil {
		skills = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET skills = $2 WHERE id = $1`,
		userID, skills,
	)
	if err != nil {
		return errors.Wrap(err, "update skills")
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

// ─── rating.HistoryStore ────────────────────────────────────────────────────

// InsertEntry writes a job-history entry unless one already exists for the
// (user, job) pair.
func (s *Store) InsertEntry(ctx context.Context, e rating.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_history (user_id, job_id, title, price, rating, role, completed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, job_id) DO NOTHING`,
		e.UserID, e.JobID, e.Title, e.Price, e.Rating, string(e.Role), e.Completed, e.Timestamp,
	)
	return errors.Wrap(err, "insert history entry")
}

// EntriesFor returns the user's job history, newest first.
func (s *Store) EntriesFor(ctx context.Context, userID string) ([]rating.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, job_id, title, price, rating, role, completed, created_at
		 FROM job_history WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	out := make([]rating.HistoryEntry, 0)
	for rows.Next() {
		var e rating.HistoryEntry
		var role string
		if err := rows.Scan(&e.UserID, &e.JobID, &e.Title, &e.Price, &e.Rating, &role, &e.Completed, &e.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan history entry")
		}
		e.Role = rating.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetAggregate rewrites the user's stored rating aggregate.
func (s *Store) SetAggregate(ctx context.Context, userID string, average float64, count int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, average_rating, rating_count)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET average_rating = $2, rating_count = $3`,
		userID, average, count,
	)
	return errors.Wrap(err, "set aggregate")
}

// UsersWithHistory lists every user id holding at least one history entry.
// Used by the reconciler sweep.
func (s *Store) UsersWithHistory(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT user_id FROM job_history`)
	if err != nil {
		return nil, errors.Wrap(err, "query history users")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan user id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

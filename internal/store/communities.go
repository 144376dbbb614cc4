package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// Community is a group of users that jobs are posted into.
type Community struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateCommunity inserts a community and enrolls the owner as its first
// member, atomically.
func (s *Store) CreateCommunity(ctx context.Context, c *Community) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO communities (id, name, description, owner_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			c.ID, c.Name, c.Description, c.OwnerID,
		).Scan(&c.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert community")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO community_members (community_id, user_id) VALUES ($1, $2)`,
			c.ID, c.OwnerID,
		)
		if err != nil {
			return errors.Wrap(err, "enroll owner")
		}
		c.MemberCount = 1
		return nil
	})
}

// Community returns one community by id.
func (s *Store) Community(ctx context.Context, id uuid.UUID) (*Community, error) {
	var c Community
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.name, c.description, c.owner_id, c.created_at,
		        (SELECT COUNT(*) FROM community_members m WHERE m.community_id = c.id)
		 FROM communities c WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan community")
	}
	return &c, nil
}

// Communities lists every community, newest first.
func (s *Store) Communities(ctx context.Context) ([]Community, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.name, c.description, c.owner_id, c.created_at,
		        (SELECT COUNT(*) FROM community_members m WHERE m.community_id = c.id)
		 FROM communities c ORDER BY c.created_at DESC`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query communities")
	}
	defer rows.Close()

	out := make([]Community, 0)
	for rows.Next() {
		var c Community
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.MemberCount); err != nil {
			return nil, errors.Wrap(err, "scan community")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// JoinCommunity enrolls userID; joining twice is a no-op.
func (s *Store) JoinCommunity(ctx context.Context, id uuid.UUID, userID string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM communities WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return errors.Wrap(err, "check community")
	}
	if !exists {
		return lifecycle.ErrNotFound
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO community_members (community_id, user_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		id, userID,
	)
	return errors.Wrap(err, "join community")
}

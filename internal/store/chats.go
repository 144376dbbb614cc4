package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rcng81/gighop/internal/lifecycle"
)

// Chat is a two-party conversation started around a job. Deletion is
// per-user: a participant hides the chat by joining deleted_for, and the
// row (with its messages) is removed only once every participant has.
type Chat struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	ParticipantIDs   []string          `json:"participants"`
	ParticipantNames map[string]string `json:"participantNames"`
	DeletedFor       []string          `json:"-"`
	LastMessage      string            `json:"lastMessage"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// ChatMessage is one message within a chat.
type ChatMessage struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chatId"`
	SenderID string    `json:"senderId"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}

// StartChatParams identifies the two parties and the job the conversation
// is about. Names come from the auth-backed profiles.
type StartChatParams struct {
	UserID    string
	UserName  string
	OtherID   string
	OtherName string
	JobTitle  string
}

const chatColumns = `id, title, participant_ids, participant_names, deleted_for, last_message, created_at`

func scanChat(row pgx.Row) (*Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.Title, &c.ParticipantIDs, &c.ParticipantNames,
		&c.DeletedFor, &c.LastMessage, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan chat")
	}
	return &c, nil
}

// StartChat finds the existing conversation between the two users, undoing
// the caller's soft delete if present, or creates a new one titled after
// the job.
func (s *Store) StartChat(ctx context.Context, p StartChatParams) (*Chat, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE chats
		 SET deleted_for = array_remove(deleted_for, $1)
		 WHERE participant_ids @> ARRAY[$1, $2]::text[] AND cardinality(participant_ids) = 2
		 RETURNING `+chatColumns,
		p.UserID, p.OtherID,
	)
	c, err := scanChat(row)
	if err == nil {
		return c, nil
	}
	if lifecycle.KindOf(err) != lifecycle.KindNotFound {
		return nil, err
	}

	c = &Chat{
		ID:             uuid.New(),
		Title:          fmt.Sprintf("%s (%s & %s)", p.JobTitle, p.UserName, p.OtherName),
		ParticipantIDs: []string{p.UserID, p.OtherID},
		ParticipantNames: map[string]string{
			p.UserID:  p.UserName,
			p.OtherID: p.OtherName,
		},
		DeletedFor: []string{},
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO chats (id, title, participant_ids, participant_names)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		c.ID, c.Title, c.ParticipantIDs, c.ParticipantNames,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert chat")
	}
	return c, nil
}

// ChatsFor lists the user's conversations, hiding soft-deleted ones.
func (s *Store) ChatsFor(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chatColumns+`
		 FROM chats
		 WHERE $1 = ANY(participant_ids) AND NOT ($1 = ANY(deleted_for))
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query chats")
	}
	defer rows.Close()

	out := make([]Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// DeleteChat soft-deletes the chat for userID. Once every participant has
// deleted it, the row and its messages are removed for good.
func (s *Store) DeleteChat(ctx context.Context, chatID uuid.UUID, userID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE chats
			 SET deleted_for = array_append(deleted_for, $2)
			 WHERE id = $1 AND $2 = ANY(participant_ids) AND NOT ($2 = ANY(deleted_for))
			 RETURNING `+chatColumns,
			chatID, userID,
		)
		c, err := scanChat(row)
		if err != nil {
			return err
		}
		if !c.allParticipantsDeleted() {
			return nil
		}
		// messages cascade via FK
		_, err = tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
		return errors.Wrap(err, "hard delete chat")
	})
}

func (c *Chat) allParticipantsDeleted() bool {
	deleted := make(map[string]struct{}, len(c.DeletedFor))
	for _, id := range c.DeletedFor {
		deleted[id] = struct{}{}
	}
	for _, id := range c.ParticipantIDs {
		if _, ok := deleted[id]; !ok {
			return false
		}
	}
	return true
}

// Messages returns a chat's messages ascending by timestamp. The caller
// must be a participant.
func (s *Store) Messages(ctx context.Context, chatID uuid.UUID, userID string) ([]ChatMessage, error) {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, sender_id, body, sent_at
		 FROM chat_messages WHERE chat_id = $1 ORDER BY sent_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	out := make([]ChatMessage, 0)
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendMessage stores a message and refreshes the chat's last-message
// preview, atomically.
func (s *Store) AppendMessage(ctx context.Context, chatID uuid.UUID, senderID, body string) (*ChatMessage, error) {
	if err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}
	m := &ChatMessage{ID: uuid.New(), ChatID: chatID, SenderID: senderID, Body: body}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO chat_messages (id, chat_id, sender_id, body)
			 VALUES ($1, $2, $3, $4)
			 RETURNING sent_at`,
			m.ID, m.ChatID, m.SenderID, m.Body,
		).Scan(&m.SentAt)
		if err != nil {
			return errors.Wrap(err, "insert message")
		}
		_, err = tx.Exec(ctx,
			`UPDATE chats SET last_message = $2, updated_at = NOW() WHERE id = $1`, chatID, body)
		return errors.Wrap(err, "update last message")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) requireParticipant(ctx context.Context, chatID uuid.UUID, userID string) error {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1 AND $2 = ANY(participant_ids))`,
		chatID, userID,
	).Scan(&ok)
	if err != nil {
		return errors.Wrap(err, "check participant")
	}
	if !ok {
		return lifecycle.ErrNotFound
	}
	return nil
}

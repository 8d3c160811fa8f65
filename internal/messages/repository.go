package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courier-app/courier/internal/platform/httpx"
)

// RepositoryPort defines persistence operations for the message store.
type RepositoryPort interface {
	Insert(ctx context.Context, msg Message) error
	Get(ctx context.Context, id uuid.UUID) (*Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (time.Time, error)
	ListFrom(ctx context.Context, username string) ([]Message, error)
	ListTo(ctx context.Context, username string) ([]Message, error)
	UnreadCounts(ctx context.Context) ([]UnreadCount, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new message.
func (r *Repository) Insert(ctx context.Context, msg Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, from_username, to_username, body, sent_at, read_at)
		VALUES ($1, $2, $3, $4, $5, NULL)`,
		msg.ID, msg.FromUsername, msg.ToUsername, msg.Body, msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("messages: insert: %w", err)
	}
	return nil
}

// Get fetches a message by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages WHERE id = $1`, id)

	var msg Message
	if err := row.Scan(&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &msg.ReadAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: message %s", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("messages: get %s: %w", id, err)
	}
	return &msg, nil
}

// MarkRead performs the unread-to-read transition as a single conditional
// update. The WHERE clause is the race serializer: of any number of
// concurrent callers exactly one observes the transition, the rest see the
// already-read conflict. An existing read timestamp is never overwritten.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (time.Time, error) {
	var readAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE messages SET read_at = $2
		WHERE id = $1 AND read_at IS NULL
		RETURNING read_at`, id, at).Scan(&readAt)
	if err == nil {
		return readAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("messages: mark read %s: %w", id, err)
	}

	// No row transitioned: either the message is gone or already read.
	var existing *time.Time
	if err := r.pool.QueryRow(ctx, `SELECT read_at FROM messages WHERE id = $1`, id).Scan(&existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%w: message %s", httpx.ErrNotFound, id)
		}
		return time.Time{}, fmt.Errorf("messages: mark read recheck %s: %w", id, err)
	}
	return time.Time{}, fmt.Errorf("%w: message %s already read", httpx.ErrDuplicate, id)
}

// ListFrom returns all messages sent by username, oldest first.
func (r *Repository) ListFrom(ctx context.Context, username string) ([]Message, error) {
	return r.list(ctx, `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages WHERE from_username = $1 ORDER BY sent_at ASC`, username)
}

// ListTo returns all messages received by username, oldest first.
func (r *Repository) ListTo(ctx context.Context, username string) ([]Message, error) {
	return r.list(ctx, `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages WHERE to_username = $1 ORDER BY sent_at ASC`, username)
}

func (r *Repository) list(ctx context.Context, query, username string) ([]Message, error) {
	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("messages: list for %q: %w", username, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &msg.ReadAt); err != nil {
			return nil, fmt.Errorf("messages: list scan: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messages: list rows: %w", err)
	}
	return msgs, nil
}

// UnreadCounts aggregates the unread backlog per recipient, largest first.
func (r *Repository) UnreadCounts(ctx context.Context) ([]UnreadCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_username, COUNT(*) FROM messages
		WHERE read_at IS NULL
		GROUP BY to_username ORDER BY COUNT(*) DESC, to_username ASC`)
	if err != nil {
		return nil, fmt.Errorf("messages: unread counts: %w", err)
	}
	defer rows.Close()

	var counts []UnreadCount
	for rows.Next() {
		var c UnreadCount
		if err := rows.Scan(&c.Username, &c.Count); err != nil {
			return nil, fmt.Errorf("messages: unread counts scan: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messages: unread counts rows: %w", err)
	}
	return counts, nil
}

var _ RepositoryPort = (*Repository)(nil)

package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courier-app/courier/internal/platform/httpx"
)

// RepositoryPort defines persistence operations for the user directory.
type RepositoryPort interface {
	Insert(ctx context.Context, user User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]Summary, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new user. A username collision surfaces as ErrDuplicate;
// uniqueness is enforced by the primary key, not an application-level check.
func (r *Repository) Insert(ctx context.Context, user User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, phone, joined_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.Username, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.JoinedAt, user.LastLoginAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: username %q", httpx.ErrDuplicate, user.Username)
		}
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

// GetByUsername fetches the full record, hash included. Callers outside this
// package never see the returned struct directly.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT username, password_hash, first_name, last_name, phone, joined_at, last_login_at
		FROM users WHERE username = $1`, username)

	var user User
	err := row.Scan(&user.Username, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Phone, &user.JoinedAt, &user.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q", httpx.ErrNotFound, username)
		}
		return nil, fmt.Errorf("users: get %q: %w", username, err)
	}
	return &user, nil
}

// List returns summaries for every user, username ascending.
func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT username, first_name, last_name, phone
		FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Username, &s.FirstName, &s.LastName, &s.Phone); err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list rows: %w", err)
	}
	return summaries, nil
}

// TouchLastLogin stamps last_login_at for an existing user.
func (r *Repository) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE username = $1`, username, at)
	if err != nil {
		return fmt.Errorf("users: touch last login %q: %w", username, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %q", httpx.ErrNotFound, username)
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)

package messages

import (
	"time"

	"github.com/google/uuid"

	"github.com/courier-app/courier/internal/users"
)

// Message is the stored record. ReadAt is nil until the recipient marks the
// message read; after that it is never cleared or overwritten.
type Message struct {
	ID           uuid.UUID
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time
}

// CreateRequest carries the creation payload. The sender comes from the
// authenticated identity, never from the payload.
type CreateRequest struct {
	ToUsername string `json:"to_username" validate:"required,max=50"`
	Body       string `json:"body" validate:"required"`
}

// Created is the creation result.
type Created struct {
	ID           uuid.UUID `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Body         string    `json:"body"`
	SentAt       time.Time `json:"sent_at"`
}

// Detail is the single-message view with both participants attached.
type Detail struct {
	ID       uuid.UUID     `json:"id"`
	Body     string        `json:"body"`
	SentAt   time.Time     `json:"sent_at"`
	ReadAt   *time.Time    `json:"read_at"`
	FromUser users.Summary `json:"from_user"`
	ToUser   users.Summary `json:"to_user"`
}

// OutboxEntry is one sent message with its recipient attached.
type OutboxEntry struct {
	ID     uuid.UUID     `json:"id"`
	ToUser users.Summary `json:"to_user"`
	Body   string        `json:"body"`
	SentAt time.Time     `json:"sent_at"`
	ReadAt *time.Time    `json:"read_at"`
}

// InboxEntry is one received message with its sender attached.
type InboxEntry struct {
	ID       uuid.UUID     `json:"id"`
	FromUser users.Summary `json:"from_user"`
	Body     string        `json:"body"`
	SentAt   time.Time     `json:"sent_at"`
	ReadAt   *time.Time    `json:"read_at"`
}

// ReadReceipt is the mark-read result.
type ReadReceipt struct {
	ID     uuid.UUID `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

// UnreadCount is the per-recipient unread backlog, used by the digest job.
type UnreadCount struct {
	Username string
	Count    int64
}

func (m Message) isParticipant(username string) bool {
	return username == m.FromUsername || username == m.ToUsername
}

package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/courier-app/courier/internal/platform/httpx"
	"github.com/courier-app/courier/internal/users"
)

// DirectoryPort is the slice of the user directory the message store needs:
// participant resolution for existence checks and display summaries.
type DirectoryPort interface {
	GetSummary(ctx context.Context, username string) (*users.Summary, error)
}

// Service implements the message store. Authorization lives here, not at
// the transport boundary: handlers pass the authenticated identity in and
// the service decides.
type Service struct {
	repo      RepositoryPort
	directory DirectoryPort
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, directory DirectoryPort) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new unread message between two existing users. Both
// participants are resolved through the directory before anything is
// written, so a failed create leaves no row behind.
func (s *Service) Create(ctx context.Context, fromUsername, toUsername, body string) (*Created, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body must not be empty", httpx.ErrValidation)
	}

	if _, err := s.resolveParticipants(ctx, fromUsername, toUsername); err != nil {
		return nil, err
	}

	msg := Message{
		ID:           uuid.New(),
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
		SentAt:       s.now(),
	}
	if err := s.repo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	return &Created{
		ID:           msg.ID,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt,
	}, nil
}

// Get returns the message with both participant summaries attached. Only a
// participant may see it; anyone else gets ErrForbidden. This check is the
// system's confidentiality guarantee and is deliberately not delegated to
// the routing layer.
func (s *Service) Get(ctx context.Context, id uuid.UUID, requestingUsername string) (*Detail, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.isParticipant(requestingUsername) {
		return nil, fmt.Errorf("%w: not a participant of message %s", httpx.ErrForbidden, id)
	}

	pair, err := s.resolveParticipants(ctx, msg.FromUsername, msg.ToUsername)
	if err != nil {
		return nil, err
	}

	return &Detail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: pair[0],
		ToUser:   pair[1],
	}, nil
}

// MarkRead transitions a message from unread to read. Only the addressed
// recipient may do this; the sender is just another forbidden caller. A
// message that is already read yields ErrDuplicate and keeps its original
// timestamp.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, requestingUsername string) (*ReadReceipt, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if requestingUsername != msg.ToUsername {
		return nil, fmt.Errorf("%w: only the recipient may mark message %s read", httpx.ErrForbidden, id)
	}

	readAt, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	return &ReadReceipt{ID: id, ReadAt: readAt}, nil
}

// Outbox returns all messages sent by username with recipients attached.
func (s *Service) Outbox(ctx context.Context, username string) ([]OutboxEntry, error) {
	msgs, err := s.repo.ListFrom(ctx, username)
	if err != nil {
		return nil, err
	}
	entries := make([]OutboxEntry, 0, len(msgs))
	for _, msg := range msgs {
		toUser, err := s.directory.GetSummary(ctx, msg.ToUsername)
		if err != nil {
			return nil, err
		}
		entries = append(entries, OutboxEntry{
			ID:     msg.ID,
			ToUser: *toUser,
			Body:   msg.Body,
			SentAt: msg.SentAt,
			ReadAt: msg.ReadAt,
		})
	}
	return entries, nil
}

// Inbox returns all messages received by username with senders attached.
func (s *Service) Inbox(ctx context.Context, username string) ([]InboxEntry, error) {
	msgs, err := s.repo.ListTo(ctx, username)
	if err != nil {
		return nil, err
	}
	entries := make([]InboxEntry, 0, len(msgs))
	for _, msg := range msgs {
		fromUser, err := s.directory.GetSummary(ctx, msg.FromUsername)
		if err != nil {
			return nil, err
		}
		entries = append(entries, InboxEntry{
			ID:       msg.ID,
			FromUser: *fromUser,
			Body:     msg.Body,
			SentAt:   msg.SentAt,
			ReadAt:   msg.ReadAt,
		})
	}
	return entries, nil
}

// resolveParticipants fetches both summaries concurrently. Index 0 is the
// sender, index 1 the recipient.
func (s *Service) resolveParticipants(ctx context.Context, fromUsername, toUsername string) ([2]users.Summary, error) {
	var pair [2]users.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.directory.GetSummary(gctx, fromUsername)
		if err != nil {
			return err
		}
		pair[0] = *summary
		return nil
	})
	g.Go(func() error {
		summary, err := s.directory.GetSummary(gctx, toUsername)
		if err != nil {
			return err
		}
		pair[1] = *summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return pair, err
	}
	return pair, nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/courier-app/courier/internal/messages"
)

// UnreadCounter is the slice of the message store the digest needs.
type UnreadCounter interface {
	UnreadCounts(ctx context.Context) ([]messages.UnreadCount, error)
}

// UnreadDigestJob logs the per-recipient unread backlog. It gives operators
// a view of how far read receipts lag behind deliveries without touching
// any message state.
type UnreadDigestJob struct {
	Store  UnreadCounter
	Logger *slog.Logger
	clock  func() time.Time
}

// NewUnreadDigestJob wires dependencies for the digest handler.
func NewUnreadDigestJob(store UnreadCounter, logger *slog.Logger) *UnreadDigestJob {
	return &UnreadDigestJob{
		Store:  store,
		Logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes TaskUnreadDigest tasks.
func (j *UnreadDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("unread digest: handler not configured")
	}
	var payload UnreadDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	started := j.clock()
	counts, err := j.Store.UnreadCounts(ctx)
	if err != nil {
		j.logger().Error("unread digest scan", slog.Any("error", err))
		return err
	}

	reported := counts
	if payload.Limit > 0 && len(counts) > payload.Limit {
		reported = counts[:payload.Limit]
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	for _, c := range reported {
		j.logger().Info("unread backlog",
			slog.String("username", c.Username),
			slog.Int64("unread", c.Count),
		)
	}
	j.logger().Info("unread digest complete",
		slog.Int("recipients", len(counts)),
		slog.Int64("total_unread", total),
		slog.Duration("took", j.clock().Sub(started)),
	)
	return nil
}

func (j *UnreadDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

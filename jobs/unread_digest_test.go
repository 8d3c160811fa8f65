package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-app/courier/internal/messages"
)

type stubCounter struct {
	counts []messages.UnreadCount
	err    error
	calls  int
}

func (s *stubCounter) UnreadCounts(ctx context.Context) ([]messages.UnreadCount, error) {
	s.calls++
	return s.counts, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUnreadDigestHandle(t *testing.T) {
	counter := &stubCounter{counts: []messages.UnreadCount{
		{Username: "bob", Count: 3},
		{Username: "alice", Count: 1},
	}}
	job := NewUnreadDigestJob(counter, discardLogger())

	task, err := NewUnreadDigestTask(UnreadDigestPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, counter.calls)
}

func TestUnreadDigestPropagatesScanFailure(t *testing.T) {
	counter := &stubCounter{err: errors.New("store down")}
	job := NewUnreadDigestJob(counter, discardLogger())

	task, err := NewUnreadDigestTask(UnreadDigestPayload{Limit: 5})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestUnreadDigestSkipsMalformedPayload(t *testing.T) {
	job := NewUnreadDigestJob(&stubCounter{}, discardLogger())

	err := job.Handle(context.Background(), asynq.NewTask(TaskUnreadDigest, []byte("{broken")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

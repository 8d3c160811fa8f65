// Package jobs holds the asynq task definitions and the background worker.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUnreadDigest is the task type for the unread backlog digest.
	TaskUnreadDigest = "unread:digest"
)

// UnreadDigestPayload parameterizes a digest run.
type UnreadDigestPayload struct {
	// Limit caps how many recipients are reported; 0 means all.
	Limit int `json:"limit"`
}

// NewUnreadDigestTask constructs an asynq task for the unread digest.
func NewUnreadDigestTask(payload UnreadDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUnreadDigest, data), nil
}

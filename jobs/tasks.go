// Package jobs wires background task processing on Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeInviteEmail is the task type for invitation notices. The
	// payload never carries the one-time credential; deliveries only tell
	// the invitee an account exists.
	TaskTypeInviteEmail = "mail:invite"
)

// InviteEmailPayload describes an invitation notice delivery.
type InviteEmailPayload struct {
	To       string `json:"to"`
	FullName string `json:"full_name"`
}

// NewInviteEmailTask constructs an Asynq task.
func NewInviteEmailTask(payload InviteEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInviteEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// HandleInviteEmailTask processes TaskTypeInviteEmail tasks.
func HandleInviteEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload InviteEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// SMTP delivery lands in a follow-up; tracked in the mail provider setup.
	slog.Default().Info("deliver invite notice",
		slog.String("to", payload.To), slog.String("full_name", payload.FullName))
	return nil
}

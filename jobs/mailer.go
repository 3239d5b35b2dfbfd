package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// InviteMailer enqueues invitation notices for the worker to deliver.
type InviteMailer struct {
	client *asynq.Client
}

// NewInviteMailer constructs an InviteMailer.
func NewInviteMailer(client *asynq.Client) *InviteMailer {
	return &InviteMailer{client: client}
}

// NotifyInvited queues an invite notice delivery.
func (m *InviteMailer) NotifyInvited(ctx context.Context, email, fullName string) error {
	task, err := NewInviteEmailTask(InviteEmailPayload{To: email, FullName: fullName})
	if err != nil {
		return fmt.Errorf("jobs: build invite task: %w", err)
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue invite task: %w", err)
	}
	return nil
}

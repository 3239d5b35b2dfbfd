package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestNewInviteEmailTask(t *testing.T) {
	task, err := NewInviteEmailTask(InviteEmailPayload{To: "new@example.com", FullName: "New Hire"})
	require.NoError(t, err)
	require.Equal(t, TaskTypeInviteEmail, task.Type())

	var payload InviteEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "new@example.com", payload.To)
	require.Equal(t, "New Hire", payload.FullName)
}

func TestInviteTaskPayloadOmitsCredential(t *testing.T) {
	task, err := NewInviteEmailTask(InviteEmailPayload{To: "new@example.com", FullName: "New Hire"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(task.Payload(), &raw))
	require.Equal(t, []string{"full_name", "to"}, sortedKeys(raw))
}

func TestHandleInviteEmailTask(t *testing.T) {
	task, err := NewInviteEmailTask(InviteEmailPayload{To: "new@example.com", FullName: "New Hire"})
	require.NoError(t, err)
	require.NoError(t, HandleInviteEmailTask(context.Background(), task))

	bad := asynq.NewTask(TaskTypeInviteEmail, []byte("not json"))
	err = HandleInviteEmailTask(context.Background(), bad)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

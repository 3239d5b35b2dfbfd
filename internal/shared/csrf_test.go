package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureTokenIsStablePerSession(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc"}

	first, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestVerifyToken(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc"}

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	require.NoError(t, m.VerifyToken(context.Background(), sess, token))
	require.ErrorIs(t, m.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)

	fresh := &Session{ID: "other"}
	require.ErrorIs(t, m.VerifyToken(context.Background(), fresh, token), ErrCSRFTokenMissing)
}

func TestUserSafeMessageHidesInternalErrors(t *testing.T) {
	require.Equal(t, "", UserSafeMessage(nil))
	require.Equal(t, "forbidden", UserSafeMessage(ErrForbidden))
	require.Equal(t, "invariant violation: at least one active admin must remain",
		UserSafeMessage(NewInvariantError("at least one active admin must remain")))
	require.Equal(t, "internal error", UserSafeMessage(context.DeadlineExceeded))
}

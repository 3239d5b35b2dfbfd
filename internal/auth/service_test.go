package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdeck/opsdeck/internal/permissions"
	"github.com/opsdeck/opsdeck/internal/shared"
	"github.com/opsdeck/opsdeck/internal/users"
	_ "github.com/opsdeck/opsdeck/testing"
)

type stubUserSource struct {
	byEmail map[string]users.User
}

func (s *stubUserSource) FetchUserByEmail(_ context.Context, email string) (users.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestAuthenticate(t *testing.T) {
	source := &stubUserSource{byEmail: map[string]users.User{
		"owner@example.com": {
			ID:           1,
			Email:        "owner@example.com",
			Role:         permissions.RoleAdmin,
			IsActive:     true,
			PasswordHash: hashPassword(t, "correct horse battery"),
		},
		"gone@example.com": {
			ID:           2,
			Email:        "gone@example.com",
			Role:         permissions.RoleEmployee,
			IsActive:     false,
			PasswordHash: hashPassword(t, "correct horse battery"),
		},
	}}
	svc := NewService(source)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "owner@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, int64(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "owner@example.com", "nope")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "gone@example.com", "correct horse battery")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})
}

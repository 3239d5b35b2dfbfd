// Package auth implements session login against the identity store.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/opsdeck/opsdeck/internal/shared"
	"github.com/opsdeck/opsdeck/internal/users"
)

// UserSource looks up accounts for authentication.
type UserSource interface {
	FetchUserByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	source UserSource
}

// NewService constructs a new Service.
func NewService(source UserSource) *Service {
	return &Service{source: source}
}

// Authenticate validates email/password credentials. Deactivated accounts
// are rejected identically to unknown ones.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.source.FetchUserByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

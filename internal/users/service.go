package users

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/opsdeck/opsdeck/internal/permissions"
	"github.com/opsdeck/opsdeck/internal/shared"
)

// AuditRecorder persists permission change records.
type AuditRecorder interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// CredentialStash keeps an invitation credential for one later reveal.
type CredentialStash interface {
	Stash(ctx context.Context, userID int64, credential string) error
	Reveal(ctx context.Context, userID int64) (string, error)
}

// InviteNotifier delivers the invitation notice to the new account's email.
type InviteNotifier interface {
	NotifyInvited(ctx context.Context, email, fullName string) error
}

// Service implements the user lifecycle: invitation, role toggles, override
// edits and activation changes. Every mutation is all-or-nothing and the
// active-admin invariant is re-validated inside the same mutation unit that
// commits the change.
type Service struct {
	store    Store
	catalog  *permissions.Catalog
	audit    AuditRecorder
	vault    CredentialStash
	notifier InviteNotifier
	logger   *slog.Logger
}

// NewService builds a Service instance. Audit, vault and notifier are
// optional; a nil logger disables logging.
func NewService(store Store, catalog *permissions.Catalog, audit AuditRecorder, vault CredentialStash, notifier InviteNotifier, logger *slog.Logger) *Service {
	return &Service{store: store, catalog: catalog, audit: audit, vault: vault, notifier: notifier, logger: logger}
}

// Get returns a single user record.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.FetchUser(ctx, id)
}

// List returns all user records.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// InviteInput carries the invitation form fields.
type InviteInput struct {
	Email    string
	FullName string
	Role     permissions.Role
}

// Invite creates an account with a generated one-time credential. The
// plaintext credential is returned exactly once here; afterwards only a
// single vault reveal can retrieve it again.
func (s *Service) Invite(ctx context.Context, actorID int64, input InviteInput) (User, string, error) {
	if !input.Role.Valid() {
		return User{}, "", shared.NewValidationError("role", string(input.Role))
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return User{}, "", shared.NewValidationError("email")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return User{}, "", shared.NewValidationError("full_name")
	}

	credential, err := NewCredential()
	if err != nil {
		return User{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("users: hash credential: %w", err)
	}

	user, err := s.store.CreateUser(ctx, NewUser{
		Email:        email,
		FullName:     fullName,
		Role:         input.Role,
		IsActive:     true,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, "", err
	}

	if s.vault != nil {
		if err := s.vault.Stash(ctx, user.ID, credential); err != nil {
			s.warn("stash invite credential", user.ID, err)
		}
	}
	s.record(ctx, actorID, user.ID, "invite_user", map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})
	if s.notifier != nil {
		if err := s.notifier.NotifyInvited(ctx, user.Email, user.FullName); err != nil {
			s.warn("enqueue invite notice", user.ID, err)
		}
	}
	return user, credential, nil
}

// RevealCredential returns an invitation credential exactly once.
func (s *Service) RevealCredential(ctx context.Context, userID int64) (string, error) {
	if s.vault == nil {
		return "", shared.ErrNotFound
	}
	if _, err := s.store.FetchUser(ctx, userID); err != nil {
		return "", err
	}
	return s.vault.Reveal(ctx, userID)
}

// ToggleRole switches a user between admin and employee. Overrides stay
// stored through the toggle: inert while admin, effective again as employee.
func (s *Service) ToggleRole(ctx context.Context, actorID, userID int64, newRole permissions.Role) (User, error) {
	if !newRole.Valid() {
		return User{}, shared.NewValidationError("role", string(newRole))
	}
	if actorID == userID {
		return User{}, shared.NewInvariantError("cannot change your own role")
	}

	var updated User
	var oldRole permissions.Role
	err := s.store.Mutate(ctx, func(ctx context.Context, tx TxStore) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		oldRole = user.Role
		if user.Role == newRole {
			updated = user
			return nil
		}
		updated, err = tx.UpdateUser(ctx, user.ID, user.Version, Patch{Role: &newRole})
		if err != nil {
			return err
		}
		return s.requireActiveAdmin(ctx, tx)
	})
	if err != nil {
		return User{}, err
	}
	if oldRole != newRole {
		s.record(ctx, actorID, userID, "update_role", map[string]any{
			"old_role": string(oldRole),
			"new_role": string(newRole),
		})
	}
	return updated, nil
}

// SetCustomPermissions replaces a user's additive overrides. Admin accounts
// are rejected outright: overrides would have no effect, and silently
// accepting them would mislead the operator.
func (s *Service) SetCustomPermissions(ctx context.Context, actorID, userID int64, keys []permissions.Key) (User, error) {
	normalized, unknown := s.normalizeOverrides(keys)
	if len(unknown) > 0 {
		return User{}, shared.NewValidationError("custom_permissions", unknown...)
	}

	var updated User
	err := s.store.Mutate(ctx, func(ctx context.Context, tx TxStore) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == permissions.RoleAdmin {
			return shared.NewInvariantError("custom permissions have no effect on admin accounts")
		}
		updated, err = tx.UpdateUser(ctx, user.ID, user.Version, Patch{CustomPermissions: &normalized})
		return err
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, userID, "update_permissions", map[string]any{
		"custom_permissions": toStrings(normalized),
	})
	return updated, nil
}

// SetActive toggles the activation flag. Deactivation is reversible; the
// role and overrides stay latent on the record.
func (s *Service) SetActive(ctx context.Context, actorID, userID int64, active bool) (User, error) {
	if actorID == userID && !active {
		return User{}, shared.NewInvariantError("cannot deactivate your own account")
	}

	var updated User
	var changed bool
	err := s.store.Mutate(ctx, func(ctx context.Context, tx TxStore) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsActive == active {
			updated = user
			return nil
		}
		changed = true
		updated, err = tx.UpdateUser(ctx, user.ID, user.Version, Patch{IsActive: &active})
		if err != nil {
			return err
		}
		if !active {
			return s.requireActiveAdmin(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	if changed {
		action := "deactivate_user"
		if active {
			action = "activate_user"
		}
		s.record(ctx, actorID, userID, action, map[string]any{"is_active": active})
	}
	return updated, nil
}

// requireActiveAdmin is the commit-time guard: the count runs inside the
// same mutation unit as the write, after it, so concurrent demotions cannot
// jointly leave zero active admins.
func (s *Service) requireActiveAdmin(ctx context.Context, tx TxStore) error {
	count, err := tx.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if count < 1 {
		return shared.NewInvariantError("at least one active admin must remain")
	}
	return nil
}

// normalizeOverrides deduplicates and sorts keys, splitting off any that the
// catalog does not know.
func (s *Service) normalizeOverrides(keys []permissions.Key) ([]permissions.Key, []string) {
	seen := make(map[permissions.Key]struct{}, len(keys))
	normalized := make([]permissions.Key, 0, len(keys))
	var unknown []string
	for _, k := range keys {
		k = permissions.Key(strings.TrimSpace(string(k)))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if !s.catalog.Contains(k) {
			unknown = append(unknown, string(k))
			continue
		}
		normalized = append(normalized, k)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })
	sort.Strings(unknown)
	return normalized, unknown
}

func (s *Service) record(ctx context.Context, actorID, targetID int64, action string, changes map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditEntry{
		ActorID:      actorID,
		TargetUserID: targetID,
		Action:       action,
		Changes:      changes,
	})
	if err != nil {
		s.warn("record audit entry", targetID, err)
	}
}

func (s *Service) warn(msg string, userID int64, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"

	"github.com/opsdeck/opsdeck/internal/permissions"
	"github.com/opsdeck/opsdeck/internal/platform/db"
	"github.com/opsdeck/opsdeck/internal/shared"
)

// Store is the identity store the lifecycle service works against.
type Store interface {
	FetchUser(ctx context.Context, id int64) (User, error)
	FetchUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, record NewUser) (User, error)
	// Mutate runs fn inside a single serialized read-modify-write unit.
	// Writes and invariant checks made through tx commit or roll back
	// together.
	Mutate(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// TxStore exposes the operations available inside a mutation unit.
type TxStore interface {
	GetUser(ctx context.Context, id int64) (User, error)
	// UpdateUser applies patch only when the stored version still matches;
	// a stale version yields shared.ErrVersionConflict.
	UpdateUser(ctx context.Context, id, version int64, patch Patch) (User, error)
	CountActiveAdmins(ctx context.Context) (int, error)
}

// userMutationLockID serializes user mutations across processes so the
// active-admin count each transaction observes includes every previously
// committed transition.
const userMutationLockID = int64(0x6f70736465636b01)

const userColumns = `id, email, full_name, role, is_active, custom_permissions, password_hash, version, created_at, updated_at`

var emailFolder = cases.Fold()

// NormalizeEmail case-folds an address for storage and lookup.
func NormalizeEmail(email string) string {
	return emailFolder.String(email)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	var custom []string
	err := row.Scan(&user.ID, &user.Email, &user.FullName, &role, &user.IsActive,
		&custom, &user.PasswordHash, &user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Role = permissions.Role(role)
	user.CustomPermissions = toKeys(custom)
	return user, nil
}

func fetchUser(ctx context.Context, q rowQuerier, id int64) (User, error) {
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FetchUser returns the user with the given id.
func (r *Repository) FetchUser(ctx context.Context, id int64) (User, error) {
	return fetchUser(ctx, r.pool, id)
}

// FetchUserByEmail returns the user with the given (case-folded) email.
func (r *Repository) FetchUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)))
}

// ListUsers returns all users ordered by full name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser inserts a new account. A duplicate email is reported as a
// validation error.
func (r *Repository) CreateUser(ctx context.Context, record NewUser) (User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, role, is_active, custom_permissions, password_hash, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now())
		 RETURNING `+userColumns,
		NormalizeEmail(record.Email), record.FullName, string(record.Role),
		record.IsActive, toStrings(record.CustomPermissions), record.PasswordHash)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.NewValidationError("email", "already registered")
		}
		return User{}, err
	}
	return user, nil
}

// Mutate runs fn inside a transaction holding the user-mutation advisory
// lock. Read committed isolation is deliberate: once the lock is acquired,
// every read observes all previously committed mutations, which makes the
// commit-time admin count authoritative.
func (r *Repository) Mutate(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userMutationLockID); err != nil {
			return fmt.Errorf("users: acquire mutation lock: %w", err)
		}
		return fn(ctx, &txStore{tx: tx})
	})
}

// GrantFor loads the authorization snapshot straight from storage. The gate
// middleware calls this on every request so revocations apply immediately.
func (r *Repository) GrantFor(ctx context.Context, userID int64) (permissions.Grant, error) {
	var role string
	var active bool
	var custom []string
	err := r.pool.QueryRow(ctx,
		`SELECT role, is_active, custom_permissions FROM users WHERE id = $1`, userID).
		Scan(&role, &active, &custom)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permissions.Grant{}, shared.ErrNotFound
		}
		return permissions.Grant{}, err
	}
	return permissions.Grant{
		Role:      permissions.Role(role),
		Active:    active,
		Overrides: toKeys(custom),
	}, nil
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) GetUser(ctx context.Context, id int64) (User, error) {
	return fetchUser(ctx, t.tx, id)
}

func (t *txStore) UpdateUser(ctx context.Context, id, version int64, patch Patch) (User, error) {
	sql := `UPDATE users SET version = version + 1, updated_at = now()`
	args := []any{id, version}
	if patch.Role != nil {
		args = append(args, string(*patch.Role))
		sql += fmt.Sprintf(`, role = $%d`, len(args))
	}
	if patch.IsActive != nil {
		args = append(args, *patch.IsActive)
		sql += fmt.Sprintf(`, is_active = $%d`, len(args))
	}
	if patch.CustomPermissions != nil {
		args = append(args, toStrings(*patch.CustomPermissions))
		sql += fmt.Sprintf(`, custom_permissions = $%d`, len(args))
	}
	if patch.PasswordHash != nil {
		args = append(args, *patch.PasswordHash)
		sql += fmt.Sprintf(`, password_hash = $%d`, len(args))
	}
	sql += ` WHERE id = $1 AND version = $2 RETURNING ` + userColumns

	user, err := scanUser(t.tx.QueryRow(ctx, sql, args...))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return User{}, err
	}
	// Distinguish a stale version from a missing record.
	if _, fetchErr := fetchUser(ctx, t.tx, id); fetchErr == nil {
		return User{}, shared.ErrVersionConflict
	}
	return User{}, shared.ErrNotFound
}

func (t *txStore) CountActiveAdmins(ctx context.Context) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1 AND is_active`,
		string(permissions.RoleAdmin)).Scan(&count)
	return count, err
}

func toKeys(values []string) []permissions.Key {
	if values == nil {
		return nil
	}
	keys := make([]permissions.Key, len(values))
	for i, v := range values {
		keys[i] = permissions.Key(v)
	}
	return keys
}

func toStrings(keys []permissions.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

var _ Store = (*Repository)(nil)
var _ permissions.GrantSource = (*Repository)(nil)

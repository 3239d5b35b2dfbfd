package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsdeck/opsdeck/internal/shared"
)

// credentialBytes yields 24 base64url characters, comfortably above the
// 12-character floor required for invitation credentials.
const credentialBytes = 18

// NewCredential generates a one-time credential from the secure random
// source.
func NewCredential() (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("users: generate credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CredentialVault holds invitation credentials for exactly one reveal.
// Only the bcrypt hash is persisted on the user record; the plaintext lives
// here until it is revealed once or expires, whichever comes first.
type CredentialVault struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCredentialVault constructs a vault with the given retention.
func NewCredentialVault(client *redis.Client, ttl time.Duration) *CredentialVault {
	return &CredentialVault{client: client, ttl: ttl}
}

// Stash stores the credential for a later single reveal.
func (v *CredentialVault) Stash(ctx context.Context, userID int64, credential string) error {
	return v.client.Set(ctx, v.key(userID), credential, v.ttl).Err()
}

// Reveal returns the credential and removes it atomically. A second call
// for the same user reports shared.ErrNotFound.
func (v *CredentialVault) Reveal(ctx context.Context, userID int64) (string, error) {
	credential, err := v.client.GetDel(ctx, v.key(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return credential, nil
}

func (v *CredentialVault) key(userID int64) string {
	return "invite:credential:" + strconv.FormatInt(userID, 10)
}

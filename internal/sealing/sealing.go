// Package sealing encrypts secret values for the GitHub Actions API.
// GitHub only accepts secret values sealed with the scope's libsodium
// public key, so every secret write goes through here first.
package sealing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	ghapi "github.com/google/go-github/v75/github"
	"golang.org/x/crypto/nacl/box"

	"github.com/kuhlman-labs/actions-migrator/internal/github"
)

// SealedValue carries the base64 ciphertext and the ID of the key that
// sealed it. Both go into the secret create call together.
type SealedValue struct {
	KeyID      string
	Ciphertext string
}

// Sealer seals plaintext values with anonymous NaCl sealed boxes. Public
// keys are fetched through the client and cached per exact scope: the
// organization key for org secrets, one key per repository for repo
// secrets. A key is never reused across scopes.
type Sealer struct {
	client *github.Client
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]*ghapi.PublicKey
}

// NewSealer creates a sealer over the target side's client.
func NewSealer(client *github.Client, logger *slog.Logger) *Sealer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sealer{
		client: client,
		logger: logger,
		keys:   make(map[string]*ghapi.PublicKey),
	}
}

// SealOrgSecret seals plaintext for an organization-scoped secret.
func (s *Sealer) SealOrgSecret(ctx context.Context, org, plaintext string) (*SealedValue, error) {
	key, err := s.publicKey(ctx, "org/"+org, func(ctx context.Context) (*ghapi.PublicKey, error) {
		return s.client.GetOrgPublicKey(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	return seal(key, plaintext)
}

// SealRepoSecret seals plaintext for a repository-scoped secret.
func (s *Sealer) SealRepoSecret(ctx context.Context, owner, repo, plaintext string) (*SealedValue, error) {
	key, err := s.publicKey(ctx, "repo/"+owner+"/"+repo, func(ctx context.Context) (*ghapi.PublicKey, error) {
		return s.client.GetRepoPublicKey(ctx, owner, repo)
	})
	if err != nil {
		return nil, err
	}
	return seal(key, plaintext)
}

// publicKey returns the cached key for a scope, fetching it on first use.
func (s *Sealer) publicKey(ctx context.Context, scope string, fetch func(context.Context) (*ghapi.PublicKey, error)) (*ghapi.PublicKey, error) {
	s.mu.Lock()
	if key, ok := s.keys[scope]; ok {
		s.mu.Unlock()
		return key, nil
	}
	s.mu.Unlock()

	key, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key for %s: %w", scope, err)
	}

	s.logger.Debug("Fetched sealing public key",
		"scope", scope,
		"key_id", key.GetKeyID())

	s.mu.Lock()
	s.keys[scope] = key
	s.mu.Unlock()

	return key, nil
}

// seal encrypts plaintext with an anonymous sealed box over the scope's
// public key and returns base64 ciphertext plus the key ID.
func seal(key *ghapi.PublicKey, plaintext string) (*SealedValue, error) {
	decoded, err := base64.StdEncoding.DecodeString(key.GetKey())
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key %s: %w", key.GetKeyID(), err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("public key %s is %d bytes, want 32", key.GetKeyID(), len(decoded))
	}

	var recipient [32]byte
	copy(recipient[:], decoded)

	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &recipient, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to seal secret value: %w", err)
	}

	return &SealedValue{
		KeyID:      key.GetKeyID(),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Package secrets stores tenant secrets sealed with ChaCha20-Poly1305. Each
// secret lives under its tenant namespace and the namespace is bound into the
// ciphertext, so a value copied to another tenant's key fails to open.
package secrets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/chacha20poly1305"

	"clearing/internal/adapter/ports"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
)

// Backend persists sealed blobs. Get returns sentinel.ErrNotFound for an
// absent key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Vault implements ports.SecretAccessor over a Backend.
type Vault struct {
	backend Backend
	aead    cipherAEAD
	logger  *slog.Logger
}

type cipherAEAD interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

type Option func(*Vault)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) { v.logger = logger }
}

// New creates a vault sealing with masterKey, which must be 32 bytes.
func New(backend Backend, masterKey []byte, opts ...Option) (*Vault, error) {
	aead, err := chacha20poly1305.NewX(masterKey)
	if err != nil {
		return nil, fmt.Errorf("secrets master key: %w", err)
	}
	v := &Vault{backend: backend, aead: aead, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ParseMasterKey decodes a hex-encoded 32-byte key.
func ParseMasterKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "secrets master key is not hex")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "secrets master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

// GenerateMasterKey returns a random key suitable for New.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Key is the backend key for a tenant secret: tenant/<id>/<bu>/<kind>.
func Key(tenant id.TenantContext, kind ports.SecretKind) string {
	return tenant.Namespace() + "/" + string(kind)
}

func (v *Vault) GetSecret(ctx context.Context, tenant id.TenantContext, kind ports.SecretKind) (string, error) {
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	key := Key(tenant, kind)
	blob, err := v.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}

	n := v.aead.NonceSize()
	if len(blob) < n {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation, "sealed secret %s is truncated", key)
	}
	plain, err := v.aead.Open(nil, blob[:n], blob[n:], []byte(key))
	if err != nil {
		v.logger.ErrorContext(ctx, "secret failed to open", "key", key)
		return "", dErrors.Wrap(err, dErrors.CodeInvariantViolation, "sealed secret failed authentication")
	}
	return string(plain), nil
}

func (v *Vault) StoreSecret(ctx context.Context, tenant id.TenantContext, kind ports.SecretKind, value string) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if value == "" {
		return dErrors.New(dErrors.CodeValidation, "secret value is required")
	}
	key := Key(tenant, kind)
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	blob := v.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	if err := v.backend.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("write secret %s: %w", key, err)
	}
	v.logger.InfoContext(ctx, "secret stored", "key", key)
	return nil
}

// DeleteSecret removes a tenant secret. Deleting an absent secret succeeds.
func (v *Vault) DeleteSecret(ctx context.Context, tenant id.TenantContext, kind ports.SecretKind) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	return v.backend.Delete(ctx, Key(tenant, kind))
}

var _ ports.SecretAccessor = (*Vault)(nil)

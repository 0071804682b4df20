package ports

import (
	"context"

	id "clearing/pkg/domain"
)

// SecretKind names a tenant secret.
type SecretKind string

const (
	// SecretSigningKey signs the bearer tokens presented to the clearing network.
	SecretSigningKey SecretKind = "clearing-signing-key"
	// SecretClientCertificate is the PEM client certificate for mutual TLS.
	SecretClientCertificate SecretKind = "client-certificate"
)

// SecretAccessor reads and writes tenant secrets under the tenant's
// namespace. GetSecret returns sentinel.ErrNotFound for an absent secret.
// Implementations never log secret values.
type SecretAccessor interface {
	GetSecret(ctx context.Context, tenant id.TenantContext, kind SecretKind) (string, error)
	StoreSecret(ctx context.Context, tenant id.TenantContext, kind SecretKind, value string) error
}

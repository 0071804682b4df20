package secrets

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"clearing/internal/adapter/ports"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
)

type VaultSuite struct {
	suite.Suite
	backend *MemoryBackend
	vault   *Vault
	tenant  id.TenantContext
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

func (s *VaultSuite) SetupTest() {
	key, err := GenerateMasterKey()
	s.Require().NoError(err)
	s.backend = NewMemoryBackend()
	s.vault, err = New(s.backend, key)
	s.Require().NoError(err)
	s.tenant = id.TenantContext{TenantID: "bank-a", BusinessUnitID: "treasury"}
}

func (s *VaultSuite) TestStoreAndGet() {
	ctx := context.Background()
	s.Require().NoError(s.vault.StoreSecret(ctx, s.tenant, ports.SecretSigningKey, "k3y"))

	got, err := s.vault.GetSecret(ctx, s.tenant, ports.SecretSigningKey)
	s.Require().NoError(err)
	s.Equal("k3y", got)

	raw, err := s.backend.Get(ctx, "tenant/bank-a/treasury/clearing-signing-key")
	s.Require().NoError(err)
	s.NotContains(string(raw), "k3y")
}

func (s *VaultSuite) TestMissingSecretIsNotFound() {
	_, err := s.vault.GetSecret(context.Background(), s.tenant, ports.SecretClientCertificate)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *VaultSuite) TestSealedValueIsBoundToItsNamespace() {
	ctx := context.Background()
	other := id.TenantContext{TenantID: "bank-b", BusinessUnitID: "treasury"}
	s.Require().NoError(s.vault.StoreSecret(ctx, s.tenant, ports.SecretSigningKey, "k3y"))

	blob, err := s.backend.Get(ctx, Key(s.tenant, ports.SecretSigningKey))
	s.Require().NoError(err)
	s.Require().NoError(s.backend.Put(ctx, Key(other, ports.SecretSigningKey), blob))

	_, err = s.vault.GetSecret(ctx, other, ports.SecretSigningKey)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *VaultSuite) TestDeleteSecret() {
	ctx := context.Background()
	s.Require().NoError(s.vault.StoreSecret(ctx, s.tenant, ports.SecretSigningKey, "k3y"))
	s.Require().NoError(s.vault.DeleteSecret(ctx, s.tenant, ports.SecretSigningKey))
	_, err := s.vault.GetSecret(ctx, s.tenant, ports.SecretSigningKey)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *VaultSuite) TestValidation() {
	ctx := context.Background()

	s.Run("empty value", func() {
		err := s.vault.StoreSecret(ctx, s.tenant, ports.SecretSigningKey, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("incomplete tenant context", func() {
		_, err := s.vault.GetSecret(ctx, id.TenantContext{TenantID: "bank-a"}, ports.SecretSigningKey)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *VaultSuite) TestParseMasterKey() {
	key, err := ParseMasterKey(strings.Repeat("ab", 32))
	s.Require().NoError(err)
	s.Len(key, 32)

	_, err = ParseMasterKey(hex.EncodeToString([]byte("short")))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseMasterKey("zz")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

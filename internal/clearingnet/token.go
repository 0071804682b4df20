package clearingnet

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

// Claims are carried by the bearer token presented with every message.
type Claims struct {
	AdapterID    string `json:"adapter_id"`
	TenantID     string `json:"tenant_id"`
	BusinessUnit string `json:"business_unit_id"`
	MessageType  string `json:"message_type"`
	jwt.RegisteredClaims
}

// Signer mints short-lived HS256 tokens for the clearing network.
type Signer struct {
	issuer   string
	audience string
	ttl      time.Duration
}

func NewSigner(issuer, audience string, ttl time.Duration) *Signer {
	return &Signer{issuer: issuer, audience: audience, ttl: ttl}
}

// Mint signs a token for one message with the tenant's signing key.
func (s *Signer) Mint(key []byte, adapterID id.AdapterID, tenant id.TenantContext, messageType string, now time.Time) (string, error) {
	if len(key) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidState, "signing key is empty")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AdapterID:    string(adapterID),
		TenantID:     string(tenant.TenantID),
		BusinessUnit: string(tenant.BusinessUnitID),
		MessageType:  messageType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			Subject:   string(adapterID),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(key)
}

// Verify parses and checks a token minted by Mint. The clearing network
// does the same on its side; tests and the loopback network use this.
func (s *Signer) Verify(key []byte, tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeValidation, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeValidation, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid token claims")
	}
	return claims, nil
}

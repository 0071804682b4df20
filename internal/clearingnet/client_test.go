package clearingnet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearing/internal/adapter/ports"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

var signingKey = []byte("tenant-signing-key")

func newRequest(endpoint string) ports.TransmitRequest {
	return ports.TransmitRequest{
		AdapterID:   "A1",
		Tenant:      id.TenantContext{TenantID: "T1", BusinessUnitID: "retail"},
		Endpoint:    endpoint,
		APIVersion:  "v1",
		MessageType: "pacs.008.001.08",
		Payload:     `<?xml version="1.0" encoding="UTF-8"?><Document/>`,
		SigningKey:  signingKey,
	}
}

func TestTransmit(t *testing.T) {
	signer := NewSigner("clearing-adapter", "clearing-network", time.Minute)

	t.Run("accepted message returns reference", func(t *testing.T) {
		var gotPath, gotBody string
		var claims *Claims
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			var err error
			claims, err = signer.Verify(signingKey, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			assert.NoError(t, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"reference":"NET-42"}`))
		}))
		defer srv.Close()

		resp, err := New(signer).Transmit(context.Background(), newRequest(srv.URL+"/"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "NET-42", resp.Reference)
		assert.Equal(t, "/v1/messages", gotPath)
		assert.Contains(t, gotBody, "<Document/>")
		require.NotNil(t, claims)
		assert.Equal(t, "A1", claims.AdapterID)
		assert.Equal(t, "T1", claims.TenantID)
		assert.Equal(t, "pacs.008.001.08", claims.MessageType)
	})

	t.Run("4xx is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte("AC04 closed account"))
		}))
		defer srv.Close()

		_, err := New(signer).Transmit(context.Background(), newRequest(srv.URL))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRejected))
		var rejection *ports.NetworkRejection
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, http.StatusUnprocessableEntity, rejection.StatusCode)
		assert.Equal(t, "AC04 closed account", rejection.Body)
	})

	t.Run("5xx and 429 are transient", func(t *testing.T) {
		for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			_, err := New(signer).Transmit(context.Background(), newRequest(srv.URL))
			srv.Close()
			require.Error(t, err)
			assert.False(t, dErrors.IsClientError(err), "status %d", status)
		}
	})

	t.Run("empty signing key is refused before sending", func(t *testing.T) {
		req := newRequest("http://127.0.0.1:1")
		req.SigningKey = nil
		_, err := New(signer).Transmit(context.Background(), req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestSignerVerify(t *testing.T) {
	signer := NewSigner("clearing-adapter", "clearing-network", time.Minute)
	tenant := id.TenantContext{TenantID: "T1", BusinessUnitID: "retail"}

	t.Run("expired token", func(t *testing.T) {
		token, err := signer.Mint(signingKey, "A1", tenant, "pacs.008", time.Now().Add(-time.Hour))
		require.NoError(t, err)
		_, err = signer.Verify(signingKey, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := signer.Mint(signingKey, "A1", tenant, "pacs.008", time.Now())
		require.NoError(t, err)
		_, err = signer.Verify([]byte("other"), token)
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token, err := NewSigner("clearing-adapter", "someone-else", time.Minute).Mint(signingKey, "A1", tenant, "pacs.008", time.Now())
		require.NoError(t, err)
		_, err = signer.Verify(signingKey, token)
		assert.Error(t, err)
	})
}

package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

func created() models.DomainEvent {
	return models.DomainEvent{
		ID:          "9a7f4c2d-1b3e-4f5a-8c6d-7e8f9a0b1c2d",
		Type:        models.EventAdapterCreated,
		AggregateID: id.AdapterID("A1"),
		Tenant:      id.TenantContext{TenantID: "bank-a", BusinessUnitID: "treasury"},
	}
}

func TestPublishSignsBody(t *testing.T) {
	var (
		body   []byte
		header http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		header = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, NewPublisher(srv.URL, "whsec").Publish(context.Background(), created()))

	assert.Equal(t, "AdapterCreated", header.Get(HeaderEventType))
	assert.Equal(t, created().ID, header.Get(HeaderEventID))
	assert.True(t, Verify([]byte("whsec"), body, header.Get(HeaderSignature)))
	assert.False(t, Verify([]byte("other"), body, header.Get(HeaderSignature)))
}

func TestPublishStatusClassification(t *testing.T) {
	cases := map[int]func(error) bool{
		http.StatusBadRequest:          func(err error) bool { return dErrors.HasCode(err, dErrors.CodeRejected) },
		http.StatusTooManyRequests:     func(err error) bool { return err != nil && !dErrors.IsClientError(err) },
		http.StatusServiceUnavailable:  func(err error) bool { return err != nil && !dErrors.IsClientError(err) },
		http.StatusNoContent:           func(err error) bool { return err == nil },
		http.StatusInternalServerError: func(err error) bool { return err != nil && !dErrors.IsClientError(err) },
	}
	for status, check := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		err := NewPublisher(srv.URL, "").Publish(context.Background(), created())
		srv.Close()
		assert.Truef(t, check(err), "status %d gave %v", status, err)
	}
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	assert.False(t, Verify([]byte("k"), []byte("b"), ""))
	assert.False(t, Verify([]byte("k"), []byte("b"), "sha256="))
	assert.False(t, Verify([]byte("k"), []byte("b"), "sha256=zz"))
	assert.True(t, Verify([]byte("k"), []byte("b"), "sha256="+Sign([]byte("k"), []byte("b"))))
}

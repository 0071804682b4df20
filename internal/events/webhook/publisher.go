// Package webhook POSTs domain events to an HTTP endpoint, signed with
// HMAC-SHA256 over the body.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/events"
	dErrors "clearing/pkg/domain-errors"
)

const (
	HeaderSignature = "X-Clearing-Signature"
	HeaderEventType = "X-Clearing-Event-Type"
	HeaderEventID   = "X-Clearing-Event-Id"
)

type Publisher struct {
	url    string
	secret []byte
	client *http.Client
}

type Option func(*Publisher)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) { p.client = c }
}

func NewPublisher(url, secret string, opts ...Option) *Publisher {
	p := &Publisher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish treats 2xx as delivered. Other 4xx answers (except 408 and 429)
// are rejections and are not worth retrying; everything else is transient.
func (p *Publisher) Publish(ctx context.Context, e models.DomainEvent) error {
	body, err := events.Encode(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, string(e.Type))
	req.Header.Set(HeaderEventID, e.ID)
	if len(p.secret) > 0 {
		req.Header.Set(HeaderSignature, "sha256="+Sign(p.secret, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests:
		return dErrors.Newf(dErrors.CodeRejected, "webhook rejected event with status %d", resp.StatusCode)
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a "sha256=<hex>" signature header in constant time.
func Verify(secret, body []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	want, err := hex.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

var _ ports.EventPublisher = (*Publisher)(nil)

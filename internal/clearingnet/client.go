// Package clearingnet is the HTTP transport to the clearing network. Each
// message is POSTed as XML with a bearer token signed by the tenant's key.
package clearingnet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clearing/internal/adapter/ports"
	dErrors "clearing/pkg/domain-errors"
)

const (
	maxResponseBody = 64 << 10
	referenceHeader = "X-Clearing-Reference"
)

// Client implements ports.ClearingTransport over HTTP.
type Client struct {
	http   *http.Client
	signer *Signer
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithClock(clock func() time.Time) Option {
	return func(cl *Client) { cl.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func New(signer *Signer, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{},
		signer: signer,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	Reference string `json:"reference"`
}

// Transmit posts one message. 2xx is success; 4xx other than 408 and 429 is
// a network rejection; everything else is transient and left to the caller's
// retry policy.
func (c *Client) Transmit(ctx context.Context, req ports.TransmitRequest) (*ports.TransmitResponse, error) {
	token, err := c.signer.Mint(req.SigningKey, req.AdapterID, req.Tenant, req.MessageType, c.clock())
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(req.Endpoint, "/") + "/" + req.APIVersion + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(req.Payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid clearing endpoint")
	}
	httpReq.Header.Set("Content-Type", "application/xml; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Message-Type", req.MessageType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post to clearing network: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read clearing network response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		out := &ports.TransmitResponse{
			StatusCode: resp.StatusCode,
			Reference:  resp.Header.Get(referenceHeader),
			Body:       string(body),
		}
		if out.Reference == "" && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			var parsed submitResponse
			if json.Unmarshal(body, &parsed) == nil {
				out.Reference = parsed.Reference
			}
		}
		return out, nil
	case isRejection(resp.StatusCode):
		c.logger.WarnContext(ctx, "clearing network rejected message",
			"adapter_id", string(req.AdapterID),
			"status", resp.StatusCode,
		)
		return nil, dErrors.Wrap(&ports.NetworkRejection{StatusCode: resp.StatusCode, Body: string(body)},
			dErrors.CodeRejected, "message rejected by clearing network")
	default:
		return nil, fmt.Errorf("clearing network returned %d", resp.StatusCode)
	}
}

func isRejection(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}

var _ ports.ClearingTransport = (*Client)(nil)

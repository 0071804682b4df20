package ports

import (
	"context"
	"fmt"

	id "clearing/pkg/domain"
)

// TransmitRequest is one ISO 20022 message bound for the clearing network.
type TransmitRequest struct {
	AdapterID   id.AdapterID
	Tenant      id.TenantContext
	Endpoint    string
	APIVersion  string
	MessageType string
	Payload     string
	// SigningKey authenticates the adapter to the network. Never logged.
	SigningKey []byte
}

// TransmitResponse is the network's answer to a transmitted message.
type TransmitResponse struct {
	StatusCode int
	Reference  string
	Body       string
}

// NetworkRejection is the cause carried by a dErrors.CodeRejected error when
// the network refused a message.
type NetworkRejection struct {
	StatusCode int
	Body       string
}

func (r *NetworkRejection) Error() string {
	return fmt.Sprintf("clearing network rejected message with status %d", r.StatusCode)
}

// ClearingTransport sends messages to the clearing network. A rejection by
// the network is a dErrors.CodeRejected error wrapping *NetworkRejection;
// anything else is transient.
type ClearingTransport interface {
	Transmit(ctx context.Context, req TransmitRequest) (*TransmitResponse, error)
}

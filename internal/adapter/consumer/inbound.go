// Package consumer feeds inbound clearing-network messages from Kafka into
// the adapter service.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clearing/internal/adapter/models"
	"clearing/internal/platform/kafka/consumer"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/requestcontext"
)

// Record headers on the inbound topic. The value is the raw XML payload.
const (
	HeaderTenantID       = "tenant-id"
	HeaderBusinessUnitID = "business-unit-id"
	HeaderAdapterID      = "adapter-id"
	HeaderMessageType    = "message-type"
	HeaderCorrelationID  = "correlation-id"
)

// Receiver is the service operation inbound messages are handed to.
type Receiver interface {
	ReceiveMessage(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, messageType, payload string) (models.MessageLogEntry, error)
}

// InboundHandler implements consumer.Handler. Messages with missing routing
// headers fail as validation errors, which the consumer skips as poison.
type InboundHandler struct {
	receiver Receiver
	logger   *slog.Logger
}

func NewInboundHandler(receiver Receiver, logger *slog.Logger) *InboundHandler {
	return &InboundHandler{receiver: receiver, logger: logger}
}

func (h *InboundHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	tenant, err := id.NewTenantContext(msg.Headers[HeaderTenantID], msg.Headers[HeaderBusinessUnitID])
	if err != nil {
		return err
	}
	adapterID := id.AdapterID(strings.TrimSpace(msg.Headers[HeaderAdapterID]))
	if adapterID.IsNil() {
		adapterID = id.AdapterID(strings.TrimSpace(string(msg.Key)))
	}
	if adapterID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "inbound message has no adapter id")
	}

	ctx = requestcontext.WithActor(ctx, "inbound:"+msg.Topic)
	ctx = requestcontext.WithRequestID(ctx, fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset))
	if cid := strings.TrimSpace(msg.Headers[HeaderCorrelationID]); cid != "" {
		ctx = requestcontext.WithCorrelationID(ctx, cid)
	}

	entry, err := h.receiver.ReceiveMessage(ctx, tenant, adapterID, msg.Headers[HeaderMessageType], string(msg.Value))
	if err != nil {
		return err
	}
	h.logger.DebugContext(ctx, "inbound message logged",
		"adapter_id", string(adapterID),
		"tenant_id", string(tenant.TenantID),
		"message_type", entry.MessageType,
		"offset", msg.Offset,
	)
	return nil
}

var _ consumer.Handler = (*InboundHandler)(nil)

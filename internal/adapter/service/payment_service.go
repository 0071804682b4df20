package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/iso20022"
	"clearing/internal/resilience"
	"clearing/internal/screening"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
	"clearing/pkg/requestcontext"
)

// Outcome of a payment submission.
type Outcome string

const (
	OutcomeTransmitted Outcome = "transmitted"
	OutcomeRejected    Outcome = "rejected"
)

// RejectedByNetwork marks a payment the clearing network refused after
// passing screening.
const RejectedByNetwork = "network"

// SubmissionResult reports what happened to a payment. A rejection is a
// business outcome, not an error; Alerts carries the reasons for audit.
type SubmissionResult struct {
	PaymentID    id.PaymentID
	Outcome      Outcome
	RejectedBy   string
	Alerts       []string
	Screening    screening.Outcome
	FraudVerdict screening.Verdict
	Route        *models.Route
	MessageID    string
	PayloadHash  string
	StatusCode   int
	Reference    string
	// Logged is false when the transmission succeeded but the OUTBOUND log
	// entry could not be written.
	Logged bool
}

// SubmitPayment screens a payment and, when no stage blocks it, generates a
// pacs.008 message and transmits it to the clearing network through the
// adapter. The transmission is logged as an OUTBOUND message.
func (s *Service) SubmitPayment(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, req models.PaymentRequest) (result *SubmissionResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "adapter.SubmitPayment", trace.WithAttributes(
		attribute.String("adapter.id", string(adapterID)),
		attribute.String("tenant.id", string(tenant.TenantID)),
		attribute.String("payment.id", string(req.PaymentID)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("payment.outcome", string(result.Outcome)))
			if s.metrics != nil {
				s.metrics.IncrementPayment(string(result.Outcome), string(result.FraudVerdict))
			}
		}
		span.End()
		s.observe("submit_payment", err, start)
	}()

	if s.transport == nil || s.secrets == nil || s.codec == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "payment submission is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = s.clock()
	}
	if requestcontext.CorrelationID(ctx) == "" {
		ctx = requestcontext.WithCorrelationID(ctx, string(req.PaymentID))
	}

	adapter, err := s.getAdapter(ctx, tenant, adapterID)
	if err != nil {
		return nil, err
	}

	outcome := s.screener.Screen(ctx, adapter, req, tenant)
	result = &SubmissionResult{
		PaymentID:    req.PaymentID,
		Screening:    outcome,
		FraudVerdict: outcome.FraudVerdict,
	}
	if outcome.Blocked() {
		result.Outcome = OutcomeRejected
		result.RejectedBy = outcome.BlockedBy
		result.Alerts = outcome.Alerts()
		s.logger.InfoContext(ctx, "payment rejected by screening",
			"adapter_id", string(adapterID),
			"tenant_id", string(tenant.TenantID),
			"payment_id", string(req.PaymentID),
			"stage", outcome.BlockedBy,
			"alerts", result.Alerts,
		)
		return result, nil
	}
	if outcome.FraudVerdict == screening.VerdictFlag {
		s.logger.WarnContext(ctx, "payment flagged for review",
			"adapter_id", string(adapterID),
			"payment_id", string(req.PaymentID),
			"fraud_score", outcome.Fraud.Score,
		)
	}
	if r, ok := adapter.ResolveRoute(req.Destination); ok {
		result.Route = &r
	}

	endpoint, err := s.resolveEndpoint(ctx, tenant, adapter)
	if err != nil {
		return nil, err
	}
	signingKey, err := s.signingKey(ctx, tenant)
	if err != nil {
		return nil, err
	}

	payload, err := s.codec.Generate(iso20022.CreditTransfer, paymentData(req))
	if err != nil {
		return nil, err
	}
	result.MessageID = iso20022.ExtractMessageID(payload)
	result.PayloadHash = s.codec.Hash(payload)

	resp, err := resilience.Call(ctx, s.pipeline(resilience.CategoryClearingSystem, tenant), "transmit_payment",
		func(ctx context.Context) (*ports.TransmitResponse, error) {
			return s.transport.Transmit(ctx, ports.TransmitRequest{
				AdapterID:   adapter.ID,
				Tenant:      tenant,
				Endpoint:    endpoint,
				APIVersion:  adapter.APIVersion,
				MessageType: string(iso20022.CreditTransfer),
				Payload:     payload,
				SigningKey:  []byte(signingKey),
			})
		}, nil, callOptions(adapter)...)

	var rejection *ports.NetworkRejection
	switch {
	case err == nil:
		result.Outcome = OutcomeTransmitted
		result.StatusCode = resp.StatusCode
		result.Reference = resp.Reference
	case dErrors.HasCode(err, dErrors.CodeRejected) && errors.As(err, &rejection):
		result.Outcome = OutcomeRejected
		result.RejectedBy = RejectedByNetwork
		result.StatusCode = rejection.StatusCode
		result.Alerts = []string{rejection.Error()}
	default:
		return nil, err
	}

	status := result.StatusCode
	_, logErr := s.logMessage(ctx, tenant, adapterID, LogMessageRequest{
		Direction:   models.DirectionOutbound,
		MessageType: iso20022.CreditTransfer.Short(),
		PayloadHash: result.PayloadHash,
		StatusCode:  &status,
	})
	result.Logged = logErr == nil
	if logErr != nil {
		s.logger.ErrorContext(ctx, "transmitted payment was not logged",
			"adapter_id", string(adapterID),
			"payment_id", string(req.PaymentID),
			"payload_hash", result.PayloadHash,
			"error", logErr,
		)
	}

	s.logger.InfoContext(ctx, "payment submitted",
		"adapter_id", string(adapterID),
		"tenant_id", string(tenant.TenantID),
		"payment_id", string(req.PaymentID),
		"outcome", string(result.Outcome),
		"status_code", result.StatusCode,
	)
	return result, nil
}

// ReceiveMessage validates an inbound ISO 20022 payload and logs it as an
// INBOUND message.
func (s *Service) ReceiveMessage(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, messageType, payload string) (entry models.MessageLogEntry, err error) {
	start := time.Now()
	defer func() { s.observe("receive_message", err, start) }()

	t, err := iso20022.ParseMessageType(messageType)
	if err != nil {
		return models.MessageLogEntry{}, dErrors.Wrap(err, dErrors.CodeUnsupported, "unsupported inbound message type")
	}
	if !iso20022.Validate(payload, t) {
		return models.MessageLogEntry{}, dErrors.Newf(dErrors.CodeValidation, "payload is not a valid %s message", t.Short())
	}
	return s.logMessage(ctx, tenant, adapterID, LogMessageRequest{
		Direction:   models.DirectionInbound,
		MessageType: t.Short(),
		PayloadHash: iso20022.Hash(payload),
	})
}

// resolveEndpoint returns the URL to transmit to. Discovery endpoints are
// resolved to the first healthy instance and cached briefly.
func (s *Service) resolveEndpoint(ctx context.Context, tenant id.TenantContext, a *models.ClearingAdapter) (string, error) {
	if !a.UsesDiscovery() {
		return a.Endpoint, nil
	}
	if s.discovery == nil {
		return "", dErrors.Newf(dErrors.CodeInvalidState, "adapter %s uses discovery but none is configured", a.ID)
	}

	key := cacheKey(tenant, a.ID) + ":endpoint"
	var endpoint string
	if s.cached(ctx, key, &endpoint) {
		return endpoint, nil
	}

	service := a.DiscoveryService()
	endpoint, err := resilience.Call(ctx, s.pipeline(resilience.CategoryConfigService, tenant), "resolve_endpoint",
		func(ctx context.Context) (string, error) {
			instances, err := s.discovery.ListInstances(ctx, service)
			if err != nil {
				return "", err
			}
			for _, in := range instances {
				if s.discovery.IsHealthy(ctx, in) {
					return strings.TrimRight(in.URL, "/"), nil
				}
			}
			return "", sentinel.ErrUnavailable
		}, nil)
	if err != nil {
		return "", err
	}
	s.remember(ctx, key, endpoint, endpointTTL)
	return endpoint, nil
}

func (s *Service) signingKey(ctx context.Context, tenant id.TenantContext) (string, error) {
	return resilience.Call(ctx, s.pipeline(resilience.CategoryAuthService, tenant), "get_signing_key",
		func(ctx context.Context) (string, error) {
			key, err := s.secrets.GetSecret(ctx, tenant, ports.SecretSigningKey)
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", dErrors.Newf(dErrors.CodeInvalidState, "tenant %s has no clearing signing key", tenant)
			}
			return key, err
		}, nil)
}

func paymentData(req models.PaymentRequest) iso20022.PaymentData {
	settlement := req.ValueDate
	if settlement.IsZero() {
		settlement = req.SubmittedAt
	}
	return iso20022.PaymentData{
		PaymentID:      string(req.PaymentID),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Debtor:         iso20022.Party{Name: req.Debtor.Name, Account: req.Debtor.Account, AgentBIC: req.Debtor.AgentBIC},
		Creditor:       iso20022.Party{Name: req.Creditor.Name, Account: req.Creditor.Account, AgentBIC: req.Creditor.AgentBIC},
		RemittanceInfo: req.RemittanceInfo,
		SettlementDate: settlement,
	}
}

package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/iso20022"
	"clearing/internal/resilience"
	"clearing/internal/screening"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
)

func (s *ServiceSuite) payment() models.PaymentRequest {
	return models.PaymentRequest{
		PaymentID: "PAY-1",
		Amount:    125_000_75,
		Currency:  "ZAR",
		Debtor: models.Party{
			Name: "Acme Mining", Account: "ZA001122", AgentBIC: "SBZAZAJJ", CustomerID: "C-88",
		},
		Creditor: models.Party{
			Name: "Karoo Logistics", Account: "ZA998877", AgentBIC: "FIRNZAJJ",
		},
		Destination:    "ZA",
		RemittanceInfo: "INV-2026-051",
		ValueDate:      s.now,
		SubmittedAt:    s.now,
	}
}

func (s *ServiceSuite) expectSigningKey() *gomock.Call {
	return s.mockSecrets.EXPECT().GetSecret(gomock.Any(), s.tenant, ports.SecretSigningKey).Return("s3cret-signing-key", nil)
}

func (s *ServiceSuite) TestSubmitPayment() {
	ctx := context.Background()

	s.Run("clean payment is transmitted and logged", func() {
		s.expectFind(s.activeAdapter).Times(2)
		s.expectSigningKey()
		var sent ports.TransmitRequest
		s.mockTransport.EXPECT().Transmit(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req ports.TransmitRequest) (*ports.TransmitResponse, error) {
				sent = req
				return &ports.TransmitResponse{StatusCode: 202, Reference: "NET-REF-1"}, nil
			})
		s.mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a *models.ClearingAdapter) error {
				s.Require().Len(a.MessageLog, 1)
				entry := a.MessageLog[0]
				s.Equal(models.DirectionOutbound, entry.Direction)
				s.Equal("pacs.008", entry.MessageType)
				s.Require().NotNil(entry.StatusCode)
				s.Equal(202, *entry.StatusCode)
				return nil
			})
		s.expectEvent(models.EventMessageLogged)

		res, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		s.Require().NoError(err)
		s.Equal(OutcomeTransmitted, res.Outcome)
		s.Equal(screening.VerdictPass, res.FraudVerdict)
		s.True(res.Logged)
		s.Equal("NET-REF-1", res.Reference)
		s.Require().NotNil(res.Route)
		s.Equal("r-za", res.Route.ID)
		s.Len(res.PayloadHash, 64)
		s.NotEmpty(res.MessageID)

		s.Equal("https://clearing.example/api", sent.Endpoint)
		s.Equal([]byte("s3cret-signing-key"), sent.SigningKey)
		s.True(iso20022.Validate(sent.Payload, iso20022.CreditTransfer))
		s.Equal(res.PayloadHash, iso20022.Hash(sent.Payload))
	})

	s.Run("compliance block stops before transmission", func() {
		s.expectFind(s.activeAdapter)
		req := s.payment()
		req.Creditor.Account = ""

		res, err := s.service.SubmitPayment(ctx, s.tenant, "A1", req)
		s.Require().NoError(err)
		s.Equal(OutcomeRejected, res.Outcome)
		s.Equal(screening.StageCompliance, res.RejectedBy)
		s.Contains(res.Alerts, "beneficiary account required")
		s.False(res.Screening.Compliance.IsCompliant())
		s.Nil(res.Screening.Fraud)
		s.Nil(res.Screening.Risk)
	})

	s.Run("inactive adapter is blocked by compliance", func() {
		s.expectFind(s.inactiveAdapter)

		res, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		s.Require().NoError(err)
		s.Equal(OutcomeRejected, res.Outcome)
		s.Contains(res.Alerts, "adapter is not active")
	})

	s.Run("network rejection is a business outcome and still logged", func() {
		s.expectFind(s.activeAdapter).Times(2)
		s.expectSigningKey()
		s.mockTransport.EXPECT().Transmit(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(&ports.NetworkRejection{StatusCode: 422, Body: "AC04"}, dErrors.CodeRejected, "rejected")).
			Times(1)
		s.expectSave()
		s.expectEvent(models.EventMessageLogged)

		res, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		s.Require().NoError(err)
		s.Equal(OutcomeRejected, res.Outcome)
		s.Equal(RejectedByNetwork, res.RejectedBy)
		s.Equal(422, res.StatusCode)
		s.True(res.Logged)
	})

	s.Run("transient network failure is an OperationFailure", func() {
		s.expectFind(s.activeAdapter)
		s.expectSigningKey()
		s.mockTransport.EXPECT().Transmit(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("clearing network returned 503")).
			Times(2)

		_, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		failure, ok := resilience.AsOperationFailure(err)
		s.Require().True(ok)
		s.Equal(resilience.CategoryClearingSystem, failure.Category)
		s.Equal("transmit_payment", failure.Operation)
	})

	s.Run("adapter retry setting lowers the attempt count", func() {
		s.expectFind(func() *models.ClearingAdapter {
			a := s.activeAdapter()
			a.RetryAttempts = 0
			return a
		})
		s.expectSigningKey()
		s.mockTransport.EXPECT().Transmit(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("clearing network returned 503")).
			Times(1)

		_, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		s.True(resilience.IsOperationFailure(err))
	})

	s.Run("missing signing key is InvalidState", func() {
		s.expectFind(s.activeAdapter)
		s.mockSecrets.EXPECT().GetSecret(gomock.Any(), s.tenant, ports.SecretSigningKey).Return("", sentinel.ErrNotFound)

		_, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("malformed request is a validation error", func() {
		req := s.payment()
		req.Amount = 0
		_, err := s.service.SubmitPayment(ctx, s.tenant, "A1", req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSubmitPaymentResolvesDiscoveryEndpoint() {
	ctx := context.Background()
	discovered := func() *models.ClearingAdapter {
		a := s.activeAdapter()
		a.Endpoint = "discovery://samos-gateway"
		return a
	}

	s.expectFind(discovered).Times(2)
	s.mockDiscovery.EXPECT().ListInstances(gomock.Any(), "samos-gateway").Return([]ports.Instance{
		{ID: "gw-1", Service: "samos-gateway", URL: "https://gw-1.internal"},
		{ID: "gw-2", Service: "samos-gateway", URL: "https://gw-2.internal/"},
	}, nil)
	s.mockDiscovery.EXPECT().IsHealthy(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in ports.Instance) bool { return in.ID == "gw-2" }).
		Times(2)
	s.expectSigningKey()
	s.mockTransport.EXPECT().Transmit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.TransmitRequest) (*ports.TransmitResponse, error) {
			s.Equal("https://gw-2.internal", req.Endpoint)
			return &ports.TransmitResponse{StatusCode: 202}, nil
		})
	s.expectSave()
	s.expectEvent(models.EventMessageLogged)

	res, err := s.service.SubmitPayment(ctx, s.tenant, "A1", s.payment())
	s.Require().NoError(err)
	s.Equal(OutcomeTransmitted, res.Outcome)
}

func (s *ServiceSuite) TestReceiveMessage() {
	ctx := context.Background()
	payload, err := s.codec.Generate(iso20022.PaymentStatusReport, iso20022.PaymentData{
		OriginalMessageID: "MSG-1", Status: "ACSC",
	})
	s.Require().NoError(err)

	s.Run("valid payload is logged INBOUND", func() {
		s.expectFind(s.activeAdapter)
		s.expectSave()
		s.expectEvent(models.EventMessageLogged)

		e, err := s.service.ReceiveMessage(ctx, s.tenant, "A1", "pacs.002", payload)
		s.Require().NoError(err)
		s.Equal(models.DirectionInbound, e.Direction)
		s.Equal("pacs.002", e.MessageType)
		s.Equal(iso20022.Hash(payload), e.PayloadHash)
		s.Nil(e.StatusCode)
	})

	s.Run("payload of another type is rejected", func() {
		_, err := s.service.ReceiveMessage(ctx, s.tenant, "A1", "camt.054", payload)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown type is unsupported", func() {
		_, err := s.service.ReceiveMessage(ctx, s.tenant, "A1", "pain.001", payload)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupported))
	})
}

func (s *ServiceSuite) TestSubmitPaymentWithoutTransport() {
	svc := New(s.mockRepo, WithClock(s.clock))
	_, err := svc.SubmitPayment(context.Background(), s.tenant, id.AdapterID("A1"), s.payment())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

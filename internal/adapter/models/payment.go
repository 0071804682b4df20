package models

import (
	"strings"
	"time"

	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

// Party is one side of a payment.
type Party struct {
	Name       string `json:"name"`
	Account    string `json:"account"`
	AgentBIC   string `json:"agent_bic,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

// PaymentRequest is a payment a caller wants sent to the clearing network.
// Amount is in minor units of Currency.
type PaymentRequest struct {
	PaymentID      id.PaymentID `json:"payment_id"`
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	Debtor         Party        `json:"debtor"`
	Creditor       Party        `json:"creditor"`
	Destination    string       `json:"destination"`
	RemittanceInfo string       `json:"remittance_info,omitempty"`
	ValueDate      time.Time    `json:"value_date"`
	SubmittedAt    time.Time    `json:"submitted_at"`
}

// Validate checks the request is well formed. Missing party details are
// left to compliance screening so they surface as alerts, not errors.
func (p PaymentRequest) Validate() error {
	if strings.TrimSpace(string(p.PaymentID)) == "" {
		return dErrors.New(dErrors.CodeValidation, "payment id is required")
	}
	if p.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if len(p.Currency) != 3 || strings.ToUpper(p.Currency) != p.Currency {
		return dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO 4217 code")
	}
	return nil
}

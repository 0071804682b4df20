package iso20022

import (
	"fmt"
	"strings"
	"time"
)

// MessageType is one of the ISO 20022 message definitions the adapter speaks.
type MessageType string

const (
	// CreditTransfer is the FI-to-FI customer credit transfer (pacs.008).
	CreditTransfer MessageType = "pacs.008.001.08"
	// PaymentStatusReport reports the status of a previous instruction (pacs.002).
	PaymentStatusReport MessageType = "pacs.002.001.10"
	// DebitCreditNotification notifies an account owner of a booked entry (camt.054).
	DebitCreditNotification MessageType = "camt.054.001.08"
)

// SupportedTypes lists every type Generate and Validate understand.
var SupportedTypes = []MessageType{CreditTransfer, PaymentStatusReport, DebitCreditNotification}

// ParseMessageType accepts the full identifier ("pacs.008.001.08"), the
// short family name ("pacs.008") or the Go constant name ("CreditTransfer").
func ParseMessageType(s string) (MessageType, error) {
	s = strings.TrimSpace(s)
	for _, t := range SupportedTypes {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Short()) || strings.EqualFold(s, t.Name()) {
			return t, nil
		}
	}
	return "", &UnsupportedMessageTypeError{Type: s}
}

// Short returns the message family, e.g. "pacs.008". Log entries record this form.
func (t MessageType) Short() string {
	parts := strings.SplitN(string(t), ".", 3)
	if len(parts) < 2 {
		return string(t)
	}
	return parts[0] + "." + parts[1]
}

// Name returns the human-readable name of the message type.
func (t MessageType) Name() string {
	switch t {
	case CreditTransfer:
		return "CreditTransfer"
	case PaymentStatusReport:
		return "PaymentStatusReport"
	case DebitCreditNotification:
		return "DebitCreditNotification"
	}
	return string(t)
}

// Namespace is the XML namespace of the Document root.
func (t MessageType) Namespace() string {
	return "urn:iso:std:iso:20022:tech:xsd:" + string(t)
}

func (t MessageType) IsSupported() bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// UnsupportedMessageTypeError is returned for message types outside SupportedTypes.
type UnsupportedMessageTypeError struct {
	Type string
}

func (e *UnsupportedMessageTypeError) Error() string {
	return fmt.Sprintf("unsupported ISO 20022 message type %q", e.Type)
}

// Party is a debtor or creditor with its account and servicing agent.
type Party struct {
	Name     string
	Account  string
	AgentBIC string
}

// PaymentData is the input to Generate. Which fields are read depends on the
// message type; unused fields are ignored.
type PaymentData struct {
	// PaymentID becomes the EndToEndId. A fresh id is generated when empty.
	PaymentID      string
	Amount         int64 // minor units
	Currency       string
	Debtor         Party
	Creditor       Party
	RemittanceInfo string
	SettlementDate time.Time

	// Status report fields (pacs.002).
	OriginalMessageID  string
	OriginalEndToEndID string
	Status             string // ACSC, ACSP, RJCT, PDNG
	ReasonCode         string

	// Notification fields (camt.054).
	AccountID   string
	CreditDebit string // CRDT or DBIT
	BookingDate time.Time
}

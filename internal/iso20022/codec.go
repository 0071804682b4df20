// Package iso20022 generates, sniff-validates and hashes the ISO 20022
// messages exchanged with the clearing network.
//
// Validate is a structural check (declaration, root namespace and the
// elements that identify a message type). It is not XSD validation: a payload
// that passes Validate can still be rejected by the network's schema check.
package iso20022

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	dErrors "clearing/pkg/domain-errors"
)

const declarationPrefix = `<?xml version="1.0"`

// Codec generates messages with fresh identifiers on every call.
type Codec struct {
	node  *snowflake.Node
	clock func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for creation timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Codec) {
		c.clock = clock
	}
}

// New creates a Codec whose message ids come from the given snowflake node
// (0-1023). Distinct processes must use distinct nodes.
func New(nodeID int64, opts ...Option) (*Codec, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create message id node: %w", err)
	}
	c := &Codec{node: node, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate renders data as a messageType payload. Message, instruction and
// transaction ids are freshly generated on each call, so two calls with the
// same data produce different payloads.
func (c *Codec) Generate(messageType MessageType, data PaymentData) (string, error) {
	if !messageType.IsSupported() {
		return "", dErrors.Wrap(&UnsupportedMessageTypeError{Type: string(messageType)},
			dErrors.CodeUnsupported, "cannot generate message")
	}
	if err := validateData(messageType, data); err != nil {
		return "", err
	}

	now := c.clock().UTC()
	var doc any
	switch messageType {
	case CreditTransfer:
		doc = c.creditTransfer(data, now)
	case PaymentStatusReport:
		doc = c.statusReport(data, now)
	case DebitCreditNotification:
		doc = c.notification(data, now)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode message")
	}
	return buf.String(), nil
}

// Validate reports whether payload looks like a messageType message.
func (c *Codec) Validate(payload string, messageType MessageType) bool {
	return Validate(payload, messageType)
}

// Hash returns the lowercase hex SHA-256 of payload.
func (c *Codec) Hash(payload string) string {
	return Hash(payload)
}

// Validate is the package-level form of Codec.Validate; it needs no id node.
func Validate(payload string, messageType MessageType) bool {
	markers, ok := structuralMarkers[messageType]
	if !ok {
		return false
	}
	trimmed := strings.TrimLeft(payload, "\ufeff \t\r\n")
	if trimmed == "" || !strings.HasPrefix(trimmed, declarationPrefix) {
		return false
	}
	if !strings.Contains(trimmed, `<Document xmlns="`+messageType.Namespace()+`"`) {
		return false
	}
	for _, m := range markers {
		if !strings.Contains(trimmed, m) {
			return false
		}
	}
	return true
}

// Hash returns the lowercase hex SHA-256 of the UTF-8 bytes of payload.
func Hash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// structuralMarkers are the elements that make each message type identifiable.
var structuralMarkers = map[MessageType][]string{
	CreditTransfer:          {"<FIToFICstmrCdtTrf>", "<CdtTrfTxInf>", "<IntrBkSttlmAmt "},
	PaymentStatusReport:     {"<FIToFIPmtStsRpt>", "<OrgnlGrpInfAndSts>", "<TxInfAndSts>"},
	DebitCreditNotification: {"<BkToCstmrDbtCdtNtfctn>", "<Ntfctn>", "<Ntry>"},
}

// ExtractMessageID returns the first GrpHdr/MsgId in payload, or "" when the
// payload is not well-formed or carries none.
func ExtractMessageID(payload string) string {
	dec := xml.NewDecoder(strings.NewReader(payload))
	inMsgID := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inMsgID = t.Name.Local == "MsgId"
		case xml.CharData:
			if inMsgID {
				return strings.TrimSpace(string(t))
			}
		case xml.EndElement:
			inMsgID = false
		}
	}
}

func (c *Codec) newID(prefix string) string {
	return prefix + c.node.Generate().String()
}

func (c *Codec) creditTransfer(d PaymentData, now time.Time) creditTransferDocument {
	e2e := d.PaymentID
	if e2e == "" {
		e2e = c.newID("E2E")
	}
	settlement := d.SettlementDate
	if settlement.IsZero() {
		settlement = now
	}
	return creditTransferDocument{
		Xmlns: CreditTransfer.Namespace(),
		Body: creditTransferHeader{
			GroupHeader: groupHeader{
				MsgID:          c.newID("M"),
				CreatedAt:      formatDateTime(now),
				NbOfTxs:        1,
				SettlementMthd: "CLRG",
			},
			Tx: creditTransferTxInf{
				InstrID:        c.newID("I"),
				EndToEndID:     e2e,
				TxID:           c.newID("T"),
				SettlementAmt:  amount{Currency: d.Currency, Value: FormatAmount(d.Amount, d.Currency)},
				SettlementDate: settlement.Format(time.DateOnly),
				ChargeBearer:   "SLEV",
				DebtorName:     d.Debtor.Name,
				DebtorAccount:  accountID{Other: d.Debtor.Account},
				DebtorAgent:    finInstnID{BICFI: d.Debtor.AgentBIC},
				CreditorAgent:  finInstnID{BICFI: d.Creditor.AgentBIC},
				CreditorName:   d.Creditor.Name,
				CreditorAcct:   accountID{Other: d.Creditor.Account},
				Remittance:     d.RemittanceInfo,
			},
		},
	}
}

func (c *Codec) statusReport(d PaymentData, now time.Time) statusReportDocument {
	status := d.Status
	if status == "" {
		status = "ACSP"
	}
	return statusReportDocument{
		Xmlns: PaymentStatusReport.Namespace(),
		Body: statusReportHeader{
			GroupHeader: groupHeader{
				MsgID:     c.newID("M"),
				CreatedAt: formatDateTime(now),
			},
			Original: originalGroupInfo{
				OriginalMsgID:   d.OriginalMessageID,
				OriginalMsgName: string(CreditTransfer),
				GroupStatus:     status,
			},
			Tx: txInfAndStatus{
				StatusID:           c.newID("S"),
				OriginalEndToEndID: d.OriginalEndToEndID,
				Status:             status,
				ReasonCode:         d.ReasonCode,
			},
		},
	}
}

func (c *Codec) notification(d PaymentData, now time.Time) notificationDocument {
	booking := d.BookingDate
	if booking.IsZero() {
		booking = now
	}
	e2e := d.PaymentID
	if e2e == "" {
		e2e = c.newID("E2E")
	}
	return notificationDocument{
		Xmlns: DebitCreditNotification.Namespace(),
		Body: notificationHeader{
			GroupHeader: groupHeader{
				MsgID:     c.newID("M"),
				CreatedAt: formatDateTime(now),
			},
			Notification: notification{
				ID:        c.newID("N"),
				CreatedAt: formatDateTime(now),
				Account:   accountID{Other: d.AccountID},
				Entry: entry{
					Amount:      amount{Currency: d.Currency, Value: FormatAmount(d.Amount, d.Currency)},
					CreditDebit: d.CreditDebit,
					Status:      "BOOK",
					BookingDate: booking.Format(time.DateOnly),
					EndToEndID:  e2e,
				},
			},
		},
	}
}

func validateData(t MessageType, d PaymentData) error {
	switch t {
	case CreditTransfer:
		if err := validateAmount(d.Amount, d.Currency); err != nil {
			return err
		}
	case PaymentStatusReport:
		if strings.TrimSpace(d.OriginalMessageID) == "" && strings.TrimSpace(d.OriginalEndToEndID) == "" {
			return dErrors.New(dErrors.CodeValidation, "status report requires an original message or end-to-end id")
		}
		if d.Status != "" && !validStatus[d.Status] {
			return dErrors.Newf(dErrors.CodeValidation, "unknown transaction status %q", d.Status)
		}
	case DebitCreditNotification:
		if err := validateAmount(d.Amount, d.Currency); err != nil {
			return err
		}
		if d.CreditDebit != "CRDT" && d.CreditDebit != "DBIT" {
			return dErrors.New(dErrors.CodeValidation, "credit/debit indicator must be CRDT or DBIT")
		}
		if strings.TrimSpace(d.AccountID) == "" {
			return dErrors.New(dErrors.CodeValidation, "notification requires an account id")
		}
	}
	return nil
}

var validStatus = map[string]bool{"ACSC": true, "ACSP": true, "ACCP": true, "RJCT": true, "PDNG": true}

func validateAmount(minor int64, currency string) error {
	if minor < 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	if len(currency) != 3 || strings.ToUpper(currency) != currency {
		return dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO 4217 code")
	}
	return nil
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

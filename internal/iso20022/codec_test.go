package iso20022

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "clearing/pkg/domain-errors"
)

type CodecSuite struct {
	suite.Suite
	codec *Codec
	now   time.Time
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	codec, err := New(7, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.codec = codec
}

func sampleData() map[MessageType]PaymentData {
	return map[MessageType]PaymentData{
		CreditTransfer: {
			PaymentID: "PAY-0001",
			Amount:    1250075,
			Currency:  "ZAR",
			Debtor:    Party{Name: "Acme Ltd", Account: "62000000001", AgentBIC: "FIRNZAJJ"},
			Creditor:  Party{Name: "Widget Co", Account: "10100000002", AgentBIC: "SBZAZAJJ"},
		},
		PaymentStatusReport: {
			OriginalMessageID:  "M123",
			OriginalEndToEndID: "PAY-0001",
			Status:             "ACSC",
		},
		DebitCreditNotification: {
			PaymentID:   "PAY-0001",
			Amount:      500,
			Currency:    "ZAR",
			AccountID:   "62000000001",
			CreditDebit: "CRDT",
		},
	}
}

// TestRoundTrip verifies every generated payload passes Validate for its own type.
func (s *CodecSuite) TestRoundTrip() {
	for msgType, data := range sampleData() {
		s.Run(msgType.Name(), func() {
			payload, err := s.codec.Generate(msgType, data)
			s.Require().NoError(err)
			s.True(strings.HasPrefix(payload, `<?xml version="1.0" encoding="UTF-8"?>`))
			s.True(s.codec.Validate(payload, msgType))
		})
	}
}

func (s *CodecSuite) TestGenerateContent() {
	s.Run("credit transfer carries amount and parties", func() {
		payload, err := s.codec.Generate(CreditTransfer, sampleData()[CreditTransfer])
		s.Require().NoError(err)
		s.Contains(payload, `<IntrBkSttlmAmt Ccy="ZAR">12500.75</IntrBkSttlmAmt>`)
		s.Contains(payload, "<EndToEndId>PAY-0001</EndToEndId>")
		s.Contains(payload, "<BICFI>SBZAZAJJ</BICFI>")
		s.Contains(payload, "<IntrBkSttlmDt>2026-03-02</IntrBkSttlmDt>")
	})

	s.Run("ids are fresh per call", func() {
		data := sampleData()[CreditTransfer]
		first, err := s.codec.Generate(CreditTransfer, data)
		s.Require().NoError(err)
		second, err := s.codec.Generate(CreditTransfer, data)
		s.Require().NoError(err)
		s.NotEqual(first, second)
		s.NotEqual(ExtractMessageID(first), ExtractMessageID(second))
		s.NotEqual(Hash(first), Hash(second))
	})

	s.Run("message id fits the 35 character limit", func() {
		payload, err := s.codec.Generate(PaymentStatusReport, sampleData()[PaymentStatusReport])
		s.Require().NoError(err)
		msgID := ExtractMessageID(payload)
		s.NotEmpty(msgID)
		s.LessOrEqual(len(msgID), 35)
	})
}

func (s *CodecSuite) TestGenerateRejectsBadInput() {
	s.Run("unsupported type", func() {
		_, err := s.codec.Generate(MessageType("pain.001.001.09"), PaymentData{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupported))
		var unsupported *UnsupportedMessageTypeError
		s.True(errors.As(err, &unsupported))
		s.Equal("pain.001.001.09", unsupported.Type)
	})

	s.Run("negative amount", func() {
		data := sampleData()[CreditTransfer]
		data.Amount = -1
		_, err := s.codec.Generate(CreditTransfer, data)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("lowercase currency", func() {
		data := sampleData()[CreditTransfer]
		data.Currency = "zar"
		_, err := s.codec.Generate(CreditTransfer, data)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("status report without original reference", func() {
		_, err := s.codec.Generate(PaymentStatusReport, PaymentData{Status: "ACSC"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("notification with bad indicator", func() {
		data := sampleData()[DebitCreditNotification]
		data.CreditDebit = "BOTH"
		_, err := s.codec.Generate(DebitCreditNotification, data)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *CodecSuite) TestValidateRejects() {
	valid, err := s.codec.Generate(CreditTransfer, sampleData()[CreditTransfer])
	s.Require().NoError(err)

	s.Run("empty and blank payloads", func() {
		s.False(Validate("", CreditTransfer))
		s.False(Validate("   \n\t", CreditTransfer))
	})

	s.Run("missing declaration", func() {
		body := strings.TrimPrefix(valid, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")
		s.False(Validate(body, CreditTransfer))
	})

	s.Run("wrong message type", func() {
		s.False(Validate(valid, PaymentStatusReport))
		s.False(Validate(valid, DebitCreditNotification))
	})

	s.Run("missing settlement amount", func() {
		broken := strings.Replace(valid, "<IntrBkSttlmAmt ", "<Amount ", 1)
		s.False(Validate(broken, CreditTransfer))
	})

	s.Run("missing transaction block", func() {
		broken := strings.ReplaceAll(valid, "CdtTrfTxInf", "Other")
		s.False(Validate(broken, CreditTransfer))
	})

	s.Run("unknown type never validates", func() {
		s.False(Validate(valid, MessageType("pacs.999")))
	})

	s.Run("leading whitespace is tolerated", func() {
		s.True(Validate("\n  "+valid, CreditTransfer))
	})
}

func TestHash(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		// sha256("abc")
		want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
		if got := Hash("abc"); got != want {
			t.Fatalf("Hash(abc) = %s, want %s", got, want)
		}
	})

	t.Run("deterministic and distinct", func(t *testing.T) {
		corpus := []string{"", " ", "a", "A", "<Document/>", "<Document />", "pacs.008", "pacs.008\n"}
		seen := map[string]string{}
		for _, p := range corpus {
			h := Hash(p)
			if h != Hash(p) {
				t.Fatalf("hash of %q is not deterministic", p)
			}
			if len(h) != 64 || strings.ToLower(h) != h {
				t.Fatalf("hash of %q is not lowercase hex: %s", p, h)
			}
			if prev, dup := seen[h]; dup {
				t.Fatalf("collision between %q and %q", prev, p)
			}
			seen[h] = p
		}
	})
}

func TestParseMessageType(t *testing.T) {
	cases := map[string]MessageType{
		"pacs.008.001.08":         CreditTransfer,
		"pacs.008":                CreditTransfer,
		"CreditTransfer":          CreditTransfer,
		"pacs.002":                PaymentStatusReport,
		"camt.054":                DebitCreditNotification,
		"DebitCreditNotification": DebitCreditNotification,
	}
	for in, want := range cases {
		got, err := ParseMessageType(in)
		if err != nil || got != want {
			t.Fatalf("ParseMessageType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMessageType("pain.001"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{0, "ZAR", "0.00"},
		{5, "ZAR", "0.05"},
		{100, "USD", "1.00"},
		{1250075, "ZAR", "12500.75"},
		{1500, "JPY", "1500"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.minor, c.currency); got != c.want {
			t.Fatalf("FormatAmount(%d, %s) = %s, want %s", c.minor, c.currency, got, c.want)
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"clearing/internal/iso20022"
)

// errInvalid makes validate exit non-zero without cobra printing usage.
var errInvalid = errors.New("payload is not valid")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "isoctl",
		Short:         "Generate, validate and hash ISO 20022 clearing messages",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(generateCmd(), validateCmd(), hashCmd(), typesCmd())
	return root
}

// paymentFile is the YAML (or JSON) input of generate.
type paymentFile struct {
	PaymentID      string    `yaml:"paymentId"`
	Amount         int64     `yaml:"amount"`
	Currency       string    `yaml:"currency"`
	Debtor         partyFile `yaml:"debtor"`
	Creditor       partyFile `yaml:"creditor"`
	RemittanceInfo string    `yaml:"remittanceInfo"`
	SettlementDate string    `yaml:"settlementDate"`

	OriginalMessageID  string `yaml:"originalMessageId"`
	OriginalEndToEndID string `yaml:"originalEndToEndId"`
	Status             string `yaml:"status"`
	ReasonCode         string `yaml:"reasonCode"`

	AccountID   string `yaml:"accountId"`
	CreditDebit string `yaml:"creditDebit"`
	BookingDate string `yaml:"bookingDate"`
}

type partyFile struct {
	Name     string `yaml:"name"`
	Account  string `yaml:"account"`
	AgentBIC string `yaml:"agentBic"`
}

func (p paymentFile) toData() (iso20022.PaymentData, error) {
	settlement, err := parseDate(p.SettlementDate)
	if err != nil {
		return iso20022.PaymentData{}, fmt.Errorf("settlementDate: %w", err)
	}
	booking, err := parseDate(p.BookingDate)
	if err != nil {
		return iso20022.PaymentData{}, fmt.Errorf("bookingDate: %w", err)
	}
	return iso20022.PaymentData{
		PaymentID:          p.PaymentID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		Debtor:             iso20022.Party(p.Debtor),
		Creditor:           iso20022.Party(p.Creditor),
		RemittanceInfo:     p.RemittanceInfo,
		SettlementDate:     settlement,
		OriginalMessageID:  p.OriginalMessageID,
		OriginalEndToEndID: p.OriginalEndToEndID,
		Status:             p.Status,
		ReasonCode:         p.ReasonCode,
		AccountID:          p.AccountID,
		CreditDebit:        p.CreditDebit,
		BookingDate:        booking,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func generateCmd() *cobra.Command {
	var (
		messageType string
		input       string
		node        int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a payment description as an ISO 20022 message",
		Example: `  isoctl generate --type pacs.008 --input payment.yaml
  cat status.yaml | isoctl generate --type pacs.002`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := iso20022.ParseMessageType(messageType)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			var file paymentFile
			if err := yaml.Unmarshal(raw, &file); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}
			data, err := file.toData()
			if err != nil {
				return err
			}
			codec, err := iso20022.New(node)
			if err != nil {
				return err
			}
			payload, err := codec.Generate(t, data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), payload)
			return err
		},
	}
	cmd.Flags().StringVarP(&messageType, "type", "t", "pacs.008", "Message type (pacs.008, pacs.002, camt.054)")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "YAML or JSON input file, - for stdin")
	cmd.Flags().Int64Var(&node, "node", 1, "Snowflake node id for message ids")
	return cmd
}

func validateCmd() *cobra.Command {
	var messageType string
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check that a payload is a well-formed message of the given type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := iso20022.ParseMessageType(messageType)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, firstOr(args, "-"))
			if err != nil {
				return err
			}
			if !iso20022.Validate(strings.TrimSpace(string(raw)), t) {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid %s\n", t.Short())
				return errInvalid
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid %s\n", t.Short())
			return err
		},
	}
	cmd.Flags().StringVarP(&messageType, "type", "t", "pacs.008", "Message type (pacs.008, pacs.002, camt.054)")
	return cmd
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [file]",
		Short: "Print the SHA-256 hash recorded in the message log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, firstOr(args, "-"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), iso20022.Hash(strings.TrimSpace(string(raw))))
			return err
		},
	}
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List supported message types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range iso20022.SupportedTypes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-18s %s\n", t.Short(), string(t), t.Name())
			}
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func firstOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

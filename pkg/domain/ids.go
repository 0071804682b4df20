package domain

import (
	"strings"

	dErrors "clearing/pkg/domain-errors"
)

// Typed identifiers keep tenant, business unit and adapter ids from being
// passed in each other's place.
type (
	TenantID       string
	BusinessUnitID string
	AdapterID      string
	PaymentID      string
)

func (t TenantID) String() string       { return string(t) }
func (b BusinessUnitID) String() string { return string(b) }
func (a AdapterID) String() string      { return string(a) }
func (p PaymentID) String() string      { return string(p) }

func (t TenantID) IsNil() bool  { return strings.TrimSpace(string(t)) == "" }
func (a AdapterID) IsNil() bool { return strings.TrimSpace(string(a)) == "" }

// ParseAdapterID trims and validates an adapter id received at a trust boundary.
func ParseAdapterID(s string) (AdapterID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "adapter id is required")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "adapter id must be 64 characters or less")
	}
	return AdapterID(s), nil
}

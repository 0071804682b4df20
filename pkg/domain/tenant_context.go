package domain

import (
	"strings"

	dErrors "clearing/pkg/domain-errors"
)

// TenantContext scopes every operation to one customer organisation.
// It is a value type: pass it by value, never share a pointer to it.
type TenantContext struct {
	TenantID       TenantID       `json:"tenant_id"`
	BusinessUnitID BusinessUnitID `json:"business_unit_id"`
}

// NewTenantContext normalises and validates the tenant pair.
func NewTenantContext(tenantID, businessUnitID string) (TenantContext, error) {
	tc := TenantContext{
		TenantID:       TenantID(strings.TrimSpace(tenantID)),
		BusinessUnitID: BusinessUnitID(strings.TrimSpace(businessUnitID)),
	}
	if err := tc.Validate(); err != nil {
		return TenantContext{}, err
	}
	return tc, nil
}

// Validate checks that both halves of the pair are present.
func (tc TenantContext) Validate() error {
	if tc.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	if strings.TrimSpace(string(tc.BusinessUnitID)) == "" {
		return dErrors.New(dErrors.CodeValidation, "business unit id is required")
	}
	return nil
}

// Namespace is the stable key prefix for tenant-scoped storage
// (secrets, cache entries): "tenant/<tenant>/<business-unit>".
func (tc TenantContext) Namespace() string {
	return "tenant/" + string(tc.TenantID) + "/" + string(tc.BusinessUnitID)
}

func (tc TenantContext) String() string {
	return string(tc.TenantID) + ":" + string(tc.BusinessUnitID)
}

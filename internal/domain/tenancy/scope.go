// Package tenancy models the tenant isolation boundary.
//
// Every persistence call in the system is parameterized by an AccessScope:
// a tagged value that is either scoped to exactly one tenant or explicitly
// unrestricted (system/admin callers only). The scope is resolved once per
// request from the authenticated identity and passed down explicitly; it is
// never read from ambient/global state and never cached across requests.
package tenancy

import (
	"github.com/google/uuid"

	"github.com/caixaops/backend/internal/domain/shared"
)

// AccessScope carries the caller's tenant visibility.
// The zero value is invalid; construct via ScopedTo or Unrestricted.
type AccessScope struct {
	tenantID     uuid.UUID
	unrestricted bool
	valid        bool
}

// ScopedTo returns a scope restricted to a single tenant
func ScopedTo(tenantID uuid.UUID) AccessScope {
	return AccessScope{tenantID: tenantID, valid: tenantID != uuid.Nil}
}

// Unrestricted returns a scope with no tenant restriction.
// Only system/admin identities may carry it.
func Unrestricted() AccessScope {
	return AccessScope{unrestricted: true, valid: true}
}

// IsValid reports whether the scope was properly constructed
func (s AccessScope) IsValid() bool {
	return s.valid
}

// IsUnrestricted reports whether the scope bypasses tenant filtering
func (s AccessScope) IsUnrestricted() bool {
	return s.valid && s.unrestricted
}

// TenantID returns the tenant the scope is restricted to.
// The second return value is false for unrestricted scopes.
func (s AccessScope) TenantID() (uuid.UUID, bool) {
	if !s.valid || s.unrestricted {
		return uuid.Nil, false
	}
	return s.tenantID, true
}

// CanAccess reports whether a row owned by the given tenant is visible
func (s AccessScope) CanAccess(tenantID uuid.UUID) bool {
	if !s.valid {
		return false
	}
	if s.unrestricted {
		return true
	}
	return s.tenantID == tenantID
}

// GuardWrite validates that a row with the given owner tenant may be written
// under this scope. Cross-tenant writes are the TENANT_MISMATCH security event.
func (s AccessScope) GuardWrite(rowTenantID uuid.UUID) error {
	if !s.valid {
		return shared.NewDomainError("INVALID_SCOPE", "Access scope was not resolved for this request")
	}
	if s.unrestricted {
		return nil
	}
	if rowTenantID != s.tenantID {
		return shared.ErrTenantMismatch
	}
	return nil
}

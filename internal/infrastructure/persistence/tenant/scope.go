// Package tenant applies tenant isolation at the GORM layer.
//
// Repositories translate the caller's explicitly passed tenancy.AccessScope
// into a WHERE tenant_id = ? condition via Scope. A second, defense-in-depth
// layer of GORM callbacks (callback.go) refuses to execute any statement
// against a guarded table that carries neither a tenant condition nor the
// unrestricted marker, so a repository bug cannot silently widen a query
// across tenants.
package tenant

import (
	"errors"

	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/tenancy"
)

// unrestrictedSetting marks a statement as intentionally tenant-unrestricted
const unrestrictedSetting = "tenant:unrestricted"

// ErrScopeRequired is returned when a query runs without a resolved access scope
var ErrScopeRequired = errors.New("access scope is required but was not resolved")

// ErrUnscopedQuery is returned by the guard callbacks when a statement on a
// tenant-owned table carries no tenant condition and no unrestricted marker
var ErrUnscopedQuery = errors.New("query on tenant-owned table without tenant scope")

// Scope returns a GORM scope applying the access scope's tenant filter.
// Unrestricted scopes add no condition but mark the statement so the guard
// callbacks know the bypass was deliberate.
func Scope(scope tenancy.AccessScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !scope.IsValid() {
			_ = db.AddError(ErrScopeRequired)
			return db
		}
		if scope.IsUnrestricted() {
			return db.Set(unrestrictedSetting, true)
		}
		tenantID, _ := scope.TenantID()
		return db.Where("tenant_id = ?", tenantID)
	}
}

package tenant

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuardCallback provides GORM callback hooks that reject statements against
// tenant-owned tables when no tenant condition is present. Unlike an
// auto-filter, it never injects a tenant value itself; the scope must come
// from the repository via Scope, or the statement must carry the
// unrestricted marker.
type GuardCallback struct {
	tenantColumn  string
	guardedTables map[string]struct{}
}

// NewGuardCallback creates a guard for the given tables
func NewGuardCallback(tenantColumn string, tables ...string) *GuardCallback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	guarded := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		guarded[t] = struct{}{}
	}
	return &GuardCallback{
		tenantColumn:  tenantColumn,
		guardedTables: guarded,
	}
}

// RegisterCallbacks registers the guard with GORM
func (gc *GuardCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:guard_query", gc.guard)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:guard_update", gc.guard)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:guard_delete", gc.guard)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:guard_row", gc.guard)

	// Create statements are not guarded here; the owning tenant is a column
	// value on insert and is validated by the aggregates before save.
}

func (gc *GuardCallback) guard(db *gorm.DB) {
	// A statement that already failed (for example on scope resolution)
	// keeps its original error; stacking the guard error on top would
	// flatten it into a string and break errors.Is for callers.
	if db.Error != nil {
		return
	}

	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if _, ok := gc.guardedTables[table]; !ok {
		return
	}

	if _, ok := db.Get(unrestrictedSetting); ok {
		return
	}

	if gc.hasTenantCondition(db) {
		return
	}

	_ = db.AddError(ErrUnscopedQuery)
}

// hasTenantCondition checks whether a tenant_id condition is already present
func (gc *GuardCallback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if gc.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	return sql != "" && strings.Contains(sql, gc.tenantColumn)
}

func (gc *GuardCallback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == gc.tenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == gc.tenantColumn
		}
	case clause.Expr:
		return strings.Contains(e.SQL, gc.tenantColumn)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if gc.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if gc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

// EnableGuards installs the tenant guard for the platform's tenant-owned
// tables on a GORM DB instance
func EnableGuards(db *gorm.DB) {
	gc := NewGuardCallback("tenant_id",
		"closings",
		"closing_audit_trail",
		"revenue_entries",
		"units",
		"users",
	)
	gc.RegisterCallbacks(db)
}

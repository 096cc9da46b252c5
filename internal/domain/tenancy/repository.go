package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository provides access to tenant records.
// Tenants themselves are system-level rows; callers still pass the scope so
// tenant-scoped identities can only ever read their own tenant.
type TenantRepository interface {
	FindByID(ctx context.Context, scope AccessScope, id uuid.UUID) (*Tenant, error)
	FindAllActive(ctx context.Context, scope AccessScope) ([]Tenant, error)
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	Save(ctx context.Context, scope AccessScope, tenant *Tenant) error
	Update(ctx context.Context, scope AccessScope, tenant *Tenant) error
}

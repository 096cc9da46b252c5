package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	persistencetenant "github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

// GormTenantRepository implements tenancy.TenantRepository using GORM.
// The tenants table is a system-level table without a tenant_id column, so it
// sits outside the guard callbacks; the scope checks here keep tenant-scoped
// identities from reading anyone else's row.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by ID. A tenant-scoped caller can only read its
// own tenant; anything else reports not found rather than existence.
func (r *GormTenantRepository) FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*tenancy.Tenant, error) {
	if !scope.IsValid() {
		return nil, persistencetenant.ErrScopeRequired
	}
	if !scope.CanAccess(id) {
		return nil, shared.ErrNotFound
	}

	var t tenancy.Tenant
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAllActive lists tenants that may use the platform. Tenant-scoped
// callers see at most their own tenant.
func (r *GormTenantRepository) FindAllActive(ctx context.Context, scope tenancy.AccessScope) ([]tenancy.Tenant, error) {
	if !scope.IsValid() {
		return nil, persistencetenant.ErrScopeRequired
	}

	query := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND subscription <> ?", tenancy.SubscriptionSuspended)
	if tenantID, ok := scope.TenantID(); ok {
		query = query.Where("id = ?", tenantID)
	}

	var tenants []tenancy.Tenant
	if err := query.Order("name ASC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// ActiveTenantIDs returns the IDs of every active tenant. Used by system
// jobs that fan out per tenant, so it takes no scope.
func (r *GormTenantRepository) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&tenancy.Tenant{}).
		Where("deleted_at IS NULL AND subscription <> ?", tenancy.SubscriptionSuspended).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates a new tenant. Provisioning is a system-level operation and
// requires an unrestricted scope.
func (r *GormTenantRepository) Save(ctx context.Context, scope tenancy.AccessScope, t *tenancy.Tenant) error {
	if !scope.IsValid() {
		return persistencetenant.ErrScopeRequired
	}
	if !scope.IsUnrestricted() {
		return shared.ErrForbidden
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// Update persists changes to a tenant with an optimistic version check
func (r *GormTenantRepository) Update(ctx context.Context, scope tenancy.AccessScope, t *tenancy.Tenant) error {
	if !scope.IsValid() {
		return persistencetenant.ErrScopeRequired
	}
	if !scope.IsUnrestricted() {
		return shared.ErrForbidden
	}

	result := r.db.WithContext(ctx).
		Model(&tenancy.Tenant{}).
		Where("id = ? AND version = ?", t.ID, t.Version-1).
		Updates(map[string]interface{}{
			"name":         t.Name,
			"subscription": t.Subscription,
			"deleted_at":   t.DeletedAt,
			"version":      t.Version,
			"updated_at":   t.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID within the access scope. Platform-level users
// carry a NULL tenant_id and are only visible to unrestricted scopes.
func (r *GormUserRepository) FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*identity.User, error) {
	query := r.db.WithContext(ctx)
	if tenantID, ok := scope.TenantID(); ok {
		query = query.Where("tenant_id = ?", tenantID)
	} else {
		query = query.Scopes(tenant.Scope(scope))
	}

	var user identity.User
	if err := query.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername looks a user up by username across tenants. Login runs
// before any scope exists; this is the one deliberate unscoped read.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenancy.Unrestricted())).
		First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindAll lists users in the access scope
func (r *GormUserRepository) FindAll(ctx context.Context, scope tenancy.AccessScope) ([]identity.User, error) {
	query := r.db.WithContext(ctx)
	if tenantID, ok := scope.TenantID(); ok {
		query = query.Where("tenant_id = ?", tenantID)
	} else {
		query = query.Scopes(tenant.Scope(scope))
	}

	var users []identity.User
	if err := query.Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Save creates a new user
func (r *GormUserRepository) Save(ctx context.Context, scope tenancy.AccessScope, user *identity.User) error {
	if err := guardUserWrite(scope, user); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// Update persists changes to an existing user with an optimistic version check
func (r *GormUserRepository) Update(ctx context.Context, scope tenancy.AccessScope, user *identity.User) error {
	if err := guardUserWrite(scope, user); err != nil {
		return err
	}

	query := r.db.WithContext(ctx).Model(&identity.User{})
	if tenantID, ok := scope.TenantID(); ok {
		query = query.Where("tenant_id = ?", tenantID)
	} else {
		query = query.Scopes(tenant.Scope(scope))
	}

	result := query.
		Where("id = ? AND version = ?", user.ID, user.Version-1).
		Updates(map[string]interface{}{
			"display_name":  user.DisplayName,
			"password_hash": user.PasswordHash,
			"roles":         user.RoleList,
			"active":        user.Active,
			"last_login_at": user.LastLoginAt,
			"version":       user.Version,
			"updated_at":    user.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// guardUserWrite validates the row's owning tenant against the scope.
// Users with a NULL tenant are platform operators and only an unrestricted
// scope may write them.
func guardUserWrite(scope tenancy.AccessScope, user *identity.User) error {
	if !scope.IsValid() {
		return tenant.ErrScopeRequired
	}
	if user.TenantID == nil {
		if !scope.IsUnrestricted() {
			return shared.ErrForbidden
		}
		return nil
	}
	return scope.GuardWrite(*user.TenantID)
}

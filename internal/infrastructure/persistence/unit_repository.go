package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

// GormUnitRepository implements cashday.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID within the access scope
func (r *GormUnitRepository) FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*cashday.Unit, error) {
	var unit cashday.Unit
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindAll lists every unit in the access scope
func (r *GormUnitRepository) FindAll(ctx context.Context, scope tenancy.AccessScope) ([]cashday.Unit, error) {
	var units []cashday.Unit
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Order("name ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindActiveOn lists the units operating on a calendar date
func (r *GormUnitRepository) FindActiveOn(ctx context.Context, scope tenancy.AccessScope, date time.Time) ([]cashday.Unit, error) {
	day := cashday.NormalizeDate(date)

	var units []cashday.Unit
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Where("active_from <= ? AND (active_until IS NULL OR active_until >= ?)", day, day).
		Order("name ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save creates a new unit
func (r *GormUnitRepository) Save(ctx context.Context, scope tenancy.AccessScope, unit *cashday.Unit) error {
	if err := scope.GuardWrite(unit.TenantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(unit).Error
}

// Update persists changes to an existing unit with an optimistic version check
func (r *GormUnitRepository) Update(ctx context.Context, scope tenancy.AccessScope, unit *cashday.Unit) error {
	if err := scope.GuardWrite(unit.TenantID); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&cashday.Unit{}).
		Scopes(tenant.Scope(scope)).
		Where("id = ? AND version = ?", unit.ID, unit.Version-1).
		Updates(map[string]interface{}{
			"name":                  unit.Name,
			"monthly_target":        unit.MonthlyTarget,
			"active_from":           unit.ActiveFrom,
			"active_until":          unit.ActiveUntil,
			"projected_month_total": unit.ProjectedMonthTotal,
			"projection_updated_at": unit.ProjectionUpdatedAt,
			"version":               unit.Version,
			"updated_at":            unit.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

// GormRevenueEntryRepository implements cashday.RevenueEntryRepository using GORM
type GormRevenueEntryRepository struct {
	db *gorm.DB
}

// NewGormRevenueEntryRepository creates a new GormRevenueEntryRepository
func NewGormRevenueEntryRepository(db *gorm.DB) *GormRevenueEntryRepository {
	return &GormRevenueEntryRepository{db: db}
}

// FindByID finds a revenue entry by its ID within the access scope
func (r *GormRevenueEntryRepository) FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*cashday.RevenueEntry, error) {
	var entry cashday.RevenueEntry
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByClosing lists the entries recorded under a closing, oldest window first
func (r *GormRevenueEntryRepository) FindByClosing(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID, includeInactive bool) ([]cashday.RevenueEntry, error) {
	query := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Where("closing_id = ?", closingID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var entries []cashday.RevenueEntry
	if err := query.Order("window_start ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindOverlapping returns an active entry under the closing whose half-open
// window intersects [start, end), or nil when the slot is free
func (r *GormRevenueEntryRepository) FindOverlapping(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID, start, end time.Time) (*cashday.RevenueEntry, error) {
	var entry cashday.RevenueEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Where("closing_id = ? AND active = ?", closingID, true).
		Where("window_start < ? AND window_end > ?", end, start).
		Order("window_start ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Save creates a new revenue entry
func (r *GormRevenueEntryRepository) Save(ctx context.Context, scope tenancy.AccessScope, entry *cashday.RevenueEntry) error {
	if err := scope.GuardWrite(entry.TenantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Update persists changes to an existing entry
func (r *GormRevenueEntryRepository) Update(ctx context.Context, scope tenancy.AccessScope, entry *cashday.RevenueEntry) error {
	if err := scope.GuardWrite(entry.TenantID); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&cashday.RevenueEntry{}).
		Scopes(tenant.Scope(scope)).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"amount":       entry.Amount,
			"window_start": entry.WindowStart,
			"window_end":   entry.WindowEnd,
			"active":       entry.Active,
			"updated_at":   entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeactivateByClosing soft-deletes every active entry under a closing.
// Used when a day is cancelled; the rows stay queryable for audit.
func (r *GormRevenueEntryRepository) DeactivateByClosing(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&cashday.RevenueEntry{}).
		Scopes(tenant.Scope(scope)).
		Where("closing_id = ? AND active = ?", closingID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MonthToDateTotal sums active entry amounts for a unit within the calendar
// month containing the given date
func (r *GormRevenueEntryRepository) MonthToDateTotal(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, month time.Time) (decimal.Decimal, error) {
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&cashday.RevenueEntry{}).
		Scopes(tenant.Scope(scope)).
		Where("unit_id = ? AND active = ?", unitID, true).
		Where("window_start >= ? AND window_start < ?", monthStart, nextMonth).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

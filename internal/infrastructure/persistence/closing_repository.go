package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

// GormClosingRepository implements cashday.ClosingRepository using GORM
type GormClosingRepository struct {
	db *gorm.DB
}

// NewGormClosingRepository creates a new GormClosingRepository
func NewGormClosingRepository(db *gorm.DB) *GormClosingRepository {
	return &GormClosingRepository{db: db}
}

// FindByID finds a closing by its ID within the access scope
func (r *GormClosingRepository) FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*cashday.Closing, error) {
	var closing cashday.Closing
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		First(&closing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &closing, nil
}

// FindByIDWithTrail finds a closing with its audit trail preloaded in
// chronological order
func (r *GormClosingRepository) FindByIDWithTrail(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*cashday.Closing, error) {
	var closing cashday.Closing
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Preload("Trail", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(tenant.Scope(scope)).Order("performed_at ASC")
		}).
		First(&closing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &closing, nil
}

// FindActiveByUnitAndDate returns the non-cancelled closing for a unit on a
// calendar date, or nil when the day was never opened
func (r *GormClosingRepository) FindActiveByUnitAndDate(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, date time.Time) (*cashday.Closing, error) {
	var closing cashday.Closing
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(scope)).
		Where("unit_id = ? AND date = ? AND status <> ?", unitID, cashday.NormalizeDate(date), cashday.ClosingStatusCancelled).
		First(&closing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &closing, nil
}

// FindByUnit lists closings for a unit, newest first, with the total count
func (r *GormClosingRepository) FindByUnit(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, filter cashday.ClosingFilter) ([]cashday.Closing, int64, error) {
	byUnit := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&cashday.Closing{}).
			Scopes(tenant.Scope(scope)).
			Where("unit_id = ?", unitID)
		return applyClosingFilter(q, filter)
	}

	var total int64
	if err := byUnit().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var closings []cashday.Closing
	query := byUnit().Order("date DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Find(&closings).Error; err != nil {
		return nil, 0, err
	}
	return closings, total, nil
}

// FindPending lists closed days still awaiting conference, oldest first
func (r *GormClosingRepository) FindPending(ctx context.Context, scope tenancy.AccessScope, filter cashday.ClosingFilter) ([]cashday.Closing, error) {
	query := r.db.WithContext(ctx).
		Model(&cashday.Closing{}).
		Scopes(tenant.Scope(scope)).
		Where("status = ?", cashday.ClosingStatusClosed)
	if filter.From != nil {
		query = query.Where("date >= ?", cashday.NormalizeDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("date <= ?", cashday.NormalizeDate(*filter.To))
	}

	var closings []cashday.Closing
	if err := query.Order("date ASC").Find(&closings).Error; err != nil {
		return nil, err
	}
	return closings, nil
}

// Save creates a new closing
func (r *GormClosingRepository) Save(ctx context.Context, scope tenancy.AccessScope, closing *cashday.Closing) error {
	if err := scope.GuardWrite(closing.TenantID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(closing).Error
}

// Update persists the closing with an optimistic version check and appends
// any new trail records. Re-inserting an already persisted trail record is a
// no-op; the trail is append-only.
func (r *GormClosingRepository) Update(ctx context.Context, scope tenancy.AccessScope, closing *cashday.Closing) error {
	if err := scope.GuardWrite(closing.TenantID); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&cashday.Closing{}).
		Scopes(tenant.Scope(scope)).
		Where("id = ? AND version = ?", closing.ID, closing.Version-1).
		Updates(map[string]interface{}{
			"status":              closing.Status,
			"calculated_total":    closing.CalculatedTotal,
			"conferred_total":     closing.ConferredTotal,
			"reconciled_total":    closing.ReconciledTotal,
			"difference":          closing.Difference,
			"integrity_signature": closing.IntegritySignature,
			"closed_by":           closing.ClosedBy,
			"closed_at":           closing.ClosedAt,
			"close_notes":         closing.CloseNotes,
			"confirmed_by":        closing.ConfirmedBy,
			"confirmed_at":        closing.ConfirmedAt,
			"confer_notes":        closing.ConferNotes,
			"cancelled_by":        closing.CancelledBy,
			"cancelled_at":        closing.CancelledAt,
			"cancel_reason":       closing.CancelReason,
			"reopen_reason":       closing.ReopenReason,
			"version":             closing.Version,
			"updated_at":          closing.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if len(closing.Trail) > 0 {
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&closing.Trail).Error; err != nil {
			return err
		}
	}
	return nil
}

func applyClosingFilter(query *gorm.DB, filter cashday.ClosingFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", cashday.NormalizeDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("date <= ?", cashday.NormalizeDate(*filter.To))
	}
	return query
}

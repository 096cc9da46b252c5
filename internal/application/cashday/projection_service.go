package cashday

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/telemetry"
)

// ProjectionService maintains each unit's linear month-end revenue
// projection: month-to-date entry totals extrapolated over the full month.
// The scheduler runs it nightly per tenant; results land on the unit row
// and are exposed read-only.
type ProjectionService struct {
	units   cashday.UnitRepository
	entries cashday.RevenueEntryRepository
	tenants tenancy.TenantRepository
	logger  *zap.Logger
}

// NewProjectionService creates a new ProjectionService
func NewProjectionService(
	units cashday.UnitRepository,
	entries cashday.RevenueEntryRepository,
	tenants tenancy.TenantRepository,
	logger *zap.Logger,
) *ProjectionService {
	return &ProjectionService{
		units:   units,
		entries: entries,
		tenants: tenants,
		logger:  logger,
	}
}

// ProjectMonthEnd extrapolates a month-to-date total linearly to month end.
// With n of d days elapsed the projection is mtd * d / n, rounded to cents.
// asOf counts as elapsed, so the projection is defined from day one.
func ProjectMonthEnd(monthToDate decimal.Decimal, asOf time.Time) decimal.Decimal {
	day := asOf.UTC().Day()
	daysInMonth := time.Date(asOf.UTC().Year(), asOf.UTC().Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1).Day()
	return monthToDate.
		Mul(decimal.NewFromInt(int64(daysInMonth))).
		Div(decimal.NewFromInt(int64(day))).
		Round(2)
}

// RecomputeForUnit refreshes one unit's projection as of the given time
func (s *ProjectionService) RecomputeForUnit(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, asOf time.Time) error {
	unit, err := s.units.FindByID(ctx, scope, unitID)
	if err != nil {
		return err
	}

	mtd, err := s.entries.MonthToDateTotal(ctx, scope, unitID, asOf)
	if err != nil {
		return err
	}

	unit.UpdateProjection(ProjectMonthEnd(mtd, asOf), asOf)
	return s.units.Update(ctx, scope, unit)
}

// RecomputeForTenant refreshes the projection of every unit active on the
// given date under one tenant
func (s *ProjectionService) RecomputeForTenant(ctx context.Context, tenantID uuid.UUID, asOf time.Time) error {
	scope := tenancy.ScopedTo(tenantID)
	units, err := s.units.FindActiveOn(ctx, scope, asOf)
	if err != nil {
		return err
	}

	for i := range units {
		if err := s.RecomputeForUnit(ctx, scope, units[i].ID, asOf); err != nil {
			// Concurrent edits to one unit must not starve the rest
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				s.logger.Warn("Skipping projection for concurrently modified unit",
					zap.String("unit_id", units[i].ID.String()))
				continue
			}
			return err
		}
	}
	return nil
}

// RecalculateAll fans the nightly recompute out across every active tenant.
// It satisfies the scheduler's runner contract; a failing tenant is logged
// and skipped so one bad tenant cannot block the others.
func (s *ProjectionService) RecalculateAll(ctx context.Context, asOf time.Time) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "projection", "recalculate_all")
	defer span.End()

	tenantIDs, err := s.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	var failed int
	for _, tenantID := range tenantIDs {
		if err := s.RecomputeForTenant(ctx, tenantID, asOf); err != nil {
			failed++
			s.logger.Error("Projection recompute failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Projection recompute finished",
		zap.Int("tenants", len(tenantIDs)),
		zap.Int("failed", failed))
	return nil
}

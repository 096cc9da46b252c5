package cashday

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
)

// UnitService manages the units closings are recorded against
type UnitService struct {
	units  cashday.UnitRepository
	logger *zap.Logger
}

// NewUnitService creates a new UnitService
func NewUnitService(units cashday.UnitRepository, logger *zap.Logger) *UnitService {
	return &UnitService{units: units, logger: logger}
}

// CreateUnitRequest creates a unit under the actor's tenant
type CreateUnitRequest struct {
	Name          string          `json:"name" binding:"required"`
	MonthlyTarget decimal.Decimal `json:"monthly_target"`
	ActiveFrom    time.Time       `json:"active_from"`
	// TenantID is honored only for unrestricted callers; tenant-scoped
	// callers always create under their own tenant.
	TenantID *uuid.UUID `json:"tenant_id"`
}

// UpdateUnitRequest updates a unit's name and monthly target
type UpdateUnitRequest struct {
	Name          string          `json:"name" binding:"required"`
	MonthlyTarget decimal.Decimal `json:"monthly_target"`
}

// DeactivateUnitRequest ends a unit's active range
type DeactivateUnitRequest struct {
	Until time.Time `json:"until" binding:"required"`
}

// CreateUnit creates a unit
func (s *UnitService) CreateUnit(ctx context.Context, actor identity.Actor, req CreateUnitRequest) (*UnitResponse, error) {
	if !actor.Can(identity.CapManageUnits) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing units requires the units:manage capability")
	}

	tenantID, ok := actor.Scope().TenantID()
	if !ok {
		if req.TenantID == nil {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "A tenant ID is required when creating a unit as a platform user")
		}
		tenantID = *req.TenantID
	}

	unit, err := cashday.NewUnit(tenantID, req.Name, req.MonthlyTarget, req.ActiveFrom)
	if err != nil {
		return nil, err
	}
	if err := s.units.Save(ctx, actor.Scope(), unit); err != nil {
		return nil, err
	}

	s.logger.Info("Unit created",
		zap.String("unit_id", unit.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("name", unit.Name))
	return toUnitResponse(unit), nil
}

// GetUnit returns one unit
func (s *UnitService) GetUnit(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UnitResponse, error) {
	unit, err := s.units.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	return toUnitResponse(unit), nil
}

// ListUnits returns all units visible to the actor
func (s *UnitService) ListUnits(ctx context.Context, actor identity.Actor) ([]UnitResponse, error) {
	units, err := s.units.FindAll(ctx, actor.Scope())
	if err != nil {
		return nil, err
	}
	responses := make([]UnitResponse, len(units))
	for i := range units {
		responses[i] = *toUnitResponse(&units[i])
	}
	return responses, nil
}

// UpdateUnit renames a unit and updates its monthly target
func (s *UnitService) UpdateUnit(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateUnitRequest) (*UnitResponse, error) {
	if !actor.Can(identity.CapManageUnits) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing units requires the units:manage capability")
	}

	unit, err := s.units.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	if err := unit.UpdateDetails(req.Name, req.MonthlyTarget); err != nil {
		return nil, err
	}
	if err := s.units.Update(ctx, actor.Scope(), unit); err != nil {
		return nil, err
	}
	return toUnitResponse(unit), nil
}

// DeactivateUnit ends a unit's active range as of the given date.
// Existing closings are untouched; the unit simply stops accepting new days.
func (s *UnitService) DeactivateUnit(ctx context.Context, actor identity.Actor, id uuid.UUID, req DeactivateUnitRequest) (*UnitResponse, error) {
	if !actor.Can(identity.CapManageUnits) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing units requires the units:manage capability")
	}

	unit, err := s.units.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	if err := unit.Deactivate(req.Until); err != nil {
		return nil, err
	}
	if err := s.units.Update(ctx, actor.Scope(), unit); err != nil {
		return nil, err
	}

	s.logger.Info("Unit deactivated",
		zap.String("unit_id", unit.ID.String()),
		zap.String("until", req.Until.Format("2006-01-02")))
	return toUnitResponse(unit), nil
}

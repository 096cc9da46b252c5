package cashday

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/shared"
)

// Unit is a physical or operational location under a tenant. It owns the
// closings and revenue entries recorded against it and carries the monthly
// revenue target the projection job measures against.
type Unit struct {
	shared.TenantAggregateRoot
	Name                string          `gorm:"type:varchar(200);not null"`
	MonthlyTarget       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ActiveFrom          time.Time       `gorm:"type:date;not null"`
	ActiveUntil         *time.Time      `gorm:"type:date"`
	ProjectedMonthTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ProjectionUpdatedAt *time.Time
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewUnit creates a unit for a tenant
func NewUnit(tenantID uuid.UUID, name string, monthlyTarget decimal.Decimal, activeFrom time.Time) (*Unit, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot be empty")
	}
	if monthlyTarget.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TARGET", "Monthly target cannot be negative")
	}
	if activeFrom.IsZero() {
		activeFrom = time.Now()
	}
	return &Unit{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		MonthlyTarget:       monthlyTarget,
		ActiveFrom:          NormalizeDate(activeFrom),
		ProjectedMonthTotal: decimal.Zero,
	}, nil
}

// IsActiveOn reports whether the unit operates on the given date
func (u *Unit) IsActiveOn(date time.Time) bool {
	d := NormalizeDate(date)
	if d.Before(u.ActiveFrom) {
		return false
	}
	if u.ActiveUntil != nil && d.After(*u.ActiveUntil) {
		return false
	}
	return true
}

// UpdateDetails changes the unit's display name and revenue target
func (u *Unit) UpdateDetails(name string, target decimal.Decimal) error {
	if name == "" {
		return shared.NewDomainError("INVALID_UNIT_NAME", "Unit name cannot be empty")
	}
	if target.IsNegative() {
		return shared.NewDomainError("INVALID_TARGET", "Monthly target cannot be negative")
	}
	u.Name = name
	u.MonthlyTarget = target
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// Deactivate ends the unit's active range as of the given date
func (u *Unit) Deactivate(until time.Time) error {
	if until.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Deactivation date is required")
	}
	d := NormalizeDate(until)
	if d.Before(u.ActiveFrom) {
		return shared.NewDomainError("INVALID_DATE", "Deactivation date precedes the unit's first active day")
	}
	u.ActiveUntil = &d
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// UpdateProjection stores the latest month-end revenue projection
func (u *Unit) UpdateProjection(projected decimal.Decimal, at time.Time) {
	u.ProjectedMonthTotal = projected
	u.ProjectionUpdatedAt = &at
	u.UpdatedAt = at
	u.IncrementVersion()
}

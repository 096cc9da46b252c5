package cashday

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/shared"
)

// EntryOrigin tags how a revenue entry was produced
type EntryOrigin string

const (
	OriginManual    EntryOrigin = "MANUAL"
	OriginAutomated EntryOrigin = "AUTOMATED"
)

// IsValid reports whether the origin is a known value
func (o EntryOrigin) IsValid() bool {
	return o == OriginManual || o == OriginAutomated
}

// RevenueEntry is one recorded cash movement feeding a day's closing.
// Entries are mutable only while the parent closing is open; cancelling a
// closing keeps its entries but flips Active off so they no longer count.
type RevenueEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClosingID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	WindowStart     time.Time       `gorm:"not null"`
	WindowEnd       time.Time       `gorm:"not null"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid"`
	Origin          EntryOrigin     `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	Active          bool            `gorm:"not null;default:true"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RevenueEntry) TableName() string {
	return "revenue_entries"
}

// NewRevenueEntry validates and creates a revenue entry
func NewRevenueEntry(
	tenantID, unitID, closingID uuid.UUID,
	amount decimal.Decimal,
	windowStart, windowEnd time.Time,
	paymentMethodID uuid.UUID,
	origin EntryOrigin,
) (*RevenueEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Entry amount must be positive")
	}
	if windowStart.IsZero() || windowEnd.IsZero() {
		return nil, shared.NewDomainError("INVALID_WINDOW", "Entry time window is required")
	}
	if !windowEnd.After(windowStart) {
		return nil, shared.NewDomainError("INVALID_WINDOW", "Entry window end must be after its start")
	}
	if !origin.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_ORIGIN", "Unknown entry origin %q", origin)
	}
	now := time.Now()
	return &RevenueEntry{
		ID:              uuid.New(),
		TenantID:        tenantID,
		UnitID:          unitID,
		ClosingID:       closingID,
		Amount:          amount,
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		PaymentMethodID: paymentMethodID,
		Origin:          origin,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Overlaps reports whether two entry windows intersect. Windows are
// half-open [start, end): touching boundaries do not overlap.
func (e *RevenueEntry) Overlaps(other *RevenueEntry) bool {
	return e.WindowStart.Before(other.WindowEnd) && other.WindowStart.Before(e.WindowEnd)
}

// Deactivate excludes the entry from future reconciliation math
func (e *RevenueEntry) Deactivate() {
	e.Active = false
	e.UpdatedAt = time.Now()
}

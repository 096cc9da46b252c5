package cashday

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrailAction identifies which transition produced an audit record
type TrailAction string

const (
	TrailActionClosed    TrailAction = "CLOSED"
	TrailActionConfirmed TrailAction = "CONFIRMED"
	TrailActionRejected  TrailAction = "REJECTED"
	TrailActionReopened  TrailAction = "REOPENED"
	TrailActionCancelled TrailAction = "CANCELLED"
)

// ClosingAuditRecord is one append-only snapshot of a closing's financial
// stamps taken at a transition. Reopening clears the live stamps on the
// closing; the prior values survive here and are never updated in place.
type ClosingAuditRecord struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClosingID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Action          TrailAction     `gorm:"type:varchar(20);not null"`
	Status          ClosingStatus   `gorm:"type:varchar(20);not null"` // closing status at snapshot time

	OpeningFloat    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CalculatedTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConferredTotal  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReconciledTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Difference      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Signature       string          `gorm:"type:varchar(64)"`
	ClosedBy        *uuid.UUID      `gorm:"type:uuid"`
	ClosedAt        *time.Time
	ConfirmedBy     *uuid.UUID `gorm:"type:uuid"`
	ConfirmedAt     *time.Time
	PerformedBy     uuid.UUID `gorm:"type:uuid;not null"`
	PerformedAt     time.Time `gorm:"not null"`
	Notes           string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ClosingAuditRecord) TableName() string {
	return "closing_audit_trail"
}

// NewClosingAuditRecord snapshots the closing's current stamps
func NewClosingAuditRecord(c *Closing, action TrailAction, by uuid.UUID, at time.Time, notes string) ClosingAuditRecord {
	return ClosingAuditRecord{
		ID:              uuid.New(),
		TenantID:        c.TenantID,
		ClosingID:       c.ID,
		Action:          action,
		Status:          c.Status,
		OpeningFloat:    c.OpeningFloat,
		CalculatedTotal: c.CalculatedTotal,
		ConferredTotal:  c.ConferredTotal,
		ReconciledTotal: c.ReconciledTotal,
		Difference:      c.Difference,
		Signature:       c.IntegritySignature,
		ClosedBy:        c.ClosedBy,
		ClosedAt:        c.ClosedAt,
		ConfirmedBy:     c.ConfirmedBy,
		ConfirmedAt:     c.ConfirmedAt,
		PerformedBy:     by,
		PerformedAt:     at,
		Notes:           notes,
	}
}

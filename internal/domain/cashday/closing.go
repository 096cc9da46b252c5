// Package cashday implements the daily cash-closing lifecycle: one closing
// record per unit and calendar date, populated with revenue entries while
// open, frozen and signed on close, audited on confer, and reopenable with
// a preserved history trail.
package cashday

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/shared"
)

// ClosingStatus is the lifecycle state of a closing
type ClosingStatus string

const (
	ClosingStatusOpen      ClosingStatus = "OPEN"
	ClosingStatusClosed    ClosingStatus = "CLOSED"
	ClosingStatusConfirmed ClosingStatus = "CONFIRMED"
	ClosingStatusCancelled ClosingStatus = "CANCELLED"
)

// IsValid reports whether the status is a known value
func (s ClosingStatus) IsValid() bool {
	switch s {
	case ClosingStatusOpen, ClosingStatusClosed, ClosingStatusConfirmed, ClosingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s ClosingStatus) IsTerminal() bool {
	return s == ClosingStatusCancelled
}

// CanRecordEntries reports whether entries may be added or edited
func (s ClosingStatus) CanRecordEntries() bool {
	return s == ClosingStatusOpen
}

// CanClose reports whether CloseDay is allowed
func (s ClosingStatus) CanClose() bool {
	return s == ClosingStatusOpen
}

// CanConfer reports whether ConferDay is allowed
func (s ClosingStatus) CanConfer() bool {
	return s == ClosingStatusClosed
}

// CanReopen reports whether ReopenDay is allowed
func (s ClosingStatus) CanReopen() bool {
	return s == ClosingStatusClosed || s == ClosingStatusConfirmed
}

// CanCancel reports whether CancelDay is allowed
func (s ClosingStatus) CanCancel() bool {
	return s == ClosingStatusOpen || s == ClosingStatusClosed
}

// Closing is the aggregate root of the cash day: the reconciliation record
// for one unit and one calendar date. At most one non-cancelled closing may
// exist per (tenant, unit, date); the store enforces this with a partial
// unique index and each transition runs inside one transaction.
type Closing struct {
	shared.TenantAggregateRoot
	UnitID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_closings_unit_date,priority:1"`
	Date               time.Time       `gorm:"type:date;not null;index:idx_closings_unit_date,priority:2"`
	Status             ClosingStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	OpeningFloat       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CalculatedTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConferredTotal     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReconciledTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Difference         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IntegritySignature string          `gorm:"type:varchar(64)"`
	OpenedBy           uuid.UUID       `gorm:"type:uuid;not null"`
	OpenNotes          string          `gorm:"type:varchar(500)"`
	ClosedBy           *uuid.UUID      `gorm:"type:uuid"`
	ClosedAt           *time.Time
	CloseNotes         string `gorm:"type:varchar(500)"`
	ConfirmedBy        *uuid.UUID `gorm:"type:uuid"`
	ConfirmedAt        *time.Time
	ConferNotes        string `gorm:"type:varchar(500)"`
	CancelledBy        *uuid.UUID `gorm:"type:uuid"`
	CancelledAt        *time.Time
	CancelReason       string               `gorm:"type:varchar(500)"`
	ReopenReason       string               `gorm:"type:varchar(500)"`
	Trail              []ClosingAuditRecord `gorm:"foreignKey:ClosingID;references:ID"`
}

// TableName returns the table name for GORM
func (Closing) TableName() string {
	return "closings"
}

// NormalizeDate truncates a timestamp to its UTC calendar date
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewClosing opens the cash day for a unit: Unopened -> Open
func NewClosing(
	tenantID, unitID uuid.UUID,
	date time.Time,
	openingFloat decimal.Decimal,
	openedBy uuid.UUID,
	notes string,
) (*Closing, error) {
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Closing date is required")
	}
	if openingFloat.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Opening float cannot be negative")
	}
	if openedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Opening user ID is required")
	}

	c := &Closing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UnitID:              unitID,
		Date:                NormalizeDate(date),
		Status:              ClosingStatusOpen,
		OpeningFloat:        openingFloat,
		CalculatedTotal:     openingFloat,
		ConferredTotal:      decimal.Zero,
		ReconciledTotal:     decimal.Zero,
		Difference:          decimal.Zero,
		OpenedBy:            openedBy,
		OpenNotes:           notes,
		Trail:               make([]ClosingAuditRecord, 0),
	}
	c.AddDomainEvent(NewDayOpenedEvent(c))
	return c, nil
}

// FrozenFields returns the fields covered by the integrity signature.
// Only meaningful once the closing has been closed.
func (c *Closing) FrozenFields() FrozenFields {
	f := FrozenFields{
		UnitID:          c.UnitID,
		Date:            c.Date,
		OpeningFloat:    c.OpeningFloat,
		CalculatedTotal: c.CalculatedTotal,
		ConferredTotal:  c.ConferredTotal,
	}
	if c.ClosedBy != nil {
		f.ClosedBy = *c.ClosedBy
	}
	if c.ClosedAt != nil {
		f.ClosedAt = *c.ClosedAt
	}
	return f
}

// Close freezes the day: Open -> Closed. The caller must pass the total
// freshly recomputed from the active entries; the aggregate never trusts
// its previously stored calculated total here.
func (c *Closing) Close(
	calculatedTotal, conferredTotal decimal.Decimal,
	notes string,
	closedBy uuid.UUID,
	signer *Signer,
) error {
	if !c.Status.CanClose() {
		return shared.NewDomainErrorf("NOTHING_TO_CLOSE", "Cannot close a day in %s status", c.Status)
	}
	if closedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Closing user ID is required")
	}
	if conferredTotal.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Conferred total cannot be negative")
	}

	// ClosedAt enters the integrity signature, so it must survive a store
	// round-trip unchanged: timestamptz keeps microseconds, not nanoseconds.
	now := time.Now().UTC().Truncate(time.Microsecond)
	c.CalculatedTotal = calculatedTotal
	c.ConferredTotal = conferredTotal
	c.Difference = Difference(conferredTotal, calculatedTotal)
	c.Status = ClosingStatusClosed
	c.ClosedBy = &closedBy
	c.ClosedAt = &now
	c.CloseNotes = notes
	c.IntegritySignature = signer.Sign(c.FrozenFields())
	c.UpdatedAt = now
	c.IncrementVersion()

	c.appendTrail(TrailActionClosed, closedBy, now, notes)
	c.AddDomainEvent(NewDayClosedEvent(c))
	return nil
}

// Confer audits a closed day: Closed -> Confirmed when approved, or back to
// Open when rejected. The signature is re-verified first and the calculated
// total must match a fresh recomputation; either mismatch is a hard stop.
func (c *Closing) Confer(
	approved bool,
	reconciledTotal, freshCalculated decimal.Decimal,
	notes string,
	conferredBy uuid.UUID,
	signer *Signer,
) error {
	if !c.Status.CanConfer() {
		return shared.NewDomainErrorf("STATE_CONFLICT", "Cannot confer a day in %s status", c.Status)
	}
	if conferredBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Conferring user ID is required")
	}
	if !signer.Verify(c) {
		return shared.NewDomainError("INTEGRITY_VIOLATION", "Integrity signature does not match the stored frozen fields")
	}
	if !freshCalculated.Equal(c.CalculatedTotal) {
		return shared.NewDomainError("INTEGRITY_VIOLATION", "Recomputed total diverges from the signed calculated total")
	}

	now := time.Now()
	if !approved {
		if notes == "" {
			return shared.NewDomainError("VALIDATION_ERROR", "A rejection note is required to reopen the day")
		}
		c.appendTrail(TrailActionRejected, conferredBy, now, notes)
		c.reopenInPlace(notes, now)
		c.AddDomainEvent(NewDayRejectedEvent(c, notes))
		return nil
	}

	if reconciledTotal.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reconciled total cannot be negative")
	}
	c.ReconciledTotal = reconciledTotal
	c.Difference = Difference(reconciledTotal, c.CalculatedTotal)
	c.Status = ClosingStatusConfirmed
	c.ConfirmedBy = &conferredBy
	c.ConfirmedAt = &now
	c.ConferNotes = notes
	c.UpdatedAt = now
	c.IncrementVersion()

	c.appendTrail(TrailActionConfirmed, conferredBy, now, notes)
	c.AddDomainEvent(NewDayConfirmedEvent(c))
	return nil
}

// Reopen returns a closed or confirmed day to Open for correction. Prior
// audit stamps are preserved in the append-only trail, never overwritten.
func (c *Closing) Reopen(reason string, reopenedBy uuid.UUID, signer *Signer) error {
	if c.Status == ClosingStatusCancelled {
		return shared.NewDomainError("CANNOT_REOPEN_CANCELLED", "A cancelled day cannot be reopened")
	}
	if !c.Status.CanReopen() {
		return shared.NewDomainErrorf("STATE_CONFLICT", "Cannot reopen a day in %s status", c.Status)
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "A reopen reason is required")
	}
	if reopenedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Reopening user ID is required")
	}
	if !signer.Verify(c) {
		return shared.NewDomainError("INTEGRITY_VIOLATION", "Integrity signature does not match the stored frozen fields")
	}

	now := time.Now()
	c.appendTrail(TrailActionReopened, reopenedBy, now, reason)
	c.reopenInPlace(reason, now)
	c.AddDomainEvent(NewDayReopenedEvent(c, reason))
	return nil
}

// Cancel terminates the day: Open|Closed -> Cancelled. The service marks
// the day's entries inactive in the same transaction.
func (c *Closing) Cancel(reason string, cancelledBy uuid.UUID) error {
	if !c.Status.CanCancel() {
		return shared.NewDomainErrorf("STATE_CONFLICT", "Cannot cancel a day in %s status", c.Status)
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "A cancel reason is required")
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}

	now := time.Now()
	c.appendTrail(TrailActionCancelled, cancelledBy, now, reason)
	c.Status = ClosingStatusCancelled
	c.CancelledBy = &cancelledBy
	c.CancelledAt = &now
	c.CancelReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewDayCancelledEvent(c, reason))
	return nil
}

// HasSignature reports whether an integrity signature is present.
// External projections expose this flag, never the raw digest.
func (c *Closing) HasSignature() bool {
	return c.IntegritySignature != ""
}

// reopenInPlace clears the live close/confirm stamps for a new cycle.
// The trail entry snapshotting the prior values must be appended first.
func (c *Closing) reopenInPlace(reason string, now time.Time) {
	c.Status = ClosingStatusOpen
	c.ClosedBy = nil
	c.ClosedAt = nil
	c.CloseNotes = ""
	c.ConfirmedBy = nil
	c.ConfirmedAt = nil
	c.ConferNotes = ""
	c.ConferredTotal = decimal.Zero
	c.ReconciledTotal = decimal.Zero
	c.Difference = decimal.Zero
	c.IntegritySignature = ""
	c.ReopenReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()
}

// appendTrail snapshots the closing's current stamps into the audit trail
func (c *Closing) appendTrail(action TrailAction, by uuid.UUID, at time.Time, notes string) {
	c.Trail = append(c.Trail, NewClosingAuditRecord(c, action, by, at, notes))
}

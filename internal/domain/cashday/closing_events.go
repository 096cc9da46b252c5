package cashday

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/shared"
)

// Event types emitted by the closing aggregate
const (
	EventTypeDayOpened     = "cashday.day.opened"
	EventTypeEntryRecorded = "cashday.entry.recorded"
	EventTypeDayClosed     = "cashday.day.closed"
	EventTypeDayConfirmed  = "cashday.day.confirmed"
	EventTypeDayRejected   = "cashday.day.rejected"
	EventTypeDayReopened   = "cashday.day.reopened"
	EventTypeDayCancelled  = "cashday.day.cancelled"
)

const aggregateTypeClosing = "Closing"

// DayOpenedEvent is raised when a cash day is opened
type DayOpenedEvent struct {
	shared.BaseDomainEvent
	UnitID       uuid.UUID       `json:"unit_id"`
	Date         string          `json:"date"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// NewDayOpenedEvent creates a DayOpenedEvent
func NewDayOpenedEvent(c *Closing) *DayOpenedEvent {
	return &DayOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayOpened, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		Date:            c.Date.Format("2006-01-02"),
		OpeningFloat:    c.OpeningFloat,
	}
}

// EntryRecordedEvent is raised when a revenue entry is appended to an open day
type EntryRecordedEvent struct {
	shared.BaseDomainEvent
	EntryID uuid.UUID       `json:"entry_id"`
	UnitID  uuid.UUID       `json:"unit_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// NewEntryRecordedEvent creates an EntryRecordedEvent
func NewEntryRecordedEvent(c *Closing, e *RevenueEntry) *EntryRecordedEvent {
	return &EntryRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryRecorded, aggregateTypeClosing, c.ID, c.TenantID),
		EntryID:         e.ID,
		UnitID:          c.UnitID,
		Amount:          e.Amount,
	}
}

// DayClosedEvent is raised when a cash day is closed and signed
type DayClosedEvent struct {
	shared.BaseDomainEvent
	UnitID          uuid.UUID       `json:"unit_id"`
	CalculatedTotal decimal.Decimal `json:"calculated_total"`
	ConferredTotal  decimal.Decimal `json:"conferred_total"`
	Difference      decimal.Decimal `json:"difference"`
}

// NewDayClosedEvent creates a DayClosedEvent
func NewDayClosedEvent(c *Closing) *DayClosedEvent {
	return &DayClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayClosed, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		CalculatedTotal: c.CalculatedTotal,
		ConferredTotal:  c.ConferredTotal,
		Difference:      c.Difference,
	}
}

// DayConfirmedEvent is raised when an audit approves a closed day
type DayConfirmedEvent struct {
	shared.BaseDomainEvent
	UnitID          uuid.UUID       `json:"unit_id"`
	ReconciledTotal decimal.Decimal `json:"reconciled_total"`
	Difference      decimal.Decimal `json:"difference"`
}

// NewDayConfirmedEvent creates a DayConfirmedEvent
func NewDayConfirmedEvent(c *Closing) *DayConfirmedEvent {
	return &DayConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayConfirmed, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		ReconciledTotal: c.ReconciledTotal,
		Difference:      c.Difference,
	}
}

// DayRejectedEvent is raised when an audit rejects a closed day,
// sending it back to open for correction
type DayRejectedEvent struct {
	shared.BaseDomainEvent
	UnitID uuid.UUID `json:"unit_id"`
	Reason string    `json:"reason"`
}

// NewDayRejectedEvent creates a DayRejectedEvent
func NewDayRejectedEvent(c *Closing, reason string) *DayRejectedEvent {
	return &DayRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayRejected, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		Reason:          reason,
	}
}

// DayReopenedEvent is raised when a closed or confirmed day is reopened
type DayReopenedEvent struct {
	shared.BaseDomainEvent
	UnitID uuid.UUID `json:"unit_id"`
	Reason string    `json:"reason"`
}

// NewDayReopenedEvent creates a DayReopenedEvent
func NewDayReopenedEvent(c *Closing, reason string) *DayReopenedEvent {
	return &DayReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayReopened, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		Reason:          reason,
	}
}

// DayCancelledEvent is raised when a day is cancelled
type DayCancelledEvent struct {
	shared.BaseDomainEvent
	UnitID uuid.UUID `json:"unit_id"`
	Reason string    `json:"reason"`
}

// NewDayCancelledEvent creates a DayCancelledEvent
func NewDayCancelledEvent(c *Closing, reason string) *DayCancelledEvent {
	return &DayCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayCancelled, aggregateTypeClosing, c.ID, c.TenantID),
		UnitID:          c.UnitID,
		Reason:          reason,
	}
}

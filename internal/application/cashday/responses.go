package cashday

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/cashday"
)

// ClosingResponse is the external projection of a closing. It carries a
// has_signature flag instead of the raw digest; the signature itself never
// leaves the server.
type ClosingResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	UnitID          uuid.UUID             `json:"unit_id"`
	Date            string                `json:"date"`
	Status          string                `json:"status"`
	OpeningFloat    decimal.Decimal       `json:"opening_float"`
	CalculatedTotal decimal.Decimal       `json:"calculated_total"`
	ConferredTotal  decimal.Decimal       `json:"conferred_total"`
	ReconciledTotal decimal.Decimal       `json:"reconciled_total"`
	Difference      decimal.Decimal       `json:"difference"`
	HasSignature    bool                  `json:"has_signature"`
	OpenedBy        uuid.UUID             `json:"opened_by"`
	OpenNotes       string                `json:"open_notes,omitempty"`
	ClosedBy        *uuid.UUID            `json:"closed_by,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	CloseNotes      string                `json:"close_notes,omitempty"`
	ConfirmedBy     *uuid.UUID            `json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time            `json:"confirmed_at,omitempty"`
	ConferNotes     string                `json:"confer_notes,omitempty"`
	CancelledBy     *uuid.UUID            `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	ReopenReason    string                `json:"reopen_reason,omitempty"`
	Trail           []TrailRecordResponse `json:"trail,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// TrailRecordResponse is one audit trail snapshot in API responses
type TrailRecordResponse struct {
	ID              uuid.UUID       `json:"id"`
	Action          string          `json:"action"`
	Status          string          `json:"status"`
	OpeningFloat    decimal.Decimal `json:"opening_float"`
	CalculatedTotal decimal.Decimal `json:"calculated_total"`
	ConferredTotal  decimal.Decimal `json:"conferred_total"`
	ReconciledTotal decimal.Decimal `json:"reconciled_total"`
	Difference      decimal.Decimal `json:"difference"`
	HadSignature    bool            `json:"had_signature"`
	PerformedBy     uuid.UUID       `json:"performed_by"`
	PerformedAt     time.Time       `json:"performed_at"`
	Notes           string          `json:"notes,omitempty"`
}

// EntryResponse is a revenue entry in API responses
type EntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	UnitID          uuid.UUID       `json:"unit_id"`
	ClosingID       uuid.UUID       `json:"closing_id"`
	Amount          decimal.Decimal `json:"amount"`
	WindowStart     time.Time       `json:"window_start"`
	WindowEnd       time.Time       `json:"window_end"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id,omitempty"`
	Origin          string          `json:"origin"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// UnitResponse is a unit in API responses
type UnitResponse struct {
	ID                  uuid.UUID       `json:"id"`
	TenantID            uuid.UUID       `json:"tenant_id"`
	Name                string          `json:"name"`
	MonthlyTarget       decimal.Decimal `json:"monthly_target"`
	ActiveFrom          string          `json:"active_from"`
	ActiveUntil         *string         `json:"active_until,omitempty"`
	ProjectedMonthTotal decimal.Decimal `json:"projected_month_total"`
	ProjectionUpdatedAt *time.Time      `json:"projection_updated_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Version             int             `json:"version"`
}

func toClosingResponse(c *cashday.Closing, trail []cashday.ClosingAuditRecord) *ClosingResponse {
	resp := &ClosingResponse{
		ID:              c.ID,
		TenantID:        c.TenantID,
		UnitID:          c.UnitID,
		Date:            c.Date.Format("2006-01-02"),
		Status:          string(c.Status),
		OpeningFloat:    c.OpeningFloat,
		CalculatedTotal: c.CalculatedTotal,
		ConferredTotal:  c.ConferredTotal,
		ReconciledTotal: c.ReconciledTotal,
		Difference:      c.Difference,
		HasSignature:    c.HasSignature(),
		OpenedBy:        c.OpenedBy,
		OpenNotes:       c.OpenNotes,
		ClosedBy:        c.ClosedBy,
		ClosedAt:        c.ClosedAt,
		CloseNotes:      c.CloseNotes,
		ConfirmedBy:     c.ConfirmedBy,
		ConfirmedAt:     c.ConfirmedAt,
		ConferNotes:     c.ConferNotes,
		CancelledBy:     c.CancelledBy,
		CancelledAt:     c.CancelledAt,
		CancelReason:    c.CancelReason,
		ReopenReason:    c.ReopenReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
	if len(trail) > 0 {
		resp.Trail = make([]TrailRecordResponse, len(trail))
		for i := range trail {
			resp.Trail[i] = toTrailRecordResponse(&trail[i])
		}
	}
	return resp
}

func toTrailRecordResponse(r *cashday.ClosingAuditRecord) TrailRecordResponse {
	return TrailRecordResponse{
		ID:              r.ID,
		Action:          string(r.Action),
		Status:          string(r.Status),
		OpeningFloat:    r.OpeningFloat,
		CalculatedTotal: r.CalculatedTotal,
		ConferredTotal:  r.ConferredTotal,
		ReconciledTotal: r.ReconciledTotal,
		Difference:      r.Difference,
		HadSignature:    r.Signature != "",
		PerformedBy:     r.PerformedBy,
		PerformedAt:     r.PerformedAt,
		Notes:           r.Notes,
	}
}

func toEntryResponse(e *cashday.RevenueEntry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		TenantID:        e.TenantID,
		UnitID:          e.UnitID,
		ClosingID:       e.ClosingID,
		Amount:          e.Amount,
		WindowStart:     e.WindowStart,
		WindowEnd:       e.WindowEnd,
		PaymentMethodID: e.PaymentMethodID,
		Origin:          string(e.Origin),
		Active:          e.Active,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toUnitResponse(u *cashday.Unit) *UnitResponse {
	resp := &UnitResponse{
		ID:                  u.ID,
		TenantID:            u.TenantID,
		Name:                u.Name,
		MonthlyTarget:       u.MonthlyTarget,
		ActiveFrom:          u.ActiveFrom.Format("2006-01-02"),
		ProjectedMonthTotal: u.ProjectedMonthTotal,
		ProjectionUpdatedAt: u.ProjectionUpdatedAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		Version:             u.Version,
	}
	if u.ActiveUntil != nil {
		until := u.ActiveUntil.Format("2006-01-02")
		resp.ActiveUntil = &until
	}
	return resp
}

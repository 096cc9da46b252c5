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
	"github.com/caixaops/backend/internal/infrastructure/telemetry"
)

// ClosingService drives the daily cash-closing lifecycle. Every transition
// runs inside one unit of work and is authorized against the acting user's
// capabilities, never against role names.
type ClosingService struct {
	uow      cashday.UnitOfWork
	closings cashday.ClosingRepository
	entries  cashday.RevenueEntryRepository
	units    cashday.UnitRepository
	signer   *cashday.Signer
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewClosingService creates a new ClosingService
func NewClosingService(
	uow cashday.UnitOfWork,
	closings cashday.ClosingRepository,
	entries cashday.RevenueEntryRepository,
	units cashday.UnitRepository,
	signer *cashday.Signer,
	events shared.EventPublisher,
	logger *zap.Logger,
) *ClosingService {
	return &ClosingService{
		uow:      uow,
		closings: closings,
		entries:  entries,
		units:    units,
		signer:   signer,
		events:   events,
		logger:   logger,
	}
}

// OpenDayRequest opens the cash day for a unit
type OpenDayRequest struct {
	UnitID       uuid.UUID       `json:"unit_id" binding:"required"`
	Date         time.Time       `json:"date" binding:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	Notes        string          `json:"notes"`
}

// RecordEntryRequest appends a revenue entry to an open day
type RecordEntryRequest struct {
	ClosingID       uuid.UUID       `json:"-"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	WindowStart     time.Time       `json:"window_start" binding:"required"`
	WindowEnd       time.Time       `json:"window_end" binding:"required"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	Origin          string          `json:"origin"`
}

// CloseDayRequest freezes an open day
type CloseDayRequest struct {
	ClosingID      uuid.UUID       `json:"-"`
	ConferredTotal decimal.Decimal `json:"conferred_total"`
	Notes          string          `json:"notes"`
}

// ConferDayRequest audits a closed day
type ConferDayRequest struct {
	ClosingID       uuid.UUID       `json:"-"`
	Approved        bool            `json:"approved"`
	ReconciledTotal decimal.Decimal `json:"reconciled_total"`
	Notes           string          `json:"notes"`
}

// ReopenDayRequest returns a closed or confirmed day to open
type ReopenDayRequest struct {
	ClosingID uuid.UUID `json:"-"`
	Reason    string    `json:"reason" binding:"required"`
}

// CancelDayRequest terminates a day
type CancelDayRequest struct {
	ClosingID uuid.UUID `json:"-"`
	Reason    string    `json:"reason" binding:"required"`
}

// ClosingListFilter defines filtering options for closing list queries
type ClosingListFilter struct {
	Status   string     `form:"status"`
	From     *time.Time `form:"from"`
	To       *time.Time `form:"to"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

// OpenDay opens the cash day for a unit and date. At most one non-cancelled
// closing may exist per (unit, date); the check and the insert run in one
// transaction, with the partial unique index as the backstop under races.
func (s *ClosingService) OpenDay(ctx context.Context, actor identity.Actor, req OpenDayRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "open_day")
	defer span.End()

	if !actor.Can(identity.CapOpenDay) {
		return nil, shared.NewDomainError("FORBIDDEN", "Opening a day requires the cashday:open capability")
	}
	scope := actor.Scope()

	unit, err := s.units.FindByID(ctx, scope, req.UnitID)
	if err != nil {
		return nil, err
	}
	if !unit.IsActiveOn(req.Date) {
		return nil, shared.NewDomainError("UNIT_INACTIVE", "Unit is not active on the requested date")
	}

	var closing *cashday.Closing
	err = s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		existing, err := repos.Closings.FindActiveByUnitAndDate(ctx, scope, req.UnitID, req.Date)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.NewDomainErrorf("ALREADY_OPEN", "A closing already exists for this unit and date (status %s)", existing.Status)
		}

		closing, err = cashday.NewClosing(unit.TenantID, req.UnitID, req.Date, req.OpeningFloat, actor.UserID, req.Notes)
		if err != nil {
			return err
		}
		return repos.Closings.Save(ctx, scope, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)
	s.logger.Info("Cash day opened",
		zap.String("closing_id", closing.ID.String()),
		zap.String("unit_id", req.UnitID.String()),
		zap.String("date", closing.Date.Format("2006-01-02")))
	return toClosingResponse(closing, nil), nil
}

// RecordEntry appends a revenue entry to an open day. The overlap check, the
// insert and the running-total refresh on the closing row share a transaction;
// the closing's version check serializes concurrent recorders so two entries
// cannot both pass the overlap check unseen.
func (s *ClosingService) RecordEntry(ctx context.Context, actor identity.Actor, req RecordEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "record_entry")
	defer span.End()

	if !actor.Can(identity.CapRecordEntry) {
		return nil, shared.NewDomainError("FORBIDDEN", "Recording entries requires the cashday:record capability")
	}
	scope := actor.Scope()

	origin := cashday.OriginManual
	if req.Origin != "" {
		origin = cashday.EntryOrigin(req.Origin)
	}

	var entry *cashday.RevenueEntry
	var closing *cashday.Closing
	err := s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		var err error
		closing, err = repos.Closings.FindByID(ctx, scope, req.ClosingID)
		if err != nil {
			return err
		}
		if !closing.Status.CanRecordEntries() {
			return shared.NewDomainErrorf("STATE_CONFLICT", "Cannot record entries on a day in %s status", closing.Status)
		}

		colliding, err := repos.Entries.FindOverlapping(ctx, scope, closing.ID, req.WindowStart, req.WindowEnd)
		if err != nil {
			return err
		}
		if colliding != nil {
			return shared.NewDomainErrorf("OVERLAP_CONFLICT", "Entry window overlaps existing entry %s", colliding.ID)
		}

		entry, err = cashday.NewRevenueEntry(
			closing.TenantID, closing.UnitID, closing.ID,
			req.Amount, req.WindowStart, req.WindowEnd,
			req.PaymentMethodID, origin,
		)
		if err != nil {
			return err
		}
		if err := repos.Entries.Save(ctx, scope, entry); err != nil {
			return err
		}

		active, err := repos.Entries.FindByClosing(ctx, scope, closing.ID, false)
		if err != nil {
			return err
		}
		closing.CalculatedTotal = cashday.CalculateTotal(closing.OpeningFloat, active)
		closing.UpdatedAt = time.Now()
		closing.IncrementVersion()
		return repos.Closings.Update(ctx, scope, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.events.Publish(ctx, cashday.NewEntryRecordedEvent(closing, entry)); err != nil {
		s.logger.Warn("Failed to publish entry recorded event", zap.Error(err))
	}
	return toEntryResponse(entry), nil
}

// CloseDay freezes an open day. The calculated total is recomputed fresh
// from the active entries inside the transaction; the stored running total
// is never trusted here.
func (s *ClosingService) CloseDay(ctx context.Context, actor identity.Actor, req CloseDayRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "close_day")
	defer span.End()

	if !actor.Can(identity.CapCloseDay) {
		return nil, shared.NewDomainError("FORBIDDEN", "Closing a day requires the cashday:close capability")
	}
	scope := actor.Scope()

	var closing *cashday.Closing
	err := s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		var err error
		closing, err = repos.Closings.FindByID(ctx, scope, req.ClosingID)
		if err != nil {
			return err
		}

		active, err := repos.Entries.FindByClosing(ctx, scope, closing.ID, false)
		if err != nil {
			return err
		}
		calculated := cashday.CalculateTotal(closing.OpeningFloat, active)

		if err := closing.Close(calculated, req.ConferredTotal, req.Notes, actor.UserID, s.signer); err != nil {
			return err
		}
		return repos.Closings.Update(ctx, scope, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)
	s.logger.Info("Cash day closed",
		zap.String("closing_id", closing.ID.String()),
		zap.String("calculated_total", closing.CalculatedTotal.StringFixed(2)),
		zap.String("difference", closing.Difference.StringFixed(2)))
	return toClosingResponse(closing, nil), nil
}

// ConferDay audits a closed day. The integrity signature is verified and the
// calculated total recomputed before any state moves; approval confirms the
// day, rejection reopens it with the audit note preserved in the trail.
func (s *ClosingService) ConferDay(ctx context.Context, actor identity.Actor, req ConferDayRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "confer_day")
	defer span.End()

	if !actor.Can(identity.CapAudit) {
		return nil, shared.NewDomainError("FORBIDDEN", "Conferring a day requires the cashday:audit capability")
	}
	scope := actor.Scope()

	var closing *cashday.Closing
	err := s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		var err error
		closing, err = repos.Closings.FindByID(ctx, scope, req.ClosingID)
		if err != nil {
			return err
		}

		active, err := repos.Entries.FindByClosing(ctx, scope, closing.ID, false)
		if err != nil {
			return err
		}
		fresh := cashday.CalculateTotal(closing.OpeningFloat, active)

		if err := closing.Confer(req.Approved, req.ReconciledTotal, fresh, req.Notes, actor.UserID, s.signer); err != nil {
			return err
		}
		return repos.Closings.Update(ctx, scope, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)
	s.logger.Info("Cash day conferred",
		zap.String("closing_id", closing.ID.String()),
		zap.Bool("approved", req.Approved),
		zap.String("status", string(closing.Status)))
	return toClosingResponse(closing, nil), nil
}

// ReopenDay returns a closed or confirmed day to open for correction
func (s *ClosingService) ReopenDay(ctx context.Context, actor identity.Actor, req ReopenDayRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "reopen_day")
	defer span.End()

	if !actor.Can(identity.CapReopen) {
		return nil, shared.NewDomainError("FORBIDDEN", "Reopening a day requires the cashday:reopen capability")
	}
	scope := actor.Scope()

	var closing *cashday.Closing
	err := s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		var err error
		closing, err = repos.Closings.FindByID(ctx, scope, req.ClosingID)
		if err != nil {
			return err
		}
		if err := closing.Reopen(req.Reason, actor.UserID, s.signer); err != nil {
			return err
		}
		return repos.Closings.Update(ctx, scope, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)
	s.logger.Info("Cash day reopened",
		zap.String("closing_id", closing.ID.String()),
		zap.String("reason", req.Reason))
	return toClosingResponse(closing, nil), nil
}

// CancelDay terminates an open or closed day and deactivates its entries
// in the same transaction so they no longer count toward any total.
func (s *ClosingService) CancelDay(ctx context.Context, actor identity.Actor, req CancelDayRequest) (*ClosingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "cancel_day")
	defer span.End()

	if !actor.Can(identity.CapCancel) {
		return nil, shared.NewDomainError("FORBIDDEN", "Cancelling a day requires the cashday:cancel capability")
	}
	scope := actor.Scope()

	var closing *cashday.Closing
	err := s.uow.Execute(ctx, func(repos cashday.Repositories) error {
		var err error
		closing, err = repos.Closings.FindByID(ctx, scope, req.ClosingID)
		if err != nil {
			return err
		}
		if err := closing.Cancel(req.Reason, actor.UserID); err != nil {
			return err
		}
		if err := repos.Closings.Update(ctx, scope, closing); err != nil {
			return err
		}
		return repos.Entries.DeactivateByClosing(ctx, scope, closing.ID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)
	s.logger.Info("Cash day cancelled",
		zap.String("closing_id", closing.ID.String()),
		zap.String("reason", req.Reason))
	return toClosingResponse(closing, nil), nil
}

// GetClosing returns one closing with its audit trail
func (s *ClosingService) GetClosing(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ClosingResponse, error) {
	closing, err := s.closings.FindByIDWithTrail(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	return toClosingResponse(closing, closing.Trail), nil
}

// ListByUnit returns a unit's closings, newest date first
func (s *ClosingService) ListByUnit(ctx context.Context, actor identity.Actor, unitID uuid.UUID, filter ClosingListFilter) ([]ClosingResponse, int64, error) {
	domainFilter := cashday.ClosingFilter{
		From:     filter.From,
		To:       filter.To,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Status != "" {
		status := cashday.ClosingStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainErrorf("VALIDATION_ERROR", "Unknown closing status %q", filter.Status)
		}
		domainFilter.Status = &status
	}

	closings, total, err := s.closings.FindByUnit(ctx, actor.Scope(), unitID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]ClosingResponse, len(closings))
	for i := range closings {
		responses[i] = *toClosingResponse(&closings[i], nil)
	}
	return responses, total, nil
}

// ListEntries returns a closing's revenue entries, oldest window first
func (s *ClosingService) ListEntries(ctx context.Context, actor identity.Actor, closingID uuid.UUID, includeInactive bool) ([]EntryResponse, error) {
	scope := actor.Scope()
	if _, err := s.closings.FindByID(ctx, scope, closingID); err != nil {
		return nil, err
	}
	entries, err := s.entries.FindByClosing(ctx, scope, closingID, includeInactive)
	if err != nil {
		return nil, err
	}
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = *toEntryResponse(&entries[i])
	}
	return responses, nil
}

// ListPending returns closed days awaiting confer, oldest first
func (s *ClosingService) ListPending(ctx context.Context, actor identity.Actor, filter ClosingListFilter) ([]ClosingResponse, error) {
	if !actor.Can(identity.CapAudit) {
		return nil, shared.NewDomainError("FORBIDDEN", "Listing pending days requires the cashday:audit capability")
	}
	closings, err := s.closings.FindPending(ctx, actor.Scope(), cashday.ClosingFilter{
		From:     filter.From,
		To:       filter.To,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, err
	}
	responses := make([]ClosingResponse, len(closings))
	for i := range closings {
		responses[i] = *toClosingResponse(&closings[i], nil)
	}
	return responses, nil
}

// publishEvents flushes the aggregate's pending events after commit.
// Publication is best effort; a handler failure never rolls back a
// committed transition.
func (s *ClosingService) publishEvents(ctx context.Context, closing *cashday.Closing) {
	events := closing.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish closing events", zap.Error(err))
	}
	closing.ClearDomainEvents()
}

package cashday

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caixaops/backend/internal/domain/tenancy"
)

// ClosingFilter narrows closing list queries
type ClosingFilter struct {
	Status   *ClosingStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ClosingRepository provides access to closing records. Every method takes
// the caller's access scope explicitly; implementations apply the tenant
// filter uniformly and reject cross-tenant writes.
type ClosingRepository interface {
	FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*Closing, error)
	FindByIDWithTrail(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*Closing, error)
	// FindActiveByUnitAndDate returns the single non-cancelled closing for
	// (unit, date), or nil when the day is unopened.
	FindActiveByUnitAndDate(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, date time.Time) (*Closing, error)
	FindByUnit(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, filter ClosingFilter) ([]Closing, int64, error)
	// FindPending lists closed days awaiting confer, for audit tooling.
	FindPending(ctx context.Context, scope tenancy.AccessScope, filter ClosingFilter) ([]Closing, error)
	Save(ctx context.Context, scope tenancy.AccessScope, closing *Closing) error
	// Update persists the aggregate with an optimistic version check and
	// returns shared.ErrConcurrencyConflict when the row moved underneath.
	Update(ctx context.Context, scope tenancy.AccessScope, closing *Closing) error
}

// RevenueEntryRepository provides access to revenue entries
type RevenueEntryRepository interface {
	FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*RevenueEntry, error)
	FindByClosing(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID, includeInactive bool) ([]RevenueEntry, error)
	// FindOverlapping returns an active entry under the closing whose window
	// intersects [start, end), or nil when the slot is free.
	FindOverlapping(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID, start, end time.Time) (*RevenueEntry, error)
	Save(ctx context.Context, scope tenancy.AccessScope, entry *RevenueEntry) error
	Update(ctx context.Context, scope tenancy.AccessScope, entry *RevenueEntry) error
	DeactivateByClosing(ctx context.Context, scope tenancy.AccessScope, closingID uuid.UUID) error
	// MonthToDateTotal sums active entry amounts for a unit within the
	// calendar month containing the given date.
	MonthToDateTotal(ctx context.Context, scope tenancy.AccessScope, unitID uuid.UUID, month time.Time) (decimal.Decimal, error)
}

// UnitRepository provides access to unit records
type UnitRepository interface {
	FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*Unit, error)
	FindAll(ctx context.Context, scope tenancy.AccessScope) ([]Unit, error)
	FindActiveOn(ctx context.Context, scope tenancy.AccessScope, date time.Time) ([]Unit, error)
	Save(ctx context.Context, scope tenancy.AccessScope, unit *Unit) error
	Update(ctx context.Context, scope tenancy.AccessScope, unit *Unit) error
}

// Repositories bundles the cashday repositories bound to one transaction
type Repositories struct {
	Closings ClosingRepository
	Entries  RevenueEntryRepository
	Units    UnitRepository
}

// UnitOfWork executes a function atomically: every repository call made
// through the passed Repositories runs in one database transaction, so a
// failed transition leaves no partial record.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

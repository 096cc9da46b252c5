package cashday

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/persistence"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
)

func TestProjectMonthEnd(t *testing.T) {
	tests := []struct {
		name     string
		mtd      string
		asOf     time.Time
		expected string
	}{
		{
			name:     "ten of thirty-one days",
			mtd:      "1000.00",
			asOf:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			expected: "3100",
		},
		{
			name:     "first day projects a full month",
			mtd:      "100.00",
			asOf:     time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			expected: "3100",
		},
		{
			name:     "last day is the month-to-date total",
			mtd:      "4321.99",
			asOf:     time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC),
			expected: "4321.99",
		},
		{
			name:     "february",
			mtd:      "700.00",
			asOf:     time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
			expected: "1400",
		},
		{
			name:     "zero revenue projects zero",
			mtd:      "0",
			asOf:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectMonthEnd(decimal.RequireFromString(tt.mtd), tt.asOf)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got)
		})
	}
}

func newProjectionFixture(t *testing.T) (*ProjectionService, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenancy.Tenant{},
		&cashday.Closing{},
		&cashday.RevenueEntry{},
		&cashday.Unit{},
	))
	tenant.EnableGuards(db)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	service := NewProjectionService(
		persistence.NewGormUnitRepository(db),
		persistence.NewGormRevenueEntryRepository(db),
		persistence.NewGormTenantRepository(db),
		zap.NewNop(),
	)

	org, err := tenancy.NewTenant("Rede Beta")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormTenantRepository(db).Save(context.Background(), tenancy.Unrestricted(), org))
	return service, db, org.ID
}

func seedEntry(t *testing.T, db *gorm.DB, tenantID, unitID uuid.UUID, day time.Time, amount string) {
	entry, err := cashday.NewRevenueEntry(
		tenantID, unitID, uuid.New(),
		decimal.RequireFromString(amount),
		day.Add(9*time.Hour), day.Add(10*time.Hour),
		uuid.Nil, cashday.OriginManual,
	)
	require.NoError(t, err)
	repo := persistence.NewGormRevenueEntryRepository(db)
	require.NoError(t, repo.Save(context.Background(), tenancy.ScopedTo(tenantID), entry))
}

func TestProjectionService_RecalculateAll(t *testing.T) {
	service, db, tenantID := newProjectionFixture(t)
	ctx := context.Background()
	scope := tenancy.ScopedTo(tenantID)

	unit, err := cashday.NewUnit(tenantID, "Loja Sul", decimal.NewFromInt(10000), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	units := persistence.NewGormUnitRepository(db)
	require.NoError(t, units.Save(ctx, scope, unit))

	// 300 recorded over the first 10 days of a 31-day month
	seedEntry(t, db, tenantID, unit.ID, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), "100.00")
	seedEntry(t, db, tenantID, unit.ID, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), "200.00")
	// Outside the month, must not count
	seedEntry(t, db, tenantID, unit.ID, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), "999.00")

	asOf := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	require.NoError(t, service.RecalculateAll(ctx, asOf))

	refreshed, err := units.FindByID(ctx, scope, unit.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.ProjectedMonthTotal.Equal(decimal.NewFromInt(930)),
		"expected 930, got %s", refreshed.ProjectedMonthTotal)
	require.NotNil(t, refreshed.ProjectionUpdatedAt)
}

func TestProjectionService_SkipsUnitsNotActiveOnDate(t *testing.T) {
	service, db, tenantID := newProjectionFixture(t)
	ctx := context.Background()
	scope := tenancy.ScopedTo(tenantID)
	units := persistence.NewGormUnitRepository(db)

	retired, err := cashday.NewUnit(tenantID, "Loja Encerrada", decimal.NewFromInt(5000), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, retired.Deactivate(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, units.Save(ctx, scope, retired))

	seedEntry(t, db, tenantID, retired.ID, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), "500.00")

	require.NoError(t, service.RecomputeForTenant(ctx, tenantID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))

	refreshed, err := units.FindByID(ctx, scope, retired.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.ProjectedMonthTotal.IsZero())
	assert.Nil(t, refreshed.ProjectionUpdatedAt)
}

package tenant

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/tenancy"
)

// These tests pin down the SQL the scope produces against the postgres
// dialector, independent of any real database.

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	EnableGuards(gormDB)
	return gormDB, mock, mockDB
}

func TestScope_AppendsTenantCondition(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "units" WHERE tenant_id = \$1`).
		WithArgs(tenantID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []unitRow
	err := db.Scopes(Scope(tenancy.ScopedTo(tenantID))).Find(&rows).Error
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScope_UnrestrictedEmitsNoCondition(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "units"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []unitRow
	err := db.Scopes(Scope(tenancy.Unrestricted())).Find(&rows).Error
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScope_GuardBlocksBeforeSQLReachesDriver(t *testing.T) {
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()

	// No expectations registered: the guard must reject the statement
	// before anything hits the connection.
	var rows []unitRow
	err := db.Find(&rows).Error
	assert.ErrorIs(t, err, ErrUnscopedQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

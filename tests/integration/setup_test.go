// Package integration exercises the full HTTP stack against sqlite.
package integration

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cashdayapp "github.com/caixaops/backend/internal/application/cashday"
	identityapp "github.com/caixaops/backend/internal/application/identity"
	tenancyapp "github.com/caixaops/backend/internal/application/tenancy"
	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/tenancy"
	"github.com/caixaops/backend/internal/infrastructure/auth"
	"github.com/caixaops/backend/internal/infrastructure/config"
	"github.com/caixaops/backend/internal/infrastructure/event"
	"github.com/caixaops/backend/internal/infrastructure/persistence"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
	"github.com/caixaops/backend/internal/interfaces/http/handler"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// TestServer holds the wired application over an in-memory database
type TestServer struct {
	DB         *gorm.DB
	Engine     *gin.Engine
	JWTService *auth.JWTService
	UserRepo   *persistence.GormUserRepository
	UnitRepo   *persistence.GormUnitRepository
	TenantRepo *persistence.GormTenantRepository
}

// NewTestServer wires repositories, services and handlers the way the
// server entrypoint does, minus Redis and telemetry
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenancy.Tenant{},
		&identity.User{},
		&cashday.Unit{},
		&cashday.Closing{},
		&cashday.ClosingAuditRecord{},
		&cashday.RevenueEntry{},
	))
	tenant.EnableGuards(db)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zap.NewNop()

	tenantRepo := persistence.NewGormTenantRepository(db)
	userRepo := persistence.NewGormUserRepository(db)
	unitRepo := persistence.NewGormUnitRepository(db)
	closingRepo := persistence.NewGormClosingRepository(db)
	entryRepo := persistence.NewGormRevenueEntryRepository(db)
	uow := persistence.NewGormUnitOfWork(db)
	bus := event.NewInMemoryEventBus(log)
	signer := cashday.NewSigner("integration-test-key")

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-access-secret-123456",
		RefreshSecret:          "integration-refresh-secret-123456",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "caixaops-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	closingService := cashdayapp.NewClosingService(uow, closingRepo, entryRepo, unitRepo, signer, bus, log)
	unitService := cashdayapp.NewUnitService(unitRepo, log)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, log)
	tenantService := tenancyapp.NewTenantService(tenantRepo, bus, log)

	authHandler := handler.NewAuthHandler(authService)
	closingHandler := handler.NewClosingHandler(closingService)
	unitHandler := handler.NewUnitHandler(unitService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	userHandler := handler.NewUserHandler(userService)

	engine := gin.New()
	engine.Use(middleware.RequestID())

	api := engine.Group("/api/v1")
	authHandler.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(middleware.JWTConfig{
		JWTService: jwtService,
		Blacklist:  blacklist,
		Logger:     log,
	}))
	protected.Use(middleware.ResolveActor())
	authHandler.RegisterProtectedRoutes(protected)
	closingHandler.RegisterRoutes(protected)
	unitHandler.RegisterRoutes(protected)
	tenantHandler.RegisterRoutes(protected)
	userHandler.RegisterRoutes(protected)

	return &TestServer{
		DB:         db,
		Engine:     engine,
		JWTService: jwtService,
		UserRepo:   userRepo,
		UnitRepo:   unitRepo,
		TenantRepo: tenantRepo,
	}
}

// SeedTenant creates and persists an active tenant
func (s *TestServer) SeedTenant(t *testing.T, name string) *tenancy.Tenant {
	t.Helper()
	tn, err := tenancy.NewTenant(name)
	require.NoError(t, err)
	require.NoError(t, s.TenantRepo.Save(t.Context(), tenancy.Unrestricted(), tn))
	return tn
}

// SeedUnit creates a unit active since the given date
func (s *TestServer) SeedUnit(t *testing.T, tenantID uuid.UUID, name string, activeFrom time.Time) *cashday.Unit {
	t.Helper()
	unit, err := cashday.NewUnit(tenantID, name, decimal.NewFromInt(30000), activeFrom)
	require.NoError(t, err)
	require.NoError(t, s.UnitRepo.Save(t.Context(), tenancy.ScopedTo(tenantID), unit))
	return unit
}

// SeedUser creates a user and returns it with a valid access token
func (s *TestServer) SeedUser(t *testing.T, tenantID *uuid.UUID, username string, roles ...identity.Role) (*identity.User, string) {
	t.Helper()
	user, err := identity.NewUser(tenantID, username, username, "s3cret-password", roles)
	require.NoError(t, err)

	scope := tenancy.Unrestricted()
	if tenantID != nil {
		scope = tenancy.ScopedTo(*tenantID)
	}
	require.NoError(t, s.UserRepo.Save(t.Context(), scope, user))

	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, string(r))
	}
	pair, err := s.JWTService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:       user.ID,
		TenantID:     tenantID,
		Username:     username,
		Roles:        roleNames,
		Capabilities: user.Capabilities().List(),
	})
	require.NoError(t, err)
	return user, pair.AccessToken
}

// apiResponse mirrors the wire envelope with the data left raw
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

// Do performs a JSON request against the engine
func (s *TestServer) Do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, *apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Engine.ServeHTTP(rec, req)

	resp := &apiResponse{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	}
	return rec, resp
}

// decodeData unmarshals the response data payload into out
func decodeData(t *testing.T, resp *apiResponse, out any) {
	t.Helper()
	require.NotNil(t, resp.Data)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

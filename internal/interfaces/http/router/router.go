package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/infrastructure/auth"
	"github.com/caixaops/backend/internal/infrastructure/config"
	"github.com/caixaops/backend/internal/infrastructure/logger"
	"github.com/caixaops/backend/internal/interfaces/http/handler"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a handler's routes on a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Dependencies carries everything the router needs to assemble the engine
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Blacklist  auth.TokenBlacklist

	AuthHandler    *handler.AuthHandler
	SystemHandler  *handler.SystemHandler
	ClosingHandler *handler.ClosingHandler
	UnitHandler    *handler.UnitHandler
	TenantHandler  *handler.TenantHandler
	UserHandler    *handler.UserHandler
}

// New assembles the gin engine with the full middleware chain and all routes
func New(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(logger.Recovery(deps.Logger))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
		engine.Use(middleware.AnnotateSpan())
	}

	api := engine.Group("/api/v1")

	// Liveness and credential endpoints stay outside the token check.
	deps.SystemHandler.RegisterRoutes(api)

	public := api.Group("")
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		public.Use(limiter.Middleware())
	}
	deps.AuthHandler.RegisterPublicRoutes(public)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(middleware.JWTConfig{
		JWTService: deps.JWTService,
		Blacklist:  deps.Blacklist,
		Logger:     deps.Logger,
	}))
	protected.Use(middleware.ResolveActor())

	deps.AuthHandler.RegisterProtectedRoutes(protected)
	for _, registrar := range []RouteRegistrar{
		deps.ClosingHandler,
		deps.UnitHandler,
		deps.TenantHandler,
		deps.UserHandler,
	} {
		registrar.RegisterRoutes(protected)
	}

	return engine, nil
}

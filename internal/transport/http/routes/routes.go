package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/infra/config"
	"github.com/lifeinventory/inventory-identity/internal/infra/security"
	"github.com/lifeinventory/inventory-identity/internal/transport/http/handlers"
	"github.com/lifeinventory/inventory-identity/internal/transport/http/middleware"
	"github.com/lifeinventory/inventory-identity/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Users *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Issuer      *security.JWTIssuer
	Revocations port.RevocationCache
	Database    DatabaseChecker
	Cache       CacheChecker
	Metrics     handlers.LoginRecorder
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(middleware.TracingOptions{}))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		deps.Logger.Warn("failed to register http metrics, continuing without them", zap.Error(err))
		httpMetrics = nil
	}
	r.Use(httpMetrics.Handler())

	authMiddleware := middleware.RequireAuth(deps.Issuer, deps.Revocations, deps.Logger)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Users, deps.Metrics)
		authHandler.RegisterRoutes(authGroup, authMiddleware)

		passwordGroup := api.Group("/password")
		passwordHandler := handlers.NewPasswordHandler(deps.Services.Auth, deps.Services.Users)
		passwordHandler.RegisterRoutes(passwordGroup, authMiddleware)

		accountGroup := api.Group("/accounts")
		accountGroup.Use(authMiddleware)
		accountHandler := handlers.NewAccountHandler(deps.Services.Users)
		accountHandler.RegisterRoutes(accountGroup)
	}

	return r
}

package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/infra/config"
	"github.com/remodely/auth-service/internal/transport/http/handlers"
	"github.com/remodely/auth-service/internal/transport/http/middleware"
	"github.com/remodely/auth-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Verification *usecase.PhoneVerificationService
	StoreLinks   *usecase.StoreLinkService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	// One shared per-IP window over every route. Endpoint-specific rules
	// below stack on top of it.
	if deps.RateLimiter != nil {
		cfg := deps.Config.RateLimit
		r.Use(deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       "ip",
			Limit:      cfg.MaxRequests,
			Window:     cfg.Window,
			Identifier: middleware.ClientIPIdentifier(),
		}))
	}

	var dbCheck, cacheCheck handlers.HealthChecker
	if deps.Database != nil {
		dbCheck = deps.Database.Ping
	}
	if deps.Cache != nil {
		cacheCheck = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(dbCheck, cacheCheck, deps.Config.SMS.Configured())
	healthHandler.RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Verification)
		authHandler.RegisterRoutes(authGroup, handlers.AuthRouteOptions{
			VerifyMiddlewares: buildVerifyMiddlewares(deps),
		})

		internalGroup := api.Group("/internal",
			middleware.RequireServiceSecret(deps.Config.Service.SharedSecret))
		internalGroup.POST("/validate-token", authHandler.Introspect)

		shopifyGroup := api.Group("/shopify")
		shopifyHandler := handlers.NewShopifyHandler(
			deps.Services.StoreLinks,
			deps.Services.Auth,
			deps.Config.Shopify.ClientRedirect,
			deps.Logger,
		)
		shopifyHandler.RegisterRoutes(shopifyGroup)
	}

	return r
}

// buildVerifyMiddlewares assembles the per-account ceiling on code
// verification attempts.
func buildVerifyMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}

	cfg := deps.Config.RateLimit
	rule := middleware.RateLimitRule{
		Name:       "verify_phone",
		Limit:      cfg.VerifyPhoneMax,
		Window:     cfg.VerifyPhoneWindow,
		Identifier: middleware.UserIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

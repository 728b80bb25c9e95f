package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/config"
	"github.com/remodely/auth-service/internal/infra/database"
	kafkainfra "github.com/remodely/auth-service/internal/infra/kafka"
	"github.com/remodely/auth-service/internal/infra/logger"
	redisinfra "github.com/remodely/auth-service/internal/infra/redis"
	"github.com/remodely/auth-service/internal/infra/security"
	"github.com/remodely/auth-service/internal/infra/shopify"
	"github.com/remodely/auth-service/internal/infra/sms"
	postgresrepo "github.com/remodely/auth-service/internal/repository/postgres"
	redisrepo "github.com/remodely/auth-service/internal/repository/redis"
	"github.com/remodely/auth-service/internal/transport/http/middleware"
	"github.com/remodely/auth-service/internal/transport/http/routes"
	"github.com/remodely/auth-service/internal/usecase"
)

// Application wires configuration, infrastructure, and the HTTP surface.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New builds the application graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tokenService, err := security.NewTokenService(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	pendingAuth := redisrepo.NewPendingAuthRepository(redisClient.Client(), cfg.Redis.StatePrefix)
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), "auth:rate-limit")

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	smsGateway := sms.NewGateway(cfg.SMS, log)
	shopifyClient := shopify.NewClient(cfg.Shopify)

	authService := usecase.NewAuthService(
		repos.Users,
		tokenService,
		smsGateway,
		eventPublisher,
		security.DefaultPasswordValidator(),
		log,
	)
	verificationService := usecase.NewPhoneVerificationService(repos.Users, smsGateway, eventPublisher, log)
	storeLinkService := usecase.NewStoreLinkService(
		repos.Stores,
		pendingAuth,
		shopifyClient,
		eventPublisher,
		cfg.Shopify.StateTTL,
		log,
	)

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Verification: verificationService,
			StoreLinks:   storeLinkService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

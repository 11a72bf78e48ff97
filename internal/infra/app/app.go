package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/infra/config"
	"github.com/lifeinventory/inventory-identity/internal/infra/database"
	kafkainfra "github.com/lifeinventory/inventory-identity/internal/infra/kafka"
	"github.com/lifeinventory/inventory-identity/internal/infra/logger"
	redisinfra "github.com/lifeinventory/inventory-identity/internal/infra/redis"
	"github.com/lifeinventory/inventory-identity/internal/infra/security"
	"github.com/lifeinventory/inventory-identity/internal/infra/telemetry"
	postgresrepo "github.com/lifeinventory/inventory-identity/internal/repository/postgres"
	redisrepo "github.com/lifeinventory/inventory-identity/internal/repository/redis"
	"github.com/lifeinventory/inventory-identity/internal/transport/http/routes"
	"github.com/lifeinventory/inventory-identity/internal/usecase"
)

// Application bundles the wired service with its infrastructure handles.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	store    *postgresrepo.Store
	redis    *redisinfra.Client
	tracer   *telemetry.TracerProvider
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("failed to init tracer provider, continuing without tracing", zap.Error(err))
			tracer = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	store := postgresrepo.NewStore(pool)

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	issuer, err := security.NewJWTIssuer(security.JWTConfig{
		Secret:          cfg.JWT.Secret,
		Issuer:          cfg.JWT.Issuer,
		AccessTTL:       cfg.JWT.AccessTokenTTL,
		RefreshTTL:      cfg.JWT.RefreshTokenTTL,
		ResetTTL:        cfg.JWT.ResetTokenTTL,
		VerificationTTL: cfg.JWT.VerificationTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	revocationCache := redisrepo.NewRevocationCache(redisClient.Client(), cfg.Redis.RevocationPrefix)
	revocationTTL := cfg.Revocation.MarkTTL
	if revocationTTL <= 0 {
		revocationTTL = maxDuration(cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	}
	if revocationTTL <= 0 {
		revocationTTL = 24 * time.Hour
	}

	repos := postgresrepo.NewRepositories(store.Pool())

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			producer = kafkaProducer
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordValidator := security.DefaultPasswordValidator()

	authService := usecase.NewAuthService(repos.Accounts, repos.Tokens, hasher, issuer, eventPublisher).
		WithLogger(log).
		WithRevocationCache(revocationCache, revocationTTL)
	if cfg.Google.ClientID != "" {
		authService = authService.WithExternalVerifier(security.NewGoogleVerifier(cfg.Google.ClientID))
	}

	userService := usecase.NewUserService(repos.Accounts, repos.Tokens, hasher, issuer, eventPublisher, passwordValidator).
		WithLogger(log).
		WithRevocationCache(revocationCache, revocationTTL)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Issuer:      issuer,
		Revocations: revocationCache,
		Database:    store,
		Cache:       redisClient,
		Metrics:     metrics,
		Services: routes.ServiceSet{
			Auth:  authService,
			Users: userService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		store:    store,
		redis:    redisClient,
		tracer:   tracer,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.store.Close()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
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

	a.logger.Info("starting identity API",
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

func maxDuration(values ...time.Duration) time.Duration {
	var max time.Duration
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

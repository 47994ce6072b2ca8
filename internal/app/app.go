package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/etianguis/checkout/internal/commerce"
	"github.com/etianguis/checkout/internal/config"
	"github.com/etianguis/checkout/internal/event"
	handler "github.com/etianguis/checkout/internal/handler/http"
	"github.com/etianguis/checkout/internal/mail"
	"github.com/etianguis/checkout/internal/repository/postgres"
	"github.com/etianguis/checkout/internal/service"
	"github.com/etianguis/checkout/internal/worker"
	"github.com/etianguis/checkout/migrations"
	"github.com/etianguis/checkout/pkg/database"
	"github.com/etianguis/checkout/pkg/health"
	"github.com/etianguis/checkout/pkg/httpclient"
	pkgkafka "github.com/etianguis/checkout/pkg/kafka"
	"github.com/etianguis/checkout/pkg/tracing"
)

// App wires together all dependencies and runs the checkout service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	retrier        *worker.ManualOrderRetrier
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "checkout",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "checkout")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Inventory observation cache: process-local or shared via Redis.
	var (
		inventoryCache commerce.InventoryCache
		redisClient    *redis.Client
	)
	if cfg.InventoryCacheBackend == "redis" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		inventoryCache = commerce.NewRedisInventoryCache(redisClient)
		logger.Info("using redis inventory cache", slog.String("addr", cfg.Redis().Addr()))
	} else {
		inventoryCache = commerce.NewMemoryInventoryCache()
	}

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// HTTP client with retry and circuit breaker for the commerce backend.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		MaxRetries:      cfg.HTTPMaxRetries,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 100,
	})
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "commerce-backend",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Int("timeout_seconds", cfg.CBTimeout),
	)

	commerceClient := commerce.NewClient(commerce.Config{
		BaseURL:        cfg.CommerceBaseURL,
		PublishableKey: cfg.CommercePublishableKey,
		AdminToken:     cfg.CommerceAdminToken,
		InventoryTTL:   time.Duration(cfg.InventoryCacheTTLSeconds) * time.Second,
	}, httpclient.NewRequestDoer(cbClient), inventoryCache, logger)

	// Build the dependency graph.
	repo := postgres.NewOrderRepository(pool)
	eventProducer := event.NewOrderProducer(producer)
	mailer := mail.NewClient(mail.Config{
		SenderURL: cfg.MailSenderURL,
		From:      cfg.MailFrom,
		StoreName: cfg.MailStoreName,
	}, httpclient.NewRequestDoer(baseClient), logger)

	finalizer := service.NewOrderFinalizer(commerceClient, logger)
	reconciler := service.NewInventoryReconciler(commerceClient, cfg.InventoryConcurrency, logger)

	checkoutService := service.NewCheckoutService(
		commerceClient,
		finalizer,
		reconciler,
		mailer,
		repo,
		eventProducer,
		service.StepTimeouts{
			Cart:      time.Duration(cfg.CartStepTimeout) * time.Second,
			Complete:  time.Duration(cfg.CompleteStepTimeout) * time.Second,
			Inventory: time.Duration(cfg.InventoryStepTimeout) * time.Second,
			Notify:    time.Duration(cfg.NotifyStepTimeout) * time.Second,
		},
		logger,
	)

	var retrier *worker.ManualOrderRetrier
	if cfg.RetryWorkerEnabled {
		retrier = worker.NewManualOrderRetrier(repo, commerceClient, eventProducer, worker.Config{
			Interval:  time.Duration(cfg.RetryWorkerInterval) * time.Second,
			BatchSize: cfg.RetryWorkerBatch,
		}, logger)
	}

	// Health checks. The commerce backend and Kafka are non-critical: the
	// service keeps taking checkouts and degrades to manual orders.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, repo, logger)
	router := handler.NewRouter(handler.RouterConfig{
		Checkout:          checkoutHandler,
		Health:            healthHandler,
		Logger:            logger,
		ServiceName:       "checkout",
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		retrier:        retrier,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the retry worker, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	if a.retrier != nil {
		go a.retrier.Run(workerCtx)
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

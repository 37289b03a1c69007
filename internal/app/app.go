// Package app wires every collaborator the engine needs and runs it as one
// process. Grounded on
// services/search/internal/app/app.go's App{Run,Shutdown} shape: a single
// constructor builds the whole dependency graph from Config, Run starts the
// HTTP server and Kafka consumer in background goroutines and blocks until
// the context is cancelled, Shutdown tears everything down in the order
// that drains in-flight work first.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avishek-m/pricecompare/internal/adminsvc"
	"github.com/avishek-m/pricecompare/internal/analytics"
	"github.com/avishek-m/pricecompare/internal/authsvc"
	"github.com/avishek-m/pricecompare/internal/config"
	"github.com/avishek-m/pricecompare/internal/content/postgres"
	"github.com/avishek-m/pricecompare/internal/content/postgres/migrations"
	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/embedding"
	"github.com/avishek-m/pricecompare/internal/geocode"
	"github.com/avishek-m/pricecompare/internal/httpserver"
	"github.com/avishek-m/pricecompare/internal/orchestrator"
	"github.com/avishek-m/pricecompare/internal/platform"
	"github.com/avishek-m/pricecompare/internal/platform/bigbasket"
	"github.com/avishek-m/pricecompare/internal/platform/blinkit"
	"github.com/avishek-m/pricecompare/internal/platform/dmart"
	"github.com/avishek-m/pricecompare/internal/platform/instamart"
	"github.com/avishek-m/pricecompare/internal/platform/zepto"
	"github.com/avishek-m/pricecompare/internal/proxyclient"
	"github.com/avishek-m/pricecompare/pkg/auth"
	"github.com/avishek-m/pricecompare/pkg/database"
	"github.com/avishek-m/pricecompare/pkg/health"
	"github.com/avishek-m/pricecompare/pkg/kafka"
	"github.com/avishek-m/pricecompare/pkg/middleware"
	"github.com/avishek-m/pricecompare/pkg/tracing"
)

// App wires together every dependency and runs the engine.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	analyticsCons  *kafka.Consumer
	dbPool         interface{ Close() }
	redisClient    *redis.Client
	tracerShutdown func(context.Context) error
}

// NewApp builds the full dependency graph from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(initCtx, tracing.Config{
		ServiceName:    "pricecompare",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	redisClient, err := database.NewRedisClient(initCtx, database.RedisConfig{
		Host:     redisHost(cfg.RedisAddr),
		Port:     redisPort(cfg.RedisAddr),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable at startup, geocode/embedding caches disabled",
			slog.String("error", err.Error()))
		redisClient = nil
	}

	dbPool, err := database.NewPostgresPoolWithLogger(initCtx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := database.RunMigrations(initCtx, dbPool, migrations.FS, logger); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	contentStore := postgres.New(dbPool)

	geocodeClient := geocode.New(geocode.Config{
		APIKeys:         cfg.MapProviderAPIKeys,
		GeocodeURL:      cfg.GeocodeBaseURL,
		AutocompleteURL: cfg.PlacesBaseURL,
	}, redisClient)

	embeddingClient := embedding.New(embedding.Config{
		APIKey:  cfg.EmbeddingAPIKey,
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModel,
	}, redisClient)

	proxyTimeout := time.Duration(cfg.ProxyCallTimeoutSecs) * time.Second
	handlers := map[domain.Platform]platform.Handler{
		domain.BigBasket: bigbasket.New(newProxyClient(cfg, domain.BigBasket, proxyTimeout, logger), logger),
		domain.Blinkit:   blinkit.New(newProxyClient(cfg, domain.Blinkit, proxyTimeout, logger), logger),
		domain.Instamart: instamart.New(newProxyClient(cfg, domain.Instamart, proxyTimeout, logger), logger),
		domain.DMart:     dmart.New(newProxyClient(cfg, domain.DMart, proxyTimeout, logger), logger),
		domain.Zepto:     zepto.New(newProxyClient(cfg, domain.Zepto, proxyTimeout, logger), logger),
	}

	orch := orchestrator.New(geocodeClient, handlers, embeddingClient, logger)

	kafkaProducer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	orch = orch.WithAnalytics(analytics.NewPublisher(kafkaProducer, logger))

	aggregator := analytics.NewAggregator()
	idempotencyStore := kafka.NewMemoryIdempotencyStore(24 * time.Hour)
	analyticsConsumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:   cfg.KafkaBrokers,
		GroupID:   cfg.KafkaConsumerGrp,
		Topic:     analytics.Topic,
		MinBytes:  1,
		MaxBytes:  10e6,
		EnableDLQ: cfg.KafkaEnableDLQ,
	}, kafka.IdempotentHandler(idempotencyStore, aggregator.Handle, logger), logger)

	authService := authsvc.New(geocodeClient, contentStore, logger)
	authService = authService.WithOTP(noopOTPSender{})

	jwtManager := auth.NewJWTManager(cfg.AdminSessionSecret, time.Hour, 24*time.Hour)
	adminService := adminsvc.New(contentStore, jwtManager, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return dbPool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return kafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := httpserver.NewRouter(httpserver.Dependencies{
		Orchestrator: orch,
		Auth:         authService,
		Admin:        adminService,
		Content:      contentStore,
		Analytics:    aggregator,
		JWT:          jwtManager,
		APIKeyPool:   cfg.MapKeyPool,
		Health:       healthHandler,
		Logger:       logger,
		CORS:         middleware.CORSConfig{AllowedOrigins: []string{"*"}},
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		PprofCIDRs:   cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		analyticsCons:  analyticsConsumer,
		dbPool:         dbPool,
		redisClient:    redisClient,
		tracerShutdown: tracerShutdown,
	}, nil
}

// redisHost and redisPort split cfg.RedisAddr ("host:port") into the
// separate fields database.RedisConfig wants, defaulting to 6379 if the
// address is malformed.
func redisHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func redisPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 6379
	}
	return port
}

func newProxyClient(cfg *config.Config, p domain.Platform, timeout time.Duration, logger *slog.Logger) *proxyclient.Client {
	return proxyclient.New(proxyclient.Config{
		Platform: string(p),
		APIKey:   cfg.ProxyAPIKey,
		ProxyURL: cfg.ProxyBaseURL,
		Timeout:  timeout,
	}, logger)
}

// noopOTPSender is the default OTPSender when no SMS gateway is configured
// — SendOTP still records and expires codes, it just never reaches a phone.
type noopOTPSender struct{}

func (noopOTPSender) Send(ctx context.Context, mobile, code string) error { return nil }

// Run starts the HTTP server and the analytics consumer, blocking until ctx
// is cancelled or either component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.analyticsCons.Start(ctx); err != nil {
			errCh <- fmt.Errorf("analytics consumer: %w", err)
		}
	}()

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

// Shutdown drains in-flight HTTP requests, flushes tracing, then closes the
// analytics consumer and connection pools.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")
	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	if err := a.analyticsCons.Close(); err != nil {
		errs = append(errs, fmt.Errorf("analytics consumer close: %w", err))
	}

	a.dbPool.Close()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

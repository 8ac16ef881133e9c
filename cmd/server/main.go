package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/companyhub/internal/handler"
	"github.com/aryan0dhankhar/companyhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/companyhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/companyhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/companyhub/internal/reliability/retry"
	"github.com/aryan0dhankhar/companyhub/internal/security/audit"
	"github.com/aryan0dhankhar/companyhub/internal/security/auth"
	"github.com/aryan0dhankhar/companyhub/internal/security/middleware"
	"github.com/aryan0dhankhar/companyhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/companyhub/internal/service"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
	"github.com/aryan0dhankhar/companyhub/pkg/config"
	"github.com/aryan0dhankhar/companyhub/pkg/database"
)

const serviceName = "companyhub"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting companyhub server",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.StorageBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Storage, guarded by a circuit breaker
	inner, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	breaker := circuitbreaker.New(5, 2, 10*time.Second)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warn("storage circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		metrics.SetStorageCircuitState(int(to))
	})
	store := storage.NewGuardedStore(inner, breaker)
	defer store.Close()

	// 5. Security components
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using the development secret")
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, serviceName)
	loginLimiter := ratelimit.NewLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()
	auditLogger := audit.NewLogger(log)

	// 6. Services
	companies := service.NewCompanyService(store, service.SystemClock, log)
	users := service.NewUserService(store, companies, hasher, service.SystemClock, log)
	authService := service.NewAuthService(users, hasher, tokenManager.WithClock(service.SystemClock), cfg.AccessTokenTTL, log)
	batch := service.NewBatchService(store, cfg.BatchCollection, cfg.BatchFile, log)

	// 7. Routes
	mux := handler.NewRouter(handler.Services{
		Companies: companies,
		Users:     users,
		Auth:      authService,
		Batch:     batch,
		Store:     store,
	}, loginLimiter, auditLogger, log)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: tracing -> request ID -> CORS -> metrics -> routes
	rootHandler := otelhttp.NewHandler(
		middleware.Chain(metrics.HTTPMetricsMiddleware(mux),
			middleware.RequestID(log),
			middleware.CORS(cfg.CORSAllowedOrigins),
		),
		serviceName,
	)

	// 8. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("token_ttl", cfg.AccessTokenTTL),
		slog.Int("login_rate_limit", cfg.LoginRateLimit),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openStore connects the configured backend, retrying while it comes up
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := database.Open(&database.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}, log)
		if err != nil {
			return nil, err
		}
		_, err = retry.Do(ctx, retry.DefaultConfig(), log, "postgres ping", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, pool.Health(ctx)
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		store := storage.NewPostgresStore(pool.GetDB(), log)
		if cfg.RunMigrations {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil

	case config.BackendRedis:
		client, err := retry.Do(ctx, retry.DefaultConfig(), log, "redis connect", func(context.Context) (*redis.Client, error) {
			return redis.NewClient(cfg.RedisURL, log)
		})
		if err != nil {
			return nil, err
		}
		return storage.NewRedisStore(client, storage.DefaultIndexes, log), nil

	default:
		log.Warn("using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(storage.DefaultIndexes), nil
	}
}

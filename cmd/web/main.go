package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/store"
)

const (
	version       = "1.0.0"
	pingTimeout   = 5 * time.Second
	sweepInterval = time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"addr", cfg.Address(),
		"store", cfg.Store.Backend,
		"upload_max_bytes", cfg.Upload.MaxBytes,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open dataset store", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	dashboard := services.NewDashboard(st, cfg, logger, metrics)
	limiter := middleware.NewRateLimiter(cfg.Security)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, metrics, dashboard, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go sweep(ctx, sweepInterval, st, limiter, logger)

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("closing dataset store")
		return st.Close()
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

func newHandler(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, dashboard *services.Dashboard, limiter *middleware.RateLimiter) http.Handler {
	srv := server.NewServer(dashboard, cfg, logger, metrics)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(cfg.Security),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
		middleware.Metrics(metrics),
	)

	return middlewareChain(srv)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return store.NewRedis(client, cfg.TTL), nil
	default:
		return store.NewMemory(cfg.MaxEntries, cfg.TTL), nil
	}
}

// sweep periodically drops expired in-memory datasets and idle rate limit
// buckets. Redis expires keys on its own.
func sweep(ctx context.Context, every time.Duration, st store.Store, limiter *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := 0
			if mem, ok := st.(*store.Memory); ok {
				expired = mem.Sweep()
			}
			visitors := limiter.Sweep()
			logger.Debug("sweep completed", "expired_datasets", expired, "rate_limit_visitors", visitors)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/furacompany/kirkidata-backend-sub000/internal/config"
	"github.com/furacompany/kirkidata-backend-sub000/internal/infra"
	"github.com/furacompany/kirkidata-backend-sub000/internal/logging"
	"github.com/furacompany/kirkidata-backend-sub000/internal/server"
)

func main() {
	// Local overrides; absent in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsDev())

	ctx := context.Background()

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	} else {
		logger.Warn("running with in-memory stores; data will not survive restarts")
	}

	cache, err := openRedis(ctx, cfg)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// openPostgres connects to PostgreSQL, or returns nil in development when no
// DATABASE_URL is configured (routes fall back to in-memory stores).
func openPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" && cfg.IsDev() {
		return nil, nil
	}
	return infra.NewPostgresPool(ctx, cfg.DatabaseURL)
}

// openRedis connects to Redis, or returns nil in development when no
// REDIS_URL is configured (purchase endpoints run without the idempotency
// layer).
func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" && cfg.IsDev() {
		return nil, nil
	}
	return infra.NewRedisClient(ctx, cfg.RedisURL)
}

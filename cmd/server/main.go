/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the overtime engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then config (file + OVERTIME_* environment)
  2. Build the zap logger
  3. Open the SQLite store (roster, ledger, reconcile runs)
  4. Pick the staging store: Redis when redis.addr is set, else in-memory
  5. Build the engine, handler and router
  6. Start the reconciliation scheduler and the HTTP server
  7. Graceful shutdown on SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (default: ./config/config.yaml or ./config.yaml)

EXAMPLES:
  OVERTIME_AUTH_JWT_SECRET=change-me-please-0123 ./server
  OVERTIME_DB_PATH=":memory:" OVERTIME_REDIS_ADDR=localhost:6379 ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/attendance"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/ledger"
	"github.com/warp/overtime-engine/ledger/store"
	"github.com/warp/overtime-engine/store/redis"
	"github.com/warp/overtime-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", zap.String("path", cfg.Database.Path))

	var staging ledger.StagingStore = store.NewMemory()
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		staging = redis.NewStaging(rdb, cfg.Redis.StagingTTL, logger)
	} else {
		logger.Info("redis not configured, staging kept in memory")
	}

	engine := attendance.NewEngine(db, db, staging,
		attendance.WithRunStore(db),
		attendance.WithLogger(logger.Named("attendance")),
	)

	handler := api.NewHandler(engine, logger.Named("api"))
	handler.Ping = db.Ping

	auth := jwtauth.New("HS256", []byte(cfg.Auth.JWTSecret), nil)
	router := api.NewRouter(handler, auth, api.RouterOptions{
		AllowedOrigins: cfg.Server.CORS.AllowOrigins,
		OwnerClaim:     cfg.Auth.OwnerClaim,
	})

	scheduler := api.NewReconciliationScheduler(engine, logger.Named("scheduler"))
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

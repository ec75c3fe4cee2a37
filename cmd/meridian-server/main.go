// Package main is the entry point for the Meridian Accounts server.
// Meridian Accounts is a user and group administration service with
// superuser-gated access control.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/auth"
	"github.com/prn-tf/meridian-accounts/internal/bootstrap"
	"github.com/prn-tf/meridian-accounts/internal/config"
	"github.com/prn-tf/meridian-accounts/internal/handler"
	"github.com/prn-tf/meridian-accounts/internal/lock"
	"github.com/prn-tf/meridian-accounts/internal/metrics"
	"github.com/prn-tf/meridian-accounts/internal/pkg/crypto"
	"github.com/prn-tf/meridian-accounts/internal/repository"
	"github.com/prn-tf/meridian-accounts/internal/repository/postgres"
	"github.com/prn-tf/meridian-accounts/internal/repository/sqlite"
	"github.com/prn-tf/meridian-accounts/internal/service"
	"github.com/prn-tf/meridian-accounts/internal/session"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Meridian Accounts server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.close()

	// Sessions and locking
	var (
		sessions session.Store
		locker   lock.Locker
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to Redis")

		sessions = session.NewRedisStore(client)
		locker = lock.NewRedisLocker(client)
	} else {
		sessions = session.NewMemoryStore()
		locker = lock.NewMemoryLocker()
	}
	defer sessions.Close()

	hasher := crypto.NewBcryptHasher(cfg.Auth.BcryptCost)

	// Seed the initial superuser on an empty database.
	if cfg.Bootstrap.Enabled {
		seeder := bootstrap.NewSeeder(db.users, db.tx, hasher, locker, logger)
		if err := seeder.EnsureAdmin(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
			return err
		}
	}

	// Services
	adminService := service.NewAdminService(db.users, db.groups, db.tx, hasher, logger)
	authService := service.NewAuthService(db.users, sessions, hasher, cfg.Auth.SessionTTL, logger)

	// HTTP surface
	m := metrics.New()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = m.Handler()
	}

	authMiddleware := auth.NewMiddleware(authService, logger)
	router := handler.NewRouter(handler.RouterConfig{
		AdminHandler:   handler.NewAdminHandler(adminService, m, logger),
		AuthHandler:    handler.NewAuthHandler(authService, m, cfg.Server.SecureCookies, logger),
		AuthMiddleware: authMiddleware.Handler,
		MetricsHandler: metricsHandler,
		Health:         db.health,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// database bundles the backend-agnostic pieces the rest of the wiring needs.
type database struct {
	users  repository.UserRepository
	groups repository.GroupRepository
	tx     repository.TxManager
	health handler.HealthChecker
	close  func()
}

// openDatabase opens the configured backend and runs migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*database, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Path,
			MaxOpenConns:    1,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			SynchronousMode: cfg.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &database{
			users:  sqlite.NewUserRepository(db),
			groups: sqlite.NewGroupRepository(db),
			tx:     db,
			health: db,
			close:  func() { db.Close() },
		}, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &database{
			users:  postgres.NewUserRepository(db),
			groups: postgres.NewGroupRepository(db),
			tx:     db,
			health: db,
			close:  func() { db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// newLogger builds the root logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

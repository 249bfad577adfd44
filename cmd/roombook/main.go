// Command roombook builds the booking store, optionally seeds and persists it,
// prints the booking statistics and can expose them as Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/cache"
	"github.com/example/room-reservations/internal/config"
	"github.com/example/room-reservations/internal/events"
	"github.com/example/room-reservations/internal/logging"
	"github.com/example/room-reservations/internal/metrics"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
	"github.com/example/room-reservations/internal/persistence/postgres"
	"github.com/example/room-reservations/internal/persistence/sqlite"
	"github.com/example/room-reservations/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error("roombook failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) error {
	ctx, operationID := logging.WithOperationID(ctx, logger)
	logger = logger.With("operation_id", operationID)
	now := time.Now

	store := memory.New()

	snapshots, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		return err
	}
	if snapshots != nil {
		defer func() {
			if cerr := snapshots.Close(); cerr != nil {
				logger.Error("failed to close snapshot store", "error", cerr)
			}
		}()
		snapshot, err := snapshots.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if err := store.Import(snapshot); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		logger.Info("snapshot loaded", "driver", cfg.StoreDriver,
			"users", len(snapshot.Users), "rooms", len(snapshot.Rooms), "bookings", len(snapshot.Bookings))
	}

	publisher := openPublisher(cfg, logger)
	if closer, ok := publisher.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	policy, err := application.ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return err
	}

	reportOpts := []application.ReportOption{
		application.WithTopUsers(cfg.TopUsers),
		application.WithTrendWindow(cfg.TrendWindowDays),
		application.WithReportLogger(logger),
	}
	if statsCache := openStatsCache(ctx, cfg, logger); statsCache != nil {
		reportOpts = append(reportOpts, application.WithStatsCache(statsCache, store))
	}

	users := application.NewUserServiceWithLogger(store, nil, logger)
	rooms := application.NewRoomServiceWithLogger(store, logger)
	bookings := application.NewBookingService(store, store, store, now,
		application.WithConflictPolicy(policy),
		application.WithEventPublisher(publisher),
		application.WithBookingLogger(logger),
	)
	reports := application.NewReportService(store, store, store, now, reportOpts...)

	if cfg.SeedDefaults {
		existing, err := users.ListUsers(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if _, err := seed.Defaults(ctx, users, rooms, bookings, now()); err != nil {
				return err
			}
			logger.Info("default data seeded")
		}
	}

	stats, err := reports.ComputeStats(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stats); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	if snapshots != nil {
		if err := snapshots.Save(ctx, store.Export()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		logger.Info("snapshot saved", "driver", cfg.StoreDriver)
	}

	if cfg.MetricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, cfg.MetricsAddr, reports, logger)
}

func openSnapshotStore(ctx context.Context, cfg config.Config) (persistence.SnapshotStore, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, nil
}

// openPublisher falls back to discarding events when the broker is unreachable.
func openPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("booking events disabled", "error", err)
		return events.NopPublisher{}
	}
	return publisher
}

// openStatsCache returns nil when Redis is not configured or unreachable.
func openStatsCache(ctx context.Context, cfg config.Config, logger *slog.Logger) application.StatsCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("stats cache disabled", "error", err)
		return nil
	}
	return cache.NewRedisStatsCache(client, cfg.StatsCacheTTL)
}

func serveMetrics(ctx context.Context, addr string, source metrics.StatsSource, logger *slog.Logger) error {
	handler, err := metrics.Handler(metrics.NewStatsCollector(source, 5*time.Second, logger))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

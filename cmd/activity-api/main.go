// cmd/activity-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mergington-activities/internal/activities"
	"mergington-activities/internal/activities/store/memory"
	"mergington-activities/internal/activities/store/pgstore"
	"mergington-activities/internal/activities/store/redisstore"
	"mergington-activities/internal/api"
	appaws "mergington-activities/internal/common/aws"
	"mergington-activities/internal/common/config"
	"mergington-activities/internal/common/database"
	"mergington-activities/internal/common/logger"
	"mergington-activities/internal/common/observability"
	"mergington-activities/internal/notify"
	"mergington-activities/pkg/catalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// storeHandle bundles the selected store with its readiness probe and cleanup.
type storeHandle struct {
	store activities.Store
	ready func(ctx context.Context) error
	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting activity API...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storageDriver", cfg.Storage.Driver),
	)

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()
	storageTimeout := config.GetDuration(cfg.Storage.Timeout)

	// --- Init roster store ---
	handle, err := openStore(ctx, cfg, storageTimeout, zapLog)
	if err != nil {
		zapLog.Fatal("store init failed", zap.Error(err))
	}
	defer handle.close()

	// --- Init notifications ---
	notifier, err := buildNotifier(ctx, cfg, storageTimeout, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	// --- Seed registry from catalog ---
	cat, err := catalog.LoadOrDefault(cfg.Registry.CatalogPath)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}

	registry := activities.NewRegistry(handle.store, activities.Options{
		EnforceCapacity: cfg.Registry.EnforceCapacity,
		ValidateEmail:   cfg.Registry.ValidateEmail,
	}, notifier, log)

	seedCtx, cancelSeed := context.WithTimeout(ctx, storageTimeout)
	_, err = registry.Seed(seedCtx, activities.FromCatalog(cat))
	cancelSeed()
	if err != nil {
		zapLog.Fatal("catalog seed failed", zap.Error(err))
	}

	// --- HTTP server ---
	server := api.NewServer(api.Config{
		StaticDir: cfg.Server.StaticDir,
		ReadinessCheck: func(ctx context.Context) error {
			if handle.ready == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(ctx, storageTimeout)
			defer cancel()
			return handle.ready(ctx)
		},
	}, registry, log, obs)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Activity API stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, timeout time.Duration, zapLog *zap.Logger) (*storeHandle, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		rc := database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return rc.Ping(pingCtx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			rc.Close()
			return nil, err
		}
		zapLog.Info("Redis connected successfully")

		return &storeHandle{
			store: redisstore.New(rc.Client, cfg.Storage.RedisKeyPrefix),
			ready: rc.Ping,
			close: func() { _ = rc.Close() },
		}, nil

	case config.DriverPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := pg.Ping(pingCtx); err != nil {
				pg.Close()
				return err
			}
			return nil
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")

		store := pgstore.New(pg.DB)
		schemaCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := store.EnsureSchema(schemaCtx); err != nil {
			pg.Close()
			return nil, err
		}

		return &storeHandle{
			store: store,
			ready: pg.Ping,
			close: func() { _ = pg.Close() },
		}, nil

	default:
		zapLog.Info("Using in-memory roster store; rosters reset on restart")
		return &storeHandle{
			store: memory.New(),
			close: func() {},
		}, nil
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, timeout time.Duration, log logger.Logger) (activities.Notifier, error) {
	var notifiers notify.Multi

	if cfg.Notifications.SES.Enabled {
		client, err := appaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewSESNotifier(client, cfg.Notifications.SES.FromEmail, timeout, log))
	}

	if cfg.Notifications.SNS.Enabled {
		client, err := appaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewSNSNotifier(client, cfg.Notifications.SNS.TopicARN, timeout, log))
	}

	if len(notifiers) == 0 {
		return notify.Nop{}, nil
	}
	log.Info("signup notifications enabled", map[string]interface{}{"channels": len(notifiers)})
	return notifiers, nil
}

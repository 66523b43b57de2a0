package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ifscore/config"
	"ifscore/export"
	"ifscore/observability"
	"ifscore/observability/logging"
	telemetry "ifscore/observability/otel"
	"ifscore/server"
	"ifscore/server/middleware"
	"ifscore/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ifsd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "ifs.toml", "path to ifsd configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("ifsd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "ifsd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	policy, err := config.LoadPolicy(cfg.Policy.File)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	store, err := storage.Open(storage.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	idempotency, err := middleware.OpenIdempotencyStore(filepath.Join(cfg.DataDir, "idempotency.db"), 0)
	if err != nil {
		return fmt.Errorf("open idempotency store: %w", err)
	}
	defer func() { _ = idempotency.Close() }()

	metrics := observability.IFS()

	srv := server.New(server.Config{
		Store:   store,
		Weights: cfg.Weights,
		Policy:  policy,
		Logger:  logger,
		Metrics: metrics,
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		},
		Idempotency: idempotency,
	})

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Export.Enabled {
		reporter, err := export.NewReporter(export.Config{
			Store:     store,
			Policy:    policy,
			OutputDir: cfg.Export.OutputDir,
			Logger:    logger,
			Metrics:   metrics,
			Alert: func(_ context.Context, a export.Anomaly) error {
				logger.Warn("export anomaly",
					"type", a.Type,
					"owner", a.OwnerID,
					"day", a.Day.String(),
					"details", a.Details,
				)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("init exporter: %w", err)
		}
		scheduler := export.NewScheduler(export.SchedulerConfig{
			Reporter:  reporter,
			RunHour:   cfg.Export.RunHour,
			RunMinute: cfg.Export.RunMinute,
			Logger:    logger,
		})
		go scheduler.Start(stopCtx)
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("ifsd listening", "address", cfg.ListenAddress, "driver", cfg.Storage.Driver)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/semantrics/internal/config"
	"github.com/cloo-solutions/semantrics/internal/coordinator"
	"github.com/cloo-solutions/semantrics/internal/gateway"
	"github.com/cloo-solutions/semantrics/internal/identity"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/observability"
	"github.com/cloo-solutions/semantrics/internal/telemetry"
)

const defaultDrainTimeout = 10 * time.Second

// Version is reported in the User-Agent and to Sentry. Set by main.
var Version = "dev"

// App is the wired search client.
type App struct {
	Config      *config.Config
	Logger      logger.Logger
	Identity    *identity.Provider
	Gateway     *gateway.Gateway
	Telemetry   *telemetry.Client
	Coordinator *coordinator.Coordinator

	flushSentry func()
}

// NewApp wires identity, gateway, telemetry and coordinator from cfg.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}

	flush := observability.Init(observability.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "semantrics@" + Version,
	}, log)

	provider, err := gateway.NewProvider(cfg.Provider)
	if err != nil {
		flush()
		return nil, err
	}

	opts := []gateway.Option{
		gateway.WithUserAgent("semantrics/" + Version),
		gateway.WithLogger(log),
	}
	if cfg.ProviderURL != "" {
		opts = append(opts, gateway.WithBaseURL(cfg.ProviderURL))
	}
	if cfg.SearchTimeout > 0 {
		opts = append(opts, gateway.WithTimeout(cfg.SearchTimeout))
	}
	gw := gateway.New(provider, opts...)

	emitter, err := telemetry.NewClient(telemetry.Config{
		InterfaceKey: cfg.InterfaceKey,
		CollectorURL: cfg.CollectorURL,
		Metadata:     cfg.Metadata,
		Workers:      cfg.TelemetryWorkers,
		QueueSize:    cfg.TelemetryQueueSize,
		Timeout:      cfg.TelemetryTimeout,
		Logger:       log,
	})
	if err != nil {
		flush()
		return nil, fmt.Errorf("failed to create telemetry client: %w", err)
	}

	ids := identity.New()
	if cfg.UserID != "" {
		ids = identity.NewFixed(cfg.UserID)
	}
	coord := coordinator.New(gw, emitter, ids, coordinator.Config{
		Debounce: cfg.Debounce,
		Provider: gw.Provider(),
		Logger:   log,
	})

	log.Info("search client ready",
		logger.String("provider", gw.Provider()),
		logger.String("collector", cfg.CollectorURL),
		logger.String("user_id", ids.Current()),
	)

	return &App{
		Config:      cfg,
		Logger:      log,
		Identity:    ids,
		Gateway:     gw,
		Telemetry:   emitter,
		Coordinator: coord,
		flushSentry: flush,
	}, nil
}

// Close stops the coordinator and drains pending telemetry until ctx expires.
func (a *App) Close(ctx context.Context) error {
	a.Coordinator.Close()
	err := a.Telemetry.Close(ctx)

	st := a.Telemetry.Stats()
	a.Logger.Info("telemetry drained",
		logger.Uint64("scheduled", st.Scheduled),
		logger.Uint64("delivered", st.Delivered),
		logger.Uint64("failed", st.Failed),
		logger.Uint64("dropped", st.Dropped),
	)

	a.flushSentry()
	// Syncing a terminal fails on some platforms; only file sinks are reported.
	if syncErr := a.Logger.Sync(); syncErr != nil && a.Config.HasLogFile() {
		err = errors.Join(err, syncErr)
	}
	return err
}

// drainContext bounds how long Close waits for telemetry.
func (a *App) drainContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.Config.TelemetryTimeout
	if timeout <= 0 {
		timeout = defaultDrainTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}

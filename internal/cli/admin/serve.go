package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/semantrics/internal/api/handlers"
	"github.com/cloo-solutions/semantrics/internal/collector"
	"github.com/cloo-solutions/semantrics/internal/config"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/observability"
	"github.com/cloo-solutions/semantrics/internal/server"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions configures the development collector.
type ServeOptions struct {
	Addr string
	// Keys restricts accepted interface keys; empty accepts any.
	Keys     []string
	Capacity int
}

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var opts ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development collector",
		Long: `Start a local collector that accepts the query, results, interaction and
conversion events and keeps the most recent ones in memory. Inspect them with
GET /events and GET /events/stats.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if opts.Addr == "" {
				opts.Addr = cfg.CollectorAddr
			}

			log, err := logger.New(logger.Config{Level: cfg.LogLevel})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			flush := observability.Init(observability.Config{
				DSN:         cfg.SentryDSN,
				Environment: cfg.SentryEnvironment,
			}, log)
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", opts.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
			}
			return Serve(ctx, ln, opts, log)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", "", "Address to listen on (default SEMANTRICS_COLLECTOR_ADDR)")
	cmd.Flags().StringSliceVar(&opts.Keys, "interface-key", nil, "Accepted interface keys (repeatable; default accepts any)")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", collector.DefaultCapacity, "Number of events kept in memory")

	return cmd
}

// Serve runs the collector on ln until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, ln net.Listener, opts ServeOptions, log logger.Logger) error {
	store := collector.NewStore(opts.Capacity)
	router := server.NewRouter(server.RouterConfig{
		EventHandler: handlers.NewEventHandler(store, log, opts.Keys...),
		Logger:       log,
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("collector listening",
			logger.String("addr", ln.Addr().String()),
			logger.String("interface_keys", strings.Join(opts.Keys, ",")),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	st := store.Stats(shutdownCtx)
	log.Info("server exited", logger.Int("events", st.Total))
	return nil
}

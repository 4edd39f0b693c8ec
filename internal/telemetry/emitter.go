// Package telemetry delivers analytics events to the Semantrics collector.
//
// Delivery is fire-and-forget: every Log call builds and serializes its event
// before returning, then hands the payload to a worker pool. Failures are
// logged and dropped; nothing is retried and callers never wait.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/observability"
)

// Emitter is what the query coordinator and UI log through. The userID is the
// identity captured by the caller when the event happened.
type Emitter interface {
	LogQuery(userID, query string)
	LogResults(userID, query string, results []domain.ResultRecord)
	LogInteraction(userID, query string, rank int, resultName string)
	LogConversion(userID, eventName string, eventValue float64)
}

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 10 * time.Second
)

// Config holds the settings for a Client.
type Config struct {
	InterfaceKey string
	CollectorURL string
	Metadata     []string
	Workers      int
	QueueSize    int
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       logger.Logger
	Now          func() time.Time
}

type delivery struct {
	kind   domain.EventKind
	userID string
	body   []byte
}

// Stats counts what happened to scheduled events.
type Stats struct {
	Scheduled uint64
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Client is the HTTP Emitter.
type Client struct {
	builder    Builder
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger

	// ctx bounds every delivery; Close cancels it once its deadline passes.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	queue    chan delivery
	wg       sync.WaitGroup
	inFlight atomic.Int64

	scheduled atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewClient starts the delivery workers. Call Close to drain them.
func NewClient(cfg Config) (*Client, error) {
	if cfg.InterfaceKey == "" {
		return nil, domain.ErrMissingInterfaceKey
	}
	if cfg.CollectorURL == "" {
		return nil, fmt.Errorf("collector url is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ctx:    ctx,
		cancel: cancel,
		builder: Builder{
			InterfaceKey: cfg.InterfaceKey,
			Metadata:     cfg.Metadata,
			Now:          cfg.Now,
		},
		baseURL:    strings.TrimRight(cfg.CollectorURL, "/") + "/",
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With(logger.String("component", "telemetry")),
		queue:      make(chan delivery, cfg.QueueSize),
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.work()
	}

	return c, nil
}

func (c *Client) LogQuery(userID, query string) {
	c.schedule(c.builder.Query(userID, query))
}

func (c *Client) LogResults(userID, query string, results []domain.ResultRecord) {
	c.schedule(c.builder.Results(userID, query, results))
}

func (c *Client) LogInteraction(userID, query string, rank int, resultName string) {
	c.schedule(c.builder.Interaction(userID, query, rank, resultName))
}

func (c *Client) LogConversion(userID, eventName string, eventValue float64) {
	c.schedule(c.builder.Conversion(userID, eventName, eventValue))
}

// Stats returns a snapshot of the delivery counters.
func (c *Client) Stats() Stats {
	return Stats{
		Scheduled: c.scheduled.Load(),
		Delivered: c.delivered.Load(),
		Failed:    c.failed.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// schedule serializes ev now, so the payload is frozen before this returns.
func (c *Client) schedule(ev domain.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		c.dropped.Add(1)
		c.logger.Error("failed to marshal telemetry event",
			logger.String("kind", string(ev.Kind())),
			logger.Error(err),
		)
		return
	}

	d := delivery{kind: ev.Kind(), userID: ev.User(), body: body}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		c.logger.Debug("telemetry client closed, dropping event", logger.String("kind", string(d.kind)))
		return
	}

	select {
	case c.queue <- d:
		c.scheduled.Add(1)
	default:
		c.dropped.Add(1)
		c.logger.Warn("telemetry queue full, dropping event",
			logger.String("kind", string(d.kind)),
			logger.Error(domain.ErrTelemetryQueueFull),
		)
	}
}

func (c *Client) work() {
	defer c.wg.Done()
	for d := range c.queue {
		if c.ctx.Err() != nil {
			c.dropped.Add(1)
			continue
		}
		c.inFlight.Add(1)
		c.deliver(d)
		c.inFlight.Add(-1)
	}
}

func (c *Client) deliver(d delivery) {
	if err := c.post(c.ctx, d); err != nil {
		if c.ctx.Err() != nil {
			c.dropped.Add(1)
			c.logger.Debug("telemetry delivery abandoned", logger.String("kind", string(d.kind)))
			return
		}
		c.failed.Add(1)
		c.logger.Warn("telemetry delivery failed",
			logger.String("kind", string(d.kind)),
			logger.String("user_id", d.userID),
			logger.Error(err),
		)
		observability.AddBreadcrumb(c.ctx, "telemetry", fmt.Sprintf("%s event not delivered: %v", d.kind, err))
		return
	}
	c.delivered.Add(1)
}

func (c *Client) post(ctx context.Context, d delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+string(d.kind), bytes.NewReader(d.body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTelemetryUndelivered, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: collector returned %d", domain.ErrTelemetryUndelivered, resp.StatusCode)
	}
	return nil
}

// Close stops accepting events and waits for queued deliveries until ctx
// expires. At that point requests in flight are cancelled, whatever is still
// queued is dropped, and Close returns once every worker has stopped.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		abandoned := int64(len(c.queue)) + c.inFlight.Load()
		c.cancel()
		<-done
		c.logger.Warn("telemetry drain timed out", logger.Int64("abandoned", abandoned))
		return errors.Join(ctx.Err(), fmt.Errorf("%d telemetry events abandoned", abandoned))
	}
}

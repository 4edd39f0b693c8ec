package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	body map[string]any
}

type fakeCollector struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	block    chan struct{}
}

func (f *fakeCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.block != nil {
		<-f.block
	}
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{path: r.URL.Path, body: body})
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (f *fakeCollector) all() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func fixedNow() time.Time {
	return time.UnixMilli(1700000000123)
}

func newClient(t *testing.T, url string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		InterfaceKey: "iface-key",
		CollectorURL: url,
		Metadata:     []string{"experimentA", "variantC"},
		Workers:      2,
		QueueSize:    16,
		Now:          fixedNow,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func drain(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
}

func TestClient_PostsEachKindToItsEndpoint(t *testing.T) {
	collector := &fakeCollector{}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := newClient(t, srv.URL+"/dev", nil)
	results := domain.Rank([]domain.ResultRecord{
		{EntityID: "react-18.2.0", Title: "react", TargetURL: "https://www.npmjs.com/package/react"},
	})

	c.LogQuery("user-1", "react")
	c.LogResults("user-1", "react", results)
	c.LogInteraction("user-1", "react", 0, "react")
	c.LogConversion("user-1", "signup", 42.5)
	drain(t, c)

	byPath := map[string]map[string]any{}
	for _, r := range collector.all() {
		byPath[r.path] = r.body
	}
	require.Len(t, byPath, 4)

	q := byPath["/dev/query"]
	assert.Equal(t, "iface-key", q["interfaceKey"])
	assert.Equal(t, "user-1", q["userId"])
	assert.Equal(t, "react", q["query"])
	assert.Equal(t, []any{"experimentA", "variantC"}, q["metadata"])
	assert.Equal(t, float64(1700000000123), q["queryTime"])

	r := byPath["/dev/results"]
	assert.Equal(t, "react", r["query"])
	assert.Equal(t, []any{map[string]any{
		"entityId": "react-18.2.0",
		"name":     "react",
		"url":      "https://www.npmjs.com/package/react",
		"index":    float64(0),
	}}, r["results"])
	assert.Equal(t, float64(1700000000123), r["resultReturnTime"])

	i := byPath["/dev/interaction"]
	assert.Equal(t, "react", i["resultName"])
	assert.Equal(t, float64(0), i["resultRow"])
	assert.Equal(t, float64(1700000000123), i["interactionTime"])

	cv := byPath["/dev/conversion"]
	assert.Equal(t, "signup", cv["eventName"])
	assert.Equal(t, 42.5, cv["eventValue"])
	assert.Equal(t, "iface-key", cv["interfaceKey"])

	stats := c.Stats()
	assert.Equal(t, uint64(4), stats.Scheduled)
	assert.Equal(t, uint64(4), stats.Delivered)
	assert.Zero(t, stats.Failed)
}

func TestClient_LogDoesNotBlockOnSlowCollector(t *testing.T) {
	collector := &fakeCollector{block: make(chan struct{})}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Workers = 1; cfg.QueueSize = 2 })

	start := time.Now()
	for i := 0; i < 10; i++ {
		c.LogQuery("user-1", "q")
	}
	assert.Less(t, time.Since(start), time.Second)

	stats := c.Stats()
	assert.Positive(t, stats.Dropped)
	assert.Equal(t, uint64(10), stats.Scheduled+stats.Dropped)

	close(collector.block)
	drain(t, c)
}

func TestClient_DeliveryFailuresAreSwallowed(t *testing.T) {
	collector := &fakeCollector{status: http.StatusInternalServerError}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	c.LogQuery("user-1", "react")
	c.LogConversion("user-1", "buy", 1)
	drain(t, c)

	assert.Len(t, collector.all(), 2, "each event is sent exactly once, no retry")
	assert.Equal(t, uint64(2), c.Stats().Failed)
}

func TestClient_UnreachableCollector(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, nil)
	c.LogQuery("user-1", "react")
	drain(t, c)

	assert.Equal(t, uint64(1), c.Stats().Failed)
}

func TestClient_IdentityCapturedAtCallTime(t *testing.T) {
	collector := &fakeCollector{block: make(chan struct{})}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	ids := identity.NewFixed("before-reset")
	c := newClient(t, srv.URL, nil)

	c.LogQuery(ids.Current(), "react")
	ids.Reset()
	close(collector.block)
	drain(t, c)

	reqs := collector.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "before-reset", reqs[0].body["userId"])
}

func TestClient_DropsAfterClose(t *testing.T) {
	collector := &fakeCollector{}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := newClient(t, srv.URL, nil)
	drain(t, c)

	c.LogQuery("user-1", "late")
	assert.Equal(t, uint64(1), c.Stats().Dropped)
	assert.NoError(t, c.Close(context.Background()))
	assert.Empty(t, collector.all())
}

func TestClient_CloseTimesOut(t *testing.T) {
	collector := &fakeCollector{block: make(chan struct{})}
	srv := httptest.NewServer(collector)
	defer func() {
		close(collector.block)
		srv.Close()
	}()

	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Workers = 1 })
	c.LogQuery("user-1", "a")
	c.LogQuery("user-1", "b")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "2 telemetry events abandoned")

	// Close has cancelled the blocked request and stopped the workers.
	assert.Zero(t, c.inFlight.Load())
	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Delivered)
	assert.Equal(t, uint64(0), stats.Failed)
	assert.Equal(t, uint64(2), stats.Dropped)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{CollectorURL: "http://x"})
	assert.ErrorIs(t, err, domain.ErrMissingInterfaceKey)

	_, err = NewClient(Config{InterfaceKey: "k"})
	assert.Error(t, err)
}

func TestBuilder_CopiesMetadata(t *testing.T) {
	meta := []string{"a"}
	b := Builder{InterfaceKey: "k", Metadata: meta, Now: fixedNow}

	ev := b.Query("u", "q")
	meta[0] = "changed"

	assert.Equal(t, []string{"a"}, ev.Metadata)
	assert.Equal(t, int64(1700000000123), ev.Timestamp)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder("k")
	r.LogQuery("u", "q")
	r.LogResults("u", "q", nil)
	r.LogInteraction("u", "q", 1, "name")
	r.LogConversion("u", "buy", 3)

	assert.Len(t, r.Events(), 4)
	assert.Equal(t, "q", r.Queries()[0].Query)
	assert.Empty(t, r.Results()[0].Results)
	assert.Equal(t, 1, r.Interactions()[0].ResultRank)
	assert.Equal(t, 3.0, r.Conversions()[0].EventValue)
}

var _ Emitter = (*Client)(nil)
var _ Emitter = (*Recorder)(nil)
var _ Emitter = Nop{}

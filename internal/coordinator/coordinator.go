// Package coordinator owns the lifecycle of the current search query.
//
// Every query moves through Dispatched to exactly one of Settled, Superseded
// or Failed. Only the most recently dispatched query may settle, and only if
// its text is still the current text when its response arrives. Accepting
// text, dispatching and the freshness check plus publish each run under one
// lock, so nothing can change the current query between check and publish.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/identity"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/observability"
	"github.com/cloo-solutions/semantrics/internal/telemetry"
)

// Searcher is the search gateway as seen by the coordinator.
type Searcher interface {
	FetchResults(ctx context.Context, query string) ([]domain.ResultRecord, error)
}

// State is an immutable snapshot of what the UI should display. Version
// increases with every change; a subscriber that sees a lower version than
// the last one it applied must ignore it.
type State struct {
	Version uint64
	Text    string
	Loading bool
	// Query is the text the displayed Results belong to.
	Query   string
	Results []domain.ResultRecord
	Err     error
}

// Config configures a Coordinator.
type Config struct {
	// Debounce is the quiet period after the last edit before an automatic
	// search. Zero disables automatic search; callers then use Search.
	Debounce time.Duration
	Provider string
	Logger   logger.Logger
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	searcher Searcher
	emitter  telemetry.Emitter
	ids      identity.Source
	logger   logger.Logger
	debounce time.Duration
	provider string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	version     uint64
	text        string
	seq         uint64
	loading     bool
	query       string
	results     []domain.ResultRecord
	lastErr     error
	timer       *time.Timer
	armed       uint64
	pending     uint64
	subscribers []func(State)
	closed      bool
}

// New wires a coordinator to its collaborators.
func New(searcher Searcher, emitter telemetry.Emitter, ids identity.Source, cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		searcher: searcher,
		emitter:  emitter,
		ids:      ids,
		logger:   cfg.Logger.With(logger.String("component", "coordinator")),
		debounce: cfg.Debounce,
		provider: cfg.Provider,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers fn to receive every new snapshot. fn runs on the
// goroutine that caused the change, outside the coordinator lock.
func (c *Coordinator) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetQueryText records new input text. A displayed result list is cleared
// at once so old results never sit under new text. A search for the text
// is scheduled after the debounce period.
func (c *Coordinator) SetQueryText(text string) {
	c.mu.Lock()
	if c.closed || text == c.text {
		c.mu.Unlock()
		return
	}

	c.text = text
	c.clearLocked()
	c.stopTimerLocked()

	if strings.TrimSpace(text) != "" && c.debounce > 0 {
		c.armed++
		gen := c.armed
		c.pending = gen
		c.timer = time.AfterFunc(c.debounce, func() { c.fire(text, gen) })
	} else {
		// No newer dispatch is coming to take over the indicator.
		c.loading = false
	}

	snap := c.changedLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// fire runs when the debounce timer armed as gen elapses. The staleness
// check and the dispatch share one critical section so an edit cannot slip
// in between and be overwritten by the older text.
func (c *Coordinator) fire(text string, gen uint64) {
	c.mu.Lock()
	if c.closed || c.pending != gen || c.text != text {
		c.mu.Unlock()
		return
	}
	d := c.dispatchLocked(text)
	c.mu.Unlock()

	c.start(d)
}

// Search dispatches query immediately and returns without waiting for the
// provider. The query becomes the current text.
func (c *Coordinator) Search(query string) *Task {
	if strings.TrimSpace(query) == "" {
		task := newTask()
		task.finish(Result{Outcome: OutcomeSkipped, Query: query, Err: domain.ErrEmptyQuery})
		return task
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		task := newTask()
		task.finish(Result{Outcome: OutcomeSuperseded, Query: query})
		return task
	}
	d := c.dispatchLocked(query)
	c.mu.Unlock()

	c.start(d)
	return d.task
}

// dispatch is a query accepted under the lock and not yet started.
type dispatch struct {
	task   *Task
	seq    uint64
	query  string
	userID string
	snap   State
}

func (c *Coordinator) dispatchLocked(query string) dispatch {
	if query != c.text {
		c.text = query
		c.clearLocked()
	}
	c.stopTimerLocked()

	c.seq++
	c.loading = true
	return dispatch{
		task:   newTask(),
		seq:    c.seq,
		query:  query,
		userID: c.ids.Current(),
		snap:   c.changedLocked(),
	}
}

func (c *Coordinator) start(d dispatch) {
	c.notify(d.snap)
	c.emitter.LogQuery(d.userID, d.query)

	c.logger.Debug("query dispatched",
		logger.String("query", d.query),
		logger.Uint64("seq", d.seq),
	)

	go c.run(d.task, d.seq, d.query, d.userID)
}

func (c *Coordinator) run(task *Task, seq uint64, query, userID string) {
	ctx, span := observability.StartSpan(c.ctx, "search", observability.SpanAttributes{
		Query:     query,
		Provider:  c.provider,
		Sequence:  seq,
		Operation: "fetch_results",
	})
	defer span.End()

	records, err := c.searcher.FetchResults(ctx, query)

	c.mu.Lock()
	if !c.liveLocked(seq, query) {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded response",
			logger.String("query", query),
			logger.Uint64("seq", seq),
		)
		span.SetOutcome(OutcomeSuperseded.String())
		task.finish(Result{Outcome: OutcomeSuperseded, Query: query, Seq: seq, Err: err})
		return
	}

	if err != nil {
		c.loading = false
		c.query = query
		c.results = nil
		c.lastErr = err
		snap := c.changedLocked()
		c.mu.Unlock()

		c.notify(snap)
		c.logger.Warn("search failed",
			logger.String("query", query),
			logger.Uint64("seq", seq),
			logger.Error(err),
		)
		span.SetError(err)
		task.finish(Result{Outcome: OutcomeFailed, Query: query, Seq: seq, Err: err})
		return
	}

	ranked := domain.Rank(records)
	c.emitter.LogResults(userID, query, ranked)
	c.loading = false
	c.query = query
	c.results = ranked
	c.lastErr = nil
	snap := c.changedLocked()
	c.mu.Unlock()

	c.notify(snap)
	span.SetOutcome(OutcomeSettled.String())
	task.finish(Result{Outcome: OutcomeSettled, Query: query, Seq: seq, Records: ranked})
}

// Click logs an interaction with the displayed result at rank and returns it.
// The event carries the query the displayed results belong to.
func (c *Coordinator) Click(rank int) (domain.ResultRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := domain.FindRank(c.results, rank)
	if !ok {
		return domain.ResultRecord{}, fmt.Errorf("%w: %d", domain.ErrUnknownRank, rank)
	}

	c.emitter.LogInteraction(c.ids.Current(), c.query, rec.Rank, rec.Title)
	return rec, nil
}

// ClickShown is Click for a row the caller rendered from an earlier
// snapshot. It fails with ErrStaleResult, logging nothing, unless query and
// shown still match what is displayed.
func (c *Coordinator) ClickShown(query string, shown domain.ResultRecord) (domain.ResultRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := domain.FindRank(c.results, shown.Rank)
	if !ok {
		return domain.ResultRecord{}, fmt.Errorf("%w: %d", domain.ErrUnknownRank, shown.Rank)
	}
	if c.query != query || rec.EntityID != shown.EntityID {
		return domain.ResultRecord{}, fmt.Errorf("%w: %s", domain.ErrStaleResult, shown.EntityID)
	}

	c.emitter.LogInteraction(c.ids.Current(), c.query, rec.Rank, rec.Title)
	return rec, nil
}

// Convert logs a conversion for the current identity.
func (c *Coordinator) Convert(eventName string, eventValue float64) error {
	if strings.TrimSpace(eventName) == "" {
		return domain.ErrInvalidConversion
	}
	c.emitter.LogConversion(c.ids.Current(), eventName, eventValue)
	return nil
}

// Close stops the debounce timer and cancels in-flight provider calls.
// Later responses are treated as superseded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	c.cancel()
}

func (c *Coordinator) liveLocked(seq uint64, query string) bool {
	return !c.closed && seq == c.seq && query == c.text
}

func (c *Coordinator) clearLocked() {
	c.query = ""
	c.results = nil
	c.lastErr = nil
}

func (c *Coordinator) stopTimerLocked() {
	c.pending = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) changedLocked() State {
	c.version++
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	results := make([]domain.ResultRecord, len(c.results))
	copy(results, c.results)
	return State{
		Version: c.version,
		Text:    c.text,
		Loading: c.loading,
		Query:   c.query,
		Results: results,
		Err:     c.lastErr,
	}
}

func (c *Coordinator) notify(s State) {
	c.mu.Lock()
	subs := make([]func(State), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

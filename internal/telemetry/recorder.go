package telemetry

import (
	"sync"

	"github.com/cloo-solutions/semantrics/internal/domain"
)

// Recorder is an in-memory Emitter. It builds events exactly like Client but
// keeps them instead of sending them.
type Recorder struct {
	builder Builder

	mu     sync.Mutex
	events []domain.Event
}

// NewRecorder returns a Recorder stamping events with interfaceKey.
func NewRecorder(interfaceKey string, metadata ...string) *Recorder {
	return &Recorder{builder: Builder{InterfaceKey: interfaceKey, Metadata: metadata}}
}

func (r *Recorder) record(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) LogQuery(userID, query string) {
	r.record(r.builder.Query(userID, query))
}

func (r *Recorder) LogResults(userID, query string, results []domain.ResultRecord) {
	r.record(r.builder.Results(userID, query, results))
}

func (r *Recorder) LogInteraction(userID, query string, rank int, resultName string) {
	r.record(r.builder.Interaction(userID, query, rank, resultName))
}

func (r *Recorder) LogConversion(userID, eventName string, eventValue float64) {
	r.record(r.builder.Conversion(userID, eventName, eventValue))
}

// Events returns every recorded event in call order.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kind returns the recorded events of one variant.
func (r *Recorder) Kind(kind domain.EventKind) []domain.Event {
	var out []domain.Event
	for _, ev := range r.Events() {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Queries returns the recorded query events.
func (r *Recorder) Queries() []domain.QueryEvent {
	var out []domain.QueryEvent
	for _, ev := range r.Kind(domain.EventQuery) {
		out = append(out, ev.(domain.QueryEvent))
	}
	return out
}

// Results returns the recorded results events.
func (r *Recorder) Results() []domain.ResultsEvent {
	var out []domain.ResultsEvent
	for _, ev := range r.Kind(domain.EventResults) {
		out = append(out, ev.(domain.ResultsEvent))
	}
	return out
}

// Interactions returns the recorded interaction events.
func (r *Recorder) Interactions() []domain.InteractionEvent {
	var out []domain.InteractionEvent
	for _, ev := range r.Kind(domain.EventInteraction) {
		out = append(out, ev.(domain.InteractionEvent))
	}
	return out
}

// Conversions returns the recorded conversion events.
func (r *Recorder) Conversions() []domain.ConversionEvent {
	var out []domain.ConversionEvent
	for _, ev := range r.Kind(domain.EventConversion) {
		out = append(out, ev.(domain.ConversionEvent))
	}
	return out
}

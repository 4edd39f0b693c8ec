// Package collector keeps the telemetry events received by the development
// collector so they can be inspected while building against it.
package collector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/pagination"
)

// DefaultCapacity bounds how many events a Store keeps.
const DefaultCapacity = 1000

// Received is one accepted event as stored by the collector.
type Received struct {
	ID           string           `json:"id"`
	Kind         domain.EventKind `json:"kind"`
	InterfaceKey string           `json:"interface_key"`
	UserID       string           `json:"user_id"`
	Query        string           `json:"query,omitempty"`
	RequestID    string           `json:"request_id,omitempty"`
	ReceivedAt   time.Time        `json:"received_at"`
	Payload      json.RawMessage  `json:"payload"`
}

// Stats counts stored events per kind.
type Stats struct {
	Total  int                      `json:"total"`
	ByKind map[domain.EventKind]int `json:"by_kind"`
}

// Store is a bounded in-memory ring of received events. The oldest event is
// evicted once capacity is reached.
type Store struct {
	mu       sync.RWMutex
	capacity int
	events   []Received
	now      func() time.Time
}

// NewStore returns a store holding up to capacity events.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, now: time.Now}
}

// Append stores ev, assigning its ID and receive time.
func (s *Store) Append(_ context.Context, ev Received) (Received, error) {
	ev.ID = uuid.NewString()
	ev.ReceivedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, ev)
	return ev, nil
}

// Filter selects stored events. Zero fields match everything.
type Filter struct {
	Kind   domain.EventKind
	UserID string
	// After resumes a listing past the event the cursor names.
	After *pagination.Cursor
	// Limit caps the result; <= 0 means no cap.
	Limit int
}

// List returns matching events oldest first.
func (s *Store) List(_ context.Context, f Filter) ([]Received, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Received, 0)
	for _, ev := range s.events[s.startLocked(f.After):] {
		if f.Kind != "" && ev.Kind != f.Kind {
			continue
		}
		if f.UserID != "" && ev.UserID != f.UserID {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// startLocked finds where a listing after c resumes. When the cursor's
// event has been evicted the receive time decides.
func (s *Store) startLocked(c *pagination.Cursor) int {
	if c == nil {
		return 0
	}
	for i, ev := range s.events {
		if ev.ID == c.LastID {
			return i + 1
		}
	}
	for i, ev := range s.events {
		if ev.ReceivedAt.After(c.Timestamp) {
			return i
		}
	}
	return len(s.events)
}

// CursorOf returns the cursor that resumes a listing after ev.
func CursorOf(ev Received) pagination.Cursor {
	return pagination.Cursor{LastID: ev.ID, Timestamp: ev.ReceivedAt}
}

// Stats summarizes what is stored.
func (s *Store) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.events), ByKind: make(map[domain.EventKind]int, len(domain.AllEventKinds))}
	for _, k := range domain.AllEventKinds {
		st.ByKind[k] = 0
	}
	for _, ev := range s.events {
		st.ByKind[ev.Kind]++
	}
	return st
}

// Reset drops every stored event.
func (s *Store) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Package identity holds the per-session user identifier attached to telemetry.
package identity

import (
	"sync"

	"github.com/google/uuid"
)

// Source is the read side of the identity provider.
type Source interface {
	Current() string
}

// Generator produces new identity values.
type Generator func() string

// Provider holds a random v4 UUID for the lifetime of a session.
type Provider struct {
	mu       sync.RWMutex
	current  string
	generate Generator
}

// New returns a provider seeded with a fresh identity.
func New() *Provider {
	return NewWithGenerator(uuid.NewString)
}

// NewWithGenerator returns a provider using gen for every identity it mints.
func NewWithGenerator(gen Generator) *Provider {
	return &Provider{
		current:  gen(),
		generate: gen,
	}
}

// NewFixed returns a provider that starts from id. Reset still mints UUIDs.
func NewFixed(id string) *Provider {
	return &Provider{
		current:  id,
		generate: uuid.NewString,
	}
}

// Current returns the identity in use. Callers keep the returned value; they
// never hold a reference to the provider's state.
func (p *Provider) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reset adopts and returns a new identity for subsequent events.
func (p *Provider) Reset() string {
	next := p.generate()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = next
	return next
}

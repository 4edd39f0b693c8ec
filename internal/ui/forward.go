package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloo-solutions/semantrics/internal/coordinator"
)

// Subscriber publishes coordinator snapshots.
type Subscriber interface {
	Subscribe(fn func(coordinator.State))
}

// Forward relays snapshots from src to send until ctx is done. Bursts are
// coalesced so a slow receiver only sees the newest state, and the
// subscriber callback never blocks the coordinator.
func Forward(ctx context.Context, src Subscriber, send func(tea.Msg)) {
	var (
		mu     sync.Mutex
		latest coordinator.State
		wake   = make(chan struct{}, 1)
	)

	src.Subscribe(func(s coordinator.State) {
		mu.Lock()
		if s.Version >= latest.Version {
			latest = s
		}
		mu.Unlock()

		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				mu.Lock()
				s := latest
				mu.Unlock()
				send(StateMsg{State: s})
			}
		}
	}()
}

// Package display - Consumers of controller output: a latest-only hand-off
// for UI threads and a directory writer for previews.
package display

import (
	"context"
	"sync"

	"github.com/nvr-ai/go-motion/controller"
)

// Mailbox holds at most one pending Output. Show replaces an unread Output so
// the processing loop never waits for a slow consumer.
type Mailbox struct {
	mu      sync.Mutex
	pending *controller.Output
	dropped int
	ready   chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Show implements controller.Display.
func (m *Mailbox) Show(out controller.Output) {
	m.mu.Lock()
	if m.pending != nil {
		m.dropped++
	}
	m.pending = &out
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// TryTake returns the pending Output without blocking.
func (m *Mailbox) TryTake() (controller.Output, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return controller.Output{}, false
	}
	out := *m.pending
	m.pending = nil
	return out, true
}

// Take waits for an Output or for ctx to be done.
func (m *Mailbox) Take(ctx context.Context) (controller.Output, error) {
	for {
		if out, ok := m.TryTake(); ok {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return controller.Output{}, ctx.Err()
		case <-m.ready:
		}
	}
}

// Dropped returns how many Outputs were replaced before being taken.
func (m *Mailbox) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Package eventbus broadcasts cover-change notifications from the
// background convergence loop to interested subscribers (e.g. a cache
// invalidation layer in front of the catalog API).
package eventbus

import (
	"sync"

	"github.com/sashko-guz/book-covers/internal/coverid"
)

// ChangeEvent announces that a book's durable cover descriptor changed.
type ChangeEvent struct {
	Fingerprint coverid.Fingerprint
	Descriptor  coverid.ImageDescriptor
}

// EventBus is the publish side the pipeline depends on; subscribers are
// plain channels so the bus never blocks on a slow consumer beyond the
// channel's own buffer.
type EventBus interface {
	Publish(ev ChangeEvent)
	Subscribe(buffer int) (ch <-chan ChangeEvent, cancel func())
}

// InProcessBus is an in-memory EventBus. Publish drops the event for any
// subscriber whose buffer is full rather than blocking the convergence
// worker that published it.
type InProcessBus struct {
	mu   sync.Mutex
	subs map[chan ChangeEvent]struct{}
}

// NewInProcessBus returns a ready-to-use in-memory bus.
func NewInProcessBus() *InProcessBus {
	return &InProcessBus{subs: make(map[chan ChangeEvent]struct{})}
}

// Publish delivers ev to every current subscriber, non-blocking.
func (b *InProcessBus) Publish(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber too slow; drop rather than stall convergence.
		}
	}
}

// Subscribe registers a new channel of the given buffer size and returns
// a cancel func that unregisters and closes it.
func (b *InProcessBus) Subscribe(buffer int) (<-chan ChangeEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ChangeEvent, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

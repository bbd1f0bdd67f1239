package events

import (
	"context"
	"sync"

	"unitfarm/core/types"
)

const defaultSubscriberBuffer = 64

// Bus delivers committed events to live subscribers. Slow subscribers drop
// events instead of blocking the ledger.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan *types.Event
	dropped uint64
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan *types.Event)}
}

// Emit implements the Emitter interface.
func (b *Bus) Emit(evt Event) {
	raw := Raw(evt)
	if b == nil || raw == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- raw.Clone():
		default:
			b.dropped++
		}
	}
}

// Subscribe registers a subscriber that lives until ctx is cancelled or the
// returned cancel function is called.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *types.Event, func()) {
	ch := make(chan *types.Event, defaultSubscriberBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

package engine

import "sync"

// Event announces that one mirror was replaced by a fresh snapshot. Data is
// the full new slice for the collection.
type Event struct {
	Collection string `json:"collection"`
	Data       any    `json:"data"`
}

const subscriberBuffer = 16

// eventBus fans mirror updates out to stream subscribers. Publish never
// blocks: a subscriber that cannot keep up misses intermediate snapshots
// and catches up on the next one.
type eventBus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]chan Event)}
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, skip
		}
	}
}

func (b *eventBus) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
}

// Events subscribes to mirror updates for streaming. The returned cancel
// func must be called when the consumer goes away.
func (e *Engine) Events() (<-chan Event, func()) {
	return e.bus.subscribe()
}

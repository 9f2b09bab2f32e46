// Package events carries domain lifecycle events from the mutation path
// to interested consumers (webhook delivery, websocket streams). It
// replaces ad-hoc listener lists with one explicit in-process bus.
package events

import (
	"sync"

	"momentum/models"
)

// Payload is the data section of a lifecycle event.
type Payload struct {
	Action   string                        `json:"action"` // created, updated, deleted
	Resource interface{}                   `json:"resource"`
	Changes  map[string]models.FieldChange `json:"changes,omitempty"`
}

// Event is one lifecycle notification scoped to a workspace.
type Event struct {
	WorkspaceID uint
	Name        string // e.g. "issue.created"
	Data        Payload
}

// Bus fans events out to subscribers. Delivery is best effort: a
// subscriber whose buffer is full misses the event rather than blocking
// the mutation path.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a consumer. The returned cancel func must be called
// when the consumer goes away; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop.
		}
	}
}

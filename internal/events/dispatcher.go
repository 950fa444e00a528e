package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives a published store-change event.
type Handler func(Event)

// Dispatcher delivers store-change notifications to subscribers.
type Dispatcher interface {
	Publish(event Event)
	// Subscribe registers a handler for the given event type and returns an
	// unsubscribe func. EventType "" subscribes to all events.
	Subscribe(eventType EventType, handler Handler) func()
}

type subscription struct {
	id        uint64
	eventType EventType
	handler   Handler
}

// inMemoryDispatcher is a simple synchronous dispatcher; handlers run on
// the publishing goroutine.
type inMemoryDispatcher struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{}
}

// Publish synchronously invokes handlers matching the event type.
func (d *inMemoryDispatcher) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.subs))
	for _, sub := range d.subs {
		if sub.eventType == "" || sub.eventType == event.Type {
			handlers = append(handlers, sub.handler)
		}
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Subscribe registers a handler and returns its unsubscribe func.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, eventType: eventType, handler: handler})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, sub := range d.subs {
			if sub.id == id {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

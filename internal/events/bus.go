package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event represents a system event
type Event struct {
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Module      string                 `json:"module"`
	Description string                 `json:"description,omitempty"`
	Data        map[string]interface{} `json:"data"`
}

// Handler receives published events
type Handler func(event *Event)

// Bus is a synchronous in-process publish/subscribe bus.
// Handlers run on the publisher's goroutine in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   uint64
	log      zerolog.Logger
}

type subscription struct {
	id uint64
	fn Handler
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type. The returned func removes
// the handler; calling it more than once is safe.
func (b *Bus) Subscribe(eventType EventType, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, fn: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventType, id) })
	}
}

func (b *Bus) remove(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every handler subscribed to its type.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[event.Type]))
	copy(subs, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(s.fn, event)
	}
}

func (b *Bus) dispatch(h Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	h(event)
}

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"product-studio/internal/shared/logger"
)

// Event types published by the studio backend
const (
	EventTypeSettingsSaved  = "settings.saved"
	EventTypeSettingsPruned = "settings.pruned"
	EventTypeModelUploaded  = "model.uploaded"
)

// Event represents something that happened in the backend
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// Publisher is the narrow side of the bus that usecases depend on
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	PublishAndForget(ctx context.Context, event Event)
}

// EventBus is an in-process, synchronous fan-out bus.
// Handlers run in subscription order; a failing handler does not stop the others.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   int
	logger   logger.Logger
}

type subscription struct {
	id      int
	handler Handler
}

// NewEventBus creates a new event bus instance
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]subscription),
		logger:   log,
	}
}

// Subscribe adds a handler for an event type and returns a func that removes it
func (eb *EventBus) Subscribe(eventType string, handler Handler) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})
	eb.logger.Debugf("Subscribed handler %d for event type: %s", id, eventType)

	return func() { eb.remove(eventType, id) }
}

func (eb *EventBus) remove(eventType string, id int) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(eb.handlers[eventType]) == 0 {
		delete(eb.handlers, eventType)
	}
}

// Publish sends an event to every handler registered for its type.
// The returned error joins the first handler failure with the count of failures.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	subs := append([]subscription(nil), eb.handlers[event.Type()]...)
	eb.mu.RUnlock()

	if len(subs) == 0 {
		eb.logger.Debugf("No handlers found for event type: %s", event.Type())
		return nil
	}

	var firstErr error
	failed := 0
	for _, s := range subs {
		if err := s.handler(ctx, event); err != nil {
			eb.logger.Errorf("Handler %d failed for event %s: %v", s.id, event.Type(), err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d handlers failed for %s: %w", failed, len(subs), event.Type(), firstErr)
	}
	return nil
}

// PublishAndForget publishes an event on a new goroutine without waiting for completion
func (eb *EventBus) PublishAndForget(ctx context.Context, event Event) {
	go func() {
		if err := eb.Publish(context.WithoutCancel(ctx), event); err != nil {
			eb.logger.Errorf("Failed to publish event %s: %v", event.Type(), err)
		}
	}()
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event interface
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewBasicEvent creates a new event stamped with the current time
func NewBasicEvent(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string         { return e.eventType }
func (e *BasicEvent) Data() interface{}    { return e.data }
func (e *BasicEvent) Timestamp() time.Time { return e.timestamp }
func (e *BasicEvent) Source() string       { return e.source }

package eventing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// EventHandler handles a published event. The delivery envelope is available
// through EnvelopeFromContext.
type EventHandler func(ctx context.Context, event any) error

// EventBus delivers events to subscribed handlers.
type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(eventType string, handler EventHandler)
}

var (
	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("eventing: nil event")
	// ErrInvalidEventType is returned when a handler receives a payload it cannot handle.
	ErrInvalidEventType = errors.New("eventing: invalid event type")
)

// InMemoryBus delivers events synchronously on the publisher's goroutine, in
// subscription order.
type InMemoryBus struct {
	mu     sync.RWMutex
	routes map[string][]EventHandler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string][]EventHandler)}
}

// Publish stamps event with its own envelope and runs every handler of its type.
// Only the correlation id is inherited from ctx, so an event raised inside a
// handler gets a new id but stays on the trace of the request that caused it.
// Handler errors are joined; one failing handler does not stop the others.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	env, err := BuildEnvelope(event, MetaFromContext(ctx))
	if err != nil {
		return err
	}
	ctx = WithEnvelope(ctx, env)

	var errs []error
	for _, handler := range b.handlersFor(env.EventType) {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", env.EventType, env.EventID, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for an event type name (see EventTypeOf).
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	if eventType == "" || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[eventType] = append(b.routes[eventType], handler)
}

func (b *InMemoryBus) handlersFor(eventType string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]EventHandler(nil), b.routes[eventType]...)
}

// EventType names the type of an event instance; pointers name their element type.
func EventType(event any) string {
	if event == nil {
		return ""
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// EventTypeOf names T the same way EventType names its instances.
func EventTypeOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

package eventing

import (
	"context"
	"sync"
)

// ProcessedStore provides idempotency checks. Deduplication only helps for events
// whose id can repeat, i.e. payloads that carry their own EventID.
type ProcessedStore interface {
	HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, consumerName string) error
}

// Subscribe wraps handler with idempotency if store is provided.
func Subscribe(bus EventBus, eventType, consumerName string, handler EventHandler, store ProcessedStore) {
	if store == nil {
		bus.Subscribe(eventType, handler)
		return
	}
	bus.Subscribe(eventType, WrapHandler(consumerName, handler, store))
}

// WrapHandler enforces idempotency per consumer.
func WrapHandler(consumerName string, handler EventHandler, store ProcessedStore) EventHandler {
	return func(ctx context.Context, event any) error {
		env, ok := EnvelopeFromContext(ctx)
		if !ok || env.EventID == "" {
			return handler(ctx, event)
		}
		processed, err := store.HasProcessed(ctx, env.EventID, consumerName)
		if err != nil {
			return err
		}
		if processed {
			return nil
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
		return store.MarkProcessed(ctx, env.EventID, consumerName)
	}
}

// DefaultProcessedCapacity bounds a MemoryProcessedStore created with capacity <= 0.
const DefaultProcessedCapacity = 4096

// MemoryProcessedStore remembers the most recent capacity (event, consumer) pairs
// and forgets the oldest first.
type MemoryProcessedStore struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewMemoryProcessedStore constructs an empty store holding at most capacity markers.
func NewMemoryProcessedStore(capacity int) *MemoryProcessedStore {
	if capacity <= 0 {
		capacity = DefaultProcessedCapacity
	}
	return &MemoryProcessedStore{capacity: capacity, seen: make(map[string]struct{}, capacity)}
}

func processedKey(eventID, consumerName string) string {
	return consumerName + "/" + eventID
}

// HasProcessed checks if event was already processed by consumer.
func (s *MemoryProcessedStore) HasProcessed(_ context.Context, eventID, consumerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[processedKey(eventID, consumerName)]
	return ok, nil
}

// MarkProcessed records an event as processed by consumer, evicting the oldest
// marker when the store is full.
func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, eventID, consumerName string) error {
	key := processedKey(eventID, consumerName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return nil
	}
	if len(s.order) >= s.capacity {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
	return nil
}

// Len returns the number of remembered markers.
func (s *MemoryProcessedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

package eventstore

import (
	"context"
	"errors"
	"sync"

	"charity-admin/internal/domain/event"
	"charity-admin/internal/infrastructure/bus"
)

const defaultCapacity = 500

// MemoryEventStore keeps the most recent domain events in memory, oldest
// first. Once capacity is reached the oldest event is dropped.
type MemoryEventStore struct {
	events   []event.DomainEvent
	capacity int
	mutex    sync.RWMutex
}

// NewMemoryEventStore returns a store holding at most capacity events.
func NewMemoryEventStore(capacity int) *MemoryEventStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryEventStore{capacity: capacity}
}

// Append records an event.
func (s *MemoryEventStore) Append(ctx context.Context, evt event.DomainEvent) error {
	if evt == nil {
		return errors.New("nil event")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, evt)
	return nil
}

// GetEvents returns the events recorded for an aggregate, oldest first.
func (s *MemoryEventStore) GetEvents(ctx context.Context, aggregateID string) ([]event.DomainEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []event.DomainEvent
	for _, e := range s.events {
		if e.AggregateID() == aggregateID {
			result = append(result, e)
		}
	}
	return result, nil
}

// Recent returns up to limit events of the given type, newest first.
// An empty eventType matches every event.
func (s *MemoryEventStore) Recent(ctx context.Context, eventType string, limit int) ([]event.DomainEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []event.DomainEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		if eventType == "" || s.events[i].EventType() == eventType {
			result = append(result, s.events[i])
		}
	}
	return result, nil
}

// Len reports the number of stored events.
func (s *MemoryEventStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// Subscribe records every event of the given types published on eventBus.
func (s *MemoryEventStore) Subscribe(eventBus bus.EventBus, eventTypes ...string) error {
	handler := bus.EventHandlerFunc(s.Append)
	for _, eventType := range eventTypes {
		if err := eventBus.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

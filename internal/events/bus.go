// Package events provides an in-process publish/subscribe broker used to fan
// playback, favorites and EPG notifications out to API clients.
package events

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// DefaultBuffer is the per-subscriber channel capacity used when none is given.
const DefaultBuffer = 64

// Subscriber is a single consumer of a Bus.
type Subscriber[T any] struct {
	ID     string
	Events <-chan T

	events chan T
}

// Bus broadcasts values of type T to all current subscribers.
// Publish never blocks: a subscriber whose channel is full misses the value.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber[T]
	logger      *slog.Logger
	name        string
	closed      bool
}

// NewBus creates a bus. The name is only used for logging.
func NewBus[T any](name string, logger *slog.Logger) *Bus[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{
		subscribers: make(map[string]*Subscriber[T]),
		logger:      logger.With(slog.String("component", "event_bus"), slog.String("bus", name)),
		name:        name,
	}
}

// Subscribe registers a new subscriber with the given buffer size.
func (b *Bus[T]) Subscribe(buffer int) *Subscriber[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	ch := make(chan T, buffer)
	sub := &Subscriber[T]{
		ID:     ulid.Make().String(),
		Events: ch,
		events: ch,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subscribers[sub.ID] = sub

	b.logger.Debug("subscriber added", slog.String("subscriber_id", sub.ID))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
// Unknown IDs are ignored.
func (b *Bus[T]) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.events)
		delete(b.subscribers, id)
		b.logger.Debug("subscriber removed", slog.String("subscriber_id", id))
	}
}

// Publish delivers v to every subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.events <- v:
		default:
			b.logger.Warn("subscriber event channel full, dropping event",
				slog.String("subscriber_id", sub.ID),
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later subscriptions receive an
// already-closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.events)
		delete(b.subscribers, id)
	}
}

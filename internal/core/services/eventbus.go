package services

import (
	"log/slog"
	"sync"
)

type EventType string

const (
	EventTypeFiringStarted  EventType = "firing_started"
	EventTypeFiringFinished EventType = "firing_finished"
)

// BroadcastKey subscribes to events from every task.
const BroadcastKey = "*"

// Event is one firing lifecycle notification, keyed by task name.
type Event struct {
	Task      string
	Type      EventType
	Data      string // JSON payload
	Timestamp int64
}

// EventBus fans firing events out to subscribers. Used by the status API's
// SSE endpoint; publishers never block on slow consumers.
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]chan Event // key: task name or BroadcastKey
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[string][]chan Event),
	}
}

// Subscribe returns a channel receiving events for one task, or for every
// task when key is BroadcastKey. The returned function unsubscribes and
// closes the channel.
func (b *EventBus) Subscribe(key string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100) // buffered so publishers don't block
	b.subs[key] = append(b.subs[key], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[key]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[key] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
	}

	return ch, unsub
}

// Publish sends an event to the task's subscribers and to broadcast
// subscribers. Full channels drop the event rather than stall a firing.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.Task] {
		b.deliver(ch, e)
	}
	for _, ch := range b.subs[BroadcastKey] {
		b.deliver(ch, e)
	}
}

func (b *EventBus) deliver(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		b.logger.Warn("event bus channel full, dropping event", "task", e.Task)
	}
}

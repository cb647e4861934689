// Package events provides the pub/sub layer for orchestration runs.
// Publishers never block: a subscriber that cannot keep up within the
// publish timeout has the event dropped and counted.
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType names a category of orchestration event.
type EventType string

const (
	// Run lifecycle events. Payload is the run's task id.
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	// EventMessageAppended fires for every message added to a
	// conversation. Payload is *aicl.Message.
	EventMessageAppended EventType = "message.appended"

	// EventProgressUpdated fires as a mode advances. Payload is Progress.
	EventProgressUpdated EventType = "progress.updated"
)

// Progress is the payload of EventProgressUpdated. Fraction runs 0 to 1.
type Progress struct {
	Stage    string
	Fraction float64
}

// Event is one bus notification.
type Event struct {
	ID        string
	Type      EventType
	Source    string
	Payload   interface{}
	Timestamp time.Time
}

// NewEvent builds an event stamped with a fresh id.
func NewEvent(eventType EventType, source string, payload interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// subscriber owns one delivery channel. trySend holds the read lock so a
// concurrent close cannot close the channel mid-send.
type subscriber struct {
	id      string
	channel chan *Event
	types   []EventType
	all     bool

	mu     sync.RWMutex
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

func (s *subscriber) trySend(event *Event, timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.channel <- event:
		return true
	case <-timer.C:
		return false
	}
}

// BusConfig tunes subscriber buffering and publish backpressure.
type BusConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
}

// DefaultBusConfig returns the baseline configuration.
func DefaultBusConfig() *BusConfig {
	return &BusConfig{
		BufferSize:     256,
		PublishTimeout: 10 * time.Millisecond,
	}
}

// BusMetrics is a snapshot of the bus counters.
type BusMetrics struct {
	EventsPublished   int64
	EventsDelivered   int64
	EventsDropped     int64
	SubscribersActive int64
}

// Bus fans events out to subscribers. Every engine owns its own bus;
// there is no process-wide instance.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]*subscriber
	allSubs     []*subscriber
	config      *BusConfig
	closed      bool

	published int64
	delivered int64
	dropped   int64
	active    int64
}

// NewBus builds a bus. A nil config falls back to DefaultBusConfig.
func NewBus(config *BusConfig) *Bus {
	if config == nil {
		config = DefaultBusConfig()
	}
	return &Bus{
		subscribers: make(map[EventType][]*subscriber),
		config:      config,
	}
}

// Publish fans an event out to matching subscribers. It blocks at most
// the publish timeout per subscriber; slow subscribers lose the event.
func (b *Bus) Publish(event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := b.subscribers[event.Type]
	allSubs := b.allSubs
	b.mu.RUnlock()

	atomic.AddInt64(&b.published, 1)

	for _, sub := range subs {
		b.deliver(sub, event)
	}
	for _, sub := range allSubs {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub *subscriber, event *Event) {
	if sub.trySend(event, b.config.PublishTimeout) {
		atomic.AddInt64(&b.delivered, 1)
	} else {
		atomic.AddInt64(&b.dropped, 1)
	}
}

// Subscribe returns a channel receiving events of the given types, or
// every event when no type is named. The channel closes on Unsubscribe
// or bus Close.
func (b *Bus) Subscribe(types ...EventType) <-chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan *Event)
		close(ch)
		return ch
	}

	sub := &subscriber{
		id:      uuid.New().String(),
		channel: make(chan *Event, b.config.BufferSize),
		types:   types,
		all:     len(types) == 0,
	}

	if sub.all {
		b.allSubs = append(b.allSubs, sub)
	} else {
		for _, eventType := range types {
			b.subscribers[eventType] = append(b.subscribers[eventType], sub)
		}
	}
	atomic.AddInt64(&b.active, 1)

	return sub.channel
}

// Unsubscribe removes a subscriber by its channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			if sub.channel == ch {
				b.detach(sub)
				return
			}
		}
	}
	for i, sub := range b.allSubs {
		if sub.channel == ch {
			b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
			sub.close()
			atomic.AddInt64(&b.active, -1)
			return
		}
	}
}

// detach removes a subscriber from every type index and closes it.
// Callers hold the bus write lock.
func (b *Bus) detach(sub *subscriber) {
	for _, eventType := range sub.types {
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s == sub {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	sub.close()
	atomic.AddInt64(&b.active, -1)
}

// Wait blocks until an event of the given type arrives or the context
// ends.
func (b *Bus) Wait(ctx context.Context, eventType EventType) (*Event, error) {
	ch := b.Subscribe(eventType)
	defer b.Unsubscribe(ch)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("event bus closed")
		}
		return event, nil
	}
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus) Metrics() BusMetrics {
	return BusMetrics{
		EventsPublished:   atomic.LoadInt64(&b.published),
		EventsDelivered:   atomic.LoadInt64(&b.delivered),
		EventsDropped:     atomic.LoadInt64(&b.dropped),
		SubscribersActive: atomic.LoadInt64(&b.active),
	}
}

// SubscriberCount returns the number of subscribers for one event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Close shuts the bus down and closes every subscriber channel.
// Subsequent publishes are dropped silently.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[*subscriber]bool)
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			if !seen[sub] {
				seen[sub] = true
				sub.close()
			}
		}
	}
	for _, sub := range b.allSubs {
		if !seen[sub] {
			sub.close()
		}
	}
	b.subscribers = make(map[EventType][]*subscriber)
	b.allSubs = nil
	atomic.StoreInt64(&b.active, 0)
}

// Package events implements the refresh signal bus that decouples the sync
// engine and cache merger from UI-layer listeners, plus an append-only
// audit log of published signals.
package events

import (
	"sync"
	"time"
)

// Topic identifies a class of signal. Topics are a closed set; producers
// and consumers agree on these constants rather than ad-hoc strings.
type Topic string

const (
	// TopicTasksRefreshed is the well-known refresh topic: task data
	// changed and views should recompute. Both the sync engine and the
	// cache merger publish it; consumers need not know which fired.
	TopicTasksRefreshed Topic = "tasks_refreshed"
	// TopicSyncCompleted reports the outcome of a sync pass, whether or
	// not it created tasks.
	TopicSyncCompleted Topic = "sync_completed"
)

// Event is a published signal.
type Event struct {
	Topic     Topic
	Timestamp time.Time
	Payload   map[string]any
}

// Handler receives events. Handlers for a topic run synchronously in
// subscription order; a panicking handler does not stop the rest.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus is a publish/subscribe signal bus with fire-and-forget delivery:
// subscribers registered after a publish do not retroactively receive it.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[Topic][]subscription
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic][]subscription),
	}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Callers that mount and unmount (views, tests) must call it on
// every exit path or the handler leaks.
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		for i, s := range subs {
			if s.id == id {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to every current subscriber of the topic, in
// subscription order. Each handler runs under its own recover so one
// panicking subscriber cannot starve the rest of the same publish.
func (b *Bus) Publish(topic Topic, payload map[string]any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	event := Event{
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, s := range subs {
		func() {
			defer func() {
				_ = recover()
			}()
			s.fn(event)
		}()
	}
}

// SubscriberCount reports the number of handlers currently registered for a
// topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

package events

import (
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	topic   string
	handler EventHandler
}

// InMemoryBroker is a single-process MessageBroker backed by a buffered
// channel and one dispatch goroutine.
type InMemoryBroker struct {
	mu      sync.RWMutex
	subs    map[string][]subscription // topic -> subscriptions
	closed  bool
	eventCh chan topicEvent
	done    chan struct{}
}

type topicEvent struct {
	topic string
	event Event
}

// NewInMemoryBroker creates and starts an InMemoryBroker. Call Close to stop
// the dispatch goroutine.
func NewInMemoryBroker() *InMemoryBroker {
	b := &InMemoryBroker{
		subs:    make(map[string][]subscription),
		eventCh: make(chan topicEvent, 1024),
		done:    make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish enqueues an event for asynchronous delivery.
func (b *InMemoryBroker) Publish(topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	b.eventCh <- topicEvent{topic: topic, event: event}
	return nil
}

func (b *InMemoryBroker) Subscribe(topic string, handler EventHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	id := uuid.New().String()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, topic: topic, handler: handler})
	return id, nil
}

func (b *InMemoryBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close stops the dispatch goroutine after pending events are delivered.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.eventCh)
	b.mu.Unlock()

	<-b.done
	return nil
}

func (b *InMemoryBroker) dispatch() {
	defer close(b.done)

	for te := range b.eventCh {
		b.mu.RLock()
		subs := b.subs[te.topic]
		handlers := make([]EventHandler, len(subs))
		for i, s := range subs {
			handlers[i] = s.handler
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			h(te.event)
		}
	}
}

package events

import "errors"

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("events: broker is closed")

// MessageBroker publishes settings change events and fans them out to
// subscribers. Implementations include InMemoryBroker (single node) and
// KafkaBroker (several replicas sharing one database).
type MessageBroker interface {
	// Publish sends an event to the given topic. Subscribers registered for
	// that topic receive the event asynchronously.
	Publish(topic string, event Event) error

	// Subscribe registers a handler called for every event published to the
	// given topic and returns the subscription ID.
	Subscribe(topic string, handler EventHandler) (string, error)

	// Unsubscribe removes a subscription. Unknown IDs are ignored.
	Unsubscribe(id string) error

	// Close shuts down the broker. After Close returns, Publish and Subscribe
	// must not be called.
	Close() error
}

package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TopicUserSettings carries every user settings write.
const TopicUserSettings = "user-settings"

// Event describes one change of a user setting. Value is the JSON encoded new
// value and is empty when Deleted is set. Origin names the process that made
// the change.
type Event struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	UserEntityRef string          `json:"userEntityRef"`
	Bucket        string          `json:"bucket"`
	Key           string          `json:"key"`
	Value         json.RawMessage `json:"value,omitempty"`
	Deleted       bool            `json:"deleted,omitempty"`
	Origin        string          `json:"origin,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewEvent creates an Event with a generated UUID and the current timestamp.
func NewEvent(topic, userEntityRef, bucket, key string, value json.RawMessage, deleted bool) Event {
	return Event{
		ID:            uuid.New().String(),
		Topic:         topic,
		UserEntityRef: userEntityRef,
		Bucket:        bucket,
		Key:           key,
		Value:         value,
		Deleted:       deleted,
		Timestamp:     time.Now().UTC(),
	}
}

// EventHandler is invoked for every received event.
type EventHandler func(event Event)

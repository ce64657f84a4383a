package usersettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/darkden-lab/portalhost/internal/events"
	"github.com/darkden-lab/portalhost/internal/metrics"
)

// ObserveFunc receives the current setting (nil when absent) and every later
// change.
type ObserveFunc func(setting *Setting)

type observer struct {
	userEntityRef string
	bucket        string
	key           string
	fn            ObserveFunc

	// Changes arriving before the snapshot was delivered are held in pending
	// so fn always sees the snapshot first.
	mu      sync.Mutex
	primed  bool
	pending []*Setting
}

func (o *observer) deliver(setting *Setting) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.primed {
		o.pending = append(o.pending, setting)
		return
	}
	o.fn(setting)
}

func (o *observer) prime(snapshot *Setting) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fn(snapshot)
	for _, setting := range o.pending {
		o.fn(setting)
	}
	o.pending = nil
	o.primed = true
}

// Service wraps a Store, publishes every write on the broker and fans
// received change events out to local observers.
type Service struct {
	store   Store
	broker  events.MessageBroker
	metrics *metrics.Collector
	origin  string

	mu        sync.Mutex
	observers map[int]*observer
	nextID    int
	subID     string
}

// NewService subscribes to user settings events on broker. Call Close to
// release the subscription.
func NewService(store Store, broker events.MessageBroker, m *metrics.Collector) (*Service, error) {
	s := &Service{
		store:     store,
		broker:    broker,
		metrics:   m,
		origin:    uuid.New().String(),
		observers: make(map[int]*observer),
	}
	id, err := broker.Subscribe(events.TopicUserSettings, s.dispatch)
	if err != nil {
		return nil, fmt.Errorf("subscribe to settings events: %w", err)
	}
	s.subID = id
	return s, nil
}

func (s *Service) Close() error {
	return s.broker.Unsubscribe(s.subID)
}

func (s *Service) Get(ctx context.Context, userEntityRef, bucket, key string) (*Setting, error) {
	return s.store.Get(ctx, userEntityRef, bucket, key)
}

// Set stores value and announces the change.
func (s *Service) Set(ctx context.Context, userEntityRef, bucket, key string, value json.RawMessage) (*Setting, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf("value for %s/%s is not valid JSON", bucket, key)
	}
	setting, err := s.store.Set(ctx, userEntityRef, bucket, key, value)
	s.metrics.SettingsWritten(bucket, err == nil)
	if err != nil {
		return nil, fmt.Errorf("store setting %s/%s: %w", bucket, key, err)
	}
	s.publish(userEntityRef, bucket, key, setting.Value, false)
	return setting, nil
}

// Delete removes the setting and announces the removal.
func (s *Service) Delete(ctx context.Context, userEntityRef, bucket, key string) error {
	err := s.store.Delete(ctx, userEntityRef, bucket, key)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	s.metrics.SettingsWritten(bucket, err == nil)
	if err != nil {
		return fmt.Errorf("delete setting %s/%s: %w", bucket, key, err)
	}
	s.publish(userEntityRef, bucket, key, nil, true)
	return nil
}

func (s *Service) publish(userEntityRef, bucket, key string, value json.RawMessage, deleted bool) {
	ev := events.NewEvent(events.TopicUserSettings, userEntityRef, bucket, key, value, deleted)
	ev.Origin = s.origin
	if err := s.broker.Publish(events.TopicUserSettings, ev); err != nil {
		log.Printf("WARNING: usersettings: failed to publish change of %s/%s: %v", bucket, key, err)
	}
}

// Observe registers fn for one setting, then delivers the current snapshot.
// Changes received while the snapshot is read are delivered after it, in
// arrival order. The returned function removes the observer.
func (s *Service) Observe(ctx context.Context, userEntityRef, bucket, key string, fn ObserveFunc) (func(), error) {
	o := &observer{userEntityRef: userEntityRef, bucket: bucket, key: key, fn: fn}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}

	setting, err := s.store.Get(ctx, userEntityRef, bucket, key)
	switch {
	case errors.Is(err, ErrNotFound):
		o.prime(nil)
	case err != nil:
		unsubscribe()
		return nil, fmt.Errorf("read setting %s/%s: %w", bucket, key, err)
	default:
		o.prime(setting)
	}
	return unsubscribe, nil
}

func (s *Service) dispatch(ev events.Event) {
	s.mu.Lock()
	var matched []*observer
	for _, o := range s.observers {
		if o.userEntityRef == ev.UserEntityRef && o.bucket == ev.Bucket && o.key == ev.Key {
			matched = append(matched, o)
		}
	}
	s.mu.Unlock()

	var setting *Setting
	if !ev.Deleted {
		setting = &Setting{Bucket: ev.Bucket, Key: ev.Key, Value: ev.Value, UpdatedAt: ev.Timestamp}
	}
	for _, o := range matched {
		o.deliver(setting)
	}
}

// Bucket scopes the service to one user and bucket.
func (s *Service) Bucket(userEntityRef, bucket string) *Bucket {
	return &Bucket{svc: s, userEntityRef: userEntityRef, bucket: bucket}
}

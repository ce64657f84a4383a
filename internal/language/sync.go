package language

import (
	"context"
	"log"
	"sync"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/metrics"
)

// Storage is the user's settings bucket.
type Storage interface {
	// Observe calls fn with the current value of key (present=false when the
	// key was never set), then on every change.
	Observe(ctx context.Context, key string, fn func(value string, present bool)) (unsubscribe func(), err error)
	Set(ctx context.Context, key, value string) error
}

// IdentityFunc resolves the user entity ref of the session.
type IdentityFunc func(ctx context.Context) (string, error)

// Options configures a Synchronizer.
type Options struct {
	Language    API
	Storage     Storage
	Identity    IdentityFunc
	Persistence Persistence
	Translation *i18n.Config
	Browser     Browser
	Logger      *log.Logger
	Metrics     *metrics.Collector
}

type origin string

const (
	originStorage  origin = "storage"
	originLanguage origin = "language"
)

type event struct {
	origin  origin
	value   string
	present bool
}

// Synchronizer keeps the live language and the persisted preference in
// agreement. Storage and language observations are queued as origin tagged
// events and applied by a single reducer goroutine.
type Synchronizer struct {
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	queue   []event
	stopped bool
	unsubs  []func()
	enabled bool
	notify  chan struct{}

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	// reducer state
	hydrated    bool
	fromStorage string
}

// NewSynchronizer creates a Synchronizer. Nothing happens until Start.
func NewSynchronizer(opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Persistence == "" {
		opts.Persistence = PersistenceDatabase
	}
	return &Synchronizer{
		opts:   opts,
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start resolves the identity in the background and, when the session is
// eligible, subscribes to the live language and the stored preference.
// Guests, browser persistence and failed identity lookups never subscribe.
func (s *Synchronizer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Stop unsubscribes both streams and waits for the reducer to exit. Events
// arriving after Stop are dropped.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		unsubs := s.unsubs
		s.unsubs = nil
		s.mu.Unlock()

		for _, unsub := range unsubs {
			unsub()
		}
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

// Enabled reports whether the subscriptions are active.
func (s *Synchronizer) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Synchronizer) run(ctx context.Context) {
	defer close(s.done)

	if s.opts.Persistence != PersistenceDatabase || s.opts.Storage == nil || s.opts.Identity == nil {
		return
	}
	userRef, err := s.opts.Identity(ctx)
	if err != nil {
		s.logger.Printf("WARNING: language: failed to resolve identity, preference sync disabled: %v", err)
		return
	}
	if userRef == "" || userRef == GuestUserRef {
		return
	}
	if !s.subscribe(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}
		for _, e := range s.drain() {
			s.reduce(ctx, e)
		}
	}
}

func (s *Synchronizer) subscribe(ctx context.Context) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.enabled = true
	s.mu.Unlock()

	s.track(s.opts.Language.Subscribe(func(lang string) {
		s.enqueue(event{origin: originLanguage, value: lang, present: lang != ""})
	}))

	unsub, err := s.opts.Storage.Observe(ctx, Key, func(value string, present bool) {
		s.enqueue(event{origin: originStorage, value: value, present: present})
	})
	if err != nil {
		s.logger.Printf("WARNING: language: failed to set up language storage subscription: %v", err)
		return true
	}
	s.track(unsub)
	return true
}

func (s *Synchronizer) track(unsub func()) {
	if unsub == nil {
		return
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

func (s *Synchronizer) enqueue(e event) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) drain() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.queue = nil
		return nil
	}
	out := s.queue
	s.queue = nil
	return out
}

func (s *Synchronizer) reduce(ctx context.Context, e event) {
	switch e.origin {
	case originStorage:
		s.fromStorageEvent(ctx, e)
	case originLanguage:
		s.fromLanguageEvent(ctx, e)
	}
}

func (s *Synchronizer) fromStorageEvent(ctx context.Context, e event) {
	if !e.present {
		def := DefaultLanguage(s.opts.Translation, s.opts.Browser)
		s.record(e.origin, "default")
		if err := s.opts.Language.SetLanguage(def); err != nil {
			s.logger.Printf("WARNING: language: failed to apply default language %q: %v", def, err)
		}
		s.write(ctx, def)
		return
	}
	if e.value == "" || e.value == s.opts.Language.Language() {
		return
	}
	s.fromStorage = e.value
	s.record(e.origin, "apply")
	if err := s.opts.Language.SetLanguage(e.value); err != nil {
		s.fromStorage = ""
		s.logger.Printf("WARNING: language: failed to apply stored language %q: %v", e.value, err)
	}
}

func (s *Synchronizer) fromLanguageEvent(ctx context.Context, e event) {
	if !e.present {
		return
	}
	if !s.hydrated {
		s.hydrated = true
		s.record(e.origin, "hydrate")
		return
	}
	// Only the echo of the value just applied from storage is skipped. A
	// different language chosen in between is a user change and is written.
	if s.fromStorage != "" {
		pending := s.fromStorage
		s.fromStorage = ""
		if pending == e.value {
			s.record(e.origin, "skip")
			return
		}
	}
	s.write(ctx, e.value)
}

func (s *Synchronizer) write(ctx context.Context, lang string) {
	s.record(originLanguage, "write")
	if err := s.opts.Storage.Set(ctx, Key, lang); err != nil {
		s.logger.Printf("WARNING: language: failed to store language in user-settings storage: %v", err)
	}
}

func (s *Synchronizer) record(o origin, action string) {
	s.opts.Metrics.LanguageSyncEvent(string(o), action)
}

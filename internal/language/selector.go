package language

import (
	"errors"
	"fmt"
	"sync"

	"github.com/darkden-lab/portalhost/internal/i18n"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

// API is the live language of one session.
type API interface {
	Language() string
	SetLanguage(lang string) error
	// Subscribe calls fn with the current language, then on every change.
	Subscribe(fn func(lang string)) (unsubscribe func())
}

// Selector is an in-memory API restricted to the configured locales.
// Subscriber callbacks run synchronously and must not call SetLanguage.
type Selector struct {
	cfg *i18n.Config

	deliver sync.Mutex
	mu      sync.Mutex
	current string
	subs    map[int]func(string)
	nextID  int
}

// NewSelector creates a Selector starting at initial.
func NewSelector(cfg *i18n.Config, initial string) *Selector {
	return &Selector{cfg: cfg, current: initial, subs: make(map[int]func(string))}
}

func (s *Selector) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetLanguage switches the live language. Setting the current value is a
// no-op.
func (s *Selector) SetLanguage(lang string) error {
	if !s.cfg.Supports(lang) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if s.current == lang {
		s.mu.Unlock()
		return nil
	}
	s.current = lang
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(lang)
	}
	return nil
}

func (s *Selector) Subscribe(fn func(lang string)) func() {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

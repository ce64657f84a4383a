// Package overrides serves admin supplied translation override files at
// /api/translation.
package overrides

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/darkden-lab/portalhost/internal/i18n"
)

// ErrNoOverrides is returned when none of the configured files holds valid
// overrides.
var ErrNoOverrides = errors.New("no valid translation overrides found in the provided files")

// Service loads, merges and caches the override files.
type Service struct {
	files   []string
	locales []string
	logger  *log.Logger

	mu     sync.Mutex
	cached i18n.Overrides
}

// NewService creates a Service for files, keeping only locales. An empty
// locale list means ["en"].
func NewService(files, locales []string, logger *log.Logger) *Service {
	if len(locales) == 0 {
		locales = []string{i18n.DefaultLocale}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{files: files, locales: locales, logger: logger}
}

// Files returns the resolved paths of the configured override files.
func (s *Service) Files() []string {
	out := make([]string, 0, len(s.files))
	for _, f := range s.files {
		if abs, err := filepath.Abs(f); err == nil {
			out = append(out, abs)
		} else {
			out = append(out, f)
		}
	}
	return out
}

// Overrides returns the merged overrides, loading them on first use.
func (s *Service) Overrides() (i18n.Overrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}

	merged := map[string]any{}
	for _, file := range s.Files() {
		raw, err := os.ReadFile(file)
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("WARNING: translations: file not found: %s", file)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if !IsValidJSONTranslation(doc) {
			s.logger.Printf("WARNING: translations: invalid JSON translation file: %s", file)
			continue
		}
		DeepMergeTranslations(merged, doc.(map[string]any))
	}
	if len(merged) == 0 {
		return nil, ErrNoOverrides
	}

	s.cached = FilterLocales(toOverrides(merged), s.locales)
	return s.cached, nil
}

// Invalidate drops the cached overrides so the next request rereads the files.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// IsValidJSONTranslation reports whether doc has the shape
// {resourceId: {locale: {key: "message"}}}.
func IsValidJSONTranslation(doc any) bool {
	resources, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	for _, locales := range resources {
		byLocale, ok := locales.(map[string]any)
		if !ok {
			return false
		}
		for _, messages := range byLocale {
			byKey, ok := messages.(map[string]any)
			if !ok {
				return false
			}
			for _, v := range byKey {
				if _, ok := v.(string); !ok {
					return false
				}
			}
		}
	}
	return true
}

// DeepMergeTranslations merges source into target in place. Nested maps are
// merged, any other value replaces the target's.
func DeepMergeTranslations(target, source map[string]any) map[string]any {
	for key, sv := range source {
		if sm, ok := sv.(map[string]any); ok {
			tm, _ := target[key].(map[string]any)
			if tm == nil {
				tm = map[string]any{}
			}
			target[key] = DeepMergeTranslations(tm, sm)
			continue
		}
		target[key] = sv
	}
	return target
}

// FilterLocales keeps only the configured locales. Resources left with no
// locale are dropped.
func FilterLocales(all i18n.Overrides, locales []string) i18n.Overrides {
	out := i18n.Overrides{}
	for id, byLocale := range all {
		for _, locale := range locales {
			msgs, ok := byLocale[locale]
			if !ok || len(msgs) == 0 {
				continue
			}
			if out[id] == nil {
				out[id] = map[string]map[string]string{}
			}
			out[id][locale] = msgs
		}
	}
	return out
}

func toOverrides(merged map[string]any) i18n.Overrides {
	out := make(i18n.Overrides, len(merged))
	for id, locales := range merged {
		byLocale := map[string]map[string]string{}
		for locale, messages := range locales.(map[string]any) {
			byKey := map[string]string{}
			for k, v := range messages.(map[string]any) {
				byKey[k] = v.(string)
			}
			byLocale[locale] = byKey
		}
		out[id] = byLocale
	}
	return out
}

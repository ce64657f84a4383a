// Package language resolves the default UI language and keeps the live
// language of a session in agreement with the user's persisted preference.
package language

import (
	"log"
	"strings"

	textlang "golang.org/x/text/language"

	"github.com/darkden-lab/portalhost/internal/i18n"
)

// Storage coordinates of the persisted preference.
const (
	Bucket = "userSettings"
	Key    = "language"
)

// GuestUserRef is the identity of unauthenticated sessions. Guests never
// touch server side storage.
const GuestUserRef = "user:development/guest"

// Persistence selects where the language preference is stored.
type Persistence string

const (
	PersistenceDatabase Persistence = "database"
	PersistenceBrowser  Persistence = "browser"
)

// ParsePersistence maps the userSettings.persistence config value. Empty means
// database; unknown values log one warning and fall back to database.
func ParsePersistence(raw string, logger *log.Logger) Persistence {
	switch Persistence(raw) {
	case "", PersistenceDatabase:
		return PersistenceDatabase
	case PersistenceBrowser:
		return PersistenceBrowser
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("WARNING: language: invalid userSettings.persistence value: %q. Expected \"database\" or \"browser\". Defaulting to database.", raw)
	return PersistenceDatabase
}

// Browser carries the languages reported by the client, most preferred
// first.
type Browser struct {
	Languages []string
	Language  string
}

// BrowserFromAcceptLanguage derives the browser languages from an
// Accept-Language header. A malformed header yields no languages.
func BrowserFromAcceptLanguage(header string) Browser {
	tags, _, err := textlang.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Browser{}
	}
	b := Browser{Languages: make([]string, 0, len(tags))}
	for _, tag := range tags {
		if tag == textlang.Und {
			continue
		}
		b.Languages = append(b.Languages, tag.String())
	}
	if len(b.Languages) > 0 {
		b.Language = b.Languages[0]
	}
	return b
}

// DefaultLanguage picks the first browser language whose exact or base code
// is configured, then the configured default locale, then "en".
func DefaultLanguage(cfg *i18n.Config, b Browser) string {
	candidates := b.Languages
	if len(candidates) == 0 && b.Language != "" {
		candidates = []string{b.Language}
	}
	for _, lang := range candidates {
		if match, ok := matchLocale(cfg, lang); ok {
			return match
		}
	}
	if match, ok := matchLocale(cfg, b.Language); ok {
		return match
	}
	if cfg != nil && cfg.DefaultLocale != "" {
		return cfg.DefaultLocale
	}
	return i18n.DefaultLocale
}

func matchLocale(cfg *i18n.Config, lang string) (string, bool) {
	if lang == "" {
		return "", false
	}
	if cfg.Supports(lang) {
		return lang, true
	}
	base, _, _ := strings.Cut(lang, "-")
	if base != "" && cfg.Supports(base) {
		return base, true
	}
	return "", false
}

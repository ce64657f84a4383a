package i18n

import (
	"context"
	"fmt"
	"sort"
)

// Overrides maps resource id → locale → key → message.
type Overrides map[string]map[string]map[string]string

// Merge derives a new resource from base in which every locale listed in
// overridesByLocale resolves to the base messages with the overrides applied
// on top. Locales that exist only in the overrides get a loader returning just
// the override messages. Locales without overrides keep their original loader.
//
// base is never modified. Override keys are not checked against the base
// messages.
func Merge(ref Ref, base *Resource, overridesByLocale map[string]map[string]string) *Resource {
	out := &Resource{ID: ref.ID, Version: ResourceVersion}
	if base != nil {
		if out.ID == "" {
			out.ID = base.ID
		}
		out.Resources = make([]LanguageResource, 0, len(base.Resources)+len(overridesByLocale))
	}

	seen := make(map[string]bool)
	if base != nil {
		for _, res := range base.Resources {
			seen[res.Language] = true
			overrides, ok := overridesByLocale[res.Language]
			if !ok {
				out.Resources = append(out.Resources, res)
				continue
			}
			out.Resources = append(out.Resources, LanguageResource{
				Language: res.Language,
				Loader:   &mergedLoader{ref: ref, base: res.Loader, overrides: copyMessages(overrides)},
			})
		}
	}

	extra := make([]string, 0, len(overridesByLocale))
	for locale := range overridesByLocale {
		if !seen[locale] {
			extra = append(extra, locale)
		}
	}
	sort.Strings(extra)
	for _, locale := range extra {
		out.Resources = append(out.Resources, LanguageResource{
			Language: locale,
			Loader:   &overrideLoader{ref: ref, messages: copyMessages(overridesByLocale[locale])},
		})
	}
	return out
}

type mergedLoader struct {
	ref       Ref
	base      Loader
	overrides map[string]string
}

func (l *mergedLoader) Load(ctx context.Context) (*Messages, error) {
	baseMessages, err := l.base.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load base messages: %w", err)
	}
	merged := make(map[string]string, len(l.overrides))
	if baseMessages != nil {
		for k, v := range baseMessages.Messages {
			merged[k] = v
		}
	}
	for k, v := range l.overrides {
		merged[k] = v
	}
	return NewMessages(l.ref, merged, false)
}

type overrideLoader struct {
	ref      Ref
	messages map[string]string
}

func (l *overrideLoader) Load(_ context.Context) (*Messages, error) {
	return NewMessages(l.ref, l.messages, false)
}

func copyMessages(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package i18n models lazily loaded translation resources and merges them with
// admin supplied JSON overrides.
package i18n

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ResourceVersion is the only resource format understood by the host.
const ResourceVersion = "v1"

var (
	ErrMissingRefID    = errors.New("translation ref has no id")
	ErrUnknownLanguage = errors.New("unknown language")
)

// Ref identifies a set of message keys owned by one plugin or package.
type Ref struct {
	ID string `json:"id"`
}

// Messages is a resolved message table for one language.
type Messages struct {
	Ref      Ref               `json:"ref"`
	Full     bool              `json:"full"`
	Messages map[string]string `json:"messages"`
}

// NewMessages validates ref and copies msgs into a Messages value. Full is
// false for partial tables such as override layers.
func NewMessages(ref Ref, msgs map[string]string, full bool) (*Messages, error) {
	if ref.ID == "" {
		return nil, ErrMissingRefID
	}
	out := make(map[string]string, len(msgs))
	for k, v := range msgs {
		out[k] = v
	}
	return &Messages{Ref: ref, Full: full, Messages: out}, nil
}

// Loader resolves the messages of one language on demand.
type Loader interface {
	Load(ctx context.Context) (*Messages, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*Messages, error)

func (f LoaderFunc) Load(ctx context.Context) (*Messages, error) {
	return f(ctx)
}

// StaticLoader returns a fixed message table.
type StaticLoader struct {
	Messages map[string]string
}

func (l *StaticLoader) Load(_ context.Context) (*Messages, error) {
	return &Messages{Full: true, Messages: l.Messages}, nil
}

// LanguageResource binds a loader to a language code.
type LanguageResource struct {
	Language string
	Loader   Loader
}

// Resource is a per-language set of lazily resolved message tables. A
// Resource is treated as immutable once built.
type Resource struct {
	ID        string
	Version   string
	Resources []LanguageResource
}

// NewResource builds a v1 resource from a language → loader map. Languages are
// stored in sorted order.
func NewResource(id string, loaders map[string]Loader) *Resource {
	langs := make([]string, 0, len(loaders))
	for lang := range loaders {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	r := &Resource{ID: id, Version: ResourceVersion}
	for _, lang := range langs {
		r.Resources = append(r.Resources, LanguageResource{Language: lang, Loader: loaders[lang]})
	}
	return r
}

// Languages lists the languages of the resource in declaration order.
func (r *Resource) Languages() []string {
	out := make([]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		out = append(out, res.Language)
	}
	return out
}

// LoaderFor returns the loader registered for lang.
func (r *Resource) LoaderFor(lang string) (Loader, bool) {
	for _, res := range r.Resources {
		if res.Language == lang {
			return res.Loader, true
		}
	}
	return nil, false
}

// Load resolves the messages of lang.
func (r *Resource) Load(ctx context.Context, lang string) (*Messages, error) {
	loader, ok := r.LoaderFor(lang)
	if !ok {
		return nil, fmt.Errorf("%w: resource %s has no %q translation", ErrUnknownLanguage, r.ID, lang)
	}
	return loader.Load(ctx)
}

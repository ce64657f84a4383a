package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/registry"
)

// ErrUnknownPlugin is returned by loaders that do not handle an entry.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Loader turns a rewritten manifest entry into a Plugin.
type Loader interface {
	Load(ctx context.Context, entry manifest.Entry) (Plugin, error)
}

type LoaderFunc func(ctx context.Context, entry manifest.Entry) (Plugin, error)

func (f LoaderFunc) Load(ctx context.Context, entry manifest.Entry) (Plugin, error) {
	return f(ctx, entry)
}

// ChainLoader tries each loader in turn until one does not return
// ErrUnknownPlugin.
type ChainLoader []Loader

func (c ChainLoader) Load(ctx context.Context, entry manifest.Entry) (Plugin, error) {
	for _, l := range c {
		p, err := l.Load(ctx, entry)
		if errors.Is(err, ErrUnknownPlugin) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, entry.Name)
}

// MapLoader serves plugins compiled into the host, keyed by name.
type MapLoader map[string]Plugin

func (m MapLoader) Load(_ context.Context, entry manifest.Entry) (Plugin, error) {
	p, ok := m[entry.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, entry.Name)
	}
	return p, nil
}

// ScriptLoader checks that every load script of an entry is reachable and
// exposes the JSON translation files declared for its scope in app config.
// Bundles are referenced by the shell, never executed by the host.
type ScriptLoader struct {
	Client   *http.Client
	BaseURL  string
	Frontend registry.DynamicPluginsConfig
}

func (l *ScriptLoader) Load(ctx context.Context, entry manifest.Entry) (Plugin, error) {
	if len(entry.LoadScripts) == 0 {
		return nil, fmt.Errorf("plugin %s has no load scripts", entry.Name)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	for _, script := range entry.LoadScripts {
		if err := probe(ctx, client, script); err != nil {
			return nil, err
		}
	}
	return &remotePlugin{
		manifest: Manifest{Name: entry.Name, Version: entry.Version, LoadScripts: entry.LoadScripts},
		exports:  l.translationExports(entry.Name),
	}, nil
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

// translationExports builds one lazily fetched resource per jsonTranslations
// entry, exported under its import name, plus the ref under the ref name.
func (l *ScriptLoader) translationExports(scope string) Modules {
	exports := Modules{}
	for _, t := range l.Frontend.Frontend[scope].TranslationResources {
		if len(t.JSONFiles) == 0 || t.Ref == "" {
			continue
		}
		target := t.ImportTarget(scope)
		ref := i18n.Ref{ID: t.Ref}
		loaders := make(map[string]i18n.Loader, len(t.JSONFiles))
		for lang, file := range t.JSONFiles {
			loaders[lang] = &i18n.HTTPLoader{
				Client: l.Client,
				URL:    manifest.ScriptURL(l.BaseURL, scope, file),
				Ref:    ref,
			}
		}
		if exports[target.Module] == nil {
			exports[target.Module] = map[string]any{}
		}
		exports[target.Module][target.ImportName] = i18n.NewResource(t.Ref, loaders)
		exports[target.Module][t.Ref] = ref
	}
	return exports
}

type remotePlugin struct {
	manifest Manifest
	exports  Modules
}

func (p *remotePlugin) Manifest() Manifest { return p.manifest }
func (p *remotePlugin) Exports() Modules   { return p.exports }

func (p *remotePlugin) Init(context.Context, InitContext) error { return nil }

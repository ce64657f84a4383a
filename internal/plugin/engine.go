package plugin

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/metrics"
)

// DefaultLoadConcurrency bounds parallel plugin loads.
const DefaultLoadConcurrency = 4

type record struct {
	plugin Plugin
	static bool
}

// Engine tracks static and dynamically loaded plugins and runs their init
// phase.
type Engine struct {
	loader  Loader
	logger  *log.Logger
	metrics *metrics.Collector
	limit   int

	mu      sync.RWMutex
	plugins map[string]*record
}

func NewEngine(loader Loader, logger *log.Logger, m *metrics.Collector) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		loader:  loader,
		logger:  logger,
		metrics: m,
		limit:   DefaultLoadConcurrency,
		plugins: make(map[string]*record),
	}
}

// SetConcurrency changes the load limit. Values below one are ignored.
func (e *Engine) SetConcurrency(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Register adds a plugin compiled into the host.
func (e *Engine) Register(p Plugin) error {
	m := p.Manifest()
	if m.Name == "" {
		return fmt.Errorf("plugin manifest must have a name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.plugins[m.Name]; exists {
		return fmt.Errorf("plugin %q is already registered", m.Name)
	}
	e.plugins[m.Name] = &record{plugin: p, static: true}
	return nil
}

// LoadAll loads every manifest entry through the loader. Failed entries are
// logged and skipped. It returns the names that loaded, sorted.
func (e *Engine) LoadAll(ctx context.Context, apps manifest.AppsConfig) []string {
	if e.loader == nil || len(apps) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		loaded []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for _, name := range apps.Names() {
		entry := apps[name]
		g.Go(func() error {
			p, err := e.loader.Load(gctx, entry)
			if err == nil && p == nil {
				err = fmt.Errorf("loader returned no plugin")
			}
			e.metrics.PluginLoaded(err == nil)
			if err != nil {
				e.logger.Printf("WARNING: plugin: failed to load %s: %v", entry.Name, err)
				return nil
			}
			e.mu.Lock()
			if _, exists := e.plugins[entry.Name]; exists {
				e.mu.Unlock()
				e.logger.Printf("WARNING: plugin: %s is already registered, skipping dynamic copy", entry.Name)
				return nil
			}
			e.plugins[entry.Name] = &record{plugin: p}
			e.mu.Unlock()

			mu.Lock()
			loaded = append(loaded, entry.Name)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(loaded)
	return loaded
}

// InitAll runs Init on static plugins first, then dynamic ones, each group in
// name order. A failing plugin is logged and dropped.
func (e *Engine) InitAll(ctx context.Context, ic InitContext) {
	for _, name := range e.orderedNames() {
		e.mu.RLock()
		rec := e.plugins[name]
		e.mu.RUnlock()

		if err := rec.plugin.Init(ctx, ic); err != nil {
			e.logger.Printf("WARNING: plugin: failed to initialize %s: %v", name, err)
			e.mu.Lock()
			delete(e.plugins, name)
			e.mu.Unlock()
		}
	}
}

func (e *Engine) orderedNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.plugins))
	for name := range e.plugins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := e.plugins[names[i]].static, e.plugins[names[j]].static
		if si != sj {
			return si
		}
		return names[i] < names[j]
	})
	return names
}

// Loaded reports whether scope is a registered plugin.
func (e *Engine) Loaded(scope string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.plugins[scope]
	return ok
}

// Exports returns the module maps of every plugin, keyed by scope.
func (e *Engine) Exports() i18n.PluginExports {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(i18n.PluginExports, len(e.plugins))
	for name, rec := range e.plugins {
		modules := rec.plugin.Exports()
		if len(modules) == 0 {
			continue
		}
		out[name] = make(map[string]map[string]any, len(modules))
		for module, exports := range modules {
			out[name][module] = exports
		}
	}
	return out
}

// Manifests returns the manifests of dynamically loaded plugins in name order.
func (e *Engine) Manifests() []Manifest {
	var out []Manifest
	for _, name := range e.orderedNames() {
		e.mu.RLock()
		rec := e.plugins[name]
		e.mu.RUnlock()
		if rec != nil && !rec.static {
			out = append(out, rec.plugin.Manifest())
		}
	}
	return out
}

func (e *Engine) ListAll() []PluginInfo {
	var infos []PluginInfo
	for _, name := range e.orderedNames() {
		e.mu.RLock()
		rec := e.plugins[name]
		e.mu.RUnlock()
		if rec == nil {
			continue
		}
		m := rec.plugin.Manifest()
		role := RoleDynamic
		if rec.static {
			role = RoleStatic
		}
		infos = append(infos, PluginInfo{Name: m.Name, Version: m.Version, Role: role, Platform: "web"})
	}
	return infos
}

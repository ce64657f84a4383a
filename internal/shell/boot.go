package shell

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darkden-lab/portalhost/internal/config"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/plugin"
	"github.com/darkden-lab/portalhost/internal/registry"
)

const defaultTitle = "Portal"

// Shell owns one boot of the application and the routes that expose it.
type Shell struct {
	opts   Options
	logger *log.Logger

	startOnce sync.Once
	done      chan struct{}

	mu  sync.RWMutex
	app *App
	err error
}

func New(opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Shell{opts: opts, logger: logger, done: make(chan struct{})}
}

// Start runs Boot in the background. Later calls are no-ops.
func (s *Shell) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go func() {
			app, err := s.Boot(ctx)
			if err != nil {
				s.logger.Printf("shell: boot failed: %v", err)
			}
			s.mu.Lock()
			s.app, s.err = app, err
			s.mu.Unlock()
			close(s.done)
		}()
	})
}

// Done is closed once the background boot has settled.
func (s *Shell) Done() <-chan struct{} { return s.done }

// Ready reports whether boot settled successfully.
func (s *Shell) Ready() bool {
	return s.App() != nil
}

// App returns the booted app, or nil while loading or after a failed boot.
func (s *Shell) App() *App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// Err returns the boot error, if any.
func (s *Shell) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Engine returns the plugin engine of the booted app.
func (s *Shell) Engine() *plugin.Engine {
	if app := s.App(); app != nil {
		return app.Plugins
	}
	return nil
}

// Boot performs the whole startup sequence once. Plugin discovery, plugin
// loading and translation override failures degrade to fewer plugins or
// untranslated strings; only a missing backend.baseUrl is fatal.
func (s *Shell) Boot(ctx context.Context) (*App, error) {
	started := time.Now()

	reader, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	baseURL, err := reader.GetString("backend.baseUrl")
	if err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}

	var (
		apps      manifest.AppsConfig
		overrides i18n.Overrides
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		apps = manifest.NewFetcher(s.opts.HTTPClient, s.logger, s.opts.Metrics).Fetch(gctx, baseURL)
		return nil
	})
	g.Go(func() error {
		overrides = i18n.FetchOverrides(gctx, s.opts.HTTPClient, baseURL)
		return nil
	})
	_ = g.Wait()

	translation := s.translationConfig(reader)
	dynamicPlugins := s.dynamicPluginsConfig(reader)
	persistence := s.opts.Persistence
	if persistence == "" {
		rawPersistence, _ := reader.GetOptionalString("userSettings.persistence")
		persistence = language.ParsePersistence(rawPersistence, s.logger)
	}

	builder := registry.NewBuilder()
	apps = manifest.Rewrite(baseURL, apps)

	loader := s.opts.Loader
	if loader == nil {
		loader = &plugin.ScriptLoader{Client: s.opts.HTTPClient, BaseURL: baseURL, Frontend: dynamicPlugins}
	}
	engine := plugin.NewEngine(loader, s.logger, s.opts.Metrics)
	if s.opts.LoadConcurrency > 0 {
		engine.SetConcurrency(s.opts.LoadConcurrency)
	}
	for _, p := range s.opts.StaticPlugins {
		if err := engine.Register(p); err != nil {
			s.logger.Printf("WARNING: shell: skipping static plugin: %v", err)
		}
	}
	engine.LoadAll(ctx, apps)
	engine.InitAll(ctx, plugin.InitContext{Registry: builder, APIs: s.opts.APIs, Config: reader})

	if err := dynamicPlugins.Apply(builder, engine.Loaded); err != nil {
		s.logger.Printf("WARNING: shell: failed to apply dynamic plugin config: %v", err)
	}

	processor := &i18n.Processor{Overrides: overrides, Logger: s.logger}
	result := processor.ProcessAll(pluginTranslations(dynamicPlugins, engine.Loaded), s.opts.StaticTranslations, engine.Exports())
	for _, ref := range result.Refs {
		if err := builder.AddTranslationRef(ref); err != nil {
			s.logger.Printf("WARNING: shell: failed to register translation ref %q: %v", ref.ID, err)
		}
	}

	frozen, err := builder.Freeze()
	if err != nil {
		s.logger.Printf("WARNING: shell: registry snapshot failed, serving an empty registry: %v", err)
		empty := registry.NewDynamicRootConfig()
		frozen = &empty
	}

	title, ok := reader.GetOptionalString("app.title")
	if !ok || title == "" {
		title = defaultTitle
	}
	app := &App{
		Config:      reader,
		BaseURL:     baseURL,
		Title:       title,
		Manifest:    apps,
		Registry:    frozen,
		Translation: translation,
		Resources:   result.Resources,
		Plugins:     engine,
		Persistence: persistence,
	}

	if s.opts.AfterInit != nil {
		if err := s.opts.AfterInit(ctx, app); err != nil {
			s.logger.Printf("WARNING: shell: after init hook failed: %v", err)
		}
	}
	app.BootTime = time.Since(started)
	s.opts.Metrics.BootFinished(started)
	s.logger.Printf("shell: booted in %s with %d dynamic plugins", app.BootTime.Round(time.Millisecond), len(engine.Manifests()))
	return app, nil
}

func (s *Shell) loadConfig(ctx context.Context) (*config.Reader, error) {
	var layers []config.Layer
	if len(s.opts.BaseFrontendConfig) > 0 {
		layers = append(layers, config.Layer{Context: "base", Data: s.opts.BaseFrontendConfig})
	}
	if s.opts.ConfigLoader != nil {
		loaded, err := s.opts.ConfigLoader(ctx)
		if err != nil {
			return nil, fmt.Errorf("shell: load app config: %w", err)
		}
		layers = append(layers, loaded...)
	}
	layers = config.OverrideBaseURLConfigs(layers, s.opts.RuntimeOrigin)
	return config.NewReader(layers...), nil
}

func (s *Shell) translationConfig(reader *config.Reader) *i18n.Config {
	if !reader.Has("i18n") {
		return nil
	}
	var cfg i18n.Config
	if err := reader.Decode("i18n", &cfg); err != nil {
		s.logger.Printf("WARNING: shell: invalid i18n config, using defaults: %v", err)
		return nil
	}
	return &cfg
}

func (s *Shell) dynamicPluginsConfig(reader *config.Reader) registry.DynamicPluginsConfig {
	var cfg registry.DynamicPluginsConfig
	if !reader.Has("dynamicPlugins") {
		return cfg
	}
	if err := reader.Decode("dynamicPlugins", &cfg); err != nil {
		s.logger.Printf("WARNING: shell: invalid dynamicPlugins config, ignoring: %v", err)
		return registry.DynamicPluginsConfig{}
	}
	return cfg
}

func pluginTranslations(cfg registry.DynamicPluginsConfig, loaded func(string) bool) []i18n.PluginTranslationConfig {
	var out []i18n.PluginTranslationConfig
	for _, scope := range cfg.Scopes() {
		if !loaded(scope) {
			continue
		}
		for _, t := range cfg.Frontend[scope].TranslationResources {
			target := t.ImportTarget(scope)
			out = append(out, i18n.PluginTranslationConfig{
				Scope:      scope,
				Module:     target.Module,
				ImportName: target.ImportName,
				Ref:        t.Ref,
			})
		}
	}
	return out
}

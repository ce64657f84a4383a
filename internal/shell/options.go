// Package shell boots the portal: it loads app config, discovers and loads
// dynamic plugins, builds the runtime registry and serves the application
// shell once boot has settled.
package shell

import (
	"context"
	"log"
	"net/http"

	"github.com/darkden-lab/portalhost/internal/config"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/metrics"
	"github.com/darkden-lab/portalhost/internal/plugin"
)

// ConfigLoader returns the app config layers, earliest first.
type ConfigLoader func(ctx context.Context) ([]config.Layer, error)

// AfterInitFunc runs once the registry is frozen, before the app is
// published.
type AfterInitFunc func(ctx context.Context, app *App) error

type Options struct {
	APIs      map[string]any
	AfterInit AfterInitFunc

	// BaseFrontendConfig is applied below every loaded layer.
	BaseFrontendConfig map[string]any
	StaticPlugins      []plugin.Plugin
	StaticTranslations []i18n.StaticTranslationConfig
	ConfigLoader       ConfigLoader

	// Persistence, when set, is used as is instead of parsing
	// userSettings.persistence again, so an invalid value warns once.
	Persistence language.Persistence

	// RuntimeOrigin, when set, replaces the origin of every base URL in app
	// config.
	RuntimeOrigin string
	HTTPClient    *http.Client

	// Loader defaults to a plugin.ScriptLoader against backend.baseUrl.
	Loader          plugin.Loader
	LoadConcurrency int

	Logger  *log.Logger
	Metrics *metrics.Collector
}

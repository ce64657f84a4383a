package shell

import (
	"time"

	"github.com/darkden-lab/portalhost/internal/config"
	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/plugin"
	"github.com/darkden-lab/portalhost/internal/registry"
)

// App is the result of a successful boot. It is read-only.
type App struct {
	Config      *config.Reader
	BaseURL     string
	Title       string
	Manifest    manifest.AppsConfig
	Registry    *registry.DynamicRootConfig
	Translation *i18n.Config
	Resources   []*i18n.Resource
	Plugins     *plugin.Engine
	Persistence language.Persistence
	BootTime    time.Duration
}

// Resource returns the translation resource with the given id.
func (a *App) Resource(id string) *i18n.Resource {
	for _, r := range a.Resources {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Bootstrap is the JSON document the client shell starts from.
type Bootstrap struct {
	BaseURL           string                      `json:"baseUrl"`
	Title             string                      `json:"title"`
	Plugins           manifest.AppsConfig         `json:"plugins"`
	DynamicRootConfig *registry.DynamicRootConfig `json:"dynamicRootConfig"`
	Menu              []registry.MenuItem         `json:"menu"`
	I18n              bootstrapI18n               `json:"i18n"`
	TranslationRefs   []i18n.Ref                  `json:"translationRefs"`
	UserSettings      bootstrapUserSettings       `json:"userSettings"`
}

type bootstrapI18n struct {
	Locales       []string `json:"locales"`
	DefaultLocale string   `json:"defaultLocale,omitempty"`
	Resources     []string `json:"resources"`
}

type bootstrapUserSettings struct {
	Persistence language.Persistence `json:"persistence"`
}

// Bootstrap builds the client bootstrap document. Only plugins that loaded
// are listed.
func (a *App) Bootstrap() Bootstrap {
	plugins := manifest.AppsConfig{}
	for name, e := range a.Manifest {
		if a.Plugins != nil && a.Plugins.Loaded(name) {
			plugins[name] = e
		}
	}
	resources := make([]string, 0, len(a.Resources))
	for _, r := range a.Resources {
		resources = append(resources, r.ID)
	}
	b := Bootstrap{
		BaseURL:           a.BaseURL,
		Title:             a.Title,
		Plugins:           plugins,
		DynamicRootConfig: a.Registry,
		I18n: bootstrapI18n{
			Locales:   a.Translation.SupportedLocales(),
			Resources: resources,
		},
		UserSettings: bootstrapUserSettings{Persistence: a.Persistence},
	}
	if a.Translation != nil {
		b.I18n.DefaultLocale = a.Translation.DefaultLocale
	}
	if a.Registry != nil {
		b.Menu = registry.MenuTree(a.Registry.MenuItems)
		b.TranslationRefs = a.Registry.TranslationRefs
	}
	return b
}

// Package core is the plugin compiled into the host. It contributes the
// default main menu and the rhdh translation resource.
package core

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/plugin"
	"github.com/darkden-lab/portalhost/internal/registry"
)

// Name is the scope of the core plugin.
const Name = "portal.core"

//go:embed locales/*.json
var locales embed.FS

var manifest = plugin.Manifest{
	Name:        Name,
	Version:     "1.0.0",
	Description: "Default main menu and host translations",
}

// TranslationRef identifies the host's own messages.
var TranslationRef = i18n.Ref{ID: "rhdh"}

// DefaultMenuItems are the main menu entries every portal starts with.
var DefaultMenuItems = []registry.MenuItem{
	{Name: "default.home", Title: "Home", TitleKey: "menuItem.home", Icon: "home", To: "/", Priority: 100},
	{Name: "default.my-group", Title: "My Group", TitleKey: "menuItem.myGroup", Icon: "group", Priority: 90},
	{Name: "default.catalog", Title: "Catalog", TitleKey: "menuItem.catalog", Icon: "category", To: "catalog", Priority: 80},
	{Name: "default.apis", Title: "APIs", TitleKey: "menuItem.apis", Icon: "extension", To: "api-docs", Priority: 70},
	{Name: "default.learning-path", Title: "Learning Paths", TitleKey: "menuItem.learningPaths", Icon: "school", To: "learning-paths", Priority: 60},
	{Name: "default.create", Title: "Self-service", TitleKey: "menuItem.selfService", Icon: "add", To: "create", Priority: 50},
}

type CorePlugin struct {
	resource *i18n.Resource
}

func New() *CorePlugin {
	return &CorePlugin{resource: newResource()}
}

func (p *CorePlugin) Manifest() plugin.Manifest {
	return manifest
}

func (p *CorePlugin) Exports() plugin.Modules {
	return plugin.Modules{
		"PluginRoot": {
			"rhdhTranslations":   p.resource,
			"rhdhTranslationRef": TranslationRef,
		},
	}
}

func (p *CorePlugin) Init(_ context.Context, ic plugin.InitContext) error {
	for _, item := range DefaultMenuItems {
		if err := ic.Registry.AddMenuItem(item); err != nil {
			return fmt.Errorf("register %s: %w", item.Name, err)
		}
	}
	return nil
}

// Translations returns the static translation config of the rhdh resource.
func (p *CorePlugin) Translations() []i18n.StaticTranslationConfig {
	return []i18n.StaticTranslationConfig{{Resource: p.resource, Ref: TranslationRef}}
}

func newResource() *i18n.Resource {
	entries, _ := locales.ReadDir("locales")
	loaders := make(map[string]i18n.Loader, len(entries))
	for _, e := range entries {
		lang := strings.TrimSuffix(e.Name(), ".json")
		file := path.Join("locales", e.Name())
		loaders[lang] = i18n.LoaderFunc(func(context.Context) (*i18n.Messages, error) {
			raw, err := locales.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file, err)
			}
			var msgs map[string]string
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return nil, fmt.Errorf("decode %s: %w", file, err)
			}
			return i18n.NewMessages(TranslationRef, msgs, true)
		})
	}
	return i18n.NewResource(TranslationRef.ID, loaders)
}

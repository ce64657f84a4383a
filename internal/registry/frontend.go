package registry

import (
	"fmt"
	"sort"
)

const (
	defaultModule     = "PluginRoot"
	defaultImportName = "default"
)

// DynamicPluginsConfig is the dynamicPlugins app config subtree.
type DynamicPluginsConfig struct {
	RootDirectory string                          `json:"rootDirectory,omitempty"`
	Frontend      map[string]FrontendPluginConfig `json:"frontend,omitempty"`
}

// FrontendPluginConfig is what app config contributes for one plugin scope.
type FrontendPluginConfig struct {
	DynamicRoutes             []routeConfig              `json:"dynamicRoutes,omitempty"`
	MenuItems                 map[string]menuItemConfig  `json:"menuItems,omitempty"`
	MountPoints               []mountPointConfig         `json:"mountPoints,omitempty"`
	EntityTabs                []EntityTab                `json:"entityTabs,omitempty"`
	ProviderSettings          []ProviderSetting          `json:"providerSettings,omitempty"`
	ScaffolderFieldExtensions []componentConfig          `json:"scaffolderFieldExtensions,omitempty"`
	TechdocsAddons            []techdocsAddonConfig      `json:"techdocsAddons,omitempty"`
	TranslationResources      []TranslationResourceEntry `json:"translationResources,omitempty"`
}

type componentConfig struct {
	Module     string `json:"module,omitempty"`
	ImportName string `json:"importName,omitempty"`
}

func (c componentConfig) resolve(scope string) Component {
	out := Component{Scope: scope, Module: c.Module, ImportName: c.ImportName}
	if out.Module == "" {
		out.Module = defaultModule
	}
	if out.ImportName == "" {
		out.ImportName = defaultImportName
	}
	return out
}

type routeConfig struct {
	componentConfig
	Path     string         `json:"path"`
	MenuItem *RouteMenuItem `json:"menuItem,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

type menuItemConfig struct {
	Title    string `json:"title,omitempty"`
	TitleKey string `json:"titleKey,omitempty"`
	Icon     string `json:"icon,omitempty"`
	To       string `json:"to,omitempty"`
	Priority int    `json:"priority,omitempty"`
	Parent   string `json:"parent,omitempty"`
}

type mountPointConfig struct {
	componentConfig
	MountPoint string           `json:"mountPoint"`
	Config     MountPointConfig `json:"config,omitempty"`
}

type techdocsAddonConfig struct {
	componentConfig
	Config map[string]any `json:"config,omitempty"`
}

// TranslationResourceEntry names a translation resource exported by a plugin
// module, or a set of JSON files keyed by locale.
type TranslationResourceEntry struct {
	componentConfig
	Ref       string            `json:"ref"`
	JSONFiles map[string]string `json:"jsonTranslations,omitempty"`
}

// ImportTarget returns the module and export the resource is read from.
func (t TranslationResourceEntry) ImportTarget(scope string) Component {
	return t.resolve(scope)
}

// Scopes returns the configured frontend scopes in sorted order.
func (c DynamicPluginsConfig) Scopes() []string {
	scopes := make([]string, 0, len(c.Frontend))
	for scope := range c.Frontend {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Apply registers the frontend contributions of c into b. Menu items are taken
// from every scope; everything else only from scopes for which loaded returns
// true. It returns the first registry error, typically ErrFrozen.
func (c DynamicPluginsConfig) Apply(b *Builder, loaded func(scope string) bool) error {
	for _, scope := range c.Scopes() {
		fc := c.Frontend[scope]

		names := make([]string, 0, len(fc.MenuItems))
		for name := range fc.MenuItems {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mi := fc.MenuItems[name]
			err := b.AddMenuItem(MenuItem{
				Name: name, Title: mi.Title, TitleKey: mi.TitleKey,
				Icon: mi.Icon, To: mi.To, Priority: mi.Priority, Parent: mi.Parent,
			})
			if err != nil {
				return fmt.Errorf("menu item %s of %s: %w", name, scope, err)
			}
		}

		if loaded == nil || !loaded(scope) {
			continue
		}
		if err := fc.apply(b, scope); err != nil {
			return fmt.Errorf("frontend config of %s: %w", scope, err)
		}
	}
	return nil
}

func (fc FrontendPluginConfig) apply(b *Builder, scope string) error {
	for _, r := range fc.DynamicRoutes {
		if err := b.AddDynamicRoute(DynamicRoute{
			Component: r.resolve(scope), Path: r.Path, MenuItem: r.MenuItem, Config: r.Config,
		}); err != nil {
			return err
		}
	}
	for _, mp := range fc.MountPoints {
		if err := b.AddMountPoint(mp.MountPoint, MountPoint{Component: mp.resolve(scope), Config: mp.Config}); err != nil {
			return err
		}
	}
	for _, tab := range fc.EntityTabs {
		if err := b.SetEntityTab(tab); err != nil {
			return err
		}
	}
	for _, p := range fc.ProviderSettings {
		if err := b.AddProviderSetting(p); err != nil {
			return err
		}
	}
	for _, ext := range fc.ScaffolderFieldExtensions {
		if err := b.AddScaffolderFieldExtension(ScaffolderFieldExtension{Component: ext.resolve(scope)}); err != nil {
			return err
		}
	}
	for _, addon := range fc.TechdocsAddons {
		if err := b.AddTechdocsAddon(TechdocsAddon{Component: addon.resolve(scope), Config: addon.Config}); err != nil {
			return err
		}
	}
	return nil
}

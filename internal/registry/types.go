// Package registry holds the runtime registry that plugins populate during
// boot and the shell reads afterwards.
package registry

import "github.com/darkden-lab/portalhost/internal/i18n"

// Component points at an export of a plugin module.
type Component struct {
	Scope      string `json:"scope"`
	Module     string `json:"module"`
	ImportName string `json:"importName"`
}

type RouteMenuItem struct {
	Icon    string `json:"icon,omitempty"`
	Text    string `json:"text,omitempty"`
	TextKey string `json:"textKey,omitempty"`
}

type DynamicRoute struct {
	Component
	Path     string         `json:"path"`
	MenuItem *RouteMenuItem `json:"menuItem,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

type MenuItem struct {
	Name     string     `json:"name"`
	Title    string     `json:"title"`
	TitleKey string     `json:"titleKey,omitempty"`
	Icon     string     `json:"icon,omitempty"`
	To       string     `json:"to,omitempty"`
	Priority int        `json:"priority,omitempty"`
	Parent   string     `json:"parent,omitempty"`
	Children []MenuItem `json:"children,omitempty"`
}

type EntityTab struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	TitleKey   string `json:"titleKey,omitempty"`
	MountPoint string `json:"mountPoint"`
	Priority   int    `json:"priority,omitempty"`
}

type MountPointConfig struct {
	Layout map[string]any `json:"layout,omitempty"`
	If     any            `json:"if,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
}

type MountPoint struct {
	Component
	Config MountPointConfig `json:"config"`
}

type ScaffolderFieldExtension struct {
	Component
}

type TechdocsAddon struct {
	Component
	Config map[string]any `json:"config,omitempty"`
}

type ProviderSetting struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

// DynamicRootConfig is the frozen content of the registry.
type DynamicRootConfig struct {
	DynamicRoutes             []DynamicRoute            `json:"dynamicRoutes"`
	MenuItems                 []MenuItem                `json:"menuItems"`
	EntityTabOverrides        map[string]EntityTab      `json:"entityTabOverrides"`
	MountPoints               map[string][]MountPoint   `json:"mountPoints"`
	ScaffolderFieldExtensions []ScaffolderFieldExtension `json:"scaffolderFieldExtensions"`
	TechdocsAddons            []TechdocsAddon           `json:"techdocsAddons"`
	ProviderSettings          []ProviderSetting         `json:"providerSettings"`
	TranslationRefs           []i18n.Ref                `json:"translationRefs"`
}

// NewDynamicRootConfig returns a config with every collection initialized
// empty.
func NewDynamicRootConfig() DynamicRootConfig {
	return DynamicRootConfig{
		DynamicRoutes:             []DynamicRoute{},
		MenuItems:                 []MenuItem{},
		EntityTabOverrides:        map[string]EntityTab{},
		MountPoints:               map[string][]MountPoint{},
		ScaffolderFieldExtensions: []ScaffolderFieldExtension{},
		TechdocsAddons:            []TechdocsAddon{},
		ProviderSettings:          []ProviderSetting{},
		TranslationRefs:           []i18n.Ref{},
	}
}

// MountPointData returns the contributions to mountPoint.
func (c *DynamicRootConfig) MountPointData(mountPoint string) []MountPoint {
	if c == nil {
		return nil
	}
	return c.MountPoints[mountPoint]
}

package plugin

import (
	"context"

	"github.com/darkden-lab/portalhost/internal/config"
	"github.com/darkden-lab/portalhost/internal/registry"
)

// Modules is the exposed module map of a plugin: module → export name → value.
type Modules map[string]map[string]any

// InitContext is handed to every plugin during the init phase.
type InitContext struct {
	Registry *registry.Builder
	APIs     map[string]any
	Config   *config.Reader
}

// Plugin defines the interface that all plugins must implement.
type Plugin interface {
	Manifest() Manifest
	Exports() Modules
	Init(ctx context.Context, ic InitContext) error
}

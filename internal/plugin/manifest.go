package plugin

// Manifest describes a plugin known to the engine.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	LoadScripts []string `json:"loadScripts,omitempty"`
}

// PluginInfo is the loaded-plugins listing entry.
type PluginInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Role     string `json:"role"`
	Platform string `json:"platform"`
}

const (
	RoleStatic  = "static"
	RoleDynamic = "frontend-plugin"
)

package i18n

import "log"

// PluginExports is the module map of every loaded plugin:
// scope → module → export name → value. Translation exports are either
// *Resource or Ref values.
type PluginExports map[string]map[string]map[string]any

// Lookup returns the named export of scope/module.
func (p PluginExports) Lookup(scope, module, name string) (any, bool) {
	modules, ok := p[scope]
	if !ok {
		return nil, false
	}
	exports, ok := modules[module]
	if !ok {
		return nil, false
	}
	v, ok := exports[name]
	return v, ok
}

// PluginTranslationConfig points at a translation resource exported by a
// dynamic plugin.
type PluginTranslationConfig struct {
	Scope      string `json:"scope"`
	Module     string `json:"module"`
	ImportName string `json:"importName"`
	Ref        string `json:"ref,omitempty"`
}

// StaticTranslationConfig is a resource compiled into the host.
type StaticTranslationConfig struct {
	Resource *Resource
	Ref      Ref
}

// Processor applies JSON overrides to plugin and static translation
// resources.
type Processor struct {
	Overrides Overrides
	Logger    *log.Logger
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (p *Processor) pluginRef(cfg PluginTranslationConfig, plugins PluginExports) (Ref, bool) {
	if cfg.Ref == "" {
		return Ref{}, false
	}
	v, ok := plugins.Lookup(cfg.Scope, cfg.Module, cfg.Ref)
	if !ok {
		return Ref{}, false
	}
	switch ref := v.(type) {
	case Ref:
		return ref, ref.ID != ""
	case *Ref:
		if ref == nil {
			return Ref{}, false
		}
		return *ref, ref.ID != ""
	}
	return Ref{}, false
}

// ProcessPluginResource resolves the resource described by cfg from the
// plugin exports. It returns nil when the export is missing. When overrides
// exist for the resource but the plugin does not export a ref, the base
// resource is returned unchanged.
func (p *Processor) ProcessPluginResource(cfg PluginTranslationConfig, plugins PluginExports) *Resource {
	v, _ := plugins.Lookup(cfg.Scope, cfg.Module, cfg.ImportName)
	resource, _ := v.(*Resource)
	if resource == nil || resource.ID == "" {
		p.logf("WARNING: Plugin %s is not configured properly: %s.%s not found, ignoring translation resource: %s",
			cfg.Scope, cfg.Module, cfg.ImportName, cfg.ImportName)
		return nil
	}

	overrides, ok := p.Overrides[resource.ID]
	if !ok {
		return resource
	}
	ref, ok := p.pluginRef(cfg, plugins)
	if !ok {
		p.logf("WARNING: Plugin translation ref for %s is not configured, ignoring JSON translation for this plugin", cfg.Scope)
		return resource
	}
	return Merge(ref, resource, overrides)
}

// ProcessStaticResource applies the overrides registered for the resource id.
func (p *Processor) ProcessStaticResource(cfg StaticTranslationConfig) *Resource {
	if cfg.Resource == nil {
		return nil
	}
	overrides, ok := p.Overrides[cfg.Resource.ID]
	if !ok {
		return cfg.Resource
	}
	return Merge(cfg.Ref, cfg.Resource, overrides)
}

// Result collects processed resources and the refs that must be registered
// with the translation API.
type Result struct {
	Resources []*Resource
	Refs      []Ref
}

// ProcessAll handles dynamic resources first, then static ones.
func (p *Processor) ProcessAll(dynamic []PluginTranslationConfig, static []StaticTranslationConfig, plugins PluginExports) Result {
	var res Result
	for _, cfg := range dynamic {
		resource := p.ProcessPluginResource(cfg, plugins)
		if resource == nil {
			continue
		}
		res.Resources = append(res.Resources, resource)
		if ref, ok := p.pluginRef(cfg, plugins); ok {
			res.Refs = append(res.Refs, ref)
		}
	}
	for _, cfg := range static {
		resource := p.ProcessStaticResource(cfg)
		if resource == nil {
			continue
		}
		res.Resources = append(res.Resources, resource)
		res.Refs = append(res.Refs, cfg.Ref)
	}
	return res
}

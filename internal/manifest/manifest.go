// Package manifest fetches the list of installed dynamic plugins from the
// scalprum discovery endpoint and rewrites their load scripts so every bundle
// is served through the host's own origin.
package manifest

import "sort"

// Entry describes one discoverable plugin bundle.
type Entry struct {
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	LoadScripts      []string `json:"loadScripts"`
	ManifestLocation string   `json:"manifestLocation,omitempty"`
}

// AppsConfig maps plugin name to its entry.
type AppsConfig map[string]Entry

// Names returns the plugin names in sorted order.
func (a AppsConfig) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TransformFunc rewrites an entry before the plugin loader fetches it.
type TransformFunc func(Entry) Entry

// Transform returns the load-script rewrite for baseURL: every script becomes
// ${baseURL}/api/scalprum/${name}/${script}. The input entry is not modified.
func Transform(baseURL string) TransformFunc {
	return func(e Entry) Entry {
		out := e
		out.LoadScripts = make([]string, len(e.LoadScripts))
		for i, script := range e.LoadScripts {
			out.LoadScripts[i] = ScriptURL(baseURL, e.Name, script)
		}
		return out
	}
}

// ScriptURL builds the proxied URL of one plugin asset.
func ScriptURL(baseURL, pluginName, script string) string {
	return baseURL + "/api/scalprum/" + pluginName + "/" + script
}

// Rewrite applies Transform(baseURL) to every entry of apps and returns a new
// map.
func Rewrite(baseURL string, apps AppsConfig) AppsConfig {
	transform := Transform(baseURL)
	out := make(AppsConfig, len(apps))
	for name, e := range apps {
		out[name] = transform(e)
	}
	return out
}

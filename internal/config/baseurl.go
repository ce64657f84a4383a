package config

import "net/url"

// baseURLPaths are the config values that embed the deployment origin.
var baseURLPaths = [][]string{
	{"app", "baseUrl"},
	{"backend", "baseUrl"},
	{"backend", "cors", "origin"},
}

// OverrideBaseURLConfigs rewrites the scheme and host of every base URL value
// to origin, keeping the path. Layers are copied on write; when nothing needs
// to change the input slice is returned as is.
func OverrideBaseURLConfigs(layers []Layer, origin string) []Layer {
	if origin == "" {
		return layers
	}
	target, err := url.Parse(origin)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return layers
	}

	changed := false
	out := make([]Layer, len(layers))
	for i, l := range layers {
		data := l.Data
		for _, p := range baseURLPaths {
			s, ok := lookupPath(data, p).(string)
			if !ok {
				continue
			}
			rewritten, ok := rewriteOrigin(s, target)
			if !ok || rewritten == s {
				continue
			}
			data = setPath(data, p, rewritten)
			changed = true
		}
		out[i] = Layer{Context: l.Context, Data: data}
	}
	if !changed {
		return layers
	}
	return out
}

func rewriteOrigin(raw string, target *url.URL) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = target.Scheme
	u.Host = target.Host
	return u.String(), true
}

func lookupPath(data map[string]any, path []string) any {
	var cur any = data
	for _, part := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// setPath returns a copy of data with value stored at path. Only the maps on
// the path are copied.
func setPath(data map[string]any, path []string, value any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if len(path) == 1 {
		out[path[0]] = value
		return out
	}
	child, _ := out[path[0]].(map[string]any)
	out[path[0]] = setPath(child, path[1:], value)
	return out
}

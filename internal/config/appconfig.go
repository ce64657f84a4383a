package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey is returned when a required config value is absent.
var ErrMissingKey = errors.New("missing required config value")

const envPrefix = "APP_CONFIG_"

// Layer is one source of application config. Layers are applied in order, so
// later layers override earlier ones.
type Layer struct {
	Context string         `json:"context"`
	Data    map[string]any `json:"data"`
}

// Reader is a read-only view over the merged layers.
type Reader struct {
	data map[string]any
}

// NewReader merges layers into a single tree. Maps merge key by key; any other
// value in a later layer replaces the earlier one.
func NewReader(layers ...Layer) *Reader {
	merged := map[string]any{}
	for _, l := range layers {
		merged = deepMerge(merged, l.Data)
	}
	return &Reader{data: merged}
}

// Get returns the raw value at a dotted path.
func (r *Reader) Get(path string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if path == "" {
		return r.data, true
	}
	var cur any = r.data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a value exists at path.
func (r *Reader) Has(path string) bool {
	_, ok := r.Get(path)
	return ok
}

// GetString returns a required string value.
func (r *Reader) GetString(path string) (string, error) {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingKey, path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config value at %q is %T, want string", path, v)
	}
	return s, nil
}

// GetOptionalString returns the string at path, if it is set and a string.
func (r *Reader) GetOptionalString(path string) (string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetOptionalStringArray returns the string list at path. Non-string
// elements make the whole value invalid.
func (r *Reader) GetOptionalStringArray(path string) ([]string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// GetOptionalConfig returns a sub-reader rooted at path.
func (r *Reader) GetOptionalConfig(path string) (*Reader, bool) {
	v, ok := r.Get(path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return &Reader{data: m}, true
}

// Decode unmarshals the subtree at path into out using its json tags.
func (r *Reader) Decode(path string, out any) error {
	v, ok := r.Get(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingKey, path)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode config at %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode config at %q: %w", path, err)
	}
	return nil
}

// LoadLayers reads YAML config files in order followed by a layer built from
// APP_CONFIG_* entries in environ. Missing files are skipped with a warning;
// malformed files are an error.
func LoadLayers(paths []string, environ []string) ([]Layer, error) {
	var layers []Layer
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Printf("WARNING: app config file %s not found, skipping", p)
				continue
			}
			return nil, fmt.Errorf("read app config %s: %w", p, err)
		}
		data := map[string]any{}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse app config %s: %w", p, err)
		}
		layers = append(layers, Layer{Context: p, Data: normalize(data).(map[string]any)})
	}
	if env := envLayer(environ); len(env.Data) > 0 {
		layers = append(layers, env)
	}
	return layers, nil
}

// envLayer turns APP_CONFIG_backend_baseUrl=... into {backend: {baseUrl: ...}}.
// Values that parse as JSON are used as such, anything else is a string.
func envLayer(environ []string) Layer {
	data := map[string]any{}
	sorted := append([]string(nil), environ...)
	sort.Strings(sorted)
	for _, kv := range sorted {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(name, envPrefix), "_")
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		cur := data
		for i, part := range parts {
			if part == "" {
				break
			}
			if i == len(parts)-1 {
				cur[part] = parsed
				break
			}
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[part] = next
			}
			cur = next
		}
	}
	return Layer{Context: "env", Data: data}
}

// normalize converts yaml's map[any]any nodes into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

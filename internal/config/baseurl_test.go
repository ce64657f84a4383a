package config

import "testing"

func TestOverrideBaseURLConfigsRewritesOrigin(t *testing.T) {
	layers := []Layer{
		{Context: "app-config.yaml", Data: map[string]any{
			"app": map[string]any{"baseUrl": "http://localhost:3000", "title": "Portal"},
			"backend": map[string]any{
				"baseUrl": "http://localhost:7007/portal",
				"cors":    map[string]any{"origin": "http://localhost:3000"},
			},
		}},
	}

	out := OverrideBaseURLConfigs(layers, "https://portal.example.com")
	r := NewReader(out...)

	if v, _ := r.GetString("app.baseUrl"); v != "https://portal.example.com" {
		t.Errorf("unexpected app.baseUrl %q", v)
	}
	if v, _ := r.GetString("backend.baseUrl"); v != "https://portal.example.com/portal" {
		t.Errorf("expected path to be preserved, got %q", v)
	}
	if v, _ := r.GetString("backend.cors.origin"); v != "https://portal.example.com" {
		t.Errorf("unexpected cors origin %q", v)
	}
	if v, _ := r.GetString("app.title"); v != "Portal" {
		t.Errorf("unrelated keys must survive, got %q", v)
	}

	orig := layers[0].Data["backend"].(map[string]any)["baseUrl"]
	if orig != "http://localhost:7007/portal" {
		t.Errorf("input layer was mutated: %v", orig)
	}
}

func TestOverrideBaseURLConfigsNoSensitiveKeys(t *testing.T) {
	layers := []Layer{{Context: "a", Data: map[string]any{"app": map[string]any{"title": "x"}}}}

	out := OverrideBaseURLConfigs(layers, "https://portal.example.com")
	if len(out) != 1 || &out[0] != &layers[0] {
		t.Error("expected the input slice to be returned unchanged")
	}
}

func TestOverrideBaseURLConfigsInvalidOrigin(t *testing.T) {
	layers := []Layer{{Data: map[string]any{"backend": map[string]any{"baseUrl": "http://localhost:7007"}}}}

	for _, origin := range []string{"", "not a url", "://missing-scheme"} {
		out := OverrideBaseURLConfigs(layers, origin)
		if v, _ := NewReader(out...).GetString("backend.baseUrl"); v != "http://localhost:7007" {
			t.Errorf("origin %q: expected value untouched, got %q", origin, v)
		}
	}
}

func TestOverrideBaseURLConfigsLeavesUnparsableValues(t *testing.T) {
	layers := []Layer{{Data: map[string]any{"backend": map[string]any{"baseUrl": "${BACKEND_URL}"}}}}

	out := OverrideBaseURLConfigs(layers, "https://portal.example.com")
	if v, _ := NewReader(out...).GetString("backend.baseUrl"); v != "${BACKEND_URL}" {
		t.Errorf("expected placeholder without host to be left alone, got %q", v)
	}
}

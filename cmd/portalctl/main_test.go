package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/darkden-lab/portalhost/internal/auth"
	"github.com/darkden-lab/portalhost/internal/plugin"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPluginsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/scalprum/plugins":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"acme.quickstart":{"name":"acme.quickstart","version":"1.2.0","loadScripts":["entry.js"]}}`))
		case "/api/dynamic-plugins-info/loaded-plugins":
			json.NewEncoder(w).Encode([]plugin.PluginInfo{{Name: "acme.quickstart", Version: "1.2.0", Role: plugin.RoleDynamic}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, "plugins", "--server", srv.URL)
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	if !strings.Contains(out, "acme.quickstart") || !strings.Contains(out, srv.URL+"/api/scalprum/acme.quickstart/entry.js") {
		t.Errorf("expected rewritten script in output, got %q", out)
	}

	out, err = execute(t, "plugins", "--loaded", "--server", srv.URL)
	if err != nil {
		t.Fatalf("plugins --loaded: %v", err)
	}
	if !strings.Contains(out, plugin.RoleDynamic) {
		t.Errorf("expected role in output, got %q", out)
	}
}

func TestPluginsCommandUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	out, err := execute(t, "plugins", "--server", srv.URL)
	if err != nil {
		t.Fatalf("discovery failures must not fail the command: %v", err)
	}
	if !strings.Contains(out, "No dynamic plugins found.") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestTranslationsCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "overrides.json")
	os.WriteFile(file, []byte(`{"rhdh":{"en":{"menuItem.home":"Start"},"fr":{"menuItem.home":"Maison"}}}`), 0o644)

	out, err := execute(t, "translations", "-f", file, "--locale", "en")
	if err != nil {
		t.Fatalf("translations: %v", err)
	}
	if !strings.Contains(out, "rhdh") || strings.Contains(out, "fr ") {
		t.Errorf("expected only the en locale, got %q", out)
	}

	if _, err := execute(t, "translations", "-f", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error when no file holds overrides")
	}
}

func TestLanguageCommand(t *testing.T) {
	out, err := execute(t, "language", "--locales", "en,fr,de", "--accept", "fr-CH, en;q=0.8")
	if err != nil {
		t.Fatalf("language: %v", err)
	}
	if strings.TrimSpace(out) != "fr" {
		t.Errorf("expected fr, got %q", out)
	}
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--user", "user:default/alice")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.NewJWTService("s3cret").ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token must validate: %v", err)
	}
	if claims.UserEntityRef != "user:default/alice" {
		t.Errorf("unexpected subject %q", claims.UserEntityRef)
	}

	t.Setenv("JWT_SECRET", "")
	if _, err := execute(t, "token", "--secret", ""); err == nil {
		t.Error("expected error without a secret")
	}
}

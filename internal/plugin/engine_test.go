package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/registry"
)

type mockPlugin struct {
	manifest Manifest
	exports  Modules
	initErr  error
	inits    int32
}

func (m *mockPlugin) Manifest() Manifest { return m.manifest }
func (m *mockPlugin) Exports() Modules   { return m.exports }

func (m *mockPlugin) Init(_ context.Context, ic InitContext) error {
	atomic.AddInt32(&m.inits, 1)
	if m.initErr != nil {
		return m.initErr
	}
	return ic.Registry.AddMenuItem(registry.MenuItem{Name: m.manifest.Name, Title: m.manifest.Name})
}

func newMockPlugin(name, version string) *mockPlugin {
	return &mockPlugin{manifest: Manifest{Name: name, Version: version}}
}

func TestRegisterPlugin(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	if err := e.Register(newMockPlugin("core", "1.0.0")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := e.Register(newMockPlugin("core", "1.0.0")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := e.Register(newMockPlugin("", "1.0.0")); err == nil {
		t.Error("expected missing name to fail")
	}
	if !e.Loaded("core") {
		t.Error("expected core to be loaded")
	}
}

func TestLoadAllSkipsFailures(t *testing.T) {
	var buf bytes.Buffer
	loader := LoaderFunc(func(_ context.Context, entry manifest.Entry) (Plugin, error) {
		if entry.Name == "broken" {
			return nil, errors.New("script 404")
		}
		return newMockPlugin(entry.Name, entry.Version), nil
	})
	e := NewEngine(loader, log.New(&buf, "", 0), nil)
	e.SetConcurrency(2)

	apps := manifest.AppsConfig{
		"b-plugin": {Name: "b-plugin", Version: "0.2.0"},
		"broken":   {Name: "broken"},
		"a-plugin": {Name: "a-plugin", Version: "0.1.0"},
	}
	loaded := e.LoadAll(context.Background(), apps)

	if len(loaded) != 2 || loaded[0] != "a-plugin" || loaded[1] != "b-plugin" {
		t.Fatalf("unexpected loaded set: %v", loaded)
	}
	if e.Loaded("broken") {
		t.Error("broken plugin must not be loaded")
	}
	if !strings.Contains(buf.String(), "failed to load broken") {
		t.Errorf("expected load warning, got %q", buf.String())
	}
}

func TestInitAllStaticFirstAndDropsFailures(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(MapLoader{
		"dyn":    newMockPlugin("dyn", "1.0.0"),
		"failer": &mockPlugin{manifest: Manifest{Name: "failer"}, initErr: errors.New("boom")},
	}, log.New(&buf, "", 0), nil)

	core := newMockPlugin("zz-core", "1.0.0")
	e.Register(core)
	e.LoadAll(context.Background(), manifest.AppsConfig{
		"dyn":    {Name: "dyn"},
		"failer": {Name: "failer"},
	})

	b := registry.NewBuilder()
	e.InitAll(context.Background(), InitContext{Registry: b})

	if atomic.LoadInt32(&core.inits) != 1 {
		t.Errorf("expected static plugin to init once")
	}
	if e.Loaded("failer") {
		t.Error("plugin failing init must be dropped")
	}
	if !strings.Contains(buf.String(), "failed to initialize failer") {
		t.Errorf("expected init warning, got %q", buf.String())
	}

	infos := e.ListAll()
	if len(infos) != 2 || infos[0].Name != "zz-core" || infos[0].Role != RoleStatic || infos[1].Role != RoleDynamic {
		t.Errorf("unexpected listing: %+v", infos)
	}
	if m := e.Manifests(); len(m) != 1 || m[0].Name != "dyn" {
		t.Errorf("expected only dynamic manifests, got %+v", m)
	}
}

func TestChainLoader(t *testing.T) {
	static := MapLoader{"core": newMockPlugin("core", "1.0.0")}
	fallback := LoaderFunc(func(_ context.Context, entry manifest.Entry) (Plugin, error) {
		return newMockPlugin(entry.Name, "remote"), nil
	})

	p, err := ChainLoader{static, fallback}.Load(context.Background(), manifest.Entry{Name: "core"})
	if err != nil || p.Manifest().Version != "1.0.0" {
		t.Fatalf("expected static plugin, got %v %v", p, err)
	}
	p, err = ChainLoader{static, fallback}.Load(context.Background(), manifest.Entry{Name: "x"})
	if err != nil || p.Manifest().Version != "remote" {
		t.Fatalf("expected fallback plugin, got %v %v", p, err)
	}
	if _, err := (ChainLoader{static}).Load(context.Background(), manifest.Entry{Name: "x"}); !errors.Is(err, ErrUnknownPlugin) {
		t.Errorf("expected ErrUnknownPlugin, got %v", err)
	}
}

func TestScriptLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/scalprum/acme/plugin-entry.js":
			w.Write([]byte("/* bundle */"))
		case "/api/scalprum/acme/locales/fr.json":
			w.Write([]byte(`{"title":"Bonjour"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	frontend := registry.DynamicPluginsConfig{Frontend: map[string]registry.FrontendPluginConfig{
		"acme": {TranslationResources: []registry.TranslationResourceEntry{{
			Ref:       "acmeTranslationRef",
			JSONFiles: map[string]string{"fr": "locales/fr.json"},
		}}},
	}}
	l := &ScriptLoader{Client: srv.Client(), BaseURL: srv.URL, Frontend: frontend}

	entry := manifest.Transform(srv.URL)(manifest.Entry{Name: "acme", Version: "1.2.3", LoadScripts: []string{"plugin-entry.js"}})
	p, err := l.Load(context.Background(), entry)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Manifest().Version != "1.2.3" {
		t.Errorf("unexpected manifest: %+v", p.Manifest())
	}

	exports := i18n.PluginExports{"acme": p.Exports()}
	v, ok := exports.Lookup("acme", "PluginRoot", "default")
	if !ok {
		t.Fatal("expected translation resource export")
	}
	msgs, err := v.(*i18n.Resource).Load(context.Background(), "fr")
	if err != nil {
		t.Fatalf("load fr: %v", err)
	}
	if msgs.Messages["title"] != "Bonjour" {
		t.Errorf("unexpected messages: %v", msgs.Messages)
	}
	if ref, ok := exports.Lookup("acme", "PluginRoot", "acmeTranslationRef"); !ok || ref.(i18n.Ref).ID != "acmeTranslationRef" {
		t.Errorf("expected ref export, got %v", ref)
	}

	missing := manifest.Transform(srv.URL)(manifest.Entry{Name: "acme", LoadScripts: []string{"missing.js"}})
	if _, err := l.Load(context.Background(), missing); err == nil {
		t.Error("expected missing script to fail")
	}
	if _, err := l.Load(context.Background(), manifest.Entry{Name: "empty"}); err == nil {
		t.Error("expected entry without scripts to fail")
	}
}

func TestLoadedPluginsHandler(t *testing.T) {
	var engine *Engine
	r := mux.NewRouter()
	NewHandlers(func() *Engine { return engine }).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/dynamic-plugins-info/loaded-plugins", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list while booting, got %d %s", rec.Code, rec.Body.String())
	}

	engine = NewEngine(nil, nil, nil)
	engine.Register(newMockPlugin("core", "1.0.0"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/dynamic-plugins-info/loaded-plugins", nil))

	var infos []PluginInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "core" || infos[0].Platform != "web" {
		t.Errorf("unexpected infos: %+v", infos)
	}
}

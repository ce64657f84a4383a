package overrides

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestService(files, locales []string) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewService(files, locales, log.New(&buf, "", 0)), &buf
}

func serve(t *testing.T, svc *Service) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewHandlers(svc).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/translation", nil))
	return rec
}

func TestIsValidJSONTranslation(t *testing.T) {
	valid := map[string]any{"plugin": map[string]any{"en": map[string]any{"k": "v"}}}
	if !IsValidJSONTranslation(valid) {
		t.Error("expected valid document")
	}
	invalid := []any{
		"string",
		nil,
		map[string]any{"plugin": "en"},
		map[string]any{"plugin": map[string]any{"en": "k"}},
		map[string]any{"plugin": map[string]any{"en": map[string]any{"k": 1.0}}},
	}
	for i, doc := range invalid {
		if IsValidJSONTranslation(doc) {
			t.Errorf("case %d: expected invalid document", i)
		}
	}
}

func TestDeepMergeTranslations(t *testing.T) {
	target := map[string]any{"p": map[string]any{"en": map[string]any{"a": "1", "b": "2"}}}
	source := map[string]any{"p": map[string]any{"en": map[string]any{"b": "3"}, "fr": map[string]any{"a": "un"}}}

	DeepMergeTranslations(target, source)

	en := target["p"].(map[string]any)["en"].(map[string]any)
	if en["a"] != "1" || en["b"] != "3" {
		t.Errorf("unexpected en messages %v", en)
	}
	if _, ok := target["p"].(map[string]any)["fr"]; !ok {
		t.Error("expected fr locale to be added")
	}
}

func TestServeMergedAndFilteredOverrides(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"rhdh": {"en": {"menuItem.home": "Start"}, "ja": {"menuItem.home": "ホーム"}}}`)
	b := writeFile(t, dir, "b.json", `{"rhdh": {"en": {"menuItem.apis": "Interfaces"}}, "search": {"fr": {"title": "Chercher"}}}`)

	svc, _ := newTestService([]string{a, b}, []string{"en", "fr"})
	rec := serve(t, svc)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["rhdh"]["en"]["menuItem.home"] != "Start" || out["rhdh"]["en"]["menuItem.apis"] != "Interfaces" {
		t.Errorf("expected merged en messages, got %v", out["rhdh"]["en"])
	}
	if _, ok := out["rhdh"]["ja"]; ok {
		t.Error("unconfigured locale must be filtered out")
	}
	if out["search"]["fr"]["title"] != "Chercher" {
		t.Errorf("unexpected search overrides %v", out["search"])
	}
}

func TestServeMissingAndInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"rhdh": {"en": {"count": 3}}}`)

	svc, buf := newTestService([]string{filepath.Join(dir, "missing.json"), bad}, nil)
	rec := serve(t, svc)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No valid translation overrides") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	logs := buf.String()
	if !strings.Contains(logs, "file not found") || !strings.Contains(logs, "invalid JSON translation file") {
		t.Errorf("expected both warnings, got %q", logs)
	}
}

func TestServeMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.json", `{"rhdh": `)

	svc, _ := newTestService([]string{broken}, nil)
	if rec := serve(t, svc); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestServeEmptyAfterFilter(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "ja.json", `{"rhdh": {"ja": {"k": "v"}}}`)

	svc, _ := newTestService([]string{f}, []string{"en"})
	rec := serve(t, svc)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Errorf("expected empty object, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCacheAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "en.json", `{"rhdh": {"en": {"k": "one"}}}`)
	svc, _ := newTestService([]string{f}, nil)

	first, err := svc.Overrides()
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	writeFile(t, dir, "en.json", `{"rhdh": {"en": {"k": "two"}}}`)

	cached, _ := svc.Overrides()
	if cached["rhdh"]["en"]["k"] != first["rhdh"]["en"]["k"] {
		t.Error("expected cached value before invalidation")
	}

	svc.Invalidate()
	fresh, _ := svc.Overrides()
	if fresh["rhdh"]["en"]["k"] != "two" {
		t.Errorf("expected reloaded value, got %q", fresh["rhdh"]["en"]["k"])
	}
}

func TestWatcherInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "en.json", `{"rhdh": {"en": {"k": "one"}}}`)
	svc, _ := newTestService([]string{f}, nil)
	if _, err := svc.Overrides(); err != nil {
		t.Fatalf("overrides: %v", err)
	}

	w, err := Watch(svc)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Stop()

	writeFile(t, dir, "en.json", `{"rhdh": {"en": {"k": "two"}}}`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		out, err := svc.Overrides()
		if err == nil && out["rhdh"]["en"]["k"] == "two" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected watcher to drop the cache after the file changed")
}

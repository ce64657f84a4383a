// Package scalprum serves the dynamic plugin discovery endpoint and the
// plugin bundle assets, either from a local dynamic-plugins root directory or
// through a reverse proxy to an upstream backend.
package scalprum

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/darkden-lab/portalhost/internal/manifest"
)

const (
	distDir      = "dist-scalprum"
	manifestFile = "plugin-manifest.json"
)

// ErrNotFound is returned for unknown plugins and files outside a bundle.
var ErrNotFound = errors.New("not found")

type pluginManifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	LoadScripts []string `json:"loadScripts"`
}

// Index lists the plugin bundles installed under a root directory. Each
// bundle lives in <root>/<dir>/dist-scalprum.
type Index struct {
	root   string
	logger *log.Logger

	mu      sync.RWMutex
	apps    manifest.AppsConfig
	bundles map[string]string
}

func NewIndex(root string, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.Default()
	}
	return &Index{root: root, logger: logger, apps: manifest.AppsConfig{}, bundles: map[string]string{}}
}

// Scan rereads every plugin-manifest.json. Unreadable or malformed manifests
// are logged and skipped.
func (i *Index) Scan() error {
	matches, err := filepath.Glob(filepath.Join(i.root, "*", distDir, manifestFile))
	if err != nil {
		return fmt.Errorf("scan %s: %w", i.root, err)
	}

	apps := manifest.AppsConfig{}
	bundles := map[string]string{}
	for _, m := range matches {
		raw, err := os.ReadFile(m)
		if err != nil {
			i.logger.Printf("WARNING: scalprum: failed to read %s: %v", m, err)
			continue
		}
		var pm pluginManifest
		if err := json.Unmarshal(raw, &pm); err != nil {
			i.logger.Printf("WARNING: scalprum: invalid plugin manifest %s: %v", m, err)
			continue
		}
		bundle := filepath.Dir(m)
		if pm.Name == "" {
			pm.Name = filepath.Base(filepath.Dir(bundle))
		}
		if _, dup := apps[pm.Name]; dup {
			i.logger.Printf("WARNING: scalprum: duplicate plugin %s in %s, skipping", pm.Name, m)
			continue
		}
		scripts := pm.LoadScripts
		if scripts == nil {
			scripts = []string{}
		}
		apps[pm.Name] = manifest.Entry{
			Name:             pm.Name,
			Version:          pm.Version,
			LoadScripts:      scripts,
			ManifestLocation: manifestFile,
		}
		bundles[pm.Name] = bundle
	}

	i.mu.Lock()
	i.apps = apps
	i.bundles = bundles
	i.mu.Unlock()
	return nil
}

// Plugins returns a copy of the last scan.
func (i *Index) Plugins() manifest.AppsConfig {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(manifest.AppsConfig, len(i.apps))
	for name, e := range i.apps {
		out[name] = e
	}
	return out
}

// Resolve maps a plugin name and a slash separated file path to a file on
// disk. Paths escaping the bundle directory yield ErrNotFound.
func (i *Index) Resolve(name, file string) (string, error) {
	i.mu.RLock()
	bundle, ok := i.bundles[name]
	i.mu.RUnlock()
	if !ok || file == "" {
		return "", ErrNotFound
	}
	for _, part := range strings.Split(file, "/") {
		if part == ".." {
			return "", ErrNotFound
		}
	}
	clean := path.Clean("/" + file)
	full := filepath.Join(bundle, filepath.FromSlash(clean))
	rel, err := filepath.Rel(bundle, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrNotFound
	}
	return full, nil
}

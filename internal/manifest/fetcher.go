package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/darkden-lab/portalhost/internal/metrics"
)

// PluginsPath is the discovery endpoint relative to the backend base URL.
const PluginsPath = "/api/scalprum/plugins"

// Fetcher retrieves the plugin manifest from the backend.
type Fetcher struct {
	client  *http.Client
	logger  *log.Logger
	metrics *metrics.Collector
}

// NewFetcher creates a Fetcher. A nil client falls back to
// http.DefaultClient and a nil logger to the standard logger.
func NewFetcher(client *http.Client, logger *log.Logger, m *metrics.Collector) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{client: client, logger: logger, metrics: m}
}

// Fetch performs a single GET to {baseURL}/api/scalprum/plugins. Any failure
// is logged and yields an empty manifest so the shell can still render
// without dynamic plugins.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string) AppsConfig {
	apps, err := f.fetch(ctx, baseURL)
	if err != nil {
		f.logger.Printf("WARNING: Failed to fetch scalprum configuration: %v", err)
		f.metrics.ManifestFetched(false)
		return AppsConfig{}
	}
	f.metrics.ManifestFetched(true)
	return apps
}

func (f *Fetcher) fetch(ctx context.Context, baseURL string) (AppsConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+PluginsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var apps AppsConfig
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if apps == nil {
		apps = AppsConfig{}
	}
	for key, e := range apps {
		if e.Name == "" {
			e.Name = key
			apps[key] = e
		}
	}
	return apps, nil
}

package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OverridesPath is the override endpoint relative to the backend base URL.
const OverridesPath = "/api/translation"

// FetchOverrides loads the admin supplied translation overrides. Any failure
// yields empty overrides.
func FetchOverrides(ctx context.Context, client *http.Client, baseURL string) Overrides {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+OverridesPath, nil)
	if err != nil {
		return Overrides{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Overrides{}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Overrides{}
	}

	var out Overrides
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out == nil {
		return Overrides{}
	}
	return out
}

// HTTPLoader fetches a JSON message file ({"key": "message"}) on first use.
// Each Load performs a request; callers cache resolved messages.
type HTTPLoader struct {
	Client *http.Client
	URL    string
	Ref    Ref
}

func (l *HTTPLoader) Load(ctx context.Context) (*Messages, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", l.URL, resp.StatusCode)
	}

	var msgs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.URL, err)
	}
	return NewMessages(l.Ref, msgs, true)
}

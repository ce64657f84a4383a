package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/darkden-lab/portalhost/internal/httputil"
	"github.com/darkden-lab/portalhost/internal/manifest"
	"github.com/darkden-lab/portalhost/internal/plugin"
)

func newPluginsCmd() *cobra.Command {
	var loaded bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the dynamic plugins the server discovers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loaded {
				return runLoadedPlugins(cmd)
			}
			return runPlugins(cmd)
		},
	}
	cmd.Flags().BoolVar(&loaded, "loaded", false, "List the plugins the shell actually loaded")
	return cmd
}

func runPlugins(cmd *cobra.Command) error {
	baseURL := strings.TrimRight(server, "/")
	client := &http.Client{Timeout: 10 * time.Second}
	apps := manifest.NewFetcher(client, nil, nil).Fetch(cmd.Context(), baseURL)
	apps = manifest.Rewrite(baseURL, apps)

	out := cmd.OutOrStdout()
	if len(apps) == 0 {
		fmt.Fprintln(out, "No dynamic plugins found.")
		return nil
	}

	fmt.Fprintf(out, "Dynamic plugins from %s:\n\n", baseURL)
	fmt.Fprintf(out, "  %-40s  %-10s  %s\n", "NAME", "VERSION", "SCRIPTS")
	for _, name := range apps.Names() {
		e := apps[name]
		fmt.Fprintf(out, "  %-40s  %-10s  %s\n", name, e.Version, strings.Join(e.LoadScripts, ","))
	}
	return nil
}

func runLoadedPlugins(cmd *cobra.Command) error {
	baseURL := strings.TrimRight(server, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/api/dynamic-plugins-info/loaded-plugins", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body httputil.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}

	var plugins []plugin.PluginInfo
	if err := json.NewDecoder(resp.Body).Decode(&plugins); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(plugins) == 0 {
		fmt.Fprintln(out, "No plugins loaded yet.")
		return nil
	}
	fmt.Fprintf(out, "  %-40s  %-10s  %s\n", "NAME", "VERSION", "ROLE")
	for _, p := range plugins {
		fmt.Fprintf(out, "  %-40s  %-10s  %s\n", p.Name, p.Version, p.Role)
	}
	return nil
}

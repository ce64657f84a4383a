package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	server  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator CLI for the portal host",
		Long: `portalctl inspects a running portal host: the dynamic plugins it discovers,
the translation overrides it serves and the language a browser would get.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&server, "server", envOr("PORTAL_SERVER", "http://localhost:7007"), "Portal host URL")

	rootCmd.AddCommand(
		newPluginsCmd(),
		newTranslationsCmd(),
		newLanguageCmd(),
		newTokenCmd(),
		newOpenCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the portal in the default browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s ...\n", server)
			if err := browser.OpenURL(server); err != nil {
				return fmt.Errorf("could not open browser: %w (visit %s manually)", err, server)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/darkden-lab/portalhost/internal/i18n/overrides"
)

func newTranslationsCmd() *cobra.Command {
	var (
		files   []string
		locales []string
	)
	cmd := &cobra.Command{
		Use:   "translations",
		Short: "Validate translation override files before deploying them",
		Long: `translations merges the given override files the same way the server does
and prints how many messages each resource and locale ends up with.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslations(cmd, files, locales)
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Override file (repeatable)")
	cmd.Flags().StringSliceVar(&locales, "locale", nil, "Supported locales (default en)")
	cmd.MarkFlagRequired("file") //nolint:errcheck
	return cmd
}

func runTranslations(cmd *cobra.Command, files, locales []string) error {
	svc := overrides.NewService(files, locales, nil)
	all, err := svc.Overrides()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(out, "  %-30s  %-8s  %s\n", "RESOURCE", "LOCALE", "MESSAGES")
	for _, id := range ids {
		byLocale := all[id]
		locs := make([]string, 0, len(byLocale))
		for l := range byLocale {
			locs = append(locs, l)
		}
		sort.Strings(locs)
		for _, l := range locs {
			fmt.Fprintf(out, "  %-30s  %-8s  %d\n", id, l, len(byLocale[l]))
		}
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darkden-lab/portalhost/internal/i18n"
	"github.com/darkden-lab/portalhost/internal/language"
)

func newLanguageCmd() *cobra.Command {
	var (
		locales       []string
		defaultLocale string
		accept        string
	)
	cmd := &cobra.Command{
		Use:   "language",
		Short: "Show the default language a browser would get",
		Example: `  portalctl language --locales en,fr,de --accept "fr-CH, en;q=0.8"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &i18n.Config{Locales: locales, DefaultLocale: defaultLocale}
			lang := language.DefaultLanguage(cfg, language.BrowserFromAcceptLanguage(accept))
			fmt.Fprintln(cmd.OutOrStdout(), lang)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&locales, "locales", nil, "Configured i18n.locales")
	cmd.Flags().StringVar(&defaultLocale, "default-locale", "", "Configured i18n.defaultLocale")
	cmd.Flags().StringVar(&accept, "accept", "", "Accept-Language header of the browser")
	return cmd
}

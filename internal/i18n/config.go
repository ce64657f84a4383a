package i18n

// DefaultLocale is used when no locale list is configured.
const DefaultLocale = "en"

// Config is the `i18n` section of the app config.
type Config struct {
	Locales       []string `json:"locales,omitempty"`
	DefaultLocale string   `json:"defaultLocale,omitempty"`
	Overrides     []string `json:"overrides,omitempty"`
}

// SupportedLocales returns the configured locales or ["en"].
func (c *Config) SupportedLocales() []string {
	if c == nil || len(c.Locales) == 0 {
		return []string{DefaultLocale}
	}
	return c.Locales
}

// Supports reports whether locale is one of the configured locales.
func (c *Config) Supports(locale string) bool {
	for _, l := range c.SupportedLocales() {
		if l == locale {
			return true
		}
	}
	return false
}

package config

// Theme names accepted by ui.theme.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{ThemeAuto, ThemeLight, ThemeDark}

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// Theme is auto, light or dark. auto follows OUTREACH_DARK_MODE and
	// falls back to light.
	Theme string `yaml:"theme" json:"theme,omitempty"`
}

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach/internal/api"
	"outreach/internal/config"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("OUTREACH_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark, "OUTREACH_DARK_MODE=1")

	t.Setenv("OUTREACH_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark, "unset")

	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark, "dark terminal background")

	t.Setenv("OUTREACH_DARK_MODE", "0")
	assert.False(t, DetectTheme().IsDark, "explicit light wins over COLORFGBG")
}

func TestThemeFor(t *testing.T) {
	t.Setenv("OUTREACH_DARK_MODE", "")
	t.Setenv("COLORFGBG", "")

	assert.True(t, ThemeFor(config.ThemeDark).IsDark)
	assert.False(t, ThemeFor(config.ThemeLight).IsDark)
	assert.False(t, ThemeFor(config.ThemeAuto).IsDark)
	assert.False(t, ThemeFor("").IsDark)
}

func TestStatusStyles(t *testing.T) {
	s := NewStyles(LightTheme())
	assert.Equal(t, s.Success.GetForeground(), s.Status(api.StatusDone).GetForeground())
	assert.Equal(t, s.Error.GetForeground(), s.Status(api.StatusFailed).GetForeground())
	assert.Equal(t, s.Info.GetForeground(), s.Status(api.StatusRunning).GetForeground())
	assert.Equal(t, s.Warning.GetForeground(), s.Status(api.StatusPending).GetForeground())
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "Failed to create task.", FailureText(OpCreate))
	assert.Equal(t, "Failed to save influencers.", FailureText(OpSave))
	assert.Equal(t, "Request failed.", FailureText("unknown"))
}

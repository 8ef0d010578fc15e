package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders draft bodies. A renderer that failed to build falls back
// to the raw text.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdown creates a renderer wrapping at width for the given theme.
func NewMarkdown(theme Theme, width int) *Markdown {
	if width < 20 {
		width = 20
	}
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	return &Markdown{renderer: r, width: width, dark: theme.IsDark}
}

// Resize rebuilds the renderer when the wrap width or theme changed.
func (m *Markdown) Resize(theme Theme, width int) *Markdown {
	if m != nil && m.width == width && m.dark == theme.IsDark {
		return m
	}
	return NewMarkdown(theme, width)
}

// Render returns md rendered for the terminal.
func (m *Markdown) Render(md string) string {
	if m == nil || m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

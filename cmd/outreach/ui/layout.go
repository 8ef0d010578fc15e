// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for page sizing
const (
	// Chrome around every page
	HeaderHeight    = 1
	TabBarHeight    = 2
	StatusBarHeight = 1
	HelpHeight      = 1

	// Page padding (see Styles.Content)
	ContentPaddingH = 4
	ContentPaddingV = 2

	// Rows a page reserves above its table for inputs and status lines
	FormHeight = 6

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 16
	CompactModeWidth      = 100

	// Table columns
	NameColumnWidth     = 28
	PlatformColumnWidth = 10
	FollowerColumnWidth = 10
	HostColumnWidth     = 24
	DedupColumnWidth    = 20
	EmailColumnWidth    = 28
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	if width < MinimumTerminalWidth {
		width = MinimumTerminalWidth
	}
	if height < MinimumTerminalHeight {
		height = MinimumTerminalHeight
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// PageWidth returns the width available to a page body.
func (l LayoutConfig) PageWidth() int {
	return l.TerminalWidth - ContentPaddingH
}

// PageHeight returns the height available to a page body below the chrome.
func (l LayoutConfig) PageHeight() int {
	return l.TerminalHeight - HeaderHeight - TabBarHeight - StatusBarHeight - HelpHeight - ContentPaddingV
}

// TableHeight returns the rows left for a table under a page form.
func TableHeight(pageHeight int) int {
	if h := pageHeight - FormHeight; h > 3 {
		return h
	}
	return 3
}

package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/idna"
)

// Placeholder is shown for absent values.
const Placeholder = "-"

// ProfileHost returns the host of a profile URL for display, decoding
// punycode labels. Unparseable URLs return Placeholder.
func ProfileHost(profileURL string) string {
	u, err := url.Parse(strings.TrimSpace(profileURL))
	if err != nil || u.Hostname() == "" {
		return Placeholder
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if uni, err := idna.Display.ToUnicode(host); err == nil {
		return uni
	}
	return host
}

// Followers formats an optional follower count compactly: 950, 12.5K, 1.2M.
func Followers(n *int) string {
	if n == nil {
		return Placeholder
	}
	v := *n
	switch {
	case v >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(v)/1_000_000)) + "M"
	case v >= 10_000:
		return trimZero(fmt.Sprintf("%.1f", float64(v)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", v)
	}
}

func trimZero(s string) string { return strings.TrimSuffix(s, ".0") }

// Deref returns *s or Placeholder.
func Deref(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}

// ShortID returns the first block of a UUID.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Timestamp formats t in local time, or Placeholder for the zero time.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Truncate shortens s to width cells, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// Checkbox renders a selection cell. Rows that cannot be selected show
// Placeholder.
func Checkbox(selectable, checked bool) string {
	switch {
	case !selectable:
		return Placeholder
	case checked:
		return "[x]"
	default:
		return "[ ]"
	}
}

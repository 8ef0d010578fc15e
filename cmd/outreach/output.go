package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"outreach/cmd/outreach/ui"
	"outreach/internal/api"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// cliStyles returns styles for the configured theme. lipgloss drops colors
// when stdout is not a terminal.
func cliStyles() ui.Styles {
	theme := ""
	if cfg != nil {
		theme = cfg.UI.Theme
	}
	return ui.NewStyles(ui.ThemeFor(theme))
}

func printTable(t *ui.SimpleTable, empty string) {
	fmt.Print(t.View(cliStyles(), empty))
}

func resultsTable(results []api.SearchResult) *ui.SimpleTable {
	t := ui.NewSimpleTable("", "Raw result", "Name", "Platform", "Followers", "Host", "Dedup", "Email")
	t.MaxCellWidth = 40
	for _, r := range results {
		t.AddRow(r.RawResultID, r.DisplayName, r.Platform, ui.Followers(r.FollowerCount),
			ui.ProfileHost(r.ProfileURL), r.DedupStatus, ui.Deref(r.Email))
	}
	return t
}

func printEvent(w io.Writer, e api.CampaignEvent) {
	fmt.Fprintf(w, "%s  %-12s  message %s\n", ui.Timestamp(e.OccurredAt), e.EventType, e.MessageID)
}

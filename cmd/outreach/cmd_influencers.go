// Package main implements influencer directory CLI commands for outreach.
// This file handles listing saved influencers and saving search results.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"outreach/cmd/outreach/ui"
	"outreach/internal/api"
)

// =============================================================================
// INFLUENCER COMMANDS
// =============================================================================

var (
	influencersLimit  int
	influencersOffset int
	influencersJSON   bool
)

// influencersCmd groups influencer commands
var influencersCmd = &cobra.Command{
	Use:   "influencers",
	Short: "List and save influencers",
	Long: `List and save influencers.

Subcommands:
  list  - List saved influencers
  save  - Save unique results of a finished search task`,
}

// influencersListCmd lists saved influencers
var influencersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved influencers",
	Args:  cobra.NoArgs,
	RunE:  runInfluencersList,
}

// influencersSaveCmd saves selected results
var influencersSaveCmd = &cobra.Command{
	Use:   "save <task-id> <raw-result-id>...",
	Short: "Save search results as influencers",
	Long: `Saves the given raw result ids of a search task as influencers. The server
skips results that are not unique or were saved before.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInfluencersSave,
}

func runInfluencersList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	limit := influencersLimit
	if limit == 0 {
		limit = cfg.Influencers.ListLimit
	}
	items, err := client.ListInfluencers(ctx, api.ListOptions{Limit: limit, Offset: influencersOffset})
	if err != nil {
		return fmt.Errorf("failed to list influencers: %w", err)
	}
	if influencersJSON {
		return printJSON(items)
	}

	t := ui.NewSimpleTable("", "ID", "Name", "Platform", "Followers", "Email", "Saved by")
	t.MaxCellWidth = 40
	for _, inf := range items {
		t.AddRow(inf.ID, inf.DisplayName, inf.Platform, ui.Followers(inf.FollowerCount), ui.Deref(inf.Email), inf.SavedBy)
	}
	printTable(t, "No influencers saved yet.")
	return nil
}

func runInfluencersSave(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	req := api.SaveInfluencersRequest{TaskID: args[0], SelectedResultIDs: dedupe(args[1:])}
	resp, err := client.SaveInfluencers(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to save influencers: %w", err)
	}
	logger.Info("influencers saved",
		zap.String("task_id", req.TaskID),
		zap.Int("saved", resp.SavedCount),
		zap.Int("skipped", resp.SkippedCount))

	if influencersJSON {
		return printJSON(resp)
	}
	fmt.Printf("Saved %d, skipped %d.\n", resp.SavedCount, resp.SkippedCount)
	return nil
}

// dedupe drops repeated values, keeping first occurrences in order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func init() {
	influencersListCmd.Flags().IntVar(&influencersLimit, "limit", 0, "Page size (default from config)")
	influencersListCmd.Flags().IntVar(&influencersOffset, "offset", 0, "Rows to skip")
	influencersListCmd.Flags().BoolVar(&influencersJSON, "json", false, "Print JSON")
	influencersSaveCmd.Flags().BoolVar(&influencersJSON, "json", false, "Print JSON")

	influencersCmd.AddCommand(influencersListCmd)
	influencersCmd.AddCommand(influencersSaveCmd)
}

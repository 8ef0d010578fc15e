// Package main implements search task CLI commands for outreach.
// This file handles creating, following and inspecting search tasks.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"outreach/cmd/outreach/ui"
	"outreach/internal/api"
	"outreach/internal/logging"
	"outreach/internal/search"
)

// =============================================================================
// SEARCH COMMANDS
// =============================================================================

var (
	searchPlatforms   []string
	searchRegion      string
	searchFollowerMin int
	searchFollowerMax int
	searchSaveUnique  bool
	searchJSON        bool
	searchLimit       int
	searchOffset      int
)

// searchCmd groups search task commands
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Create and inspect influencer search tasks",
	Long: `Create and inspect influencer search tasks.

Subcommands:
  run      - Create a task and follow it until results are in
  list     - List past tasks
  status   - Show the status of one or more tasks
  results  - Show the deduplicated results of a finished task`,
}

// searchRunCmd creates a task and follows it
var searchRunCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Create a search task and wait for its results",
	Long: `Creates a search task, polls it until it is done or failed, and prints
the deduplicated results. With --save-unique every unique result is saved as
an influencer.

Example:
  outreach search run "US tech youtubers 10k+" --region US --follower-min 10000 --save-unique`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchRun,
}

// searchListCmd lists past tasks
var searchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past search tasks",
	Args:  cobra.NoArgs,
	RunE:  runSearchList,
}

// searchStatusCmd shows task snapshots
var searchStatusCmd = &cobra.Command{
	Use:   "status <task-id>...",
	Short: "Show the status of search tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchStatus,
}

// searchResultsCmd shows task results
var searchResultsCmd = &cobra.Command{
	Use:   "results <task-id>",
	Short: "Show the results of a finished search task",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchResults,
}

// searchRunOutput is the --json shape of search run.
type searchRunOutput struct {
	Task    api.SearchTask               `json:"task"`
	Results []api.SearchResult           `json:"results"`
	Saved   *api.SaveInfluencersResponse `json:"saved,omitempty"`
}

func runSearchRun(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	tracker := search.NewTracker(ctx, client, search.Options{
		PollInterval:   cfg.GetTaskPollInterval(),
		RequestTimeout: cfg.GetAPITimeout(),
		Platforms:      cfg.Search.Platforms,
		Logger:         logging.Get(logging.CategorySearch),
	})
	defer tracker.Close()

	var opts []search.TaskOption
	if len(searchPlatforms) > 0 {
		opts = append(opts, search.WithPlatforms(searchPlatforms...))
	}
	if searchRegion != "" {
		opts = append(opts, search.WithRegion(searchRegion))
	}
	if cmd.Flags().Changed("follower-min") {
		opts = append(opts, search.WithFollowerMin(searchFollowerMin))
	}
	if cmd.Flags().Changed("follower-max") {
		opts = append(opts, search.WithFollowerMax(searchFollowerMax))
	}

	query := strings.Join(args, " ")
	start, err := tracker.StartTask(query, opts...)
	if err != nil {
		return err
	}
	logger.Info("search task requested", zap.String("query", query))

	final, err := runHeadless(ctx, &searchRun{
		tracker:    tracker,
		start:      start,
		saveUnique: searchSaveUnique,
		progress:   os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("search run aborted: %w", err)
	}
	if run := final.(*searchRun); run.err != nil {
		return run.err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted while following task %s", tracker.TaskID())
	}

	task, _ := tracker.Task()
	out := searchRunOutput{Task: task, Results: tracker.Results()}
	if saved, ok := tracker.Outcome(); ok {
		out.Saved = &saved
	}
	if searchJSON {
		return printJSON(out)
	}

	fmt.Printf("Task %s: %s, %d results (%d unique)\n", task.TaskID, task.Status, len(out.Results), len(tracker.UniqueIDs()))
	printTable(resultsTable(out.Results), "No results.")
	switch {
	case out.Saved != nil:
		fmt.Printf("Saved %d, skipped %d.\n", out.Saved.SavedCount, out.Saved.SkippedCount)
	case searchSaveUnique:
		fmt.Println("No unique results to save.")
	}
	return nil
}

func runSearchList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	limit := searchLimit
	if limit == 0 {
		limit = cfg.Search.HistoryLimit
	}
	items, err := client.ListSearchTasks(ctx, api.ListOptions{Limit: limit, Offset: searchOffset})
	if err != nil {
		return fmt.Errorf("failed to list search tasks: %w", err)
	}
	if searchJSON {
		return printJSON(items)
	}

	t := ui.NewSimpleTable("", "Created", "Status", "Results", "Task", "Query")
	t.MaxCellWidth = 48
	for _, it := range items {
		t.AddRow(ui.Timestamp(it.CreatedAt), string(it.Status), fmt.Sprintf("%d", it.ResultCount), it.TaskID, it.QueryRaw)
	}
	printTable(t, "No search tasks found.")
	return nil
}

func runSearchStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	for _, id := range args {
		if err := api.ValidateID("task_id", id); err != nil {
			return err
		}
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	tasks := make([]api.SearchTask, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range args {
		g.Go(func() error {
			task, err := client.GetSearchTask(gctx, id)
			if err != nil {
				return fmt.Errorf("task %s: %w", id, err)
			}
			tasks[i] = task
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if searchJSON {
		return printJSON(tasks)
	}

	t := ui.NewSimpleTable("", "Task", "Status", "Results", "Updated")
	for _, task := range tasks {
		t.AddRow(task.TaskID, string(task.Status), fmt.Sprintf("%d", task.ResultCount), ui.Timestamp(task.UpdatedAt))
	}
	printTable(t, "")
	return nil
}

func runSearchResults(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	id := args[0]
	if err := api.ValidateID("task_id", id); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	// Both requests always complete so a not-yet-done task is reported as
	// such rather than as a results failure.
	var (
		g       errgroup.Group
		task    api.SearchTask
		results []api.SearchResult
	)
	g.Go(func() error {
		var err error
		task, err = client.GetSearchTask(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = client.GetSearchResults(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		if task.Status != "" && task.Status != api.StatusDone {
			return fmt.Errorf("task %s is %s; results are available once it is done", id, task.Status)
		}
		return fmt.Errorf("failed to load results: %w", err)
	}
	if searchJSON {
		return printJSON(searchRunOutput{Task: task, Results: results})
	}

	unique := 0
	for _, r := range results {
		if r.IsUnique() {
			unique++
		}
	}
	fmt.Printf("Task %s: %s, %d results (%d unique)\n", task.TaskID, task.Status, len(results), unique)
	printTable(resultsTable(results), "No results.")
	return nil
}

func init() {
	searchRunCmd.Flags().StringSliceVar(&searchPlatforms, "platform", nil, "Platform to search (repeatable; default from config)")
	searchRunCmd.Flags().StringVar(&searchRegion, "region", "", "Region code, e.g. US")
	searchRunCmd.Flags().IntVar(&searchFollowerMin, "follower-min", 0, "Minimum follower count")
	searchRunCmd.Flags().IntVar(&searchFollowerMax, "follower-max", 0, "Maximum follower count")
	searchRunCmd.Flags().BoolVar(&searchSaveUnique, "save-unique", false, "Save every unique result as an influencer")

	searchListCmd.Flags().IntVar(&searchLimit, "limit", 0, "Page size (default from config)")
	searchListCmd.Flags().IntVar(&searchOffset, "offset", 0, "Rows to skip")
	for _, c := range []*cobra.Command{searchRunCmd, searchListCmd, searchStatusCmd, searchResultsCmd} {
		c.Flags().BoolVar(&searchJSON, "json", false, "Print JSON")
	}

	searchCmd.AddCommand(searchRunCmd)
	searchCmd.AddCommand(searchListCmd)
	searchCmd.AddCommand(searchStatusCmd)
	searchCmd.AddCommand(searchResultsCmd)
}

package main

// Scripting commands drive the same Bubble Tea components as the dashboard,
// only without a renderer or keyboard input.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"outreach/internal/api"
	"outreach/internal/campaign"
	"outreach/internal/search"
)

// runHeadless runs model until it quits or ctx is cancelled. Cancellation is
// not an error.
func runHeadless(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	final, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return final, nil
	}
	return final, err
}

// =============================================================================
// SEARCH RUN
// =============================================================================

// maxRejectedPolls is how many status polls in a row the server may reject
// with a client error before search run gives up.
const maxRejectedPolls = 3

// searchRun follows one task from creation to results, optionally saving
// every unique result.
type searchRun struct {
	tracker    *search.Tracker
	start      tea.Cmd
	saveUnique bool
	progress   io.Writer

	lastStatus api.TaskStatus
	pollErrors int64
	rejected   int
	saveIssued bool
	err        error
}

// rejectedPoll reports whether err is a client error that retrying will not
// fix. Timeouts and rate limits are retried.
func rejectedPoll(err error) bool {
	code := api.StatusCode(err)
	if code < 400 || code >= 500 {
		return false
	}
	return code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
}

func (m *searchRun) Init() tea.Cmd { return m.start }

func (m *searchRun) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	t := m.tracker
	cmd := t.Update(msg)

	if !t.Creating() && t.TaskID() == "" {
		m.err = fmt.Errorf("failed to create search task: %w", t.Err(search.OpCreate))
		return m, tea.Quit
	}

	task, ok := t.Task()
	if ok && task.Status != m.lastStatus {
		m.lastStatus = task.Status
		fmt.Fprintf(m.progress, "task %s %s\n", task.TaskID, task.Status)
	}
	pollErr := t.Err(search.OpPoll)
	if n := t.Stats().PollErrors; n != m.pollErrors {
		m.pollErrors = n
		if rejectedPoll(pollErr) {
			m.rejected++
		} else {
			m.rejected = 0
		}
		if m.rejected >= maxRejectedPolls {
			m.err = fmt.Errorf("giving up on task %s after %d rejected polls: %w", t.TaskID(), m.rejected, pollErr)
			return m, tea.Quit
		}
		logger.Warn("status poll failed, retrying", zap.Error(pollErr))
	} else if pollErr == nil {
		m.rejected = 0
	}

	switch {
	case ok && task.Status == api.StatusFailed:
		m.err = fmt.Errorf("search task %s failed", task.TaskID)
		return m, tea.Quit
	case t.Err(search.OpResults) != nil:
		m.err = fmt.Errorf("failed to load results: %w", t.Err(search.OpResults))
		return m, tea.Quit
	case !t.ResultsLoaded():
		return m, cmd
	case !m.saveUnique:
		return m, tea.Quit
	}

	if !m.saveIssued {
		m.saveIssued = true
		t.SelectAllUnique()
		if t.SelectedCount() == 0 {
			return m, tea.Quit
		}
		save, err := t.Save()
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, tea.Batch(cmd, save)
	}
	if t.Saving() {
		return m, cmd
	}
	if err := t.Err(search.OpSave); err != nil {
		m.err = fmt.Errorf("failed to save influencers: %w", err)
	}
	return m, tea.Quit
}

func (m *searchRun) View() string { return "" }

// =============================================================================
// EVENTS FOLLOW
// =============================================================================

// eventsFollow prints campaign events as the feed discovers them.
type eventsFollow struct {
	feed  *campaign.Feed
	start tea.Cmd
	out   io.Writer
	print func(io.Writer, api.CampaignEvent)

	seen    map[string]bool
	lastErr error
	printed int
}

func (m *eventsFollow) Init() tea.Cmd { return m.start }

func (m *eventsFollow) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.feed.Update(msg)

	if err := m.feed.Err(); err != nil && err != m.lastErr {
		logger.Warn("fetching campaign events failed, retrying", zap.Error(err))
	}
	m.lastErr = m.feed.Err()

	for _, e := range m.feed.Events() {
		if m.seen[e.EventID] {
			continue
		}
		m.seen[e.EventID] = true
		m.print(m.out, e)
		m.printed++
	}
	return m, cmd
}

func (m *eventsFollow) View() string { return "" }

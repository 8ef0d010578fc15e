package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"outreach/internal/api"
	"outreach/internal/search"
)

// ResultsPageModel lists the deduplicated results of the tracked task and
// edits the selection.
type ResultsPageModel struct {
	width  int
	height int
	table  table.Model

	tracker *search.Tracker
	rows    []api.SearchResult

	styles Styles
}

// NewResultsPageModel creates the results page.
func NewResultsPageModel(tracker *search.Tracker, styles Styles) ResultsPageModel {
	t := table.New(
		table.WithColumns(resultColumns(false)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	m := ResultsPageModel{table: t, tracker: tracker}
	m.SetStyles(styles)
	return m
}

func resultColumns(compact bool) []table.Column {
	cols := []table.Column{
		{Title: "Sel", Width: 3},
		{Title: "Name", Width: NameColumnWidth},
		{Title: "Platform", Width: PlatformColumnWidth},
		{Title: "Followers", Width: FollowerColumnWidth},
		{Title: "Host", Width: HostColumnWidth},
		{Title: "Dedup", Width: DedupColumnWidth},
	}
	if !compact {
		cols = append(cols, table.Column{Title: "Email", Width: EmailColumnWidth})
	}
	return cols
}

// Init initializes the model.
func (m ResultsPageModel) Init() tea.Cmd { return nil }

// Update handles messages.
func (m ResultsPageModel) Update(msg tea.Msg) (ResultsPageModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case " ", "x":
			r, ok := m.SelectedResult()
			if !ok || !r.IsUnique() {
				return m, nil
			}
			return m, emit(ToggleResultMsg{
				RawResultID: r.RawResultID,
				Checked:     !m.tracker.IsSelected(r.RawResultID),
			})
		case "a":
			return m, emit(SelectAllMsg{})
		case "c":
			return m, emit(ClearSelectionMsg{})
		case "s":
			return m, emit(SaveSelectionMsg{})
		case "r":
			return m, emit(RefreshResultsMsg{})
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Sync rebuilds the rows from the tracker, keeping the cursor in range.
func (m *ResultsPageModel) Sync() {
	m.rows = m.tracker.Results()
	compact := len(m.table.Columns()) < 7
	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		row := table.Row{
			Checkbox(r.IsUnique(), m.tracker.IsSelected(r.RawResultID)),
			r.DisplayName,
			r.Platform,
			Followers(r.FollowerCount),
			ProfileHost(r.ProfileURL),
			r.DedupStatus,
		}
		if !compact {
			row = append(row, Deref(r.Email))
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// SelectedResult returns the result under the cursor.
func (m ResultsPageModel) SelectedResult() (api.SearchResult, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.rows) {
		return api.SearchResult{}, false
	}
	return m.rows[c], true
}

// View renders the page.
func (m ResultsPageModel) View() string {
	t := m.tracker
	var sb strings.Builder

	if t.TaskID() == "" {
		return m.styles.Muted.Render("No task selected. Start or open a search first.")
	}

	task, _ := t.Task()
	sb.WriteString(m.styles.Bold.Render("Task "+ShortID(t.TaskID())) + "  ")
	sb.WriteString(m.styles.Status(task.Status).Render(string(task.Status)))
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("  %d results  %d unique  %d selected",
		len(m.rows), len(t.UniqueIDs()), t.SelectedCount())))
	sb.WriteString("\n")
	sb.WriteString(m.statusLine() + "\n\n")

	switch {
	case !t.ResultsLoaded() && t.LoadingResults():
		sb.WriteString(m.styles.Muted.Render("Loading results…"))
	case !t.ResultsLoaded():
		sb.WriteString(m.styles.Muted.Render("Results appear when the task is done."))
	case len(m.rows) == 0:
		sb.WriteString(m.styles.Muted.Render("The task finished without results."))
	default:
		sb.WriteString(m.table.View())
	}
	return sb.String()
}

func (m ResultsPageModel) statusLine() string {
	t := m.tracker
	switch {
	case t.Saving():
		return m.styles.Info.Render("Saving selection…")
	case t.Err(search.OpSave) != nil:
		err := t.Err(search.OpSave)
		if api.IsValidation(err) {
			return m.styles.Warning.Render(err.Error())
		}
		return m.styles.Error.Render(FailureText(OpSave)) + " " + m.styles.Muted.Render(err.Error())
	case t.Err(search.OpResults) != nil:
		return m.styles.Error.Render(FailureText(OpResults)) + m.styles.Muted.Render(" press r to retry")
	}
	if out, ok := t.Outcome(); ok {
		return m.styles.Success.Render(fmt.Sprintf("Saved %d, skipped %d.", out.SavedCount, out.SkippedCount))
	}
	return m.styles.Muted.Render("space toggle  a select unique  c clear  s save  r refresh")
}

// SetSize updates the page dimensions.
func (m *ResultsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// rows must never be wider than the columns
	m.table.SetRows(nil)
	m.table.SetColumns(resultColumns(w < CompactModeWidth))
	m.table.SetWidth(w)
	m.table.SetHeight(TableHeight(h))
	m.Sync()
}

// SetStyles applies a theme.
func (m *ResultsPageModel) SetStyles(styles Styles) {
	m.styles = styles
	m.table.SetStyles(tableStyles(styles))
}

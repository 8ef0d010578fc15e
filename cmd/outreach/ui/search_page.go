package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"outreach/internal/api"
	"outreach/internal/search"
)

// Focus targets of the search page, in tab order.
const (
	searchFocusQuery = iota
	searchFocusPlatforms
	searchFocusRegion
	searchFocusHistory
	searchFocusCount
)

// SearchPageModel starts search tasks and lists past ones.
type SearchPageModel struct {
	width  int
	height int

	query     textinput.Model
	platforms textinput.Model
	region    textinput.Model
	history   table.Model
	focus     int

	tracker *search.Tracker
	past    *search.History
	rows    []api.SearchTaskListItem

	styles Styles
}

// NewSearchPageModel creates the search page over the given components.
func NewSearchPageModel(tracker *search.Tracker, past *search.History, platforms []string, styles Styles) SearchPageModel {
	q := textinput.New()
	q.Placeholder = "US tech youtubers 10k+"
	q.Prompt = ""
	q.CharLimit = 200
	q.Width = 50
	q.Focus()

	p := textinput.New()
	p.Placeholder = "youtube"
	p.Prompt = ""
	p.CharLimit = 100
	p.Width = 30
	p.SetValue(strings.Join(platforms, ","))

	r := textinput.New()
	r.Placeholder = "any"
	r.Prompt = ""
	r.CharLimit = 10
	r.Width = 10

	t := table.New(
		table.WithColumns(historyColumns()),
		table.WithHeight(10),
	)

	m := SearchPageModel{
		query:     q,
		platforms: p,
		region:    r,
		history:   t,
		tracker:   tracker,
		past:      past,
		styles:    styles,
	}
	m.SetStyles(styles)
	return m
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Created", Width: 19},
		{Title: "Query", Width: 36},
		{Title: "Status", Width: 8},
		{Title: "Results", Width: 7},
		{Title: "Task", Width: 8},
	}
}

// Init initializes the model.
func (m SearchPageModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m SearchPageModel) Update(msg tea.Msg) (SearchPageModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			return m, m.setFocus((m.focus + 1) % searchFocusCount)
		case "shift+tab":
			return m, m.setFocus((m.focus + searchFocusCount - 1) % searchFocusCount)
		case "enter":
			if m.focus == searchFocusHistory {
				if id := m.SelectedTaskID(); id != "" {
					return m, emit(OpenTaskMsg{TaskID: id})
				}
				return m, nil
			}
			return m, emit(StartSearchMsg{
				Query:     m.query.Value(),
				Platforms: splitList(m.platforms.Value()),
				Region:    strings.TrimSpace(m.region.Value()),
			})
		case "r":
			if m.focus == searchFocusHistory {
				return m, emit(ReloadHistoryMsg{})
			}
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case searchFocusQuery:
		m.query, cmd = m.query.Update(msg)
	case searchFocusPlatforms:
		m.platforms, cmd = m.platforms.Update(msg)
	case searchFocusRegion:
		m.region, cmd = m.region.Update(msg)
	case searchFocusHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m *SearchPageModel) setFocus(target int) tea.Cmd {
	m.focus = target
	m.query.Blur()
	m.platforms.Blur()
	m.region.Blur()
	m.history.Blur()
	switch target {
	case searchFocusQuery:
		return m.query.Focus()
	case searchFocusPlatforms:
		return m.platforms.Focus()
	case searchFocusRegion:
		return m.region.Focus()
	default:
		m.history.Focus()
		return nil
	}
}

// Typing reports whether a text input has focus, so global single-key
// bindings must not fire.
func (m SearchPageModel) Typing() bool { return m.focus != searchFocusHistory }

// Sync rebuilds the history table from the loader.
func (m *SearchPageModel) Sync() {
	m.rows = m.past.Items()
	rows := make([]table.Row, 0, len(m.rows))
	for _, it := range m.rows {
		rows = append(rows, table.Row{
			Timestamp(it.CreatedAt),
			it.QueryRaw,
			string(it.Status),
			fmt.Sprintf("%d", it.ResultCount),
			ShortID(it.TaskID),
		})
	}
	m.history.SetRows(rows)
	if c := m.history.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.history.SetCursor(len(rows) - 1)
	}
}

// SelectedTaskID returns the task under the history cursor.
func (m SearchPageModel) SelectedTaskID() string {
	c := m.history.Cursor()
	if c < 0 || c >= len(m.rows) {
		return ""
	}
	return m.rows[c].TaskID
}

// View renders the page.
func (m SearchPageModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Label.Render("Query") + m.query.View() + "\n")
	sb.WriteString(m.styles.Label.Render("Platforms") + m.platforms.View() + "\n")
	sb.WriteString(m.styles.Label.Render("Region") + m.region.View() + "\n\n")
	sb.WriteString(m.taskLine() + "\n\n")

	sb.WriteString(m.styles.Bold.Render("History"))
	switch {
	case m.past.Loading():
		sb.WriteString(m.styles.Muted.Render("  loading…"))
	case m.past.Err() != nil:
		sb.WriteString("  " + m.styles.Error.Render(FailureText(OpHistory)))
	}
	sb.WriteString("\n")
	if len(m.rows) == 0 {
		sb.WriteString(m.styles.Muted.Render("No search tasks yet."))
	} else {
		sb.WriteString(m.history.View())
	}
	return sb.String()
}

func (m SearchPageModel) taskLine() string {
	t := m.tracker
	if t.Creating() {
		return m.styles.Info.Render("Creating task…")
	}
	if err := t.Err(search.OpCreate); err != nil {
		return m.styles.Error.Render(FailureText(OpCreate)) + " " + m.styles.Muted.Render(err.Error())
	}
	task, ok := t.Task()
	if t.TaskID() == "" {
		return m.styles.Muted.Render("Enter a query and press enter to start a search.")
	}
	status := m.styles.Muted.Render("waiting for status")
	if ok {
		status = m.styles.Status(task.Status).Render(string(task.Status))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Label.Render("Task"), ShortID(t.TaskID()), "  ", status)
	if ok {
		line += m.styles.Muted.Render(fmt.Sprintf("  %d results", task.ResultCount))
	}
	if t.Polling() {
		line += m.styles.Muted.Render("  polling")
	}
	if t.Err(search.OpPoll) != nil {
		line += "  " + m.styles.Warning.Render(FailureText(OpPoll))
	}
	return line
}

// SetSize updates the page dimensions.
func (m *SearchPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.query.Width = min(50, w-14)
	m.history.SetWidth(w)
	m.history.SetHeight(TableHeight(h - 3))
}

// SetStyles applies a theme.
func (m *SearchPageModel) SetStyles(styles Styles) {
	m.styles = styles
	m.history.SetStyles(tableStyles(styles))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tableStyles(s Styles) table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(s.Theme.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Background(s.Theme.Accent).
		Bold(false)
	return ts
}

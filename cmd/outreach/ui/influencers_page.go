package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"outreach/internal/api"
)

// InfluencersPageModel lists saved influencers and picks recipients for a
// draft.
type InfluencersPageModel struct {
	width  int
	height int
	table  table.Model

	items   []api.Influencer
	picked  map[string]bool
	loading bool
	err     error

	styles Styles
}

// NewInfluencersPageModel creates the influencer directory page.
func NewInfluencersPageModel(styles Styles) InfluencersPageModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pick", Width: 4},
			{Title: "Name", Width: NameColumnWidth},
			{Title: "Platform", Width: PlatformColumnWidth},
			{Title: "Followers", Width: FollowerColumnWidth},
			{Title: "Email", Width: EmailColumnWidth},
			{Title: "Saved by", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	m := InfluencersPageModel{table: t, picked: make(map[string]bool)}
	m.SetStyles(styles)
	return m
}

// Init initializes the model.
func (m InfluencersPageModel) Init() tea.Cmd { return nil }

// Update handles messages.
func (m InfluencersPageModel) Update(msg tea.Msg) (InfluencersPageModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case " ", "x":
			if c := m.table.Cursor(); c >= 0 && c < len(m.items) {
				id := m.items[c].ID
				if m.picked[id] {
					delete(m.picked, id)
				} else {
					m.picked[id] = true
				}
				m.syncRows()
			}
			return m, nil
		case "d":
			ids := m.Picked()
			if len(ids) == 0 {
				return m, nil
			}
			return m, emit(ComposeDraftMsg{InfluencerIDs: ids})
		case "r":
			return m, emit(ReloadInfluencersMsg{})
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// SetInfluencers replaces the listing. A failed reload keeps the previous
// rows. Picks of influencers no longer listed are dropped.
func (m *InfluencersPageModel) SetInfluencers(items []api.Influencer, err error) {
	m.loading = false
	m.err = err
	if err != nil {
		return
	}
	m.items = items
	listed := make(map[string]bool, len(items))
	for _, inf := range items {
		listed[inf.ID] = true
	}
	for id := range m.picked {
		if !listed[id] {
			delete(m.picked, id)
		}
	}
	m.syncRows()
}

// SetLoading marks a reload in flight.
func (m *InfluencersPageModel) SetLoading() { m.loading = true }

// Picked returns the picked ids in listing order.
func (m InfluencersPageModel) Picked() []string {
	var ids []string
	for _, inf := range m.items {
		if m.picked[inf.ID] {
			ids = append(ids, inf.ID)
		}
	}
	return ids
}

func (m *InfluencersPageModel) syncRows() {
	rows := make([]table.Row, 0, len(m.items))
	for _, inf := range m.items {
		rows = append(rows, table.Row{
			Checkbox(true, m.picked[inf.ID]),
			inf.DisplayName,
			inf.Platform,
			Followers(inf.FollowerCount),
			Deref(inf.Email),
			inf.SavedBy,
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// View renders the page.
func (m InfluencersPageModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("Saved influencers"))
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("  %d listed  %d picked", len(m.items), len(m.picked))))
	switch {
	case m.loading:
		sb.WriteString(m.styles.Muted.Render("  loading…"))
	case m.err != nil:
		sb.WriteString("  " + m.styles.Error.Render(FailureText(OpInfluencers)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("space pick  d draft for picked  r reload") + "\n\n")

	if len(m.items) == 0 {
		sb.WriteString(m.styles.Muted.Render("No influencers saved yet."))
		return sb.String()
	}
	sb.WriteString(m.table.View())
	return sb.String()
}

// SetSize updates the page dimensions.
func (m *InfluencersPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetWidth(w)
	m.table.SetHeight(TableHeight(h))
}

// SetStyles applies a theme.
func (m *InfluencersPageModel) SetStyles(styles Styles) {
	m.styles = styles
	m.table.SetStyles(tableStyles(styles))
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"outreach/internal/campaign"
)

// EventsPageModel follows the delivery events of one campaign.
type EventsPageModel struct {
	width  int
	height int

	input    textinput.Model
	typing   bool
	viewport viewport.Model
	feed     *campaign.Feed

	styles Styles
}

// NewEventsPageModel creates the events page over the feed.
func NewEventsPageModel(feed *campaign.Feed, styles Styles) EventsPageModel {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "campaign id"
	in.CharLimit = 64
	in.Width = 40

	vp := viewport.New(80, 12)
	vp.SetContent("")
	return EventsPageModel{input: in, viewport: vp, feed: feed, styles: styles}
}

// Init initializes the model.
func (m EventsPageModel) Init() tea.Cmd { return nil }

// Update handles messages.
func (m EventsPageModel) Update(msg tea.Msg) (EventsPageModel, tea.Cmd) {
	var cmd tea.Cmd
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.typing {
			switch key.String() {
			case "enter":
				m.typing = false
				m.input.Blur()
				return m, emit(WatchCampaignMsg{CampaignID: strings.TrimSpace(m.input.Value())})
			case "esc":
				m.typing = false
				m.input.Blur()
				return m, nil
			}
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		if key.String() == "/" {
			m.typing = true
			return m, m.input.Focus()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Typing reports whether the campaign id input has focus.
func (m EventsPageModel) Typing() bool { return m.typing }

// SetCampaignID fills the input, typically after a send.
func (m *EventsPageModel) SetCampaignID(id string) { m.input.SetValue(id) }

// Sync renders the feed into the viewport, following the tail when the view
// was already at the bottom.
func (m *EventsPageModel) Sync() {
	atBottom := m.viewport.AtBottom()
	events := m.feed.Events()
	if len(events) == 0 {
		m.viewport.SetContent(m.styles.Muted.Render("No events yet."))
		return
	}

	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(m.styles.Muted.Render(Timestamp(e.OccurredAt)))
		sb.WriteString("  ")
		sb.WriteString(m.eventStyle(e.EventType).Render(fmt.Sprintf("%-10s", e.EventType)))
		sb.WriteString("  ")
		sb.WriteString(m.styles.Body.Render("message " + ShortID(e.MessageID)))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(strings.TrimSuffix(sb.String(), "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m EventsPageModel) eventStyle(eventType string) lipgloss.Style {
	switch eventType {
	case "delivered", "opened", "clicked", "replied":
		return m.styles.Success
	case "bounced", "failed", "complained", "dropped":
		return m.styles.Error
	case "sent", "queued":
		return m.styles.Info
	default:
		return m.styles.Body
	}
}

// View renders the page.
func (m EventsPageModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Label.Render("Campaign") + m.input.View())
	if id := m.feed.CampaignID(); id != "" {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("  following %s, %d events", ShortID(id), len(m.feed.Events()))))
	}
	sb.WriteString("\n")
	switch {
	case m.feed.CampaignID() == "":
		sb.WriteString(m.styles.Muted.Render("Press / to enter a campaign id."))
	case m.feed.Err() != nil:
		sb.WriteString(m.styles.Error.Render(FailureText(OpEvents)) + m.styles.Muted.Render(" retrying"))
	case !m.feed.Fetched():
		sb.WriteString(m.styles.Muted.Render("Loading events…"))
	default:
		sb.WriteString(m.styles.Muted.Render("/ change campaign  pgup/pgdown scroll"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	return sb.String()
}

// SetSize updates the page dimensions.
func (m *EventsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = max(3, h-3)
	m.Sync()
}

// SetStyles applies a theme.
func (m *EventsPageModel) SetStyles(styles Styles) {
	m.styles = styles
	m.Sync()
}

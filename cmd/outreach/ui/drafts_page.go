package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"outreach/internal/api"
	"outreach/internal/campaign"
)

const (
	draftFocusGoal = iota
	draftFocusInfluencers
	draftFocusRate
	draftFocusCount
)

// DraftsPageModel edits the draft form, previews the generated email and
// sends it.
type DraftsPageModel struct {
	width  int
	height int

	goal        textinput.Model
	influencers textinput.Model
	rate        textinput.Model
	focus       int
	tone        string
	language    string

	preview  viewport.Model
	markdown *Markdown
	composer *campaign.Composer

	styles Styles
}

// NewDraftsPageModel creates the drafts page seeded from the composer.
func NewDraftsPageModel(composer *campaign.Composer, styles Styles) DraftsPageModel {
	g := textinput.New()
	g.Prompt = ""
	g.CharLimit = 500
	g.Width = 60
	g.SetValue(composer.Goal())
	g.Focus()

	inf := textinput.New()
	inf.Prompt = ""
	inf.Placeholder = "influencer ids, comma separated"
	inf.Width = 60
	inf.SetValue(strings.Join(composer.InfluencerIDs(), ","))

	r := textinput.New()
	r.Prompt = ""
	r.CharLimit = 6
	r.Width = 6
	r.SetValue(strconv.Itoa(composer.RateLimit()))

	vp := viewport.New(80, 12)
	vp.SetContent("")

	return DraftsPageModel{
		goal:        g,
		influencers: inf,
		rate:        r,
		tone:        composer.Tone(),
		language:    composer.Language(),
		preview:     vp,
		markdown:    NewMarkdown(styles.Theme, 80),
		composer:    composer,
		styles:      styles,
	}
}

// Init initializes the model.
func (m DraftsPageModel) Init() tea.Cmd { return nil }

// Update handles messages.
func (m DraftsPageModel) Update(msg tea.Msg) (DraftsPageModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			return m, m.setFocus((m.focus + 1) % draftFocusCount)
		case "shift+tab":
			return m, m.setFocus((m.focus + draftFocusCount - 1) % draftFocusCount)
		case "ctrl+t":
			m.tone = cycle(campaign.Tones, m.tone)
			return m, nil
		case "ctrl+l":
			m.language = cycle(campaign.Languages, m.language)
			return m, nil
		case "ctrl+g":
			return m, emit(GenerateDraftMsg{
				Goal:        m.goal.Value(),
				Tone:        m.tone,
				Language:    m.language,
				Influencers: m.influencers.Value(),
			})
		case "ctrl+s":
			return m, emit(SendCampaignMsg{RateLimit: m.rate.Value()})
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case draftFocusGoal:
		m.goal, cmd = m.goal.Update(msg)
	case draftFocusInfluencers:
		m.influencers, cmd = m.influencers.Update(msg)
	case draftFocusRate:
		m.rate, cmd = m.rate.Update(msg)
	}
	return m, cmd
}

func (m *DraftsPageModel) setFocus(target int) tea.Cmd {
	m.focus = target
	m.goal.Blur()
	m.influencers.Blur()
	m.rate.Blur()
	switch target {
	case draftFocusInfluencers:
		return m.influencers.Focus()
	case draftFocusRate:
		return m.rate.Focus()
	default:
		return m.goal.Focus()
	}
}

func cycle(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

// SetInfluencerIDs fills the recipient input.
func (m *DraftsPageModel) SetInfluencerIDs(ids []string) {
	m.influencers.SetValue(strings.Join(ids, ","))
}

// Sync renders the composer preview into the viewport.
func (m *DraftsPageModel) Sync() {
	subject, body := m.composer.Preview()
	if subject == "" && body == "" {
		m.preview.SetContent(m.styles.Muted.Render("Press ctrl+g to generate a draft."))
		return
	}
	m.preview.SetContent(m.markdown.Render("# " + subject + "\n\n" + body))
}

// View renders the page.
func (m DraftsPageModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Label.Render("Goal") + m.goal.View() + "\n")
	sb.WriteString(m.styles.Label.Render("Influencers") + m.influencers.View() + "\n")
	sb.WriteString(m.styles.Label.Render("Tone") + m.styles.Badge.Render(m.tone) + "  ")
	sb.WriteString(m.styles.Muted.Render("Language ") + m.styles.Badge.Render(m.language) + "  ")
	sb.WriteString(m.styles.Muted.Render("Rate/min ") + m.rate.View() + "\n")
	sb.WriteString(m.statusLine() + "\n")
	sb.WriteString(m.styles.RenderDivider(m.width) + "\n")
	sb.WriteString(m.preview.View())
	return sb.String()
}

func (m DraftsPageModel) statusLine() string {
	c := m.composer
	switch {
	case c.Generating():
		return m.styles.Info.Render("Generating draft…")
	case c.Sending():
		return m.styles.Info.Render("Sending campaign…")
	case c.Err(campaign.OpGenerate) != nil:
		return m.failure(OpGenerate, c.Err(campaign.OpGenerate))
	case c.Err(campaign.OpSend) != nil:
		return m.failure(OpSend, c.Err(campaign.OpSend))
	}
	if sent, ok := c.Campaign(); ok {
		return m.styles.Success.Render(fmt.Sprintf("Campaign %s queued, %d accepted.", ShortID(sent.CampaignID), sent.AcceptedCount)) +
			m.styles.Muted.Render(" Events follow on the Events tab.")
	}
	if d, ok := c.Draft(); ok {
		return m.styles.Muted.Render("Draft " + ShortID(d.ID) + " ready. ctrl+s sends it.")
	}
	return m.styles.Muted.Render("tab next field  ctrl+t tone  ctrl+l language  ctrl+g generate  ctrl+s send")
}

func (m DraftsPageModel) failure(op FailureOp, err error) string {
	if api.IsValidation(err) {
		return m.styles.Warning.Render(err.Error())
	}
	return m.styles.Error.Render(FailureText(op)) + " " + m.styles.Muted.Render(err.Error())
}

// SetSize updates the page dimensions.
func (m *DraftsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.goal.Width = max(20, w-14)
	m.influencers.Width = max(20, w-14)
	m.preview.Width = w
	m.preview.Height = max(3, h-FormHeight)
	m.markdown = m.markdown.Resize(m.styles.Theme, w)
	m.Sync()
}

// SetStyles applies a theme.
func (m *DraftsPageModel) SetStyles(styles Styles) {
	m.styles = styles
	m.markdown = m.markdown.Resize(styles.Theme, max(20, m.width))
	m.Sync()
}

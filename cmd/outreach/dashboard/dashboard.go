// Package dashboard implements the interactive outreach console.
//
// The dashboard owns the core components (search tracker, task history,
// draft composer, event feed). Pages only read them and emit intent
// messages; every mutation happens here, on the Bubble Tea event loop.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"outreach/cmd/outreach/ui"
	"outreach/internal/api"
	"outreach/internal/campaign"
	"outreach/internal/config"
	"outreach/internal/logging"
	"outreach/internal/search"
)

// Backend is everything the dashboard asks of the API. *api.Client
// satisfies it.
type Backend interface {
	search.Backend
	search.HistoryBackend
	campaign.ComposerBackend
	campaign.FeedBackend
	Health(ctx context.Context) (api.Health, error)
	ListInfluencers(ctx context.Context, opts api.ListOptions) ([]api.Influencer, error)
	BaseURL() string
}

// Options configures a dashboard.
type Options struct {
	Client Backend
	Config *config.Config
	// ConfigPath is watched for changes when set.
	ConfigPath string
}

// Tabs, in display order.
const (
	TabSearch = iota
	TabResults
	TabInfluencers
	TabDrafts
	TabEvents
	tabCount
)

var tabNames = [tabCount]string{"Search", "Results", "Influencers", "Drafts", "Events"}

// =============================================================================
// MESSAGES
// =============================================================================

type bootMsg struct {
	seq         uint64
	health      api.Health
	healthErr   error
	influencers []api.Influencer
	listErr     error
}

type influencersLoadedMsg struct {
	seq   uint64
	items []api.Influencer
	err   error
}

type configReloadedMsg struct{ reload config.Reload }

// =============================================================================
// MODEL
// =============================================================================

// Model is the top-level Bubble Tea model.
type Model struct {
	ctx     context.Context
	backend Backend
	cfg     *config.Config
	log     *zap.Logger

	tracker  *search.Tracker
	history  *search.History
	composer *campaign.Composer
	feed     *campaign.Feed

	searchPage      ui.SearchPageModel
	resultsPage     ui.ResultsPageModel
	influencersPage ui.InfluencersPageModel
	draftsPage      ui.DraftsPageModel
	eventsPage      ui.EventsPageModel

	tab      int
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	layout   ui.LayoutConfig
	styles   ui.Styles
	ready    bool
	quitting bool

	flash      string
	flashError bool

	health    string
	healthErr error

	influencerSeq  uint64
	reloads        <-chan config.Reload
	lastTaskID     string
	lastCampaignID string
	wasSaving      bool
}

// New builds a dashboard over opts. A nil config means defaults.
func New(ctx context.Context, opts Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	timeout := cfg.GetAPITimeout()
	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))

	tracker := search.NewTracker(ctx, opts.Client, search.Options{
		PollInterval:   cfg.GetTaskPollInterval(),
		RequestTimeout: timeout,
		Platforms:      cfg.Search.Platforms,
		Logger:         logging.Get(logging.CategorySearch),
	})
	history := search.NewHistory(opts.Client, timeout, logging.Get(logging.CategorySearch))
	composer := campaign.NewComposer(ctx, opts.Client, campaign.ComposerOptions{
		Goal:           cfg.Drafts.Goal,
		Tone:           cfg.Drafts.Tone,
		Language:       cfg.Drafts.Language,
		SendRateLimit:  cfg.Campaign.SendRateLimit,
		RequestTimeout: timeout,
		Logger:         logging.Get(logging.CategoryCampaign),
	})
	feed := campaign.NewFeed(ctx, opts.Client, campaign.FeedOptions{
		Interval:       cfg.GetEventsPollInterval(),
		RequestTimeout: timeout,
		Logger:         logging.Get(logging.CategoryCampaign),
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := &Model{
		ctx:      ctx,
		backend:  opts.Client,
		cfg:      cfg,
		log:      logging.Get(logging.CategoryUI),
		tracker:  tracker,
		history:  history,
		composer: composer,
		feed:     feed,

		searchPage:      ui.NewSearchPageModel(tracker, history, cfg.Search.Platforms, styles),
		resultsPage:     ui.NewResultsPageModel(tracker, styles),
		influencersPage: ui.NewInfluencersPageModel(styles),
		draftsPage:      ui.NewDraftsPageModel(composer, styles),
		eventsPage:      ui.NewEventsPageModel(feed, styles),

		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		layout:  ui.NewLayoutConfig(ui.MinimumTerminalWidth, ui.MinimumTerminalHeight),
		styles:  styles,
	}
	m.influencersPage.SetLoading()
	m.syncPages()
	return m
}

// Run starts the dashboard and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Client == nil {
		return errors.New("dashboard: no API client")
	}
	m := New(ctx, opts)
	defer m.Close()

	if opts.ConfigPath != "" {
		w, err := config.Watch(opts.ConfigPath, logging.Get(logging.CategoryConfig))
		if err != nil {
			logging.BootWarn("config watch disabled", zap.String("path", opts.ConfigPath), zap.Error(err))
		} else {
			defer w.Close()
			m.reloads = w.Updates()
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Close cancels everything in flight.
func (m *Model) Close() {
	m.tracker.Close()
	m.history.Close()
	m.composer.Close()
	m.feed.Close()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.searchPage.Init(),
		m.boot(),
		m.history.Load(m.ctx, api.ListOptions{Limit: m.cfg.Search.HistoryLimit}),
		m.waitForReload(),
	)
}

// boot checks the API and loads the influencer directory concurrently.
func (m *Model) boot() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	timeout := m.cfg.GetAPITimeout()
	limit := m.cfg.Influencers.ListLimit
	m.influencerSeq++
	seq := m.influencerSeq
	return func() tea.Msg {
		msg := bootMsg{seq: seq}
		var g errgroup.Group
		g.Go(func() error {
			hctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			msg.health, msg.healthErr = backend.Health(hctx)
			return nil
		})
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			msg.influencers, msg.listErr = backend.ListInfluencers(lctx, api.ListOptions{Limit: limit})
			return nil
		})
		_ = g.Wait()
		return msg
	}
}

func (m *Model) loadInfluencers() tea.Cmd {
	m.influencerSeq++
	seq := m.influencerSeq
	ctx, backend := m.ctx, m.backend
	timeout := m.cfg.GetAPITimeout()
	limit := m.cfg.Influencers.ListLimit
	m.influencersPage.SetLoading()
	return func() tea.Msg {
		lctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		items, err := backend.ListInfluencers(lctx, api.ListOptions{Limit: limit})
		return influencersLoadedMsg{seq: seq, items: items, err: err}
	}
}

func (m *Model) waitForReload() tea.Cmd {
	ch := m.reloads
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return configReloadedMsg{reload: r}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootMsg:
		m.health, m.healthErr = msg.health.Status, msg.healthErr
		if msg.healthErr != nil {
			m.log.Warn("health check failed", zap.Error(msg.healthErr))
		}
		if msg.seq == m.influencerSeq {
			m.influencersPage.SetInfluencers(msg.influencers, msg.listErr)
		}
		return m, nil

	case influencersLoadedMsg:
		if msg.seq != m.influencerSeq {
			return m, nil
		}
		m.influencersPage.SetInfluencers(msg.items, msg.err)
		return m, nil

	case configReloadedMsg:
		m.applyReload(msg.reload)
		return m, m.waitForReload()
	}

	if cmd, ok := m.handleIntent(msg); ok {
		m.syncPages()
		return m, cmd
	}
	return m, m.dispatch(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.QuitKey) && !m.typing():
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.layout.TerminalWidth, m.layout.TerminalHeight)
		return m, nil
	}

	m.flash = ""
	var cmd tea.Cmd
	switch m.tab {
	case TabSearch:
		m.searchPage, cmd = m.searchPage.Update(msg)
	case TabResults:
		m.resultsPage, cmd = m.resultsPage.Update(msg)
	case TabInfluencers:
		m.influencersPage, cmd = m.influencersPage.Update(msg)
	case TabDrafts:
		m.draftsPage, cmd = m.draftsPage.Update(msg)
	case TabEvents:
		m.eventsPage, cmd = m.eventsPage.Update(msg)
	}
	return m, cmd
}

// typing reports whether the active page is capturing text.
func (m *Model) typing() bool {
	switch m.tab {
	case TabSearch:
		return m.searchPage.Typing()
	case TabDrafts:
		return true
	case TabEvents:
		return m.eventsPage.Typing()
	}
	return false
}

// handleIntent applies a page intent to the core components.
func (m *Model) handleIntent(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case ui.StartSearchMsg:
		cmd, err := m.tracker.StartTask(msg.Query,
			search.WithPlatforms(msg.Platforms...),
			search.WithRegion(msg.Region))
		if err != nil {
			m.setFlash(err, ui.OpCreate)
			return nil, true
		}
		return cmd, true

	case ui.OpenTaskMsg:
		cmd, err := m.tracker.Open(msg.TaskID)
		if err != nil {
			m.setFlash(err, ui.OpPoll)
			return nil, true
		}
		m.tab = TabResults
		return cmd, true

	case ui.ReloadHistoryMsg:
		return m.history.Load(m.ctx, api.ListOptions{Limit: m.cfg.Search.HistoryLimit}), true

	case ui.ToggleResultMsg:
		m.tracker.Toggle(msg.RawResultID, msg.Checked)
		return nil, true

	case ui.SelectAllMsg:
		m.tracker.SelectAllUnique()
		return nil, true

	case ui.ClearSelectionMsg:
		m.tracker.ClearSelection()
		return nil, true

	case ui.SaveSelectionMsg:
		cmd, err := m.tracker.Save()
		if err != nil {
			m.setFlash(err, ui.OpSave)
			return nil, true
		}
		m.wasSaving = m.tracker.Saving()
		return cmd, true

	case ui.RefreshResultsMsg:
		cmd, err := m.tracker.RefreshResults()
		if err != nil {
			m.setFlash(err, ui.OpResults)
			return nil, true
		}
		return cmd, true

	case ui.ReloadInfluencersMsg:
		return m.loadInfluencers(), true

	case ui.ComposeDraftMsg:
		m.draftsPage.SetInfluencerIDs(msg.InfluencerIDs)
		m.tab = TabDrafts
		return nil, true

	case ui.GenerateDraftMsg:
		return m.generate(msg), true

	case ui.SendCampaignMsg:
		return m.send(msg), true

	case ui.WatchCampaignMsg:
		cmd, err := m.feed.Watch(msg.CampaignID)
		if err != nil {
			m.setFlash(err, ui.OpEvents)
			return nil, true
		}
		m.lastCampaignID = m.feed.CampaignID()
		m.tab = TabEvents
		return cmd, true
	}
	return nil, false
}

func (m *Model) generate(msg ui.GenerateDraftMsg) tea.Cmd {
	m.composer.SetGoal(msg.Goal)
	for _, err := range []error{
		m.composer.SetTone(msg.Tone),
		m.composer.SetLanguage(msg.Language),
		m.composer.SetInfluencers(msg.Influencers),
	} {
		if err != nil {
			m.setFlash(err, ui.OpGenerate)
			return nil
		}
	}
	cmd, err := m.composer.Generate()
	if err != nil {
		m.setFlash(err, ui.OpGenerate)
		return nil
	}
	return cmd
}

func (m *Model) send(msg ui.SendCampaignMsg) tea.Cmd {
	if raw := strings.TrimSpace(msg.RateLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			m.setFlash(api.Validation("send_rate_limit", "must be a whole number"), ui.OpSend)
			return nil
		}
		if err := m.composer.SetRateLimit(n); err != nil {
			m.setFlash(err, ui.OpSend)
			return nil
		}
	}
	cmd, err := m.composer.Send()
	if err != nil {
		m.setFlash(err, ui.OpSend)
		return nil
	}
	return cmd
}

// dispatch hands a component message to every core component, then runs
// the follow-ups their new state calls for.
func (m *Model) dispatch(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, m.tracker.Update(msg))
	m.history.Update(msg)
	m.composer.Update(msg)
	cmds = append(cmds, m.feed.Update(msg))

	// A new task shows up in history once created.
	if id := m.tracker.TaskID(); id != "" && id != m.lastTaskID {
		m.lastTaskID = id
		cmds = append(cmds, m.history.Load(m.ctx, api.ListOptions{Limit: m.cfg.Search.HistoryLimit}))
	}

	// Saved influencers appear in the directory.
	saving := m.tracker.Saving()
	if m.wasSaving && !saving && m.tracker.Err(search.OpSave) == nil {
		cmds = append(cmds, m.loadInfluencers())
	}
	m.wasSaving = saving

	// A sent campaign is followed right away.
	if resp, ok := m.composer.Campaign(); ok && resp.CampaignID != m.lastCampaignID {
		m.lastCampaignID = resp.CampaignID
		cmd, err := m.feed.Watch(resp.CampaignID)
		if err != nil {
			m.setFlash(err, ui.OpEvents)
		} else {
			m.eventsPage.SetCampaignID(resp.CampaignID)
			m.setInfo(fmt.Sprintf("Campaign %s queued, %d accepted.", ui.ShortID(resp.CampaignID), resp.AcceptedCount))
			cmds = append(cmds, cmd)
		}
	}

	m.syncPages()
	return tea.Batch(cmds...)
}

func (m *Model) applyReload(r config.Reload) {
	if r.Err != nil {
		m.log.Warn("config reload rejected", zap.Error(r.Err))
		m.setFlash(fmt.Errorf("config reload: %w", r.Err), "")
		return
	}
	if r.Config == nil {
		return
	}
	m.cfg = r.Config
	if err := logging.Reload(r.Config.Logging); err != nil {
		m.log.Warn("logging reload failed", zap.Error(err))
	}
	m.setStyles(ui.NewStyles(ui.ThemeFor(r.Config.UI.Theme)))
	m.setInfo("Configuration reloaded.")
	m.log.Info("config reloaded", zap.String("theme", r.Config.UI.Theme))
}

func (m *Model) setFlash(err error, op ui.FailureOp) {
	m.flashError = true
	switch {
	case errors.Is(err, search.ErrBusy), errors.Is(err, campaign.ErrBusy):
		m.flash = "Still working on the previous request."
	case api.IsValidation(err), op == "":
		m.flash = err.Error()
	default:
		m.flash = ui.FailureText(op)
	}
	m.log.Debug("intent rejected", zap.String("op", string(op)), zap.Error(err))
}

func (m *Model) setInfo(s string) {
	m.flash = s
	m.flashError = false
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(w, h int) {
	m.ready = true
	m.layout = ui.NewLayoutConfig(w, h)
	m.help.Width = m.layout.TerminalWidth
	pw, ph := m.layout.PageWidth(), m.layout.PageHeight()
	m.searchPage.SetSize(pw, ph)
	m.resultsPage.SetSize(pw, ph)
	m.influencersPage.SetSize(pw, ph)
	m.draftsPage.SetSize(pw, ph)
	m.eventsPage.SetSize(pw, ph)
	m.syncPages()
}

func (m *Model) setStyles(styles ui.Styles) {
	m.styles = styles
	m.spinner.Style = styles.Spinner
	m.searchPage.SetStyles(styles)
	m.resultsPage.SetStyles(styles)
	m.influencersPage.SetStyles(styles)
	m.draftsPage.SetStyles(styles)
	m.eventsPage.SetStyles(styles)
	m.syncPages()
}

func (m *Model) syncPages() {
	m.searchPage.Sync()
	m.resultsPage.Sync()
	m.draftsPage.Sync()
	m.eventsPage.Sync()
}

func (m *Model) busy() bool {
	return m.tracker.Creating() || m.tracker.Polling() || m.tracker.LoadingResults() ||
		m.tracker.Saving() || m.history.Loading() || m.composer.Generating() ||
		m.composer.Sending() || m.feed.Fetching()
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading…"
	}

	var page string
	switch m.tab {
	case TabSearch:
		page = m.searchPage.View()
	case TabResults:
		page = m.resultsPage.View()
	case TabInfluencers:
		page = m.influencersPage.View()
	case TabDrafts:
		page = m.draftsPage.View()
	case TabEvents:
		page = m.eventsPage.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.tabsView(),
		m.styles.Content.Render(page),
		m.statusView(),
		m.styles.Footer.Render(m.help.View(m.keys)),
	)
}

func (m *Model) headerView() string {
	health := m.styles.Muted.Render("checking…")
	switch {
	case m.healthErr != nil:
		health = m.styles.Error.Render(ui.FailureText(ui.OpHealth))
	case m.health != "":
		health = m.styles.Success.Render(m.health)
	}
	title := m.styles.Header.Render("outreach")
	return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", m.styles.Muted.Render(m.backend.BaseURL()), " ", health)
}

func (m *Model) tabsView() string {
	tabs := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if i == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(name))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(name))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return row + "\n" + m.styles.RenderDivider(m.layout.TerminalWidth)
}

func (m *Model) statusView() string {
	var parts []string
	if m.busy() {
		parts = append(parts, m.spinner.View())
	}
	switch {
	case m.flash == "":
	case m.flashError:
		parts = append(parts, m.styles.Error.Render(m.flash))
	default:
		parts = append(parts, m.styles.Info.Render(m.flash))
	}
	if n := m.tracker.SelectedCount(); n > 0 {
		parts = append(parts, m.styles.Badge.Render(fmt.Sprintf("%d selected", n)))
	}
	return m.styles.Footer.Render(strings.Join(parts, " "))
}

// Tab returns the active tab.
func (m *Model) Tab() int { return m.tab }

// Flash returns the status bar message.
func (m *Model) Flash() string { return m.flash }

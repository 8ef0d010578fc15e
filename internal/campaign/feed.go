package campaign

import (
	"context"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"outreach/internal/api"
	"outreach/internal/poll"
)

// DefaultEventsInterval is the delay between two event fetches.
const DefaultEventsInterval = 4 * time.Second

// FeedBackend lists campaign events.
type FeedBackend interface {
	GetCampaignEvents(ctx context.Context, campaignID string) ([]api.CampaignEvent, error)
}

// FeedOptions tunes the feed.
type FeedOptions struct {
	// Interval between fetches. Default: 4s.
	Interval       time.Duration
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func (o *FeedOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultEventsInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = api.DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// FeedStats are point-in-time feed counters.
type FeedStats struct {
	Fetches      int64 `json:"fetches"`
	Errors       int64 `json:"errors"`
	StaleDropped int64 `json:"stale_dropped"`
}

type feedTickMsg struct {
	sub *poll.Subscription
}

type eventsFetchedMsg struct {
	sub    *poll.Subscription
	events []api.CampaignEvent
	err    error
}

// Feed keeps the events of one campaign fresh while it is watched.
type Feed struct {
	backend FeedBackend
	opts    FeedOptions
	log     *zap.Logger
	binder  *poll.Binder

	fetching bool
	fetched  bool
	events   []api.CampaignEvent
	err      error
	stats    FeedStats
}

// NewFeed creates an idle feed.
func NewFeed(ctx context.Context, backend FeedBackend, opts FeedOptions) *Feed {
	opts.defaults()
	return &Feed{
		backend: backend,
		opts:    opts,
		log:     opts.Logger,
		binder:  poll.NewBinder(ctx),
	}
}

// Watch binds the feed to a campaign and fetches immediately. Watching the
// current campaign again does nothing.
func (f *Feed) Watch(campaignID string) (tea.Cmd, error) {
	campaignID = strings.TrimSpace(campaignID)
	if err := api.ValidateID("campaign_id", campaignID); err != nil {
		return nil, err
	}
	if campaignID == f.binder.CurrentID() {
		return nil, nil
	}
	sub := f.binder.Bind(campaignID)
	f.events = nil
	f.fetched = false
	f.err = nil
	f.log.Debug("watching campaign", zap.String("campaign_id", campaignID))
	return f.fetch(sub), nil
}

// Stop releases the current campaign. Pending fetches are cancelled.
func (f *Feed) Stop() {
	f.binder.Release()
	f.fetching = false
}

// Close is Stop.
func (f *Feed) Close() { f.Stop() }

// Update applies feed messages and ignores everything else.
func (f *Feed) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case feedTickMsg:
		if !f.binder.IsCurrent(msg.sub) {
			f.stats.StaleDropped++
			return nil
		}
		if f.fetching {
			return nil
		}
		return f.fetch(msg.sub)

	case eventsFetchedMsg:
		if !f.binder.IsCurrent(msg.sub) {
			f.stats.StaleDropped++
			return nil
		}
		f.fetching = false
		if msg.err != nil {
			f.err = msg.err
			f.stats.Errors++
			f.log.Warn("fetching campaign events failed", zap.String("campaign_id", msg.sub.ID()), zap.Error(msg.err))
		} else {
			f.err = nil
			f.fetched = true
			f.events = sortEvents(msg.events)
		}
		return msg.sub.Tick(f.opts.Interval, func(s *poll.Subscription) tea.Msg {
			return feedTickMsg{sub: s}
		})
	}
	return nil
}

func (f *Feed) fetch(sub *poll.Subscription) tea.Cmd {
	f.fetching = true
	f.stats.Fetches++
	backend := f.backend
	timeout := f.opts.RequestTimeout

	return func() tea.Msg {
		ctx, cancel := sub.RequestContext(timeout)
		defer cancel()
		events, err := backend.GetCampaignEvents(ctx, sub.ID())
		return eventsFetchedMsg{sub: sub, events: events, err: err}
	}
}

// sortEvents orders events by occurrence, keeping server order for ties.
func sortEvents(events []api.CampaignEvent) []api.CampaignEvent {
	out := append([]api.CampaignEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}

// CampaignID returns the watched campaign, or "".
func (f *Feed) CampaignID() string { return f.binder.CurrentID() }

// Events returns the latest events ordered by occurred_at.
func (f *Feed) Events() []api.CampaignEvent { return f.events }

// Fetched reports whether at least one fetch succeeded for this campaign.
func (f *Feed) Fetched() bool { return f.fetched }

// Fetching reports whether a fetch is in flight.
func (f *Feed) Fetching() bool { return f.fetching }

// Err returns the error of the last fetch, or nil.
func (f *Feed) Err() error { return f.err }

// Stats returns the feed counters.
func (f *Feed) Stats() FeedStats { return f.stats }

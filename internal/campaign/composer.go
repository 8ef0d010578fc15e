// Package campaign composes outreach drafts, sends them, and follows the
// resulting delivery events.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"outreach/internal/api"
)

const (
	DefaultGoal          = "Invite influencer for product collaboration"
	DefaultSendRateLimit = 60
)

// Tones and languages the draft generator understands.
var (
	Tones     = []string{"professional", "friendly", "casual"}
	Languages = []string{"en", "zh"}
)

// ErrBusy is returned when an operation of the same kind is still in flight.
var ErrBusy = errors.New("campaign: operation already in progress")

// Op names a composer operation for error reporting.
type Op string

const (
	OpGenerate Op = "generate"
	OpSend     Op = "send"
)

// ComposerBackend is the subset of the API client the composer drives.
type ComposerBackend interface {
	GenerateDraft(ctx context.Context, req api.GenerateDraftRequest) (api.EmailDraft, error)
	SendCampaign(ctx context.Context, req api.SendCampaignRequest) (api.SendCampaignResponse, error)
}

// ComposerOptions seeds the composer inputs.
type ComposerOptions struct {
	Goal           string
	Tone           string
	Language       string
	SendRateLimit  int
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func (o *ComposerOptions) defaults() {
	if strings.TrimSpace(o.Goal) == "" {
		o.Goal = DefaultGoal
	}
	if !contains(Tones, o.Tone) {
		o.Tone = api.DefaultTone
	}
	if !contains(Languages, o.Language) {
		o.Language = api.DefaultLanguage
	}
	if o.SendRateLimit < 1 {
		o.SendRateLimit = DefaultSendRateLimit
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = api.DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type draftGeneratedMsg struct {
	seq   uint64
	draft api.EmailDraft
	err   error
}

type campaignSentMsg struct {
	seq  uint64
	resp api.SendCampaignResponse
	err  error
}

// Composer holds the draft form and drives generate and send. Like the
// search tracker it is mutated only from the Bubble Tea event loop.
type Composer struct {
	backend ComposerBackend
	timeout time.Duration
	log     *zap.Logger
	ctx     context.Context

	goal        string
	tone        string
	language    string
	influencers []string
	rateLimit   int

	genSeq     uint64
	generating bool
	genCancel  context.CancelFunc
	draft      *api.EmailDraft
	subject    string
	body       string

	sendSeq  uint64
	sending  bool
	campaign *api.SendCampaignResponse

	errs map[Op]error
}

// NewComposer creates a composer seeded from opts.
func NewComposer(ctx context.Context, backend ComposerBackend, opts ComposerOptions) *Composer {
	opts.defaults()
	if ctx == nil {
		ctx = context.Background()
	}
	return &Composer{
		backend:   backend,
		timeout:   opts.RequestTimeout,
		log:       opts.Logger,
		ctx:       ctx,
		goal:      opts.Goal,
		tone:      opts.Tone,
		language:  opts.Language,
		rateLimit: opts.SendRateLimit,
		errs:      make(map[Op]error),
	}
}

// ParseInfluencerIDs splits a comma separated list, drops blanks and
// repeats, and checks that every id is a UUID.
func ParseInfluencerIDs(raw string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		if err := api.ValidateID("influencer_ids", id); err != nil {
			return nil, err
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// =============================================================================
// INPUTS
// =============================================================================

// SetGoal sets the outreach goal.
func (c *Composer) SetGoal(goal string) { c.goal = goal }

// SetTone selects one of Tones.
func (c *Composer) SetTone(tone string) error {
	if !contains(Tones, tone) {
		return api.Validation("tone", fmt.Sprintf("must be one of %s", strings.Join(Tones, ", ")))
	}
	c.tone = tone
	return nil
}

// SetLanguage selects one of Languages.
func (c *Composer) SetLanguage(lang string) error {
	if !contains(Languages, lang) {
		return api.Validation("language", fmt.Sprintf("must be one of %s", strings.Join(Languages, ", ")))
	}
	c.language = lang
	return nil
}

// SetInfluencers parses a comma separated id list. The previous list is kept
// when parsing fails.
func (c *Composer) SetInfluencers(raw string) error {
	ids, err := ParseInfluencerIDs(raw)
	if err != nil {
		return err
	}
	c.influencers = ids
	return nil
}

// SetInfluencerIDs replaces the recipient list with already parsed ids.
func (c *Composer) SetInfluencerIDs(ids []string) error {
	for _, id := range ids {
		if err := api.ValidateID("influencer_ids", id); err != nil {
			return err
		}
	}
	c.influencers = append([]string(nil), ids...)
	return nil
}

// SetRateLimit sets emails per minute for the next send.
func (c *Composer) SetRateLimit(n int) error {
	if n < 1 {
		return api.Validation("send_rate_limit", "must be at least 1")
	}
	c.rateLimit = n
	return nil
}

// SetPreview edits the local copy of the draft. The server always sends the
// stored draft.
func (c *Composer) SetPreview(subject, body string) {
	c.subject = subject
	c.body = body
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Generate requests a new draft. Only the newest request is applied.
func (c *Composer) Generate() (tea.Cmd, error) {
	if strings.TrimSpace(c.goal) == "" {
		err := api.Validation("goal", "must not be empty")
		c.errs[OpGenerate] = err
		return nil, err
	}
	if len(c.influencers) == 0 {
		err := api.Validation("influencer_ids", "at least one influencer is required")
		c.errs[OpGenerate] = err
		return nil, err
	}

	if c.genCancel != nil {
		c.genCancel()
	}
	c.genSeq++
	seq := c.genSeq
	c.generating = true
	delete(c.errs, OpGenerate)

	req := api.GenerateDraftRequest{
		Goal:          strings.TrimSpace(c.goal),
		Tone:          c.tone,
		Language:      c.language,
		InfluencerIDs: append([]string(nil), c.influencers...),
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	c.genCancel = cancel
	backend := c.backend
	c.log.Debug("generating draft", zap.String("tone", req.Tone), zap.String("language", req.Language), zap.Int("influencers", len(req.InfluencerIDs)))

	return func() tea.Msg {
		defer cancel()
		draft, err := backend.GenerateDraft(ctx, req)
		return draftGeneratedMsg{seq: seq, draft: draft, err: err}
	}, nil
}

// Send queues the generated draft for delivery to the current influencers.
func (c *Composer) Send() (tea.Cmd, error) {
	if c.draft == nil {
		err := api.Validation("draft_id", "generate a draft first")
		c.errs[OpSend] = err
		return nil, err
	}
	if len(c.influencers) == 0 {
		err := api.Validation("influencer_ids", "at least one influencer is required")
		c.errs[OpSend] = err
		return nil, err
	}
	if c.rateLimit < 1 {
		err := api.Validation("send_rate_limit", "must be at least 1")
		c.errs[OpSend] = err
		return nil, err
	}
	if c.sending {
		return nil, ErrBusy
	}

	c.sendSeq++
	seq := c.sendSeq
	c.sending = true
	c.campaign = nil
	delete(c.errs, OpSend)

	req := api.SendCampaignRequest{
		DraftID:       c.draft.ID,
		InfluencerIDs: append([]string(nil), c.influencers...),
		SendRateLimit: c.rateLimit,
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	backend := c.backend
	c.log.Debug("sending campaign", zap.String("draft_id", req.DraftID), zap.Int("rate_limit", req.SendRateLimit))

	return func() tea.Msg {
		defer cancel()
		resp, err := backend.SendCampaign(ctx, req)
		return campaignSentMsg{seq: seq, resp: resp, err: err}
	}, nil
}

// Update applies composer messages and reports whether msg was one.
func (c *Composer) Update(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case draftGeneratedMsg:
		if msg.seq != c.genSeq {
			return true
		}
		c.generating = false
		c.genCancel = nil
		if msg.err != nil {
			c.errs[OpGenerate] = msg.err
			c.log.Warn("draft generation failed", zap.Error(msg.err))
			return true
		}
		draft := msg.draft
		c.draft = &draft
		c.subject = draft.Subject
		c.body = draft.Body
		c.campaign = nil
		c.log.Info("draft generated", zap.String("draft_id", draft.ID))
		return true

	case campaignSentMsg:
		if msg.seq != c.sendSeq {
			return true
		}
		c.sending = false
		if msg.err != nil {
			c.errs[OpSend] = msg.err
			c.log.Warn("campaign send failed", zap.Error(msg.err))
			return true
		}
		resp := msg.resp
		c.campaign = &resp
		c.log.Info("campaign queued", zap.String("campaign_id", resp.CampaignID), zap.Int("accepted", resp.AcceptedCount))
		return true
	}
	return false
}

// Close cancels a pending generate.
func (c *Composer) Close() {
	if c.genCancel != nil {
		c.genCancel()
		c.genCancel = nil
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (c *Composer) Goal() string            { return c.goal }
func (c *Composer) Tone() string            { return c.tone }
func (c *Composer) Language() string        { return c.language }
func (c *Composer) InfluencerIDs() []string { return c.influencers }
func (c *Composer) RateLimit() int          { return c.rateLimit }
func (c *Composer) Generating() bool        { return c.generating }
func (c *Composer) Sending() bool           { return c.sending }

// Draft returns the last generated draft.
func (c *Composer) Draft() (api.EmailDraft, bool) {
	if c.draft == nil {
		return api.EmailDraft{}, false
	}
	return *c.draft, true
}

// Preview returns the locally edited subject and body.
func (c *Composer) Preview() (subject, body string) { return c.subject, c.body }

// Campaign returns the result of the last successful send.
func (c *Composer) Campaign() (api.SendCampaignResponse, bool) {
	if c.campaign == nil {
		return api.SendCampaignResponse{}, false
	}
	return *c.campaign, true
}

// Err returns the last error recorded for op, or nil.
func (c *Composer) Err(op Op) error { return c.errs[op] }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package search

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"outreach/internal/api"
	"outreach/internal/poll"
)

// DefaultPollInterval is the delay between two status polls.
const DefaultPollInterval = 2 * time.Second

// ErrBusy is returned when an operation of the same kind is still in flight.
var ErrBusy = errors.New("search: operation already in progress")

// Op names a tracked operation for error reporting.
type Op string

const (
	OpCreate  Op = "create"
	OpPoll    Op = "poll"
	OpResults Op = "results"
	OpSave    Op = "save"
)

// Backend is the subset of the API client the tracker drives.
type Backend interface {
	CreateSearchTask(ctx context.Context, req api.CreateSearchTaskRequest) (api.CreateSearchTaskResponse, error)
	GetSearchTask(ctx context.Context, taskID string) (api.SearchTask, error)
	GetSearchResults(ctx context.Context, taskID string) ([]api.SearchResult, error)
	SaveInfluencers(ctx context.Context, req api.SaveInfluencersRequest) (api.SaveInfluencersResponse, error)
}

// Options tunes the tracker.
type Options struct {
	// PollInterval is the delay between status polls. Default: 2s.
	PollInterval time.Duration
	// RequestTimeout bounds every request. Default: api.DefaultTimeout.
	RequestTimeout time.Duration
	// Platforms are used when StartTask names none. Default: youtube.
	Platforms []string
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (o *Options) defaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = api.DefaultTimeout
	}
	if len(o.Platforms) == 0 {
		o.Platforms = []string{api.DefaultPlatform}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// TaskOption adjusts a creation request.
type TaskOption func(*api.CreateSearchTaskRequest)

// WithPlatforms overrides the configured platforms.
func WithPlatforms(platforms ...string) TaskOption {
	return func(r *api.CreateSearchTaskRequest) {
		var out []string
		for _, p := range platforms {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			r.Platforms = out
		}
	}
}

// WithRegion restricts the search to a region code.
func WithRegion(region string) TaskOption {
	return func(r *api.CreateSearchTaskRequest) {
		if region = strings.TrimSpace(region); region != "" {
			r.Region = &region
		}
	}
}

// WithFollowerMin sets a lower follower bound.
func WithFollowerMin(n int) TaskOption {
	return func(r *api.CreateSearchTaskRequest) { r.FollowerMin = &n }
}

// WithFollowerMax sets an upper follower bound.
func WithFollowerMax(n int) TaskOption {
	return func(r *api.CreateSearchTaskRequest) { r.FollowerMax = &n }
}

// Stats are point-in-time tracker counters.
type Stats struct {
	Polls           int64 `json:"polls"`
	PollErrors      int64 `json:"poll_errors"`
	UnknownStatuses int64 `json:"unknown_statuses"`
	ResultLoads     int64 `json:"result_loads"`
	Saves           int64 `json:"saves"`
	StaleDropped    int64 `json:"stale_dropped"`
}

// Tracker observes one search task at a time and owns the selection of its
// results. All state changes happen in the methods below and in Update, which
// must be called from the Bubble Tea event loop. Commands returned by the
// tracker only capture immutable values and report back through messages.
type Tracker struct {
	backend Backend
	opts    Options
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	binder *poll.Binder

	createSeq    uint64
	creating     bool
	createCancel context.CancelFunc

	task    api.SearchTask
	hasTask bool
	polling bool

	results          []api.SearchResult
	byRawID          map[string]api.SearchResult
	resultsLoaded    bool
	resultsRequested bool
	loadingResults   bool

	selected selection
	saving   bool
	outcome  *api.SaveInfluencersResponse

	errs  map[Op]error
	stats Stats
}

// NewTracker creates an idle tracker. Close releases it.
func NewTracker(ctx context.Context, backend Backend, opts Options) *Tracker {
	opts.defaults()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Tracker{
		backend:  backend,
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		binder:   poll.NewBinder(ctx),
		byRawID:  make(map[string]api.SearchResult),
		selected: newSelection(),
		errs:     make(map[Op]error),
	}
}

// Close cancels every in-flight request and stops polling.
func (t *Tracker) Close() {
	t.abortCreate()
	t.binder.Release()
	t.cancel()
}

// =============================================================================
// MESSAGES
// =============================================================================

type taskCreatedMsg struct {
	seq  uint64
	resp api.CreateSearchTaskResponse
	err  error
}

type pollTickMsg struct {
	sub *poll.Subscription
}

type taskPolledMsg struct {
	sub  *poll.Subscription
	task api.SearchTask
	err  error
}

type resultsLoadedMsg struct {
	sub     *poll.Subscription
	results []api.SearchResult
	err     error
}

type savedMsg struct {
	sub  *poll.Subscription
	ids  []string
	resp api.SaveInfluencersResponse
	err  error
}

// =============================================================================
// OPERATIONS
// =============================================================================

// StartTask submits a new search. The query is trimmed and must not be empty.
// The current task stays bound until the server accepts the new one; on
// success the selection resets and polling of the new id starts at once.
func (t *Tracker) StartTask(query string, opts ...TaskOption) (tea.Cmd, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		err := api.Validation("query", "must not be empty")
		t.errs[OpCreate] = err
		return nil, err
	}
	if t.creating {
		return nil, ErrBusy
	}

	req := api.CreateSearchTaskRequest{
		Query:     query,
		Platforms: append([]string(nil), t.opts.Platforms...),
	}
	for _, opt := range opts {
		opt(&req)
	}

	t.createSeq++
	seq := t.createSeq
	t.creating = true
	delete(t.errs, OpCreate)

	ctx, cancel := context.WithTimeout(t.ctx, t.opts.RequestTimeout)
	t.createCancel = cancel
	backend := t.backend
	t.log.Debug("creating search task", zap.String("query", query), zap.Strings("platforms", req.Platforms))

	return func() tea.Msg {
		defer cancel()
		resp, err := backend.CreateSearchTask(ctx, req)
		return taskCreatedMsg{seq: seq, resp: resp, err: err}
	}, nil
}

// Open binds the tracker to an existing task. Opening the bound task again
// does nothing; any other id resets the selection and starts polling.
func (t *Tracker) Open(taskID string) (tea.Cmd, error) {
	taskID = strings.TrimSpace(taskID)
	if err := api.ValidateID("task_id", taskID); err != nil {
		return nil, err
	}
	if taskID == t.binder.CurrentID() {
		return nil, nil
	}
	t.abortCreate()
	return t.bind(taskID, api.SearchTask{}, false), nil
}

// RefreshResults re-fetches the results of a done task.
func (t *Tracker) RefreshResults() (tea.Cmd, error) {
	sub := t.binder.Current()
	if sub == nil || !t.hasTask || t.task.Status != api.StatusDone {
		return nil, api.Validation("task", "results are only available once the task is done")
	}
	if t.loadingResults {
		return nil, ErrBusy
	}
	return t.loadResults(sub), nil
}

// Toggle adds or removes a result from the selection. Ids that are not
// loaded, and results that are not unique, cannot be selected. Reports
// whether the selection changed.
func (t *Tracker) Toggle(rawResultID string, checked bool) bool {
	if !checked {
		return t.selected.remove(rawResultID)
	}
	item, ok := t.byRawID[rawResultID]
	if !ok || !item.IsUnique() {
		return false
	}
	return t.selected.add(rawResultID)
}

// SelectAllUnique replaces the selection with every loaded unique result.
func (t *Tracker) SelectAllUnique() {
	t.selected.reset()
	for _, r := range t.results {
		if r.IsUnique() {
			t.selected.add(r.RawResultID)
		}
	}
}

// ClearSelection empties the selection.
func (t *Tracker) ClearSelection() { t.selected.reset() }

// Save submits the selection for the bound task. It is rejected without a
// request when nothing is bound, nothing is selected, or a save is pending.
// On success the submitted ids leave the selection; on failure the selection
// is kept so the user can retry.
func (t *Tracker) Save() (tea.Cmd, error) {
	sub := t.binder.Current()
	if sub == nil {
		err := api.Validation("task_id", "no task selected")
		t.errs[OpSave] = err
		return nil, err
	}
	if t.selected.len() == 0 {
		err := api.Validation("selected_result_ids", "nothing selected")
		t.errs[OpSave] = err
		return nil, err
	}
	if t.saving {
		return nil, ErrBusy
	}

	ids := t.selected.elements()
	t.saving = true
	t.outcome = nil
	delete(t.errs, OpSave)

	backend := t.backend
	timeout := t.opts.RequestTimeout
	req := api.SaveInfluencersRequest{TaskID: sub.ID(), SelectedResultIDs: ids}
	t.log.Debug("saving selection", zap.String("task_id", sub.ID()), zap.Int("count", len(ids)))

	return func() tea.Msg {
		ctx, cancel := sub.RequestContext(timeout)
		defer cancel()
		resp, err := backend.SaveInfluencers(ctx, req)
		return savedMsg{sub: sub, ids: ids, resp: resp, err: err}
	}, nil
}

// Update applies tracker messages and ignores everything else.
func (t *Tracker) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case taskCreatedMsg:
		return t.onCreated(msg)
	case pollTickMsg:
		return t.onTick(msg)
	case taskPolledMsg:
		return t.onPolled(msg)
	case resultsLoadedMsg:
		t.onResults(msg)
	case savedMsg:
		t.onSaved(msg)
	}
	return nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (t *Tracker) onCreated(msg taskCreatedMsg) tea.Cmd {
	if msg.seq != t.createSeq || !t.creating {
		t.stats.StaleDropped++
		return nil
	}
	t.creating = false
	t.createCancel = nil

	if msg.err != nil {
		t.errs[OpCreate] = msg.err
		t.log.Warn("search task creation failed", zap.Error(msg.err))
		return nil
	}
	if err := api.ValidateID("task_id", msg.resp.TaskID); err != nil {
		t.errs[OpCreate] = err
		t.log.Warn("server returned an unusable task id", zap.String("task_id", msg.resp.TaskID))
		return nil
	}

	t.log.Info("search task created", zap.String("task_id", msg.resp.TaskID), zap.String("status", string(msg.resp.Status)))
	initial := api.SearchTask{TaskID: msg.resp.TaskID, Status: msg.resp.Status}
	return t.bind(msg.resp.TaskID, initial, msg.resp.Status != "")
}

func (t *Tracker) onTick(msg pollTickMsg) tea.Cmd {
	if !t.binder.IsCurrent(msg.sub) {
		t.stats.StaleDropped++
		return nil
	}
	if t.polling || (t.hasTask && t.task.Status.IsTerminal()) {
		return nil
	}
	return t.pollNow(msg.sub)
}

func (t *Tracker) onPolled(msg taskPolledMsg) tea.Cmd {
	if !t.binder.IsCurrent(msg.sub) {
		t.stats.StaleDropped++
		return nil
	}
	t.polling = false

	if msg.err != nil {
		t.stats.PollErrors++
		t.errs[OpPoll] = msg.err
		t.log.Warn("poll failed", zap.String("task_id", msg.sub.ID()), zap.Error(msg.err))
		return t.scheduleTick(msg.sub)
	}
	delete(t.errs, OpPoll)

	next := msg.task
	if next.TaskID == "" {
		next.TaskID = msg.sub.ID()
	}
	// Unknown statuses are treated as non-terminal and polling continues.
	if _, err := api.ParseTaskStatus(string(next.Status)); err != nil {
		t.stats.UnknownStatuses++
		t.log.Warn("unknown task status", zap.String("task_id", next.TaskID), zap.Error(err))
	}
	if t.hasTask && !IsTransitionAllowed(t.task.Status, next.Status) {
		t.log.Warn("unexpected status transition",
			zap.String("task_id", next.TaskID),
			zap.String("from", string(t.task.Status)),
			zap.String("to", string(next.Status)))
	}
	t.task = next
	t.hasTask = true

	switch {
	case next.Status == api.StatusDone:
		if !t.resultsRequested {
			return t.loadResults(msg.sub)
		}
		return nil
	case next.Status.IsTerminal():
		t.log.Info("search task failed", zap.String("task_id", next.TaskID))
		return nil
	default:
		return t.scheduleTick(msg.sub)
	}
}

func (t *Tracker) onResults(msg resultsLoadedMsg) {
	if !t.binder.IsCurrent(msg.sub) {
		t.stats.StaleDropped++
		return
	}
	t.loadingResults = false

	if msg.err != nil {
		t.errs[OpResults] = msg.err
		t.log.Warn("loading results failed", zap.String("task_id", msg.sub.ID()), zap.Error(msg.err))
		return
	}
	delete(t.errs, OpResults)

	t.results = msg.results
	t.byRawID = make(map[string]api.SearchResult, len(msg.results))
	for _, r := range msg.results {
		t.byRawID[r.RawResultID] = r
	}
	t.resultsLoaded = true

	if dropped := t.selected.retain(func(id string) bool {
		r, ok := t.byRawID[id]
		return ok && r.IsUnique()
	}); dropped > 0 {
		t.log.Debug("pruned selection", zap.Int("dropped", dropped))
	}
	t.log.Info("results loaded", zap.String("task_id", msg.sub.ID()), zap.Int("count", len(msg.results)))
}

func (t *Tracker) onSaved(msg savedMsg) {
	if !t.binder.IsCurrent(msg.sub) {
		t.stats.StaleDropped++
		return
	}
	t.saving = false

	if msg.err != nil {
		t.errs[OpSave] = msg.err
		t.log.Warn("save failed", zap.String("task_id", msg.sub.ID()), zap.Error(msg.err))
		return
	}
	delete(t.errs, OpSave)
	t.stats.Saves++

	for _, id := range msg.ids {
		t.selected.remove(id)
	}
	resp := msg.resp
	t.outcome = &resp
	t.log.Info("selection saved",
		zap.String("task_id", msg.sub.ID()),
		zap.Int("saved", resp.SavedCount),
		zap.Int("skipped", resp.SkippedCount))
}

// =============================================================================
// INTERNALS
// =============================================================================

// bind switches to taskID, dropping everything tied to the previous task.
func (t *Tracker) bind(taskID string, initial api.SearchTask, known bool) tea.Cmd {
	sub := t.binder.Bind(taskID)

	t.task = initial
	t.hasTask = known
	t.polling = false
	t.results = nil
	t.byRawID = make(map[string]api.SearchResult)
	t.resultsLoaded = false
	t.resultsRequested = false
	t.loadingResults = false
	t.selected.reset()
	t.saving = false
	t.outcome = nil
	delete(t.errs, OpPoll)
	delete(t.errs, OpResults)
	delete(t.errs, OpSave)

	return t.pollNow(sub)
}

func (t *Tracker) pollNow(sub *poll.Subscription) tea.Cmd {
	t.polling = true
	t.stats.Polls++
	backend := t.backend
	timeout := t.opts.RequestTimeout

	return func() tea.Msg {
		ctx, cancel := sub.RequestContext(timeout)
		defer cancel()
		task, err := backend.GetSearchTask(ctx, sub.ID())
		return taskPolledMsg{sub: sub, task: task, err: err}
	}
}

func (t *Tracker) scheduleTick(sub *poll.Subscription) tea.Cmd {
	return sub.Tick(t.opts.PollInterval, func(s *poll.Subscription) tea.Msg {
		return pollTickMsg{sub: s}
	})
}

func (t *Tracker) loadResults(sub *poll.Subscription) tea.Cmd {
	t.resultsRequested = true
	t.loadingResults = true
	t.stats.ResultLoads++
	backend := t.backend
	timeout := t.opts.RequestTimeout

	return func() tea.Msg {
		ctx, cancel := sub.RequestContext(timeout)
		defer cancel()
		results, err := backend.GetSearchResults(ctx, sub.ID())
		return resultsLoadedMsg{sub: sub, results: results, err: err}
	}
}

func (t *Tracker) abortCreate() {
	if t.createCancel != nil {
		t.createCancel()
		t.createCancel = nil
	}
	if t.creating {
		t.createSeq++
		t.creating = false
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// TaskID returns the bound task id, or "".
func (t *Tracker) TaskID() string { return t.binder.CurrentID() }

// Task returns the latest snapshot of the bound task.
func (t *Tracker) Task() (api.SearchTask, bool) { return t.task, t.hasTask }

// Results returns the loaded results. The slice must not be modified.
func (t *Tracker) Results() []api.SearchResult { return t.results }

// ResultsLoaded reports whether results have been fetched for the bound task.
func (t *Tracker) ResultsLoaded() bool { return t.resultsLoaded }

// Selected returns the selected raw result ids in sorted order.
func (t *Tracker) Selected() []string { return t.selected.elements() }

// SelectedCount returns the selection size.
func (t *Tracker) SelectedCount() int { return t.selected.len() }

// IsSelected reports whether a raw result id is selected.
func (t *Tracker) IsSelected(rawResultID string) bool { return t.selected.has(rawResultID) }

// UniqueIDs returns the raw ids of every loaded unique result.
func (t *Tracker) UniqueIDs() []string {
	var ids []string
	for _, r := range t.results {
		if r.IsUnique() {
			ids = append(ids, r.RawResultID)
		}
	}
	return ids
}

// Outcome returns the counts of the last successful save for this task.
func (t *Tracker) Outcome() (api.SaveInfluencersResponse, bool) {
	if t.outcome == nil {
		return api.SaveInfluencersResponse{}, false
	}
	return *t.outcome, true
}

// Err returns the last error recorded for op, or nil.
func (t *Tracker) Err(op Op) error { return t.errs[op] }

// Creating reports whether a task creation is in flight.
func (t *Tracker) Creating() bool { return t.creating }

// Polling reports whether the bound task is still being observed.
func (t *Tracker) Polling() bool {
	if t.binder.Current() == nil {
		return false
	}
	return !t.hasTask || !t.task.Status.IsTerminal()
}

// LoadingResults reports whether a results fetch is in flight.
func (t *Tracker) LoadingResults() bool { return t.loadingResults }

// Saving reports whether a save is in flight.
func (t *Tracker) Saving() bool { return t.saving }

// Stats returns the tracker counters.
func (t *Tracker) Stats() Stats { return t.stats }

package search

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"outreach/internal/api"
)

// HistoryBackend lists past search tasks.
type HistoryBackend interface {
	ListSearchTasks(ctx context.Context, opts api.ListOptions) ([]api.SearchTaskListItem, error)
}

type historyLoadedMsg struct {
	seq   uint64
	items []api.SearchTaskListItem
	err   error
}

// History pages through past search tasks. A newer Load supersedes any load
// still in flight.
type History struct {
	backend HistoryBackend
	timeout time.Duration
	log     *zap.Logger

	seq     uint64
	cancel  context.CancelFunc
	loading bool
	page    api.ListOptions
	items   []api.SearchTaskListItem
	err     error
}

// NewHistory creates a history loader. A zero timeout means api.DefaultTimeout.
func NewHistory(backend HistoryBackend, timeout time.Duration, logger *zap.Logger) *History {
	if timeout <= 0 {
		timeout = api.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{backend: backend, timeout: timeout, log: logger}
}

// Load fetches one page. A zero limit lets the client apply its default.
func (h *History) Load(ctx context.Context, page api.ListOptions) tea.Cmd {
	if h.cancel != nil {
		h.cancel()
	}
	h.seq++
	seq := h.seq
	h.loading = true
	h.page = page

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	h.cancel = cancel
	backend := h.backend

	return func() tea.Msg {
		defer cancel()
		items, err := backend.ListSearchTasks(ctx, page)
		return historyLoadedMsg{seq: seq, items: items, err: err}
	}
}

// Update applies history messages and reports whether msg was one.
func (h *History) Update(msg tea.Msg) bool {
	m, ok := msg.(historyLoadedMsg)
	if !ok {
		return false
	}
	if m.seq != h.seq {
		return true
	}
	h.loading = false
	h.cancel = nil
	if m.err != nil {
		h.err = m.err
		h.log.Warn("loading task history failed", zap.Error(m.err))
		return true
	}
	h.err = nil
	h.items = m.items
	return true
}

// Close cancels a pending load.
func (h *History) Close() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.seq++
	h.loading = false
}

// Items returns the last loaded page.
func (h *History) Items() []api.SearchTaskListItem { return h.items }

// Page returns the options of the last requested page.
func (h *History) Page() api.ListOptions { return h.page }

// Loading reports whether a load is in flight.
func (h *History) Loading() bool { return h.loading }

// Err returns the error of the last completed load.
func (h *History) Err() error { return h.err }

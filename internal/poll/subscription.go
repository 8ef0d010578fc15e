// Package poll binds periodic fetches to a single resource id.
//
// A Binder hands out one Subscription at a time. Rebinding to another id
// cancels the previous subscription's context, which aborts its in-flight
// requests, and every response is checked with IsCurrent before it is applied.
// Timers are never trusted to clean themselves up: a tick that fires for a
// released subscription is simply dropped by the consumer.
//
// Binder is not safe for concurrent use. It is meant to live inside a Bubble
// Tea model and be touched only from Update.
package poll

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Subscription is one binding of a poller to a resource id.
type Subscription struct {
	id     string
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the bound resource id.
func (s *Subscription) ID() string { return s.id }

// Generation is a strictly increasing binding counter, unique per Binder.
func (s *Subscription) Generation() uint64 { return s.gen }

// Context is cancelled when the subscription is released or replaced.
func (s *Subscription) Context() context.Context { return s.ctx }

// Active reports whether the subscription has not been cancelled.
func (s *Subscription) Active() bool { return s.ctx.Err() == nil }

// Cancel releases the subscription. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

// Tick schedules fn after d. The returned command carries the subscription so
// the consumer can drop ticks that belong to an older binding.
func (s *Subscription) Tick(d time.Duration, fn func(*Subscription) tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return fn(s)
	})
}

// RequestContext derives a per-request context bounded by timeout. A zero
// timeout means the subscription context alone bounds the request.
func (s *Subscription) RequestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(s.ctx)
	}
	return context.WithTimeout(s.ctx, timeout)
}

// Stats are point-in-time binder counters.
type Stats struct {
	Binds    uint64 `json:"binds"`
	Releases uint64 `json:"releases"`
}

// Binder owns the current subscription.
type Binder struct {
	parent  context.Context
	gen     uint64
	current *Subscription
	stats   Stats
}

// NewBinder creates a binder whose subscriptions derive from parent.
func NewBinder(parent context.Context) *Binder {
	if parent == nil {
		parent = context.Background()
	}
	return &Binder{parent: parent}
}

// Bind cancels the current subscription and binds a new one to id.
func (b *Binder) Bind(id string) *Subscription {
	b.cancelCurrent()

	b.gen++
	ctx, cancel := context.WithCancel(b.parent)
	b.current = &Subscription{id: id, gen: b.gen, ctx: ctx, cancel: cancel}
	b.stats.Binds++
	return b.current
}

// Release cancels the current subscription without binding a new one.
func (b *Binder) Release() {
	if b.current == nil {
		return
	}
	b.cancelCurrent()
	b.current = nil
	b.stats.Releases++
}

// Current returns the live subscription, or nil.
func (b *Binder) Current() *Subscription { return b.current }

// CurrentID returns the bound id, or "" when nothing is bound.
func (b *Binder) CurrentID() string {
	if b.current == nil {
		return ""
	}
	return b.current.id
}

// IsCurrent reports whether sub is the live subscription. This is the only
// check a consumer needs before applying a response or acting on a tick.
func (b *Binder) IsCurrent(sub *Subscription) bool {
	return sub != nil && sub == b.current && sub.Active()
}

// Stats returns the binder counters.
func (b *Binder) Stats() Stats { return b.stats }

func (b *Binder) cancelCurrent() {
	if b.current != nil {
		b.current.cancel()
	}
}

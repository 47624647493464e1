package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default limits applied when the gateway is not configured otherwise
const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 10
)

// Clock returns the current time. Tests replace it to step through windows.
type Clock func() time.Time

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window
// resets, never less than one second
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return wait.Truncate(time.Second)
}

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow counts requests per identity in fixed windows. A window
// starts on the first request from an identity and lasts for the
// configured duration; rejected requests still count.
type FixedWindow struct {
	window      time.Duration
	maxRequests int
	now         Clock
	entries     map[string]*entry
	mu          sync.Mutex
}

// Option configures a FixedWindow
type Option func(*FixedWindow)

// WithClock overrides the time source
func WithClock(c Clock) Option {
	return func(fw *FixedWindow) {
		fw.now = c
	}
}

// NewFixedWindow creates a limiter admitting maxRequests per window.
// Non-positive arguments fall back to the defaults.
func NewFixedWindow(window time.Duration, maxRequests int, opts ...Option) *FixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}

	fw := &FixedWindow{
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// Allow records a request from identity and reports whether it is admitted
func (fw *FixedWindow) Allow(identity string) Decision {
	now := fw.now()

	fw.mu.Lock()
	defer fw.mu.Unlock()

	e, ok := fw.entries[identity]
	if !ok || now.After(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(fw.window)}
		fw.entries[identity] = e
	} else {
		e.count++
	}

	remaining := fw.maxRequests - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   e.count <= fw.maxRequests,
		Count:     e.count,
		Limit:     fw.maxRequests,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}
}

// Limit returns the number of requests admitted per window
func (fw *FixedWindow) Limit() int {
	return fw.maxRequests
}

// Window returns the window duration
func (fw *FixedWindow) Window() time.Duration {
	return fw.window
}

// Len returns the number of tracked identities
func (fw *FixedWindow) Len() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.entries)
}

// Prune removes entries whose window ended before now and returns how many
// were removed. A pruned identity starts a fresh window on its next request,
// exactly as an expired entry would.
func (fw *FixedWindow) Prune(now time.Time) int {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	removed := 0
	for id, e := range fw.entries {
		if now.After(e.resetAt) {
			delete(fw.entries, id)
			removed++
		}
	}
	return removed
}

// Run prunes expired entries every interval until ctx is cancelled.
// onPrune, if set, receives the number of entries removed on each tick.
func (fw *FixedWindow) Run(ctx context.Context, interval time.Duration, onPrune func(removed int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := fw.Prune(fw.now())
			if onPrune != nil {
				onPrune(removed)
			}
		}
	}
}

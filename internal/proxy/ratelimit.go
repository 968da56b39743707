package proxy

import (
	"context"
	"sync"
	"time"
)

// Default fixed-window parameters.
const (
	DefaultRateLimitWindow      = time.Minute
	DefaultRateLimitMaxRequests = 60
	DefaultRateLimitMaxKeys     = 100_000
)

// RateLimitEntry is the per-client accounting for the current window.
type RateLimitEntry struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// RateLimiter is a fixed-window counter keyed by client identity.
//
// A window resets when more than Window has elapsed since its start, so bursts
// of up to twice MaxRequests are possible across a window boundary.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*RateLimitEntry

	window       time.Duration
	maxRequests  int
	maxKeys      int
	sweepEvery   time.Duration
	clock        func() time.Time
	onSizeChange func(size int)
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithWindow sets the window length.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithMaxRequests sets the per-window request budget.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithMaxKeys caps the number of tracked client keys.
func WithMaxKeys(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxKeys = n
		}
	}
}

// WithSweepEvery sets the janitor interval. Zero disables the janitor.
func WithSweepEvery(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) { r.sweepEvery = d }
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithSizeObserver registers a callback invoked with the table size after it changes.
func WithSizeObserver(fn func(size int)) RateLimiterOption {
	return func(r *RateLimiter) { r.onSizeChange = fn }
}

// NewRateLimiter builds a limiter with the default 60 requests per minute.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		entries:     make(map[string]*RateLimitEntry),
		window:      DefaultRateLimitWindow,
		maxRequests: DefaultRateLimitMaxRequests,
		maxKeys:     DefaultRateLimitMaxKeys,
		sweepEvery:  2 * DefaultRateLimitWindow,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Window returns the configured window length.
func (r *RateLimiter) Window() time.Duration { return r.window }

// MaxRequests returns the configured per-window budget.
func (r *RateLimiter) MaxRequests() int { return r.maxRequests }

// Allow records a request for key and reports whether it fits the budget.
// The check and the increment happen under one lock.
func (r *RateLimiter) Allow(key string) bool {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || r.expired(entry, now) {
		if !ok {
			r.makeRoom(now)
		}
		r.entries[key] = &RateLimitEntry{Count: 1, WindowStart: now}
		if !ok {
			r.notifySize()
		}
		return true
	}

	if entry.Count >= r.maxRequests {
		return false
	}

	entry.Count++
	return true
}

// Entry returns a copy of the entry for key.
func (r *RateLimiter) Entry(key string) (RateLimitEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return RateLimitEntry{}, false
	}
	return *entry, true
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops every entry whose window has expired and returns how many were removed.
// An expired entry is indistinguishable from an absent one, so sweeping never
// changes a decision.
func (r *RateLimiter) Sweep() int {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.sweepLocked(now)
	if removed > 0 {
		r.notifySize()
	}
	return removed
}

// StartJanitor sweeps expired entries periodically until ctx is cancelled.
func (r *RateLimiter) StartJanitor(ctx context.Context) {
	if r.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(r.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Sweep()
			}
		}
	}()
}

func (r *RateLimiter) expired(entry *RateLimitEntry, now time.Time) bool {
	return now.Sub(entry.WindowStart) > r.window
}

func (r *RateLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for k, entry := range r.entries {
		if r.expired(entry, now) {
			delete(r.entries, k)
			removed++
		}
	}
	return removed
}

// makeRoom keeps the table under maxKeys before a new key is inserted.
// Expired entries go first; if the table is still full the oldest window is evicted.
func (r *RateLimiter) makeRoom(now time.Time) {
	if r.maxKeys <= 0 || len(r.entries) < r.maxKeys {
		return
	}
	if r.sweepLocked(now) > 0 && len(r.entries) < r.maxKeys {
		return
	}

	var (
		oldestKey   string
		oldestStart time.Time
		found       bool
	)
	for k, entry := range r.entries {
		if !found || entry.WindowStart.Before(oldestStart) {
			oldestKey = k
			oldestStart = entry.WindowStart
			found = true
		}
	}
	if found {
		delete(r.entries, oldestKey)
	}
}

func (r *RateLimiter) notifySize() {
	if r.onSizeChange != nil {
		r.onSizeChange(len(r.entries))
	}
}

// Package ratelimit records the upstream quota window shared by every caller.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
)

// Upstream response headers carrying quota state
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

var (
	keyReset     = kvstore.RateLimitPolicy.Name + ":reset"
	keyRemaining = kvstore.RateLimitPolicy.Name + ":remaining"
)

// State is a snapshot of the tracked quota
type State struct {
	ResetAt   *time.Time `json:"reset_at,omitempty"`
	Remaining *int       `json:"remaining,omitempty"`
	Limited   bool       `json:"limited"`
}

// Tracker persists the upstream rate limit window in a kvstore.Store.
// Reset is kept as absolute unix milliseconds and remaining as a plain
// integer, both without TTL. Storage failures read as "not limited".
type Tracker struct {
	mu     sync.Mutex
	store  kvstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker backed by store
func NewTracker(store kvstore.Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Update records the quota headers of a response. The upstream is the source
// of truth so the previous state is overwritten. A reset time is only kept as
// a limit window when the remaining count is zero or not reported; a positive
// remaining count clears it.
func (t *Tracker) Update(h http.Header) {
	if h == nil {
		return
	}

	remainingRaw := h.Get(HeaderRemaining)
	resetRaw := h.Get(HeaderReset)
	if remainingRaw == "" && resetRaw == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := context.Background()
	metrics := observability.GetMetrics()

	remaining := -1
	if remainingRaw != "" {
		if n, err := strconv.Atoi(remainingRaw); err == nil {
			remaining = n
			t.write(ctx, keyRemaining, strconv.Itoa(n))
			metrics.RateLimitRemaining.Set(float64(n))
		}
	}

	if remaining > 0 {
		t.remove(ctx, keyReset)
		metrics.RateLimited.Set(0)
		return
	}

	if resetRaw != "" {
		if secs, err := strconv.ParseInt(resetRaw, 10, 64); err == nil {
			t.write(ctx, keyReset, strconv.FormatInt(secs*1000, 10))
			if t.now().UnixMilli() < secs*1000 {
				metrics.RateLimited.Set(1)
				t.logger.Warn("upstream rate limit reached",
					"reset_at", time.UnixMilli(secs*1000).UTC().Format(time.RFC3339))
			}
		}
	}
}

// MarkLimited records a limit window learned from something other than headers
func (t *Tracker) MarkLimited(resetAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := context.Background()
	t.write(ctx, keyReset, strconv.FormatInt(resetAt.UnixMilli(), 10))
	t.write(ctx, keyRemaining, "0")
	observability.GetMetrics().RateLimited.Set(1)
}

// IsLimited reports whether a reset time is stored and still in the future.
// An elapsed reset time is cleared as a side effect.
func (t *Tracker) IsLimited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, limited := t.activeReset()
	return limited
}

// TimeUntilReset returns how long until the limit window ends, never negative
func (t *Tracker) TimeUntilReset() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	resetAt, limited := t.activeReset()
	if !limited {
		return 0
	}
	if d := resetAt.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// ResetAt returns the active reset time, if any
func (t *Tracker) ResetAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeReset()
}

// Remaining returns the last reported remaining count
func (t *Tracker) Remaining() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, ok := t.read(context.Background(), keyRemaining)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() State {
	var s State
	if resetAt, limited := t.ResetAt(); limited {
		s.ResetAt = &resetAt
		s.Limited = true
	}
	if n, ok := t.Remaining(); ok {
		s.Remaining = &n
	}
	return s
}

// activeReset must be called with mu held
func (t *Tracker) activeReset() (time.Time, bool) {
	ctx := context.Background()

	raw, ok := t.read(ctx, keyReset)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		t.remove(ctx, keyReset)
		return time.Time{}, false
	}

	if t.now().UnixMilli() >= ms {
		t.remove(ctx, keyReset)
		t.remove(ctx, keyRemaining)
		observability.GetMetrics().RateLimited.Set(0)
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (t *Tracker) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.Debug("rate limit state unreadable, failing open",
			"key", key,
			"error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	return string(raw), true
}

func (t *Tracker) write(ctx context.Context, key, value string) {
	if err := t.store.Set(ctx, key, []byte(value), kvstore.RateLimitPolicy.TTL); err != nil {
		t.logger.Debug("rate limit state not persisted",
			"key", key,
			"error", err)
	}
}

func (t *Tracker) remove(ctx context.Context, key string) {
	if err := t.store.Delete(ctx, key); err != nil {
		t.logger.Debug("rate limit state not cleared",
			"key", key,
			"error", err)
	}
}

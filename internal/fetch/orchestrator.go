// Package fetch keeps one paginated search current as its inputs change,
// serving from cache first and degrading gracefully under rate limiting.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devlopersumit/issuehub/internal/cache"
	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/retry"
	"github.com/devlopersumit/issuehub/internal/types"
)

const (
	// DefaultPerPage is used when a query does not set a page size
	DefaultPerPage = 30

	// DefaultFreshTTL bounds a daily cache entry; the date in the key rotates it anyway
	DefaultFreshTTL = 24 * time.Hour

	// DefaultMaxRetryDelay caps how far ahead a rate-limit retry may be scheduled
	DefaultMaxRetryDelay = time.Hour

	// DefaultRetryGrace is added to the reset time before retrying
	DefaultRetryGrace = time.Second

	// unknownResetDelay is used when a rate limit carries no reset time
	unknownResetDelay = time.Minute
)

// ErrSuperseded is returned by Resolve when a newer query replaced the one it was waiting for
var ErrSuperseded = fmt.Errorf("%w: superseded by a newer query", context.Canceled)

// Searcher runs one page of an issue search
type Searcher interface {
	SearchIssues(ctx context.Context, params github.SearchParams) (*github.IssueSearchResult, error)
}

// Limiter reports the shared rate limit window
type Limiter interface {
	IsLimited() bool
	ResetAt() (time.Time, bool)
}

// Query is the input of an orchestrated search
type Query struct {
	Text    string `json:"query"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

func (q Query) normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	return q
}

// cacheKey identifies the exact (query, page, page size) triple
func (q Query) cacheKey() string {
	return q.Text + "|" + strconv.Itoa(q.Page) + "|" + strconv.Itoa(q.PerPage)
}

// Result is one page of search hits
type Result struct {
	Issues     []types.Issue `json:"issues"`
	TotalCount int           `json:"total_count"`
}

// State is what consumers render. Err is only ever a terminal failure with
// no cached fallback; rate limiting and cancellation never show up here.
type State struct {
	Generation uint64
	Query      Query
	Result     Result
	Loading    bool
	Err        error
	Stale      bool
	FromCache  bool
	RetryAt    time.Time
}

// Settled reports whether the state is an answer a one-shot caller can return.
// A loading state that waits for a scheduled retry counts as settled.
func (s State) Settled() bool {
	return !s.Loading || !s.RetryAt.IsZero()
}

// Options wires an Orchestrator
type Options struct {
	Searcher Searcher
	Limiter  Limiter

	// Daily is the volatile cache keyed by query and calendar date
	Daily *cache.Volatile[Result]

	// LastGood keeps the most recent successful page per query across days. May be nil.
	LastGood *kvstore.Namespace[Result]

	Retry         retry.Policy
	FreshTTL      time.Duration
	MaxRetryDelay time.Duration
	RetryGrace    time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Orchestrator owns at most one outstanding search. Each Set supersedes the
// previous one: its context is cancelled and any result it still produces is
// discarded by generation check.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	gen         uint64
	query       Query
	ctx         context.Context
	cancel      context.CancelFunc
	timer       *time.Timer
	state       State
	subscribers map[int]chan State
	nextSub     int
	closed      bool
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	if opts.Daily == nil {
		opts.Daily = cache.NewVolatile[Result](0)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.FreshTTL <= 0 {
		opts.FreshTTL = DefaultFreshTTL
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if opts.RetryGrace <= 0 {
		opts.RetryGrace = DefaultRetryGrace
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		opts:        opts,
		logger:      logger,
		now:         now,
		subscribers: make(map[int]chan State),
	}
}

// Set replaces the inputs and starts resolving them. Cache hits and empty
// queries are applied before Set returns. It returns the generation of the
// new inputs.
func (o *Orchestrator) Set(q Query) uint64 {
	q = q.normalize()

	o.mu.Lock()
	if o.closed {
		gen := o.gen
		o.mu.Unlock()
		return gen
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.stopTimerLocked()
	o.gen++
	gen := o.gen
	ctx, cancel := context.WithCancel(context.Background())
	o.ctx = ctx
	o.cancel = cancel
	o.query = q
	o.mu.Unlock()

	o.resolve(ctx, gen, q)
	return gen
}

// State returns the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe streams state changes. Slow subscribers only see the latest state.
// The returned function unsubscribes.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan State, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(sub)
		}
	}
}

// Resolve sets q and waits until its state settles or ctx is done. It returns
// ErrSuperseded if another Set replaced q first.
func (o *Orchestrator) Resolve(ctx context.Context, q Query) (State, error) {
	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()

	gen := o.Set(q)
	for {
		st := o.State()
		if st.Generation > gen {
			return st, ErrSuperseded
		}
		if st.Generation == gen && st.Settled() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return o.State(), ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return o.State(), ErrSuperseded
			}
		}
	}
}

// Close cancels in-flight work and pending retries
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	o.gen++
	if o.cancel != nil {
		o.cancel()
	}
	o.stopTimerLocked()
	for id, ch := range o.subscribers {
		delete(o.subscribers, id)
		close(ch)
	}
}

// resolve applies the cache-first policy for one generation
func (o *Orchestrator) resolve(ctx context.Context, gen uint64, q Query) {
	metrics := observability.GetMetrics()

	if q.Text == "" {
		o.publish(gen, State{Query: q})
		metrics.Fetches.WithLabelValues("empty").Inc()
		return
	}

	dailyKey := cache.DailyKey(q.cacheKey(), o.now())
	if res, ok := o.opts.Daily.Get(dailyKey); ok {
		metrics.CacheLookups.WithLabelValues("daily", "hit").Inc()
		metrics.Fetches.WithLabelValues("cache").Inc()
		o.publish(gen, State{Query: q, Result: res, FromCache: true})

		if !o.opts.Limiter.IsLimited() {
			go o.fetch(ctx, gen, q, true)
		}
		return
	}
	metrics.CacheLookups.WithLabelValues("daily", "miss").Inc()

	if o.opts.Limiter.IsLimited() {
		resetAt, _ := o.opts.Limiter.ResetAt()
		o.serveLimited(ctx, gen, q, resetAt, false)
		return
	}

	o.publish(gen, State{Query: q, Loading: true})
	go o.fetch(ctx, gen, q, false)
}

// fetch performs the network call for gen. Silent fetches revalidate a cache
// hit and never publish loading or error state.
func (o *Orchestrator) fetch(ctx context.Context, gen uint64, q Query, silent bool) {
	metrics := observability.GetMetrics()
	params := github.SearchParams{Query: q.Text, Page: q.Page, PerPage: q.PerPage}

	var res *github.IssueSearchResult
	err := o.opts.Retry.Do(ctx, func(ctx context.Context) error {
		r, err := o.opts.Searcher.SearchIssues(ctx, params)
		if err != nil {
			return err
		}
		res = r
		return nil
	})

	switch {
	case err == nil:
		result := Result{Issues: res.Items, TotalCount: res.TotalCount}
		o.opts.Daily.Set(cache.DailyKey(q.cacheKey(), o.now()), result, o.opts.FreshTTL)
		if o.opts.LastGood != nil {
			o.opts.LastGood.Set(context.WithoutCancel(ctx), q.cacheKey(), result)
		}
		if o.publish(gen, State{Query: q, Result: result}) {
			metrics.Fetches.WithLabelValues("network").Inc()
		}

	case errors.IsCancellation(err) || ctx.Err() != nil:
		metrics.Fetches.WithLabelValues("cancelled").Inc()

	case errors.IsRateLimit(err):
		resetAt, ok := errors.ResetTime(err)
		if !ok {
			resetAt, _ = o.opts.Limiter.ResetAt()
		}
		if silent {
			o.scheduleRetry(gen, q, resetAt)
			return
		}
		o.serveLimited(ctx, gen, q, resetAt, true)

	case silent:
		o.logger.Debug("background revalidation failed",
			"query", q.Text,
			"page", q.Page,
			"error", err)

	default:
		if entry, ok := o.lastGood(ctx, q); ok {
			o.logger.Info("serving stale results after upstream failure",
				"query", q.Text,
				"page", q.Page,
				"captured_at", entry.CapturedAt().UTC().Format(time.RFC3339),
				"error", err)
			if o.publish(gen, State{Query: q, Result: entry.Data, FromCache: true, Stale: true}) {
				metrics.Fetches.WithLabelValues("stale").Inc()
			}
			return
		}

		o.logger.Warn("search failed",
			"query", q.Text,
			"page", q.Page,
			"error", err)
		if o.publish(gen, State{Query: q, Err: err}) {
			metrics.Fetches.WithLabelValues("error").Inc()
		}
	}
}

// serveLimited handles a cache miss while the quota is exhausted: any cached
// page is served regardless of age, otherwise the state stays loading until a
// retry scheduled after the reset. A limit reported by a response always
// schedules the retry, even when cached data was served.
func (o *Orchestrator) serveLimited(ctx context.Context, gen uint64, q Query, resetAt time.Time, fromResponse bool) {
	metrics := observability.GetMetrics()

	if entry, ok := o.lastGood(ctx, q); ok {
		if o.publish(gen, State{Query: q, Result: entry.Data, FromCache: true, Stale: true}) {
			metrics.Fetches.WithLabelValues("limited_cache").Inc()
		}
		if fromResponse {
			o.scheduleRetry(gen, q, resetAt)
		}
		return
	}

	retryAt := o.scheduleRetry(gen, q, resetAt)
	if o.publish(gen, State{Query: q, Loading: true, RetryAt: retryAt}) {
		metrics.Fetches.WithLabelValues("limited_wait").Inc()
	}
}

// scheduleRetry re-resolves gen shortly after resetAt, never more than
// MaxRetryDelay ahead. It returns when the retry will fire.
func (o *Orchestrator) scheduleRetry(gen uint64, q Query, resetAt time.Time) time.Time {
	now := o.now()
	delay := unknownResetDelay
	if !resetAt.IsZero() {
		delay = resetAt.Add(o.opts.RetryGrace).Sub(now)
	}
	if delay < o.opts.RetryGrace {
		delay = o.opts.RetryGrace
	}
	if delay > o.opts.MaxRetryDelay {
		delay = o.opts.MaxRetryDelay
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen || o.closed {
		return time.Time{}
	}
	o.stopTimerLocked()

	ctx := o.ctx
	o.timer = time.AfterFunc(delay, func() {
		o.mu.Lock()
		current := gen == o.gen && !o.closed
		o.timer = nil
		o.mu.Unlock()
		if !current {
			return
		}
		o.logger.Debug("retrying search after rate limit window",
			"query", q.Text,
			"page", q.Page)
		o.resolve(ctx, gen, q)
	})
	observability.GetMetrics().ScheduledRetries.Inc()

	o.logger.Info("search deferred until rate limit reset",
		"query", q.Text,
		"page", q.Page,
		"delay", delay.String())
	return now.Add(delay)
}

func (o *Orchestrator) lastGood(ctx context.Context, q Query) (kvstore.Entry[Result], bool) {
	if o.opts.LastGood == nil {
		return kvstore.Entry[Result]{}, false
	}
	return o.opts.LastGood.Get(context.WithoutCancel(ctx), q.cacheKey())
}

// publish applies st if gen is still current and notifies subscribers
func (o *Orchestrator) publish(gen uint64, st State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.gen || o.closed {
		return false
	}
	st.Generation = gen
	o.state = st

	for _, ch := range o.subscribers {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
	return true
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

package bounty

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/types"
)

const (
	// DefaultRefreshInterval is the pause between silent refreshes
	DefaultRefreshInterval = 10 * time.Minute

	// DefaultNewSignalDuration is how long the "N new" signal stays set
	DefaultNewSignalDuration = 5 * time.Second

	listKey = "list"
)

// ErrNoResults is surfaced when a user-triggered run got no search response
// and verified nothing
var ErrNoResults = stderrors.New("unable to load bounties: no search succeeded")

// Trigger names what started a run
type Trigger string

// Run triggers
const (
	TriggerInitial  Trigger = "initial"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Snapshot is the consumer view of the bounty list
type Snapshot struct {
	Records     []types.ClassificationRecord `json:"records"`
	NewCount    int                          `json:"new_count"`
	Loading     bool                         `json:"loading"`
	Err         error                        `json:"-"`
	RateLimited bool                         `json:"rate_limited"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

// RefresherOptions wires a Refresher
type RefresherOptions struct {
	Pipeline *Pipeline
	Limiter  Limiter

	// List caches the current list for cache-first loads. May be nil.
	List *kvstore.Namespace[[]types.ClassificationRecord]

	Interval          time.Duration
	NewSignalDuration time.Duration

	// OnUpdate is called with every new list, outside any lock
	OnUpdate func(records []types.ClassificationRecord)

	Logger *slog.Logger
}

// Refresher owns the current bounty list: it loads it cache-first, refreshes
// it silently on a schedule and on demand, and tracks newly seen entries.
type Refresher struct {
	opts   RefresherOptions
	logger *slog.Logger

	// runMu serialises pipeline runs
	runMu sync.Mutex

	mu        sync.Mutex
	snapshot  Snapshot
	newTimer  *time.Timer
	signalGen uint64
}

// NewRefresher creates a refresher
func NewRefresher(opts RefresherOptions) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.NewSignalDuration <= 0 {
		opts.NewSignalDuration = DefaultNewSignalDuration
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{opts: opts, logger: logger}
}

// Snapshot returns the current list and flags
func (r *Refresher) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.snapshot
	s.Records = append([]types.ClassificationRecord(nil), r.snapshot.Records...)
	return s
}

// Start loads the list and then refreshes it silently every interval until
// ctx is cancelled. Scheduled runs are skipped while rate limited.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info("bounty refresher starting",
		"interval", r.opts.Interval.String())

	if err := r.Load(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("initial bounty load failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("bounty refresher stopping")
			r.stopSignal()
			return ctx.Err()
		case <-time.After(r.opts.Interval):
			if r.opts.Limiter.IsLimited() {
				r.logger.Debug("skipping scheduled refresh while rate limited")
				observability.GetMetrics().PipelineRuns.WithLabelValues(string(TriggerSchedule), "skipped").Inc()
				continue
			}
			_ = r.run(ctx, TriggerSchedule, true)
		}
	}
}

// Load serves a cached list when one is still fresh and otherwise runs the
// pipeline as a user-visible run
func (r *Refresher) Load(ctx context.Context) error {
	if r.opts.List != nil {
		if entry, ok := r.opts.List.Get(ctx, listKey); ok {
			r.logger.Debug("serving cached bounty list",
				"records", len(entry.Data),
				"captured_at", entry.CapturedAt().UTC().Format(time.RFC3339))
			r.apply(entry.Data, entry.CapturedAt(), false, false)
			r.notify(entry.Data)
			return nil
		}
	}
	return r.run(ctx, TriggerInitial, false)
}

// Refresh forces a full run, bypassing the cached list
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.run(ctx, TriggerManual, false)
}

// run executes the pipeline once. Silent runs never surface errors and keep
// the previous list when nothing could be fetched.
func (r *Refresher) run(ctx context.Context, trigger Trigger, silent bool) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	metrics := observability.GetMetrics()
	start := time.Now()

	if !silent {
		r.mu.Lock()
		r.snapshot.Loading = true
		r.mu.Unlock()
	}

	previous := r.Snapshot().Records
	res, err := r.opts.Pipeline.Run(ctx, previous)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		r.setLoading(false)
		metrics.PipelineRuns.WithLabelValues(string(trigger), "cancelled").Inc()
		return err
	}

	if res.Successes == 0 {
		if silent {
			metrics.PipelineRuns.WithLabelValues(string(trigger), "empty").Inc()
			r.logger.Debug("silent refresh fetched nothing, keeping previous list",
				"run_id", res.RunID)
			return nil
		}
		if res.Verified == 0 {
			r.mu.Lock()
			r.snapshot.Loading = false
			r.snapshot.Err = ErrNoResults
			r.snapshot.RateLimited = res.RateLimited
			r.mu.Unlock()
			metrics.PipelineRuns.WithLabelValues(string(trigger), "error").Inc()
			return ErrNoResults
		}
	}

	newCount := 0
	if silent {
		known := make(map[int64]struct{}, len(previous))
		for _, rec := range previous {
			known[rec.Issue.ID] = struct{}{}
		}
		for _, rec := range res.Records {
			if _, ok := known[rec.Issue.ID]; !ok {
				newCount++
			}
		}
	}

	if r.opts.List != nil {
		r.opts.List.Set(ctx, listKey, res.Records)
	}
	r.apply(res.Records, time.Now(), res.RateLimited, true)
	if newCount > 0 {
		metrics.NewBounties.Add(float64(newCount))
		r.signalNew(newCount)
	}
	metrics.PipelineRuns.WithLabelValues(string(trigger), "success").Inc()
	r.notify(res.Records)
	return nil
}

func (r *Refresher) apply(records []types.ClassificationRecord, at time.Time, rateLimited, clearErr bool) {
	r.mu.Lock()
	r.snapshot.Records = records
	r.snapshot.UpdatedAt = at
	r.snapshot.Loading = false
	r.snapshot.RateLimited = rateLimited
	if clearErr {
		r.snapshot.Err = nil
	}
	r.mu.Unlock()

	observability.GetMetrics().BountiesListed.Set(float64(len(records)))
}

func (r *Refresher) setLoading(loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Loading = loading
}

// signalNew sets the "N new" count and clears it after NewSignalDuration
func (r *Refresher) signalNew(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.newTimer != nil {
		r.newTimer.Stop()
	}
	r.signalGen++
	gen := r.signalGen
	r.snapshot.NewCount = n
	r.newTimer = time.AfterFunc(r.opts.NewSignalDuration, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.signalGen == gen {
			r.snapshot.NewCount = 0
			r.newTimer = nil
		}
	})
}

func (r *Refresher) stopSignal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.newTimer != nil {
		r.newTimer.Stop()
		r.newTimer = nil
	}
}

func (r *Refresher) notify(records []types.ClassificationRecord) {
	if r.opts.OnUpdate != nil && len(records) > 0 {
		r.opts.OnUpdate(records)
	}
}

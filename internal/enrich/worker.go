// Package enrich annotates repositories with their main languages in the
// background, one upstream lookup at a time.
package enrich

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/types"
)

const (
	// DefaultPause separates consecutive upstream lookups
	DefaultPause = 300 * time.Millisecond

	// TopN is the number of languages kept per repository
	TopN = 3

	queueSize = 64
)

// LanguageGetter fetches the language byte breakdown of a repository
type LanguageGetter interface {
	GetLanguages(ctx context.Context, repo types.RepoRef) (map[string]int64, error)
}

// Limiter reports whether the shared quota is exhausted
type Limiter interface {
	IsLimited() bool
}

// Options wires a Worker
type Options struct {
	Client  LanguageGetter
	Limiter Limiter

	// Cache holds ranked languages per repository. May be nil.
	Cache *kvstore.Namespace[[]string]

	Pause  time.Duration
	Logger *slog.Logger
}

// Worker resolves language profiles for repositories seen in result lists.
// A repository is handled at most once per process, including repositories
// skipped because the quota ran out.
type Worker struct {
	opts   Options
	logger *slog.Logger
	queue  chan []types.RepoRef

	mu       sync.RWMutex
	handled  map[types.RepoRef]struct{}
	profiles map[types.RepoRef][]string
}

// NewWorker creates a worker
func NewWorker(opts Options) *Worker {
	if opts.Pause <= 0 {
		opts.Pause = DefaultPause
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		opts:     opts,
		logger:   logger,
		queue:    make(chan []types.RepoRef, queueSize),
		handled:  make(map[types.RepoRef]struct{}),
		profiles: make(map[types.RepoRef][]string),
	}
}

// Submit queues the repositories of issues for enrichment without blocking.
// A full queue drops the batch; the repositories are picked up next time.
func (w *Worker) Submit(issues []types.Issue) {
	refs := w.unhandled(issues)
	if len(refs) == 0 {
		return
	}
	select {
	case w.queue <- refs:
	default:
		w.logger.Debug("enrichment queue full, dropping batch",
			"repos", len(refs))
	}
}

// Start processes submitted batches until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("enrichment worker starting")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("enrichment worker stopping")
			return ctx.Err()
		case refs := <-w.queue:
			if err := w.Process(ctx, refs); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Process enriches refs sequentially. It stops at the first sign of rate
// limiting and marks everything not yet done as handled.
func (w *Worker) Process(ctx context.Context, refs []types.RepoRef) error {
	metrics := observability.GetMetrics()
	fetched := 0

	for i, ref := range refs {
		if w.isHandled(ref) {
			continue
		}

		if w.opts.Cache != nil {
			if entry, ok := w.opts.Cache.Get(ctx, ref.String()); ok {
				w.record(ref, entry.Data)
				metrics.EnrichmentLookups.WithLabelValues("cache").Inc()
				continue
			}
		}

		if w.opts.Limiter.IsLimited() {
			w.abort(refs[i:])
			metrics.EnrichmentLookups.WithLabelValues("rate_limited").Inc()
			return nil
		}

		if fetched > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.opts.Pause):
			}
		}
		fetched++

		langs, err := w.opts.Client.GetLanguages(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.IsRateLimit(err) {
				w.abort(refs[i:])
				metrics.EnrichmentLookups.WithLabelValues("rate_limited").Inc()
				return nil
			}
			w.logger.Debug("language lookup failed",
				"repo", ref.String(),
				"error", err)
			w.markHandled(ref)
			metrics.EnrichmentLookups.WithLabelValues("error").Inc()
			continue
		}

		top := TopLanguages(langs, TopN)
		if w.opts.Cache != nil {
			w.opts.Cache.Set(ctx, ref.String(), top)
		}
		w.record(ref, top)
		metrics.EnrichmentLookups.WithLabelValues("fetched").Inc()
	}
	return nil
}

// Lookup resolves one repository synchronously, through the cache. It does
// not consult or change the handled set.
func (w *Worker) Lookup(ctx context.Context, ref types.RepoRef) (types.LanguageProfile, error) {
	if langs, ok := w.Languages(ref); ok {
		return types.LanguageProfile{Repo: ref, Languages: langs}, nil
	}
	if w.opts.Cache != nil {
		if entry, ok := w.opts.Cache.Get(ctx, ref.String()); ok {
			return types.LanguageProfile{Repo: ref, Languages: entry.Data}, nil
		}
	}

	langs, err := w.opts.Client.GetLanguages(ctx, ref)
	if err != nil {
		return types.LanguageProfile{}, err
	}
	top := TopLanguages(langs, TopN)
	if w.opts.Cache != nil {
		w.opts.Cache.Set(ctx, ref.String(), top)
	}
	w.record(ref, top)
	return types.LanguageProfile{Repo: ref, Languages: top}, nil
}

// Languages returns the resolved languages for ref
func (w *Worker) Languages(ref types.RepoRef) ([]string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	langs, ok := w.profiles[ref]
	return langs, ok
}

// Profiles returns every resolved profile for the given issues
func (w *Worker) Profiles(issues []types.Issue) map[string][]string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string][]string)
	for _, issue := range issues {
		ref, ok := issue.Repo()
		if !ok {
			continue
		}
		if langs, ok := w.profiles[ref]; ok {
			out[ref.String()] = langs
		}
	}
	return out
}

// TopLanguages ranks languages by byte count, descending, and keeps n
func TopLanguages(bytes map[string]int64, n int) []string {
	names := make([]string, 0, len(bytes))
	for name := range bytes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if bytes[names[i]] != bytes[names[j]] {
			return bytes[names[i]] > bytes[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func (w *Worker) unhandled(issues []types.Issue) []types.RepoRef {
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[types.RepoRef]struct{})
	var refs []types.RepoRef
	for _, issue := range issues {
		ref, ok := issue.Repo()
		if !ok {
			continue
		}
		if _, done := w.handled[ref]; done {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

func (w *Worker) isHandled(ref types.RepoRef) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.handled[ref]
	return ok
}

func (w *Worker) markHandled(ref types.RepoRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handled[ref] = struct{}{}
}

func (w *Worker) record(ref types.RepoRef, langs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handled[ref] = struct{}{}
	w.profiles[ref] = langs
}

func (w *Worker) abort(remaining []types.RepoRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ref := range remaining {
		w.handled[ref] = struct{}{}
	}
	w.logger.Info("rate limited, skipping remaining language lookups",
		"skipped", len(remaining))
}

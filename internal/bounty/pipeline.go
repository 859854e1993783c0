// Package bounty turns noisy issue search hits into a short list of
// verified bounty opportunities and keeps that list fresh.
package bounty

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/devlopersumit/issuehub/internal/classify"
	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/policy"
	"github.com/devlopersumit/issuehub/internal/types"
)

// DefaultQueries are the three fan-out searches. They are written to be
// disjoint so each spends quota on different hits.
var DefaultQueries = []string{
	`label:bounty is:issue is:open no:assignee`,
	`bounty in:title,body -label:bounty is:issue is:open no:assignee`,
	`reward in:title,body -bounty -label:bounty is:issue is:open no:assignee`,
}

// Pipeline defaults
const (
	DefaultQueryDelay = 2 * time.Second
	DefaultBatchSize  = 2
	DefaultBatchPause = 2 * time.Second
	DefaultMaxResults = 30
	DefaultPerPage    = 50
)

// Searcher runs issue searches
type Searcher interface {
	SearchIssues(ctx context.Context, params github.SearchParams) (*github.IssueSearchResult, error)
}

// RepositoryGetter fetches repository metadata
type RepositoryGetter interface {
	GetRepository(ctx context.Context, repo types.RepoRef) (*types.Repository, error)
}

// Limiter reports whether the shared quota is exhausted
type Limiter interface {
	IsLimited() bool
}

// Options wires a Pipeline
type Options struct {
	Searcher     Searcher
	Repositories RepositoryGetter
	Limiter      Limiter
	Evaluator    policy.LegitimacyEvaluator

	// Legitimacy caches verdicts per repository. May be nil.
	Legitimacy *kvstore.Namespace[types.Legitimacy]

	// Rules defaults to classify.DefaultRules()
	Rules *classify.RuleSet

	Queries    []string
	QueryDelay time.Duration
	BatchSize  int
	BatchPause time.Duration
	MaxResults int
	PerPage    int

	Logger *slog.Logger
	Now    func() time.Time
}

// RunResult summarises one pipeline run
type RunResult struct {
	RunID       string
	Records     []types.ClassificationRecord
	Successes   int
	Verified    int
	RateLimited bool
}

// Pipeline runs stages A to F
type Pipeline struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline creates a pipeline, filling in defaults
func NewPipeline(opts Options) *Pipeline {
	if opts.Rules == nil {
		opts.Rules = classify.DefaultRules()
	}
	if len(opts.Queries) == 0 {
		opts.Queries = DefaultQueries
	}
	if opts.QueryDelay <= 0 {
		opts.QueryDelay = DefaultQueryDelay
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = DefaultBatchPause
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{opts: opts, logger: logger, now: now}
}

// Run executes one pass and merges the outcome into previous. It only fails
// when ctx is cancelled; upstream failures are reflected in the counters.
func (p *Pipeline) Run(ctx context.Context, previous []types.ClassificationRecord) (*RunResult, error) {
	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)
	metrics := observability.GetMetrics()

	result := &RunResult{RunID: runID}

	hits, err := p.fanOut(ctx, logger, result)
	if err != nil {
		return nil, err
	}
	metrics.StageCandidates.WithLabelValues("search").Add(float64(len(hits)))

	var candidates []types.ClassificationRecord
	for _, issue := range hits {
		decision := p.opts.Rules.Classify(issue)
		if !decision.Accepted {
			logger.Debug("candidate filtered",
				"issue_id", issue.ID,
				"reason", decision.Reason)
			continue
		}
		candidates = append(candidates, types.ClassificationRecord{
			Issue:    issue,
			ViaLabel: decision.ViaLabel,
		})
	}
	metrics.StageCandidates.WithLabelValues("content").Add(float64(len(candidates)))

	verified, err := p.verify(ctx, logger, candidates, result)
	if err != nil {
		return nil, err
	}
	metrics.StageCandidates.WithLabelValues("legitimacy").Add(float64(len(verified)))

	result.Records = Merge(verified, previous, p.opts.Rules, p.opts.MaxResults)

	logger.Info("bounty pipeline completed",
		"successful_queries", result.Successes,
		"hits", len(hits),
		"candidates", len(candidates),
		"verified", result.Verified,
		"accepted", len(verified),
		"listed", len(result.Records),
		"rate_limited", result.RateLimited)

	return result, nil
}

// fanOut runs the searches one after another, pausing between them, and stops
// at the first rate limit. Hits are deduplicated by identifier.
func (p *Pipeline) fanOut(ctx context.Context, logger *slog.Logger, result *RunResult) ([]types.Issue, error) {
	seen := make(map[int64]struct{})
	var hits []types.Issue

	for i, q := range p.opts.Queries {
		if i > 0 {
			if err := sleep(ctx, p.opts.QueryDelay); err != nil {
				return nil, err
			}
		}

		res, err := p.opts.Searcher.SearchIssues(ctx, github.SearchParams{
			Query:   q,
			PerPage: p.opts.PerPage,
			Sort:    "created",
			Order:   "desc",
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.IsRateLimit(err) {
				result.RateLimited = true
				logger.Warn("rate limited during fan-out, skipping remaining queries",
					"query_index", i,
					"remaining_queries", len(p.opts.Queries)-i-1)
				break
			}
			logger.Warn("fan-out query failed",
				"query_index", i,
				"error", err)
			continue
		}

		result.Successes++
		for _, issue := range res.Items {
			if _, dup := seen[issue.ID]; dup {
				continue
			}
			seen[issue.ID] = struct{}{}
			hits = append(hits, issue)
		}
	}
	return hits, nil
}

type repoVerdict struct {
	repo       types.RepoRef
	legitimacy types.Legitimacy
	limited    bool
	cache      bool
}

// verify attaches a legitimacy verdict to each candidate and drops rejected
// ones. While the quota is exhausted nothing is looked up and everything is
// accepted provisionally.
func (p *Pipeline) verify(ctx context.Context, logger *slog.Logger, candidates []types.ClassificationRecord, result *RunResult) ([]types.ClassificationRecord, error) {
	metrics := observability.GetMetrics()
	verdicts := make(map[types.RepoRef]types.Legitimacy)

	limited := result.RateLimited || p.opts.Limiter.IsLimited()
	if limited {
		logger.Info("skipping legitimacy verification while rate limited",
			"candidates", len(candidates))
		result.RateLimited = true
	}

	// repositories still to look up, in candidate order
	var pending []types.RepoRef
	queued := make(map[types.RepoRef]struct{})
	for _, c := range candidates {
		ref, ok := c.Issue.Repo()
		if !ok || limited {
			continue
		}
		if _, done := queued[ref]; done {
			continue
		}
		queued[ref] = struct{}{}

		if p.opts.Legitimacy != nil {
			if entry, hit := p.opts.Legitimacy.Get(ctx, ref.String()); hit {
				verdicts[ref] = entry.Data
				metrics.Verifications.WithLabelValues(string(entry.Data.Verdict), "cache").Inc()
				continue
			}
		}
		pending = append(pending, ref)
	}

	for start := 0; start < len(pending) && !limited; start += p.opts.BatchSize {
		if start > 0 {
			if err := sleep(ctx, p.opts.BatchPause); err != nil {
				return nil, err
			}
		}

		end := start + p.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		lookups := make([]repoVerdict, len(batch))

		var g errgroup.Group
		for i, ref := range batch {
			g.Go(func() error {
				lookups[i] = p.lookup(ctx, logger, ref)
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for _, l := range lookups {
			verdicts[l.repo] = l.legitimacy
			metrics.Verifications.WithLabelValues(string(l.legitimacy.Verdict), "upstream").Inc()
			if l.cache && p.opts.Legitimacy != nil {
				p.opts.Legitimacy.Set(ctx, l.repo.String(), l.legitimacy)
			}
			if l.limited {
				limited = true
			}
		}
		if limited {
			result.RateLimited = true
			logger.Warn("rate limited during verification, accepting remaining candidates provisionally",
				"unverified_repos", len(pending)-end)
		}
	}

	var accepted []types.ClassificationRecord
	for _, c := range candidates {
		ref, ok := c.Issue.Repo()
		if !ok {
			continue
		}
		legitimacy, known := verdicts[ref]
		if !known {
			legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictProvisional, Reason: "verification skipped while rate limited"}
		}
		if legitimacy.Verdict == types.VerdictRejected {
			continue
		}
		c.Legitimacy = legitimacy
		c.Verified = legitimacy.Verdict == types.VerdictLegitimate
		if c.Verified {
			result.Verified++
		}
		accepted = append(accepted, c)
	}
	return accepted, nil
}

// lookup fetches and judges one repository. Only definitive verdicts are cached.
func (p *Pipeline) lookup(ctx context.Context, logger *slog.Logger, ref types.RepoRef) repoVerdict {
	out := repoVerdict{repo: ref}

	repo, err := p.opts.Repositories.GetRepository(ctx, ref)
	switch {
	case err == nil:
	case errors.IsRateLimit(err):
		out.limited = true
		out.legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictProvisional, Reason: "rate limited during verification"}
		return out
	case errors.IsNotFound(err):
		out.legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictRejected, Reason: "repository not found"}
		return out
	default:
		logger.Debug("repository lookup failed",
			"repo", ref.String(),
			"error", err)
		out.legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictProvisional, Reason: "repository lookup failed"}
		return out
	}

	decision, err := p.opts.Evaluator.Evaluate(repo, p.now())
	if err != nil {
		logger.Warn("legitimacy rule evaluation failed",
			"repo", ref.String(),
			"error", err)
		out.legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictProvisional, Reason: "rule evaluation failed"}
		return out
	}

	out.cache = true
	out.legitimacy = types.Legitimacy{Repo: ref, Verdict: types.VerdictRejected, Reason: decision.Reason}
	if decision.Legitimate {
		out.legitimacy.Verdict = types.VerdictLegitimate
	}
	return out
}

// Merge combines fresh records with previously accepted ones that still pass
// the content rules. Fresh records win on identifier clashes. The result is
// ordered newest first and holds at most max records.
func Merge(fresh, previous []types.ClassificationRecord, rules *classify.RuleSet, max int) []types.ClassificationRecord {
	if rules == nil {
		rules = classify.DefaultRules()
	}

	merged := make([]types.ClassificationRecord, 0, len(fresh)+len(previous))
	seen := make(map[int64]struct{}, len(fresh)+len(previous))

	for _, r := range fresh {
		if _, dup := seen[r.Issue.ID]; dup {
			continue
		}
		seen[r.Issue.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range previous {
		if _, dup := seen[r.Issue.ID]; dup {
			continue
		}
		if !rules.PassesContent(r.Issue) {
			continue
		}
		seen[r.Issue.ID] = struct{}{}
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].Issue, merged[j].Issue
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Package app wires the service components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devlopersumit/issuehub/internal/api"
	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/cache"
	"github.com/devlopersumit/issuehub/internal/config"
	"github.com/devlopersumit/issuehub/internal/enrich"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/mcpserver"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/policy"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/retry"
	"github.com/devlopersumit/issuehub/internal/types"
)

// App holds the wired components shared by every entry point
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store       kvstore.Store
	Tracker     *ratelimit.Tracker
	Client      *github.RESTClient
	TokenSource string

	Sessions  *fetch.Pool
	Pipeline  *bounty.Pipeline
	Refresher *bounty.Refresher

	// Enricher is nil when enrichment is disabled
	Enricher *enrich.Worker

	Health *observability.HealthChecker

	daily    *cache.Volatile[fetch.Result]
	lastGood *kvstore.Namespace[fetch.Result]
}

// OpenStore opens the configured persistent store
func OpenStore(cfg config.StateStoreConfig) (kvstore.Store, error) {
	switch cfg.Type {
	case "sqlite":
		store, err := kvstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		return store, nil
	case "memory":
		return kvstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported state store type: %s", cfg.Type)
	}
}

// New opens the store and wires every component. The caller owns the
// returned App and must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterComponent("config")
	healthChecker.UpdateComponentHealth("config", observability.StatusHealthy, "")

	logger.Debug("initializing state store",
		"type", cfg.StateStore.Type)
	store, err := OpenStore(cfg.StateStore)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Health: healthChecker,
	}

	if err := a.wire(); err != nil {
		_ = store.Close()
		return nil, err
	}
	a.registerHealthChecks()
	return a, nil
}

func (a *App) wire() error {
	cfg, logger := a.Config, a.Logger

	a.Tracker = ratelimit.NewTracker(a.Store, logger)

	httpClient, source, err := github.NewHTTPClient(github.TransportOptions{
		Host:          cfg.GitHub.Host,
		Token:         cfg.GitHub.Token,
		DiscoverToken: cfg.GitHub.DiscoverToken,
		Timeout:       cfg.GitHub.Timeout,
	})
	if err != nil {
		return err
	}
	a.TokenSource = source
	a.Client = github.NewRESTClient(cfg.GitHub.BaseURL, httpClient, a.Tracker, logger)
	logger.Debug("upstream client initialized",
		"base_url", cfg.GitHub.BaseURL,
		"auth", source)

	a.daily = cache.NewVolatile[fetch.Result](0)
	a.lastGood = kvstore.NewNamespace[fetch.Result](a.Store, kvstore.SearchPolicy, logger)
	a.Sessions = fetch.NewPool(a.SearchOptions(), cfg.Search.SessionPoolSize)

	engine, err := policy.NewEngine(logger, cfg.Bounty.Legitimacy)
	if err != nil {
		return fmt.Errorf("failed to initialize legitimacy policy: %w", err)
	}
	logger.Debug("legitimacy policy initialized",
		"expression", engine.Expression())

	a.Pipeline = bounty.NewPipeline(bounty.Options{
		Searcher:     a.Client,
		Repositories: a.Client,
		Limiter:      a.Tracker,
		Evaluator:    engine,
		Legitimacy:   kvstore.NewNamespace[types.Legitimacy](a.Store, kvstore.LegitimacyPolicy, logger),
		Queries:      cfg.Bounty.Queries,
		QueryDelay:   cfg.Bounty.QueryDelay,
		BatchSize:    cfg.Bounty.BatchSize,
		BatchPause:   cfg.Bounty.BatchPause,
		MaxResults:   cfg.Bounty.MaxResults,
		Logger:       logger,
	})

	if cfg.Enrichment.Enabled {
		a.Enricher = enrich.NewWorker(enrich.Options{
			Client:  a.Client,
			Limiter: a.Tracker,
			Cache:   kvstore.NewNamespace[[]string](a.Store, kvstore.LanguagePolicy, logger),
			Pause:   cfg.Enrichment.Pause,
			Logger:  logger,
		})
	}

	a.Refresher = bounty.NewRefresher(bounty.RefresherOptions{
		Pipeline:          a.Pipeline,
		Limiter:           a.Tracker,
		List:              kvstore.NewNamespace[[]types.ClassificationRecord](a.Store, kvstore.BountyPolicy, logger),
		Interval:          cfg.Bounty.RefreshInterval,
		NewSignalDuration: cfg.Bounty.NewSignalDuration,
		OnUpdate:          a.enrichRecords,
		Logger:            logger,
	})
	return nil
}

// SearchOptions returns the orchestrator options; every orchestrator built
// from them shares the daily cache and the last good pages
func (a *App) SearchOptions() fetch.Options {
	return fetch.Options{
		Searcher: a.Client,
		Limiter:  a.Tracker,
		Daily:    a.daily,
		LastGood: a.lastGood,
		Retry: retry.Policy{
			MaxAttempts: a.Config.Search.RetryAttempts,
			Backoff:     retry.Exponential(a.Config.Search.RetryBackoff),
			Retryable:   retry.ServerErrorsOnly,
			Logger:      a.Logger,
		},
		FreshTTL:      a.Config.Search.FreshTTL,
		MaxRetryDelay: a.Config.Search.MaxRetryDelay,
		Logger:        a.Logger,
	}
}

// EnrichIssues queues the repositories of issues for language enrichment
func (a *App) EnrichIssues(issues []types.Issue) {
	if a.Enricher != nil {
		a.Enricher.Submit(issues)
	}
}

func (a *App) enrichRecords(records []types.ClassificationRecord) {
	issues := make([]types.Issue, len(records))
	for i, rec := range records {
		issues[i] = rec.Issue
	}
	a.EnrichIssues(issues)
}

// Languages returns language profiles for issues, or nil when enrichment is disabled
func (a *App) Languages(issues []types.Issue) map[string][]string {
	if a.Enricher == nil {
		return nil
	}
	return a.Enricher.Profiles(issues)
}

// APIDependencies wires the HTTP API to the components
func (a *App) APIDependencies() api.Dependencies {
	deps := api.Dependencies{
		Sessions:       a.Sessions,
		Repositories:   a.Client,
		Bounties:       a.Refresher,
		Quota:          a.Tracker,
		ResolveTimeout: a.Config.Search.ResolveTimeout,
	}
	if a.Enricher != nil {
		deps.Languages = a.Enricher
	}
	return deps
}

// MCPDependencies wires the MCP tools to the components. All tool calls
// share one orchestrator.
func (a *App) MCPDependencies() mcpserver.Dependencies {
	deps := mcpserver.Dependencies{
		Searcher:       a.Sessions.Session("mcp"),
		Bounties:       a.Refresher,
		Quota:          a.Tracker,
		ResolveTimeout: a.Config.Search.ResolveTimeout,
	}
	if a.Enricher != nil {
		deps.Languages = a.Enricher
	}
	return deps
}

func (a *App) registerHealthChecks() {
	a.Health.RegisterCheck("store", a.Store.Ping)

	a.Health.RegisterCheck("upstream", func(ctx context.Context) error {
		if resetAt, limited := a.Tracker.ResetAt(); limited {
			return fmt.Errorf("rate limited until %s: %w", resetAt.UTC().Format(time.RFC3339), observability.ErrDegraded)
		}
		return nil
	})

	a.Health.RegisterCheck("bounties", func(ctx context.Context) error {
		if err := a.Refresher.Snapshot().Err; err != nil {
			return fmt.Errorf("%v: %w", err, observability.ErrDegraded)
		}
		return nil
	})

	if a.Enricher != nil {
		a.Health.RegisterComponent("enrichment")
		a.Health.UpdateComponentHealth("enrichment", observability.StatusHealthy, "")
	}
}

// Close releases sessions and the store
func (a *App) Close() error {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	return a.Store.Close()
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/config"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/types"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		GitHub: config.GitHubConfig{
			BaseURL: baseURL,
			Host:    "github.com",
			Timeout: 5 * time.Second,
		},
		Search: config.SearchConfig{
			FreshTTL:        24 * time.Hour,
			MaxRetryDelay:   time.Hour,
			RetryAttempts:   1,
			RetryBackoff:    time.Millisecond,
			PerPage:         30,
			SessionPoolSize: 4,
			ResolveTimeout:  5 * time.Second,
		},
		Bounty: config.BountyConfig{
			Queries:           []string{"label:bounty"},
			BatchSize:         5,
			MaxResults:        50,
			RefreshInterval:   time.Hour,
			NewSignalDuration: time.Minute,
		},
		StateStore: config.StateStoreConfig{Type: "memory"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg, observability.NewLogger("error"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func runChecks(a *App) observability.HealthStatus {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Health.Run(ctx, time.Hour)
	return a.Health.GetHealth()
}

func TestNewWiresComponents(t *testing.T) {
	a := newTestApp(t, testConfig("http://127.0.0.1:1"))

	assert.NotNil(t, a.Tracker)
	assert.NotNil(t, a.Client)
	assert.NotNil(t, a.Sessions)
	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Refresher)
	assert.Nil(t, a.Enricher)
	assert.Equal(t, "anonymous", a.TokenSource)

	deps := a.APIDependencies()
	assert.Nil(t, deps.Languages, "disabled enrichment must leave the interface nil")
	assert.Equal(t, 5*time.Second, deps.ResolveTimeout)
	assert.Nil(t, a.MCPDependencies().Languages)
	assert.Nil(t, a.Languages([]types.Issue{{Number: 1}}))

	a.EnrichIssues([]types.Issue{{Number: 1}})
}

func TestNewWithEnrichment(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enrichment = config.EnrichmentConfig{Enabled: true, Pause: time.Millisecond}
	a := newTestApp(t, cfg)

	require.NotNil(t, a.Enricher)
	assert.NotNil(t, a.APIDependencies().Languages)
	assert.NotNil(t, a.MCPDependencies().Languages)

	status := runChecks(a)
	assert.Equal(t, observability.StatusHealthy, status.Components["enrichment"].Status)
}

func TestNewSQLiteStore(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.StateStore = config.StateStoreConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "issuehub.db"),
	}
	a := newTestApp(t, cfg)

	require.NoError(t, a.Store.Ping(context.Background()))
}

func TestOpenStoreUnsupported(t *testing.T) {
	_, err := OpenStore(config.StateStoreConfig{Type: "postgres"})
	assert.Error(t, err)
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Bounty.Legitimacy.Expression = "stars >"

	_, err := New(cfg, observability.NewLogger("error"))
	assert.Error(t, err)
}

func TestUpstreamHealthDegradedWhileLimited(t *testing.T) {
	a := newTestApp(t, testConfig("http://127.0.0.1:1"))

	status := runChecks(a)
	assert.Equal(t, observability.StatusHealthy, status.Components["upstream"].Status)
	assert.Equal(t, observability.StatusHealthy, status.Components["store"].Status)

	a.Tracker.MarkLimited(time.Now().Add(time.Hour))

	status = runChecks(a)
	assert.Equal(t, observability.StatusDegraded, status.Components["upstream"].Status)
	assert.Contains(t, status.Components["upstream"].Message, "rate limited until")
	assert.Equal(t, observability.StatusDegraded, status.Status)
}

func TestSessionsShareDailyCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "20")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"total_count": 1,
			"items": []map[string]interface{}{
				{
					"id":             1,
					"number":         3,
					"title":          "Add retries",
					"state":          "open",
					"repository_url": "https://api.github.com/repos/acme/widgets",
					"created_at":     "2026-10-01T10:00:00Z",
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.Search.FreshTTL = time.Hour
	a := newTestApp(t, cfg)

	q := fetch.Query{Text: "is:issue retries", Page: 1, PerPage: 30}
	st, err := a.Sessions.Session("first").Resolve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, st.Result.Issues, 1)
	assert.False(t, st.FromCache)

	st, err = a.Sessions.Session("second").Resolve(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, st.FromCache)
	assert.Equal(t, "Add retries", st.Result.Issues[0].Title)
}

func TestBountiesHealthDegradedOnRefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	a := newTestApp(t, testConfig(server.URL))

	err := a.Refresher.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, bounty.ErrNoResults)

	status := runChecks(a)
	assert.Equal(t, observability.StatusDegraded, status.Components["bounties"].Status)
}

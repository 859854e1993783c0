// Package github is the upstream search and metadata client.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/observability"
	"github.com/devlopersumit/issuehub/internal/types"
)

// DefaultBaseURL is the public REST endpoint
const DefaultBaseURL = "https://api.github.com"

// Client is the subset of the upstream API the service depends on
type Client interface {
	// SearchIssues runs an issue search
	SearchIssues(ctx context.Context, params SearchParams) (*IssueSearchResult, error)

	// SearchRepositories runs a repository search
	SearchRepositories(ctx context.Context, params SearchParams) (*RepositorySearchResult, error)

	// GetRepository fetches single-repository metadata
	GetRepository(ctx context.Context, repo types.RepoRef) (*types.Repository, error)

	// GetLanguages fetches the language byte breakdown of a repository
	GetLanguages(ctx context.Context, repo types.RepoRef) (map[string]int64, error)
}

// HTTPDoer performs HTTP requests (allows substituting transports in tests)
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HeaderObserver receives the headers of every upstream response
type HeaderObserver interface {
	Update(h http.Header)
}

// SearchParams describes one page of a search
type SearchParams struct {
	Query   string
	Page    int
	PerPage int
	Sort    string
	Order   string
}

// IssueSearchResult is one page of issue search hits
type IssueSearchResult struct {
	TotalCount        int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []types.Issue `json:"items"`
}

// RepositorySearchResult is one page of repository search hits
type RepositorySearchResult struct {
	TotalCount        int                `json:"total_count"`
	IncompleteResults bool               `json:"incomplete_results"`
	Items             []types.Repository `json:"items"`
}

// RESTClient implements Client over the REST API
type RESTClient struct {
	baseURL  string
	http     HTTPDoer
	observer HeaderObserver
	logger   *slog.Logger
}

// NewRESTClient creates a client. observer may be nil.
func NewRESTClient(baseURL string, httpClient HTTPDoer, observer HeaderObserver, logger *slog.Logger) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		observer: observer,
		logger:   logger,
	}
}

// SearchIssues runs GET /search/issues
func (c *RESTClient) SearchIssues(ctx context.Context, params SearchParams) (*IssueSearchResult, error) {
	var out IssueSearchResult
	if err := c.get(ctx, "search_issues", "/search/issues", params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchRepositories runs GET /search/repositories
func (c *RESTClient) SearchRepositories(ctx context.Context, params SearchParams) (*RepositorySearchResult, error) {
	var out RepositorySearchResult
	if err := c.get(ctx, "search_repositories", "/search/repositories", params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRepository runs GET /repos/{owner}/{repo}
func (c *RESTClient) GetRepository(ctx context.Context, repo types.RepoRef) (*types.Repository, error) {
	var out types.Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name))
	if err := c.get(ctx, "get_repository", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLanguages runs GET /repos/{owner}/{repo}/languages
func (c *RESTClient) GetLanguages(ctx context.Context, repo types.RepoRef) (map[string]int64, error) {
	out := make(map[string]int64)
	path := fmt.Sprintf("/repos/%s/%s/languages", url.PathEscape(repo.Owner), url.PathEscape(repo.Name))
	if err := c.get(ctx, "get_languages", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	return v
}

// get performs a request, feeds the response headers to the observer and
// classifies non-2xx statuses into the error taxonomy
func (c *RESTClient) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.NewPermanentf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	metrics := observability.GetMetrics()
	start := time.Now()

	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.UpstreamRequests.WithLabelValues(endpoint, "network_error").Inc()
		return &errors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

	if c.observer != nil {
		c.observer.Update(resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := readMessage(resp.Body)
		remaining := -1
		if raw := resp.Header.Get("X-RateLimit-Remaining"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				remaining = n
			}
		}
		var resetAt time.Time
		if raw := resp.Header.Get("X-RateLimit-Reset"); raw != "" {
			if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
				resetAt = time.Unix(secs, 0)
			}
		}

		c.logger.Debug("upstream request failed",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"remaining", remaining,
			"message", message)
		return errors.ClassifyStatus(resp.StatusCode, remaining, resetAt, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewTransientf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

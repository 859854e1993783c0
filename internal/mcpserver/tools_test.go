package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"

	"github.com/devlopersumit/issuehub/internal/bounty"
	apperrors "github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/types"
)

type fakeSearcher struct {
	last  fetch.Query
	state fetch.State
	err   error
}

func (f *fakeSearcher) Resolve(ctx context.Context, q fetch.Query) (fetch.State, error) {
	f.last = q
	st := f.state
	st.Query = q
	return st, f.err
}

type fakeBounties struct {
	snapshot   bounty.Snapshot
	refreshErr error
	refreshes  int
}

func (f *fakeBounties) Snapshot() bounty.Snapshot { return f.snapshot }

func (f *fakeBounties) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.refreshErr
}

type fakeLanguages struct {
	langs     []string
	err       error
	profiles  map[string][]string
	submitted [][]types.Issue
}

func (f *fakeLanguages) Lookup(ctx context.Context, ref types.RepoRef) (types.LanguageProfile, error) {
	return types.LanguageProfile{Repo: ref, Languages: f.langs}, f.err
}

func (f *fakeLanguages) Submit(issues []types.Issue) {
	f.submitted = append(f.submitted, issues)
}

func (f *fakeLanguages) Profiles(issues []types.Issue) map[string][]string {
	return f.profiles
}

// ToolsTestSuite exercises the tool handlers directly
type ToolsTestSuite struct {
	suite.Suite
	ctx       context.Context
	searcher  *fakeSearcher
	bounties  *fakeBounties
	languages *fakeLanguages
	tracker   *ratelimit.Tracker
	server    *Server
}

// SetupTest creates a fresh server for each test
func (s *ToolsTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.searcher = &fakeSearcher{}
	s.bounties = &fakeBounties{}
	s.languages = &fakeLanguages{}
	s.tracker = ratelimit.NewTracker(kvstore.NewMemoryStore(), nil)
	s.server = NewServer(Dependencies{
		Searcher:  s.searcher,
		Bounties:  s.bounties,
		Quota:     s.tracker,
		Languages: s.languages,
	}, nil)
}

func (s *ToolsTestSuite) call(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (map[string]interface{}, error) {
	request := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
	result, err := handler(s.ctx, request)
	if err != nil {
		return nil, err
	}
	s.Require().Len(result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	s.Require().True(ok, "expected text content")

	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func (s *ToolsTestSuite) requireCode(err error, code int) {
	var mcpErr *MCPError
	s.Require().True(errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	s.Equal(code, mcpErr.Code)
}

func (s *ToolsTestSuite) TestRegisteredTools() {
	tools := s.server.mcp.ListTools()
	for _, name := range []string{"search_issues", "list_bounties", "refresh_bounties", "rate_limit_status", "repo_languages"} {
		s.Contains(tools, name)
	}

	withoutLanguages := NewServer(Dependencies{Searcher: s.searcher, Bounties: s.bounties, Quota: s.tracker}, nil)
	s.NotContains(withoutLanguages.mcp.ListTools(), "repo_languages")
}

func (s *ToolsTestSuite) TestSearchIssues() {
	s.searcher.state = fetch.State{
		Result: fetch.Result{
			TotalCount: 1,
			Issues: []types.Issue{{
				ID:            5,
				Title:         "Add retries",
				HTMLURL:       "https://github.com/octo/widgets/issues/5",
				RepositoryURL: "https://api.github.com/repos/octo/widgets",
				Labels:        []types.Label{{Name: "help wanted"}},
			}},
		},
		FromCache: true,
	}

	out, err := s.call(s.server.handleSearchIssues, map[string]interface{}{
		"query":    "retries",
		"language": "go",
		"labels":   []interface{}{"help wanted", 3},
		"page":     float64(2),
	})
	s.Require().NoError(err)

	s.Equal(`retries is:issue is:open language:go label:"help wanted"`, s.searcher.last.Text)
	s.Equal(2, s.searcher.last.Page)
	s.Equal(fetch.DefaultPerPage, s.searcher.last.PerPage)
	s.Equal(float64(1), out["total_count"])
	s.Equal(true, out["from_cache"])
	s.NotContains(out, "pending")

	issues := out["issues"].([]interface{})
	s.Require().Len(issues, 1)
	s.Equal("octo/widgets", issues[0].(map[string]interface{})["repository"])
	s.NotContains(issues[0].(map[string]interface{}), "languages")
}

func (s *ToolsTestSuite) TestSearchIssuesQueuesEnrichment() {
	page := []types.Issue{{
		ID:            5,
		Title:         "Add retries",
		RepositoryURL: "https://api.github.com/repos/octo/widgets",
	}}
	s.searcher.state = fetch.State{Result: fetch.Result{TotalCount: 1, Issues: page}}
	s.languages.profiles = map[string][]string{"octo/widgets": {"Go", "Shell"}}

	out, err := s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "retries"})
	s.Require().NoError(err)

	s.Require().Len(s.languages.submitted, 1)
	s.Equal(page, s.languages.submitted[0])

	issues := out["issues"].([]interface{})
	s.Require().Len(issues, 1)
	s.Equal([]interface{}{"Go", "Shell"}, issues[0].(map[string]interface{})["languages"])
}

func (s *ToolsTestSuite) TestSearchIssuesPending() {
	s.searcher.state = fetch.State{Loading: true, RetryAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}

	out, err := s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "x"})
	s.Require().NoError(err)
	s.Equal(true, out["pending"])
	s.Equal("2025-05-01T10:00:00Z", out["retry_at"])
}

func (s *ToolsTestSuite) TestSearchIssuesErrors() {
	_, err := s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "x", "per_page": float64(500)})
	s.requireCode(err, ErrorCodeInvalidParams)

	s.searcher.state = fetch.State{Err: &apperrors.InvalidQueryError{Status: 422, Reason: "invalid query"}}
	_, err = s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "x"})
	s.requireCode(err, ErrorCodeInvalidQuery)

	s.searcher.state = fetch.State{Err: &apperrors.ServiceUnavailableError{Status: 502}}
	_, err = s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "x"})
	s.requireCode(err, ErrorCodeUpstream)

	s.searcher.state = fetch.State{}
	s.searcher.err = fetch.ErrSuperseded
	_, err = s.call(s.server.handleSearchIssues, map[string]interface{}{"query": "x"})
	s.requireCode(err, ErrorCodeInternalError)
}

func (s *ToolsTestSuite) TestListBounties() {
	s.bounties.snapshot = bounty.Snapshot{
		Records: []types.ClassificationRecord{
			{Issue: types.Issue{ID: 3, Title: "a"}, Verified: true},
			{Issue: types.Issue{ID: 2, Title: "b"}, Verified: false},
			{Issue: types.Issue{ID: 1, Title: "c"}, Verified: true, ViaLabel: true},
		},
		RateLimited: true,
	}

	out, err := s.call(s.server.handleListBounties, map[string]interface{}{"limit": float64(2)})
	s.Require().NoError(err)
	s.Equal(float64(2), out["count"])
	s.Equal(true, out["rate_limited"])

	out, err = s.call(s.server.handleListBounties, map[string]interface{}{"verified_only": true})
	s.Require().NoError(err)
	bounties := out["bounties"].([]interface{})
	s.Require().Len(bounties, 2)
	s.Equal(float64(1), bounties[1].(map[string]interface{})["id"])
	s.Equal(true, bounties[1].(map[string]interface{})["via_label"])

	_, err = s.call(s.server.handleListBounties, map[string]interface{}{"limit": float64(0)})
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ToolsTestSuite) TestRefreshBounties() {
	s.bounties.snapshot = bounty.Snapshot{
		Records: []types.ClassificationRecord{{Issue: types.Issue{ID: 1}}},
		Err:     bounty.ErrNoResults,
	}

	out, err := s.call(s.server.handleRefreshBounties, nil)
	s.Require().NoError(err)
	s.Equal(1, s.bounties.refreshes)
	s.Equal(float64(1), out["count"])
	s.Equal(bounty.ErrNoResults.Error(), out["error"])

	s.bounties.refreshErr = context.Canceled
	_, err = s.call(s.server.handleRefreshBounties, nil)
	s.requireCode(err, ErrorCodeInternalError)
}

func (s *ToolsTestSuite) TestRateLimitStatus() {
	out, err := s.call(s.server.handleRateLimitStatus, nil)
	s.Require().NoError(err)
	s.Equal(false, out["limited"])
	s.NotContains(out, "reset_at")

	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	s.tracker.MarkLimited(reset)

	out, err = s.call(s.server.handleRateLimitStatus, nil)
	s.Require().NoError(err)
	s.Equal(true, out["limited"])
	s.Equal(float64(0), out["remaining"])
	s.Equal(reset.UTC().Format(time.RFC3339), out["reset_at"])
}

func (s *ToolsTestSuite) TestRepoLanguages() {
	s.languages.langs = []string{"Go", "Makefile"}

	out, err := s.call(s.server.handleRepoLanguages, map[string]interface{}{"repo": "octo/widgets"})
	s.Require().NoError(err)
	s.Equal("octo/widgets", out["repo"])
	s.Equal([]interface{}{"Go", "Makefile"}, out["languages"])

	_, err = s.call(s.server.handleRepoLanguages, map[string]interface{}{})
	s.requireCode(err, ErrorCodeInvalidParams)

	_, err = s.call(s.server.handleRepoLanguages, map[string]interface{}{"repo": "widgets"})
	s.requireCode(err, ErrorCodeInvalidParams)

	s.languages.err = &apperrors.RateLimitError{ResetAt: time.Now().Add(time.Minute)}
	_, err = s.call(s.server.handleRepoLanguages, map[string]interface{}{"repo": "octo/widgets"})
	s.requireCode(err, ErrorCodeRateLimited)
}

func TestToolsTestSuite(t *testing.T) {
	suite.Run(t, new(ToolsTestSuite))
}

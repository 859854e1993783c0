package mcpserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeRateLimited   = -32001 // Upstream quota exhausted
	ErrorCodeInvalidQuery  = -32002 // Upstream rejected the search query
	ErrorCodeUpstream      = -32003 // Upstream unavailable
	ErrorCodeNotFound      = -32004 // Repository not found
)

// handleSearchIssues handles the search_issues tool invocation
func (s *Server) handleSearchIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	perPage := getIntDefault(args, "per_page", fetch.DefaultPerPage)
	if perPage < 1 || perPage > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "per_page must be between 1 and 100", map[string]interface{}{
			"param": "per_page",
			"value": perPage,
		})
	}

	query := github.BuildIssueQuery(github.IssueFilters{
		Text:       getStringDefault(args, "query", ""),
		Language:   getStringDefault(args, "language", ""),
		Labels:     getStringSlice(args, "labels"),
		OpenOnly:   true,
		Unassigned: getBoolDefault(args, "unassigned", false),
	})

	ctx, cancel := context.WithTimeout(ctx, s.deps.ResolveTimeout)
	defer cancel()

	st, err := s.deps.Searcher.Resolve(ctx, fetch.Query{
		Text:    query,
		Page:    getIntDefault(args, "page", 1),
		PerPage: perPage,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search did not complete", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if st.Err != nil {
		return nil, upstreamError(st.Err)
	}

	var languages map[string][]string
	if s.deps.Languages != nil {
		s.deps.Languages.Submit(st.Result.Issues)
		languages = s.deps.Languages.Profiles(st.Result.Issues)
	}

	issues := make([]map[string]interface{}, 0, len(st.Result.Issues))
	for _, issue := range st.Result.Issues {
		summary := issueSummary(issue)
		if ref, ok := issue.Repo(); ok && len(languages[ref.String()]) > 0 {
			summary["languages"] = languages[ref.String()]
		}
		issues = append(issues, summary)
	}

	response := map[string]interface{}{
		"query":       query,
		"page":        st.Query.Page,
		"total_count": st.Result.TotalCount,
		"issues":      issues,
		"from_cache":  st.FromCache,
		"stale":       st.Stale,
	}
	if st.Loading {
		response["pending"] = true
		response["retry_at"] = st.RetryAt.UTC().Format(time.RFC3339)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListBounties handles the list_bounties tool invocation
func (s *Server) handleListBounties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit := getIntDefault(args, "limit", 30)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	verifiedOnly := getBoolDefault(args, "verified_only", false)

	snap := s.deps.Bounties.Snapshot()
	return mcp.NewToolResultText(formatJSON(bountyResponse(snap.Records, limit, verifiedOnly, snap.RateLimited, snap.Err))), nil
}

// handleRefreshBounties handles the refresh_bounties tool invocation
func (s *Server) handleRefreshBounties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.deps.Bounties.Refresh(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	snap := s.deps.Bounties.Snapshot()
	return mcp.NewToolResultText(formatJSON(bountyResponse(snap.Records, len(snap.Records), false, snap.RateLimited, snap.Err))), nil
}

// handleRateLimitStatus handles the rate_limit_status tool invocation
func (s *Server) handleRateLimitStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := s.deps.Quota.Snapshot()

	response := map[string]interface{}{
		"limited": state.Limited,
	}
	if state.Remaining != nil {
		response["remaining"] = *state.Remaining
	}
	if state.ResetAt != nil {
		response["reset_at"] = state.ResetAt.UTC().Format(time.RFC3339)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRepoLanguages handles the repo_languages tool invocation
func (s *Server) handleRepoLanguages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["repo"].(string)
	if !ok || raw == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repo parameter is required", map[string]interface{}{
			"param":  "repo",
			"reason": "missing or empty",
		})
	}

	ref, err := types.ParseRepoRef(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid repo", map[string]interface{}{
			"param":  "repo",
			"reason": err.Error(),
		})
	}

	profile, err := s.deps.Languages.Lookup(ctx, ref)
	if err != nil {
		return nil, upstreamError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"repo":      ref.String(),
		"languages": profile.Languages,
	})), nil
}

func bountyResponse(records []types.ClassificationRecord, limit int, verifiedOnly, rateLimited bool, loadErr error) map[string]interface{} {
	bounties := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		if len(bounties) >= limit {
			break
		}
		if verifiedOnly && !rec.Verified {
			continue
		}
		summary := issueSummary(rec.Issue)
		summary["verified"] = rec.Verified
		summary["via_label"] = rec.ViaLabel
		bounties = append(bounties, summary)
	}

	response := map[string]interface{}{
		"count":        len(bounties),
		"bounties":     bounties,
		"rate_limited": rateLimited,
	}
	if loadErr != nil {
		response["error"] = loadErr.Error()
	}
	return response
}

func issueSummary(issue types.Issue) map[string]interface{} {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}
	summary := map[string]interface{}{
		"id":         issue.ID,
		"title":      issue.Title,
		"url":        issue.HTMLURL,
		"labels":     labels,
		"comments":   issue.Comments,
		"created_at": issue.CreatedAt.UTC().Format(time.RFC3339),
	}
	if ref, ok := issue.Repo(); ok {
		summary["repository"] = ref.String()
	}
	return summary
}

// upstreamError maps the upstream error taxonomy onto MCP errors
func upstreamError(err error) error {
	switch {
	case errors.IsRateLimit(err):
		data := map[string]interface{}{"error": err.Error()}
		if reset, ok := errors.ResetTime(err); ok {
			data["reset_at"] = reset.UTC().Format(time.RFC3339)
		}
		return newMCPError(ErrorCodeRateLimited, "rate limit exceeded", data)
	case stderrors.Is(err, errors.ErrInvalidQuery):
		return newMCPError(ErrorCodeInvalidQuery, "invalid query", map[string]interface{}{"error": err.Error()})
	case errors.IsNotFound(err):
		return newMCPError(ErrorCodeNotFound, "not found", nil)
	case errors.IsTransient(err):
		return newMCPError(ErrorCodeUpstream, "upstream unavailable", map[string]interface{}{"error": err.Error()})
	default:
		return newMCPError(ErrorCodeInternalError, "request failed", map[string]interface{}{"error": err.Error()})
	}
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping non-string items
func getStringSlice(args map[string]interface{}, key string) []string {
	switch raw := args[key].(type) {
	case []string:
		return raw
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

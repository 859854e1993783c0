package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchIssuesTool returns the tool definition for search_issues
func searchIssuesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_issues",
		Description: "Search open-source issues. Results are served cache-first and may be stale while the upstream rate limit is exhausted.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free text search",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Repository language, e.g. go or rust",
				},
				"labels": map[string]interface{}{
					"type":        "array",
					"description": "Issue labels, all of which must match",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"unassigned": map[string]interface{}{
					"type":        "boolean",
					"description": "Only issues without an assignee",
					"default":     false,
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
					"default":     1,
					"minimum":     1,
				},
				"per_page": map[string]interface{}{
					"type":        "integer",
					"description": "Page size (1-100)",
					"default":     30,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// listBountiesTool returns the tool definition for list_bounties
func listBountiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_bounties",
		Description: "List the curated bounty issues, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of bounties to return (1-100)",
					"default":     30,
					"minimum":     1,
					"maximum":     100,
				},
				"verified_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Drop bounties whose repository could not be checked",
					"default":     false,
				},
			},
		},
	}
}

// refreshBountiesTool returns the tool definition for refresh_bounties
func refreshBountiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh_bounties",
		Description: "Rebuild the bounty list now and return it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// rateLimitStatusTool returns the tool definition for rate_limit_status
func rateLimitStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rate_limit_status",
		Description: "Report the upstream rate limit window as last observed",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// repoLanguagesTool returns the tool definition for repo_languages
func repoLanguagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "repo_languages",
		Description: "Return up to three languages of a repository ordered by byte share",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repo": map[string]interface{}{
					"type":        "string",
					"description": "Repository as owner/name",
				},
			},
			Required: []string{"repo"},
		},
	}
}

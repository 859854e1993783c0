// Package mcpserver exposes issue search and the bounty list as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "issuehub"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Searcher resolves orchestrated issue searches
type Searcher interface {
	Resolve(ctx context.Context, q fetch.Query) (fetch.State, error)
}

// Bounties exposes the curated bounty list
type Bounties interface {
	Snapshot() bounty.Snapshot
	Refresh(ctx context.Context) error
}

// Quota exposes the tracked rate limit window
type Quota interface {
	Snapshot() ratelimit.State
}

// Languages resolves repository languages and enriches search results
type Languages interface {
	Lookup(ctx context.Context, ref types.RepoRef) (types.LanguageProfile, error)
	Submit(issues []types.Issue)
	Profiles(issues []types.Issue) map[string][]string
}

// Dependencies wires the server. Languages may be nil.
type Dependencies struct {
	Searcher       Searcher
	Bounties       Bounties
	Quota          Quota
	Languages      Languages
	ResolveTimeout time.Duration
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	deps   Dependencies
	logger *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(deps Dependencies, logger *slog.Logger) *Server {
	if deps.ResolveTimeout <= 0 {
		deps.ResolveTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		deps:   deps,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchIssuesTool(), s.handleSearchIssues)
	s.mcp.AddTool(listBountiesTool(), s.handleListBounties)
	s.mcp.AddTool(refreshBountiesTool(), s.handleRefreshBounties)
	s.mcp.AddTool(rateLimitStatusTool(), s.handleRateLimitStatus)

	if s.deps.Languages != nil {
		s.mcp.AddTool(repoLanguagesTool(), s.handleRepoLanguages)
	}
}

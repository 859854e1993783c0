package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/devlopersumit/issuehub/internal/api/docs" // Import generated docs
	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/config"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/types"
)

// @title issuehub API
// @version 1.0
// @description REST API for discovering open-source issues and curated bounty issues.
// @description
// @description ## Features
// @description - Search issues with cache-first, rate-limit aware fetching
// @description - Search repositories
// @description - List verified bounty issues and trigger refreshes
// @description - Inspect the upstream rate limit window
// @description - Resolve repository languages

// @contact.name issuehub
// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1

// SessionHeader carries the caller's session. Requests in one session share a
// fetch orchestrator, so a newer search supersedes an older one.
const SessionHeader = "X-Session-ID"

// Sessions hands out per-session fetch orchestrators
type Sessions interface {
	Session(id string) *fetch.Orchestrator
}

// RepositorySearcher runs repository searches
type RepositorySearcher interface {
	SearchRepositories(ctx context.Context, params github.SearchParams) (*github.RepositorySearchResult, error)
}

// BountySource exposes the curated bounty list
type BountySource interface {
	Snapshot() bounty.Snapshot
	Refresh(ctx context.Context) error
}

// QuotaReporter exposes the tracked rate limit window
type QuotaReporter interface {
	IsLimited() bool
	Snapshot() ratelimit.State
}

// LanguageResolver resolves repository languages. Submit queues the
// repositories of a result list; Profiles returns what is resolved so far.
type LanguageResolver interface {
	Lookup(ctx context.Context, ref types.RepoRef) (types.LanguageProfile, error)
	Submit(issues []types.Issue)
	Profiles(issues []types.Issue) map[string][]string
}

// Dependencies wires the server to the rest of the service. Languages may be nil.
type Dependencies struct {
	Sessions       Sessions
	Repositories   RepositorySearcher
	Bounties       BountySource
	Quota          QuotaReporter
	Languages      LanguageResolver
	ResolveTimeout time.Duration
}

// APIServer provides the HTTP API over the search and bounty subsystems
type APIServer struct {
	config *config.APIConfig
	deps   Dependencies
	router *http.ServeMux
	server *http.Server
	logger *slog.Logger

	// baseCtx outlives individual requests; background refreshes run under it
	baseCtx context.Context
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.APIConfig, deps Dependencies, logger *slog.Logger) *APIServer {
	if deps.ResolveTimeout <= 0 {
		deps.ResolveTimeout = 30 * time.Second
	}

	api := &APIServer{
		config:  cfg,
		deps:    deps,
		router:  http.NewServeMux(),
		logger:  logger,
		baseCtx: context.Background(),
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: deps.ResolveTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return api
}

// Handler returns the routed handler
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// Query endpoints (GET)
	s.router.HandleFunc("/api/v1/issues", s.corsMiddleware(s.handleSearchIssues))
	s.router.HandleFunc("/api/v1/repositories", s.corsMiddleware(s.handleSearchRepositories))
	s.router.HandleFunc("/api/v1/bounties", s.corsMiddleware(s.handleListBounties))
	s.router.HandleFunc("/api/v1/ratelimit", s.corsMiddleware(s.handleRateLimit))
	s.router.HandleFunc("/api/v1/languages", s.corsMiddleware(s.handleLanguages))

	// Action endpoints (POST)
	s.router.HandleFunc("/api/v1/bounties/refresh", s.corsMiddleware(s.handleRefreshBounties))

	// Swagger documentation
	s.router.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Redirect root to swagger
	s.router.HandleFunc("/", s.handleRootRedirect)
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// Start starts the API server and blocks until ctx is cancelled
func (s *APIServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("API server is disabled")
		return nil
	}

	s.baseCtx = ctx
	s.logger.Info("starting API server",
		"port", s.config.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error",
				"error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the API server
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// respondJSON sends a JSON response
func (s *APIServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response",
			"error", err.Error())
	}
}

// respondError sends an error response
func (s *APIServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// sessionID returns the caller's session, minting one when absent
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

// parseQueryParam extracts a query parameter from the request
func parseQueryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// parseQueryParamInt extracts an integer query parameter
func parseQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
		return intValue
	}
	return defaultValue
}

// parseQueryParamBool extracts a boolean query parameter
func parseQueryParamBool(r *http.Request, key string, defaultValue bool) bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// parseQueryParamList splits a comma separated query parameter
func parseQueryParamList(r *http.Request, key string) []string {
	var out []string
	for _, part := range strings.Split(r.URL.Query().Get(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// handleRootRedirect redirects / to /swagger/
func (s *APIServer) handleRootRedirect(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
}

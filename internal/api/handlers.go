package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/devlopersumit/issuehub/internal/errors"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/github"
	"github.com/devlopersumit/issuehub/internal/types"
)

const maxPerPage = 100

// handleSearchIssues runs an orchestrated, cache-first issue search
// @Summary Search issues
// @Description Search issues through the session's fetch orchestrator. Results may come from the daily cache or, while rate limited, from the last good page (stale=true). When neither is available the response is 202 with retry_at set.
// @Tags Issues
// @Produce json
// @Param q query string false "Free text search"
// @Param language query string false "Repository language"
// @Param labels query string false "Comma separated labels"
// @Param open_only query boolean false "Only open issues" default(true)
// @Param unassigned query boolean false "Only unassigned issues" default(false)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Page size" default(30)
// @Param X-Session-ID header string false "Session identifier"
// @Success 200 {object} IssueSearchResponse
// @Success 202 {object} IssueSearchResponse "Waiting for the rate limit window to reset"
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 409 {object} ErrorResponse "Superseded by a newer search in the same session"
// @Failure 502 {object} ErrorResponse "Upstream unavailable"
// @Failure 504 {object} ErrorResponse "Search did not settle in time"
// @Router /issues [get]
func (s *APIServer) handleSearchIssues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := github.BuildIssueQuery(github.IssueFilters{
		Text:       parseQueryParam(r, "q"),
		Language:   parseQueryParam(r, "language"),
		Labels:     parseQueryParamList(r, "labels"),
		OpenOnly:   parseQueryParamBool(r, "open_only", true),
		Unassigned: parseQueryParamBool(r, "unassigned", false),
	})

	perPage := parseQueryParamInt(r, "per_page", fetch.DefaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ResolveTimeout)
	defer cancel()

	session := sessionID(w, r)
	orchestrator := s.deps.Sessions.Session(session)
	st, err := orchestrator.Resolve(ctx, fetch.Query{
		Text:    query,
		Page:    parseQueryParamInt(r, "page", 1),
		PerPage: perPage,
	})
	switch {
	case stderrors.Is(err, fetch.ErrSuperseded):
		s.respondError(w, http.StatusConflict, "superseded by a newer search in this session")
		return
	case stderrors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, "search did not settle in time")
		return
	case err != nil:
		// context.Canceled from r.Context(): the client disconnected
		s.logger.Debug("issue search abandoned by client",
			"session_id", session,
			"error", err)
		return
	}

	if st.Err != nil {
		s.respondUpstreamError(w, st.Err)
		return
	}

	var languages map[string][]string
	if s.deps.Languages != nil {
		s.deps.Languages.Submit(st.Result.Issues)
		languages = s.deps.Languages.Profiles(st.Result.Issues)
	}

	status := http.StatusOK
	if st.Loading {
		status = http.StatusAccepted
		setRetryAfter(w, st.RetryAt)
	}
	s.respondJSON(w, status, convertSearchState(st, languages))
}

// handleSearchRepositories searches repositories
// @Summary Search repositories
// @Description Search repositories directly upstream. Rejected with 429 while the rate limit window is active.
// @Tags Repositories
// @Produce json
// @Param q query string false "Free text search"
// @Param language query string false "Primary language"
// @Param license query string false "License key"
// @Param min_stars query int false "Minimum stars" default(0)
// @Param include_archived query boolean false "Include archived repositories" default(false)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Page size" default(30)
// @Success 200 {object} RepositorySearchResponse
// @Failure 400 {object} ErrorResponse "Invalid query"
// @Failure 429 {object} ErrorResponse "Rate limited"
// @Failure 502 {object} ErrorResponse "Upstream unavailable"
// @Router /repositories [get]
func (s *APIServer) handleSearchRepositories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := github.BuildRepositoryQuery(github.RepositoryFilters{
		Text:            parseQueryParam(r, "q"),
		Language:        parseQueryParam(r, "language"),
		License:         parseQueryParam(r, "license"),
		MinStars:        parseQueryParamInt(r, "min_stars", 0),
		IncludeArchived: parseQueryParamBool(r, "include_archived", false),
	})
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "at least one of q, language, license or min_stars is required")
		return
	}

	if s.deps.Quota != nil && s.deps.Quota.IsLimited() {
		s.respondRateLimited(w)
		return
	}

	perPage := parseQueryParamInt(r, "per_page", fetch.DefaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	result, err := s.deps.Repositories.SearchRepositories(r.Context(), github.SearchParams{
		Query:   query,
		Page:    parseQueryParamInt(r, "page", 1),
		PerPage: perPage,
	})
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	repos := make([]RepositoryResponse, 0, len(result.Items))
	for _, repo := range result.Items {
		repos = append(repos, convertRepository(repo))
	}
	s.respondJSON(w, http.StatusOK, RepositorySearchResponse{
		Query:        query,
		TotalCount:   result.TotalCount,
		Repositories: repos,
	})
}

// handleListBounties returns the current bounty list
// @Summary List bounties
// @Description Return the curated, verified bounty list as last computed. new_count is non-zero briefly after a background refresh found new entries.
// @Tags Bounties
// @Produce json
// @Success 200 {object} BountyListResponse
// @Router /bounties [get]
func (s *APIServer) handleListBounties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := s.deps.Bounties.Snapshot()

	var languages map[string][]string
	if s.deps.Languages != nil {
		issues := make([]types.Issue, len(snap.Records))
		for i, rec := range snap.Records {
			issues[i] = rec.Issue
		}
		languages = s.deps.Languages.Profiles(issues)
	}

	s.respondJSON(w, http.StatusOK, convertSnapshot(snap, languages))
}

// handleRefreshBounties triggers a bounty pipeline run
// @Summary Refresh bounties
// @Description Start a user-triggered bounty pipeline run in the background. Poll /bounties for the result.
// @Tags Bounties
// @Produce json
// @Success 202 {object} RefreshResponse
// @Router /bounties/refresh [post]
func (s *APIServer) handleRefreshBounties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	go func() {
		if err := s.deps.Bounties.Refresh(s.baseCtx); err != nil && !errors.IsCancellation(err) {
			s.logger.Warn("bounty refresh failed", "error", err)
		}
	}()

	s.respondJSON(w, http.StatusAccepted, RefreshResponse{
		Status:  "accepted",
		Message: "bounty refresh started",
	})
}

// handleRateLimit reports the tracked upstream quota
// @Summary Rate limit status
// @Description Return the upstream rate limit window as last observed
// @Tags Status
// @Produce json
// @Success 200 {object} RateLimitResponse
// @Router /ratelimit [get]
func (s *APIServer) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, convertQuota(s.deps.Quota.Snapshot()))
}

// handleLanguages resolves the top languages of a repository
// @Summary Repository languages
// @Description Return up to three languages of a repository ordered by byte share
// @Tags Repositories
// @Produce json
// @Param repo query string true "Repository as owner/name"
// @Success 200 {object} LanguagesResponse
// @Failure 400 {object} ErrorResponse "Invalid repository"
// @Failure 404 {object} ErrorResponse "Repository not found"
// @Failure 429 {object} ErrorResponse "Rate limited"
// @Failure 503 {object} ErrorResponse "Enrichment disabled"
// @Router /languages [get]
func (s *APIServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.deps.Languages == nil {
		s.respondError(w, http.StatusServiceUnavailable, "language enrichment is disabled")
		return
	}

	ref, err := types.ParseRepoRef(parseQueryParam(r, "repo"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.deps.Languages.Lookup(r.Context(), ref)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, LanguagesResponse{
		Repository: ref.String(),
		Languages:  profile.Languages,
	})
}

// respondUpstreamError maps the upstream error taxonomy onto HTTP statuses
func (s *APIServer) respondUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsRateLimit(err):
		if reset, ok := errors.ResetTime(err); ok {
			setRetryAfter(w, reset)
		}
		s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case stderrors.Is(err, errors.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.IsServiceUnavailable(err), stderrors.Is(err, errors.ErrNetwork):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("upstream request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("upstream request failed: %v", err))
	}
}

func (s *APIServer) respondRateLimited(w http.ResponseWriter) {
	if snap := s.deps.Quota.Snapshot(); snap.ResetAt != nil {
		setRetryAfter(w, *snap.ResetAt)
	}
	s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// setRetryAfter sets Retry-After in whole seconds, at least 1
func setRetryAfter(w http.ResponseWriter, at time.Time) {
	if at.IsZero() {
		return
	}
	secs := int(time.Until(at).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

package api

import (
	"time"

	"github.com/devlopersumit/issuehub/internal/bounty"
	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/types"
)

// formatTimestamp renders t as RFC 3339 in UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// formatNullableTimestamp renders t or returns nil for the zero time
func formatNullableTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := formatTimestamp(t)
	return &formatted
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// IssueResponse represents an issue for API responses.
// Timestamps are formatted as ISO8601 strings.
type IssueResponse struct {
	ID         int64    `json:"id"`
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	State      string   `json:"state"`
	Repository string   `json:"repository"`
	Labels     []string `json:"labels"`
	Comments   int      `json:"comments"`
	Languages  []string `json:"languages,omitempty"`
	CreatedAt  string   `json:"created_at"` // ISO8601
	UpdatedAt  string   `json:"updated_at"` // ISO8601
}

// IssueSearchResponse is one page of orchestrated search results
type IssueSearchResponse struct {
	Query      string          `json:"query"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalCount int             `json:"total_count"`
	Issues     []IssueResponse `json:"issues"`
	FromCache  bool            `json:"from_cache"`
	Stale      bool            `json:"stale"`
	Loading    bool            `json:"loading"`
	RetryAt    *string         `json:"retry_at"` // ISO8601 or null
}

// RepositoryResponse represents a repository for API responses
type RepositoryResponse struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	OpenIssues  int    `json:"open_issues"`
	Archived    bool   `json:"archived"`
	UpdatedAt   string `json:"updated_at"` // ISO8601
}

// RepositorySearchResponse is one page of repository search results
type RepositorySearchResponse struct {
	Query        string               `json:"query"`
	TotalCount   int                  `json:"total_count"`
	Repositories []RepositoryResponse `json:"repositories"`
}

// BountyResponse is one verified bounty issue
type BountyResponse struct {
	Issue      IssueResponse `json:"issue"`
	Verified   bool          `json:"verified"`
	ViaLabel   bool          `json:"via_label"`
	Verdict    string        `json:"verdict"`
	VerdictWhy string        `json:"verdict_reason,omitempty"`
}

// BountyListResponse is the current bounty list
type BountyListResponse struct {
	Bounties    []BountyResponse `json:"bounties"`
	NewCount    int              `json:"new_count"`
	Loading     bool             `json:"loading"`
	RateLimited bool             `json:"rate_limited"`
	Error       string           `json:"error,omitempty"`
	UpdatedAt   *string          `json:"updated_at"` // ISO8601 or null
}

// RefreshResponse acknowledges a refresh request
type RefreshResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RateLimitResponse is the tracked upstream quota
type RateLimitResponse struct {
	Limited   bool    `json:"limited"`
	Remaining *int    `json:"remaining"`
	ResetAt   *string `json:"reset_at"` // ISO8601 or null
}

// LanguagesResponse lists the top languages of a repository
type LanguagesResponse struct {
	Repository string   `json:"repository"`
	Languages  []string `json:"languages"`
}

func convertIssue(issue types.Issue, languages map[string][]string) IssueResponse {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}

	resp := IssueResponse{
		ID:        issue.ID,
		Number:    issue.Number,
		Title:     issue.Title,
		URL:       issue.HTMLURL,
		State:     issue.State,
		Labels:    labels,
		Comments:  issue.Comments,
		CreatedAt: formatTimestamp(issue.CreatedAt),
		UpdatedAt: formatTimestamp(issue.UpdatedAt),
	}
	if ref, ok := issue.Repo(); ok {
		resp.Repository = ref.String()
		resp.Languages = languages[ref.String()]
	}
	return resp
}

func convertSearchState(st fetch.State, languages map[string][]string) IssueSearchResponse {
	issues := make([]IssueResponse, 0, len(st.Result.Issues))
	for _, issue := range st.Result.Issues {
		issues = append(issues, convertIssue(issue, languages))
	}
	return IssueSearchResponse{
		Query:      st.Query.Text,
		Page:       st.Query.Page,
		PerPage:    st.Query.PerPage,
		TotalCount: st.Result.TotalCount,
		Issues:     issues,
		FromCache:  st.FromCache,
		Stale:      st.Stale,
		Loading:    st.Loading,
		RetryAt:    formatNullableTimestamp(st.RetryAt),
	}
}

func convertRepository(repo types.Repository) RepositoryResponse {
	return RepositoryResponse{
		ID:          repo.ID,
		FullName:    repo.FullName,
		URL:         repo.HTMLURL,
		Description: repo.Description,
		Language:    repo.Language,
		Stars:       repo.StargazersCount,
		Forks:       repo.ForksCount,
		OpenIssues:  repo.OpenIssuesCount,
		Archived:    repo.Archived,
		UpdatedAt:   formatTimestamp(repo.UpdatedAt),
	}
}

func convertSnapshot(snap bounty.Snapshot, languages map[string][]string) BountyListResponse {
	bounties := make([]BountyResponse, 0, len(snap.Records))
	for _, rec := range snap.Records {
		bounties = append(bounties, BountyResponse{
			Issue:      convertIssue(rec.Issue, languages),
			Verified:   rec.Verified,
			ViaLabel:   rec.ViaLabel,
			Verdict:    string(rec.Legitimacy.Verdict),
			VerdictWhy: rec.Legitimacy.Reason,
		})
	}

	resp := BountyListResponse{
		Bounties:    bounties,
		NewCount:    snap.NewCount,
		Loading:     snap.Loading,
		RateLimited: snap.RateLimited,
		UpdatedAt:   formatNullableTimestamp(snap.UpdatedAt),
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return resp
}

func convertQuota(state ratelimit.State) RateLimitResponse {
	resp := RateLimitResponse{
		Limited:   state.Limited,
		Remaining: state.Remaining,
	}
	if state.ResetAt != nil {
		resp.ResetAt = formatNullableTimestamp(*state.ResetAt)
	}
	return resp
}

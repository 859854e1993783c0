package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Issue states as reported by the upstream search API
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Label is a single issue label
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// User is the subset of an upstream account used for assignment checks
type User struct {
	Login string `json:"login"`
}

// PullRequestRef is present on search hits that are pull requests
type PullRequestRef struct {
	URL     string `json:"url,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Issue is a search hit. It is never mutated after decoding.
type Issue struct {
	ID            int64           `json:"id"`
	Number        int             `json:"number"`
	Title         string          `json:"title"`
	HTMLURL       string          `json:"html_url"`
	State         string          `json:"state"`
	Body          string          `json:"body,omitempty"`
	RepositoryURL string          `json:"repository_url"`
	Labels        []Label         `json:"labels"`
	Assignee      *User           `json:"assignee,omitempty"`
	Assignees     []User          `json:"assignees,omitempty"`
	PullRequest   *PullRequestRef `json:"pull_request,omitempty"`
	Comments      int             `json:"comments"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Repo returns the owning repository, derived from RepositoryURL or HTMLURL
func (i Issue) Repo() (RepoRef, bool) {
	if ref, err := RepoRefFromAPIURL(i.RepositoryURL); err == nil {
		return ref, true
	}
	if ref, err := RepoRefFromHTMLURL(i.HTMLURL); err == nil {
		return ref, true
	}
	return RepoRef{}, false
}

// RepoRef identifies a repository as owner/name
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String renders the reference as owner/name
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoRef parses "owner/name"
func ParseRepoRef(s string) (RepoRef, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repository reference: %q", s)
	}
	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

// RepoRefFromAPIURL parses https://api.host/repos/{owner}/{name}
func RepoRefFromAPIURL(raw string) (RepoRef, error) {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return RepoRef{}, fmt.Errorf("invalid repository url: %q", raw)
	}
	path := strings.Trim(u.Path, "/")
	idx := strings.Index(path, "repos/")
	if idx < 0 {
		return RepoRef{}, fmt.Errorf("invalid repository url: %q", raw)
	}
	return ParseRepoRef(path[idx+len("repos/"):])
}

// RepoRefFromHTMLURL parses https://host/{owner}/{name}/issues/{n}
func RepoRefFromHTMLURL(raw string) (RepoRef, error) {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return RepoRef{}, fmt.Errorf("invalid issue url: %q", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return RepoRef{}, fmt.Errorf("invalid issue url: %q", raw)
	}
	return RepoRef{Owner: parts[0], Name: parts[1]}, nil
}

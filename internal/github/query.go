package github

import (
	"strconv"
	"strings"
	"time"
)

// IssueFilters narrows an issue search
type IssueFilters struct {
	Text         string
	Language     string
	Labels       []string
	OpenOnly     bool
	Unassigned   bool
	CreatedAfter time.Time
	UpdatedAfter time.Time
}

// RepositoryFilters narrows a repository search
type RepositoryFilters struct {
	Text            string
	Language        string
	License         string
	MinStars        int
	IncludeArchived bool
}

// BuildIssueQuery renders filters into the upstream search syntax. An empty
// result means there is nothing to search for.
func BuildIssueQuery(f IssueFilters) string {
	var terms []string
	if text := strings.TrimSpace(f.Text); text != "" {
		terms = append(terms, text)
	}
	if len(terms) == 0 && f.Language == "" && len(f.Labels) == 0 {
		return ""
	}

	terms = append(terms, "is:issue")
	if f.OpenOnly {
		terms = append(terms, "is:open")
	}
	if f.Unassigned {
		terms = append(terms, "no:assignee")
	}
	if f.Language != "" {
		terms = append(terms, "language:"+quote(f.Language))
	}
	for _, label := range f.Labels {
		if label = strings.TrimSpace(label); label != "" {
			terms = append(terms, "label:"+quote(label))
		}
	}
	if !f.CreatedAfter.IsZero() {
		terms = append(terms, "created:>="+f.CreatedAfter.UTC().Format("2006-01-02"))
	}
	if !f.UpdatedAfter.IsZero() {
		terms = append(terms, "updated:>="+f.UpdatedAfter.UTC().Format("2006-01-02"))
	}
	return strings.Join(terms, " ")
}

// BuildRepositoryQuery renders repository filters into the upstream search syntax
func BuildRepositoryQuery(f RepositoryFilters) string {
	var terms []string
	if text := strings.TrimSpace(f.Text); text != "" {
		terms = append(terms, text)
	}
	if f.Language != "" {
		terms = append(terms, "language:"+quote(f.Language))
	}
	if f.License != "" {
		terms = append(terms, "license:"+f.License)
	}
	if f.MinStars > 0 {
		terms = append(terms, "stars:>="+strconv.Itoa(f.MinStars))
	}
	if len(terms) == 0 {
		return ""
	}
	if !f.IncludeArchived {
		terms = append(terms, "archived:false")
	}
	return strings.Join(terms, " ")
}

func quote(v string) string {
	if strings.ContainsAny(v, " \t") {
		return strconv.Quote(v)
	}
	return v
}

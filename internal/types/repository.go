package types

import "time"

// Repository is the metadata used for legitimacy checks and repository search
type Repository struct {
	ID              int64     `json:"id"`
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Description     string    `json:"description"`
	Language        string    `json:"language,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Archived        bool      `json:"archived"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
}

// LanguageProfile holds up to three language names ordered by byte share
type LanguageProfile struct {
	Repo      RepoRef  `json:"repo"`
	Languages []string `json:"languages"`
}

package ui

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/devlopersumit/issuehub/internal/types"
)

// SelectIssue lets the user pick one issue and returns its index
func SelectIssue(issues []types.Issue, languages map[string][]string) (int, error) {
	if len(issues) == 0 {
		return 0, fmt.Errorf("no issues to select from")
	}

	items := make([]string, len(issues))
	for i, issue := range issues {
		items[i] = IssueRow(issue, languagesFor(issue, languages))
	}

	prompt := promptui.Select{
		Label: "Select issue",
		Items: items,
		Size:  12,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
		StartInSearchMode: true,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return idx, nil
}

// Prompter defines interface for user interaction
type Prompter interface {
	SelectIssue(issues []types.Issue, languages map[string][]string) (int, error)
}

// DefaultPrompter implements the actual prompting logic
type DefaultPrompter struct{}

// SelectIssue prompts user to select an issue
func (p *DefaultPrompter) SelectIssue(issues []types.Issue, languages map[string][]string) (int, error) {
	return SelectIssue(issues, languages)
}

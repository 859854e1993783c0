package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/devlopersumit/issuehub/internal/fetch"
	"github.com/devlopersumit/issuehub/internal/ratelimit"
	"github.com/devlopersumit/issuehub/internal/types"
)

// Column widths of issue rows
const (
	numberWidth   = 7
	titleWidth    = 60
	repoWidth     = 28
	languageWidth = 22
	dateWidth     = 10
)

func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w < width {
		return str + strings.Repeat(" ", width-w)
	}
	return str
}

// Truncate shortens str to at most width display cells, marking the cut with "..."
func Truncate(str string, width int) string {
	return runewidth.Truncate(str, width, "...")
}

// IssueRow renders one issue as a fixed-width line
func IssueRow(issue types.Issue, languages []string) string {
	repo := ""
	if ref, ok := issue.Repo(); ok {
		repo = ref.String()
	}
	return fmt.Sprintf("#%s %s %s %s %s",
		PadRight(fmt.Sprintf("%d", issue.Number), numberWidth-1),
		PadRight(Truncate(issue.Title, titleWidth), titleWidth),
		PadRight(Truncate(repo, repoWidth), repoWidth),
		PadRight(Truncate(strings.Join(languages, ","), languageWidth), languageWidth),
		PadRight(formatDate(issue.CreatedAt), dateWidth),
	)
}

// WriteSearchState prints a search result page with its freshness flags
func WriteSearchState(w io.Writer, st fetch.State, languages map[string][]string) {
	switch {
	case st.Loading && !st.RetryAt.IsZero():
		fmt.Fprintf(w, "Rate limited. Search will retry at %s.\n", st.RetryAt.Local().Format(time.Kitchen))
		return
	case st.Stale:
		fmt.Fprintln(w, "Showing cached results (rate limited or upstream unavailable).")
	case st.FromCache:
		fmt.Fprintln(w, "Showing results cached today.")
	}

	if len(st.Result.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}

	fmt.Fprintf(w, "%d issues (page %d)\n", st.Result.TotalCount, st.Query.Page)
	for _, issue := range st.Result.Issues {
		fmt.Fprintln(w, IssueRow(issue, languagesFor(issue, languages)))
	}
}

// WriteBounties prints the bounty list
func WriteBounties(w io.Writer, records []types.ClassificationRecord, languages map[string][]string) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No bounties found.")
		return
	}

	for _, rec := range records {
		marker := " "
		if !rec.Verified {
			// repository could not be checked
			marker = "?"
		}
		fmt.Fprintf(w, "%s %s\n", marker, IssueRow(rec.Issue, languagesFor(rec.Issue, languages)))
	}
}

// WriteRateLimit prints the tracked quota
func WriteRateLimit(w io.Writer, state ratelimit.State) {
	remaining := "unknown"
	if state.Remaining != nil {
		remaining = fmt.Sprintf("%d", *state.Remaining)
	}
	if !state.Limited {
		fmt.Fprintf(w, "Not rate limited (remaining: %s)\n", remaining)
		return
	}
	fmt.Fprintf(w, "Rate limited until %s (remaining: %s)\n", state.ResetAt.UTC().Format(time.RFC3339), remaining)
}

func languagesFor(issue types.Issue, languages map[string][]string) []string {
	if ref, ok := issue.Repo(); ok {
		return languages[ref.String()]
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

package classify

import (
	"strings"

	"github.com/devlopersumit/issuehub/internal/types"
)

// Rejection reasons reported by Classify
const (
	ReasonClosed      = "closed"
	ReasonAssigned    = "assigned"
	ReasonPullRequest = "pull_request"
	ReasonNoDetails   = "no_bounty_details"
)

// Decision is the outcome of the rule table for one issue
type Decision struct {
	Accepted bool
	ViaLabel bool
	Reason   string
}

// StructuralReason returns why issue can never be a bounty candidate, or ""
func StructuralReason(issue types.Issue) string {
	if issue.State == types.StateClosed {
		return ReasonClosed
	}
	if issue.Assignee != nil || len(issue.Assignees) > 0 {
		return ReasonAssigned
	}
	if IsPullRequest(issue) {
		return ReasonPullRequest
	}
	return ""
}

// IsPullRequest reports whether a search hit is really a pull request
func IsPullRequest(issue types.Issue) bool {
	return issue.PullRequest != nil || strings.Contains(issue.HTMLURL, "/pull/")
}

// HasBountyLabel reports whether any label marks the issue as a bounty
func (r *RuleSet) HasBountyLabel(labels []types.Label) bool {
	for _, label := range labels {
		name := strings.ToLower(label.Name)
		for _, marker := range r.LabelMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}

// PassesContent reports whether the issue qualifies on content alone, via
// label or heuristic. Previously accepted items are re-checked with this.
func (r *RuleSet) PassesContent(issue types.Issue) bool {
	return r.HasBountyLabel(issue.Labels) || r.HasBountyDetails(issue.Title, issue.Body)
}

// Classify runs the structural filter, the label fast path and the content
// heuristic, in that order. Repository legitimacy is checked elsewhere.
func (r *RuleSet) Classify(issue types.Issue) Decision {
	if reason := StructuralReason(issue); reason != "" {
		return Decision{Reason: reason}
	}
	if r.HasBountyLabel(issue.Labels) {
		return Decision{Accepted: true, ViaLabel: true}
	}
	if r.HasBountyDetails(issue.Title, issue.Body) {
		return Decision{Accepted: true}
	}
	return Decision{Reason: ReasonNoDetails}
}

// Classify runs the default rules
func Classify(issue types.Issue) Decision {
	return defaultRules.Classify(issue)
}

package types

// Verdict records how a candidate's repository was judged
type Verdict string

const (
	// VerdictLegitimate means the repository passed the legitimacy rule
	VerdictLegitimate Verdict = "legitimate"

	// VerdictRejected means the repository failed the legitimacy rule
	VerdictRejected Verdict = "rejected"

	// VerdictProvisional means verification was skipped because of rate limiting
	VerdictProvisional Verdict = "provisional"
)

// Legitimacy is the repository-level verdict, cached per repository
type Legitimacy struct {
	Repo    RepoRef `json:"repo"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// ClassificationRecord wraps an issue with its bounty status. Provisionally
// accepted records are listed like verified ones but keep Verified false and
// VerdictProvisional, so callers can tell a checked repository from an
// unchecked one.
type ClassificationRecord struct {
	Issue Issue `json:"issue"`

	// Verified is true only when the legitimacy check ran and passed
	Verified   bool       `json:"verified"`
	ViaLabel   bool       `json:"via_label"`
	Legitimacy Legitimacy `json:"legitimacy"`
}

// IssueIDs returns the identifiers of records in order
func IssueIDs(records []ClassificationRecord) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.Issue.ID
	}
	return ids
}

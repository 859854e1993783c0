package types

import "testing"

func TestIssueRepo(t *testing.T) {
	tests := []struct {
		name   string
		issue  Issue
		want   RepoRef
		wantOK bool
	}{
		{
			name:   "from api url",
			issue:  Issue{RepositoryURL: "https://api.github.com/repos/octo/widgets"},
			want:   RepoRef{Owner: "octo", Name: "widgets"},
			wantOK: true,
		},
		{
			name:   "enterprise api prefix",
			issue:  Issue{RepositoryURL: "https://ghe.example.com/api/v3/repos/team/tool"},
			want:   RepoRef{Owner: "team", Name: "tool"},
			wantOK: true,
		},
		{
			name:   "falls back to html url",
			issue:  Issue{HTMLURL: "https://github.com/octo/widgets/issues/12"},
			want:   RepoRef{Owner: "octo", Name: "widgets"},
			wantOK: true,
		},
		{
			name:   "nothing to parse",
			issue:  Issue{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.issue.Repo()
			if ok != tt.wantOK {
				t.Fatalf("Repo() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Repo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRepoRef(t *testing.T) {
	ref, err := ParseRepoRef("octo/widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.String() != "octo/widgets" {
		t.Errorf("String() = %s", ref.String())
	}

	for _, bad := range []string{"", "octo", "octo/", "a/b/c"} {
		if _, err := ParseRepoRef(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIssueIDs(t *testing.T) {
	records := []ClassificationRecord{{Issue: Issue{ID: 3}}, {Issue: Issue{ID: 1}}}
	ids := IssueIDs(records)
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("IssueIDs() = %v", ids)
	}
}

package policy

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/devlopersumit/issuehub/internal/types"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func repo(age, sinceUpdate time.Duration, stars, forks int, description string) *types.Repository {
	return &types.Repository{
		FullName:        "acme/widgets",
		CreatedAt:       now.Add(-age),
		UpdatedAt:       now.Add(-sinceUpdate),
		StargazersCount: stars,
		ForksCount:      forks,
		Description:     description,
	}
}

func TestEngine_DefaultRule(t *testing.T) {
	engine, err := NewEngine(slog.Default(), Config{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	day := 24 * time.Hour

	tests := []struct {
		name string
		repo *types.Repository
		want bool
	}{
		{name: "established with stars", repo: repo(30*day, day, 5, 0, ""), want: true},
		{name: "forks only", repo: repo(30*day, day, 0, 2, ""), want: true},
		{name: "description only", repo: repo(30*day, day, 0, 0, "a real description"), want: true},
		{name: "short description only", repo: repo(30*day, day, 0, 0, "tiny"), want: false},
		{name: "created today", repo: repo(12*time.Hour, time.Hour, 50, 5, "a real description"), want: false},
		{name: "exactly one day old", repo: repo(day, time.Hour, 50, 5, ""), want: false},
		{name: "abandoned", repo: repo(400*day, 91*day, 50, 5, ""), want: false},
		{name: "updated 90 days ago", repo: repo(400*day, 90*day, 50, 5, ""), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(tt.repo, now)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.Legitimate != tt.want {
				t.Errorf("Legitimate = %v, want %v (%s)", decision.Legitimate, tt.want, decision.Reason)
			}
			if decision.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestEngine_CustomExpression(t *testing.T) {
	engine, err := NewEngine(nil, Config{
		Expression:     `stars >= 10 && !archived`,
		FailureMessage: "not popular enough",
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	r := repo(100*24*time.Hour, time.Hour, 3, 0, "")
	decision, err := engine.Evaluate(r, now)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Legitimate || decision.Reason != "not popular enough" {
		t.Errorf("unexpected decision %+v", decision)
	}
}

func TestNewEngine_InvalidExpression(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    string
	}{
		{name: "syntax", expression: `stars >`, wantErr: "compile"},
		{name: "not boolean", expression: `stars + 1`, wantErr: "boolean"},
		{name: "unknown variable", expression: `watchers > 1`, wantErr: "compile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(nil, Config{Expression: tt.expression})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewEngine() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluate_NilRepository(t *testing.T) {
	engine, err := NewEngine(nil, Config{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := engine.Evaluate(nil, now); err == nil {
		t.Error("expected error for nil repository")
	}
}

func TestDefaultRuleProperty(t *testing.T) {
	engine, err := NewEngine(nil, Config{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	properties := gopter.NewProperties(nil)

	properties.Property("matches the written rule", prop.ForAll(
		func(ageHours, updatedHours int64, stars, forks, descLen int) bool {
			r := repo(time.Duration(ageHours)*time.Hour, time.Duration(updatedHours)*time.Hour,
				stars, forks, strings.Repeat("x", descLen))
			decision, err := engine.Evaluate(r, now)
			if err != nil {
				return false
			}
			want := ageHours > 24 &&
				(stars > 0 || forks > 0 || descLen > 10) &&
				updatedHours <= 90*24
			return decision.Legitimate == want
		},
		gen.Int64Range(0, 24*400),
		gen.Int64Range(0, 24*200),
		gen.IntRange(0, 3),
		gen.IntRange(0, 3),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

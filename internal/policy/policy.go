// Package policy evaluates the repository legitimacy rule as a CEL expression.
package policy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/devlopersumit/issuehub/internal/types"
)

// DefaultExpression accepts repositories older than a day, with some sign of
// life, updated in the last 90 days
const DefaultExpression = `ageDays > 1.0 && (stars > 0 || forks > 0 || descriptionLength > 10) && daysSinceUpdate <= 90.0`

// LegitimacyEvaluator decides whether a repository looks like a real project
type LegitimacyEvaluator interface {
	Evaluate(repo *types.Repository, now time.Time) (*Decision, error)
}

// Config defines the CEL legitimacy rule
type Config struct {
	// Expression must evaluate to true for a legitimate repository.
	// Available variables:
	//   - ageDays: days since the repository was created (double)
	//   - daysSinceUpdate: days since the repository was last updated (double)
	//   - stars, forks, openIssues: counts (int)
	//   - descriptionLength: length of the description (int)
	//   - archived: whether the repository is archived (bool)
	//   - language: primary language as reported upstream (string)
	Expression string `yaml:"expression" json:"expression"`

	// FailureMessage replaces the generated reason when the rule fails (optional)
	FailureMessage string `yaml:"failureMessage" json:"failureMessage"`
}

// Decision is the result of evaluating one repository
type Decision struct {
	Legitimate bool
	Reason     string
}

// Engine implements LegitimacyEvaluator using a compiled CEL program
type Engine struct {
	logger     *slog.Logger
	config     Config
	celProgram cel.Program
}

// NewEngine compiles config.Expression, falling back to DefaultExpression
func NewEngine(logger *slog.Logger, config Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.Expression == "" {
		config.Expression = DefaultExpression
	}

	env, err := cel.NewEnv(
		cel.CrossTypeNumericComparisons(true),
		cel.Variable("ageDays", cel.DoubleType),
		cel.Variable("daysSinceUpdate", cel.DoubleType),
		cel.Variable("stars", cel.IntType),
		cel.Variable("forks", cel.IntType),
		cel.Variable("openIssues", cel.IntType),
		cel.Variable("descriptionLength", cel.IntType),
		cel.Variable("archived", cel.BoolType),
		cel.Variable("language", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(config.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile legitimacy expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("legitimacy expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Engine{
		logger:     logger,
		config:     config,
		celProgram: program,
	}, nil
}

// Expression returns the compiled expression source
func (e *Engine) Expression() string {
	return e.config.Expression
}

// Evaluate applies the rule to repo as of now
func (e *Engine) Evaluate(repo *types.Repository, now time.Time) (*Decision, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is nil")
	}

	ageDays := now.Sub(repo.CreatedAt).Hours() / 24
	daysSinceUpdate := now.Sub(repo.UpdatedAt).Hours() / 24

	out, _, err := e.celProgram.Eval(map[string]interface{}{
		"ageDays":           ageDays,
		"daysSinceUpdate":   daysSinceUpdate,
		"stars":             int64(repo.StargazersCount),
		"forks":             int64(repo.ForksCount),
		"openIssues":        int64(repo.OpenIssuesCount),
		"descriptionLength": int64(len([]rune(repo.Description))),
		"archived":          repo.Archived,
		"language":          repo.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate legitimacy rule: %w", err)
	}

	legitimate, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("legitimacy expression did not return a boolean: %v", out.Value())
	}

	decision := &Decision{Legitimate: legitimate}
	if legitimate {
		decision.Reason = fmt.Sprintf("rule passed: age=%.1fd, stars=%d, forks=%d, updated=%.1fd ago",
			ageDays, repo.StargazersCount, repo.ForksCount, daysSinceUpdate)
		return decision, nil
	}

	if e.config.FailureMessage != "" {
		decision.Reason = e.config.FailureMessage
	} else {
		decision.Reason = fmt.Sprintf("rule failed: age=%.1fd, stars=%d, forks=%d, description=%d chars, updated=%.1fd ago",
			ageDays, repo.StargazersCount, repo.ForksCount, len([]rune(repo.Description)), daysSinceUpdate)
	}

	e.logger.Debug("repository failed legitimacy rule",
		"repo", repo.FullName,
		"age_days", ageDays,
		"stars", repo.StargazersCount,
		"forks", repo.ForksCount,
		"days_since_update", daysSinceUpdate,
		"expression", e.config.Expression)

	return decision, nil
}

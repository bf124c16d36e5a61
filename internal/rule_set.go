package internal

import (
	"github.com/gnolang/rlin/internal/lints"
	"github.com/gnolang/rlin/internal/syntax"
	tt "github.com/gnolang/rlin/internal/types"
)

// LintRule defines the interface for all lint rules.
type LintRule interface {
	// Check runs the lint rule on a single node and returns a slice of Issues.
	// The engine only passes nodes whose kind is listed by Kinds.
	Check(filename string, node *syntax.Node) ([]tt.Issue, error)

	// Kinds returns the node kinds the rule subscribes to.
	Kinds() []syntax.Kind

	// Name returns the name of the lint rule.
	Name() string

	// Severity returns the severity of the lint rule.
	Severity() tt.Severity

	// SetSeverity sets the severity of the lint rule.
	SetSeverity(tt.Severity)
}

type LineEndConcatenationRule struct {
	severity tt.Severity
}

func NewLineEndConcatenationRule() LintRule {
	return &LineEndConcatenationRule{
		severity: tt.SeverityWarning,
	}
}

func (r *LineEndConcatenationRule) Check(filename string, node *syntax.Node) ([]tt.Issue, error) {
	offense, ok := lints.EvaluateLineEndConcatenation(node)
	if !ok {
		return nil, nil
	}
	return []tt.Issue{lints.LineEndConcatenationIssue(filename, offense, r.severity)}, nil
}

func (r *LineEndConcatenationRule) Kinds() []syntax.Kind {
	return []syntax.Kind{syntax.KindCall}
}

func (r *LineEndConcatenationRule) Name() string {
	return lints.LineEndConcatenationRule
}

func (r *LineEndConcatenationRule) Severity() tt.Severity {
	return r.severity
}

func (r *LineEndConcatenationRule) SetSeverity(severity tt.Severity) {
	r.severity = severity
}

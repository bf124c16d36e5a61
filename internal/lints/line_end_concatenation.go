package lints

import (
	"regexp"

	"github.com/gnolang/rlin/internal/syntax"
	tt "github.com/gnolang/rlin/internal/types"
)

const (
	LineEndConcatenationRule = "line-end-concatenation"
	LineEndConcatenationMsg  = `Use \ instead of + to concatenate those strings.`

	lineContinuation = `\`

	lineEndConcatenationNote = "adjacent string literals are joined when the file is parsed, " +
		"so a trailing \\ continues the literal without calling String#+ at runtime."
)

// plusAtLineEnd matches source text in which some line ends with a '+',
// optionally followed by whitespace. '.' does not cross newlines and '$'
// matches at every line end.
var plusAtLineEnd = regexp.MustCompile(`(?m).+\+\s*$`)

// Offense is a flagged line-end concatenation.
type Offense struct {
	Node    *syntax.Node
	Message string
}

// FixEdit replaces the source in Range with Replacement.
type FixEdit struct {
	Range       syntax.Range
	Replacement string
}

// EvaluateLineEndConcatenation reports whether node concatenates two
// string literals with a '+' placed at the end of a line.
func EvaluateLineEndConcatenation(node *syntax.Node) (Offense, bool) {
	if !isOffendingConcatenation(node) {
		return Offense{}, false
	}
	return Offense{Node: node, Message: LineEndConcatenationMsg}, true
}

// LineEndConcatenationFix replaces the operator token of an offending
// node with a line continuation. The node is not validated again.
func LineEndConcatenationFix(node *syntax.Node) FixEdit {
	return FixEdit{
		Range:       node.Selector,
		Replacement: lineContinuation,
	}
}

func isOffendingConcatenation(node *syntax.Node) bool {
	if node == nil || node.Kind != syntax.KindCall {
		return false
	}
	// unary and receiverless calls share the call kind
	if node.Receiver == nil || node.Argument == nil {
		return false
	}
	if node.Operator != "+" {
		return false
	}
	if !node.Receiver.IsString() || !node.Argument.IsString() {
		return false
	}
	return plusAtLineEnd.MatchString(node.Source())
}

// DetectLineEndConcatenation reports every line-end string concatenation in file.
func DetectLineEndConcatenation(filename string, file *syntax.File, severity tt.Severity) ([]tt.Issue, error) {
	var issues []tt.Issue
	syntax.Inspect(file.Root, func(n *syntax.Node) bool {
		if offense, ok := EvaluateLineEndConcatenation(n); ok {
			issues = append(issues, LineEndConcatenationIssue(filename, offense, severity))
		}
		return true
	})
	return issues, nil
}

// LineEndConcatenationIssue converts an offense into an issue anchored at
// the operator token, carrying the fix edit.
func LineEndConcatenationIssue(filename string, offense Offense, severity tt.Severity) tt.Issue {
	node := offense.Node
	file := node.File()
	fix := LineEndConcatenationFix(node)

	start := file.Position(fix.Range.Start)
	end := file.Position(fix.Range.End)
	if filename != "" {
		start.Filename = filename
		end.Filename = filename
	}

	return tt.Issue{
		Rule:       LineEndConcatenationRule,
		Category:   "style",
		Filename:   filename,
		Message:    offense.Message,
		Suggestion: fixedLine(file, fix, start.Line),
		Note:       lineEndConcatenationNote,
		Start:      start,
		End:        end,
		Edits: []tt.TextEdit{{
			Start:   fix.Range.Start,
			End:     fix.Range.End,
			NewText: fix.Replacement,
		}},
		Confidence: 1.0,
		Severity:   severity,
	}
}

// fixedLine renders the operator's line with the fix applied.
func fixedLine(file *syntax.File, fix FixEdit, line int) string {
	text := file.Line(line)
	col := file.Position(fix.Range.Start).Column - 1
	if col < 0 || col+fix.Range.Len() > len(text) {
		return ""
	}
	return text[:col] + fix.Replacement + text[col+fix.Range.Len():]
}

package nolint

import (
	"fmt"
	"go/token"
	"math"
	"strings"

	"github.com/gnolang/rlin/internal/syntax"
)

const nolintDirective = "nolint"

// Manager manages nolint scopes and checks if a position is nolinted.
type Manager struct {
	// scopes maps filename to a slice of nolint scopes.
	scopes map[string][]nolintScope
}

// nolintScope represents a range in the code where nolint applies.
type nolintScope struct {
	rules map[string]struct{}
	start token.Position
	end   token.Position
}

// ParseComments parses `# nolint` comments in the given file and returns a Manager.
//
//	x = 'a' + # nolint
//	  'b'
//
//	# nolint:line-end-concatenation
//	x = 'a' +
//	  'b'
func ParseComments(f *syntax.File) *Manager {
	manager := Manager{
		scopes: make(map[string][]nolintScope, len(f.Comments)),
	}
	stmtMap := indexStatementsByLine(f)
	firstStmtLine := math.MaxInt
	if stmts := f.Statements(); len(stmts) > 0 {
		firstStmtLine = stmts[0].Pos().Line
	}

	for _, comment := range f.Comments {
		ns, err := parseComment(comment, f, stmtMap, firstStmtLine)
		if err != nil {
			// ignore invalid nolint comments
			continue
		}
		filename := ns.start.Filename
		manager.scopes[filename] = append(manager.scopes[filename], ns)
	}
	return &manager
}

// parseComment parses a single nolint comment and determines its scope.
func parseComment(
	comment syntax.Comment,
	f *syntax.File,
	stmtMap map[int]*syntax.Node,
	firstStmtLine int,
) (nolintScope, error) {
	var ns nolintScope
	text := strings.TrimSpace(strings.TrimPrefix(comment.Text, "#"))

	if !strings.HasPrefix(text, nolintDirective) {
		return ns, fmt.Errorf("invalid nolint comment")
	}
	rest := text[len(nolintDirective):]

	// A nolint comment can either have a list of rules after a colon (:)
	// or if no rules are specified, it applies to all rules
	if len(rest) > 0 && rest[0] != ':' {
		return ns, fmt.Errorf("invalid nolint comment format")
	}
	if len(rest) > 0 {
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return ns, fmt.Errorf("invalid nolint comment: no rules specified after colon")
		}
	}
	ns.rules = parseIgnoreRuleNames(rest)
	pos := f.Position(comment.Range.Start)

	// inline: applies to the statement the comment trails
	if stmt, exists := stmtMap[pos.Line]; exists && comment.Range.Start > stmt.Range.Start {
		ns.start = stmt.Pos()
		ns.end = stmt.End()
		return ns, nil
	}

	// standalone: applies to the statement on the next line
	if stmt, exists := stmtMap[pos.Line+1]; exists {
		ns.start = pos
		ns.end = stmt.End()
		return ns, nil
	}

	// header comments before any code cover the whole file
	if pos.Line < firstStmtLine {
		ns.start = f.Position(0)
		ns.end = f.Position(len(f.Src))
		return ns, nil
	}

	ns.start = pos
	ns.end = pos
	return ns, nil
}

// parseIgnoreRuleNames parses the rule list from the nolint comment.
func parseIgnoreRuleNames(text string) map[string]struct{} {
	rulesMap := make(map[string]struct{})
	if text == "" {
		return rulesMap
	}
	for _, rule := range strings.Split(text, ",") {
		rule = strings.TrimSpace(rule)
		if rule != "" {
			rulesMap[rule] = struct{}{}
		}
	}
	return rulesMap
}

// indexStatementsByLine maps each line to the first statement starting on it.
func indexStatementsByLine(f *syntax.File) map[int]*syntax.Node {
	stmtMap := make(map[int]*syntax.Node)
	for _, stmt := range f.Statements() {
		line := stmt.Pos().Line
		if _, exists := stmtMap[line]; !exists {
			stmtMap[line] = stmt
		}
	}
	return stmtMap
}

// IsNolint checks if a given position and rule are nolinted.
func (m *Manager) IsNolint(pos token.Position, ruleName string) bool {
	scopes, exists := m.scopes[pos.Filename]
	if !exists {
		return false
	}
	for _, ns := range scopes {
		if pos.Line < ns.start.Line || pos.Line > ns.end.Line {
			continue
		}
		// If the rules list is empty, nolint applies to all rules
		if len(ns.rules) == 0 {
			return true
		}
		if _, exists := ns.rules[ruleName]; exists {
			return true
		}
	}
	return false
}

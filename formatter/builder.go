package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/rlin/internal"
	"github.com/gnolang/rlin/internal/lints"
	tt "github.com/gnolang/rlin/internal/types"
)

const tabWidth = 8

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
)

// issueFormatter is the interface that wraps the issueTemplate method.
// Implementations of this interface are responsible for formatting specific types of lint issues.
type issueFormatter interface {
	IssueTemplate() string
	// ContextLines is the number of lines shown after the flagged range.
	ContextLines() int
}

// getIssueFormatter is a factory function that returns the appropriate IssueFormatter
// based on the given rule.
// If no specific formatter is found for the given rule, it returns a GeneralIssueFormatter.
func getIssueFormatter(rule string) issueFormatter {
	switch rule {
	case lints.LineEndConcatenationRule:
		return &LineEndConcatenationFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// GenerateFormattedIssue formats a slice of issues into a human-readable string.
// It uses the appropriate formatter for each issue based on its rule.
func GenerateFormattedIssue(issues []tt.Issue, source *internal.SourceCode) string {
	var b strings.Builder
	for _, issue := range issues {
		b.WriteString(buildIssue(issue, source, getIssueFormatter(issue.Rule)))
	}
	return b.String()
}

// IssueData is the value the issue templates are executed against.
type IssueData struct {
	Category        string
	Severity        string
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	SnippetEndLine  int
	MaxLineNumWidth int
	Message         string
	Suggestion      string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

var funcMap = template.FuncMap{
	"header":              header,
	"suggestion":          suggestion,
	"note":                note,
	"snippet":             codeSnippet,
	"underlineAndMessage": underlineAndMessage,
}

// templates caches parsed issue templates by their text.
var templates sync.Map

func parseTemplate(text string) (*template.Template, error) {
	if cached, ok := templates.Load(text); ok {
		return cached.(*template.Template), nil
	}
	tmpl, err := template.New("issue").Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, err
	}
	actual, _ := templates.LoadOrStore(text, tmpl)
	return actual.(*template.Template), nil
}

func buildIssue(issue tt.Issue, source *internal.SourceCode, formatter issueFormatter) string {
	startLine, endLine := issue.Start.Line, issue.End.Line
	snippetEndLine := max(min(endLine+formatter.ContextLines(), len(source.Lines)), endLine)
	maxLineNumWidth := calculateMaxLineNumWidth(snippetEndLine)

	var commonIndent string
	if startLine >= 1 && startLine <= snippetEndLine && snippetEndLine <= len(source.Lines) {
		commonIndent = findCommonIndent(source.Lines[startLine-1 : snippetEndLine])
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Category:        issue.Category,
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       startLine,
		StartColumn:     issue.Start.Column,
		EndLine:         endLine,
		EndColumn:       issue.End.Column,
		SnippetEndLine:  snippetEndLine,
		Message:         issue.Message,
		Suggestion:      issue.Suggestion,
		Note:            issue.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		CommonIndent:    commonIndent,
		SnippetLines:    source.Lines,
	}

	tmpl, err := parseTemplate(formatter.IssueTemplate())
	if err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// template helpers

var severityLabels = map[string]*color.Color{
	"ERROR":   errorStyle,
	"WARNING": warningStyle,
	"INFO":    infoStyle,
}

func header(rule string, severity string, maxLineNumWidth int, filename string, startLine int, startColumn int) string {
	var b strings.Builder
	if style, ok := severityLabels[severity]; ok {
		b.WriteString(style.Sprintf("%s: ", strings.ToLower(severity)))
	}
	b.WriteString(ruleStyle.Sprintf("%s\n", rule))
	b.WriteString(lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth)))
	b.WriteString(fileStyle.Sprintf("%s:%d:%d\n", filename, startLine, startColumn))
	return b.String()
}

// numberedLine renders one gutter-numbered source line.
func numberedLine(lineNum, width int, text string) string {
	return lineStyle.Sprintf("%*d | ", width, lineNum) + text + "\n"
}

func codeSnippet(snippetLines []string, startLine int, endLine int, maxLineNumWidth int, commonIndent string, padding string) string {
	var b strings.Builder
	b.WriteString(lineStyle.Sprintf("%s|\n", padding))
	for i := max(startLine, 1); i <= min(endLine, len(snippetLines)); i++ {
		b.WriteString(numberedLine(i, maxLineNumWidth, strings.TrimPrefix(snippetLines[i-1], commonIndent)))
	}
	return b.String()
}

func underlineAndMessage(message string, padding string, startLine int, endLine int, startColumn int, endColumn int, snippetLines []string, commonIndent string) string {
	var b strings.Builder
	b.WriteString(lineStyle.Sprintf("%s| ", padding))

	if !isValidLineRange(startLine, endLine, snippetLines) {
		b.WriteString(messageStyle.Sprintf("%s\n", message))
		return b.String()
	}

	indentWidth := calculateVisualColumn(commonIndent, len(commonIndent)+1)
	first := snippetLines[startLine-1]
	from := max(calculateVisualColumn(first, startColumn)-indentWidth, 0)

	// the end column is exclusive; a range spanning lines is underlined to the end of its first line
	to := calculateVisualColumn(first, len(first)+1) - indentWidth
	if endLine == startLine {
		to = calculateVisualColumn(first, endColumn) - indentWidth
	}

	b.WriteString(strings.Repeat(" ", from))
	b.WriteString(messageStyle.Sprintf("%s\n", strings.Repeat("~", max(to-from, 1))))
	b.WriteString(lineStyle.Sprintf("%s= ", padding))
	b.WriteString(messageStyle.Sprintf("%s\n", message))
	return b.String()
}

func suggestion(suggestion string, padding string, maxLineNumWidth int, startLine int, commonIndent string) string {
	if suggestion == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(suggestionStyle.Sprintf("Suggestion:\n"))
	b.WriteString(lineStyle.Sprintf("%s|\n", padding))
	for i, line := range strings.Split(suggestion, "\n") {
		b.WriteString(numberedLine(startLine+i, maxLineNumWidth, strings.TrimPrefix(line, commonIndent)))
	}
	b.WriteString(lineStyle.Sprintf("%s|\n", padding))
	return b.String()
}

func note(note string) string {
	if note == "" {
		return ""
	}
	return suggestionStyle.Sprint("Note: ") + lineStyle.Sprintf("%s\n", note)
}

func isValidLineRange(startLine int, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(strconv.Itoa(endLine))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	var common []rune
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		indent := []rune(line[:len(line)-len(trimmed)])
		if !found {
			common, found = indent, true
			continue
		}
		common = commonPrefix(common, indent)
		if len(common) == 0 {
			break
		}
	}
	return string(common)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:minLen]
}

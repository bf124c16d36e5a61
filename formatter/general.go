package formatter

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn}}
{{- snippet .SnippetLines .StartLine .SnippetEndLine .MaxLineNumWidth .CommonIndent .Padding}}
{{- underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent}}
{{- if .Suggestion }}{{suggestion .Suggestion .Padding .MaxLineNumWidth .StartLine .CommonIndent}}{{ end }}
{{- if .Note }}{{note .Note}}{{ end }}
`
}

func (f *GeneralIssueFormatter) ContextLines() int {
	return 0
}

// LineEndConcatenationFormatter also shows the line holding the right-hand literal.
type LineEndConcatenationFormatter struct {
	GeneralIssueFormatter
}

func (f *LineEndConcatenationFormatter) ContextLines() int {
	return 1
}

package syntax

// TokenKind classifies lexical tokens.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNewline
	TokenSemicolon
	TokenString
	TokenInt
	TokenFloat
	TokenIdent
	TokenSymbol
	TokenOp
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenOther
)

var tokenKindNames = [...]string{
	TokenEOF:       "EOF",
	TokenNewline:   "Newline",
	TokenSemicolon: "Semicolon",
	TokenString:    "String",
	TokenInt:       "Int",
	TokenFloat:     "Float",
	TokenIdent:     "Ident",
	TokenSymbol:    "Symbol",
	TokenOp:        "Op",
	TokenLParen:    "LParen",
	TokenRParen:    "RParen",
	TokenLBracket:  "LBracket",
	TokenRBracket:  "RBracket",
	TokenLBrace:    "LBrace",
	TokenRBrace:    "RBrace",
	TokenComma:     "Comma",
	TokenOther:     "Other",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "Unknown"
}

// Token is a lexical token with its raw source text.
type Token struct {
	Kind  TokenKind
	Text  string
	Range Range

	// Interpolated is set on double-quoted strings containing #{...}.
	Interpolated bool

	// Interpolations holds the body of each top-level #{...}, without
	// the delimiters. Heredoc bodies are not recorded.
	Interpolations []Range

	// SpaceBefore is set when whitespace or a line continuation
	// separates the token from the previous one.
	SpaceBefore bool
}

// shift moves the token and its interpolation bodies by offset bytes.
func (t *Token) shift(offset int) {
	t.Range.Start += offset
	t.Range.End += offset
	for i := range t.Interpolations {
		t.Interpolations[i].Start += offset
		t.Interpolations[i].End += offset
	}
}

// Comment is a `#` line comment. Text includes the leading '#'.
type Comment struct {
	Range Range
	Text  string
}

// operators ordered longest first so the lexer takes the longest match.
var operators = []string{
	"**=", "<=>", "===", "...", "<<=", ">>=", "&&=", "||=",
	"**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=",
	"=~", "!~", "..", "::", "->", "=>", "&.",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~", ".", "?", ":",
}

func closerOf(k TokenKind) TokenKind {
	switch k {
	case TokenLParen:
		return TokenRParen
	case TokenLBracket:
		return TokenRBracket
	case TokenLBrace:
		return TokenRBrace
	}
	return TokenEOF
}

func isCloser(k TokenKind) bool {
	return k == TokenRParen || k == TokenRBracket || k == TokenRBrace
}

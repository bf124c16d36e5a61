package syntax

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

type lexer struct {
	src      []byte
	pos      int
	tokens   []Token
	comments []Comment

	spaceBefore bool
	lineStart   bool
	heredocs    []heredoc
}

// heredoc is a pending heredoc whose body starts on the next line.
type heredoc struct {
	tag      string
	indented bool // <<~ and <<- allow an indented terminator
}

// Lex splits src into tokens and comments. The token slice always ends
// with a TokenEOF token.
func Lex(src []byte) ([]Token, []Comment, error) {
	l := &lexer{src: src, lineStart: true}
	if err := l.run(); err != nil {
		return nil, nil, err
	}
	return l.tokens, l.comments, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		if l.lineStart {
			if l.hasLinePrefix("__END__") && l.restOfLineBlank(len("__END__")) {
				l.pos = len(l.src)
				break
			}
			if l.hasLinePrefix("=begin") {
				l.skipEmbeddedDoc()
				continue
			}
		}
		l.lineStart = false

		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
			l.spaceBefore = true
		case c == '\\' && l.peekAt(1) == '\n':
			l.pos += 2
			l.spaceBefore = true
		case c == '\\' && l.peekAt(1) == '\r' && l.peekAt(2) == '\n':
			l.pos += 3
			l.spaceBefore = true
		case c == '\n':
			l.emit(TokenNewline, l.pos, l.pos+1)
			l.lineStart = true
			l.skipHeredocBodies()
		case c == '#':
			l.scanComment()
		case c == '\'':
			if err := l.scanString('\'', false, TokenString); err != nil {
				return err
			}
		case c == '"':
			if err := l.scanString('"', true, TokenString); err != nil {
				return err
			}
		case c == '`':
			if err := l.scanString('`', true, TokenOther); err != nil {
				return err
			}
		case isDigit(c):
			l.scanNumber()
		case isIdentStart(c) || c == '@' || c == '$':
			l.scanIdent()
		case c == ':':
			if err := l.scanColon(); err != nil {
				return err
			}
		case c == ';':
			l.emit(TokenSemicolon, l.pos, l.pos+1)
		case c == ',':
			l.emit(TokenComma, l.pos, l.pos+1)
		case c == '(':
			l.emit(TokenLParen, l.pos, l.pos+1)
		case c == ')':
			l.emit(TokenRParen, l.pos, l.pos+1)
		case c == '[':
			l.emit(TokenLBracket, l.pos, l.pos+1)
		case c == ']':
			l.emit(TokenRBracket, l.pos, l.pos+1)
		case c == '{':
			l.emit(TokenLBrace, l.pos, l.pos+1)
		case c == '}':
			l.emit(TokenRBrace, l.pos, l.pos+1)
		case c == '%' && l.expectOperand() && l.scanPercentLiteral():
		case c == '/' && l.expectOperand() && l.scanRegexp():
		case c == '<' && l.peekAt(1) == '<' && l.scanHeredocStart():
		default:
			if op := l.matchOperator(); op != "" {
				l.emit(TokenOp, l.pos, l.pos+len(op))
				continue
			}
			_, size := utf8.DecodeRune(l.src[l.pos:])
			l.emit(TokenOther, l.pos, l.pos+size)
		}
	}
	l.tokens = append(l.tokens, Token{
		Kind:        TokenEOF,
		Range:       Range{Start: len(l.src), End: len(l.src)},
		SpaceBefore: l.spaceBefore,
	})
	return nil
}

// emit appends a token covering [start, end) and moves past it.
func (l *lexer) emit(kind TokenKind, start, end int) *Token {
	l.tokens = append(l.tokens, Token{
		Kind:        kind,
		Text:        string(l.src[start:end]),
		Range:       Range{Start: start, End: end},
		SpaceBefore: l.spaceBefore,
	})
	l.pos = end
	l.spaceBefore = false
	return &l.tokens[len(l.tokens)-1]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *lexer) hasLinePrefix(prefix string) bool {
	return bytes.HasPrefix(l.src[l.pos:], []byte(prefix))
}

func (l *lexer) restOfLineBlank(skip int) bool {
	rest := l.src[l.pos+skip:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return len(bytes.TrimSpace(rest)) == 0
}

// skipEmbeddedDoc skips a =begin ... =end block including the =end line.
func (l *lexer) skipEmbeddedDoc() {
	for l.pos < len(l.src) {
		end := bytes.IndexByte(l.src[l.pos:], '\n')
		line := l.src[l.pos:]
		if end >= 0 {
			line = line[:end]
		}
		isEnd := bytes.HasPrefix(line, []byte("=end"))
		if end < 0 {
			l.pos = len(l.src)
			return
		}
		l.pos += end + 1
		if isEnd {
			return
		}
	}
}

func (l *lexer) scanComment() {
	start := l.pos
	end := bytes.IndexByte(l.src[start:], '\n')
	if end < 0 {
		end = len(l.src)
	} else {
		end += start
	}
	text := strings.TrimSuffix(string(l.src[start:end]), "\r")
	l.comments = append(l.comments, Comment{
		Range: Range{Start: start, End: start + len(text)},
		Text:  text,
	})
	l.pos = end
}

func (l *lexer) scanString(delim byte, interpolate bool, kind TokenKind) error {
	start := l.pos
	end, bodies, err := l.quotedEnd(start, delim, interpolate)
	if err != nil {
		return err
	}
	tok := l.emit(kind, start, end)
	tok.Interpolated = len(bodies) > 0
	tok.Interpolations = bodies
	return nil
}

// quotedEnd returns the offset just past the literal opened at start and
// the ranges of its top-level #{...} bodies.
func (l *lexer) quotedEnd(start int, delim byte, interpolate bool) (int, []Range, error) {
	var bodies []Range
	i := start + 1
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == '\\':
			i += 2
		case c == delim:
			return i + 1, bodies, nil
		case interpolate && c == '#' && i+1 < len(l.src) && l.src[i+1] == '{':
			end, err := l.interpolationEnd(i + 2)
			if err != nil {
				return 0, nil, &Error{Offset: start, Err: ErrUnterminatedString}
			}
			bodies = append(bodies, Range{Start: i + 2, End: end - 1})
			i = end
		default:
			i++
		}
	}
	return 0, nil, &Error{Offset: start, Err: ErrUnterminatedString}
}

// interpolationEnd returns the offset just past the '}' closing a #{ opened before i.
func (l *lexer) interpolationEnd(i int) (int, error) {
	depth := 1
	for i < len(l.src) {
		switch c := l.src[i]; c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		case '\'', '"', '`':
			end, _, err := l.quotedEnd(i, c, c != '\'')
			if err != nil {
				return 0, err
			}
			i = end
		default:
			i++
		}
	}
	return 0, &Error{Offset: i, Err: ErrUnterminatedString}
}

func (l *lexer) scanNumber() {
	start := l.pos
	i := start
	kind := TokenInt
	for i < len(l.src) && (isAlnum(l.src[i]) || l.src[i] == '_') {
		i++
	}
	if i+1 < len(l.src) && l.src[i] == '.' && isDigit(l.src[i+1]) {
		kind = TokenFloat
		i++
		for i < len(l.src) && (isAlnum(l.src[i]) || l.src[i] == '_') {
			// exponent sign, as in 1.5e-3
			if (l.src[i] == 'e' || l.src[i] == 'E') && i+1 < len(l.src) && (l.src[i+1] == '-' || l.src[i+1] == '+') {
				i++
			}
			i++
		}
	}
	l.emit(kind, start, i)
}

func (l *lexer) scanIdent() {
	start := l.pos
	i := start
	switch l.src[i] {
	case '@':
		i++
		if i < len(l.src) && l.src[i] == '@' {
			i++
		}
	case '$':
		i++
		// special globals such as $0, $!, $~
		if i < len(l.src) && !isIdentStart(l.src[i]) {
			l.emit(TokenIdent, start, i+1)
			return
		}
	}
	for i < len(l.src) {
		c := l.src[i]
		if isAlnum(c) || c == '_' {
			i++
			continue
		}
		if c >= utf8.RuneSelf {
			_, size := utf8.DecodeRune(l.src[i:])
			i += size
			continue
		}
		break
	}
	if i < len(l.src) && (l.src[i] == '?' || l.src[i] == '!') && (i+1 >= len(l.src) || l.src[i+1] != '=') {
		i++
	}
	l.emit(TokenIdent, start, i)
}

func (l *lexer) scanColon() error {
	start := l.pos
	next := l.peekAt(1)
	switch {
	case next == ':':
		l.emit(TokenOp, start, start+2)
	case isIdentStart(next) || next == '@' || next == '$':
		l.pos++
		l.scanIdent()
		tok := &l.tokens[len(l.tokens)-1]
		tok.Kind = TokenSymbol
		tok.Range.Start = start
		tok.Text = string(l.src[start:tok.Range.End])
	case next == '"' || next == '\'':
		end, _, err := l.quotedEnd(start+1, next, next == '"')
		if err != nil {
			return err
		}
		l.emit(TokenSymbol, start, end)
	default:
		l.emit(TokenOp, start, start+1)
	}
	return nil
}

func (l *lexer) matchOperator() string {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if bytes.HasPrefix(rest, []byte(op)) {
			return op
		}
	}
	return ""
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= utf8.RuneSelf
}

// expectOperand reports whether the next token starts an operand rather
// than continuing an expression, which decides how '%', '/' and '<<' read.
func (l *lexer) expectOperand() bool {
	if len(l.tokens) == 0 {
		return true
	}
	switch l.tokens[len(l.tokens)-1].Kind {
	case TokenIdent:
		// `split /,/` passes a regexp, `total / 2` divides
		return l.spaceBefore && !isSpace(l.peekAt(1))
	case TokenInt, TokenFloat, TokenString, TokenSymbol, TokenRParen, TokenRBracket, TokenRBrace:
		return false
	}
	return true
}

// scanPercentLiteral scans %q(...), %Q[...], %(...), %w{...} and friends.
// It returns false, consuming nothing, when the input is not a literal.
func (l *lexer) scanPercentLiteral() bool {
	start := l.pos
	i := start + 1
	typ := byte('Q')
	explicit := false
	if i < len(l.src) && strings.IndexByte("qQwWiIrsx", l.src[i]) >= 0 {
		typ = l.src[i]
		explicit = true
		i++
	}
	if i >= len(l.src) {
		return false
	}
	open := l.src[i]
	if isAlnum(open) || isSpace(open) || open >= utf8.RuneSelf {
		return false
	}
	// %= is compound assignment
	if !explicit && open == '=' {
		return false
	}
	end, bodies, ok := l.delimitedEnd(i, open, strings.IndexByte("QWIrx", typ) >= 0)
	if !ok {
		return false
	}
	kind := TokenOther
	if typ == 'q' || typ == 'Q' {
		kind = TokenString
	}
	tok := l.emit(kind, start, end)
	tok.Interpolated = len(bodies) > 0
	tok.Interpolations = bodies
	return true
}

func (l *lexer) scanRegexp() bool {
	start := l.pos
	end, _, err := l.quotedEnd(start, '/', true)
	if err != nil {
		return false
	}
	for end < len(l.src) && strings.IndexByte("imxounse", l.src[end]) >= 0 {
		end++
	}
	l.emit(TokenOther, start, end)
	return true
}

// delimitedEnd returns the offset just past a percent literal body
// opened at i. Bracket delimiters nest.
func (l *lexer) delimitedEnd(i int, open byte, interpolate bool) (int, []Range, bool) {
	closer := open
	switch open {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	case '<':
		closer = '>'
	}
	depth := 1
	var bodies []Range
	for i++; i < len(l.src); {
		c := l.src[i]
		switch {
		case c == '\\':
			i += 2
		case interpolate && c == '#' && i+1 < len(l.src) && l.src[i+1] == '{':
			end, err := l.interpolationEnd(i + 2)
			if err != nil {
				return 0, nil, false
			}
			bodies = append(bodies, Range{Start: i + 2, End: end - 1})
			i = end
		case c == closer:
			depth--
			i++
			if depth == 0 {
				return i, bodies, true
			}
		case c == open && open != closer:
			depth++
			i++
		default:
			i++
		}
	}
	return 0, nil, false
}

// scanHeredocStart scans <<~TAG, <<-TAG, <<TAG and their quoted forms.
// The body is skipped at the end of the current line.
func (l *lexer) scanHeredocStart() bool {
	start := l.pos
	i := start + 2
	indented := false
	if i < len(l.src) && (l.src[i] == '~' || l.src[i] == '-') {
		indented = true
		i++
	} else if !l.expectOperand() && !l.spaceBefore {
		return false
	}
	if i >= len(l.src) {
		return false
	}

	var tag string
	interpolate := true
	switch q := l.src[i]; {
	case q == '\'' || q == '"' || q == '`':
		end := bytes.IndexByte(l.src[i+1:], q)
		if end <= 0 {
			return false
		}
		tag = string(l.src[i+1 : i+1+end])
		interpolate = q != '\''
		i += end + 2
	case (q >= 'A' && q <= 'Z') || (indented && isIdentStart(q)) || q == '_':
		j := i
		for j < len(l.src) && (isAlnum(l.src[j]) || l.src[j] == '_') {
			j++
		}
		tag = string(l.src[i:j])
		i = j
	default:
		return false
	}

	l.heredocs = append(l.heredocs, heredoc{tag: tag, indented: indented})
	tok := l.emit(TokenString, start, i)
	tok.Interpolated = interpolate && bytes.Contains(l.heredocBody(i), []byte("#{"))
	return true
}

// heredocBody returns the text from the line after offset up to the end
// of input, used only to sniff interpolation.
func (l *lexer) heredocBody(offset int) []byte {
	nl := bytes.IndexByte(l.src[offset:], '\n')
	if nl < 0 {
		return nil
	}
	body := l.src[offset+nl+1:]
	tag := l.heredocs[len(l.heredocs)-1].tag
	if end := bytes.Index(body, []byte(tag)); end >= 0 {
		body = body[:end]
	}
	return body
}

// skipHeredocBodies consumes the bodies of heredocs opened on the line
// that just ended.
func (l *lexer) skipHeredocBodies() {
	for _, doc := range l.heredocs {
		for l.pos < len(l.src) {
			end := bytes.IndexByte(l.src[l.pos:], '\n')
			line := l.src[l.pos:]
			next := len(l.src)
			if end >= 0 {
				line = line[:end]
				next = l.pos + end + 1
			}
			line = bytes.TrimSuffix(line, []byte("\r"))
			if doc.indented {
				line = bytes.TrimSpace(line)
			}
			l.pos = next
			if string(line) == doc.tag {
				break
			}
		}
	}
	l.heredocs = l.heredocs[:0]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

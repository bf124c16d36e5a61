package syntax

import (
	"errors"
)

// binary operator precedence; higher binds tighter
var binaryPrec = map[string]int{
	"**":  16,
	"*":   14,
	"/":   14,
	"%":   14,
	"+":   13,
	"-":   13,
	"<<":  12,
	">>":  12,
	"&":   11,
	"|":   10,
	"^":   10,
	">":   9,
	">=":  9,
	"<":   9,
	"<=":  9,
	"<=>": 8,
	"==":  8,
	"===": 8,
	"!=":  8,
	"=~":  8,
	"!~":  8,
	"&&":  7,
	"||":  6,
	"..":  5,
	"...": 5,
	"=":   2,
	"+=":  2,
	"-=":  2,
	"*=":  2,
	"/=":  2,
	"%=":  2,
	"**=": 2,
	"||=": 2,
	"&&=": 2,
	"|=":  2,
	"&=":  2,
	"^=":  2,
	"<<=": 2,
	">>=": 2,
}

const assignPrec = 2

func rightAssoc(op string) bool {
	return op == "**" || binaryPrec[op] == assignPrec
}

type parser struct {
	file  *File
	toks  []Token
	pos   int
	stmts []*Node
}

// Parse parses src as a Ruby source file.
//
// The grammar is a subset: string, numeric and symbol literals, adjacent
// string literal joins, binary and unary operators, assignments, method
// calls and bracketed groups. Anything else is kept as KindOther nodes
// so unknown syntax never aborts the parse. Only lexical errors such as
// an unterminated string are reported.
func Parse(filename string, src []byte) (*File, error) {
	f := newFile(filename, src)
	toks, comments, err := Lex(src)
	if err != nil {
		var serr *Error
		if errors.As(err, &serr) {
			serr.Pos = f.Position(serr.Offset)
		}
		return nil, err
	}
	f.Comments = comments

	p := &parser{file: f, toks: toks}
	f.Root = p.parseProgram()
	f.statements = p.stmts
	return f, nil
}

func (p *parser) node(kind Kind, r Range) *Node {
	return &Node{Kind: kind, Range: r, file: p.file}
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atTerminator() bool {
	switch p.peek().Kind {
	case TokenNewline, TokenSemicolon, TokenEOF:
		return true
	}
	return false
}

func (p *parser) skipNewlines() {
	for p.peek().Kind == TokenNewline {
		p.advance()
	}
}

func (p *parser) parseProgram() *Node {
	root := p.node(KindProgram, Range{Start: 0, End: len(p.file.Src)})
	root.Parts = p.parseStatements()
	return root
}

// parseStatements parses statements until the end of the token stream.
func (p *parser) parseStatements() []*Node {
	var stmts []*Node
	for {
		for p.atTerminator() && p.peek().Kind != TokenEOF {
			p.advance()
		}
		if p.peek().Kind == TokenEOF {
			return stmts
		}
		stmts = append(stmts, p.parseStatement())
	}
}

// parseStatement parses expressions up to the end of the line. A line
// holding more than one expression, such as a command call `puts 'a'`,
// becomes a KindOther node whose Parts are the expressions.
func (p *parser) parseStatement() *Node {
	var exprs []*Node
	for !p.atTerminator() {
		if e := p.parseExpr(0); e != nil {
			exprs = append(exprs, e)
			continue
		}
		exprs = append(exprs, p.other())
	}

	stmt := exprs[0]
	if len(exprs) > 1 {
		stmt = p.node(KindOther, join(exprs[0].Range, exprs[len(exprs)-1].Range))
		stmt.Parts = exprs
	}
	p.stmts = append(p.stmts, stmt)
	return stmt
}

// other consumes one token as an opaque node.
func (p *parser) other() *Node {
	tok := p.advance()
	return p.node(KindOther, tok.Range)
}

// parseExpr parses a binary expression whose operators bind at least as
// tightly as minPrec. It returns nil without consuming input when the
// current token cannot start an expression.
func (p *parser) parseExpr(minPrec int) *Node {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		tok := p.peek()
		if tok.Kind != TokenOp {
			return left
		}
		prec, ok := binaryPrec[tok.Text]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		// a trailing binary operator continues the expression on the next line
		p.skipNewlines()

		next := prec + 1
		if rightAssoc(tok.Text) {
			next = prec
		}
		right := p.parseExpr(next)

		kind := KindCall
		if prec == assignPrec {
			kind = KindAssign
		}
		end := tok.Range
		if right != nil {
			end = right.Range
		}
		n := p.node(kind, join(left.Range, end))
		n.Receiver = left
		n.Operator = tok.Text
		n.Selector = tok.Range
		n.Argument = right
		left = n
	}
}

func (p *parser) parseUnary() *Node {
	tok := p.peek()
	if tok.Kind == TokenOp {
		switch tok.Text {
		case "-", "+", "!", "~":
			p.advance()
			operand := p.parseUnary()
			end := tok.Range
			if operand != nil {
				end = operand.Range
			}
			n := p.node(KindCall, join(tok.Range, end))
			n.Receiver = operand
			n.Operator = tok.Text
			n.Selector = tok.Range
			return n
		}
	}
	prim := p.parsePrimary()
	if prim == nil {
		return nil
	}
	return p.parsePostfix(prim)
}

func (p *parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenString:
		return p.parseStringLiteral()
	case TokenInt:
		p.advance()
		return p.node(KindInt, tok.Range)
	case TokenFloat:
		p.advance()
		return p.node(KindFloat, tok.Range)
	case TokenSymbol:
		p.advance()
		return p.node(KindSymbol, tok.Range)
	case TokenIdent:
		p.advance()
		return p.node(KindIdent, tok.Range)
	case TokenLParen, TokenLBracket, TokenLBrace:
		return p.parseGroup()
	}
	return nil
}

// parseStringLiteral parses one string literal, joining adjacent
// literals ('a' 'b', or 'a' \ newline 'b') into a single KindDstr node.
func (p *parser) parseStringLiteral() *Node {
	var parts []*Node
	for p.peek().Kind == TokenString {
		tok := p.advance()
		kind := KindStr
		if tok.Interpolated {
			kind = KindDstr
		}
		n := p.node(kind, tok.Range)
		for _, body := range tok.Interpolations {
			n.Parts = append(n.Parts, p.parseInterpolation(body))
		}
		parts = append(parts, n)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	n := p.node(KindDstr, join(parts[0].Range, parts[len(parts)-1].Range))
	n.Parts = parts
	return n
}

// parseInterpolation parses the code inside one #{...} into a KindGroup
// covering the delimiters. A body that fails to lex is kept opaque.
func (p *parser) parseInterpolation(body Range) *Node {
	n := p.node(KindGroup, Range{Start: body.Start - 2, End: body.End + 1})
	n.Operator = "#{"

	toks, _, err := Lex(p.file.Src[body.Start:body.End])
	if err != nil {
		return n
	}
	for i := range toks {
		toks[i].shift(body.Start)
	}
	// statements inside a literal are not file statements
	sub := &parser{file: p.file, toks: toks}
	n.Parts = sub.parseStatements()
	return n
}

// parseGroup parses a bracketed list. Newlines and commas inside the
// brackets separate elements. An unclosed group runs to the end of input.
func (p *parser) parseGroup() *Node {
	open := p.advance()
	closer := closerOf(open.Kind)
	n := p.node(KindGroup, open.Range)
	n.Operator = open.Text
	for {
		tok := p.peek()
		switch {
		case tok.Kind == closer:
			p.advance()
			n.Range.End = tok.Range.End
			return n
		case tok.Kind == TokenEOF:
			return n
		case tok.Kind == TokenNewline || tok.Kind == TokenComma || tok.Kind == TokenSemicolon:
			p.advance()
			continue
		case isCloser(tok.Kind):
			// mismatched closer
			n.Parts = append(n.Parts, p.other())
		default:
			if e := p.parseExpr(0); e != nil {
				n.Parts = append(n.Parts, e)
			} else {
				n.Parts = append(n.Parts, p.other())
			}
		}
		n.Range.End = n.Parts[len(n.Parts)-1].Range.End
	}
}

// parsePostfix parses method calls and indexing following a primary.
func (p *parser) parsePostfix(n *Node) *Node {
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenOp && (tok.Text == "." || tok.Text == "&." || tok.Text == "::"):
			p.advance()
			p.skipNewlines()
			name := p.peek()
			if name.Kind != TokenIdent && name.Kind != TokenOp {
				call := p.node(KindCall, join(n.Range, tok.Range))
				call.Receiver = n
				call.Operator = tok.Text
				call.Selector = tok.Range
				return call
			}
			p.advance()
			call := p.node(KindCall, join(n.Range, name.Range))
			call.Receiver = n
			call.Operator = name.Text
			call.Selector = name.Range
			p.parseCallArguments(call)
			n = call
		case tok.Kind == TokenLBracket && !tok.SpaceBefore:
			index := p.parseGroup()
			call := p.node(KindCall, join(n.Range, index.Range))
			call.Receiver = n
			call.Operator = "[]"
			call.Selector = index.Range
			call.Argument = unwrapArguments(index)
			n = call
		case tok.Kind == TokenLParen && !tok.SpaceBefore && n.Kind == KindIdent:
			call := p.node(KindCall, n.Range)
			call.Operator = p.file.Text(n.Range)
			call.Selector = n.Range
			p.parseCallArguments(call)
			n = call
		default:
			return n
		}
	}
}

// parseCallArguments attaches a parenthesized argument list directly
// following the method name, if any.
func (p *parser) parseCallArguments(call *Node) {
	tok := p.peek()
	if tok.Kind != TokenLParen || tok.SpaceBefore {
		return
	}
	args := p.parseGroup()
	call.Argument = unwrapArguments(args)
	call.Range.End = args.Range.End
}

// unwrapArguments returns the sole argument of a list, nil for an empty
// list, or the list itself.
func unwrapArguments(args *Node) *Node {
	switch len(args.Parts) {
	case 0:
		return nil
	case 1:
		return args.Parts[0]
	}
	return args
}

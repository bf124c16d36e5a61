package syntax

import (
	"go/token"
)

// Kind tags a syntax node.
type Kind int

const (
	KindOther   Kind = iota
	KindProgram      // whole file; Parts are the statements
	KindStr          // plain string literal
	KindDstr         // interpolated string literal or adjacent-literal join
	KindInt
	KindFloat
	KindSymbol
	KindIdent
	KindCall   // operator or method call: Receiver Operator Argument
	KindAssign // Receiver Operator Argument, Operator is "=" or a compound form
	KindGroup  // (...), [...] or {...}; Parts are the elements
)

var kindNames = [...]string{
	KindOther:   "Other",
	KindProgram: "Program",
	KindStr:     "Str",
	KindDstr:    "Dstr",
	KindInt:     "Int",
	KindFloat:   "Float",
	KindSymbol:  "Symbol",
	KindIdent:   "Ident",
	KindCall:    "Call",
	KindAssign:  "Assign",
	KindGroup:   "Group",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Range is a half-open byte interval [Start, End) in a file.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether r fully covers other.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

func join(a, b Range) Range {
	return Range{Start: a.Start, End: b.End}
}

// Node is a syntax tree node.
//
// Binary operator calls, unary operator calls and method calls all use
// KindCall. A unary call has no Argument; a receiverless method call such
// as foo(1) has no Receiver.
type Node struct {
	Kind     Kind
	Range    Range
	Selector Range // operator or method name token
	Operator string
	Receiver *Node
	Argument *Node
	Parts    []*Node

	file *File
}

// Source returns the source text covered by the node.
func (n *Node) Source() string {
	if n == nil || n.file == nil {
		return ""
	}
	return n.file.Text(n.Range)
}

// File returns the file the node was parsed from.
func (n *Node) File() *File {
	if n == nil {
		return nil
	}
	return n.file
}

// Pos returns the position of the first byte of the node.
func (n *Node) Pos() token.Position {
	return n.file.Position(n.Range.Start)
}

// End returns the position immediately after the node.
func (n *Node) End() token.Position {
	return n.file.Position(n.Range.End)
}

// IsString reports whether the node is a plain or interpolated string literal.
func (n *Node) IsString() bool {
	return n != nil && (n.Kind == KindStr || n.Kind == KindDstr)
}

// Children returns the direct children in source order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	children := make([]*Node, 0, 2+len(n.Parts))
	if n.Receiver != nil {
		children = append(children, n.Receiver)
	}
	if n.Argument != nil {
		children = append(children, n.Argument)
	}
	return append(children, n.Parts...)
}

// Inspect traverses the tree rooted at n in depth-first order. If fn
// returns false, the children of that node are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Inspect(child, fn)
	}
}

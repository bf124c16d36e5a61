package syntax

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"strings"
)

// ErrUnterminatedString is returned when a quoted literal runs to the end of input.
var ErrUnterminatedString = errors.New("unterminated string literal")

// Error reports a lexical error at a source position.
type Error struct {
	Offset int
	Pos    token.Position
	Err    error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %v", e.Pos, e.Err)
	}
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// File is a parsed source file.
type File struct {
	Name     string
	Src      []byte
	Root     *Node
	Comments []Comment

	statements []*Node
	tokFile    *token.File
}

func newFile(name string, src []byte) *File {
	fset := token.NewFileSet()
	tf := fset.AddFile(name, -1, len(src))
	tf.SetLinesForContent(src)
	return &File{
		Name:    name,
		Src:     src,
		tokFile: tf,
	}
}

// ParseFile reads and parses the named file.
func ParseFile(filename string) (*File, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(filename, src)
}

// Text returns the source text for r, clamped to the file bounds.
func (f *File) Text(r Range) string {
	start, end := f.clamp(r.Start), f.clamp(r.End)
	if start >= end {
		return ""
	}
	return string(f.Src[start:end])
}

// Position converts a byte offset into a line/column position.
func (f *File) Position(offset int) token.Position {
	return f.tokFile.Position(f.tokFile.Pos(f.clamp(offset)))
}

// Line returns the 1-based line without its trailing newline.
func (f *File) Line(line int) string {
	if line < 1 || line > f.tokFile.LineCount() {
		return ""
	}
	start := f.tokFile.Offset(f.tokFile.LineStart(line))
	end := len(f.Src)
	if line < f.tokFile.LineCount() {
		end = f.tokFile.Offset(f.tokFile.LineStart(line+1)) - 1
	}
	return strings.TrimSuffix(string(f.Src[start:end]), "\r")
}

// Statements returns every statement in source order.
func (f *File) Statements() []*Node {
	return f.statements
}

func (f *File) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(f.Src) {
		return len(f.Src)
	}
	return offset
}

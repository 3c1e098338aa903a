package compiler

import (
	"fmt"
	"strings"
)

// SyntaxError is a surface parse failure at a known source position.
type SyntaxError struct {
	Line       int
	Column     int
	Message    string
	SourceLine string // the offending line, echoed beneath the message
}

// Error renders "<line>:<column>: <message>", the source line and a caret
// under the failing column.
func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", e.Line, e.Column, e.Message)
	b.WriteByte('\n')
	b.WriteString(e.SourceLine)
	b.WriteByte('\n')
	col := e.Column
	if col < 1 {
		col = 1
	}
	b.WriteString(strings.Repeat(" ", col-1))
	b.WriteByte('^')
	return b.String()
}

// SemanticError reports identifier, type and label violations. It carries
// no position.
type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string { return e.Message }

func semanticf(format string, args ...any) error {
	return &SemanticError{Message: fmt.Sprintf(format, args...)}
}

// EncodingError reports a value that cannot be represented on the wire.
type EncodingError struct {
	Message string
}

func (e *EncodingError) Error() string { return e.Message }

func encodingf(format string, args ...any) error {
	return &EncodingError{Message: fmt.Sprintf(format, args...)}
}

// lineAt returns the 1-based line of source, without its terminator.
func lineAt(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

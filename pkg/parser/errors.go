package parser

import "fmt"

// ParseError reports the first syntax error found in a source file. Parsing
// is all-or-nothing: no partial program accompanies it.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func newParseError(line, col int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

package ontology

import (
	"errors"
	"fmt"
)

// ErrNoParser is returned when no registered parser recognizes a
// source file.
var ErrNoParser = errors.New("no parser for source")

// ParseError reports a syntax or structural problem in one ontology
// source. Line is 1-based and zero when the position is unknown.
type ParseError struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("parsing %s:%d: %s", e.File, e.Line, e.Msg)
	case e.File != "":
		return fmt.Sprintf("parsing %s: %s", e.File, e.Msg)
	default:
		return fmt.Sprintf("parsing ontology: %s", e.Msg)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErrorf(file string, line int, format string, args ...any) *ParseError {
	return &ParseError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

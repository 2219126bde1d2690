package chordsheet

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("chordsheet: parse failure")
	// ErrRender matches every *RenderError.
	ErrRender = errors.New("chordsheet: render failure")
)

// ParseError reports input that does not fit a parser's grammar.
type ParseError struct {
	Parser string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Parser, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Parser, e.Msg)
}

// Is makes errors.Is(err, ErrParse) succeed.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// RenderError reports a formatter failure.
type RenderError struct {
	Formatter string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Formatter, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRender) succeed.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

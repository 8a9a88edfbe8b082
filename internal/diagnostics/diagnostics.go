package diagnostics

import (
	"fmt"

	"github.com/infra-lang/infra/internal/token"
)

// Severity distinguishes hard errors from advisory findings. Type checker
// findings are warnings unless strict mode promotes them.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Stage-prefixed codes: L lexer, P parser, T type checker, C compiler,
// R runtime.
const (
	ErrL001 = "L001" // illegal character
	ErrL002 = "L002" // unterminated string
	ErrL003 = "L003" // malformed number

	ErrP001 = "P001" // unexpected token
	ErrP002 = "P002" // no parse rule for token
	ErrP003 = "P003" // invalid assignment target
	ErrP004 = "P004" // return outside function
	ErrP005 = "P005" // malformed type annotation
	ErrP006 = "P006" // recursion depth exceeded

	ErrT001 = "T001" // annotation mismatch

	ErrC001 = "C001" // unsupported node
	ErrC002 = "C002" // too many constants / locals

	ErrR001 = "R001" // runtime error
)

type Error struct {
	Code     string
	Message  string
	File     string
	Line     int
	Column   int
	Severity Severity
}

func NewError(code string, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Line:     tok.Line,
		Column:   tok.Column,
		Severity: SeverityError,
	}
}

func NewWarning(code string, tok token.Token, format string, args ...interface{}) *Error {
	e := NewError(code, tok, format, args...)
	e.Severity = SeverityWarning
	return e
}

// NewErrorAt builds an error from a bare position, for stages that no
// longer hold a token (VM unwinding reports from line/column tables).
func NewErrorAt(code string, line, column int, format string, args ...interface{}) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   column,
		Severity: SeverityError,
	}
}

func (e *Error) Error() string {
	file := e.File
	if file == "" {
		file = "<source>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", file, e.Message)
}

// HasErrors reports whether any diagnostic in the list is a hard error.
func HasErrors(errs []*Error) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

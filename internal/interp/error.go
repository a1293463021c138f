package interp

import "fmt"

// ErrorCode classifies interpreter failures for the API response shape.
type ErrorCode string

const (
	CodeSyntax      ErrorCode = "SYNTAX_ERROR"
	CodeRuntime     ErrorCode = "RUNTIME_ERROR"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeStepLimit   ErrorCode = "STEP_LIMIT"
	CodeOutputLimit ErrorCode = "OUTPUT_LIMIT"
)

// Error is the structured failure attached to a run result. Line and Column
// are 1-based; LineText and Hint are best-effort diagnostics.
type Error struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Line     int       `json:"line,omitempty"`
	Column   int       `json:"column,omitempty"`
	LineText string    `json:"line_text,omitempty"`
	Hint     string    `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Code, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func syntaxErr(line int, column int, lineText, hint, format string, args ...any) *Error {
	return &Error{
		Code:     CodeSyntax,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   column,
		LineText: lineText,
		Hint:     hint,
	}
}

func runtimeErr(line int, column int, lineText, hint, format string, args ...any) *Error {
	return &Error{
		Code:     CodeRuntime,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   column,
		LineText: lineText,
		Hint:     hint,
	}
}

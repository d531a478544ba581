// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents one of the §7 error kinds the core recognizes.
type ErrorType string

const (
	// ParseFailure: the AST host rejected the input; propagate without analysis.
	ParseFailure ErrorType = "ParseFailure"
	// UnsupportedType: surfaced as skipped MPI ops with an inline comment; not fatal.
	UnsupportedType ErrorType = "UnsupportedType"
	// MissingFunctionDefinition: a callee has no body; a stub is emitted instead.
	MissingFunctionDefinition ErrorType = "MissingFunctionDefinition"
	// NameCollision: a local name collides with an MPI reserved identifier.
	NameCollision ErrorType = "NameCollision"
	// InvalidLoopStructure: loop source unreadable; left unparallelized, verbatim.
	InvalidLoopStructure ErrorType = "InvalidLoopStructure"
	// OutputIOFailure: writing the emitted translation unit failed; fatal.
	OutputIOFailure ErrorType = "OutputIOFailure"

	// SyntaxError is raised by the reference front end (§B.1); it is the
	// concrete shape a ParseFailure takes when the bundled parser is used.
	SyntaxError ErrorType = "SyntaxError"
)

// Fatal reports whether an error of this kind must abort emission per §7.
func (t ErrorType) Fatal() bool {
	return t == ParseFailure || t == OutputIOFailure || t == SyntaxError
}

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// CoreError represents a classified pipeline error with its source location.
type CoreError struct {
	Type      ErrorType
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Source    string // The source line where the error occurred
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
}

// Error implements the error interface
func (e *CoreError) Error() string {
	var sb strings.Builder
	
	// Error type and message
	sb.WriteString(fmt.Sprintf("%s: %s\n", e.Type, e.Message))
	
	// Location information
	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", 
			e.Location.File, e.Location.Line, e.Location.Column))
		
		// Show source line if available
		if e.Source != "" {
			sb.WriteString(fmt.Sprintf("\n  %d | %s\n", e.Location.Line, e.Source))
			// Add error indicator
			sb.WriteString(fmt.Sprintf("  %s", strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line)))))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^\n")
		}
	}
	
	// Stack trace
	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, frame := range e.CallStack {
			if frame.Function != "" {
				sb.WriteString(fmt.Sprintf("  at %s (%s:%d:%d)\n", 
					frame.Function, frame.File, frame.Line, frame.Column))
			} else {
				sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", 
					frame.File, frame.Line, frame.Column))
			}
		}
	}
	
	return sb.String()
}

// NewSyntaxError creates a new syntax error raised by the reference front end.
func NewSyntaxError(message string, file string, line, column int) *CoreError {
	return &CoreError{
		Type:    SyntaxError,
		Message: message,
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// New creates a CoreError of the given kind at the given location.
func New(kind ErrorType, message string, file string, line, column int) *CoreError {
	return &CoreError{
		Type:    kind,
		Message: message,
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// WithSource adds source code context to the error
func (e *CoreError) WithSource(source string) *CoreError {
	e.Source = source
	return e
}

// WithStack adds a call stack to the error
func (e *CoreError) WithStack(stack []StackFrame) *CoreError {
	e.CallStack = stack
	return e
}

// AddStackFrame adds a single stack frame
func (e *CoreError) AddStackFrame(function, file string, line, column int) *CoreError {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     file,
		Line:     line,
		Column:   column,
	})
	return e
}
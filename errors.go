package glint

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SourcePosition tracks the position of code in source files
type SourcePosition struct {
	Line         int
	Column       int
	Length       int
	OriginalText string
	Filename     string
}

// PositionOf converts a byte span into a line/column position
func PositionOf(src string, span Span, filename string) *SourcePosition {
	if span.Start > len(src) {
		span.Start = len(src)
	}
	if span.End > len(src) {
		span.End = len(src)
	}
	line := 1 + strings.Count(src[:span.Start], "\n")
	lineStart := strings.LastIndex(src[:span.Start], "\n") + 1
	length := span.Len()
	if length < 1 {
		length = 1
	}
	return &SourcePosition{
		Line:         line,
		Column:       span.Start - lineStart + 1,
		Length:       length,
		OriginalText: src,
		Filename:     filename,
	}
}

// formatSourceContext renders the offending line with a caret underline
func formatSourceContext(pos *SourcePosition) string {
	lines := strings.Split(pos.OriginalText, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}
	text := lines[pos.Line-1]
	width := len(fmt.Sprint(pos.Line))
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %*d | %s\n", width, pos.Line, text)
	length := pos.Length
	if rest := len(text) - (pos.Column - 1); length > rest {
		length = rest
	}
	if length < 1 {
		length = 1
	}
	fmt.Fprintf(&sb, "  %s | %s%s", strings.Repeat(" ", width), strings.Repeat(" ", pos.Column-1), strings.Repeat("^", length))
	return sb.String()
}

// FormatDiagnostic renders an error message with its location and context
func FormatDiagnostic(message string, pos *SourcePosition) string {
	out := "error: " + message
	if pos == nil {
		return out
	}
	filename := pos.Filename
	if filename == "" {
		filename = "<input>"
	}
	out += fmt.Sprintf("\n  at line %d, column %d in %s\n", pos.Line, pos.Column, filename)
	return out + formatSourceContext(pos)
}

// ParseError reports malformed input
type ParseError struct {
	Unit    string
	Source  string
	Span    Span
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// Diagnostic renders the error with a source snippet
func (e *ParseError) Diagnostic() string {
	return FormatDiagnostic("syntax error: "+e.Message, PositionOf(e.Source, e.Span, e.Unit))
}

// CompileError reports a name resolution or type failure in a unit
type CompileError struct {
	Unit    string
	Source  string
	Span    Span
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Unit, e.Message)
}

// Diagnostic renders the error with a source snippet
func (e *CompileError) Diagnostic() string {
	return FormatDiagnostic(e.Message, PositionOf(e.Source, e.Span, e.Unit))
}

// UnsupportedError is a construct the REPL refuses without compiling it
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string {
	return e.Message
}

// RuntimeError is raised while evaluating code
type RuntimeError struct {
	Module   string
	Function string
	Message  string
}

func (e *RuntimeError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("Runtime error in %s: %s", e.Module, e.Message)
	}
	return fmt.Sprintf("Runtime error at %s.%s: %s", e.Module, e.Function, e.Message)
}

// ErrInterrupted reports a cooperative cancellation of evaluation
var ErrInterrupted = errors.New("Interrupted.")

// Diagnostic formats any error for the user; errors with source context
// get a caret snippet
func Diagnostic(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Diagnostic()
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Diagnostic()
	}
	var ue *UnsupportedError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}

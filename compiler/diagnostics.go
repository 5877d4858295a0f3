package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a diagnostic.
type ErrorKind int

const (
	SyntaxError     ErrorKind = iota + 1 // unexpected token
	NameError                            // undefined, duplicate or misused name
	TypeError                            // incompatible types
	CapacityError                        // too many globals, fields or locals
	StructuralError                      // missing or malformed main
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case NameError:
		return "NameError"
	case TypeError:
		return "TypeError"
	case CapacityError:
		return "CapacityError"
	case StructuralError:
		return "StructuralError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Diagnostic is a positioned compile error. Diagnostics never stop
// compilation; the parser records them and continues.
type Diagnostic struct {
	Pos     Position
	Kind    ErrorKind
	Message string
}

// String formats the diagnostic as "Line L, Col C: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("Line %d, Col %d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

func (d Diagnostic) Error() string {
	return d.String()
}

var (
	// ErrTooManyErrors reports that compilation stopped at the diagnostic bound.
	ErrTooManyErrors = errors.New("too many errors")

	// ErrCompilationFailed reports that a compilation produced diagnostics
	// and therefore no object.
	ErrCompilationFailed = errors.New("compilation failed")
)

// abortCompile is raised by the parser when the diagnostic bound is reached
// and recovered by Compile.
type abortCompile struct{}

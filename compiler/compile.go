package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/microjava/pkg/bytecode"
)

// DefaultMaxErrors is the diagnostic bound used by DefaultOptions.
const DefaultMaxErrors = 1000

// Options controls a compilation.
type Options struct {
	// MaxErrors stops the parse once this many diagnostics are recorded.
	// 0 means unlimited.
	MaxErrors int
}

// DefaultOptions returns the options used by the command-line compiler.
func DefaultOptions() Options {
	return Options{MaxErrors: DefaultMaxErrors}
}

// Result is the outcome of compiling one program.
type Result struct {
	Diagnostics []Diagnostic

	// Aborted is set when the diagnostic bound stopped the parse.
	Aborted bool

	// Object and Debug are nil unless the compilation is error free.
	Object *bytecode.Object
	Debug  *bytecode.DebugInfo

	// Scope is the program scope, available even when compilation failed.
	// It is nil if the parse stopped before the program header.
	Scope *Scope
}

// ErrorCount returns the number of diagnostics.
func (r *Result) ErrorCount() int {
	return len(r.Diagnostics)
}

// Err summarizes the result: nil for a clean compilation, ErrTooManyErrors
// when the diagnostic bound was hit, ErrCompilationFailed otherwise.
func (r *Result) Err() error {
	switch {
	case r.Aborted:
		return fmt.Errorf("%w: stopped after %d errors", ErrTooManyErrors, len(r.Diagnostics))
	case len(r.Diagnostics) > 0:
		return fmt.Errorf("%w: %d errors found", ErrCompilationFailed, len(r.Diagnostics))
	}
	return nil
}

// Compile compiles a MicroJava program read from r. The returned error is
// non-nil only when the source cannot be read; compile errors are reported
// in Result.Diagnostics.
func Compile(r io.Reader, opts Options) (*Result, error) {
	lexer := NewLexer(r)
	p := NewParser(lexer, opts.MaxErrors)

	res := &Result{}
	res.Aborted = p.run()
	if err := lexer.Err(); err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	res.Diagnostics = p.diags
	res.Scope = p.program
	if len(res.Diagnostics) == 0 {
		res.Object = p.code.Object()
		res.Debug = p.debug
		res.Debug.Bind(res.Object)
	}
	return res, nil
}

// CompileString compiles an in-memory program.
func CompileString(src string, opts Options) (*Result, error) {
	return Compile(strings.NewReader(src), opts)
}

// run parses the whole program and reports whether the diagnostic bound
// stopped it early.
func (p *Parser) run() (aborted bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortCompile); !ok {
				panic(r)
			}
			aborted = true
		}
	}()
	p.ParseProgram()
	return false
}

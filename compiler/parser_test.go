package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"
)

// diagnose compiles src and returns its diagnostics.
func diagnose(t *testing.T, src string) []Diagnostic {
	t.Helper()
	res, err := CompileString(src, Options{})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if res.ErrorCount() > 0 && res.Object != nil {
		t.Errorf("object produced despite %d errors", res.ErrorCount())
	}
	return res.Diagnostics
}

// countKind returns how many diagnostics have the given kind.
func countKind(diags []Diagnostic, kind ErrorKind) int {
	n := 0
	for _, d := range diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func TestParserDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		msg  string
	}{
		{
			name: "missing semicolon",
			src:  "program P { void main() { print(1) } }",
			kind: SyntaxError,
			msg:  "; expected, found }",
		},
		{
			name: "undefined variable",
			src:  "program P { void main() { y = 1; } }",
			kind: NameError,
			msg:  "y can't be resolved to a name",
		},
		{
			name: "undefined type",
			src:  "program P Foo x; { void main() { } }",
			kind: NameError,
			msg:  "Foo can't be resolved to a name",
		},
		{
			name: "variable used as type",
			src:  "program P int x; x y; { void main() { } }",
			kind: NameError,
			msg:  "x can't be resolved to a type",
		},
		{
			name: "type used as variable",
			src:  "program P { void main() { int = 1; } }",
			kind: NameError,
			msg:  "int can't be resolved to a variable",
		},
		{
			name: "assign to constant",
			src:  "program P final int K = 1; { void main() { K = 2; } }",
			kind: NameError,
			msg:  "illegal left-hand side K in assignment",
		},
		{
			name: "method used as value",
			src:  "program P int x; { void f() { } void main() { x = f; } }",
			kind: NameError,
			msg:  "f can't be resolved to a variable",
		},
		{
			name: "call of variable",
			src:  "program P int x; { void main() { x(); } }",
			kind: NameError,
			msg:  "x can't be resolved to a method",
		},
		{
			name: "assignment type mismatch",
			src:  "program P int x; { void main() { x = 'a'; } }",
			kind: TypeError,
			msg:  "incompatible types in assignment: char to int",
		},
		{
			name: "constant type mismatch",
			src:  "program P final int K = 'a'; { void main() { } }",
			kind: TypeError,
			msg:  "incompatible types in constant declaration",
		},
		{
			name: "constant needs literal",
			src:  "program P final int K = x; { void main() { } }",
			kind: SyntaxError,
			msg:  "number or character constant expected, found identifier x",
		},
		{
			name: "arithmetic on char",
			src:  "program P char c; { void main() { print(c + 1); } }",
			kind: TypeError,
			msg:  "arithmetic operands must be of type int",
		},
		{
			name: "comparison mismatch",
			src:  "program P int x; char c; { void main() { if (x == c) ; } }",
			kind: TypeError,
			msg:  "incompatible types in comparison: int and char",
		},
		{
			name: "ordering references",
			src:  "program P int[] a, b; { void main() { if (a < b) ; } }",
			kind: TypeError,
			msg:  "reference types can only be compared with == and !=",
		},
		{
			name: "missing relational operator",
			src:  "program P int x; { void main() { while (x) ; } }",
			kind: SyntaxError,
			msg:  "relational operator expected, found )",
		},
		{
			name: "field of non-object",
			src:  "program P int x; { void main() { x.f = 1; } }",
			kind: TypeError,
			msg:  "illegal field access on non-object x",
		},
		{
			name: "unknown field",
			src:  "program P class C { int f; } C c; { void main() { c.g = 1; } }",
			kind: NameError,
			msg:  "g is not a field of C",
		},
		{
			name: "index non-array",
			src:  "program P int x; { void main() { x[0] = 1; } }",
			kind: TypeError,
			msg:  "illegal element access on non-array x",
		},
		{
			name: "char index",
			src:  "program P int[] a; { void main() { a['c'] = 1; } }",
			kind: TypeError,
			msg:  "array index must be of type int",
		},
		{
			name: "char array size",
			src:  "program P int[] a; { void main() { a = new int['c']; } }",
			kind: TypeError,
			msg:  "array size must be of type int",
		},
		{
			name: "instantiate primitive",
			src:  "program P int x; { void main() { x = new int; } }",
			kind: TypeError,
			msg:  "illegal instantiation: int is not a class",
		},
		{
			name: "void method in expression",
			src:  "program P int x; { void f() { } void main() { x = f(); } }",
			kind: TypeError,
			msg:  "void method f used in an expression",
		},
		{
			name: "too many arguments",
			src:  "program P { void f(int a) { } void main() { f(1, 2); } }",
			kind: TypeError,
			msg:  "wrong number of arguments in call of f: have 2, want 1",
		},
		{
			name: "too few arguments",
			src:  "program P { void f(int a, int b) { } void main() { f(1); } }",
			kind: TypeError,
			msg:  "wrong number of arguments in call of f: have 1, want 2",
		},
		{
			name: "argument type",
			src:  "program P { void f(int a) { } void main() { f('x'); } }",
			kind: TypeError,
			msg:  "incompatible type char for parameter 1 of f, want int",
		},
		{
			name: "len of non-array",
			src:  "program P int x; { void main() { x = len(x); } }",
			kind: TypeError,
			msg:  "incompatible type int for parameter 1 of len, want array",
		},
		{
			name: "return value from void",
			src:  "program P { void main() { return 1; } }",
			kind: TypeError,
			msg:  "void method must not return a value",
		},
		{
			name: "missing return value",
			src:  "program P { int f() { return; } void main() { } }",
			kind: TypeError,
			msg:  "missing return value in return statement",
		},
		{
			name: "return type mismatch",
			src:  "program P { int f() { return 'a'; } void main() { } }",
			kind: TypeError,
			msg:  "invalid expression type char in return statement, want int",
		},
		{
			name: "read array",
			src:  "program P int[] a; { void main() { read(a); } }",
			kind: TypeError,
			msg:  "operand of read must be of type int or char",
		},
		{
			name: "read constant",
			src:  "program P final int K = 1; { void main() { read(K); } }",
			kind: NameError,
			msg:  "illegal operand K in read statement",
		},
		{
			name: "print array",
			src:  "program P int[] a; { void main() { print(a); } }",
			kind: TypeError,
			msg:  "illegal expression type int[] in print statement",
		},
		{
			name: "negate char",
			src:  "program P char c; { void main() { print(-c); } }",
			kind: TypeError,
			msg:  "operand of unary minus must be of type int",
		},
		{
			name: "illegal statement start",
			src:  "program P int x; { void main() { if (x == 1) else ; } }",
			kind: SyntaxError,
			msg:  "illegal start of statement: else",
		},
		{
			name: "invalid token",
			src:  "program P { void main() { print(1 @ 2); } }",
			kind: SyntaxError,
			msg:  `) expected, found invalid token "@"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			diags := diagnose(t, tc.src)
			if len(diags) == 0 {
				t.Fatalf("no diagnostics, want %s %q", tc.kind, tc.msg)
			}
			d := diags[0]
			if d.Kind != tc.kind || d.Message != tc.msg {
				t.Errorf("first diagnostic = %s %q, want %s %q (all: %v)", d.Kind, d.Message, tc.kind, tc.msg, diags)
			}
		})
	}
}

func TestDuplicateDeclarationReportedOnce(t *testing.T) {
	diags := diagnose(t, "program P int x; int x; { void main() { } }")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if diags[0].Kind != NameError || diags[0].Message != "x already declared" {
		t.Errorf("diagnostic = %s %q", diags[0].Kind, diags[0].Message)
	}
	if diags[0].Pos != (Position{Line: 1, Column: 22}) {
		t.Errorf("position = %v, want 1:22", diags[0].Pos)
	}
}

func TestShadowingIsNotAnError(t *testing.T) {
	res := mustCompile(t, "program P int x; { void main() int x; { x = 1; } }")
	main := res.Object.Code[res.Object.MainPC:]
	// The local binding wins: store_0, not putstatic.
	if main[4] != 7 {
		t.Errorf("store opcode = %d, want store_0", main[4])
	}
}

func TestParameterShadowsGlobal(t *testing.T) {
	mustCompile(t, "program P char x; { int f(int x) { return x + 1; } void main() { print(f(1)); } }")
}

func TestMainChecks(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msgs []string
	}{
		{"missing", "program P { void foo() { } }", []string{"main method is required"}},
		{"empty program", "program P { }", []string{"main method is required"}},
		{"variable named main", "program P int main; { }", []string{"main method is required"}},
		{"parameters", "program P { void main(int a) { } }", []string{"main method must have no parameters"}},
		{"returns value", "program P { int main() { return 0; } }", []string{"main method must return void"}},
		{"both", "program P { int main(int a) { return a; } }", []string{
			"main method must have no parameters",
			"main method must return void",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := CompileString(tc.src, DefaultOptions())
			if err != nil {
				t.Fatalf("Compile error: %v", err)
			}
			if len(res.Diagnostics) != len(tc.msgs) {
				t.Fatalf("got %v, want %v", res.Diagnostics, tc.msgs)
			}
			for i, d := range res.Diagnostics {
				if d.Kind != StructuralError || d.Message != tc.msgs[i] {
					t.Errorf("diag[%d] = %s %q, want StructuralError %q", i, d.Kind, d.Message, tc.msgs[i])
				}
			}
			if res.Object != nil {
				t.Error("object produced without a valid main")
			}
			if !errors.Is(res.Err(), ErrCompilationFailed) {
				t.Errorf("Err() = %v, want ErrCompilationFailed", res.Err())
			}
		})
	}
}

// varList returns "prefix0, prefix1, ..." with n names.
func varList(prefix string, n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(names, ", ")
}

func TestGlobalCapacity(t *testing.T) {
	src := "program P int " + varList("g", 32768) + "; { void main() { print(null); } }"
	diags := diagnose(t, src)

	if n := countKind(diags, CapacityError); n != 1 {
		t.Errorf("got %d capacity errors, want 1", n)
	}
	// Compilation continues past the capacity error.
	if n := countKind(diags, TypeError); n != 1 {
		t.Errorf("got %d type errors after the capacity error, want 1: %v", n, diags)
	}
}

func TestGlobalCapacityLimitIsInclusive(t *testing.T) {
	src := "program P int " + varList("g", 32767) + "; { void main() { } }"
	if diags := diagnose(t, src); len(diags) != 0 {
		t.Errorf("32767 globals: unexpected diagnostics %v", diags[:1])
	}
}

func TestLocalCapacity(t *testing.T) {
	src := "program P { void f() int " + varList("l", 128) + "; { } void main() { x = 1; } }"
	diags := diagnose(t, src)
	if n := countKind(diags, CapacityError); n != 1 {
		t.Errorf("got %d capacity errors, want 1: %v", n, diags)
	}
	if n := countKind(diags, NameError); n != 1 {
		t.Errorf("later name error missing: %v", diags)
	}

	ok := "program P { void f(int p) int " + varList("l", 126) + "; { } void main() { } }"
	if diags := diagnose(t, ok); len(diags) != 0 {
		t.Errorf("127 locals: unexpected diagnostics %v", diags)
	}
}

func TestParametersCountTowardLocals(t *testing.T) {
	src := "program P { void f(int p) int " + varList("l", 127) + "; { } void main() { } }"
	diags := diagnose(t, src)
	if n := countKind(diags, CapacityError); n != 1 {
		t.Errorf("got %d capacity errors, want 1", n)
	}
}

func TestFieldCapacity(t *testing.T) {
	src := "program P class Big { int " + varList("f", 32768) + "; } { void main() { } }"
	diags := diagnose(t, src)
	if n := countKind(diags, CapacityError); n != 1 {
		t.Errorf("got %d capacity errors, want 1: %v", n, diags)
	}
}

func TestErrorsDoNotStopParsing(t *testing.T) {
	src := `program P
	int x;
	{
		void main() {
			x = 'a';
			y = 1;
			print(x, 2)
		}
	}`
	diags := diagnose(t, src)
	want := []ErrorKind{TypeError, NameError, SyntaxError}
	if len(diags) != len(want) {
		t.Fatalf("got %v, want kinds %v", diags, want)
	}
	for i, k := range want {
		if diags[i].Kind != k {
			t.Errorf("diag[%d] = %s, want %s", i, diags[i].Kind, k)
		}
	}
	if diags[0].Pos.Line != 5 || diags[1].Pos.Line != 6 || diags[2].Pos.Line != 8 {
		t.Errorf("lines = %d, %d, %d, want 5, 6, 8", diags[0].Pos.Line, diags[1].Pos.Line, diags[2].Pos.Line)
	}
}

func TestMaxErrors(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&body, "u%d = 1; ", i)
	}
	src := "program P { void main() { " + body.String() + "} }"

	res, err := CompileString(src, Options{MaxErrors: 5})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if !res.Aborted {
		t.Error("Aborted = false, want true")
	}
	if res.ErrorCount() != 5 {
		t.Errorf("ErrorCount() = %d, want 5", res.ErrorCount())
	}
	if !errors.Is(res.Err(), ErrTooManyErrors) {
		t.Errorf("Err() = %v, want ErrTooManyErrors", res.Err())
	}
	if res.Object != nil {
		t.Error("object produced by aborted compilation")
	}

	res, _ = CompileString(src, Options{})
	if res.Aborted || res.ErrorCount() != 20 {
		t.Errorf("unbounded: Aborted = %v, ErrorCount() = %d, want false, 20", res.Aborted, res.ErrorCount())
	}
}

func TestCompileReadError(t *testing.T) {
	boom := errors.New("unreadable")
	res, err := Compile(iotest.ErrReader(boom), DefaultOptions())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestResultErrNil(t *testing.T) {
	res := mustCompile(t, "program P { void main() { } }")
	if err := res.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Pos: Position{Line: 3, Column: 14}, Kind: NameError, Message: "y can't be resolved to a name"}
	want := "Line 3, Col 14: y can't be resolved to a name"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestResultScope(t *testing.T) {
	res, err := CompileString("program P final int K = 3; class C { } int g; { void run() { } }", DefaultOptions())
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if res.Scope == nil {
		t.Fatal("Scope = nil")
	}
	var names []string
	for _, sym := range res.Scope.Symbols() {
		names = append(names, sym.Name)
	}
	if got := strings.Join(names, " "); got != "K C g run" {
		t.Errorf("program symbols = %q, want %q", got, "K C g run")
	}
	if k := res.Scope.Lookup("K"); k.Value != 3 {
		t.Errorf("K.Value = %d, want 3", k.Value)
	}
}

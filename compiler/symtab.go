package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Symbol table: named entities and nested scopes
// ---------------------------------------------------------------------------

// SymbolKind classifies a Symbol.
type SymbolKind int

const (
	SymNone SymbolKind = iota
	SymConst
	SymVar
	SymType
	SymMethod
)

func (k SymbolKind) String() string {
	switch k {
	case SymNone:
		return "none"
	case SymConst:
		return "constant"
	case SymVar:
		return "variable"
	case SymType:
		return "type"
	case SymMethod:
		return "method"
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// Symbol is a named entity: constant, variable, type or method.
type Symbol struct {
	Kind  SymbolKind
	Name  string
	Type  *Type    // value type; result type for methods (NoType for void)
	Value int32    // constants only
	Level int      // scope level: 0 for globals, 1 for method locals and fields
	Pos   Position // declaration position; zero for builtins

	// Address is the slot of a variable, or the entry address of a method.
	Address int

	// ParamCount is the number of parameters of a method. The parameters
	// are the first ParamCount entries of Locals.
	ParamCount int
	Locals     []*Symbol
}

// Params returns the parameter symbols of a method.
func (s *Symbol) Params() []*Symbol {
	if s.ParamCount > len(s.Locals) {
		return s.Locals
	}
	return s.Locals[:s.ParamCount]
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s %s", s.Kind, s.Type, s.Name)
}

// NoSymbol is returned by lookups that find nothing.
var NoSymbol = &Symbol{Kind: SymNone, Type: NoType}

// ErrDuplicateName is returned when a name is declared twice in one scope.
var ErrDuplicateName = errors.New("name already declared in this scope")

// Builtin methods. They are shared by every symbol table and never mutated.
var (
	ChrMethod = newBuiltin("chr", CharType, "i", IntType)
	OrdMethod = newBuiltin("ord", IntType, "ch", CharType)
	LenMethod = newBuiltin("len", IntType, "arr", NewArrayType(NoType))
)

// newBuiltin creates a one-parameter builtin method.
func newBuiltin(name string, result *Type, param string, paramType *Type) *Symbol {
	return &Symbol{
		Kind:       SymMethod,
		Name:       name,
		Type:       result,
		Level:      -1,
		ParamCount: 1,
		Locals: []*Symbol{
			{Kind: SymVar, Name: param, Type: paramType, Level: 0},
		},
	}
}

// Scope maps names to symbols for one lexical level.
type Scope struct {
	outer   *Scope
	symbols []*Symbol // declaration order
	byName  map[string]*Symbol
	nVars   int // variable slots assigned so far
}

func newScope(outer *Scope) *Scope {
	return &Scope{outer: outer, byName: make(map[string]*Symbol)}
}

// Outer returns the enclosing scope, nil for the universe.
func (s *Scope) Outer() *Scope {
	return s.outer
}

// Lookup finds a name in this scope only. Returns nil if absent.
func (s *Scope) Lookup(name string) *Symbol {
	return s.byName[name]
}

// Symbols returns the symbols of this scope in declaration order.
func (s *Scope) Symbols() []*Symbol {
	return s.symbols
}

// VarCount returns the number of variable slots assigned in this scope.
func (s *Scope) VarCount() int {
	return s.nVars
}

func (s *Scope) add(sym *Symbol) {
	s.symbols = append(s.symbols, sym)
	s.byName[sym.Name] = sym
}

// SymbolTable is a stack of scopes rooted at the universe.
//
// The universe sits at level -1 and holds the predeclared names. The program
// scope opened on top of it is level 0 (globals); method and class scopes
// are level 1.
type SymbolTable struct {
	cur   *Scope
	level int
}

// NewSymbolTable creates a table holding only the universe scope.
func NewSymbolTable() *SymbolTable {
	universe := newScope(nil)
	universe.add(&Symbol{Kind: SymType, Name: "int", Type: IntType, Level: -1})
	universe.add(&Symbol{Kind: SymType, Name: "char", Type: CharType, Level: -1})
	universe.add(&Symbol{Kind: SymConst, Name: "null", Type: NullType, Level: -1})
	universe.add(ChrMethod)
	universe.add(OrdMethod)
	universe.add(LenMethod)
	return &SymbolTable{cur: universe, level: -1}
}

// Current returns the innermost scope.
func (t *SymbolTable) Current() *Scope {
	return t.cur
}

// Level returns the nesting level of the innermost scope.
func (t *SymbolTable) Level() int {
	return t.level
}

// OpenScope pushes a new empty scope.
func (t *SymbolTable) OpenScope() {
	t.cur = newScope(t.cur)
	t.level++
}

// CloseScope pops the innermost scope and returns it.
func (t *SymbolTable) CloseScope() *Scope {
	closed := t.cur
	if closed.outer == nil {
		panic("compiler: cannot close the universe scope")
	}
	t.cur = closed.outer
	t.level--
	return closed
}

// Insert declares sym in the innermost scope. Variables receive the next
// free slot of that scope. Returns ErrDuplicateName if the scope already
// declares the name; outer declarations are shadowed silently.
func (t *SymbolTable) Insert(sym *Symbol) error {
	if t.cur.Lookup(sym.Name) != nil {
		return ErrDuplicateName
	}
	sym.Level = t.level
	if sym.Kind == SymVar {
		sym.Address = t.cur.nVars
		t.cur.nVars++
	}
	t.cur.add(sym)
	return nil
}

// Find resolves name from the innermost scope outward.
// Returns NoSymbol if no scope declares it.
func (t *SymbolTable) Find(name string) *Symbol {
	for s := t.cur; s != nil; s = s.outer {
		if sym := s.Lookup(name); sym != nil {
			return sym
		}
	}
	return NoSymbol
}

package compiler

// OperandKind is the addressing mode of an evaluated expression.
type OperandKind int

const (
	OpdConst  OperandKind = iota // compile-time constant, not yet pushed
	OpdLocal                     // local variable slot
	OpdStatic                    // global variable slot
	OpdField                     // object field; the object reference is on the stack
	OpdElem                      // array element; the array reference and index are on the stack
	OpdMethod                    // method name, callable but not loadable
	OpdExpr                      // value already on the stack
)

func (k OperandKind) String() string {
	switch k {
	case OpdConst:
		return "constant"
	case OpdLocal:
		return "local"
	case OpdStatic:
		return "static"
	case OpdField:
		return "field"
	case OpdElem:
		return "element"
	case OpdMethod:
		return "method"
	case OpdExpr:
		return "expression"
	}
	return "unknown"
}

// Operand describes how to load or store the value of an expression.
type Operand struct {
	Kind    OperandKind
	Type    *Type
	Value   int32   // OpdConst
	Address int     // slot of locals and statics, index of fields
	Symbol  *Symbol // originating symbol, if any
}

// newOperand builds the operand for a resolved symbol. Types and unresolved
// names yield an OpdExpr of their type; callers report the misuse.
func newOperand(sym *Symbol) *Operand {
	x := &Operand{Type: sym.Type, Symbol: sym, Address: sym.Address}
	switch sym.Kind {
	case SymConst:
		x.Kind = OpdConst
		x.Value = sym.Value
	case SymVar:
		if sym.Level == 0 {
			x.Kind = OpdStatic
		} else {
			x.Kind = OpdLocal
		}
	case SymMethod:
		x.Kind = OpdMethod
	default:
		x.Kind = OpdExpr
	}
	return x
}

// constOperand returns an unpushed constant.
func constOperand(value int32, typ *Type) *Operand {
	return &Operand{Kind: OpdConst, Type: typ, Value: value}
}

// exprOperand returns an operand whose value is on the stack.
func exprOperand(typ *Type) *Operand {
	return &Operand{Kind: OpdExpr, Type: typ}
}

// isStorable reports whether a value can be stored through x.
func (x *Operand) isStorable() bool {
	switch x.Kind {
	case OpdLocal, OpdStatic, OpdField, OpdElem:
		return true
	}
	return false
}

// name returns the source name behind x for diagnostics.
func (x *Operand) name() string {
	if x.Symbol != nil && x.Symbol.Name != "" {
		return x.Symbol.Name
	}
	return x.Kind.String()
}

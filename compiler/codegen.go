package compiler

import (
	"github.com/chazu/microjava/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: operand loads and stores, calls and folding
// ---------------------------------------------------------------------------

// load pushes the value described by x and turns x into an OpdExpr.
func (p *Parser) load(x *Operand) {
	switch x.Kind {
	case OpdConst:
		p.code.LoadConst(x.Value)
	case OpdLocal:
		if x.Address <= 3 {
			p.code.Emit(bytecode.OpLoad0 + bytecode.Opcode(x.Address))
		} else {
			p.code.Emit(bytecode.OpLoad, byte(x.Address))
		}
	case OpdStatic:
		p.code.Emit2(bytecode.OpGetStatic, x.Address)
	case OpdField:
		p.code.Emit2(bytecode.OpGetField, x.Address)
	case OpdElem:
		if x.Type == CharType {
			p.code.Emit(bytecode.OpBALoad)
		} else {
			p.code.Emit(bytecode.OpALoad)
		}
	case OpdMethod:
		p.errorf(NameError, "%s can't be resolved to a variable", x.name())
	case OpdExpr:
		// already on the stack
	}
	x.Kind = OpdExpr
}

// store pops the top of the stack into the location described by x.
func (p *Parser) store(x *Operand) {
	switch x.Kind {
	case OpdLocal:
		if x.Address <= 3 {
			p.code.Emit(bytecode.OpStore0 + bytecode.Opcode(x.Address))
		} else {
			p.code.Emit(bytecode.OpStore, byte(x.Address))
		}
	case OpdStatic:
		p.code.Emit2(bytecode.OpPutStatic, x.Address)
	case OpdField:
		p.code.Emit2(bytecode.OpPutField, x.Address)
	case OpdElem:
		if x.Type == CharType {
			p.code.Emit(bytecode.OpBAStore)
		} else {
			p.code.Emit(bytecode.OpAStore)
		}
	default:
		p.errorf(NameError, "illegal assignment target %s", x.name())
	}
}

// emitCall emits the invocation of method m. Arguments are already on the stack.
// chr and ord are conversions with no code; len reads the array length.
func (p *Parser) emitCall(m *Symbol) {
	switch m {
	case ChrMethod, OrdMethod:
	case LenMethod:
		p.code.Emit(bytecode.OpArrayLength)
	default:
		p.code.Emit2(bytecode.OpCall, m.Address)
	}
}

// emitNewArray allocates an array of elem; char arrays hold bytes.
func (p *Parser) emitNewArray(elem *Type) {
	if elem == CharType {
		p.code.Emit(bytecode.OpNewArray, 0)
	} else {
		p.code.Emit(bytecode.OpNewArray, 1)
	}
}

// emitEnter emits the frame setup of a method.
func (p *Parser) emitEnter(params, locals int) {
	p.code.Emit(bytecode.OpEnter, byte(params), byte(locals))
}

// emitReturn leaves the current frame.
func (p *Parser) emitReturn() {
	p.code.Emit(bytecode.OpExit)
	p.code.Emit(bytecode.OpReturn)
}

// arithOps maps additive and multiplicative tokens to their instructions.
var arithOps = map[TokenType]bytecode.Opcode{
	TokenPlus:  bytecode.OpAdd,
	TokenMinus: bytecode.OpSub,
	TokenTimes: bytecode.OpMul,
	TokenSlash: bytecode.OpDiv,
	TokenRem:   bytecode.OpRem,
}

// relOps maps relational tokens to the jump taken when the relation holds.
var relOps = map[TokenType]bytecode.Opcode{
	TokenEql:  bytecode.OpJeq,
	TokenNeq:  bytecode.OpJne,
	TokenLess: bytecode.OpJlt,
	TokenLeq:  bytecode.OpJle,
	TokenGtr:  bytecode.OpJgt,
	TokenGeq:  bytecode.OpJge,
}

// fold evaluates a binary arithmetic operation on constants with 32-bit
// wraparound. It reports false for division and remainder by zero, which are
// left to the interpreter.
func fold(op bytecode.Opcode, a, b int32) (int32, bool) {
	switch op {
	case bytecode.OpAdd:
		return a + b, true
	case bytecode.OpSub:
		return a - b, true
	case bytecode.OpMul:
		return a * b, true
	case bytecode.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case bytecode.OpRem:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	}
	return 0, false
}

// binary emits "x op y" where x was parsed starting at code position start.
// x is pushed before y is parsed; when both turn out to be constants the
// pushes are retracted and the result stays an unpushed constant.
func (p *Parser) binary(start int, x *Operand, op bytecode.Opcode, parseRight func() *Operand) *Operand {
	xConst, xv := x.Kind == OpdConst, x.Value
	p.load(x)

	y := parseRight()
	yConst, yv := y.Kind == OpdConst, y.Value
	p.load(y)

	if x.Type != IntType || y.Type != IntType {
		p.errorf(TypeError, "arithmetic operands must be of type int")
	} else if xConst && yConst {
		if v, ok := fold(op, xv, yv); ok {
			p.code.RetractTo(start)
			p.log.Debugf("folded %d %s %d = %d at %04X", xv, op, yv, v, start)
			return constOperand(v, IntType)
		}
	}

	p.code.Emit(op)
	return exprOperand(IntType)
}

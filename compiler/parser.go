package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/microjava/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Parser: single-pass recursive descent with inline checking and emission
// ---------------------------------------------------------------------------

const (
	maxGlobals = 32767
	maxFields  = 32767
	maxLocals  = 127
)

// Parser compiles one MicroJava program. It never builds a syntax tree:
// each production resolves names, checks types and emits code as it is
// recognized.
type Parser struct {
	lexer     *Lexer
	prevToken Token // most recently consumed token
	curToken  Token // lookahead

	table *SymbolTable
	code  *bytecode.Code
	debug *bytecode.DebugInfo

	program   *Scope  // program scope once opened
	method    *Symbol // method being compiled
	diags     []Diagnostic
	maxErrors int

	log commonlog.Logger
}

// NewParser creates a parser reading from lexer. maxErrors bounds the number
// of diagnostics; 0 means unlimited.
func NewParser(lexer *Lexer, maxErrors int) *Parser {
	p := &Parser{
		lexer:     lexer,
		table:     NewSymbolTable(),
		code:      bytecode.NewCode(),
		debug:     &bytecode.DebugInfo{},
		maxErrors: maxErrors,
		log:       commonlog.GetLogger("mjc.compiler"),
	}
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error
// and leaves the token in place.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorAt(p.curToken.Pos, SyntaxError, "%s expected, found %s", t, describe(p.curToken))
	return false
}

// describe names a token for "found ..." messages.
func describe(tok Token) string {
	switch tok.Type {
	case TokenIdent:
		return fmt.Sprintf("identifier %s", tok.Literal)
	case TokenNone:
		if tok.Literal != "" {
			return fmt.Sprintf("invalid token %q", tok.Literal)
		}
	}
	return tok.Type.String()
}

// errorf records a diagnostic at the most recently consumed token.
func (p *Parser) errorf(kind ErrorKind, format string, args ...any) {
	pos := p.prevToken.Pos
	if pos.Line == 0 {
		pos = p.curToken.Pos
	}
	p.errorAt(pos, kind, format, args...)
}

// errorAt records a diagnostic. Reaching the diagnostic bound stops the parse.
func (p *Parser) errorAt(pos Position, kind ErrorKind, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)})
	if p.maxErrors > 0 && len(p.diags) >= p.maxErrors {
		panic(abortCompile{})
	}
}

// Diagnostics returns the diagnostics recorded so far.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.diags
}

// insert declares sym in the current scope, reporting duplicates.
func (p *Parser) insert(sym *Symbol) {
	if err := p.table.Insert(sym); err != nil {
		p.errorAt(sym.Pos, NameError, "%s already declared", sym.Name)
	}
}

// find resolves name, reporting unknown names.
func (p *Parser) find(name string) *Symbol {
	sym := p.table.Find(name)
	if sym == NoSymbol {
		p.errorf(NameError, "%s can't be resolved to a name", name)
	}
	return sym
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Program = "program" ident {ConstDecl | ClassDecl | VarDecl} "{" {MethodDecl} "}"
func (p *Parser) ParseProgram() {
	p.expect(TokenProgram)
	if p.expect(TokenIdent) {
		p.debug.Program = p.prevToken.Literal
	}
	p.table.OpenScope()
	p.program = p.table.Current()

header:
	for {
		switch p.curToken.Type {
		case TokenFinal:
			p.parseConstDecl()
		case TokenClass:
			p.parseClassDecl()
		case TokenIdent:
			p.parseVarDecl()
		default:
			break header
		}
	}

	p.code.DataSize = p.program.VarCount()
	if p.program.VarCount() > maxGlobals {
		p.errorf(CapacityError, "too many global variables")
	}
	for _, sym := range p.program.Symbols() {
		if sym.Kind == SymVar {
			p.debug.Globals = append(p.debug.Globals, bytecode.VarInfo{Name: sym.Name, Slot: sym.Address, Type: sym.Type.String()})
		}
	}

	p.expect(TokenLBrace)
	for p.curTokenIs(TokenIdent) || p.curTokenIs(TokenVoid) {
		p.parseMethodDecl()
	}
	p.checkMain()
	p.expect(TokenRBrace)

	if p.code.Len() > bytecode.MaxCodeSize {
		p.errorf(CapacityError, "program too large: %d bytes of code", p.code.Len())
	}
}

// checkMain validates the entry point and records its address.
func (p *Parser) checkMain() {
	m := p.program.Lookup("main")
	if m == nil || m.Kind != SymMethod {
		p.errorAt(p.curToken.Pos, StructuralError, "main method is required")
		return
	}
	if m.ParamCount != 0 {
		p.errorAt(m.Pos, StructuralError, "main method must have no parameters")
	}
	if m.Type != NoType {
		p.errorAt(m.Pos, StructuralError, "main method must return void")
	}
	p.code.MainPC = m.Address
}

// ConstDecl = "final" Type ident "=" (number | charConst) ";"
func (p *Parser) parseConstDecl() {
	p.expect(TokenFinal)
	typ := p.parseType()
	if !p.expect(TokenIdent) {
		return
	}
	sym := &Symbol{Kind: SymConst, Name: p.prevToken.Literal, Type: typ, Pos: p.prevToken.Pos}
	p.expect(TokenAssign)

	switch p.curToken.Type {
	case TokenNumber, TokenCharConst:
		litType := IntType
		if p.curTokenIs(TokenCharConst) {
			litType = CharType
		}
		p.nextToken()
		sym.Value = p.prevToken.Value
		if typ != litType {
			p.errorf(TypeError, "incompatible types in constant declaration")
		}
	default:
		p.errorAt(p.curToken.Pos, SyntaxError, "number or character constant expected, found %s", describe(p.curToken))
	}

	p.insert(sym)
	p.expect(TokenSemicolon)
}

// VarDecl = Type ident {"," ident} ";"
func (p *Parser) parseVarDecl() {
	typ := p.parseType()
	for {
		if p.expect(TokenIdent) {
			p.insert(&Symbol{Kind: SymVar, Name: p.prevToken.Literal, Type: typ, Pos: p.prevToken.Pos})
		}
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenSemicolon)
}

// ClassDecl = "class" ident "{" {VarDecl} "}"
func (p *Parser) parseClassDecl() {
	p.expect(TokenClass)
	typ := NewClassType("")
	if p.expect(TokenIdent) {
		typ.Name = p.prevToken.Literal
		p.insert(&Symbol{Kind: SymType, Name: typ.Name, Type: typ, Pos: p.prevToken.Pos})
	}

	p.table.OpenScope()
	p.expect(TokenLBrace)
	for p.curTokenIs(TokenIdent) {
		p.parseVarDecl()
	}
	p.expect(TokenRBrace)
	typ.Fields = p.table.CloseScope().Symbols()

	if len(typ.Fields) > maxFields {
		p.errorf(CapacityError, "too many fields in class %s", typ.Name)
	}
}

// Type = ident ["[" "]"]
func (p *Parser) parseType() *Type {
	if !p.expect(TokenIdent) {
		return NoType
	}
	typ := NoType
	sym := p.find(p.prevToken.Literal)
	if sym.Kind == SymType {
		typ = sym.Type
	} else if sym != NoSymbol {
		p.errorf(NameError, "%s can't be resolved to a type", sym.Name)
	}

	if p.curTokenIs(TokenLBrack) {
		p.nextToken()
		p.expect(TokenRBrack)
		typ = NewArrayType(typ)
	}
	return typ
}

// MethodDecl = (Type | "void") ident "(" [FormPars] ")" {VarDecl} Block
func (p *Parser) parseMethodDecl() {
	typ := NoType
	if p.curTokenIs(TokenVoid) {
		p.nextToken()
	} else {
		typ = p.parseType()
	}

	m := &Symbol{Kind: SymMethod, Type: typ, Pos: p.curToken.Pos}
	if p.expect(TokenIdent) {
		m.Name = p.prevToken.Literal
		p.insert(m)
	}

	p.table.OpenScope()
	p.expect(TokenLParen)
	if p.curTokenIs(TokenIdent) {
		p.parseFormPars()
	}
	p.expect(TokenRParen)
	m.ParamCount = p.table.Current().VarCount()

	for p.curTokenIs(TokenIdent) {
		p.parseVarDecl()
	}
	scope := p.table.Current()
	if scope.VarCount() > maxLocals {
		p.errorf(CapacityError, "too many local variables for method %s", m.Name)
	}
	m.Locals = scope.Symbols()
	m.Address = p.code.PC()
	p.log.Debugf("method %s at %04X", m.Name, m.Address)

	p.method = m
	p.emitEnter(m.ParamCount, scope.VarCount())
	p.parseBlock()
	if typ == NoType {
		p.emitReturn()
	} else {
		p.code.Emit(bytecode.OpTrap, 1)
	}
	p.method = nil
	p.table.CloseScope()

	info := bytecode.MethodInfo{Name: m.Name, Entry: m.Address, Params: m.ParamCount, Locals: scope.VarCount()}
	if typ != NoType {
		info.Returns = typ.String()
	}
	p.debug.Methods = append(p.debug.Methods, info)
}

// FormPars = Type ident {"," Type ident}
func (p *Parser) parseFormPars() {
	for {
		typ := p.parseType()
		if p.expect(TokenIdent) {
			p.insert(&Symbol{Kind: SymVar, Name: p.prevToken.Literal, Type: typ, Pos: p.prevToken.Pos})
		}
		if !p.curTokenIs(TokenComma) {
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

var statementStarters = map[TokenType]bool{
	TokenIdent:     true,
	TokenIf:        true,
	TokenWhile:     true,
	TokenReturn:    true,
	TokenRead:      true,
	TokenPrint:     true,
	TokenLBrace:    true,
	TokenSemicolon: true,
}

var exprStarters = map[TokenType]bool{
	TokenMinus:     true,
	TokenIdent:     true,
	TokenNumber:    true,
	TokenCharConst: true,
	TokenNew:       true,
	TokenLParen:    true,
}

// Block = "{" {Statement} "}"
func (p *Parser) parseBlock() {
	p.expect(TokenLBrace)
	for statementStarters[p.curToken.Type] {
		p.parseStatement()
	}
	p.expect(TokenRBrace)
}

func (p *Parser) parseStatement() {
	p.debug.AddLine(p.code.PC(), p.curToken.Pos.Line, p.curToken.Pos.Column)

	switch p.curToken.Type {
	case TokenIdent:
		p.parseSimpleStatement()
	case TokenIf:
		p.parseIf()
	case TokenWhile:
		p.parseWhile()
	case TokenReturn:
		p.parseReturn()
	case TokenRead:
		p.parseRead()
	case TokenPrint:
		p.parsePrint()
	case TokenLBrace:
		p.parseBlock()
	case TokenSemicolon:
		p.nextToken()
	default:
		p.errorAt(p.curToken.Pos, SyntaxError, "illegal start of statement: %s", describe(p.curToken))
	}
}

// Designator ("=" Expr | ActPars) ";"
func (p *Parser) parseSimpleStatement() {
	x := p.parseDesignator()

	switch p.curToken.Type {
	case TokenAssign:
		p.nextToken()
		y := p.parseExpr()
		p.load(y)
		switch {
		case x.isStorable():
			if !y.Type.AssignableTo(x.Type) {
				p.errorf(TypeError, "incompatible types in assignment: %s to %s", y.Type, x.Type)
			}
			p.store(x)
		case x.Kind != OpdExpr:
			p.errorf(NameError, "illegal left-hand side %s in assignment", x.name())
		}
	case TokenLParen:
		res := p.parseCall(x)
		if res.Type != NoType {
			p.code.Emit(bytecode.OpPop)
		}
	default:
		p.errorAt(p.curToken.Pos, SyntaxError, "= or ( expected, found %s", describe(p.curToken))
	}

	p.expect(TokenSemicolon)
}

// "if" "(" Condition ")" Statement ["else" Statement]
func (p *Parser) parseIf() {
	p.expect(TokenIf)
	p.expect(TokenLParen)
	op := p.parseCondition()
	p.expect(TokenRParen)

	skip := p.code.PutFalseJump(op, 0)
	p.parseStatement()

	if p.curTokenIs(TokenElse) {
		p.nextToken()
		end := p.code.PutJump(0)
		p.code.Fixup(skip)
		p.parseStatement()
		p.code.Fixup(end)
	} else {
		p.code.Fixup(skip)
	}
}

// "while" "(" Condition ")" Statement
func (p *Parser) parseWhile() {
	p.expect(TokenWhile)
	top := p.code.PC()
	p.expect(TokenLParen)
	op := p.parseCondition()
	p.expect(TokenRParen)

	exit := p.code.PutFalseJump(op, 0)
	p.parseStatement()
	p.code.PutJump(top)
	p.code.Fixup(exit)
}

// "return" [Expr] ";"
func (p *Parser) parseReturn() {
	p.expect(TokenReturn)
	resultType := NoType
	if p.method != nil {
		resultType = p.method.Type
	}

	if exprStarters[p.curToken.Type] {
		x := p.parseExpr()
		p.load(x)
		if resultType == NoType {
			p.errorf(TypeError, "void method must not return a value")
		} else if !x.Type.AssignableTo(resultType) {
			p.errorf(TypeError, "invalid expression type %s in return statement, want %s", x.Type, resultType)
		}
	} else if resultType != NoType {
		p.errorf(TypeError, "missing return value in return statement")
	}

	p.emitReturn()
	p.expect(TokenSemicolon)
}

// "read" "(" Designator ")" ";"
func (p *Parser) parseRead() {
	p.expect(TokenRead)
	p.expect(TokenLParen)
	if p.curTokenIs(TokenIdent) {
		x := p.parseDesignator()
		switch {
		case !x.isStorable():
			if x.Kind != OpdExpr {
				p.errorf(NameError, "illegal operand %s in read statement", x.name())
			}
		case x.Type == IntType:
			p.code.Emit(bytecode.OpRead)
			p.store(x)
		case x.Type == CharType:
			p.code.Emit(bytecode.OpBRead)
			p.store(x)
		default:
			p.errorf(TypeError, "operand of read must be of type int or char")
		}
	} else {
		p.expect(TokenIdent)
	}
	p.expect(TokenRParen)
	p.expect(TokenSemicolon)
}

// "print" "(" Expr ["," number] ")" ";"
func (p *Parser) parsePrint() {
	p.expect(TokenPrint)
	p.expect(TokenLParen)
	x := p.parseExpr()
	p.load(x)

	var width int32
	if p.curTokenIs(TokenComma) {
		p.nextToken()
		if p.expect(TokenNumber) {
			width = p.prevToken.Value
		}
	}
	p.expect(TokenRParen)

	p.code.LoadConst(width)
	switch x.Type {
	case IntType:
		p.code.Emit(bytecode.OpPrint)
	case CharType:
		p.code.Emit(bytecode.OpBPrint)
	default:
		p.errorf(TypeError, "illegal expression type %s in print statement", x.Type)
	}
	p.expect(TokenSemicolon)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Condition = Expr Relop Expr. Both operands are pushed; the returned
// opcode is the jump taken when the relation holds.
func (p *Parser) parseCondition() bytecode.Opcode {
	x := p.parseExpr()
	p.load(x)

	op, ok := relOps[p.curToken.Type]
	if ok {
		p.nextToken()
	} else {
		p.errorAt(p.curToken.Pos, SyntaxError, "relational operator expected, found %s", describe(p.curToken))
		op = bytecode.OpJeq
	}

	y := p.parseExpr()
	p.load(y)

	if !x.Type.CompatibleWith(y.Type) {
		p.errorf(TypeError, "incompatible types in comparison: %s and %s", x.Type, y.Type)
	} else if x.Type.IsRefType() && op != bytecode.OpJeq && op != bytecode.OpJne {
		p.errorf(TypeError, "reference types can only be compared with == and !=")
	}
	return op
}

// Expr = ["-"] Term {Addop Term}
func (p *Parser) parseExpr() *Operand {
	start := p.code.PC()

	var x *Operand
	if p.curTokenIs(TokenMinus) {
		p.nextToken()
		x = p.parseTerm()
		if x.Type != IntType {
			p.errorf(TypeError, "operand of unary minus must be of type int")
		}
		p.load(x)
		p.code.Emit(bytecode.OpNeg)
		x = exprOperand(IntType)
	} else {
		x = p.parseTerm()
	}

	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := arithOps[p.curToken.Type]
		p.nextToken()
		x = p.binary(start, x, op, p.parseTerm)
	}
	return x
}

// Term = Factor {Mulop Factor}
func (p *Parser) parseTerm() *Operand {
	start := p.code.PC()
	x := p.parseFactor()
	for p.curTokenIs(TokenTimes) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenRem) {
		op := arithOps[p.curToken.Type]
		p.nextToken()
		x = p.binary(start, x, op, p.parseFactor)
	}
	return x
}

// Factor = Designator [ActPars] | number | charConst | "new" ident ["[" Expr "]"] | "(" Expr ")"
//
// Constants are returned unpushed so that enclosing operations can fold
// them; every other factor is on the stack when this returns.
func (p *Parser) parseFactor() *Operand {
	switch p.curToken.Type {
	case TokenIdent:
		x := p.parseDesignator()
		if p.curTokenIs(TokenLParen) {
			res := p.parseCall(x)
			if x.Kind == OpdMethod && res.Type == NoType {
				p.errorf(TypeError, "void method %s used in an expression", x.name())
			}
			return res
		}
		if x.Kind != OpdConst {
			p.load(x)
		}
		return x

	case TokenNumber:
		p.nextToken()
		return constOperand(p.prevToken.Value, IntType)

	case TokenCharConst:
		p.nextToken()
		return constOperand(p.prevToken.Value, CharType)

	case TokenNew:
		return p.parseNew()

	case TokenLParen:
		p.nextToken()
		x := p.parseExpr()
		p.expect(TokenRParen)
		return x
	}

	p.errorAt(p.curToken.Pos, SyntaxError, "invalid start of expression: %s", describe(p.curToken))
	return exprOperand(NoType)
}

// "new" ident ["[" Expr "]"]
func (p *Parser) parseNew() *Operand {
	p.expect(TokenNew)
	typ := NoType
	if p.expect(TokenIdent) {
		sym := p.find(p.prevToken.Literal)
		if sym.Kind == SymType {
			typ = sym.Type
		} else if sym != NoSymbol {
			p.errorf(NameError, "%s can't be resolved to a type", sym.Name)
		}
	}

	if p.curTokenIs(TokenLBrack) {
		p.nextToken()
		size := p.parseExpr()
		p.load(size)
		if size.Type != IntType {
			p.errorf(TypeError, "array size must be of type int")
		}
		p.expect(TokenRBrack)
		p.emitNewArray(typ)
		return exprOperand(NewArrayType(typ))
	}

	if typ != NoType && (typ.Kind != KindClass || typ == NullType) {
		p.errorf(TypeError, "illegal instantiation: %s is not a class", typ)
	}
	p.code.Emit2(bytecode.OpNew, len(typ.Fields))
	return exprOperand(typ)
}

// Designator = ident {"." ident | "[" Expr "]"}
func (p *Parser) parseDesignator() *Operand {
	if !p.expect(TokenIdent) {
		return exprOperand(NoType)
	}
	sym := p.find(p.prevToken.Literal)
	x := newOperand(sym)
	if sym.Kind == SymType {
		p.errorf(NameError, "%s can't be resolved to a variable", sym.Name)
	}

	for {
		switch p.curToken.Type {
		case TokenPeriod:
			p.nextToken()
			base := x.Type
			if base.Kind != KindClass && base != NoType {
				p.errorf(TypeError, "illegal field access on non-object %s", x.name())
			}
			p.load(x)
			if !p.expect(TokenIdent) {
				x = exprOperand(NoType)
				continue
			}
			name := p.prevToken.Literal
			fld := base.FindField(name)
			if fld == nil {
				if base.Kind == KindClass {
					p.errorf(NameError, "%s is not a field of %s", name, base)
				}
				x = exprOperand(NoType)
				continue
			}
			x = &Operand{Kind: OpdField, Type: fld.Type, Address: fld.Address, Symbol: fld}

		case TokenLBrack:
			p.nextToken()
			base := x.Type
			if base.Kind != KindArray && base != NoType {
				p.errorf(TypeError, "illegal element access on non-array %s", x.name())
			}
			p.load(x)
			idx := p.parseExpr()
			p.load(idx)
			if idx.Type != IntType {
				p.errorf(TypeError, "array index must be of type int")
			}
			p.expect(TokenRBrack)
			elem := NoType
			if base.Kind == KindArray {
				elem = base.Elem
			}
			x = &Operand{Kind: OpdElem, Type: elem}

		default:
			return x
		}
	}
}

// parseCall compiles ActPars for the method designated by x and emits the call.
// The returned operand has the method's result type.
func (p *Parser) parseCall(x *Operand) *Operand {
	var m *Symbol
	if x.Kind == OpdMethod {
		m = x.Symbol
	} else if x.Kind != OpdExpr {
		p.errorf(NameError, "%s can't be resolved to a method", x.name())
	}

	p.parseActPars(m)
	if m == nil {
		return exprOperand(NoType)
	}
	p.emitCall(m)
	return exprOperand(m.Type)
}

// ActPars = "(" [Expr {"," Expr}] ")"
func (p *Parser) parseActPars(m *Symbol) {
	p.expect(TokenLParen)
	var params []*Symbol
	if m != nil {
		params = m.Params()
	}

	n := 0
	if exprStarters[p.curToken.Type] {
		for {
			y := p.parseExpr()
			p.load(y)
			if n < len(params) && !y.Type.AssignableTo(params[n].Type) {
				p.errorf(TypeError, "incompatible type %s for parameter %d of %s, want %s", y.Type, n+1, m.Name, params[n].Type)
			}
			n++
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	p.expect(TokenRParen)

	if m != nil && n != m.ParamCount {
		p.errorf(TypeError, "wrong number of arguments in call of %s: have %d, want %d", m.Name, n, m.ParamCount)
	}
}

package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the MicroJava lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// TokenNone marks malformed input: an unknown character, a bad character
	// literal or an integer that does not fit in 32 bits.
	TokenNone TokenType = iota

	// Literals
	TokenIdent     // foo
	TokenNumber    // 42
	TokenCharConst // 'a', '\n'

	// Operators
	TokenPlus   // +
	TokenMinus  // -
	TokenTimes  // *
	TokenSlash  // /
	TokenRem    // %
	TokenEql    // ==
	TokenNeq    // !=
	TokenLess   // <
	TokenLeq    // <=
	TokenGtr    // >
	TokenGeq    // >=
	TokenAssign // =

	// Delimiters
	TokenSemicolon // ;
	TokenComma     // ,
	TokenPeriod    // .
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrack    // [
	TokenRBrack    // ]
	TokenLBrace    // {
	TokenRBrace    // }

	// Keywords
	TokenClass
	TokenElse
	TokenFinal
	TokenIf
	TokenNew
	TokenPrint
	TokenProgram
	TokenRead
	TokenReturn
	TokenVoid
	TokenWhile

	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenNone:      "invalid token",
	TokenIdent:     "identifier",
	TokenNumber:    "number",
	TokenCharConst: "character constant",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenTimes:     "*",
	TokenSlash:     "/",
	TokenRem:       "%",
	TokenEql:       "==",
	TokenNeq:       "!=",
	TokenLess:      "<",
	TokenLeq:       "<=",
	TokenGtr:       ">",
	TokenGeq:       ">=",
	TokenAssign:    "=",
	TokenSemicolon: ";",
	TokenComma:     ",",
	TokenPeriod:    ".",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrack:    "[",
	TokenRBrack:    "]",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenClass:     "class",
	TokenElse:      "else",
	TokenFinal:     "final",
	TokenIf:        "if",
	TokenNew:       "new",
	TokenPrint:     "print",
	TokenProgram:   "program",
	TokenRead:      "read",
	TokenReturn:    "return",
	TokenVoid:      "void",
	TokenWhile:     "while",
	TokenEOF:       "end of file",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in source text. Lines and columns are 1-based.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // identifier text, digit run or character literal body
	Value   int32    // value of numbers and character constants
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return fmt.Sprintf("IDENT(%s)", t.Literal)
	case TokenNumber, TokenCharConst:
		return fmt.Sprintf("%s(%d)", t.Type, t.Value)
	}
	return t.Type.String()
}

// keywords maps reserved words to their token types.
var keywords = map[string]TokenType{
	"class":   TokenClass,
	"else":    TokenElse,
	"final":   TokenFinal,
	"if":      TokenIf,
	"new":     TokenNew,
	"print":   TokenPrint,
	"program": TokenProgram,
	"read":    TokenRead,
	"return":  TokenReturn,
	"void":    TokenVoid,
	"while":   TokenWhile,
}

// Keywords returns the reserved words in alphabetical order.
func Keywords() []string {
	return []string{"class", "else", "final", "if", "new", "print", "program", "read", "return", "void", "while"}
}

// LookupIdent returns the keyword token type for ident, or TokenIdent.
func LookupIdent(ident string) TokenType {
	if tokType, ok := keywords[ident]; ok {
		return tokType
	}
	return TokenIdent
}

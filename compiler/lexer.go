package compiler

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for MicroJava source
// ---------------------------------------------------------------------------

// eofCh is the lookahead value once input is exhausted.
const eofCh = -1

// Lexer tokenizes MicroJava source read from a byte stream.
type Lexer struct {
	in   *bufio.Reader
	ch   int // current character, eofCh at end of input
	line int // current line (1-based)
	col  int // current column (1-based, 0 right after a newline)
	err  error
}

// NewLexer creates a new lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	l := &Lexer{
		in:   bufio.NewReader(r),
		line: 1,
	}
	l.readChar()
	return l
}

// NewStringLexer creates a lexer over an in-memory source.
func NewStringLexer(input string) *Lexer {
	return NewLexer(strings.NewReader(input))
}

// Err returns the first read error other than io.EOF.
// A failed stream is treated as end of input by NextToken.
func (l *Lexer) Err() error {
	return l.err
}

// readChar reads the next character and updates line/column.
func (l *Lexer) readChar() {
	if l.ch == eofCh {
		return
	}
	l.col++
	b, err := l.in.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) && l.err == nil {
			l.err = err
		}
		l.ch = eofCh
		return
	}
	if b == '\n' {
		l.line++
		l.col = 0
	}
	l.ch = int(b)
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

// NextToken returns the next token. At end of input it returns TokenEOF on every call.
func (l *Lexer) NextToken() Token {
	// Skip non-printing characters
	for l.ch != eofCh && l.ch <= ' ' {
		l.readChar()
	}

	pos := l.position()

	switch {
	case l.ch == eofCh:
		return Token{Type: TokenEOF, Pos: pos}

	case isLetter(l.ch):
		return l.readIdentifier(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '\'':
		return l.readCharConst(pos)
	}

	ch := l.ch
	l.readChar()
	switch ch {
	case '+':
		return Token{Type: TokenPlus, Pos: pos}
	case '-':
		return Token{Type: TokenMinus, Pos: pos}
	case '*':
		return Token{Type: TokenTimes, Pos: pos}
	case '/':
		if l.ch == '/' {
			for l.ch != '\n' && l.ch != eofCh {
				l.readChar()
			}
			return l.NextToken()
		}
		return Token{Type: TokenSlash, Pos: pos}
	case '%':
		return Token{Type: TokenRem, Pos: pos}
	case '=':
		return l.twoChar(pos, TokenAssign, TokenEql)
	case '!':
		return l.twoChar(pos, TokenNone, TokenNeq)
	case '<':
		return l.twoChar(pos, TokenLess, TokenLeq)
	case '>':
		return l.twoChar(pos, TokenGtr, TokenGeq)
	case ';':
		return Token{Type: TokenSemicolon, Pos: pos}
	case ',':
		return Token{Type: TokenComma, Pos: pos}
	case '.':
		return Token{Type: TokenPeriod, Pos: pos}
	case '(':
		return Token{Type: TokenLParen, Pos: pos}
	case ')':
		return Token{Type: TokenRParen, Pos: pos}
	case '[':
		return Token{Type: TokenLBrack, Pos: pos}
	case ']':
		return Token{Type: TokenRBrack, Pos: pos}
	case '{':
		return Token{Type: TokenLBrace, Pos: pos}
	case '}':
		return Token{Type: TokenRBrace, Pos: pos}
	}

	return Token{Type: TokenNone, Literal: string(rune(ch)), Pos: pos}
}

// twoChar resolves an operator whose meaning changes when followed by '='.
func (l *Lexer) twoChar(pos Position, single, withEq TokenType) Token {
	if l.ch == '=' {
		l.readChar()
		return Token{Type: withEq, Pos: pos}
	}
	return Token{Type: single, Pos: pos}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(pos Position) Token {
	var sb strings.Builder
	for isLetter(l.ch) || isDigit(l.ch) {
		sb.WriteByte(byte(l.ch))
		l.readChar()
	}
	ident := sb.String()
	return Token{Type: LookupIdent(ident), Literal: ident, Pos: pos}
}

// readNumber reads a decimal integer literal. Values outside the 32-bit
// signed range produce a TokenNone.
func (l *Lexer) readNumber(pos Position) Token {
	var sb strings.Builder
	for isDigit(l.ch) {
		sb.WriteByte(byte(l.ch))
		l.readChar()
	}
	literal := sb.String()
	v, err := strconv.ParseInt(literal, 10, 32)
	if err != nil {
		return Token{Type: TokenNone, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenNumber, Literal: literal, Value: int32(v), Pos: pos}
}

// readCharConst reads a quoted character literal. The body runs to the next
// quote not preceded by a backslash, or to end of line; an unclosed literal
// is invalid.
func (l *Lexer) readCharConst(pos Position) Token {
	l.readChar() // consume opening '

	var sb strings.Builder
	prev := 0
	for (l.ch != '\'' || prev == '\\') && l.ch != '\n' && l.ch != eofCh {
		sb.WriteByte(byte(l.ch))
		prev = l.ch
		l.readChar()
	}
	closed := l.ch == '\''
	if closed {
		l.readChar() // consume closing '
	}

	body := sb.String()
	tok := Token{Type: TokenNone, Literal: body, Pos: pos}
	switch {
	case !closed:
	case len(body) == 1:
		tok.Type, tok.Value = TokenCharConst, int32(body[0])
	case body == `\n`:
		tok.Type, tok.Value = TokenCharConst, '\n'
	case body == `\t`:
		tok.Type, tok.Value = TokenCharConst, '\t'
	case body == `\'`:
		tok.Type, tok.Value = TokenCharConst, '\''
	}
	return tok
}

// Helper functions

func isLetter(ch int) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch int) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
func Tokenize(input string) []Token {
	l := NewStringLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}

package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for the instruction language
// ---------------------------------------------------------------------------

// Lexer tokenizes source text. The language is ASCII only; bytes are
// consumed one at a time.
type Lexer struct {
	input     string
	pos       int // current position in input
	line      int // current line (1-based)
	lineStart int // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.lineStart = l.pos + 1
	}
	l.pos++
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

// NextToken returns the next token. Newlines are significant and come back
// as separators.
func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	pos := l.position()
	ch := l.peek(0)

	switch {
	case l.pos >= len(l.input):
		return Token{Type: TokenEOF, Pos: pos}

	case ch == '\n' || ch == ';':
		l.advance()
		return Token{Type: TokenSeparator, Literal: string(ch), Pos: pos}

	case ch == '$':
		l.advance()
		start := l.pos
		for isWordChar(l.peek(0)) {
			l.advance()
		}
		if l.pos == start {
			return Token{Type: TokenError, Literal: "expected identifier name after '$'", Pos: pos}
		}
		return Token{Type: TokenIdentifier, Literal: l.input[start-1 : l.pos], Pos: pos}

	case isDigit(ch):
		return l.scanNumber(pos)

	case isLetter(ch):
		start := l.pos
		for isWordChar(l.peek(0)) {
			l.advance()
		}
		return Token{Type: TokenWord, Literal: l.input[start:l.pos], Pos: pos}

	case ch == '\'':
		return l.scanString(pos)

	case ch == ',':
		l.advance()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}
	case ch == ':':
		l.advance()
		return Token{Type: TokenColon, Literal: ":", Pos: pos}
	case ch == '(':
		l.advance()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ch == ')':
		l.advance()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case ch == '=' && l.peek(1) != '=':
		l.advance()
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}
	}

	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for range op {
				l.advance()
			}
			return Token{Type: TokenOperator, Literal: op, Pos: pos}
		}
	}

	l.advance()
	return Token{Type: TokenError, Literal: "unexpected character '" + string(ch) + "'", Pos: pos}
}

// skipSpaceAndComments skips blanks and '#' comments, leaving newlines.
func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		switch ch := l.peek(0); {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '#':
			for l.pos < len(l.input) && l.peek(0) != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanNumber(pos Position) Token {
	start := l.pos
	if l.peek(0) == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.advance()
		l.advance()
		if !isHexDigit(l.peek(0)) {
			return Token{Type: TokenError, Literal: "malformed hex number", Pos: pos}
		}
		for isHexDigit(l.peek(0)) {
			l.advance()
		}
	} else {
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	if isLetter(l.peek(0)) {
		return Token{Type: TokenError, Literal: "malformed number", Pos: pos}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) scanString(pos Position) Token {
	l.advance() // opening quote
	var b strings.Builder
	for {
		ch := l.peek(0)
		switch {
		case l.pos >= len(l.input) || ch == '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case ch == '\'':
			l.advance()
			return Token{Type: TokenString, Literal: b.String(), Pos: pos}
		case ch == '\\':
			l.advance()
			esc := l.peek(0)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'':
				b.WriteByte(esc)
			default:
				return Token{Type: TokenError, Literal: "unknown escape '\\" + string(esc) + "'", Pos: l.position()}
			}
			l.advance()
		default:
			b.WriteByte(ch)
			l.advance()
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isWordChar(ch byte) bool { return isLetter(ch) || isDigit(ch) }

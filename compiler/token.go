package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the instruction language
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenSeparator // newline or ;

	// Literals
	TokenNumber     // 42, 0x2a
	TokenString     // 'hello'
	TokenIdentifier // $name
	TokenWord       // halt, io, loop

	// Punctuation
	TokenOperator // + - * / % ^ & | > >= < <= == != ++ --
	TokenAssign   // =
	TokenComma    // ,
	TokenColon    // :
	TokenLParen   // (
	TokenRParen   // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenSeparator:  "end of instruction",
	TokenNumber:     "number",
	TokenString:     "string",
	TokenIdentifier: "identifier",
	TokenWord:       "word",
	TokenOperator:   "operator",
	TokenAssign:     "=",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenLParen:     "(",
	TokenRParen:     ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text; for strings, the unescaped value
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenSeparator:
		return "end of instruction"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// operators lists every operator spelling, longest first.
var operators = []string{
	"++", "--", ">=", "<=", "==", "!=",
	"+", "-", "*", "/", "%", "^", "&", "|", ">", "<",
}

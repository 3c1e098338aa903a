package compiler

import "testing"

func TestLexerTokens(t *testing.T) {
	input := "byte $a = 0x2a # comment\n$a++; 'hi\\n' == != >= , : ( )"
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenWord, "byte"},
		{TokenIdentifier, "$a"},
		{TokenAssign, "="},
		{TokenNumber, "0x2a"},
		{TokenSeparator, "\n"},
		{TokenIdentifier, "$a"},
		{TokenOperator, "++"},
		{TokenSeparator, ";"},
		{TokenString, "hi\n"},
		{TokenOperator, "=="},
		{TokenOperator, "!="},
		{TokenOperator, ">="},
		{TokenComma, ","},
		{TokenColon, ":"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("noop\nio write 0, 1")
	want := []Position{
		{Offset: 0, Line: 1, Column: 1},   // noop
		{Offset: 4, Line: 1, Column: 5},   // newline
		{Offset: 5, Line: 2, Column: 1},   // io
		{Offset: 8, Line: 2, Column: 4},   // write
		{Offset: 14, Line: 2, Column: 10}, // 0
		{Offset: 15, Line: 2, Column: 11}, // ,
		{Offset: 17, Line: 2, Column: 13}, // 1
	}
	for i, pos := range want {
		tok := l.NextToken()
		if tok.Pos != pos {
			t.Errorf("token[%d] %v at %+v, want %+v", i, tok, tok.Pos, pos)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"'open", "unterminated string"},
		{"'a\\q'", "unknown escape '\\q'"},
		{"12ab", "malformed number"},
		{"0x", "malformed hex number"},
		{"$", "expected identifier name after '$'"},
		{"@", "unexpected character '@'"},
		{"!", "unexpected character '!'"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("Lexer(%q): type = %v, want ERROR", tc.input, tok.Type)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): message = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerCommentOnly(t *testing.T) {
	l := NewLexer("# nothing here")
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Errorf("got %v, want EOF", tok)
	}
}

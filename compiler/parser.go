package compiler

import (
	"fmt"
	"strconv"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over one instruction per line
// ---------------------------------------------------------------------------

// Parser turns source text into an instruction tree. It stops at the first
// error.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	input     string
	err       *SyntaxError

	// declared records the types of declarations seen so far; a bare
	// number assigned to one of them takes that type.
	declared map[string]bytecode.ValueType
}

// declarationTypes maps type keywords to the value type they declare.
var declarationTypes = map[string]bytecode.ValueType{
	"byte":    bytecode.TypeByte,
	"pin":     bytecode.TypePin,
	"address": bytecode.TypeAddress,
	"uint":    bytecode.TypeInteger,
	"int":     bytecode.TypeSignedInteger,
	"string":  bytecode.TypeString,
}

var binaryOperators = map[string]bytecode.Opcode{
	">":  bytecode.OpGt,
	">=": bytecode.OpGte,
	"<":  bytecode.OpLt,
	"<=": bytecode.OpLte,
	"==": bytecode.OpEqual,
	"!=": bytecode.OpNotEqual,
	"^":  bytecode.OpXor,
	"&":  bytecode.OpAnd,
	"|":  bytecode.OpOr,
	"+":  bytecode.OpAdd,
	"-":  bytecode.OpSub,
	"*":  bytecode.OpMul,
	"/":  bytecode.OpDiv,
	"%":  bytecode.OpMod,
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		input:    input,
		declared: make(map[string]bytecode.ValueType),
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole program.
func Parse(source string) ([]Node, error) {
	p := NewParser(source)
	nodes := p.ParseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return nodes, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) curWordIs(word string) bool {
	return p.curToken.Type == TokenWord && p.curToken.Literal == word
}

// errorf records the first parse error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errorAt(p.curToken.Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = &SyntaxError{
		Line:       pos.Line,
		Column:     pos.Column,
		Message:    fmt.Sprintf(format, args...),
		SourceLine: lineAt(p.input, pos.Line),
	}
}

func (p *Parser) failed() bool { return p.err != nil }

func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected(t.String())
	return false
}

func (p *Parser) unexpected(want string) {
	if p.curTokenIs(TokenError) {
		p.errorf("%s", p.curToken.Literal)
		return
	}
	p.errorf("expected %s, got %s", want, describe(p.curToken))
}

func describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenSeparator:
		return "end of instruction"
	}
	return fmt.Sprintf("'%s'", t.Literal)
}

func (p *Parser) span(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses instructions until EOF.
func (p *Parser) ParseProgram() []Node {
	var nodes []Node

	for !p.curTokenIs(TokenEOF) && !p.failed() {
		if p.curTokenIs(TokenSeparator) {
			p.nextToken()
			continue
		}

		n := p.parseInstruction()
		if p.failed() {
			return nil
		}
		nodes = append(nodes, n)

		// Labels may share a line with the instruction they mark.
		if _, isLabel := n.(*Label); isLabel {
			continue
		}
		if !p.curTokenIs(TokenSeparator) && !p.curTokenIs(TokenEOF) {
			p.unexpected("end of instruction")
			return nil
		}
	}

	return nodes
}

func (p *Parser) parseInstruction() Node {
	start := p.curToken.Pos

	switch p.curToken.Type {
	case TokenIdentifier:
		return p.parseAssignment()
	case TokenWord:
	default:
		p.unexpected("instruction")
		return nil
	}

	word := p.curToken.Literal

	if p.peekToken.Type == TokenColon {
		p.nextToken()
		p.nextToken()
		return &Label{SpanVal: p.span(start), Name: word}
	}

	if typ, ok := declarationTypes[word]; ok {
		return p.parseDeclaration(typ)
	}

	p.nextToken()
	switch word {
	case "halt":
		return &Halt{SpanVal: p.span(start)}
	case "restart":
		return &Restart{SpanVal: p.span(start)}
	case "noop":
		return &Noop{SpanVal: p.span(start)}
	case "sysinfo":
		return &SystemInfo{SpanVal: p.span(start)}
	case "dump":
		return &Dump{SpanVal: p.span(start)}
	case "yield":
		return &Yield{SpanVal: p.span(start)}

	case "print":
		v := p.parseOperand(bytecode.TypeNull)
		return &Print{SpanVal: p.span(start), Value: v}
	case "debug":
		v := p.parseOperand(bytecode.TypeByte)
		return &Debug{SpanVal: p.span(start), Value: v}
	case "delay":
		v := p.parseOperand(bytecode.TypeInteger)
		return &Delay{SpanVal: p.span(start), Value: v}
	case "sleep":
		v := p.parseOperand(bytecode.TypeInteger)
		return &Sleep{SpanVal: p.span(start), Value: v}

	case "inc", "dec", "not":
		target := p.parseTarget()
		op := map[string]bytecode.Opcode{"inc": bytecode.OpInc, "dec": bytecode.OpDec, "not": bytecode.OpNot}[word]
		return &Unary{SpanVal: p.span(start), Op: op, Target: target}

	case "jump":
		label, addr := p.parseJumpTarget()
		return &JumpTo{SpanVal: p.span(start), Label: label, Address: addr}

	case "if":
		cond := p.parseOperand(bytecode.TypeNull)
		if p.failed() {
			return nil
		}
		if !p.curWordIs("jump") {
			p.unexpected("'jump'")
			return nil
		}
		p.nextToken()
		label, addr := p.parseJumpTarget()
		return &JumpIf{SpanVal: p.span(start), Condition: cond, Label: label, Address: addr}

	case "io":
		return p.parseIo(start)
	case "mem":
		return p.parseMem(start)
	}

	p.errorAt(start, "unknown instruction '%s'", word)
	return nil
}

// parseDeclaration parses `<type> $name = <literal>`.
func (p *Parser) parseDeclaration(typ bytecode.ValueType) Node {
	start := p.curToken.Pos
	p.nextToken()

	target := p.parseTarget()
	if p.failed() || !p.expect(TokenAssign) {
		return nil
	}

	lit := p.parseLiteral(typ)
	if p.failed() {
		return nil
	}
	if _, seen := p.declared[target.Name]; !seen {
		p.declared[target.Name] = typ
	}
	return &Declare{SpanVal: p.span(start), Type: typ, Target: target, Value: lit}
}

// parseAssignment parses `$a = x`, `$a = x <op> y`, `$a++` and `$a--`.
func (p *Parser) parseAssignment() Node {
	start := p.curToken.Pos
	target := &Identifier{SpanVal: p.span(start), Name: p.curToken.Literal}
	p.nextToken()

	if p.curTokenIs(TokenOperator) && (p.curToken.Literal == "++" || p.curToken.Literal == "--") {
		op := bytecode.OpInc
		if p.curToken.Literal == "--" {
			op = bytecode.OpDec
		}
		p.nextToken()
		return &Unary{SpanVal: p.span(start), Op: op, Target: target}
	}

	if !p.expect(TokenAssign) {
		return nil
	}

	ctx := p.declared[target.Name]
	left := p.parseOperand(ctx)
	if p.failed() {
		return nil
	}

	if p.curTokenIs(TokenOperator) {
		op, ok := binaryOperators[p.curToken.Literal]
		if !ok {
			p.errorf("unexpected operator '%s'", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		right := p.parseOperand(ctx)
		if p.failed() {
			return nil
		}
		return &Binary{SpanVal: p.span(start), Op: op, Target: target, Left: left, Right: right}
	}

	return &Assign{SpanVal: p.span(start), Target: target, Value: left}
}

func (p *Parser) parseIo(start Position) Node {
	if !p.curTokenIs(TokenWord) {
		p.unexpected("io instruction")
		return nil
	}
	sub := p.curToken.Literal
	p.nextToken()

	switch sub {
	case "allout":
		return &IoAllOut{SpanVal: p.span(start)}

	case "write":
		pin, value := p.parsePair(bytecode.TypePin, bytecode.TypeByte)
		return &IoWrite{SpanVal: p.span(start), Pin: pin, Value: value}

	case "read":
		target := p.parseTarget()
		if p.failed() || !p.expect(TokenComma) {
			return nil
		}
		pin := p.parseOperand(bytecode.TypePin)
		return &IoRead{SpanVal: p.span(start), Target: target, Pin: pin}

	case "mode":
		pin, mode := p.parsePair(bytecode.TypePin, bytecode.TypeByte)
		return &IoMode{SpanVal: p.span(start), Pin: pin, Mode: mode}

	case "type":
		pin, kind := p.parsePair(bytecode.TypePin, bytecode.TypeByte)
		return &IoType{SpanVal: p.span(start), Pin: pin, Kind: kind}
	}

	p.errorAt(start, "unknown io instruction '%s'", sub)
	return nil
}

func (p *Parser) parseMem(start Position) Node {
	if !p.curTokenIs(TokenWord) {
		p.unexpected("mem instruction")
		return nil
	}
	sub := p.curToken.Literal
	p.nextToken()

	switch sub {
	case "get":
		target := p.parseTarget()
		if p.failed() || !p.expect(TokenComma) {
			return nil
		}
		addr := p.parseOperand(bytecode.TypeAddress)
		return &MemGet{SpanVal: p.span(start), Target: target, Address: addr}

	case "set":
		addr, value := p.parsePair(bytecode.TypeAddress, bytecode.TypeNull)
		return &MemSet{SpanVal: p.span(start), Address: addr, Value: value}

	case "copy":
		dest, src := p.parsePair(bytecode.TypeAddress, bytecode.TypeAddress)
		if p.failed() || !p.expect(TokenComma) {
			return nil
		}
		length := p.parseOperand(bytecode.TypeInteger)
		return &MemCopy{SpanVal: p.span(start), Dest: dest, Src: src, Length: length}
	}

	p.errorAt(start, "unknown mem instruction '%s'", sub)
	return nil
}

// parsePair parses `a, b` with a literal context for each side.
func (p *Parser) parsePair(first, second bytecode.ValueType) (Operand, Operand) {
	a := p.parseOperand(first)
	if p.failed() || !p.expect(TokenComma) {
		return nil, nil
	}
	b := p.parseOperand(second)
	return a, b
}

// parseJumpTarget parses a label name or a numeric address.
func (p *Parser) parseJumpTarget() (string, *Literal) {
	switch p.curToken.Type {
	case TokenWord:
		name := p.curToken.Literal
		p.nextToken()
		return name, nil
	case TokenNumber:
		return "", p.parseLiteral(bytecode.TypeAddress)
	}
	p.unexpected("label or address")
	return "", nil
}

func (p *Parser) parseTarget() *Identifier {
	if !p.curTokenIs(TokenIdentifier) {
		p.unexpected("identifier")
		return nil
	}
	id := &Identifier{SpanVal: Span{Start: p.curToken.Pos, End: p.peekToken.Pos}, Name: p.curToken.Literal}
	p.nextToken()
	return id
}

// parseOperand parses an identifier or a literal. ctx is the type a bare
// number takes in this slot; TypeNull means it has none.
func (p *Parser) parseOperand(ctx bytecode.ValueType) Operand {
	if p.curTokenIs(TokenIdentifier) {
		return p.parseTarget()
	}
	lit := p.parseLiteral(ctx)
	if lit == nil {
		return nil
	}
	return lit
}

// parseLiteral parses a string, a (possibly negative) number or a typed
// literal such as byte(7). Range checking is left to the encoder.
func (p *Parser) parseLiteral(ctx bytecode.ValueType) *Literal {
	start := p.curToken.Pos

	switch {
	case p.curTokenIs(TokenString):
		s := p.curToken.Literal
		p.nextToken()
		return &Literal{SpanVal: p.span(start), Type: bytecode.TypeString, Str: s}

	case p.curTokenIs(TokenWord):
		typ, ok := declarationTypes[p.curToken.Literal]
		if !ok || typ == bytecode.TypeString || p.peekToken.Type != TokenLParen {
			p.unexpected("value")
			return nil
		}
		p.nextToken()
		p.nextToken()
		lit := p.parseNumber(typ)
		if lit == nil || !p.expect(TokenRParen) {
			return nil
		}
		lit.SpanVal = p.span(start)
		return lit
	}

	return p.parseNumber(ctx)
}

func (p *Parser) parseNumber(ctx bytecode.ValueType) *Literal {
	start := p.curToken.Pos
	negative := false
	if p.curTokenIs(TokenOperator) && p.curToken.Literal == "-" {
		negative = true
		p.nextToken()
	}
	if !p.curTokenIs(TokenNumber) {
		p.unexpected("value")
		return nil
	}

	text := p.curToken.Literal
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil || v > 1<<32 {
		p.errorf("number %s is too large", text)
		return nil
	}
	p.nextToken()
	if negative {
		v = -v
	}

	typ := ctx
	if !typ.IsNumeric() {
		typ = bytecode.TypeInteger
		if v < 0 {
			typ = bytecode.TypeSignedInteger
		}
	}
	return &Literal{SpanVal: p.span(start), Type: typ, Int: v}
}

package parser

import (
	"strings"

	"vybe/interpreter-go/pkg/ast"
)

// Parser is a recursive-descent parser over the token stream produced by
// the Lexer. A Parser is single-use.
type Parser struct {
	tokens []Token
	pos    int

	// inlineIf counts enclosing single-line If statements; while positive,
	// `Else` terminates a statement.
	inlineIf int
	// inQuery counts enclosing LINQ queries; while positive the query clause
	// words terminate expressions.
	inQuery int
}

// ParseProgram parses a complete source file. Parsing is all-or-nothing: on
// failure the returned error is a *ParseError and no program is returned.
func ParseProgram(src string) (*ast.Program, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	return p.parseProgram()
}

// ParseExpression parses a single expression such as `a + b * 2`.
func ParseExpression(src string) (ast.Expression, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	p.skipTerminators()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipTerminators()
	if !p.atEOF() {
		return nil, p.errorf("unexpected %s after expression", p.describe(p.cur()))
	}
	return expr, nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	program := ast.NewProgram(nil, nil)
	p.skipTerminators()
	for !p.atEOF() {
		if p.isTopLevelDeclaration() {
			decls, err := p.parseMemberDeclarations(contextTopLevel)
			if err != nil {
				return nil, err
			}
			program.Declarations = append(program.Declarations, decls...)
		} else {
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				program.Statements = append(program.Statements, stmt)
			}
		}
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	return program, nil
}

// Token helpers

func (p *Parser) cur() Token {
	return p.peek(0)
}

func (p *Parser) peek(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) atEOF() bool {
	return p.cur().Type == EOF
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.cur()
	return newParseError(tok.Line, tok.Col, format, args...)
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case IDENT, OPERATOR:
		return "'" + tok.Lexeme + "'"
	case STRING:
		return "string \"" + tok.Text + "\""
	default:
		return tok.Type.String()
	}
}

// isWordTok reports whether tok is the (unescaped) keyword word.
func isWordTok(tok Token, words ...string) bool {
	if tok.Type != IDENT || tok.Escaped {
		return false
	}
	lower := tok.lower()
	for _, w := range words {
		if lower == w {
			return true
		}
	}
	return false
}

func (p *Parser) isWord(words ...string) bool {
	return isWordTok(p.cur(), words...)
}

func (p *Parser) isWordAt(offset int, words ...string) bool {
	return isWordTok(p.peek(offset), words...)
}

func (p *Parser) acceptWord(word string) bool {
	if p.isWord(word) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectWord(word string) error {
	if !p.acceptWord(word) {
		return p.errorf("expected '%s' but found %s", word, p.describe(p.cur()))
	}
	return nil
}

func (p *Parser) isOp(ops ...string) bool {
	return isOpTok(p.cur(), ops...)
}

func isOpTok(tok Token, ops ...string) bool {
	if tok.Type != OPERATOR {
		return false
	}
	for _, op := range ops {
		if tok.Lexeme == op {
			return true
		}
	}
	return false
}

func (p *Parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectOp(op string) error {
	if !p.acceptOp(op) {
		return p.errorf("expected '%s' but found %s", op, p.describe(p.cur()))
	}
	return nil
}

// expectIdent consumes a name. Escaped identifiers are always names; plain
// words are names unless they are reserved.
func (p *Parser) expectIdent() (string, error) {
	tok := p.cur()
	if tok.Type != IDENT {
		return "", p.errorf("expected identifier but found %s", p.describe(tok))
	}
	if !tok.Escaped && reservedWords[tok.lower()] {
		return "", p.errorf("expected identifier but found keyword '%s'", tok.Lexeme)
	}
	p.advance()
	return tok.Lexeme, nil
}

// expectName consumes any word, including keywords. Used after `.` and for
// declaration names like `Sub New`.
func (p *Parser) expectName() (string, error) {
	tok := p.cur()
	if tok.Type != IDENT {
		return "", p.errorf("expected name but found %s", p.describe(tok))
	}
	p.advance()
	return tok.Lexeme, nil
}

func (p *Parser) skipTerminators() {
	for p.cur().Type == NEWLINE || p.cur().Type == COLON {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == NEWLINE {
		p.advance()
	}
}

func (p *Parser) atStatementEnd() bool {
	switch p.cur().Type {
	case NEWLINE, COLON, EOF:
		return true
	}
	return p.inlineIf > 0 && p.isWord("else")
}

func (p *Parser) expectStatementEnd() error {
	if p.atStatementEnd() {
		return nil
	}
	return p.errorf("expected end of statement but found %s", p.describe(p.cur()))
}

// skipLine discards the remaining tokens of the current logical line.
func (p *Parser) skipLine() {
	for !p.atEOF() && p.cur().Type != NEWLINE {
		p.advance()
	}
}

// atLineStart reports whether the current token begins a physical line.
func (p *Parser) atLineStart() bool {
	return p.pos == 0 || p.tokens[p.pos-1].Type == NEWLINE
}

// reservedWords cannot be used as plain identifiers in expressions. Type
// names (Integer, String, Date, Object) are deliberately absent so that
// `String.Format` and `Date.Now` parse as member accesses.
var reservedWords = map[string]bool{
	"and": true, "andalso": true, "as": true, "byref": true, "byval": true, "call": true,
	"case": true, "catch": true, "class": true, "const": true, "dim": true, "do": true,
	"each": true, "else": true, "elseif": true, "end": true, "endif": true, "enum": true,
	"exit": true, "finally": true, "for": true, "friend": true, "goto": true, "handles": true,
	"implements": true, "imports": true, "in": true, "inherits": true, "interface": true,
	"is": true, "isnot": true, "like": true, "loop": true, "mod": true, "module": true,
	"namespace": true, "next": true, "of": true, "or": true, "orelse": true, "private": true,
	"protected": true, "public": true, "raiseevent": true, "redim": true, "return": true,
	"select": true, "shared": true, "step": true, "structure": true, "then": true,
	"throw": true, "to": true, "try": true, "until": true, "wend": true, "when": true,
	"while": true, "with": true, "xor": true, "addhandler": true, "removehandler": true,
	"synclock": true, "using": true, "optional": true, "paramarray": true, "sub": true,
	"function": true,
}

var queryWords = map[string]bool{
	"where": true, "order": true, "let": true, "select": true, "distinct": true,
}

// isReservedTok reports whether tok ends an expression rather than naming a value.
func (p *Parser) isReservedTok(tok Token) bool {
	if tok.Type != IDENT || tok.Escaped {
		return false
	}
	lower := tok.lower()
	if reservedWords[lower] {
		return true
	}
	return p.inQuery > 0 && queryWords[lower]
}

func joinName(parts []string) string {
	return strings.Join(parts, ".")
}

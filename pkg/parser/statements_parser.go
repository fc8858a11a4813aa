package parser

import (
	"vybe/interpreter-go/pkg/ast"
)

// parseBlock parses statements until done reports the block terminator. The
// terminator itself is left for the caller.
func (p *Parser) parseBlock(done func() bool) ([]ast.Statement, error) {
	body := []ast.Statement{}
	for {
		p.skipTerminators()
		if done() {
			return body, nil
		}
		if p.atEOF() {
			return nil, p.errorf("unexpected end of input")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
	}
}

// notLabels are words that, at the start of a line and followed by `:`, are
// statements rather than labels.
var notLabels = map[string]bool{
	"stop": true, "randomize": true, "beep": true, "cls": true, "print": true, "close": true,
	"resume": true, "return": true, "doevents": true, "loop": true, "next": true,
}

var assignmentOperators = map[string]ast.BinaryOperator{
	"=":   ast.OpEqual,
	"+=":  ast.OpAdd,
	"-=":  ast.OpSubtract,
	"*=":  ast.OpMultiply,
	"/=":  ast.OpDivide,
	"\\=": ast.OpIntDivide,
	"&=":  ast.OpConcat,
	"^=":  ast.OpPower,
	"<<=": ast.OpShiftLeft,
	">>=": ast.OpShiftRight,
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	tok := p.cur()
	if tok.Type == INTEGER && p.atLineStart() {
		p.advance()
		return ast.NewLabelStatement(tok.Lexeme), nil
	}
	if tok.Type == IDENT && p.atLineStart() && p.peek(1).Type == COLON {
		lower := tok.lower()
		if tok.Escaped || (!reservedWords[lower] && !notLabels[lower]) {
			p.advance()
			return ast.NewLabelStatement(tok.Lexeme), nil
		}
	}
	if tok.Type != IDENT || tok.Escaped {
		return p.parseExpressionStatement()
	}

	switch tok.lower() {
	case "dim":
		p.advance()
		p.parseModifiers()
		vars, err := p.parseDeclarators()
		if err != nil {
			return nil, err
		}
		return ast.NewDimStatement(vars, false), nil
	case "static":
		p.advance()
		p.acceptWord("dim")
		vars, err := p.parseDeclarators()
		if err != nil {
			return nil, err
		}
		return ast.NewDimStatement(vars, true), nil
	case "const":
		p.advance()
		name, typ, value, err := p.parseConstClause()
		if err != nil {
			return nil, err
		}
		return ast.NewConstStatement(name, typ, value), nil
	case "redim":
		return p.parseReDim()
	case "erase":
		p.advance()
		targets, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return ast.NewEraseStatement(targets), nil
	case "if":
		return p.parseIf()
	case "for":
		if p.isWordAt(1, "each") {
			return p.parseForEach()
		}
		return p.parseFor()
	case "while":
		return p.parseWhile()
	case "do":
		return p.parseDoLoop()
	case "select":
		return p.parseSelect()
	case "with":
		return p.parseWith()
	case "using":
		return p.parseUsing()
	case "try":
		return p.parseTry()
	case "synclock":
		p.advance()
		lock, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseProcedureBody("synclock")
		if err != nil {
			return nil, err
		}
		return ast.NewSyncLockStatement(lock, body), nil
	case "throw":
		p.advance()
		if p.atStatementEnd() {
			return ast.NewThrowStatement(nil), nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewThrowStatement(value), nil
	case "goto":
		p.advance()
		label, err := p.parseLabelName()
		if err != nil {
			return nil, err
		}
		return ast.NewGotoStatement(label), nil
	case "on":
		if p.isWordAt(1, "error") {
			return p.parseOnError()
		}
	case "resume":
		p.advance()
		switch {
		case p.atStatementEnd():
			return ast.NewResumeStatement(ast.ResumeRetry, ""), nil
		case p.acceptWord("next"):
			return ast.NewResumeStatement(ast.ResumeNext, ""), nil
		}
		label, err := p.parseLabelName()
		if err != nil {
			return nil, err
		}
		return ast.NewResumeStatement(ast.ResumeLabel, label), nil
	case "addhandler", "removehandler":
		return p.parseHandlerStatement()
	case "raiseevent":
		p.advance()
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		var args []ast.Expression
		if p.isOp("(") {
			if args, err = p.parseArguments(); err != nil {
				return nil, err
			}
		}
		return ast.NewRaiseEventStatement(name, args), nil
	case "exit":
		p.advance()
		kind, err := p.parseBlockKind()
		if err != nil {
			return nil, err
		}
		return ast.NewExitStatement(kind), nil
	case "continue":
		p.advance()
		kind, err := p.parseBlockKind()
		if err != nil {
			return nil, err
		}
		return ast.NewContinueStatement(kind), nil
	case "return":
		p.advance()
		if p.atStatementEnd() {
			return ast.NewReturnStatement(nil), nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewReturnStatement(value), nil
	case "end":
		next := p.peek(1)
		if next.Type == NEWLINE || next.Type == COLON || next.Type == EOF {
			p.advance()
			return ast.NewEndStatement(), nil
		}
		return nil, p.errorf("unexpected 'End %s'", next.Lexeme)
	case "stop":
		p.advance()
		return ast.NewStopStatement(), nil
	case "call":
		p.advance()
		target, err := p.parsePostfixExpression()
		if err != nil {
			return nil, err
		}
		return callStatementFor(target), nil
	case "set", "let":
		if p.peek(1).Type == IDENT || isOpTok(p.peek(1), ".") {
			isSet := tok.lower() == "set"
			p.advance()
			target, err := p.parsePostfixExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("="); err != nil {
				return nil, err
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return ast.NewAssignmentStatement(target, ast.OpEqual, value, isSet), nil
		}
	case "open":
		if !isOpTok(p.peek(1), "(", ".", "=") {
			return p.parseOpen()
		}
	case "close":
		if isOpTok(p.peek(1), "#") || p.peek(1).Type == INTEGER {
			p.advance()
			nums, err := p.parseFileNumberList()
			if err != nil {
				return nil, err
			}
			return ast.NewCloseStatement(nums), nil
		}
	case "print":
		if !isOpTok(p.peek(1), "(", ".", "=") {
			return p.parsePrint(false)
		}
	case "write":
		if isOpTok(p.peek(1), "#") {
			return p.parsePrint(true)
		}
	case "line":
		if p.isWordAt(1, "input") && isOpTok(p.peek(2), "#") {
			p.advance()
			p.advance()
			num, err := p.parseFileNumber()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
			target, err := p.parsePostfixExpression()
			if err != nil {
				return nil, err
			}
			return ast.NewLineInputStatement(num, target), nil
		}
	case "input":
		if isOpTok(p.peek(1), "#") {
			p.advance()
			num, err := p.parseFileNumber()
			if err != nil {
				return nil, err
			}
			var targets []ast.Expression
			for p.acceptOp(",") {
				target, err := p.parsePostfixExpression()
				if err != nil {
					return nil, err
				}
				targets = append(targets, target)
			}
			return ast.NewInputStatement(num, targets), nil
		}
	case "else", "elseif", "loop", "next", "wend", "case", "catch", "finally", "endif":
		return nil, p.errorf("unexpected '%s'", tok.Lexeme)
	}
	return p.parseExpressionStatement()
}

func callStatementFor(target ast.Expression) ast.Statement {
	switch target.(type) {
	case *ast.Identifier, *ast.MemberAccessExpression:
		return ast.NewCallStatement(ast.NewCallExpression(target, nil))
	}
	return ast.NewCallStatement(target)
}

// parseExpressionStatement handles assignments, calls with parentheses and
// VB6-style calls without them (`MsgBox "hi"`).
func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	target, err := p.parsePostfixExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.Type == OPERATOR {
		if op, ok := assignmentOperators[tok.Lexeme]; ok {
			p.advance()
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return ast.NewAssignmentStatement(target, op, value, false), nil
		}
	}
	if p.atStatementEnd() {
		return callStatementFor(target), nil
	}
	// `Foo (1), 2` parsed the first argument as a parenthesised call.
	if call, ok := target.(*ast.CallExpression); ok && p.isOp(",") && len(call.Arguments) == 1 {
		p.advance()
		rest, err := p.parseBareArguments()
		if err != nil {
			return nil, err
		}
		args := append([]ast.Expression{call.Arguments[0]}, rest...)
		return ast.NewCallStatement(ast.NewCallExpression(call.Callee, args)), nil
	}
	switch target.(type) {
	case *ast.Identifier, *ast.MemberAccessExpression:
		if p.canStartArgument(p.cur()) {
			args, err := p.parseBareArguments()
			if err != nil {
				return nil, err
			}
			return ast.NewCallStatement(ast.NewCallExpression(target, args)), nil
		}
	}
	return callStatementFor(target), nil
}

func (p *Parser) canStartArgument(tok Token) bool {
	switch tok.Type {
	case INTEGER, FLOAT, STRING, CHAR, DATE, INTERP:
		return true
	case IDENT:
		return !p.isReservedTok(tok)
	case OPERATOR:
		return tok.Lexeme == "-" || tok.Lexeme == "+" || tok.Lexeme == "{" || tok.Lexeme == "," || tok.Lexeme == "("
	}
	return false
}

// parseBareArguments parses an argument list that is not wrapped in
// parentheses; it ends at the end of the statement.
func (p *Parser) parseBareArguments() ([]ast.Expression, error) {
	var args []ast.Expression
	for {
		if p.isOp(",") {
			args = append(args, ast.NewOmittedArgument())
			p.advance()
			continue
		}
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.acceptOp(",") {
			return args, nil
		}
	}
}

func (p *Parser) parseExpressionList() ([]ast.Expression, error) {
	var list []ast.Expression
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		if !p.acceptOp(",") {
			return list, nil
		}
	}
}

func (p *Parser) parseLabelName() (string, error) {
	tok := p.cur()
	if tok.Type == INTEGER {
		p.advance()
		return tok.Lexeme, nil
	}
	return p.expectName()
}

func (p *Parser) parseBlockKind() (ast.BlockKind, error) {
	tok := p.cur()
	kinds := map[string]ast.BlockKind{
		"sub": ast.BlockSub, "function": ast.BlockFunction, "property": ast.BlockProperty,
		"for": ast.BlockFor, "do": ast.BlockDo, "while": ast.BlockWhile,
		"select": ast.BlockSelect, "try": ast.BlockTry,
	}
	if tok.Type == IDENT {
		if kind, ok := kinds[tok.lower()]; ok {
			p.advance()
			return kind, nil
		}
	}
	return "", p.errorf("expected block kind but found %s", p.describe(tok))
}

// Declarations

// parseDeclarators parses the name list of Dim/Static/field declarations.
// In `Dim a, b As Integer` both names take the trailing type.
func (p *Parser) parseDeclarators() ([]*ast.VariableDeclarator, error) {
	var vars []*ast.VariableDeclarator
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		decl := ast.NewVariableDeclarator(name, nil)
		nullable := p.acceptOp("?")
		if p.isOp("(") {
			bounds, err := p.parseBounds()
			if err != nil {
				return nil, err
			}
			decl.IsArray = true
			decl.Bounds = bounds
		}
		if p.acceptWord("as") {
			if p.acceptWord("new") {
				expr, err := p.parseNewRest()
				if err != nil {
					return nil, err
				}
				newExpr := expr.(*ast.NewExpression)
				decl.IsNew = true
				decl.Type = newExpr.Type
				decl.NewArgs = newExpr.Arguments
				decl.Initializer = newExpr
			} else {
				typ, err := p.parseTypeRef(true)
				if err != nil {
					return nil, err
				}
				if nullable {
					typ.Nullable = true
				}
				decl.Type = typ
			}
		}
		if p.acceptOp("=") {
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			decl.Initializer = init
		}
		vars = append(vars, decl)
		if !p.acceptOp(",") {
			break
		}
	}
	for idx := len(vars) - 2; idx >= 0; idx-- {
		if vars[idx].Type == nil && vars[idx].Initializer == nil && vars[idx+1].Type != nil && !vars[idx+1].IsNew {
			vars[idx].Type = vars[idx+1].Type
		}
	}
	return vars, nil
}

// parseBounds parses `(10)`, `(2, 3)`, `(1 To 5)` or `()`. Only upper bounds
// are kept; arrays are zero-based.
func (p *Parser) parseBounds() ([]ast.Expression, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	bounds := []ast.Expression{}
	for !p.acceptOp(")") {
		if p.acceptOp(",") {
			continue
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.acceptWord("to") {
			if expr, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		bounds = append(bounds, expr)
		if !p.isOp(")") {
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
		}
	}
	return bounds, nil
}

func (p *Parser) parseReDim() (ast.Statement, error) {
	p.advance()
	preserve := p.acceptWord("preserve")
	var targets []*ast.ReDimTarget
	for {
		target, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		for p.acceptOp(".") {
			member, err := p.expectName()
			if err != nil {
				return nil, err
			}
			target = ast.NewMemberAccessExpression(target, member)
		}
		bounds, err := p.parseBounds()
		if err != nil {
			return nil, err
		}
		if p.acceptWord("as") {
			if _, err := p.parseTypeRef(true); err != nil {
				return nil, err
			}
		}
		targets = append(targets, ast.NewReDimTarget(target, bounds))
		if !p.acceptOp(",") {
			return ast.NewReDimStatement(preserve, targets), nil
		}
	}
}

// Control flow

func (p *Parser) parseIf() (ast.Statement, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	thenFound := p.acceptWord("then")
	if tok := p.cur(); tok.Type != NEWLINE && tok.Type != EOF {
		if !thenFound {
			return nil, p.errorf("expected 'Then' but found %s", p.describe(tok))
		}
		return p.parseSingleLineIf(cond)
	}

	isElseIf := func() bool {
		return p.isWord("elseif") || (p.isWord("else") && p.isWordAt(1, "if") && p.peek(1).Line == p.cur().Line)
	}
	isEndIf := func() bool { return p.atEndOf("if") || p.isWord("endif") }
	done := func() bool { return isElseIf() || p.isWord("else") || isEndIf() }

	then, err := p.parseBlock(done)
	if err != nil {
		return nil, err
	}
	stmt := ast.NewIfStatement(cond, then, nil, nil)
	for isElseIf() {
		if p.isWord("else") {
			p.advance()
		}
		p.advance()
		elseCond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.acceptWord("then")
		body, err := p.parseBlock(done)
		if err != nil {
			return nil, err
		}
		stmt.ElseIfs = append(stmt.ElseIfs, ast.NewElseIfClause(elseCond, body))
	}
	if p.acceptWord("else") {
		els, err := p.parseBlock(isEndIf)
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	if p.acceptWord("endif") {
		return stmt, nil
	}
	if err := p.parseEndOf("if"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseSingleLineIf parses `If c Then a : b Else c`.
func (p *Parser) parseSingleLineIf(cond ast.Expression) (ast.Statement, error) {
	p.inlineIf++
	defer func() { p.inlineIf-- }()
	then, err := p.parseInlineStatements()
	if err != nil {
		return nil, err
	}
	var els []ast.Statement
	if p.acceptWord("else") {
		if els, err = p.parseInlineStatements(); err != nil {
			return nil, err
		}
	}
	// Tolerate a trailing `End If` on the same line.
	if p.atEndOf("if") {
		p.advance()
		p.advance()
	}
	return ast.NewIfStatement(cond, then, nil, els), nil
}

func (p *Parser) parseInlineStatements() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for {
		if p.cur().Type == NEWLINE || p.cur().Type == EOF || p.isWord("else") || p.atEndOf("if") {
			return stmts, nil
		}
		if p.cur().Type == COLON {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.atEndOf("if") {
			continue
		}
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseForHeaderVariable() (string, *ast.TypeRef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return "", nil, err
	}
	var typ *ast.TypeRef
	if p.acceptWord("as") {
		if typ, err = p.parseTypeRef(true); err != nil {
			return "", nil, err
		}
	}
	return name, typ, nil
}

// parseNext consumes `Next [v]`. `Next j, i` closes two loops, so the rest
// of the list is rewritten into a second `Next` for the enclosing loop.
func (p *Parser) parseNext() error {
	if err := p.expectWord("next"); err != nil {
		return err
	}
	if p.cur().Type == IDENT && !p.isReservedTok(p.cur()) {
		p.advance()
	}
	if p.isOp(",") {
		comma := p.cur()
		p.tokens[p.pos] = Token{Type: NEWLINE, Line: comma.Line, Col: comma.Col}
		next := Token{Type: IDENT, Lexeme: "Next", Text: "Next", Line: comma.Line, Col: comma.Col}
		rest := append([]Token{next}, p.tokens[p.pos+1:]...)
		p.tokens = append(p.tokens[:p.pos+1], rest...)
	}
	return nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	p.advance()
	name, typ, err := p.parseForHeaderVariable()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("to"); err != nil {
		return nil, err
	}
	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var step ast.Expression
	if p.acceptWord("step") {
		if step, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock(func() bool { return p.isWord("next") })
	if err != nil {
		return nil, err
	}
	if err := p.parseNext(); err != nil {
		return nil, err
	}
	return ast.NewForStatement(name, typ, start, end, step, body), nil
}

func (p *Parser) parseForEach() (ast.Statement, error) {
	p.advance()
	p.advance()
	name, typ, err := p.parseForHeaderVariable()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	collection, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(func() bool { return p.isWord("next") })
	if err != nil {
		return nil, err
	}
	if err := p.parseNext(); err != nil {
		return nil, err
	}
	return ast.NewForEachStatement(name, typ, collection, body), nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(func() bool { return p.atEndOf("while") || p.isWord("wend") })
	if err != nil {
		return nil, err
	}
	if !p.acceptWord("wend") {
		if err := p.parseEndOf("while"); err != nil {
			return nil, err
		}
	}
	return ast.NewWhileStatement(cond, body), nil
}

func (p *Parser) parseDoLoop() (ast.Statement, error) {
	p.advance()
	var cond ast.Expression
	until := false
	testAtEnd := false
	var err error
	if p.isWord("while", "until") {
		until = p.advance().lower() == "until"
		if cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock(func() bool { return p.isWord("loop") })
	if err != nil {
		return nil, err
	}
	p.advance()
	if p.isWord("while", "until") {
		if cond != nil {
			return nil, p.errorf("'Loop' cannot have a condition when 'Do' has one")
		}
		until = p.advance().lower() == "until"
		testAtEnd = true
		if cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return ast.NewDoLoopStatement(cond, until, testAtEnd, body), nil
}

var caseComparisons = map[string]ast.BinaryOperator{
	"=": ast.OpEqual, "<>": ast.OpNotEqual, "<": ast.OpLess, "<=": ast.OpLessEqual,
	">": ast.OpGreater, ">=": ast.OpGreaterEqual,
}

func (p *Parser) parseSelect() (ast.Statement, error) {
	p.advance()
	p.acceptWord("case")
	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := ast.NewSelectStatement(subject, nil, nil, false)
	done := func() bool { return p.isWord("case") || p.atEndOf("select") }
	p.skipTerminators()
	for p.acceptWord("case") {
		if p.acceptWord("else") {
			body, err := p.parseBlock(func() bool { return p.atEndOf("select") })
			if err != nil {
				return nil, err
			}
			stmt.Else = body
			stmt.HasElse = true
			break
		}
		var conds []*ast.CaseCondition
		for {
			cond, err := p.parseCaseCondition()
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
			if !p.acceptOp(",") {
				break
			}
		}
		body, err := p.parseBlock(done)
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, ast.NewCaseClause(conds, body))
	}
	if err := p.parseEndOf("select"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseCaseCondition() (*ast.CaseCondition, error) {
	isForm := p.acceptWord("is")
	if tok := p.cur(); tok.Type == OPERATOR {
		if op, ok := caseComparisons[tok.Lexeme]; ok {
			p.advance()
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return ast.NewCaseCondition(ast.CaseIs, value, nil, op), nil
		}
	}
	if isForm {
		return nil, p.errorf("expected comparison operator after 'Is'")
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.acceptWord("to") {
		to, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewCaseCondition(ast.CaseRange, value, to, ""), nil
	}
	return ast.NewCaseCondition(ast.CaseValue, value, nil, ""), nil
}

func (p *Parser) parseWith() (ast.Statement, error) {
	p.advance()
	object, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseProcedureBody("with")
	if err != nil {
		return nil, err
	}
	return ast.NewWithStatement(object, body), nil
}

// parseUsing parses `Using r = expr`, `Using r As New T(...)` or `Using expr`.
// Several comma-separated resources nest.
func (p *Parser) parseUsing() (ast.Statement, error) {
	p.advance()
	type resource struct {
		name string
		expr ast.Expression
	}
	var resources []resource
	for {
		var res resource
		if p.cur().Type == IDENT && (p.isWordAt(1, "as") || isOpTok(p.peek(1), "=")) {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			res.name = name
			if p.acceptWord("as") {
				if p.acceptWord("new") {
					if res.expr, err = p.parseNewRest(); err != nil {
						return nil, err
					}
				} else if _, err := p.parseTypeRef(true); err != nil {
					return nil, err
				}
			}
			if p.acceptOp("=") {
				if res.expr, err = p.parseExpression(); err != nil {
					return nil, err
				}
			}
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			res.expr = expr
		}
		if res.expr == nil {
			return nil, p.errorf("'Using' resource requires a value")
		}
		resources = append(resources, res)
		if !p.acceptOp(",") {
			break
		}
	}
	body, err := p.parseProcedureBody("using")
	if err != nil {
		return nil, err
	}
	var stmt ast.Statement
	for idx := len(resources) - 1; idx >= 0; idx-- {
		stmt = ast.NewUsingStatement(resources[idx].name, resources[idx].expr, body)
		body = []ast.Statement{stmt}
	}
	return stmt, nil
}

func (p *Parser) parseTry() (ast.Statement, error) {
	p.advance()
	done := func() bool { return p.isWord("catch", "finally") || p.atEndOf("try") }
	body, err := p.parseBlock(done)
	if err != nil {
		return nil, err
	}
	stmt := ast.NewTryStatement(body, nil, nil)
	for p.acceptWord("catch") {
		clause := ast.NewCatchClause("", nil, nil, nil)
		if p.cur().Type == IDENT && !p.isReservedTok(p.cur()) {
			clause.Variable = p.advance().Lexeme
			if p.acceptWord("as") {
				if clause.Type, err = p.parseTypeRef(false); err != nil {
					return nil, err
				}
			}
		}
		if p.acceptWord("when") {
			if clause.When, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if clause.Body, err = p.parseBlock(done); err != nil {
			return nil, err
		}
		stmt.Catches = append(stmt.Catches, clause)
	}
	if p.acceptWord("finally") {
		finally, err := p.parseBlock(func() bool { return p.atEndOf("try") })
		if err != nil {
			return nil, err
		}
		stmt.Finally = finally
	}
	if err := p.parseEndOf("try"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseOnError() (ast.Statement, error) {
	p.advance()
	p.advance()
	if p.acceptWord("resume") {
		if err := p.expectWord("next"); err != nil {
			return nil, err
		}
		return ast.NewOnErrorStatement(ast.OnErrorResumeNext, ""), nil
	}
	if err := p.expectWord("goto"); err != nil {
		return nil, err
	}
	if p.acceptOp("-") {
		if tok := p.advance(); tok.Type != INTEGER {
			return nil, p.errorf("expected label after 'GoTo'")
		}
		return ast.NewOnErrorStatement(ast.OnErrorGotoZero, ""), nil
	}
	if tok := p.cur(); tok.Type == INTEGER && tok.Int == 0 {
		p.advance()
		return ast.NewOnErrorStatement(ast.OnErrorGotoZero, ""), nil
	}
	label, err := p.parseLabelName()
	if err != nil {
		return nil, err
	}
	return ast.NewOnErrorStatement(ast.OnErrorGotoLabel, label), nil
}

func (p *Parser) parseHandlerStatement() (ast.Statement, error) {
	isAdd := p.advance().lower() == "addhandler"
	event, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(","); err != nil {
		return nil, err
	}
	handler, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if isAdd {
		return ast.NewAddHandlerStatement(event, handler), nil
	}
	return ast.NewRemoveHandlerStatement(event, handler), nil
}

// Legacy file I/O

func (p *Parser) parseFileNumber() (ast.Expression, error) {
	p.acceptOp("#")
	return p.parseExpression()
}

func (p *Parser) parseFileNumberList() ([]ast.Expression, error) {
	var nums []ast.Expression
	for !p.atStatementEnd() {
		num, err := p.parseFileNumber()
		if err != nil {
			return nil, err
		}
		nums = append(nums, num)
		if !p.acceptOp(",") {
			break
		}
	}
	return nums, nil
}

var fileModes = map[string]ast.FileOpenMode{
	"input": ast.FileInput, "output": ast.FileOutput, "append": ast.FileAppend,
	"binary": ast.FileBinary, "random": ast.FileRandom,
}

// parseOpen parses `Open path For mode [Access ...] [Lock ...] As #n [Len = n]`.
func (p *Parser) parseOpen() (ast.Statement, error) {
	p.advance()
	path, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("for"); err != nil {
		return nil, err
	}
	modeTok := p.cur()
	mode, ok := fileModes[modeTok.lower()]
	if modeTok.Type != IDENT || !ok {
		return nil, p.errorf("unknown file mode %s", p.describe(modeTok))
	}
	p.advance()
	for !p.isWord("as") && !p.atStatementEnd() {
		p.advance()
	}
	if err := p.expectWord("as"); err != nil {
		return nil, err
	}
	num, err := p.parseFileNumber()
	if err != nil {
		return nil, err
	}
	if p.acceptWord("len") {
		if err := p.expectOp("="); err != nil {
			return nil, err
		}
		if _, err := p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return ast.NewOpenStatement(path, mode, num), nil
}

// parsePrint parses `Print #n, a; b` and `Write #n, a, b`. A bare `Print`
// without a file number writes to the console.
func (p *Parser) parsePrint(isWrite bool) (ast.Statement, error) {
	p.advance()
	var num ast.Expression
	if p.isOp("#") {
		var err error
		if num, err = p.parseFileNumber(); err != nil {
			return nil, err
		}
		if !p.atStatementEnd() {
			if err := p.expectOp(","); err != nil {
				return nil, err
			}
		}
	}
	var items []ast.Expression
	noNewline := false
	for !p.atStatementEnd() {
		noNewline = false
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.acceptOp(";") || p.acceptOp(",") {
			noNewline = true
			continue
		}
		break
	}
	return ast.NewPrintStatement(num, items, isWrite, noNewline), nil
}

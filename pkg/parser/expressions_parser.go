package parser

import (
	"math"
	"strings"

	"vybe/interpreter-go/pkg/ast"
)

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(next func() (ast.Expression, error), match func() (ast.BinaryOperator, bool)) (ast.Expression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := match()
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
}

func (p *Parser) matchWords(ops map[string]ast.BinaryOperator) func() (ast.BinaryOperator, bool) {
	return func() (ast.BinaryOperator, bool) {
		tok := p.cur()
		if tok.Type != IDENT || tok.Escaped {
			return "", false
		}
		op, ok := ops[tok.lower()]
		return op, ok
	}
}

func (p *Parser) matchOps(ops map[string]ast.BinaryOperator) func() (ast.BinaryOperator, bool) {
	return func() (ast.BinaryOperator, bool) {
		tok := p.cur()
		if tok.Type == OPERATOR {
			op, ok := ops[tok.Lexeme]
			return op, ok
		}
		if tok.Type == IDENT && !tok.Escaped {
			op, ok := ops[tok.lower()]
			return op, ok
		}
		return "", false
	}
}

var (
	orOperators             = map[string]ast.BinaryOperator{"or": ast.OpOr, "orelse": ast.OpOrElse, "xor": ast.OpXor}
	andOperators            = map[string]ast.BinaryOperator{"and": ast.OpAnd, "andalso": ast.OpAndAlso}
	comparisonOperators     = map[string]ast.BinaryOperator{"=": ast.OpEqual, "<>": ast.OpNotEqual, "<": ast.OpLess, "<=": ast.OpLessEqual, ">": ast.OpGreater, ">=": ast.OpGreaterEqual, "is": ast.OpIs, "isnot": ast.OpIsNot, "like": ast.OpLike}
	shiftOperators          = map[string]ast.BinaryOperator{"<<": ast.OpShiftLeft, ">>": ast.OpShiftRight}
	concatOperators         = map[string]ast.BinaryOperator{"&": ast.OpConcat}
	additiveOperators       = map[string]ast.BinaryOperator{"+": ast.OpAdd, "-": ast.OpSubtract}
	multiplicativeOperators = map[string]ast.BinaryOperator{"*": ast.OpMultiply, "/": ast.OpDivide, "\\": ast.OpIntDivide, "mod": ast.OpModulo}
)

func (p *Parser) parseOr() (ast.Expression, error) {
	return p.binaryLevel(p.parseAnd, p.matchWords(orOperators))
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	return p.binaryLevel(p.parseNot, p.matchWords(andOperators))
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.acceptWord("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(ast.UnaryNot, operand), nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	return p.binaryLevel(p.parseShift, p.matchOps(comparisonOperators))
}

func (p *Parser) parseShift() (ast.Expression, error) {
	return p.binaryLevel(p.parseConcat, p.matchOps(shiftOperators))
}

func (p *Parser) parseConcat() (ast.Expression, error) {
	return p.binaryLevel(p.parseAdditive, p.matchOps(concatOperators))
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	return p.binaryLevel(p.parseMultiplicative, p.matchOps(additiveOperators))
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	return p.binaryLevel(p.parseUnary, p.matchOps(multiplicativeOperators))
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	switch {
	case p.isOp("-"), p.isOp("+"):
		op := ast.UnaryNegate
		if p.advance().Lexeme == "+" {
			op = ast.UnaryPlus
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(op, operand), nil
	}
	return p.parseExponent()
}

// parseExponent is right-associative: `2 ^ 3 ^ 2` is `2 ^ (3 ^ 2)`.
func (p *Parser) parseExponent() (ast.Expression, error) {
	base, err := p.parsePostfixExpression()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("^") {
		return base, nil
	}
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryExpression(ast.OpPower, base, exponent), nil
}

func (p *Parser) parsePostfixExpression() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("."), p.isOp("?") && isOpTok(p.peek(1), "."):
			if p.isOp("?") {
				p.advance()
			}
			p.advance()
			member, err := p.expectName()
			if err != nil {
				return nil, err
			}
			expr = ast.NewMemberAccessExpression(expr, member)
		case p.isOp("!") && p.peek(1).Type == IDENT:
			p.advance()
			key := p.advance().Lexeme
			expr = ast.NewCallExpression(expr, []ast.Expression{ast.NewStringLiteral(key)})
		case p.isOp("(") && p.isWordAt(1, "of"):
			if err := p.skipGenericParameters(); err != nil {
				return nil, err
			}
		case p.isOp("("):
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = ast.NewCallExpression(expr, args)
		default:
			return expr, nil
		}
	}
}

// parseArguments parses a parenthesised argument list with optional named
// (`name:=value`) and omitted (`f(1, , 3)`) arguments.
func (p *Parser) parseArguments() ([]ast.Expression, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	args := []ast.Expression{}
	if p.acceptOp(")") {
		return args, nil
	}
	for {
		if p.isOp(",") || p.isOp(")") {
			args = append(args, ast.NewOmittedArgument())
		} else {
			arg, err := p.parseArgument()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *Parser) parseArgument() (ast.Expression, error) {
	if p.cur().Type == IDENT && isOpTok(p.peek(1), ":=") {
		name := p.advance().Lexeme
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewNamedArgument(name, value), nil
	}
	return p.parseExpression()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case INTEGER:
		p.advance()
		isLong := tok.Suffix == "&" || tok.Suffix == "L" || tok.Suffix == "UI" || tok.Suffix == "UL" ||
			tok.Int > math.MaxInt32 || tok.Int < math.MinInt32
		return ast.NewIntegerLiteral(tok.Int, isLong), nil
	case FLOAT:
		p.advance()
		return ast.NewFloatLiteral(tok.Float, tok.Suffix == "!" || tok.Suffix == "F"), nil
	case STRING:
		p.advance()
		return ast.NewStringLiteral(tok.Text), nil
	case CHAR:
		p.advance()
		return ast.NewCharLiteral(rune(tok.Int)), nil
	case DATE:
		p.advance()
		return ast.NewDateLiteral(tok.Text), nil
	case INTERP:
		p.advance()
		return p.parseInterpolated(tok)
	case OPERATOR:
		switch tok.Lexeme {
		case "(":
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return expr, nil
		case "{":
			items, err := p.parseBraceList()
			if err != nil {
				return nil, err
			}
			return ast.NewArrayLiteral(items), nil
		case ".":
			p.advance()
			member, err := p.expectName()
			if err != nil {
				return nil, err
			}
			return ast.NewMemberAccessExpression(nil, member), nil
		case "-", "+":
			return p.parseUnary()
		}
		return nil, p.errorf("unexpected %s", p.describe(tok))
	case IDENT:
		if tok.Escaped {
			p.advance()
			return ast.NewIdentifier(tok.Lexeme), nil
		}
		return p.parseWordPrimary(tok)
	}
	return nil, p.errorf("unexpected %s", p.describe(tok))
}

func (p *Parser) parseWordPrimary(tok Token) (ast.Expression, error) {
	nextIsParen := isOpTok(p.peek(1), "(")
	switch tok.lower() {
	case "true", "false":
		p.advance()
		return ast.NewBooleanLiteral(tok.lower() == "true"), nil
	case "nothing":
		p.advance()
		return ast.NewNothingLiteral(), nil
	case "me", "myclass":
		p.advance()
		return ast.NewMeExpression(), nil
	case "mybase":
		p.advance()
		return ast.NewMyBaseExpression(), nil
	case "new":
		p.advance()
		return p.parseNewRest()
	case "not":
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(ast.UnaryNot, operand), nil
	case "addressof":
		p.advance()
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
		return ast.NewAddressOfExpression(target), nil
	case "await":
		p.advance()
		operand, err := p.parsePostfixExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewAwaitExpression(operand), nil
	case "async":
		if p.isWordAt(1, "function", "sub") {
			p.advance()
			return p.parseLambda()
		}
	case "function", "sub":
		if nextIsParen {
			return p.parseLambda()
		}
	case "if":
		if nextIsParen {
			return p.parseIfExpression()
		}
	case "typeof":
		return p.parseTypeOf()
	case "ctype", "directcast", "trycast":
		if nextIsParen {
			return p.parseCast()
		}
	case "gettype":
		if nextIsParen {
			p.advance()
			p.advance()
			typ, err := p.parseTypeRef(true)
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return ast.NewCallExpression(ast.NewIdentifier(tok.Lexeme), []ast.Expression{ast.NewStringLiteral(typ.String())}), nil
		}
	case "nameof":
		if nextIsParen {
			p.advance()
			p.advance()
			name, err := p.parseDottedName()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			return ast.NewStringLiteral(name), nil
		}
	case "from":
		if p.peek(1).Type == IDENT && (p.isWordAt(2, "in") || p.isWordAt(2, "as")) {
			return p.parseQuery()
		}
	}
	if p.isReservedTok(tok) {
		return nil, p.errorf("unexpected keyword '%s'", tok.Lexeme)
	}
	p.advance()
	return ast.NewIdentifier(tok.Lexeme), nil
}

// parseBraceList parses `{a, b, {c, d}}` items.
func (p *Parser) parseBraceList() ([]ast.Expression, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	items := []ast.Expression{}
	p.skipNewlines()
	if p.acceptOp("}") {
		return items, nil
	}
	for {
		p.skipNewlines()
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipNewlines()
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return items, nil
	}
}

// parseNewRest parses what follows `New`: object creation, `With {...}`
// initializers, `From {...}` collection initializers and arrays.
func (p *Parser) parseNewRest() (ast.Expression, error) {
	var typ *ast.TypeRef
	if !p.isWord("with") {
		var err error
		if typ, err = p.parseTypeRef(false); err != nil {
			return nil, err
		}
	}
	expr := ast.NewNewExpression(typ, nil, nil, nil, false)
	if p.isOp("(") {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		expr.Arguments = args
	}
	switch {
	case p.isOp("{"):
		items, err := p.parseBraceList()
		if err != nil {
			return nil, err
		}
		expr.IsArray = true
		expr.Items = items
	case p.isWord("with") && isOpTok(p.peek(1), "{"):
		p.advance()
		inits, err := p.parseFieldInitializers()
		if err != nil {
			return nil, err
		}
		expr.Initializers = inits
	case p.isWord("from") && isOpTok(p.peek(1), "{"):
		p.advance()
		items, err := p.parseBraceList()
		if err != nil {
			return nil, err
		}
		expr.Items = items
	}
	if typ == nil && expr.Initializers == nil {
		return nil, p.errorf("expected type after 'New'")
	}
	return expr, nil
}

func (p *Parser) parseFieldInitializers() ([]*ast.FieldInitializer, error) {
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}
	inits := []*ast.FieldInitializer{}
	for {
		p.skipNewlines()
		p.acceptWord("key")
		if err := p.expectOp("."); err != nil {
			return nil, err
		}
		name, err := p.expectName()
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
		inits = append(inits, ast.NewFieldInitializer(name, value))
		p.skipNewlines()
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return inits, nil
	}
}

// parseLambda parses `Function(x) expr`, `Sub(x) stmt` and the multi-line
// forms closed by `End Function` / `End Sub`.
func (p *Parser) parseLambda() (ast.Expression, error) {
	isFunction := p.advance().lower() == "function"
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	if isFunction && p.acceptWord("as") {
		if _, err := p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	if p.cur().Type == NEWLINE {
		word := "sub"
		if isFunction {
			word = "function"
		}
		saved := p.inlineIf
		p.inlineIf = 0
		body, err := p.parseProcedureBody(word)
		p.inlineIf = saved
		if err != nil {
			return nil, err
		}
		return ast.NewLambdaExpression(params, isFunction, nil, body), nil
	}
	if isFunction {
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewLambdaExpression(params, true, body, nil), nil
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewLambdaExpression(params, false, nil, []ast.Statement{stmt}), nil
}

func (p *Parser) parseIfExpression() (ast.Expression, error) {
	p.advance()
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	switch len(args) {
	case 2:
		return ast.NewIfExpression(nil, args[0], args[1]), nil
	case 3:
		return ast.NewIfExpression(args[0], args[1], args[2]), nil
	}
	return nil, p.errorf("'If' operator requires two or three operands")
}

func (p *Parser) parseTypeOf() (ast.Expression, error) {
	p.advance()
	operand, err := p.parsePostfixExpression()
	if err != nil {
		return nil, err
	}
	negated := false
	switch {
	case p.acceptWord("is"):
	case p.acceptWord("isnot"):
		negated = true
	default:
		return nil, p.errorf("expected 'Is' after 'TypeOf' operand")
	}
	typ, err := p.parseTypeRef(true)
	if err != nil {
		return nil, err
	}
	return ast.NewTypeOfExpression(operand, typ, negated), nil
}

func (p *Parser) parseCast() (ast.Expression, error) {
	var kind ast.CastKind
	switch p.advance().lower() {
	case "ctype":
		kind = ast.CastCType
	case "directcast":
		kind = ast.CastDirectCast
	default:
		kind = ast.CastTryCast
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	operand, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(","); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeRef(true)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return ast.NewCastExpression(kind, operand, typ), nil
}

// parseQuery parses `From x In src [Where c] [Order By k [Descending]]
// [Let n = e] Select e [Distinct]`.
func (p *Parser) parseQuery() (ast.Expression, error) {
	p.advance()
	p.inQuery++
	defer func() { p.inQuery-- }()
	name := p.advance().Lexeme
	if p.acceptWord("as") {
		if _, err := p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	source, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	query := ast.NewQueryExpression(name, source, nil, nil)
	for {
		switch {
		case p.acceptWord("where"):
			clause := ast.NewQueryClause(ast.QueryWhere)
			if clause.Condition, err = p.parseExpression(); err != nil {
				return nil, err
			}
			query.Clauses = append(query.Clauses, clause)
		case p.isWord("order") && p.isWordAt(1, "by"):
			p.advance()
			p.advance()
			clause := ast.NewQueryClause(ast.QueryOrderBy)
			for {
				key, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				desc := false
				if p.acceptWord("descending") {
					desc = true
				} else {
					p.acceptWord("ascending")
				}
				clause.Keys = append(clause.Keys, ast.NewOrderKey(key, desc))
				if !p.acceptOp(",") {
					break
				}
			}
			query.Clauses = append(query.Clauses, clause)
		case p.acceptWord("let"):
			clause := ast.NewQueryClause(ast.QueryLet)
			if clause.Name, err = p.expectIdent(); err != nil {
				return nil, err
			}
			if err := p.expectOp("="); err != nil {
				return nil, err
			}
			if clause.Value, err = p.parseExpression(); err != nil {
				return nil, err
			}
			query.Clauses = append(query.Clauses, clause)
		case p.acceptWord("select"):
			if query.Select, err = p.parseExpression(); err != nil {
				return nil, err
			}
		case p.acceptWord("distinct"):
			query.Distinct = true
		default:
			return query, nil
		}
	}
}

// parseInterpolated splits the body of `$"..."` into literal text and
// embedded expressions with optional `:format` specifiers.
func (p *Parser) parseInterpolated(tok Token) (ast.Expression, error) {
	src := []rune(tok.Text)
	parts := []*ast.InterpolationPart{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, ast.NewInterpolationPart(lit.String(), nil, ""))
			lit.Reset()
		}
	}
	for idx := 0; idx < len(src); idx++ {
		ch := src[idx]
		next := rune(0)
		if idx+1 < len(src) {
			next = src[idx+1]
		}
		switch {
		case ch == '{' && next == '{', ch == '}' && next == '}', ch == '"' && next == '"':
			lit.WriteRune(ch)
			idx++
		case ch == '{':
			end, colon := scanHole(src, idx+1)
			if end < 0 {
				return nil, newParseError(tok.Line, tok.Col, "unterminated interpolation hole")
			}
			exprEnd := end
			format := ""
			if colon >= 0 {
				exprEnd = colon
				format = string(src[colon+1 : end])
			}
			text := string(src[idx+1 : exprEnd])
			if comma := topLevelComma(text); comma >= 0 {
				text = text[:comma]
			}
			expr, err := ParseExpression(text)
			if err != nil {
				if perr, ok := err.(*ParseError); ok {
					return nil, newParseError(tok.Line, tok.Col+idx+2, "in interpolation: %s", perr.Message)
				}
				return nil, err
			}
			flush()
			parts = append(parts, ast.NewInterpolationPart("", expr, format))
			idx = end
		default:
			lit.WriteRune(ch)
		}
	}
	flush()
	return ast.NewInterpolatedString(parts), nil
}

// scanHole returns the index of the `}` closing a hole that starts at start,
// and the index of the top-level `:` introducing a format string (or -1).
func scanHole(src []rune, start int) (int, int) {
	depth := 0
	colon := -1
	inString := false
	for idx := start; idx < len(src); idx++ {
		ch := src[idx]
		switch {
		case inString:
			if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '(' || ch == '{' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			depth--
		case ch == '}':
			if depth == 0 {
				return idx, colon
			}
			depth--
		case ch == ':' && depth == 0 && colon < 0:
			if idx+1 < len(src) && src[idx+1] == '=' {
				continue
			}
			colon = idx
		}
	}
	return -1, -1
}

// topLevelComma finds an alignment component (`{x,10}`) outside parentheses.
func topLevelComma(text string) int {
	depth := 0
	inString := false
	for idx, ch := range text {
		switch {
		case inString:
			if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '(' || ch == '{':
			depth++
		case ch == ')' || ch == '}':
			depth--
		case ch == ',' && depth == 0:
			return idx
		}
	}
	return -1
}

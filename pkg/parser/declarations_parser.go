package parser

import (
	"strings"

	"vybe/interpreter-go/pkg/ast"
)

type declContext int

const (
	contextTopLevel declContext = iota
	contextModule
	contextClass
	contextNamespace
)

var modifierWords = map[string]bool{
	"public": true, "private": true, "friend": true, "protected": true, "shared": true,
	"overrides": true, "overridable": true, "notoverridable": true, "mustinherit": true,
	"notinheritable": true, "mustoverride": true, "readonly": true, "writeonly": true,
	"withevents": true, "partial": true, "async": true, "default": true, "overloads": true,
	"shadows": true, "iterator": true, "static": true, "widening": true, "narrowing": true,
}

var declarationWords = map[string]bool{
	"sub": true, "function": true, "property": true, "event": true, "class": true,
	"structure": true, "module": true, "enum": true, "interface": true, "delegate": true,
	"namespace": true, "imports": true, "option": true, "const": true, "declare": true,
}

// isTopLevelDeclaration decides whether the next line at file level is a
// declaration. A bare `Dim` stays a statement so scripts can use locals.
func (p *Parser) isTopLevelDeclaration() bool {
	tok := p.cur()
	if tok.Type == OPERATOR && tok.Lexeme == "<" && p.atLineStart() {
		return true
	}
	if tok.Type != IDENT || tok.Escaped {
		return false
	}
	lower := tok.lower()
	if lower == "static" {
		return false
	}
	if lower == "attribute" && p.peek(1).Type == IDENT && isOpTok(p.peek(2), "=") {
		return true
	}
	if lower == "async" {
		return p.isWordAt(1, "sub", "function")
	}
	if lower == "default" || lower == "partial" {
		return p.peek(1).Type == IDENT
	}
	return declarationWords[lower] || (modifierWords[lower] && p.peek(1).Type == IDENT)
}

// skipAttributes discards `<Attr(...)>` blocks in front of a declaration.
func (p *Parser) skipAttributes() {
	for p.isOp("<") {
		depth := 0
		for !p.atEOF() {
			tok := p.advance()
			if isOpTok(tok, "(") {
				depth++
			} else if isOpTok(tok, ")") {
				depth--
			} else if isOpTok(tok, ">") && depth <= 0 {
				break
			}
		}
		p.skipNewlines()
	}
}

func (p *Parser) parseModifiers() (ast.Modifiers, bool, bool) {
	var mods ast.Modifiers
	mustOverride := false
	isStatic := false
	for p.cur().Type == IDENT && !p.cur().Escaped && modifierWords[p.cur().lower()] {
		// `Default` and `ReadOnly` may also be member names; only treat them as
		// modifiers when another word follows.
		if p.peek(1).Type != IDENT {
			break
		}
		switch p.advance().lower() {
		case "public":
			mods.Visibility = ast.VisibilityPublic
		case "private":
			mods.Visibility = ast.VisibilityPrivate
		case "friend":
			if mods.Visibility != ast.VisibilityProtected {
				mods.Visibility = ast.VisibilityFriend
			}
		case "protected":
			mods.Visibility = ast.VisibilityProtected
		case "shared":
			mods.Shared = true
		case "overrides":
			mods.Overrides = true
		case "overridable":
			mods.Overridable = true
		case "mustinherit":
			mods.MustInherit = true
		case "mustoverride":
			mustOverride = true
			mods.Overridable = true
		case "readonly":
			mods.ReadOnly = true
		case "writeonly":
			mods.WriteOnly = true
		case "withevents":
			mods.WithEvents = true
		case "partial":
			mods.Partial = true
		case "async":
			mods.Async = true
		case "default":
			mods.Default = true
		case "static":
			isStatic = true
		}
	}
	return mods, mustOverride, isStatic
}

// parseMemberDeclarations parses one declaration. Modules are flattened, so a
// single call may yield several declarations.
func (p *Parser) parseMemberDeclarations(ctx declContext) ([]ast.Declaration, error) {
	p.skipAttributes()
	if p.isWord("attribute") && p.peek(1).Type == IDENT && isOpTok(p.peek(2), "=") {
		p.skipLine()
		return nil, nil
	}
	if p.isWord("option") {
		p.skipLine()
		return nil, nil
	}
	if p.isWord("imports") {
		decl, err := p.parseImports()
		if err != nil {
			return nil, err
		}
		return []ast.Declaration{decl}, nil
	}
	if p.isWord("namespace") {
		decl, err := p.parseNamespace()
		if err != nil {
			return nil, err
		}
		return []ast.Declaration{decl}, nil
	}

	mods, mustOverride, isStatic := p.parseModifiers()
	tok := p.cur()
	if tok.Type != IDENT {
		return nil, p.errorf("expected declaration but found %s", p.describe(tok))
	}
	switch {
	case isWordTok(tok, "module"):
		if ctx == contextClass {
			return nil, p.errorf("'Module' cannot be nested inside a type")
		}
		return p.parseModule()
	case isWordTok(tok, "sub"):
		decl, err := p.parseSubDeclaration(mods, mustOverride)
		return wrapDecl(decl, err)
	case isWordTok(tok, "function"):
		decl, err := p.parseFunctionDeclaration(mods, mustOverride)
		return wrapDecl(decl, err)
	case isWordTok(tok, "property"):
		decl, err := p.parsePropertyDeclaration(mods, mustOverride)
		return wrapDecl(decl, err)
	case isWordTok(tok, "event"):
		decl, err := p.parseEventDeclaration(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "class"):
		decl, err := p.parseClass(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "structure"):
		decl, err := p.parseStructure(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "enum"):
		decl, err := p.parseEnum(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "interface"):
		decl, err := p.parseInterface(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "delegate"):
		decl, err := p.parseDelegate(mods)
		return wrapDecl(decl, err)
	case isWordTok(tok, "declare"):
		// Win32 API declarations have no meaning here.
		p.skipLine()
		return nil, nil
	case isWordTok(tok, "const"):
		p.advance()
		decls, err := p.parseConstantDeclarations(mods)
		return decls, err
	case isWordTok(tok, "dim"):
		p.advance()
		if more, _, _ := p.parseModifiers(); more.WithEvents {
			mods.WithEvents = true
		}
		decl, err := p.parseVariableDeclaration(mods)
		return wrapDecl(decl, err)
	default:
		if mods == (ast.Modifiers{}) && !isStatic {
			return nil, p.errorf("expected declaration but found %s", p.describe(tok))
		}
		decl, err := p.parseVariableDeclaration(mods)
		return wrapDecl(decl, err)
	}
}

func wrapDecl[T ast.Declaration](decl T, err error) ([]ast.Declaration, error) {
	if err != nil {
		return nil, err
	}
	return []ast.Declaration{decl}, nil
}

func (p *Parser) parseImports() (*ast.ImportsDeclaration, error) {
	p.advance()
	first, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	if p.acceptOp("=") {
		path, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		return ast.NewImportsDeclaration(path, first), nil
	}
	return ast.NewImportsDeclaration(first, ""), nil
}

func (p *Parser) parseDottedName() (string, error) {
	var parts []string
	for {
		name, err := p.expectName()
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
		if !p.acceptOp(".") {
			break
		}
	}
	return joinName(parts), nil
}

// parseEndOf consumes `End <word>`.
func (p *Parser) parseEndOf(word string) error {
	if !p.isWord("end") || !p.isWordAt(1, word) {
		return p.errorf("expected 'End %s' but found %s", capitalize(word), p.describe(p.cur()))
	}
	p.advance()
	p.advance()
	return nil
}

func (p *Parser) atEndOf(word string) bool {
	return p.isWord("end") && p.isWordAt(1, word)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func (p *Parser) parseNamespace() (*ast.NamespaceDeclaration, error) {
	p.advance()
	name, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	var decls []ast.Declaration
	p.skipTerminators()
	for !p.atEndOf("namespace") {
		if p.atEOF() {
			return nil, p.errorf("expected 'End Namespace'")
		}
		inner, err := p.parseMemberDeclarations(contextNamespace)
		if err != nil {
			return nil, err
		}
		decls = append(decls, inner...)
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	if err := p.parseEndOf("namespace"); err != nil {
		return nil, err
	}
	return ast.NewNamespaceDeclaration(name, decls), nil
}

// parseModule flattens the module body: its members become declarations of
// the enclosing file or namespace, tagged with the module's name.
func (p *Parser) parseModule() ([]ast.Declaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	var decls []ast.Declaration
	p.skipTerminators()
	for !p.atEndOf("module") {
		if p.atEOF() {
			return nil, p.errorf("expected 'End Module'")
		}
		inner, err := p.parseMemberDeclarations(contextModule)
		if err != nil {
			return nil, err
		}
		decls = append(decls, inner...)
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	if err := p.parseEndOf("module"); err != nil {
		return nil, err
	}
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.SubDeclaration:
			d.Module = name
		case *ast.FunctionDeclaration:
			d.Module = name
		case *ast.PropertyDeclaration:
			d.Module = name
		case *ast.VariableDeclaration:
			d.Module = name
		}
	}
	return decls, nil
}

// Procedures

func (p *Parser) parseParameterList() ([]*ast.Parameter, error) {
	if !p.acceptOp("(") {
		return nil, nil
	}
	var params []*ast.Parameter
	if p.acceptOp(")") {
		return params, nil
	}
	for {
		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.acceptOp(",") {
			continue
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return params, nil
	}
}

func (p *Parser) parseParameter() (*ast.Parameter, error) {
	p.skipAttributes()
	mode := ast.PassByVal
	optional := false
	paramArray := false
	for {
		switch {
		case p.acceptWord("optional"):
			optional = true
			continue
		case p.acceptWord("byval"):
			mode = ast.PassByVal
			continue
		case p.acceptWord("byref"):
			mode = ast.PassByRef
			continue
		case p.acceptWord("paramarray"):
			paramArray = true
			continue
		}
		break
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	nullable := p.acceptOp("?")
	isArray := false
	if p.isOp("(") && isOpTok(p.peek(1), ")") {
		p.advance()
		p.advance()
		isArray = true
	}
	var typ *ast.TypeRef
	if p.acceptWord("as") {
		typ, err = p.parseTypeRef(true)
		if err != nil {
			return nil, err
		}
	}
	if typ != nil {
		if nullable {
			typ.Nullable = true
		}
		if isArray {
			typ.IsArray = true
		}
	} else if isArray || nullable {
		typ = ast.NewTypeRef("Object", nil, isArray, nullable)
	}
	var def ast.Expression
	if p.acceptOp("=") {
		def, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewParameter(name, typ, mode, optional, def, paramArray), nil
}

// parseHandles parses `Handles a.Click, Me.Load`.
func (p *Parser) parseHandles() ([]*ast.HandlesClause, error) {
	if !p.acceptWord("handles") {
		return nil, nil
	}
	var clauses []*ast.HandlesClause
	for {
		name, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		idx := strings.LastIndex(name, ".")
		if idx < 0 {
			return nil, p.errorf("expected 'control.event' in Handles clause, found '%s'", name)
		}
		clauses = append(clauses, ast.NewHandlesClause(name[:idx], name[idx+1:]))
		if !p.acceptOp(",") {
			return clauses, nil
		}
	}
}

func (p *Parser) skipImplements() error {
	if !p.acceptWord("implements") {
		return nil
	}
	for {
		if _, err := p.parseDottedName(); err != nil {
			return err
		}
		if !p.acceptOp(",") {
			return nil
		}
	}
}

func (p *Parser) skipGenericParameters() error {
	if p.isOp("(") && p.isWordAt(1, "of") {
		depth := 0
		for !p.atEOF() {
			tok := p.advance()
			if isOpTok(tok, "(") {
				depth++
			} else if isOpTok(tok, ")") {
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
		return p.errorf("unterminated generic parameter list")
	}
	return nil
}

// parseProcedureBody parses statements up to `End <word>`.
func (p *Parser) parseProcedureBody(word string) ([]ast.Statement, error) {
	body, err := p.parseBlock(func() bool { return p.atEndOf(word) })
	if err != nil {
		return nil, err
	}
	if err := p.parseEndOf(word); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseSubDeclaration(mods ast.Modifiers, abstract bool) (*ast.SubDeclaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.skipGenericParameters(); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	handles, err := p.parseHandles()
	if err != nil {
		return nil, err
	}
	if err := p.skipImplements(); err != nil {
		return nil, err
	}
	more, err := p.parseHandles()
	if err != nil {
		return nil, err
	}
	handles = append(handles, more...)
	if abstract {
		return ast.NewSubDeclaration(mods, name, params, nil, handles), nil
	}
	body, err := p.parseProcedureBody("sub")
	if err != nil {
		return nil, err
	}
	return ast.NewSubDeclaration(mods, name, params, body, handles), nil
}

func (p *Parser) parseFunctionDeclaration(mods ast.Modifiers, abstract bool) (*ast.FunctionDeclaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.skipGenericParameters(); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	var returnType *ast.TypeRef
	if p.acceptWord("as") {
		if returnType, err = p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	handles, err := p.parseHandles()
	if err != nil {
		return nil, err
	}
	if err := p.skipImplements(); err != nil {
		return nil, err
	}
	var body []ast.Statement
	if !abstract {
		if body, err = p.parseProcedureBody("function"); err != nil {
			return nil, err
		}
	}
	decl := ast.NewFunctionDeclaration(mods, name, params, returnType, body)
	decl.Handles = handles
	return decl, nil
}

func (p *Parser) parsePropertyDeclaration(mods ast.Modifiers, abstract bool) (*ast.PropertyDeclaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	var typ *ast.TypeRef
	var init ast.Expression
	if p.acceptWord("as") {
		if p.acceptWord("new") {
			newExpr, err := p.parseNewRest()
			if err != nil {
				return nil, err
			}
			typ = newExpr.(*ast.NewExpression).Type
			init = newExpr
		} else if typ, err = p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	if p.acceptOp("=") {
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if err := p.skipImplements(); err != nil {
		return nil, err
	}
	decl := ast.NewPropertyDeclaration(mods, name, params, typ)
	decl.Initializer = init
	if abstract {
		return decl, nil
	}

	// An auto-implemented property has no Get/Set block.
	save := p.pos
	p.skipTerminators()
	p.skipAttributes()
	p.parseModifiers()
	if !p.isWord("get", "set") {
		p.pos = save
		decl.IsAuto = true
		return decl, nil
	}
	p.pos = save

	for {
		p.skipTerminators()
		p.skipAttributes()
		if p.atEndOf("property") {
			break
		}
		if p.atEOF() {
			return nil, p.errorf("expected 'End Property'")
		}
		p.parseModifiers()
		switch {
		case p.acceptWord("get"):
			body, err := p.parseProcedureBody("get")
			if err != nil {
				return nil, err
			}
			decl.Getter = body
			decl.HasGetter = true
		case p.acceptWord("set"):
			setParams, err := p.parseParameterList()
			if err != nil {
				return nil, err
			}
			var param *ast.Parameter
			if len(setParams) > 0 {
				param = setParams[0]
			} else {
				param = ast.NewParameter("Value", typ, ast.PassByVal, false, nil, false)
			}
			body, err := p.parseProcedureBody("set")
			if err != nil {
				return nil, err
			}
			decl.Setter = ast.NewPropertySetter(param, body)
		default:
			return nil, p.errorf("expected 'Get' or 'Set' but found %s", p.describe(p.cur()))
		}
	}
	if err := p.parseEndOf("property"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseEventDeclaration(mods ast.Modifiers) (*ast.EventDeclaration, error) {
	p.advance()
	if p.isWord("custom") {
		return nil, p.errorf("custom events are not supported")
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	if p.acceptWord("as") {
		if _, err := p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	if err := p.skipImplements(); err != nil {
		return nil, err
	}
	return ast.NewEventDeclaration(mods, name, params), nil
}

func (p *Parser) parseDelegate(mods ast.Modifiers) (*ast.DelegateDeclaration, error) {
	p.advance()
	isFunction := false
	switch {
	case p.acceptWord("function"):
		isFunction = true
	case p.acceptWord("sub"):
	default:
		return nil, p.errorf("expected 'Sub' or 'Function' after 'Delegate'")
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.skipGenericParameters(); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	var returnType *ast.TypeRef
	if isFunction && p.acceptWord("as") {
		if returnType, err = p.parseTypeRef(true); err != nil {
			return nil, err
		}
	}
	return ast.NewDelegateDeclaration(mods, name, params, isFunction, returnType), nil
}

// Fields and constants

func (p *Parser) parseVariableDeclaration(mods ast.Modifiers) (*ast.VariableDeclaration, error) {
	vars, err := p.parseDeclarators()
	if err != nil {
		return nil, err
	}
	return ast.NewVariableDeclaration(mods, vars), nil
}

func (p *Parser) parseConstantDeclarations(mods ast.Modifiers) ([]ast.Declaration, error) {
	var decls []ast.Declaration
	for {
		name, typ, value, err := p.parseConstClause()
		if err != nil {
			return nil, err
		}
		decls = append(decls, ast.NewConstantDeclaration(mods, name, typ, value))
		if !p.acceptOp(",") {
			return decls, nil
		}
	}
}

func (p *Parser) parseConstClause() (string, *ast.TypeRef, ast.Expression, error) {
	name, err := p.expectName()
	if err != nil {
		return "", nil, nil, err
	}
	var typ *ast.TypeRef
	if p.acceptWord("as") {
		if typ, err = p.parseTypeRef(true); err != nil {
			return "", nil, nil, err
		}
	}
	if err := p.expectOp("="); err != nil {
		return "", nil, nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return "", nil, nil, err
	}
	return name, typ, value, nil
}

// Types

type typeBody struct {
	name       string
	inherits   string
	implements []string
	fields     []*ast.VariableDeclaration
	members    []ast.Declaration
}

func (p *Parser) parseTypeBody(word string) (*typeBody, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.skipGenericParameters(); err != nil {
		return nil, err
	}
	body := &typeBody{name: name}
	p.skipTerminators()
	for !p.atEndOf(word) {
		if p.atEOF() {
			return nil, p.errorf("expected 'End %s'", capitalize(word))
		}
		switch {
		case p.acceptWord("inherits"):
			parent, err := p.parseTypeRef(false)
			if err != nil {
				return nil, err
			}
			body.inherits = parent.Name
		case p.acceptWord("implements"):
			for {
				iface, err := p.parseTypeRef(false)
				if err != nil {
					return nil, err
				}
				body.implements = append(body.implements, iface.Name)
				if !p.acceptOp(",") {
					break
				}
			}
		default:
			decls, err := p.parseMemberDeclarations(contextClass)
			if err != nil {
				return nil, err
			}
			for _, decl := range decls {
				if field, ok := decl.(*ast.VariableDeclaration); ok {
					body.fields = append(body.fields, field)
					continue
				}
				body.members = append(body.members, decl)
			}
		}
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	if err := p.parseEndOf(word); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseClass(mods ast.Modifiers) (*ast.ClassDeclaration, error) {
	body, err := p.parseTypeBody("class")
	if err != nil {
		return nil, err
	}
	decl := ast.NewClassDeclaration(mods, body.name)
	decl.Inherits = body.inherits
	decl.Implements = body.implements
	decl.Fields = body.fields
	decl.Members = body.members
	return decl, nil
}

func (p *Parser) parseStructure(mods ast.Modifiers) (*ast.StructureDeclaration, error) {
	body, err := p.parseTypeBody("structure")
	if err != nil {
		return nil, err
	}
	decl := ast.NewStructureDeclaration(mods, body.name)
	decl.Implements = body.implements
	decl.Fields = body.fields
	decl.Members = body.members
	return decl, nil
}

func (p *Parser) parseEnum(mods ast.Modifiers) (*ast.EnumDeclaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if p.acceptWord("as") {
		if _, err := p.parseTypeRef(false); err != nil {
			return nil, err
		}
	}
	var members []*ast.EnumMember
	p.skipTerminators()
	for !p.atEndOf("enum") {
		if p.atEOF() {
			return nil, p.errorf("expected 'End Enum'")
		}
		p.skipAttributes()
		memberName, err := p.expectName()
		if err != nil {
			return nil, err
		}
		var value ast.Expression
		if p.acceptOp("=") {
			if value, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		members = append(members, ast.NewEnumMember(memberName, value))
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		p.skipTerminators()
	}
	if err := p.parseEndOf("enum"); err != nil {
		return nil, err
	}
	return ast.NewEnumDeclaration(mods, name, members), nil
}

// parseInterface records the member names of an interface; signatures are
// skipped since interfaces have no runtime behaviour.
func (p *Parser) parseInterface(mods ast.Modifiers) (*ast.InterfaceDeclaration, error) {
	p.advance()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.skipGenericParameters(); err != nil {
		return nil, err
	}
	var inherits, members []string
	p.skipTerminators()
	for !p.atEndOf("interface") {
		if p.atEOF() {
			return nil, p.errorf("expected 'End Interface'")
		}
		p.skipAttributes()
		if p.acceptWord("inherits") {
			for {
				parent, err := p.parseDottedName()
				if err != nil {
					return nil, err
				}
				inherits = append(inherits, parent)
				if !p.acceptOp(",") {
					break
				}
			}
		} else {
			p.parseModifiers()
			if p.acceptWord("sub") || p.acceptWord("function") || p.acceptWord("property") || p.acceptWord("event") {
				member, err := p.expectName()
				if err != nil {
					return nil, err
				}
				members = append(members, member)
			}
			p.skipLine()
		}
		p.skipTerminators()
	}
	if err := p.parseEndOf("interface"); err != nil {
		return nil, err
	}
	return ast.NewInterfaceDeclaration(mods, name, inherits, members), nil
}

// parseTypeRef parses `Name`, `A.B.C`, `List(Of T)`, `Integer?` and, when
// allowArray is set, a trailing `()`.
func (p *Parser) parseTypeRef(allowArray bool) (*ast.TypeRef, error) {
	name, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	var args []*ast.TypeRef
	if p.isOp("(") && p.isWordAt(1, "of") {
		p.advance()
		p.advance()
		for {
			arg, err := p.parseTypeRef(true)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.acceptOp(",") {
				break
			}
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	nullable := p.acceptOp("?")
	isArray := false
	if allowArray && p.isOp("(") && (isOpTok(p.peek(1), ")") || isOpTok(p.peek(1), ",")) {
		for !p.acceptOp(")") && !p.atEOF() {
			p.advance()
		}
		isArray = true
	}
	return ast.NewTypeRef(name, args, isArray, nullable), nil
}

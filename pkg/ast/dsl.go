package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(value, false)
}

func Long(value int64) *IntegerLiteral {
	return NewIntegerLiteral(value, true)
}

func Dbl(value float64) *FloatLiteral {
	return NewFloatLiteral(value, false)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func Nothing() *NothingLiteral {
	return NewNothingLiteral()
}

func Arr(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements)
}

func Ty(name string) *TypeRef {
	return NewTypeRef(name, nil, false, false)
}

// Expression helpers.

func Bin(op BinaryOperator, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Neg(operand Expression) *UnaryExpression {
	return NewUnaryExpression(UnaryNegate, operand)
}

func Not(operand Expression) *UnaryExpression {
	return NewUnaryExpression(UnaryNot, operand)
}

func Member(object Expression, member string) *MemberAccessExpression {
	return NewMemberAccessExpression(object, member)
}

func Call(callee Expression, args ...Expression) *CallExpression {
	if args == nil {
		args = []Expression{}
	}
	return NewCallExpression(callee, args)
}

// Statement helpers.

func Dim(name string, typ *TypeRef, init Expression) *DimStatement {
	decl := NewVariableDeclarator(name, typ)
	decl.Initializer = init
	return NewDimStatement([]*VariableDeclarator{decl}, false)
}

func Assign(target Expression, value Expression) *AssignmentStatement {
	return NewAssignmentStatement(target, OpEqual, value, false)
}

func CallStmt(callee Expression, args ...Expression) *CallStatement {
	return NewCallStatement(Call(callee, args...))
}

func Sub(name string, params []*Parameter, body ...Statement) *SubDeclaration {
	if body == nil {
		body = []Statement{}
	}
	return NewSubDeclaration(Modifiers{}, name, params, body, nil)
}

func Prog(decls []Declaration, stmts ...Statement) *Program {
	return NewProgram(decls, stmts)
}

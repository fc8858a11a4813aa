package ast

// Literals

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// IntegerLiteral holds an integral literal; IsLong is set by the `&`/`L`
// suffix or when the value does not fit in 32 bits.
type IntegerLiteral struct {
	nodeImpl
	expressionMarker

	Value  int64 `json:"value"`
	IsLong bool  `json:"isLong,omitempty"`
}

func NewIntegerLiteral(value int64, isLong bool) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value, IsLong: isLong}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker

	Value    float64 `json:"value"`
	IsSingle bool    `json:"isSingle,omitempty"`
}

func NewFloatLiteral(value float64, isSingle bool) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Value: value, IsSingle: isSingle}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type CharLiteral struct {
	nodeImpl
	expressionMarker

	Value rune `json:"value"`
}

func NewCharLiteral(value rune) *CharLiteral {
	return &CharLiteral{nodeImpl: newNodeImpl(NodeCharLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

// DateLiteral keeps the text between the `#` delimiters; conversion to an
// OLE date happens at evaluation time.
type DateLiteral struct {
	nodeImpl
	expressionMarker

	Text string `json:"text"`
}

func NewDateLiteral(text string) *DateLiteral {
	return &DateLiteral{nodeImpl: newNodeImpl(NodeDateLiteral), Text: text}
}

type NothingLiteral struct {
	nodeImpl
	expressionMarker
}

func NewNothingLiteral() *NothingLiteral {
	return &NothingLiteral{nodeImpl: newNodeImpl(NodeNothingLiteral)}
}

type ArrayLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

// InterpolationPart is either literal text or an embedded expression with an
// optional format string (`{x:N2}`).
type InterpolationPart struct {
	nodeImpl

	Literal string     `json:"literal,omitempty"`
	Expr    Expression `json:"expr,omitempty"`
	Format  string     `json:"format,omitempty"`
}

func NewInterpolationPart(literal string, expr Expression, format string) *InterpolationPart {
	return &InterpolationPart{nodeImpl: newNodeImpl(NodeInterpolationPart), Literal: literal, Expr: expr, Format: format}
}

type InterpolatedString struct {
	nodeImpl
	expressionMarker

	Parts []*InterpolationPart `json:"parts"`
}

func NewInterpolatedString(parts []*InterpolationPart) *InterpolatedString {
	return &InterpolatedString{nodeImpl: newNodeImpl(NodeInterpolatedString), Parts: parts}
}

// Access and calls

// MemberAccessExpression is `Object.Member`. A nil Object means the leading-dot
// form used inside a With block.
type MemberAccessExpression struct {
	nodeImpl
	expressionMarker

	Object Expression `json:"object,omitempty"`
	Member string     `json:"member"`
}

func NewMemberAccessExpression(object Expression, member string) *MemberAccessExpression {
	return &MemberAccessExpression{nodeImpl: newNodeImpl(NodeMemberAccessExpression), Object: object, Member: member}
}

// CallExpression covers both procedure calls and array/collection indexing;
// VB syntax does not distinguish them so the interpreter decides at runtime.
type CallExpression struct {
	nodeImpl
	expressionMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallExpression(callee Expression, args []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: args}
}

// NamedArgument is `name:=value` inside an argument list.
type NamedArgument struct {
	nodeImpl
	expressionMarker

	Name  string     `json:"name"`
	Value Expression `json:"value"`
}

func NewNamedArgument(name string, value Expression) *NamedArgument {
	return &NamedArgument{nodeImpl: newNodeImpl(NodeNamedArgument), Name: name, Value: value}
}

// OmittedArgument marks an empty slot such as the middle of `f(1, , 3)`.
type OmittedArgument struct {
	nodeImpl
	expressionMarker
}

func NewOmittedArgument() *OmittedArgument {
	return &OmittedArgument{nodeImpl: newNodeImpl(NodeOmittedArgument)}
}

// Operators

type BinaryOperator string

const (
	OpAdd          BinaryOperator = "+"
	OpSubtract     BinaryOperator = "-"
	OpMultiply     BinaryOperator = "*"
	OpDivide       BinaryOperator = "/"
	OpIntDivide    BinaryOperator = "\\"
	OpModulo       BinaryOperator = "Mod"
	OpPower        BinaryOperator = "^"
	OpConcat       BinaryOperator = "&"
	OpEqual        BinaryOperator = "="
	OpNotEqual     BinaryOperator = "<>"
	OpLess         BinaryOperator = "<"
	OpLessEqual    BinaryOperator = "<="
	OpGreater      BinaryOperator = ">"
	OpGreaterEqual BinaryOperator = ">="
	OpAnd          BinaryOperator = "And"
	OpAndAlso      BinaryOperator = "AndAlso"
	OpOr           BinaryOperator = "Or"
	OpOrElse       BinaryOperator = "OrElse"
	OpXor          BinaryOperator = "Xor"
	OpIs           BinaryOperator = "Is"
	OpIsNot        BinaryOperator = "IsNot"
	OpLike         BinaryOperator = "Like"
	OpShiftLeft    BinaryOperator = "<<"
	OpShiftRight   BinaryOperator = ">>"
)

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator BinaryOperator `json:"operator"`
	Left     Expression     `json:"left"`
	Right    Expression     `json:"right"`
}

func NewBinaryExpression(op BinaryOperator, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: op, Left: left, Right: right}
}

type UnaryOperator string

const (
	UnaryNegate UnaryOperator = "-"
	UnaryPlus   UnaryOperator = "+"
	UnaryNot    UnaryOperator = "Not"
)

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator UnaryOperator `json:"operator"`
	Operand  Expression    `json:"operand"`
}

func NewUnaryExpression(op UnaryOperator, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: op, Operand: operand}
}

// TypeOfExpression is `TypeOf x Is T` (or `IsNot T` when Negated).
type TypeOfExpression struct {
	nodeImpl
	expressionMarker

	Operand Expression `json:"operand"`
	Type    *TypeRef   `json:"targetType"`
	Negated bool       `json:"negated,omitempty"`
}

func NewTypeOfExpression(operand Expression, typ *TypeRef, negated bool) *TypeOfExpression {
	return &TypeOfExpression{nodeImpl: newNodeImpl(NodeTypeOfExpression), Operand: operand, Type: typ, Negated: negated}
}

type CastKind string

const (
	CastCType      CastKind = "CType"
	CastDirectCast CastKind = "DirectCast"
	CastTryCast    CastKind = "TryCast"
)

type CastExpression struct {
	nodeImpl
	expressionMarker

	Kind    CastKind   `json:"kind"`
	Operand Expression `json:"operand"`
	Type    *TypeRef   `json:"targetType"`
}

func NewCastExpression(kind CastKind, operand Expression, typ *TypeRef) *CastExpression {
	return &CastExpression{nodeImpl: newNodeImpl(NodeCastExpression), Kind: kind, Operand: operand, Type: typ}
}

// FieldInitializer is one `.Name = value` entry of `New T With {...}`.
type FieldInitializer struct {
	nodeImpl

	Name  string     `json:"name"`
	Value Expression `json:"value"`
}

func NewFieldInitializer(name string, value Expression) *FieldInitializer {
	return &FieldInitializer{nodeImpl: newNodeImpl(NodeFieldInitializer), Name: name, Value: value}
}

// NewExpression covers object creation, object initializers (`With {...}`),
// collection initializers (`From {...}`) and sized or initialised arrays
// (`New Integer(4) {}`).
type NewExpression struct {
	nodeImpl
	expressionMarker

	Type         *TypeRef            `json:"newType"`
	Arguments    []Expression        `json:"arguments,omitempty"`
	Initializers []*FieldInitializer `json:"initializers,omitempty"`
	Items        []Expression        `json:"items,omitempty"`
	IsArray      bool                `json:"isArray,omitempty"`
}

func NewNewExpression(typ *TypeRef, args []Expression, inits []*FieldInitializer, items []Expression, isArray bool) *NewExpression {
	return &NewExpression{nodeImpl: newNodeImpl(NodeNewExpression), Type: typ, Arguments: args, Initializers: inits, Items: items, IsArray: isArray}
}

// LambdaExpression is `Function(x) expr`, `Sub(x) stmt`, or the multi-line
// forms ending in `End Function`/`End Sub`.
type LambdaExpression struct {
	nodeImpl
	expressionMarker

	Parameters []*Parameter `json:"parameters"`
	IsFunction bool         `json:"isFunction"`
	Body       Expression   `json:"body,omitempty"`
	Statements []Statement  `json:"statements,omitempty"`
}

func NewLambdaExpression(params []*Parameter, isFunction bool, body Expression, stmts []Statement) *LambdaExpression {
	return &LambdaExpression{nodeImpl: newNodeImpl(NodeLambdaExpression), Parameters: params, IsFunction: isFunction, Body: body, Statements: stmts}
}

type AddressOfExpression struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
}

func NewAddressOfExpression(target Expression) *AddressOfExpression {
	return &AddressOfExpression{nodeImpl: newNodeImpl(NodeAddressOfExpression), Target: target}
}

type AwaitExpression struct {
	nodeImpl
	expressionMarker

	Operand Expression `json:"operand"`
}

func NewAwaitExpression(operand Expression) *AwaitExpression {
	return &AwaitExpression{nodeImpl: newNodeImpl(NodeAwaitExpression), Operand: operand}
}

type MeExpression struct {
	nodeImpl
	expressionMarker
}

func NewMeExpression() *MeExpression {
	return &MeExpression{nodeImpl: newNodeImpl(NodeMeExpression)}
}

type MyBaseExpression struct {
	nodeImpl
	expressionMarker
}

func NewMyBaseExpression() *MyBaseExpression {
	return &MyBaseExpression{nodeImpl: newNodeImpl(NodeMyBaseExpression)}
}

// IfExpression is the ternary `If(c, a, b)`; with a nil Condition it is the
// coalescing `If(a, b)` form.
type IfExpression struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition,omitempty"`
	Then      Expression `json:"then"`
	Else      Expression `json:"else"`
}

func NewIfExpression(cond, then, els Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Condition: cond, Then: then, Else: els}
}

// LINQ

type QueryClauseKind string

const (
	QueryWhere   QueryClauseKind = "Where"
	QueryOrderBy QueryClauseKind = "OrderBy"
	QueryLet     QueryClauseKind = "Let"
)

type OrderKey struct {
	nodeImpl

	Key        Expression `json:"key"`
	Descending bool       `json:"descending,omitempty"`
}

func NewOrderKey(key Expression, descending bool) *OrderKey {
	return &OrderKey{nodeImpl: newNodeImpl(NodeOrderKey), Key: key, Descending: descending}
}

type QueryClause struct {
	nodeImpl

	Kind      QueryClauseKind `json:"kind"`
	Condition Expression      `json:"condition,omitempty"`
	Keys      []*OrderKey     `json:"keys,omitempty"`
	Name      string          `json:"name,omitempty"`
	Value     Expression      `json:"value,omitempty"`
}

func NewQueryClause(kind QueryClauseKind) *QueryClause {
	return &QueryClause{nodeImpl: newNodeImpl(NodeQueryClause), Kind: kind}
}

// QueryExpression is `From v In src [clauses] Select expr`. A nil Select
// yields the range variable itself.
type QueryExpression struct {
	nodeImpl
	expressionMarker

	Variable string         `json:"variable"`
	Source   Expression     `json:"source"`
	Clauses  []*QueryClause `json:"clauses,omitempty"`
	Select   Expression     `json:"select,omitempty"`
	Distinct bool           `json:"distinct,omitempty"`
}

func NewQueryExpression(variable string, source Expression, clauses []*QueryClause, sel Expression) *QueryExpression {
	return &QueryExpression{nodeImpl: newNodeImpl(NodeQueryExpression), Variable: variable, Source: source, Clauses: clauses, Select: sel}
}

package ast

type NodeType string

const (
	NodeProgram                NodeType = "Program"
	NodeTypeRef                NodeType = "TypeRef"
	NodeParameter              NodeType = "Parameter"
	NodeIdentifier             NodeType = "Identifier"
	NodeIntegerLiteral         NodeType = "IntegerLiteral"
	NodeFloatLiteral           NodeType = "FloatLiteral"
	NodeStringLiteral          NodeType = "StringLiteral"
	NodeCharLiteral            NodeType = "CharLiteral"
	NodeBooleanLiteral         NodeType = "BooleanLiteral"
	NodeDateLiteral            NodeType = "DateLiteral"
	NodeNothingLiteral         NodeType = "NothingLiteral"
	NodeArrayLiteral           NodeType = "ArrayLiteral"
	NodeInterpolatedString     NodeType = "InterpolatedString"
	NodeMemberAccessExpression NodeType = "MemberAccessExpression"
	NodeCallExpression         NodeType = "CallExpression"
	NodeBinaryExpression       NodeType = "BinaryExpression"
	NodeUnaryExpression        NodeType = "UnaryExpression"
	NodeTypeOfExpression       NodeType = "TypeOfExpression"
	NodeCastExpression         NodeType = "CastExpression"
	NodeNewExpression          NodeType = "NewExpression"
	NodeLambdaExpression       NodeType = "LambdaExpression"
	NodeAddressOfExpression    NodeType = "AddressOfExpression"
	NodeAwaitExpression        NodeType = "AwaitExpression"
	NodeMeExpression           NodeType = "MeExpression"
	NodeMyBaseExpression       NodeType = "MyBaseExpression"
	NodeIfExpression           NodeType = "IfExpression"
	NodeQueryExpression        NodeType = "QueryExpression"

	NodeDimStatement            NodeType = "DimStatement"
	NodeConstStatement          NodeType = "ConstStatement"
	NodeReDimStatement          NodeType = "ReDimStatement"
	NodeEraseStatement          NodeType = "EraseStatement"
	NodeAssignmentStatement     NodeType = "AssignmentStatement"
	NodeCallStatement           NodeType = "CallStatement"
	NodeIfStatement             NodeType = "IfStatement"
	NodeForStatement            NodeType = "ForStatement"
	NodeForEachStatement        NodeType = "ForEachStatement"
	NodeWhileStatement          NodeType = "WhileStatement"
	NodeDoLoopStatement         NodeType = "DoLoopStatement"
	NodeSelectStatement         NodeType = "SelectStatement"
	NodeWithStatement           NodeType = "WithStatement"
	NodeUsingStatement          NodeType = "UsingStatement"
	NodeTryStatement            NodeType = "TryStatement"
	NodeThrowStatement          NodeType = "ThrowStatement"
	NodeGotoStatement           NodeType = "GotoStatement"
	NodeLabelStatement          NodeType = "LabelStatement"
	NodeOnErrorStatement        NodeType = "OnErrorStatement"
	NodeResumeStatement         NodeType = "ResumeStatement"
	NodeSyncLockStatement       NodeType = "SyncLockStatement"
	NodeAddHandlerStatement     NodeType = "AddHandlerStatement"
	NodeRemoveHandlerStatement  NodeType = "RemoveHandlerStatement"
	NodeRaiseEventStatement     NodeType = "RaiseEventStatement"
	NodeExitStatement           NodeType = "ExitStatement"
	NodeContinueStatement       NodeType = "ContinueStatement"
	NodeReturnStatement         NodeType = "ReturnStatement"
	NodeEndStatement            NodeType = "EndStatement"
	NodeStopStatement           NodeType = "StopStatement"
	NodeOpenStatement           NodeType = "OpenStatement"
	NodeCloseStatement          NodeType = "CloseStatement"
	NodePrintStatement          NodeType = "PrintStatement"
	NodeLineInputStatement      NodeType = "LineInputStatement"
	NodeInputStatement          NodeType = "InputStatement"
	NodeVariableDeclaration     NodeType = "VariableDeclaration"
	NodeConstantDeclaration     NodeType = "ConstantDeclaration"
	NodeSubDeclaration          NodeType = "SubDeclaration"
	NodeFunctionDeclaration     NodeType = "FunctionDeclaration"
	NodePropertyDeclaration     NodeType = "PropertyDeclaration"
	NodeClassDeclaration        NodeType = "ClassDeclaration"
	NodeStructureDeclaration    NodeType = "StructureDeclaration"
	NodeEnumDeclaration         NodeType = "EnumDeclaration"
	NodeNamespaceDeclaration    NodeType = "NamespaceDeclaration"
	NodeImportsDeclaration      NodeType = "ImportsDeclaration"
	NodeInterfaceDeclaration    NodeType = "InterfaceDeclaration"
	NodeDelegateDeclaration     NodeType = "DelegateDeclaration"
	NodeEventDeclaration        NodeType = "EventDeclaration"
	NodeVariableDeclarator      NodeType = "VariableDeclarator"
	NodeCaseClause              NodeType = "CaseClause"
	NodeCatchClause             NodeType = "CatchClause"
	NodeFieldInitializer        NodeType = "FieldInitializer"
	NodeInterpolationPart       NodeType = "InterpolationPart"
	NodeQueryClause             NodeType = "QueryClause"
	NodeElseIfClause            NodeType = "ElseIfClause"
	NodeEnumMember              NodeType = "EnumMember"
	NodeHandlesClause           NodeType = "HandlesClause"
	NodeCaseCondition           NodeType = "CaseCondition"
	NodePropertySetter          NodeType = "PropertySetter"
	NodeOrderKey                NodeType = "OrderKey"
	NodeReDimTarget             NodeType = "ReDimTarget"
	NodeNamedArgument           NodeType = "NamedArgument"
	NodeOmittedArgument         NodeType = "OmittedArgument"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type Declaration interface {
	Node
	declarationNode()
}

type declarationMarker struct{}

func (declarationMarker) declarationNode() {}

// Program is the result of parsing one source file. Module bodies are
// flattened into Declarations.
type Program struct {
	nodeImpl

	Declarations []Declaration `json:"declarations"`
	Statements   []Statement   `json:"statements"`
}

func NewProgram(decls []Declaration, stmts []Statement) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Declarations: decls, Statements: stmts}
}

// TypeRef names a declared type such as `Integer`, `List(Of String)` or `Byte()`.
type TypeRef struct {
	nodeImpl

	Name      string     `json:"name"`
	Arguments []*TypeRef `json:"arguments,omitempty"`
	IsArray   bool       `json:"isArray,omitempty"`
	Nullable  bool       `json:"nullable,omitempty"`
}

func NewTypeRef(name string, args []*TypeRef, isArray, nullable bool) *TypeRef {
	return &TypeRef{nodeImpl: newNodeImpl(NodeTypeRef), Name: name, Arguments: args, IsArray: isArray, Nullable: nullable}
}

// String renders the type the way it appears in source.
func (t *TypeRef) String() string {
	if t == nil {
		return "Object"
	}
	out := t.Name
	if len(t.Arguments) > 0 {
		out += "(Of "
		for idx, arg := range t.Arguments {
			if idx > 0 {
				out += ", "
			}
			out += arg.String()
		}
		out += ")"
	}
	if t.Nullable {
		out += "?"
	}
	if t.IsArray {
		out += "()"
	}
	return out
}

type PassMode string

const (
	PassByVal PassMode = "ByVal"
	PassByRef PassMode = "ByRef"
)

type Parameter struct {
	nodeImpl

	Name       string     `json:"name"`
	Type       *TypeRef   `json:"paramType,omitempty"`
	Mode       PassMode   `json:"mode"`
	Optional   bool       `json:"optional,omitempty"`
	Default    Expression `json:"default,omitempty"`
	Nullable   bool       `json:"nullable,omitempty"`
	IsParamArr bool       `json:"isParamArray,omitempty"`
}

func NewParameter(name string, typ *TypeRef, mode PassMode, optional bool, def Expression, isParamArray bool) *Parameter {
	nullable := typ != nil && typ.Nullable
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), Name: name, Type: typ, Mode: mode, Optional: optional, Default: def, Nullable: nullable, IsParamArr: isParamArray}
}

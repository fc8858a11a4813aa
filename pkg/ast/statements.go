package ast

// Declarations inside procedure bodies

// VariableDeclarator is one name in a `Dim a, b(3) As Integer, c As New T`
// list. Bounds is non-nil for array declarators; an empty slice means `a()`.
type VariableDeclarator struct {
	nodeImpl

	Name        string       `json:"name"`
	Type        *TypeRef     `json:"varType,omitempty"`
	Bounds      []Expression `json:"bounds,omitempty"`
	IsArray     bool         `json:"isArray,omitempty"`
	IsNew       bool         `json:"isNew,omitempty"`
	NewArgs     []Expression `json:"newArgs,omitempty"`
	Initializer Expression   `json:"initializer,omitempty"`
}

func NewVariableDeclarator(name string, typ *TypeRef) *VariableDeclarator {
	return &VariableDeclarator{nodeImpl: newNodeImpl(NodeVariableDeclarator), Name: name, Type: typ}
}

type DimStatement struct {
	nodeImpl
	statementMarker

	Variables []*VariableDeclarator `json:"variables"`
	IsStatic  bool                  `json:"isStatic,omitempty"`
}

func NewDimStatement(vars []*VariableDeclarator, isStatic bool) *DimStatement {
	return &DimStatement{nodeImpl: newNodeImpl(NodeDimStatement), Variables: vars, IsStatic: isStatic}
}

type ConstStatement struct {
	nodeImpl
	statementMarker

	Name  string     `json:"name"`
	Type  *TypeRef   `json:"constType,omitempty"`
	Value Expression `json:"value"`
}

func NewConstStatement(name string, typ *TypeRef, value Expression) *ConstStatement {
	return &ConstStatement{nodeImpl: newNodeImpl(NodeConstStatement), Name: name, Type: typ, Value: value}
}

type ReDimTarget struct {
	nodeImpl

	Target Expression   `json:"target"`
	Bounds []Expression `json:"bounds"`
}

func NewReDimTarget(target Expression, bounds []Expression) *ReDimTarget {
	return &ReDimTarget{nodeImpl: newNodeImpl(NodeReDimTarget), Target: target, Bounds: bounds}
}

type ReDimStatement struct {
	nodeImpl
	statementMarker

	Preserve bool           `json:"preserve,omitempty"`
	Targets  []*ReDimTarget `json:"targets"`
}

func NewReDimStatement(preserve bool, targets []*ReDimTarget) *ReDimStatement {
	return &ReDimStatement{nodeImpl: newNodeImpl(NodeReDimStatement), Preserve: preserve, Targets: targets}
}

type EraseStatement struct {
	nodeImpl
	statementMarker

	Targets []Expression `json:"targets"`
}

func NewEraseStatement(targets []Expression) *EraseStatement {
	return &EraseStatement{nodeImpl: newNodeImpl(NodeEraseStatement), Targets: targets}
}

// Assignment and calls

// AssignmentStatement covers `x = v`, `obj.P = v`, `a(i) = v`, the compound
// forms (`+=`, `&=`, ...) and VB6 `Set`/`Let`. Operator is "=" for plain
// assignment, otherwise the binary operator applied before storing.
type AssignmentStatement struct {
	nodeImpl
	statementMarker

	Target   Expression     `json:"target"`
	Operator BinaryOperator `json:"operator"`
	Value    Expression     `json:"value"`
	IsSet    bool           `json:"isSet,omitempty"`
}

func NewAssignmentStatement(target Expression, op BinaryOperator, value Expression, isSet bool) *AssignmentStatement {
	return &AssignmentStatement{nodeImpl: newNodeImpl(NodeAssignmentStatement), Target: target, Operator: op, Value: value, IsSet: isSet}
}

type CallStatement struct {
	nodeImpl
	statementMarker

	Call Expression `json:"call"`
}

func NewCallStatement(call Expression) *CallStatement {
	return &CallStatement{nodeImpl: newNodeImpl(NodeCallStatement), Call: call}
}

// Control flow

type ElseIfClause struct {
	nodeImpl

	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
}

func NewElseIfClause(cond Expression, body []Statement) *ElseIfClause {
	return &ElseIfClause{nodeImpl: newNodeImpl(NodeElseIfClause), Condition: cond, Body: body}
}

type IfStatement struct {
	nodeImpl
	statementMarker

	Condition Expression      `json:"condition"`
	Then      []Statement     `json:"then"`
	ElseIfs   []*ElseIfClause `json:"elseIfs,omitempty"`
	Else      []Statement     `json:"else,omitempty"`
}

func NewIfStatement(cond Expression, then []Statement, elseIfs []*ElseIfClause, els []Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: cond, Then: then, ElseIfs: elseIfs, Else: els}
}

type ForStatement struct {
	nodeImpl
	statementMarker

	Variable string      `json:"variable"`
	VarType  *TypeRef    `json:"varType,omitempty"`
	Start    Expression  `json:"start"`
	End      Expression  `json:"end"`
	Step     Expression  `json:"step,omitempty"`
	Body     []Statement `json:"body"`
}

func NewForStatement(variable string, varType *TypeRef, start, end, step Expression, body []Statement) *ForStatement {
	return &ForStatement{nodeImpl: newNodeImpl(NodeForStatement), Variable: variable, VarType: varType, Start: start, End: end, Step: step, Body: body}
}

type ForEachStatement struct {
	nodeImpl
	statementMarker

	Variable   string      `json:"variable"`
	VarType    *TypeRef    `json:"varType,omitempty"`
	Collection Expression  `json:"collection"`
	Body       []Statement `json:"body"`
}

func NewForEachStatement(variable string, varType *TypeRef, collection Expression, body []Statement) *ForEachStatement {
	return &ForEachStatement{nodeImpl: newNodeImpl(NodeForEachStatement), Variable: variable, VarType: varType, Collection: collection, Body: body}
}

type WhileStatement struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
}

func NewWhileStatement(cond Expression, body []Statement) *WhileStatement {
	return &WhileStatement{nodeImpl: newNodeImpl(NodeWhileStatement), Condition: cond, Body: body}
}

// DoLoopStatement is `Do [While|Until c] ... Loop [While|Until c]`.
// Condition is nil for an unconditional loop; TestAtEnd selects the
// `Loop While` placement.
type DoLoopStatement struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition,omitempty"`
	Until     bool        `json:"until,omitempty"`
	TestAtEnd bool        `json:"testAtEnd,omitempty"`
	Body      []Statement `json:"body"`
}

func NewDoLoopStatement(cond Expression, until, testAtEnd bool, body []Statement) *DoLoopStatement {
	return &DoLoopStatement{nodeImpl: newNodeImpl(NodeDoLoopStatement), Condition: cond, Until: until, TestAtEnd: testAtEnd, Body: body}
}

type CaseConditionKind string

const (
	CaseValue CaseConditionKind = "Value"
	CaseRange CaseConditionKind = "Range"
	CaseIs    CaseConditionKind = "Is"
)

type CaseCondition struct {
	nodeImpl

	Kind     CaseConditionKind `json:"kind"`
	Value    Expression        `json:"value"`
	To       Expression        `json:"to,omitempty"`
	Operator BinaryOperator    `json:"operator,omitempty"`
}

func NewCaseCondition(kind CaseConditionKind, value, to Expression, op BinaryOperator) *CaseCondition {
	return &CaseCondition{nodeImpl: newNodeImpl(NodeCaseCondition), Kind: kind, Value: value, To: to, Operator: op}
}

type CaseClause struct {
	nodeImpl

	Conditions []*CaseCondition `json:"conditions"`
	Body       []Statement      `json:"body"`
}

func NewCaseClause(conds []*CaseCondition, body []Statement) *CaseClause {
	return &CaseClause{nodeImpl: newNodeImpl(NodeCaseClause), Conditions: conds, Body: body}
}

type SelectStatement struct {
	nodeImpl
	statementMarker

	Subject Expression    `json:"subject"`
	Cases   []*CaseClause `json:"cases"`
	Else    []Statement   `json:"else,omitempty"`
	HasElse bool          `json:"hasElse,omitempty"`
}

func NewSelectStatement(subject Expression, cases []*CaseClause, els []Statement, hasElse bool) *SelectStatement {
	return &SelectStatement{nodeImpl: newNodeImpl(NodeSelectStatement), Subject: subject, Cases: cases, Else: els, HasElse: hasElse}
}

type WithStatement struct {
	nodeImpl
	statementMarker

	Object Expression  `json:"object"`
	Body   []Statement `json:"body"`
}

func NewWithStatement(object Expression, body []Statement) *WithStatement {
	return &WithStatement{nodeImpl: newNodeImpl(NodeWithStatement), Object: object, Body: body}
}

// UsingStatement binds Variable to Resource for the body and calls
// Dispose/Close afterwards. Variable is empty for `Using expr`.
type UsingStatement struct {
	nodeImpl
	statementMarker

	Variable string      `json:"variable,omitempty"`
	Resource Expression  `json:"resource"`
	Body     []Statement `json:"body"`
}

func NewUsingStatement(variable string, resource Expression, body []Statement) *UsingStatement {
	return &UsingStatement{nodeImpl: newNodeImpl(NodeUsingStatement), Variable: variable, Resource: resource, Body: body}
}

type CatchClause struct {
	nodeImpl

	Variable string      `json:"variable,omitempty"`
	Type     *TypeRef    `json:"exceptionType,omitempty"`
	When     Expression  `json:"when,omitempty"`
	Body     []Statement `json:"body"`
}

func NewCatchClause(variable string, typ *TypeRef, when Expression, body []Statement) *CatchClause {
	return &CatchClause{nodeImpl: newNodeImpl(NodeCatchClause), Variable: variable, Type: typ, When: when, Body: body}
}

type TryStatement struct {
	nodeImpl
	statementMarker

	Body    []Statement    `json:"body"`
	Catches []*CatchClause `json:"catches,omitempty"`
	Finally []Statement    `json:"finally,omitempty"`
}

func NewTryStatement(body []Statement, catches []*CatchClause, finally []Statement) *TryStatement {
	return &TryStatement{nodeImpl: newNodeImpl(NodeTryStatement), Body: body, Catches: catches, Finally: finally}
}

// ThrowStatement with a nil Value rethrows the error being handled.
type ThrowStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewThrowStatement(value Expression) *ThrowStatement {
	return &ThrowStatement{nodeImpl: newNodeImpl(NodeThrowStatement), Value: value}
}

type GotoStatement struct {
	nodeImpl
	statementMarker

	Label string `json:"label"`
}

func NewGotoStatement(label string) *GotoStatement {
	return &GotoStatement{nodeImpl: newNodeImpl(NodeGotoStatement), Label: label}
}

type LabelStatement struct {
	nodeImpl
	statementMarker

	Name string `json:"name"`
}

func NewLabelStatement(name string) *LabelStatement {
	return &LabelStatement{nodeImpl: newNodeImpl(NodeLabelStatement), Name: name}
}

type OnErrorMode string

const (
	OnErrorResumeNext OnErrorMode = "ResumeNext"
	OnErrorGotoLabel  OnErrorMode = "GotoLabel"
	OnErrorGotoZero   OnErrorMode = "GotoZero"
)

type OnErrorStatement struct {
	nodeImpl
	statementMarker

	Mode  OnErrorMode `json:"mode"`
	Label string      `json:"label,omitempty"`
}

func NewOnErrorStatement(mode OnErrorMode, label string) *OnErrorStatement {
	return &OnErrorStatement{nodeImpl: newNodeImpl(NodeOnErrorStatement), Mode: mode, Label: label}
}

type ResumeKind string

const (
	ResumeRetry ResumeKind = "Retry"
	ResumeNext  ResumeKind = "Next"
	ResumeLabel ResumeKind = "Label"
)

type ResumeStatement struct {
	nodeImpl
	statementMarker

	Kind  ResumeKind `json:"kind"`
	Label string     `json:"label,omitempty"`
}

func NewResumeStatement(kind ResumeKind, label string) *ResumeStatement {
	return &ResumeStatement{nodeImpl: newNodeImpl(NodeResumeStatement), Kind: kind, Label: label}
}

type SyncLockStatement struct {
	nodeImpl
	statementMarker

	Lock Expression  `json:"lock"`
	Body []Statement `json:"body"`
}

func NewSyncLockStatement(lock Expression, body []Statement) *SyncLockStatement {
	return &SyncLockStatement{nodeImpl: newNodeImpl(NodeSyncLockStatement), Lock: lock, Body: body}
}

// Events

// AddHandlerStatement is `AddHandler obj.Event, handler`.
type AddHandlerStatement struct {
	nodeImpl
	statementMarker

	Event   Expression `json:"event"`
	Handler Expression `json:"handler"`
}

func NewAddHandlerStatement(event, handler Expression) *AddHandlerStatement {
	return &AddHandlerStatement{nodeImpl: newNodeImpl(NodeAddHandlerStatement), Event: event, Handler: handler}
}

type RemoveHandlerStatement struct {
	nodeImpl
	statementMarker

	Event   Expression `json:"event"`
	Handler Expression `json:"handler"`
}

func NewRemoveHandlerStatement(event, handler Expression) *RemoveHandlerStatement {
	return &RemoveHandlerStatement{nodeImpl: newNodeImpl(NodeRemoveHandlerStatement), Event: event, Handler: handler}
}

type RaiseEventStatement struct {
	nodeImpl
	statementMarker

	Name      string       `json:"name"`
	Arguments []Expression `json:"arguments,omitempty"`
}

func NewRaiseEventStatement(name string, args []Expression) *RaiseEventStatement {
	return &RaiseEventStatement{nodeImpl: newNodeImpl(NodeRaiseEventStatement), Name: name, Arguments: args}
}

// Exits

type BlockKind string

const (
	BlockSub      BlockKind = "Sub"
	BlockFunction BlockKind = "Function"
	BlockProperty BlockKind = "Property"
	BlockFor      BlockKind = "For"
	BlockDo       BlockKind = "Do"
	BlockWhile    BlockKind = "While"
	BlockSelect   BlockKind = "Select"
	BlockTry      BlockKind = "Try"
)

type ExitStatement struct {
	nodeImpl
	statementMarker

	Kind BlockKind `json:"kind"`
}

func NewExitStatement(kind BlockKind) *ExitStatement {
	return &ExitStatement{nodeImpl: newNodeImpl(NodeExitStatement), Kind: kind}
}

type ContinueStatement struct {
	nodeImpl
	statementMarker

	Kind BlockKind `json:"kind"`
}

func NewContinueStatement(kind BlockKind) *ContinueStatement {
	return &ContinueStatement{nodeImpl: newNodeImpl(NodeContinueStatement), Kind: kind}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

type EndStatement struct {
	nodeImpl
	statementMarker
}

func NewEndStatement() *EndStatement {
	return &EndStatement{nodeImpl: newNodeImpl(NodeEndStatement)}
}

type StopStatement struct {
	nodeImpl
	statementMarker
}

func NewStopStatement() *StopStatement {
	return &StopStatement{nodeImpl: newNodeImpl(NodeStopStatement)}
}

// Legacy file I/O

type FileOpenMode string

const (
	FileInput  FileOpenMode = "Input"
	FileOutput FileOpenMode = "Output"
	FileAppend FileOpenMode = "Append"
	FileBinary FileOpenMode = "Binary"
	FileRandom FileOpenMode = "Random"
)

type OpenStatement struct {
	nodeImpl
	statementMarker

	Path       Expression   `json:"path"`
	Mode       FileOpenMode `json:"mode"`
	FileNumber Expression   `json:"fileNumber"`
}

func NewOpenStatement(path Expression, mode FileOpenMode, fileNumber Expression) *OpenStatement {
	return &OpenStatement{nodeImpl: newNodeImpl(NodeOpenStatement), Path: path, Mode: mode, FileNumber: fileNumber}
}

// CloseStatement with no file numbers closes every open file.
type CloseStatement struct {
	nodeImpl
	statementMarker

	FileNumbers []Expression `json:"fileNumbers,omitempty"`
}

func NewCloseStatement(fileNumbers []Expression) *CloseStatement {
	return &CloseStatement{nodeImpl: newNodeImpl(NodeCloseStatement), FileNumbers: fileNumbers}
}

// PrintStatement is `Print #n, items` or, when IsWrite is set, `Write #n, items`
// which quotes strings and separates items with commas.
type PrintStatement struct {
	nodeImpl
	statementMarker

	FileNumber Expression   `json:"fileNumber"`
	Items      []Expression `json:"items"`
	IsWrite    bool         `json:"isWrite,omitempty"`
	NoNewline  bool         `json:"noNewline,omitempty"`
}

func NewPrintStatement(fileNumber Expression, items []Expression, isWrite, noNewline bool) *PrintStatement {
	return &PrintStatement{nodeImpl: newNodeImpl(NodePrintStatement), FileNumber: fileNumber, Items: items, IsWrite: isWrite, NoNewline: noNewline}
}

type LineInputStatement struct {
	nodeImpl
	statementMarker

	FileNumber Expression `json:"fileNumber"`
	Target     Expression `json:"target"`
}

func NewLineInputStatement(fileNumber, target Expression) *LineInputStatement {
	return &LineInputStatement{nodeImpl: newNodeImpl(NodeLineInputStatement), FileNumber: fileNumber, Target: target}
}

type InputStatement struct {
	nodeImpl
	statementMarker

	FileNumber Expression   `json:"fileNumber"`
	Targets    []Expression `json:"targets"`
}

func NewInputStatement(fileNumber Expression, targets []Expression) *InputStatement {
	return &InputStatement{nodeImpl: newNodeImpl(NodeInputStatement), FileNumber: fileNumber, Targets: targets}
}

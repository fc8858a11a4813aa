package ast

// Declarations

type Visibility string

const (
	VisibilityPublic    Visibility = "Public"
	VisibilityPrivate   Visibility = "Private"
	VisibilityFriend    Visibility = "Friend"
	VisibilityProtected Visibility = "Protected"
)

// Modifiers collects the keyword prefixes a member declaration may carry.
type Modifiers struct {
	Visibility  Visibility `json:"visibility,omitempty"`
	Shared      bool       `json:"shared,omitempty"`
	Overrides   bool       `json:"overrides,omitempty"`
	Overridable bool       `json:"overridable,omitempty"`
	MustInherit bool       `json:"mustInherit,omitempty"`
	ReadOnly    bool       `json:"readOnly,omitempty"`
	WriteOnly   bool       `json:"writeOnly,omitempty"`
	WithEvents  bool       `json:"withEvents,omitempty"`
	Partial     bool       `json:"partial,omitempty"`
	Async       bool       `json:"async,omitempty"`
	Default     bool       `json:"default,omitempty"`
}

type VariableDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers Modifiers             `json:"modifiers"`
	Variables []*VariableDeclarator `json:"variables"`
	Module    string                `json:"module,omitempty"`
}

func NewVariableDeclaration(mods Modifiers, vars []*VariableDeclarator) *VariableDeclaration {
	return &VariableDeclaration{nodeImpl: newNodeImpl(NodeVariableDeclaration), Modifiers: mods, Variables: vars}
}

type ConstantDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers Modifiers  `json:"modifiers"`
	Name      string     `json:"name"`
	Type      *TypeRef   `json:"constType,omitempty"`
	Value     Expression `json:"value"`
}

func NewConstantDeclaration(mods Modifiers, name string, typ *TypeRef, value Expression) *ConstantDeclaration {
	return &ConstantDeclaration{nodeImpl: newNodeImpl(NodeConstantDeclaration), Modifiers: mods, Name: name, Type: typ, Value: value}
}

// HandlesClause is one `Control.Event` entry of a `Handles` list. Control is
// "Me" or "MyBase" for form-level events.
type HandlesClause struct {
	nodeImpl

	Control string `json:"control"`
	Event   string `json:"event"`
}

func NewHandlesClause(control, event string) *HandlesClause {
	return &HandlesClause{nodeImpl: newNodeImpl(NodeHandlesClause), Control: control, Event: event}
}

type SubDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers        `json:"modifiers"`
	Name       string           `json:"name"`
	Parameters []*Parameter     `json:"parameters"`
	Body       []Statement      `json:"body"`
	Handles    []*HandlesClause `json:"handles,omitempty"`
	// Module is the enclosing Module block; empty at file level.
	Module     string           `json:"module,omitempty"`
}

func NewSubDeclaration(mods Modifiers, name string, params []*Parameter, body []Statement, handles []*HandlesClause) *SubDeclaration {
	return &SubDeclaration{nodeImpl: newNodeImpl(NodeSubDeclaration), Modifiers: mods, Name: name, Parameters: params, Body: body, Handles: handles}
}

type FunctionDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers        `json:"modifiers"`
	Name       string           `json:"name"`
	Parameters []*Parameter     `json:"parameters"`
	ReturnType *TypeRef         `json:"returnType,omitempty"`
	Body       []Statement      `json:"body"`
	Handles    []*HandlesClause `json:"handles,omitempty"`
	// Module is the enclosing Module block; empty at file level.
	Module     string           `json:"module,omitempty"`
}

func NewFunctionDeclaration(mods Modifiers, name string, params []*Parameter, returnType *TypeRef, body []Statement) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), Modifiers: mods, Name: name, Parameters: params, ReturnType: returnType, Body: body}
}

type PropertySetter struct {
	nodeImpl

	Parameter *Parameter  `json:"parameter"`
	Body      []Statement `json:"body"`
}

func NewPropertySetter(param *Parameter, body []Statement) *PropertySetter {
	return &PropertySetter{nodeImpl: newNodeImpl(NodePropertySetter), Parameter: param, Body: body}
}

// PropertyDeclaration is either an auto-implemented property (IsAuto, backed
// by a field of the same name) or a Get/Set pair.
type PropertyDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers   Modifiers       `json:"modifiers"`
	Name        string          `json:"name"`
	Parameters  []*Parameter    `json:"parameters,omitempty"`
	Type        *TypeRef        `json:"propertyType,omitempty"`
	Getter      []Statement     `json:"getter,omitempty"`
	HasGetter   bool            `json:"hasGetter,omitempty"`
	Setter      *PropertySetter `json:"setter,omitempty"`
	IsAuto      bool            `json:"isAuto,omitempty"`
	Initializer Expression      `json:"initializer,omitempty"`
	Module      string          `json:"module,omitempty"`
}

func NewPropertyDeclaration(mods Modifiers, name string, params []*Parameter, typ *TypeRef) *PropertyDeclaration {
	return &PropertyDeclaration{nodeImpl: newNodeImpl(NodePropertyDeclaration), Modifiers: mods, Name: name, Parameters: params, Type: typ}
}

type EventDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers    `json:"modifiers"`
	Name       string       `json:"name"`
	Parameters []*Parameter `json:"parameters,omitempty"`
}

func NewEventDeclaration(mods Modifiers, name string, params []*Parameter) *EventDeclaration {
	return &EventDeclaration{nodeImpl: newNodeImpl(NodeEventDeclaration), Modifiers: mods, Name: name, Parameters: params}
}

// ClassDeclaration holds the members of a Class. Members keeps the nested
// Sub/Function/Property/Event/Const/Enum/Class declarations in source order;
// Fields holds field declarations.
type ClassDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers              `json:"modifiers"`
	Name       string                 `json:"name"`
	Inherits   string                 `json:"inherits,omitempty"`
	Implements []string               `json:"implements,omitempty"`
	Fields     []*VariableDeclaration `json:"fields,omitempty"`
	Members    []Declaration          `json:"members,omitempty"`
}

func NewClassDeclaration(mods Modifiers, name string) *ClassDeclaration {
	return &ClassDeclaration{nodeImpl: newNodeImpl(NodeClassDeclaration), Modifiers: mods, Name: name}
}

// StructureDeclaration is a value-type class: instances are copied on
// assignment.
type StructureDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers              `json:"modifiers"`
	Name       string                 `json:"name"`
	Implements []string               `json:"implements,omitempty"`
	Fields     []*VariableDeclaration `json:"fields,omitempty"`
	Members    []Declaration          `json:"members,omitempty"`
}

func NewStructureDeclaration(mods Modifiers, name string) *StructureDeclaration {
	return &StructureDeclaration{nodeImpl: newNodeImpl(NodeStructureDeclaration), Modifiers: mods, Name: name}
}

type EnumMember struct {
	nodeImpl

	Name  string     `json:"name"`
	Value Expression `json:"value,omitempty"`
}

func NewEnumMember(name string, value Expression) *EnumMember {
	return &EnumMember{nodeImpl: newNodeImpl(NodeEnumMember), Name: name, Value: value}
}

type EnumDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers Modifiers     `json:"modifiers"`
	Name      string        `json:"name"`
	Members   []*EnumMember `json:"members"`
}

func NewEnumDeclaration(mods Modifiers, name string, members []*EnumMember) *EnumDeclaration {
	return &EnumDeclaration{nodeImpl: newNodeImpl(NodeEnumDeclaration), Modifiers: mods, Name: name, Members: members}
}

type NamespaceDeclaration struct {
	nodeImpl
	declarationMarker

	Name         string        `json:"name"`
	Declarations []Declaration `json:"declarations"`
}

func NewNamespaceDeclaration(name string, decls []Declaration) *NamespaceDeclaration {
	return &NamespaceDeclaration{nodeImpl: newNodeImpl(NodeNamespaceDeclaration), Name: name, Declarations: decls}
}

type ImportsDeclaration struct {
	nodeImpl
	declarationMarker

	Path  string `json:"path"`
	Alias string `json:"alias,omitempty"`
}

func NewImportsDeclaration(path, alias string) *ImportsDeclaration {
	return &ImportsDeclaration{nodeImpl: newNodeImpl(NodeImportsDeclaration), Path: path, Alias: alias}
}

// InterfaceDeclaration records member names only; interfaces carry no
// runtime behaviour beyond TypeOf checks.
type InterfaceDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers Modifiers `json:"modifiers"`
	Name      string    `json:"name"`
	Inherits  []string  `json:"inherits,omitempty"`
	Members   []string  `json:"members,omitempty"`
}

func NewInterfaceDeclaration(mods Modifiers, name string, inherits, members []string) *InterfaceDeclaration {
	return &InterfaceDeclaration{nodeImpl: newNodeImpl(NodeInterfaceDeclaration), Modifiers: mods, Name: name, Inherits: inherits, Members: members}
}

type DelegateDeclaration struct {
	nodeImpl
	declarationMarker

	Modifiers  Modifiers    `json:"modifiers"`
	Name       string       `json:"name"`
	Parameters []*Parameter `json:"parameters,omitempty"`
	IsFunction bool         `json:"isFunction,omitempty"`
	ReturnType *TypeRef     `json:"returnType,omitempty"`
}

func NewDelegateDeclaration(mods Modifiers, name string, params []*Parameter, isFunction bool, returnType *TypeRef) *DelegateDeclaration {
	return &DelegateDeclaration{nodeImpl: newNodeImpl(NodeDelegateDeclaration), Modifiers: mods, Name: name, Parameters: params, IsFunction: isFunction, ReturnType: returnType}
}

package interpreter

import (
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

type outcomeKind int

const (
	outcomeNormal outcomeKind = iota
	outcomeReturn
	outcomeExit
	outcomeExitProcedure
	outcomeContinue
	outcomeGoto
	outcomeRaised
	outcomeResume
)

// outcome is the signal threaded back through nested statement blocks.
// Loops, Select and Try consume the kinds addressed to them and pass the
// rest outwards.
type outcome struct {
	kind  outcomeKind
	value runtime.Value
	block ast.BlockKind
	label string
	err   *runtime.Error

	// fromError marks a Goto produced by On Error GoTo.
	fromError bool
	resume    ast.ResumeKind
}

var normal = outcome{}

func raised(err error) outcome {
	return outcome{kind: outcomeRaised, err: runtime.AsError(err)}
}

// errEndProgram is raised by End and Application.Exit. It unwinds every
// frame, skips Catch and On Error, and is reported to hosts as success.
var errEndProgram = &runtime.Error{Kind: runtime.ErrCustom, Message: "End"}

type onErrorState struct {
	mode     ast.OnErrorMode
	label    string
	handling bool

	// The block and statement index that were executing when the handler
	// took over, for Resume and Resume Next.
	resumeBlock *ast.Statement
	resumePC    int
}

// frame is one active procedure call.
type frame struct {
	proc   *procedure
	self   *runtime.ObjectValue
	class  *classInfo
	module string
	with   []runtime.Value

	// body is the statement list On Error GoTo labels are resolved in.
	body    []ast.Statement
	onError onErrorState
	// caught is the exception being handled by the innermost Catch, for a
	// bare Throw.
	caught  *runtime.Error
	statics []string
}

// procedure is a registered Sub, Function, property accessor or
// constructor.
type procedure struct {
	name       string
	module     string
	class      *classInfo
	params     []*ast.Parameter
	body       []ast.Statement
	isFunction bool
	shared     bool
	returnType *ast.TypeRef
	handles    []*ast.HandlesClause
}

func (p *procedure) key() string {
	owner := p.module
	if p.class != nil {
		owner = p.class.name
	}
	return strings.ToLower(owner + "." + p.name)
}

// accepts reports whether the procedure can be called with argc
// positional arguments.
func (p *procedure) accepts(argc int) bool {
	required := 0
	for _, param := range p.params {
		if param.IsParamArr {
			return argc >= required
		}
		if !param.Optional {
			required++
		}
	}
	return argc >= required && argc <= len(p.params)
}

type classInfo struct {
	name        string
	module      string
	parent      string
	isStruct    bool
	mustInherit bool
	partial     bool
	implements  []string

	fields     []*ast.VariableDeclaration
	consts     []*ast.ConstantDeclaration
	methods    map[string][]*procedure
	properties map[string]*ast.PropertyDeclaration
	events     map[string]*ast.EventDeclaration
	order      []string

	// shared holds Shared fields and constants.
	shared *runtime.ObjectValue
}

func newClassInfo(name, module string) *classInfo {
	return &classInfo{
		name:       name,
		module:     module,
		methods:    make(map[string][]*procedure),
		properties: make(map[string]*ast.PropertyDeclaration),
		events:     make(map[string]*ast.EventDeclaration),
		shared:     runtime.NewObject(name),
	}
}

func (c *classInfo) addMethod(proc *procedure) {
	key := strings.ToLower(proc.name)
	if _, ok := c.methods[key]; !ok {
		c.order = append(c.order, key)
	}
	c.methods[key] = append(c.methods[key], proc)
}

// ownMethod picks an overload declared directly on c.
func (c *classInfo) ownMethod(name string, argc int) *procedure {
	overloads := c.methods[strings.ToLower(name)]
	if len(overloads) == 0 {
		return nil
	}
	for _, proc := range overloads {
		if proc.accepts(argc) {
			return proc
		}
	}
	return overloads[0]
}

type enumInfo struct {
	name    string
	members map[string]runtime.Value
	order   []string
}

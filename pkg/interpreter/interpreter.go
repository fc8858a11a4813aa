package interpreter

import (
	"bufio"
	"io"
	"log/slog"
	"maps"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// Interpreter executes parsed programs. It holds every table the program
// needs, so independent interpreters never share state. An Interpreter is
// not safe for concurrent use.
type Interpreter struct {
	Env         *runtime.Environment
	Events      *runtime.EventSystem
	SideEffects *runtime.SideEffectQueue

	logger *slog.Logger
	input  *bufio.Reader
	args   []string
	rng    *rand.Rand
	rnd    float32

	subs        map[string]*procedure
	functions   map[string]*procedure
	unqualified map[string]*procedure
	classes     map[string]*classInfo
	enums       map[string]*enumInfo
	modules     map[string]string
	namespaces  map[string]bool
	resources   map[string]string

	interfaces       map[string]*ast.InterfaceDeclaration
	delegateTypes    map[string]*ast.DelegateDeclaration
	imports          map[string]string
	handlerDelegates map[string]*runtime.LambdaValue
	withEvents       map[string]string
	arrayTypes       map[string]*ast.TypeRef

	defaultInstances map[string]*runtime.ObjectValue
	statics          map[string]runtime.Value
	files            *fileTable
	data             *dataRegistry

	errObject *runtime.ObjectValue
	frames    []*frame
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger routes interpreter diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithInput supplies the reader behind Console.ReadLine and InputBox.
// Without one, reads return the empty string (or the InputBox default).
func WithInput(r io.Reader) Option {
	return func(i *Interpreter) {
		if r != nil {
			i.input = bufio.NewReader(r)
		}
	}
}

// WithArgs sets the values returned by Command() and
// Environment.GetCommandLineArgs().
func WithArgs(args []string) Option {
	return func(i *Interpreter) {
		i.args = append([]string(nil), args...)
	}
}

// WithSeed makes Rnd deterministic.
func WithSeed(seed int64) Option {
	return func(i *Interpreter) {
		i.rng = rand.New(rand.NewSource(seed))
	}
}

// New returns an interpreter with the builtin constants and namespace
// objects defined.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		Env:              runtime.NewEnvironment(),
		Events:           runtime.NewEventSystem(),
		SideEffects:      &runtime.SideEffectQueue{},
		logger:           slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		subs:             make(map[string]*procedure),
		functions:        make(map[string]*procedure),
		unqualified:      make(map[string]*procedure),
		classes:          make(map[string]*classInfo),
		enums:            make(map[string]*enumInfo),
		modules:          make(map[string]string),
		namespaces:       make(map[string]bool),
		resources:        make(map[string]string),
		interfaces:       make(map[string]*ast.InterfaceDeclaration),
		delegateTypes:    make(map[string]*ast.DelegateDeclaration),
		imports:          make(map[string]string),
		handlerDelegates: make(map[string]*runtime.LambdaValue),
		withEvents:       make(map[string]string),
		arrayTypes:       make(map[string]*ast.TypeRef),
		defaultInstances: make(map[string]*runtime.ObjectValue),
		statics:          make(map[string]runtime.Value),
		files:            newFileTable(),
		data:             newDataRegistry(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.frames = []*frame{{}}
	i.registerBuiltinConstants()
	i.initNamespaces()
	return i
}

// Close releases open files and database connections.
func (i *Interpreter) Close() error {
	ferr := i.files.closeAll()
	derr := i.data.closeAll()
	if ferr != nil {
		return ferr
	}
	return derr
}

// LoadModule registers every declaration of program under the module name,
// runs module-level initializers once and binds Handles clauses.
func (i *Interpreter) LoadModule(name string, program *ast.Program) error {
	if program == nil {
		return nil
	}
	i.modules[strings.ToLower(name)] = name
	prev := i.frame().module
	i.frame().module = name
	defer func() { i.frame().module = prev }()

	i.logger.Debug("loading module", "module", name, "declarations", len(program.Declarations))
	if err := i.declareAll(program.Declarations, name); err != nil {
		return err
	}
	return i.runTopLevel(program.Statements)
}

// Run registers the program's declarations and executes its top-level
// statements in order.
func (i *Interpreter) Run(program *ast.Program) error {
	if program == nil {
		return nil
	}
	if err := i.declareAll(program.Declarations, i.frame().module); err != nil {
		return err
	}
	return i.runTopLevel(program.Statements)
}

func (i *Interpreter) runTopLevel(stmts []ast.Statement) error {
	f := i.frame()
	prev := f.body
	f.body = stmts
	out := i.execBlock(stmts)
	f.body = prev
	switch out.kind {
	case outcomeRaised:
		return hostError(out.err)
	case outcomeGoto:
		return runtime.Errorf("Label '%s' not found", out.label)
	}
	return nil
}

// CallProcedure calls a Sub or Function by (optionally module-qualified)
// name.
func (i *Interpreter) CallProcedure(name string, args []runtime.Value) (runtime.Value, error) {
	proc := i.lookupProcedure(name)
	if proc == nil {
		if cls, method := i.splitClassMember(name); cls != nil {
			return i.callOnDefaultInstance(cls, method, args)
		}
		return nil, runtime.UndefinedFunction(name)
	}
	val, err := i.invokeValues(proc, args, nil)
	return val, hostError(runtime.AsError(err))
}

// CallEventHandler calls a handler by bare name or by its module- or
// class-qualified name. Class handlers run against the class's default
// instance.
func (i *Interpreter) CallEventHandler(name string, args []runtime.Value) (runtime.Value, error) {
	proc := i.lookupProcedure(name)
	if proc == nil {
		suffix := "." + strings.ToLower(name)
		for _, key := range slices.Sorted(maps.Keys(i.subs)) {
			if candidate := i.subs[key]; strings.HasSuffix(key, suffix) && candidate.class == nil {
				proc = candidate
				break
			}
		}
	}
	if proc != nil && proc.class == nil {
		val, err := i.invokeValues(proc, fitArgs(proc, args), nil)
		return val, hostError(runtime.AsError(err))
	}
	if proc != nil && proc.class != nil {
		return i.callOnDefaultInstance(proc.class, proc.name, fitArgs(proc, args))
	}
	if cls, method := i.splitClassMember(name); cls != nil {
		return i.callClassHandler(cls, method, args)
	}
	for _, key := range slices.Sorted(maps.Keys(i.classes)) {
		if cls := i.classes[key]; i.findMethod(cls, name, len(args)) != nil {
			return i.callClassHandler(cls, name, args)
		}
	}
	return nil, runtime.UndefinedFunction(name)
}

// callClassHandler runs a class method on the default instance with the
// host's arguments fitted to its parameter list.
func (i *Interpreter) callClassHandler(cls *classInfo, method string, args []runtime.Value) (runtime.Value, error) {
	if proc := i.findMethod(cls, method, len(args)); proc != nil {
		args = fitArgs(proc, args)
	}
	return i.callOnDefaultInstance(cls, method, args)
}

// CallInstanceMethod resolves instancePath (a variable, optionally followed
// by member names) and calls method on the object it holds.
func (i *Interpreter) CallInstanceMethod(instancePath, method string, args []runtime.Value) (runtime.Value, error) {
	parts := strings.Split(instancePath, ".")
	target, err := i.lookupIdentifier(parts[0])
	if err != nil {
		return nil, err
	}
	for _, member := range parts[1:] {
		if target, err = i.getMember(target, member); err != nil {
			return nil, err
		}
	}
	obj, ok := target.(*runtime.ObjectValue)
	if !ok {
		return nil, runtime.TypeMismatch("Object", runtime.TypeName(target))
	}
	val, err := i.callMethod(obj, method, args, nil)
	return val, hostError(runtime.AsError(err))
}

// DispatchEvent calls every handler bound to (control, event) in
// registration order.
func (i *Interpreter) DispatchEvent(control, event string, args []runtime.Value) error {
	for _, handler := range i.Events.Handlers(control, event) {
		if _, err := i.callHandler(handler, args); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateExpression evaluates expr in the current scope.
func (i *Interpreter) EvaluateExpression(expr ast.Expression) (runtime.Value, error) {
	val, err := i.evalExpression(expr)
	if err != nil {
		return nil, hostError(runtime.AsError(err))
	}
	return val, nil
}

// RegisterResources exposes project resource strings as My.Resources.
func (i *Interpreter) RegisterResources(resources map[string]string) {
	res := runtime.NewObject("My.Resources")
	for key, val := range resources {
		i.resources[strings.ToLower(key)] = val
		res.Set(key, runtime.StringValue{Val: val})
	}
	my := i.myObject()
	my.Set("Resources", res)
}

// BindHandler seeds the event table from the forms layer.
func (i *Interpreter) BindHandler(control, event, handler string) {
	i.logger.Debug("binding handler", "control", control, "event", event, "handler", handler)
	i.Events.Register(control, event, handler)
}

// Logger exposes the interpreter's logger to hosts.
func (i *Interpreter) Logger() *slog.Logger {
	return i.logger
}

func (i *Interpreter) frame() *frame {
	return i.frames[len(i.frames)-1]
}

func (i *Interpreter) pushFrame(f *frame) {
	i.frames = append(i.frames, f)
}

func (i *Interpreter) popFrame() {
	if len(i.frames) > 1 {
		i.frames = i.frames[:len(i.frames)-1]
	}
}

func (i *Interpreter) myObject() *runtime.ObjectValue {
	if v, ok := i.Env.GetGlobal("My"); ok {
		if obj, ok := v.(*runtime.ObjectValue); ok {
			return obj
		}
	}
	my := runtime.NewObject("My")
	i.Env.DefineGlobal("My", my)
	return my
}

// hostError hides the End sentinel from hosts.
func hostError(err *runtime.Error) error {
	if err == nil || err == errEndProgram {
		return nil
	}
	return err
}

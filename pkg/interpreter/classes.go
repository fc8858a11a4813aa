package interpreter

import (
	"fmt"
	"sort"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

const maxClassDepth = 64

// lookupClass finds a class by bare or namespace-qualified name.
func (i *Interpreter) lookupClass(name string) *classInfo {
	key := strings.ToLower(name)
	if cls, ok := i.classes[key]; ok {
		return cls
	}
	if alias, ok := i.imports[key]; ok {
		if cls, ok := i.classes[strings.ToLower(alias)]; ok {
			return cls
		}
	}
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		if _, builtin := builtinParents[key[idx+1:]]; builtin && !i.namespaces[key[:idx]] {
			return nil
		}
		if cls, ok := i.classes[key[idx+1:]]; ok {
			return cls
		}
	}
	return nil
}

func (i *Interpreter) parentOf(cls *classInfo) *classInfo {
	if cls == nil || cls.parent == "" {
		return nil
	}
	parent := i.lookupClass(cls.parent)
	if parent == cls {
		return nil
	}
	return parent
}

// findMethod walks cls and its parents for an overload accepting argc
// arguments, falling back to the first overload by that name.
func (i *Interpreter) findMethod(cls *classInfo, name string, argc int) *procedure {
	var fallback *procedure
	for c, depth := cls, 0; c != nil && depth < maxClassDepth; c, depth = i.parentOf(c), depth+1 {
		for _, proc := range c.methods[strings.ToLower(name)] {
			if proc.accepts(argc) {
				return proc
			}
			if fallback == nil {
				fallback = proc
			}
		}
	}
	return fallback
}

// findProperty returns the nearest declaration of a property and the class
// declaring it.
func (i *Interpreter) findProperty(cls *classInfo, name string) (*ast.PropertyDeclaration, *classInfo) {
	key := strings.ToLower(name)
	for c, depth := cls, 0; c != nil && depth < maxClassDepth; c, depth = i.parentOf(c), depth+1 {
		if prop, ok := c.properties[key]; ok {
			return prop, c
		}
	}
	return nil, nil
}

// sharedOwner returns the class in cls's chain holding a Shared member.
func (i *Interpreter) sharedOwner(cls *classInfo, name string) *classInfo {
	for c, depth := cls, 0; c != nil && depth < maxClassDepth; c, depth = i.parentOf(c), depth+1 {
		if c.shared.Has(name) {
			return c
		}
	}
	return nil
}

func (i *Interpreter) sharedMember(cls *classInfo, name string) (runtime.Value, bool) {
	if owner := i.sharedOwner(cls, name); owner != nil {
		return owner.shared.Get(name), true
	}
	return nil, false
}

func (i *Interpreter) propertyGetter(owner *classInfo, prop *ast.PropertyDeclaration) *procedure {
	return &procedure{
		name:       prop.Name,
		module:     owner.module,
		class:      owner,
		params:     prop.Parameters,
		body:       prop.Getter,
		isFunction: true,
		shared:     prop.Modifiers.Shared,
		returnType: prop.Type,
	}
}

func (i *Interpreter) propertySetter(owner *classInfo, prop *ast.PropertyDeclaration) *procedure {
	param := prop.Setter.Parameter
	if param == nil {
		param = ast.NewParameter("Value", prop.Type, ast.PassByVal, false, nil, false)
	}
	params := append(append([]*ast.Parameter{}, prop.Parameters...), param)
	return &procedure{
		name:   prop.Name,
		module: owner.module,
		class:  owner,
		params: params,
		body:   prop.Setter.Body,
		shared: prop.Modifiers.Shared,
	}
}

// builtinBase is the nearest builtin type (Form, Exception, ...) a class
// derives from, or "".
func (i *Interpreter) builtinBase(cls *classInfo) string {
	for c, depth := cls, 0; c != nil && depth < maxClassDepth; depth++ {
		if c.parent == "" {
			return ""
		}
		parent := i.parentOf(c)
		if parent == nil {
			return typeKey(c.parent)
		}
		c = parent
	}
	return ""
}

func (i *Interpreter) isFormClass(cls *classInfo) bool {
	for _, name := range i.ancestry(cls.name) {
		if name == "form" {
			return true
		}
	}
	return false
}

func isExceptionType(name string) bool {
	return strings.HasSuffix(typeKey(name), "exception")
}

// instantiate creates an instance of cls and runs its constructor.
func (i *Interpreter) instantiate(cls *classInfo, args []runtime.Value, argExprs []ast.Expression) (*runtime.ObjectValue, error) {
	if cls.mustInherit {
		return nil, runtime.Exception("InvalidOperationException", fmt.Sprintf("'New' cannot be used on class '%s' because it is declared 'MustInherit'.", cls.name))
	}
	obj := runtime.NewObject(cls.name)
	obj.IsStruct = cls.isStruct
	isForm := i.isFormClass(cls)
	if isForm {
		obj.Native = &uiObject{form: true}
		key := strings.ToLower(cls.name)
		if _, ok := i.defaultInstances[key]; !ok {
			i.defaultInstances[key] = obj
		}
	}
	if err := i.initFields(cls, obj, 0); err != nil {
		return nil, err
	}
	if err := i.runConstructor(cls, obj, args, argExprs); err != nil {
		return nil, err
	}
	return obj, nil
}

// newStructValue is the zero value of a Structure: fields initialized, no
// constructor run.
func (i *Interpreter) newStructValue(cls *classInfo) (*runtime.ObjectValue, error) {
	obj := runtime.NewObject(cls.name)
	obj.IsStruct = true
	if err := i.initFields(cls, obj, 0); err != nil {
		return nil, err
	}
	return obj, nil
}

// initFields sets every instance field along the Inherits chain, parents
// first.
func (i *Interpreter) initFields(cls *classInfo, obj *runtime.ObjectValue, depth int) error {
	if depth > maxClassDepth {
		return runtime.Errorf("Inheritance cycle at class '%s'", cls.name)
	}
	if parent := i.parentOf(cls); parent != nil {
		if err := i.initFields(parent, obj, depth+1); err != nil {
			return err
		}
	} else if cls.parent != "" {
		i.initBuiltinBase(obj, cls.parent)
	}
	i.pushFrame(&frame{self: obj, class: cls, module: cls.module})
	defer i.popFrame()
	for _, field := range cls.fields {
		if field.Modifiers.Shared {
			continue
		}
		for _, v := range field.Variables {
			val, err := i.declaratorValue(v)
			if err != nil {
				return err
			}
			obj.Set(v.Name, val)
		}
	}
	for _, key := range sortedPropertyKeys(cls) {
		prop := cls.properties[key]
		if !prop.IsAuto || prop.Modifiers.Shared {
			continue
		}
		val, err := i.autoPropertyValue(prop)
		if err != nil {
			return err
		}
		obj.Set(prop.Name, val)
	}
	return nil
}

func sortedPropertyKeys(cls *classInfo) []string {
	keys := make([]string, 0, len(cls.properties))
	for key := range cls.properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// initBuiltinBase gives instances of classes deriving from builtin types
// the fields those types expose.
func (i *Interpreter) initBuiltinBase(obj *runtime.ObjectValue, parent string) {
	key := typeKey(parent)
	switch {
	case isExceptionType(key):
		setExceptionFields(obj, "", runtime.Nothing)
	case key == "form":
		i.initFormFields(obj)
	case builtinParents[key] == "control" || key == "usercontrol":
		initControlFields(obj, obj.ClassName)
	}
}

// runConstructor runs the constructor declared on cls, or the nearest
// inherited one. A constructor that does not start by calling MyBase.New
// runs the parent's parameterless constructor first.
func (i *Interpreter) runConstructor(cls *classInfo, obj *runtime.ObjectValue, args []runtime.Value, argExprs []ast.Expression) error {
	ctor := cls.ownMethod("New", len(args))
	if ctor == nil {
		parent := i.parentOf(cls)
		if parent == nil {
			if len(args) > 0 && cls.parent != "" {
				return i.builtinConstructor(obj, cls.parent, args)
			}
			return nil
		}
		return i.runConstructor(parent, obj, args, argExprs)
	}
	if !callsMyBaseNew(ctor.body) {
		if parent := i.parentOf(cls); parent != nil {
			if err := i.runConstructor(parent, obj, nil, nil); err != nil {
				return err
			}
		}
	}
	_, err := i.invokeProc(ctor, args, argExprs, obj)
	return err
}

// builtinConstructor handles MyBase.New(...) on a builtin parent type.
func (i *Interpreter) builtinConstructor(obj *runtime.ObjectValue, parent string, args []runtime.Value) error {
	if isExceptionType(parent) {
		inner := runtime.Value(runtime.Nothing)
		if len(args) > 1 {
			inner = args[1]
		}
		msg := ""
		if len(args) > 0 {
			msg = displayString(args[0])
		}
		setExceptionFields(obj, msg, inner)
	}
	return nil
}

func callsMyBaseNew(body []ast.Statement) bool {
	for _, stmt := range body {
		call, ok := stmt.(*ast.CallStatement)
		if !ok {
			continue
		}
		expr, ok := call.Call.(*ast.CallExpression)
		if !ok {
			continue
		}
		member, ok := expr.Callee.(*ast.MemberAccessExpression)
		if !ok || !strings.EqualFold(member.Member, "New") {
			continue
		}
		if _, ok := member.Object.(*ast.MyBaseExpression); ok {
			return true
		}
	}
	return false
}

// defaultInstance returns the instance a class name stands for when used
// as an object (Form1.Show()), creating it on first use.
func (i *Interpreter) defaultInstance(cls *classInfo) (*runtime.ObjectValue, error) {
	key := strings.ToLower(cls.name)
	if obj, ok := i.defaultInstances[key]; ok {
		return obj, nil
	}
	obj, err := i.instantiate(cls, nil, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := i.defaultInstances[key]; !ok {
		i.defaultInstances[key] = obj
	}
	return i.defaultInstances[key], nil
}

func setExceptionFields(obj *runtime.ObjectValue, msg string, inner runtime.Value) {
	obj.Set("Message", runtime.StringValue{Val: msg})
	obj.Set("InnerException", inner)
	if !obj.Has("Source") {
		obj.Set("Source", runtime.StringValue{})
	}
	if !obj.Has("StackTrace") {
		obj.Set("StackTrace", runtime.StringValue{})
	}
}

// exceptionObject is the value bound to `Catch ex`: the thrown object, or a
// builtin exception built from the error.
func (i *Interpreter) exceptionObject(err *runtime.Error) runtime.Value {
	if err.Payload != nil {
		return err.Payload
	}
	obj := runtime.NewObject(err.TypeName())
	setExceptionFields(obj, err.Description(), runtime.Nothing)
	obj.Set("Source", runtime.StringValue{Val: i.frame().module})
	obj.Set("HResult", runtime.IntegerValue{Val: err.ErrNumber()})
	obj.Native = err
	return obj
}

// exceptionFromValue turns a thrown value into the error that unwinds.
func (i *Interpreter) exceptionFromValue(v runtime.Value) *runtime.Error {
	obj, ok := v.(*runtime.ObjectValue)
	if !ok {
		if runtime.IsNothing(v) {
			return runtime.Exception("NullReferenceException", "Object reference not set to an instance of an object.")
		}
		return runtime.Exception("Exception", displayString(v))
	}
	if err, ok := obj.Native.(*runtime.Error); ok {
		return err
	}
	return &runtime.Error{
		Kind:          runtime.ErrException,
		ExceptionType: obj.ClassName,
		Message:       displayString(obj.Get("Message")),
		Payload:       obj,
	}
}

// catchMatches reports whether `Catch As typeName` handles err, following
// user and builtin exception hierarchies.
func (i *Interpreter) catchMatches(err *runtime.Error, typeName string) bool {
	if err.Matches(typeName) {
		return true
	}
	want := typeKey(typeName)
	for _, name := range i.ancestry(err.TypeName()) {
		if name == want {
			return true
		}
	}
	return false
}

func objectIdentity(obj *runtime.ObjectValue) string {
	return fmt.Sprintf("%s@%p", obj.ClassName, obj)
}

// staticKey identifies a Static local: per procedure, and per instance for
// instance methods.
func (i *Interpreter) staticKey(name string) string {
	f := i.frame()
	key := strings.ToLower(f.module)
	if f.proc != nil {
		key = f.proc.key()
		if f.self != nil && !f.proc.shared {
			key += fmt.Sprintf("@%p", f.self)
		}
	}
	return key + "." + strings.ToLower(name)
}

// dispose runs Dispose at the end of a Using block.
func (i *Interpreter) dispose(obj *runtime.ObjectValue) error {
	if cls := i.lookupClass(obj.ClassName); cls != nil {
		if proc := i.findMethod(cls, "Dispose", 0); proc != nil {
			_, err := i.invokeProc(proc, nil, nil, obj)
			return err
		}
	}
	if closer, ok := obj.Native.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

package interpreter

import (
	"fmt"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

const maxCallDepth = 3000

// evalArgValues evaluates call arguments left to right. Omitted arguments
// are Nothing; named arguments evaluate to their value and are matched to
// parameters by bindArguments.
func (i *Interpreter) evalArgValues(exprs []ast.Expression) ([]runtime.Value, error) {
	if exprs == nil {
		return nil, nil
	}
	args := make([]runtime.Value, len(exprs))
	for idx, expr := range exprs {
		switch e := expr.(type) {
		case *ast.OmittedArgument:
			args[idx] = runtime.Nothing
		case *ast.NamedArgument:
			val, err := i.evalExpression(e.Value)
			if err != nil {
				return nil, err
			}
			args[idx] = val
		default:
			val, err := i.evalExpression(expr)
			if err != nil {
				return nil, err
			}
			args[idx] = val
		}
	}
	return args, nil
}

func paramIndex(params []*ast.Parameter, name string) int {
	for idx, p := range params {
		if strings.EqualFold(p.Name, name) {
			return idx
		}
	}
	return -1
}

// bindArguments matches args to proc's parameters: positional first, then
// named, then Optional defaults. A ParamArray collects the rest.
func (i *Interpreter) bindArguments(proc *procedure, args []runtime.Value, argExprs []ast.Expression) ([]runtime.Value, error) {
	params := proc.params
	bound := make([]runtime.Value, len(params))
	set := make([]bool, len(params))
	pos := 0
	for k := 0; k < len(args); k++ {
		var expr ast.Expression
		if k < len(argExprs) {
			expr = argExprs[k]
		}
		if named, ok := expr.(*ast.NamedArgument); ok {
			idx := paramIndex(params, named.Name)
			if idx < 0 {
				return nil, runtime.Errorf("'%s' is not a parameter of '%s'", named.Name, proc.name)
			}
			bound[idx], set[idx] = args[k], true
			continue
		}
		if pos < len(params) && params[pos].IsParamArr {
			rest := args[k:]
			if len(rest) == 1 {
				if arr, ok := rest[0].(*runtime.ArrayValue); ok {
					bound[pos], set[pos] = arr, true
					break
				}
			}
			bound[pos], set[pos] = runtime.NewArray(append([]runtime.Value(nil), rest...)), true
			break
		}
		if pos >= len(params) {
			return nil, runtime.Errorf("Too many arguments to '%s'", proc.name)
		}
		if _, omitted := expr.(*ast.OmittedArgument); !omitted {
			bound[pos], set[pos] = args[k], true
		}
		pos++
	}
	for idx, p := range params {
		if !set[idx] {
			switch {
			case p.IsParamArr:
				bound[idx] = runtime.NewArray(nil)
				continue
			case p.Default != nil:
				val, err := i.evalExpression(p.Default)
				if err != nil {
					return nil, err
				}
				bound[idx] = val
			case p.Optional:
				bound[idx] = i.zeroValue(p.Type)
				continue
			default:
				return nil, runtime.Errorf("Argument not specified for parameter '%s' of '%s'", p.Name, proc.name)
			}
		}
		if p.IsParamArr {
			continue
		}
		val := bound[idx]
		if p.Type != nil {
			coerced, err := i.coerceToType(val, p.Type)
			if err != nil {
				return nil, err
			}
			val = coerced
		}
		if p.Mode != ast.PassByRef {
			val = runtime.CopyValue(val)
		}
		bound[idx] = val
	}
	return bound, nil
}

// fitArgs pads or trims host-supplied event arguments to a handler's
// required parameters, so `Sub Click(sender, e)` accepts zero arguments and
// `Sub Tick()` ignores extras.
func fitArgs(proc *procedure, args []runtime.Value) []runtime.Value {
	required := 0
	for _, p := range proc.params {
		if p.IsParamArr {
			return args
		}
		if !p.Optional && p.Default == nil {
			required++
		}
	}
	if len(args) > len(proc.params) {
		return args[:len(proc.params)]
	}
	for len(args) < required {
		args = append(args, runtime.Nothing)
	}
	return args
}

func (i *Interpreter) invokeValues(proc *procedure, args []runtime.Value, self *runtime.ObjectValue) (runtime.Value, error) {
	return i.invokeProc(proc, args, nil, self)
}

// invokeProc calls proc in a fresh frame. ByRef parameters whose argument
// expression is assignable are written back after a normal return.
func (i *Interpreter) invokeProc(proc *procedure, args []runtime.Value, argExprs []ast.Expression, self *runtime.ObjectValue) (runtime.Value, error) {
	if proc.body == nil && proc.class != nil {
		return nil, runtime.Exception("NotImplementedException", fmt.Sprintf("'%s.%s' has no implementation", proc.class.name, proc.name))
	}
	if len(i.frames) > maxCallDepth {
		return nil, runtime.Exception("StackOverflowException", "Insufficient stack to continue executing the program safely.")
	}
	bound, err := i.bindArguments(proc, args, argExprs)
	if err != nil {
		return nil, err
	}
	if proc.shared {
		self = nil
	}

	i.Env.EnterFrame()
	i.pushFrame(&frame{proc: proc, self: self, class: proc.class, module: proc.module, body: proc.body})
	for idx, p := range proc.params {
		i.Env.Define(p.Name, bound[idx])
	}
	if proc.isFunction {
		i.Env.Define(proc.name, i.zeroValue(proc.returnType))
	}
	out := i.execBlock(proc.body)

	var result runtime.Value = runtime.Nothing
	if out.kind == outcomeReturn && out.value != nil {
		result = out.value
	} else if proc.isFunction {
		if val, err := i.Env.Get(proc.name); err == nil {
			result = val
		}
	}
	finals := make([]runtime.Value, len(proc.params))
	for idx, p := range proc.params {
		if p.Mode == ast.PassByRef {
			finals[idx], _ = i.Env.Get(p.Name)
		}
	}
	i.persistStatics()
	i.popFrame()
	i.Env.LeaveFrame()

	switch out.kind {
	case outcomeRaised:
		return nil, out.err
	case outcomeGoto:
		return nil, runtime.Errorf("Label '%s' not found", out.label)
	case outcomeExit:
		return nil, runtime.Errorf("'Exit %s' outside of a %s block", out.block, out.block)
	case outcomeContinue:
		return nil, runtime.Errorf("'Continue %s' outside of a %s block", out.block, out.block)
	case outcomeResume:
		return nil, runtime.Exception("InvalidOperationException", "Resume without error")
	}

	for idx, p := range proc.params {
		if p.Mode != ast.PassByRef || p.IsParamArr || idx >= len(argExprs) || finals[idx] == nil {
			continue
		}
		if err := i.writeBack(argExprs, idx, p.Name, finals[idx]); err != nil {
			return nil, err
		}
	}
	if proc.isFunction && proc.returnType != nil {
		return i.coerceToType(result, proc.returnType)
	}
	return result, nil
}

// writeBack stores a ByRef parameter's final value into the caller's
// argument. Positional arguments are matched by index, named ones by name.
func (i *Interpreter) writeBack(argExprs []ast.Expression, idx int, name string, val runtime.Value) error {
	var target ast.Expression
	for _, expr := range argExprs {
		if named, ok := expr.(*ast.NamedArgument); ok && strings.EqualFold(named.Name, name) {
			target = named.Value
		}
	}
	if target == nil {
		if _, ok := argExprs[idx].(*ast.NamedArgument); ok {
			return nil
		}
		target = argExprs[idx]
	}
	if !i.isWritable(target) {
		return nil
	}
	return i.assignTo(target, val)
}

// isWritable reports whether a ByRef argument names storage: a variable, a
// field, or an element of an array, list or dictionary.
func (i *Interpreter) isWritable(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.Identifier:
		if i.Env.IsConst(e.Name) {
			return false
		}
		return i.hasVariable(e.Name)
	case *ast.MemberAccessExpression:
		return e.Object != nil
	case *ast.CallExpression:
		if len(e.Arguments) == 0 {
			return false
		}
		val, err := i.evalExpression(e.Callee)
		if err != nil {
			return false
		}
		switch val.(type) {
		case *runtime.ArrayValue, *runtime.ListValue, *runtime.DictionaryValue:
			return true
		}
	}
	return false
}

// persistStatics saves the current values of Static locals.
func (i *Interpreter) persistStatics() {
	f := i.frame()
	for _, name := range f.statics {
		if val, err := i.Env.Get(name); err == nil {
			i.statics[i.staticKey(name)] = val
		}
	}
}

// invokeLambda calls a lambda or AddressOf delegate. Lambdas see their
// captured bindings; assignments to captured names are kept for the next
// call.
func (i *Interpreter) invokeLambda(l *runtime.LambdaValue, args []runtime.Value) (runtime.Value, error) {
	if l.Procedure != "" {
		return i.invokeDelegate(l, args)
	}
	if len(i.frames) > maxCallDepth {
		return nil, runtime.Exception("StackOverflowException", "Insufficient stack to continue executing the program safely.")
	}
	i.Env.EnterFrame()
	i.pushFrame(&frame{self: l.Receiver, class: i.classOf(l.Receiver), module: i.frame().module})
	defer func() {
		i.popFrame()
		i.Env.LeaveFrame()
	}()
	for name, val := range l.Captured {
		i.Env.Define(name, val)
	}
	i.Env.PushScope()
	for idx, p := range l.Parameters {
		var val runtime.Value = runtime.Nothing
		switch {
		case idx < len(args):
			val = args[idx]
		case p.Default != nil:
			v, err := i.evalExpression(p.Default)
			if err != nil {
				i.Env.PopScope()
				return nil, err
			}
			val = v
		}
		if p.Type != nil {
			coerced, err := i.coerceToType(val, p.Type)
			if err != nil {
				i.Env.PopScope()
				return nil, err
			}
			val = coerced
		}
		i.Env.Define(p.Name, val)
	}

	var result runtime.Value = runtime.Nothing
	var callErr error
	if l.Body != nil {
		result, callErr = i.evalExpression(l.Body)
	} else {
		out := i.execBlock(l.Statements)
		switch out.kind {
		case outcomeRaised:
			callErr = out.err
		case outcomeReturn:
			if out.value != nil {
				result = out.value
			}
		}
	}
	i.Env.PopScope()
	for name := range l.Captured {
		if val, err := i.Env.Get(name); err == nil {
			l.Captured[name] = val
		}
	}
	if callErr != nil {
		return nil, callErr
	}
	return result, nil
}

// invokeDelegate calls the procedure behind an AddressOf delegate.
func (i *Interpreter) invokeDelegate(l *runtime.LambdaValue, args []runtime.Value) (runtime.Value, error) {
	if l.Receiver != nil {
		if cls := i.lookupClass(l.Receiver.ClassName); cls != nil {
			if proc := i.findMethod(cls, l.Procedure, len(args)); proc != nil {
				return i.invokeProc(proc, fitArgs(proc, args), nil, l.Receiver)
			}
		}
		return i.callMethod(l.Receiver, l.Procedure, args, nil)
	}
	if proc := i.lookupProcedure(l.Procedure); proc != nil {
		return i.invokeProc(proc, fitArgs(proc, args), nil, nil)
	}
	if cls, method := i.splitClassMember(l.Procedure); cls != nil {
		if proc := i.findMethod(cls, method, len(args)); proc != nil {
			args = fitArgs(proc, args)
		}
		return i.callClassMember(cls, method, args, nil)
	}
	if fn, ok := lookupBuiltin(l.Procedure); ok {
		return fn(i, args)
	}
	return nil, runtime.UndefinedFunction(l.Procedure)
}

func (i *Interpreter) classOf(obj *runtime.ObjectValue) *classInfo {
	if obj == nil {
		return nil
	}
	return i.lookupClass(obj.ClassName)
}

// dispatchClass is the class whose methods bare names resolve against:
// the runtime class of Me, so overrides win, or the class of a Shared
// method.
func (i *Interpreter) dispatchClass() *classInfo {
	f := i.frame()
	if f.self != nil {
		if cls := i.lookupClass(f.self.ClassName); cls != nil {
			return cls
		}
	}
	return f.class
}

func (i *Interpreter) evalCallStatement(expr ast.Expression) (runtime.Value, error) {
	if call, ok := expr.(*ast.CallExpression); ok {
		return i.evalCall(call)
	}
	return i.evalExpression(expr)
}

func (i *Interpreter) evalCall(n *ast.CallExpression) (runtime.Value, error) {
	switch callee := n.Callee.(type) {
	case *ast.Identifier:
		return i.callNamed(callee.Name, n.Arguments)
	case *ast.MemberAccessExpression:
		return i.callMember(callee, n.Arguments)
	}
	target, err := i.evalExpression(n.Callee)
	if err != nil {
		return nil, err
	}
	args, err := i.evalArgValues(n.Arguments)
	if err != nil {
		return nil, err
	}
	return i.applyValue(target, args, n.Arguments != nil)
}

// applyValue applies call syntax to a value: lambdas are invoked, anything
// else is indexed.
func (i *Interpreter) applyValue(target runtime.Value, args []runtime.Value, called bool) (runtime.Value, error) {
	if l, ok := target.(*runtime.LambdaValue); ok && called {
		return i.invokeLambda(l, args)
	}
	if len(args) == 0 {
		return target, nil
	}
	return i.indexValue(target, args)
}

// callNamed resolves `Name(args)`: variables are indexed or invoked, then
// methods of the current class, module procedures and builtins are tried.
func (i *Interpreter) callNamed(name string, argExprs []ast.Expression) (runtime.Value, error) {
	f := i.frame()
	recursive := argExprs != nil && f.proc != nil && f.proc.isFunction && strings.EqualFold(f.proc.name, name)
	if !recursive {
		if val, ok, err := i.lookupVariable(name); err != nil || ok {
			if err != nil {
				return nil, err
			}
			args, err := i.evalArgValues(argExprs)
			if err != nil {
				return nil, err
			}
			return i.applyValue(val, args, argExprs != nil)
		}
	}
	args, err := i.evalArgValues(argExprs)
	if err != nil {
		return nil, err
	}
	if cls := i.dispatchClass(); cls != nil {
		if proc := i.findMethod(cls, name, len(args)); proc != nil {
			return i.invokeProc(proc, args, argExprs, f.self)
		}
		if prop, owner := i.findProperty(cls, name); prop != nil {
			return i.getProperty(f.self, owner, prop, args)
		}
	}
	if proc := i.lookupProcedure(name); proc != nil {
		return i.invokeProc(proc, args, argExprs, nil)
	}
	if fn, ok := lookupBuiltin(name); ok {
		return i.applyBuiltin(name, fn, args, argExprs)
	}
	if cls := i.lookupClass(name); cls != nil && i.isFormClass(cls) {
		return i.defaultInstance(cls)
	}
	return nil, runtime.UndefinedFunction(name)
}

// callMember resolves `obj.Member(args)`.
func (i *Interpreter) callMember(m *ast.MemberAccessExpression, argExprs []ast.Expression) (runtime.Value, error) {
	if _, ok := m.Object.(*ast.MyBaseExpression); ok {
		args, err := i.evalArgValues(argExprs)
		if err != nil {
			return nil, err
		}
		return i.callBase(m.Member, args, argExprs)
	}
	if path, ok := i.qualifiedPath(m.Object); ok {
		args, err := i.evalArgValues(argExprs)
		if err != nil {
			return nil, err
		}
		return i.callQualified(path+"."+m.Member, args, argExprs)
	}
	target, err := i.memberOwner(m)
	if err != nil {
		return nil, err
	}
	args, err := i.evalArgValues(argExprs)
	if err != nil {
		return nil, err
	}
	if argExprs == nil {
		return i.getMember(target, m.Member)
	}
	if args == nil {
		args = []runtime.Value{}
	}
	return i.callMethod(target, m.Member, args, argExprs)
}

// memberOwner evaluates the object of a member access; a nil object is the
// innermost With target.
func (i *Interpreter) memberOwner(m *ast.MemberAccessExpression) (runtime.Value, error) {
	if m.Object == nil {
		with := i.frame().with
		if len(with) == 0 {
			return nil, runtime.Errorf("'.%s' used outside a With block", m.Member)
		}
		return with[len(with)-1], nil
	}
	return i.evalExpression(m.Object)
}

// callBase dispatches MyBase.Member to the parent class, or to the builtin
// base type when the parent is not user-defined.
func (i *Interpreter) callBase(name string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	f := i.frame()
	cls := f.class
	if cls == nil || f.self == nil {
		return nil, runtime.Errorf("'MyBase' is only valid inside an instance member")
	}
	parent := i.parentOf(cls)
	if strings.EqualFold(name, "New") {
		if parent != nil {
			return runtime.Nothing, i.runConstructor(parent, f.self, args, argExprs)
		}
		return runtime.Nothing, i.builtinConstructor(f.self, cls.parent, args)
	}
	if parent != nil {
		if proc := i.findMethod(parent, name, len(args)); proc != nil {
			return i.invokeProc(proc, args, argExprs, f.self)
		}
		if prop, owner := i.findProperty(parent, name); prop != nil {
			return i.getProperty(f.self, owner, prop, args)
		}
	}
	if val, ok, err := i.callBuiltinObjectMethod(f.self, name, args); ok {
		return val, err
	}
	return runtime.Nothing, nil
}

// getProperty reads a property through its getter, or the backing field
// of an auto-implemented property.
func (i *Interpreter) getProperty(self *runtime.ObjectValue, owner *classInfo, prop *ast.PropertyDeclaration, args []runtime.Value) (runtime.Value, error) {
	if prop.IsAuto {
		var val runtime.Value
		if prop.Modifiers.Shared || self == nil {
			val = owner.shared.Get(prop.Name)
		} else {
			val = self.Get(prop.Name)
		}
		if val == nil {
			val = runtime.Nothing
		}
		return i.applyValue(val, args, false)
	}
	if !prop.HasGetter {
		return nil, runtime.Errorf("Property '%s' is WriteOnly", prop.Name)
	}
	return i.invokeProc(i.propertyGetter(owner, prop), args, nil, self)
}

// qualifiedPath renders a dotted name whose head is not a variable, such
// as Module1.Total or System.Math.Max, for name-based resolution.
func (i *Interpreter) qualifiedPath(expr ast.Expression) (string, bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if i.hasVariable(e.Name) {
			return "", false
		}
		return e.Name, true
	case *ast.MemberAccessExpression:
		if e.Object == nil {
			return "", false
		}
		head, ok := i.qualifiedPath(e.Object)
		if !ok {
			return "", false
		}
		return head + "." + e.Member, true
	}
	return "", false
}

// callQualified calls a dotted name: a module procedure, a class member, an
// enum member, a builtin, or a member of whatever the prefix resolves to.
func (i *Interpreter) callQualified(path string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	if proc := i.lookupProcedure(path); proc != nil {
		return i.invokeProc(proc, args, argExprs, nil)
	}
	if cls, member := i.splitClassMember(path); cls != nil {
		return i.callClassMember(cls, member, args, argExprs)
	}
	lower := strings.ToLower(path)
	if val, ok := i.enumMember(lower); ok {
		return i.applyValue(val, args, false)
	}
	if fn, ok := lookupBuiltin(lower); ok {
		return i.applyBuiltin(lower, fn, args, argExprs)
	}
	if expanded, ok := i.expandImport(path); ok {
		return i.callQualified(expanded, args, argExprs)
	}
	idx := strings.LastIndex(path, ".")
	if idx > 0 {
		prefix, err := i.getQualified(path[:idx])
		if err == nil && !isNamespaceValue(prefix) {
			return i.callMethod(prefix, path[idx+1:], args, argExprs)
		}
		if _, ok := err.(*runtime.Error); ok && !isUndefined(err) {
			return nil, err
		}
	}
	if len(args) == 0 && isBuiltinNamespace(lower) {
		return namespaceObject(lower), nil
	}
	return nil, runtime.UndefinedFunction(path)
}

// getQualified reads a dotted name without call syntax.
func (i *Interpreter) getQualified(path string) (runtime.Value, error) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return i.lookupIdentifier(path)
	}
	head, member := path[:idx], path[idx+1:]
	lower := strings.ToLower(path)
	if _, ok := i.modules[strings.ToLower(head)]; ok {
		if val, ok := i.Env.GetGlobal(member); ok {
			return val, nil
		}
	}
	if proc := i.lookupProcedure(path); proc != nil && proc.accepts(0) {
		return i.invokeProc(proc, nil, nil, nil)
	}
	if cls, name := i.splitClassMember(path); cls != nil {
		return i.callClassMember(cls, name, nil, nil)
	}
	if val, ok := i.enumMember(lower); ok {
		return val, nil
	}
	if fn, ok := lookupBuiltin(lower); ok {
		return fn(i, nil)
	}
	if i.namespaces[lower] || isBuiltinNamespace(lower) {
		return namespaceObject(lower), nil
	}
	if expanded, ok := i.expandImport(path); ok {
		return i.getQualified(expanded)
	}
	prefix, err := i.getQualified(head)
	if err != nil {
		return nil, err
	}
	if ns, ok := namespacePath(prefix); ok {
		return nil, runtime.UndefinedVariable(ns + "." + member)
	}
	return i.getMember(prefix, member)
}

// callClassMember calls Class.Member: Shared methods and fields directly,
// anything else on the class's default instance.
func (i *Interpreter) callClassMember(cls *classInfo, member string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	if proc := i.findMethod(cls, member, len(args)); proc != nil {
		if proc.shared {
			return i.invokeProc(proc, args, argExprs, nil)
		}
		inst, err := i.defaultInstance(cls)
		if err != nil {
			return nil, err
		}
		return i.invokeProc(proc, args, argExprs, inst)
	}
	if val, ok := i.sharedMember(cls, member); ok {
		return i.applyValue(val, args, argExprs != nil)
	}
	if prop, owner := i.findProperty(cls, member); prop != nil && prop.Modifiers.Shared {
		return i.getProperty(nil, owner, prop, args)
	}
	if val, ok := i.enumMember(strings.ToLower(cls.name + "." + member)); ok {
		return val, nil
	}
	inst, err := i.defaultInstance(cls)
	if err != nil {
		return nil, err
	}
	if argExprs == nil && args == nil {
		return i.getMember(inst, member)
	}
	return i.callMethod(inst, member, args, argExprs)
}

// enumMember resolves "enum.member" (optionally namespace-qualified).
func (i *Interpreter) enumMember(lower string) (runtime.Value, bool) {
	idx := strings.LastIndex(lower, ".")
	if idx <= 0 {
		return nil, false
	}
	enumName, member := lower[:idx], lower[idx+1:]
	info, ok := i.enums[enumName]
	if !ok {
		if dot := strings.LastIndex(enumName, "."); dot >= 0 {
			info, ok = i.enums[enumName[dot+1:]]
		}
	}
	if !ok {
		return nil, false
	}
	val, ok := info.members[member]
	return val, ok
}

// expandImport substitutes an Imports alias at the head of path.
func (i *Interpreter) expandImport(path string) (string, bool) {
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return "", false
	}
	target, ok := i.imports[strings.ToLower(head)]
	if !ok {
		return "", false
	}
	return target + "." + rest, true
}

func isUndefined(err error) bool {
	rerr, ok := err.(*runtime.Error)
	if !ok {
		return false
	}
	return rerr.Kind == runtime.ErrUndefinedVariable || rerr.Kind == runtime.ErrUndefinedFunction
}

package interpreter

import (
	"fmt"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// namespaceRef marks an object standing for a module, class or namespace
// name rather than a value; member access on it resolves by qualified
// name.
type namespaceRef struct {
	path string
}

func namespaceObject(path string) *runtime.ObjectValue {
	obj := runtime.NewObject("Namespace")
	obj.Native = namespaceRef{path: path}
	return obj
}

func namespacePath(v runtime.Value) (string, bool) {
	obj, ok := v.(*runtime.ObjectValue)
	if !ok {
		return "", false
	}
	ref, ok := obj.Native.(namespaceRef)
	return ref.path, ok
}

func isNamespaceValue(v runtime.Value) bool {
	_, ok := namespacePath(v)
	return ok
}

// nativeObject is implemented by the host data behind builtin classes
// (database handles, regex matches, control collections). handled is false
// when the member is unknown, so callers can fall back.
type nativeObject interface {
	callMethod(i *Interpreter, self *runtime.ObjectValue, name string, args []runtime.Value) (val runtime.Value, handled bool, err error)
}

type nativeSetter interface {
	setMember(i *Interpreter, self *runtime.ObjectValue, name string, v runtime.Value) (handled bool, err error)
}

type nativeIndexer interface {
	index(i *Interpreter, args []runtime.Value) (runtime.Value, error)
	setIndex(i *Interpreter, args []runtime.Value, v runtime.Value) error
}

type nativeIterable interface {
	items() []runtime.Value
}

func missingMember(name, typeName string) *runtime.Error {
	return runtime.Exception("MissingMemberException", fmt.Sprintf("Public member '%s' on type '%s' not found.", name, typeName))
}

func nullReference() *runtime.Error {
	return runtime.Exception("NullReferenceException", "Object reference not set to an instance of an object.")
}

// hasVariable reports whether name is storage visible here: a local, a
// field or property of Me, a Shared member of the current class, or a
// global. It never runs user code.
func (i *Interpreter) hasVariable(name string) bool {
	if i.Env.HasLocal(name) {
		return true
	}
	f := i.frame()
	if f.self != nil {
		if f.self.Has(name) {
			return true
		}
		if cls := i.lookupClass(f.self.ClassName); cls != nil {
			if prop, _ := i.findProperty(cls, name); prop != nil {
				return true
			}
		}
	}
	if cls := i.dispatchClass(); cls != nil && i.sharedOwner(cls, name) != nil {
		return true
	}
	_, ok := i.Env.GetGlobal(name)
	return ok
}

// lookupVariable reads name as storage; ok is false when name is not a
// variable, field, property or global.
func (i *Interpreter) lookupVariable(name string) (runtime.Value, bool, error) {
	if i.Env.HasLocal(name) {
		val, err := i.Env.Get(name)
		return val, err == nil, err
	}
	f := i.frame()
	if f.self != nil {
		if f.self.Has(name) {
			return f.self.Get(name), true, nil
		}
		if cls := i.lookupClass(f.self.ClassName); cls != nil {
			if prop, owner := i.findProperty(cls, name); prop != nil {
				val, err := i.getProperty(f.self, owner, prop, nil)
				return val, true, err
			}
		}
	}
	if cls := i.dispatchClass(); cls != nil {
		if val, ok := i.sharedMember(cls, name); ok {
			return val, true, nil
		}
		if f.self == nil {
			if prop, owner := i.findProperty(cls, name); prop != nil && prop.Modifiers.Shared {
				val, err := i.getProperty(nil, owner, prop, nil)
				return val, true, err
			}
		}
	}
	if val, ok := i.Env.GetGlobal(name); ok {
		return val, true, nil
	}
	return nil, false, nil
}

// lookupIdentifier evaluates a bare name: storage first, then parameterless
// procedures and methods, then type and namespace names, then builtins.
func (i *Interpreter) lookupIdentifier(name string) (runtime.Value, error) {
	if val, ok, err := i.lookupVariable(name); err != nil || ok {
		return val, err
	}
	f := i.frame()
	if cls := i.dispatchClass(); cls != nil {
		if proc := i.findMethod(cls, name, 0); proc != nil && proc.accepts(0) {
			return i.invokeProc(proc, nil, nil, f.self)
		}
	}
	if proc := i.lookupProcedure(name); proc != nil && proc.accepts(0) {
		return i.invokeProc(proc, nil, nil, nil)
	}
	lower := strings.ToLower(name)
	if cls := i.lookupClass(name); cls != nil {
		if i.isFormClass(cls) {
			return i.defaultInstance(cls)
		}
		return namespaceObject(lower), nil
	}
	if _, ok := i.modules[lower]; ok {
		return namespaceObject(lower), nil
	}
	if _, ok := i.enums[lower]; ok {
		return namespaceObject(lower), nil
	}
	if i.namespaces[lower] {
		return namespaceObject(lower), nil
	}
	if fn, ok := lookupBuiltin(lower); ok {
		return fn(i, nil)
	}
	if isBuiltinNamespace(lower) {
		return namespaceObject(lower), nil
	}
	if target, ok := i.imports[lower]; ok {
		return namespaceObject(strings.ToLower(target)), nil
	}
	return nil, runtime.UndefinedVariable(name)
}

// evalMemberAccess reads obj.Member.
func (i *Interpreter) evalMemberAccess(m *ast.MemberAccessExpression) (runtime.Value, error) {
	if _, ok := m.Object.(*ast.MyBaseExpression); ok {
		return i.callBase(m.Member, nil, nil)
	}
	if path, ok := i.qualifiedPath(m.Object); ok {
		return i.getQualified(path + "." + m.Member)
	}
	target, err := i.memberOwner(m)
	if err != nil {
		return nil, err
	}
	return i.getMember(target, m.Member)
}

func (i *Interpreter) getMember(target runtime.Value, name string) (runtime.Value, error) {
	return i.callMethod(target, name, nil, nil)
}

// callMethod calls (or, with nil args, reads) a member on any value.
func (i *Interpreter) callMethod(target runtime.Value, name string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	switch t := target.(type) {
	case nil, runtime.NothingValue:
		return nil, nullReference()
	case *runtime.ObjectValue:
		return i.callObjectMember(t, name, args, argExprs)
	case runtime.StringValue:
		return i.callStringMethod(t.Val, name, args)
	case runtime.CharValue:
		return i.callCharMethod(t, name, args)
	case runtime.DateValue:
		return i.callDateMethod(t, name, args)
	case *runtime.ArrayValue:
		return i.callArrayMethod(t, name, args)
	case *runtime.ListValue, *runtime.DictionaryValue, *runtime.QueueValue, *runtime.StackValue, *runtime.HashSetValue:
		return i.callCollectionMethod(target, name, args, argExprs)
	case *runtime.LambdaValue:
		switch strings.ToLower(name) {
		case "invoke", "begininvoke", "dynamicinvoke":
			return i.invokeLambda(t, args)
		}
	}
	return i.callScalarMethod(target, name, args)
}

func (i *Interpreter) callObjectMember(obj *runtime.ObjectValue, name string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	if ref, ok := obj.Native.(namespaceRef); ok {
		if args == nil {
			return i.getQualified(ref.path + "." + name)
		}
		return i.callQualified(ref.path+"."+name, args, argExprs)
	}
	if obj == i.errObject {
		if val, ok, err := i.callErrMethod(name, args); ok {
			return val, err
		}
	}
	cls := i.lookupClass(obj.ClassName)
	if cls != nil {
		if proc := i.findMethod(cls, name, len(args)); proc != nil {
			return i.invokeProc(proc, args, argExprs, obj)
		}
		if prop, owner := i.findProperty(cls, name); prop != nil {
			return i.getProperty(obj, owner, prop, args)
		}
	}
	if obj.Has(name) {
		return i.applyValue(obj.Get(name), args, args != nil)
	}
	if cls != nil {
		if val, ok := i.sharedMember(cls, name); ok {
			return i.applyValue(val, args, args != nil)
		}
	}
	if native, ok := obj.Native.(nativeObject); ok {
		if val, handled, err := native.callMethod(i, obj, name, args); handled {
			return val, err
		}
	}
	if val, ok, err := i.callBuiltinObjectMethod(obj, name, args); ok {
		return val, err
	}
	return nil, missingMember(name, obj.ClassName)
}

// callBuiltinObjectMethod covers members every object has, plus the
// behavior user classes inherit from builtin bases such as Form and
// Exception.
func (i *Interpreter) callBuiltinObjectMethod(obj *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	if sb, ok := obj.Native.(*strings.Builder); ok {
		return i.stringBuilderMethod(obj, sb, name, args)
	}
	if _, ok := obj.Native.(*uiObject); ok {
		if val, handled, err := i.callUIMethod(obj, name, args); handled {
			return val, true, err
		}
	}
	lower := strings.ToLower(name)
	switch lower {
	case "tostring":
		if obj.Has("Message") && i.isExceptionObject(obj) {
			msg := displayString(obj.Get("Message"))
			if msg == "" {
				return runtime.StringValue{Val: obj.ClassName}, true, nil
			}
			return runtime.StringValue{Val: obj.ClassName + ": " + msg}, true, nil
		}
		if obj.ClassName == "KeyValuePair" {
			return runtime.StringValue{Val: "[" + displayString(obj.Get("Key")) + ", " + displayString(obj.Get("Value")) + "]"}, true, nil
		}
		return runtime.StringValue{Val: obj.ClassName}, true, nil
	case "gettype":
		return typeObject(obj.ClassName), true, nil
	case "equals":
		if len(args) != 1 {
			return nil, true, runtime.Errorf("Equals expects one argument")
		}
		if obj.IsStruct {
			return runtime.BoolValue{Val: runtime.KeyOf(obj) == runtime.KeyOf(args[0])}, true, nil
		}
		return runtime.BoolValue{Val: sameReference(obj, args[0])}, true, nil
	case "gethashcode":
		return runtime.IntegerValue{Val: hashString(runtime.KeyOf(obj))}, true, nil
	case "getbaseexception":
		if i.isExceptionObject(obj) {
			return obj, true, nil
		}
	case "dispose", "finalize":
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

func (i *Interpreter) isExceptionObject(obj *runtime.ObjectValue) bool {
	for _, name := range i.ancestry(obj.ClassName) {
		if name == "exception" {
			return true
		}
	}
	return false
}

// typeObject is the value returned by GetType and GetType(T).
func typeObject(name string) *runtime.ObjectValue {
	obj := runtime.NewObject("Type")
	short := name
	if idx := strings.LastIndex(short, "."); idx >= 0 {
		short = short[idx+1:]
	}
	obj.Set("Name", runtime.StringValue{Val: short})
	obj.Set("FullName", runtime.StringValue{Val: name})
	return obj
}

func hashString(s string) int32 {
	var h uint32 = 2166136261
	for idx := 0; idx < len(s); idx++ {
		h ^= uint32(s[idx])
		h *= 16777619
	}
	return int32(h)
}

// callErrMethod implements Err.Raise and Err.Clear.
func (i *Interpreter) callErrMethod(name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "clear":
		i.resetErr()
		return runtime.Nothing, true, nil
	case "raise":
		if len(args) == 0 {
			return nil, true, runtime.Errorf("Err.Raise expects an error number")
		}
		n, err := roundedInteger(args[0])
		if err != nil {
			return nil, true, err
		}
		desc := "Application-defined or object-defined error."
		if len(args) > 2 && !runtime.IsNothing(args[2]) {
			desc = displayString(args[2])
		}
		raisedErr := &runtime.Error{Kind: runtime.ErrCustom, Number: int32(n), Message: desc}
		return nil, true, raisedErr
	case "getexception":
		return i.exceptionObject(&runtime.Error{Kind: runtime.ErrCustom, Message: displayString(i.errObject.Get("Description"))}), true, nil
	}
	return nil, false, nil
}

// callScalarMethod handles members of numbers, Booleans and other values
// without their own method table.
func (i *Interpreter) callScalarMethod(target runtime.Value, name string, args []runtime.Value) (runtime.Value, error) {
	switch strings.ToLower(name) {
	case "tostring":
		if len(args) > 0 {
			return runtime.StringValue{Val: formatValue(target, displayString(args[0]))}, nil
		}
		return runtime.StringValue{Val: displayString(target)}, nil
	case "equals":
		if len(args) != 1 {
			return nil, runtime.Errorf("Equals expects one argument")
		}
		return runtime.BoolValue{Val: valuesEqual(target, args[0])}, nil
	case "compareto":
		if len(args) != 1 {
			return nil, runtime.Errorf("CompareTo expects one argument")
		}
		return runtime.IntegerValue{Val: int32(compareForSort(target, args[0]))}, nil
	case "gettype":
		return typeObject(runtime.TypeName(target)), nil
	case "gethashcode":
		return runtime.IntegerValue{Val: hashString(runtime.KeyOf(target))}, nil
	case "hasvalue":
		return runtime.BoolValue{Val: !runtime.IsNothing(target)}, nil
	case "value", "getvalueordefault":
		return target, nil
	}
	return nil, missingMember(name, runtime.TypeName(target))
}

// indexValue implements `x(args)` on a non-callable value.
func (i *Interpreter) indexValue(container runtime.Value, args []runtime.Value) (runtime.Value, error) {
	switch c := container.(type) {
	case *runtime.ArrayValue:
		cur := runtime.Value(c)
		for _, arg := range args {
			arr, ok := cur.(*runtime.ArrayValue)
			if !ok {
				return nil, runtime.Errorf("Number of indices exceeds the number of dimensions of the indexed array")
			}
			idx, err := roundedInteger(arg)
			if err != nil {
				return nil, err
			}
			if idx < 0 || int(idx) >= len(arr.Elements) {
				return nil, runtime.IndexOutOfRange(int(idx), len(arr.Elements))
			}
			cur = arr.Elements[idx]
		}
		return cur, nil
	case *runtime.ListValue:
		if s, ok := args[0].(runtime.StringValue); ok && c.Keys != nil {
			if item, ok := c.Keys[strings.ToLower(s.Val)]; ok {
				return item, nil
			}
			return nil, runtime.Exception("ArgumentException", "Invalid key '"+s.Val+"'")
		}
		idx, err := roundedInteger(args[0])
		if err != nil {
			return nil, err
		}
		offset, err := c.Index(int(idx))
		if err != nil {
			return nil, err
		}
		return c.Items[offset], nil
	case *runtime.DictionaryValue:
		val, ok := c.Get(args[0])
		if !ok {
			return nil, runtime.Exception("KeyNotFoundException", fmt.Sprintf("The given key '%s' was not present in the dictionary.", displayString(args[0])))
		}
		return val, nil
	case runtime.StringValue:
		idx, err := roundedInteger(args[0])
		if err != nil {
			return nil, err
		}
		runes := []rune(c.Val)
		if idx < 0 || int(idx) >= len(runes) {
			return nil, runtime.IndexOutOfRange(int(idx), len(runes))
		}
		return runtime.CharValue{Val: runes[idx]}, nil
	case *runtime.LambdaValue:
		return i.invokeLambda(c, args)
	case *runtime.ObjectValue:
		if indexer, ok := c.Native.(nativeIndexer); ok {
			return indexer.index(i, args)
		}
		if cls := i.lookupClass(c.ClassName); cls != nil {
			if prop, owner := i.findDefaultProperty(cls); prop != nil {
				return i.getProperty(c, owner, prop, args)
			}
			if proc := i.findMethod(cls, "Item", len(args)); proc != nil {
				return i.invokeProc(proc, args, nil, c)
			}
		}
		return nil, runtime.Errorf("'%s' cannot be indexed because it has no default property", c.ClassName)
	case nil, runtime.NothingValue:
		return nil, nullReference()
	}
	return nil, runtime.Errorf("'%s' cannot be indexed", runtime.TypeName(container))
}

// findDefaultProperty finds the Default property, or a parameterized
// property named Item.
func (i *Interpreter) findDefaultProperty(cls *classInfo) (*ast.PropertyDeclaration, *classInfo) {
	for c, depth := cls, 0; c != nil && depth < maxClassDepth; c, depth = i.parentOf(c), depth+1 {
		for _, prop := range c.properties {
			if prop.Modifiers.Default {
				return prop, c
			}
		}
	}
	if prop, owner := i.findProperty(cls, "Item"); prop != nil && len(prop.Parameters) > 0 {
		return prop, owner
	}
	return nil, nil
}

// iterate lists the elements For Each visits.
func (i *Interpreter) iterate(v runtime.Value) ([]runtime.Value, error) {
	switch c := v.(type) {
	case *runtime.ArrayValue:
		return append([]runtime.Value(nil), c.Elements...), nil
	case *runtime.ListValue:
		return append([]runtime.Value(nil), c.Items...), nil
	case *runtime.QueueValue:
		return append([]runtime.Value(nil), c.Items...), nil
	case *runtime.StackValue:
		return c.TopFirst(), nil
	case *runtime.HashSetValue:
		return c.Items(), nil
	case *runtime.DictionaryValue:
		keys := c.Keys()
		out := make([]runtime.Value, len(keys))
		for idx, key := range keys {
			val, _ := c.Get(key)
			out[idx] = keyValuePair(key, val)
		}
		return out, nil
	case runtime.StringValue:
		runes := []rune(c.Val)
		out := make([]runtime.Value, len(runes))
		for idx, r := range runes {
			out[idx] = runtime.CharValue{Val: r}
		}
		return out, nil
	case *runtime.ObjectValue:
		if it, ok := c.Native.(nativeIterable); ok {
			return it.items(), nil
		}
		if cls := i.lookupClass(c.ClassName); cls != nil {
			if proc := i.findMethod(cls, "GetEnumerator", 0); proc != nil {
				inner, err := i.invokeProc(proc, nil, nil, c)
				if err != nil {
					return nil, err
				}
				if inner != runtime.Value(c) {
					return i.iterate(inner)
				}
			}
		}
	case nil, runtime.NothingValue:
		return nil, nullReference()
	}
	return nil, runtime.TypeMismatch("collection", runtime.TypeName(v))
}

func keyValuePair(key, val runtime.Value) *runtime.ObjectValue {
	pair := runtime.NewObject("KeyValuePair")
	pair.IsStruct = true
	pair.Set("Key", key)
	pair.Set("Value", val)
	return pair
}

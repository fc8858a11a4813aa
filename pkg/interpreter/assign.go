package interpreter

import (
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

func (i *Interpreter) execAssignment(n *ast.AssignmentStatement) error {
	val, err := i.evalExpression(n.Value)
	if err != nil {
		return err
	}
	if n.Operator != "" && n.Operator != ast.OpEqual {
		current, err := i.evalExpression(n.Target)
		if err != nil {
			return err
		}
		if val, err = binaryOp(n.Operator, current, val); err != nil {
			return err
		}
	}
	return i.assignTo(n.Target, val)
}

// assignTo stores v into the storage target names.
func (i *Interpreter) assignTo(target ast.Expression, v runtime.Value) error {
	switch t := target.(type) {
	case *ast.Identifier:
		return i.assignVariable(t.Name, v)
	case *ast.MemberAccessExpression:
		return i.assignMember(t, v)
	case *ast.CallExpression:
		return i.assignIndexed(t, v)
	case *ast.MeExpression:
		return runtime.Errorf("'Me' cannot be the target of an assignment")
	}
	return runtime.Errorf("invalid assignment target %s", target.NodeType())
}

// assignVariable resolves name the way reads do: local, field or property
// of Me, Shared member, global, module property; an unknown name becomes a
// local.
func (i *Interpreter) assignVariable(name string, v runtime.Value) error {
	v = runtime.CopyValue(v)
	if i.Env.IsConst(name) {
		return &runtime.Error{Kind: runtime.ErrConstantAssignment, Name: name}
	}
	if i.Env.HasLocal(name) {
		return i.Env.Set(name, v)
	}
	f := i.frame()
	if f.self != nil {
		if cls := i.lookupClass(f.self.ClassName); cls != nil {
			if prop, owner := i.findProperty(cls, name); prop != nil && !prop.IsAuto {
				return i.setProperty(f.self, owner, prop, nil, v)
			}
		}
		if f.self.Has(name) {
			f.self.Set(name, v)
			i.notifyPropertyChange(f.self, name, v)
			return nil
		}
	}
	if cls := i.dispatchClass(); cls != nil {
		if owner := i.sharedOwner(cls, name); owner != nil {
			owner.shared.Set(name, v)
			return nil
		}
		if f.self == nil {
			if prop, owner := i.findProperty(cls, name); prop != nil && prop.Modifiers.Shared && !prop.IsAuto {
				return i.setProperty(nil, owner, prop, nil, v)
			}
		}
	}
	if _, ok := i.Env.GetGlobal(name); ok {
		return i.Env.Set(name, v)
	}
	if proc := i.lookupProcedure("set_" + name); proc != nil {
		_, err := i.invokeProc(proc, []runtime.Value{v}, nil, nil)
		return err
	}
	return i.Env.Set(name, v)
}

// assignMember stores obj.Member = v.
func (i *Interpreter) assignMember(m *ast.MemberAccessExpression, v runtime.Value) error {
	if _, ok := m.Object.(*ast.MyBaseExpression); ok {
		self := i.frame().self
		if self == nil {
			return runtime.Errorf("'MyBase' is only valid inside an instance member")
		}
		if parent := i.parentOf(i.frame().class); parent != nil {
			if prop, owner := i.findProperty(parent, m.Member); prop != nil && !prop.IsAuto {
				return i.setProperty(self, owner, prop, nil, v)
			}
		}
		return i.setMember(self, m.Member, v)
	}
	if path, ok := i.qualifiedPath(m.Object); ok {
		return i.setQualified(path, m.Member, v)
	}
	owner, err := i.memberOwner(m)
	if err != nil {
		return err
	}
	return i.setMember(owner, m.Member, v)
}

// setQualified assigns Module.Var, Class.SharedField or a member of a
// default instance; an unknown head names a control and gets a proxy
// object.
func (i *Interpreter) setQualified(head, member string, v runtime.Value) error {
	lower := strings.ToLower(head)
	if _, ok := i.modules[lower]; ok {
		if _, ok := i.Env.GetGlobal(member); ok {
			return i.Env.Set(member, runtime.CopyValue(v))
		}
		if proc := i.lookupProcedure(head + ".set_" + member); proc != nil {
			_, err := i.invokeProc(proc, []runtime.Value{v}, nil, nil)
			return err
		}
		i.Env.DefineGlobal(member, runtime.CopyValue(v))
		return nil
	}
	if cls := i.lookupClass(head); cls != nil {
		if owner := i.sharedOwner(cls, member); owner != nil {
			owner.shared.Set(member, runtime.CopyValue(v))
			return nil
		}
		if prop, owner := i.findProperty(cls, member); prop != nil && prop.Modifiers.Shared {
			if prop.IsAuto {
				owner.shared.Set(member, runtime.CopyValue(v))
				return nil
			}
			return i.setProperty(nil, owner, prop, nil, v)
		}
		inst, err := i.defaultInstance(cls)
		if err != nil {
			return err
		}
		return i.setMember(inst, member, v)
	}
	target, err := i.getQualified(head)
	if err != nil {
		if !isUndefined(err) || strings.Contains(head, ".") {
			return err
		}
		proxy := i.controlProxy(head)
		return i.setMember(proxy, member, v)
	}
	return i.setMember(target, member, v)
}

// controlProxy stands in for a control referenced by name before any code
// declared it, so designer-less programs can still set its properties.
func (i *Interpreter) controlProxy(name string) *runtime.ObjectValue {
	obj := runtime.NewObject("Control")
	obj.Native = &uiObject{}
	initControlFields(obj, "Control")
	obj.Set("Name", runtime.StringValue{Val: name})
	i.Env.DefineGlobal(name, obj)
	return obj
}

// setMember assigns a field or runs a property setter on target.
func (i *Interpreter) setMember(target runtime.Value, name string, v runtime.Value) error {
	obj, ok := target.(*runtime.ObjectValue)
	if !ok {
		if runtime.IsNothing(target) {
			return nullReference()
		}
		return runtime.Errorf("Cannot set member '%s' on a value of type %s", name, runtime.TypeName(target))
	}
	if ref, ok := obj.Native.(namespaceRef); ok {
		return i.setQualified(ref.path, name, v)
	}
	if obj == i.errObject {
		obj.Set(name, v)
		return nil
	}
	if cls := i.lookupClass(obj.ClassName); cls != nil {
		if prop, owner := i.findProperty(cls, name); prop != nil && !prop.IsAuto {
			return i.setProperty(obj, owner, prop, nil, v)
		}
		if !obj.Has(name) {
			if owner := i.sharedOwner(cls, name); owner != nil {
				owner.shared.Set(name, runtime.CopyValue(v))
				return nil
			}
		}
	}
	if setter, ok := obj.Native.(nativeSetter); ok {
		handled, err := setter.setMember(i, obj, name, v)
		if handled || err != nil {
			return err
		}
	}
	obj.Set(name, runtime.CopyValue(v))
	i.notifyPropertyChange(obj, name, v)
	return nil
}

// setProperty runs a property's Set accessor with the value as its last
// argument.
func (i *Interpreter) setProperty(self *runtime.ObjectValue, owner *classInfo, prop *ast.PropertyDeclaration, index []runtime.Value, v runtime.Value) error {
	if prop.Setter == nil {
		return runtime.Errorf("Property '%s' is ReadOnly", prop.Name)
	}
	args := append(append([]runtime.Value{}, index...), v)
	_, err := i.invokeProc(i.propertySetter(owner, prop), args, nil, self)
	if err == nil && self != nil {
		i.notifyPropertyChange(self, prop.Name, v)
	}
	return err
}

// assignIndexed handles `a(i) = v`, `obj.Items(i) = v` and the Mid
// statement.
func (i *Interpreter) assignIndexed(call *ast.CallExpression, v runtime.Value) error {
	args, err := i.evalArgValues(call.Arguments)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return i.assignTo(call.Callee, v)
	}
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		if strings.EqualFold(callee.Name, "Mid") && !i.hasVariable(callee.Name) {
			return i.assignMid(call.Arguments, args, v)
		}
		if !i.hasVariable(callee.Name) {
			if cls := i.dispatchClass(); cls != nil {
				if prop, owner := i.findProperty(cls, callee.Name); prop != nil && len(prop.Parameters) > 0 {
					return i.setProperty(i.frame().self, owner, prop, args, v)
				}
			}
		}
	case *ast.MemberAccessExpression:
		var owner runtime.Value
		if path, ok := i.qualifiedPath(callee.Object); ok {
			owner, err = i.getQualified(path)
		} else if _, isBase := callee.Object.(*ast.MyBaseExpression); isBase {
			owner = i.frame().self
		} else {
			owner, err = i.memberOwner(callee)
		}
		if err != nil {
			return err
		}
		if obj, ok := owner.(*runtime.ObjectValue); ok {
			if cls := i.lookupClass(obj.ClassName); cls != nil {
				if prop, declaring := i.findProperty(cls, callee.Member); prop != nil && len(prop.Parameters) > 0 {
					return i.setProperty(obj, declaring, prop, args, v)
				}
			}
		}
		container, err := i.getMember(owner, callee.Member)
		if err != nil {
			return err
		}
		return i.setIndex(container, args, v)
	}
	container, err := i.evalExpression(call.Callee)
	if err != nil {
		return err
	}
	return i.setIndex(container, args, v)
}

// setIndex stores v at container(args).
func (i *Interpreter) setIndex(container runtime.Value, args []runtime.Value, v runtime.Value) error {
	switch c := container.(type) {
	case *runtime.ArrayValue:
		arr := c
		for depth, arg := range args {
			idx, err := roundedInteger(arg)
			if err != nil {
				return err
			}
			if idx < 0 || int(idx) >= len(arr.Elements) {
				return runtime.IndexOutOfRange(int(idx), len(arr.Elements))
			}
			if depth == len(args)-1 {
				arr.Elements[idx] = runtime.CopyValue(v)
				return nil
			}
			next, ok := arr.Elements[idx].(*runtime.ArrayValue)
			if !ok {
				return runtime.Errorf("Number of indices exceeds the number of dimensions of the indexed array")
			}
			arr = next
		}
		return nil
	case *runtime.ListValue:
		idx, err := roundedInteger(args[0])
		if err != nil {
			return err
		}
		offset, err := c.Index(int(idx))
		if err != nil {
			return err
		}
		c.Items[offset] = runtime.CopyValue(v)
		return nil
	case *runtime.DictionaryValue:
		c.Set(args[0], runtime.CopyValue(v))
		return nil
	case *runtime.ObjectValue:
		if indexer, ok := c.Native.(nativeIndexer); ok {
			return indexer.setIndex(i, args, v)
		}
		if cls := i.lookupClass(c.ClassName); cls != nil {
			if prop, owner := i.findDefaultProperty(cls); prop != nil {
				return i.setProperty(c, owner, prop, args, v)
			}
		}
		return runtime.Errorf("'%s' cannot be indexed because it has no default property", c.ClassName)
	case runtime.StringValue:
		return runtime.Errorf("Property 'Chars' is ReadOnly")
	case nil, runtime.NothingValue:
		return nullReference()
	}
	return runtime.Errorf("'%s' cannot be indexed", runtime.TypeName(container))
}

// assignMid implements `Mid(s, start[, length]) = replacement`.
func (i *Interpreter) assignMid(exprs []ast.Expression, args []runtime.Value, v runtime.Value) error {
	if len(args) < 2 || len(args) > 3 {
		return runtime.Errorf("Mid statement expects 2 or 3 arguments")
	}
	runes := []rune(displayString(args[0]))
	start, err := roundedInteger(args[1])
	if err != nil {
		return err
	}
	if start < 1 || int(start) > len(runes) {
		return runtime.Exception("ArgumentException", "Argument 'Start' is not a valid value.")
	}
	repl := []rune(displayString(v))
	length := int64(len(repl))
	if len(args) == 3 {
		if length, err = roundedInteger(args[2]); err != nil {
			return err
		}
	}
	offset := int(start) - 1
	n := int(length)
	if n > len(repl) {
		n = len(repl)
	}
	if offset+n > len(runes) {
		n = len(runes) - offset
	}
	copy(runes[offset:offset+n], repl[:n])
	return i.assignTo(exprs[0], runtime.StringValue{Val: string(runes)})
}

// execReDim reallocates arrays; Preserve keeps existing elements along the
// last dimension.
func (i *Interpreter) execReDim(n *ast.ReDimStatement) outcome {
	for _, target := range n.Targets {
		sizes, err := i.boundSizes(target.Bounds)
		if err != nil {
			return raised(err)
		}
		elem := i.redimElementType(target.Target)
		fresh := i.makeArray(sizes, elem)
		if n.Preserve {
			current, err := i.evalExpression(target.Target)
			if err != nil {
				return raised(err)
			}
			if old, ok := current.(*runtime.ArrayValue); ok {
				preserveInto(fresh, old)
			}
		}
		if err := i.assignTo(target.Target, fresh); err != nil {
			return raised(err)
		}
	}
	return normal
}

func (i *Interpreter) redimElementType(target ast.Expression) *ast.TypeRef {
	switch t := target.(type) {
	case *ast.Identifier:
		return i.arrayTypes[strings.ToLower(t.Name)]
	case *ast.MemberAccessExpression:
		return i.arrayTypes[strings.ToLower(t.Member)]
	}
	return nil
}

func preserveInto(fresh, old *runtime.ArrayValue) {
	for idx := 0; idx < len(fresh.Elements) && idx < len(old.Elements); idx++ {
		nf, okf := fresh.Elements[idx].(*runtime.ArrayValue)
		no, oko := old.Elements[idx].(*runtime.ArrayValue)
		if okf && oko {
			preserveInto(nf, no)
			continue
		}
		fresh.Elements[idx] = old.Elements[idx]
	}
}

package interpreter

import (
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// evalExpression evaluates an expression node. It never returns a nil
// Value together with a nil error.
func (i *Interpreter) evalExpression(expr ast.Expression) (runtime.Value, error) {
	val, err := i.evalNode(expr)
	if err == nil && val == nil {
		val = runtime.Nothing
	}
	return val, err
}

func (i *Interpreter) evalNode(expr ast.Expression) (runtime.Value, error) {
	switch n := expr.(type) {
	case nil:
		return runtime.Nothing, nil
	case *ast.IntegerLiteral:
		if n.IsLong {
			return runtime.LongValue{Val: n.Value}, nil
		}
		return integral(n.Value), nil
	case *ast.FloatLiteral:
		if n.IsSingle {
			return runtime.SingleValue{Val: float32(n.Value)}, nil
		}
		return runtime.DoubleValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.CharLiteral:
		return runtime.CharValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.DateLiteral:
		d, ok := runtime.ParseDate(n.Text)
		if !ok {
			return nil, runtime.Errorf("Invalid date literal #%s#", n.Text)
		}
		return runtime.DateValue{Val: d}, nil
	case *ast.NothingLiteral:
		return runtime.Nothing, nil
	case *ast.ArrayLiteral:
		elements := make([]runtime.Value, len(n.Elements))
		for idx, el := range n.Elements {
			val, err := i.evalExpression(el)
			if err != nil {
				return nil, err
			}
			elements[idx] = runtime.CopyValue(val)
		}
		return runtime.NewArray(elements), nil
	case *ast.InterpolatedString:
		return i.evalInterpolated(n)
	case *ast.Identifier:
		return i.lookupIdentifier(n.Name)
	case *ast.MemberAccessExpression:
		return i.evalMemberAccess(n)
	case *ast.CallExpression:
		return i.evalCall(n)
	case *ast.NamedArgument:
		return i.evalExpression(n.Value)
	case *ast.OmittedArgument:
		return runtime.Nothing, nil
	case *ast.BinaryExpression:
		return i.evalBinary(n)
	case *ast.UnaryExpression:
		return i.evalUnary(n)
	case *ast.TypeOfExpression:
		val, err := i.evalExpression(n.Operand)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: i.isInstanceOf(val, n.Type) != n.Negated}, nil
	case *ast.CastExpression:
		return i.evalCast(n)
	case *ast.NewExpression:
		return i.evalNew(n)
	case *ast.LambdaExpression:
		return &runtime.LambdaValue{
			Parameters: n.Parameters,
			IsFunction: n.IsFunction,
			Body:       n.Body,
			Statements: n.Statements,
			Captured:   i.Env.Snapshot(),
			Receiver:   i.frame().self,
		}, nil
	case *ast.AddressOfExpression:
		return i.evalAddressOf(n)
	case *ast.AwaitExpression:
		val, err := i.evalExpression(n.Operand)
		if err != nil {
			return nil, err
		}
		if task, ok := val.(*runtime.ObjectValue); ok && task.ClassName == "Task" {
			return task.Get("Result"), nil
		}
		return val, nil
	case *ast.MeExpression:
		return i.evalMe()
	case *ast.MyBaseExpression:
		return i.evalMe()
	case *ast.IfExpression:
		return i.evalIfExpression(n)
	case *ast.QueryExpression:
		return i.evalQuery(n)
	}
	return nil, runtime.Errorf("unsupported expression type: %s", expr.NodeType())
}

// evalMe returns the current instance; at module level Me names the
// module.
func (i *Interpreter) evalMe() (runtime.Value, error) {
	f := i.frame()
	if f.self != nil {
		return f.self, nil
	}
	if f.class != nil {
		return namespaceObject(strings.ToLower(f.class.name)), nil
	}
	if cls := i.lookupClass(f.module); cls != nil && i.isFormClass(cls) {
		return i.defaultInstance(cls)
	}
	return namespaceObject(strings.ToLower(f.module)), nil
}

func (i *Interpreter) evalIfExpression(n *ast.IfExpression) (runtime.Value, error) {
	if n.Condition == nil {
		val, err := i.evalExpression(n.Then)
		if err != nil {
			return nil, err
		}
		if !runtime.IsNothing(val) {
			return val, nil
		}
		return i.evalExpression(n.Else)
	}
	ok, err := i.evalCondition(n.Condition)
	if err != nil {
		return nil, err
	}
	if ok {
		return i.evalExpression(n.Then)
	}
	return i.evalExpression(n.Else)
}

func (i *Interpreter) evalInterpolated(n *ast.InterpolatedString) (runtime.Value, error) {
	var sb strings.Builder
	for _, part := range n.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Literal)
			continue
		}
		val, err := i.evalExpression(part.Expr)
		if err != nil {
			return nil, err
		}
		if part.Format != "" {
			sb.WriteString(formatComposite(val, part.Format))
		} else {
			sb.WriteString(displayString(val))
		}
	}
	return runtime.StringValue{Val: sb.String()}, nil
}

// evalCast implements CType, DirectCast and TryCast.
func (i *Interpreter) evalCast(n *ast.CastExpression) (runtime.Value, error) {
	val, err := i.evalExpression(n.Operand)
	if err != nil {
		return nil, err
	}
	if n.Kind == ast.CastTryCast {
		if i.isInstanceOf(val, n.Type) {
			return val, nil
		}
		return runtime.Nothing, nil
	}
	if scalarTypeKey(n.Type.Name) != "" || n.Type.IsArray {
		return i.coerceToType(val, n.Type)
	}
	if _, ok := i.enums[strings.ToLower(n.Type.Name)]; ok {
		return i.coerceToType(val, n.Type)
	}
	if runtime.IsNothing(val) || i.isInstanceOf(val, n.Type) {
		return val, nil
	}
	if i.lookupClass(n.Type.Name) != nil || i.interfaces[strings.ToLower(n.Type.Name)] != nil {
		return nil, runtime.Exception("InvalidCastException", "Unable to cast object of type '"+runtime.TypeName(val)+"' to type '"+n.Type.Name+"'.")
	}
	return val, nil
}

// evalAddressOf builds a delegate to a named procedure or method.
func (i *Interpreter) evalAddressOf(n *ast.AddressOfExpression) (runtime.Value, error) {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		f := i.frame()
		if cls := i.dispatchClass(); cls != nil {
			if proc := i.findMethod(cls, target.Name, -1); proc != nil {
				if proc.shared || f.self == nil {
					return &runtime.LambdaValue{Procedure: cls.name + "." + target.Name}, nil
				}
				return &runtime.LambdaValue{Procedure: target.Name, Receiver: f.self}, nil
			}
		}
		return &runtime.LambdaValue{Procedure: target.Name}, nil
	case *ast.MemberAccessExpression:
		if _, ok := target.Object.(*ast.MeExpression); ok && i.frame().self != nil {
			return &runtime.LambdaValue{Procedure: target.Member, Receiver: i.frame().self}, nil
		}
		if path, ok := i.qualifiedPath(target.Object); ok {
			return &runtime.LambdaValue{Procedure: path + "." + target.Member}, nil
		}
		owner, err := i.memberOwner(target)
		if err != nil {
			return nil, err
		}
		if obj, ok := owner.(*runtime.ObjectValue); ok {
			return &runtime.LambdaValue{Procedure: target.Member, Receiver: obj}, nil
		}
		return nil, runtime.TypeMismatch("Object", runtime.TypeName(owner))
	}
	return nil, runtime.Errorf("AddressOf expects a procedure name")
}

// evalNew creates arrays, user class instances and builtin objects, then
// applies With {...} initializers and From {...} items.
func (i *Interpreter) evalNew(n *ast.NewExpression) (runtime.Value, error) {
	if n.Type == nil {
		anon := runtime.NewObject("AnonymousType")
		for _, init := range n.Initializers {
			val, err := i.evalExpression(init.Value)
			if err != nil {
				return nil, err
			}
			anon.Set(init.Name, runtime.CopyValue(val))
		}
		return anon, nil
	}
	if n.IsArray || n.Type.IsArray {
		return i.newArray(n)
	}
	args, err := i.evalArgValues(n.Arguments)
	if err != nil {
		return nil, err
	}
	var obj runtime.Value
	if cls := i.lookupClass(n.Type.Name); cls != nil {
		inst, err := i.instantiate(cls, args, n.Arguments)
		if err != nil {
			return nil, err
		}
		obj = inst
	} else {
		if obj, err = i.newBuiltin(n.Type, args); err != nil {
			return nil, err
		}
	}
	for _, init := range n.Initializers {
		val, err := i.evalExpression(init.Value)
		if err != nil {
			return nil, err
		}
		if err := i.setMember(obj, init.Name, val); err != nil {
			return nil, err
		}
	}
	for _, item := range n.Items {
		var itemArgs []runtime.Value
		if lit, ok := item.(*ast.ArrayLiteral); ok {
			vals, err := i.evalArgValues(lit.Elements)
			if err != nil {
				return nil, err
			}
			itemArgs = vals
		} else {
			val, err := i.evalExpression(item)
			if err != nil {
				return nil, err
			}
			itemArgs = []runtime.Value{val}
		}
		if _, err := i.callMethod(obj, "Add", itemArgs, nil); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// newArray handles `New T() {items}` and `New T(ub) {}`.
func (i *Interpreter) newArray(n *ast.NewExpression) (runtime.Value, error) {
	elem := &ast.TypeRef{Name: n.Type.Name, Arguments: n.Type.Arguments, Nullable: n.Type.Nullable}
	if len(n.Items) > 0 || len(n.Arguments) == 0 {
		out := make([]runtime.Value, len(n.Items))
		for idx, item := range n.Items {
			val, err := i.evalExpression(item)
			if err != nil {
				return nil, err
			}
			if _, nested := val.(*runtime.ArrayValue); !nested {
				if val, err = i.coerceToType(val, elem); err != nil {
					return nil, err
				}
			}
			out[idx] = runtime.CopyValue(val)
		}
		return runtime.NewArray(out), nil
	}
	sizes, err := i.boundSizes(n.Arguments)
	if err != nil {
		return nil, err
	}
	return i.makeArray(sizes, elem), nil
}

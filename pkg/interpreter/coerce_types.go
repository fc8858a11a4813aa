package interpreter

import (
	"math"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// typeKey lowercases a type name and drops namespace qualifiers, so
// System.Int32 and Int32 compare equal.
func typeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		key = key[idx+1:]
	}
	return key
}

func scalarTypeKey(name string) string {
	switch typeKey(name) {
	case "integer", "int32", "short", "int16", "ushort", "uint16", "uinteger", "uint32", "sbyte":
		return "integer"
	case "long", "int64", "ulong", "uint64":
		return "long"
	case "single", "float":
		return "single"
	case "double", "decimal", "currency":
		return "double"
	case "byte":
		return "byte"
	case "char":
		return "char"
	case "boolean", "bool":
		return "boolean"
	case "string":
		return "string"
	case "date", "datetime":
		return "date"
	case "object", "variant":
		return "object"
	}
	return ""
}

// zeroValue is the value a variable of type t starts with.
func (i *Interpreter) zeroValue(t *ast.TypeRef) runtime.Value {
	if t == nil {
		return runtime.Nothing
	}
	if t.IsArray {
		return runtime.NewArray(nil)
	}
	if t.Nullable {
		return runtime.Nothing
	}
	switch scalarTypeKey(t.Name) {
	case "integer":
		return runtime.IntegerValue{}
	case "long":
		return runtime.LongValue{}
	case "single":
		return runtime.SingleValue{}
	case "double":
		return runtime.DoubleValue{}
	case "byte":
		return runtime.ByteValue{}
	case "char":
		return runtime.CharValue{}
	case "boolean":
		return runtime.BoolValue{}
	case "string":
		return runtime.StringValue{}
	case "date":
		return runtime.DateValue{}
	case "object":
		return runtime.Nothing
	}
	if cls := i.lookupClass(t.Name); cls != nil && cls.isStruct {
		if obj, err := i.newStructValue(cls); err == nil {
			return obj
		}
	}
	if _, ok := i.enums[strings.ToLower(t.Name)]; ok {
		return runtime.IntegerValue{}
	}
	return runtime.Nothing
}

func overflow() *runtime.Error {
	return runtime.Exception("OverflowException", "Arithmetic operation resulted in an overflow.")
}

// roundedInteger converts v to an integer the way CInt does: fractions round
// to even, everything else converts exactly.
func roundedInteger(v runtime.Value) (int64, error) {
	switch v.(type) {
	case runtime.SingleValue, runtime.DoubleValue, runtime.StringValue, runtime.DateValue:
		f, err := runtime.AsDouble(v)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
			return 0, overflow()
		}
		return int64(math.RoundToEven(f)), nil
	}
	return runtime.AsLong(v)
}

// coerceToType converts v for storage in a variable declared As t.
func (i *Interpreter) coerceToType(v runtime.Value, t *ast.TypeRef) (runtime.Value, error) {
	if t == nil || t.IsArray {
		return v, nil
	}
	if runtime.IsNothing(v) {
		if t.Nullable {
			return runtime.Nothing, nil
		}
		return i.zeroValue(t), nil
	}
	switch scalarTypeKey(t.Name) {
	case "integer":
		n, err := roundedInteger(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, overflow()
		}
		return runtime.IntegerValue{Val: int32(n)}, nil
	case "long":
		n, err := roundedInteger(v)
		if err != nil {
			return nil, err
		}
		return runtime.LongValue{Val: n}, nil
	case "byte":
		n, err := roundedInteger(v)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 255 {
			return nil, overflow()
		}
		return runtime.ByteValue{Val: uint8(n)}, nil
	case "single":
		f, err := runtime.AsDouble(v)
		if err != nil {
			return nil, err
		}
		return runtime.SingleValue{Val: float32(f)}, nil
	case "double":
		f, err := runtime.AsDouble(v)
		if err != nil {
			return nil, err
		}
		return runtime.DoubleValue{Val: f}, nil
	case "char":
		r, err := runtime.AsChar(v)
		if err != nil {
			return nil, err
		}
		return runtime.CharValue{Val: r}, nil
	case "boolean":
		b, err := runtime.AsBool(v)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: b}, nil
	case "string":
		if arr, ok := v.(*runtime.ArrayValue); ok {
			if s, ok := charArrayString(arr); ok {
				return runtime.StringValue{Val: s}, nil
			}
		}
		return runtime.StringValue{Val: runtime.AsString(v)}, nil
	case "date":
		d, err := runtime.AsDate(v)
		if err != nil {
			return nil, err
		}
		return runtime.DateValue{Val: d}, nil
	case "object":
		return v, nil
	}
	if _, ok := i.enums[strings.ToLower(t.Name)]; ok {
		n, err := roundedInteger(v)
		if err != nil {
			return nil, err
		}
		return integral(n), nil
	}
	return v, nil
}

func charArrayString(arr *runtime.ArrayValue) (string, bool) {
	var sb strings.Builder
	for _, el := range arr.Elements {
		c, ok := el.(runtime.CharValue)
		if !ok {
			return "", false
		}
		sb.WriteRune(c.Val)
	}
	return sb.String(), true
}

func (i *Interpreter) evalConstant(expr ast.Expression, t *ast.TypeRef) (runtime.Value, error) {
	val, err := i.evalExpression(expr)
	if err != nil {
		return nil, err
	}
	return i.coerceToType(val, t)
}

// declaratorValue computes the initial value of one Dim declarator.
func (i *Interpreter) declaratorValue(v *ast.VariableDeclarator) (runtime.Value, error) {
	if v.Type != nil && (v.IsArray || v.Type.IsArray) {
		i.arrayTypes[strings.ToLower(v.Name)] = v.Type
	}
	switch {
	case len(v.Bounds) > 0:
		sizes, err := i.boundSizes(v.Bounds)
		if err != nil {
			return nil, err
		}
		return i.makeArray(sizes, v.Type), nil
	case v.IsNew:
		if n, ok := v.Initializer.(*ast.NewExpression); ok {
			return i.evalNew(n)
		}
		return i.evalNew(ast.NewNewExpression(v.Type, v.NewArgs, nil, nil, false))
	case v.Initializer != nil:
		val, err := i.evalExpression(v.Initializer)
		if err != nil {
			return nil, err
		}
		if arr, ok := val.(*runtime.ArrayValue); ok && v.Type != nil {
			return i.coerceElements(arr, v.Type)
		}
		if v.IsArray {
			return runtime.CopyValue(val), nil
		}
		val, err = i.coerceToType(val, v.Type)
		if err != nil {
			return nil, err
		}
		return runtime.CopyValue(val), nil
	case v.IsArray:
		return runtime.NewArray(nil), nil
	}
	return i.zeroValue(v.Type), nil
}

// coerceElements copies arr converting every leaf element to the element
// type of t.
func (i *Interpreter) coerceElements(arr *runtime.ArrayValue, t *ast.TypeRef) (runtime.Value, error) {
	elem := &ast.TypeRef{Name: t.Name, Arguments: t.Arguments, Nullable: t.Nullable}
	out := make([]runtime.Value, len(arr.Elements))
	for idx, el := range arr.Elements {
		if nested, ok := el.(*runtime.ArrayValue); ok {
			copied, err := i.coerceElements(nested, t)
			if err != nil {
				return nil, err
			}
			out[idx] = copied
			continue
		}
		val, err := i.coerceToType(el, elem)
		if err != nil {
			return nil, err
		}
		out[idx] = runtime.CopyValue(val)
	}
	return runtime.NewArray(out), nil
}

// boundSizes evaluates upper bounds into element counts.
func (i *Interpreter) boundSizes(bounds []ast.Expression) ([]int, error) {
	sizes := make([]int, len(bounds))
	for idx, b := range bounds {
		val, err := i.evalExpression(b)
		if err != nil {
			return nil, err
		}
		ub, err := roundedInteger(val)
		if err != nil {
			return nil, err
		}
		if ub < -1 {
			return nil, runtime.Exception("OverflowException", "Array dimensions exceeded supported range.")
		}
		sizes[idx] = int(ub) + 1
	}
	return sizes, nil
}

// makeArray builds a (possibly nested) array filled with zero values.
func (i *Interpreter) makeArray(sizes []int, elem *ast.TypeRef) *runtime.ArrayValue {
	var scalar *ast.TypeRef
	if elem != nil {
		scalar = &ast.TypeRef{Name: elem.Name, Arguments: elem.Arguments, Nullable: elem.Nullable}
	}
	out := make([]runtime.Value, sizes[0])
	for idx := range out {
		if len(sizes) > 1 {
			out[idx] = i.makeArray(sizes[1:], elem)
		} else {
			out[idx] = i.zeroValue(scalar)
		}
	}
	return runtime.NewArray(out)
}

func (i *Interpreter) autoPropertyValue(prop *ast.PropertyDeclaration) (runtime.Value, error) {
	if prop.Initializer != nil {
		return i.evalConstant(prop.Initializer, prop.Type)
	}
	return i.zeroValue(prop.Type), nil
}

// builtinParents is the exception and control hierarchy for builtin types.
var builtinParents = map[string]string{
	"systemexception":              "exception",
	"applicationexception":         "exception",
	"arithmeticexception":          "systemexception",
	"dividebyzeroexception":        "arithmeticexception",
	"overflowexception":            "arithmeticexception",
	"argumentexception":            "systemexception",
	"argumentnullexception":        "argumentexception",
	"argumentoutofrangeexception":  "argumentexception",
	"formatexception":              "systemexception",
	"indexoutofrangeexception":     "systemexception",
	"invalidcastexception":         "systemexception",
	"invalidoperationexception":    "systemexception",
	"objectdisposedexception":      "invalidoperationexception",
	"keynotfoundexception":         "systemexception",
	"nullreferenceexception":       "systemexception",
	"notimplementedexception":      "systemexception",
	"notsupportedexception":        "systemexception",
	"memberaccessexception":        "systemexception",
	"missingmemberexception":       "memberaccessexception",
	"stackoverflowexception":       "systemexception",
	"ioexception":                  "systemexception",
	"filenotfoundexception":        "ioexception",
	"directorynotfoundexception":   "ioexception",
	"endofstreamexception":         "ioexception",
	"cryptographicexception":       "systemexception",
	"dataexception":                "systemexception",
	"sqlexception":                 "dataexception",
	"sqliteexception":              "dataexception",
	"regexmatchtimeoutexception":   "timeoutexception",
	"timeoutexception":             "systemexception",
	"form":                         "containercontrol",
	"usercontrol":                  "containercontrol",
	"containercontrol":             "control",
	"button":                       "control",
	"label":                        "control",
	"textbox":                      "control",
	"checkbox":                     "control",
	"radiobutton":                  "control",
	"listbox":                      "control",
	"combobox":                     "control",
	"panel":                        "control",
	"groupbox":                     "control",
	"picturebox":                   "control",
	"datagridview":                 "control",
	"timer":                        "component",
	"control":                      "component",
	"bindingsource":                "component",
	"exception":                    "object",
	"component":                    "object",
}

// ancestry lists the lowercased names className answers to in TypeOf and
// Catch: itself, its parents, the interfaces it implements and the
// builtin types it derives from.
func (i *Interpreter) ancestry(className string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) bool {
		key := typeKey(name)
		if key == "" || seen[key] {
			return false
		}
		seen[key] = true
		out = append(out, key)
		return true
	}
	name := className
	for depth := 0; name != "" && depth < 64; depth++ {
		if !add(name) {
			break
		}
		cls := i.lookupClass(name)
		if cls == nil {
			name = builtinParents[typeKey(name)]
			continue
		}
		for _, iface := range cls.implements {
			i.addInterfaces(iface, add)
		}
		name = cls.parent
	}
	add("object")
	return out
}

func (i *Interpreter) addInterfaces(name string, add func(string) bool) {
	if !add(name) {
		return
	}
	if decl, ok := i.interfaces[strings.ToLower(name)]; ok {
		for _, parent := range decl.Inherits {
			i.addInterfaces(parent, add)
		}
	}
}

// isInstanceOf implements TypeOf ... Is and TryCast.
func (i *Interpreter) isInstanceOf(v runtime.Value, t *ast.TypeRef) bool {
	if runtime.IsNothing(v) {
		return false
	}
	want := typeKey(t.Name)
	if t.IsArray {
		_, ok := v.(*runtime.ArrayValue)
		return ok
	}
	if want == "object" {
		return true
	}
	if scalar := scalarTypeKey(t.Name); scalar != "" {
		return scalarTypeKey(runtime.TypeName(v)) == scalar && sameScalarKind(v, t.Name)
	}
	switch val := v.(type) {
	case *runtime.ObjectValue:
		for _, name := range i.ancestry(val.ClassName) {
			if name == want {
				return true
			}
		}
		return false
	case *runtime.ListValue:
		switch want {
		case typeKey(val.TypeName), "list", "ilist", "ienumerable", "icollection":
			return true
		}
	case *runtime.DictionaryValue:
		switch want {
		case "dictionary", "idictionary", "hashtable", "ienumerable", "icollection":
			return true
		}
	case *runtime.QueueValue:
		return want == "queue" || want == "ienumerable"
	case *runtime.StackValue:
		return want == "stack" || want == "ienumerable"
	case *runtime.HashSetValue:
		return want == "hashset" || want == "ienumerable"
	case *runtime.ArrayValue:
		return want == "array" || want == "ienumerable"
	case *runtime.LambdaValue:
		if want == "delegate" || want == "action" || want == "func" {
			return true
		}
		_, ok := i.delegateTypes[want]
		return ok
	}
	return false
}

// sameScalarKind keeps Integer distinct from Long, since both share the
// "integer" family name only for the narrower aliases.
func sameScalarKind(v runtime.Value, name string) bool {
	switch typeKey(name) {
	case "short", "int16", "ushort", "uint16", "sbyte", "uinteger", "uint32":
		_, ok := v.(runtime.IntegerValue)
		return ok
	case "decimal", "currency":
		_, ok := v.(runtime.DoubleValue)
		return ok
	}
	return true
}

package interpreter

import (
	"strings"
	"sync"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// builtinFunc implements one builtin function or static member. A nil args
// slice means the name was read without call syntax.
type builtinFunc func(i *Interpreter, args []runtime.Value) (runtime.Value, error)

// builtins is keyed by lowercased, possibly dotted, names. Each
// builtins_*.go file adds its table from init.
var builtins = map[string]builtinFunc{}

func registerBuiltins(table map[string]builtinFunc) {
	for name, fn := range table {
		builtins[name] = fn
	}
}

// namespacePrefixesToStrip are .NET namespaces that builtin names may be
// written under: System.Math.Max, Microsoft.VisualBasic.Strings.Left.
var namespacePrefixesToStrip = []string{
	"global.",
	"system.",
	"microsoft.visualbasic.",
	"windows.forms.",
	"io.",
	"xml.linq.",
	"text.regularexpressions.",
	"text.",
	"collections.generic.",
	"collections.",
	"security.cryptography.",
	"diagnostics.",
	"globalization.",
	"threading.tasks.",
	"threading.",
	"data.sqlite.",
	"data.sqlclient.",
	"data.oledb.",
	"data.",
	"interaction.",
	"strings.",
	"conversion.",
	"dateandtime.",
	"vbmath.",
	"information.",
	"filesystem.",
	"financial.",
	"constants.",
}

// normalizeBuiltinName strips namespace qualifiers from a lowercased name.
func normalizeBuiltinName(name string) string {
	for {
		stripped := false
		for _, prefix := range namespacePrefixesToStrip {
			if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
				name = name[len(prefix):]
				stripped = true
			}
		}
		if !stripped {
			return name
		}
	}
}

func lookupBuiltin(name string) (builtinFunc, bool) {
	key := strings.ToLower(name)
	if fn, ok := builtins[key]; ok {
		return fn, true
	}
	key = normalizeBuiltinName(key)
	fn, ok := builtins[key]
	return fn, ok
}

// callBuiltin calls a builtin by name; found is false when no builtin has
// that name.
func (i *Interpreter) callBuiltin(name string, args []runtime.Value) (val runtime.Value, found bool, err error) {
	fn, ok := lookupBuiltin(name)
	if !ok {
		return nil, false, nil
	}
	val, err = fn(i, args)
	return val, true, err
}

// byRefBuiltins names builtins that assign to some of their arguments,
// keyed by normalized name and listing the argument indices.
var byRefBuiltins = map[string][]int{
	"integer.tryparse":  {1},
	"int32.tryparse":    {1},
	"int16.tryparse":    {1},
	"long.tryparse":     {1},
	"int64.tryparse":    {1},
	"double.tryparse":   {1},
	"single.tryparse":   {1},
	"decimal.tryparse":  {1},
	"boolean.tryparse":  {1},
	"byte.tryparse":     {1},
	"date.tryparse":     {1},
	"datetime.tryparse": {1},
	"guid.tryparse":     {1},
}

// applyBuiltin calls fn and copies ByRef results back into the caller's
// arguments.
func (i *Interpreter) applyBuiltin(name string, fn builtinFunc, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	val, err := fn(i, args)
	if err != nil || argExprs == nil {
		return val, err
	}
	for _, idx := range byRefBuiltins[normalizeBuiltinName(strings.ToLower(name))] {
		if idx < len(args) && idx < len(argExprs) {
			if err := i.writeBack(argExprs, idx, "", args[idx]); err != nil {
				return nil, err
			}
		}
	}
	return val, nil
}

var (
	builtinNamespacesOnce sync.Once
	builtinNamespaces     map[string]bool
)

// isBuiltinNamespace reports whether name is a prefix of some dotted
// builtin (console, my.computer.filesystem) or a known .NET namespace.
func isBuiltinNamespace(name string) bool {
	builtinNamespacesOnce.Do(func() {
		builtinNamespaces = make(map[string]bool)
		for key := range builtins {
			parts := strings.Split(key, ".")
			for idx := 1; idx < len(parts); idx++ {
				builtinNamespaces[strings.Join(parts[:idx], ".")] = true
			}
		}
		for _, prefix := range namespacePrefixesToStrip {
			builtinNamespaces[strings.TrimSuffix(prefix, ".")] = true
		}
		for _, ns := range []string{"microsoft", "system.windows", "system.security", "system.text", "system.collections", "system.data", "system.threading", "my"} {
			builtinNamespaces[ns] = true
		}
	})
	key := strings.ToLower(name)
	return builtinNamespaces[key] || builtinNamespaces[normalizeBuiltinName(key)]
}

// arity validates the argument count of a builtin; max < 0 means
// unbounded.
func arity(name string, args []runtime.Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return runtime.Exception("ArgumentException", "Wrong number of arguments to '"+name+"'")
	}
	return nil
}

func argString(args []runtime.Value, idx int) string {
	if idx >= len(args) {
		return ""
	}
	return displayString(args[idx])
}

func argInt(args []runtime.Value, idx int) (int, error) {
	if idx >= len(args) {
		return 0, nil
	}
	n, err := roundedInteger(args[idx])
	return int(n), err
}

func optInt(args []runtime.Value, idx int, def int) (int, error) {
	if idx >= len(args) || runtime.IsNothing(args[idx]) {
		return def, nil
	}
	return argInt(args, idx)
}

func argDouble(args []runtime.Value, idx int) (float64, error) {
	if idx >= len(args) {
		return 0, nil
	}
	return runtime.AsDouble(args[idx])
}

func optDouble(args []runtime.Value, idx int, def float64) (float64, error) {
	if idx >= len(args) || runtime.IsNothing(args[idx]) {
		return def, nil
	}
	return runtime.AsDouble(args[idx])
}

func argBool(args []runtime.Value, idx int) (bool, error) {
	if idx >= len(args) {
		return false, nil
	}
	return runtime.AsBool(args[idx])
}

func str(s string) runtime.Value {
	return runtime.StringValue{Val: s}
}

func boolean(b bool) runtime.Value {
	return runtime.BoolValue{Val: b}
}

func double(f float64) runtime.Value {
	return runtime.DoubleValue{Val: f}
}

// constant registers a read-only builtin value.
func constant(v runtime.Value) builtinFunc {
	return func(*Interpreter, []runtime.Value) (runtime.Value, error) {
		return v, nil
	}
}

// unaryMath adapts a one-argument function over Double.
func unaryMath(name string, fn func(float64) float64) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		return double(fn(f)), nil
	}
}

// stringItems lists the strings of an array argument, or of every argument
// when the array is passed inline.
func stringItems(i *Interpreter, args []runtime.Value) ([]string, error) {
	items := args
	if len(args) == 1 {
		if _, ok := args[0].(runtime.StringValue); !ok {
			vals, err := i.iterate(args[0])
			if err != nil {
				return nil, err
			}
			items = vals
		}
	}
	out := make([]string, len(items))
	for idx, item := range items {
		out[idx] = displayString(item)
	}
	return out, nil
}

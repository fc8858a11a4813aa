package interpreter

import (
	"sort"
	"strings"
	"unicode"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"isnumeric":   builtinIsNumeric,
		"isarray":     predicate("IsArray", func(v runtime.Value) bool { _, ok := v.(*runtime.ArrayValue); return ok }),
		"isnothing":   predicate("IsNothing", runtime.IsNothing),
		"isdbnull":    predicate("IsDBNull", isDBNull),
		"isreference": predicate("IsReference", func(v runtime.Value) bool { return runtime.IsNothing(v) || runtime.IsReference(v) }),
		"iserror":     predicate("IsError", isErrorValue),
		"ismissing":   predicate("IsMissing", runtime.IsNothing),
		"isempty":     predicate("IsEmpty", func(v runtime.Value) bool { return runtime.IsNothing(v) || v == runtime.Value(runtime.StringValue{}) }),
		"typename":    builtinTypeName,
		"vartype":     builtinVarType,
		"iif":         builtinIIf,
		"choose":      builtinChoose,
		"switch":      builtinSwitch,
		"array":       builtinArray,
		"ubound":      arrayBound("UBound", true),
		"lbound":      arrayBound("LBound", false),

		"dbnull.value":       constant(dbNull),
		"array.sort":         builtinArraySort,
		"array.reverse":      builtinArrayReverse,
		"array.indexof":      arraySearch("Array.IndexOf", false),
		"array.lastindexof":  arraySearch("Array.LastIndexOf", true),
		"array.resize":       builtinArrayResize,
		"array.copy":         builtinArrayCopy,
		"array.clear":        builtinArrayClear,
		"array.exists":       arrayPredicate("Array.Exists"),
		"array.find":         arrayPredicate("Array.Find"),
		"array.findall":      arrayPredicate("Array.FindAll"),
		"array.findindex":    arrayPredicate("Array.FindIndex"),
		"array.trueforall":   arrayPredicate("Array.TrueForAll"),
		"array.binarysearch": builtinBinarySearch,
		"array.empty":        builtinArrayEmpty,
	})
	byRefBuiltins["array.resize"] = []int{0}
}

// dbNull is the value of DBNull.Value and of NULL database columns.
var dbNull = func() *runtime.ObjectValue {
	obj := runtime.NewObject("DBNull")
	obj.IsStruct = true
	return obj
}()

func isDBNull(v runtime.Value) bool {
	obj, ok := v.(*runtime.ObjectValue)
	return runtime.IsNothing(v) || ok && obj.ClassName == "DBNull"
}

func isErrorValue(v runtime.Value) bool {
	obj, ok := v.(*runtime.ObjectValue)
	return ok && strings.HasSuffix(strings.ToLower(obj.ClassName), "exception")
}

func predicate(name string, pred func(runtime.Value) bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return boolean(pred(args[0])), nil
	}
}

func builtinIsNumeric(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("IsNumeric", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case runtime.IntegerValue, runtime.LongValue, runtime.SingleValue, runtime.DoubleValue, runtime.ByteValue, runtime.BoolValue:
		return boolean(true), nil
	case runtime.CharValue:
		return boolean(unicode.IsDigit(v.Val)), nil
	case runtime.StringValue:
		s := strings.TrimSpace(v.Val)
		if s == "" {
			return boolean(false), nil
		}
		_, err := runtime.AsDouble(runtime.StringValue{Val: strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")})
		return boolean(err == nil), nil
	}
	return boolean(false), nil
}

func builtinTypeName(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("TypeName", args, 1, 1); err != nil {
		return nil, err
	}
	if arr, ok := args[0].(*runtime.ArrayValue); ok {
		elem := "Object"
		if len(arr.Elements) > 0 && !runtime.IsNothing(arr.Elements[0]) {
			elem = runtime.TypeName(arr.Elements[0])
		}
		return str(elem + "()"), nil
	}
	return str(runtime.TypeName(args[0])), nil
}

func builtinVarType(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("VarType", args, 1, 1); err != nil {
		return nil, err
	}
	if arr, ok := args[0].(*runtime.ArrayValue); ok && len(arr.Elements) > 0 {
		return runtime.IntegerValue{Val: 8192 + runtime.VarType(arr.Elements[0])}, nil
	}
	return runtime.IntegerValue{Val: runtime.VarType(args[0])}, nil
}

// builtinIIf takes already-evaluated arguments: both branches run.
func builtinIIf(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("IIf", args, 3, 3); err != nil {
		return nil, err
	}
	cond, err := runtime.AsBool(args[0])
	if err != nil {
		return nil, err
	}
	if cond {
		return args[1], nil
	}
	return args[2], nil
}

func builtinChoose(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Choose", args, 1, -1); err != nil {
		return nil, err
	}
	idx, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	choices := args[1:]
	if len(choices) == 1 {
		if arr, ok := choices[0].(*runtime.ArrayValue); ok {
			choices = arr.Elements
		}
	}
	if idx < 1 || idx > len(choices) {
		return runtime.Nothing, nil
	}
	return choices[idx-1], nil
}

func builtinSwitch(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if len(args)%2 != 0 {
		return nil, runtime.Exception("ArgumentException", "Argument 'VarExpr' must have an even number of elements.")
	}
	for idx := 0; idx < len(args); idx += 2 {
		cond, err := runtime.AsBool(args[idx])
		if err != nil {
			return nil, err
		}
		if cond {
			return args[idx+1], nil
		}
	}
	return runtime.Nothing, nil
}

func builtinArray(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	out := make([]runtime.Value, len(args))
	for idx, arg := range args {
		out[idx] = runtime.CopyValue(arg)
	}
	return runtime.NewArray(out), nil
}

func arrayArg(name string, args []runtime.Value, idx int) (*runtime.ArrayValue, error) {
	if idx >= len(args) {
		return nil, runtime.Exception("ArgumentException", "Wrong number of arguments to '"+name+"'")
	}
	switch a := args[idx].(type) {
	case *runtime.ArrayValue:
		return a, nil
	case nil, runtime.NothingValue:
		return nil, runtime.Exception("ArgumentNullException", "Value cannot be null.\nParameter name: array")
	}
	return nil, runtime.TypeMismatch("Array", runtime.TypeName(args[idx]))
}

// arrayBound builds UBound and LBound. Dimensions past the first walk
// into the first element of nested arrays.
func arrayBound(name string, upper bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		arr, err := arrayArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		rank, err := optInt(args, 1, 1)
		if err != nil {
			return nil, err
		}
		for dim := 1; dim < rank; dim++ {
			next, ok := firstElement(arr).(*runtime.ArrayValue)
			if !ok {
				return nil, runtime.Exception("RankException", "Argument 'Rank' is not valid for the array.")
			}
			arr = next
		}
		if !upper {
			return runtime.IntegerValue{}, nil
		}
		return runtime.IntegerValue{Val: int32(len(arr.Elements) - 1)}, nil
	}
}

func firstElement(arr *runtime.ArrayValue) runtime.Value {
	if len(arr.Elements) == 0 {
		return runtime.Nothing
	}
	return arr.Elements[0]
}

// compareForSort orders any two values for sorting: Nothing first, then
// the usual comparison, then by string form when the kinds are unrelated.
func compareForSort(a, b runtime.Value) int {
	switch an, bn := runtime.IsNothing(a), runtime.IsNothing(b); {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if cmp, err := orderValues(a, b); err == nil {
		return cmp
	}
	return strings.Compare(displayString(a), displayString(b))
}

// sortValues stable-sorts items in place, using comparer (a Comparison
// delegate or an IComparer object) when one is given.
func (i *Interpreter) sortValues(items []runtime.Value, comparer runtime.Value) error {
	var sortErr error
	less := func(a, b runtime.Value) bool { return compareForSort(a, b) < 0 }
	if comparer != nil && !runtime.IsNothing(comparer) {
		less = func(a, b runtime.Value) bool {
			if sortErr != nil {
				return false
			}
			var res runtime.Value
			var err error
			if l, ok := comparer.(*runtime.LambdaValue); ok {
				res, err = i.invokeLambda(l, []runtime.Value{a, b})
			} else {
				res, err = i.callMethod(comparer, "Compare", []runtime.Value{a, b}, nil)
			}
			if err != nil {
				sortErr = err
				return false
			}
			n, err := runtime.AsLong(res)
			if err != nil {
				sortErr = err
				return false
			}
			return n < 0
		}
	}
	sort.SliceStable(items, func(x, y int) bool { return less(items[x], items[y]) })
	return sortErr
}

// builtinArraySort sorts an array in place, optionally by a parallel items
// array, a comparer, or an index range.
func builtinArraySort(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Array.Sort", args, 1, 3); err != nil {
		return nil, err
	}
	arr, err := arrayArg("Array.Sort", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) >= 2 {
		if items, ok := args[1].(*runtime.ArrayValue); ok {
			return runtime.Nothing, sortParallel(arr, items)
		}
	}
	if len(args) == 3 {
		start, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		count, err := argInt(args, 2)
		if err != nil {
			return nil, err
		}
		if start < 0 || count < 0 || start+count > len(arr.Elements) {
			return nil, outOfRange("index")
		}
		return runtime.Nothing, i.sortValues(arr.Elements[start:start+count], nil)
	}
	var comparer runtime.Value
	if len(args) == 2 {
		comparer = args[1]
	}
	return runtime.Nothing, i.sortValues(arr.Elements, comparer)
}

// sortParallel sorts keys and reorders items to match.
func sortParallel(keys, items *runtime.ArrayValue) error {
	if len(items.Elements) < len(keys.Elements) {
		return runtime.Exception("ArgumentException", "Array lengths do not match.")
	}
	order := make([]int, len(keys.Elements))
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(x, y int) bool {
		return compareForSort(keys.Elements[order[x]], keys.Elements[order[y]]) < 0
	})
	sortedKeys := make([]runtime.Value, len(order))
	sortedItems := make([]runtime.Value, len(order))
	for idx, from := range order {
		sortedKeys[idx] = keys.Elements[from]
		sortedItems[idx] = items.Elements[from]
	}
	copy(keys.Elements, sortedKeys)
	copy(items.Elements, sortedItems)
	return nil
}

func reverseValues(items []runtime.Value) {
	for a, b := 0, len(items)-1; a < b; a, b = a+1, b-1 {
		items[a], items[b] = items[b], items[a]
	}
}

func builtinArrayReverse(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Array.Reverse", args, 1, 3); err != nil {
		return nil, err
	}
	arr, err := arrayArg("Array.Reverse", args, 0)
	if err != nil {
		return nil, err
	}
	start, err := optInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	count, err := optInt(args, 2, len(arr.Elements)-start)
	if err != nil {
		return nil, err
	}
	if start < 0 || count < 0 || start+count > len(arr.Elements) {
		return nil, outOfRange("index")
	}
	reverseValues(arr.Elements[start : start+count])
	return runtime.Nothing, nil
}

func arraySearch(name string, last bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 3); err != nil {
			return nil, err
		}
		arr, err := arrayArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		if last {
			for idx := len(arr.Elements) - 1; idx >= 0; idx-- {
				if valuesEqual(arr.Elements[idx], args[1]) {
					return runtime.IntegerValue{Val: int32(idx)}, nil
				}
			}
			return runtime.IntegerValue{Val: -1}, nil
		}
		start, err := optInt(args, 2, 0)
		if err != nil {
			return nil, err
		}
		for idx := start; idx < len(arr.Elements); idx++ {
			if valuesEqual(arr.Elements[idx], args[1]) {
				return runtime.IntegerValue{Val: int32(idx)}, nil
			}
		}
		return runtime.IntegerValue{Val: -1}, nil
	}
}

// builtinArrayResize replaces its first (ByRef) argument with a resized
// copy, keeping existing elements.
func builtinArrayResize(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Array.Resize", args, 2, 2); err != nil {
		return nil, err
	}
	size, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, outOfRange("newSize")
	}
	var old []runtime.Value
	if arr, ok := args[0].(*runtime.ArrayValue); ok {
		old = arr.Elements
	}
	out := make([]runtime.Value, size)
	copy(out, old)
	for idx := len(old); idx < size; idx++ {
		out[idx] = zeroLike(old)
	}
	args[0] = runtime.NewArray(out)
	return runtime.Nothing, nil
}

// zeroLike is the default element for growing an array of like values.
func zeroLike(elements []runtime.Value) runtime.Value {
	if len(elements) == 0 {
		return runtime.Nothing
	}
	switch elements[0].(type) {
	case runtime.IntegerValue:
		return runtime.IntegerValue{}
	case runtime.LongValue:
		return runtime.LongValue{}
	case runtime.DoubleValue:
		return runtime.DoubleValue{}
	case runtime.SingleValue:
		return runtime.SingleValue{}
	case runtime.StringValue:
		return runtime.Nothing
	case runtime.BoolValue:
		return runtime.BoolValue{}
	case runtime.ByteValue:
		return runtime.ByteValue{}
	}
	return runtime.Nothing
}

// builtinArrayCopy is Array.Copy(src, dst, length) and
// Array.Copy(src, srcIndex, dst, dstIndex, length).
func builtinArrayCopy(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	var srcIdx, dstIdx, length int
	var src, dst *runtime.ArrayValue
	var err error
	switch len(args) {
	case 3:
		if src, err = arrayArg("Array.Copy", args, 0); err != nil {
			return nil, err
		}
		if dst, err = arrayArg("Array.Copy", args, 1); err != nil {
			return nil, err
		}
		if length, err = argInt(args, 2); err != nil {
			return nil, err
		}
	case 5:
		if src, err = arrayArg("Array.Copy", args, 0); err != nil {
			return nil, err
		}
		if srcIdx, err = argInt(args, 1); err != nil {
			return nil, err
		}
		if dst, err = arrayArg("Array.Copy", args, 2); err != nil {
			return nil, err
		}
		if dstIdx, err = argInt(args, 3); err != nil {
			return nil, err
		}
		if length, err = argInt(args, 4); err != nil {
			return nil, err
		}
	default:
		return nil, arity("Array.Copy", args, 3, 3)
	}
	if srcIdx < 0 || dstIdx < 0 || length < 0 || srcIdx+length > len(src.Elements) || dstIdx+length > len(dst.Elements) {
		return nil, runtime.Exception("ArgumentException", "Source array was not long enough. Check srcIndex and length, and the array's lower bounds.")
	}
	chunk := make([]runtime.Value, length)
	for idx := range chunk {
		chunk[idx] = runtime.CopyValue(src.Elements[srcIdx+idx])
	}
	copy(dst.Elements[dstIdx:], chunk)
	return runtime.Nothing, nil
}

func builtinArrayClear(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Array.Clear", args, 1, 3); err != nil {
		return nil, err
	}
	arr, err := arrayArg("Array.Clear", args, 0)
	if err != nil {
		return nil, err
	}
	start, err := optInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	count, err := optInt(args, 2, len(arr.Elements)-start)
	if err != nil {
		return nil, err
	}
	if start < 0 || count < 0 || start+count > len(arr.Elements) {
		return nil, runtime.IndexOutOfRange(start+count, len(arr.Elements))
	}
	zero := zeroLike(arr.Elements)
	for idx := start; idx < start+count; idx++ {
		arr.Elements[idx] = zero
	}
	return runtime.Nothing, nil
}

// arrayPredicate builds the Array methods that take a Predicate delegate.
func arrayPredicate(name string) builtinFunc {
	method := strings.TrimPrefix(name, "Array.")
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		arr, err := arrayArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		val, _, err := i.sequenceMethod(arr.Elements, method, args[1:])
		return val, err
	}
}

func builtinBinarySearch(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Array.BinarySearch", args, 2, 2); err != nil {
		return nil, err
	}
	arr, err := arrayArg("Array.BinarySearch", args, 0)
	if err != nil {
		return nil, err
	}
	lo, hi := 0, len(arr.Elements)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch cmp := compareForSort(arr.Elements[mid], args[1]); {
		case cmp == 0:
			return runtime.IntegerValue{Val: int32(mid)}, nil
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return runtime.IntegerValue{Val: int32(^lo)}, nil
}

func builtinArrayEmpty(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return runtime.NewArray(nil), nil
}

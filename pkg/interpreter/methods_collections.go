package interpreter

import (
	"sort"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// valueSequence is the native data behind query results that are not
// arrays, such as groups.
type valueSequence []runtime.Value

func (s valueSequence) items() []runtime.Value { return s }

func (s valueSequence) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	if strings.EqualFold(name, "item") && len(args) == 1 {
		val, err := s.index(i, args)
		return val, true, err
	}
	return i.sequenceMethod(s, name, args)
}

func (s valueSequence) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(s) {
		return nil, runtime.IndexOutOfRange(int(idx), len(s))
	}
	return s[idx], nil
}

func (s valueSequence) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

func grouping(key runtime.Value, items []runtime.Value) *runtime.ObjectValue {
	obj := runtime.NewObject("Grouping")
	obj.Set("Key", key)
	obj.Native = valueSequence(items)
	return obj
}

func noElements() *runtime.Error {
	return runtime.Exception("InvalidOperationException", "Sequence contains no elements")
}

// distinctKey is KeyOf with case-sensitive strings.
func distinctKey(v runtime.Value) string {
	if s, ok := v.(runtime.StringValue); ok {
		return "S:" + s.Val
	}
	return runtime.KeyOf(v)
}

// callFunc invokes a delegate argument.
func (i *Interpreter) callFunc(fn runtime.Value, args ...runtime.Value) (runtime.Value, error) {
	l, ok := fn.(*runtime.LambdaValue)
	if !ok {
		return nil, runtime.TypeMismatch("Delegate", runtime.TypeName(fn))
	}
	return i.invokeLambda(l, args)
}

func (i *Interpreter) test(fn runtime.Value, v runtime.Value) (bool, error) {
	res, err := i.callFunc(fn, v)
	if err != nil {
		return false, err
	}
	return runtime.AsBool(res)
}

// filter keeps the items fn accepts; a nil fn keeps everything.
func (i *Interpreter) filter(items []runtime.Value, fn runtime.Value) ([]runtime.Value, error) {
	if fn == nil {
		return items, nil
	}
	var out []runtime.Value
	for _, item := range items {
		ok, err := i.test(fn, item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (i *Interpreter) project(items []runtime.Value, fn runtime.Value) ([]runtime.Value, error) {
	if fn == nil {
		return items, nil
	}
	out := make([]runtime.Value, len(items))
	for idx, item := range items {
		val, err := i.callFunc(fn, item)
		if err != nil {
			return nil, err
		}
		out[idx] = val
	}
	return out, nil
}

func optionalArg(args []runtime.Value, idx int) runtime.Value {
	if idx < len(args) {
		return args[idx]
	}
	return nil
}

// sum adds numbers, staying integral while every term is.
func sum(items []runtime.Value) (runtime.Value, error) {
	var whole int64
	var total float64
	integralOnly := true
	for _, item := range items {
		if runtime.IsNothing(item) {
			continue
		}
		if isIntegralValue(item) {
			n, _ := runtime.AsLong(item)
			whole += n
			total += float64(n)
			continue
		}
		f, err := runtime.AsDouble(item)
		if err != nil {
			return nil, err
		}
		integralOnly = false
		total += f
	}
	if integralOnly {
		return integral(whole), nil
	}
	return double(total), nil
}

func extremeOf(items []runtime.Value, sign int) (runtime.Value, error) {
	if len(items) == 0 {
		return nil, noElements()
	}
	best := items[0]
	for _, item := range items[1:] {
		if compareForSort(item, best)*sign > 0 {
			best = item
		}
	}
	return best, nil
}

// sequenceMethod implements the LINQ-style members shared by arrays,
// collections and query results. ok is false for unknown names.
func (i *Interpreter) sequenceMethod(items []runtime.Value, name string, args []runtime.Value) (val runtime.Value, ok bool, err error) {
	arrayOf := func(vals []runtime.Value, err error) (runtime.Value, bool, error) {
		if err != nil {
			return nil, true, err
		}
		return runtime.NewArray(append([]runtime.Value{}, vals...)), true, nil
	}
	switch strings.ToLower(name) {
	case "count", "longcount":
		matched, err := i.filter(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		return runtime.IntegerValue{Val: int32(len(matched))}, true, nil
	case "any":
		matched, err := i.filter(items, optionalArg(args, 0))
		return boolean(len(matched) > 0), true, err
	case "all", "trueforall":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		matched, err := i.filter(items, args[0])
		return boolean(len(matched) == len(items)), true, err
	case "exists":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		matched, err := i.filter(items, args[0])
		return boolean(len(matched) > 0), true, err
	case "first", "firstordefault", "find":
		matched, err := i.filter(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		if len(matched) == 0 {
			if strings.EqualFold(name, "first") {
				return nil, true, noElements()
			}
			return zeroLike(items), true, nil
		}
		return matched[0], true, nil
	case "last", "lastordefault", "findlast":
		matched, err := i.filter(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		if len(matched) == 0 {
			if strings.EqualFold(name, "last") {
				return nil, true, noElements()
			}
			return zeroLike(items), true, nil
		}
		return matched[len(matched)-1], true, nil
	case "single", "singleordefault":
		matched, err := i.filter(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		switch {
		case len(matched) > 1:
			return nil, true, runtime.Exception("InvalidOperationException", "Sequence contains more than one element")
		case len(matched) == 0 && strings.EqualFold(name, "single"):
			return nil, true, noElements()
		case len(matched) == 0:
			return zeroLike(items), true, nil
		}
		return matched[0], true, nil
	case "findindex", "findlastindex":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		found := -1
		for idx, item := range items {
			hit, err := i.test(args[0], item)
			if err != nil {
				return nil, true, err
			}
			if hit {
				found = idx
				if strings.EqualFold(name, "findindex") {
					break
				}
			}
		}
		return runtime.IntegerValue{Val: int32(found)}, true, nil
	case "where", "findall":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		return arrayOf(i.filter(items, args[0]))
	case "select":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		return arrayOf(i.project(items, args[0]))
	case "selectmany":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		var out []runtime.Value
		for _, item := range items {
			inner, err := i.callFunc(args[0], item)
			if err != nil {
				return nil, true, err
			}
			vals, err := i.iterate(inner)
			if err != nil {
				return nil, true, err
			}
			out = append(out, vals...)
		}
		return arrayOf(out, nil)
	case "orderby", "orderbydescending":
		keys, err := i.project(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		sorted := orderByKeys(items, keys, strings.EqualFold(name, "orderbydescending"))
		return arrayOf(sorted, nil)
	case "sum":
		vals, err := i.project(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		total, err := sum(vals)
		return total, true, err
	case "average":
		vals, err := i.project(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		if len(vals) == 0 {
			return nil, true, noElements()
		}
		total, err := sum(vals)
		if err != nil {
			return nil, true, err
		}
		f, _ := runtime.AsDouble(total)
		return double(f / float64(len(vals))), true, nil
	case "min", "max":
		vals, err := i.project(items, optionalArg(args, 0))
		if err != nil {
			return nil, true, err
		}
		sign := 1
		if strings.EqualFold(name, "min") {
			sign = -1
		}
		best, err := extremeOf(vals, sign)
		return best, true, err
	case "distinct":
		seen := make(map[string]bool)
		var out []runtime.Value
		for _, item := range items {
			key := distinctKey(item)
			if !seen[key] {
				seen[key] = true
				out = append(out, item)
			}
		}
		return arrayOf(out, nil)
	case "reverse":
		out := append([]runtime.Value{}, items...)
		reverseValues(out)
		return arrayOf(out, nil)
	case "skip", "take":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		n, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		n = max(0, min(n, len(items)))
		if strings.EqualFold(name, "skip") {
			return arrayOf(items[n:], nil)
		}
		return arrayOf(items[:n], nil)
	case "skipwhile", "takewhile":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		n := 0
		for ; n < len(items); n++ {
			hit, err := i.test(args[0], items[n])
			if err != nil {
				return nil, true, err
			}
			if !hit {
				break
			}
		}
		if strings.EqualFold(name, "skipwhile") {
			return arrayOf(items[n:], nil)
		}
		return arrayOf(items[:n], nil)
	case "contains":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		for _, item := range items {
			if valuesEqual(item, args[0]) {
				return boolean(true), true, nil
			}
		}
		return boolean(false), true, nil
	case "elementat", "elementatordefault":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		n, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		if n < 0 || n >= len(items) {
			if strings.EqualFold(name, "elementatordefault") {
				return zeroLike(items), true, nil
			}
			return nil, true, outOfRange("index")
		}
		return items[n], true, nil
	case "toarray", "asenumerable", "cast", "oftype":
		return arrayOf(items, nil)
	case "tolist":
		list := runtime.NewList("List")
		list.Items = append(list.Items, items...)
		return list, true, nil
	case "todictionary":
		if err := arity(name, args, 1, 2); err != nil {
			return nil, true, err
		}
		dict := runtime.NewDictionary()
		for _, item := range items {
			key, err := i.callFunc(args[0], item)
			if err != nil {
				return nil, true, err
			}
			val := item
			if len(args) == 2 {
				if val, err = i.callFunc(args[1], item); err != nil {
					return nil, true, err
				}
			}
			if err := dict.Add(key, val); err != nil {
				return nil, true, err
			}
		}
		return dict, true, nil
	case "tohashset":
		set := runtime.NewHashSet()
		for _, item := range items {
			set.Add(item)
		}
		return set, true, nil
	case "groupby":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		keys, err := i.project(items, args[0])
		if err != nil {
			return nil, true, err
		}
		return arrayOf(groupByKeys(items, keys), nil)
	case "aggregate":
		if err := arity(name, args, 1, 3); err != nil {
			return nil, true, err
		}
		rest := items
		var acc runtime.Value
		fn := args[0]
		if len(args) == 1 {
			if len(items) == 0 {
				return nil, true, noElements()
			}
			acc, rest = items[0], items[1:]
		} else {
			acc, fn = args[0], args[1]
		}
		for _, item := range rest {
			if acc, err = i.callFunc(fn, acc, item); err != nil {
				return nil, true, err
			}
		}
		if len(args) == 3 {
			acc, err = i.callFunc(args[2], acc)
		}
		return acc, true, err
	case "concat", "union", "intersect", "except", "sequenceequal", "zip":
		if err := arity(name, args, 1, 2); err != nil {
			return nil, true, err
		}
		other, err := i.iterate(args[0])
		if err != nil {
			return nil, true, err
		}
		return i.combine(strings.ToLower(name), items, other, optionalArg(args, 1))
	case "foreach":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		for _, item := range items {
			if _, err := i.callFunc(args[0], item); err != nil {
				return nil, true, err
			}
		}
		return runtime.Nothing, true, nil
	case "defaultifempty":
		if len(items) == 0 {
			return arrayOf([]runtime.Value{runtime.Nothing}, nil)
		}
		return arrayOf(items, nil)
	}
	return nil, false, nil
}

// combine implements the two-sequence operators.
func (i *Interpreter) combine(op string, items, other []runtime.Value, fn runtime.Value) (runtime.Value, bool, error) {
	var out []runtime.Value
	switch op {
	case "concat":
		out = append(append(out, items...), other...)
	case "union":
		seen := make(map[string]bool)
		for _, item := range append(append([]runtime.Value{}, items...), other...) {
			if key := distinctKey(item); !seen[key] {
				seen[key] = true
				out = append(out, item)
			}
		}
	case "intersect", "except":
		in := make(map[string]bool)
		for _, item := range other {
			in[distinctKey(item)] = true
		}
		seen := make(map[string]bool)
		for _, item := range items {
			key := distinctKey(item)
			if in[key] == (op == "intersect") && !seen[key] {
				seen[key] = true
				out = append(out, item)
			}
		}
	case "sequenceequal":
		if len(items) != len(other) {
			return boolean(false), true, nil
		}
		for idx := range items {
			if !valuesEqual(items[idx], other[idx]) {
				return boolean(false), true, nil
			}
		}
		return boolean(true), true, nil
	case "zip":
		for idx := 0; idx < len(items) && idx < len(other); idx++ {
			if fn == nil {
				out = append(out, runtime.NewArray([]runtime.Value{items[idx], other[idx]}))
				continue
			}
			val, err := i.callFunc(fn, items[idx], other[idx])
			if err != nil {
				return nil, true, err
			}
			out = append(out, val)
		}
	}
	return runtime.NewArray(out), true, nil
}

// orderByKeys stable-sorts items by the parallel keys.
func orderByKeys(items, keys []runtime.Value, descending bool) []runtime.Value {
	order := make([]int, len(items))
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(x, y int) bool {
		cmp := compareForSort(keys[order[x]], keys[order[y]])
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	out := make([]runtime.Value, len(items))
	for idx, from := range order {
		out[idx] = items[from]
	}
	return out
}

// groupByKeys groups items by key in first-seen order.
func groupByKeys(items, keys []runtime.Value) []runtime.Value {
	index := make(map[string]int)
	var groupKeys []runtime.Value
	var members [][]runtime.Value
	for idx, item := range items {
		key := distinctKey(keys[idx])
		pos, ok := index[key]
		if !ok {
			pos = len(groupKeys)
			index[key] = pos
			groupKeys = append(groupKeys, keys[idx])
			members = append(members, nil)
		}
		members[pos] = append(members[pos], item)
	}
	out := make([]runtime.Value, len(groupKeys))
	for idx, key := range groupKeys {
		out[idx] = grouping(key, members[idx])
	}
	return out
}

// callArrayMethod implements Array instance members.
func (i *Interpreter) callArrayMethod(a *runtime.ArrayValue, name string, args []runtime.Value) (runtime.Value, error) {
	switch strings.ToLower(name) {
	case "length", "longlength":
		return runtime.IntegerValue{Val: int32(len(a.Elements))}, nil
	case "rank":
		rank := 1
		for cur := a; len(cur.Elements) > 0; rank++ {
			next, ok := cur.Elements[0].(*runtime.ArrayValue)
			if !ok {
				break
			}
			cur = next
		}
		return runtime.IntegerValue{Val: int32(rank)}, nil
	case "getlength", "getupperbound", "getlowerbound":
		dim, err := optInt(args, 0, 0)
		if err != nil {
			return nil, err
		}
		upper, err := arrayBound(name, true)(i, []runtime.Value{a, runtime.IntegerValue{Val: int32(dim + 1)}})
		if err != nil {
			return nil, err
		}
		n := upper.(runtime.IntegerValue).Val
		switch strings.ToLower(name) {
		case "getlength":
			return runtime.IntegerValue{Val: n + 1}, nil
		case "getlowerbound":
			return runtime.IntegerValue{}, nil
		}
		return upper, nil
	case "getvalue":
		return i.indexValue(a, args)
	case "setvalue":
		if err := arity("SetValue", args, 2, 2); err != nil {
			return nil, err
		}
		idx, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(a.Elements) {
			return nil, runtime.IndexOutOfRange(idx, len(a.Elements))
		}
		a.Elements[idx] = runtime.CopyValue(args[0])
		return runtime.Nothing, nil
	case "clone":
		return runtime.CopyValue(a), nil
	case "copyto":
		if err := arity("CopyTo", args, 2, 2); err != nil {
			return nil, err
		}
		return builtinArrayCopy(i, []runtime.Value{a, runtime.IntegerValue{}, args[0], args[1], runtime.IntegerValue{Val: int32(len(a.Elements))}})
	case "indexof":
		return arraySearch("IndexOf", false)(i, append([]runtime.Value{a}, args...))
	case "tostring":
		return str("System.Object[]"), nil
	case "getenumerator":
		return a, nil
	}
	if val, ok, err := i.sequenceMethod(a.Elements, name, args); ok {
		return val, err
	}
	return i.callScalarMethod(a, name, args)
}

// callCollectionMethod implements List, Collection, Dictionary, Queue,
// Stack and HashSet members.
func (i *Interpreter) callCollectionMethod(target runtime.Value, name string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, error) {
	var val runtime.Value
	var handled bool
	var err error
	switch c := target.(type) {
	case *runtime.ListValue:
		val, handled, err = i.listMethod(c, name, args)
	case *runtime.DictionaryValue:
		val, handled, err = i.dictionaryMethod(c, name, args, argExprs)
	case *runtime.QueueValue:
		val, handled, err = queueMethod(c, name, args)
	case *runtime.StackValue:
		val, handled, err = stackMethod(c, name, args)
	case *runtime.HashSetValue:
		val, handled, err = i.hashSetMethod(c, name, args)
	}
	if handled {
		return val, err
	}
	items, err := i.iterate(target)
	if err != nil {
		return nil, err
	}
	if val, ok, err := i.sequenceMethod(items, name, args); ok {
		return val, err
	}
	if strings.EqualFold(name, "tostring") {
		return str(runtime.TypeName(target)), nil
	}
	return i.callScalarMethod(target, name, args)
}

func (i *Interpreter) listMethod(l *runtime.ListValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	lower := strings.ToLower(name)
	switch lower {
	case "count":
		if len(args) > 0 {
			return nil, false, nil
		}
		return runtime.IntegerValue{Val: int32(len(l.Items))}, true, nil
	case "capacity":
		return runtime.IntegerValue{Val: int32(cap(l.Items))}, true, nil
	case "item":
		if err := arity("Item", args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := i.indexValue(l, args)
		return val, true, err
	case "add":
		if err := arity("Add", args, 1, 4); err != nil {
			return nil, true, err
		}
		item := runtime.CopyValue(args[0])
		if len(args) >= 2 && !runtime.IsNothing(args[1]) {
			key := strings.ToLower(argString(args, 1))
			if l.Keys == nil {
				l.Keys = make(map[string]runtime.Value)
			}
			if _, dup := l.Keys[key]; dup {
				return nil, true, runtime.Exception("ArgumentException", "Add failed. Duplicate key value supplied.")
			}
			l.Keys[key] = item
		}
		l.Add(item)
		if strings.EqualFold(l.TypeName, "ArrayList") {
			return runtime.IntegerValue{Val: int32(len(l.Items) - 1)}, true, nil
		}
		return runtime.Nothing, true, nil
	case "addrange":
		if err := arity("AddRange", args, 1, 1); err != nil {
			return nil, true, err
		}
		items, err := i.iterate(args[0])
		if err != nil {
			return nil, true, err
		}
		l.Items = append(l.Items, items...)
		return runtime.Nothing, true, nil
	case "insert", "insertrange":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, true, err
		}
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		items := []runtime.Value{runtime.CopyValue(args[1])}
		if lower == "insertrange" {
			if items, err = i.iterate(args[1]); err != nil {
				return nil, true, err
			}
		}
		for offset, item := range items {
			if err := l.Insert(idx+offset, item); err != nil {
				return nil, true, err
			}
		}
		return runtime.Nothing, true, nil
	case "remove":
		if err := arity("Remove", args, 1, 1); err != nil {
			return nil, true, err
		}
		if l.OneBased {
			return runtime.Nothing, true, collectionRemove(l, args[0])
		}
		return boolean(l.Remove(args[0])), true, nil
	case "removeat":
		if err := arity("RemoveAt", args, 1, 1); err != nil {
			return nil, true, err
		}
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		offset, err := l.Index(idx)
		if err != nil {
			return nil, true, err
		}
		l.RemoveAt(offset)
		return runtime.Nothing, true, nil
	case "removerange":
		if err := arity("RemoveRange", args, 2, 2); err != nil {
			return nil, true, err
		}
		start, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		count, err := argInt(args, 1)
		if err != nil {
			return nil, true, err
		}
		if start < 0 || count < 0 || start+count > len(l.Items) {
			return nil, true, outOfRange("index")
		}
		l.Items = append(l.Items[:start], l.Items[start+count:]...)
		return runtime.Nothing, true, nil
	case "removeall":
		if err := arity("RemoveAll", args, 1, 1); err != nil {
			return nil, true, err
		}
		kept := make([]runtime.Value, 0, len(l.Items))
		removed := 0
		for _, item := range l.Items {
			hit, err := i.test(args[0], item)
			if err != nil {
				return nil, true, err
			}
			if hit {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		l.Items = kept
		return runtime.IntegerValue{Val: int32(removed)}, true, nil
	case "clear":
		l.Clear()
		return runtime.Nothing, true, nil
	case "contains":
		if err := arity("Contains", args, 1, 1); err != nil {
			return nil, true, err
		}
		if s, ok := args[0].(runtime.StringValue); ok && l.Keys != nil {
			_, found := l.Keys[strings.ToLower(s.Val)]
			return boolean(found), true, nil
		}
		return boolean(l.IndexOf(args[0]) >= 0), true, nil
	case "indexof":
		if err := arity("IndexOf", args, 1, 1); err != nil {
			return nil, true, err
		}
		return runtime.IntegerValue{Val: int32(l.IndexOf(args[0]))}, true, nil
	case "lastindexof":
		if err := arity("LastIndexOf", args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := arraySearch("LastIndexOf", true)(i, []runtime.Value{runtime.NewArray(l.Items), args[0]})
		return val, true, err
	case "sort":
		if err := arity("Sort", args, 0, 1); err != nil {
			return nil, true, err
		}
		return runtime.Nothing, true, i.sortValues(l.Items, optionalArg(args, 0))
	case "reverse":
		if len(args) > 0 {
			return nil, false, nil
		}
		reverseValues(l.Items)
		return runtime.Nothing, true, nil
	case "getrange":
		if err := arity("GetRange", args, 2, 2); err != nil {
			return nil, true, err
		}
		start, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		count, err := argInt(args, 1)
		if err != nil {
			return nil, true, err
		}
		if start < 0 || count < 0 || start+count > len(l.Items) {
			return nil, true, outOfRange("index")
		}
		out := runtime.NewList(l.TypeName)
		out.Items = append(out.Items, l.Items[start:start+count]...)
		return out, true, nil
	case "binarysearch":
		val, err := builtinBinarySearch(i, append([]runtime.Value{runtime.NewArray(l.Items)}, args...))
		return val, true, err
	case "copyto":
		if err := arity("CopyTo", args, 1, 2); err != nil {
			return nil, true, err
		}
		start, err := optInt(args, 1, 0)
		if err != nil {
			return nil, true, err
		}
		val, err := builtinArrayCopy(i, []runtime.Value{runtime.NewArray(l.Items), runtime.IntegerValue{}, args[0], runtime.IntegerValue{Val: int32(start)}, runtime.IntegerValue{Val: int32(len(l.Items))}})
		return val, true, err
	case "trimexcess":
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

// collectionRemove removes a legacy Collection item by key or 1-based
// index.
func collectionRemove(l *runtime.ListValue, key runtime.Value) error {
	if s, ok := key.(runtime.StringValue); ok {
		item, found := l.Keys[strings.ToLower(s.Val)]
		if !found {
			return runtime.Exception("ArgumentException", "Invalid key '"+s.Val+"'")
		}
		for offset, candidate := range l.Items {
			if candidate == item {
				l.RemoveAt(offset)
				return nil
			}
		}
		return nil
	}
	idx, err := roundedInteger(key)
	if err != nil {
		return err
	}
	offset, err := l.Index(int(idx))
	if err != nil {
		return err
	}
	l.RemoveAt(offset)
	return nil
}

func (i *Interpreter) dictionaryMethod(d *runtime.DictionaryValue, name string, args []runtime.Value, argExprs []ast.Expression) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "count":
		if len(args) > 0 {
			return nil, false, nil
		}
		return runtime.IntegerValue{Val: int32(d.Count())}, true, nil
	case "item":
		if err := arity("Item", args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := i.indexValue(d, args)
		return val, true, err
	case "keys":
		return runtime.NewArray(d.Keys()), true, nil
	case "values":
		return runtime.NewArray(d.Values()), true, nil
	case "add":
		if err := arity("Add", args, 2, 2); err != nil {
			return nil, true, err
		}
		if runtime.IsNothing(args[0]) {
			return nil, true, runtime.Exception("ArgumentNullException", "Value cannot be null.\nParameter name: key")
		}
		return runtime.Nothing, true, d.Add(args[0], runtime.CopyValue(args[1]))
	case "tryadd":
		if err := arity("TryAdd", args, 2, 2); err != nil {
			return nil, true, err
		}
		if d.ContainsKey(args[0]) {
			return boolean(false), true, nil
		}
		d.Set(args[0], runtime.CopyValue(args[1]))
		return boolean(true), true, nil
	case "remove":
		if err := arity("Remove", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(d.Remove(args[0])), true, nil
	case "containskey":
		if err := arity("ContainsKey", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(d.ContainsKey(args[0])), true, nil
	case "containsvalue":
		if err := arity("ContainsValue", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(d.ContainsValue(args[0])), true, nil
	case "trygetvalue":
		if err := arity("TryGetValue", args, 2, 2); err != nil {
			return nil, true, err
		}
		val, found := d.Get(args[0])
		if !found {
			val = zeroLike([]runtime.Value{args[1]})
		}
		if argExprs != nil {
			if err := i.writeBack(argExprs, 1, "", val); err != nil {
				return nil, true, err
			}
		}
		return boolean(found), true, nil
	case "getvalueordefault":
		if err := arity("GetValueOrDefault", args, 1, 2); err != nil {
			return nil, true, err
		}
		if val, found := d.Get(args[0]); found {
			return val, true, nil
		}
		if len(args) == 2 {
			return args[1], true, nil
		}
		return runtime.Nothing, true, nil
	case "clear":
		d.Clear()
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

func queueMethod(q *runtime.QueueValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "count":
		if len(args) > 0 {
			return nil, false, nil
		}
		return runtime.IntegerValue{Val: int32(len(q.Items))}, true, nil
	case "enqueue":
		if err := arity("Enqueue", args, 1, 1); err != nil {
			return nil, true, err
		}
		q.Enqueue(runtime.CopyValue(args[0]))
		return runtime.Nothing, true, nil
	case "dequeue":
		val, err := q.Dequeue()
		return val, true, err
	case "peek":
		val, err := q.Peek()
		return val, true, err
	case "clear":
		q.Items = nil
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

func stackMethod(s *runtime.StackValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "count":
		if len(args) > 0 {
			return nil, false, nil
		}
		return runtime.IntegerValue{Val: int32(len(s.Items))}, true, nil
	case "push":
		if err := arity("Push", args, 1, 1); err != nil {
			return nil, true, err
		}
		s.Push(runtime.CopyValue(args[0]))
		return runtime.Nothing, true, nil
	case "pop":
		val, err := s.Pop()
		return val, true, err
	case "peek":
		val, err := s.Peek()
		return val, true, err
	case "clear":
		s.Items = nil
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

func (i *Interpreter) hashSetMethod(h *runtime.HashSetValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	lower := strings.ToLower(name)
	switch lower {
	case "count":
		if len(args) > 0 {
			return nil, false, nil
		}
		return runtime.IntegerValue{Val: int32(h.Count())}, true, nil
	case "add":
		if err := arity("Add", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(h.Add(runtime.CopyValue(args[0]))), true, nil
	case "remove":
		if err := arity("Remove", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(h.Remove(args[0])), true, nil
	case "contains":
		if err := arity("Contains", args, 1, 1); err != nil {
			return nil, true, err
		}
		return boolean(h.Contains(args[0])), true, nil
	case "clear":
		h.Clear()
		return runtime.Nothing, true, nil
	case "unionwith", "intersectwith", "exceptwith", "issubsetof", "issupersetof", "overlaps", "setequals":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		items, err := i.iterate(args[0])
		if err != nil {
			return nil, true, err
		}
		other := runtime.NewHashSet()
		for _, item := range items {
			other.Add(item)
		}
		return hashSetOp(lower, h, other), true, nil
	}
	return nil, false, nil
}

func hashSetOp(op string, h, other *runtime.HashSetValue) runtime.Value {
	subset := func(a, b *runtime.HashSetValue) bool {
		for _, item := range a.Items() {
			if !b.Contains(item) {
				return false
			}
		}
		return true
	}
	switch op {
	case "unionwith":
		for _, item := range other.Items() {
			h.Add(item)
		}
	case "intersectwith":
		for _, item := range h.Items() {
			if !other.Contains(item) {
				h.Remove(item)
			}
		}
	case "exceptwith":
		for _, item := range other.Items() {
			h.Remove(item)
		}
	case "issubsetof":
		return boolean(subset(h, other))
	case "issupersetof":
		return boolean(subset(other, h))
	case "setequals":
		return boolean(subset(h, other) && subset(other, h))
	case "overlaps":
		for _, item := range other.Items() {
			if h.Contains(item) {
				return boolean(true)
			}
		}
		return boolean(false)
	}
	return runtime.Nothing
}

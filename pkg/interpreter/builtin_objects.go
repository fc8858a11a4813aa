package interpreter

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// newBuiltin constructs an instance of a .NET class the program did not
// declare itself.
func (i *Interpreter) newBuiltin(t *ast.TypeRef, args []runtime.Value) (runtime.Value, error) {
	name := t.Name
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	key := typeKey(t.Name)
	switch key {
	case "list", "arraylist", "collection", "observablecollection", "bindinglist", "linkedlist", "concurrentbag":
		return i.newList(name, args)
	case "dictionary", "hashtable", "sorteddictionary", "sortedlist", "concurrentdictionary":
		d := runtime.NewDictionary()
		if len(args) > 0 {
			if src, ok := args[0].(*runtime.DictionaryValue); ok {
				for _, k := range src.Keys() {
					v, _ := src.Get(k)
					d.Set(k, v)
				}
			}
		}
		return d, nil
	case "queue", "concurrentqueue":
		items, err := i.seedItems(args)
		if err != nil {
			return nil, err
		}
		return &runtime.QueueValue{Items: items}, nil
	case "stack", "concurrentstack":
		items, err := i.seedItems(args)
		if err != nil {
			return nil, err
		}
		return &runtime.StackValue{Items: items}, nil
	case "hashset", "sortedset":
		h := runtime.NewHashSet()
		items, err := i.seedItems(args)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			h.Add(item)
		}
		return h, nil
	case "stringbuilder":
		return newStringBuilder(args)
	case "random":
		return i.newRandom(args)
	case "stopwatch":
		obj := runtime.NewObject("Stopwatch")
		obj.Native = &stopwatch{}
		return obj, nil
	case "regex":
		return newRegex(args)
	case "xelement", "xattribute", "xdocument", "xcomment", "xdeclaration":
		return i.newXML(key, args)
	case "rfc2898derivebytes":
		return newDeriveBytes(args)
	case "sqlconnection", "sqliteconnection", "oledbconnection", "odbcconnection":
		return newConnection(name, args)
	case "sqlcommand", "sqlitecommand", "oledbcommand", "odbccommand":
		if err := arity(name, args, 0, 2); err != nil {
			return nil, err
		}
		return newCommand(name, args), nil
	case "sqldataadapter", "sqlitedataadapter", "oledbdataadapter", "odbcdataadapter":
		return newDataAdapter(name, args)
	case "sqlparameter", "sqliteparameter", "oledbparameter":
		p := runtime.NewObject("SqlParameter")
		p.Set("ParameterName", str(argString(args, 0)))
		val := runtime.Value(runtime.Nothing)
		if len(args) > 1 {
			val = args[1]
		}
		p.Set("Value", val)
		return p, nil
	case "datatable":
		return newDataTable(argString(args, 0)), nil
	case "dataset":
		return newDataSet(argString(args, 0)), nil
	case "bindingsource":
		return newBindingSource(args), nil
	case "form":
		obj := runtime.NewObject("Form")
		i.initFormFields(obj)
		return obj, nil
	case "eventargs":
		return eventArgs(), nil
	case "object":
		return runtime.NewObject("Object"), nil
	case "keyvaluepair":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		return keyValuePair(args[0], args[1]), nil
	case "datetime", "date":
		return newDateTime(args)
	case "timespan":
		return newTimeSpan(args)
	case "string":
		if err := arity("String", args, 2, 2); err != nil {
			return nil, err
		}
		c, err := runtime.AsChar(args[0])
		if err != nil {
			return nil, err
		}
		n, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, outOfRange("count")
		}
		return str(strings.Repeat(string(c), n)), nil
	}
	if _, ok := hashConstructors[hashKey(key)]; ok {
		return newHasher(key)
	}
	if isExceptionType(key) {
		obj := runtime.NewObject(name)
		msg, inner := "", runtime.Value(runtime.Nothing)
		if len(args) > 0 {
			msg = displayString(args[0])
		}
		if len(args) > 1 {
			inner = args[1]
		}
		if msg == "" {
			msg = "Exception of type 'System." + name + "' was thrown."
		}
		setExceptionFields(obj, msg, inner)
		return obj, nil
	}
	if isControlType(key) {
		return newControl(name), nil
	}
	if scalarTypeKey(key) != "" {
		return i.coerceToType(runtime.Nothing, t)
	}
	return nil, runtime.Exception("TypeLoadException", "Type '"+t.Name+"' is not defined.")
}

func (i *Interpreter) newList(name string, args []runtime.Value) (runtime.Value, error) {
	l := runtime.NewList(name)
	if len(args) == 1 && !runtime.IsNumeric(args[0]) {
		items, err := i.iterate(args[0])
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, items...)
	}
	return l, nil
}

// seedItems reads the optional collection argument of a Queue, Stack or
// HashSet constructor; a capacity is ignored.
func (i *Interpreter) seedItems(args []runtime.Value) ([]runtime.Value, error) {
	if len(args) == 0 || runtime.IsNumeric(args[0]) || runtime.IsNothing(args[0]) {
		return nil, nil
	}
	items, err := i.iterate(args[0])
	if err != nil {
		return nil, err
	}
	return append([]runtime.Value(nil), items...), nil
}

func newDateTime(args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return runtime.DateValue{}, nil
	}
	if err := arity("DateTime", args, 3, 7); err != nil {
		return nil, err
	}
	parts := make([]int, 7)
	for idx := range args {
		n, err := argInt(args, idx)
		if err != nil {
			return nil, err
		}
		parts[idx] = n
	}
	if parts[1] < 1 || parts[1] > 12 || parts[2] < 1 || parts[2] > daysIn(parts[0], time.Month(parts[1])) {
		return nil, runtime.Exception("ArgumentOutOfRangeException", "Year, Month, and Day parameters describe an un-representable DateTime.")
	}
	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6]*int(time.Millisecond), time.UTC)
	return dateOf(t), nil
}

// newTimeSpan accepts (ticks), (h, m, s) or (d, h, m, s[, ms]).
func newTimeSpan(args []runtime.Value) (runtime.Value, error) {
	if err := arity("TimeSpan", args, 0, 5); err != nil {
		return nil, err
	}
	vals := make([]float64, len(args))
	for idx := range args {
		f, err := argDouble(args, idx)
		if err != nil {
			return nil, err
		}
		vals[idx] = f
	}
	switch len(vals) {
	case 0:
		return timeSpan(0), nil
	case 1:
		return timeSpan(vals[0] / 864e9), nil
	case 3:
		return timeSpan(vals[0]/24 + vals[1]/1440 + vals[2]/86400), nil
	case 4, 5:
		days := vals[0] + vals[1]/24 + vals[2]/1440 + vals[3]/86400
		if len(vals) == 5 {
			days += vals[4] / 86400000
		}
		return timeSpan(days), nil
	}
	return nil, runtime.Exception("ArgumentException", "Wrong number of arguments to 'TimeSpan'")
}

func newStringBuilder(args []runtime.Value) (runtime.Value, error) {
	if err := arity("StringBuilder", args, 0, 2); err != nil {
		return nil, err
	}
	sb := &strings.Builder{}
	if len(args) > 0 {
		if _, isString := args[0].(runtime.StringValue); isString {
			sb.WriteString(argString(args, 0))
		}
	}
	obj := runtime.NewObject("StringBuilder")
	obj.Native = sb
	return obj, nil
}

// stringBuilderMethod implements StringBuilder. Mutating members edit the
// builder in place and return it so calls chain.
func (i *Interpreter) stringBuilderMethod(obj *runtime.ObjectValue, sb *strings.Builder, name string, args []runtime.Value) (runtime.Value, bool, error) {
	replace := func(s string) {
		sb.Reset()
		sb.WriteString(s)
	}
	switch strings.ToLower(name) {
	case "append":
		for _, arg := range args {
			sb.WriteString(displayString(arg))
		}
		return obj, true, nil
	case "appendline":
		if err := arity("AppendLine", args, 0, 1); err != nil {
			return nil, true, err
		}
		sb.WriteString(argString(args, 0))
		sb.WriteString("\r\n")
		return obj, true, nil
	case "appendformat":
		if err := arity("AppendFormat", args, 1, -1); err != nil {
			return nil, true, err
		}
		s, err := i.callBuiltinNamed("string.format", args)
		if err != nil {
			return nil, true, err
		}
		sb.WriteString(displayString(s))
		return obj, true, nil
	case "insert":
		if err := arity("Insert", args, 2, 2); err != nil {
			return nil, true, err
		}
		s, err := i.callStringMethod(sb.String(), "Insert", args)
		if err != nil {
			return nil, true, err
		}
		replace(displayString(s))
		return obj, true, nil
	case "remove", "replace":
		s, err := i.callStringMethod(sb.String(), name, args)
		if err != nil {
			return nil, true, err
		}
		replace(displayString(s))
		return obj, true, nil
	case "clear":
		sb.Reset()
		return obj, true, nil
	case "length":
		return runtime.IntegerValue{Val: int32(len([]rune(sb.String())))}, true, nil
	case "capacity":
		return runtime.IntegerValue{Val: int32(max(16, sb.Cap()))}, true, nil
	case "tostring":
		if len(args) == 2 {
			val, err := i.callStringMethod(sb.String(), "Substring", args)
			return val, true, err
		}
		return str(sb.String()), true, nil
	case "chars", "item":
		val, err := i.callStringMethod(sb.String(), "Chars", args)
		return val, true, err
	case "equals":
		if other, ok := args[0].(*runtime.ObjectValue); ok {
			if osb, ok := other.Native.(*strings.Builder); ok {
				return boolean(osb.String() == sb.String()), true, nil
			}
		}
		return boolean(false), true, nil
	}
	return nil, false, nil
}

// callBuiltinNamed calls a registered builtin that must exist.
func (i *Interpreter) callBuiltinNamed(name string, args []runtime.Value) (runtime.Value, error) {
	val, found, err := i.callBuiltin(name, args)
	if !found {
		return nil, runtime.UndefinedFunction(name)
	}
	return val, err
}

// randomObject is System.Random. Without a seed it draws from the
// interpreter's generator so Randomize seeds both.
type randomObject struct {
	rng *rand.Rand
}

func (i *Interpreter) newRandom(args []runtime.Value) (runtime.Value, error) {
	if err := arity("Random", args, 0, 1); err != nil {
		return nil, err
	}
	obj := runtime.NewObject("Random")
	if len(args) == 1 {
		seed, err := runtime.AsLong(args[0])
		if err != nil {
			return nil, err
		}
		obj.Native = &randomObject{rng: rand.New(rand.NewSource(seed))}
		return obj, nil
	}
	obj.Native = &randomObject{rng: rand.New(rand.NewSource(i.rng.Int63()))}
	return obj, nil
}

func (r *randomObject) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "next":
		if err := arity("Next", args, 0, 2); err != nil {
			return nil, true, err
		}
		lo, hi := 0, math.MaxInt32
		switch len(args) {
		case 1:
			n, err := argInt(args, 0)
			if err != nil {
				return nil, true, err
			}
			hi = n
		case 2:
			a, err := argInt(args, 0)
			if err != nil {
				return nil, true, err
			}
			b, err := argInt(args, 1)
			if err != nil {
				return nil, true, err
			}
			lo, hi = a, b
		}
		if hi < lo || (len(args) == 1 && hi < 0) {
			return nil, true, outOfRange("maxValue")
		}
		if hi == lo {
			return runtime.IntegerValue{Val: int32(lo)}, true, nil
		}
		return runtime.IntegerValue{Val: int32(lo + r.rng.Intn(hi-lo))}, true, nil
	case "nextdouble":
		return double(r.rng.Float64()), true, nil
	case "nextbytes":
		if err := arity("NextBytes", args, 1, 1); err != nil {
			return nil, true, err
		}
		arr, ok := args[0].(*runtime.ArrayValue)
		if !ok {
			return nil, true, runtime.TypeMismatch("Byte()", runtime.TypeName(args[0]))
		}
		for idx := range arr.Elements {
			arr.Elements[idx] = runtime.ByteValue{Val: uint8(r.rng.Intn(256))}
		}
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

// stopwatch is System.Diagnostics.Stopwatch.
type stopwatch struct {
	started time.Time
	elapsed time.Duration
	running bool
}

func (s *stopwatch) total() time.Duration {
	if s.running {
		return s.elapsed + time.Since(s.started)
	}
	return s.elapsed
}

func (s *stopwatch) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, _ []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "start":
		if !s.running {
			s.started, s.running = time.Now(), true
		}
	case "stop":
		if s.running {
			s.elapsed += time.Since(s.started)
			s.running = false
		}
	case "reset":
		s.elapsed, s.running = 0, false
	case "restart":
		s.elapsed, s.started, s.running = 0, time.Now(), true
	case "isrunning":
		return boolean(s.running), true, nil
	case "elapsedmilliseconds":
		return runtime.LongValue{Val: s.total().Milliseconds()}, true, nil
	case "elapsedticks":
		return runtime.LongValue{Val: int64(s.total() / 100)}, true, nil
	case "elapsed":
		return timeSpan(s.total().Hours() / 24), true, nil
	default:
		return nil, false, nil
	}
	return runtime.Nothing, true, nil
}

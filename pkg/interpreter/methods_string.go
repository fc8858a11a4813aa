package interpreter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"vybe/interpreter-go/pkg/runtime"
)

func outOfRange(param string) *runtime.Error {
	return runtime.Exception("ArgumentOutOfRangeException", "Specified argument was out of the range of valid values.\nParameter name: "+param)
}

// comparisonArg reads an optional trailing StringComparison or ignoreCase
// argument.
func comparisonArg(args []runtime.Value, idx int) bool {
	if idx >= len(args) {
		return false
	}
	switch args[idx].(type) {
	case runtime.StringValue, runtime.CharValue:
		return false
	}
	return ignoresCase(args[idx])
}

// trimSet returns the characters a Trim call strips: its arguments, or
// white space.
func trimSet(args []runtime.Value) func(rune) bool {
	if len(args) == 0 {
		return unicode.IsSpace
	}
	var set []rune
	for _, arg := range args {
		switch a := arg.(type) {
		case *runtime.ArrayValue:
			for _, el := range a.Elements {
				set = append(set, []rune(displayString(el))...)
			}
		default:
			set = append(set, []rune(displayString(arg))...)
		}
	}
	return func(r rune) bool {
		for _, c := range set {
			if c == r {
				return true
			}
		}
		return false
	}
}

// callStringMethod implements String instance members, 0-based as in .NET.
func (i *Interpreter) callStringMethod(s string, name string, args []runtime.Value) (runtime.Value, error) {
	runes := []rune(s)
	switch strings.ToLower(name) {
	case "length":
		return runtime.IntegerValue{Val: int32(len(runes))}, nil
	case "toupper", "toupperinvariant":
		return str(strings.ToUpper(s)), nil
	case "tolower", "tolowerinvariant":
		return str(strings.ToLower(s)), nil
	case "trim":
		return str(strings.TrimFunc(s, trimSet(args))), nil
	case "trimstart":
		return str(strings.TrimLeftFunc(s, trimSet(args))), nil
	case "trimend":
		return str(strings.TrimRightFunc(s, trimSet(args))), nil
	case "substring":
		if err := arity("Substring", args, 1, 2); err != nil {
			return nil, err
		}
		start, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		if start < 0 || start > len(runes) {
			return nil, outOfRange("startIndex")
		}
		end := len(runes)
		if len(args) == 2 {
			length, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			if length < 0 || start+length > len(runes) {
				return nil, outOfRange("length")
			}
			end = start + length
		}
		return str(string(runes[start:end])), nil
	case "contains":
		if err := arity("Contains", args, 1, 2); err != nil {
			return nil, err
		}
		return boolean(runeIndex(s, argString(args, 0), 0, comparisonArg(args, 1)) >= 0), nil
	case "startswith":
		if err := arity("StartsWith", args, 1, 2); err != nil {
			return nil, err
		}
		prefix := argString(args, 0)
		if comparisonArg(args, 1) {
			return boolean(strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))), nil
		}
		return boolean(strings.HasPrefix(s, prefix)), nil
	case "endswith":
		if err := arity("EndsWith", args, 1, 2); err != nil {
			return nil, err
		}
		suffix := argString(args, 0)
		if comparisonArg(args, 1) {
			return boolean(strings.HasSuffix(strings.ToLower(s), strings.ToLower(suffix))), nil
		}
		return boolean(strings.HasSuffix(s, suffix)), nil
	case "indexof":
		if err := arity("IndexOf", args, 1, 3); err != nil {
			return nil, err
		}
		start := 0
		if len(args) > 1 && runtime.IsNumeric(args[1]) {
			n, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			if n < 0 || n > len(runes) {
				return nil, outOfRange("startIndex")
			}
			start = n
		}
		fold := len(args) == 3 && comparisonArg(args, 2)
		return runtime.IntegerValue{Val: int32(runeIndex(s, argString(args, 0), start, fold))}, nil
	case "lastindexof":
		if err := arity("LastIndexOf", args, 1, 2); err != nil {
			return nil, err
		}
		upto := len(runes) - 1
		if len(args) == 2 {
			n, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			upto = n
		}
		find := argString(args, 0)
		return runtime.IntegerValue{Val: int32(runeLastIndex(s, find, upto-runeLen(find)+1, false))}, nil
	case "indexofany":
		if err := arity("IndexOfAny", args, 1, 2); err != nil {
			return nil, err
		}
		set := trimSet(args[:1])
		start, err := optInt(args, 1, 0)
		if err != nil {
			return nil, err
		}
		for idx := start; idx < len(runes); idx++ {
			if set(runes[idx]) {
				return runtime.IntegerValue{Val: int32(idx)}, nil
			}
		}
		return runtime.IntegerValue{Val: -1}, nil
	case "replace":
		if err := arity("Replace", args, 2, 3); err != nil {
			return nil, err
		}
		find := argString(args, 0)
		if find == "" {
			return nil, runtime.Exception("ArgumentException", "String cannot be of zero length.")
		}
		return str(replaceFold(s, find, argString(args, 1), -1, comparisonArg(args, 2))), nil
	case "split":
		return i.splitString(s, args)
	case "insert":
		if err := arity("Insert", args, 2, 2); err != nil {
			return nil, err
		}
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx > len(runes) {
			return nil, outOfRange("startIndex")
		}
		return str(string(runes[:idx]) + argString(args, 1) + string(runes[idx:])), nil
	case "remove":
		if err := arity("Remove", args, 1, 2); err != nil {
			return nil, err
		}
		start, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		count, err := optInt(args, 1, len(runes)-start)
		if err != nil {
			return nil, err
		}
		if start < 0 || count < 0 || start+count > len(runes) {
			return nil, outOfRange("startIndex")
		}
		return str(string(runes[:start]) + string(runes[start+count:])), nil
	case "padleft", "padright":
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		width, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		pad := ' '
		if len(args) == 2 {
			if pad, err = runtime.AsChar(args[1]); err != nil {
				return nil, err
			}
		}
		if width <= len(runes) {
			return str(s), nil
		}
		fill := strings.Repeat(string(pad), width-len(runes))
		if strings.EqualFold(name, "padleft") {
			return str(fill + s), nil
		}
		return str(s + fill), nil
	case "tochararray":
		out := make([]runtime.Value, len(runes))
		for idx, r := range runes {
			out[idx] = runtime.CharValue{Val: r}
		}
		return runtime.NewArray(out), nil
	case "chars":
		if err := arity("Chars", args, 1, 1); err != nil {
			return nil, err
		}
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(runes) {
			return nil, runtime.IndexOutOfRange(idx, len(runes))
		}
		return runtime.CharValue{Val: runes[idx]}, nil
	case "equals":
		if err := arity("Equals", args, 1, 2); err != nil {
			return nil, err
		}
		return boolean(compareStrings(s, argString(args, 0), comparisonArg(args, 1)) == 0), nil
	case "compareto":
		if err := arity("CompareTo", args, 1, 1); err != nil {
			return nil, err
		}
		return runtime.IntegerValue{Val: int32(compareStrings(s, argString(args, 0), false))}, nil
	case "tostring", "clone", "normalize", "trimtostring":
		return str(s), nil
	case "isnormalized":
		return boolean(true), nil
	case "gethashcode":
		return runtime.IntegerValue{Val: hashString(s)}, nil
	case "gettype":
		return typeObject("System.String"), nil
	case "getenumerator":
		return i.callStringMethod(s, "ToCharArray", nil)
	}
	chars, _ := i.callStringMethod(s, "ToCharArray", nil)
	if val, ok, err := i.sequenceMethod(chars.(*runtime.ArrayValue).Elements, name, args); ok {
		return val, err
	}
	return nil, missingMember(name, "String")
}

// splitString implements String.Split over a separator char, string or
// array of them, with optional count and StringSplitOptions.
func (i *Interpreter) splitString(s string, args []runtime.Value) (runtime.Value, error) {
	var seps []string
	var numbers []int
	for _, arg := range args {
		switch a := arg.(type) {
		case runtime.StringValue:
			seps = append(seps, a.Val)
		case runtime.CharValue:
			seps = append(seps, string(a.Val))
		case *runtime.ArrayValue:
			for _, el := range a.Elements {
				seps = append(seps, displayString(el))
			}
		case runtime.NothingValue:
		default:
			n, err := roundedInteger(arg)
			if err != nil {
				return nil, err
			}
			numbers = append(numbers, int(n))
		}
	}
	// Split(seps, options) or Split(seps, count, options).
	limit, options := -1, 0
	switch len(numbers) {
	case 1:
		options = numbers[0]
	case 2:
		limit, options = numbers[0], numbers[1]
	}
	removeEmpty := options&1 == 1
	trimEntries := options&2 == 2
	if len(seps) == 0 {
		seps = []string{" ", "\t", "\n", "\r"}
	}
	var parts []string
	rest := s
	for limit < 0 || len(parts) < limit-1 {
		at, width := -1, 0
		for _, sep := range seps {
			if sep == "" {
				continue
			}
			if idx := strings.Index(rest, sep); idx >= 0 && (at < 0 || idx < at) {
				at, width = idx, len(sep)
			}
		}
		if at < 0 {
			break
		}
		parts = append(parts, rest[:at])
		rest = rest[at+width:]
	}
	if limit != 0 {
		parts = append(parts, rest)
	}
	if trimEntries {
		for idx := range parts {
			parts[idx] = strings.TrimSpace(parts[idx])
		}
	}
	if removeEmpty {
		kept := parts[:0]
		for _, part := range parts {
			if part != "" {
				kept = append(kept, part)
			}
		}
		parts = kept
	}
	return stringsToArray(parts), nil
}

// callCharMethod implements Char instance members; anything else is tried
// as a one-character string.
func (i *Interpreter) callCharMethod(c runtime.CharValue, name string, args []runtime.Value) (runtime.Value, error) {
	switch strings.ToLower(name) {
	case "toupper", "toupperinvariant":
		return runtime.CharValue{Val: unicode.ToUpper(c.Val)}, nil
	case "tolower", "tolowerinvariant":
		return runtime.CharValue{Val: unicode.ToLower(c.Val)}, nil
	case "equals":
		if err := arity("Equals", args, 1, 1); err != nil {
			return nil, err
		}
		r, err := runtime.AsChar(args[0])
		return boolean(err == nil && r == c.Val), nil
	case "compareto":
		if err := arity("CompareTo", args, 1, 1); err != nil {
			return nil, err
		}
		r, err := runtime.AsChar(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.IntegerValue{Val: int32(c.Val - r)}, nil
	case "gettype":
		return typeObject("System.Char"), nil
	case "gethashcode":
		return runtime.IntegerValue{Val: int32(c.Val)}, nil
	}
	if !utf8.ValidRune(c.Val) {
		return nil, missingMember(name, "Char")
	}
	return i.callStringMethod(string(c.Val), name, args)
}

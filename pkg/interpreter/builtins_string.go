package interpreter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"len":        builtinLen,
		"left":       builtinLeft,
		"right":      builtinRight,
		"mid":        builtinMid,
		"ucase":      stringMap("UCase", strings.ToUpper),
		"lcase":      stringMap("LCase", strings.ToLower),
		"trim":       stringMap("Trim", func(s string) string { return strings.Trim(s, " ") }),
		"ltrim":      stringMap("LTrim", func(s string) string { return strings.TrimLeft(s, " ") }),
		"rtrim":      stringMap("RTrim", func(s string) string { return strings.TrimRight(s, " ") }),
		"strreverse": stringMap("StrReverse", reverseString),
		"instr":      builtinInStr,
		"instrrev":   builtinInStrRev,
		"replace":    builtinReplace,
		"chr":        builtinChr,
		"chrw":       builtinChr,
		"asc":        builtinAsc,
		"ascw":       builtinAsc,
		"split":      builtinSplit,
		"join":       builtinJoin,
		"space":      builtinSpace,
		"string":     builtinStrDup,
		"strdup":     builtinStrDup,
		"strcomp":    builtinStrComp,
		"strconv":    builtinStrConv,
		"lset":       builtinLSet,
		"rset":       builtinRSet,
		"filter":     builtinFilter,

		"string.empty":              constant(str("")),
		"string.isnullorempty":      builtinIsNullOrEmpty,
		"string.isnullorwhitespace": builtinIsNullOrWhiteSpace,
		"string.format":             builtinStringFormat,
		"string.join":               builtinStringJoin,
		"string.concat":             builtinStringConcat,
		"string.compare":            builtinStringCompare,
		"string.equals":             builtinStringEquals,
		"string.copy":               identity("String.Copy"),

		"char.isdigit":         charPredicate("Char.IsDigit", unicode.IsDigit),
		"char.isnumber":        charPredicate("Char.IsNumber", unicode.IsNumber),
		"char.isletter":        charPredicate("Char.IsLetter", unicode.IsLetter),
		"char.isletterordigit": charPredicate("Char.IsLetterOrDigit", func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}),
		"char.isupper":         charPredicate("Char.IsUpper", unicode.IsUpper),
		"char.islower":         charPredicate("Char.IsLower", unicode.IsLower),
		"char.iswhitespace":    charPredicate("Char.IsWhiteSpace", unicode.IsSpace),
		"char.ispunctuation":   charPredicate("Char.IsPunctuation", unicode.IsPunct),
		"char.issymbol":        charPredicate("Char.IsSymbol", unicode.IsSymbol),
		"char.iscontrol":       charPredicate("Char.IsControl", unicode.IsControl),
		"char.toupper":         charMap("Char.ToUpper", unicode.ToUpper),
		"char.tolower":         charMap("Char.ToLower", unicode.ToLower),
		"char.getnumericvalue": func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
			if err := arity("Char.GetNumericValue", args, 1, 1); err != nil {
				return nil, err
			}
			r, err := runtime.AsChar(args[0])
			if err != nil {
				return nil, err
			}
			if r < '0' || r > '9' {
				return double(-1), nil
			}
			return double(float64(r - '0')), nil
		},

		"stringcomparison.currentculture":             constant(runtime.IntegerValue{Val: 0}),
		"stringcomparison.currentcultureignorecase":   constant(runtime.IntegerValue{Val: 1}),
		"stringcomparison.invariantculture":           constant(runtime.IntegerValue{Val: 2}),
		"stringcomparison.invariantcultureignorecase": constant(runtime.IntegerValue{Val: 3}),
		"stringcomparison.ordinal":                    constant(runtime.IntegerValue{Val: 4}),
		"stringcomparison.ordinalignorecase":          constant(runtime.IntegerValue{Val: 5}),
		"stringsplitoptions.none":                     constant(runtime.IntegerValue{Val: 0}),
		"stringsplitoptions.removeemptyentries":       constant(runtime.IntegerValue{Val: 1}),
		"stringsplitoptions.trimentries":              constant(runtime.IntegerValue{Val: 2}),
	})
}

// Positions in strings count runes, so non-ASCII text indexes by
// character.

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func reverseString(s string) string {
	runes := []rune(s)
	for a, b := 0, len(runes)-1; a < b; a, b = a+1, b-1 {
		runes[a], runes[b] = runes[b], runes[a]
	}
	return string(runes)
}

// runeIndex finds sub in s starting at rune offset from, returning a rune
// offset or -1.
func runeIndex(s, sub string, from int, fold bool) int {
	runes := []rune(s)
	if from < 0 || from > len(runes) {
		return -1
	}
	hay := string(runes[from:])
	if fold {
		hay, sub = strings.ToLower(hay), strings.ToLower(sub)
	}
	idx := strings.Index(hay, sub)
	if idx < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(hay[:idx])
}

// runeLastIndex finds the last sub that starts at or before rune offset
// upto.
func runeLastIndex(s, sub string, upto int, fold bool) int {
	runes := []rune(s)
	end := upto + runeLen(sub)
	if end > len(runes) {
		end = len(runes)
	}
	if end < 0 {
		return -1
	}
	hay := string(runes[:end])
	if fold {
		hay, sub = strings.ToLower(hay), strings.ToLower(sub)
	}
	idx := strings.LastIndex(hay, sub)
	if idx < 0 {
		return -1
	}
	return utf8.RuneCountInString(hay[:idx])
}

func textCompare(args []runtime.Value, idx int) bool {
	if idx >= len(args) || runtime.IsNothing(args[idx]) {
		return false
	}
	n, err := roundedInteger(args[idx])
	return err == nil && n == 1
}

func stringMap(name string, fn func(string) string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return str(fn(displayString(args[0]))), nil
	}
}

func builtinLen(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Len", args, 1, 1); err != nil {
		return nil, err
	}
	if obj, ok := args[0].(*runtime.ObjectValue); ok && obj.IsStruct {
		return runtime.IntegerValue{Val: int32(len(obj.Fields))}, nil
	}
	return runtime.IntegerValue{Val: int32(runeLen(displayString(args[0])))}, nil
}

func negativeLength() *runtime.Error {
	return runtime.Exception("ArgumentException", "Argument 'Length' must be greater or equal to zero.")
}

func builtinLeft(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Left", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, negativeLength()
	}
	runes := []rune(displayString(args[0]))
	if n > len(runes) {
		n = len(runes)
	}
	return str(string(runes[:n])), nil
}

func builtinRight(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Right", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, negativeLength()
	}
	runes := []rune(displayString(args[0]))
	if n > len(runes) {
		n = len(runes)
	}
	return str(string(runes[len(runes)-n:])), nil
}

func builtinMid(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Mid", args, 2, 3); err != nil {
		return nil, err
	}
	start, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	if start < 1 {
		return nil, runtime.Exception("ArgumentException", "Argument 'Start' must be greater than zero.")
	}
	runes := []rune(displayString(args[0]))
	if start > len(runes) {
		return str(""), nil
	}
	length := len(runes) - start + 1
	if len(args) == 3 {
		if length, err = argInt(args, 2); err != nil {
			return nil, err
		}
		if length < 0 {
			return nil, negativeLength()
		}
	}
	end := start - 1 + length
	if end > len(runes) {
		end = len(runes)
	}
	return str(string(runes[start-1 : end])), nil
}

// builtinInStr is InStr([start,] string1, string2[, compare]) with 1-based
// positions and 0 for "not found".
func builtinInStr(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("InStr", args, 2, 4); err != nil {
		return nil, err
	}
	start := 1
	if len(args) >= 3 && runtime.IsNumeric(args[0]) {
		n, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, runtime.Exception("ArgumentException", "Argument 'Start' must be greater than zero.")
		}
		start = n
		args = args[1:]
	}
	s, find := argString(args, 0), argString(args, 1)
	if start > runeLen(s) {
		if find == "" && start == runeLen(s)+1 {
			return runtime.IntegerValue{Val: int32(start)}, nil
		}
		return runtime.IntegerValue{}, nil
	}
	if find == "" {
		return runtime.IntegerValue{Val: int32(start)}, nil
	}
	idx := runeIndex(s, find, start-1, textCompare(args, 2))
	return runtime.IntegerValue{Val: int32(idx + 1)}, nil
}

func builtinInStrRev(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("InStrRev", args, 2, 4); err != nil {
		return nil, err
	}
	s, find := argString(args, 0), argString(args, 1)
	start, err := optInt(args, 2, -1)
	if err != nil {
		return nil, err
	}
	switch {
	case start == -1:
		start = runeLen(s)
	case start < 1:
		return nil, runtime.Exception("ArgumentException", "Argument 'Start' must be greater than zero.")
	}
	if find == "" {
		return runtime.IntegerValue{Val: int32(start)}, nil
	}
	if start > runeLen(s) {
		return runtime.IntegerValue{}, nil
	}
	idx := runeLastIndex(s, find, start-runeLen(find), textCompare(args, 3))
	return runtime.IntegerValue{Val: int32(idx + 1)}, nil
}

// replaceFold replaces up to count (-1 for all) occurrences of find,
// optionally ignoring case.
func replaceFold(s, find, repl string, count int, fold bool) string {
	if find == "" {
		return s
	}
	if !fold {
		return strings.Replace(s, find, repl, count)
	}
	var sb strings.Builder
	lower, lowerFind := strings.ToLower(s), strings.ToLower(find)
	if len(lower) != len(s) {
		return strings.Replace(s, find, repl, count)
	}
	for count != 0 {
		idx := strings.Index(lower, lowerFind)
		if idx < 0 {
			break
		}
		sb.WriteString(s[:idx])
		sb.WriteString(repl)
		s, lower = s[idx+len(find):], lower[idx+len(find):]
		count--
	}
	sb.WriteString(s)
	return sb.String()
}

// builtinReplace is Replace(expr, find, repl[, start[, count[, compare]]]).
// As in VB, the result starts at position start.
func builtinReplace(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Replace", args, 3, 6); err != nil {
		return nil, err
	}
	s := argString(args, 0)
	start, err := optInt(args, 3, 1)
	if err != nil {
		return nil, err
	}
	count, err := optInt(args, 4, -1)
	if err != nil {
		return nil, err
	}
	if start < 1 {
		return nil, runtime.Exception("ArgumentException", "Argument 'Start' must be greater than zero.")
	}
	runes := []rune(s)
	if start > len(runes) {
		return str(""), nil
	}
	s = string(runes[start-1:])
	return str(replaceFold(s, argString(args, 1), argString(args, 2), count, textCompare(args, 5))), nil
}

func builtinChr(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Chr", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if n < -32768 || n > 65535 {
		return nil, runtime.Exception("ArgumentException", "Procedure call or argument is not valid.")
	}
	if n < 0 {
		n += 65536
	}
	return runtime.CharValue{Val: rune(n)}, nil
}

func builtinAsc(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Asc", args, 1, 1); err != nil {
		return nil, err
	}
	s := displayString(args[0])
	if s == "" {
		return nil, runtime.Exception("ArgumentException", "Argument 'String' cannot be empty.")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return runtime.IntegerValue{Val: int32(r)}, nil
}

func stringsToArray(parts []string) *runtime.ArrayValue {
	out := make([]runtime.Value, len(parts))
	for idx, part := range parts {
		out[idx] = str(part)
	}
	return runtime.NewArray(out)
}

// builtinSplit is Split(expr[, delimiter[, limit[, compare]]]). An empty
// string splits into an empty array.
func builtinSplit(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Split", args, 1, 4); err != nil {
		return nil, err
	}
	s := argString(args, 0)
	if s == "" {
		return runtime.NewArray(nil), nil
	}
	delim := " "
	if len(args) > 1 && !runtime.IsNothing(args[1]) {
		delim = displayString(args[1])
	}
	limit, err := optInt(args, 2, -1)
	if err != nil {
		return nil, err
	}
	if delim == "" {
		return stringsToArray([]string{s}), nil
	}
	if textCompare(args, 3) {
		return stringsToArray(splitFold(s, delim, limit)), nil
	}
	return stringsToArray(strings.SplitN(s, delim, limit)), nil
}

func splitFold(s, delim string, limit int) []string {
	var parts []string
	lower, lowerDelim := strings.ToLower(s), strings.ToLower(delim)
	for limit < 0 || len(parts) < limit-1 {
		idx := strings.Index(lower, lowerDelim)
		if idx < 0 || len(lower) != len(s) {
			break
		}
		parts = append(parts, s[:idx])
		s, lower = s[idx+len(delim):], lower[idx+len(delim):]
	}
	return append(parts, s)
}

func builtinJoin(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Join", args, 1, 2); err != nil {
		return nil, err
	}
	items, err := i.iterate(args[0])
	if err != nil {
		return nil, err
	}
	delim := " "
	if len(args) > 1 {
		delim = displayString(args[1])
	}
	parts := make([]string, len(items))
	for idx, item := range items {
		parts[idx] = displayString(item)
	}
	return str(strings.Join(parts, delim)), nil
}

func builtinSpace(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Space", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, negativeLength()
	}
	return str(strings.Repeat(" ", n)), nil
}

// builtinStrDup is StrDup(n, char) and String(n, char); a numeric char
// argument is a character code.
func builtinStrDup(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("StrDup", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, negativeLength()
	}
	var ch rune
	if runtime.IsNumeric(args[1]) {
		code, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		ch = rune(code)
	} else {
		s := displayString(args[1])
		if s == "" {
			return nil, runtime.Exception("ArgumentException", "Length of argument 'Character' must be greater than zero.")
		}
		ch, _ = utf8.DecodeRuneInString(s)
	}
	return str(strings.Repeat(string(ch), n)), nil
}

func compareStrings(a, b string, fold bool) int {
	if fold {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return strings.Compare(a, b)
}

func builtinStrComp(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("StrComp", args, 2, 3); err != nil {
		return nil, err
	}
	return runtime.IntegerValue{Val: int32(compareStrings(argString(args, 0), argString(args, 1), textCompare(args, 2)))}, nil
}

func builtinStrConv(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("StrConv", args, 2, 3); err != nil {
		return nil, err
	}
	s := argString(args, 0)
	conv, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	switch {
	case conv&3 == 3:
		return str(cases.Title(language.AmericanEnglish).String(s)), nil
	case conv&1 != 0:
		return str(strings.ToUpper(s)), nil
	case conv&2 != 0:
		return str(strings.ToLower(s)), nil
	}
	return str(s), nil
}

func padTo(s string, n int, left bool) string {
	runes := []rune(s)
	if len(runes) >= n {
		return string(runes[:n])
	}
	pad := strings.Repeat(" ", n-len(runes))
	if left {
		return pad + s
	}
	return s + pad
}

func builtinLSet(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("LSet", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	return str(padTo(argString(args, 0), n, false)), nil
}

func builtinRSet(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("RSet", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	return str(padTo(argString(args, 0), n, true)), nil
}

// builtinFilter is Filter(source, match[, include[, compare]]).
func builtinFilter(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Filter", args, 2, 4); err != nil {
		return nil, err
	}
	items, err := i.iterate(args[0])
	if err != nil {
		return nil, err
	}
	match := argString(args, 1)
	include := true
	if len(args) > 2 && !runtime.IsNothing(args[2]) {
		if include, err = argBool(args, 2); err != nil {
			return nil, err
		}
	}
	fold := textCompare(args, 3)
	var out []string
	for _, item := range items {
		s := displayString(item)
		if (runeIndex(s, match, 0, fold) >= 0) == include {
			out = append(out, s)
		}
	}
	return stringsToArray(out), nil
}

func builtinIsNullOrEmpty(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.IsNullOrEmpty", args, 1, 1); err != nil {
		return nil, err
	}
	return boolean(displayString(args[0]) == ""), nil
}

func builtinIsNullOrWhiteSpace(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.IsNullOrWhiteSpace", args, 1, 1); err != nil {
		return nil, err
	}
	return boolean(strings.TrimSpace(displayString(args[0])) == ""), nil
}

func builtinStringFormat(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.Format", args, 1, -1); err != nil {
		return nil, err
	}
	rest := args[1:]
	if len(rest) == 1 {
		if arr, ok := rest[0].(*runtime.ArrayValue); ok {
			rest = arr.Elements
		}
	}
	text, err := compositeFormat(displayString(args[0]), rest)
	if err != nil {
		return nil, err
	}
	return str(text), nil
}

func builtinStringJoin(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.Join", args, 2, -1); err != nil {
		return nil, err
	}
	parts, err := stringItems(i, args[1:])
	if err != nil {
		return nil, err
	}
	return str(strings.Join(parts, displayString(args[0]))), nil
}

func builtinStringConcat(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	parts, err := stringItems(i, args)
	if err != nil {
		return nil, err
	}
	return str(strings.Join(parts, "")), nil
}

// ignoresCase reports whether a StringComparison value or a Boolean
// ignoreCase flag asks for a case-insensitive comparison.
func ignoresCase(v runtime.Value) bool {
	if b, ok := v.(runtime.BoolValue); ok {
		return b.Val
	}
	n, err := roundedInteger(v)
	return err == nil && n%2 == 1
}

func builtinStringCompare(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.Compare", args, 2, 3); err != nil {
		return nil, err
	}
	fold := len(args) == 3 && ignoresCase(args[2])
	cmp := compareStrings(argString(args, 0), argString(args, 1), fold)
	return runtime.IntegerValue{Val: int32(cmp)}, nil
}

func builtinStringEquals(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("String.Equals", args, 2, 3); err != nil {
		return nil, err
	}
	fold := len(args) == 3 && ignoresCase(args[2])
	return boolean(compareStrings(argString(args, 0), argString(args, 1), fold) == 0), nil
}

func charPredicate(name string, pred func(rune) bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		s := displayString(args[0])
		if len(args) == 2 {
			idx, err := argInt(args, 1)
			if err != nil {
				return nil, err
			}
			runes := []rune(s)
			if idx < 0 || idx >= len(runes) {
				return nil, runtime.IndexOutOfRange(idx, len(runes))
			}
			return boolean(pred(runes[idx])), nil
		}
		r, _ := utf8.DecodeRuneInString(s)
		return boolean(s != "" && pred(r)), nil
	}
}

func charMap(name string, fn func(rune) rune) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		r, err := runtime.AsChar(args[0])
		if err != nil {
			return nil, err
		}
		return runtime.CharValue{Val: fn(r)}, nil
	}
}

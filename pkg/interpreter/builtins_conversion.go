package interpreter

import (
	"math"
	"strconv"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"cstr":    convertTo("CStr", "String"),
		"cint":    convertTo("CInt", "Integer"),
		"cshort":  convertRange("CShort", math.MinInt16, math.MaxInt16),
		"cushort": convertRange("CUShort", 0, math.MaxUint16),
		"cuint":   convertRange("CUInt", 0, math.MaxUint32),
		"csbyte":  convertRange("CSByte", math.MinInt8, math.MaxInt8),
		"clng":    convertTo("CLng", "Long"),
		"culng":   convertRange("CULng", 0, math.MaxInt64),
		"cdbl":    convertTo("CDbl", "Double"),
		"csng":    convertTo("CSng", "Single"),
		"cdec":    convertTo("CDec", "Decimal"),
		"cbool":   convertTo("CBool", "Boolean"),
		"cbyte":   convertTo("CByte", "Byte"),
		"cchar":   convertTo("CChar", "Char"),
		"cdate":   convertTo("CDate", "Date"),
		"cobj":    identity("CObj"),
		"cvar":    identity("CVar"),
		"ccur":    builtinCCur,
		"val":     builtinVal,
		"str":     builtinStr,
		"hex":     radixString("Hex", 16),
		"oct":     radixString("Oct", 8),

		"format":         builtinFormat,
		"formatnumber":   formatFixed("FormatNumber", func(f float64, d int) string { return fixed(f, d, true) }),
		"formatcurrency": formatFixed("FormatCurrency", currencyString),
		"formatpercent":  formatFixed("FormatPercent", percentString),
		"formatdatetime": builtinFormatDateTime,

		"convert.tostring":   builtinConvertToString,
		"convert.toint32":    convertTo("Convert.ToInt32", "Integer"),
		"convert.toint16":    convertRange("Convert.ToInt16", math.MinInt16, math.MaxInt16),
		"convert.toint64":    convertTo("Convert.ToInt64", "Long"),
		"convert.todouble":   convertTo("Convert.ToDouble", "Double"),
		"convert.tosingle":   convertTo("Convert.ToSingle", "Single"),
		"convert.todecimal":  convertTo("Convert.ToDecimal", "Decimal"),
		"convert.toboolean":  convertTo("Convert.ToBoolean", "Boolean"),
		"convert.tobyte":     convertTo("Convert.ToByte", "Byte"),
		"convert.tochar":     convertTo("Convert.ToChar", "Char"),
		"convert.todatetime": convertTo("Convert.ToDateTime", "Date"),

		"integer.parse":    parseInteger("Integer.Parse", math.MinInt32, math.MaxInt32),
		"int32.parse":      parseInteger("Int32.Parse", math.MinInt32, math.MaxInt32),
		"short.parse":      parseInteger("Short.Parse", math.MinInt16, math.MaxInt16),
		"int16.parse":      parseInteger("Int16.Parse", math.MinInt16, math.MaxInt16),
		"long.parse":       parseInteger("Long.Parse", math.MinInt64, math.MaxInt64),
		"int64.parse":      parseInteger("Int64.Parse", math.MinInt64, math.MaxInt64),
		"byte.parse":       parseInteger("Byte.Parse", 0, 255),
		"double.parse":     parseFloat("Double.Parse"),
		"single.parse":     parseFloat("Single.Parse"),
		"decimal.parse":    parseFloat("Decimal.Parse"),
		"boolean.parse":    builtinBooleanParse,
		"integer.tryparse": tryParse(parseInteger("Integer.Parse", math.MinInt32, math.MaxInt32), runtime.IntegerValue{}),
		"int32.tryparse":   tryParse(parseInteger("Int32.Parse", math.MinInt32, math.MaxInt32), runtime.IntegerValue{}),
		"int16.tryparse":   tryParse(parseInteger("Int16.Parse", math.MinInt16, math.MaxInt16), runtime.IntegerValue{}),
		"long.tryparse":    tryParse(parseInteger("Long.Parse", math.MinInt64, math.MaxInt64), runtime.LongValue{}),
		"int64.tryparse":   tryParse(parseInteger("Int64.Parse", math.MinInt64, math.MaxInt64), runtime.LongValue{}),
		"byte.tryparse":    tryParse(parseInteger("Byte.Parse", 0, 255), runtime.ByteValue{}),
		"double.tryparse":  tryParse(parseFloat("Double.Parse"), runtime.DoubleValue{}),
		"single.tryparse":  tryParse(parseFloat("Single.Parse"), runtime.SingleValue{}),
		"decimal.tryparse": tryParse(parseFloat("Decimal.Parse"), runtime.DoubleValue{}),
		"boolean.tryparse": tryParse(builtinBooleanParse, runtime.BoolValue{}),

		"integer.maxvalue":        constant(runtime.IntegerValue{Val: math.MaxInt32}),
		"integer.minvalue":        constant(runtime.IntegerValue{Val: math.MinInt32}),
		"int32.maxvalue":          constant(runtime.IntegerValue{Val: math.MaxInt32}),
		"int32.minvalue":          constant(runtime.IntegerValue{Val: math.MinInt32}),
		"short.maxvalue":          constant(runtime.IntegerValue{Val: math.MaxInt16}),
		"short.minvalue":          constant(runtime.IntegerValue{Val: math.MinInt16}),
		"long.maxvalue":           constant(runtime.LongValue{Val: math.MaxInt64}),
		"long.minvalue":           constant(runtime.LongValue{Val: math.MinInt64}),
		"int64.maxvalue":          constant(runtime.LongValue{Val: math.MaxInt64}),
		"int64.minvalue":          constant(runtime.LongValue{Val: math.MinInt64}),
		"byte.maxvalue":           constant(runtime.ByteValue{Val: 255}),
		"byte.minvalue":           constant(runtime.ByteValue{}),
		"double.maxvalue":         constant(runtime.DoubleValue{Val: math.MaxFloat64}),
		"double.minvalue":         constant(runtime.DoubleValue{Val: -math.MaxFloat64}),
		"double.epsilon":          constant(runtime.DoubleValue{Val: math.SmallestNonzeroFloat64}),
		"double.nan":              constant(runtime.DoubleValue{Val: math.NaN()}),
		"double.positiveinfinity": constant(runtime.DoubleValue{Val: math.Inf(1)}),
		"double.negativeinfinity": constant(runtime.DoubleValue{Val: math.Inf(-1)}),
		"double.isnan":            doublePredicate("Double.IsNaN", math.IsNaN),
		"double.isinfinity":       doublePredicate("Double.IsInfinity", func(f float64) bool { return math.IsInf(f, 0) }),
		"single.maxvalue":         constant(runtime.SingleValue{Val: math.MaxFloat32}),
		"single.minvalue":         constant(runtime.SingleValue{Val: -math.MaxFloat32}),
		"decimal.maxvalue":        constant(runtime.DoubleValue{Val: 79228162514264337593543950335}),
		"decimal.minvalue":        constant(runtime.DoubleValue{Val: -79228162514264337593543950335}),
		"char.maxvalue":           constant(runtime.CharValue{Val: 0xFFFF}),
		"char.minvalue":           constant(runtime.CharValue{}),
	})
}

func convertTo(name, typeName string) builtinFunc {
	t := &ast.TypeRef{Name: typeName}
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		if typeName == "String" {
			return str(displayString(args[0])), nil
		}
		return i.coerceToType(args[0], t)
	}
}

// convertRange is CInt with a narrower range, for the 16-bit and unsigned
// conversions that store their result as Integer or Long.
func convertRange(name string, lo, hi float64) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := roundedInteger(args[0])
		if err != nil {
			return nil, err
		}
		if float64(n) < lo || float64(n) > hi {
			return nil, overflow()
		}
		return integral(n), nil
	}
}

func identity(name string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return args[0], nil
	}
}

func builtinCCur(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("CCur", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := runtime.AsDouble(args[0])
	if err != nil {
		return nil, err
	}
	return double(math.RoundToEven(f*10000) / 10000), nil
}

func builtinVal(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Val", args, 1, 1); err != nil {
		return nil, err
	}
	return double(runtime.Val(displayString(args[0]))), nil
}

func builtinStr(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Str", args, 1, 1); err != nil {
		return nil, err
	}
	return str(runtime.Str(args[0])), nil
}

func radixString(name string, base int) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := roundedInteger(args[0])
		if err != nil {
			return nil, err
		}
		u := uint64(n)
		if n < 0 && n >= math.MinInt32 {
			u = uint64(uint32(int32(n)))
		}
		return str(strings.ToUpper(strconv.FormatUint(u, base))), nil
	}
}

func builtinFormat(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Format", args, 1, 2); err != nil {
		return nil, err
	}
	return str(formatValue(args[0], argString(args, 1))), nil
}

// formatFixed builds FormatNumber and friends: the value, then an optional
// count of decimal places (-1 for the default of two).
func formatFixed(name string, render func(float64, int) string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 5); err != nil {
			return nil, err
		}
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		digits, err := optInt(args, 1, 2)
		if err != nil {
			return nil, err
		}
		if digits < 0 {
			digits = 2
		}
		return str(render(f, digits)), nil
	}
}

func builtinFormatDateTime(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("FormatDateTime", args, 1, 2); err != nil {
		return nil, err
	}
	d, err := runtime.AsDate(args[0])
	if err != nil {
		return nil, err
	}
	named, err := optInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	formats := []string{"General Date", "Long Date", "Short Date", "Long Time", "Short Time"}
	if named < 0 || named >= len(formats) {
		return nil, runtime.Exception("ArgumentException", "Argument 'NamedFormat' is not a valid value.")
	}
	return str(formatDate(runtime.OLEToTime(d), formats[named])), nil
}

// builtinConvertToString is Convert.ToString(value[, base]).
func builtinConvertToString(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Convert.ToString", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 && runtime.IsNumeric(args[1]) && isIntegralValue(args[0]) {
		base, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		switch base {
		case 2, 8, 10, 16:
		default:
			return nil, runtime.Exception("ArgumentException", "Invalid Base.")
		}
		n, _ := runtime.AsLong(args[0])
		return str(strconv.FormatInt(n, base)), nil
	}
	if len(args) == 2 {
		return str(formatValue(args[0], displayString(args[1]))), nil
	}
	return str(displayString(args[0])), nil
}

func formatError() *runtime.Error {
	return runtime.Exception("FormatException", "Input string was not in a correct format.")
}

// parseInteger implements the strict Parse methods: surrounding white
// space, a sign and thousands separators are accepted, nothing else.
func parseInteger(name string, lo, hi int64) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		if runtime.IsNothing(args[0]) {
			return nil, runtime.Exception("ArgumentNullException", "Value cannot be null.")
		}
		text := strings.ReplaceAll(strings.TrimSpace(displayString(args[0])), ",", "")
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				return nil, overflow()
			}
			return nil, formatError()
		}
		if n < lo || n > hi {
			return nil, overflow()
		}
		switch {
		case hi == 255:
			return runtime.ByteValue{Val: uint8(n)}, nil
		case hi > math.MaxInt32:
			return runtime.LongValue{Val: n}, nil
		}
		return runtime.IntegerValue{Val: int32(n)}, nil
	}
}

func parseFloat(name string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		if runtime.IsNothing(args[0]) {
			return nil, runtime.Exception("ArgumentNullException", "Value cannot be null.")
		}
		text := strings.TrimSpace(displayString(args[0]))
		text = strings.TrimPrefix(strings.ReplaceAll(text, ",", ""), "$")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, formatError()
		}
		if strings.HasPrefix(strings.ToLower(name), "single") {
			return runtime.SingleValue{Val: float32(f)}, nil
		}
		return double(f), nil
	}
}

func builtinBooleanParse(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Boolean.Parse", args, 1, 1); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(displayString(args[0]))) {
	case "true":
		return boolean(true), nil
	case "false":
		return boolean(false), nil
	}
	return nil, runtime.Exception("FormatException", "String was not recognized as a valid Boolean.")
}

// tryParse wraps a Parse builtin as TryParse(s, ByRef result): result gets
// the parsed value, or zero on failure.
func tryParse(parse builtinFunc, zero runtime.Value) builtinFunc {
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if len(args) < 2 {
			return nil, runtime.Exception("ArgumentException", "TryParse expects a value and a result variable")
		}
		val, err := parse(i, args[:1])
		if err != nil {
			args[1] = zero
			return boolean(false), nil
		}
		args[1] = val
		return boolean(true), nil
	}
}

func doublePredicate(name string, pred func(float64) bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		return boolean(pred(f)), nil
	}
}

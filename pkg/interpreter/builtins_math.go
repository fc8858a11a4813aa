package interpreter

import (
	"math"
	"math/rand"
	"time"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	table := map[string]builtinFunc{
		"abs":       builtinAbs,
		"int":       truncating("Int", math.Floor),
		"fix":       truncating("Fix", math.Trunc),
		"sgn":       builtinSign("Sgn"),
		"sqr":       builtinSqr,
		"rnd":       builtinRnd,
		"randomize": builtinRandomize,
		"round":     builtinRound,
		"log":       builtinLog,
		"exp":       unaryMath("Exp", math.Exp),
		"sin":       unaryMath("Sin", math.Sin),
		"cos":       unaryMath("Cos", math.Cos),
		"tan":       unaryMath("Tan", math.Tan),
		"atn":       unaryMath("Atn", math.Atan),
	}
	mathTable := map[string]builtinFunc{
		"abs":           builtinAbs,
		"sqrt":          unaryMath("Sqrt", math.Sqrt),
		"round":         builtinRound,
		"log":           builtinLog,
		"log10":         unaryMath("Log10", math.Log10),
		"log2":          unaryMath("Log2", math.Log2),
		"exp":           unaryMath("Exp", math.Exp),
		"sin":           unaryMath("Sin", math.Sin),
		"cos":           unaryMath("Cos", math.Cos),
		"tan":           unaryMath("Tan", math.Tan),
		"asin":          unaryMath("Asin", math.Asin),
		"acos":          unaryMath("Acos", math.Acos),
		"atan":          unaryMath("Atan", math.Atan),
		"sinh":          unaryMath("Sinh", math.Sinh),
		"cosh":          unaryMath("Cosh", math.Cosh),
		"tanh":          unaryMath("Tanh", math.Tanh),
		"cbrt":          unaryMath("Cbrt", math.Cbrt),
		"ceiling":       unaryMath("Ceiling", math.Ceil),
		"floor":         unaryMath("Floor", math.Floor),
		"truncate":      unaryMath("Truncate", math.Trunc),
		"sign":          builtinSign("Sign"),
		"max":           extreme("Max", 1),
		"min":           extreme("Min", -1),
		"pow":           binaryMath("Pow", math.Pow),
		"atan2":         binaryMath("Atan2", math.Atan2),
		"ieeeremainder": binaryMath("IEEERemainder", math.Remainder),
		"clamp":         builtinClamp,
		"pi":            constant(double(math.Pi)),
		"e":             constant(double(math.E)),
	}
	for name, fn := range mathTable {
		table["math."+name] = fn
	}
	for _, name := range []string{"max", "min", "ceiling", "floor", "pow", "atan2", "sign", "truncate"} {
		table[name] = mathTable[name]
	}
	registerBuiltins(table)
}

func binaryMath(name string, fn func(a, b float64) float64) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		a, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		b, err := runtime.AsDouble(args[1])
		if err != nil {
			return nil, err
		}
		return double(fn(a, b)), nil
	}
}

// numericArg rejects values that only convert to numbers by parsing, such
// as Booleans and dates, and returns the rest unchanged.
func numericArg(v runtime.Value) (runtime.Value, error) {
	switch v.(type) {
	case runtime.IntegerValue, runtime.LongValue, runtime.SingleValue, runtime.DoubleValue, runtime.ByteValue:
		return v, nil
	case runtime.NothingValue:
		return runtime.IntegerValue{}, nil
	case runtime.BoolValue:
		if runtime.IsTruthy(v) {
			return runtime.IntegerValue{Val: -1}, nil
		}
		return runtime.IntegerValue{}, nil
	}
	f, err := runtime.AsDouble(v)
	if err != nil {
		return nil, runtime.TypeMismatch("Double", runtime.TypeName(v))
	}
	return double(f), nil
}

func builtinAbs(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Abs", args, 1, 1); err != nil {
		return nil, err
	}
	v, err := numericArg(args[0])
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case runtime.IntegerValue:
		if n.Val == math.MinInt32 {
			return nil, overflow()
		}
		if n.Val < 0 {
			return runtime.IntegerValue{Val: -n.Val}, nil
		}
		return n, nil
	case runtime.LongValue:
		if n.Val == math.MinInt64 {
			return nil, overflow()
		}
		if n.Val < 0 {
			return runtime.LongValue{Val: -n.Val}, nil
		}
		return n, nil
	case runtime.SingleValue:
		return runtime.SingleValue{Val: float32(math.Abs(float64(n.Val)))}, nil
	case runtime.ByteValue:
		return n, nil
	}
	f, _ := runtime.AsDouble(v)
	return double(math.Abs(f)), nil
}

// truncating builds Int and Fix, which keep integral types and round
// floating values toward negative infinity or zero.
func truncating(name string, fn func(float64) float64) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		v, err := numericArg(args[0])
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case runtime.IntegerValue, runtime.LongValue, runtime.ByteValue:
			return n, nil
		case runtime.SingleValue:
			return runtime.SingleValue{Val: float32(fn(float64(n.Val)))}, nil
		}
		f, _ := runtime.AsDouble(v)
		return double(fn(f)), nil
	}
}

func builtinSign(name string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		switch {
		case math.IsNaN(f):
			return nil, runtime.Exception("ArithmeticException", "Function does not accept floating point Not-a-Number values.")
		case f > 0:
			return runtime.IntegerValue{Val: 1}, nil
		case f < 0:
			return runtime.IntegerValue{Val: -1}, nil
		}
		return runtime.IntegerValue{}, nil
	}
}

func invalidArgument(param string) *runtime.Error {
	return runtime.Exception("ArgumentException", "Argument '"+param+"' is not a valid value.")
}

func builtinSqr(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Sqr", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := runtime.AsDouble(args[0])
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return nil, invalidArgument("Number")
	}
	return double(math.Sqrt(f)), nil
}

// builtinLog is VB Log (natural logarithm) and Math.Log with an optional
// base.
func builtinLog(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Log", args, 1, 2); err != nil {
		return nil, err
	}
	f, err := runtime.AsDouble(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		base, err := runtime.AsDouble(args[1])
		if err != nil {
			return nil, err
		}
		return double(math.Log(f) / math.Log(base)), nil
	}
	return double(math.Log(f)), nil
}

// builtinRnd returns the next Single in [0, 1). Rnd(0) repeats the last
// number and a negative argument reseeds from it.
func builtinRnd(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Rnd", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		switch {
		case f == 0:
			return runtime.SingleValue{Val: i.rnd}, nil
		case f < 0:
			i.rng = rand.New(rand.NewSource(int64(math.Float64bits(f))))
		}
	}
	i.rnd = i.rng.Float32()
	return runtime.SingleValue{Val: i.rnd}, nil
}

func builtinRandomize(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Randomize", args, 0, 1); err != nil {
		return nil, err
	}
	seed := time.Now().UnixNano()
	if len(args) == 1 && !runtime.IsNothing(args[0]) {
		f, err := runtime.AsDouble(args[0])
		if err != nil {
			return nil, err
		}
		seed = int64(math.Float64bits(f))
	}
	i.rng = rand.New(rand.NewSource(seed))
	return runtime.Nothing, nil
}

// roundHalfEven rounds f to digits decimal places, ties to even.
func roundHalfEven(f float64, digits int) float64 {
	if digits == 0 {
		return math.RoundToEven(f)
	}
	scale := math.Pow(10, float64(digits))
	return math.RoundToEven(f*scale) / scale
}

// builtinRound is Round and Math.Round: banker's rounding unless a
// MidpointRounding of AwayFromZero (1) is given.
func builtinRound(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Round", args, 1, 3); err != nil {
		return nil, err
	}
	v, err := numericArg(args[0])
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case runtime.IntegerValue, runtime.LongValue, runtime.ByteValue:
		return v, nil
	}
	f, _ := runtime.AsDouble(v)
	digits, err := optInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	if digits < 0 || digits > 15 {
		return nil, outOfRange("digits")
	}
	if len(args) == 3 {
		mode, err := argInt(args, 2)
		if err != nil {
			return nil, err
		}
		if mode == 1 {
			return double(roundAway(f, digits)), nil
		}
	}
	if _, ok := v.(runtime.SingleValue); ok {
		return runtime.SingleValue{Val: float32(roundHalfEven(f, digits))}, nil
	}
	return double(roundHalfEven(f, digits)), nil
}

// extreme builds Math.Max (sign 1) and Math.Min (sign -1). Integral
// arguments give an integral result.
func extreme(name string, sign int) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		a, err := numericArg(args[0])
		if err != nil {
			return nil, err
		}
		b, err := numericArg(args[1])
		if err != nil {
			return nil, err
		}
		cmp, err := orderValues(a, b)
		if err != nil {
			return nil, err
		}
		pick := a
		if cmp*sign < 0 {
			pick = b
		}
		if isIntegralValue(a) && isIntegralValue(b) {
			_, wideA := a.(runtime.LongValue)
			_, wideB := b.(runtime.LongValue)
			if wideA || wideB {
				n, _ := runtime.AsLong(pick)
				return runtime.LongValue{Val: n}, nil
			}
			return pick, nil
		}
		f, _ := runtime.AsDouble(pick)
		return double(f), nil
	}
}

func builtinClamp(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Clamp", args, 3, 3); err != nil {
		return nil, err
	}
	lo, err := orderValues(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if lo < 0 {
		return args[1], nil
	}
	hi, err := orderValues(args[0], args[2])
	if err != nil {
		return nil, err
	}
	if hi > 0 {
		return args[2], nil
	}
	return args[0], nil
}

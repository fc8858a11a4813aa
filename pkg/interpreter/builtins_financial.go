package interpreter

import (
	"math"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"pmt":  financial("Pmt", 3, pmt),
		"fv":   financial("FV", 3, fv),
		"pv":   financial("PV", 3, pv),
		"nper": financial("NPer", 3, nper),
		"ipmt": financial("IPmt", 4, ipmt),
		"ppmt": financial("PPmt", 4, ppmt),
		"sln":  financial("SLN", 3, sln),
		"syd":  financial("SYD", 4, syd),
		"ddb":  financial("DDB", 4, ddb),
		"rate": financial("Rate", 3, rate),
		"npv":  builtinNPV,
		"irr":  builtinIRR,
	})
}

// financial adapts a function over Double arguments, of which the first
// required are mandatory and the rest default to zero.
func financial(name string, required int, fn func(a []float64) (float64, error)) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, required, required+3); err != nil {
			return nil, err
		}
		vals := make([]float64, required+3)
		for idx := range args {
			f, err := optDouble(args, idx, 0)
			if err != nil {
				return nil, err
			}
			vals[idx] = f
		}
		if name == "DDB" && (len(args) < 5 || runtime.IsNothing(args[4])) {
			vals[4] = 2
		}
		if name == "Rate" && (len(args) < 6 || runtime.IsNothing(args[5])) {
			vals[5] = 0.1
		}
		f, err := fn(vals)
		if err != nil {
			return nil, err
		}
		return double(f), nil
	}
}

func due(f float64) float64 {
	if f != 0 {
		return 1
	}
	return 0
}

// Pmt(rate, nper, pv, fv, due)
func pmt(a []float64) (float64, error) {
	r, n, present, future, when := a[0], a[1], a[2], a[3], due(a[4])
	if n == 0 {
		return 0, invalidArgument("NPer")
	}
	if r == 0 {
		return -(present + future) / n, nil
	}
	growth := math.Pow(1+r, n)
	return -(future + present*growth) * r / ((growth - 1) * (1 + r*when)), nil
}

// FV(rate, nper, pmt, pv, due)
func fv(a []float64) (float64, error) {
	r, n, payment, present, when := a[0], a[1], a[2], a[3], due(a[4])
	if r == 0 {
		return -(present + payment*n), nil
	}
	growth := math.Pow(1+r, n)
	return -(present*growth + payment*(1+r*when)*(growth-1)/r), nil
}

// PV(rate, nper, pmt, fv, due)
func pv(a []float64) (float64, error) {
	r, n, payment, future, when := a[0], a[1], a[2], a[3], due(a[4])
	if r == 0 {
		return -(future + payment*n), nil
	}
	growth := math.Pow(1+r, n)
	return -(future + payment*(1+r*when)*(growth-1)/r) / growth, nil
}

// NPer(rate, pmt, pv, fv, due)
func nper(a []float64) (float64, error) {
	r, payment, present, future, when := a[0], a[1], a[2], a[3], due(a[4])
	if r == 0 {
		if payment == 0 {
			return 0, invalidArgument("Pmt")
		}
		return -(present + future) / payment, nil
	}
	adjusted := payment * (1 + r*when) / r
	ratio := (adjusted - future) / (adjusted + present)
	if ratio <= 0 || r <= -1 {
		return 0, invalidArgument("Rate")
	}
	return math.Log(ratio) / math.Log(1+r), nil
}

// IPmt(rate, per, nper, pv, fv, due)
func ipmt(a []float64) (float64, error) {
	r, per, n, present, future, when := a[0], a[1], a[2], a[3], a[4], due(a[5])
	if per < 1 || per > n+1 {
		return 0, invalidArgument("Per")
	}
	if when == 1 && per == 1 {
		return 0, nil
	}
	payment, err := pmt([]float64{r, n, present, future, when})
	if err != nil {
		return 0, err
	}
	balance, _ := fv([]float64{r, per - 1, payment, present, when})
	interest := balance * r
	if when == 1 {
		interest /= 1 + r
	}
	return interest, nil
}

// PPmt(rate, per, nper, pv, fv, due)
func ppmt(a []float64) (float64, error) {
	payment, err := pmt([]float64{a[0], a[2], a[3], a[4], a[5]})
	if err != nil {
		return 0, err
	}
	interest, err := ipmt(a)
	if err != nil {
		return 0, err
	}
	return payment - interest, nil
}

// SLN(cost, salvage, life)
func sln(a []float64) (float64, error) {
	if a[2] == 0 {
		return 0, invalidArgument("Life")
	}
	return (a[0] - a[1]) / a[2], nil
}

// SYD(cost, salvage, life, period)
func syd(a []float64) (float64, error) {
	cost, salvage, life, period := a[0], a[1], a[2], a[3]
	if life <= 0 || period <= 0 || period > life || salvage < 0 {
		return 0, invalidArgument("Period")
	}
	return (cost - salvage) * (life - period + 1) * 2 / (life * (life + 1)), nil
}

// DDB(cost, salvage, life, period, factor)
func ddb(a []float64) (float64, error) {
	cost, salvage, life, period, factor := a[0], a[1], a[2], a[3], a[4]
	if life <= 0 || period <= 0 || period > life || factor <= 0 || salvage < 0 || cost < 0 {
		return 0, invalidArgument("Period")
	}
	var total, dep float64
	for p := 1.0; p <= period; p++ {
		dep = math.Min((cost-total)*factor/life, cost-salvage-total)
		if dep < 0 {
			dep = 0
		}
		total += dep
	}
	return dep, nil
}

// Rate(nper, pmt, pv, fv, due, guess) solves for the rate by Newton's
// method.
func rate(a []float64) (float64, error) {
	n, payment, present, future, when, guess := a[0], a[1], a[2], a[3], due(a[4]), a[5]
	if n <= 0 {
		return 0, invalidArgument("NPer")
	}
	balance := func(r float64) float64 {
		if r == 0 {
			return present + payment*n + future
		}
		growth := math.Pow(1+r, n)
		return present*growth + payment*(1+r*when)*(growth-1)/r + future
	}
	return newton(balance, guess, "Rate")
}

func newton(f func(float64) float64, guess float64, name string) (float64, error) {
	const (
		epsilon  = 1e-7
		maxSteps = 40
	)
	x := guess
	for step := 0; step < maxSteps; step++ {
		y := f(x)
		if math.Abs(y) < epsilon {
			return x, nil
		}
		slope := (f(x+epsilon) - y) / epsilon
		if slope == 0 || math.IsNaN(slope) {
			break
		}
		x -= y / slope
	}
	return 0, runtime.Exception("ArgumentException", "Cannot calculate "+name+" using the arguments provided.")
}

func cashFlows(i *Interpreter, v runtime.Value) ([]float64, error) {
	items, err := i.iterate(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for idx, item := range items {
		if out[idx], err = runtime.AsDouble(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func presentValue(r float64, flows []float64) float64 {
	var total float64
	for idx, flow := range flows {
		total += flow / math.Pow(1+r, float64(idx+1))
	}
	return total
}

// builtinNPV is NPV(rate, values()).
func builtinNPV(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("NPV", args, 2, 2); err != nil {
		return nil, err
	}
	r, err := argDouble(args, 0)
	if err != nil {
		return nil, err
	}
	if r == -1 {
		return nil, invalidArgument("Rate")
	}
	flows, err := cashFlows(i, args[1])
	if err != nil {
		return nil, err
	}
	return double(presentValue(r, flows)), nil
}

// builtinIRR is IRR(values()[, guess]); the first flow is not discounted.
func builtinIRR(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("IRR", args, 1, 2); err != nil {
		return nil, err
	}
	flows, err := cashFlows(i, args[0])
	if err != nil {
		return nil, err
	}
	if len(flows) < 2 {
		return nil, invalidArgument("ValueArray")
	}
	guess, err := optDouble(args, 1, 0.1)
	if err != nil {
		return nil, err
	}
	r, err := newton(func(r float64) float64 {
		return flows[0] + presentValue(r, flows[1:])
	}, guess, "IRR")
	if err != nil {
		return nil, err
	}
	return double(r), nil
}

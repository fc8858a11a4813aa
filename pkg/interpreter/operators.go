package interpreter

import (
	"math"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evalBinary(n *ast.BinaryExpression) (runtime.Value, error) {
	switch n.Operator {
	case ast.OpAndAlso, ast.OpOrElse:
		left, err := i.evalCondition(n.Left)
		if err != nil {
			return nil, err
		}
		if n.Operator == ast.OpAndAlso && !left {
			return runtime.BoolValue{Val: false}, nil
		}
		if n.Operator == ast.OpOrElse && left {
			return runtime.BoolValue{Val: true}, nil
		}
		right, err := i.evalCondition(n.Right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: right}, nil
	}
	left, err := i.evalExpression(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpression(n.Right)
	if err != nil {
		return nil, err
	}
	return binaryOp(n.Operator, left, right)
}

// binaryOp applies a non-short-circuit operator.
func binaryOp(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.OpConcat:
		return runtime.StringValue{Val: displayString(left) + displayString(right)}, nil
	case ast.OpAdd:
		if isStringish(left) && (isStringish(right) || runtime.IsNothing(right)) ||
			isStringish(right) && runtime.IsNothing(left) {
			return runtime.StringValue{Val: displayString(left) + displayString(right)}, nil
		}
		if d, ok := dateArith(op, left, right); ok {
			return d, nil
		}
		return arith(op, left, right)
	case ast.OpSubtract:
		if d, ok := dateArith(op, left, right); ok {
			return d, nil
		}
		return arith(op, left, right)
	case ast.OpMultiply:
		return arith(op, left, right)
	case ast.OpDivide:
		a, err := runtime.AsDouble(left)
		if err != nil {
			return nil, err
		}
		b, err := runtime.AsDouble(right)
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, runtime.DivisionByZero()
		}
		return runtime.DoubleValue{Val: a / b}, nil
	case ast.OpIntDivide:
		a, err := roundedInteger(left)
		if err != nil {
			return nil, err
		}
		b, err := roundedInteger(right)
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, runtime.DivisionByZero()
		}
		return integralResult(left, right, a/b), nil
	case ast.OpModulo:
		if isIntegralOperand(left) && isIntegralOperand(right) {
			a, _ := runtime.AsLong(left)
			b, _ := runtime.AsLong(right)
			if b == 0 {
				return nil, runtime.DivisionByZero()
			}
			return integralResult(left, right, a%b), nil
		}
		a, err := runtime.AsDouble(left)
		if err != nil {
			return nil, err
		}
		b, err := runtime.AsDouble(right)
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, runtime.DivisionByZero()
		}
		return runtime.DoubleValue{Val: math.Mod(a, b)}, nil
	case ast.OpPower:
		a, err := runtime.AsDouble(left)
		if err != nil {
			return nil, err
		}
		b, err := runtime.AsDouble(right)
		if err != nil {
			return nil, err
		}
		return runtime.DoubleValue{Val: math.Pow(a, b)}, nil
	case ast.OpEqual, ast.OpNotEqual, ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		ok, err := compareValues(op, left, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: ok}, nil
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		return logicalOp(op, left, right)
	case ast.OpIs:
		return runtime.BoolValue{Val: sameReference(left, right)}, nil
	case ast.OpIsNot:
		return runtime.BoolValue{Val: !sameReference(left, right)}, nil
	case ast.OpLike:
		ok, err := likeMatch(displayString(left), displayString(right))
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: ok}, nil
	case ast.OpShiftLeft, ast.OpShiftRight:
		return shiftOp(op, left, right)
	}
	return nil, runtime.Errorf("unsupported operator %s", op)
}

// displayString is the string form used by concatenation and output, where
// Nothing reads as the empty string.
func displayString(v runtime.Value) string {
	if runtime.IsNothing(v) {
		return ""
	}
	return runtime.AsString(v)
}

func isStringish(v runtime.Value) bool {
	switch v.(type) {
	case runtime.StringValue, runtime.CharValue:
		return true
	}
	return false
}

func isIntegralOperand(v runtime.Value) bool {
	switch v.(type) {
	case runtime.IntegerValue, runtime.LongValue, runtime.ByteValue, runtime.BoolValue, runtime.NothingValue, nil:
		return true
	}
	return false
}

type numRank int

const (
	rankByte numRank = iota
	rankInteger
	rankLong
	rankSingle
	rankDouble
)

func rankOf(v runtime.Value) (numRank, error) {
	switch v.(type) {
	case runtime.ByteValue:
		return rankByte, nil
	case runtime.IntegerValue, runtime.BoolValue, runtime.NothingValue, nil:
		return rankInteger, nil
	case runtime.LongValue:
		return rankLong, nil
	case runtime.SingleValue:
		return rankSingle, nil
	case runtime.DoubleValue, runtime.DateValue:
		return rankDouble, nil
	case runtime.StringValue:
		if _, err := runtime.AsDouble(v); err != nil {
			return 0, err
		}
		return rankDouble, nil
	}
	return 0, runtime.TypeMismatch("number", runtime.TypeName(v))
}

// arith implements + - * with VB widening: the result takes the wider
// operand type and integral overflow widens to the next type.
func arith(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, error) {
	ra, err := rankOf(left)
	if err != nil {
		return nil, err
	}
	rb, err := rankOf(right)
	if err != nil {
		return nil, err
	}
	rank := ra
	if rb > rank {
		rank = rb
	}
	switch rank {
	case rankDouble, rankSingle:
		a, _ := runtime.AsDouble(left)
		b, _ := runtime.AsDouble(right)
		var f float64
		switch op {
		case ast.OpAdd:
			f = a + b
		case ast.OpSubtract:
			f = a - b
		default:
			f = a * b
		}
		if rank == rankSingle {
			return runtime.SingleValue{Val: float32(f)}, nil
		}
		return runtime.DoubleValue{Val: f}, nil
	}
	a, _ := runtime.AsLong(left)
	b, _ := runtime.AsLong(right)
	var n int64
	overflow := false
	switch op {
	case ast.OpAdd:
		n = a + b
		overflow = (n > a) != (b > 0)
	case ast.OpSubtract:
		n = a - b
		overflow = (n < a) != (b > 0)
	default:
		n = a * b
		overflow = a != 0 && (n/a != b || (a == -1 && b == math.MinInt64))
	}
	if overflow {
		fa, fb := float64(a), float64(b)
		switch op {
		case ast.OpAdd:
			return runtime.DoubleValue{Val: fa + fb}, nil
		case ast.OpSubtract:
			return runtime.DoubleValue{Val: fa - fb}, nil
		}
		return runtime.DoubleValue{Val: fa * fb}, nil
	}
	switch rank {
	case rankByte:
		if n >= 0 && n <= 255 {
			return runtime.ByteValue{Val: uint8(n)}, nil
		}
		return integral(n), nil
	case rankInteger:
		return integral(n), nil
	}
	return runtime.LongValue{Val: n}, nil
}

// integralResult keeps Integer results Integer unless either operand is a
// Long.
func integralResult(left, right runtime.Value, n int64) runtime.Value {
	_, la := left.(runtime.LongValue)
	_, lb := right.(runtime.LongValue)
	if la || lb {
		return runtime.LongValue{Val: n}
	}
	return integral(n)
}

func dateArith(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, bool) {
	ld, lIsDate := left.(runtime.DateValue)
	rd, rIsDate := right.(runtime.DateValue)
	switch {
	case lIsDate && rIsDate && op == ast.OpSubtract:
		return runtime.DoubleValue{Val: ld.Val - rd.Val}, true
	case lIsDate && !rIsDate && runtime.IsNumeric(right):
		n, _ := runtime.AsDouble(right)
		if op == ast.OpSubtract {
			n = -n
		}
		return runtime.DateValue{Val: ld.Val + n}, true
	case rIsDate && !lIsDate && op == ast.OpAdd && runtime.IsNumeric(left):
		n, _ := runtime.AsDouble(left)
		return runtime.DateValue{Val: rd.Val + n}, true
	}
	return nil, false
}

func logicalOp(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, error) {
	lb, lIsBool := left.(runtime.BoolValue)
	rb, rIsBool := right.(runtime.BoolValue)
	if lIsBool && rIsBool {
		switch op {
		case ast.OpAnd:
			return runtime.BoolValue{Val: lb.Val && rb.Val}, nil
		case ast.OpOr:
			return runtime.BoolValue{Val: lb.Val || rb.Val}, nil
		}
		return runtime.BoolValue{Val: lb.Val != rb.Val}, nil
	}
	a, err := roundedInteger(left)
	if err != nil {
		return nil, err
	}
	b, err := roundedInteger(right)
	if err != nil {
		return nil, err
	}
	var n int64
	switch op {
	case ast.OpAnd:
		n = a & b
	case ast.OpOr:
		n = a | b
	default:
		n = a ^ b
	}
	return integralResult(left, right, n), nil
}

func shiftOp(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, error) {
	count, err := runtime.AsLong(right)
	if err != nil {
		return nil, err
	}
	if _, ok := left.(runtime.LongValue); !ok && isIntegralOperand(left) {
		n, _ := runtime.AsInteger(left)
		shift := uint(count & 31)
		if op == ast.OpShiftLeft {
			return runtime.IntegerValue{Val: n << shift}, nil
		}
		return runtime.IntegerValue{Val: n >> shift}, nil
	}
	n, err := runtime.AsLong(left)
	if err != nil {
		return nil, err
	}
	shift := uint(count & 63)
	if op == ast.OpShiftLeft {
		return runtime.LongValue{Val: n << shift}, nil
	}
	return runtime.LongValue{Val: n >> shift}, nil
}

func (i *Interpreter) evalUnary(n *ast.UnaryExpression) (runtime.Value, error) {
	operand, err := i.evalExpression(n.Operand)
	if err != nil {
		return nil, err
	}
	return unaryOp(n.Operator, operand)
}

func unaryOp(op ast.UnaryOperator, v runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.UnaryNot:
		switch val := v.(type) {
		case runtime.BoolValue:
			return runtime.BoolValue{Val: !val.Val}, nil
		case runtime.IntegerValue:
			return runtime.IntegerValue{Val: ^val.Val}, nil
		case runtime.LongValue:
			return runtime.LongValue{Val: ^val.Val}, nil
		case runtime.ByteValue:
			return runtime.ByteValue{Val: ^val.Val}, nil
		case runtime.StringValue:
			lower := strings.ToLower(strings.TrimSpace(val.Val))
			if lower == "true" || lower == "false" {
				return runtime.BoolValue{Val: lower != "true"}, nil
			}
		}
		n, err := roundedInteger(v)
		if err != nil {
			return nil, err
		}
		return runtime.LongValue{Val: ^n}, nil
	case ast.UnaryNegate:
		switch val := v.(type) {
		case runtime.IntegerValue:
			return integral(-int64(val.Val)), nil
		case runtime.LongValue:
			return runtime.LongValue{Val: -val.Val}, nil
		case runtime.SingleValue:
			return runtime.SingleValue{Val: -val.Val}, nil
		case runtime.DoubleValue:
			return runtime.DoubleValue{Val: -val.Val}, nil
		case runtime.ByteValue:
			return runtime.IntegerValue{Val: -int32(val.Val)}, nil
		case runtime.BoolValue:
			if val.Val {
				return runtime.IntegerValue{Val: 1}, nil
			}
			return runtime.IntegerValue{}, nil
		case runtime.NothingValue, nil:
			return runtime.IntegerValue{}, nil
		}
		f, err := runtime.AsDouble(v)
		if err != nil {
			return nil, err
		}
		return runtime.DoubleValue{Val: -f}, nil
	default:
		if runtime.IsNumeric(v) {
			return v, nil
		}
		f, err := runtime.AsDouble(v)
		if err != nil {
			return nil, err
		}
		return runtime.DoubleValue{Val: f}, nil
	}
}

// compareValues implements the comparison operators. Equality follows
// valuesEqual; ordering compares strings ordinally and everything else
// numerically.
func compareValues(op ast.BinaryOperator, a, b runtime.Value) (bool, error) {
	switch op {
	case ast.OpEqual:
		return valuesEqual(a, b), nil
	case ast.OpNotEqual:
		return !valuesEqual(a, b), nil
	}
	cmp, err := orderValues(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case ast.OpLess:
		return cmp < 0, nil
	case ast.OpLessEqual:
		return cmp <= 0, nil
	case ast.OpGreater:
		return cmp > 0, nil
	case ast.OpGreaterEqual:
		return cmp >= 0, nil
	}
	return false, runtime.Errorf("unsupported comparison %s", op)
}

func orderValues(a, b runtime.Value) (int, error) {
	if isStringish(a) && (isStringish(b) || runtime.IsNothing(b)) || isStringish(b) && runtime.IsNothing(a) {
		return strings.Compare(displayString(a), displayString(b)), nil
	}
	if isStringish(a) != isStringish(b) {
		// a numeric string against a number compares numerically
		if _, err := runtime.AsDouble(a); err != nil {
			return strings.Compare(displayString(a), displayString(b)), nil
		}
		if _, err := runtime.AsDouble(b); err != nil {
			return strings.Compare(displayString(a), displayString(b)), nil
		}
	}
	fa, err := runtime.AsDouble(a)
	if err != nil {
		return 0, err
	}
	fb, err := runtime.AsDouble(b)
	if err != nil {
		return 0, err
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	}
	return 0, nil
}

// valuesEqual is the `=` operator. String comparison ignores case, Nothing
// equals the empty string and zero, and reference values compare by
// identity.
func valuesEqual(a, b runtime.Value) bool {
	aNothing, bNothing := runtime.IsNothing(a), runtime.IsNothing(b)
	switch {
	case aNothing && bNothing:
		return true
	case aNothing || bNothing:
		other := a
		if aNothing {
			other = b
		}
		switch o := other.(type) {
		case runtime.StringValue:
			return o.Val == ""
		case runtime.BoolValue:
			return !o.Val
		}
		if runtime.IsNumeric(other) {
			f, _ := runtime.AsDouble(other)
			return f == 0
		}
		return false
	}
	if isStringish(a) || isStringish(b) {
		return strings.EqualFold(runtime.AsString(a), runtime.AsString(b))
	}
	if runtime.IsReference(a) || runtime.IsReference(b) {
		return sameReference(a, b)
	}
	_, aBool := a.(runtime.BoolValue)
	_, bBool := b.(runtime.BoolValue)
	if aBool || bBool {
		return runtime.IsTruthy(a) == runtime.IsTruthy(b)
	}
	fa, errA := runtime.AsDouble(a)
	fb, errB := runtime.AsDouble(b)
	return errA == nil && errB == nil && fa == fb
}

// sameReference implements Is: identity for reference values, Nothing
// only Is Nothing.
func sameReference(a, b runtime.Value) bool {
	aNothing, bNothing := runtime.IsNothing(a), runtime.IsNothing(b)
	if aNothing || bNothing {
		return aNothing && bNothing
	}
	if runtime.IsReference(a) && runtime.IsReference(b) {
		return a == b
	}
	return valuesEqual(a, b)
}

package runtime

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// oleEpoch is day zero of an OLE Automation date.
var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DateLayout is the canonical string form of Date values.
const DateLayout = "01/02/2006 15:04:05"

// AsString renders a value the way VB's implicit string conversion does.
func AsString(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case NothingValue:
		return "Nothing"
	case IntegerValue:
		return strconv.FormatInt(int64(val.Val), 10)
	case LongValue:
		return strconv.FormatInt(val.Val, 10)
	case ByteValue:
		return strconv.Itoa(int(val.Val))
	case CharValue:
		return string(val.Val)
	case SingleValue:
		return formatFloat(float64(val.Val), 32)
	case DoubleValue:
		return formatFloat(val.Val, 64)
	case DateValue:
		return OLEToTime(val.Val).Format(DateLayout)
	case StringValue:
		return val.Val
	case BoolValue:
		if val.Val {
			return "True"
		}
		return "False"
	case *ArrayValue:
		return "[Array]"
	case *ListValue:
		return "[" + val.TypeName + " Count=" + strconv.Itoa(len(val.Items)) + "]"
	case *QueueValue:
		return "[Queue Count=" + strconv.Itoa(len(val.Items)) + "]"
	case *StackValue:
		return "[Stack Count=" + strconv.Itoa(len(val.Items)) + "]"
	case *HashSetValue:
		return "[HashSet Count=" + strconv.Itoa(val.Count()) + "]"
	case *DictionaryValue:
		return "[Dictionary Count=" + strconv.Itoa(val.Count()) + "]"
	case *ObjectValue:
		if sb, ok := val.Native.(*strings.Builder); ok {
			return sb.String()
		}
		if val.ClassName == "StringBuilder" {
			return AsString(val.Get("__data"))
		}
		return "[Object " + val.ClassName + "]"
	case *LambdaValue:
		return "[Lambda]"
	default:
		return ""
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// FormatDouble renders a Double using the shortest exact representation.
func FormatDouble(f float64) string {
	return formatFloat(f, 64)
}

func parseRadix(s string) (int64, bool, error) {
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "&H"):
		n, err := strconv.ParseInt(s[2:], 16, 64)
		return n, true, err
	case strings.HasPrefix(upper, "&O"):
		n, err := strconv.ParseInt(s[2:], 8, 64)
		return n, true, err
	case strings.HasPrefix(upper, "&B"):
		n, err := strconv.ParseInt(s[2:], 2, 64)
		return n, true, err
	}
	return 0, false, nil
}

func parseIntegral(s string, expected string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if n, ok, err := parseRadix(trimmed); ok {
		if err != nil {
			return 0, TypeMismatch(expected, strconv.Quote(s))
		}
		return n, nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return int64(f), nil
	}
	return 0, TypeMismatch(expected, strconv.Quote(s))
}

// AsLong converts to a 64-bit integer, truncating fractions.
func AsLong(v Value) (int64, error) {
	switch val := v.(type) {
	case nil, NothingValue:
		return 0, nil
	case IntegerValue:
		return int64(val.Val), nil
	case LongValue:
		return val.Val, nil
	case SingleValue:
		return int64(val.Val), nil
	case DoubleValue:
		return int64(val.Val), nil
	case ByteValue:
		return int64(val.Val), nil
	case CharValue:
		return int64(val.Val), nil
	case DateValue:
		return int64(val.Val), nil
	case BoolValue:
		if val.Val {
			return -1, nil
		}
		return 0, nil
	case StringValue:
		return parseIntegral(val.Val, "Long")
	}
	return 0, TypeMismatch("Long", TypeName(v))
}

// AsInteger converts to a 32-bit integer, truncating fractions. Booleans
// follow VB: True is -1.
func AsInteger(v Value) (int32, error) {
	switch val := v.(type) {
	case StringValue:
		n, err := parseIntegral(val.Val, "Integer")
		return int32(n), err
	case IntegerValue:
		return val.Val, nil
	}
	n, err := AsLong(v)
	if err != nil {
		if rerr, ok := err.(*Error); ok && rerr.Kind == ErrTypeMismatch {
			return 0, TypeMismatch("Integer", rerr.Got)
		}
		return 0, err
	}
	return int32(n), nil
}

// AsDouble converts to a float64.
func AsDouble(v Value) (float64, error) {
	switch val := v.(type) {
	case nil, NothingValue:
		return 0, nil
	case IntegerValue:
		return float64(val.Val), nil
	case LongValue:
		return float64(val.Val), nil
	case SingleValue:
		return float64(val.Val), nil
	case DoubleValue:
		return val.Val, nil
	case ByteValue:
		return float64(val.Val), nil
	case DateValue:
		return val.Val, nil
	case BoolValue:
		if val.Val {
			return -1, nil
		}
		return 0, nil
	case CharValue:
		return float64(val.Val), nil
	case StringValue:
		trimmed := strings.TrimSpace(val.Val)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, nil
		}
		if n, ok, err := parseRadix(trimmed); ok && err == nil {
			return float64(n), nil
		}
		return 0, TypeMismatch("Double", strconv.Quote(val.Val))
	}
	return 0, TypeMismatch("Double", TypeName(v))
}

// AsBool converts using VB truthiness: "true"/"false" strings by name,
// numeric strings by value, any other string by non-emptiness.
func AsBool(v Value) (bool, error) {
	switch val := v.(type) {
	case nil, NothingValue:
		return false, nil
	case BoolValue:
		return val.Val, nil
	case IntegerValue:
		return val.Val != 0, nil
	case LongValue:
		return val.Val != 0, nil
	case ByteValue:
		return val.Val != 0, nil
	case SingleValue:
		return val.Val != 0, nil
	case DoubleValue:
		return val.Val != 0, nil
	case DateValue:
		return val.Val != 0, nil
	case StringValue:
		lower := strings.ToLower(strings.TrimSpace(val.Val))
		switch lower {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		if f, err := strconv.ParseFloat(lower, 64); err == nil {
			return f != 0, nil
		}
		return val.Val != "", nil
	case CharValue:
		return false, TypeMismatch("Boolean", "Char")
	case *ObjectValue, *ListValue, *QueueValue, *StackValue, *HashSetValue, *DictionaryValue, *ArrayValue, *LambdaValue:
		return true, nil
	}
	return false, TypeMismatch("Boolean", TypeName(v))
}

// AsByte converts with an overflow check.
func AsByte(v Value) (uint8, error) {
	if b, ok := v.(ByteValue); ok {
		return b.Val, nil
	}
	if _, ok := v.(BoolValue); ok {
		truth, _ := AsBool(v)
		if truth {
			return 255, nil
		}
		return 0, nil
	}
	f, err := AsDouble(v)
	if err != nil {
		return 0, TypeMismatch("Byte", TypeName(v))
	}
	if f < 0 || f > 255 {
		return 0, Errorf("Overflow: %s to Byte", AsString(v))
	}
	return uint8(f), nil
}

// AsChar converts to a single character.
func AsChar(v Value) (rune, error) {
	switch val := v.(type) {
	case CharValue:
		return val.Val, nil
	case StringValue:
		r, size := utf8.DecodeRuneInString(val.Val)
		if size == 0 {
			return 0, Errorf("String is empty")
		}
		return r, nil
	case IntegerValue, LongValue, ByteValue:
		n, _ := AsLong(v)
		if n < 0 || n > utf8.MaxRune {
			return 0, Errorf("Invalid char code %d", n)
		}
		return rune(n), nil
	}
	return 0, TypeMismatch("Char", TypeName(v))
}

// AsDate converts to an OLE date. Strings are parsed with the common US
// layouts.
func AsDate(v Value) (float64, error) {
	switch val := v.(type) {
	case DateValue:
		return val.Val, nil
	case nil, NothingValue:
		return 0, nil
	case StringValue:
		if d, ok := ParseDate(val.Val); ok {
			return d, nil
		}
		return 0, TypeMismatch("Date", strconv.Quote(val.Val))
	case IntegerValue, LongValue, SingleValue, DoubleValue, ByteValue:
		return AsDouble(v)
	}
	return 0, TypeMismatch("Date", TypeName(v))
}

// IsTruthy is AsBool without the error: unconvertible values are False.
func IsTruthy(v Value) bool {
	b, err := AsBool(v)
	return err == nil && b
}

//-----------------------------------------------------------------------------
// Dates
//-----------------------------------------------------------------------------

var dateLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"15:04:05",
	"3:04:05 PM",
	"3:04 PM",
	"15:04",
}

// ParseDate parses a date literal or string into an OLE date.
func ParseDate(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			if t.Year() == 0 {
				// time-only literals are relative to day zero
				return TimeToOLE(t.AddDate(1899, 11, 29)), true
			}
			return TimeToOLE(t), true
		}
	}
	return 0, false
}

// TimeToOLE converts a wall-clock time into an OLE date. The time zone is
// ignored; the wall clock fields are used as-is.
func TimeToOLE(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	secs := float64(wall.Unix()-oleEpoch.Unix()) + float64(wall.Nanosecond())/1e9
	total := secs / 86400
	days := math.Floor(total)
	frac := total - days
	if days < 0 && frac > 0 {
		// negative OLE dates keep a positive time-of-day fraction
		return days - frac
	}
	return days + frac
}

// OLEToTime converts an OLE date into a UTC wall-clock time rounded to the
// second.
func OLEToTime(d float64) time.Time {
	days := math.Trunc(d)
	frac := math.Abs(d - days)
	seconds := math.Round(frac * 86400)
	return oleEpoch.AddDate(0, 0, int(days)).Add(time.Duration(seconds) * time.Second)
}

//-----------------------------------------------------------------------------
// Val / Str
//-----------------------------------------------------------------------------

// Val parses the longest numeric prefix of s, ignoring whitespace, and
// returns 0 when there is none. &H and &O prefixes are honoured.
func Val(s string) float64 {
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	if n, ok, _ := parseRadixPrefix(compact); ok {
		return float64(n)
	}
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(compact) {
		c := compact[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && end == 0:
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp && exponentFollows(compact[end+1:]):
			seenExp = true
			if compact[end+1] == '+' || compact[end+1] == '-' {
				end++
			}
		default:
			break scan
		}
		end++
	}
	f, err := strconv.ParseFloat(compact[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

func parseRadixPrefix(s string) (int64, bool, error) {
	upper := strings.ToUpper(s)
	base := 0
	var digits func(byte) bool
	switch {
	case strings.HasPrefix(upper, "&H"):
		base = 16
		digits = func(c byte) bool { return isDigit(c) || (c >= 'A' && c <= 'F') }
	case strings.HasPrefix(upper, "&O"):
		base = 8
		digits = func(c byte) bool { return c >= '0' && c <= '7' }
	default:
		return 0, false, nil
	}
	end := 2
	for end < len(upper) && digits(upper[end]) {
		end++
	}
	if end == 2 {
		return 0, true, nil
	}
	n, err := strconv.ParseInt(upper[2:end], base, 64)
	return n, true, err
}

func exponentFollows(rest string) bool {
	if rest != "" && (rest[0] == '+' || rest[0] == '-') {
		rest = rest[1:]
	}
	return rest != "" && isDigit(rest[0])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Str formats a number with a leading space for non-negative values.
func Str(v Value) string {
	if IsNumeric(v) {
		f, _ := AsDouble(v)
		text := AsString(v)
		if f >= 0 {
			return " " + text
		}
		return text
	}
	return AsString(v)
}

package interpreter

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"vybe/interpreter-go/pkg/runtime"
)

// Formatting follows the en-US culture.
var printer = message.NewPrinter(language.AmericanEnglish)

// roundAway rounds half away from zero, as .NET format strings do.
func roundAway(f float64, digits int) float64 {
	if digits > 15 {
		return f
	}
	p := math.Pow(10, float64(digits))
	r := math.Round(f*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// fixed renders f with exactly digits decimals, optionally grouped.
func fixed(f float64, digits int, grouped bool) string {
	f = roundAway(f, digits)
	if !grouped {
		return strconv.FormatFloat(f, 'f', digits, 64)
	}
	return printer.Sprint(number.Decimal(f, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
}

// currencyString renders a currency amount; negatives use parentheses.
func currencyString(f float64, digits int) string {
	text := fixed(math.Abs(f), digits, true)
	if roundAway(f, digits) < 0 {
		return "($" + text + ")"
	}
	return "$" + text
}

func percentString(f float64, digits int) string {
	return fixed(f*100, digits, true) + "%"
}

// scientific renders mantissa and exponent the .NET way: "1.23E+004".
func scientific(f float64, digits int, expDigits int, upper bool) string {
	text := strconv.FormatFloat(f, 'e', digits, 64)
	mant, exp, _ := strings.Cut(text, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	for len(exp) < expDigits {
		exp = "0" + exp
	}
	e := "e"
	if upper {
		e = "E"
	}
	return mant + e + string(sign) + exp
}

// formatValue implements ToString(format) and Format(value, format).
func formatValue(v runtime.Value, format string) string {
	if format == "" {
		return displayString(v)
	}
	switch val := v.(type) {
	case nil, runtime.NothingValue:
		return ""
	case runtime.DateValue:
		return formatDate(runtime.OLEToTime(val.Val), format)
	case runtime.BoolValue:
		if text, ok := namedBoolFormat(val.Val, format); ok {
			return text
		}
		n := 0.0
		if val.Val {
			n = -1
		}
		return formatNumber(n, format, true)
	case runtime.StringValue:
		trimmed := strings.TrimSpace(val.Val)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !isDateFormat(format) {
			return formatNumber(f, format, f == math.Trunc(f))
		}
		if d, ok := runtime.ParseDate(trimmed); ok && isDateFormat(format) {
			return formatDate(runtime.OLEToTime(d), format)
		}
		return formatString(val.Val, format)
	case runtime.CharValue:
		return formatString(string(val.Val), format)
	}
	if runtime.IsNumeric(v) {
		f, _ := runtime.AsDouble(v)
		return formatNumber(f, format, isIntegralValue(v))
	}
	return displayString(v)
}

// formatComposite formats one hole of a composite format string. spec is
// what follows the index: ",align:format", ":format" or a bare format.
func formatComposite(v runtime.Value, spec string) string {
	align := 0
	if strings.HasPrefix(spec, ",") {
		rest := spec[1:]
		num := rest
		spec = ""
		if idx := strings.IndexByte(rest, ':'); idx >= 0 {
			num, spec = rest[:idx], rest[idx:]
		}
		align, _ = strconv.Atoi(strings.TrimSpace(num))
	}
	text := formatValue(v, strings.TrimPrefix(spec, ":"))
	width := len([]rune(text))
	switch {
	case align > width:
		return strings.Repeat(" ", align-width) + text
	case -align > width:
		return text + strings.Repeat(" ", -align-width)
	}
	return text
}

// compositeFormat implements String.Format: {index[,alignment][:format]}
// with {{ and }} escapes.
func compositeFormat(format string, args []runtime.Value) (string, error) {
	var sb strings.Builder
	for idx := 0; idx < len(format); idx++ {
		ch := format[idx]
		switch {
		case ch == '{' && idx+1 < len(format) && format[idx+1] == '{':
			sb.WriteByte('{')
			idx++
		case ch == '}' && idx+1 < len(format) && format[idx+1] == '}':
			sb.WriteByte('}')
			idx++
		case ch == '{':
			end := strings.IndexByte(format[idx:], '}')
			if end < 0 {
				return "", runtime.Exception("FormatException", "Input string was not in a correct format.")
			}
			hole := format[idx+1 : idx+end]
			digits := 0
			for digits < len(hole) && hole[digits] >= '0' && hole[digits] <= '9' {
				digits++
			}
			n, err := strconv.Atoi(hole[:digits])
			if err != nil {
				return "", runtime.Exception("FormatException", "Input string was not in a correct format.")
			}
			if n >= len(args) {
				return "", runtime.Exception("FormatException", "Index (zero based) must be greater than or equal to zero and less than the size of the argument list.")
			}
			sb.WriteString(formatComposite(args[n], strings.TrimSpace(hole[digits:])))
			idx += end
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String(), nil
}

func namedBoolFormat(b bool, format string) (string, bool) {
	pick := func(yes, no string) string {
		if b {
			return yes
		}
		return no
	}
	switch strings.ToLower(format) {
	case "yes/no":
		return pick("Yes", "No"), true
	case "true/false":
		return pick("True", "False"), true
	case "on/off":
		return pick("On", "Off"), true
	}
	return "", false
}

// formatString handles the string formats > (upper) and < (lower).
func formatString(s, format string) string {
	switch format {
	case ">":
		return strings.ToUpper(s)
	case "<":
		return strings.ToLower(s)
	}
	return s
}

//-----------------------------------------------------------------------------
// Numbers
//-----------------------------------------------------------------------------

func formatNumber(f float64, format string, integral bool) string {
	switch strings.ToLower(format) {
	case "general number", "g", "r":
		return runtime.FormatDouble(f)
	case "currency":
		return currencyString(f, 2)
	case "fixed":
		return fixed(f, 2, false)
	case "standard":
		return fixed(f, 2, true)
	case "percent":
		return percentString(f, 2)
	case "scientific":
		return scientific(f, 2, 2, true)
	case "yes/no", "true/false", "on/off":
		text, _ := namedBoolFormat(f != 0, format)
		return text
	}
	if text, ok := standardNumber(f, format, integral); ok {
		return text
	}
	return customNumber(f, format)
}

// standardNumber implements the single-letter .NET formats with an
// optional precision: C, D, E, F, G, N, P, X.
func standardNumber(f float64, format string, integral bool) (string, bool) {
	if len(format) == 0 || len(format) > 3 || !unicode.IsLetter(rune(format[0])) {
		return "", false
	}
	precision := -1
	if len(format) > 1 {
		n, err := strconv.Atoi(format[1:])
		if err != nil {
			return "", false
		}
		precision = n
	}
	digits := func(def int) int {
		if precision < 0 {
			return def
		}
		return precision
	}
	letter := format[0]
	switch unicode.ToUpper(rune(letter)) {
	case 'C':
		return currencyString(f, digits(2)), true
	case 'D':
		n := int64(f)
		text := strconv.FormatInt(absInt(n), 10)
		for len(text) < precision {
			text = "0" + text
		}
		if n < 0 {
			text = "-" + text
		}
		return text, true
	case 'E':
		return scientific(f, digits(6), 3, letter == 'E'), true
	case 'F':
		return fixed(f, digits(2), false), true
	case 'G':
		if precision <= 0 {
			return runtime.FormatDouble(f), true
		}
		text := strconv.FormatFloat(f, 'g', precision, 64)
		if strings.ContainsAny(text, "e") {
			mant, exp, _ := strings.Cut(text, "e")
			return mant + "E" + exp, true
		}
		return text, true
	case 'N':
		return fixed(f, digits(2), true), true
	case 'P':
		return percentString(f, digits(2)), true
	case 'X':
		if !integral {
			return "", false
		}
		text := strconv.FormatUint(uint64(int64(f))&hexMask(f), 16)
		if letter == 'X' {
			text = strings.ToUpper(text)
		}
		for len(text) < precision {
			text = "0" + text
		}
		return text, true
	}
	return "", false
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// hexMask keeps negative Integers at 32 bits, as Hex does.
func hexMask(f float64) uint64 {
	if f < 0 && f >= math.MinInt32 {
		return 0xFFFFFFFF
	}
	return math.MaxUint64
}

// customNumber implements custom numeric patterns built from 0 # . , %
// E+0 and literal text, with up to three ;-separated sections.
func customNumber(f float64, format string) string {
	sections := splitSections(format)
	section := sections[0]
	negative := f < 0
	explicitSign := false
	switch {
	case f == 0 && len(sections) > 2:
		section = sections[2]
	case negative && len(sections) > 1:
		section = sections[1]
		explicitSign = true
	}
	f = math.Abs(f)
	text := renderSection(f, section)
	if negative && !explicitSign && strings.ContainsAny(text, "123456789") {
		return "-" + text
	}
	return text
}

func splitSections(format string) []string {
	var sections []string
	var cur strings.Builder
	quote := byte(0)
	for idx := 0; idx < len(format); idx++ {
		ch := format[idx]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '\\' && idx+1 < len(format):
			cur.WriteByte(ch)
			idx++
			ch = format[idx]
		case ch == ';':
			sections = append(sections, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	return append(sections, cur.String())
}

// patternToken is one element of a numeric section: a placeholder (0 or
// #), the decimal point, a comma, an exponent marker or literal text.
type patternToken struct {
	kind byte
	text string
}

func tokenizeNumberPattern(pattern string) []patternToken {
	var tokens []patternToken
	for idx := 0; idx < len(pattern); idx++ {
		ch := pattern[idx]
		switch ch {
		case '0', '#', '.', ',', '%':
			tokens = append(tokens, patternToken{kind: ch})
		case '\'', '"':
			end := strings.IndexByte(pattern[idx+1:], ch)
			if end < 0 {
				end = len(pattern) - idx - 1
			}
			tokens = append(tokens, patternToken{kind: 'L', text: pattern[idx+1 : idx+1+end]})
			idx += end + 1
		case '\\':
			if idx+1 < len(pattern) {
				idx++
				tokens = append(tokens, patternToken{kind: 'L', text: string(pattern[idx])})
			}
		case 'E', 'e':
			rest := pattern[idx+1:]
			sign := ""
			if rest != "" && (rest[0] == '+' || rest[0] == '-') {
				sign = rest[:1]
				rest = rest[1:]
			}
			zeros := 0
			for zeros < len(rest) && rest[zeros] == '0' {
				zeros++
			}
			if zeros == 0 {
				tokens = append(tokens, patternToken{kind: 'L', text: string(ch)})
				continue
			}
			tokens = append(tokens, patternToken{kind: 'E', text: string(ch) + sign + strings.Repeat("0", zeros)})
			idx += len(sign) + zeros
		default:
			tokens = append(tokens, patternToken{kind: 'L', text: string(ch)})
		}
	}
	return tokens
}

func renderSection(f float64, pattern string) string {
	tokens := tokenizeNumberPattern(pattern)
	point := -1
	expAt := -1
	first, last := -1, -1
	for idx, tok := range tokens {
		switch tok.kind {
		case '%':
			f *= 100
		case '.':
			if point < 0 && expAt < 0 {
				point = idx
			}
		case 'E':
			if expAt < 0 {
				expAt = idx
			}
		case '0', '#':
			if expAt < 0 {
				if first < 0 {
					first = idx
				}
				last = idx
			}
		}
	}
	if first < 0 {
		var sb strings.Builder
		for _, tok := range tokens {
			sb.WriteString(literalText(tok))
		}
		return sb.String()
	}
	intEnd := len(tokens)
	if point >= 0 {
		intEnd = point
	} else if expAt >= 0 {
		intEnd = expAt
	}

	// Commas directly left of the decimal point scale by 1000; any other
	// comma between placeholders turns on grouping.
	grouped := false
	scaleEnd := intEnd
	for scaleEnd > 0 && tokens[scaleEnd-1].kind == ',' {
		scaleEnd--
		f /= 1000
	}
	minInt := 0
	for idx := 0; idx < scaleEnd; idx++ {
		switch tokens[idx].kind {
		case ',':
			if idx > first {
				grouped = true
			}
		case '0':
			minInt++
		}
	}
	minFrac, maxFrac := 0, 0
	fracEnd := len(tokens)
	if expAt >= 0 {
		fracEnd = expAt
	}
	if point >= 0 {
		for idx := point + 1; idx < fracEnd; idx++ {
			switch tokens[idx].kind {
			case '0':
				minFrac = maxFrac + 1
				maxFrac++
			case '#':
				maxFrac++
			}
		}
	}

	exponent := 0
	if expAt >= 0 && f != 0 {
		intPlaces := minInt
		if intPlaces == 0 {
			intPlaces = 1
		}
		exponent = int(math.Floor(math.Log10(f))) - (intPlaces - 1)
		f /= math.Pow(10, float64(exponent))
		if roundAway(f, maxFrac) >= math.Pow(10, float64(intPlaces)) {
			f /= 10
			exponent++
		}
	}

	text := strconv.FormatFloat(roundAway(f, maxFrac), 'f', maxFrac, 64)
	intDigits, fracDigits, _ := strings.Cut(text, ".")
	for len(fracDigits) > minFrac && strings.HasSuffix(fracDigits, "0") {
		fracDigits = fracDigits[:len(fracDigits)-1]
	}
	if intDigits == "0" {
		intDigits = ""
	}
	for len(intDigits) < minInt {
		intDigits = "0" + intDigits
	}

	intTokens := tokens[first : last+1]
	if point >= 0 {
		intTokens = tokens[first:scaleEnd]
	}
	var out strings.Builder
	for idx := 0; idx < first; idx++ {
		out.WriteString(literalText(tokens[idx]))
	}
	if grouped {
		out.WriteString(groupDigits(intDigits))
		for _, tok := range intTokens {
			if tok.kind == 'L' || tok.kind == '%' {
				out.WriteString(literalText(tok))
			}
		}
	} else {
		out.WriteString(fillInteger(intTokens, intDigits))
	}
	if point >= 0 {
		if fracDigits != "" || hasLiteralFraction(tokens[point+1:fracEnd]) {
			out.WriteByte('.')
		}
		fracIdx := 0
		for _, tok := range tokens[point+1 : fracEnd] {
			switch tok.kind {
			case '0', '#':
				if fracIdx < len(fracDigits) {
					out.WriteByte(fracDigits[fracIdx])
					fracIdx++
				}
			case ',', '.':
			default:
				out.WriteString(literalText(tok))
			}
		}
	}
	if expAt >= 0 {
		spec := tokens[expAt].text
		zeros := strings.Count(spec, "0")
		sign := ""
		switch {
		case exponent < 0:
			sign = "-"
		case strings.Contains(spec, "+"):
			sign = "+"
		}
		digits := strconv.Itoa(int(absInt(int64(exponent))))
		for len(digits) < zeros {
			digits = "0" + digits
		}
		out.WriteString(spec[:1] + sign + digits)
		for _, tok := range tokens[expAt+1:] {
			if tok.kind != '0' && tok.kind != '#' {
				out.WriteString(literalText(tok))
			}
		}
	} else if point < 0 {
		for idx := last + 1; idx < len(tokens); idx++ {
			if tokens[idx].kind != ',' {
				out.WriteString(literalText(tokens[idx]))
			}
		}
	}
	return out.String()
}

func hasLiteralFraction(tokens []patternToken) bool {
	for _, tok := range tokens {
		if tok.kind == '0' {
			return true
		}
	}
	return false
}

func literalText(tok patternToken) string {
	switch tok.kind {
	case 'L', 'E':
		return tok.text
	case '%':
		return "%"
	case '.':
		return "."
	case ',':
		return ","
	}
	return ""
}

// fillInteger places digits into the integer placeholders right to left;
// the leftmost placeholder takes every remaining digit. Literals between
// placeholders are kept, so "000-0000" formats phone numbers.
func fillInteger(tokens []patternToken, digits string) string {
	leftmost := -1
	for idx, tok := range tokens {
		if tok.kind == '0' || tok.kind == '#' {
			leftmost = idx
			break
		}
	}
	var parts []string
	pos := len(digits)
	for idx := len(tokens) - 1; idx >= 0; idx-- {
		tok := tokens[idx]
		switch tok.kind {
		case '0', '#':
			if idx == leftmost {
				parts = append(parts, digits[:pos])
				pos = 0
				continue
			}
			if pos > 0 {
				parts = append(parts, digits[pos-1:pos])
				pos--
			}
		case ',':
		default:
			if idx < leftmost || pos > 0 || hasZeroBefore(tokens[:idx]) {
				parts = append(parts, literalText(tok))
			}
		}
	}
	var sb strings.Builder
	for idx := len(parts) - 1; idx >= 0; idx-- {
		sb.WriteString(parts[idx])
	}
	return sb.String()
}

func hasZeroBefore(tokens []patternToken) bool {
	for _, tok := range tokens {
		if tok.kind == '0' {
			return true
		}
	}
	return false
}

func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for idx := lead; idx < len(digits); idx += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[idx : idx+3])
	}
	return sb.String()
}

//-----------------------------------------------------------------------------
// Dates
//-----------------------------------------------------------------------------

// isDateFormat reports whether a format applies to dates rather than
// numbers.
func isDateFormat(format string) bool {
	switch strings.ToLower(format) {
	case "general date", "long date", "medium date", "short date", "long time", "medium time", "short time":
		return true
	}
	if len(format) == 1 {
		return strings.ContainsRune("dDtTfFgGmMyYsuoO", rune(format[0])) && format != "g" && format != "G"
	}
	return strings.ContainsAny(format, "yMdHhms") && !strings.ContainsAny(format, "0#")
}

func hasTime(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

func isZeroDay(t time.Time) bool {
	return t.Year() == 1899 && t.Month() == time.December && t.Day() == 30
}

// generalDate is the VB general date form: the date, the time or both.
func generalDate(t time.Time) string {
	switch {
	case isZeroDay(t):
		return t.Format("3:04:05 PM")
	case !hasTime(t):
		return t.Format("1/2/2006")
	}
	return t.Format("1/2/2006 3:04:05 PM")
}

func formatDate(t time.Time, format string) string {
	switch strings.ToLower(format) {
	case "general date":
		return generalDate(t)
	case "long date":
		return t.Format("Monday, January 2, 2006")
	case "medium date":
		return t.Format("02-Jan-06")
	case "short date":
		return t.Format("1/2/2006")
	case "long time":
		return t.Format("3:04:05 PM")
	case "medium time":
		return t.Format("03:04 PM")
	case "short time":
		return t.Format("15:04")
	}
	if len(format) == 1 {
		switch format {
		case "d":
			return t.Format("1/2/2006")
		case "D":
			return t.Format("Monday, January 2, 2006")
		case "t":
			return t.Format("3:04 PM")
		case "T":
			return t.Format("3:04:05 PM")
		case "f":
			return t.Format("Monday, January 2, 2006 3:04 PM")
		case "F":
			return t.Format("Monday, January 2, 2006 3:04:05 PM")
		case "g":
			return t.Format("1/2/2006 3:04 PM")
		case "G":
			return t.Format("1/2/2006 3:04:05 PM")
		case "m", "M":
			return t.Format("January 2")
		case "y", "Y":
			return t.Format("January 2006")
		case "s":
			return t.Format("2006-01-02T15:04:05")
		case "u":
			return t.Format("2006-01-02 15:04:05Z")
		case "o", "O":
			return t.Format("2006-01-02T15:04:05.0000000")
		}
	}
	return customDate(t, format)
}

// customDate expands .NET custom date patterns.
func customDate(t time.Time, format string) string {
	var sb strings.Builder
	run := func(idx int, ch byte) int {
		n := 1
		for idx+n < len(format) && format[idx+n] == ch {
			n++
		}
		return n
	}
	for idx := 0; idx < len(format); {
		ch := format[idx]
		if strings.HasPrefix(strings.ToUpper(format[idx:]), "AM/PM") {
			ampm := t.Format("PM")
			if format[idx] == 'a' {
				ampm = strings.ToLower(ampm)
			}
			sb.WriteString(ampm)
			idx += 5
			continue
		}
		n := run(idx, ch)
		switch ch {
		case 'y':
			switch {
			case n >= 4:
				sb.WriteString(t.Format("2006"))
			case n == 3:
				sb.WriteString(strconv.Itoa(t.Year()))
			case n == 2:
				sb.WriteString(t.Format("06"))
			default:
				sb.WriteString(strconv.Itoa(t.Year() % 100))
			}
		case 'M':
			switch {
			case n >= 4:
				sb.WriteString(t.Format("January"))
			case n == 3:
				sb.WriteString(t.Format("Jan"))
			case n == 2:
				sb.WriteString(t.Format("01"))
			default:
				sb.WriteString(strconv.Itoa(int(t.Month())))
			}
		case 'd':
			switch {
			case n >= 4:
				sb.WriteString(t.Format("Monday"))
			case n == 3:
				sb.WriteString(t.Format("Mon"))
			case n == 2:
				sb.WriteString(t.Format("02"))
			default:
				sb.WriteString(strconv.Itoa(t.Day()))
			}
		case 'H':
			sb.WriteString(padTwo(t.Hour(), n))
		case 'h':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			sb.WriteString(padTwo(h, n))
		case 'm', 'n':
			sb.WriteString(padTwo(t.Minute(), n))
		case 's':
			sb.WriteString(padTwo(t.Second(), n))
		case 'f', 'F':
			frac := strconv.Itoa(t.Nanosecond() / 1e6)
			for len(frac) < 3 {
				frac = "0" + frac
			}
			for len(frac) < n {
				frac += "0"
			}
			sb.WriteString(frac[:n])
		case 't':
			ampm := t.Format("PM")
			if n == 1 {
				ampm = ampm[:1]
			}
			sb.WriteString(ampm)
		case '\'', '"':
			end := strings.IndexByte(format[idx+1:], ch)
			if end < 0 {
				end = len(format) - idx - 1
			}
			sb.WriteString(format[idx+1 : idx+1+end])
			idx += end + 2
			continue
		case '\\':
			if idx+1 < len(format) {
				sb.WriteByte(format[idx+1])
			}
			idx += 2
			continue
		default:
			sb.WriteString(format[idx : idx+n])
		}
		idx += n
	}
	return sb.String()
}

func padTwo(n, width int) string {
	text := strconv.Itoa(n)
	if width >= 2 && len(text) < 2 {
		return "0" + text
	}
	return text
}

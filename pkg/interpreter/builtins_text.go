package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"encoding.utf8":             encodingValue("utf-8"),
		"encoding.ascii":            encodingValue("us-ascii"),
		"encoding.unicode":          encodingValue("utf-16"),
		"encoding.bigendianunicode": encodingValue("utf-16BE"),
		"encoding.utf32":            encodingValue("utf-32"),
		"encoding.latin1":           encodingValue("iso-8859-1"),
		"encoding.default":          encodingValue("utf-8"),
		"encoding.getencoding":      builtinGetEncoding,

		"regex.ismatch":  regexStatic("ismatch"),
		"regex.match":    regexStatic("match"),
		"regex.matches":  regexStatic("matches"),
		"regex.replace":  regexStatic("replace"),
		"regex.split":    regexStatic("split"),
		"regex.escape":   builtinRegexEscape,
		"regex.unescape": builtinRegexUnescape,

		"regexoptions.none":                    constant(runtime.IntegerValue{Val: 0}),
		"regexoptions.ignorecase":              constant(runtime.IntegerValue{Val: regexIgnoreCase}),
		"regexoptions.multiline":               constant(runtime.IntegerValue{Val: regexMultiline}),
		"regexoptions.explicitcapture":         constant(runtime.IntegerValue{Val: 4}),
		"regexoptions.compiled":                constant(runtime.IntegerValue{Val: 8}),
		"regexoptions.singleline":              constant(runtime.IntegerValue{Val: regexSingleline}),
		"regexoptions.ignorepatternwhitespace": constant(runtime.IntegerValue{Val: 32}),
		"regexoptions.cultureinvariant":        constant(runtime.IntegerValue{Val: 512}),
	})
}

// textEncoding is the native side of an Encoding object. A nil enc means
// UTF-8, which strings already are.
type textEncoding struct {
	name  string
	ascii bool
	enc   encoding.Encoding
}

func lookupEncoding(name string) (textEncoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return textEncoding{name: "utf-8"}, nil
	case "us-ascii", "ascii":
		return textEncoding{name: "us-ascii", ascii: true}, nil
	case "utf-16", "utf-16le", "unicode":
		return textEncoding{name: "utf-16", enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}, nil
	case "utf-16be", "unicodefffe":
		return textEncoding{name: "utf-16BE", enc: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}, nil
	case "utf-32", "utf-32le":
		return textEncoding{name: "utf-32", enc: utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)}, nil
	case "iso-8859-1", "latin1":
		return textEncoding{name: "iso-8859-1", enc: charmap.ISO8859_1}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return textEncoding{}, runtime.Exception("ArgumentException", "'"+name+"' is not a supported encoding name.")
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = strings.ToLower(name)
	}
	return textEncoding{name: strings.ToLower(canonical), enc: enc}, nil
}

func encodingObject(te textEncoding) *runtime.ObjectValue {
	obj := runtime.NewObject("Encoding")
	obj.Set("WebName", str(te.name))
	obj.Set("BodyName", str(te.name))
	obj.Set("EncodingName", str(te.name))
	obj.Native = te
	return obj
}

func encodingValue(name string) builtinFunc {
	return func(*Interpreter, []runtime.Value) (runtime.Value, error) {
		te, err := lookupEncoding(name)
		if err != nil {
			return nil, err
		}
		return encodingObject(te), nil
	}
}

func builtinGetEncoding(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Encoding.GetEncoding", args, 1, 1); err != nil {
		return nil, err
	}
	if runtime.IsNumeric(args[0]) {
		page, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		switch page {
		case 65001:
			return encodingValue("utf-8")(nil, nil)
		case 1200:
			return encodingValue("utf-16")(nil, nil)
		case 1201:
			return encodingValue("utf-16BE")(nil, nil)
		case 20127:
			return encodingValue("us-ascii")(nil, nil)
		case 28591:
			return encodingValue("iso-8859-1")(nil, nil)
		case 1252:
			return encodingValue("windows-1252")(nil, nil)
		}
		return nil, runtime.Exception("NotSupportedException", "No data is available for encoding "+strconv.Itoa(page)+".")
	}
	te, err := lookupEncoding(argString(args, 0))
	if err != nil {
		return nil, err
	}
	return encodingObject(te), nil
}

func (te textEncoding) encode(s string) ([]byte, error) {
	switch {
	case te.ascii:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 127 {
				r = '?'
			}
			out = append(out, byte(r))
		}
		return out, nil
	case te.enc == nil:
		return []byte(s), nil
	}
	return encoding.ReplaceUnsupported(te.enc.NewEncoder()).Bytes([]byte(s))
}

func (te textEncoding) decode(b []byte) (string, error) {
	switch {
	case te.ascii:
		runes := make([]rune, len(b))
		for idx, c := range b {
			if c > 127 {
				c = '?'
			}
			runes[idx] = rune(c)
		}
		return string(runes), nil
	case te.enc == nil:
		return strings.ToValidUTF8(string(b), "�"), nil
	}
	out, err := te.enc.NewDecoder().Bytes(b)
	return string(out), err
}

func (te textEncoding) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "getbytes":
		if err := arity("GetBytes", args, 1, 1); err != nil {
			return nil, true, err
		}
		text := argString(args, 0)
		if arr, ok := args[0].(*runtime.ArrayValue); ok {
			if chars, ok := charArrayString(arr); ok {
				text = chars
			}
		}
		b, err := te.encode(text)
		if err != nil {
			return nil, true, runtime.Exception("EncoderFallbackException", err.Error())
		}
		return byteArray(b), true, nil
	case "getbytecount":
		if err := arity("GetByteCount", args, 1, 1); err != nil {
			return nil, true, err
		}
		b, err := te.encode(argString(args, 0))
		if err != nil {
			return nil, true, runtime.Exception("EncoderFallbackException", err.Error())
		}
		return runtime.IntegerValue{Val: int32(len(b))}, true, nil
	case "getstring":
		if err := arity("GetString", args, 1, 3); err != nil {
			return nil, true, err
		}
		b, err := bytesOf(args[0])
		if err != nil {
			return nil, true, err
		}
		if len(args) == 3 {
			offset, err := argInt(args, 1)
			if err != nil {
				return nil, true, err
			}
			count, err := argInt(args, 2)
			if err != nil {
				return nil, true, err
			}
			if offset < 0 || count < 0 || offset+count > len(b) {
				return nil, true, outOfRange("index")
			}
			b = b[offset : offset+count]
		}
		s, err := te.decode(b)
		if err != nil {
			return nil, true, runtime.Exception("DecoderFallbackException", err.Error())
		}
		return str(s), true, nil
	case "getpreamble":
		switch te.name {
		case "utf-8":
			return byteArray([]byte{0xEF, 0xBB, 0xBF}), true, nil
		case "utf-16":
			return byteArray([]byte{0xFF, 0xFE}), true, nil
		case "utf-16BE":
			return byteArray([]byte{0xFE, 0xFF}), true, nil
		}
		return byteArray(nil), true, nil
	case "tostring":
		return str(te.name), true, nil
	}
	return nil, false, nil
}

const (
	regexIgnoreCase = 1
	regexMultiline  = 2
	regexSingleline = 16
)

// compileRegex translates RegexOptions into inline flags. Go's RE2 syntax
// accepts the common .NET constructs, including (?<name>...) groups.
func compileRegex(pattern string, options int) (*regexp.Regexp, error) {
	var flags string
	if options&regexIgnoreCase != 0 {
		flags += "i"
	}
	if options&regexMultiline != 0 {
		flags += "m"
	}
	if options&regexSingleline != 0 {
		flags += "s"
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, runtime.Exception("ArgumentException", "Invalid pattern '"+pattern+"': "+err.Error())
	}
	return re, nil
}

// regexObject is the native side of New Regex(pattern[, options]).
type regexObject struct {
	re      *regexp.Regexp
	pattern string
	options int
}

func newRegex(args []runtime.Value) (*runtime.ObjectValue, error) {
	if err := arity("Regex", args, 1, 2); err != nil {
		return nil, err
	}
	options, err := optInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	re, err := compileRegex(argString(args, 0), options)
	if err != nil {
		return nil, err
	}
	obj := runtime.NewObject("Regex")
	obj.Native = &regexObject{re: re, pattern: argString(args, 0), options: options}
	return obj, nil
}

func (r *regexObject) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch lower := strings.ToLower(name); lower {
	case "ismatch", "match", "matches", "replace", "split":
		val, err := i.regexCall(r.re, lower, args)
		return val, true, err
	case "tostring":
		return str(r.pattern), true, nil
	case "options":
		return runtime.IntegerValue{Val: int32(r.options)}, true, nil
	case "getgroupnames":
		names := r.re.SubexpNames()
		out := make([]string, len(names))
		for idx, n := range names {
			if n == "" {
				n = strconv.Itoa(idx)
			}
			out[idx] = n
		}
		return stringsToArray(out), true, nil
	}
	return nil, false, nil
}

// regexStatic adapts a Regex instance member into its static form, which
// takes the pattern as the second argument and options last.
func regexStatic(op string) builtinFunc {
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		min := 2
		if op == "replace" {
			min = 3
		}
		if err := arity("Regex."+op, args, min, min+1); err != nil {
			return nil, err
		}
		options, err := optInt(args, min, 0)
		if err != nil {
			return nil, err
		}
		re, err := compileRegex(argString(args, 1), options)
		if err != nil {
			return nil, err
		}
		rest := append([]runtime.Value{args[0]}, args[2:min]...)
		return i.regexCall(re, op, rest)
	}
}

// regexCall runs an instance operation; args[0] is the input.
func (i *Interpreter) regexCall(re *regexp.Regexp, op string, args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, runtime.Exception("ArgumentNullException", "Value cannot be null.\nParameter name: input")
	}
	input := argString(args, 0)
	switch op {
	case "ismatch":
		return boolean(re.MatchString(input)), nil
	case "match":
		start, err := optInt(args, 1, 0)
		if err != nil {
			return nil, err
		}
		return matchAt(re, input, start), nil
	case "matches":
		locs := re.FindAllStringSubmatchIndex(input, -1)
		out := make([]runtime.Value, len(locs))
		for idx, loc := range locs {
			out[idx] = matchObject(re, input, loc)
		}
		coll := runtime.NewObject("MatchCollection")
		coll.Native = valueSequence(out)
		return coll, nil
	case "replace":
		if err := arity("Replace", args, 2, 3); err != nil {
			return nil, err
		}
		limit, err := optInt(args, 2, -1)
		if err != nil {
			return nil, err
		}
		return i.regexReplace(re, input, args[1], limit)
	case "split":
		return stringsToArray(re.Split(input, -1)), nil
	}
	return nil, missingMember(op, "Regex")
}

// regexReplace substitutes either a .NET replacement pattern or the result
// of a MatchEvaluator lambda; limit < 0 replaces every match.
func (i *Interpreter) regexReplace(re *regexp.Regexp, input string, replacement runtime.Value, limit int) (runtime.Value, error) {
	evaluator, isLambda := replacement.(*runtime.LambdaValue)
	template := convertReplacement(displayString(replacement))
	var b strings.Builder
	last := 0
	for n, loc := range re.FindAllStringSubmatchIndex(input, -1) {
		if limit >= 0 && n >= limit {
			break
		}
		b.WriteString(input[last:loc[0]])
		if isLambda {
			val, err := i.invokeLambda(evaluator, []runtime.Value{matchObject(re, input, loc)})
			if err != nil {
				return nil, err
			}
			b.WriteString(displayString(val))
		} else {
			b.Write(re.ExpandString(nil, template, input, loc))
		}
		last = loc[1]
	}
	b.WriteString(input[last:])
	return str(b.String()), nil
}

// convertReplacement rewrites $1 as ${1} so a following letter is not read
// as part of the group name, and $0 as the whole match.
func convertReplacement(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c != '$' || idx+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[idx+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			idx++
		case next == '&':
			b.WriteString("${0}")
			idx++
		case next >= '0' && next <= '9':
			end := idx + 1
			for end < len(s) && s[end] >= '0' && s[end] <= '9' {
				end++
			}
			b.WriteString("${" + s[idx+1:end] + "}")
			idx = end - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// runeOffset converts a byte offset into the character index .NET reports.
func runeOffset(s string, byteOff int) int {
	return utf8.RuneCountInString(s[:byteOff])
}

func groupObject(input string, start, end int) *runtime.ObjectValue {
	g := runtime.NewObject("Group")
	if start < 0 {
		g.Set("Success", boolean(false))
		g.Set("Value", str(""))
		g.Set("Index", runtime.IntegerValue{Val: 0})
		g.Set("Length", runtime.IntegerValue{Val: 0})
		return g
	}
	value := input[start:end]
	g.Set("Success", boolean(true))
	g.Set("Value", str(value))
	g.Set("Index", runtime.IntegerValue{Val: int32(runeOffset(input, start))})
	g.Set("Length", runtime.IntegerValue{Val: int32(utf8.RuneCountInString(value))})
	return g
}

// groupCollection indexes groups by number or by name.
type groupCollection struct {
	groups []runtime.Value
	names  []string
}

func (g groupCollection) items() []runtime.Value { return g.groups }

func (g groupCollection) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if s, ok := args[0].(runtime.StringValue); ok {
		for idx, n := range g.names {
			if n != "" && strings.EqualFold(n, s.Val) {
				return g.groups[idx], nil
			}
		}
		if n, err := strconv.Atoi(s.Val); err == nil && n >= 0 && n < len(g.groups) {
			return g.groups[n], nil
		}
		return groupObject("", -1, -1), nil
	}
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(g.groups) {
		return groupObject("", -1, -1), nil
	}
	return g.groups[idx], nil
}

func (g groupCollection) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

func (g groupCollection) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	if strings.EqualFold(name, "item") && len(args) == 1 {
		val, err := g.index(i, args)
		return val, true, err
	}
	return i.sequenceMethod(g.groups, name, args)
}

// matchState lets Match.NextMatch continue the scan.
type matchState struct {
	re    *regexp.Regexp
	input string
	end   int
	empty bool
}

func (m matchState) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, _ []runtime.Value) (runtime.Value, bool, error) {
	if !strings.EqualFold(name, "nextmatch") {
		return nil, false, nil
	}
	start := m.end
	if m.empty {
		// An empty match must not be found again at the same place.
		if start >= len(m.input) {
			return failedMatch(), true, nil
		}
		_, width := utf8.DecodeRuneInString(m.input[start:])
		start += width
	}
	return matchFrom(m.re, m.input, start), true, nil
}

func failedMatch() *runtime.ObjectValue {
	m := groupObject("", -1, -1)
	m.ClassName = "Match"
	groups := runtime.NewObject("GroupCollection")
	groups.Native = groupCollection{}
	m.Set("Groups", groups)
	return m
}

func matchObject(re *regexp.Regexp, input string, loc []int) *runtime.ObjectValue {
	m := groupObject(input, loc[0], loc[1])
	m.ClassName = "Match"
	names := re.SubexpNames()
	groups := make([]runtime.Value, len(loc)/2)
	for idx := range groups {
		groups[idx] = groupObject(input, loc[2*idx], loc[2*idx+1])
	}
	coll := runtime.NewObject("GroupCollection")
	coll.Native = groupCollection{groups: groups, names: names}
	m.Set("Groups", coll)
	m.Native = matchState{re: re, input: input, end: loc[1], empty: loc[0] == loc[1]}
	return m
}

// matchFrom finds the first match at or after a byte offset.
func matchFrom(re *regexp.Regexp, input string, start int) *runtime.ObjectValue {
	if start > len(input) {
		return failedMatch()
	}
	loc := re.FindStringSubmatchIndex(input[start:])
	if loc == nil {
		return failedMatch()
	}
	for idx := range loc {
		if loc[idx] >= 0 {
			loc[idx] += start
		}
	}
	return matchObject(re, input, loc)
}

// matchAt is Match(input, startat) with startat in characters.
func matchAt(re *regexp.Regexp, input string, startChar int) *runtime.ObjectValue {
	byteOff := 0
	for n := 0; n < startChar && byteOff < len(input); n++ {
		_, width := utf8.DecodeRuneInString(input[byteOff:])
		byteOff += width
	}
	return matchFrom(re, input, byteOff)
}

func builtinRegexEscape(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Regex.Escape", args, 1, 1); err != nil {
		return nil, err
	}
	return str(regexp.QuoteMeta(argString(args, 0))), nil
}

func builtinRegexUnescape(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Regex.Unescape", args, 1, 1); err != nil {
		return nil, err
	}
	s := argString(args, 0)
	var b strings.Builder
	for idx := 0; idx < len(s); idx++ {
		if s[idx] != '\\' || idx+1 >= len(s) {
			b.WriteByte(s[idx])
			continue
		}
		idx++
		switch s[idx] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[idx])
		}
	}
	return str(b.String()), nil
}

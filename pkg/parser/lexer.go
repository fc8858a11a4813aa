package parser

import (
	"strconv"
	"strings"
	"unicode"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	NEWLINE
	COLON
	IDENT
	INTEGER
	FLOAT
	STRING
	CHAR
	DATE
	INTERP
	OPERATOR
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	case COLON:
		return "':'"
	case IDENT:
		return "identifier"
	case INTEGER, FLOAT:
		return "number"
	case STRING:
		return "string"
	case CHAR:
		return "char"
	case DATE:
		return "date"
	case INTERP:
		return "interpolated string"
	case OPERATOR:
		return "operator"
	default:
		return "token"
	}
}

// Token is a lexical token. Keywords are IDENT tokens; the parser decides
// whether a word is a keyword from context. Escaped marks `[Name]`.
type Token struct {
	Type    TokenType
	Lexeme  string
	Text    string
	Int     int64
	Float   float64
	Suffix  string
	Escaped bool
	Line    int
	Col     int
}

func (t Token) lower() string {
	return strings.ToLower(t.Lexeme)
}

// Lexer turns source text into tokens. Blank lines collapse into a single
// NEWLINE; ` _` continuations and implicit continuations after operators and
// commas are removed.
type Lexer struct {
	src    []rune
	pos    int
	line   int
	col    int
	tokens []Token
}

func NewLexer(src string) *Lexer {
	src = strings.TrimPrefix(src, "\ufeff")
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// Tokenize lexes the whole input.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(src).Run()
}

func (l *Lexer) Run() ([]Token, error) {
	for {
		if l.pos >= len(l.src) {
			l.emitNewline()
			l.tokens = append(l.tokens, Token{Type: EOF, Line: l.line, Col: l.col})
			return l.tokens, nil
		}
		ch := l.src[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\f' || ch == '\u00a0':
			l.advance()
		case ch == '\r' || ch == '\n':
			l.consumeLineBreak()
			l.emitNewline()
		case ch == '\'' || ch == '\u2018' || ch == '\u2019':
			l.skipComment()
		case ch == '_' && l.isLineContinuation():
			l.advance()
			for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
				l.advance()
			}
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				l.skipComment()
			}
			l.consumeLineBreak()
		case ch == ':':
			if l.peekRune(1) == '=' {
				l.emitOperator(":=", 2)
				continue
			}
			line, col := l.line, l.col
			l.advance()
			l.tokens = append(l.tokens, Token{Type: COLON, Lexeme: ":", Line: line, Col: col})
		case ch == '"' || ch == '\u201c' || ch == '\u201d':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case ch == '$' && l.peekRune(1) == '"':
			if err := l.lexInterpolated(); err != nil {
				return nil, err
			}
		case ch == '#' && l.tryDate():
		case ch == '[':
			if err := l.lexEscapedIdent(); err != nil {
				return nil, err
			}
		case unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peekRune(1)) && !l.lastIsValue()):
			if err := l.lexNumber(); err != nil {
				return nil, err
			}
		case ch == '&' && isRadixPrefix(l.peekRune(1)) && isRadixDigit(l.peekRune(1), l.peekRune(2)):
			if err := l.lexRadixNumber(); err != nil {
				return nil, err
			}
		case unicode.IsLetter(ch) || ch == '_':
			l.lexIdent()
		default:
			if err := l.lexOperator(); err != nil {
				return nil, err
			}
		}
	}
}

func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) peekRune(offset int) rune {
	idx := l.pos + offset
	if idx < 0 || idx >= len(l.src) {
		return 0
	}
	return l.src[idx]
}

func (l *Lexer) errorf(format string, args ...interface{}) error {
	return newParseError(l.line, l.col, format, args...)
}

func (l *Lexer) consumeLineBreak() {
	if l.pos < len(l.src) && l.src[l.pos] == '\r' {
		l.pos++
		l.col++
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.advance()
		} else {
			l.line++
			l.col = 1
		}
		return
	}
	if l.pos < len(l.src) && l.src[l.pos] == '\n' {
		l.advance()
	}
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
		l.advance()
	}
}

// isLineContinuation reports whether the `_` at pos is followed only by
// blanks (or a comment) up to the end of the line and preceded by a blank.
func (l *Lexer) isLineContinuation() bool {
	if l.pos > 0 {
		prev := l.src[l.pos-1]
		if prev != ' ' && prev != '\t' {
			return false
		}
	}
	for idx := l.pos + 1; idx < len(l.src); idx++ {
		switch l.src[idx] {
		case ' ', '\t':
			continue
		case '\r', '\n', '\'':
			return true
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) last() *Token {
	if len(l.tokens) == 0 {
		return nil
	}
	return &l.tokens[len(l.tokens)-1]
}

func (l *Lexer) atStatementStart() bool {
	last := l.last()
	return last == nil || last.Type == NEWLINE || last.Type == COLON
}

func (l *Lexer) lastIsValue() bool {
	last := l.last()
	if last == nil {
		return false
	}
	switch last.Type {
	case IDENT, INTEGER, FLOAT, STRING, CHAR, DATE, INTERP:
		return true
	case OPERATOR:
		return last.Lexeme == ")" || last.Lexeme == "}"
	}
	return false
}

var continuationOperators = map[string]bool{
	",": true, "(": true, "{": true, "&": true, "+": true, "-": true, "*": true, "/": true,
	"\\": true, "^": true, "=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true,
	":=": true, "+=": true, "-=": true, "*=": true, "/=": true, "&=": true, "\\=": true,
	"^=": true, "<<": true, ">>": true, ".": true,
}

var continuationWords = map[string]bool{
	"and": true, "andalso": true, "or": true, "orelse": true, "xor": true, "mod": true,
	"like": true, "is": true, "isnot": true, "in": true,
}

func (l *Lexer) emitNewline() {
	last := l.last()
	if last == nil || last.Type == NEWLINE {
		return
	}
	if last.Type == OPERATOR && continuationOperators[last.Lexeme] {
		return
	}
	if last.Type == IDENT && !last.Escaped && continuationWords[last.lower()] {
		return
	}
	if l.nextSignificantCloses() {
		return
	}
	l.tokens = append(l.tokens, Token{Type: NEWLINE, Line: l.line, Col: l.col})
}

// nextSignificantCloses looks past blanks, line breaks and comments for a
// closing `)` or `}`, which continues the previous line.
func (l *Lexer) nextSignificantCloses() bool {
	idx := l.pos
	for idx < len(l.src) {
		switch ch := l.src[idx]; {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			idx++
		case ch == '\'':
			for idx < len(l.src) && l.src[idx] != '\n' {
				idx++
			}
		default:
			return ch == ')' || ch == '}'
		}
	}
	return false
}

func (l *Lexer) lexString() error {
	line, col := l.line, l.col
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return newParseError(line, col, "unterminated string literal")
		}
		ch := l.src[l.pos]
		if ch == '"' || ch == '\u201c' || ch == '\u201d' {
			if l.peekRune(1) == '"' {
				b.WriteRune('"')
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			break
		}
		b.WriteRune(ch)
		l.advance()
	}
	text := b.String()
	if (l.peekRune(0) == 'c' || l.peekRune(0) == 'C') && !isIdentRune(l.peekRune(1)) {
		l.advance()
		r := rune(0)
		for _, first := range text {
			r = first
			break
		}
		l.tokens = append(l.tokens, Token{Type: CHAR, Lexeme: text, Text: text, Int: int64(r), Line: line, Col: col})
		return nil
	}
	l.tokens = append(l.tokens, Token{Type: STRING, Lexeme: text, Text: text, Line: line, Col: col})
	return nil
}

func (l *Lexer) lexInterpolated() error {
	line, col := l.line, l.col
	l.advance()
	l.advance()
	var b strings.Builder
	depth := 0
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return newParseError(line, col, "unterminated interpolated string")
		}
		ch := l.src[l.pos]
		switch {
		case ch == '{':
			depth++
		case ch == '}' && depth > 0:
			depth--
		case ch == '"' && depth == 0:
			if l.peekRune(1) == '"' {
				b.WriteString(`""`)
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			l.tokens = append(l.tokens, Token{Type: INTERP, Lexeme: b.String(), Text: b.String(), Line: line, Col: col})
			return nil
		}
		b.WriteRune(ch)
		l.advance()
	}
}

// tryDate lexes `#...#` date literals. It returns false (consuming nothing)
// when the text is not a date so `#` can be used for file numbers.
func (l *Lexer) tryDate() bool {
	end := -1
	for idx := l.pos + 1; idx < len(l.src); idx++ {
		ch := l.src[idx]
		if ch == '#' {
			end = idx
			break
		}
		if ch == '\n' || ch == '\r' {
			return false
		}
		if !strings.ContainsRune("0123456789/:-. APMapm", ch) {
			return false
		}
	}
	if end < 0 {
		return false
	}
	body := strings.TrimSpace(string(l.src[l.pos+1 : end]))
	if !strings.ContainsAny(body, "0123456789") || !strings.ContainsAny(body, "/:-") {
		return false
	}
	line, col := l.line, l.col
	for l.pos <= end {
		l.advance()
	}
	l.tokens = append(l.tokens, Token{Type: DATE, Lexeme: body, Text: body, Line: line, Col: col})
	return true
}

func (l *Lexer) lexEscapedIdent() error {
	line, col := l.line, l.col
	l.advance()
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != ']' {
		if l.src[l.pos] == '\n' {
			return newParseError(line, col, "unterminated escaped identifier")
		}
		l.advance()
	}
	if l.pos >= len(l.src) {
		return newParseError(line, col, "unterminated escaped identifier")
	}
	name := string(l.src[start:l.pos])
	l.advance()
	l.tokens = append(l.tokens, Token{Type: IDENT, Lexeme: name, Text: name, Escaped: true, Line: line, Col: col})
	return nil
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) lexIdent() {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
		l.advance()
	}
	name := string(l.src[start:l.pos])
	// VB6 type characters: Left$, count%.
	if l.pos < len(l.src) && (l.src[l.pos] == '$' || l.src[l.pos] == '%') && !isIdentRune(l.peekRune(1)) && l.peekRune(1) != '"' {
		l.advance()
	}
	if strings.EqualFold(name, "rem") && l.atStatementStart() {
		l.skipComment()
		return
	}
	l.tokens = append(l.tokens, Token{Type: IDENT, Lexeme: name, Text: name, Line: line, Col: col})
}

func (l *Lexer) lexNumber() error {
	line, col := l.line, l.col
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
		l.advance()
	}
	if l.peekRune(0) == '.' && unicode.IsDigit(l.peekRune(1)) {
		isFloat = true
		l.advance()
		for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
			l.advance()
		}
	}
	if e := l.peekRune(0); e == 'e' || e == 'E' {
		next := l.peekRune(1)
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(l.peekRune(2))) {
			isFloat = true
			l.advance()
			l.advance()
			for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
				l.advance()
			}
		}
	}
	text := string(l.src[start:l.pos])
	suffix := l.numberSuffix()
	tok := Token{Lexeme: text, Text: text, Suffix: suffix, Line: line, Col: col}
	switch strings.ToUpper(suffix) {
	case "!", "F", "#", "R", "@", "D":
		isFloat = true
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return newParseError(line, col, "invalid number %q", text)
		}
		tok.Type = FLOAT
		tok.Float = f
	} else {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(text, 64)
			if ferr != nil {
				return newParseError(line, col, "invalid number %q", text)
			}
			tok.Type = FLOAT
			tok.Float = f
		} else {
			tok.Type = INTEGER
			tok.Int = n
		}
	}
	l.tokens = append(l.tokens, tok)
	return nil
}

func (l *Lexer) numberSuffix() string {
	ch := l.peekRune(0)
	switch ch {
	case '&', '%', '!', '#', '@':
		if ch == '&' && isRadixPrefix(l.peekRune(1)) {
			return ""
		}
		if !isIdentRune(l.peekRune(1)) {
			l.advance()
			return string(ch)
		}
		return ""
	}
	upper := unicode.ToUpper(ch)
	if upper == 'U' {
		next := unicode.ToUpper(l.peekRune(1))
		if (next == 'I' || next == 'L' || next == 'S') && !isIdentRune(l.peekRune(2)) {
			l.advance()
			l.advance()
			return "U" + string(next)
		}
		return ""
	}
	switch upper {
	case 'L', 'S', 'I', 'D', 'F', 'R':
		if !isIdentRune(l.peekRune(1)) {
			l.advance()
			return string(upper)
		}
	}
	return ""
}

func isRadixPrefix(r rune) bool {
	switch r {
	case 'h', 'H', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func isRadixDigit(prefix, r rune) bool {
	switch unicode.ToUpper(prefix) {
	case 'H':
		return strings.ContainsRune("0123456789abcdefABCDEF", r)
	case 'O':
		return r >= '0' && r <= '7'
	case 'B':
		return r == '0' || r == '1'
	}
	return false
}

func (l *Lexer) lexRadixNumber() error {
	line, col := l.line, l.col
	l.advance()
	prefix := unicode.ToUpper(l.src[l.pos])
	l.advance()
	start := l.pos
	for l.pos < len(l.src) && isRadixDigit(prefix, l.src[l.pos]) {
		l.advance()
	}
	digits := string(l.src[start:l.pos])
	base := 16
	switch prefix {
	case 'O':
		base = 8
	case 'B':
		base = 2
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return newParseError(line, col, "invalid number &%c%s", prefix, digits)
	}
	suffix := l.numberSuffix()
	n := int64(u)
	// &HFFFF style literals without a Long suffix wrap like VB's 16/32-bit forms.
	if suffix != "&" && suffix != "L" && u <= 0xFFFFFFFF && u > 0x7FFFFFFF {
		n = int64(int32(uint32(u)))
	}
	l.tokens = append(l.tokens, Token{Type: INTEGER, Lexeme: "&" + string(prefix) + digits, Int: n, Suffix: suffix, Line: line, Col: col})
	return nil
}

var multiCharOperators = []string{"<<=", ">>=", "<>", "<=", ">=", "<<", ">>", "+=", "-=", "*=", "/=", "\\=", "&=", "^="}

func (l *Lexer) emitOperator(op string, width int) {
	line, col := l.line, l.col
	for i := 0; i < width; i++ {
		l.advance()
	}
	l.tokens = append(l.tokens, Token{Type: OPERATOR, Lexeme: op, Text: op, Line: line, Col: col})
}

func (l *Lexer) lexOperator() error {
	rest := l.src[l.pos:]
	for _, op := range multiCharOperators {
		if len(rest) >= len(op) && string(rest[:len(op)]) == op {
			l.emitOperator(op, len([]rune(op)))
			return nil
		}
	}
	ch := l.src[l.pos]
	if strings.ContainsRune("+-*/\\^&=<>(){},.!?#;@", ch) {
		l.emitOperator(string(ch), 1)
		return nil
	}
	return l.errorf("unexpected character %q", ch)
}

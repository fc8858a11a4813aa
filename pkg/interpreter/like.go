package interpreter

import (
	"regexp"
	"strings"

	"vybe/interpreter-go/pkg/runtime"
)

// likeMatch implements the Like operator: * ? # and bracketed character
// lists, with [!...] negating the list.
func likeMatch(text, pattern string) (bool, error) {
	re, err := likeRegexp(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

func likeRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString(`^(?s:`)
	runes := []rune(pattern)
	for idx := 0; idx < len(runes); idx++ {
		switch c := runes[idx]; c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '#':
			sb.WriteString("[0-9]")
		case '[':
			end := idx + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return nil, runtime.Exception("ArgumentException", "Invalid Like pattern '"+pattern+"'")
			}
			body := runes[idx+1 : end]
			idx = end
			if len(body) == 0 {
				continue
			}
			negate := body[0] == '!'
			if negate {
				body = body[1:]
			}
			if len(body) == 0 {
				// [!] is a literal exclamation mark
				sb.WriteString("!")
				continue
			}
			sb.WriteByte('[')
			if negate {
				sb.WriteByte('^')
			}
			for _, r := range body {
				if r == '\\' || r == '[' || r == ']' || r == '^' {
					sb.WriteByte('\\')
				}
				sb.WriteRune(r)
			}
			sb.WriteByte(']')
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString(")$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, runtime.Exception("ArgumentException", "Invalid Like pattern '"+pattern+"'")
	}
	return re, nil
}

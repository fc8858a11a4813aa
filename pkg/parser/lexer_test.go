package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for idx, tok := range tokens {
		out[idx] = tok.Type
	}
	return out
}

func TestTokenizeLineContinuation(t *testing.T) {
	tokens, err := Tokenize("x = 1 + _\n    2\ny = 3")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []TokenType{IDENT, OPERATOR, INTEGER, OPERATOR, INTEGER, NEWLINE, IDENT, OPERATOR, INTEGER, NEWLINE, EOF}
	if diff := cmp.Diff(want, tokenTypes(tokens)); diff != "" {
		t.Fatalf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeCollapsesBlankLines(t *testing.T) {
	tokens, err := Tokenize("a\n\n\n   \n' only a comment\nb")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []TokenType{IDENT, NEWLINE, IDENT, NEWLINE, EOF}
	if diff := cmp.Diff(want, tokenTypes(tokens)); diff != "" {
		t.Fatalf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeLiterals(t *testing.T) {
	tokens, err := Tokenize(`#1/2/2020# &HFF "a""b" "x"c 2.5! [Stop]`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens[0].Type != DATE || tokens[0].Text != "1/2/2020" {
		t.Fatalf("expected date literal, got %#v", tokens[0])
	}
	if tokens[1].Type != INTEGER || tokens[1].Int != 255 {
		t.Fatalf("expected hex literal 255, got %#v", tokens[1])
	}
	if tokens[2].Type != STRING || tokens[2].Text != `a"b` {
		t.Fatalf("expected escaped quote, got %#v", tokens[2])
	}
	if tokens[3].Type != CHAR || tokens[3].Int != 'x' {
		t.Fatalf("expected char literal, got %#v", tokens[3])
	}
	if tokens[4].Type != FLOAT || tokens[4].Suffix != "!" {
		t.Fatalf("expected single literal, got %#v", tokens[4])
	}
	if tokens[5].Type != IDENT || !tokens[5].Escaped || tokens[5].Lexeme != "Stop" {
		t.Fatalf("expected escaped identifier, got %#v", tokens[5])
	}
}

func TestTokenizeFileNumberIsNotDate(t *testing.T) {
	tokens, err := Tokenize("Print #1, x")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens[1].Type != OPERATOR || tokens[1].Lexeme != "#" {
		t.Fatalf("expected '#' operator, got %#v", tokens[1])
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize("x = \"abc\ny = 1")
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
	if perr.Line != 1 || perr.Column != 5 {
		t.Fatalf("expected error at 1:5, got %d:%d", perr.Line, perr.Column)
	}
}

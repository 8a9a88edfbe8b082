package lexer

import (
	"testing"

	"github.com/infra-lang/infra/internal/token"
)

func TestNextTokenOperators(t *testing.T) {
	input := `= + - * / % == != < <= > >= ! && || ( ) { } [ ] , . : ; -> |`

	expected := []token.TokenType{
		token.ASSIGN, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.PERCENT, token.EQ, token.NOT_EQ, token.LT, token.LE,
		token.GT, token.GE, token.BANG, token.AND, token.OR,
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.COMMA, token.DOT,
		token.COLON, token.SEMICOLON, token.ARROW, token.PIPE,
		token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tokens[%d] - wrong type. expected=%q, got=%q", i, want, tok.Type)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := "let if else while for in range true false null print return function def try catch finally throw import export from as async await class extends this super init new break continue number string boolean"

	expected := []token.TokenType{
		token.LET, token.IF, token.ELSE, token.WHILE, token.FOR, token.IN,
		token.RANGE, token.TRUE, token.FALSE, token.NULL, token.PRINT,
		token.RETURN, token.FUNCTION, token.DEF, token.TRY, token.CATCH,
		token.FINALLY, token.THROW, token.IMPORT, token.EXPORT, token.FROM,
		token.AS, token.ASYNC, token.AWAIT, token.CLASS, token.EXTENDS,
		token.THIS, token.SUPER, token.INIT, token.NEW, token.BREAK,
		token.CONTINUE, token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("keywords[%d] - expected=%q, got=%q (%q)", i, want, tok.Type, tok.Lexeme)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"42", 42},
		{"2.5", 2.5},
		{"1e3", 1000},
		{"2.5E-2", 0.025},
		{"1e+2", 100},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.NUMBER {
			t.Fatalf("%q: expected NUMBER, got %q", tt.input, tok.Type)
		}
		if got := tok.Literal.(float64); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.want, got)
		}
	}
}

func TestNumberDotMember(t *testing.T) {
	// A dot with no digit after it is member access, not a decimal point.
	l := New("1.foo")
	if tok := l.NextToken(); tok.Type != token.NUMBER {
		t.Fatalf("expected NUMBER, got %q", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != token.DOT {
		t.Fatalf("expected DOT, got %q", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != token.IDENT {
		t.Fatalf("expected IDENT, got %q", tok.Type)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"inside"`, `quote"inside`},
		{`'it\'s'`, "it's"},
		{`"back\\slash"`, `back\slash`},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("%q: expected STRING, got %q", tt.input, tok.Type)
		}
		if got := tok.Literal.(string); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New("\"oops\nlet x = 1")
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %q", tok.Type)
	}
	// Scanning continues on the next line.
	if tok = l.NextToken(); tok.Type != token.NEWLINE {
		t.Fatalf("expected NEWLINE after error, got %q", tok.Type)
	}
	if tok = l.NextToken(); tok.Type != token.LET {
		t.Fatalf("expected LET after recovery, got %q", tok.Type)
	}
}

func TestComments(t *testing.T) {
	input := "1 # comment\n2 // other\n3"
	l := New(input)

	want := []token.TokenType{
		token.NUMBER, token.NEWLINE, token.NUMBER, token.NEWLINE,
		token.NUMBER, token.EOF,
	}
	for i, wt := range want {
		tok := l.NextToken()
		if tok.Type != wt {
			t.Fatalf("tokens[%d]: expected %q, got %q", i, wt, tok.Type)
		}
	}
}

func TestFString(t *testing.T) {
	l := New(`f"sum is {a + b}!"`)
	tok := l.NextToken()
	if tok.Type != token.FSTRING {
		t.Fatalf("expected FSTRING, got %q", tok.Type)
	}
	parts := tok.Literal.([]token.FStringPart)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d (%v)", len(parts), parts)
	}
	if parts[0].IsExpr || parts[0].Value != "sum is " {
		t.Errorf("parts[0] = %+v", parts[0])
	}
	if !parts[1].IsExpr || parts[1].Value != "a + b" {
		t.Errorf("parts[1] = %+v", parts[1])
	}
	if parts[2].IsExpr || parts[2].Value != "!" {
		t.Errorf("parts[2] = %+v", parts[2])
	}
}

func TestFStringNestedBraces(t *testing.T) {
	l := New(`f"v: {obj["key"]} end"`)
	tok := l.NextToken()
	if tok.Type != token.FSTRING {
		t.Fatalf("expected FSTRING, got %q (%v)", tok.Type, tok.Literal)
	}
	parts := tok.Literal.([]token.FStringPart)
	if len(parts) != 3 || parts[1].Value != `obj["key"]` {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestPositions(t *testing.T) {
	l := New("let x = 1\nlet y = 2")
	tok := l.NextToken() // let
	if tok.Line != 1 || tok.Column != 1 {
		t.Errorf("let at %d:%d, want 1:1", tok.Line, tok.Column)
	}
	tok = l.NextToken() // x
	if tok.Line != 1 || tok.Column != 5 {
		t.Errorf("x at %d:%d, want 1:5", tok.Line, tok.Column)
	}
	l.NextToken() // =
	l.NextToken() // 1
	l.NextToken() // newline
	tok = l.NextToken() // let
	if tok.Line != 2 || tok.Column != 1 {
		t.Errorf("second let at %d:%d, want 2:1", tok.Line, tok.Column)
	}
}

func TestIllegalCharacter(t *testing.T) {
	l := New("let @ = 1")
	l.NextToken() // let
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %q", tok.Type)
	}
	// Lexing continues past the bad character.
	if tok = l.NextToken(); tok.Type != token.ASSIGN {
		t.Fatalf("expected ASSIGN after recovery, got %q", tok.Type)
	}
}

package lexer

import (
	"strconv"

	"github.com/infra-lang/infra/internal/token"
)

// Lexer scans source runes into tokens. It never panics on bad input:
// malformed lexemes become ILLEGAL tokens whose Literal carries the
// message, and scanning continues.
type Lexer struct {
	input        []rune
	position     int  // index of ch
	readPosition int  // next index to read
	ch           rune // current rune, 0 at EOF
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+1]
}

// Tokenize scans the whole input. The returned slice always ends with an
// EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, column := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Lexeme: "", Line: line, Column: column}
	case '\n':
		l.readChar()
		return token.Token{Type: token.NEWLINE, Lexeme: "\n", Line: line, Column: column}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.EQ, "==", line, column)
		}
		l.readChar()
		return l.newToken(token.ASSIGN, "=", line, column)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.NOT_EQ, "!=", line, column)
		}
		l.readChar()
		return l.newToken(token.BANG, "!", line, column)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.LE, "<=", line, column)
		}
		l.readChar()
		return l.newToken(token.LT, "<", line, column)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.GE, ">=", line, column)
		}
		l.readChar()
		return l.newToken(token.GT, ">", line, column)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return l.newToken(token.AND, "&&", line, column)
		}
		l.readChar()
		return l.illegal("unexpected character '&'", "&", line, column)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return l.newToken(token.OR, "||", line, column)
		}
		l.readChar()
		return l.newToken(token.PIPE, "|", line, column)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.newToken(token.ARROW, "->", line, column)
		}
		l.readChar()
		return l.newToken(token.MINUS, "-", line, column)
	case '+':
		l.readChar()
		return l.newToken(token.PLUS, "+", line, column)
	case '*':
		l.readChar()
		return l.newToken(token.STAR, "*", line, column)
	case '/':
		l.readChar()
		return l.newToken(token.SLASH, "/", line, column)
	case '%':
		l.readChar()
		return l.newToken(token.PERCENT, "%", line, column)
	case '(':
		l.readChar()
		return l.newToken(token.LPAREN, "(", line, column)
	case ')':
		l.readChar()
		return l.newToken(token.RPAREN, ")", line, column)
	case '{':
		l.readChar()
		return l.newToken(token.LBRACE, "{", line, column)
	case '}':
		l.readChar()
		return l.newToken(token.RBRACE, "}", line, column)
	case '[':
		l.readChar()
		return l.newToken(token.LBRACKET, "[", line, column)
	case ']':
		l.readChar()
		return l.newToken(token.RBRACKET, "]", line, column)
	case ',':
		l.readChar()
		return l.newToken(token.COMMA, ",", line, column)
	case '.':
		l.readChar()
		return l.newToken(token.DOT, ".", line, column)
	case ':':
		l.readChar()
		return l.newToken(token.COLON, ":", line, column)
	case ';':
		l.readChar()
		return l.newToken(token.SEMICOLON, ";", line, column)
	case '"', '\'':
		return l.readString(l.ch, line, column)
	}

	if l.ch == 'f' && (l.peekChar() == '"' || l.peekChar() == '\'') {
		return l.readFString(line, column)
	}
	if isLetter(l.ch) {
		return l.readIdentifier(line, column)
	}
	if isDigit(l.ch) {
		return l.readNumber(line, column)
	}

	ch := string(l.ch)
	l.readChar()
	return l.illegal("unexpected character '"+ch+"'", ch, line, column)
}

func (l *Lexer) newToken(tokenType token.TokenType, lexeme string, line, column int) token.Token {
	return token.Token{Type: tokenType, Lexeme: lexeme, Line: line, Column: column}
}

func (l *Lexer) illegal(msg, lexeme string, line, column int) token.Token {
	return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: msg, Line: line, Column: column}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			l.skipLineComment()
		case l.ch == '/' && l.peekChar() == '/':
			l.skipLineComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier(line, column int) token.Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := string(l.input[start:l.position])
	tok := token.Token{
		Type:   token.LookupIdent(lexeme),
		Lexeme: lexeme,
		Line:   line,
		Column: column,
	}
	if tok.Type == token.IDENT {
		tok.Literal = lexeme
	}
	return tok
}

// readNumber accepts integer and decimal forms with an optional
// exponent: 1, 2.5, 1e3, 2.5E-2. A dot not followed by a digit is left
// for member access (1.floor is NUMBER DOT IDENT).
func (l *Lexer) readNumber(line, column int) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekChar2())) {
			l.readChar() // e
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	lexeme := string(l.input[start:l.position])
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return l.illegal("malformed number '"+lexeme+"'", lexeme, line, column)
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: value, Line: line, Column: column}
}

func (l *Lexer) readString(quote rune, line, column int) token.Token {
	l.readChar() // opening quote
	var out []rune
	for {
		switch l.ch {
		case quote:
			l.readChar() // closing quote
			s := string(out)
			return token.Token{Type: token.STRING, Lexeme: s, Literal: s, Line: line, Column: column}
		case 0, '\n':
			// Leave the newline for the statement separator.
			return l.illegal("unterminated string", string(out), line, column)
		case '\\':
			l.readChar()
			out = append(out, l.unescape(l.ch))
			l.readChar()
		default:
			out = append(out, l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\', '"', '\'':
		return ch
	default:
		// Unknown escapes keep the character, matching string display.
		return ch
	}
}

// readFString scans f"text {expr} text". The literal payload is the
// segment list; expressions stay raw and are re-parsed by the parser
// with their recorded positions so diagnostics point into the original
// source. Braces nest and quotes inside expressions are honored.
func (l *Lexer) readFString(line, column int) token.Token {
	l.readChar() // 'f'
	quote := l.ch
	l.readChar() // opening quote

	var parts []token.FStringPart
	var text []rune
	textLine, textColumn := l.line, l.column

	flushText := func() {
		if len(text) > 0 {
			parts = append(parts, token.FStringPart{Value: string(text), Line: textLine, Column: textColumn})
			text = nil
		}
	}

	for {
		switch l.ch {
		case quote:
			l.readChar()
			flushText()
			return token.Token{Type: token.FSTRING, Lexeme: "f-string", Literal: parts, Line: line, Column: column}
		case 0, '\n':
			return l.illegal("unterminated f-string", "", line, column)
		case '\\':
			l.readChar()
			text = append(text, l.unescape(l.ch))
			l.readChar()
		case '{':
			flushText()
			l.readChar() // '{'
			expr, ok := l.readFStringExpr(quote)
			if !ok {
				return l.illegal("unterminated expression in f-string", "", line, column)
			}
			parts = append(parts, expr)
			textLine, textColumn = l.line, l.column
		case '}':
			return l.illegal("unmatched '}' in f-string", "", line, column)
		default:
			if len(text) == 0 {
				textLine, textColumn = l.line, l.column
			}
			text = append(text, l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readFStringExpr(quote rune) (token.FStringPart, bool) {
	exprLine, exprColumn := l.line, l.column
	start := l.position
	depth := 1
	for {
		switch l.ch {
		case 0:
			return token.FStringPart{}, false
		case '{':
			depth++
			l.readChar()
		case '}':
			depth--
			if depth == 0 {
				raw := string(l.input[start:l.position])
				l.readChar() // '}'
				return token.FStringPart{IsExpr: true, Value: raw, Line: exprLine, Column: exprColumn}, true
			}
			l.readChar()
		case '"', '\'':
			// A nested string may contain braces; skip it whole.
			inner := l.ch
			l.readChar()
			for l.ch != inner && l.ch != 0 && l.ch != '\n' {
				if l.ch == '\\' {
					l.readChar()
				}
				l.readChar()
			}
			if l.ch == inner {
				l.readChar()
			}
		default:
			if l.ch == '\n' && quote != 0 {
				return token.FStringPart{}, false
			}
			l.readChar()
		}
	}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

package token

type TokenType string

// Token is a single lexical unit. Line and Column are 1-based and point
// at the first character of the lexeme. Literal carries the decoded
// payload where one exists (float64 for NUMBER, string for STRING and
// IDENT, []FStringPart for FSTRING).
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

// FStringPart is one segment of an interpolated string literal. Text
// segments carry decoded text; expression segments carry the raw source
// between the braces, re-parsed later. Line/Column locate the segment's
// first character in the original source.
type FStringPart struct {
	IsExpr bool
	Value  string
	Line   int
	Column int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	IDENT   = "IDENT"
	NUMBER  = "NUMBER"
	STRING  = "STRING"
	FSTRING = "FSTRING"

	ASSIGN  = "="
	PLUS    = "+"
	MINUS   = "-"
	STAR    = "*"
	SLASH   = "/"
	PERCENT = "%"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	LE     = "<="
	GT     = ">"
	GE     = ">="

	BANG = "!"
	AND  = "&&"
	OR   = "||"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	COMMA     = ","
	DOT       = "."
	COLON     = ":"
	SEMICOLON = ";"
	ARROW     = "->"
	PIPE      = "|"

	LET      = "LET"
	IF       = "IF"
	ELSE     = "ELSE"
	WHILE    = "WHILE"
	FOR      = "FOR"
	IN       = "IN"
	RANGE    = "RANGE"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	NULL     = "NULL"
	PRINT    = "PRINT"
	RETURN   = "RETURN"
	FUNCTION = "FUNCTION"
	DEF      = "DEF"
	TRY      = "TRY"
	CATCH    = "CATCH"
	FINALLY  = "FINALLY"
	THROW    = "THROW"
	IMPORT   = "IMPORT"
	EXPORT   = "EXPORT"
	FROM     = "FROM"
	AS       = "AS"
	ASYNC    = "ASYNC"
	AWAIT    = "AWAIT"
	CLASS    = "CLASS"
	EXTENDS  = "EXTENDS"
	THIS     = "THIS"
	SUPER    = "SUPER"
	INIT     = "INIT"
	NEW      = "NEW"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"

	// Type annotation keywords. These double as ordinary identifiers in
	// expression position (`import string` must keep working), which the
	// parser handles.
	NUMBER_TYPE  = "NUMBER_TYPE"
	STRING_TYPE  = "STRING_TYPE"
	BOOLEAN_TYPE = "BOOLEAN_TYPE"
)

var keywords = map[string]TokenType{
	"let":      LET,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"range":    RANGE,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"print":    PRINT,
	"return":   RETURN,
	"function": FUNCTION,
	"def":      DEF,
	"try":      TRY,
	"catch":    CATCH,
	"finally":  FINALLY,
	"throw":    THROW,
	"import":   IMPORT,
	"export":   EXPORT,
	"from":     FROM,
	"as":       AS,
	"async":    ASYNC,
	"await":    AWAIT,
	"class":    CLASS,
	"extends":  EXTENDS,
	"this":     THIS,
	"super":    SUPER,
	"init":     INIT,
	"new":      NEW,
	"break":    BREAK,
	"continue": CONTINUE,
	"number":   NUMBER_TYPE,
	"string":   STRING_TYPE,
	"boolean":  BOOLEAN_TYPE,
}

// LookupIdent maps an identifier to its keyword token type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

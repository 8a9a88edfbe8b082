package parser

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/config"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

// Precedence levels, lowest binds loosest. Assignment is an expression
// and binds loosest of all; postfix (call, index, member) binds
// tightest.
const (
	LOWEST = iota
	ASSIGN
	LOGIC_OR
	LOGIC_AND
	EQUALITY
	RELATIONAL
	ADDITIVE
	MULTIPLICATIVE
	UNARY
	POSTFIX
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGN,
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALITY,
	token.NOT_EQ:   EQUALITY,
	token.LT:       RELATIONAL,
	token.LE:       RELATIONAL,
	token.GT:       RELATIONAL,
	token.GE:       RELATIONAL,
	token.PLUS:     ADDITIVE,
	token.MINUS:    ADDITIVE,
	token.STAR:     MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
	token.PERCENT:  MULTIPLICATIVE,
	token.LPAREN:   POSTFIX,
	token.LBRACKET: POSTFIX,
	token.DOT:      POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	stream *token.Stream
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth               int
	inRecursionRecovery bool
	funcDepth           int
	loopDepth           int
}

func New(stream *token.Stream, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{stream: stream, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:        p.parseIdentifier,
		token.NUMBER:       p.parseNumberLiteral,
		token.STRING:       p.parseStringLiteral,
		token.FSTRING:      p.parseFStringLiteral,
		token.TRUE:         p.parseBooleanLiteral,
		token.FALSE:        p.parseBooleanLiteral,
		token.NULL:         p.parseNullLiteral,
		token.BANG:         p.parsePrefixExpression,
		token.MINUS:        p.parsePrefixExpression,
		token.LPAREN:       p.parseGroupedExpression,
		token.LBRACKET:     p.parseArrayLiteral,
		token.LBRACE:       p.parseObjectLiteral,
		token.FUNCTION:     p.parseFunctionLiteral,
		token.ASYNC:        p.parseAsyncFunctionLiteral,
		token.NEW:          p.parseNewExpression,
		token.THIS:         p.parseThisExpression,
		token.SUPER:        p.parseSuperExpression,
		token.AWAIT:        p.parseAwaitExpression,
		token.RANGE:        p.parseKeywordIdentifier,
		token.INIT:         p.parseKeywordIdentifier,
		token.NUMBER_TYPE:  p.parseKeywordIdentifier,
		token.STRING_TYPE:  p.parseKeywordIdentifier,
		token.BOOLEAN_TYPE: p.parseKeywordIdentifier,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:     p.parseInfixExpression,
		token.MINUS:    p.parseInfixExpression,
		token.STAR:     p.parseInfixExpression,
		token.SLASH:    p.parseInfixExpression,
		token.PERCENT:  p.parseInfixExpression,
		token.EQ:       p.parseInfixExpression,
		token.NOT_EQ:   p.parseInfixExpression,
		token.LT:       p.parseInfixExpression,
		token.LE:       p.parseInfixExpression,
		token.GT:       p.parseInfixExpression,
		token.GE:       p.parseInfixExpression,
		token.AND:      p.parseInfixExpression,
		token.OR:       p.parseInfixExpression,
		token.LPAREN:   p.parseCallExpression,
		token.LBRACKET: p.parseIndexExpression,
		token.DOT:      p.parseMemberExpression,
		token.ASSIGN:   p.parseAssignExpression,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.stream.Next()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(diagnostics.ErrP001, p.peekToken,
		"expected %s, got %s", describeToken(t), describeTokenType(p.peekToken))
}

func (p *Parser) addError(code string, tok token.Token, format string, args ...interface{}) {
	err := diagnostics.NewError(code, tok, format, args...)
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
}

func describeToken(t token.TokenType) string {
	return "'" + string(t) + "'"
}

func describeTokenType(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.NEWLINE:
		return "end of line"
	default:
		return "'" + tok.Lexeme + "'"
	}
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// peekAfterNewlines returns the type of the next token past any run of
// newlines, without consuming anything. Trailing-clause lookahead
// (`else`, `catch`, `finally`) goes through here so a failed lookahead
// leaves the statement separator in place for endStatement.
func (p *Parser) peekAfterNewlines() token.TokenType {
	if !p.peekTokenIs(token.NEWLINE) {
		return p.peekToken.Type
	}
	for i := 1; ; i++ {
		ahead := p.stream.Peek(i)
		if len(ahead) < i {
			return token.EOF
		}
		if ahead[i-1].Type != token.NEWLINE {
			return ahead[i-1].Type
		}
	}
}

// skipToStatementBoundary advances past the rest of the current
// statement so one error does not cascade into dozens.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.NEWLINE) &&
		!p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.RBRACE) &&
		!p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// ParseProgram always returns a Program; syntax errors are accumulated
// on the pipeline context and never abort the walk.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		errsBefore := len(p.ctx.Errors)
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
			p.endStatement()
		} else {
			if len(p.ctx.Errors) == errsBefore {
				p.addError(diagnostics.ErrP001, p.curToken,
					"unexpected token %s", describeTokenType(p.curToken))
			}
			p.skipToStatementBoundary()
			p.nextToken()
		}
	}

	return program
}

// endStatement consumes the separator after a statement. Anything other
// than a newline, semicolon, closing brace, or EOF is a syntax error.
func (p *Parser) endStatement() {
	switch p.peekToken.Type {
	case token.NEWLINE, token.SEMICOLON:
		p.nextToken()
		p.nextToken()
	case token.EOF, token.RBRACE:
		p.nextToken()
	default:
		p.addError(diagnostics.ErrP001, p.peekToken,
			"unexpected %s after statement", describeTokenType(p.peekToken))
		p.nextToken()
		p.skipToStatementBoundary()
		p.nextToken()
	}
}

// MaxRecursionDepth bounds expression nesting; exceeding it is a
// diagnostic, not a crash.
const MaxRecursionDepth = config.MaxRecursionDepth

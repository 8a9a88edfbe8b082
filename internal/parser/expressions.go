package parser

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		if !p.inRecursionRecovery {
			p.addError(diagnostics.ErrP006, p.curToken,
				"expression too complex: recursion depth limit exceeded")
			p.inRecursionRecovery = true
		}
		p.skipToStatementBoundary()
		p.inRecursionRecovery = false
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) noPrefixParseFnError() {
	p.addError(diagnostics.ErrP002, p.curToken,
		"unexpected %s in expression", describeTokenType(p.curToken))
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

// parseKeywordIdentifier lets soft keywords (range, init, number,
// string, boolean) act as ordinary names in expression position, so
// `import string` followed by `string.upper(...)` works.
func (p *Parser) parseKeywordIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(float64)
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}
	p.nextToken()
	expression.Right = p.parseExpression(UNARY)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	p.skipNewlines()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignExpression is right-associative: a = b = 1 assigns b first.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression, *ast.MemberExpression:
	default:
		p.addError(diagnostics.ErrP003, p.curToken, "invalid assignment target")
		return nil
	}

	expression := &ast.AssignExpression{Token: p.curToken, Target: left}
	p.nextToken()
	p.skipNewlines()
	expression.Value = p.parseExpression(ASSIGN - 1)
	if expression.Value == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	p.skipNewlines()

	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}

	p.skipPeekNewlines()
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: fn}
	args := p.parseExpressionList(token.RPAREN)
	if args == nil {
		return nil
	}
	exp.Arguments = args
	return exp
}

// parseExpressionList parses comma-separated expressions up to `end`,
// starting on the opening bracket. Newlines and trailing commas are
// allowed.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	elem := p.parseExpression(LOWEST)
	if elem == nil {
		return nil
	}
	list = append(list, elem)

	p.skipPeekNewlines()
	for p.peekTokenIs(token.COMMA) {
		p.nextToken() // ','
		p.skipPeekNewlines()
		if p.peekTokenIs(end) {
			break
		}
		p.nextToken()
		elem = p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list = append(list, elem)
		p.skipPeekNewlines()
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	p.skipNewlines()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil {
		return nil
	}
	p.skipPeekNewlines()
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Object: left}

	if !p.expectIdentPeek() {
		return nil
	}
	exp.Property = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	return exp
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	array := &ast.ArrayLiteral{Token: p.curToken}
	elements := p.parseExpressionList(token.RBRACKET)
	if elements == nil {
		return nil
	}
	array.Elements = elements
	return array
}

// parseObjectLiteral parses `{key: value, "quoted": value, ...}`.
func (p *Parser) parseObjectLiteral() ast.Expression {
	object := &ast.ObjectLiteral{Token: p.curToken}

	p.skipPeekNewlines()
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return object
	}

	for {
		var key string
		var keyTok token.Token
		switch p.peekToken.Type {
		case token.IDENT, token.RANGE, token.INIT,
			token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE:
			p.nextToken()
			key = p.curToken.Lexeme
			keyTok = p.curToken
		case token.STRING:
			p.nextToken()
			key = p.curToken.Literal.(string)
			keyTok = p.curToken
		default:
			p.addError(diagnostics.ErrP001, p.peekToken,
				"expected object key, got %s", describeTokenType(p.peekToken))
			return nil
		}

		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		p.skipNewlines()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		object.Fields = append(object.Fields, ast.ObjectField{Key: key, KeyToken: keyTok, Value: value})

		p.skipPeekNewlines()
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken() // ','
		p.skipPeekNewlines()
		if p.peekTokenIs(token.RBRACE) {
			break
		}
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return object
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	return p.parseFunctionLiteralInner(false)
}

func (p *Parser) parseAsyncFunctionLiteral() ast.Expression {
	if !p.peekTokenIs(token.FUNCTION) && !p.peekTokenIs(token.DEF) {
		// Bare `async` is the async module's name (`import async`
		// followed by `async.all(...)`).
		return p.parseKeywordIdentifier()
	}
	p.nextToken()
	return p.parseFunctionLiteralInner(true)
}

func (p *Parser) parseFunctionLiteralInner(isAsync bool) ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.curToken, IsAsync: isAsync}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	lit.Params = p.parseParams()
	if lit.Params == nil {
		return nil
	}

	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		lit.ReturnType = p.parseTypeExpr()
		if lit.ReturnType == nil {
			return nil
		}
	}

	p.funcDepth++
	savedLoop := p.loopDepth
	p.loopDepth = 0
	lit.Body = p.parseBlock()
	p.loopDepth = savedLoop
	p.funcDepth--
	if lit.Body == nil {
		return nil
	}
	return lit
}

func (p *Parser) parseNewExpression() ast.Expression {
	exp := &ast.NewExpression{Token: p.curToken}

	p.nextToken()
	// The class reference may be a name or a member path (mod.Class);
	// the constructor call parses along with it.
	class := p.parseExpression(UNARY)
	if class == nil {
		return nil
	}

	if call, ok := class.(*ast.CallExpression); ok {
		exp.Class = call.Function
		exp.Arguments = call.Arguments
		return exp
	}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args := p.parseExpressionList(token.RPAREN)
	if args == nil {
		return nil
	}
	exp.Class = class
	exp.Arguments = args
	return exp
}

func (p *Parser) parseThisExpression() ast.Expression {
	return &ast.ThisExpression{Token: p.curToken}
}

func (p *Parser) parseSuperExpression() ast.Expression {
	exp := &ast.SuperExpression{Token: p.curToken}

	if !p.expectPeek(token.DOT) {
		return nil
	}
	if !p.expectIdentPeek() {
		return nil
	}
	exp.Method = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	return exp
}

func (p *Parser) parseAwaitExpression() ast.Expression {
	exp := &ast.AwaitExpression{Token: p.curToken}
	p.nextToken()
	exp.Value = p.parseExpression(UNARY)
	if exp.Value == nil {
		return nil
	}
	return exp
}

package parser

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/token"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.PRINT:
		return p.parsePrintStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FUNCTION, token.DEF:
		return p.parseFunctionStatement(false)
	case token.ASYNC:
		if p.peekTokenIs(token.FUNCTION) || p.peekTokenIs(token.DEF) {
			p.nextToken()
			return p.parseFunctionStatement(true)
		}
		return p.parseExpressionStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.CONTINUE:
		return p.parseContinueStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.CLASS:
		return p.parseClassStatement()
	case token.IMPORT:
		return p.parseImportStatement()
	case token.FROM:
		return p.parseFromImportStatement()
	case token.EXPORT:
		return p.parseExportStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken}

	if !p.expectIdentPeek() {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if p.peekTokenIs(token.COLON) {
		p.nextToken() // ':'
		p.nextToken() // first type token
		stmt.Type = p.parseTypeExpr()
		if stmt.Type == nil {
			return nil
		}
	}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

// expectIdentPeek accepts identifiers and the keyword-ish names that are
// legal binding targets (range, init, type keywords used as names).
func (p *Parser) expectIdentPeek() bool {
	switch p.peekToken.Type {
	case token.IDENT, token.RANGE, token.INIT,
		token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE:
		p.nextToken()
		return true
	}
	p.peekError(token.IDENT)
	return false
}

func (p *Parser) parsePrintStatement() ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	p.skipNewlines()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	p.skipPeekNewlines()
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}

	stmt.Consequence = p.parseBlock()
	if stmt.Consequence == nil {
		return nil
	}

	if p.peekAfterNewlines() == token.ELSE {
		p.skipPeekNewlines()
		p.nextToken() // 'else'
		if p.peekTokenIs(token.IF) {
			// else-if chains desugar into a nested if in an else block.
			elseTok := p.curToken
			p.nextToken()
			nested := p.parseIfStatement()
			if nested == nil {
				return nil
			}
			stmt.Alternative = &ast.BlockStatement{
				Token:      elseTok,
				Statements: []ast.Statement{nested},
			}
		} else {
			stmt.Alternative = p.parseBlock()
			if stmt.Alternative == nil {
				return nil
			}
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}

	p.loopDepth++
	stmt.Body = p.parseBlock()
	p.loopDepth--
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForRangeStatement{Token: p.curToken}

	if !p.expectIdentPeek() {
		return nil
	}
	stmt.Variable = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if !p.expectPeek(token.IN) {
		return nil
	}
	if !p.expectPeek(token.RANGE) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	p.nextToken()
	stmt.From = p.parseExpression(LOWEST)
	if stmt.From == nil {
		return nil
	}
	if !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	stmt.To = p.parseExpression(LOWEST)
	if stmt.To == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	p.loopDepth++
	stmt.Body = p.parseBlock()
	p.loopDepth--
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFunctionStatement(isAsync bool) ast.Statement {
	stmt := &ast.FunctionStatement{Token: p.curToken, IsAsync: isAsync}

	if !p.expectIdentPeek() {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Params = p.parseParams()
	if stmt.Params == nil {
		return nil
	}

	if p.peekTokenIs(token.ARROW) {
		p.nextToken() // '->'
		p.nextToken()
		stmt.ReturnType = p.parseTypeExpr()
		if stmt.ReturnType == nil {
			return nil
		}
	}

	p.funcDepth++
	savedLoop := p.loopDepth
	p.loopDepth = 0
	stmt.Body = p.parseBlock()
	p.loopDepth = savedLoop
	p.funcDepth--
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseParams parses `(a, b: number, ...)` starting on the '(' token.
// Trailing commas are allowed. Returns an empty non-nil slice for `()`.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}

	p.skipPeekNewlines()
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectIdentPeek() {
			return nil
		}
		param := &ast.Param{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}}
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			param.Type = p.parseTypeExpr()
			if param.Type == nil {
				return nil
			}
		}
		params = append(params, param)

		p.skipPeekNewlines()
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken() // ','
		p.skipPeekNewlines()
		if p.peekTokenIs(token.RPAREN) {
			break
		}
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.funcDepth == 0 {
		p.addError(diagnostics.ErrP004, p.curToken, "'return' outside function")
		p.skipToStatementBoundary()
		return nil
	}

	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.SEMICOLON) ||
		p.peekTokenIs(token.RBRACE) || p.peekTokenIs(token.EOF) {
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseBreakStatement() ast.Statement {
	if p.loopDepth == 0 {
		p.addError(diagnostics.ErrP001, p.curToken, "'break' outside loop")
		return nil
	}
	return &ast.BreakStatement{Token: p.curToken}
}

func (p *Parser) parseContinueStatement() ast.Statement {
	if p.loopDepth == 0 {
		p.addError(diagnostics.ErrP001, p.curToken, "'continue' outside loop")
		return nil
	}
	return &ast.ContinueStatement{Token: p.curToken}
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken}

	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}

	if p.peekAfterNewlines() == token.CATCH {
		p.skipPeekNewlines()
		p.nextToken() // 'catch'
		if !p.expectIdentPeek() {
			return nil
		}
		stmt.CatchVar = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
		stmt.Catch = p.parseBlock()
		if stmt.Catch == nil {
			return nil
		}
	}

	if p.peekAfterNewlines() == token.FINALLY {
		p.skipPeekNewlines()
		p.nextToken() // 'finally'
		stmt.Finally = p.parseBlock()
		if stmt.Finally == nil {
			return nil
		}
	}

	if stmt.Catch == nil && stmt.Finally == nil {
		p.addError(diagnostics.ErrP001, stmt.Token, "'try' without 'catch' or 'finally'")
		return nil
	}
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseClassStatement() ast.Statement {
	stmt := &ast.ClassStatement{Token: p.curToken}

	if !p.expectIdentPeek() {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if p.peekTokenIs(token.EXTENDS) {
		p.nextToken()
		if !p.expectIdentPeek() {
			return nil
		}
		stmt.SuperClass = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		method := p.parseMethod()
		if method == nil {
			return nil
		}
		stmt.Methods = append(stmt.Methods, method)
		p.nextToken()
	}

	if !p.curTokenIs(token.RBRACE) {
		p.addError(diagnostics.ErrP001, p.curToken, "expected '}' to close class body")
		return nil
	}
	return stmt
}

// parseMethod parses `[async] name(params) [-> T] block` inside a class
// body. `init` is an ordinary method name with constructor behavior.
func (p *Parser) parseMethod() *ast.FunctionStatement {
	method := &ast.FunctionStatement{Token: p.curToken}

	if p.curTokenIs(token.ASYNC) {
		method.IsAsync = true
		p.nextToken()
	}
	if p.curTokenIs(token.FUNCTION) || p.curTokenIs(token.DEF) {
		p.nextToken()
	}

	switch p.curToken.Type {
	case token.IDENT, token.INIT, token.RANGE,
		token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE:
	default:
		p.addError(diagnostics.ErrP001, p.curToken,
			"expected method name, got %s", describeTokenType(p.curToken))
		return nil
	}
	method.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	method.Params = p.parseParams()
	if method.Params == nil {
		return nil
	}

	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		method.ReturnType = p.parseTypeExpr()
		if method.ReturnType == nil {
			return nil
		}
	}

	p.funcDepth++
	savedLoop := p.loopDepth
	p.loopDepth = 0
	method.Body = p.parseBlock()
	p.loopDepth = savedLoop
	p.funcDepth--
	if method.Body == nil {
		return nil
	}
	return method
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken}

	name, ok := p.parseModuleName()
	if !ok {
		return nil
	}
	stmt.Module = name

	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectIdentPeek() {
			return nil
		}
		stmt.Alias = p.curToken.Lexeme
	}
	return stmt
}

func (p *Parser) parseFromImportStatement() ast.Statement {
	stmt := &ast.FromImportStatement{Token: p.curToken}

	name, ok := p.parseModuleName()
	if !ok {
		return nil
	}
	stmt.Module = name

	if !p.expectPeek(token.IMPORT) {
		return nil
	}

	for {
		if !p.expectIdentPeek() {
			return nil
		}
		imported := ast.ImportName{Name: p.curToken.Lexeme}
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			if !p.expectIdentPeek() {
				return nil
			}
			imported.Alias = p.curToken.Lexeme
		}
		stmt.Names = append(stmt.Names, imported)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return stmt
}

// parseModuleName accepts a bare name (`import math`) or a quoted path
// (`import "lib/helpers"`).
func (p *Parser) parseModuleName() (string, bool) {
	switch p.peekToken.Type {
	case token.IDENT, token.ASYNC, token.RANGE, token.INIT,
		token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE:
		p.nextToken()
		return p.curToken.Lexeme, true
	case token.STRING:
		p.nextToken()
		return p.curToken.Literal.(string), true
	}
	p.addError(diagnostics.ErrP001, p.peekToken,
		"expected module name, got %s", describeTokenType(p.peekToken))
	return "", false
}

func (p *Parser) parseExportStatement() ast.Statement {
	stmt := &ast.ExportStatement{Token: p.curToken}
	p.nextToken()

	switch p.curToken.Type {
	case token.LET, token.FUNCTION, token.DEF, token.CLASS, token.ASYNC:
		stmt.Declaration = p.parseStatement()
	default:
		p.addError(diagnostics.ErrP001, p.curToken,
			"'export' must be followed by a let, function, or class declaration")
		return nil
	}
	if stmt.Declaration == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	return stmt
}

// parseBlock parses either a brace block or a colon-headed block. Colon
// blocks hold a single statement, possibly on the next line, and that
// statement may itself be a brace block.
func (p *Parser) parseBlock() *ast.BlockStatement {
	switch p.peekToken.Type {
	case token.LBRACE:
		p.nextToken()
		return p.parseBraceBlock()
	case token.COLON:
		p.nextToken() // ':'
		p.skipPeekNewlines()
		if p.peekTokenIs(token.LBRACE) {
			p.nextToken()
			return p.parseBraceBlock()
		}
		block := &ast.BlockStatement{Token: p.curToken}
		p.nextToken()
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Statements = []ast.Statement{stmt}
		return block
	default:
		p.addError(diagnostics.ErrP001, p.peekToken,
			"expected '{' or ':' to start block, got %s", describeTokenType(p.peekToken))
		return nil
	}
}

// parseBraceBlock parses statements until '}', starting on the '{'.
func (p *Parser) parseBraceBlock() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		errsBefore := len(p.ctx.Errors)
		stmt := p.parseStatement()
		if stmt == nil {
			if len(p.ctx.Errors) == errsBefore {
				p.addError(diagnostics.ErrP001, p.curToken,
					"unexpected token %s", describeTokenType(p.curToken))
			}
			p.skipToStatementBoundary()
			if p.curTokenIs(token.RBRACE) {
				break
			}
			p.nextToken()
			continue
		}
		block.Statements = append(block.Statements, stmt)
		p.nextToken()
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
	}

	if !p.curTokenIs(token.RBRACE) {
		p.addError(diagnostics.ErrP001, p.curToken, "expected '}' to close block")
		return nil
	}
	return block
}

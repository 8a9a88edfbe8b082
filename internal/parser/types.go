package parser

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/token"
)

// parseTypeExpr parses a full annotation starting on its first token:
// unions of primaries, e.g. `number | [string] | {a: boolean}`.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	first := p.parsePrimaryType()
	if first == nil {
		return nil
	}

	if !p.peekTokenIs(token.PIPE) {
		return first
	}

	union := &ast.UnionType{Token: first.GetToken(), Members: []ast.TypeExpr{first}}
	for p.peekTokenIs(token.PIPE) {
		p.nextToken() // '|'
		p.nextToken()
		member := p.parsePrimaryType()
		if member == nil {
			return nil
		}
		union.Members = append(union.Members, member)
	}
	return union
}

func (p *Parser) parsePrimaryType() ast.TypeExpr {
	switch p.curToken.Type {
	case token.NUMBER_TYPE:
		return &ast.NamedType{Token: p.curToken, Name: "number"}
	case token.STRING_TYPE:
		return &ast.NamedType{Token: p.curToken, Name: "string"}
	case token.BOOLEAN_TYPE:
		return &ast.NamedType{Token: p.curToken, Name: "boolean"}
	case token.NULL:
		return &ast.NamedType{Token: p.curToken, Name: "null"}
	case token.IDENT:
		return &ast.NamedType{Token: p.curToken, Name: p.curToken.Lexeme}
	case token.LBRACKET:
		return p.parseArrayType()
	case token.LBRACE:
		return p.parseObjectType()
	case token.LPAREN:
		return p.parseFunctionType()
	default:
		p.addError(diagnostics.ErrP005, p.curToken,
			"expected type, got %s", describeTokenType(p.curToken))
		return nil
	}
}

func (p *Parser) parseArrayType() ast.TypeExpr {
	at := &ast.ArrayType{Token: p.curToken}

	p.nextToken()
	at.Element = p.parseTypeExpr()
	if at.Element == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return at
}

func (p *Parser) parseObjectType() ast.TypeExpr {
	ot := &ast.ObjectType{Token: p.curToken}

	p.skipPeekNewlines()
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return ot
	}

	for {
		switch p.peekToken.Type {
		case token.IDENT, token.RANGE, token.INIT,
			token.NUMBER_TYPE, token.STRING_TYPE, token.BOOLEAN_TYPE:
			p.nextToken()
		case token.STRING:
			p.nextToken()
		default:
			p.addError(diagnostics.ErrP005, p.peekToken,
				"expected field name in object type, got %s", describeTokenType(p.peekToken))
			return nil
		}
		key := p.curToken.Lexeme
		if p.curToken.Type == token.STRING {
			key = p.curToken.Literal.(string)
		}

		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		fieldType := p.parseTypeExpr()
		if fieldType == nil {
			return nil
		}
		ot.Fields = append(ot.Fields, ast.ObjectTypeField{Key: key, Type: fieldType})

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
	return ot
}

func (p *Parser) parseFunctionType() ast.TypeExpr {
	ft := &ast.FunctionType{Token: p.curToken}

	if !p.peekTokenIs(token.RPAREN) {
		for {
			p.nextToken()
			param := p.parseTypeExpr()
			if param == nil {
				return nil
			}
			ft.Params = append(ft.Params, param)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.nextToken()
	ft.Return = p.parseTypeExpr()
	if ft.Return == nil {
		return nil
	}
	return ft
}

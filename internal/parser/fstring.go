package parser

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

// parseFStringLiteral turns the lexer's segment list into an AST node.
// Expression segments are re-lexed and re-parsed with their recorded
// positions shifted onto the original source, so an error inside
// `f"{a +}"` points at the offending column of the f-string itself.
func (p *Parser) parseFStringLiteral() ast.Expression {
	lit := &ast.FStringLiteral{Token: p.curToken}

	parts, _ := p.curToken.Literal.([]token.FStringPart)
	for _, part := range parts {
		if !part.IsExpr {
			lit.Parts = append(lit.Parts, ast.FStringPart{Text: part.Value})
			continue
		}
		expr := p.parseEmbeddedExpression(part)
		if expr == nil {
			return nil
		}
		lit.Parts = append(lit.Parts, ast.FStringPart{Expr: expr})
	}
	return lit
}

func (p *Parser) parseEmbeddedExpression(part token.FStringPart) ast.Expression {
	tokens := lexer.New(part.Value).Tokenize()
	for i := range tokens {
		if tokens[i].Line == 1 {
			tokens[i].Column += part.Column - 1
		}
		tokens[i].Line += part.Line - 1
	}

	for _, tok := range tokens {
		if tok.Type == token.ILLEGAL {
			msg, _ := tok.Literal.(string)
			p.addError(diagnostics.ErrL001, tok, "in f-string: %s", msg)
			return nil
		}
	}

	subCtx := &pipeline.PipelineContext{FilePath: p.ctx.FilePath}
	sub := New(token.NewStream(tokens), subCtx)
	sub.funcDepth = p.funcDepth
	expr := sub.parseExpression(LOWEST)

	p.ctx.Errors = append(p.ctx.Errors, subCtx.Errors...)
	if expr == nil {
		if len(subCtx.Errors) == 0 {
			p.addError(diagnostics.ErrP001, p.curToken, "empty expression in f-string")
		}
		return nil
	}
	if !sub.peekTokenIs(token.EOF) && !sub.peekTokenIs(token.NEWLINE) {
		p.addError(diagnostics.ErrP001, sub.peekToken,
			"unexpected %s in f-string expression", describeTokenType(sub.peekToken))
		return nil
	}
	return expr
}

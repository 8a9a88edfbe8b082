package ast

import (
	"strings"

	"github.com/infra-lang/infra/internal/token"
)

// Node is implemented by every AST node. GetToken anchors diagnostics to
// the node's first token.
type Node interface {
	GetToken() token.Token
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

// TypeExpr is the annotation sub-language: named types, arrays, object
// shapes, function signatures, and unions.
type TypeExpr interface {
	Node
	typeExprNode()
}

type Program struct {
	Statements []Statement
	File       string
}

func (p *Program) GetToken() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].GetToken()
	}
	return token.Token{}
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

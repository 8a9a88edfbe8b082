package ast

import (
	"strings"

	"github.com/infra-lang/infra/internal/token"
)

// NamedType is `number`, `string`, `boolean`, `null`, `any`, or a
// user-defined name (class or alias).
type NamedType struct {
	Token token.Token
	Name  string
}

func (nt *NamedType) typeExprNode()         {}
func (nt *NamedType) GetToken() token.Token { return nt.Token }
func (nt *NamedType) TokenLiteral() string  { return nt.Token.Lexeme }
func (nt *NamedType) String() string        { return nt.Name }

// ArrayType is `[T]`.
type ArrayType struct {
	Token   token.Token
	Element TypeExpr
}

func (at *ArrayType) typeExprNode()         {}
func (at *ArrayType) GetToken() token.Token { return at.Token }
func (at *ArrayType) TokenLiteral() string  { return at.Token.Lexeme }
func (at *ArrayType) String() string        { return "[" + at.Element.String() + "]" }

type ObjectTypeField struct {
	Key  string
	Type TypeExpr
}

// ObjectType is `{k: T, ...}`.
type ObjectType struct {
	Token  token.Token
	Fields []ObjectTypeField
}

func (ot *ObjectType) typeExprNode()         {}
func (ot *ObjectType) GetToken() token.Token { return ot.Token }
func (ot *ObjectType) TokenLiteral() string  { return ot.Token.Lexeme }
func (ot *ObjectType) String() string {
	fields := make([]string, len(ot.Fields))
	for i, f := range ot.Fields {
		fields[i] = f.Key + ": " + f.Type.String()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// FunctionType is `(T, U) -> V`.
type FunctionType struct {
	Token  token.Token
	Params []TypeExpr
	Return TypeExpr
}

func (ft *FunctionType) typeExprNode()         {}
func (ft *FunctionType) GetToken() token.Token { return ft.Token }
func (ft *FunctionType) TokenLiteral() string  { return ft.Token.Lexeme }
func (ft *FunctionType) String() string {
	params := make([]string, len(ft.Params))
	for i, p := range ft.Params {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + ft.Return.String()
}

// UnionType is `T | U | ...`; member order follows the annotation.
type UnionType struct {
	Token   token.Token
	Members []TypeExpr
}

func (ut *UnionType) typeExprNode()         {}
func (ut *UnionType) GetToken() token.Token { return ut.Token }
func (ut *UnionType) TokenLiteral() string  { return ut.Token.Lexeme }
func (ut *UnionType) String() string {
	members := make([]string, len(ut.Members))
	for i, m := range ut.Members {
		members[i] = m.String()
	}
	return strings.Join(members, " | ")
}

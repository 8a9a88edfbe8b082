package ast

import (
	"strconv"
	"strings"

	"github.com/infra-lang/infra/internal/token"
)

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) String() string        { return i.Value }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()       {}
func (nl *NumberLiteral) GetToken() token.Token { return nl.Token }
func (nl *NumberLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NumberLiteral) String() string        { return strconv.FormatFloat(nl.Value, 'g', -1, 64) }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) String() string        { return strconv.Quote(sl.Value) }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Lexeme }
func (bl *BooleanLiteral) String() string        { return strconv.FormatBool(bl.Value) }

type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()       {}
func (nl *NullLiteral) GetToken() token.Token { return nl.Token }
func (nl *NullLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NullLiteral) String() string        { return "null" }

// FStringPart is a parsed interpolation segment: either literal text or
// an embedded expression.
type FStringPart struct {
	Text string
	Expr Expression // nil for text parts
}

type FStringLiteral struct {
	Token token.Token
	Parts []FStringPart
}

func (fl *FStringLiteral) expressionNode()       {}
func (fl *FStringLiteral) GetToken() token.Token { return fl.Token }
func (fl *FStringLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FStringLiteral) String() string {
	var out strings.Builder
	out.WriteString("f\"")
	for _, p := range fl.Parts {
		if p.Expr != nil {
			out.WriteString("{")
			out.WriteString(p.Expr.String())
			out.WriteString("}")
		} else {
			out.WriteString(p.Text)
		}
	}
	out.WriteString("\"")
	return out.String()
}

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// AssignExpression covers identifier, index, and member targets.
type AssignExpression struct {
	Token  token.Token // the '=' token
	Target Expression
	Value  Expression
}

func (ae *AssignExpression) expressionNode()       {}
func (ae *AssignExpression) GetToken() token.Token { return ae.Token }
func (ae *AssignExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssignExpression) String() string {
	return ae.Target.String() + " = " + ae.Value.String()
}

type CallExpression struct {
	Token     token.Token // the '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

type IndexExpression struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

type MemberExpression struct {
	Token    token.Token // the '.' token
	Object   Expression
	Property *Identifier
}

func (me *MemberExpression) expressionNode()       {}
func (me *MemberExpression) GetToken() token.Token { return me.Token }
func (me *MemberExpression) TokenLiteral() string  { return me.Token.Lexeme }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property.String()
}

type ArrayLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()       {}
func (al *ArrayLiteral) GetToken() token.Token { return al.Token }
func (al *ArrayLiteral) TokenLiteral() string  { return al.Token.Lexeme }
func (al *ArrayLiteral) String() string {
	elems := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// ObjectField preserves source order so evaluation order is
// deterministic.
type ObjectField struct {
	Key      string
	KeyToken token.Token
	Value    Expression
}

type ObjectLiteral struct {
	Token  token.Token
	Fields []ObjectField
}

func (ol *ObjectLiteral) expressionNode()       {}
func (ol *ObjectLiteral) GetToken() token.Token { return ol.Token }
func (ol *ObjectLiteral) TokenLiteral() string  { return ol.Token.Lexeme }
func (ol *ObjectLiteral) String() string {
	fields := make([]string, len(ol.Fields))
	for i, f := range ol.Fields {
		fields[i] = f.Key + ": " + f.Value.String()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

type FunctionLiteral struct {
	Token      token.Token
	Params     []*Param
	ReturnType TypeExpr // nil when unannotated
	Body       *BlockStatement
	IsAsync    bool
}

func (fl *FunctionLiteral) expressionNode()       {}
func (fl *FunctionLiteral) GetToken() token.Token { return fl.Token }
func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FunctionLiteral) String() string {
	params := make([]string, len(fl.Params))
	for i, p := range fl.Params {
		params[i] = p.String()
	}
	prefix := "function"
	if fl.IsAsync {
		prefix = "async function"
	}
	return prefix + "(" + strings.Join(params, ", ") + ") " + fl.Body.String()
}

type NewExpression struct {
	Token     token.Token
	Class     Expression
	Arguments []Expression
}

func (ne *NewExpression) expressionNode()       {}
func (ne *NewExpression) GetToken() token.Token { return ne.Token }
func (ne *NewExpression) TokenLiteral() string  { return ne.Token.Lexeme }
func (ne *NewExpression) String() string {
	args := make([]string, len(ne.Arguments))
	for i, a := range ne.Arguments {
		args[i] = a.String()
	}
	return "new " + ne.Class.String() + "(" + strings.Join(args, ", ") + ")"
}

type ThisExpression struct {
	Token token.Token
}

func (te *ThisExpression) expressionNode()       {}
func (te *ThisExpression) GetToken() token.Token { return te.Token }
func (te *ThisExpression) TokenLiteral() string  { return te.Token.Lexeme }
func (te *ThisExpression) String() string        { return "this" }

type SuperExpression struct {
	Token  token.Token
	Method *Identifier
}

func (se *SuperExpression) expressionNode()       {}
func (se *SuperExpression) GetToken() token.Token { return se.Token }
func (se *SuperExpression) TokenLiteral() string  { return se.Token.Lexeme }
func (se *SuperExpression) String() string        { return "super." + se.Method.String() }

type AwaitExpression struct {
	Token token.Token
	Value Expression
}

func (ae *AwaitExpression) expressionNode()       {}
func (ae *AwaitExpression) GetToken() token.Token { return ae.Token }
func (ae *AwaitExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AwaitExpression) String() string        { return "await " + ae.Value.String() }

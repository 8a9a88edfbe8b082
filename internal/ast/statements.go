package ast

import (
	"strings"

	"github.com/infra-lang/infra/internal/token"
)

type LetStatement struct {
	Token token.Token // the 'let' token
	Name  *Identifier
	Type  TypeExpr // nil when unannotated
	Value Expression
}

func (ls *LetStatement) statementNode()         {}
func (ls *LetStatement) GetToken() token.Token  { return ls.Token }
func (ls *LetStatement) TokenLiteral() string   { return ls.Token.Lexeme }
func (ls *LetStatement) String() string {
	var out strings.Builder
	out.WriteString("let ")
	out.WriteString(ls.Name.String())
	if ls.Type != nil {
		out.WriteString(": ")
		out.WriteString(ls.Type.String())
	}
	out.WriteString(" = ")
	if ls.Value != nil {
		out.WriteString(ls.Value.String())
	}
	return out.String()
}

type PrintStatement struct {
	Token token.Token
	Value Expression
}

func (ps *PrintStatement) statementNode()        {}
func (ps *PrintStatement) GetToken() token.Token { return ps.Token }
func (ps *PrintStatement) TokenLiteral() string  { return ps.Token.Lexeme }
func (ps *PrintStatement) String() string        { return "print(" + ps.Value.String() + ")" }

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) GetToken() token.Token { return bs.Token }
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BlockStatement) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("; ")
	}
	out.WriteString("}")
	return out.String()
}

type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement // nil without else; else-if nests inside
}

func (is *IfStatement) statementNode()        {}
func (is *IfStatement) GetToken() token.Token { return is.Token }
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) String() string {
	var out strings.Builder
	out.WriteString("if ")
	out.WriteString(is.Condition.String())
	out.WriteString(" ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(is.Alternative.String())
	}
	return out.String()
}

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

type ForRangeStatement struct {
	Token    token.Token
	Variable *Identifier
	From     Expression
	To       Expression
	Body     *BlockStatement
}

func (fs *ForRangeStatement) statementNode()        {}
func (fs *ForRangeStatement) GetToken() token.Token { return fs.Token }
func (fs *ForRangeStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *ForRangeStatement) String() string {
	return "for " + fs.Variable.String() + " in range(" + fs.From.String() + ", " + fs.To.String() + ") " + fs.Body.String()
}

type Param struct {
	Name *Identifier
	Type TypeExpr // nil when unannotated
}

func (p *Param) String() string {
	if p.Type != nil {
		return p.Name.String() + ": " + p.Type.String()
	}
	return p.Name.String()
}

type FunctionStatement struct {
	Token      token.Token // 'function' or 'def'
	Name       *Identifier
	Params     []*Param
	ReturnType TypeExpr // nil when unannotated
	Body       *BlockStatement
	IsAsync    bool
}

func (fs *FunctionStatement) statementNode()        {}
func (fs *FunctionStatement) GetToken() token.Token { return fs.Token }
func (fs *FunctionStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *FunctionStatement) String() string {
	var out strings.Builder
	if fs.IsAsync {
		out.WriteString("async ")
	}
	out.WriteString("function ")
	out.WriteString(fs.Name.String())
	out.WriteString("(")
	params := make([]string, len(fs.Params))
	for i, p := range fs.Params {
		params[i] = p.String()
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(")")
	if fs.ReturnType != nil {
		out.WriteString(" -> ")
		out.WriteString(fs.ReturnType.String())
	}
	out.WriteString(" ")
	out.WriteString(fs.Body.String())
	return out.String()
}

type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for bare return
}

func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) String() string {
	if rs.Value != nil {
		return "return " + rs.Value.String()
	}
	return "return"
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()        {}
func (bs *BreakStatement) GetToken() token.Token { return bs.Token }
func (bs *BreakStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BreakStatement) String() string        { return "break" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()        {}
func (cs *ContinueStatement) GetToken() token.Token { return cs.Token }
func (cs *ContinueStatement) TokenLiteral() string  { return cs.Token.Lexeme }
func (cs *ContinueStatement) String() string        { return "continue" }

type TryStatement struct {
	Token    token.Token
	Body     *BlockStatement
	CatchVar *Identifier     // nil when no catch clause
	Catch    *BlockStatement // nil when no catch clause
	Finally  *BlockStatement // nil when no finally clause
}

func (ts *TryStatement) statementNode()        {}
func (ts *TryStatement) GetToken() token.Token { return ts.Token }
func (ts *TryStatement) TokenLiteral() string  { return ts.Token.Lexeme }
func (ts *TryStatement) String() string {
	var out strings.Builder
	out.WriteString("try ")
	out.WriteString(ts.Body.String())
	if ts.Catch != nil {
		out.WriteString(" catch ")
		out.WriteString(ts.CatchVar.String())
		out.WriteString(" ")
		out.WriteString(ts.Catch.String())
	}
	if ts.Finally != nil {
		out.WriteString(" finally ")
		out.WriteString(ts.Finally.String())
	}
	return out.String()
}

type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()        {}
func (ts *ThrowStatement) GetToken() token.Token { return ts.Token }
func (ts *ThrowStatement) TokenLiteral() string  { return ts.Token.Lexeme }
func (ts *ThrowStatement) String() string        { return "throw " + ts.Value.String() }

type ClassStatement struct {
	Token      token.Token
	Name       *Identifier
	SuperClass *Identifier // nil without extends
	Methods    []*FunctionStatement
}

func (cs *ClassStatement) statementNode()        {}
func (cs *ClassStatement) GetToken() token.Token { return cs.Token }
func (cs *ClassStatement) TokenLiteral() string  { return cs.Token.Lexeme }
func (cs *ClassStatement) String() string {
	var out strings.Builder
	out.WriteString("class ")
	out.WriteString(cs.Name.String())
	if cs.SuperClass != nil {
		out.WriteString(" extends ")
		out.WriteString(cs.SuperClass.String())
	}
	out.WriteString(" { ")
	for _, m := range cs.Methods {
		out.WriteString(m.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// ImportStatement covers `import m` and `import m as n`.
type ImportStatement struct {
	Token  token.Token
	Module string
	Alias  string // empty when unaliased
}

func (is *ImportStatement) statementNode()        {}
func (is *ImportStatement) GetToken() token.Token { return is.Token }
func (is *ImportStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *ImportStatement) String() string {
	if is.Alias != "" {
		return "import " + is.Module + " as " + is.Alias
	}
	return "import " + is.Module
}

type ImportName struct {
	Name  string
	Alias string // empty when unaliased
}

// FromImportStatement covers `from m import a, b as c`.
type FromImportStatement struct {
	Token  token.Token
	Module string
	Names  []ImportName
}

func (fi *FromImportStatement) statementNode()        {}
func (fi *FromImportStatement) GetToken() token.Token { return fi.Token }
func (fi *FromImportStatement) TokenLiteral() string  { return fi.Token.Lexeme }
func (fi *FromImportStatement) String() string {
	names := make([]string, len(fi.Names))
	for i, n := range fi.Names {
		if n.Alias != "" {
			names[i] = n.Name + " as " + n.Alias
		} else {
			names[i] = n.Name
		}
	}
	return "from " + fi.Module + " import " + strings.Join(names, ", ")
}

// ExportStatement wraps a let, function, or class declaration.
type ExportStatement struct {
	Token       token.Token
	Declaration Statement
}

func (es *ExportStatement) statementNode()        {}
func (es *ExportStatement) GetToken() token.Token { return es.Token }
func (es *ExportStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExportStatement) String() string        { return "export " + es.Declaration.String() }

package vm

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
)

func (c *Compiler) compileExpression(expr ast.Expression) {
	switch expr := expr.(type) {
	case *ast.NumberLiteral:
		c.emitConstant(&evaluator.Number{Value: expr.Value}, expr.GetToken())
	case *ast.StringLiteral:
		c.emitConstant(&evaluator.String{Value: expr.Value}, expr.GetToken())
	case *ast.BooleanLiteral:
		if expr.Value {
			c.emit(OP_TRUE, expr.GetToken())
		} else {
			c.emit(OP_FALSE, expr.GetToken())
		}
	case *ast.NullLiteral:
		c.emit(OP_NIL, expr.GetToken())
	case *ast.FStringLiteral:
		c.compileFString(expr)
	case *ast.Identifier:
		c.loadVariable(expr.Value, expr.GetToken())
	case *ast.PrefixExpression:
		c.compilePrefix(expr)
	case *ast.InfixExpression:
		c.compileInfix(expr)
	case *ast.AssignExpression:
		c.compileAssign(expr)
	case *ast.CallExpression:
		c.compileCall(expr)
	case *ast.IndexExpression:
		c.compileExpression(expr.Left)
		c.compileExpression(expr.Index)
		c.emit(OP_GET_INDEX, expr.GetToken())
	case *ast.MemberExpression:
		c.compileExpression(expr.Object)
		c.emitConstOp(OP_GET_PROPERTY, &evaluator.String{Value: expr.Property.Value}, expr.GetToken())
	case *ast.ArrayLiteral:
		for _, elem := range expr.Elements {
			c.compileExpression(elem)
		}
		c.emit(OP_MAKE_ARRAY, expr.GetToken())
		c.emitU16(len(expr.Elements), expr.GetToken())
	case *ast.ObjectLiteral:
		for _, field := range expr.Fields {
			c.emitConstant(&evaluator.String{Value: field.Key}, field.KeyToken)
			c.compileExpression(field.Value)
		}
		c.emit(OP_MAKE_OBJECT, expr.GetToken())
		c.emitU16(len(expr.Fields), expr.GetToken())
	case *ast.FunctionLiteral:
		c.compileFunction("", expr.Params, expr.Body, expr.IsAsync, kindFunction, expr.GetToken())
	case *ast.NewExpression:
		c.compileExpression(expr.Class)
		for _, arg := range expr.Arguments {
			c.compileExpression(arg)
		}
		c.emit(OP_NEW, expr.GetToken())
		c.emitByte(byte(len(expr.Arguments)), expr.GetToken())
	case *ast.ThisExpression:
		c.loadVariable("this", expr.GetToken())
	case *ast.SuperExpression:
		c.loadVariable("this", expr.GetToken())
		c.loadVariable("super", expr.GetToken())
		c.emitConstOp(OP_GET_SUPER, &evaluator.String{Value: expr.Method.Value}, expr.GetToken())
	case *ast.AwaitExpression:
		c.compileExpression(expr.Value)
		c.emit(OP_AWAIT, expr.GetToken())
	default:
		c.errorAt(expr.GetToken(), diagnostics.ErrC001, "cannot compile expression %T", expr)
	}
}

// compileFString folds the parts onto an empty string so the string
// concatenation rule performs the display conversion.
func (c *Compiler) compileFString(expr *ast.FStringLiteral) {
	tok := expr.GetToken()
	c.emitConstant(&evaluator.String{Value: ""}, tok)
	for _, part := range expr.Parts {
		if part.Expr != nil {
			c.compileExpression(part.Expr)
		} else {
			c.emitConstant(&evaluator.String{Value: part.Text}, tok)
		}
		c.emit(OP_ADD, tok)
	}
}

func (c *Compiler) compilePrefix(expr *ast.PrefixExpression) {
	c.compileExpression(expr.Right)
	switch expr.Operator {
	case "-":
		c.emit(OP_NEG, expr.GetToken())
	case "!":
		c.emit(OP_NOT, expr.GetToken())
	default:
		c.errorAt(expr.GetToken(), diagnostics.ErrC001, "cannot compile operator '%s'", expr.Operator)
	}
}

var binaryOps = map[string]Opcode{
	"+":  OP_ADD,
	"-":  OP_SUB,
	"*":  OP_MUL,
	"/":  OP_DIV,
	"%":  OP_MOD,
	"==": OP_EQ,
	"!=": OP_NE,
	"<":  OP_LT,
	"<=": OP_LE,
	">":  OP_GT,
	">=": OP_GE,
}

func (c *Compiler) compileInfix(expr *ast.InfixExpression) {
	switch expr.Operator {
	case "&&":
		c.compileAnd(expr)
		return
	case "||":
		c.compileOr(expr)
		return
	}
	c.compileExpression(expr.Left)
	c.compileExpression(expr.Right)
	op, ok := binaryOps[expr.Operator]
	if !ok {
		c.errorAt(expr.GetToken(), diagnostics.ErrC001, "cannot compile operator '%s'", expr.Operator)
		return
	}
	c.emit(op, expr.GetToken())
}

// compileAnd short-circuits and yields a boolean, like the tree walker:
// a falsey left side skips the right entirely.
func (c *Compiler) compileAnd(expr *ast.InfixExpression) {
	tok := expr.GetToken()
	c.compileExpression(expr.Left)
	falseJump := c.emitJump(OP_JUMP_IF_FALSE, tok)
	c.compileExpression(expr.Right)
	// Double negation converts the right side to its truthiness.
	c.emit(OP_NOT, tok)
	c.emit(OP_NOT, tok)
	endJump := c.emitJump(OP_JUMP, tok)
	c.patchJump(falseJump, tok)
	c.emit(OP_FALSE, tok)
	c.patchJump(endJump, tok)
}

func (c *Compiler) compileOr(expr *ast.InfixExpression) {
	tok := expr.GetToken()
	c.compileExpression(expr.Left)
	rightJump := c.emitJump(OP_JUMP_IF_FALSE, tok)
	c.emit(OP_TRUE, tok)
	endJump := c.emitJump(OP_JUMP, tok)
	c.patchJump(rightJump, tok)
	c.compileExpression(expr.Right)
	c.emit(OP_NOT, tok)
	c.emit(OP_NOT, tok)
	c.patchJump(endJump, tok)
}

func (c *Compiler) compileAssign(expr *ast.AssignExpression) {
	switch target := expr.Target.(type) {
	case *ast.Identifier:
		c.compileExpression(expr.Value)
		c.storeVariable(target.Value, target.GetToken())
	case *ast.IndexExpression:
		c.compileExpression(target.Left)
		c.compileExpression(target.Index)
		c.compileExpression(expr.Value)
		c.emit(OP_SET_INDEX, expr.GetToken())
	case *ast.MemberExpression:
		c.compileExpression(target.Object)
		c.compileExpression(expr.Value)
		c.emitConstOp(OP_SET_PROPERTY, &evaluator.String{Value: target.Property.Value}, expr.GetToken())
	default:
		c.errorAt(expr.GetToken(), diagnostics.ErrC001, "cannot compile assignment target %T", target)
	}
}

func (c *Compiler) compileCall(expr *ast.CallExpression) {
	c.compileExpression(expr.Function)
	for _, arg := range expr.Arguments {
		c.compileExpression(arg)
	}
	c.emit(OP_CALL, expr.GetToken())
	c.emitByte(byte(len(expr.Arguments)), expr.GetToken())
}

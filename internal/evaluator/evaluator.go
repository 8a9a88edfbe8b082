package evaluator

import (
	"fmt"
	"io"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/config"
)

// ModuleLoader resolves import names to evaluated modules. The backend
// wires in an implementation; a nil loader makes every import fail.
type ModuleLoader interface {
	Load(name string, ctx CallContext) (*Module, *Error)
}

// Evaluator walks the AST directly. Runtime errors travel as *Error
// objects through the normal return path; Go panics never cross an
// evaluation.
type Evaluator struct {
	Out    io.Writer
	Sched  *Scheduler
	Loader ModuleLoader

	// Exports is non-nil while evaluating a module body; export
	// statements record bindings here.
	Exports *Record

	callDepth int
}

func New(out io.Writer, sched *Scheduler) *Evaluator {
	return &Evaluator{Out: out, Sched: sched}
}

func (e *Evaluator) Output() io.Writer     { return e.Out }
func (e *Evaluator) Scheduler() *Scheduler { return e.Sched }

// CallFunction lets builtins and scheduled tasks call back into
// language functions.
func (e *Evaluator) CallFunction(fn Object, args []Object) Object {
	return e.applyFunction(fn, args)
}

func newError(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func (e *Evaluator) errAt(node ast.Node, format string, args ...interface{}) *Error {
	tok := node.GetToken()
	err := newError(format, args...)
	err.Line = tok.Line
	err.Column = tok.Column
	return err
}

// positioned stamps a position onto errors that lack one, so the
// failure point deepest in the tree wins.
func positioned(err *Error, node ast.Node) *Error {
	if err.Line == 0 {
		tok := node.GetToken()
		err.Line = tok.Line
		err.Column = tok.Column
	}
	return err
}

func (e *Evaluator) Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {
	case *ast.Program:
		return e.evalProgram(node, env)

	// Statements
	case *ast.LetStatement:
		return e.evalLetStatement(node, env)
	case *ast.PrintStatement:
		return e.evalPrintStatement(node, env)
	case *ast.ExpressionStatement:
		return e.Eval(node.Expression, env)
	case *ast.BlockStatement:
		return e.evalBlockStatement(node, NewEnclosedEnvironment(env))
	case *ast.IfStatement:
		return e.evalIfStatement(node, env)
	case *ast.WhileStatement:
		return e.evalWhileStatement(node, env)
	case *ast.ForRangeStatement:
		return e.evalForRangeStatement(node, env)
	case *ast.FunctionStatement:
		fn := &Function{
			Name:    node.Name.Value,
			Params:  node.Params,
			Body:    node.Body,
			Env:     env,
			IsAsync: node.IsAsync,
		}
		env.Set(node.Name.Value, fn)
		return NULL
	case *ast.ReturnStatement:
		return e.evalReturnStatement(node, env)
	case *ast.BreakStatement:
		return BREAK
	case *ast.ContinueStatement:
		return CONTINUE
	case *ast.TryStatement:
		return e.evalTryStatement(node, env)
	case *ast.ThrowStatement:
		return e.evalThrowStatement(node, env)
	case *ast.ClassStatement:
		return e.evalClassStatement(node, env)
	case *ast.ImportStatement:
		return e.evalImportStatement(node, env)
	case *ast.FromImportStatement:
		return e.evalFromImportStatement(node, env)
	case *ast.ExportStatement:
		return e.evalExportStatement(node, env)

	// Expressions
	case *ast.Identifier:
		return e.evalIdentifier(node, env)
	case *ast.NumberLiteral:
		return &Number{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.BooleanLiteral:
		return NativeBool(node.Value)
	case *ast.NullLiteral:
		return NULL
	case *ast.FStringLiteral:
		return e.evalFStringLiteral(node, env)
	case *ast.PrefixExpression:
		return e.evalPrefixExpression(node, env)
	case *ast.InfixExpression:
		return e.evalInfixExpression(node, env)
	case *ast.AssignExpression:
		return e.evalAssignExpression(node, env)
	case *ast.CallExpression:
		return e.evalCallExpression(node, env)
	case *ast.IndexExpression:
		return e.evalIndexExpression(node, env)
	case *ast.MemberExpression:
		return e.evalMemberExpression(node, env)
	case *ast.ArrayLiteral:
		return e.evalArrayLiteral(node, env)
	case *ast.ObjectLiteral:
		return e.evalObjectLiteral(node, env)
	case *ast.FunctionLiteral:
		return &Function{
			Params:  node.Params,
			Body:    node.Body,
			Env:     env,
			IsAsync: node.IsAsync,
		}
	case *ast.NewExpression:
		return e.evalNewExpression(node, env)
	case *ast.ThisExpression:
		return e.evalThisExpression(node, env)
	case *ast.SuperExpression:
		return e.evalSuperExpression(node, env)
	case *ast.AwaitExpression:
		return e.evalAwaitExpression(node, env)
	}

	return e.errAt(node, "unsupported syntax node %T", node)
}

func (e *Evaluator) evalProgram(program *ast.Program, env *Environment) Object {
	var result Object = NULL
	for _, stmt := range program.Statements {
		result = e.Eval(stmt, env)
		switch result := result.(type) {
		case *Error:
			return result
		case *ReturnValue:
			return result.Value
		}
	}
	return result
}

// evalBlockStatement evaluates statements in the given (already scoped)
// environment. Control signals stop the walk and propagate; the
// enclosing construct decides what to do with them. Scope restoration is
// structural: the child environment simply goes out of use on every
// exit path.
func (e *Evaluator) evalBlockStatement(block *ast.BlockStatement, env *Environment) Object {
	var result Object = NULL
	for _, stmt := range block.Statements {
		result = e.Eval(stmt, env)
		switch result.Type() {
		case ERROR_OBJ, RETURN_OBJ, BREAK_OBJ, CONTINUE_OBJ:
			return result
		}
	}
	return result
}

func (e *Evaluator) checkDepth(node ast.Node) *Error {
	if e.callDepth >= config.MaxCallDepth {
		return e.errAt(node, "Stack overflow: call depth limit exceeded")
	}
	return nil
}

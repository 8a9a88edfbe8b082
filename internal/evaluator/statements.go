package evaluator

import (
	"math"

	"github.com/infra-lang/infra/internal/ast"
)

func (e *Evaluator) evalLetStatement(stmt *ast.LetStatement, env *Environment) Object {
	value := e.Eval(stmt.Value, env)
	if IsError(value) {
		return value
	}
	if fn, ok := value.(*Function); ok && fn.Name == "" {
		fn.Name = stmt.Name.Value
	}
	env.Set(stmt.Name.Value, value)
	return NULL
}

func (e *Evaluator) evalPrintStatement(stmt *ast.PrintStatement, env *Environment) Object {
	value := e.Eval(stmt.Value, env)
	if IsError(value) {
		return value
	}
	if p, ok := value.(*Promise); ok && p.State == PromiseResolved {
		value = p.Value
	}
	_, _ = e.Out.Write([]byte(value.Inspect() + "\n"))
	return NULL
}

func (e *Evaluator) evalIfStatement(stmt *ast.IfStatement, env *Environment) Object {
	condition := e.Eval(stmt.Condition, env)
	if IsError(condition) {
		return condition
	}
	if IsTruthy(condition) {
		return e.evalBlockStatement(stmt.Consequence, NewEnclosedEnvironment(env))
	}
	if stmt.Alternative != nil {
		return e.evalBlockStatement(stmt.Alternative, NewEnclosedEnvironment(env))
	}
	return NULL
}

func (e *Evaluator) evalWhileStatement(stmt *ast.WhileStatement, env *Environment) Object {
	for {
		condition := e.Eval(stmt.Condition, env)
		if IsError(condition) {
			return condition
		}
		if !IsTruthy(condition) {
			return NULL
		}
		result := e.evalBlockStatement(stmt.Body, NewEnclosedEnvironment(env))
		switch result.Type() {
		case ERROR_OBJ, RETURN_OBJ:
			return result
		case BREAK_OBJ:
			return NULL
		}
		// CONTINUE falls through to the next iteration.
	}
}

// evalForRangeStatement iterates var over [from, to). Bounds are
// evaluated once, truncated to whole numbers.
func (e *Evaluator) evalForRangeStatement(stmt *ast.ForRangeStatement, env *Environment) Object {
	from := e.Eval(stmt.From, env)
	if IsError(from) {
		return from
	}
	to := e.Eval(stmt.To, env)
	if IsError(to) {
		return to
	}
	fromNum, ok := from.(*Number)
	if !ok {
		return e.errAt(stmt.From, "range() bounds must be numbers, got %s", typeName(from))
	}
	toNum, ok := to.(*Number)
	if !ok {
		return e.errAt(stmt.To, "range() bounds must be numbers, got %s", typeName(to))
	}

	for i := math.Trunc(fromNum.Value); i < toNum.Value; i++ {
		loopEnv := NewEnclosedEnvironment(env)
		loopEnv.Set(stmt.Variable.Value, &Number{Value: i})
		result := e.evalBlockStatement(stmt.Body, loopEnv)
		switch result.Type() {
		case ERROR_OBJ, RETURN_OBJ:
			return result
		case BREAK_OBJ:
			return NULL
		}
	}
	return NULL
}

func (e *Evaluator) evalReturnStatement(stmt *ast.ReturnStatement, env *Environment) Object {
	if stmt.Value == nil {
		return &ReturnValue{Value: NULL}
	}
	value := e.Eval(stmt.Value, env)
	if IsError(value) {
		return value
	}
	return &ReturnValue{Value: value}
}

// evalTryStatement: catch handles errors only; return/break/continue
// pass through it. The finally block runs on every exit path, and its
// own control flow (error, return, break, continue) overrides the
// pending result.
func (e *Evaluator) evalTryStatement(stmt *ast.TryStatement, env *Environment) Object {
	result := e.evalBlockStatement(stmt.Body, NewEnclosedEnvironment(env))

	if err, ok := result.(*Error); ok && stmt.Catch != nil {
		catchEnv := NewEnclosedEnvironment(env)
		catchEnv.Set(stmt.CatchVar.Value, &String{Value: err.Message})
		result = e.evalBlockStatement(stmt.Catch, catchEnv)
	}

	if stmt.Finally != nil {
		finallyResult := e.evalBlockStatement(stmt.Finally, NewEnclosedEnvironment(env))
		switch finallyResult.Type() {
		case ERROR_OBJ, RETURN_OBJ, BREAK_OBJ, CONTINUE_OBJ:
			return finallyResult
		}
	}
	return result
}

func (e *Evaluator) evalThrowStatement(stmt *ast.ThrowStatement, env *Environment) Object {
	value := e.Eval(stmt.Value, env)
	if IsError(value) {
		return value
	}
	return e.errAt(stmt, "%s", value.Inspect())
}

func (e *Evaluator) evalImportStatement(stmt *ast.ImportStatement, env *Environment) Object {
	module, err := e.loadModule(stmt.Module, stmt)
	if err != nil {
		return err
	}
	name := stmt.Alias
	if name == "" {
		name = module.Name
	}
	env.Set(name, module)
	return NULL
}

func (e *Evaluator) evalFromImportStatement(stmt *ast.FromImportStatement, env *Environment) Object {
	module, err := e.loadModule(stmt.Module, stmt)
	if err != nil {
		return err
	}
	for _, imported := range stmt.Names {
		value, ok := module.Exports.Get(imported.Name)
		if !ok {
			return e.errAt(stmt, "Module '%s' has no export '%s'", stmt.Module, imported.Name)
		}
		name := imported.Alias
		if name == "" {
			name = imported.Name
		}
		env.Set(name, value)
	}
	return NULL
}

func (e *Evaluator) loadModule(name string, node ast.Node) (*Module, *Error) {
	if e.Loader == nil {
		return nil, e.errAt(node, "Module '%s' not found", name)
	}
	module, err := e.Loader.Load(name, e)
	if err != nil {
		return nil, positioned(err, node)
	}
	return module, nil
}

func (e *Evaluator) evalExportStatement(stmt *ast.ExportStatement, env *Environment) Object {
	result := e.Eval(stmt.Declaration, env)
	if IsError(result) {
		return result
	}
	if e.Exports == nil {
		// Exports outside a module body are legal no-ops at top level.
		return NULL
	}
	for _, name := range exportedNames(stmt.Declaration) {
		if value, ok := env.Get(name); ok {
			e.Exports.Set(name, value)
		}
	}
	return NULL
}

func exportedNames(stmt ast.Statement) []string {
	switch decl := stmt.(type) {
	case *ast.LetStatement:
		return []string{decl.Name.Value}
	case *ast.FunctionStatement:
		return []string{decl.Name.Value}
	case *ast.ClassStatement:
		return []string{decl.Name.Value}
	}
	return nil
}

package vm

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/token"
)

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch stmt := stmt.(type) {
	case *ast.LetStatement:
		c.compileLet(stmt)
	case *ast.PrintStatement:
		c.compileExpression(stmt.Value)
		c.emit(OP_PRINT, stmt.GetToken())
	case *ast.ExpressionStatement:
		c.compileExpression(stmt.Expression)
		c.emit(OP_POP, stmt.GetToken())
	case *ast.BlockStatement:
		c.compileBlockInScope(stmt)
	case *ast.IfStatement:
		c.compileIf(stmt)
	case *ast.WhileStatement:
		c.compileWhile(stmt)
	case *ast.ForRangeStatement:
		c.compileForRange(stmt)
	case *ast.FunctionStatement:
		c.compileNamedFunction(stmt)
	case *ast.ReturnStatement:
		c.compileReturn(stmt)
	case *ast.BreakStatement:
		c.compileBreak(stmt)
	case *ast.ContinueStatement:
		c.compileContinue(stmt)
	case *ast.TryStatement:
		c.compileTry(stmt)
	case *ast.ThrowStatement:
		c.compileExpression(stmt.Value)
		c.emit(OP_THROW, stmt.GetToken())
	case *ast.ClassStatement:
		c.compileClass(stmt)
	case *ast.ImportStatement:
		c.compileImport(stmt)
	case *ast.FromImportStatement:
		c.compileFromImport(stmt)
	case *ast.ExportStatement:
		// Export markers matter when a module body is evaluated by the
		// loader; in compiled code only the declaration remains.
		c.compileStatement(stmt.Declaration)
	default:
		c.errorAt(stmt.GetToken(), diagnostics.ErrC001, "cannot compile statement %T", stmt)
	}
}

func (c *Compiler) compileBlockInScope(block *ast.BlockStatement) {
	c.beginScope()
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
	c.endScope(block.GetToken())
}

func (c *Compiler) compileLet(stmt *ast.LetStatement) {
	name := stmt.Name.Value
	// A let-bound anonymous function takes the binding's name, so arity
	// errors read the same as for named declarations, and a local
	// binding is declared up front so the body can recurse through it.
	if fn, ok := stmt.Value.(*ast.FunctionLiteral); ok {
		if c.scopeDepth > 0 || c.kind != kindScript {
			c.addLocal(name, stmt.Name.GetToken())
			c.compileFunction(name, fn.Params, fn.Body, fn.IsAsync, kindFunction, stmt.GetToken())
			return
		}
		c.compileFunction(name, fn.Params, fn.Body, fn.IsAsync, kindFunction, stmt.GetToken())
		c.emitConstOp(OP_DEFINE_GLOBAL, &evaluator.String{Value: name}, stmt.Name.GetToken())
		return
	}
	c.compileExpression(stmt.Value)
	c.defineVariable(name, stmt.Name.GetToken())
}

func (c *Compiler) compileIf(stmt *ast.IfStatement) {
	c.compileExpression(stmt.Condition)
	elseJump := c.emitJump(OP_JUMP_IF_FALSE, stmt.GetToken())
	c.compileBlockInScope(stmt.Consequence)
	if stmt.Alternative != nil {
		endJump := c.emitJump(OP_JUMP, stmt.GetToken())
		c.patchJump(elseJump, stmt.GetToken())
		c.compileBlockInScope(stmt.Alternative)
		c.patchJump(endJump, stmt.GetToken())
		return
	}
	c.patchJump(elseJump, stmt.GetToken())
}

func (c *Compiler) compileWhile(stmt *ast.WhileStatement) {
	tok := stmt.GetToken()
	loopStart := c.chunk().Len()
	c.compileExpression(stmt.Condition)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, tok)

	loop := &loopRecord{
		start:      loopStart,
		localCount: len(c.locals),
		tryDepth:   len(c.trys),
	}
	c.loops = append(c.loops, loop)
	c.compileBlockInScope(stmt.Body)
	c.loops = c.loops[:len(c.loops)-1]

	c.emitLoop(loopStart, tok)
	c.patchJump(exitJump, tok)
	for _, j := range loop.breakJumps {
		c.patchJump(j, tok)
	}
}

// compileForRange lowers `for i in range(a, b)` onto two hidden locals:
// the truncated cursor and the untruncated limit. The user variable is a
// fresh binding per iteration, so closures created in the body capture
// distinct values.
func (c *Compiler) compileForRange(stmt *ast.ForRangeStatement) {
	tok := stmt.GetToken()
	c.beginScope()

	c.compileExpression(stmt.From)
	c.emit(OP_RANGE_CHECK, stmt.From.GetToken())
	c.emitByte(1, stmt.From.GetToken())
	iterSlot := len(c.locals)
	c.addLocal("<range:iter>", tok)

	c.compileExpression(stmt.To)
	c.emit(OP_RANGE_CHECK, stmt.To.GetToken())
	c.emitByte(0, stmt.To.GetToken())
	limitSlot := len(c.locals)
	c.addLocal("<range:limit>", tok)

	loopStart := c.chunk().Len()
	c.emit(OP_GET_LOCAL, tok)
	c.emitByte(byte(iterSlot), tok)
	c.emit(OP_GET_LOCAL, tok)
	c.emitByte(byte(limitSlot), tok)
	c.emit(OP_LT, tok)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, tok)

	loop := &loopRecord{
		start:      -1,
		localCount: len(c.locals),
		tryDepth:   len(c.trys),
	}
	c.loops = append(c.loops, loop)

	c.beginScope()
	c.emit(OP_GET_LOCAL, tok)
	c.emitByte(byte(iterSlot), tok)
	c.addLocal(stmt.Variable.Value, stmt.Variable.GetToken())
	for _, s := range stmt.Body.Statements {
		c.compileStatement(s)
	}
	c.endScope(tok)

	c.loops = c.loops[:len(c.loops)-1]
	for _, j := range loop.continueJumps {
		c.patchJump(j, tok)
	}

	// Increment the cursor.
	c.emit(OP_GET_LOCAL, tok)
	c.emitByte(byte(iterSlot), tok)
	c.emitConstant(&evaluator.Number{Value: 1}, tok)
	c.emit(OP_ADD, tok)
	c.emit(OP_SET_LOCAL, tok)
	c.emitByte(byte(iterSlot), tok)
	c.emit(OP_POP, tok)
	c.emitLoop(loopStart, tok)

	c.patchJump(exitJump, tok)
	for _, j := range loop.breakJumps {
		c.patchJump(j, tok)
	}
	c.endScope(tok)
}

func (c *Compiler) compileNamedFunction(stmt *ast.FunctionStatement) {
	name := stmt.Name.Value
	if c.scopeDepth > 0 || c.kind != kindScript {
		// Declare before compiling the body so the function can
		// resolve itself for recursion; the closure value fills this
		// slot when the declaration executes.
		c.addLocal(name, stmt.Name.GetToken())
		c.compileFunction(name, stmt.Params, stmt.Body, stmt.IsAsync, kindFunction, stmt.GetToken())
		return
	}
	c.compileFunction(name, stmt.Params, stmt.Body, stmt.IsAsync, kindFunction, stmt.GetToken())
	c.emitConstOp(OP_DEFINE_GLOBAL, &evaluator.String{Value: name}, stmt.Name.GetToken())
}

// compileFunction compiles a body in a nested compiler and emits the
// CLOSURE that captures its upvalues.
func (c *Compiler) compileFunction(name string, params []*ast.Param, body *ast.BlockStatement, isAsync bool, kind funcKind, tok token.Token) {
	sub := &Compiler{
		enclosing: c,
		fn: &CompiledFunction{
			Name:    name,
			Arity:   len(params),
			Chunk:   NewChunk(),
			IsAsync: isAsync,
		},
		kind:   kind,
		errors: c.errors,
	}
	// Slot 0 holds the callee, or the receiver inside methods.
	slotZero := ""
	if kind == kindMethod {
		slotZero = "this"
	}
	sub.locals = append(sub.locals, Local{Name: slotZero})
	for _, p := range params {
		sub.addLocal(p.Name.Value, p.Name.GetToken())
	}

	sub.beginScope()
	for _, s := range body.Statements {
		sub.compileStatement(s)
	}
	// Implicit return.
	endTok := body.GetToken()
	sub.emit(OP_NIL, endTok)
	sub.emit(OP_RETURN, endTok)

	sub.fn.UpvalueCount = len(sub.upvalues)
	c.emitConstOp(OP_CLOSURE, sub.fn, tok)
	for _, up := range sub.upvalues {
		if up.IsLocal {
			c.emitByte(1, tok)
		} else {
			c.emitByte(0, tok)
		}
		c.emitByte(up.Index, tok)
	}
}

func (c *Compiler) compileReturn(stmt *ast.ReturnStatement) {
	tok := stmt.GetToken()
	if stmt.Value != nil {
		c.compileExpression(stmt.Value)
	} else {
		c.emit(OP_NIL, tok)
	}
	// Run finally blocks and discard handlers before leaving the frame.
	// The return value occupies a stack slot while they run; claiming it
	// keeps finally-block locals from landing on top of it.
	if len(c.trys) > 0 {
		c.beginScope()
		c.addLocal("<returning>", tok)
		c.emitTryCleanup(0, tok)
		c.endScopeNoEmit()
	}
	c.emit(OP_RETURN, tok)
}

func (c *Compiler) compileBreak(stmt *ast.BreakStatement) {
	loop := c.currentLoop()
	if loop == nil {
		c.errorAt(stmt.GetToken(), diagnostics.ErrC001, "'break' outside of a loop")
		return
	}
	tok := stmt.GetToken()
	c.emitTryCleanup(loop.tryDepth, tok)
	c.discardLocals(loop.localCount, tok)
	loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JUMP, tok))
}

func (c *Compiler) compileContinue(stmt *ast.ContinueStatement) {
	loop := c.currentLoop()
	if loop == nil {
		c.errorAt(stmt.GetToken(), diagnostics.ErrC001, "'continue' outside of a loop")
		return
	}
	tok := stmt.GetToken()
	c.emitTryCleanup(loop.tryDepth, tok)
	c.discardLocals(loop.localCount, tok)
	if loop.start >= 0 {
		c.emitLoop(loop.start, tok)
		return
	}
	loop.continueJumps = append(loop.continueJumps, c.emitJump(OP_JUMP, tok))
}

// compileTry wires the handler machinery. A finally block compiles
// twice: once on the normal/caught path and once in an outer handler
// that reruns it on the error path before rethrowing. Early exits get
// their own copies via emitTryCleanup.
func (c *Compiler) compileTry(stmt *ast.TryStatement) {
	tok := stmt.GetToken()
	if stmt.Finally == nil {
		c.compileTryCatch(stmt)
		return
	}

	finallySetup := c.emitJump(OP_SETUP_TRY, tok)
	c.trys = append(c.trys, tryRecord{finally: stmt.Finally})
	c.compileTryCatch(stmt)
	c.trys = c.trys[:len(c.trys)-1]
	c.emit(OP_POP_TRY, tok)
	c.compileBlockInScope(stmt.Finally)
	endJump := c.emitJump(OP_JUMP, tok)

	// Error path: the unwinder pushed the error message; hold it in a
	// hidden slot while the finally runs, then rethrow.
	c.patchJump(finallySetup, tok)
	c.beginScope()
	c.addLocal("<caught>", tok)
	c.compileBlockInScope(stmt.Finally)
	c.emit(OP_THROW, tok)
	c.endScopeNoEmit()

	c.patchJump(endJump, tok)
}

func (c *Compiler) compileTryCatch(stmt *ast.TryStatement) {
	if stmt.Catch == nil {
		c.compileBlockInScope(stmt.Body)
		return
	}
	tok := stmt.GetToken()
	handlerSetup := c.emitJump(OP_SETUP_TRY, tok)
	c.trys = append(c.trys, tryRecord{})
	c.compileBlockInScope(stmt.Body)
	c.trys = c.trys[:len(c.trys)-1]
	c.emit(OP_POP_TRY, tok)
	endJump := c.emitJump(OP_JUMP, tok)

	// Handler: the unwinder truncated the stack and pushed the error
	// message, which becomes the catch variable's slot.
	c.patchJump(handlerSetup, tok)
	c.beginScope()
	c.addLocal(stmt.CatchVar.Value, stmt.CatchVar.GetToken())
	for _, s := range stmt.Catch.Statements {
		c.compileStatement(s)
	}
	c.endScope(tok)

	c.patchJump(endJump, tok)
}

func (c *Compiler) compileClass(stmt *ast.ClassStatement) {
	tok := stmt.GetToken()
	name := stmt.Name.Value
	nameConst := &evaluator.String{Value: name}

	c.emitConstOp(OP_CLASS, nameConst, tok)
	isLocal := c.scopeDepth > 0 || c.kind != kindScript
	if isLocal {
		c.addLocal(name, stmt.Name.GetToken())
	} else {
		c.emitConstOp(OP_DEFINE_GLOBAL, nameConst, tok)
	}

	hasSuper := stmt.SuperClass != nil
	if hasSuper {
		c.beginScope()
		c.loadVariable(stmt.SuperClass.Value, stmt.SuperClass.GetToken())
		c.addLocal("super", tok)
		c.loadVariable(name, tok)
		c.emit(OP_INHERIT, stmt.SuperClass.GetToken())
	}

	c.loadVariable(name, tok)
	for _, method := range stmt.Methods {
		c.compileFunction(method.Name.Value, method.Params, method.Body, method.IsAsync, kindMethod, method.GetToken())
		c.emitConstOp(OP_METHOD, &evaluator.String{Value: method.Name.Value}, method.Name.GetToken())
	}
	c.emit(OP_POP, tok)

	if hasSuper {
		c.endScope(tok)
	}
}

func (c *Compiler) compileImport(stmt *ast.ImportStatement) {
	tok := stmt.GetToken()
	c.emitConstOp(OP_IMPORT, &evaluator.String{Value: stmt.Module}, tok)
	name := stmt.Alias
	if name == "" {
		name = stmt.Module
	}
	c.defineVariable(name, tok)
}

func (c *Compiler) compileFromImport(stmt *ast.FromImportStatement) {
	tok := stmt.GetToken()
	c.emitConstOp(OP_IMPORT, &evaluator.String{Value: stmt.Module}, tok)

	if c.scopeDepth == 0 && c.kind == kindScript {
		for _, imported := range stmt.Names {
			c.emit(OP_DUP, tok)
			c.emitConstOp(OP_GET_PROPERTY, &evaluator.String{Value: imported.Name}, tok)
			name := imported.Alias
			if name == "" {
				name = imported.Name
			}
			c.emitConstOp(OP_DEFINE_GLOBAL, &evaluator.String{Value: name}, tok)
		}
		c.emit(OP_POP, tok)
		return
	}

	// In a local scope the module itself occupies a hidden slot so the
	// imported bindings stay contiguous.
	moduleSlot := len(c.locals)
	c.addLocal("<import:"+stmt.Module+">", tok)
	for _, imported := range stmt.Names {
		c.emit(OP_GET_LOCAL, tok)
		c.emitByte(byte(moduleSlot), tok)
		c.emitConstOp(OP_GET_PROPERTY, &evaluator.String{Value: imported.Name}, tok)
		name := imported.Alias
		if name == "" {
			name = imported.Name
		}
		c.addLocal(name, tok)
	}
}

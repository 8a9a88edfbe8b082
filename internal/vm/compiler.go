package vm

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/config"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/token"
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
	kindMethod
)

// Local is a compile-time stack slot. The slot index equals the local's
// position in the locals list, which equals its runtime offset from the
// frame base.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// Upvalue records how a closure reaches a captured variable: a local
// slot of the enclosing function, or one of the enclosing function's own
// upvalues.
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

type loopRecord struct {
	// start is the backward jump target for continue; -1 for range
	// loops, whose continue target (the increment) is patched forward.
	start         int
	breakJumps    []int
	continueJumps []int
	localCount    int
	tryDepth      int
}

// tryRecord tracks an open try region so early exits (return, break,
// continue) can discard its handler and run its finally on the way out.
type tryRecord struct {
	finally *ast.BlockStatement
}

// Compiler translates one function body to bytecode. Function literals
// nest compilers via enclosing, which is how upvalue resolution walks
// outward.
type Compiler struct {
	enclosing *Compiler
	fn        *CompiledFunction
	kind      funcKind

	locals     []Local
	upvalues   []Upvalue
	scopeDepth int

	loops []*loopRecord
	trys  []tryRecord

	errors *[]*diagnostics.Error
}

// Compile translates a program into the script function. Compile errors
// are collected, not panicked; a non-empty error list means the chunk
// must not be executed.
func Compile(program *ast.Program) (*CompiledFunction, []*diagnostics.Error) {
	var errs []*diagnostics.Error
	c := &Compiler{
		fn:     &CompiledFunction{Name: "script", Chunk: NewChunk()},
		kind:   kindScript,
		errors: &errs,
	}
	// Slot 0 holds the script function itself.
	c.locals = append(c.locals, Local{Name: ""})

	c.compileProgram(program)
	return c.fn, errs
}

// compileProgram leaves the final expression statement's value on the
// stack so the run's result matches the tree walker's.
func (c *Compiler) compileProgram(program *ast.Program) {
	last := len(program.Statements) - 1
	pushedResult := false
	for i, stmt := range program.Statements {
		if i == last {
			if expr, ok := stmt.(*ast.ExpressionStatement); ok {
				c.compileExpression(expr.Expression)
				pushedResult = true
				break
			}
		}
		c.compileStatement(stmt)
	}
	tok := token.Token{}
	if last >= 0 {
		tok = program.Statements[last].GetToken()
	}
	if !pushedResult {
		c.emit(OP_NIL, tok)
	}
	c.emit(OP_HALT, tok)
}

func (c *Compiler) chunk() *Chunk {
	return c.fn.Chunk
}

func (c *Compiler) errorAt(tok token.Token, code string, format string, args ...interface{}) {
	*c.errors = append(*c.errors, diagnostics.NewError(code, tok, format, args...))
}

// emit helpers

func (c *Compiler) emit(op Opcode, tok token.Token) {
	c.chunk().WriteOp(op, tok.Line, tok.Column)
}

func (c *Compiler) emitByte(b byte, tok token.Token) {
	c.chunk().Write(b, tok.Line, tok.Column)
}

func (c *Compiler) emitU16(v int, tok token.Token) {
	c.emitByte(byte(v>>8), tok)
	c.emitByte(byte(v), tok)
}

func (c *Compiler) makeConstant(value evaluator.Object, tok token.Token) int {
	if len(c.chunk().Constants) >= config.MaxConstants {
		c.errorAt(tok, diagnostics.ErrC002, "too many constants in one chunk")
		return 0
	}
	return c.chunk().AddConstant(value)
}

func (c *Compiler) emitConstant(value evaluator.Object, tok token.Token) {
	idx := c.makeConstant(value, tok)
	c.emit(OP_CONST, tok)
	c.emitU16(idx, tok)
}

// emitConstOp writes an opcode whose operand is a constant pool index.
func (c *Compiler) emitConstOp(op Opcode, value evaluator.Object, tok token.Token) {
	idx := c.makeConstant(value, tok)
	c.emit(op, tok)
	c.emitU16(idx, tok)
}

// emitJump writes a forward jump with a placeholder offset and returns
// the operand position for patchJump.
func (c *Compiler) emitJump(op Opcode, tok token.Token) int {
	c.emit(op, tok)
	c.emitByte(0xff, tok)
	c.emitByte(0xff, tok)
	return c.chunk().Len() - 2
}

func (c *Compiler) patchJump(operandPos int, tok token.Token) {
	jump := c.chunk().Len() - operandPos - 2
	if jump > 0xffff {
		c.errorAt(tok, diagnostics.ErrC002, "jump distance exceeds bytecode limits")
		return
	}
	c.chunk().Code[operandPos] = byte(jump >> 8)
	c.chunk().Code[operandPos+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int, tok token.Token) {
	c.emit(OP_LOOP, tok)
	offset := c.chunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.errorAt(tok, diagnostics.ErrC002, "loop body exceeds bytecode limits")
		offset = 0
	}
	c.emitU16(offset, tok)
}

// Scopes and variables

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

func (c *Compiler) endScope(tok token.Token) {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, tok)
		} else {
			c.emit(OP_POP, tok)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// endScopeNoEmit drops compile-time bookkeeping without emitting pops,
// for paths where the values are consumed by other means.
func (c *Compiler) endScopeNoEmit() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *Compiler) addLocal(name string, tok token.Token) {
	if len(c.locals) >= config.MaxLocals {
		c.errorAt(tok, diagnostics.ErrC002, "too many local variables in function")
		return
	}
	c.locals = append(c.locals, Local{Name: name, Depth: c.scopeDepth})
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return i
		}
	}
	return -1
}

func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if slot := c.enclosing.resolveLocal(name); slot != -1 {
		c.enclosing.locals[slot].IsCaptured = true
		return c.addUpvalue(uint8(slot), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(uint8(up), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, up := range c.upvalues {
		if up.Index == index && up.IsLocal == isLocal {
			return i
		}
	}
	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	return len(c.upvalues) - 1
}

// loadVariable compiles a read of name through the local, upvalue,
// global resolution chain.
func (c *Compiler) loadVariable(name string, tok token.Token) {
	if slot := c.resolveLocal(name); slot != -1 {
		c.emit(OP_GET_LOCAL, tok)
		c.emitByte(byte(slot), tok)
		return
	}
	if up := c.resolveUpvalue(name); up != -1 {
		c.emit(OP_GET_UPVALUE, tok)
		c.emitByte(byte(up), tok)
		return
	}
	c.emitConstOp(OP_GET_GLOBAL, &evaluator.String{Value: name}, tok)
}

// storeVariable compiles a write; the value stays on the stack as the
// assignment's result.
func (c *Compiler) storeVariable(name string, tok token.Token) {
	if slot := c.resolveLocal(name); slot != -1 {
		c.emit(OP_SET_LOCAL, tok)
		c.emitByte(byte(slot), tok)
		return
	}
	if up := c.resolveUpvalue(name); up != -1 {
		c.emit(OP_SET_UPVALUE, tok)
		c.emitByte(byte(up), tok)
		return
	}
	c.emitConstOp(OP_SET_GLOBAL, &evaluator.String{Value: name}, tok)
}

// defineVariable binds the value on top of the stack: globals pop into
// the globals table, locals simply claim the slot.
func (c *Compiler) defineVariable(name string, tok token.Token) {
	if c.scopeDepth == 0 && c.kind == kindScript {
		c.emitConstOp(OP_DEFINE_GLOBAL, &evaluator.String{Value: name}, tok)
		return
	}
	c.addLocal(name, tok)
}

// discardLocals emits pops for locals above target without touching
// compile-time state; break and continue use it to unwind mid-scope.
func (c *Compiler) discardLocals(target int, tok token.Token) {
	for i := len(c.locals) - 1; i >= target; i-- {
		if c.locals[i].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, tok)
		} else {
			c.emit(OP_POP, tok)
		}
	}
}

// emitTryCleanup discards handlers above keep and runs their finally
// blocks, innermost first. Early exits that cross try regions pass
// through here.
func (c *Compiler) emitTryCleanup(keep int, tok token.Token) {
	saved := c.trys
	for i := len(saved) - 1; i >= keep; i-- {
		c.emit(OP_POP_TRY, tok)
		if saved[i].finally != nil {
			c.trys = saved[:i]
			c.compileBlockInScope(saved[i].finally)
		}
	}
	c.trys = saved
}

func (c *Compiler) currentLoop() *loopRecord {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}

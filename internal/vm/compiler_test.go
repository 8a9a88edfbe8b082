package vm

import (
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/token"
)

// The parser rejects break/continue outside a loop in source form; the
// compiler keeps its own guard for directly built trees, exercised here.

func TestCompileBreakOutsideLoop(t *testing.T) {
	program := &ast.Program{Statements: []ast.Statement{
		&ast.BreakStatement{Token: token.Token{Type: token.BREAK, Lexeme: "break", Line: 1, Column: 1}},
	}}
	_, errs := Compile(program)
	if len(errs) == 0 {
		t.Fatal("expected compile error for break outside loop")
	}
	if !strings.Contains(errs[0].Message, "'break' outside of a loop") {
		t.Errorf("error = %q", errs[0].Message)
	}
}

func TestCompileContinueOutsideLoop(t *testing.T) {
	program := &ast.Program{Statements: []ast.Statement{
		&ast.ContinueStatement{Token: token.Token{Type: token.CONTINUE, Lexeme: "continue", Line: 1, Column: 1}},
	}}
	_, errs := Compile(program)
	if len(errs) == 0 {
		t.Fatal("expected compile error for continue outside loop")
	}
}

func TestCompileLeavesResultThenHalts(t *testing.T) {
	fn := compileSource(t, "1 + 2")
	code := fn.Chunk.Code
	if len(code) == 0 || Opcode(code[len(code)-1]) != OP_HALT {
		t.Fatal("chunk must end with HALT")
	}
}

func TestDisassembleListing(t *testing.T) {
	fn := compileSource(t, `
let x = 1
function double(n) {
	return n * 2
}
print(double(x))`)
	listing := Disassemble(fn.Chunk, "script")

	for _, want := range []string{"== script ==", "CLOSURE", "DEFINE_GLOBAL", "CALL", "PRINT", "HALT", "MUL"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestDisassembleJumpTargets(t *testing.T) {
	fn := compileSource(t, "if true { print(1) } else { print(2) }")
	listing := Disassemble(fn.Chunk, "script")
	if !strings.Contains(listing, "JUMP_IF_FALSE") || !strings.Contains(listing, "->") {
		t.Errorf("listing missing jump rendering:\n%s", listing)
	}
}

func TestCompileErrorsDoNotPanic(t *testing.T) {
	// A deliberately malformed tree: errors accumulate, no panic.
	tok := token.Token{Line: 1, Column: 1}
	program := &ast.Program{Statements: []ast.Statement{
		&ast.BreakStatement{Token: tok},
		&ast.ContinueStatement{Token: tok},
		&ast.ExpressionStatement{Token: tok, Expression: &ast.NumberLiteral{Token: tok, Value: 1}},
	}}
	_, errs := Compile(program)
	if len(errs) < 2 {
		t.Fatalf("expected accumulated compile errors, got %d", len(errs))
	}
}

package vm

import (
	"github.com/infra-lang/infra/internal/evaluator"
)

// CompiledFunction is a function body compiled to bytecode.
type CompiledFunction struct {
	Arity        int
	Chunk        *Chunk
	Name         string // empty for anonymous functions
	UpvalueCount int
	IsAsync      bool
}

func (f *CompiledFunction) Type() evaluator.ObjectType { return "COMPILED_FUNCTION" }
func (f *CompiledFunction) Inspect() string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}

// ObjClosure pairs a compiled function with its captured upvalues. It
// implements evaluator.Object so it can live in class method tables,
// arrays, and globals next to tree-walk values.
type ObjClosure struct {
	Fn       *CompiledFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() evaluator.ObjectType { return "CLOSURE" }
func (c *ObjClosure) Inspect() string            { return c.Fn.Inspect() }

// ObjUpvalue is a captured variable. Open upvalues address a stack slot
// by index (stable across stack growth); closing copies the value out
// when the slot is about to disappear.
type ObjUpvalue struct {
	Location int // stack index while open, -1 once closed
	Closed   evaluator.Object

	// Next links the VM's open-upvalue list, sorted by Location
	// descending.
	Next *ObjUpvalue
}

package evaluator

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/infra-lang/infra/internal/ast"
)

type ObjectType string

const (
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	BOOLEAN_OBJ  = "BOOLEAN"
	NULL_OBJ     = "NULL"
	ARRAY_OBJ    = "ARRAY"
	RECORD_OBJ   = "OBJECT"
	FUNCTION_OBJ = "FUNCTION"
	BUILTIN_OBJ  = "BUILTIN"
	CLASS_OBJ    = "CLASS"
	INSTANCE_OBJ = "INSTANCE"
	BOUND_OBJ    = "BOUND_METHOD"
	PROMISE_OBJ  = "PROMISE"
	MODULE_OBJ   = "MODULE"
	ERROR_OBJ    = "ERROR"

	RETURN_OBJ   = "RETURN_VALUE"
	BREAK_OBJ    = "BREAK"
	CONTINUE_OBJ = "CONTINUE"
)

// Object is the runtime value interface shared by both backends.
// Inspect returns the display form used by print.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// CallContext is what builtins and the scheduler need from the running
// backend: the ability to call back into language functions, the output
// writer, and the shared scheduler.
type CallContext interface {
	CallFunction(fn Object, args []Object) Object
	Output() io.Writer
	Scheduler() *Scheduler
}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }

// FormatNumber prints whole numbers without a decimal point: 3, not 3.0.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Array is shared by reference: two bindings of the same array observe
// each other's mutations.
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = e.Inspect()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Record is the object/map value. Keys preserves insertion order so
// display and iteration are deterministic. Shared by reference.
type Record struct {
	Pairs map[string]Object
	Keys  []string
}

func NewRecord() *Record {
	return &Record{Pairs: make(map[string]Object)}
}

func (r *Record) Get(key string) (Object, bool) {
	v, ok := r.Pairs[key]
	return v, ok
}

func (r *Record) Set(key string, value Object) {
	if _, exists := r.Pairs[key]; !exists {
		r.Keys = append(r.Keys, key)
	}
	r.Pairs[key] = value
}

func (r *Record) Delete(key string) {
	if _, exists := r.Pairs[key]; !exists {
		return
	}
	delete(r.Pairs, key)
	for i, k := range r.Keys {
		if k == key {
			r.Keys = append(r.Keys[:i], r.Keys[i+1:]...)
			break
		}
	}
}

func (r *Record) Type() ObjectType { return RECORD_OBJ }
func (r *Record) Inspect() string {
	fields := make([]string, len(r.Keys))
	for i, k := range r.Keys {
		fields[i] = k + ": " + r.Pairs[k].Inspect()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// Function is a tree-walk closure over its defining environment.
type Function struct {
	Name    string
	Params  []*ast.Param
	Body    *ast.BlockStatement
	Env     *Environment
	IsAsync bool
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}

// BuiltinFunction validates its own arity and argument types; failures
// are returned as *Error values, catchable like any runtime error.
type BuiltinFunction func(ctx CallContext, args []Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<builtin " + b.Name + ">" }

// Class methods hold callable objects so both backends can share the
// type (tree-walk *Function or VM closures).
type Class struct {
	Name    string
	Super   *Class
	Methods map[string]Object
}

func (c *Class) Type() ObjectType { return CLASS_OBJ }
func (c *Class) Inspect() string  { return "<class " + c.Name + ">" }

// FindMethod walks the inheritance chain at call time.
func (c *Class) FindMethod(name string) (Object, *Class, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m, cls, true
		}
	}
	return nil, nil, false
}

type Instance struct {
	Class  *Class
	Fields *Record
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string  { return "<instance of " + i.Class.Name + ">" }

// BoundMethod pairs a receiver with a method value.
type BoundMethod struct {
	Receiver *Instance
	Method   Object
	// Home is the class the method was found on, for super lookup.
	Home *Class
}

func (bm *BoundMethod) Type() ObjectType { return BOUND_OBJ }
func (bm *BoundMethod) Inspect() string  { return "<bound method>" }

// Module wraps a loaded module's exports for `import m as n`.
type Module struct {
	Name    string
	Exports *Record
}

func (m *Module) Type() ObjectType { return MODULE_OBJ }
func (m *Module) Inspect() string  { return "<module " + m.Name + ">" }

// Error is a runtime error in flight. It propagates up the evaluation
// like any other object and is either caught by try or surfaced as a
// RuntimeError diagnostic.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "Runtime error: " + e.Message }

// ReturnValue carries a return through block evaluation.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

type BreakSignal struct{}

func (bs *BreakSignal) Type() ObjectType { return BREAK_OBJ }
func (bs *BreakSignal) Inspect() string  { return "break" }

type ContinueSignal struct{}

func (cs *ContinueSignal) Type() ObjectType { return CONTINUE_OBJ }
func (cs *ContinueSignal) Inspect() string  { return "continue" }

// Shared singletons. Numbers and strings allocate; these don't need to.
var (
	NULL     = &Null{}
	TRUE     = &Boolean{Value: true}
	FALSE    = &Boolean{Value: false}
	BREAK    = &BreakSignal{}
	CONTINUE = &ContinueSignal{}
)

func NativeBool(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

// IsTruthy implements the language's truthiness table.
func IsTruthy(obj Object) bool {
	switch v := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return v.Value
	case *Number:
		return v.Value != 0
	case *String:
		return len(v.Value) > 0
	case *Array:
		return len(v.Elements) > 0
	case *Record:
		return len(v.Keys) > 0
	case *Promise:
		return v.State == PromiseResolved
	default:
		// Functions, classes, instances, modules.
		return true
	}
}

// Equals implements ==. Cross-type comparison is false, never an error.
// Arrays, records, and instances compare by reference.
func Equals(a, b Object) bool {
	switch av := a.(type) {
	case *Number:
		if bv, ok := b.(*Number); ok {
			return av.Value == bv.Value
		}
	case *String:
		if bv, ok := b.(*String); ok {
			return av.Value == bv.Value
		}
	case *Boolean:
		if bv, ok := b.(*Boolean); ok {
			return av.Value == bv.Value
		}
	case *Null:
		_, ok := b.(*Null)
		return ok
	default:
		return a == b
	}
	return false
}

func IsError(obj Object) bool {
	if obj == nil {
		return false
	}
	return obj.Type() == ERROR_OBJ
}

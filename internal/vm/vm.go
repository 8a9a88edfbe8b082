package vm

import (
	"fmt"
	"io"

	"github.com/infra-lang/infra/internal/config"
	"github.com/infra-lang/infra/internal/evaluator"
)

// CallFrame is one ongoing function call. base is the stack index of the
// callee slot; locals live at base+1 and up.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	base    int

	// isInit makes the frame return its receiver regardless of what the
	// body returned, so `new` always yields the instance.
	isInit bool
}

// tryHandler is a runtime try region. On throw the machine truncates
// frames and stack back to these marks and resumes at ip with the error
// message pushed.
type tryHandler struct {
	frameIndex int
	ip         int
	stackDepth int
}

// VM executes compiled chunks. It shares the evaluator's value model,
// scheduler, and builtin bridge, so observable behavior matches the tree
// walker instruction for instruction.
type VM struct {
	stack []evaluator.Object
	sp    int

	frames     []CallFrame
	frameCount int

	globals      map[string]evaluator.Object
	openUpvalues *ObjUpvalue
	handlers     []tryHandler

	sched  *evaluator.Scheduler
	out    io.Writer
	loader evaluator.ModuleLoader

	// fatal marks an internal invariant breach (stack underflow,
	// truncated bytecode). Not catchable by try.
	fatal *evaluator.Error
}

// New creates a VM against a caller-owned globals table; reusing the
// table across runs is what gives the REPL persistent state.
func New(globals map[string]evaluator.Object, sched *evaluator.Scheduler, out io.Writer, loader evaluator.ModuleLoader) *VM {
	if globals == nil {
		globals = make(map[string]evaluator.Object)
	}
	return &VM{
		stack:   make([]evaluator.Object, config.InitialStackSize),
		frames:  make([]CallFrame, 0, 64),
		globals: globals,
		sched:   sched,
		out:     out,
		loader:  loader,
	}
}

func (vm *VM) Output() io.Writer               { return vm.out }
func (vm *VM) Scheduler() *evaluator.Scheduler { return vm.sched }

// CallFunction lets builtins call back into compiled closures; it is the
// VM side of the native bridge contract.
func (vm *VM) CallFunction(fn evaluator.Object, args []evaluator.Object) evaluator.Object {
	switch fn := fn.(type) {
	case *evaluator.Builtin:
		return fn.Fn(vm, args)
	case *ObjClosure:
		return vm.runNested(fn, nil, args)
	case *evaluator.BoundMethod:
		if method, ok := fn.Method.(*ObjClosure); ok {
			return vm.runNested(method, fn.Receiver, args)
		}
		return vm.callForeign(fn, args)
	case *evaluator.Function:
		return vm.callForeign(fn, args)
	default:
		return &evaluator.Error{Message: "Cannot call " + evaluator.TypeName(fn)}
	}
}

// callForeign delegates values the tree walker produced (module exports
// evaluate there) to an evaluator sharing this machine's scheduler,
// output, and loader.
func (vm *VM) callForeign(fn evaluator.Object, args []evaluator.Object) evaluator.Object {
	e := evaluator.New(vm.out, vm.sched)
	e.Loader = vm.loader
	return e.CallFunction(fn, args)
}

// Run executes a compiled script until HALT and returns the final value.
func (vm *VM) Run(script *CompiledFunction) (evaluator.Object, *evaluator.Error) {
	closure := &ObjClosure{Fn: script}
	vm.push(closure)
	vm.frames = append(vm.frames, CallFrame{closure: closure, base: 0})
	vm.frameCount = 1
	return vm.run()
}

// runNested executes a closure to completion on a fresh machine that
// shares globals, scheduler, output, and loader. Scheduled async bodies
// and builtin callbacks run through here.
func (vm *VM) runNested(closure *ObjClosure, receiver *evaluator.Instance, args []evaluator.Object) evaluator.Object {
	sub := New(vm.globals, vm.sched, vm.out, vm.loader)
	if receiver != nil {
		sub.push(receiver)
	} else {
		sub.push(closure)
	}
	for _, arg := range args {
		sub.push(arg)
	}
	if err := sub.callClosure(closure, len(args), receiver, false); err != nil {
		return err
	}
	result, err := sub.run()
	if err != nil {
		return err
	}
	return result
}

// Stack primitives

func (vm *VM) push(v evaluator.Object) {
	if vm.sp == len(vm.stack) {
		vm.stack = append(vm.stack, make([]evaluator.Object, config.InitialStackSize)...)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() evaluator.Object {
	if vm.sp == 0 {
		vm.fatal = &evaluator.Error{Message: "stack underflow (internal error)"}
		return evaluator.NULL
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) evaluator.Object {
	idx := vm.sp - 1 - distance
	if idx < 0 {
		vm.fatal = &evaluator.Error{Message: "stack underflow (internal error)"}
		return evaluator.NULL
	}
	return vm.stack[idx]
}

// Upvalues

func (vm *VM) captureUpvalue(location int) *ObjUpvalue {
	var prev *ObjUpvalue
	up := vm.openUpvalues
	for up != nil && up.Location > location {
		prev = up
		up = up.Next
	}
	if up != nil && up.Location == location {
		return up
	}
	created := &ObjUpvalue{Location: location, Next: up}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues hoists every open upvalue at or above the given stack
// index into the heap.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= from {
		up := vm.openUpvalues
		up.Closed = vm.stack[up.Location]
		up.Location = -1
		vm.openUpvalues = up.Next
	}
}

// Calls

func (vm *VM) callValue(callee evaluator.Object, argc int) *evaluator.Error {
	switch callee := callee.(type) {
	case *ObjClosure:
		return vm.callClosure(callee, argc, nil, false)
	case *evaluator.BoundMethod:
		if method, ok := callee.Method.(*ObjClosure); ok {
			return vm.callClosure(method, argc, callee.Receiver, false)
		}
		return vm.callOffStack(callee, argc)
	case *evaluator.Function:
		// Module exports evaluate on the tree walker; calling one from
		// compiled code crosses back over.
		return vm.callOffStack(callee, argc)
	case *evaluator.Builtin:
		args := make([]evaluator.Object, argc)
		copy(args, vm.stack[vm.sp-argc:vm.sp])
		vm.sp -= argc + 1
		result := callee.Fn(vm, args)
		if err, ok := result.(*evaluator.Error); ok {
			return err
		}
		vm.push(result)
		return nil
	case *evaluator.Class:
		return &evaluator.Error{Message: fmt.Sprintf("Use 'new' to instantiate class '%s'", callee.Name)}
	default:
		return &evaluator.Error{Message: "Cannot call " + evaluator.TypeName(callee)}
	}
}

func (vm *VM) callClosure(closure *ObjClosure, argc int, receiver *evaluator.Instance, isInit bool) *evaluator.Error {
	name := closure.Fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	if argc != closure.Fn.Arity {
		return &evaluator.Error{Message: fmt.Sprintf("Function '%s' expected %d arguments, found %d",
			name, closure.Fn.Arity, argc)}
	}
	if closure.Fn.IsAsync {
		vm.scheduleAsync(closure, argc, receiver)
		return nil
	}
	if vm.frameCount >= config.MaxFrameCount {
		return &evaluator.Error{Message: "Stack overflow: call depth limit exceeded"}
	}

	base := vm.sp - argc - 1
	if receiver != nil {
		vm.stack[base] = receiver
	}
	if vm.frameCount == len(vm.frames) {
		vm.frames = append(vm.frames, CallFrame{})
	}
	vm.frames[vm.frameCount] = CallFrame{closure: closure, base: base, isInit: isInit}
	vm.frameCount++
	return nil
}

// callOffStack pops a call's operands and completes it outside the
// bytecode stack discipline.
func (vm *VM) callOffStack(callee evaluator.Object, argc int) *evaluator.Error {
	args := make([]evaluator.Object, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])
	vm.sp -= argc + 1
	result := vm.callForeign(callee, args)
	if err, ok := result.(*evaluator.Error); ok {
		return err
	}
	vm.push(result)
	return nil
}

// scheduleAsync replaces the call with a pending promise; the body runs
// as a queued task on a nested machine when the scheduler is driven.
func (vm *VM) scheduleAsync(closure *ObjClosure, argc int, receiver *evaluator.Instance) {
	args := make([]evaluator.Object, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])
	vm.sp -= argc + 1

	syncFn := *closure.Fn
	syncFn.IsAsync = false
	sync := &ObjClosure{Fn: &syncFn, Upvalues: closure.Upvalues}

	promise := vm.sched.NewPromise()
	vm.sched.Schedule(promise, func() {
		result := vm.runNested(sync, receiver, args)
		if evaluator.IsError(result) {
			vm.sched.Reject(promise, result)
			return
		}
		vm.sched.Resolve(promise, result)
	})
	vm.push(promise)
}

// instantiate services OP_NEW: allocate the instance and invoke init
// when the class declares one.
func (vm *VM) instantiate(argc int) *evaluator.Error {
	callee := vm.peek(argc)
	class, ok := callee.(*evaluator.Class)
	if !ok {
		return &evaluator.Error{Message: "'new' requires a class, got " + evaluator.TypeName(callee)}
	}
	instance := &evaluator.Instance{Class: class, Fields: evaluator.NewRecord()}

	init, _, found := class.FindMethod("init")
	if !found {
		if argc != 0 {
			return &evaluator.Error{Message: fmt.Sprintf("Function 'init' expected 0 arguments, found %d", argc)}
		}
		vm.stack[vm.sp-1] = instance
		return nil
	}
	closure, ok := init.(*ObjClosure)
	if !ok {
		return &evaluator.Error{Message: "Cannot call " + evaluator.TypeName(init)}
	}
	return vm.callClosure(closure, argc, instance, true)
}

// Unwinding

// unwind transfers control to the innermost try handler. It reports
// false when no handler exists, which terminates the run.
func (vm *VM) unwind(err *evaluator.Error) bool {
	if len(vm.handlers) == 0 {
		return false
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	vm.frameCount = h.frameIndex + 1
	vm.closeUpvalues(h.stackDepth)
	vm.sp = h.stackDepth
	vm.push(&evaluator.String{Value: err.Message})
	vm.frames[vm.frameCount-1].ip = h.ip
	return true
}

// stampPos fills in a source position from the instruction that failed,
// unless a deeper position is already attached.
func stampPos(err *evaluator.Error, chunk *Chunk, offset int) *evaluator.Error {
	if err.Line == 0 && offset < len(chunk.Lines) {
		err.Line = chunk.Lines[offset]
		err.Column = chunk.Columns[offset]
	}
	return err
}

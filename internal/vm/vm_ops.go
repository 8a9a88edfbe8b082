package vm

import (
	"fmt"
	"math"

	"github.com/infra-lang/infra/internal/evaluator"
)

var binaryOpStrings = map[Opcode]string{
	OP_ADD: "+",
	OP_SUB: "-",
	OP_MUL: "*",
	OP_DIV: "/",
	OP_MOD: "%",
	OP_EQ:  "==",
	OP_NE:  "!=",
	OP_LT:  "<",
	OP_LE:  "<=",
	OP_GT:  ">",
	OP_GE:  ">=",
}

func (vm *VM) readByte(frame *CallFrame, chunk *Chunk) byte {
	b := chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readU16(frame *CallFrame, chunk *Chunk) int {
	v := chunk.ReadU16(frame.ip)
	frame.ip += 2
	return v
}

func (vm *VM) readString(frame *CallFrame, chunk *Chunk) string {
	idx := vm.readU16(frame, chunk)
	s, ok := chunk.Constants[idx].(*evaluator.String)
	if !ok {
		vm.fatal = &evaluator.Error{Message: "malformed constant operand (internal error)"}
		return ""
	}
	return s.Value
}

// run is the dispatch loop. Each instruction either succeeds or produces
// a runtime error that unwinds to the innermost try handler; with no
// handler left the run terminates.
//
// Frame pointers are only held across operand reads, never across a
// call: callClosure may grow the frame array.
func (vm *VM) run() (evaluator.Object, *evaluator.Error) {
	for {
		frame := &vm.frames[vm.frameCount-1]
		chunk := frame.closure.Fn.Chunk
		if frame.ip >= len(chunk.Code) {
			return nil, &evaluator.Error{Message: "truncated bytecode (internal error)"}
		}
		instrStart := frame.ip
		op := Opcode(chunk.Code[frame.ip])
		frame.ip++

		var err *evaluator.Error

		switch op {
		case OP_CONST:
			idx := vm.readU16(frame, chunk)
			vm.push(chunk.Constants[idx])

		case OP_POP:
			vm.pop()

		case OP_DUP:
			vm.push(vm.peek(0))

		case OP_NIL:
			vm.push(evaluator.NULL)

		case OP_TRUE:
			vm.push(evaluator.TRUE)

		case OP_FALSE:
			vm.push(evaluator.FALSE)

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD,
			OP_EQ, OP_NE, OP_LT, OP_LE, OP_GT, OP_GE:
			right := vm.pop()
			left := vm.pop()
			result := evaluator.EvalBinaryOp(binaryOpStrings[op], left, right)
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_NEG:
			v := vm.pop()
			if n, ok := v.(*evaluator.Number); ok {
				vm.push(&evaluator.Number{Value: -n.Value})
			} else {
				err = &evaluator.Error{Message: fmt.Sprintf("Operand of '-' must be a number, got %s",
					evaluator.TypeName(v))}
			}

		case OP_NOT:
			vm.push(evaluator.NativeBool(!evaluator.IsTruthy(vm.pop())))

		case OP_PRINT:
			v := vm.pop()
			if p, ok := v.(*evaluator.Promise); ok && p.State == evaluator.PromiseResolved {
				v = p.Value
			}
			_, _ = vm.out.Write([]byte(v.Inspect() + "\n"))

		case OP_GET_LOCAL:
			slot := int(vm.readByte(frame, chunk))
			vm.push(vm.stack[frame.base+slot])

		case OP_SET_LOCAL:
			slot := int(vm.readByte(frame, chunk))
			vm.stack[frame.base+slot] = vm.peek(0)

		case OP_GET_GLOBAL:
			name := vm.readString(frame, chunk)
			if v, ok := vm.globals[name]; ok {
				vm.push(v)
			} else {
				err = &evaluator.Error{Message: fmt.Sprintf("Undefined variable '%s'", name)}
			}

		case OP_SET_GLOBAL:
			name := vm.readString(frame, chunk)
			if _, ok := vm.globals[name]; ok {
				vm.globals[name] = vm.peek(0)
			} else {
				err = &evaluator.Error{Message: fmt.Sprintf("Undefined variable '%s'", name)}
			}

		case OP_DEFINE_GLOBAL:
			name := vm.readString(frame, chunk)
			vm.globals[name] = vm.pop()

		case OP_GET_UPVALUE:
			idx := int(vm.readByte(frame, chunk))
			up := frame.closure.Upvalues[idx]
			if up.Location >= 0 {
				vm.push(vm.stack[up.Location])
			} else {
				vm.push(up.Closed)
			}

		case OP_SET_UPVALUE:
			idx := int(vm.readByte(frame, chunk))
			up := frame.closure.Upvalues[idx]
			if up.Location >= 0 {
				vm.stack[up.Location] = vm.peek(0)
			} else {
				up.Closed = vm.peek(0)
			}

		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_JUMP:
			offset := vm.readU16(frame, chunk)
			frame.ip += offset

		case OP_JUMP_IF_FALSE:
			offset := vm.readU16(frame, chunk)
			if !evaluator.IsTruthy(vm.pop()) {
				frame.ip += offset
			}

		case OP_LOOP:
			offset := vm.readU16(frame, chunk)
			frame.ip -= offset

		case OP_CALL:
			argc := int(vm.readByte(frame, chunk))
			err = vm.callValue(vm.peek(argc), argc)

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			if frame.isInit {
				result = vm.stack[frame.base]
			}
			vm.sp = frame.base
			vm.frameCount--
			if vm.frameCount == 0 {
				return result, nil
			}
			vm.push(result)

		case OP_CLOSURE:
			idx := vm.readU16(frame, chunk)
			fn, ok := chunk.Constants[idx].(*CompiledFunction)
			if !ok {
				vm.fatal = &evaluator.Error{Message: "malformed closure operand (internal error)"}
				break
			}
			closure := &ObjClosure{Fn: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame, chunk)
				index := int(vm.readByte(frame, chunk))
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(closure)

		case OP_MAKE_ARRAY:
			count := vm.readU16(frame, chunk)
			elems := make([]evaluator.Object, count)
			copy(elems, vm.stack[vm.sp-count:vm.sp])
			vm.sp -= count
			vm.push(&evaluator.Array{Elements: elems})

		case OP_MAKE_OBJECT:
			count := vm.readU16(frame, chunk)
			record := evaluator.NewRecord()
			base := vm.sp - count*2
			for i := 0; i < count; i++ {
				key, ok := vm.stack[base+i*2].(*evaluator.String)
				if !ok {
					vm.fatal = &evaluator.Error{Message: "malformed object key (internal error)"}
					break
				}
				record.Set(key.Value, vm.stack[base+i*2+1])
			}
			vm.sp = base
			vm.push(record)

		case OP_GET_INDEX:
			index := vm.pop()
			left := vm.pop()
			result := evaluator.GetIndex(left, index)
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_SET_INDEX:
			value := vm.pop()
			index := vm.pop()
			left := vm.pop()
			result := evaluator.SetIndex(left, index, value)
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_GET_PROPERTY:
			name := vm.readString(frame, chunk)
			object := vm.pop()
			result := evaluator.GetMember(object, name)
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_SET_PROPERTY:
			name := vm.readString(frame, chunk)
			value := vm.pop()
			object := vm.pop()
			result := evaluator.SetMember(object, name, value)
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_CLASS:
			name := vm.readString(frame, chunk)
			vm.push(&evaluator.Class{Name: name, Methods: make(map[string]evaluator.Object)})

		case OP_INHERIT:
			class, ok := vm.peek(0).(*evaluator.Class)
			if !ok {
				vm.fatal = &evaluator.Error{Message: "malformed inherit operand (internal error)"}
				break
			}
			superVal := vm.peek(1)
			super, ok := superVal.(*evaluator.Class)
			if !ok {
				err = &evaluator.Error{Message: fmt.Sprintf("Superclass must be a class, got %s",
					evaluator.TypeName(superVal))}
				break
			}
			class.Super = super
			vm.pop()

		case OP_METHOD:
			name := vm.readString(frame, chunk)
			method := vm.pop()
			class, ok := vm.peek(0).(*evaluator.Class)
			if !ok {
				vm.fatal = &evaluator.Error{Message: "malformed method operand (internal error)"}
				break
			}
			class.Methods[name] = method

		case OP_GET_SUPER:
			name := vm.readString(frame, chunk)
			super, ok := vm.pop().(*evaluator.Class)
			if !ok {
				vm.fatal = &evaluator.Error{Message: "malformed super operand (internal error)"}
				break
			}
			receiver, ok := vm.pop().(*evaluator.Instance)
			if !ok {
				vm.fatal = &evaluator.Error{Message: "malformed super receiver (internal error)"}
				break
			}
			method, home, found := super.FindMethod(name)
			if !found {
				err = &evaluator.Error{Message: fmt.Sprintf("Undefined method '%s' on class '%s'",
					name, super.Name)}
				break
			}
			vm.push(&evaluator.BoundMethod{Receiver: receiver, Method: method, Home: home})

		case OP_NEW:
			argc := int(vm.readByte(frame, chunk))
			err = vm.instantiate(argc)

		case OP_THROW:
			v := vm.pop()
			err = &evaluator.Error{Message: v.Inspect()}

		case OP_SETUP_TRY:
			offset := vm.readU16(frame, chunk)
			vm.handlers = append(vm.handlers, tryHandler{
				frameIndex: vm.frameCount - 1,
				ip:         frame.ip + offset,
				stackDepth: vm.sp,
			})

		case OP_POP_TRY:
			if len(vm.handlers) == 0 {
				vm.fatal = &evaluator.Error{Message: "try handler underflow (internal error)"}
				break
			}
			vm.handlers = vm.handlers[:len(vm.handlers)-1]

		case OP_AWAIT:
			result := vm.sched.Await(vm.pop())
			if e, ok := result.(*evaluator.Error); ok {
				err = e
			} else {
				vm.push(result)
			}

		case OP_IMPORT:
			name := vm.readString(frame, chunk)
			if vm.loader == nil {
				err = &evaluator.Error{Message: fmt.Sprintf("Module '%s' not found", name)}
				break
			}
			module, loadErr := vm.loader.Load(name, vm)
			if loadErr != nil {
				err = loadErr
			} else {
				vm.push(module)
			}

		case OP_RANGE_CHECK:
			truncate := vm.readByte(frame, chunk)
			v := vm.pop()
			n, ok := v.(*evaluator.Number)
			if !ok {
				err = &evaluator.Error{Message: fmt.Sprintf("range() bounds must be numbers, got %s",
					evaluator.TypeName(v))}
				break
			}
			if truncate == 1 {
				vm.push(&evaluator.Number{Value: math.Trunc(n.Value)})
			} else {
				vm.push(n)
			}

		case OP_HALT:
			return vm.stack[vm.sp-1], nil

		default:
			return nil, &evaluator.Error{Message: fmt.Sprintf("unknown opcode %d (internal error)", op)}
		}

		if vm.fatal != nil {
			return nil, vm.fatal
		}
		if err != nil {
			err = stampPos(err, chunk, instrStart)
			if !vm.unwind(err) {
				return nil, err
			}
		}
	}
}

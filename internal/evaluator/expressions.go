package evaluator

import (
	"math"
	"strings"

	"github.com/infra-lang/infra/internal/ast"
)

// TypeName returns the user-facing name of a value's type, as used in
// runtime error messages.
func TypeName(obj Object) string {
	return typeName(obj)
}

func typeName(obj Object) string {
	switch obj.(type) {
	case *Number:
		return "number"
	case *String:
		return "string"
	case *Boolean:
		return "boolean"
	case *Null:
		return "null"
	case *Array:
		return "array"
	case *Record:
		return "object"
	case *Function, *Builtin, *BoundMethod:
		return "function"
	case *Class:
		return "class"
	case *Instance:
		return "instance"
	case *Promise:
		return "promise"
	case *Module:
		return "module"
	default:
		return strings.ToLower(string(obj.Type()))
	}
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if value, ok := env.Get(node.Value); ok {
		return value
	}
	return e.errAt(node, "Undefined variable '%s'", node.Value)
}

func (e *Evaluator) evalFStringLiteral(node *ast.FStringLiteral, env *Environment) Object {
	var out strings.Builder
	for _, part := range node.Parts {
		if part.Expr == nil {
			out.WriteString(part.Text)
			continue
		}
		value := e.Eval(part.Expr, env)
		if IsError(value) {
			return value
		}
		out.WriteString(value.Inspect())
	}
	return &String{Value: out.String()}
}

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, env *Environment) Object {
	right := e.Eval(node.Right, env)
	if IsError(right) {
		return right
	}

	switch node.Operator {
	case "-":
		num, ok := right.(*Number)
		if !ok {
			return e.errAt(node, "Operand of '-' must be a number, got %s", typeName(right))
		}
		return &Number{Value: -num.Value}
	case "!":
		return NativeBool(!IsTruthy(right))
	default:
		return e.errAt(node, "Unknown operator '%s'", node.Operator)
	}
}

func (e *Evaluator) evalInfixExpression(node *ast.InfixExpression, env *Environment) Object {
	// && and || short-circuit and yield booleans.
	if node.Operator == "&&" || node.Operator == "||" {
		left := e.Eval(node.Left, env)
		if IsError(left) {
			return left
		}
		leftTruthy := IsTruthy(left)
		if node.Operator == "&&" && !leftTruthy {
			return FALSE
		}
		if node.Operator == "||" && leftTruthy {
			return TRUE
		}
		right := e.Eval(node.Right, env)
		if IsError(right) {
			return right
		}
		return NativeBool(IsTruthy(right))
	}

	left := e.Eval(node.Left, env)
	if IsError(left) {
		return left
	}
	right := e.Eval(node.Right, env)
	if IsError(right) {
		return right
	}

	result := EvalBinaryOp(node.Operator, left, right)
	if err, ok := result.(*Error); ok {
		return positioned(err, node)
	}
	return result
}

// EvalBinaryOp implements the arithmetic and comparison table shared by
// both backends.
func EvalBinaryOp(operator string, left, right Object) Object {
	switch operator {
	case "==":
		return NativeBool(Equals(left, right))
	case "!=":
		return NativeBool(!Equals(left, right))
	}

	if ln, lok := left.(*Number); lok {
		if rn, rok := right.(*Number); rok {
			return evalNumberOp(operator, ln.Value, rn.Value)
		}
	}
	if ls, lok := left.(*String); lok {
		if rs, rok := right.(*String); rok {
			return evalStringOp(operator, ls.Value, rs.Value)
		}
	}

	// + with one string operand concatenates display forms.
	if operator == "+" {
		if _, ok := left.(*String); ok {
			return &String{Value: left.Inspect() + right.Inspect()}
		}
		if _, ok := right.(*String); ok {
			return &String{Value: left.Inspect() + right.Inspect()}
		}
		return newError("Operands of '+' must be numbers or strings, got %s and %s",
			typeName(left), typeName(right))
	}

	switch operator {
	case "-", "*", "/", "%":
		return newError("Operands of '%s' must be numbers, got %s and %s",
			operator, typeName(left), typeName(right))
	case "<", "<=", ">", ">=":
		return newError("Cannot compare %s with %s using '%s'",
			typeName(left), typeName(right), operator)
	default:
		return newError("Unknown operator '%s'", operator)
	}
}

func evalNumberOp(operator string, left, right float64) Object {
	switch operator {
	case "+":
		return &Number{Value: left + right}
	case "-":
		return &Number{Value: left - right}
	case "*":
		return &Number{Value: left * right}
	case "/":
		if right == 0 {
			return newError("Division by zero")
		}
		return &Number{Value: left / right}
	case "%":
		if right == 0 {
			return newError("Division by zero")
		}
		return &Number{Value: math.Mod(left, right)}
	case "<":
		return NativeBool(left < right)
	case "<=":
		return NativeBool(left <= right)
	case ">":
		return NativeBool(left > right)
	case ">=":
		return NativeBool(left >= right)
	default:
		return newError("Unknown operator '%s'", operator)
	}
}

func evalStringOp(operator string, left, right string) Object {
	switch operator {
	case "+":
		return &String{Value: left + right}
	case "<":
		return NativeBool(left < right)
	case "<=":
		return NativeBool(left <= right)
	case ">":
		return NativeBool(left > right)
	case ">=":
		return NativeBool(left >= right)
	default:
		return newError("Operands of '%s' must be numbers, got string and string", operator)
	}
}

func (e *Evaluator) evalAssignExpression(node *ast.AssignExpression, env *Environment) Object {
	value := e.Eval(node.Value, env)
	if IsError(value) {
		return value
	}

	switch target := node.Target.(type) {
	case *ast.Identifier:
		if !env.Update(target.Value, value) {
			return e.errAt(target, "Undefined variable '%s'", target.Value)
		}
		return value
	case *ast.IndexExpression:
		return e.evalIndexAssign(target, value, env)
	case *ast.MemberExpression:
		return e.evalMemberAssign(target, value, env)
	default:
		return e.errAt(node, "invalid assignment target")
	}
}

func (e *Evaluator) evalIndexAssign(target *ast.IndexExpression, value Object, env *Environment) Object {
	container := e.Eval(target.Left, env)
	if IsError(container) {
		return container
	}
	index := e.Eval(target.Index, env)
	if IsError(index) {
		return index
	}

	result := SetIndex(container, index, value)
	if err, ok := result.(*Error); ok {
		return positioned(err, target)
	}
	return result
}

// SetIndex writes container[index] = value, shared by both backends.
func SetIndex(container, index, value Object) Object {
	switch c := container.(type) {
	case *Array:
		idx, err := arrayIndex(c, index)
		if err != nil {
			return err
		}
		c.Elements[idx] = value
		return value
	case *Record:
		key, ok := index.(*String)
		if !ok {
			return newError("Object key must be a string, got %s", typeName(index))
		}
		c.Set(key.Value, value)
		return value
	case *Instance:
		key, ok := index.(*String)
		if !ok {
			return newError("Object key must be a string, got %s", typeName(index))
		}
		c.Fields.Set(key.Value, value)
		return value
	default:
		return newError("Cannot index %s", typeName(container))
	}
}

func arrayIndex(arr *Array, index Object) (int, *Error) {
	num, ok := index.(*Number)
	if !ok {
		return 0, newError("Array index must be a number, got %s", typeName(index))
	}
	idx := int(num.Value)
	if float64(idx) != num.Value {
		return 0, newError("Array index must be a whole number, got %s", FormatNumber(num.Value))
	}
	if idx < 0 || idx >= len(arr.Elements) {
		return 0, newError("Array index %d out of bounds for array of length %d", idx, len(arr.Elements))
	}
	return idx, nil
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression, env *Environment) Object {
	left := e.Eval(node.Left, env)
	if IsError(left) {
		return left
	}
	index := e.Eval(node.Index, env)
	if IsError(index) {
		return index
	}

	result := GetIndex(left, index)
	if err, ok := result.(*Error); ok {
		return positioned(err, node)
	}
	return result
}

// GetIndex reads container[index], shared by both backends. Missing
// object keys read as null; array and string indexes are bounds-checked.
func GetIndex(container, index Object) Object {
	switch c := container.(type) {
	case *Array:
		idx, err := arrayIndex(c, index)
		if err != nil {
			return err
		}
		return c.Elements[idx]
	case *String:
		num, ok := index.(*Number)
		if !ok {
			return newError("String index must be a number, got %s", typeName(index))
		}
		runes := []rune(c.Value)
		idx := int(num.Value)
		if float64(idx) != num.Value || idx < 0 || idx >= len(runes) {
			return newError("String index %s out of bounds for string of length %d",
				FormatNumber(num.Value), len(runes))
		}
		return &String{Value: string(runes[idx])}
	case *Record:
		key, ok := index.(*String)
		if !ok {
			return newError("Object key must be a string, got %s", typeName(index))
		}
		if value, found := c.Get(key.Value); found {
			return value
		}
		return NULL
	case *Instance:
		key, ok := index.(*String)
		if !ok {
			return newError("Object key must be a string, got %s", typeName(index))
		}
		if value, found := c.Fields.Get(key.Value); found {
			return value
		}
		return NULL
	default:
		return newError("Cannot index %s", typeName(container))
	}
}

func (e *Evaluator) evalArrayLiteral(node *ast.ArrayLiteral, env *Environment) Object {
	elements := make([]Object, len(node.Elements))
	for i, elem := range node.Elements {
		value := e.Eval(elem, env)
		if IsError(value) {
			return value
		}
		elements[i] = value
	}
	return &Array{Elements: elements}
}

func (e *Evaluator) evalObjectLiteral(node *ast.ObjectLiteral, env *Environment) Object {
	record := NewRecord()
	for _, field := range node.Fields {
		value := e.Eval(field.Value, env)
		if IsError(value) {
			return value
		}
		record.Set(field.Key, value)
	}
	return record
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression, env *Environment) Object {
	fn := e.Eval(node.Function, env)
	if IsError(fn) {
		return fn
	}

	args := make([]Object, len(node.Arguments))
	for i, arg := range node.Arguments {
		value := e.Eval(arg, env)
		if IsError(value) {
			return value
		}
		args[i] = value
	}

	result := e.applyFunction(fn, args)
	if err, ok := result.(*Error); ok {
		return positioned(err, node)
	}
	return result
}

func (e *Evaluator) applyFunction(fn Object, args []Object) Object {
	switch fn := fn.(type) {
	case *Function:
		return e.callFunction(fn, args, nil, nil)
	case *Builtin:
		return fn.Fn(e, args)
	case *BoundMethod:
		method, ok := fn.Method.(*Function)
		if !ok {
			return newError("Cannot call %s", typeName(fn.Method))
		}
		return e.callFunction(method, args, fn.Receiver, fn.Home)
	case *Class:
		return newError("Use 'new' to instantiate class '%s'", fn.Name)
	default:
		return newError("Cannot call %s", typeName(fn))
	}
}

// callFunction invokes a tree-walk closure. The receiver and home class
// are non-nil for method calls and bind `this` and `super` lookup.
func (e *Evaluator) callFunction(fn *Function, args []Object, receiver *Instance, home *Class) Object {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	if len(args) != len(fn.Params) {
		return newError("Function '%s' expected %d arguments, found %d",
			name, len(fn.Params), len(args))
	}

	if fn.IsAsync {
		return e.scheduleAsyncCall(fn, args, receiver, home)
	}

	if err := e.checkDepth(fn.Body); err != nil {
		return err
	}
	e.callDepth++
	defer func() { e.callDepth-- }()

	env := NewEnclosedEnvironment(fn.Env)
	for i, param := range fn.Params {
		env.Set(param.Name.Value, args[i])
	}
	if receiver != nil {
		env.Set("this", receiver)
		if home != nil && home.Super != nil {
			env.Set("super", home.Super)
		}
	}

	result := e.evalBlockStatement(fn.Body, env)
	switch result := result.(type) {
	case *ReturnValue:
		return result.Value
	case *Error:
		return result
	default:
		return NULL
	}
}

// scheduleAsyncCall queues the body and returns a pending promise. The
// body runs when something drives the scheduler (an await or the
// end-of-program drain).
func (e *Evaluator) scheduleAsyncCall(fn *Function, args []Object, receiver *Instance, home *Class) Object {
	promise := e.Sched.NewPromise()
	sync := &Function{Name: fn.Name, Params: fn.Params, Body: fn.Body, Env: fn.Env}
	e.Sched.Schedule(promise, func() {
		result := e.callFunction(sync, args, receiver, home)
		if IsError(result) {
			e.Sched.Reject(promise, result)
			return
		}
		e.Sched.Resolve(promise, result)
	})
	return promise
}

func (e *Evaluator) evalAwaitExpression(node *ast.AwaitExpression, env *Environment) Object {
	value := e.Eval(node.Value, env)
	if IsError(value) {
		return value
	}
	result := e.Sched.Await(value)
	if err, ok := result.(*Error); ok {
		return positioned(err, node)
	}
	return result
}

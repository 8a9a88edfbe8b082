package evaluator

import (
	"github.com/infra-lang/infra/internal/ast"
)

func (e *Evaluator) evalClassStatement(stmt *ast.ClassStatement, env *Environment) Object {
	class := &Class{Name: stmt.Name.Value, Methods: make(map[string]Object)}

	if stmt.SuperClass != nil {
		superValue, ok := env.Get(stmt.SuperClass.Value)
		if !ok {
			return e.errAt(stmt.SuperClass, "Undefined variable '%s'", stmt.SuperClass.Value)
		}
		super, ok := superValue.(*Class)
		if !ok {
			return e.errAt(stmt.SuperClass, "Superclass must be a class, got %s", typeName(superValue))
		}
		class.Super = super
	}

	for _, method := range stmt.Methods {
		class.Methods[method.Name.Value] = &Function{
			Name:    method.Name.Value,
			Params:  method.Params,
			Body:    method.Body,
			Env:     env,
			IsAsync: method.IsAsync,
		}
	}

	env.Set(class.Name, class)
	return NULL
}

func (e *Evaluator) evalNewExpression(node *ast.NewExpression, env *Environment) Object {
	value := e.Eval(node.Class, env)
	if IsError(value) {
		return value
	}
	class, ok := value.(*Class)
	if !ok {
		return e.errAt(node, "'new' requires a class, got %s", typeName(value))
	}

	args := make([]Object, len(node.Arguments))
	for i, arg := range node.Arguments {
		argValue := e.Eval(arg, env)
		if IsError(argValue) {
			return argValue
		}
		args[i] = argValue
	}

	instance := &Instance{Class: class, Fields: NewRecord()}
	if init, home, found := class.FindMethod("init"); found {
		initFn, ok := init.(*Function)
		if !ok {
			return e.errAt(node, "Cannot call %s", typeName(init))
		}
		result := e.callFunction(initFn, args, instance, home)
		if IsError(result) {
			return positioned(result.(*Error), node)
		}
	} else if len(args) != 0 {
		return e.errAt(node, "Function 'init' expected 0 arguments, found %d", len(args))
	}
	return instance
}

func (e *Evaluator) evalThisExpression(node *ast.ThisExpression, env *Environment) Object {
	if value, ok := env.Get("this"); ok {
		return value
	}
	return e.errAt(node, "'this' outside of a method")
}

// evalSuperExpression resolves super.m against the superclass of the
// class that defined the currently running method, bound to this.
func (e *Evaluator) evalSuperExpression(node *ast.SuperExpression, env *Environment) Object {
	superValue, ok := env.Get("super")
	if !ok {
		return e.errAt(node, "'super' outside of a subclass method")
	}
	super, ok := superValue.(*Class)
	if !ok {
		return e.errAt(node, "'super' outside of a subclass method")
	}
	thisValue, ok := env.Get("this")
	if !ok {
		return e.errAt(node, "'super' outside of a method")
	}
	receiver, ok := thisValue.(*Instance)
	if !ok {
		return e.errAt(node, "'super' outside of a method")
	}

	method, home, found := super.FindMethod(node.Method.Value)
	if !found {
		return e.errAt(node, "Undefined method '%s' on class '%s'", node.Method.Value, super.Name)
	}
	return &BoundMethod{Receiver: receiver, Method: method, Home: home}
}

func (e *Evaluator) evalMemberExpression(node *ast.MemberExpression, env *Environment) Object {
	object := e.Eval(node.Object, env)
	if IsError(object) {
		return object
	}

	result := GetMember(object, node.Property.Value)
	if err, ok := result.(*Error); ok {
		return positioned(err, node)
	}
	return result
}

// GetMember implements property access, shared by both backends. Records
// read missing keys as null; instances check fields before methods;
// modules expose their exports.
func GetMember(object Object, name string) Object {
	switch obj := object.(type) {
	case *Record:
		if value, found := obj.Get(name); found {
			return value
		}
		return NULL
	case *Instance:
		if value, found := obj.Fields.Get(name); found {
			return value
		}
		if method, home, found := obj.Class.FindMethod(name); found {
			return &BoundMethod{Receiver: obj, Method: method, Home: home}
		}
		return newError("Undefined property '%s' on instance of '%s'", name, obj.Class.Name)
	case *Module:
		if value, found := obj.Exports.Get(name); found {
			return value
		}
		return newError("Module '%s' has no export '%s'", obj.Name, name)
	default:
		return newError("Cannot access property '%s' on %s", name, typeName(object))
	}
}

func (e *Evaluator) evalMemberAssign(target *ast.MemberExpression, value Object, env *Environment) Object {
	object := e.Eval(target.Object, env)
	if IsError(object) {
		return object
	}

	result := SetMember(object, target.Property.Value, value)
	if err, ok := result.(*Error); ok {
		return positioned(err, target)
	}
	return result
}

// SetMember writes a property, shared by both backends.
func SetMember(object Object, name string, value Object) Object {
	switch obj := object.(type) {
	case *Record:
		obj.Set(name, value)
		return value
	case *Instance:
		obj.Fields.Set(name, value)
		return value
	default:
		return newError("Cannot set property '%s' on %s", name, typeName(object))
	}
}

package evaluator

import (
	"fmt"
)

// BuiltinModule returns the named built-in stdlib module, or false. A
// fresh Module is built per call so one run's mutations cannot leak
// into another.
func BuiltinModule(name string) (*Module, bool) {
	switch name {
	case "math":
		return mathModule(), true
	case "string":
		return stringModule(), true
	case "array":
		return arrayModule(), true
	case "io":
		return ioModule(), true
	case "json":
		return jsonModule(), true
	case "yaml":
		return yamlModule(), true
	case "db":
		return dbModule(), true
	case "async":
		return asyncModule(), true
	default:
		return nil, false
	}
}

func moduleOf(name string, fns map[string]BuiltinFunction, constants map[string]Object, order []string) *Module {
	exports := NewRecord()
	for _, fname := range order {
		if fn, ok := fns[fname]; ok {
			exports.Set(fname, &Builtin{Name: name + "." + fname, Fn: fn})
		} else if c, ok := constants[fname]; ok {
			exports.Set(fname, c)
		}
	}
	return &Module{Name: name, Exports: exports}
}

// Argument helpers. Builtins validate their own arity and types; the
// errors they produce are ordinary runtime errors.

func wantArgs(name string, want int, args []Object) *Error {
	if len(args) != want {
		return newError("Function '%s' expected %d arguments, found %d", name, want, len(args))
	}
	return nil
}

func argNumber(name string, args []Object, i int) (float64, *Error) {
	num, ok := args[i].(*Number)
	if !ok {
		return 0, newError("%s: argument %d must be a number, got %s", name, i+1, typeName(args[i]))
	}
	return num.Value, nil
}

func argString(name string, args []Object, i int) (string, *Error) {
	s, ok := args[i].(*String)
	if !ok {
		return "", newError("%s: argument %d must be a string, got %s", name, i+1, typeName(args[i]))
	}
	return s.Value, nil
}

func argArray(name string, args []Object, i int) (*Array, *Error) {
	arr, ok := args[i].(*Array)
	if !ok {
		return nil, newError("%s: argument %d must be an array, got %s", name, i+1, typeName(args[i]))
	}
	return arr, nil
}

// argCallable rejects plain data values up front for a clear message.
// Anything else is handed to the active engine's call hook, which owns
// the callability decision; compiled closures live outside this package.
func argCallable(name string, args []Object, i int) (Object, *Error) {
	switch args[i].(type) {
	case *Null, *Boolean, *Number, *String, *Array, *Record,
		*Module, *Promise, *Class, *Instance:
		return nil, newError("%s: argument %d must be a function, got %s", name, i+1, typeName(args[i]))
	}
	return args[i], nil
}

// objectToGo converts a runtime value to plain Go data for the json,
// yaml, and db bridges.
func objectToGo(obj Object) (interface{}, error) {
	switch v := obj.(type) {
	case *Null:
		return nil, nil
	case *Boolean:
		return v.Value, nil
	case *Number:
		return v.Value, nil
	case *String:
		return v.Value, nil
	case *Array:
		out := make([]interface{}, len(v.Elements))
		for i, e := range v.Elements {
			converted, err := objectToGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case *Record:
		out := make(map[string]interface{}, len(v.Keys))
		for _, k := range v.Keys {
			converted, err := objectToGo(v.Pairs[k])
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %s to plain data", typeName(obj))
	}
}

// goToObject converts decoded Go data back to runtime values. Integer
// kinds collapse into the single number type.
func goToObject(data interface{}) (Object, error) {
	switch v := data.(type) {
	case nil:
		return NULL, nil
	case bool:
		return NativeBool(v), nil
	case int:
		return &Number{Value: float64(v)}, nil
	case int64:
		return &Number{Value: float64(v)}, nil
	case float64:
		return &Number{Value: v}, nil
	case string:
		return &String{Value: v}, nil
	case []interface{}:
		elements := make([]Object, len(v))
		for i, item := range v {
			obj, err := goToObject(item)
			if err != nil {
				return nil, err
			}
			elements[i] = obj
		}
		return &Array{Elements: elements}, nil
	case map[string]interface{}:
		record := NewRecord()
		for key, item := range v {
			obj, err := goToObject(item)
			if err != nil {
				return nil, err
			}
			record.Set(key, obj)
		}
		sortRecordKeys(record)
		return record, nil
	case map[interface{}]interface{}:
		record := NewRecord()
		for key, item := range v {
			obj, err := goToObject(item)
			if err != nil {
				return nil, err
			}
			record.Set(fmt.Sprintf("%v", key), obj)
		}
		sortRecordKeys(record)
		return record, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", data)
	}
}

// sortRecordKeys makes records decoded from unordered Go maps print
// deterministically.
func sortRecordKeys(r *Record) {
	for i := 1; i < len(r.Keys); i++ {
		for j := i; j > 0 && r.Keys[j] < r.Keys[j-1]; j-- {
			r.Keys[j], r.Keys[j-1] = r.Keys[j-1], r.Keys[j]
		}
	}
}

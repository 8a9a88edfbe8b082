package evaluator

import (
	"sort"
	"strings"
)

func arrayModule() *Module {
	fns := map[string]BuiltinFunction{
		"length":   arrayLength,
		"push":     arrayPush,
		"pop":      arrayPop,
		"shift":    arrayShift,
		"unshift":  arrayUnshift,
		"slice":    arraySlice,
		"join":     arrayJoin,
		"index_of": arrayIndexOf,
		"contains": arrayContains,
		"reverse":  arrayReverse,
		"sort":     arraySort,
		"map":      arrayMap,
		"filter":   arrayFilter,
		"reduce":   arrayReduce,
		"find":     arrayFind,
		"first":    arrayFirst,
		"last":     arrayLast,
	}
	return moduleOf("array", fns, nil, []string{
		"length", "push", "pop", "shift", "unshift", "slice", "join",
		"index_of", "contains", "reverse", "sort", "map", "filter",
		"reduce", "find", "first", "last",
	})
}

func arrayLength(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.length", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.length", args, 0)
	if err != nil {
		return err
	}
	return &Number{Value: float64(len(arr.Elements))}
}

// push mutates in place and returns the array, preserving aliasing.
func arrayPush(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.push", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.push", args, 0)
	if err != nil {
		return err
	}
	arr.Elements = append(arr.Elements, args[1])
	return arr
}

func arrayPop(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.pop", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.pop", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return newError("Cannot pop from empty array")
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last
}

func arrayShift(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.shift", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.shift", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return newError("Cannot shift from empty array")
	}
	first := arr.Elements[0]
	arr.Elements = arr.Elements[1:]
	return first
}

func arrayUnshift(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.unshift", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.unshift", args, 0)
	if err != nil {
		return err
	}
	arr.Elements = append([]Object{args[1]}, arr.Elements...)
	return arr
}

// slice returns a copy of [start, end); the original is untouched.
func arraySlice(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.slice", 3, args); err != nil {
		return err
	}
	arr, err := argArray("array.slice", args, 0)
	if err != nil {
		return err
	}
	start, err := argNumber("array.slice", args, 1)
	if err != nil {
		return err
	}
	end, err := argNumber("array.slice", args, 2)
	if err != nil {
		return err
	}
	si, ei := int(start), int(end)
	if si < 0 || ei > len(arr.Elements) || si > ei {
		return newError("Array index %d out of bounds for array of length %d", si, len(arr.Elements))
	}
	out := make([]Object, ei-si)
	copy(out, arr.Elements[si:ei])
	return &Array{Elements: out}
}

func arrayJoin(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.join", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.join", args, 0)
	if err != nil {
		return err
	}
	sep, err := argString("array.join", args, 1)
	if err != nil {
		return err
	}
	parts := make([]string, len(arr.Elements))
	for i, e := range arr.Elements {
		parts[i] = e.Inspect()
	}
	return &String{Value: strings.Join(parts, sep)}
}

func arrayIndexOf(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.index_of", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.index_of", args, 0)
	if err != nil {
		return err
	}
	for i, e := range arr.Elements {
		if Equals(e, args[1]) {
			return &Number{Value: float64(i)}
		}
	}
	return &Number{Value: -1}
}

func arrayContains(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.contains", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.contains", args, 0)
	if err != nil {
		return err
	}
	for _, e := range arr.Elements {
		if Equals(e, args[1]) {
			return TRUE
		}
	}
	return FALSE
}

// reverse returns a reversed copy.
func arrayReverse(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.reverse", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.reverse", args, 0)
	if err != nil {
		return err
	}
	out := make([]Object, len(arr.Elements))
	for i, e := range arr.Elements {
		out[len(out)-1-i] = e
	}
	return &Array{Elements: out}
}

// sort returns a sorted copy. Elements must be all numbers or all
// strings.
func arraySort(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.sort", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.sort", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return &Array{Elements: []Object{}}
	}

	out := make([]Object, len(arr.Elements))
	copy(out, arr.Elements)

	switch arr.Elements[0].(type) {
	case *Number:
		for _, e := range out {
			if _, ok := e.(*Number); !ok {
				return newError("Cannot sort array with mixed types")
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].(*Number).Value < out[j].(*Number).Value
		})
	case *String:
		for _, e := range out {
			if _, ok := e.(*String); !ok {
				return newError("Cannot sort array with mixed types")
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].(*String).Value < out[j].(*String).Value
		})
	default:
		return newError("Cannot sort array of %s", typeName(arr.Elements[0]))
	}
	return &Array{Elements: out}
}

func arrayMap(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.map", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.map", args, 0)
	if err != nil {
		return err
	}
	fn, err := argCallable("array.map", args, 1)
	if err != nil {
		return err
	}
	out := make([]Object, len(arr.Elements))
	for i, e := range arr.Elements {
		result := ctx.CallFunction(fn, []Object{e})
		if IsError(result) {
			return result
		}
		out[i] = result
	}
	return &Array{Elements: out}
}

func arrayFilter(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.filter", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.filter", args, 0)
	if err != nil {
		return err
	}
	fn, err := argCallable("array.filter", args, 1)
	if err != nil {
		return err
	}
	out := []Object{}
	for _, e := range arr.Elements {
		result := ctx.CallFunction(fn, []Object{e})
		if IsError(result) {
			return result
		}
		if IsTruthy(result) {
			out = append(out, e)
		}
	}
	return &Array{Elements: out}
}

func arrayReduce(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.reduce", 3, args); err != nil {
		return err
	}
	arr, err := argArray("array.reduce", args, 0)
	if err != nil {
		return err
	}
	fn, err := argCallable("array.reduce", args, 1)
	if err != nil {
		return err
	}
	acc := args[2]
	for _, e := range arr.Elements {
		acc = ctx.CallFunction(fn, []Object{acc, e})
		if IsError(acc) {
			return acc
		}
	}
	return acc
}

func arrayFind(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.find", 2, args); err != nil {
		return err
	}
	arr, err := argArray("array.find", args, 0)
	if err != nil {
		return err
	}
	fn, err := argCallable("array.find", args, 1)
	if err != nil {
		return err
	}
	for _, e := range arr.Elements {
		result := ctx.CallFunction(fn, []Object{e})
		if IsError(result) {
			return result
		}
		if IsTruthy(result) {
			return e
		}
	}
	return NULL
}

func arrayFirst(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.first", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.first", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return NULL
	}
	return arr.Elements[0]
}

func arrayLast(ctx CallContext, args []Object) Object {
	if err := wantArgs("array.last", 1, args); err != nil {
		return err
	}
	arr, err := argArray("array.last", args, 0)
	if err != nil {
		return err
	}
	if len(arr.Elements) == 0 {
		return NULL
	}
	return arr.Elements[len(arr.Elements)-1]
}

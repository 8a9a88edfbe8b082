package evaluator

import "math"

func mathModule() *Module {
	fns := map[string]BuiltinFunction{
		"abs":   mathAbs,
		"floor": mathFloor,
		"ceil":  mathCeil,
		"round": mathRound,
		"sqrt":  mathSqrt,
		"pow":   mathPow,
		"min":   mathMin,
		"max":   mathMax,
	}
	constants := map[string]Object{
		"pi": &Number{Value: math.Pi},
		"e":  &Number{Value: math.E},
	}
	return moduleOf("math", fns, constants, []string{
		"abs", "floor", "ceil", "round", "sqrt", "pow", "min", "max", "pi", "e",
	})
}

func mathUnary(name string, f func(float64) float64) BuiltinFunction {
	return func(ctx CallContext, args []Object) Object {
		if err := wantArgs(name, 1, args); err != nil {
			return err
		}
		v, err := argNumber(name, args, 0)
		if err != nil {
			return err
		}
		return &Number{Value: f(v)}
	}
}

var (
	mathAbs   = mathUnary("math.abs", math.Abs)
	mathFloor = mathUnary("math.floor", math.Floor)
	mathCeil  = mathUnary("math.ceil", math.Ceil)
	mathRound = mathUnary("math.round", math.Round)
)

func mathSqrt(ctx CallContext, args []Object) Object {
	if err := wantArgs("math.sqrt", 1, args); err != nil {
		return err
	}
	v, err := argNumber("math.sqrt", args, 0)
	if err != nil {
		return err
	}
	if v < 0 {
		return newError("Cannot take square root of negative number")
	}
	return &Number{Value: math.Sqrt(v)}
}

func mathPow(ctx CallContext, args []Object) Object {
	if err := wantArgs("math.pow", 2, args); err != nil {
		return err
	}
	base, err := argNumber("math.pow", args, 0)
	if err != nil {
		return err
	}
	exp, err := argNumber("math.pow", args, 1)
	if err != nil {
		return err
	}
	return &Number{Value: math.Pow(base, exp)}
}

// min and max are variadic over one or more numbers.
func mathMin(ctx CallContext, args []Object) Object {
	return mathFold("math.min", args, math.Min)
}

func mathMax(ctx CallContext, args []Object) Object {
	return mathFold("math.max", args, math.Max)
}

func mathFold(name string, args []Object, f func(float64, float64) float64) Object {
	if len(args) == 0 {
		return newError("%s: expected at least 1 argument, found 0", name)
	}
	best, err := argNumber(name, args, 0)
	if err != nil {
		return err
	}
	for i := 1; i < len(args); i++ {
		v, err := argNumber(name, args, i)
		if err != nil {
			return err
		}
		best = f(best, v)
	}
	return &Number{Value: best}
}

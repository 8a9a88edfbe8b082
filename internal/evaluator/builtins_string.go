package evaluator

import (
	"strings"
)

func stringModule() *Module {
	fns := map[string]BuiltinFunction{
		"length":      stringLength,
		"upper":       stringUpper,
		"lower":       stringLower,
		"trim":        stringTrim,
		"split":       stringSplit,
		"contains":    stringContains,
		"replace":     stringReplace,
		"substring":   stringSubstring,
		"index_of":    stringIndexOf,
		"starts_with": stringStartsWith,
		"ends_with":   stringEndsWith,
		"repeat":      stringRepeat,
		"pad_left":    stringPadLeft,
		"pad_right":   stringPadRight,
	}
	return moduleOf("string", fns, nil, []string{
		"length", "upper", "lower", "trim", "split", "contains", "replace",
		"substring", "index_of", "starts_with", "ends_with", "repeat",
		"pad_left", "pad_right",
	})
}

func stringUnary(name string, f func(string) Object) BuiltinFunction {
	return func(ctx CallContext, args []Object) Object {
		if err := wantArgs(name, 1, args); err != nil {
			return err
		}
		s, err := argString(name, args, 0)
		if err != nil {
			return err
		}
		return f(s)
	}
}

func stringBinary(name string, f func(a, b string) Object) BuiltinFunction {
	return func(ctx CallContext, args []Object) Object {
		if err := wantArgs(name, 2, args); err != nil {
			return err
		}
		a, err := argString(name, args, 0)
		if err != nil {
			return err
		}
		b, err := argString(name, args, 1)
		if err != nil {
			return err
		}
		return f(a, b)
	}
}

var (
	stringLength = stringUnary("string.length", func(s string) Object {
		return &Number{Value: float64(len([]rune(s)))}
	})
	stringUpper = stringUnary("string.upper", func(s string) Object {
		return &String{Value: strings.ToUpper(s)}
	})
	stringLower = stringUnary("string.lower", func(s string) Object {
		return &String{Value: strings.ToLower(s)}
	})
	stringTrim = stringUnary("string.trim", func(s string) Object {
		return &String{Value: strings.TrimSpace(s)}
	})
	stringContains = stringBinary("string.contains", func(a, b string) Object {
		return NativeBool(strings.Contains(a, b))
	})
	stringStartsWith = stringBinary("string.starts_with", func(a, b string) Object {
		return NativeBool(strings.HasPrefix(a, b))
	})
	stringEndsWith = stringBinary("string.ends_with", func(a, b string) Object {
		return NativeBool(strings.HasSuffix(a, b))
	})
	stringSplit = stringBinary("string.split", func(s, sep string) Object {
		parts := strings.Split(s, sep)
		elements := make([]Object, len(parts))
		for i, p := range parts {
			elements[i] = &String{Value: p}
		}
		return &Array{Elements: elements}
	})
	stringIndexOf = stringBinary("string.index_of", func(s, sub string) Object {
		// Rune offset, not byte offset; -1 when absent.
		idx := strings.Index(s, sub)
		if idx < 0 {
			return &Number{Value: -1}
		}
		return &Number{Value: float64(len([]rune(s[:idx])))}
	})
)

func stringReplace(ctx CallContext, args []Object) Object {
	if err := wantArgs("string.replace", 3, args); err != nil {
		return err
	}
	s, err := argString("string.replace", args, 0)
	if err != nil {
		return err
	}
	old, err := argString("string.replace", args, 1)
	if err != nil {
		return err
	}
	repl, err := argString("string.replace", args, 2)
	if err != nil {
		return err
	}
	return &String{Value: strings.ReplaceAll(s, old, repl)}
}

func stringSubstring(ctx CallContext, args []Object) Object {
	if err := wantArgs("string.substring", 3, args); err != nil {
		return err
	}
	s, err := argString("string.substring", args, 0)
	if err != nil {
		return err
	}
	start, err := argNumber("string.substring", args, 1)
	if err != nil {
		return err
	}
	end, err := argNumber("string.substring", args, 2)
	if err != nil {
		return err
	}
	runes := []rune(s)
	si, ei := int(start), int(end)
	if si < 0 || ei > len(runes) || si > ei {
		return newError("Substring indices out of bounds")
	}
	return &String{Value: string(runes[si:ei])}
}

func stringRepeat(ctx CallContext, args []Object) Object {
	if err := wantArgs("string.repeat", 2, args); err != nil {
		return err
	}
	s, err := argString("string.repeat", args, 0)
	if err != nil {
		return err
	}
	count, err := argNumber("string.repeat", args, 1)
	if err != nil {
		return err
	}
	if count < 0 {
		return newError("string.repeat: count must not be negative")
	}
	return &String{Value: strings.Repeat(s, int(count))}
}

func stringPad(name string, left bool) BuiltinFunction {
	return func(ctx CallContext, args []Object) Object {
		if err := wantArgs(name, 3, args); err != nil {
			return err
		}
		s, err := argString(name, args, 0)
		if err != nil {
			return err
		}
		width, err := argNumber(name, args, 1)
		if err != nil {
			return err
		}
		pad, err := argString(name, args, 2)
		if err != nil {
			return err
		}
		if pad == "" {
			return &String{Value: s}
		}
		runes := []rune(s)
		var out strings.Builder
		if !left {
			out.WriteString(s)
		}
		for n := len(runes); n < int(width); {
			for _, r := range pad {
				if n >= int(width) {
					break
				}
				out.WriteRune(r)
				n++
			}
		}
		if left {
			return &String{Value: out.String() + s}
		}
		return &String{Value: out.String()}
	}
}

var (
	stringPadLeft  = stringPad("string.pad_left", true)
	stringPadRight = stringPad("string.pad_right", false)
)

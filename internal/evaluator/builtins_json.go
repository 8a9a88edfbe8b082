package evaluator

import (
	"encoding/json"
)

func jsonModule() *Module {
	fns := map[string]BuiltinFunction{
		"parse":     jsonParse,
		"stringify": jsonStringify,
	}
	return moduleOf("json", fns, nil, []string{"parse", "stringify"})
}

func jsonParse(ctx CallContext, args []Object) Object {
	if err := wantArgs("json.parse", 1, args); err != nil {
		return err
	}
	content, err := argString("json.parse", args, 0)
	if err != nil {
		return err
	}
	var data interface{}
	if parseErr := json.Unmarshal([]byte(content), &data); parseErr != nil {
		return newError("JSON parse error: %v", parseErr)
	}
	obj, convErr := goToObject(data)
	if convErr != nil {
		return newError("JSON parse error: %v", convErr)
	}
	return obj
}

func jsonStringify(ctx CallContext, args []Object) Object {
	if err := wantArgs("json.stringify", 1, args); err != nil {
		return err
	}
	data, convErr := objectToGo(args[0])
	if convErr != nil {
		return newError("JSON encoding error: %v", convErr)
	}
	bytes, encErr := json.Marshal(data)
	if encErr != nil {
		return newError("JSON encoding error: %v", encErr)
	}
	return &String{Value: string(bytes)}
}

package evaluator

import (
	"os"

	"gopkg.in/yaml.v3"
)

func yamlModule() *Module {
	fns := map[string]BuiltinFunction{
		"parse":      yamlParse,
		"stringify":  yamlStringify,
		"read_file":  yamlReadFile,
		"write_file": yamlWriteFile,
	}
	return moduleOf("yaml", fns, nil, []string{"parse", "stringify", "read_file", "write_file"})
}

func yamlDecode(content string) Object {
	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		return newError("YAML parse error: %v", err)
	}
	obj, err := goToObject(data)
	if err != nil {
		return newError("YAML parse error: %v", err)
	}
	return obj
}

func yamlParse(ctx CallContext, args []Object) Object {
	if err := wantArgs("yaml.parse", 1, args); err != nil {
		return err
	}
	content, err := argString("yaml.parse", args, 0)
	if err != nil {
		return err
	}
	return yamlDecode(content)
}

func yamlStringify(ctx CallContext, args []Object) Object {
	if err := wantArgs("yaml.stringify", 1, args); err != nil {
		return err
	}
	data, convErr := objectToGo(args[0])
	if convErr != nil {
		return newError("YAML encoding error: %v", convErr)
	}
	bytes, encErr := yaml.Marshal(data)
	if encErr != nil {
		return newError("YAML encoding error: %v", encErr)
	}
	return &String{Value: string(bytes)}
}

func yamlReadFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("yaml.read_file", 1, args); err != nil {
		return err
	}
	path, err := argString("yaml.read_file", args, 0)
	if err != nil {
		return err
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return newError("Failed to read file '%s': %v", path, readErr)
	}
	return yamlDecode(string(content))
}

func yamlWriteFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("yaml.write_file", 2, args); err != nil {
		return err
	}
	path, err := argString("yaml.write_file", args, 0)
	if err != nil {
		return err
	}
	data, convErr := objectToGo(args[1])
	if convErr != nil {
		return newError("YAML encoding error: %v", convErr)
	}
	bytes, encErr := yaml.Marshal(data)
	if encErr != nil {
		return newError("YAML encoding error: %v", encErr)
	}
	if writeErr := os.WriteFile(path, bytes, 0644); writeErr != nil {
		return newError("Failed to write file '%s': %v", path, writeErr)
	}
	return NULL
}

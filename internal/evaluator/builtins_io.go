package evaluator

import (
	"bufio"
	"os"
	"strings"
)

func ioModule() *Module {
	fns := map[string]BuiltinFunction{
		"read_file":   ioReadFile,
		"write_file":  ioWriteFile,
		"append_file": ioAppendFile,
		"exists":      ioExists,
		"delete_file": ioDeleteFile,
		"input":       ioInput,
	}
	return moduleOf("io", fns, nil, []string{
		"read_file", "write_file", "append_file", "exists", "delete_file", "input",
	})
}

func ioReadFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("io.read_file", 1, args); err != nil {
		return err
	}
	path, err := argString("io.read_file", args, 0)
	if err != nil {
		return err
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return newError("Failed to read file '%s': %v", path, readErr)
	}
	return &String{Value: string(content)}
}

func ioWriteFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("io.write_file", 2, args); err != nil {
		return err
	}
	path, err := argString("io.write_file", args, 0)
	if err != nil {
		return err
	}
	content, err := argString("io.write_file", args, 1)
	if err != nil {
		return err
	}
	if writeErr := os.WriteFile(path, []byte(content), 0644); writeErr != nil {
		return newError("Failed to write file '%s': %v", path, writeErr)
	}
	return NULL
}

func ioAppendFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("io.append_file", 2, args); err != nil {
		return err
	}
	path, err := argString("io.append_file", args, 0)
	if err != nil {
		return err
	}
	content, err := argString("io.append_file", args, 1)
	if err != nil {
		return err
	}
	f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if openErr != nil {
		return newError("Failed to write file '%s': %v", path, openErr)
	}
	defer f.Close()
	if _, writeErr := f.WriteString(content); writeErr != nil {
		return newError("Failed to write file '%s': %v", path, writeErr)
	}
	return NULL
}

func ioExists(ctx CallContext, args []Object) Object {
	if err := wantArgs("io.exists", 1, args); err != nil {
		return err
	}
	path, err := argString("io.exists", args, 0)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	return NativeBool(statErr == nil)
}

func ioDeleteFile(ctx CallContext, args []Object) Object {
	if err := wantArgs("io.delete_file", 1, args); err != nil {
		return err
	}
	path, err := argString("io.delete_file", args, 0)
	if err != nil {
		return err
	}
	if rmErr := os.Remove(path); rmErr != nil {
		return newError("Failed to delete file '%s': %v", path, rmErr)
	}
	return NULL
}

// input reads one line from stdin, without the trailing newline.
func ioInput(ctx CallContext, args []Object) Object {
	if len(args) > 1 {
		return newError("Function 'io.input' expected 0 or 1 arguments, found %d", len(args))
	}
	if len(args) == 1 {
		prompt, err := argString("io.input", args, 0)
		if err != nil {
			return err
		}
		_, _ = ctx.Output().Write([]byte(prompt))
	}
	reader := bufio.NewReader(os.Stdin)
	line, readErr := reader.ReadString('\n')
	if readErr != nil && line == "" {
		return NULL
	}
	return &String{Value: strings.TrimRight(line, "\r\n")}
}

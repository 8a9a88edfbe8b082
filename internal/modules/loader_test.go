package modules

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

func parseSource(t *testing.T, input string) *ast.Program {
	t.Helper()
	ctx := &pipeline.PipelineContext{Source: input}
	tokens := lexer.New(input).Tokenize()
	p := parser.New(token.NewStream(tokens), ctx)
	program := p.ParseProgram()
	for _, err := range ctx.Errors {
		t.Fatalf("parse error: %s", err.Error())
	}
	return program
}

func writeModule(t *testing.T, dir, name, source string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runInDir(t *testing.T, dir, source string) (evaluator.Object, string) {
	t.Helper()
	program := parseSource(t, source)
	var out bytes.Buffer
	e := evaluator.New(&out, evaluator.NewScheduler())
	e.Loader = NewLoader(dir)
	result := e.Eval(program, evaluator.NewEnvironment())
	return result, out.String()
}

func TestBuiltinModulesResolveFirst(t *testing.T) {
	_, out := runInDir(t, t.TempDir(), "import math\nprint(math.abs(-2))")
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFileModuleExports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shapes.infra", `
export function area(w, h) {
	return w * h
}
export let unit = "cm"
let hidden = "internal"
`)
	_, out := runInDir(t, dir, `
import shapes
print(shapes.area(3, 4))
print(shapes.unit)`)
	if out != "12\ncm\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUnexportedBindingIsNotVisible(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m.infra", "export let a = 1\nlet b = 2")
	result, _ := runInDir(t, dir, "from m import b\nprint(b)")
	err, ok := result.(*evaluator.Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if !strings.Contains(err.Message, "Module 'm' has no export 'b'") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestFromImportWithAlias(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util.infra", `
export function double(x) {
	return x * 2
}`)
	_, out := runInDir(t, dir, "from util import double as twice\nprint(twice(8))")
	if out != "16\n" {
		t.Errorf("output = %q", out)
	}
}

func TestModuleBodyEvaluatesOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "once.infra", `
print("loaded")
export let v = 1
`)
	_, out := runInDir(t, dir, `
import once
from once import v
print(v)`)
	if out != "loaded\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNestedImportsResolveRelatively(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lib")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeModule(t, sub, "inner.infra", "export let deep = 42")
	writeModule(t, sub, "outer.infra", `
from inner import deep
export let value = deep
`)
	_, out := runInDir(t, dir, "from \"lib/outer\" import value\nprint(value)")
	if out != "42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMissingModule(t *testing.T) {
	result, _ := runInDir(t, t.TempDir(), "import nope")
	err, ok := result.(*evaluator.Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if !strings.Contains(err.Message, "Module 'nope' not found") {
		t.Errorf("error = %q", err.Message)
	}
}

func TestImportCycleIsReported(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.infra", "import b\nexport let x = 1")
	writeModule(t, dir, "b.infra", "import a\nexport let y = 2")
	result, _ := runInDir(t, dir, "import a")
	err, ok := result.(*evaluator.Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if !strings.Contains(err.Message, "Import cycle detected") {
		t.Errorf("error = %q", err.Message)
	}
	if !strings.Contains(err.Message, "a -> b -> a") {
		t.Errorf("cycle chain missing from %q", err.Message)
	}
}

func TestModuleRuntimeErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "bad.infra", `throw "broken"`)
	result, _ := runInDir(t, dir, "import bad")
	err, ok := result.(*evaluator.Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if !strings.Contains(err.Message, "Error in module 'bad'") {
		t.Errorf("error = %q", err.Message)
	}
}

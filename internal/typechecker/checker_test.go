package typechecker

import (
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

func check(t *testing.T, input string) []*diagnostics.Error {
	t.Helper()
	ctx := &pipeline.PipelineContext{Source: input}
	tokens := lexer.New(input).Tokenize()
	p := parser.New(token.NewStream(tokens), ctx)
	program := p.ParseProgram()
	for _, err := range ctx.Errors {
		t.Fatalf("parse error: %s", err.Error())
	}
	return New(false).Check(program)
}

func expectClean(t *testing.T, input string) {
	t.Helper()
	findings := check(t, input)
	for _, f := range findings {
		t.Errorf("unexpected finding: %s", f.Error())
	}
}

func expectFinding(t *testing.T, input, contains string) {
	t.Helper()
	findings := check(t, input)
	if len(findings) == 0 {
		t.Fatalf("expected a finding containing %q, got none", contains)
	}
	for _, f := range findings {
		if strings.Contains(f.Message, contains) {
			return
		}
	}
	t.Errorf("no finding contains %q; got %q", contains, findings[0].Message)
}

func TestAnnotatedLet(t *testing.T) {
	expectClean(t, "let x: number = 42")
	expectClean(t, `let s: string = "hi"`)
	expectClean(t, "let b: boolean = true")
	expectFinding(t, `let x: number = "42"`,
		"variable 'x' is annotated as number but initialized with string")
	expectFinding(t, "let b: boolean = 0",
		"variable 'b' is annotated as boolean but initialized with number")
}

func TestUnannotatedNeverWarns(t *testing.T) {
	expectClean(t, `let x = "anything"
let y = x
let z = [1, "mixed", true]`)
}

func TestUnionTypes(t *testing.T) {
	expectClean(t, "let v: number | string = 42")
	expectClean(t, `let v: number | string = "42"`)
	expectFinding(t, "let v: number | string = true",
		"annotated as number | string but initialized with boolean")
}

func TestArrayElementIndex(t *testing.T) {
	expectClean(t, "let xs: [number] = [1, 2, 3]")
	expectFinding(t, `let xs: [number] = [1, "two", 3]`,
		"Array element at index 1 has type string, expected number")
}

func TestObjectPropertyKey(t *testing.T) {
	expectClean(t, `let p: {name: string, age: number} = {name: "ada", age: 36}`)
	expectFinding(t, `let p: {name: string, age: number} = {name: "ada", age: "36"}`,
		"Object property 'age' has type string, expected number")
	expectFinding(t, `let p: {name: string, age: number} = {name: "ada"}`,
		"Object property 'age' is missing")
}

func TestCallArguments(t *testing.T) {
	expectClean(t, `
function double(n: number) -> number {
	return n * 2
}
double(21)`)
	expectFinding(t, `
function double(n: number) -> number {
	return n * 2
}
double("21")`, "Argument 1 to 'double' has type string, expected number")
}

func TestReturnType(t *testing.T) {
	expectClean(t, `
function greet(name: string) -> string {
	return "hi " + name
}`)
	expectFinding(t, `
function answer() -> number {
	return "forty-two"
}`, "Return value has type string, expected number")
}

func TestInferenceThroughVariables(t *testing.T) {
	expectFinding(t, `
let n = 42
let s: string = n`, "annotated as string but initialized with number")
}

func TestArithmeticInference(t *testing.T) {
	expectClean(t, "let n: number = 1 + 2 * 3")
	expectClean(t, `let s: string = "a" + 1`)
	expectFinding(t, `let n: number = "a" + "b"`,
		"annotated as number but initialized with string")
}

func TestUnknownStaysAny(t *testing.T) {
	// Whatever an unresolvable call returns must not be flagged.
	expectClean(t, `
let x: number = mystery()
let y: string = x[0]`)
}

func TestStrictSeverity(t *testing.T) {
	input := `let x: number = "no"`
	ctx := &pipeline.PipelineContext{Source: input}
	tokens := lexer.New(input).Tokenize()
	p := parser.New(token.NewStream(tokens), ctx)
	program := p.ParseProgram()

	relaxed := New(false).Check(program)
	if len(relaxed) != 1 || relaxed[0].Severity != diagnostics.SeverityWarning {
		t.Fatalf("relaxed mode: expected one warning, got %v", relaxed)
	}
	strict := New(true).Check(program)
	if len(strict) != 1 || strict[0].Severity != diagnostics.SeverityError {
		t.Fatalf("strict mode: expected one error, got %v", strict)
	}
	if relaxed[0].Code != diagnostics.ErrT001 {
		t.Errorf("code = %s, want %s", relaxed[0].Code, diagnostics.ErrT001)
	}
}

func TestFindingPosition(t *testing.T) {
	findings := check(t, "let ok = 1\nlet x: number = \"no\"")
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Line != 2 {
		t.Errorf("line = %d, want 2", findings[0].Line)
	}
}

func TestProcessorStopsPipelineOnlyWhenStrict(t *testing.T) {
	input := `let x: number = "no"`
	run := func(strict bool) *pipeline.PipelineContext {
		ctx := &pipeline.PipelineContext{Source: input}
		tokens := lexer.New(input).Tokenize()
		p := parser.New(token.NewStream(tokens), ctx)
		ctx.AstRoot = p.ParseProgram()
		return (&TypeCheckProcessor{Strict: strict}).Process(ctx)
	}
	if diagnostics.HasErrors(run(false).Errors) {
		t.Error("advisory finding must not be a hard error")
	}
	if !diagnostics.HasErrors(run(true).Errors) {
		t.Error("strict finding must be a hard error")
	}
}

package backend

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
)

type builtinLoader struct{}

func (builtinLoader) Load(name string, ctx evaluator.CallContext) (*evaluator.Module, *evaluator.Error) {
	if module, ok := evaluator.BuiltinModule(name); ok {
		return module, nil
	}
	return nil, &evaluator.Error{Message: fmt.Sprintf("Module '%s' not found", name)}
}

func runOn(t *testing.T, source string, useVM bool) (evaluator.Object, string, []*diagnostics.Error) {
	t.Helper()
	var out bytes.Buffer
	result, errs := RunSource(source, &Options{
		UseVM:  useVM,
		Out:    &out,
		Loader: builtinLoader{},
	})
	return result, out.String(), errs
}

// runBoth runs the same source under both engines and fails the test if
// their observable behavior differs.
func runBoth(t *testing.T, source string) (string, []*diagnostics.Error) {
	t.Helper()
	_, treeOut, treeErrs := runOn(t, source, false)
	_, vmOut, vmErrs := runOn(t, source, true)

	if treeOut != vmOut {
		t.Errorf("output diverges:\ntree-walk: %q\nvm:        %q", treeOut, vmOut)
	}
	if len(treeErrs) != len(vmErrs) {
		t.Fatalf("diagnostic count diverges: tree-walk %d, vm %d", len(treeErrs), len(vmErrs))
	}
	for i := range treeErrs {
		if treeErrs[i].Message != vmErrs[i].Message {
			t.Errorf("diagnostic %d diverges:\ntree-walk: %q\nvm:        %q",
				i, treeErrs[i].Message, vmErrs[i].Message)
		}
	}
	return treeOut, treeErrs
}

func TestParityPrintArithmetic(t *testing.T) {
	out, errs := runBoth(t, "let x = 1\nlet y = 2\nprint(x + y)")
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
	if len(errs) != 0 {
		t.Errorf("unexpected diagnostics: %v", errs)
	}
}

func TestParityFactorial(t *testing.T) {
	out, _ := runBoth(t, `
function factorial(n) {
	if n <= 1 {
		return 1
	}
	return n * factorial(n - 1)
}
print(factorial(10))`)
	if out != "3628800\n" {
		t.Errorf("output = %q", out)
	}
}

func TestParityClosures(t *testing.T) {
	runBoth(t, `
function makeCounter() {
	let count = 0
	return function() {
		count = count + 1
		return count
	}
}
let c1 = makeCounter()
let c2 = makeCounter()
print(c1())
print(c1())
print(c2())`)
}

func TestParityAliasing(t *testing.T) {
	out, _ := runBoth(t, `
let a = [1, 2, 3]
let b = a
b[0] = 99
print(a[0])
let o = {x: 1}
let p = o
p.x = 5
print(o.x)`)
	if out != "99\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestParityFinallyAlwaysRuns(t *testing.T) {
	out, _ := runBoth(t, `
function f() {
	try {
		return "r"
	} finally {
		print("finally")
	}
}
print(f())
try {
	throw "x"
} catch e {
	print("caught " + e)
} finally {
	print("done")
}`)
	if out != "finally\nr\ncaught x\ndone\n" {
		t.Errorf("output = %q", out)
	}
}

func TestParityLoopsAndControlFlow(t *testing.T) {
	runBoth(t, `
let sum = 0
for i in range(0, 10) {
	if i == 3: continue
	if i == 8: break
	sum = sum + i
}
print(sum)
let j = 0
while j < 3 {
	j = j + 1
	print(j)
}`)
}

func TestParityClasses(t *testing.T) {
	runBoth(t, `
class Animal {
	init(name) {
		this.name = name
	}
	speak() {
		return this.name + " makes a sound"
	}
}
class Dog extends Animal {
	speak() {
		return super.speak() + " (bark)"
	}
}
let d = new Dog("rex")
print(d.speak())
print(d.name)`)
}

func TestParityAsync(t *testing.T) {
	runBoth(t, `
import async
async function make(x) {
	return x * 10
}
async function main() {
	let results = await async.all([make(1), make(2)])
	print(results)
}
await main()`)
}

func TestParityFStringsAndModules(t *testing.T) {
	runBoth(t, `
import math
from string import upper
let n = math.max(3, 1, 4)
let shout = upper("hey")
print(f"max is {n}, shout: {shout}")`)
}

func TestParityRuntimeErrors(t *testing.T) {
	sources := []string{
		"1 / 0",
		"missing",
		"let a = [1]\na[5]",
		"true + 1",
		"function f(a) { return a }\nf(1, 2)",
		`class A {}
A()`,
		"for i in range(\"a\", 2): print(i)",
	}
	for _, src := range sources {
		_, errs := runBoth(t, src)
		if len(errs) == 0 {
			t.Errorf("%q: expected a runtime diagnostic", src)
		}
	}
}

func TestParityUncaughtThrowWithFinally(t *testing.T) {
	out, errs := runBoth(t, `
try {
	throw "inner"
} finally {
	print("finally")
}`)
	if out != "finally\n" {
		t.Errorf("output = %q", out)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "inner") {
		t.Errorf("diagnostics = %v", errs)
	}
}

func TestTypecheckWarningsDoNotStopRun(t *testing.T) {
	for _, useVM := range []bool{false, true} {
		_, out, errs := runOn(t, "let x: number = \"oops\"\nprint(\"ran\")", useVM)
		if out != "ran\n" {
			t.Errorf("useVM=%v: output = %q, program should still run", useVM, out)
		}
		found := false
		for _, e := range errs {
			if e.Code == diagnostics.ErrT001 && e.Severity == diagnostics.SeverityWarning {
				found = true
			}
		}
		if !found {
			t.Errorf("useVM=%v: expected a T001 warning, got %v", useVM, errs)
		}
	}
}

func TestStrictTypesStopRun(t *testing.T) {
	var out bytes.Buffer
	_, errs := RunSource("let x: number = \"oops\"\nprint(\"ran\")", &Options{
		StrictTypes: true,
		Out:         &out,
	})
	if out.String() != "" {
		t.Errorf("strict run produced output %q", out.String())
	}
	if !diagnostics.HasErrors(errs) {
		t.Errorf("expected hard error, got %v", errs)
	}
}

func TestNoTypecheckSkipsWarnings(t *testing.T) {
	_, _, errs := runOn(t, "let x: number = \"oops\"", false)
	if len(errs) == 0 {
		t.Fatal("expected warning when checking is on")
	}
	var out bytes.Buffer
	_, errs = RunSource("let x: number = \"oops\"", &Options{NoTypecheck: true, Out: &out})
	if len(errs) != 0 {
		t.Errorf("expected no diagnostics with --no-typecheck, got %v", errs)
	}
}

func TestReplStatePersistsTreeWalk(t *testing.T) {
	env := evaluator.NewEnvironment()
	sched := evaluator.NewScheduler()
	var out bytes.Buffer
	opts := &Options{Out: &out, Env: env, Sched: sched}

	if _, errs := RunSource("let x = 40", opts); len(errs) != 0 {
		t.Fatalf("first run: %v", errs)
	}
	result, errs := RunSource("x + 2", opts)
	if len(errs) != 0 {
		t.Fatalf("second run: %v", errs)
	}
	num, ok := result.(*evaluator.Number)
	if !ok || num.Value != 42 {
		t.Errorf("result = %v, want 42", result)
	}
}

func TestReplStatePersistsVM(t *testing.T) {
	globals := make(map[string]evaluator.Object)
	sched := evaluator.NewScheduler()
	var out bytes.Buffer
	opts := &Options{UseVM: true, Out: &out, Globals: globals, Sched: sched}

	if _, errs := RunSource("let x = 40", opts); len(errs) != 0 {
		t.Fatalf("first run: %v", errs)
	}
	result, errs := RunSource("x + 2", opts)
	if len(errs) != 0 {
		t.Fatalf("second run: %v", errs)
	}
	num, ok := result.(*evaluator.Number)
	if !ok || num.Value != 42 {
		t.Errorf("result = %v, want 42", result)
	}
}

func TestDisasmWriter(t *testing.T) {
	var out, listing bytes.Buffer
	_, errs := RunSource("print(1 + 2)", &Options{UseVM: true, Out: &out, Disasm: &listing})
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if !strings.Contains(listing.String(), "== script ==") {
		t.Errorf("listing = %q", listing.String())
	}
	if out.String() != "3\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestParseErrorsCarryPosition(t *testing.T) {
	_, _, errs := runOn(t, "let = 5", false)
	if len(errs) == 0 {
		t.Fatal("expected parse error")
	}
	if errs[0].Line == 0 {
		t.Errorf("diagnostic missing line: %+v", errs[0])
	}
}

func TestParityReturnThroughFinally(t *testing.T) {
	out, _ := runBoth(t, `
function f() {
	try {
		return 1
	} finally {
		let cleanup = 99
		print(cleanup)
	}
}
print(f())`)
	if out != "99\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestParityIfWithoutElseThenStatement(t *testing.T) {
	out, errs := runBoth(t, `
let x = 1
if true {
	x = 2
}
print(x)`)
	if len(errs) != 0 {
		t.Fatalf("unexpected diagnostics: %v", errs)
	}
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}
}

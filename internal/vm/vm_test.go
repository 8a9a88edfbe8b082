package vm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

type testLoader struct{}

func (testLoader) Load(name string, ctx evaluator.CallContext) (*evaluator.Module, *evaluator.Error) {
	if module, ok := evaluator.BuiltinModule(name); ok {
		return module, nil
	}
	return nil, &evaluator.Error{Message: fmt.Sprintf("Module '%s' not found", name)}
}

func parseProgram(t *testing.T, input string) *ast.Program {
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

func compileSource(t *testing.T, input string) *CompiledFunction {
	t.Helper()
	fn, errs := Compile(parseProgram(t, input))
	if len(errs) > 0 {
		t.Fatalf("compile error: %s", errs[0].Error())
	}
	return fn
}

func runSource(t *testing.T, input string) (evaluator.Object, string) {
	t.Helper()
	fn := compileSource(t, input)
	var out bytes.Buffer
	machine := New(nil, evaluator.NewScheduler(), &out, testLoader{})
	result, err := machine.Run(fn)
	if err != nil {
		t.Fatalf("runtime error: %s", err.Message)
	}
	return result, out.String()
}

func runExpectError(t *testing.T, input string, contains string) string {
	t.Helper()
	fn := compileSource(t, input)
	var out bytes.Buffer
	machine := New(nil, evaluator.NewScheduler(), &out, testLoader{})
	_, err := machine.Run(fn)
	if err == nil {
		t.Fatalf("expected runtime error containing %q", contains)
	}
	if !strings.Contains(err.Message, contains) {
		t.Errorf("error %q does not contain %q", err.Message, contains)
	}
	return out.String()
}

func testNumber(t *testing.T, obj evaluator.Object, want float64) {
	t.Helper()
	num, ok := obj.(*evaluator.Number)
	if !ok {
		t.Fatalf("expected Number, got %T (%v)", obj, obj)
	}
	if num.Value != want {
		t.Errorf("number = %v, want %v", num.Value, want)
	}
}

func TestScriptResultValue(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1 + 2", 3},
		{"10 - 4", 6},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"2 + 3 * 4", 14},
		{"let x = 7\nx * x", 49},
	}
	for _, tt := range tests {
		result, _ := runSource(t, tt.input)
		testNumber(t, result, tt.want)
	}
}

func TestPrintOutput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print(3)", "3\n"},
		{"print(10 / 4)", "2.5\n"},
		{"print(10 / 5)", "2\n"},
		{`print("a" + "b")`, "ab\n"},
		{`print("n = " + 42)`, "n = 42\n"},
		{`print("arr: " + [1, 2])`, "arr: [1, 2]\n"},
		{`print("n: " + null)`, "n: null\n"},
	}
	for _, tt := range tests {
		_, out := runSource(t, tt.input)
		if out != tt.want {
			t.Errorf("%q: output = %q, want %q", tt.input, out, tt.want)
		}
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 / 0", "Division by zero"},
		{"1 % 0", "Division by zero"},
		{"true + 1", "Operands of '+'"},
		{"[1] - 2", "Operands of '-'"},
		{`1 < "a"`, "Cannot compare number with string"},
		{"-\"x\"", "Operand of '-' must be a number"},
		{"let a = [1, 2]\na[5]", "Array index 5 out of bounds for array of length 2"},
		{"let a = [1]\na[0.5]", "whole number"},
	}
	for _, tt := range tests {
		runExpectError(t, tt.input, tt.want)
	}
}

func TestGlobals(t *testing.T) {
	_, out := runSource(t, "let x = 1\nx = x + 1\nprint(x)")
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}

	runExpectError(t, "missing", "Undefined variable 'missing'")
	runExpectError(t, "missing = 1", "Undefined variable 'missing'")
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	globals := make(map[string]evaluator.Object)
	var out bytes.Buffer
	sched := evaluator.NewScheduler()

	first := New(globals, sched, &out, testLoader{})
	if _, err := first.Run(compileSource(t, "let x = 41")); err != nil {
		t.Fatalf("first run: %s", err.Message)
	}

	second := New(globals, sched, &out, testLoader{})
	result, err := second.Run(compileSource(t, "x + 1"))
	if err != nil {
		t.Fatalf("second run: %s", err.Message)
	}
	testNumber(t, result, 42)
}

func TestLocalScopes(t *testing.T) {
	_, out := runSource(t, `
let x = 1
if true {
	let x = 2
	print(x)
}
print(x)`)
	if out != "2\n1\n" {
		t.Errorf("output = %q", out)
	}

	_, out = runSource(t, `
let x = 1
if true {
	x = 2
}
print(x)`)
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestShortCircuit(t *testing.T) {
	_, out := runSource(t, `
function boom() {
	print("boom")
	return true
}
let a = false && boom()
let b = true || boom()
print(a)
print(b)`)
	if out != "false\ntrue\n" {
		t.Errorf("output = %q", out)
	}
}

func TestClosuresCaptureVariables(t *testing.T) {
	_, out := runSource(t, `
function makeCounter() {
	let count = 0
	return function() {
		count = count + 1
		return count
	}
}
let counter = makeCounter()
print(counter())
print(counter())
print(counter())`)
	if out != "1\n2\n3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestClosuresShareCapturedSlot(t *testing.T) {
	// Two closures over the same variable must see each other's writes.
	_, out := runSource(t, `
function makePair() {
	let n = 0
	let inc = function() { n = n + 1 }
	let get = function() { return n }
	return [inc, get]
}
let pair = makePair()
let inc = pair[0]
let get = pair[1]
inc()
inc()
print(get())`)
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUpvalueClosesOnScopeExit(t *testing.T) {
	_, out := runSource(t, `
let f = null
if true {
	let captured = "alive"
	f = function() { return captured }
}
print(f())`)
	if out != "alive\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRecursion(t *testing.T) {
	_, out := runSource(t, `
function factorial(n) {
	if n <= 1 {
		return 1
	}
	return n * factorial(n - 1)
}
print(factorial(5))`)
	if out != "120\n" {
		t.Errorf("output = %q, want 120", out)
	}
}

func TestLocalRecursiveFunction(t *testing.T) {
	// A let-bound function in a nested scope can call itself.
	_, out := runSource(t, `
function run() {
	let fib = function(n) {
		if n < 2 {
			return n
		}
		return fib(n - 1) + fib(n - 2)
	}
	return fib(10)
}
print(run())`)
	if out != "55\n" {
		t.Errorf("output = %q, want 55", out)
	}
}

func TestArityMismatch(t *testing.T) {
	runExpectError(t, `
function add(a, b) {
	return a + b
}
add(1)`, "Function 'add' expected 2 arguments, found 1")
}

func TestAliasing(t *testing.T) {
	_, out := runSource(t, `
let a = [1, 2, 3]
let b = a
b[0] = 99
print(a[0])`)
	if out != "99\n" {
		t.Errorf("array aliasing output = %q", out)
	}

	_, out = runSource(t, `
let a = {x: 1}
let b = a
b.x = 5
print(a.x)`)
	if out != "5\n" {
		t.Errorf("object aliasing output = %q", out)
	}
}

func TestMissingObjectKeyReadsNull(t *testing.T) {
	_, out := runSource(t, "let o = {a: 1}\nprint(o[\"b\"])")
	if out != "null\n" {
		t.Errorf("output = %q", out)
	}
}

func TestWhileLoop(t *testing.T) {
	_, out := runSource(t, `
let i = 0
let sum = 0
while i < 5 {
	i = i + 1
	sum = sum + i
}
print(sum)`)
	if out != "15\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForRangeLoop(t *testing.T) {
	_, out := runSource(t, `
let sum = 0
for i in range(0, 5) {
	sum = sum + i
}
print(sum)`)
	if out != "10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForRangeTruncatesLowerBound(t *testing.T) {
	_, out := runSource(t, `
for i in range(0.9, 3) {
	print(i)
}`)
	if out != "0\n1\n2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForRangeBoundTypeError(t *testing.T) {
	runExpectError(t, `for i in range("a", 3): print(i)`, "range() bounds must be numbers, got string")
	runExpectError(t, `for i in range(0, null): print(i)`, "range() bounds must be numbers, got null")
}

func TestBreakContinue(t *testing.T) {
	_, out := runSource(t, `
for i in range(0, 10) {
	if i == 3: continue
	if i == 6: break
	print(i)
}`)
	if out != "0\n1\n2\n4\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestContinueInWhile(t *testing.T) {
	_, out := runSource(t, `
let i = 0
while i < 5 {
	i = i + 1
	if i == 2: continue
	print(i)
}`)
	if out != "1\n3\n4\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTryCatch(t *testing.T) {
	_, out := runSource(t, `
try {
	let x = 1 / 0
	print("unreachable")
} catch e {
	print("caught: " + e)
}`)
	if out != "caught: Division by zero\n" {
		t.Errorf("output = %q", out)
	}
}

func TestThrowAnyValue(t *testing.T) {
	_, out := runSource(t, `
try {
	throw "boom"
} catch e {
	print(e)
}
try {
	throw 42
} catch e {
	print(e)
}`)
	if out != "boom\n42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCatchAcrossCallFrames(t *testing.T) {
	// The handler lives in the caller; the throw happens two frames down.
	_, out := runSource(t, `
function inner() {
	throw "deep"
}
function middle() {
	inner()
}
try {
	middle()
} catch e {
	print("caught: " + e)
}`)
	if out != "caught: deep\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFinallyAlwaysRuns(t *testing.T) {
	_, out := runSource(t, `
try {
	print("body")
} finally {
	print("finally")
}`)
	if out != "body\nfinally\n" {
		t.Errorf("normal path output = %q", out)
	}

	_, out = runSource(t, `
try {
	throw "x"
} catch e {
	print("catch")
} finally {
	print("finally")
}`)
	if out != "catch\nfinally\n" {
		t.Errorf("catch path output = %q", out)
	}

	_, out = runSource(t, `
function f() {
	try {
		return "r"
	} finally {
		print("finally")
	}
}
print(f())`)
	if out != "finally\nr\n" {
		t.Errorf("return path output = %q", out)
	}
}

func TestFinallyRunsOnBreak(t *testing.T) {
	_, out := runSource(t, `
for i in range(0, 5) {
	try {
		if i == 2: break
		print(i)
	} finally {
		print("f" + i)
	}
}`)
	if out != "0\nf0\n1\nf1\nf2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUncaughtRethrowAfterFinally(t *testing.T) {
	out := runExpectError(t, `
try {
	throw "inner"
} finally {
	print("finally")
}`, "inner")
	if out != "finally\n" {
		t.Errorf("output = %q", out)
	}
}

func TestClasses(t *testing.T) {
	_, out := runSource(t, `
class Animal {
	init(name) {
		this.name = name
	}
	speak() {
		return this.name + " makes a sound"
	}
}
let a = new Animal("cat")
print(a.speak())
print(a.name)`)
	if out != "cat makes a sound\ncat\n" {
		t.Errorf("output = %q", out)
	}
}

func TestInitReturnsInstance(t *testing.T) {
	// Even an early return inside init yields the instance.
	_, out := runSource(t, `
class Box {
	init(v) {
		this.v = v
		return
	}
}
let b = new Box(9)
print(b.v)`)
	if out != "9\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCallClassWithoutNew(t *testing.T) {
	runExpectError(t, `
class A {}
A()`, "Use 'new' to instantiate class 'A'")
}

func TestInheritanceAndSuper(t *testing.T) {
	_, out := runSource(t, `
class Animal {
	init(name) {
		this.name = name
	}
	speak() {
		return this.name + " makes a sound"
	}
}
class Dog extends Animal {
	init(name) {
		super.init(name)
	}
	speak() {
		return super.speak() + " (bark)"
	}
}
let d = new Dog("rex")
print(d.speak())`)
	if out != "rex makes a sound (bark)\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMethodLookupAtCallTime(t *testing.T) {
	_, out := runSource(t, `
class Base {
	greet() {
		return "hello from " + this.kind()
	}
	kind() {
		return "base"
	}
}
class Derived extends Base {
	kind() {
		return "derived"
	}
}
let d = new Derived()
print(d.greet())`)
	if out != "hello from derived\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUndefinedSuperMethod(t *testing.T) {
	runExpectError(t, `
class Base {}
class Sub extends Base {
	go() {
		return super.missing()
	}
}
let s = new Sub()
s.go()`, "Undefined method 'missing' on class 'Base'")
}

func TestFStrings(t *testing.T) {
	_, out := runSource(t, `
let a = 2
let b = 3
print(f"sum of {a} and {b} is {a + b}")`)
	if out != "sum of 2 and 3 is 5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAsyncAwait(t *testing.T) {
	_, out := runSource(t, `
async function fetchValue(x) {
	return x * 2
}
async function main() {
	let v = await fetchValue(21)
	print(v)
}
await main()`)
	if out != "42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAwaitRejected(t *testing.T) {
	_, out := runSource(t, `
async function boom() {
	throw "bad"
}
async function main() {
	try {
		await boom()
	} catch e {
		print("caught: " + e)
	}
}
await main()`)
	if out != "caught: bad\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAsyncAllPreservesOrder(t *testing.T) {
	_, out := runSource(t, `
import async
async function make(x) {
	return x
}
async function main() {
	let results = await async.all([make(1), make(2), make(3)])
	print(results)
}
await main()`)
	if out != "[1, 2, 3]\n" {
		t.Errorf("output = %q", out)
	}
}

func TestModuleImport(t *testing.T) {
	_, out := runSource(t, `
import math
print(math.abs(-3))
print(math.max(1, 9, 4))
print(math.pow(2, 10))`)
	if out != "3\n9\n1024\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFromImport(t *testing.T) {
	_, out := runSource(t, `
from math import sqrt, max as biggest
print(sqrt(16))
print(biggest(2, 7))`)
	if out != "4\n7\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBuiltinCallbacksReenterMachine(t *testing.T) {
	// array.map calls compiled closures back through the native bridge.
	_, out := runSource(t, `
import array
let nums = [1, 2, 3, 4]
print(array.map(nums, function(x) { return x * x }))
print(array.filter(nums, function(x) { return x % 2 == 0 }))
print(array.reduce(nums, function(acc, x) { return acc + x }, 0))`)
	if out != "[1, 4, 9, 16]\n[2, 4]\n10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStackOverflowIsError(t *testing.T) {
	runExpectError(t, `
function loop() {
	return loop()
}
loop()`, "Stack overflow")
}

func TestRuntimeErrorPositions(t *testing.T) {
	fn := compileSource(t, "let a = 1\nlet b = 0\na / b")
	var out bytes.Buffer
	machine := New(nil, evaluator.NewScheduler(), &out, testLoader{})
	_, err := machine.Run(fn)
	if err == nil {
		t.Fatal("expected runtime error")
	}
	if err.Line != 3 {
		t.Errorf("error line = %d, want 3", err.Line)
	}
}

func TestFinallyLocalsDoNotAliasReturnValue(t *testing.T) {
	// While a finally runs on the return path the in-flight value holds
	// a stack slot; locals declared in the finally must land above it.
	_, out := runSource(t, `
function f() {
	try {
		return 1
	} finally {
		let x = 99
		print(x)
	}
}
print(f())`)
	if out != "99\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBuiltinCallbackRejectsData(t *testing.T) {
	runExpectError(t, "import array\narray.map([1], 5)", "must be a function")
}

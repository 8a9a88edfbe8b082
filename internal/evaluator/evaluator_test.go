package evaluator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

type builtinLoader struct{}

func (builtinLoader) Load(name string, ctx CallContext) (*Module, *Error) {
	if module, ok := BuiltinModule(name); ok {
		return module, nil
	}
	return nil, newError("Module '%s' not found", name)
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

func evalSource(t *testing.T, input string) (Object, string) {
	t.Helper()
	program := parseProgram(t, input)
	var out bytes.Buffer
	e := New(&out, NewScheduler())
	e.Loader = builtinLoader{}
	result := e.Eval(program, NewEnvironment())
	return result, out.String()
}

func testNumber(t *testing.T, obj Object, want float64) {
	t.Helper()
	num, ok := obj.(*Number)
	if !ok {
		t.Fatalf("expected Number, got %T (%v)", obj, obj)
	}
	if num.Value != want {
		t.Errorf("number = %v, want %v", num.Value, want)
	}
}

func expectError(t *testing.T, obj Object, contains string) {
	t.Helper()
	err, ok := obj.(*Error)
	if !ok {
		t.Fatalf("expected Error, got %T (%v)", obj, obj)
	}
	if !strings.Contains(err.Message, contains) {
		t.Errorf("error %q does not contain %q", err.Message, contains)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1 + 2", 3},
		{"10 - 4", 6},
		{"3 * 4", 12},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"1e3 + 1", 1001},
	}
	for _, tt := range tests {
		result, _ := evalSource(t, tt.input)
		testNumber(t, result, tt.want)
	}
}

func TestPrintStatement(t *testing.T) {
	_, out := evalSource(t, "let x = 1\nlet y = 2\nprint(x + y)")
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
}

func TestNumberDisplay(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print(3)", "3\n"},
		{"print(2.5)", "2.5\n"},
		{"print(10 / 4)", "2.5\n"},
		{"print(10 / 5)", "2\n"},
		{"print(-0.5)", "-0.5\n"},
	}
	for _, tt := range tests {
		_, out := evalSource(t, tt.input)
		if out != tt.want {
			t.Errorf("%q: output = %q, want %q", tt.input, out, tt.want)
		}
	}
}

func TestStringCoercion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`print("a" + "b")`, "ab\n"},
		{`print("n = " + 42)`, "n = 42\n"},
		{`print(42 + " is n")`, "42 is n\n"},
		{`print("arr: " + [1, 2])`, "arr: [1, 2]\n"},
		{`print("ok: " + true)`, "ok: true\n"},
		{`print("n: " + null)`, "n: null\n"},
	}
	for _, tt := range tests {
		_, out := evalSource(t, tt.input)
		if out != tt.want {
			t.Errorf("%q: output = %q, want %q", tt.input, out, tt.want)
		}
	}
}

func TestArithmeticErrors(t *testing.T) {
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
	}
	for _, tt := range tests {
		result, _ := evalSource(t, tt.input)
		expectError(t, result, tt.want)
	}
}

func TestEqualityNeverErrors(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1 == 1", true},
		{`1 == "1"`, false},
		{"null == null", true},
		{"null == false", false},
		{"true != 1", true},
		{"[1] == [1]", false}, // reference equality
		{"{} == {}", false},
	}
	for _, tt := range tests {
		result, _ := evalSource(t, tt.input)
		b, ok := result.(*Boolean)
		if !ok {
			t.Fatalf("%q: expected Boolean, got %T", tt.input, result)
		}
		if b.Value != tt.want {
			t.Errorf("%q = %v, want %v", tt.input, b.Value, tt.want)
		}
	}
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`if null: print("t")`, ""},
		{`if 0: print("t")`, ""},
		{`if 0.5: print("t")`, "t\n"},
		{`if "": print("t")`, ""},
		{`if "x": print("t")`, "t\n"},
		{`if []: print("t")`, ""},
		{`if [0]: print("t")`, "t\n"},
		{`if {}: print("t")`, ""},
		{`if {a: 1}: print("t")`, "t\n"},
	}
	for _, tt := range tests {
		_, out := evalSource(t, tt.input)
		if out != tt.want {
			t.Errorf("%q: output = %q, want %q", tt.input, out, tt.want)
		}
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	// The right side must not evaluate when the left decides.
	_, out := evalSource(t, `
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

func TestScopes(t *testing.T) {
	_, out := evalSource(t, `
let x = 1
if true {
	let x = 2
	print(x)
}
print(x)`)
	if out != "2\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAssignmentUpdatesOuterScope(t *testing.T) {
	_, out := evalSource(t, `
let x = 1
if true {
	x = 2
}
print(x)`)
	if out != "2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUndefinedVariable(t *testing.T) {
	result, _ := evalSource(t, "missing")
	expectError(t, result, "Undefined variable 'missing'")

	result, _ = evalSource(t, "missing = 1")
	expectError(t, result, "Undefined variable 'missing'")
}

func TestFunctionsAndClosures(t *testing.T) {
	_, out := evalSource(t, `
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

func TestRecursion(t *testing.T) {
	_, out := evalSource(t, `
function factorial(n) {
	if n <= 1 {
		return 1
	}
	return n * factorial(n - 1)
}
print(factorial(5))`)
	if out != "120\n" {
		t.Errorf("factorial(5) output = %q, want 120", out)
	}
}

func TestArityMismatch(t *testing.T) {
	result, _ := evalSource(t, `
function add(a, b) {
	return a + b
}
add(1)`)
	expectError(t, result, "Function 'add' expected 2 arguments, found 1")
}

func TestArrayAliasing(t *testing.T) {
	_, out := evalSource(t, `
let a = [1, 2, 3]
let b = a
b[0] = 99
print(a[0])`)
	if out != "99\n" {
		t.Errorf("output = %q, want 99", out)
	}
}

func TestObjectAliasing(t *testing.T) {
	_, out := evalSource(t, `
let a = {x: 1}
let b = a
b.x = 5
print(a.x)`)
	if out != "5\n" {
		t.Errorf("output = %q, want 5", out)
	}
}

func TestIndexErrors(t *testing.T) {
	result, _ := evalSource(t, "let a = [1, 2]\na[5]")
	expectError(t, result, "Array index 5 out of bounds for array of length 2")

	result, _ = evalSource(t, "let a = [1]\na[0.5]")
	expectError(t, result, "whole number")

	// Missing object keys read as null.
	_, out := evalSource(t, "let o = {a: 1}\nprint(o[\"b\"])")
	if out != "null\n" {
		t.Errorf("missing key output = %q, want null", out)
	}
}

func TestWhileLoop(t *testing.T) {
	_, out := evalSource(t, `
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
	_, out := evalSource(t, `
let sum = 0
for i in range(0, 5) {
	sum = sum + i
}
print(sum)`)
	if out != "10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBreakContinue(t *testing.T) {
	_, out := evalSource(t, `
for i in range(0, 10) {
	if i == 3: continue
	if i == 6: break
	print(i)
}`)
	if out != "0\n1\n2\n4\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTryCatch(t *testing.T) {
	_, out := evalSource(t, `
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
	_, out := evalSource(t, `
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

func TestFinallyAlwaysRuns(t *testing.T) {
	// Normal path.
	_, out := evalSource(t, `
try {
	print("body")
} finally {
	print("finally")
}`)
	if out != "body\nfinally\n" {
		t.Errorf("normal path output = %q", out)
	}

	// Error path with catch.
	_, out = evalSource(t, `
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

	// Return path: finally runs before the function returns.
	_, out = evalSource(t, `
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

func TestUncaughtRethrow(t *testing.T) {
	result, out := evalSource(t, `
try {
	throw "inner"
} finally {
	print("finally")
}`)
	if out != "finally\n" {
		t.Errorf("output = %q", out)
	}
	expectError(t, result, "inner")
}

func TestClasses(t *testing.T) {
	_, out := evalSource(t, `
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

func TestInheritanceAndSuper(t *testing.T) {
	_, out := evalSource(t, `
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
	_, out := evalSource(t, `
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

func TestFStringEvaluation(t *testing.T) {
	_, out := evalSource(t, `
let a = 2
let b = 3
print(f"sum of {a} and {b} is {a + b}")`)
	if out != "sum of 2 and 3 is 5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAsyncAwait(t *testing.T) {
	_, out := evalSource(t, `
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
	_, out := evalSource(t, `
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
	_, out := evalSource(t, `
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

func TestMathModule(t *testing.T) {
	_, out := evalSource(t, `
import math
print(math.abs(-3))
print(math.max(1, 9, 4))
print(math.pow(2, 10))
print(math.floor(2.9))`)
	if out != "3\n9\n1024\n2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStringModule(t *testing.T) {
	_, out := evalSource(t, `
import string
print(string.upper("abc"))
print(string.split("a,b,c", ","))
print(string.contains("hello", "ell"))
print(string.substring("hello", 1, 3))`)
	if out != "ABC\n[a, b, c]\ntrue\nel\n" {
		t.Errorf("output = %q", out)
	}
}

func TestArrayModuleCallbacks(t *testing.T) {
	_, out := evalSource(t, `
import array
let nums = [1, 2, 3, 4]
print(array.map(nums, function(x) { return x * x }))
print(array.filter(nums, function(x) { return x % 2 == 0 }))
print(array.reduce(nums, function(acc, x) { return acc + x }, 0))`)
	if out != "[1, 4, 9, 16]\n[2, 4]\n10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFromImport(t *testing.T) {
	_, out := evalSource(t, `
from math import sqrt, max as biggest
print(sqrt(16))
print(biggest(2, 7))`)
	if out != "4\n7\n" {
		t.Errorf("output = %q", out)
	}
}

func TestJsonRoundTrip(t *testing.T) {
	_, out := evalSource(t, `
import json
let data = json.parse("{\"b\": 2, \"a\": [1, true, null]}")
print(data.a)
print(json.stringify([1, "x"]))`)
	if out != "[1, true, null]\n[1,\"x\"]\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStackOverflowIsError(t *testing.T) {
	result, _ := evalSource(t, `
function loop() {
	return loop()
}
loop()`)
	expectError(t, result, "Stack overflow")
}

// Package vm implements the bytecode compiler and virtual machine
// backend. Both backends share the evaluator's value model, so a value
// produced under the VM is indistinguishable from one produced by the
// tree walker.
package vm

// Opcode represents a single VM instruction.
type Opcode byte

const (
	// Constants and stack manipulation
	OP_CONST Opcode = iota // Push constant from pool (2-byte index)
	OP_POP                 // Discard top of stack
	OP_DUP                 // Duplicate top of stack
	OP_NIL                 // Push null
	OP_TRUE                // Push true
	OP_FALSE               // Push false

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_MOD // %
	OP_NEG // Unary minus
	OP_NOT // !

	// Comparison
	OP_EQ // ==
	OP_NE // !=
	OP_LT // <
	OP_LE // <=
	OP_GT // >
	OP_GE // >=

	OP_PRINT // Pop and write display form plus newline

	// Variables
	OP_GET_LOCAL     // Get local by slot (1 byte)
	OP_SET_LOCAL     // Set local by slot, value stays on stack
	OP_GET_GLOBAL    // Get global by name (2-byte constant index)
	OP_SET_GLOBAL    // Set existing global, value stays on stack
	OP_DEFINE_GLOBAL // Define global, pops value

	// Control flow (2-byte offsets, backpatched)
	OP_JUMP          // Unconditional forward jump
	OP_JUMP_IF_FALSE // Pop condition, jump forward when falsey
	OP_LOOP          // Jump backward

	// Functions and closures
	OP_CALL          // Call with argument count (1 byte)
	OP_RETURN        // Return from function
	OP_CLOSURE       // Wrap compiled function, capture upvalues
	OP_GET_UPVALUE   // Get captured variable (1 byte)
	OP_SET_UPVALUE   // Set captured variable, value stays on stack
	OP_CLOSE_UPVALUE // Hoist the top local into its upvalue and pop

	// Composites
	OP_MAKE_ARRAY   // Build array from top N values (2-byte count)
	OP_MAKE_OBJECT  // Build object from top N key/value pairs (2-byte count)
	OP_GET_INDEX    // container[index]
	OP_SET_INDEX    // container[index] = value
	OP_GET_PROPERTY // obj.name (2-byte constant index)
	OP_SET_PROPERTY // obj.name = value

	// Classes
	OP_CLASS     // Push new class (2-byte name constant)
	OP_INHERIT   // [super, class] -> [super], wires the chain
	OP_METHOD    // [class, closure] -> [class], attaches method
	OP_GET_SUPER // [receiver, super] -> [bound method] (2-byte name constant)
	OP_NEW       // Instantiate class with argument count (1 byte)

	// Exceptions
	OP_THROW     // Pop value, raise as runtime error
	OP_SETUP_TRY // Push handler (2-byte forward offset to handler code)
	OP_POP_TRY   // Discard the innermost handler

	OP_AWAIT  // Pop promise, drive scheduler until settled, push result
	OP_IMPORT // Load module by name (2-byte constant index)

	// OP_RANGE_CHECK validates a for-range bound: operand 1 truncates
	// (lower bound), operand 0 only checks (upper bound).
	OP_RANGE_CHECK

	OP_HALT // Stop execution, top of stack is the program result
)

// OpcodeNames maps opcodes to their string names (for disassembly).
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_POP:   "POP",
	OP_DUP:   "DUP",
	OP_NIL:   "NIL",
	OP_TRUE:  "TRUE",
	OP_FALSE: "FALSE",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_MOD: "MOD",
	OP_NEG: "NEG",
	OP_NOT: "NOT",

	OP_EQ: "EQ",
	OP_NE: "NE",
	OP_LT: "LT",
	OP_LE: "LE",
	OP_GT: "GT",
	OP_GE: "GE",

	OP_PRINT: "PRINT",

	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",
	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_LOOP:          "LOOP",

	OP_CALL:          "CALL",
	OP_RETURN:        "RETURN",
	OP_CLOSURE:       "CLOSURE",
	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",

	OP_MAKE_ARRAY:   "MAKE_ARRAY",
	OP_MAKE_OBJECT:  "MAKE_OBJECT",
	OP_GET_INDEX:    "GET_INDEX",
	OP_SET_INDEX:    "SET_INDEX",
	OP_GET_PROPERTY: "GET_PROPERTY",
	OP_SET_PROPERTY: "SET_PROPERTY",

	OP_CLASS:     "CLASS",
	OP_INHERIT:   "INHERIT",
	OP_METHOD:    "METHOD",
	OP_GET_SUPER: "GET_SUPER",
	OP_NEW:       "NEW",

	OP_THROW:     "THROW",
	OP_SETUP_TRY: "SETUP_TRY",
	OP_POP_TRY:   "POP_TRY",

	OP_AWAIT:  "AWAIT",
	OP_IMPORT: "IMPORT",

	OP_RANGE_CHECK: "RANGE_CHECK",

	OP_HALT: "HALT",
}

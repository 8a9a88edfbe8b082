package config

const (
	// MaxRecursionDepth bounds nested expressions in the parser.
	MaxRecursionDepth = 500

	// MaxCallDepth bounds the tree-walking evaluator's call stack.
	MaxCallDepth = 1000

	// InitialStackSize is the VM value stack's starting capacity; the
	// stack grows on demand.
	InitialStackSize = 2048

	// MaxFrameCount bounds VM call nesting.
	MaxFrameCount = 4096

	// MaxConstants is the per-chunk constant pool limit (2-byte operand).
	MaxConstants = 65535

	// MaxLocals is the per-function local slot limit.
	MaxLocals = 256

	// SourceExtension is the canonical source file suffix.
	SourceExtension = ".infra"
)

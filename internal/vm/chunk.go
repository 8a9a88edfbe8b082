package vm

import "github.com/infra-lang/infra/internal/evaluator"

// Chunk is a compiled bytecode sequence. Lines and Columns are side
// tables parallel to Code so runtime errors can report the source
// position of the failing instruction.
type Chunk struct {
	Code      []byte
	Constants []evaluator.Object
	Lines     []int
	Columns   []int
}

func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 256),
		Constants: make([]evaluator.Object, 0, 64),
		Lines:     make([]int, 0, 256),
		Columns:   make([]int, 0, 256),
	}
}

func (c *Chunk) Write(b byte, line, col int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
}

func (c *Chunk) WriteOp(op Opcode, line, col int) {
	c.Write(byte(op), line, col)
}

// AddConstant appends to the pool and returns the index. Existing
// entries are not deduplicated; the pool limit is checked by the
// compiler.
func (c *Chunk) AddConstant(value evaluator.Object) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// ReadU16 reads a big-endian 2-byte operand at offset.
func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

func (c *Chunk) Len() int {
	return len(c.Code)
}

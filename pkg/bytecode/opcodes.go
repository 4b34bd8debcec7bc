package bytecode

import "fmt"

// Opcode is a single program byte. The eight recognized values are the
// instruction set; every other value is a comment.
type Opcode byte

const (
	OpRight     Opcode = '>' // Move the data pointer one cell right
	OpLeft      Opcode = '<' // Move the data pointer one cell left
	OpInc       Opcode = '+' // Increment the current cell (wrapping)
	OpDec       Opcode = '-' // Decrement the current cell (wrapping)
	OpOut       Opcode = '.' // Write the current cell to output
	OpIn        Opcode = ',' // Read one byte of input into the current cell
	OpLoopOpen  Opcode = '[' // Jump past the matching ] if the current cell is zero
	OpLoopClose Opcode = ']' // Jump back to the matching [ if the current cell is nonzero
)

// OpcodeInfo provides metadata about each opcode for debugging and tracing.
type OpcodeInfo struct {
	Name        string // Human-readable name
	Description string // One-line effect summary
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpRight:     {"RIGHT", "move the data pointer one cell right"},
	OpLeft:      {"LEFT", "move the data pointer one cell left"},
	OpInc:       {"INC", "increment the current cell"},
	OpDec:       {"DEC", "decrement the current cell"},
	OpOut:       {"OUT", "write the current cell to output"},
	OpIn:        {"IN", "read one input byte into the current cell"},
	OpLoopOpen:  {"LOOP_OPEN", "skip the loop body if the current cell is zero"},
	OpLoopClose: {"LOOP_CLOSE", "repeat the loop body if the current cell is nonzero"},
}

// GetOpcodeInfo returns metadata for an opcode.
// Comment bytes get the name "COMMENT" and an empty description.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: "COMMENT"}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	if op.IsInstruction() {
		return GetOpcodeInfo(op).Name
	}
	return fmt.Sprintf("COMMENT(0x%02X)", byte(op))
}

// IsInstruction reports whether op is one of the eight instructions.
func (op Opcode) IsInstruction() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsBracket reports whether op is a loop-open or loop-close.
func (op Opcode) IsBracket() bool {
	return op == OpLoopOpen || op == OpLoopClose
}

// IsIO reports whether op touches the input or output stream.
func (op Opcode) IsIO() bool {
	return op == OpIn || op == OpOut
}

// AllOpcodes returns the instruction set in source order.
func AllOpcodes() []Opcode {
	return []Opcode{OpRight, OpLeft, OpInc, OpDec, OpOut, OpIn, OpLoopOpen, OpLoopClose}
}

// OpcodeCount returns the number of defined instructions.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

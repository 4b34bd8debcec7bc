package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
// Comment bytes are counted in the header but not listed.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder
	stats := Analyze(p)

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Length: %d bytes (%d instructions, %d comment bytes)\n",
		stats.Length, stats.Instructions, stats.Comments))
	sb.WriteString(fmt.Sprintf("; Loops: %d (max depth %d)\n", stats.Loops, stats.MaxDepth))

	if stats.Instructions > 0 {
		sb.WriteString("; Counts:")
		for _, op := range AllOpcodes() {
			if n := stats.Counts[op]; n > 0 {
				sb.WriteString(fmt.Sprintf(" %s=%d", op, n))
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	depth := 0
	for offset := range p.code {
		op := p.At(offset)
		if !op.IsInstruction() {
			continue
		}
		if op == OpLoopClose {
			depth--
		}
		sb.WriteString(fmt.Sprintf("%06X  %s\n", offset, p.disassembleInstruction(offset, depth)))
		if op == OpLoopOpen {
			depth++
		}
	}

	return sb.String()
}

// disassembleInstruction formats the instruction at offset, indented by depth.
func (p *Program) disassembleInstruction(offset, depth int) string {
	op := p.At(offset)
	indent := strings.Repeat("  ", depth)

	switch op {
	case OpLoopOpen:
		target, _ := p.Partner(offset)
		return fmt.Sprintf("%s%-10s %q -> %06X", indent, op, byte(op), target)
	case OpLoopClose:
		target, _ := p.Partner(offset)
		return fmt.Sprintf("%s%-10s %q <- %06X", indent, op, byte(op), target)
	default:
		return fmt.Sprintf("%s%-10s %q", indent, op, byte(op))
	}
}

package bytecode

// Stats summarises the static shape of a program.
type Stats struct {
	Length       int            // Total bytes, comments included
	Instructions int            // Bytes that are one of the eight instructions
	Comments     int            // All other bytes
	Loops        int            // Matched bracket pairs
	MaxDepth     int            // Deepest loop nesting
	Counts       map[Opcode]int // Occurrences per instruction
}

// Analyze walks a compiled program and collects its Stats.
func Analyze(p *Program) Stats {
	s := Stats{
		Length: p.Len(),
		Counts: make(map[Opcode]int, OpcodeCount()),
	}

	depth := 0
	for _, b := range p.code {
		op := Opcode(b)
		if !op.IsInstruction() {
			s.Comments++
			continue
		}
		s.Instructions++
		s.Counts[op]++

		switch op {
		case OpLoopOpen:
			s.Loops++
			depth++
			if depth > s.MaxDepth {
				s.MaxDepth = depth
			}
		case OpLoopClose:
			depth--
		}
	}
	return s
}

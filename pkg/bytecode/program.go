package bytecode

// Program is an immutable, bracket-checked instruction stream. It is built
// once by Compile and is safe to share between machines.
type Program struct {
	code  []byte
	jumps JumpTable
}

// Compile copies src and runs the bracket matcher over it. On a structural
// problem it returns the *StructuralError from Match and no program.
func Compile(src []byte) (*Program, error) {
	code := make([]byte, len(src))
	copy(code, src)

	jumps, err := Match(code)
	if err != nil {
		return nil, err
	}
	return &Program{code: code, jumps: jumps}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// programs embedded as constants.
func MustCompile(src string) *Program {
	p, err := Compile([]byte(src))
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the program length in bytes, comments included.
func (p *Program) Len() int {
	return len(p.code)
}

// At returns the byte at offset i as an opcode.
func (p *Program) At(i int) Opcode {
	return Opcode(p.code[i])
}

// Source returns a copy of the program bytes.
func (p *Program) Source() []byte {
	out := make([]byte, len(p.code))
	copy(out, p.code)
	return out
}

// Jumps returns a copy of the jump table.
func (p *Program) Jumps() JumpTable {
	out := make(JumpTable, len(p.jumps))
	copy(out, p.jumps)
	return out
}

// Partner returns the matching bracket offset for the bracket at i.
func (p *Program) Partner(i int) (int, bool) {
	return p.jumps.Target(i)
}

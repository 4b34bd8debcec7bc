package bytecode

// noJump marks a table slot that does not hold a bracket.
const noJump = -1

// JumpTable pairs every loop-open offset with its loop-close offset and back.
// It is indexed by program offset; slots for non-bracket bytes are unused.
type JumpTable []int

// Target returns the partner offset of the bracket at i.
func (t JumpTable) Target(i int) (int, bool) {
	if i < 0 || i >= len(t) || t[i] == noJump {
		return 0, false
	}
	return t[i], true
}

// Pairs returns every (open, close) pair ordered by open offset.
func (t JumpTable) Pairs() [][2]int {
	var pairs [][2]int
	for i, j := range t {
		if j != noJump && i < j {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// Match scans code once and resolves each loop-open to its loop-close.
//
// An unmatched loop-close fails immediately with its position. Loop-opens
// still pending at the end of the scan fail together, with every offending
// position listed in ascending order. Non-bracket bytes are ignored.
func Match(code []byte) (JumpTable, error) {
	table := make(JumpTable, len(code))
	for i := range table {
		table[i] = noJump
	}

	var stack []int
	for i, b := range code {
		switch Opcode(b) {
		case OpLoopOpen:
			stack = append(stack, i)
		case OpLoopClose:
			if len(stack) == 0 {
				return nil, &StructuralError{Kind: UnmatchedClose, Positions: []int{i}}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[open] = i
			table[i] = open
		}
	}

	if len(stack) > 0 {
		return nil, &StructuralError{Kind: UnmatchedOpen, Positions: stack}
	}
	return table, nil
}

// MatchAll is like Match but keeps scanning after an unmatched loop-close,
// collecting every structural problem in the source. Editors use it to report
// all bad brackets at once; execution always goes through Match.
func MatchAll(code []byte) (JumpTable, []*StructuralError) {
	table := make(JumpTable, len(code))
	for i := range table {
		table[i] = noJump
	}

	var (
		stack  []int
		closes []int
	)
	for i, b := range code {
		switch Opcode(b) {
		case OpLoopOpen:
			stack = append(stack, i)
		case OpLoopClose:
			if len(stack) == 0 {
				closes = append(closes, i)
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[open] = i
			table[i] = open
		}
	}

	var errs []*StructuralError
	for _, p := range closes {
		errs = append(errs, &StructuralError{Kind: UnmatchedClose, Positions: []int{p}})
	}
	if len(stack) > 0 {
		errs = append(errs, &StructuralError{Kind: UnmatchedOpen, Positions: stack})
	}
	return table, errs
}

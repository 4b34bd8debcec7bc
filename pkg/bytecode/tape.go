package bytecode

// TapeSize is the fixed number of cells on every tape.
const TapeSize = 1 << 20

// Tape is the fixed-size, zero-initialised byte memory of a machine together
// with its data pointer. The pointer is validated on every move and can never
// leave [0, TapeSize).
type Tape struct {
	cells []byte
	dp    int
}

// NewTape allocates a zeroed tape with the data pointer at cell 0.
func NewTape() *Tape {
	return &Tape{cells: make([]byte, TapeSize)}
}

// Len returns the number of cells.
func (t *Tape) Len() int { return len(t.cells) }

// Pointer returns the data pointer.
func (t *Tape) Pointer() int { return t.dp }

// Right moves the data pointer one cell right. Moving past the last cell
// fails with ErrTapeOverflow and leaves the pointer where it was.
func (t *Tape) Right() error {
	if t.dp+1 >= len(t.cells) {
		return ErrTapeOverflow
	}
	t.dp++
	return nil
}

// Left moves the data pointer one cell left. Moving below cell 0 fails with
// ErrTapeUnderflow and leaves the pointer where it was.
func (t *Tape) Left() error {
	if t.dp == 0 {
		return ErrTapeUnderflow
	}
	t.dp--
	return nil
}

// Get returns the current cell.
func (t *Tape) Get() byte { return t.cells[t.dp] }

// Set stores b in the current cell.
func (t *Tape) Set(b byte) { t.cells[t.dp] = b }

// Inc adds one to the current cell, wrapping 255 to 0.
func (t *Tape) Inc() { t.cells[t.dp]++ }

// Dec subtracts one from the current cell, wrapping 0 to 255.
func (t *Tape) Dec() { t.cells[t.dp]-- }

// At returns the cell at i, or 0 when i is off the tape.
func (t *Tape) At(i int) byte {
	if i < 0 || i >= len(t.cells) {
		return 0
	}
	return t.cells[i]
}

// Window returns a copy of up to n cells starting at from, clipped to the tape.
func (t *Tape) Window(from, n int) []byte {
	if from < 0 {
		from = 0
	}
	end := from + n
	if end > len(t.cells) {
		end = len(t.cells)
	}
	if from >= end {
		return nil
	}
	out := make([]byte, end-from)
	copy(out, t.cells[from:end])
	return out
}

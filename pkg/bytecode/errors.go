package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnmatchedOpen  = errors.New("unmatched loop-open")
	ErrUnmatchedClose = errors.New("unmatched loop-close")
	ErrTapeUnderflow  = errors.New("data pointer moved below the first cell")
	ErrTapeOverflow   = errors.New("data pointer moved past the last cell")
	ErrInputExhausted = errors.New("input exhausted")
)

// StructuralErrorKind identifies which bracket rule a program breaks.
type StructuralErrorKind uint8

const (
	UnmatchedClose StructuralErrorKind = iota + 1
	UnmatchedOpen
)

func (k StructuralErrorKind) String() string {
	switch k {
	case UnmatchedClose:
		return "unmatched loop-close"
	case UnmatchedOpen:
		return "unmatched loop-open"
	default:
		return fmt.Sprintf("StructuralErrorKind(%d)", k)
	}
}

// StructuralError reports brackets that do not pair up. It is produced by
// Match before any instruction runs.
type StructuralError struct {
	Kind      StructuralErrorKind
	Positions []int // Offending program offsets, ascending
}

func (e *StructuralError) Error() string {
	pos := make([]string, len(e.Positions))
	for i, p := range e.Positions {
		pos[i] = fmt.Sprint(p)
	}
	if e.Kind == UnmatchedOpen {
		return fmt.Sprintf("unmatched loop-open(s) at positions: [%s]", strings.Join(pos, ", "))
	}
	return fmt.Sprintf("unmatched loop-close at position %s", strings.Join(pos, ", "))
}

// Is lets errors.Is match a StructuralError against ErrUnmatchedOpen or
// ErrUnmatchedClose.
func (e *StructuralError) Is(target error) bool {
	switch target {
	case ErrUnmatchedOpen:
		return e.Kind == UnmatchedOpen
	case ErrUnmatchedClose:
		return e.Kind == UnmatchedClose
	}
	return false
}

// RuntimeError is a fatal failure while executing an instruction.
type RuntimeError struct {
	IP  int    // Offset of the failing instruction
	Op  Opcode // The failing instruction
	Err error  // Underlying cause
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.IP, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is a bracket-matching failure.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsOutOfBounds reports whether err is a data pointer boundary violation.
func IsOutOfBounds(err error) bool {
	return errors.Is(err, ErrTapeUnderflow) || errors.Is(err, ErrTapeOverflow)
}

package bytecode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

// Machine is the execution context for one run of a program: instruction
// pointer, tape with its data pointer, and the I/O endpoints. A Machine is
// not safe for concurrent use, but machines share nothing with each other.
type Machine struct {
	prog  *Program
	tape  *Tape
	ip    int
	steps uint64

	in    io.Reader
	out   io.Writer
	inBuf [1]byte

	// Debug/trace mode
	trace bool
	log   commonlog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithTrace enables one debug log record per executed instruction.
func WithTrace(on bool) Option {
	return func(m *Machine) { m.trace = on }
}

// WithLogger replaces the "tape.vm" logger used for tracing.
func WithLogger(l commonlog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMachine creates a machine ready to run p from offset 0 on a fresh tape.
// A nil in behaves as an empty stream; a nil out discards output.
func NewMachine(p *Program, in io.Reader, out io.Writer, opts ...Option) *Machine {
	m := &Machine{
		prog: p,
		tape: NewTape(),
		in:   in,
		out:  out,
		log:  commonlog.GetLogger("tape.vm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.out == nil {
		m.out = io.Discard
	}
	return m
}

// IP returns the instruction pointer.
func (m *Machine) IP() int { return m.ip }

// DP returns the data pointer.
func (m *Machine) DP() int { return m.tape.Pointer() }

// Cell returns the value of the cell under the data pointer.
func (m *Machine) Cell() byte { return m.tape.Get() }

// Tape returns the machine's memory.
func (m *Machine) Tape() *Tape { return m.tape }

// Steps returns how many instructions have been dispatched, comments included.
func (m *Machine) Steps() uint64 { return m.steps }

// Done reports whether the instruction pointer has run off the program.
func (m *Machine) Done() bool { return m.ip >= len(m.prog.code) }

// checkInterval is the number of instructions RunContext executes between
// checks of its context.
const checkInterval = 1 << 12

// Run steps until the program ends or an instruction fails.
func (m *Machine) Run() error {
	return m.RunContext(context.Background())
}

// RunContext is like Run but stops with the context's error, wrapped with the
// current offset, once ctx is done. A blocked input read is not interrupted.
func (m *Machine) RunContext(ctx context.Context) error {
	for n := 0; ; n++ {
		if n%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("stopped at offset %d: %w", m.ip, err)
			}
		}
		done, err := m.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step dispatches the instruction at the instruction pointer. It returns
// done=true once the instruction pointer equals the program length.
func (m *Machine) Step() (bool, error) {
	if m.ip >= len(m.prog.code) {
		return true, nil
	}

	op := Opcode(m.prog.code[m.ip])
	m.steps++

	if m.trace && m.log.AllowLevel(commonlog.Debug) {
		m.log.Debugf("[%06x] %-10s dp=%d cell=%d", m.ip, op.String(), m.tape.Pointer(), m.tape.Get())
	}

	switch op {
	case OpRight:
		if err := m.tape.Right(); err != nil {
			return false, m.fail(op, err)
		}

	case OpLeft:
		if err := m.tape.Left(); err != nil {
			return false, m.fail(op, err)
		}

	case OpInc:
		m.tape.Inc()

	case OpDec:
		m.tape.Dec()

	case OpOut:
		if err := m.writeByte(m.tape.Get()); err != nil {
			return false, m.fail(op, err)
		}

	case OpIn:
		b, err := m.readByte()
		if err != nil {
			return false, m.fail(op, err)
		}
		m.tape.Set(b)

	case OpLoopOpen:
		if m.tape.Get() == 0 {
			m.ip = m.prog.jumps[m.ip]
			return m.Done(), nil
		}

	case OpLoopClose:
		if m.tape.Get() != 0 {
			m.ip = m.prog.jumps[m.ip]
			return m.Done(), nil
		}

	default:
		// Comment
	}

	m.ip++
	return m.Done(), nil
}

func (m *Machine) fail(op Opcode, err error) error {
	return &RuntimeError{IP: m.ip, Op: op, Err: err}
}

// readByte blocks until one byte arrives. It reads straight from the source
// so nothing past the byte is consumed.
func (m *Machine) readByte() (byte, error) {
	if m.in == nil {
		return 0, fmt.Errorf("%w: %w", ErrInputExhausted, io.ErrUnexpectedEOF)
	}
	if br, ok := m.in.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: %w", ErrInputExhausted, io.ErrUnexpectedEOF)
		}
		return b, err
	}
	if _, err := io.ReadFull(m.in, m.inBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: %w", ErrInputExhausted, io.ErrUnexpectedEOF)
		}
		return 0, err
	}
	return m.inBuf[0], nil
}

func (m *Machine) writeByte(b byte) error {
	if bw, ok := m.out.(io.ByteWriter); ok {
		return bw.WriteByte(b)
	}
	n, err := m.out.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

// Run compiles src and executes it to completion against in and out.
func Run(src []byte, in io.Reader, out io.Writer, opts ...Option) error {
	p, err := Compile(src)
	if err != nil {
		return err
	}
	return NewMachine(p, in, out, opts...).Run()
}

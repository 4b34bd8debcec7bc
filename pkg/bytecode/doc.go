// Package bytecode implements the tape machine: a bracket matcher that turns
// a flat instruction stream into a jump table, and a virtual machine that
// steps over a byte tape until the instruction pointer runs off the program.
//
// # Instruction set
//
// Eight bytes are instructions; every other byte is a comment and executes as
// a no-op that still advances the instruction pointer:
//
//	>  move the data pointer right      <  move the data pointer left
//	+  increment the current cell       -  decrement the current cell
//	.  write the current cell           ,  read one byte into the current cell
//	[  if the cell is zero, jump to the matching ]
//	]  if the cell is nonzero, jump to the matching [
//
// # Architecture Overview
//
//   - Match: a single left-to-right pass with a stack of pending loop-opens.
//     It returns a JumpTable or a *StructuralError listing the offending
//     offsets. Nothing executes until matching succeeds.
//
//   - Program: the immutable pair of source bytes and jump table, built once
//     by Compile and shared read-only by any number of machines.
//
//   - Tape: 1,048,576 zeroed cells. Cell arithmetic wraps modulo 256. The
//     data pointer is checked on every move and a move past either end fails
//     with ErrTapeUnderflow or ErrTapeOverflow; the tape is never circular.
//
//   - Machine: the explicit mutable context of a run. Step dispatches one
//     instruction; Run loops until the instruction pointer equals the program
//     length or an instruction fails.
//
// # I/O
//
// Input is read one byte at a time directly from the supplied io.Reader, so
// the machine never consumes more than it stores. Running out of input is an
// error wrapping ErrInputExhausted. Output bytes go to the supplied io.Writer
// one at a time; buffering and flushing belong to the caller.
package bytecode

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/tape/pkg/bytecode"
)

// Exit codes, one per failure class.
const (
	exitOK          = 0
	exitInterrupted = 1
	exitUsage       = 2
	exitSource      = 3
	exitStructural  = 4
	exitIO          = 5
	exitBounds      = 6
)

// exitCode maps an error to the exit code of its failure class.
func exitCode(err error) int {
	var se *sourceError
	var re *bytecode.RuntimeError
	switch {
	case err == nil:
		return exitOK
	case bytecode.IsStructural(err):
		return exitStructural
	case bytecode.IsOutOfBounds(err):
		return exitBounds
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitInterrupted
	case errors.As(err, &re):
		return exitIO
	case errors.As(err, &se):
		return exitSource
	case errors.Is(err, errFlush), errors.Is(err, errOutput):
		return exitIO
	default:
		return exitSource
	}
}

// report prints a one-line diagnostic naming the failure class.
func report(stderr io.Writer, err error) int {
	code := exitCode(err)
	class := "error"
	switch code {
	case exitInterrupted:
		class = "interrupted"
	case exitStructural:
		class = "structural error"
	case exitBounds:
		class = "tape error"
	case exitIO:
		class = "i/o error"
	case exitSource:
		class = "source error"
	}
	fmt.Fprintf(stderr, "tape: %s: %v\n", class, err)
	return code
}

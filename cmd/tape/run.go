package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tape/pkg/bytecode"
)

var (
	errFlush  = errors.New("flushing output")
	errOutput = errors.New("writing output")
)

// handleRunCommand processes `tape [run] <file>`.
func handleRunCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("run", stderr)
	var flags commonFlags
	flags.register(fs)
	trace := fs.Bool("trace", false, "Log every executed instruction")
	timeout := fs.Duration("timeout", 0, "Stop the program after this long (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one program file")
		usage(stderr)
		return exitUsage
	}
	path := fs.Arg(0)

	m, err := loadManifest(path)
	if err != nil {
		return report(stderr, err)
	}
	configureLogging(fs, &flags, m.Log.Verbosity, m.LogFilePath())

	limit := m.Run.Timeout
	if isFlagSet(fs, "timeout") {
		limit = *timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		// A second interrupt kills the process the default way.
		<-ctx.Done()
		stop()
	}()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	opts := []bytecode.Option{bytecode.WithTrace(*trace || m.Run.Trace)}
	if err := execute(ctx, path, stdin, stdout, opts...); err != nil {
		return report(stderr, err)
	}
	return exitOK
}

// execute loads and runs one program. Output is buffered and flushed exactly
// once when the run ends, whether it succeeded or failed.
func execute(ctx context.Context, path string, stdin io.Reader, stdout io.Writer, opts ...bytecode.Option) (err error) {
	log := commonlog.GetLogger("tape.cli")
	runID := uuid.NewString()

	p, err := loadProgram(path)
	if err != nil {
		log.Errorf("run %s: %s: %v", runID, path, err)
		return err
	}

	stats := bytecode.Analyze(p)
	log.Infof("run %s: %s (%d bytes, %d instructions, %d loops)",
		runID, path, stats.Length, stats.Instructions, stats.Loops)

	out := bufio.NewWriter(stdout)
	vm := bytecode.NewMachine(p, &contextReader{ctx: ctx, r: stdin}, out, opts...)
	defer func() {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("%w: %w", errFlush, ferr)
		}
		if err != nil {
			log.Errorf("run %s: failed after %d steps: %v", runID, vm.Steps(), err)
			return
		}
		log.Infof("run %s: finished in %d steps", runID, vm.Steps())
	}()

	start := time.Now()
	defer func() {
		log.Debugf("run %s: wall time %s", runID, time.Since(start))
	}()
	return vm.RunContext(ctx)
}

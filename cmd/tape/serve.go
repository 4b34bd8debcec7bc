package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/tape/pkg/bytecode"
	"github.com/chazu/tape/server"
)

// handleServeCommand processes `tape serve [-addr host:port] <file>`: every
// websocket connection to /run gets a fresh machine for the program.
func handleServeCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	var flags commonFlags
	flags.register(fs)
	addr := fs.String("addr", "localhost:8080", "Listen address")
	timeout := fs.Duration("timeout", 0, "Per-session run limit (0 = manifest or none)")
	trace := fs.Bool("trace", false, "Log every executed instruction")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: serve requires exactly one program file")
		return exitUsage
	}
	path := fs.Arg(0)

	m, err := loadManifest(path)
	if err != nil {
		return report(stderr, err)
	}
	configureLogging(fs, &flags, m.Log.Verbosity, m.LogFilePath())

	p, err := loadProgram(path)
	if err != nil {
		return report(stderr, err)
	}

	limit := m.Run.Timeout
	if isFlagSet(fs, "timeout") {
		limit = *timeout
	}

	mux := http.NewServeMux()
	mux.Handle("/run", server.NewPlayground(p, limit, bytecode.WithTrace(*trace || m.Run.Trace)))
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log := commonlog.GetLogger("tape.cli")
	log.Infof("serving %s on ws://%s/run", path, *addr)
	fmt.Fprintf(stdout, "Serving %s on ws://%s/run\n", path, *addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return exitIO
	}
	return exitOK
}

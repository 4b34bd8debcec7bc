package main

import (
	"fmt"
	"io"

	"github.com/chazu/tape/server"
)

// handleLSPCommand processes `tape lsp`.
func handleLSPCommand(args []string, stderr io.Writer) int {
	fs := newFlagSet("lsp", stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	// stdout carries the protocol; logs must not go there.
	configureLogging(fs, &flags, 0, flags.logFile)

	if err := server.NewLSP(version).Run(); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return exitIO
	}
	return exitOK
}

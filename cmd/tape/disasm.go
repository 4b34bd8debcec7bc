package main

import (
	"fmt"
	"io"
	"path/filepath"
)

// handleDisasmCommand processes `tape disasm <file>`.
func handleDisasmCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("disasm", stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: disasm requires exactly one program file")
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
	fmt.Fprint(stdout, p.DisassembleWithName(filepath.Base(path)))
	return exitOK
}

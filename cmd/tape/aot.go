package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/chazu/tape/pkg/bytecode"
)

// handleAOTCommand processes `tape aot [-o out.go] <file>`, translating a
// program to a standalone Go main package.
func handleAOTCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("aot", stderr)
	var flags commonFlags
	flags.register(fs)
	output := fs.String("o", "", "Output Go file (default stdout)")
	raw := fs.Bool("raw", false, "Skip gofmt formatting of the generated code")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: aot requires exactly one program file")
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
	code := []byte(bytecode.NewAOTCompiler().CompileProgram(p, filepath.Base(path)))
	if !*raw {
		code, err = imports.Process("main.go", code, &imports.Options{Comments: true, TabIndent: true, TabWidth: 8, FormatOnly: true})
		if err != nil {
			return report(stderr, err)
		}
	}

	if *output == "" {
		if _, err := stdout.Write(code); err != nil {
			return report(stderr, fmt.Errorf("%w: %w", errOutput, err))
		}
		return exitOK
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		return report(stderr, &sourceError{Path: *output, Err: err})
	}
	if err := os.WriteFile(*output, code, 0644); err != nil {
		return report(stderr, &sourceError{Path: *output, Err: err})
	}
	if flags.verbose {
		fmt.Fprintf(stdout, "Wrote %s\n", *output)
	}
	return exitOK
}

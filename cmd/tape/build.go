package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/tape/pkg/bytecode"
	"github.com/chazu/tape/pkg/image"
)

// handleBuildCommand processes the `tape build` subcommand.
// Usage:
//
//	tape build hello.b              # <image output dir>/hello.tapi
//	tape build -o out.tapi hello.b  # custom output
func handleBuildCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("build", stderr)
	var flags commonFlags
	flags.register(fs)
	output := fs.String("o", "", "Output image path")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: build requires exactly one source file")
		return exitUsage
	}
	path := fs.Arg(0)

	m, err := loadManifest(path)
	if err != nil {
		return report(stderr, err)
	}
	configureLogging(fs, &flags, m.Log.Verbosity, m.LogFilePath())

	src, err := readSource(path)
	if err != nil {
		return report(stderr, err)
	}
	p, err := bytecode.Compile(src)
	if err != nil {
		return report(stderr, err)
	}

	out := *output
	if out == "" {
		dir := m.ImageOutputDir()
		if m.Dir == "" {
			dir = filepath.Dir(path)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out = filepath.Join(dir, stem+image.Ext)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return report(stderr, &sourceError{Path: out, Err: err})
	}
	if err := image.Write(out, p); err != nil {
		return report(stderr, &sourceError{Path: out, Err: err})
	}

	if flags.verbose {
		fmt.Fprintf(stdout, "Wrote %s\n", out)
	}
	return exitOK
}

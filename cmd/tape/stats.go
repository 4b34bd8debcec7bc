package main

import (
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chazu/tape/manifest"
	"github.com/chazu/tape/pkg/bytecode"
)

// statsReport is the YAML document printed by `tape stats`.
type statsReport struct {
	File         string         `yaml:"file"`
	Length       int            `yaml:"length"`
	Instructions int            `yaml:"instructions"`
	Comments     int            `yaml:"comments"`
	Loops        int            `yaml:"loops"`
	MaxDepth     int            `yaml:"max_depth"`
	Counts       map[string]int `yaml:"counts,omitempty"`
}

func newStatsReport(name string, s bytecode.Stats) statsReport {
	r := statsReport{
		File:         name,
		Length:       s.Length,
		Instructions: s.Instructions,
		Comments:     s.Comments,
		Loops:        s.Loops,
		MaxDepth:     s.MaxDepth,
	}
	for op, n := range s.Counts {
		if r.Counts == nil {
			r.Counts = make(map[string]int)
		}
		r.Counts[op.String()] = n
	}
	return r
}

// handleStatsCommand processes `tape stats <file>`.
func handleStatsCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stats", stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: stats requires exactly one program file")
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

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(newStatsReport(filepath.Base(path), bytecode.Analyze(p))); err != nil {
		return report(stderr, err)
	}
	if err := enc.Close(); err != nil {
		return report(stderr, err)
	}
	return exitOK
}

// handleSchemaCommand processes `tape schema`.
func handleSchemaCommand(stdout, stderr io.Writer) int {
	data, err := manifest.Schema()
	if err != nil {
		return report(stderr, err)
	}
	fmt.Fprintf(stdout, "%s\n", data)
	return exitOK
}

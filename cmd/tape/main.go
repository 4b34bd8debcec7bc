// tape CLI - the entry point for running tape programs
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "run":
			return handleRunCommand(args[1:], stdin, stdout, stderr)
		case "build":
			return handleBuildCommand(args[1:], stdout, stderr)
		case "disasm":
			return handleDisasmCommand(args[1:], stdout, stderr)
		case "aot":
			return handleAOTCommand(args[1:], stdout, stderr)
		case "lsp":
			return handleLSPCommand(args[1:], stderr)
		case "serve":
			return handleServeCommand(args[1:], stdout, stderr)
		case "stats":
			return handleStatsCommand(args[1:], stdout, stderr)
		case "schema":
			return handleSchemaCommand(stdout, stderr)
		case "version":
			fmt.Fprintf(stdout, "tape %s\n", version)
			return exitOK
		case "help", "-h", "--help":
			usage(stdout)
			return exitOK
		}
	}
	return handleRunCommand(args, stdin, stdout, stderr)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: tape [run] [options] <file>\n\n")
	fmt.Fprintf(w, "Runs a tape program. The whole file is the program; bytes other than\n")
	fmt.Fprintf(w, "the eight instructions > < + - . , [ ] are comments.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run <file>               # Run a source file or a %s image (default)\n", ".tapi")
	fmt.Fprintf(w, "  build [-o out] <file>    # Compile a source file into an image\n")
	fmt.Fprintf(w, "  disasm <file>            # Print an instruction listing\n")
	fmt.Fprintf(w, "  aot [-o out.go] <file>   # Translate a program to a Go main package\n")
	fmt.Fprintf(w, "  stats <file>             # Print program statistics as YAML\n")
	fmt.Fprintf(w, "  serve [-addr a] <file>   # Run the program per websocket session at /run\n")
	fmt.Fprintf(w, "  lsp                      # Start the language server on stdio\n")
	fmt.Fprintf(w, "  schema                   # Print the JSON Schema of tape.toml\n")
	fmt.Fprintf(w, "  version                  # Print the version\n")
	fmt.Fprintf(w, "\nRun options:\n")
	fmt.Fprintf(w, "  -v                       # Verbose logging (repeatable via -verbosity)\n")
	fmt.Fprintf(w, "  -verbosity n             # commonlog verbosity, -4..2\n")
	fmt.Fprintf(w, "  -log-file path           # Write logs to a file instead of stderr\n")
	fmt.Fprintf(w, "  -trace                   # Log every executed instruction (debug level)\n")
	fmt.Fprintf(w, "  -timeout d               # Stop the program after duration d\n")
	fmt.Fprintf(w, "\nA tape.toml in the program's directory or any parent supplies defaults.\n")
}

// commonFlags are shared by every command that loads a program.
type commonFlags struct {
	verbose   bool
	verbosity int
	logFile   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "Verbose output")
	fs.IntVar(&c.verbosity, "verbosity", 0, "Log verbosity (-4..2)")
	fs.StringVar(&c.logFile, "log-file", "", "Log file (default stderr)")
}

// configureLogging applies flag values over the manifest defaults.
func configureLogging(fs *flag.FlagSet, c *commonFlags, cfgVerbosity int, cfgFile string) {
	verbosity := cfgVerbosity
	if isFlagSet(fs, "verbosity") {
		verbosity = c.verbosity
	}
	if c.verbose && verbosity < 1 {
		verbosity = 1
	}

	path := cfgFile
	if c.logFile != "" {
		path = c.logFile
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/chazu/tape/pkg/bytecode"
	"github.com/chazu/tape/pkg/image"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

// writeProgram writes a program file into dir and returns its path.
func writeProgram(t *testing.T, dir, name, source string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(source), 0644))
	return p
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

type brokenStdout struct{}

func (brokenStdout) Write(p []byte) (int, error) { return 0, errors.New("stdout closed") }

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func TestRunHelloWorld(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "hello.b", helloWorld)

	res := runCLI(t, "", "run", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "Hello World!\n", res.stdout)
}

func TestRunIsDefaultCommand(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "two.b", "++.")

	res := runCLI(t, "", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "\x02", res.stdout)
}

func TestRunEchoesStdin(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "echo.b", ",.")

	res := runCLI(t, "xyz", path)
	assert.Equal(t, exitOK, res.code)
	assert.Equal(t, "x", res.stdout)
}

func TestRunUnmatchedClose(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.b", "+.]")

	res := runCLI(t, "", path)
	assert.Equal(t, exitStructural, res.code)
	assert.Empty(t, res.stdout, "nothing runs before matching succeeds")
	assert.Contains(t, res.stderr, "structural error")
	assert.Contains(t, res.stderr, "position 2")
}

func TestRunUnmatchedOpens(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.b", "[[+]")

	res := runCLI(t, "", path)
	assert.Equal(t, exitStructural, res.code)
	assert.Contains(t, res.stderr, "[0]")
}

func TestRunMissingFile(t *testing.T) {
	res := runCLI(t, "", filepath.Join(t.TempDir(), "nope.b"))
	assert.Equal(t, exitSource, res.code)
	assert.Contains(t, res.stderr, "source error")
}

func TestRunInvalidUTF8(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bin.b", "+\xff\xfe.")

	res := runCLI(t, "", path)
	assert.Equal(t, exitSource, res.code)
	assert.Contains(t, res.stderr, "UTF-8")
	assert.Empty(t, res.stdout)
}

func TestRunInputExhaustedFlushesOutput(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "eof.b", "+++.,.")

	res := runCLI(t, "", path)
	assert.Equal(t, exitIO, res.code)
	assert.Equal(t, "\x03", res.stdout, "output produced before the failure is flushed")
	assert.Contains(t, res.stderr, "i/o error")
	assert.Contains(t, res.stderr, "input exhausted")
}

func TestRunTapeUnderflow(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "left.b", "<")

	res := runCLI(t, "", path)
	assert.Equal(t, exitBounds, res.code)
	assert.Contains(t, res.stderr, "tape error")
}

func TestRunOutputFailure(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "out.b", "+.")

	var stderr bytes.Buffer
	code := run([]string{path}, strings.NewReader(""), brokenStdout{}, &stderr)
	assert.Equal(t, exitIO, code)
	assert.Contains(t, stderr.String(), "stdout closed")
}

func TestRunUsage(t *testing.T) {
	res := runCLI(t, "")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "Usage: tape")

	res = runCLI(t, "", "run", "a.b", "b.b")
	assert.Equal(t, exitUsage, res.code)

	res = runCLI(t, "", "run", "-nope", "a.b")
	assert.Equal(t, exitUsage, res.code)
}

func TestRunWithTrace(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "clear.b", "+[-].")

	res := runCLI(t, "", "run", "-trace", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "\x00", res.stdout)
}

func TestRunTimeout(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "spin.b", "+.[]")

	res := runCLI(t, "", "run", "-timeout", "20ms", path)
	assert.Equal(t, exitInterrupted, res.code)
	assert.Equal(t, "\x01", res.stdout, "output before the stop is flushed")
	assert.Contains(t, res.stderr, "interrupted")
}

func TestRunInterruptWhileBlockedOnInput(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "prompt.b", "+.,.")

	stdin, feed := io.Pipe()
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var stdout bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- execute(ctx, path, stdin, &stdout) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, exitInterrupted, exitCode(err))
		assert.Equal(t, "\x01", stdout.String(), "output before the interrupt is flushed")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop while blocked on input")
	}
}

func TestRunTimeoutWhileBlockedOnInput(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "prompt.b", ",.")

	stdin, feed := io.Pipe()
	defer feed.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"run", "-timeout", "20ms", path}, stdin, &stdout, &stderr)
	assert.Equal(t, exitInterrupted, code)
	assert.Contains(t, stderr.String(), "interrupted")
}

func TestContextReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &contextReader{ctx: ctx, r: strings.NewReader("ab")}

	buf := make([]byte, 1)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('a'), buf[0])

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextReaderPassesEOF(t *testing.T) {
	r := &contextReader{ctx: context.Background(), r: strings.NewReader("")}
	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunWithManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.toml"), []byte("[run]\ntrace = true\n[log]\nverbosity = -4\n"), 0644))
	sub := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(sub, 0755))
	path := writeProgram(t, sub, "two.b", "++.")

	res := runCLI(t, "", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "\x02", res.stdout)
}

func TestRunInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.toml"), []byte("[log]\nverbosity = 99\n"), 0644))
	path := writeProgram(t, dir, "two.b", "++.")

	res := runCLI(t, "", path)
	assert.Equal(t, exitSource, res.code)
	assert.Contains(t, res.stderr, "tape.toml")
}

// ---------------------------------------------------------------------------
// build / images
// ---------------------------------------------------------------------------

func TestBuildAndRunImage(t *testing.T) {
	dir := t.TempDir()
	src := writeProgram(t, dir, "hello.b", helloWorld)
	out := filepath.Join(dir, "out", "hello"+image.Ext)

	res := runCLI(t, "", "build", "-v", "-o", out, src)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Wrote "+out)

	res = runCLI(t, "", "run", out)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "Hello World!\n", res.stdout)
}

func TestBuildDefaultOutputNextToSource(t *testing.T) {
	dir := t.TempDir()
	src := writeProgram(t, dir, "inc.b", "+.")

	res := runCLI(t, "", "build", src)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(dir, "inc"+image.Ext))
}

func TestBuildUsesManifestOutputDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.toml"), []byte("[image]\noutput = \"build\"\n"), 0644))
	src := writeProgram(t, dir, "inc.b", "+.")

	res := runCLI(t, "", "build", src)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(dir, "build", "inc"+image.Ext))
}

func TestBuildRejectsUnbalanced(t *testing.T) {
	dir := t.TempDir()
	src := writeProgram(t, dir, "bad.b", "[")

	res := runCLI(t, "", "build", src)
	assert.Equal(t, exitStructural, res.code)
	assert.NoFileExists(t, filepath.Join(dir, "bad"+image.Ext))
}

func TestRunCorruptImage(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad"+image.Ext, "not cbor at all")

	res := runCLI(t, "", path)
	assert.Equal(t, exitSource, res.code)
}

// ---------------------------------------------------------------------------
// disasm / version
// ---------------------------------------------------------------------------

func TestDisasm(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "clear.b", "+[-]")

	res := runCLI(t, "", "disasm", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "; === clear.b ===")
	assert.Contains(t, res.stdout, "LOOP_OPEN")
}

func TestDisasmStructuralError(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.b", "]")

	res := runCLI(t, "", "disasm", path)
	assert.Equal(t, exitStructural, res.code)
}

func TestAOT(t *testing.T) {
	dir := t.TempDir()
	path := writeProgram(t, dir, "inc.b", "+++.")

	res := runCLI(t, "", "aot", path)
	assert.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, `from "inc.b"`)
	assert.Contains(t, res.stdout, "tape[dp] += 3")

	out := filepath.Join(dir, "gen", "main.go")
	res = runCLI(t, "", "aot", "-o", out, path)
	require.Equal(t, exitOK, res.code, res.stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package main")
}

func TestStats(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "nest.b", "++[>[-]<-] ok")

	res := runCLI(t, "", "stats", path)
	require.Equal(t, exitOK, res.code, res.stderr)

	var got statsReport
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, statsReport{
		File:         "nest.b",
		Length:       13,
		Instructions: 10,
		Comments:     3,
		Loops:        2,
		MaxDepth:     2,
		Counts:       map[string]int{"INC": 2, "DEC": 2, "RIGHT": 1, "LEFT": 1, "LOOP_OPEN": 2, "LOOP_CLOSE": 2},
	}, got)
}

func TestSchemaCommand(t *testing.T) {
	res := runCLI(t, "", "schema")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"title": "tape.toml"`)
}

func TestAOTOutputFailure(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "inc.b", "+.")

	var stderr bytes.Buffer
	code := run([]string{"aot", path}, strings.NewReader(""), brokenStdout{}, &stderr)
	assert.Equal(t, exitIO, code)
	assert.Contains(t, stderr.String(), "writing output")
	assert.Contains(t, stderr.String(), "stdout closed")
}

func TestLSPUsage(t *testing.T) {
	res := runCLI(t, "", "lsp", "-nope")
	assert.Equal(t, exitUsage, res.code)
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "", "version")
	assert.Equal(t, exitOK, res.code)
	assert.Equal(t, "tape "+version+"\n", res.stdout)
}

// ---------------------------------------------------------------------------
// exit code classification
// ---------------------------------------------------------------------------

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"structural", &bytecode.StructuralError{Kind: bytecode.UnmatchedOpen, Positions: []int{0}}, exitStructural},
		{"bounds", &bytecode.RuntimeError{Op: bytecode.OpLeft, Err: bytecode.ErrTapeUnderflow}, exitBounds},
		{"io", &bytecode.RuntimeError{Op: bytecode.OpIn, Err: bytecode.ErrInputExhausted}, exitIO},
		{"source", &sourceError{Path: "x", Err: errInvalidEncoding}, exitSource},
		{"flush", errFlush, exitIO},
		{"output", fmt.Errorf("%w: %w", errOutput, errors.New("closed")), exitIO},
		{"deadline", fmt.Errorf("stopped at offset 3: %w", context.DeadlineExceeded), exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/chazu/tape/manifest"
	"github.com/chazu/tape/pkg/bytecode"
	"github.com/chazu/tape/pkg/image"
)

var errInvalidEncoding = errors.New("program is not valid UTF-8 text")

// sourceError is a failure to read or decode a program file.
type sourceError struct {
	Path string
	Err  error
}

func (e *sourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *sourceError) Unwrap() error {
	return e.Err
}

// readSource reads the whole file as text. Decoding failures are reported
// before any bracket matching happens.
func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sourceError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &sourceError{Path: path, Err: errInvalidEncoding}
	}
	return data, nil
}

// loadProgram reads path as an image (by extension) or as source text and
// returns the compiled program.
func loadProgram(path string) (*bytecode.Program, error) {
	if filepath.Ext(path) == image.Ext {
		p, err := image.Load(path)
		if err != nil {
			if bytecode.IsStructural(err) {
				return nil, err
			}
			return nil, &sourceError{Path: path, Err: err}
		}
		return p, nil
	}

	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return bytecode.Compile(src)
}

// loadManifest finds tape.toml next to the program or in a parent directory.
// Without one, defaults apply.
func loadManifest(programPath string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(filepath.Dir(programPath))
	if err != nil {
		return nil, &sourceError{Path: manifest.FileName, Err: err}
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

// Package image stores compiled programs as content-addressed CBOR images.
// An image carries the program source, its SHA-256 hash and the jump pairs
// computed at build time. Loading re-runs the bracket matcher and refuses
// images whose stored pairs disagree with it.
package image

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/tape/pkg/bytecode"
)

// Ext is the file extension for images.
const Ext = ".tapi"

// Version is the current image format version.
// Increment when making incompatible changes to the format.
const Version uint16 = 1

// Magic identifies tape images.
const Magic = "TAPE"

var (
	ErrInvalidMagic    = errors.New("invalid image magic: expected TAPE")
	ErrVersionMismatch = errors.New("image version mismatch")
	ErrHashMismatch    = errors.New("image hash does not match its source")
	ErrJumpMismatch    = errors.New("image jump pairs do not match its source")
)

// Image is the on-disk form of a compiled program.
type Image struct {
	Magic   string   `cbor:"1,keyasint"`
	Version uint16   `cbor:"2,keyasint"`
	Hash    [32]byte `cbor:"3,keyasint"`
	Source  []byte   `cbor:"4,keyasint"`
	Jumps   [][2]int `cbor:"5,keyasint,omitempty"` // (open, close) offsets
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// FromProgram builds the image for a compiled program.
func FromProgram(p *bytecode.Program) *Image {
	src := p.Source()
	return &Image{
		Magic:   Magic,
		Version: Version,
		Hash:    sha256.Sum256(src),
		Source:  src,
		Jumps:   p.Jumps().Pairs(),
	}
}

// Marshal serializes an Image to canonical CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes an Image from CBOR bytes without verifying it.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	return &img, nil
}

// Program verifies the image and rebuilds the program it describes.
func (img *Image) Program() (*bytecode.Program, error) {
	if img.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, img.Version, Version)
	}
	if sha256.Sum256(img.Source) != img.Hash {
		return nil, ErrHashMismatch
	}

	p, err := bytecode.Compile(img.Source)
	if err != nil {
		return nil, err
	}
	if !samePairs(p.Jumps().Pairs(), img.Jumps) {
		return nil, ErrJumpMismatch
	}
	return p, nil
}

func samePairs(a, b [][2]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode serializes a compiled program as image bytes.
func Encode(p *bytecode.Program) ([]byte, error) {
	return Marshal(FromProgram(p))
}

// Decode parses and verifies image bytes.
func Decode(data []byte) (*bytecode.Program, error) {
	img, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return img.Program()
}

// Write encodes p and writes it to path.
func Write(path string, p *bytecode.Program) error {
	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("image: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	commonlog.GetLogger("tape.image").Infof("wrote %s (%d bytes, %d source bytes)", path, len(data), p.Len())
	return nil
}

// Load reads and verifies the image at path.
func Load(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	commonlog.GetLogger("tape.image").Debugf("loaded %s (%d source bytes)", path, p.Len())
	return p, nil
}

// IsImage reports whether data looks like an encoded image.
func IsImage(data []byte) bool {
	img, err := Unmarshal(data)
	return err == nil && img.Magic == Magic
}

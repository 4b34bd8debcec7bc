package server

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// offsetToPosition converts a byte offset in text to an LSP position.
// Characters are counted in UTF-16 code units.
func offsetToPosition(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}

	var line, char uint32
	for i, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			line++
			char = 0
			continue
		}
		char += uint32(utf16.RuneLen(r))
	}
	return protocol.Position{Line: line, Character: char}
}

// positionToOffset converts an LSP position to a byte offset in text.
// It returns false when the position is past the end of its line.
func positionToOffset(text string, pos protocol.Position) (int, bool) {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		i := indexByteFrom(text, offset, '\n')
		if i < 0 {
			return 0, false
		}
		offset = i + 1
	}

	var char uint32
	for offset < len(text) {
		if char == pos.Character {
			return offset, text[offset] != '\n'
		}
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == '\n' {
			return 0, false
		}
		char += uint32(utf16.RuneLen(r))
		offset += size
	}
	return 0, false
}

// indexByteFrom is strings.IndexByte starting at from, returning an index
// into the whole string.
func indexByteFrom(s string, from int, c byte) int {
	if from >= len(s) {
		return -1
	}
	i := strings.IndexByte(s[from:], c)
	if i < 0 {
		return -1
	}
	return from + i
}

// byteRange returns the range covering the single byte at offset.
func byteRange(text string, offset int) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(text, offset),
		End:   offsetToPosition(text, offset+1),
	}
}

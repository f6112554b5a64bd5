// Package mszip decodes the chunked MSZIP stream used by WinGet's
// versionData.mszyml blobs (spec C10 step B): each chunk begins with the
// magic bytes 00 00 43 4B followed by a raw DEFLATE segment.
package mszip

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Magic is the 4-byte chunk header preceding every raw DEFLATE segment.
var Magic = []byte{0x00, 0x00, 0x43, 0x4B}

// magicOffset is where the stream's first chunk magic is expected (spec
// §4.10 step B / §6).
const magicOffset = 26

// Decompress verifies the magic at magicOffset, then repeatedly consumes
// a 4-byte chunk magic followed by a raw DEFLATE segment, concatenating
// outputs, until a chunk fails to start with the magic or the input ends
// (spec §4.10 step B).
func Decompress(data []byte) ([]byte, error) {
	if len(data) < magicOffset+len(Magic) {
		return nil, fmt.Errorf("mszip: input shorter than magic offset")
	}
	if !bytes.Equal(data[magicOffset:magicOffset+len(Magic)], Magic) {
		return nil, fmt.Errorf("mszip: missing chunk magic at offset %d", magicOffset)
	}

	// bytes.Reader implements io.ByteReader, so flate.NewReader reads
	// from it directly with no extra buffering beyond the deflate
	// stream boundary, letting us resume exactly at the next chunk's
	// magic bytes.
	r := bytes.NewReader(data[magicOffset:])

	var out bytes.Buffer
	first := true

	for {
		var magic [4]byte
		n, err := io.ReadFull(r, magic[:])
		if err != nil || n < 4 {
			break
		}
		if !bytes.Equal(magic[:], Magic) {
			if first {
				return nil, fmt.Errorf("mszip: missing chunk magic at offset %d", magicOffset)
			}
			break
		}
		first = false

		fr := flate.NewReader(r)
		_, copyErr := io.Copy(&out, fr)
		fr.Close()
		if copyErr != nil {
			break
		}
	}

	return out.Bytes(), nil
}

// StripTailArtifacts removes any line containing bytes outside the
// allowed set {TAB, LF, CR, printable ASCII, U+00A0..U+FFFF}, which are
// artifacts of a truncated final chunk (spec §4.10 step B).
func StripTailArtifacts(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if lineIsClean(line) {
			kept = append(kept, line)
		}
	}

	return []byte(strings.Join(kept, "\n"))
}

func lineIsClean(line string) bool {
	for _, r := range line {
		if r == utf8.RuneError {
			return false
		}
		if isAllowedRune(r) {
			continue
		}
		return false
	}
	return true
}

func isAllowedRune(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return true
	}
	if r >= 0x20 && r <= 0x7E {
		return true
	}
	if r >= 0x00A0 && r <= 0xFFFF {
		return true
	}
	return false
}

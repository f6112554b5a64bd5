package mszip

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflateChunk(t *testing.T, plaintext string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(plaintext))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func buildStream(t *testing.T, chunks ...string) []byte {
	t.Helper()
	stream := make([]byte, magicOffset)

	for _, chunk := range chunks {
		stream = append(stream, Magic...)
		stream = append(stream, deflateChunk(t, chunk)...)
	}
	return stream
}

func TestDecompressSingleChunk(t *testing.T) {
	stream := buildStream(t, "hello mszip")

	out, err := Decompress(stream)
	require.NoError(t, err)
	assert.Equal(t, "hello mszip", string(out))
}

func TestDecompressConcatenatesMultipleChunks(t *testing.T) {
	stream := buildStream(t, "chunk-one-", "chunk-two")

	out, err := Decompress(stream)
	require.NoError(t, err)
	assert.Equal(t, "chunk-one-chunk-two", string(out))
}

func TestDecompressErrorsWithoutMagic(t *testing.T) {
	stream := make([]byte, magicOffset+8)

	_, err := Decompress(stream)
	assert.Error(t, err)
}

func TestStripTailArtifactsDropsLineWithControlByte(t *testing.T) {
	data := []byte("good line\nbad\x01line\nanother good line")

	cleaned := StripTailArtifacts(data)

	assert.Contains(t, string(cleaned), "good line")
	assert.Contains(t, string(cleaned), "another good line")
	assert.NotContains(t, string(cleaned), "bad")
}

func TestStripTailArtifactsKeepsTabsAndCarriageReturns(t *testing.T) {
	data := []byte("a\tb\r\nnext line")

	cleaned := StripTailArtifacts(data)

	assert.Equal(t, string(data), string(cleaned))
}

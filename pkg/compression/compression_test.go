package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("reversible circuits mix well "), 500)

	for _, compressor := range []Compressor{NewZstdCompressor(), NewGzipCompressor()} {
		compressed, err := compressor.Compress(payload)
		require.NoError(t, err)
		assert.Less(t, len(compressed), len(payload), "%T should shrink repetitive data", compressor)

		restored, err := compressor.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, payload, restored)
	}
}

func TestForType(t *testing.T) {
	c, err := ForType(TypeZstd)
	require.NoError(t, err)
	assert.Equal(t, TypeZstd, c.Type())

	c, err = ForType(TypeGzip)
	require.NoError(t, err)
	assert.Equal(t, TypeGzip, c.Type())

	_, err = ForType(Type(42))
	assert.Error(t, err)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := NewZstdCompressor().Decompress([]byte("not zstd"))
	assert.Error(t, err)

	_, err = NewGzipCompressor().Decompress([]byte("not gzip"))
	assert.Error(t, err)
}

func TestDefaultIsZstd(t *testing.T) {
	assert.Equal(t, TypeZstd, Default().Type())
}

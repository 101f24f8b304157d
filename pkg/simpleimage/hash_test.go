package simpleimage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

func TestHashBytes(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		data := []byte("hello world")
		assert.Equal(t, simpleimage.HashBytes(data), simpleimage.HashBytes(data))
	})

	t.Run("lowercase hex, fixed length", func(t *testing.T) {
		h := simpleimage.HashBytes([]byte("hello world"))
		assert.Len(t, h, 64)
		assert.Equal(t, strings.ToLower(h), h)
		// Known SHA-256 of "hello world"
		assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", h)
	})

	t.Run("distinct inputs yield distinct digests", func(t *testing.T) {
		seen := make(map[string]bool)
		inputs := [][]byte{nil, {}, []byte("a"), []byte("b"), []byte("ab"), []byte("ba")}
		for _, in := range inputs {
			seen[simpleimage.HashBytes(in)] = true
		}
		// nil and empty hash identically; everything else is distinct.
		assert.Len(t, seen, len(inputs)-1)
	})
}

func TestHashReader(t *testing.T) {
	data := bytes.Repeat([]byte("simple-image"), 100_000)

	h, err := simpleimage.HashReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, simpleimage.HashBytes(data), h)
}

func TestHashFile(t *testing.T) {
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 50_000)
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, data, 0644))

	h, err := simpleimage.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, simpleimage.HashBytes(data), h)

	t.Run("missing file", func(t *testing.T) {
		_, err := simpleimage.HashFile(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}

package simpleimage_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

func TestTypedErrors(t *testing.T) {
	t.Run("StorageError unwraps to its cause", func(t *testing.T) {
		cause := simpleimage.ErrObjectNotFound
		err := &simpleimage.StorageError{Key: "raw/abc.png", Op: "download", Err: cause}

		assert.ErrorIs(t, err, simpleimage.ErrObjectNotFound)
		assert.Contains(t, err.Error(), "raw/abc.png")
		assert.Contains(t, err.Error(), "download")
	})

	t.Run("TransformError unwraps to its cause", func(t *testing.T) {
		cause := fmt.Errorf("decode: unexpected EOF")
		err := &simpleimage.TransformError{Key: "transformed/abc_jpeg_50x0.jpeg", Op: "transform", Err: cause}

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "transform")
	})

	t.Run("wrapped sentinel survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("probing source: %w", simpleimage.ErrRawImageNotFound)
		assert.True(t, errors.Is(err, simpleimage.ErrRawImageNotFound))
	})
}

package simpleimage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

const testHash = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestRawKey(t *testing.T) {
	assert.Equal(t, "raw/"+testHash+".png", simpleimage.RawKey(testHash, "png"))
	assert.Equal(t, "raw/"+testHash+".jpg", simpleimage.RawKey(testHash, "jpg"))
}

func TestTransformKey(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		width       int
		height      int
		watermarked bool
		want        string
	}{
		{
			name:   "plain",
			format: "jpeg", width: 100, height: 50,
			want: "transformed/" + testHash + "_jpeg_100x50.jpeg",
		},
		{
			name:   "watermarked",
			format: "jpeg", width: 100, height: 50, watermarked: true,
			want: "transformed/" + testHash + "_jpeg_100x50_wm.jpeg",
		},
		{
			name:   "zero dimensions stay literal",
			format: "png", width: 0, height: 0,
			want: "transformed/" + testHash + "_png_0x0.png",
		},
		{
			name:   "derived height stays literal",
			format: "webp", width: 640, height: 0,
			want: "transformed/" + testHash + "_webp_640x0.webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simpleimage.TransformKey(testHash, tt.format, tt.width, tt.height, tt.watermarked)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformKeyUniqueness(t *testing.T) {
	base := simpleimage.TransformKey(testHash, "jpeg", 100, 50, false)

	assert.NotEqual(t, base, simpleimage.TransformKey(testHash, "png", 100, 50, false))
	assert.NotEqual(t, base, simpleimage.TransformKey(testHash, "jpeg", 101, 50, false))
	assert.NotEqual(t, base, simpleimage.TransformKey(testHash, "jpeg", 100, 51, false))
	assert.NotEqual(t, base, simpleimage.TransformKey(testHash, "jpeg", 100, 50, true))

	// Pure: identical arguments always produce identical strings.
	assert.Equal(t, base, simpleimage.TransformKey(testHash, "jpeg", 100, 50, false))
}

func TestTransformKeyPrefix(t *testing.T) {
	prefix := simpleimage.TransformKeyPrefix(testHash)
	key := simpleimage.TransformKey(testHash, "jpeg", 100, 50, true)
	assert.Contains(t, key, prefix)
}

func TestTransformRequestNormalized(t *testing.T) {
	t.Run("negative dimensions treated as unset", func(t *testing.T) {
		req := simpleimage.TransformRequest{Hash: testHash, Format: "JPEG", Width: -100, Height: -1}
		n := req.Normalized()
		assert.Equal(t, 0, n.Width)
		assert.Equal(t, 0, n.Height)
		assert.Equal(t, "jpeg", n.Format)
	})

	t.Run("oversized dimensions capped", func(t *testing.T) {
		req := simpleimage.TransformRequest{Hash: testHash, Format: "png", Width: 50_000, Height: 50_000}
		n := req.Normalized()
		assert.Equal(t, simpleimage.MaxDimension, n.Width)
		assert.Equal(t, simpleimage.MaxDimension, n.Height)
	})

	t.Run("negative and zero widths are cache-equivalent", func(t *testing.T) {
		a := simpleimage.TransformRequest{Hash: testHash, Format: "jpeg", Width: -100}
		b := simpleimage.TransformRequest{Hash: testHash, Format: "jpeg", Width: 0}
		assert.Equal(t, a.Normalized().Key(), b.Normalized().Key())
	})
}

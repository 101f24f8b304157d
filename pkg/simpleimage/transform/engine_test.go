package transform_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	_ "image/jpeg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-image/pkg/simpleimage"
	"github.com/tendant/simple-image/pkg/simpleimage/transform"
)

func writeTestPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}

	path := filepath.Join(dir, "src.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func decodeConfigFile(t *testing.T, path string) (image.Config, string) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg, format
}

func TestResolveDimensions(t *testing.T) {
	tests := []struct {
		name                 string
		origW, origH         int
		reqW, reqH           int
		expWidth, expHeight  int
	}{
		{"both zero keeps original", 100, 50, 0, 0, 100, 50},
		{"width only derives height", 100, 50, 100, 0, 100, 50},
		{"downscale width only", 100, 50, 50, 0, 50, 25},
		{"height only derives width", 100, 50, 0, 25, 50, 25},
		{"both set ignores aspect", 100, 50, 30, 30, 30, 30},
		{"negative treated as unset", 100, 50, -100, 0, 100, 50},
		{"odd ratio rounds to nearest", 100, 50, 33, 0, 33, 17},
		{"derived zero clamps to one", 100, 1, 1, 0, 1, 1},
		{"derived over cap is capped", 100, 50, 0, 10000, 10000, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := transform.ResolveDimensions(tt.origW, tt.origH, tt.reqW, tt.reqH)
			assert.Equal(t, tt.expWidth, w)
			assert.Equal(t, tt.expHeight, h)
		})
	}
}

func TestTransform(t *testing.T) {
	engine := transform.NewEngine()
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 100, 50)

	t.Run("resize and convert to jpeg", func(t *testing.T) {
		dest := filepath.Join(dir, "out.jpeg")

		info, err := engine.Transform(simpleimage.TransformOptions{
			SourcePath: src,
			DestPath:   dest,
			Format:     "jpeg",
			Width:      50,
			Height:     0,
			Quality:    85,
		})
		require.NoError(t, err)
		assert.True(t, info.Valid)
		assert.Equal(t, 50, info.Width)
		assert.Equal(t, 25, info.Height)
		assert.Positive(t, info.SizeBytes)

		cfg, format := decodeConfigFile(t, dest)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 25, cfg.Height)
	})

	t.Run("zero dimensions re-encode at original size", func(t *testing.T) {
		dest := filepath.Join(dir, "out.png")

		info, err := engine.Transform(simpleimage.TransformOptions{
			SourcePath: src,
			DestPath:   dest,
			Format:     "png",
		})
		require.NoError(t, err)
		assert.Equal(t, 100, info.Width)
		assert.Equal(t, 50, info.Height)

		cfg, format := decodeConfigFile(t, dest)
		assert.Equal(t, "png", format)
		assert.Equal(t, 100, cfg.Width)
		assert.Equal(t, 50, cfg.Height)
	})

	t.Run("unknown target format encodes as jpeg", func(t *testing.T) {
		dest := filepath.Join(dir, "out.xyz")

		_, err := engine.Transform(simpleimage.TransformOptions{
			SourcePath: src,
			DestPath:   dest,
			Format:     "xyz",
			Width:      10,
		})
		require.NoError(t, err)

		_, format := decodeConfigFile(t, dest)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("malformed source leaves no output", func(t *testing.T) {
		bad := filepath.Join(dir, "garbage.png")
		require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
		dest := filepath.Join(dir, "never.jpeg")

		_, err := engine.Transform(simpleimage.TransformOptions{
			SourcePath: bad,
			DestPath:   dest,
			Format:     "jpeg",
		})
		assert.ErrorIs(t, err, simpleimage.ErrInvalidImage)

		_, statErr := os.Stat(dest)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestInfo(t *testing.T) {
	engine := transform.NewEngine()
	dir := t.TempDir()

	t.Run("valid image", func(t *testing.T) {
		src := writeTestPNG(t, dir, 64, 32)

		info := engine.Info(src)
		assert.True(t, info.Valid)
		assert.Equal(t, 64, info.Width)
		assert.Equal(t, 32, info.Height)
		assert.Equal(t, "png", info.Format)
		assert.Positive(t, info.SizeBytes)
	})

	t.Run("garbage file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.bin")
		require.NoError(t, os.WriteFile(bad, []byte{0x00, 0x01, 0x02}, 0o644))

		info := engine.Info(bad)
		assert.False(t, info.Valid)
		assert.False(t, engine.IsValid(bad))
	})

	t.Run("missing file", func(t *testing.T) {
		info := engine.Info(filepath.Join(dir, "does-not-exist.png"))
		assert.False(t, info.Valid)
	})
}

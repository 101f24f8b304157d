package watermark_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-image/pkg/simpleimage/watermark"
)

func enabledConfig() watermark.Config {
	cfg := watermark.DefaultConfig()
	cfg.Enabled = true
	cfg.Text = "© example"
	return cfg
}

func solidImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 30, G: 60, B: 90, A: 255})
		}
	}
	return img
}

func TestCompositorApply(t *testing.T) {
	t.Run("disabled compositor returns the same instance", func(t *testing.T) {
		c := watermark.New(watermark.DefaultConfig(), nil)
		img := solidImage(100, 50)

		out := c.Apply(img)
		assert.Same(t, image.Image(img), out)
	})

	t.Run("watermarked output keeps dimensions and changes pixels", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		img := solidImage(400, 200)

		out := c.Apply(img)
		require.NotNil(t, out)
		assert.Equal(t, img.Bounds(), out.Bounds())

		changed := false
		for y := 0; y < 200 && !changed; y++ {
			for x := 0; x < 400; x++ {
				if out.At(x, y) != img.At(x, y) {
					changed = true
					break
				}
			}
		}
		assert.True(t, changed, "watermark text must alter some pixels")
	})

	t.Run("opaque input stays opaque", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		img := solidImage(400, 200)

		out := c.Apply(img)
		rgba, ok := out.(*image.RGBA)
		require.True(t, ok)
		assert.True(t, rgba.Opaque())
	})

	t.Run("watermark wider than a tiny image stays in bounds", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		img := solidImage(8, 8)

		out := c.Apply(img)
		require.NotNil(t, out)
		assert.Equal(t, img.Bounds(), out.Bounds())
	})

	t.Run("invalid configuration falls back to disabled defaults", func(t *testing.T) {
		cfg := enabledConfig()
		cfg.Opacity = 9

		c := watermark.New(cfg, nil)
		assert.Equal(t, watermark.DefaultConfig(), c.Config())

		img := solidImage(100, 50)
		assert.Same(t, image.Image(img), c.Apply(img))
	})
}

func TestCompositorApplyFile(t *testing.T) {
	dir := t.TempDir()

	writePNG := func(t *testing.T, name string) (string, []byte) {
		t.Helper()
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, solidImage(400, 200)))
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		return path, buf.Bytes()
	}

	t.Run("rewrites a valid image in place", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		path, original := writePNG(t, "in.png")

		c.ApplyFile(path, "png")

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, original, after)

		cfg, err := png.DecodeConfig(bytes.NewReader(after))
		require.NoError(t, err)
		assert.Equal(t, 400, cfg.Width)
		assert.Equal(t, 200, cfg.Height)
	})

	t.Run("leaves a non-image file untouched", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		path := filepath.Join(dir, "garbage.png")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

		c.ApplyFile(path, "png")

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("not an image"), after)
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		c := watermark.New(enabledConfig(), nil)
		assert.NotPanics(t, func() {
			c.ApplyFile(filepath.Join(dir, "does-not-exist.png"), "png")
		})
	})

	t.Run("disabled compositor never touches the file", func(t *testing.T) {
		c := watermark.New(watermark.DefaultConfig(), nil)
		path, original := writePNG(t, "untouched.png")

		c.ApplyFile(path, "png")

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, original, after)
	})
}

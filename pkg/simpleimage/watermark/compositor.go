// Package watermark composites a configured text watermark, with a drop
// shadow, onto transformed images. Compositing degrades gracefully: any
// internal failure yields the original, unwatermarked image.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

// Font size bounds for the scaled watermark text.
const (
	minFontSize = 12
	maxFontSize = 100
)

// fontScale is the watermark text size as a fraction of the image width.
const fontScale = 0.025

// Shadow placement relative to the text, and its opacity relative to the
// text's opacity.
const (
	shadowOffsetX       = 2
	shadowOffsetY       = 2
	shadowOpacityFactor = 0.7
)

// Compositor applies the configured watermark to images. It implements
// simpleimage.Watermarker.
type Compositor struct {
	cfg    Config
	font   *opentype.Font
	logger *slog.Logger
}

// New creates a compositor for the given configuration. An invalid
// configuration is replaced wholesale by the defaults. The typeface is
// parsed once here; if parsing fails the compositor permanently degrades to
// a pass-through.
func New(cfg Config, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compositor{cfg: Sanitize(cfg), logger: logger}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		logger.Warn("failed to parse watermark typeface, watermarking disabled", "error", err)
		return c
	}
	c.font = f
	return c
}

// Config returns the effective (sanitized) configuration.
func (c *Compositor) Config() Config {
	return c.cfg
}

// Apply composites the watermark onto img and returns the result. When
// watermarking is disabled the input is returned unchanged. Any internal
// failure is logged and the original image is returned: watermarking never
// fails the surrounding request.
func (c *Compositor) Apply(img image.Image) image.Image {
	if !c.cfg.Enabled || c.cfg.Text == "" {
		return img
	}

	out, err := c.compose(img)
	if err != nil {
		c.logger.Warn("watermark compositing failed, serving unwatermarked image", "error", err)
		return img
	}
	return out
}

// ApplyFile composites the watermark onto the image file at path in place.
// The file is left untouched when decoding, compositing or re-encoding
// fails.
func (c *Compositor) ApplyFile(path string, format string) {
	if !c.cfg.Enabled || c.cfg.Text == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		c.logger.Warn("watermark skipped: cannot open file", "path", path, "error", err)
		return
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		c.logger.Warn("watermark skipped: cannot decode file", "path", path, "error", err)
		return
	}

	out := c.Apply(img)
	if out == img {
		return
	}

	// Encode to a buffer first so a failed encode cannot corrupt the file.
	var buf bytes.Buffer
	if err := encode(&buf, out, format); err != nil {
		c.logger.Warn("watermark skipped: cannot re-encode file", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		c.logger.Warn("watermark skipped: cannot rewrite file", "path", path, "error", err)
	}
}

func (c *Compositor) compose(img image.Image) (out image.Image, err error) {
	// Compositing is pure pixel work, but glyph rendering has enough moving
	// parts that a panic here must not take down the request.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic during compositing: %v", r)
		}
	}()

	if c.font == nil {
		return nil, fmt.Errorf("no typeface available")
	}

	bounds := img.Bounds()
	size := scaledFontSize(bounds.Dx(), c.cfg.FontSize)

	glyph, err := c.renderGlyphs(c.cfg.Text, size)
	if err != nil {
		return nil, err
	}

	textLayer, shadowLayer := tintLayers(glyph, c.cfg)

	x, y := placement(bounds, glyph.Bounds(), c.cfg.Position, c.cfg.Margin)

	// Compositing over a fully opaque base keeps every pixel opaque, so an
	// input without alpha does not gain an alpha channel on encode.
	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, img, bounds.Min, draw.Src)

	// The shadow sits behind the text, offset by a small fixed delta; the
	// text is then drawn on top at the unshifted position.
	gw, gh := glyph.Bounds().Dx(), glyph.Bounds().Dy()
	origin := bounds.Min.Add(image.Point{X: x, Y: y})
	shadowOrigin := origin.Add(image.Point{X: shadowOffsetX, Y: shadowOffsetY})
	draw.Draw(base, image.Rectangle{Min: shadowOrigin, Max: shadowOrigin.Add(image.Point{X: gw, Y: gh})},
		shadowLayer, glyph.Bounds().Min, draw.Over)
	draw.Draw(base, image.Rectangle{Min: origin, Max: origin.Add(image.Point{X: gw, Y: gh})},
		textLayer, glyph.Bounds().Min, draw.Over)

	return base, nil
}

// renderGlyphs draws text as a standalone white-on-transparent image whose
// alpha channel carries the glyph shapes.
func (c *Compositor) renderGlyphs(text string, size int) (*image.RGBA, error) {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty glyph bounds for %q", text)
	}

	glyph := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = glyph
	d.Src = image.White
	d.Dot = fixed.Point26_6{X: 0, Y: metrics.Ascent}
	d.DrawString(text)

	return glyph, nil
}

// tintLayers recolors the glyph image to the configured color while
// preserving its alpha shape, scales the alpha by the configured opacity,
// and derives the black shadow layer at a reduced opacity.
func tintLayers(glyph *image.RGBA, cfg Config) (textLayer, shadowLayer *image.RGBA) {
	col, _ := parseHexColor(cfg.Color)

	b := glyph.Bounds()
	textLayer = image.NewRGBA(b)
	shadowLayer = image.NewRGBA(b)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := glyph.RGBAAt(x, y).A
			if a == 0 {
				continue
			}
			ta := uint8(math.Round(float64(a) * cfg.Opacity))
			sa := uint8(math.Round(float64(a) * cfg.Opacity * shadowOpacityFactor))

			// color.RGBA is alpha-premultiplied.
			textLayer.SetRGBA(x, y, color.RGBA{
				R: premultiply(col.R, ta),
				G: premultiply(col.G, ta),
				B: premultiply(col.B, ta),
				A: ta,
			})
			shadowLayer.SetRGBA(x, y, color.RGBA{A: sa})
		}
	}
	return textLayer, shadowLayer
}

// placement computes the top-left corner of the watermark bounding box for
// the configured corner and margin. Coordinates are clamped non-negative: a
// watermark larger than the image sits flush against the edge instead of at
// a negative position.
func placement(base, glyph image.Rectangle, pos Position, margin int) (int, int) {
	bw, bh := base.Dx(), base.Dy()
	gw, gh := glyph.Dx(), glyph.Dy()

	var x, y int
	switch pos {
	case PositionTopLeft:
		x, y = margin, margin
	case PositionTopRight:
		x, y = bw-gw-margin, margin
	case PositionBottomLeft:
		x, y = margin, bh-gh-margin
	default: // bottom-right
		x, y = bw-gw-margin, bh-gh-margin
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

func scaledFontSize(imageWidth, base int) int {
	if imageWidth <= 0 {
		return base
	}
	size := int(math.Round(float64(imageWidth) * fontScale))
	if size < minFontSize {
		size = minFontSize
	}
	if size > maxFontSize {
		size = maxFontSize
	}
	return size
}

func premultiply(c, a uint8) uint8 {
	return uint8(uint16(c) * uint16(a) / 0xff)
}

func encode(w *bytes.Buffer, img image.Image, format string) error {
	switch simpleimage.NormalizeFormat(format) {
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: simpleimage.DefaultQuality})
	}
}

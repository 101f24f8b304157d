// Package transform implements the decode/resize/encode step for image
// variants. Decoding and encoding are pure Go (no CGo), so no process-wide
// codec initialization or shutdown is needed.
package transform

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

// Engine decodes, resizes and re-encodes image files. It implements
// simpleimage.Transformer.
type Engine struct{}

// NewEngine creates a new transform engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Transform reads the image at opts.SourcePath, resolves the target
// dimensions, resamples with a Lanczos kernel and writes the re-encoded
// result to opts.DestPath. On failure no partial output is left behind.
func (e *Engine) Transform(opts simpleimage.TransformOptions) (*simpleimage.ImageInfo, error) {
	src, err := decodeFile(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", simpleimage.ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	width, height := ResolveDimensions(bounds.Dx(), bounds.Dy(), opts.Width, opts.Height)

	out := src
	if width != bounds.Dx() || height != bounds.Dy() {
		out = resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	}

	if err := encodeFile(opts.DestPath, out, opts.Format, opts.Quality); err != nil {
		os.Remove(opts.DestPath)
		return nil, err
	}

	st, err := os.Stat(opts.DestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	return &simpleimage.ImageInfo{
		Width:     width,
		Height:    height,
		Format:    opts.Format,
		SizeBytes: st.Size(),
		Valid:     true,
	}, nil
}

// Info reports the properties of the image at path without a full decode.
// Malformed input is reported as Valid=false.
func (e *Engine) Info(path string) simpleimage.ImageInfo {
	f, err := os.Open(path)
	if err != nil {
		return simpleimage.ImageInfo{}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return simpleimage.ImageInfo{}
	}

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	return simpleimage.ImageInfo{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		SizeBytes: size,
		Valid:     true,
	}
}

// IsValid is a cheap decode-probe: it reads only the image header.
func (e *Engine) IsValid(path string) bool {
	return e.Info(path).Valid
}

// ResolveDimensions computes the output pixel dimensions for a request
// against an original of origW x origH:
//
//   - negative requested dimensions are treated as unset (0)
//   - both 0 keeps the original dimensions
//   - exactly one 0 derives the missing dimension from the original aspect
//     ratio, rounded to the nearest integer
//   - both non-zero resizes to exactly those dimensions; the aspect ratio is
//     not preserved in that case
//
// Resolved dimensions are capped at simpleimage.MaxDimension and are at
// least 1.
func ResolveDimensions(origW, origH, reqW, reqH int) (int, int) {
	if reqW < 0 {
		reqW = 0
	}
	if reqH < 0 {
		reqH = 0
	}

	var w, h int
	switch {
	case reqW == 0 && reqH == 0:
		w, h = origW, origH
	case reqH == 0:
		w = reqW
		h = int(math.Round(float64(origH) * float64(reqW) / float64(origW)))
	case reqW == 0:
		h = reqH
		w = int(math.Round(float64(origW) * float64(reqH) / float64(origH)))
	default:
		w, h = reqW, reqH
	}

	return clampDimension(w), clampDimension(h)
}

func clampDimension(d int) int {
	if d < 1 {
		return 1
	}
	if d > simpleimage.MaxDimension {
		return simpleimage.MaxDimension
	}
	return d
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// encodeFile writes img to path in the given format. The stdlib and x/image
// encoders emit no EXIF or ancillary metadata, so transformed variants are
// stripped by construction. An unknown format falls back to the JPEG path
// rather than failing.
func encodeFile(path string, img image.Image, format string, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if quality < 1 || quality > 100 {
		quality = simpleimage.DefaultQuality
	}

	switch simpleimage.NormalizeFormat(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = enc.Encode(f, img)
	case "gif":
		err = gif.Encode(f, img, nil)
	case "bmp":
		err = bmp.Encode(f, img)
	case "tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		// jpg, jpeg, and any unknown target. WebP lands here too: there is
		// no pure-Go WebP encoder, so webp is decode-only.
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s output: %w", format, err)
	}

	return nil
}

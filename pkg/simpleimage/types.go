package simpleimage

import (
	"strings"
	"time"
)

// MaxDimension caps requested target dimensions to bound resource use.
const MaxDimension = 10000

// DefaultQuality is the encode quality applied when a request does not
// specify one.
const DefaultQuality = 85

// DefaultProbeFormats is the ordered list of lowercase extensions tried when
// locating a raw image by content hash.
var DefaultProbeFormats = []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"}

// RawImage describes an original uploaded image. A given byte sequence
// always maps to exactly one Hash and therefore one raw object key.
type RawImage struct {
	Hash       string    `json:"hash"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TransformRequest identifies one transformed variant of a raw image.
// Width or Height of 0 means "derive from the original aspect ratio";
// both 0 keeps the original pixel dimensions.
type TransformRequest struct {
	Hash        string `json:"hash"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Watermarked bool   `json:"watermarked"`
}

// Normalized returns a copy with negative dimensions treated as unset and
// oversized dimensions capped, and the format lowercased. Cache keys are
// derived from the normalized request, so a width of -100 and a width of 0
// resolve to the same variant.
func (r TransformRequest) Normalized() TransformRequest {
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	if r.Width > MaxDimension {
		r.Width = MaxDimension
	}
	if r.Height > MaxDimension {
		r.Height = MaxDimension
	}
	r.Format = strings.ToLower(r.Format)
	return r
}

// Key returns the object key for this variant. The key embeds the requested
// dimensions, not the resolved pixel dimensions: a request for 50x0 on a
// 100x50 original and an explicit request for 50x25 are distinct cache
// entries even though they resolve to the same pixels.
func (r TransformRequest) Key() string {
	return TransformKey(r.Hash, r.Format, r.Width, r.Height, r.Watermarked)
}

// CachedTransform describes a stored variant.
type CachedTransform struct {
	Key    string `json:"key"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageInfo reports the properties of an image file. Malformed input is
// reported as Valid=false rather than an error.
type ImageInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Valid     bool   `json:"valid"`
}

// UploadResult is returned by Service.UploadImage.
type UploadResult struct {
	Image *RawImage `json:"image"`
	Key   string    `json:"key"`
	// Duplicate is true when identical bytes were already stored and no
	// object-store write occurred.
	Duplicate bool `json:"duplicate"`
}

// MimeTypeForFormat maps a lowercase extension to its MIME type. Unknown
// formats map to application/octet-stream.
func MimeTypeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff", "tif":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// NormalizeFormat maps decoder format names and extension aliases to the
// canonical lowercase extension used in object keys.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	switch f {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	default:
		return f
	}
}

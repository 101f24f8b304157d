package simpleimage

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends. Keys are opaque
// path-like strings produced by RawKey and TransformKey. Implementations
// provide atomic put/exists/get per key but no cross-operation
// transactionality.
type BlobStore interface {
	// Exists reports whether an object is stored under objectKey.
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Upload uploads content directly.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters.
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content.
	Delete(ctx context.Context, objectKey string) error

	// ListKeys returns the keys of all stored objects whose key starts with
	// prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// GetDownloadURL returns a time-limited URL for downloading content.
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetUploadURL returns a time-limited URL for uploading content.
	GetUploadURL(ctx context.Context, objectKey string) (string, error)

	// GetObjectMeta retrieves metadata for an object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for raw image metadata persistence.
type Repository interface {
	SaveImage(ctx context.Context, image *RawImage) error
	GetImage(ctx context.Context, hash string) (*RawImage, error)
	DeleteImage(ctx context.Context, hash string) error
	ListImages(ctx context.Context) ([]*RawImage, error)
}

// Transformer decodes, resizes and re-encodes image files.
type Transformer interface {
	// Transform reads the image at opts.SourcePath and writes the resized,
	// re-encoded result to opts.DestPath. No partial output is written on
	// failure. The returned info describes the written output.
	Transform(opts TransformOptions) (*ImageInfo, error)

	// Info reports the properties of the image at path. Malformed input
	// yields Valid=false, never an error.
	Info(path string) ImageInfo

	// IsValid is a cheap decode-probe used to reject non-image uploads
	// before committing storage.
	IsValid(path string) bool
}

// Watermarker composites the configured watermark onto a transformed image
// file in place. Implementations absorb their own failures: the file is left
// unchanged when compositing cannot complete, and the surrounding request
// proceeds with the unwatermarked result.
type Watermarker interface {
	ApplyFile(path string, format string)
}

// TransformOptions are the inputs to Transformer.Transform.
type TransformOptions struct {
	SourcePath string
	DestPath   string
	Format     string
	Width      int
	Height     int
	Quality    int
}

// ObjectMeta contains metadata about an object in storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

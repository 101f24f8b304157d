package simpleimage

import (
	"context"
	"io"
)

// Service defines the main interface for the simple-image library.
type Service interface {
	// UploadImage hashes, validates and stores an original image. Uploading
	// bytes that are already stored is a no-op relative to storage and is
	// reported via UploadResult.Duplicate.
	UploadImage(ctx context.Context, req UploadImageRequest) (*UploadResult, error)

	// GetOrCreateTransform returns the object key of the requested variant,
	// creating and caching it on first request. Concurrent first requests
	// for the same variant share one computation.
	GetOrCreateTransform(ctx context.Context, req TransformRequest) (string, error)

	// GetImage returns the stored metadata record for a content hash.
	GetImage(ctx context.Context, hash string) (*RawImage, error)

	// ListImages returns all stored metadata records.
	ListImages(ctx context.Context) ([]*RawImage, error)

	// GetDownloadURL returns a time-limited access URL for an object key.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// InvalidateTransforms deletes every cached variant of a content hash
	// and returns the number of objects removed.
	InvalidateTransforms(ctx context.Context, hash string) (int, error)

	// DeleteImage removes the raw object, its cached variants and its
	// metadata record.
	DeleteImage(ctx context.Context, hash string) error
}

// UploadImageRequest contains parameters for uploading an original image.
// Format is optional; when empty it is detected from the image bytes.
type UploadImageRequest struct {
	Reader   io.Reader
	Format   string
	FileName string
}

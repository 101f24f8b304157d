// Package simpleimage provides a reusable library for content-addressed
// image storage with on-demand transformed variants served through a
// cache-aside object store.
//
// Uploaded images are identified by the SHA-256 digest of their bytes, so
// re-uploading identical bytes is a storage no-op. Transformed variants
// (resized, format-converted, optionally watermarked) are created lazily on
// first request and cached in the object store under a deterministic key
// derived from the request parameters. Concurrent misses for the same
// variant are coalesced into a single computation.
//
// The package exposes a single Service interface that orchestrates upload
// deduplication, variant creation, and URL generation. Implementations of
// blob stores (memory, filesystem, S3) and image metadata repositories
// (memory, Postgres) are provided under subpackages, as are the transform
// engine and the watermark compositor.
package simpleimage

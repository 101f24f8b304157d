package simpleimage

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRawImageNotFound indicates no raw object exists for a content hash
	// under any probed extension.
	ErrRawImageNotFound = errors.New("raw image not found")

	// ErrObjectNotFound indicates an object was not found in the blob store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidImage indicates bytes that could not be decoded as an image.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrTransformFailed indicates the transform step failed.
	ErrTransformFailed = errors.New("transform failed")

	// ErrUploadFailed indicates an object store write failed.
	ErrUploadFailed = errors.New("upload failed")

	// ErrDownloadFailed indicates an object store read failed.
	ErrDownloadFailed = errors.New("download failed")
)

// TransformError represents an error creating a transformed variant.
type TransformError struct {
	Key string
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob store operations.
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

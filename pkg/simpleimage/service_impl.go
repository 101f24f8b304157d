package simpleimage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// service implements the Service interface
type service struct {
	store        BlobStore
	repository   Repository
	transformer  Transformer
	watermarker  Watermarker
	probeFormats []string
	quality      int
	logger       *slog.Logger

	// flight coalesces concurrent cache misses for the same transform key
	// into a single computation.
	flight singleflight.Group
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the blob storage backend for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithRepository sets the image metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithTransformer sets the transform engine for the service
func WithTransformer(t Transformer) Option {
	return func(s *service) {
		s.transformer = t
	}
}

// WithWatermarker sets the watermark compositor for the service
func WithWatermarker(w Watermarker) Option {
	return func(s *service) {
		s.watermarker = w
	}
}

// WithProbeFormats overrides the ordered list of extensions tried when
// locating a raw image by content hash
func WithProbeFormats(formats []string) Option {
	return func(s *service) {
		s.probeFormats = formats
	}
}

// WithQuality sets the encode quality used for transformed variants
func WithQuality(quality int) Option {
	return func(s *service) {
		s.quality = quality
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		probeFormats: DefaultProbeFormats,
		quality:      DefaultQuality,
		logger:       slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}

	return s, nil
}

// Upload operations

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (*UploadResult, error) {
	if req.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}

	// Spool to a scoped temp file so large uploads can be hashed and
	// validated without holding the bytes in memory.
	dir, err := os.MkdirTemp("", "simpleimage-upload-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	localPath := filepath.Join(dir, uuid.NewString())
	size, err := spoolToFile(req.Reader, localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	if !s.transformer.IsValid(localPath) {
		return nil, ErrInvalidImage
	}

	hash, err := HashFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash upload: %w", err)
	}

	format := NormalizeFormat(req.Format)
	if format == "" {
		info := s.transformer.Info(localPath)
		if !info.Valid {
			return nil, ErrInvalidImage
		}
		format = NormalizeFormat(info.Format)
	}

	key := RawKey(hash, format)
	image := &RawImage{
		Hash:       hash,
		Format:     format,
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "exists", Err: err}
	}
	if exists {
		// Identical bytes are already stored; skip the write.
		s.logger.Debug("duplicate upload short-circuited", "hash", hash, "key", key)
		return &UploadResult{Image: image, Key: key, Duplicate: true}, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen spooled upload: %w", err)
	}
	defer f.Close()

	if err := s.store.UploadWithParams(ctx, f, UploadParams{
		ObjectKey: key,
		MimeType:  MimeTypeForFormat(format),
	}); err != nil {
		return nil, &StorageError{Key: key, Op: "upload", Err: err}
	}

	if s.repository != nil {
		if err := s.repository.SaveImage(ctx, image); err != nil {
			return nil, fmt.Errorf("failed to save image metadata: %w", err)
		}
	}

	s.logger.Info("uploaded raw image", "hash", hash, "format", format, "size", size)
	return &UploadResult{Image: image, Key: key}, nil
}

// Transform operations

func (s *service) GetOrCreateTransform(ctx context.Context, req TransformRequest) (string, error) {
	if req.Hash == "" {
		return "", fmt.Errorf("content hash is required")
	}
	req = req.Normalized()
	if req.Format == "" {
		return "", fmt.Errorf("target format is required")
	}

	key := req.Key()

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", &StorageError{Key: key, Op: "exists", Err: err}
	}
	if exists {
		return key, nil
	}

	// Cache miss: coalesce concurrent requests for the same key so only one
	// caller pays for the decode/transform/encode/upload sequence.
	result, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return key, s.createTransform(ctx, req, key)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *service) createTransform(ctx context.Context, req TransformRequest, key string) error {
	// A concurrent caller may have completed between our existence check and
	// joining the flight group.
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return &StorageError{Key: key, Op: "exists", Err: err}
	}
	if exists {
		return nil
	}

	rawKey, err := s.findRawKey(ctx, req.Hash)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "simpleimage-transform-")
	if err != nil {
		return &TransformError{Key: key, Op: "tempdir", Err: err}
	}
	defer os.RemoveAll(dir)

	rawPath := filepath.Join(dir, "raw"+filepath.Ext(rawKey))
	if err := s.downloadTo(ctx, rawKey, rawPath); err != nil {
		return err
	}

	outPath := filepath.Join(dir, "out."+req.Format)
	if _, err := s.transformer.Transform(TransformOptions{
		SourcePath: rawPath,
		DestPath:   outPath,
		Format:     req.Format,
		Width:      req.Width,
		Height:     req.Height,
		Quality:    s.quality,
	}); err != nil {
		return &TransformError{Key: key, Op: "transform", Err: err}
	}

	if req.Watermarked && s.watermarker != nil {
		// The compositor absorbs its own failures; the unwatermarked
		// transform is served when compositing cannot complete.
		s.watermarker.ApplyFile(outPath, req.Format)
	}

	out, err := os.Open(outPath)
	if err != nil {
		return &TransformError{Key: key, Op: "open", Err: err}
	}
	defer out.Close()

	if err := s.store.UploadWithParams(ctx, out, UploadParams{
		ObjectKey: key,
		MimeType:  MimeTypeForFormat(req.Format),
	}); err != nil {
		return &StorageError{Key: key, Op: "upload", Err: err}
	}

	s.logger.Info("created transform", "key", key, "raw", rawKey)
	return nil
}

// findRawKey probes the configured source formats in order and returns the
// key of the first stored raw object for the hash.
func (s *service) findRawKey(ctx context.Context, hash string) (string, error) {
	for _, ext := range s.probeFormats {
		key := RawKey(hash, ext)
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return "", &StorageError{Key: key, Op: "exists", Err: err}
		}
		if exists {
			return key, nil
		}
	}
	return "", ErrRawImageNotFound
}

func (s *service) downloadTo(ctx context.Context, objectKey, localPath string) error {
	rc, err := s.store.Download(ctx, objectKey)
	if err != nil {
		return &StorageError{Key: objectKey, Op: "download", Err: err}
	}
	defer rc.Close()

	if _, err := spoolToFile(rc, localPath); err != nil {
		return &StorageError{Key: objectKey, Op: "download", Err: err}
	}
	return nil
}

// Metadata and URL operations

func (s *service) GetImage(ctx context.Context, hash string) (*RawImage, error) {
	if s.repository == nil {
		return nil, fmt.Errorf("no repository configured")
	}
	return s.repository.GetImage(ctx, hash)
}

func (s *service) ListImages(ctx context.Context) ([]*RawImage, error) {
	if s.repository == nil {
		return nil, fmt.Errorf("no repository configured")
	}
	return s.repository.ListImages(ctx)
}

func (s *service) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	url, err := s.store.GetDownloadURL(ctx, objectKey, "")
	if err != nil {
		return "", &StorageError{Key: objectKey, Op: "download_url", Err: err}
	}
	return url, nil
}

// Invalidation operations

func (s *service) InvalidateTransforms(ctx context.Context, hash string) (int, error) {
	keys, err := s.store.ListKeys(ctx, TransformKeyPrefix(hash))
	if err != nil {
		return 0, &StorageError{Key: TransformKeyPrefix(hash), Op: "list", Err: err}
	}

	deleted := 0
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return deleted, &StorageError{Key: key, Op: "delete", Err: err}
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("invalidated transforms", "hash", hash, "count", deleted)
	}
	return deleted, nil
}

func (s *service) DeleteImage(ctx context.Context, hash string) error {
	rawKey, err := s.findRawKey(ctx, hash)
	if err != nil {
		return err
	}

	if _, err := s.InvalidateTransforms(ctx, hash); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, rawKey); err != nil {
		return &StorageError{Key: rawKey, Op: "delete", Err: err}
	}

	if s.repository != nil {
		if err := s.repository.DeleteImage(ctx, hash); err != nil {
			return fmt.Errorf("failed to delete image metadata: %w", err)
		}
	}

	s.logger.Info("deleted raw image", "hash", hash, "key", rawKey)
	return nil
}

// spoolToFile copies r to a new file at path and returns the byte count.
func spoolToFile(r io.Reader, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return 0, err
	}
	return n, nil
}

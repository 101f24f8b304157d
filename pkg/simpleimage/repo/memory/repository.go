package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/simple-image/pkg/simpleimage"
)

// Repository is an in-memory implementation of simpleimage.Repository,
// intended for tests and examples.
type Repository struct {
	mu     sync.RWMutex
	images map[string]*simpleimage.RawImage
}

// New creates a new in-memory repository
func New() simpleimage.Repository {
	return &Repository{
		images: make(map[string]*simpleimage.RawImage),
	}
}

func (r *Repository) SaveImage(ctx context.Context, image *simpleimage.RawImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Records are keyed by content hash; re-saving the same hash is the
	// dedup no-op, not a conflict.
	cp := *image
	r.images[image.Hash] = &cp
	return nil
}

func (r *Repository) GetImage(ctx context.Context, hash string) (*simpleimage.RawImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	image, exists := r.images[hash]
	if !exists {
		return nil, simpleimage.ErrRawImageNotFound
	}

	cp := *image
	return &cp, nil
}

func (r *Repository) DeleteImage(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.images[hash]; !exists {
		return simpleimage.ErrRawImageNotFound
	}

	delete(r.images, hash)
	return nil
}

func (r *Repository) ListImages(ctx context.Context) ([]*simpleimage.RawImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	images := make([]*simpleimage.RawImage, 0, len(r.images))
	for _, image := range r.images {
		cp := *image
		images = append(images, &cp)
	}
	sort.Slice(images, func(i, j int) bool {
		return images[i].UploadedAt.Before(images[j].UploadedAt)
	})
	return images, nil
}

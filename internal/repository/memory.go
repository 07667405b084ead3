package repository

import (
	"context"
	"sync"

	"github.com/notes-bin/gallery/internal/model"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	images map[int64]model.Image
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{images: make(map[int64]model.Image)}
}

func (r *MemoryRepository) Insert(ctx context.Context, img *model.Image) (*model.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := *img
	stored.ID = r.nextID
	r.images[stored.ID] = stored
	return &stored, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]model.Image, error) {
	r.mu.RLock()
	images := make([]model.Image, 0, len(r.images))
	for _, img := range r.images {
		images = append(images, img)
	}
	r.mu.RUnlock()

	SortNewestFirst(images)
	return images, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &img, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.images[id]; !ok {
		return ErrNotFound
	}
	delete(r.images, id)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }

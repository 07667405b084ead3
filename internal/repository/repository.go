// Package repository holds the image metadata store contract and its
// in-process and SQL implementations.
package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/notes-bin/gallery/internal/model"
)

var ErrNotFound = errors.New("image not found")

// Repository persists image records. List is always newest-first.
type Repository interface {
	Insert(ctx context.Context, img *model.Image) (*model.Image, error)
	List(ctx context.Context) ([]model.Image, error)
	Get(ctx context.Context, id int64) (*model.Image, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// SortNewestFirst orders by upload time descending, then id descending.
func SortNewestFirst(images []model.Image) {
	sort.SliceStable(images, func(i, j int) bool {
		if !images[i].UploadedAt.Equal(images[j].UploadedAt) {
			return images[i].UploadedAt.After(images[j].UploadedAt)
		}
		return images[i].ID > images[j].ID
	})
}

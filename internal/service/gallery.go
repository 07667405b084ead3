package service

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/notes-bin/gallery/internal/gallery"
	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"
)

// Query narrows and orders a listing. The zero value lists everything
// newest-first.
type Query struct {
	Search string
	Sort   gallery.SortMode
}

type Gallery struct {
	repo    repository.Repository
	files   Files
	metrics *metrics.Metrics
}

func NewGallery(repo repository.Repository, files Files, m *metrics.Metrics) *Gallery {
	return &Gallery{repo: repo, files: files, metrics: m}
}

func (g *Gallery) List(ctx context.Context, q Query) ([]model.Image, error) {
	images, err := g.repo.List(ctx)
	if err != nil {
		return nil, storageError("Failed to list images", err)
	}
	if q.Search != "" {
		images = gallery.Filter(images, q.Search)
	}
	if q.Sort != "" && q.Sort != gallery.SortNewest {
		images = gallery.Sort(images, q.Sort)
	}
	return images, nil
}

// Delete removes the backing file and then the record. A missing or
// unremovable file is only logged.
func (g *Gallery) Delete(ctx context.Context, id int64) error {
	err := g.delete(ctx, id)
	switch {
	case err == nil:
		g.metrics.RecordDelete("success")
	case errors.Is(err, ErrNotFound):
		g.metrics.RecordDelete("not_found")
	default:
		g.metrics.RecordDelete("error")
	}
	return err
}

func (g *Gallery) delete(ctx context.Context, id int64) error {
	img, err := g.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound()
	}
	if err != nil {
		return storageError("Failed to load image", err)
	}

	if err := g.files.DeleteFile(img.Filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Image file already missing", "image_id", id, "filename", img.Filename)
		} else {
			slog.Error("Failed to delete file", "image_id", id, "filename", img.Filename, "error", err)
		}
	}

	err = g.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		// 并发删除, 另一个请求已完成
		return notFound()
	}
	if err != nil {
		return storageError("Failed to delete metadata", err)
	}
	slog.Info("Image deleted", "image_id", id)
	return nil
}

func notFound() error {
	return &Error{Kind: ErrNotFound, Message: "Image not found"}
}

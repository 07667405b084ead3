package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-bin/gallery/internal/gallery"
	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func seed(t *testing.T, repo repository.Repository, names ...string) []*model.Image {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*model.Image, 0, len(names))
	for i, name := range names {
		img, err := repo.Insert(context.Background(), &model.Image{
			Filename:     name,
			OriginalName: name,
			Path:         "uploads/" + name,
			Size:         int64((i + 1) * 100),
			MimeType:     "image/png",
			UploadedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		out = append(out, img)
	}
	return out
}

func TestGalleryList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	seed(t, repo, "cat.png", "dog.png", "Caterpillar.png")
	g := NewGallery(repo, files, nil)

	t.Run("newest first by default", func(t *testing.T) {
		images, err := g.List(ctx, Query{})
		require.NoError(t, err)
		require.Len(t, images, 3)
		assert.Equal(t, "Caterpillar.png", images[0].OriginalName)
		assert.Equal(t, "cat.png", images[2].OriginalName)
	})

	t.Run("search ignores case", func(t *testing.T) {
		images, err := g.List(ctx, Query{Search: "CAT"})
		require.NoError(t, err)
		require.Len(t, images, 2)
	})

	t.Run("oldest", func(t *testing.T) {
		images, err := g.List(ctx, Query{Sort: gallery.SortOldest})
		require.NoError(t, err)
		assert.Equal(t, "cat.png", images[0].OriginalName)
	})

	t.Run("empty store", func(t *testing.T) {
		images, err := NewGallery(repository.NewMemoryRepository(), files, nil).List(ctx, Query{})
		require.NoError(t, err)
		assert.NotNil(t, images)
		assert.Empty(t, images)
	})
}

func TestGalleryDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	m := metrics.New()
	g := NewGallery(repo, files, m)

	img := seed(t, repo, "cat.png")[0]
	_, err = files.SaveFile(bytesOf(32), img.Filename, 64)
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, img.ID))
	assert.NoFileExists(t, files.GetFilePath(img.Filename))
	_, err = repo.Get(ctx, img.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// 第二次删除
	err = g.Delete(ctx, img.ID)
	require.ErrorIs(t, err, ErrNotFound)
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "Image not found", svcErr.Message)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletesTotal.WithLabelValues("not_found")))
}

func TestGalleryDeleteMissingFile(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	g := NewGallery(repo, files, nil)

	img := seed(t, repo, "gone.png")[0]
	require.NoError(t, g.Delete(ctx, img.ID))

	images, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestGalleryDeleteUnknown(t *testing.T) {
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	g := NewGallery(repository.NewMemoryRepository(), files, nil)
	assert.ErrorIs(t, g.Delete(context.Background(), 999), ErrNotFound)
}

func TestGalleryConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	g := NewGallery(repo, files, nil)
	img := seed(t, repo, "race.png")[0]

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- g.Delete(ctx, img.ID)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, notFound int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, notFound)
}

type brokenRepo struct {
	*repository.MemoryRepository
}

func (brokenRepo) List(ctx context.Context) ([]model.Image, error) {
	return nil, errors.New("connection refused")
}

func TestGalleryListStoreFailure(t *testing.T) {
	files, err := storage.NewStorage(t.TempDir())
	require.NoError(t, err)
	g := NewGallery(brokenRepo{repository.NewMemoryRepository()}, files, nil)

	_, err = g.List(context.Background(), Query{})
	require.ErrorIs(t, err, ErrStorage)
	assert.ErrorContains(t, err, "connection refused")
}

func bytesOf(n int) *bytes.Reader {
	return bytes.NewReader(make([]byte, n))
}

// Package repositorytest exercises any repository.Repository against the
// behaviour the gallery relies on.
package repositorytest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-bin/gallery/internal/model"
	"github.com/notes-bin/gallery/internal/repository"
)

func newImage(name string, at time.Time) *model.Image {
	return &model.Image{
		Filename:     "image-" + name,
		OriginalName: name,
		Path:         "uploads/image-" + name,
		Size:         int64(len(name)) * 100,
		MimeType:     "image/png",
		UploadedAt:   at,
	}
}

// Run executes the contract against repositories produced by open. Each
// subtest gets a fresh, empty repository.
func Run(t *testing.T, open func(t *testing.T) repository.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert assigns unique ids", func(t *testing.T) {
		repo := open(t)
		a, err := repo.Insert(ctx, newImage("a.png", base))
		require.NoError(t, err)
		b, err := repo.Insert(ctx, newImage("b.png", base.Add(time.Second)))
		require.NoError(t, err)

		assert.NotZero(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "a.png", a.OriginalName)
	})

	t.Run("get returns stored record", func(t *testing.T) {
		repo := open(t)
		created, err := repo.Insert(ctx, newImage("cat.png", base))
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "cat.png", got.OriginalName)
		assert.Equal(t, "uploads/image-cat.png", got.Path)
		assert.Equal(t, int64(700), got.Size)
		assert.Equal(t, "image/png", got.MimeType)
		assert.True(t, base.Equal(got.UploadedAt), "uploaded_at %v", got.UploadedAt)

		_, err = repo.Get(ctx, created.ID+1000)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list is newest first", func(t *testing.T) {
		repo := open(t)
		for i, name := range []string{"old.png", "newest.png", "middle.png"} {
			offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
			_, err := repo.Insert(ctx, newImage(name, base.Add(offset)))
			require.NoError(t, err)
		}

		images, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, images, 3)
		assert.Equal(t, "newest.png", images[0].OriginalName)
		assert.Equal(t, "middle.png", images[1].OriginalName)
		assert.Equal(t, "old.png", images[2].OriginalName)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		repo := open(t)
		images, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, images)
		assert.Empty(t, images)
	})

	t.Run("delete removes exactly one record", func(t *testing.T) {
		repo := open(t)
		keep, err := repo.Insert(ctx, newImage("keep.png", base))
		require.NoError(t, err)
		drop, err := repo.Insert(ctx, newImage("drop.png", base.Add(time.Minute)))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, drop.ID))
		assert.ErrorIs(t, repo.Delete(ctx, drop.ID), repository.ErrNotFound)

		images, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, keep.ID, images[0].ID)
	})

	t.Run("unknown id leaves store unchanged", func(t *testing.T) {
		repo := open(t)
		_, err := repo.Insert(ctx, newImage("only.png", base))
		require.NoError(t, err)

		assert.ErrorIs(t, repo.Delete(ctx, 424242), repository.ErrNotFound)
		images, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, images, 1)
	})

	t.Run("concurrent deletes have one winner", func(t *testing.T) {
		repo := open(t)
		img, err := repo.Insert(ctx, newImage("race.png", base))
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.Delete(ctx, img.ID)
			}()
		}
		wg.Wait()
		close(results)

		var ok, notFound int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, workers-1, notFound)
	})

	t.Run("ping", func(t *testing.T) {
		repo := open(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}

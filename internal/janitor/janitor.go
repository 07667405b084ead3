package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/notes-bin/gallery/internal/metrics"
	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/storage"
)

// Start sweeps the content directory every interval until ctx is done.
func Start(ctx context.Context, repo repository.Repository, files *storage.Storage, m *metrics.Metrics, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := Sweep(ctx, repo, files, grace, time.Now())
			if err != nil {
				slog.Error("Failed to sweep orphan files", "error", err)
				continue
			}
			m.RecordOrphans(removed)
			if removed > 0 {
				slog.Info("Removed orphan files", "count", removed)
			}
		}
	}
}

// Sweep removes files that no record references and that are older than
// grace. The grace period covers uploads whose record is not inserted yet.
func Sweep(ctx context.Context, repo repository.Repository, files *storage.Storage, grace time.Duration, now time.Time) (int, error) {
	images, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(images))
	for _, img := range images {
		referenced[img.Filename] = struct{}{}
	}

	entries, err := files.ListFiles()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range entries {
		if _, ok := referenced[f.Name]; ok {
			continue
		}
		if now.Sub(f.ModTime) < grace {
			continue
		}
		if err := files.DeleteFile(f.Name); err != nil {
			slog.Error("Failed to delete orphan file", "filename", f.Name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

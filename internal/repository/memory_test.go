package repository_test

import (
	"testing"

	"github.com/notes-bin/gallery/internal/repository"
	"github.com/notes-bin/gallery/internal/repository/repositorytest"
)

func TestMemoryRepository(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.Repository {
		return repository.NewMemoryRepository()
	})
}

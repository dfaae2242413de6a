package git

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// openEnclosingRepository walks up from sourceFolder to the first directory that is a git repository.
func openEnclosingRepository(sourceFolder string) (string, *git.Repository, error) {
	for {
		repo, err := git.PlainOpen(sourceFolder)
		if err == nil {
			return sourceFolder, repo, nil
		}

		parent := filepath.Dir(sourceFolder)
		if parent == sourceFolder {
			return "", nil, ErrNotRepository
		}
		sourceFolder = parent
	}
}

package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
)

// ErrNotRepository is returned when no enclosing git repository is found.
var ErrNotRepository = errors.New("source folder is not a git repository")

// RepositoryMetadata describes the checkout a scan ran in.
type RepositoryMetadata struct {
	BranchName    *string
	CommitHash    *string
	RepositoryURL *string
	Subfolder     string
	RootFolder    string
}

// CollectRepositoryMetadata collects branch name, commit hash and origin URL
// of the repository containing sourceFolder. On error the returned metadata
// still carries the resolved folder.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RootFolder: filepath.Clean(sourceFolder),
	}

	rootFolder, repo, err := openEnclosingRepository(sourceFolder)
	if err != nil {
		return md, err
	}
	md.RootFolder = filepath.Clean(rootFolder)

	if rel, err := filepath.Rel(rootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}

		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			repositoryURL := NormalizeRemoteURL(cfg.URLs[0])
			md.RepositoryURL = &repositoryURL
		}
	}

	return md, nil
}

// NormalizeRemoteURL turns ssh and https remotes into one https form,
// e.g. git@github.com:acme/app.git -> https://github.com/acme/app.
// URLs the parser does not understand are returned without a .git suffix.
func NormalizeRemoteURL(raw string) string {
	info, err := vcsurl.Parse(raw)
	if err != nil || info.ID == "" {
		return strings.TrimSuffix(raw, ".git")
	}
	return "https://" + info.ID
}

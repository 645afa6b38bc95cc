package git

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// struct with repository metadata
type RepositoryMetadata struct {
	BranchName     *string
	CommitHash     *string
	Subfolder      string
	RepoRootFolder string
}

// CollectRepositoryMetadata function collects repository metadata
// that includes branch name, commit hash, subfolder and repository root folder.
// When sourceFolder is not inside a repository the returned metadata points at
// sourceFolder itself and the error wraps ErrNotRepository.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(sourceFolder),
	}

	repo, repoRootFolder, err := openRepository(sourceFolder)
	if err != nil {
		return md, err
	}
	md.RepoRootFolder = filepath.Clean(repoRootFolder)

	if rel, err := filepath.Rel(md.RepoRootFolder, sourceFolder); err == nil && rel != "." {
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

	return md, nil
}

// FindRepositoryRoot returns the worktree root of the repository containing path.
func FindRepositoryRoot(path string) (string, error) {
	_, root, err := openRepository(path)
	return root, err
}

// openRepository opens the repository containing path, walking up parent folders.
func openRepository(path string) (*git.Repository, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("source folder is not set")
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, "", fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, "", ErrBareRepository
		}
		return nil, "", fmt.Errorf("failed to open worktree: %w", err)
	}

	return repo, wt.Filesystem.Root(), nil
}

package git

import "errors"

// Repo errors
var (
	ErrNotRepository  = errors.New("source folder is not a git repository")
	ErrBareRepository = errors.New("repository has no worktree")
	ErrNoAuthor       = errors.New("unable to determine a default author")
)

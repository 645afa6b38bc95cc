package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-ignore/internal/ci"
	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/internal/git"
	"github.com/scan-io-git/scanio-ignore/pkg/catalog"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
)

// DateLayout is the local-time layout of catalog entry dates.
const DateLayout = "2006-01-02T15:04:05"

const unknownAuthor = "unknown"

// FormatDate renders t the way catalog entries store dates.
func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// ResolveCatalogPath returns the catalog path from the flag value, then the config.
func ResolveCatalogPath(flagValue string, cfg *config.Config) (string, error) {
	path := strings.TrimSpace(flagValue)
	if path == "" && cfg != nil {
		path = cfg.Catalog.Path
	}
	if path == "" {
		path = config.DefaultCatalogPath
	}

	expanded, err := files.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand catalog path: %w", err)
	}
	return filepath.Abs(expanded)
}

// ResolveRoot picks the project root catalog paths are relative to:
// 1. the --source-folder flag.
// 2. catalog.root from the config.
// 3. the git repository containing the catalog.
// 4. the folder of the catalog.
func ResolveRoot(sourceFolder string, cfg *config.Config, catalogPath string, logger hclog.Logger) (string, error) {
	root := strings.TrimSpace(sourceFolder)
	if root == "" && cfg != nil {
		root = strings.TrimSpace(cfg.Catalog.Root)
	}

	if root != "" {
		expanded, err := files.ExpandPath(root)
		if err != nil {
			return "", fmt.Errorf("failed to expand source folder: %w", err)
		}
		if err := files.ValidateDir(expanded); err != nil {
			return "", fmt.Errorf("invalid source folder: %w", err)
		}
		return filepath.Abs(expanded)
	}

	catalogDir := filepath.Dir(catalogPath)
	md, err := git.CollectRepositoryMetadata(catalogDir)
	if err != nil {
		if !errors.Is(err, git.ErrNotRepository) {
			logger.Debug("git metadata lookup failed", "folder", catalogDir, "error", err)
		}
		return filepath.Abs(catalogDir)
	}

	if md.BranchName != nil && md.CommitHash != nil {
		logger.Debug("using repository root", "root", md.RepoRootFolder, "branch", *md.BranchName, "commit", *md.CommitHash)
	} else {
		logger.Debug("using repository root", "root", md.RepoRootFolder)
	}
	return md.RepoRootFolder, nil
}

// WorkspaceOptions converts catalog settings to workspace options.
func WorkspaceOptions(cfg *config.Config) catalog.WorkspaceOptions {
	opts := catalog.DefaultWorkspaceOptions()
	if cfg == nil {
		return opts
	}

	opts.ContextLines = cfg.Catalog.ContextRadius()
	if cfg.Catalog.SearchBound > 0 {
		opts.SearchBound = cfg.Catalog.SearchBound
	}
	if cfg.Catalog.CacheSize > 0 {
		opts.CacheSize = cfg.Catalog.CacheSize
	}
	if len(cfg.Catalog.DeclarationKeywords) > 0 {
		opts.Keywords = cfg.Catalog.DeclarationKeywords
	}
	return opts
}

// ResolveAuthor returns the configured author, then the user that triggered the
// CI job, then the git identity, then "unknown".
func ResolveAuthor(cfg *config.Config, root string, logger hclog.Logger) string {
	return resolveAuthor(cfg, root, ci.CurrentEnvironment, logger)
}

func resolveAuthor(cfg *config.Config, root string, detect func() (ci.CIEnvironment, error), logger hclog.Logger) string {
	if cfg != nil {
		if author := strings.TrimSpace(cfg.Catalog.Author); author != "" {
			return author
		}
	}

	if env, err := detect(); err == nil {
		if author := env.Author(); author != "" {
			logger.Debug("using CI actor as author", "ci", env.Kind.String(), "author", author)
			return author
		}
	}

	author, err := git.DefaultAuthor(root)
	if err != nil {
		logger.Warn("unable to determine author, using placeholder", "error", err)
		return unknownAuthor
	}
	return author
}

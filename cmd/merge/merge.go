package merge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/scanio-ignore/internal/cmd"
	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/internal/logger"
	"github.com/scan-io-git/scanio-ignore/pkg/catalog"
	"github.com/scan-io-git/scanio-ignore/pkg/shared"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/errors"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
)

// RunOptions holds the arguments for the merge command.
type RunOptions struct {
	IgnoreFile   string   `json:"ignore_file,omitempty"`
	SourceFolder string   `json:"source_folder,omitempty"`
	FragmentDirs []string `json:"fragment_dirs"`
	Cleanup      bool     `json:"cleanup"`
}

// Result describes the outcome of one merge.
type Result struct {
	CatalogPath    string `json:"catalog_path"`
	Fragments      int    `json:"fragments"`
	Entries        int    `json:"entries"`
	Added          int    `json:"added"`
	Retained       int    `json:"retained"`
	Obsolete       int    `json:"obsolete"`
	CatalogWritten bool   `json:"catalog_written"`
}

// Global variables for configuration and command arguments
var (
	AppConfig         *config.Config
	mergeOptions      RunOptions
	exampleMergeUsage = `  # Reduce the fragments written by parallel 'check --fragment-dir' workers
  scanio-ignore merge --ignorefile scanio-ignore.md /tmp/fragments

  # Reduce several fragment folders and remove the fragments afterwards
  scanio-ignore merge --cleanup /tmp/fragments-a /tmp/fragments-b`
)

// MergeCmd represents the merge command.
var MergeCmd = &cobra.Command{
	Use:                   "merge [--ignorefile PATH] [--source-folder DIR] [--cleanup] FRAGMENT_DIR...",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleMergeUsage,
	Short:                 "Reduce catalog fragments of parallel workers into one catalog",
	RunE:                  runMergeCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runMergeCommand executes the merge command.
func runMergeCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-merge")
	mergeOptions.FragmentDirs = args

	if err := validateMergeArgs(&mergeOptions); err != nil {
		logger.Error("invalid merge arguments", "error", err)
		return errors.NewCommandError(mergeOptions, nil, fmt.Errorf("invalid arguments: %w", err), errors.ExitUsage)
	}

	_, err := executeMerge(&mergeOptions, AppConfig, logger, cmd.OutOrStdout())
	return err
}

// validateMergeArgs validates the arguments provided to the merge command.
func validateMergeArgs(options *RunOptions) error {
	if len(options.FragmentDirs) == 0 {
		return fmt.Errorf("at least one fragment folder must be specified")
	}
	for _, dir := range options.FragmentDirs {
		if err := files.ValidateDir(dir); err != nil {
			return fmt.Errorf("invalid fragment folder: %w", err)
		}
	}
	return nil
}

// executeMerge replaces the catalog with the union of all fragments when it differs.
func executeMerge(opts *RunOptions, cfg *config.Config, logger hclog.Logger, out io.Writer) (*Result, error) {
	catalogPath, err := cmdutil.ResolveCatalogPath(opts.IgnoreFile, cfg)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}
	root, err := cmdutil.ResolveRoot(opts.SourceFolder, cfg, catalogPath, logger)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}
	ws, err := catalog.NewWorkspace(root, cmdutil.WorkspaceOptions(cfg))
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}

	var (
		fragmentPaths []string
		fragments     []catalog.Catalog
	)
	for _, dir := range opts.FragmentDirs {
		paths, err := filepath.Glob(filepath.Join(dir, "*"+catalog.FragmentExt))
		if err != nil {
			return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
		}
		c, err := catalog.LoadDir(dir, ws, logger)
		if err != nil {
			return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
		}
		fragmentPaths = append(fragmentPaths, paths...)
		fragments = append(fragments, c)
	}

	result := &Result{CatalogPath: catalogPath, Fragments: len(fragmentPaths)}
	if len(fragmentPaths) == 0 {
		err := fmt.Errorf("no catalog fragments found in %v", opts.FragmentDirs)
		return result, errors.NewCommandError(*opts, result, err, errors.ExitUsage)
	}

	prev, err := catalog.Load(catalogPath, ws, logger)
	if err != nil {
		return result, errors.NewCommandError(*opts, result, err, errors.ExitUsage)
	}
	next := catalog.Merge(fragments...)

	diff := catalog.Diff(prev, next)
	result.Entries = len(next)
	result.Added = len(diff.Added)
	result.Retained = len(diff.Retained)
	result.Obsolete = len(diff.Obsolete)

	if catalog.IsDirty(prev, next) {
		if err := catalog.Dump(next, catalogPath); err != nil {
			return result, errors.NewCommandError(*opts, result, err, errors.ExitUsage)
		}
		result.CatalogWritten = true
		logger.Info("catalog updated", "path", catalogPath, "fragments", result.Fragments, "entries", result.Entries)
	} else {
		logger.Info("catalog is up to date", "path", catalogPath)
	}

	if opts.Cleanup {
		for _, p := range fragmentPaths {
			if err := os.Remove(p); err != nil {
				logger.Warn("failed to remove fragment", "path", p, "error", err)
			}
		}
	}

	fmt.Fprintf(out, "Merged %d fragments into %s: %d entries (%d added, %d retained, %d obsolete)\n",
		result.Fragments, catalogPath, result.Entries, result.Added, result.Retained, result.Obsolete)
	return result, nil
}

func init() {
	MergeCmd.Flags().StringVar(&mergeOptions.IgnoreFile, "ignorefile", "", "Path to the catalog file (default is catalog.path from the config, then scanio-ignore.md)")
	MergeCmd.Flags().StringVar(&mergeOptions.SourceFolder, "source-folder", "", "Project root catalog paths are relative to (default is the git root of the catalog)")
	MergeCmd.Flags().BoolVar(&mergeOptions.Cleanup, "cleanup", false, "Remove the fragment files after a successful merge")
	MergeCmd.Flags().BoolP("help", "h", false, "Show help for merge command.")
}

package check

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	cmdutil "github.com/scan-io-git/scanio-ignore/internal/cmd"
	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/internal/logger"
	"github.com/scan-io-git/scanio-ignore/internal/sarif"
	"github.com/scan-io-git/scanio-ignore/pkg/catalog"
	"github.com/scan-io-git/scanio-ignore/pkg/shared"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/errors"
)

// RunOptions holds the arguments for the check command.
type RunOptions struct {
	SarifPath        string `json:"sarif_path,omitempty"`
	IgnoreFile       string `json:"ignore_file,omitempty"`
	IgnoreFileSet    bool   `json:"-"`
	UpdateIgnoreFile bool   `json:"update_ignore_file"`
	SourceFolder     string `json:"source_folder,omitempty"`
	OutputPath       string `json:"output_path,omitempty"`
	Mode             string `json:"mode,omitempty"`
	FragmentDir      string `json:"fragment_dir,omitempty"`
	SummaryPath      string `json:"summary_path,omitempty"`
}

// Result describes the outcome of one check run.
type Result struct {
	CatalogPath    string            `json:"catalog_path"`
	Root           string            `json:"root"`
	Stats          catalog.Stats     `json:"stats"`
	Added          int               `json:"added"`
	Retained       int               `json:"retained"`
	Obsolete       int               `json:"obsolete"`
	CatalogWritten bool              `json:"catalog_written"`
	FragmentPath   string            `json:"fragment_path,omitempty"`
	Severity       map[string]int    `json:"severity"`
	Surfaced       []catalog.Finding `json:"-"`
}

// Global variables for configuration and command arguments
var (
	AppConfig         *config.Config
	checkOptions      RunOptions
	exampleCheckUsage = `  # Report findings that are not acknowledged in scanio-ignore.md
  scanio-ignore check --sarif report.sarif

  # Write the filtered report and keep suppressed results marked instead of removed
  scanio-ignore check --sarif report.sarif --output filtered.sarif --mode mark

  # Acknowledge every current finding and rewrite the catalog
  scanio-ignore check --sarif report.sarif --ignorefile docs/scanio-ignore.md --update-ignorefile

  # Parallel worker: write a catalog fragment to be reduced later with 'merge'
  scanio-ignore check --sarif shard-3.sarif --update-ignorefile --fragment-dir /tmp/fragments`
)

// CheckCmd represents the check command.
var CheckCmd = &cobra.Command{
	Use:                   "check --sarif PATH [--ignorefile PATH] [--update-ignorefile] [--source-folder DIR] [--output PATH] [--mode drop|mark] [--fragment-dir DIR] [--summary PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleCheckUsage,
	Short:                 "Filter a SARIF report through the catalog of acknowledged findings",
	Long: `Filter a SARIF report through the catalog of acknowledged findings.

Findings recorded in the catalog are suppressed, even when their source line moved.
New findings are reported and make the command exit with code 1. With
--update-ignorefile every current finding is recorded and the catalog is rewritten
when it changed.`,
	RunE: runCheckCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runCheckCommand executes the check command.
func runCheckCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-check")
	checkOptions.IgnoreFileSet = cmd.Flags().Changed("ignorefile")

	if err := validateCheckArgs(&checkOptions, args); err != nil {
		logger.Error("invalid check arguments", "error", err)
		return errors.NewCommandError(checkOptions, nil, fmt.Errorf("invalid arguments: %w", err), errors.ExitUsage)
	}

	result, err := executeCheck(&checkOptions, AppConfig, logger, cmd.OutOrStdout(), time.Now())
	if checkOptions.SummaryPath != "" && result != nil {
		if werr := writeSummary(&checkOptions, result, err, logger); werr != nil {
			logger.Error("failed to write summary", "error", werr)
		}
	}
	return err
}

// executeCheck runs one check and returns a CommandError carrying the exit code on failure.
func executeCheck(opts *RunOptions, cfg *config.Config, logger hclog.Logger, out io.Writer, now time.Time) (*Result, error) {
	mode, err := sarif.ParseMode(opts.Mode)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}

	catalogPath, err := cmdutil.ResolveCatalogPath(opts.IgnoreFile, cfg)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}
	if opts.IgnoreFileSet && !opts.UpdateIgnoreFile {
		if _, err := os.Stat(catalogPath); err != nil {
			return nil, errors.NewCommandError(*opts, nil, fmt.Errorf("catalog file %q is not readable: %w", catalogPath, err), errors.ExitUsage)
		}
	}

	root, err := cmdutil.ResolveRoot(opts.SourceFolder, cfg, catalogPath, logger)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}
	ws, err := catalog.NewWorkspace(root, cmdutil.WorkspaceOptions(cfg))
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}
	logger.Debug("resolved paths", "catalog", catalogPath, "root", ws.Root())

	prev, err := catalog.Load(catalogPath, ws, logger)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}

	report, err := sarif.ReadReport(opts.SarifPath, logger)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}

	mergerOpts := catalog.MergerOptions{
		Date:   cmdutil.FormatDate(now),
		Update: opts.UpdateIgnoreFile,
	}
	if opts.UpdateIgnoreFile {
		mergerOpts.Author = cmdutil.ResolveAuthor(cfg, ws.Root(), logger)
	}
	merger := catalog.NewMerger(prev, ws, mergerOpts, logger)

	surfaced, err := report.Apply(merger, mode, ws)
	if err != nil {
		return nil, errors.NewCommandError(*opts, nil, err, errors.ExitUsage)
	}

	result := &Result{
		CatalogPath: catalogPath,
		Root:        ws.Root(),
		Stats:       merger.Stats(),
		Severity:    report.CollectSeverityInfo(),
		Surfaced:    surfaced,
	}

	if opts.OutputPath != "" {
		if err := report.Write(opts.OutputPath); err != nil {
			return result, errors.NewCommandError(*opts, result, err, errors.ExitUsage)
		}
		logger.Info("filtered report saved", "path", opts.OutputPath)
	}

	if opts.UpdateIgnoreFile {
		if err := persistCatalog(opts, result, prev, merger.Catalog(), logger); err != nil {
			return result, errors.NewCommandError(*opts, result, err, errors.ExitUsage)
		}
	}

	printFindings(out, surfaced)
	printSummary(out, result, opts.UpdateIgnoreFile)

	if len(surfaced) > 0 {
		return result, errors.NewCommandError(*opts, result, fmt.Errorf("%d unsuppressed findings", len(surfaced)), errors.ExitFindings)
	}
	return result, nil
}

// persistCatalog writes the updated catalog, or a fragment of it when running as a worker.
// The main catalog is only rewritten when it changed.
func persistCatalog(opts *RunOptions, result *Result, prev, next catalog.Catalog, logger hclog.Logger) error {
	diff := catalog.Diff(prev, next)
	result.Added = len(diff.Added)
	result.Retained = len(diff.Retained)
	result.Obsolete = len(diff.Obsolete)

	if opts.FragmentDir != "" {
		path, err := catalog.WriteFragment(next, opts.FragmentDir)
		if err != nil {
			return err
		}
		result.FragmentPath = path
		logger.Info("catalog fragment saved", "path", path, "entries", len(next))
		return nil
	}

	if !catalog.IsDirty(prev, next) {
		logger.Info("catalog is up to date", "path", result.CatalogPath)
		return nil
	}
	if err := catalog.Dump(next, result.CatalogPath); err != nil {
		return err
	}
	result.CatalogWritten = true
	logger.Info("catalog updated", "path", result.CatalogPath, "added", result.Added, "retained", result.Retained, "obsolete", result.Obsolete)
	return nil
}

// writeSummary saves the run result as JSON.
func writeSummary(opts *RunOptions, result *Result, runErr error, logger hclog.Logger) error {
	status, message := "OK", "no unsuppressed findings"
	if runErr != nil {
		status, message = "FAILED", runErr.Error()
	}
	launches := shared.GenericLaunchesResult{
		Launches: []shared.GenericResult{
			{Args: opts, Result: result, Status: status, Message: message},
		},
	}
	return shared.WriteJsonFile(launches, opts.SummaryPath, logger)
}

func init() {
	CheckCmd.Flags().StringVar(&checkOptions.SarifPath, "sarif", "", "Path to the SARIF report to filter")
	CheckCmd.Flags().StringVar(&checkOptions.IgnoreFile, "ignorefile", "", "Path to the catalog file (default is catalog.path from the config, then scanio-ignore.md)")
	CheckCmd.Flags().BoolVar(&checkOptions.UpdateIgnoreFile, "update-ignorefile", false, "Record every current finding and rewrite the catalog when it changed")
	CheckCmd.Flags().StringVar(&checkOptions.SourceFolder, "source-folder", "", "Project root catalog paths are relative to (default is the git root of the catalog)")
	CheckCmd.Flags().StringVarP(&checkOptions.OutputPath, "output", "o", "", "Path to write the filtered SARIF report to")
	CheckCmd.Flags().StringVar(&checkOptions.Mode, "mode", string(sarif.ModeDrop), "What to do with suppressed results in the output: drop or mark")
	CheckCmd.Flags().StringVar(&checkOptions.FragmentDir, "fragment-dir", "", "Write the updated catalog as a fragment into this folder instead of rewriting the catalog")
	CheckCmd.Flags().StringVar(&checkOptions.SummaryPath, "summary", "", "Path to write a JSON summary of the run to")
	CheckCmd.Flags().BoolP("help", "h", false, "Show help for check command.")
}

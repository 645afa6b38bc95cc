package version

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/pkg/shared"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
	jsonOutput    bool
)

// CoreVersions holds version information and the settings the binary runs with.
type CoreVersions struct {
	Versions    shared.Versions `json:"versions"`
	CatalogPath string          `json:"catalog_path"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "version [--json]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersionInfo(cmd.OutOrStdout(), collectVersions(AppConfig), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print version information as JSON")
	return cmd
}

func collectVersions(cfg *config.Config) *CoreVersions {
	catalogPath := config.DefaultCatalogPath
	if cfg != nil && cfg.Catalog.Path != "" {
		catalogPath = cfg.Catalog.Path
	}
	return &CoreVersions{
		Versions: shared.Versions{
			Version:       CoreVersion,
			GolangVersion: GolangVersion,
			BuildTime:     BuildTime,
		},
		CatalogPath: catalogPath,
	}
}

// printVersionInfo prints the version information for the core application.
func printVersionInfo(out io.Writer, versions *CoreVersions, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(versions, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	fmt.Fprintf(out, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintf(out, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(out, "Build Time: %s\n", versions.Versions.BuildTime)
	fmt.Fprintf(out, "Catalog: %s\n", versions.CatalogPath)
	return nil
}

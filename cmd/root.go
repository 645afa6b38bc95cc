package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-ignore/cmd/check"
	"github.com/scan-io-git/scanio-ignore/cmd/merge"
	"github.com/scan-io-git/scanio-ignore/cmd/version"
	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "scanio-ignore [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "scanio-ignore filters acknowledged findings out of SARIF reports.",
		Long: `scanio-ignore keeps a human-editable catalog of acknowledged findings next to the code
	and removes or marks the matching results of SARIF reports, even after the code around them moved.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(check.CheckCmd)
	rootCmd.AddCommand(merge.MergeCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var cmdErr *errors.CommandError
	if stderrors.As(err, &cmdErr) {
		if cmdErr.ExitCode != errors.ExitFindings {
			fmt.Fprintf(os.Stderr, "Error executing command: %v\n", cmdErr)
		}
		return cmdErr.ExitCode
	}

	fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	return errors.ExitUsage
}

func initConfig() {
	var err error

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath
	}
	AppConfig, err = config.LoadConfig(path, cfgFile != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config file - %v\n", err)
		os.Exit(errors.ExitUsage)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitUsage)
	}

	version.Init(AppConfig)
	check.Init(AppConfig)
	merge.Init(AppConfig)
}

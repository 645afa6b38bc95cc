package shared

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
)

// HasFlags reports whether any flag was explicitly set on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) {
		changed = true
	})
	return changed
}

// WriteJsonFile writes data as indented JSON to outputFile.
func WriteJsonFile(data interface{}, outputFile string, logger hclog.Logger) error {
	file, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed creating file: %w", err)
	}
	defer file.Close()

	datawriter := bufio.NewWriter(file)
	defer datawriter.Flush()

	resultJson, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := datawriter.Write(resultJson); err != nil {
		return fmt.Errorf("error writing data to file: %w", err)
	}
	logger.Info("Results saved to file", "path", outputFile)
	return nil
}

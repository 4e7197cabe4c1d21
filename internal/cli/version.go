package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/remit/internal/output"
)

// BuildInfo is stamped into the binary at build time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // Set once from main
var buildInfo BuildInfo

// SetBuildInfo records the build metadata reported by "remit version".
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// FormatVersion renders build metadata, filling unknown fields.
func FormatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if format == output.FormatJSON {
			return output.PrintJSON(cmd.OutOrStdout(), buildInfo)
		}
		outln(cmd.OutOrStdout(), "remit "+FormatVersion(buildInfo))
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}

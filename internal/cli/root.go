// Package cli implements the remit command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrz1836/remit/internal/config"
	"github.com/mrz1836/remit/internal/output"
	remiterr "github.com/mrz1836/remit/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
	format   = output.FormatText
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "remit",
	Short: "Send TON, TRON and their tokens from the terminal",
	Long: `remit walks a transfer from recipient to confirmation: it resolves the
recipient (including TON DNS names), estimates the network fee, checks your
balance and asks for your password only when it is time to sign.

Example:
  remit keystore import main --ton-address EQ...
  remit send --chain ton --to alice.ton --amount 1.5
  remit send --chain tron --to T... --asset USDT --max`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return remiterr.ExitCode(err)
}

// initGlobals loads configuration and builds the logger.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	loaded, err := config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg = loaded
	cfg.Home = home

	config.ApplyEnvironment(cfg)
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	l, closeFn, err := config.NewLogger(config.LoggingConfig{Level: cfg.Logging.Level, File: cfg.LogPath()})
	if err != nil {
		// Run without logs when the log file cannot be opened.
		l, closeFn = zap.NewNop(), func() error { return nil }
	}
	logger, closeLog = l, closeFn

	format = output.DetectFormat(os.Stdout, output.ParseFormat(outputFormat))
	return nil
}

// cleanup releases resources.
func cleanup() {
	_ = closeLog()
}

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "remit data directory (default: ~/.remit)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug logs")
}

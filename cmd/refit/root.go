// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for refit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"refit/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// Verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "refit",
		Short: "A caching pipeline for Bayesian model fits",
		Long: TitleStyle.Render("refit") + SubtitleStyle.Render(" - A caching pipeline for Bayesian model fits") + `

refit runs Bayesian regression models through an external sampler
engine and caches every artifact it produces. Re-running an analysis
returns cached fits instantly, and a cached prior-only compiled model
lets the data-conditioned fit skip compilation entirely.

Models are defined in CUE files; datasets are CSV files with a
header row.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Write a model file (formula, family, priors)
  2. refit compile model.cue        Warm the cache with a prior-only build
  3. refit fit model.cue data.csv   Fit, reusing whatever is cached

` + SubtitleStyle.Render("Examples:") + `
  refit fit model.cue data.csv --name fit_rt --prior prior_pred_rt
  refit compile model.cue --name prior_pred_rt
  refit cache list                  List cached artifacts
  refit config show                 Show current configuration
  refit mirror push                 Upload cached artifacts to the team mirror`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/refit/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mirrorCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// fang overrides rootCmd.Version, so the version goes through fang.WithVersion
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

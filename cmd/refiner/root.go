// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"refiner-cli/internal/config"
	"refiner-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "refiner",
		Short: "Refine Unwrapped Spotify contributions and release the refiner image",
		Long: TitleStyle.Render("refiner") + SubtitleStyle.Render(" - Unwrapped Spotify data refiner") + `

refiner turns raw Unwrapped Spotify contributions into a normalized,
encrypted SQLite database and pins the result to IPFS, and it drives
the release pipeline that builds, archives, checksums and publishes
the refiner container image.

` + SubtitleStyle.Render("Examples:") + `
  refiner refine                 Refine the contributions in the input directory
  refiner release                Build and export the refiner image
  refiner release --publish      Build, export and publish a tagged release
  refiner schema                 Show the refined database schema
  refiner config show            Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/refiner/config.cue)")

	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
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
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
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

// configProvider resolves configuration for all commands. A fixed
// provider keeps the lookup explicit instead of leaning on package
// globals, and lets tests substitute their own.
var configProvider config.Provider = config.NewProvider()

// initRootConfig installs the default logger before any command runs.
func initRootConfig() {
	initLogging()
}

// initLogging installs a styled handler as the process-wide slog default
// so internal packages log through it without importing the CLI layer.
func initLogging() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "refiner",
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(logger))
}

// loadConfig loads the configuration through the provider, surfacing
// load errors as warnings and falling back to defaults, matching how
// the refinement service runs the container without a config file.
func loadConfig() *config.Config {
	cfg, err := configProvider.Load(context.Background(), config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		printGuidance(os.Stderr, guidanceFor(err))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if !verbose && cfg.UI.Verbose {
		verbose = true
		initLogging()
	}
	return cfg
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

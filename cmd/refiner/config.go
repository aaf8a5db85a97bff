// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"refiner-cli/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage refiner configuration",
	Long: `Manage refiner configuration.

Configuration is stored in:
  - Linux: ~/.config/refiner/config.cue
  - macOS: ~/Library/Application Support/refiner/config.cue
  - Windows: %APPDATA%\refiner\config.cue

Every setting can also be supplied through environment variables; the
refinement service injects INPUT_DIR, OUTPUT_DIR, REFINEMENT_ENCRYPTION_KEY
and the Pinata/Spotify credentials that way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd)
		},
	})
}

func showConfig(cmd *cobra.Command) error {
	cfg := loadConfig()

	// Secrets stay out of terminal output.
	redacted := *cfg
	redacted.RefinementEncryptionKey = redact(cfg.RefinementEncryptionKey)
	redacted.Pinata.APIKey = redact(cfg.Pinata.APIKey)
	redacted.Pinata.APISecret = redact(cfg.Pinata.APISecret)
	redacted.Spotify.ClientSecret = redact(cfg.Spotify.ClientSecret)
	redacted.GitHub.Token = redact(cfg.GitHub.Token)

	encoded, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "<redacted>"
}

// defaultConfigCUE is the starter config written by `refiner config init`.
const defaultConfigCUE = `// refiner configuration
input_dir:  "/input"
output_dir: "/output"

container_engine: "docker"

schema: {
	name:    "Unwrapped Spotify Data"
	version: "0.1.1"
	dialect: "sqlite"
}

release: {
	version_file: "VERSION"
	image_name:   "refiner"
	context_dir:  "."
}
`

func initConfigFile(cmd *cobra.Command) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfigCUE), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Created ")+ValueStyle.Render(path))
	return nil
}

func showConfigPath(cmd *cobra.Command) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"refiner-cli/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "refiner"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	// maxConfigFileSize caps config file reads to keep CUE compilation bounded.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// envBindings maps viper keys to accepted environment variable names.
// The unprefixed names are the ones the refinement service injects in
// production; the REFINER_-prefixed variants exist for local use where the
// bare names would be too generic.
var envBindings = map[string][]string{
	"input_dir":                 {"REFINER_INPUT_DIR", "INPUT_DIR"},
	"output_dir":                {"REFINER_OUTPUT_DIR", "OUTPUT_DIR"},
	"refinement_encryption_key": {"REFINEMENT_ENCRYPTION_KEY"},
	"file_id":                   {"FILE_ID"},
	"container_engine":          {"REFINER_CONTAINER_ENGINE"},
	"schema.name":               {"SCHEMA_NAME"},
	"schema.version":            {"SCHEMA_VERSION"},
	"schema.description":        {"SCHEMA_DESCRIPTION"},
	"schema.dialect":            {"SCHEMA_DIALECT"},
	"pinata.api_key":            {"PINATA_API_KEY"},
	"pinata.api_secret":         {"PINATA_API_SECRET"},
	"pinata.gateway":            {"PINATA_API_GATEWAY"},
	"spotify.client_id":         {"SPOTIFY_CLIENT_ID"},
	"spotify.client_secret":     {"SPOTIFY_CLIENT_SECRET"},
	"spotify.api_url":           {"SPOTIFY_API_URL"},
	"spotify.token_url":         {"SPOTIFY_TOKEN_URL"},
	"spotify.max_ids_per_batch": {"SPOTIFY_MAX_IDS_PER_BATCH"},
	"spotify.call_delay_seconds": {
		"SPOTIFY_API_CALL_DELAY_SECONDS", "API_CALL_DELAY_SECONDS",
	},
	"github.token":         {"GITHUB_TOKEN"},
	"github.owner":         {"GITHUB_REPOSITORY_OWNER", "REFINER_GITHUB_OWNER"},
	"github.repo":          {"REFINER_GITHUB_REPO"},
	"release.version_file": {"REFINER_VERSION_FILE"},
	"release.image_name":   {"REFINER_IMAGE_NAME"},
	"release.context_dir":  {"REFINER_CONTEXT_DIR"},
	"ui.verbose":           {"REFINER_VERBOSE"},
}

// ConfigDir returns the refiner configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads configuration from the default locations. It applies
// defaults, the config file (when present) and environment variables,
// then validates the merged result.
func Load() (*Config, error) {
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	return cfg, err
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("input_dir", defaults.InputDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("schema.name", defaults.Schema.Name)
	v.SetDefault("schema.version", defaults.Schema.Version)
	v.SetDefault("schema.description", defaults.Schema.Description)
	v.SetDefault("schema.dialect", defaults.Schema.Dialect)
	v.SetDefault("pinata.gateway", defaults.Pinata.Gateway)
	v.SetDefault("spotify.api_url", defaults.Spotify.APIURL)
	v.SetDefault("spotify.token_url", defaults.Spotify.TokenURL)
	v.SetDefault("spotify.max_ids_per_batch", defaults.Spotify.MaxIDsPerBatch)
	v.SetDefault("spotify.call_delay_seconds", defaults.Spotify.CallDelaySeconds)
	v.SetDefault("release.version_file", defaults.Release.VersionFile)
	v.SetDefault("release.image_name", defaults.Release.ImageName)
	v.SetDefault("release.context_dir", defaults.Release.ContextDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, "", fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	resolvedPath := ""

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'refiner config show' to see default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", wrapConfigFileError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", wrapConfigFileError(cuePath, err)
			}
			resolvedPath = cuePath
		}
		// If no config file found, use defaults and env (no error)
	}

	var cfg Config
	// Environment values arrive as strings; weak typing lets them decode
	// into int, bool and *int64 fields (e.g. FILE_ID).
	weaklyTyped := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(&cfg, weaklyTyped); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate constraints that CUE cannot express: values merged from the
	// environment never pass through the CUE schema.
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check environment variables for empty or misspelled values").
			WithSuggestion("Run 'refiner config show' to inspect the merged configuration").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// wrapConfigFileError decorates CUE load failures with remediation hints.
func wrapConfigFileError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithSuggestion("See 'refiner config --help' for configuration options").
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// This decodes to map[string]any (not a struct) so the file merges with
// Viper's defaults and can still be overridden by environment variables.
// Concrete(false) is used because all config fields are optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if int64(len(data)) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	// Compile the schema
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	// Compile the user's config file
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with schema to validate against the #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	// Decode to Go map
	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens a CUE error list into one readable error,
// one "path: message" line per underlying failure.
func formatCUEError(err error, path string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}

	var lines []string
	for _, e := range cueErrs {
		fieldPath := strings.Join(cueerrors.Path(e), ".")
		if fieldPath != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", fieldPath, e.Error()))
		} else {
			lines = append(lines, e.Error())
		}
	}
	return fmt.Errorf("%s: %s", path, strings.Join(lines, "; "))
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

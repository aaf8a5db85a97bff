// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"

	// SchemaDialectSQLite is the only dialect the refiner emits.
	SchemaDialectSQLite = "sqlite"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidDirPath is returned when a directory setting is empty or whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidSchemaDialect is returned when the schema dialect is not "sqlite".
	ErrInvalidSchemaDialect = errors.New("invalid schema dialect")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// InvalidDirPathError is returned when a directory setting is empty or whitespace-only.
	// It wraps ErrInvalidDirPath for errors.Is() compatibility.
	InvalidDirPathError struct {
		Field string
		Value string
	}

	// InvalidConfigError aggregates field-level validation failures.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Causes []error
	}

	// SchemaConfig describes the off-chain schema metadata published
	// alongside the refined database.
	SchemaConfig struct {
		Name        string `json:"name" mapstructure:"name"`
		Version     string `json:"version" mapstructure:"version"`
		Description string `json:"description" mapstructure:"description"`
		Dialect     string `json:"dialect" mapstructure:"dialect"`
	}

	// PinataConfig holds credentials for the Pinata IPFS pinning service.
	// Both key and secret must be set for uploads to happen; otherwise the
	// refiner falls back to local file:// URLs.
	PinataConfig struct {
		APIKey    string `json:"api_key" mapstructure:"api_key"`
		APISecret string `json:"api_secret" mapstructure:"api_secret"`
		Gateway   string `json:"gateway" mapstructure:"gateway"`
	}

	// SpotifyConfig holds Spotify Web API credentials and tuning knobs for
	// artist/track enrichment.
	SpotifyConfig struct {
		ClientID     string `json:"client_id" mapstructure:"client_id"`
		ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
		APIURL       string `json:"api_url" mapstructure:"api_url"`
		TokenURL     string `json:"token_url" mapstructure:"token_url"`
		// MaxIDsPerBatch caps how many IDs a single lookup request carries.
		MaxIDsPerBatch int `json:"max_ids_per_batch" mapstructure:"max_ids_per_batch"`
		// CallDelaySeconds is the pause between consecutive API calls.
		CallDelaySeconds float64 `json:"call_delay_seconds" mapstructure:"call_delay_seconds"`
	}

	// GitHubConfig identifies the repository releases are published to.
	GitHubConfig struct {
		Token string `json:"token" mapstructure:"token"`
		Owner string `json:"owner" mapstructure:"owner"`
		Repo  string `json:"repo" mapstructure:"repo"`
	}

	// ReleaseConfig holds release pipeline settings.
	ReleaseConfig struct {
		// VersionFile is the single-line file the pipeline reads the version from.
		VersionFile string `json:"version_file" mapstructure:"version_file"`
		// ImageName is the image repository part of the built tags.
		ImageName string `json:"image_name" mapstructure:"image_name"`
		// ContextDir is the container build context directory.
		ContextDir string `json:"context_dir" mapstructure:"context_dir"`
	}

	// UIConfig holds output preferences.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config is the root refiner configuration.
	Config struct {
		// InputDir contains the contribution files to process.
		InputDir string `json:"input_dir" mapstructure:"input_dir"`
		// OutputDir receives the refined database, schema and archives.
		OutputDir string `json:"output_dir" mapstructure:"output_dir"`
		// RefinementEncryptionKey symmetrically encrypts the refined database.
		// Derived from the original file encryption key by the refinement service.
		RefinementEncryptionKey string `json:"refinement_encryption_key" mapstructure:"refinement_encryption_key"`
		// FileID identifies the input file being processed; injected by the
		// refinement service, nil when running locally.
		FileID *int64 `json:"file_id" mapstructure:"file_id"`

		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`

		Schema  SchemaConfig  `json:"schema" mapstructure:"schema"`
		Pinata  PinataConfig  `json:"pinata" mapstructure:"pinata"`
		Spotify SpotifyConfig `json:"spotify" mapstructure:"spotify"`
		GitHub  GitHubConfig  `json:"github" mapstructure:"github"`
		Release ReleaseConfig `json:"release" mapstructure:"release"`
		UI      UIConfig      `json:"ui" mapstructure:"ui"`
	}
)

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", string(e.Value))
}

// Unwrap returns the sentinel for errors.Is.
func (e *InvalidContainerEngineError) Unwrap() error {
	return ErrInvalidContainerEngine
}

// Error implements the error interface.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("%s: directory path must not be empty (got %q)", e.Field, e.Value)
}

// Unwrap returns the sentinel for errors.Is.
func (e *InvalidDirPathError) Unwrap() error {
	return ErrInvalidDirPath
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns the sentinel for errors.Is.
func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks that the engine is a recognized value.
// The zero value ("") is valid and means "auto-detect, docker first".
func (ce ContainerEngine) Validate() error {
	switch ce {
	case "", ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return &InvalidContainerEngineError{Value: ce}
	}
}

// Validate checks field-level constraints the CUE schema cannot express
// against the merged environment (dir values may come from env, which CUE
// never sees).
func (c *Config) Validate() error {
	var causes []error

	if strings.TrimSpace(c.InputDir) == "" {
		causes = append(causes, &InvalidDirPathError{Field: "input_dir", Value: c.InputDir})
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		causes = append(causes, &InvalidDirPathError{Field: "output_dir", Value: c.OutputDir})
	}
	if err := c.ContainerEngine.Validate(); err != nil {
		causes = append(causes, err)
	}
	if c.Schema.Dialect != SchemaDialectSQLite {
		causes = append(causes, fmt.Errorf("%w: %q (only %q is supported)",
			ErrInvalidSchemaDialect, c.Schema.Dialect, SchemaDialectSQLite))
	}

	if len(causes) > 0 {
		return &InvalidConfigError{Causes: causes}
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InputDir:        "/input",
		OutputDir:       "/output",
		ContainerEngine: ContainerEngineDocker,
		Schema: SchemaConfig{
			Name:        "Unwrapped Spotify Data",
			Version:     "0.1.1",
			Description: "Refined schema for Spotify listening history and top artists contributed via the Unwrapped platform. Artist details are enriched via an external API.",
			Dialect:     SchemaDialectSQLite,
		},
		Pinata: PinataConfig{},
		Spotify: SpotifyConfig{
			APIURL:           "https://api.spotify.com/v1",
			TokenURL:         "https://accounts.spotify.com/api/token",
			MaxIDsPerBatch:   50,
			CallDelaySeconds: 0.05,
		},
		Release: ReleaseConfig{
			VersionFile: "VERSION",
			ImageName:   "refiner",
			ContextDir:  ".",
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refiner-cli/internal/issue"
)

func TestLoadWithOptions_Defaults(t *testing.T) {
	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(), // no config file inside
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty (no file found)", path)
	}
	if cfg.InputDir != "/input" {
		t.Errorf("InputDir = %q, want /input", cfg.InputDir)
	}
	if cfg.Spotify.MaxIDsPerBatch != 50 {
		t.Errorf("Spotify.MaxIDsPerBatch = %d, want 50", cfg.Spotify.MaxIDsPerBatch)
	}
}

func TestLoadWithOptions_EnvOverrides(t *testing.T) {
	t.Setenv("INPUT_DIR", "/data/in")
	t.Setenv("REFINEMENT_ENCRYPTION_KEY", "secret-key")
	t.Setenv("PINATA_API_KEY", "pk")
	t.Setenv("FILE_ID", "1234")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.InputDir != "/data/in" {
		t.Errorf("InputDir = %q, want /data/in", cfg.InputDir)
	}
	if cfg.RefinementEncryptionKey != "secret-key" {
		t.Errorf("RefinementEncryptionKey = %q", cfg.RefinementEncryptionKey)
	}
	if cfg.Pinata.APIKey != "pk" {
		t.Errorf("Pinata.APIKey = %q", cfg.Pinata.APIKey)
	}
	if cfg.FileID == nil || *cfg.FileID != 1234 {
		t.Errorf("FileID = %v, want 1234", cfg.FileID)
	}
}

func TestLoadWithOptions_PrefixedEnvWins(t *testing.T) {
	// The REFINER_ prefixed variant is listed first, so it takes precedence.
	t.Setenv("REFINER_INPUT_DIR", "/refiner/in")
	t.Setenv("INPUT_DIR", "/plain/in")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.InputDir != "/refiner/in" {
		t.Errorf("InputDir = %q, want /refiner/in", cfg.InputDir)
	}
}

func TestLoadWithOptions_CUEFile(t *testing.T) {
	dir := t.TempDir()
	cuePath := filepath.Join(dir, "config.cue")
	content := `
input_dir:  "/contrib/in"
output_dir: "/contrib/out"
container_engine: "podman"

schema: {
	name:    "Test Schema"
	version: "9.9.9"
}

release: {
	image_name: "testimage"
}
`
	if err := os.WriteFile(cuePath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: dir,
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != cuePath {
		t.Errorf("resolved path = %q, want %q", path, cuePath)
	}
	if cfg.InputDir != "/contrib/in" {
		t.Errorf("InputDir = %q", cfg.InputDir)
	}
	if cfg.ContainerEngine != ContainerEnginePodman {
		t.Errorf("ContainerEngine = %q", cfg.ContainerEngine)
	}
	if cfg.Schema.Name != "Test Schema" || cfg.Schema.Version != "9.9.9" {
		t.Errorf("Schema = %+v", cfg.Schema)
	}
	// Unset fields keep defaults.
	if cfg.Schema.Dialect != SchemaDialectSQLite {
		t.Errorf("Schema.Dialect = %q, want default", cfg.Schema.Dialect)
	}
	if cfg.Release.ImageName != "testimage" {
		t.Errorf("Release.ImageName = %q", cfg.Release.ImageName)
	}
}

func TestLoadWithOptions_InvalidCUESchema(t *testing.T) {
	dir := t.TempDir()
	cuePath := filepath.Join(dir, "config.cue")
	// container_engine must be docker or podman.
	if err := os.WriteFile(cuePath, []byte(`container_engine: "lxc"`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T", err)
	}
	if !ae.HasSuggestions() {
		t.Error("config load errors should carry suggestions")
	}
}

func TestLoadWithOptions_ExplicitFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadWithOptions_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProvider_Load(t *testing.T) {
	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Provider.Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Provider.Load() returned nil config")
	}
}

func TestConfigDir_Override(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride("/custom/dir")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != "/custom/dir" {
		t.Errorf("ConfigDir() = %q, want /custom/dir", dir)
	}
}

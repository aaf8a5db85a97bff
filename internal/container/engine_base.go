// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides common implementation for CLI-based container engines.
	// Docker and Podman engines embed this struct. Methods that are identical across
	// all CLI engines (Build, Tag, Save, RemoveImage, the arg builders) are
	// implemented here; engine-specific methods (Available, Version, ImageExists)
	// remain on the concrete types.
	BaseCLIEngine struct {
		name        string // Engine name for error messages (e.g., "docker", "podman")
		binaryPath  string // Resolved at construction via exec.LookPath
		execCommand ExecCommandFunc
	}
)

// WithExecCommand injects a custom command factory, used by tests.
func WithExecCommand(f ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = f
	}
}

// NewBaseCLIEngine creates the shared CLI engine core.
func NewBaseCLIEngine(name, binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the resolved engine binary path.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// BuildArgs assembles the argument list for an image build.
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Dockerfile != "" {
		// Resolve Dockerfile path relative to context directory.
		// If ContextDir is empty, the Dockerfile path is used as-is
		// (assumed resolvable from CWD by the container engine).
		dockerfilePath := opts.Dockerfile
		if !filepath.IsAbs(dockerfilePath) && opts.ContextDir != "" {
			dockerfilePath = filepath.Join(opts.ContextDir, dockerfilePath)
		}
		args = append(args, "-f", dockerfilePath)
	}

	for _, tag := range opts.Tags {
		args = append(args, "-t", tag)
	}

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	keys := maps.Keys(opts.BuildArgs)
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, opts.BuildArgs[k]))
	}

	args = append(args, opts.ContextDir)

	return args
}

// TagArgs assembles the argument list for tagging an image.
func (e *BaseCLIEngine) TagArgs(source, target string) []string {
	return []string{"tag", source, target}
}

// SaveArgs assembles the argument list for serializing an image to stdout.
func (e *BaseCLIEngine) SaveArgs(image string) []string {
	return []string{"save", image}
}

// RemoveImageArgs assembles the argument list for removing an image.
func (e *BaseCLIEngine) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	return append(args, image)
}

// CreateCommand builds an exec.Cmd for the engine binary.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus runs a command and returns only its error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput runs a command and returns its stdout.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// Build builds an image from a Dockerfile.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	args := e.BuildArgs(opts)

	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s build failed for context %s: %w", e.name, opts.ContextDir, err)
	}

	return nil
}

// Tag applies an additional tag to an existing image.
func (e *BaseCLIEngine) Tag(ctx context.Context, source, target string) error {
	return e.RunCommandStatus(ctx, e.TagArgs(source, target)...)
}

// Save streams the image serialized as an uncompressed tar archive to w.
// Compression is the caller's concern; the pipeline layers gzip and digest
// computation on top of this stream.
func (e *BaseCLIEngine) Save(ctx context.Context, image string, w io.Writer) error {
	cmd := e.CreateCommand(ctx, e.SaveArgs(image)...)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s save failed for image %s: %w (stderr: %s)",
			e.name, image, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// RemoveImage removes an image.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveImageArgs(image, force)...)
}

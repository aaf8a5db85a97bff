// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for container runtimes (Docker/Podman).
//
// The release pipeline uses it to build the refiner image and to serialize the
// built image to an archive stream. Both engines are driven through their CLIs;
// the daemon APIs differ but the CLI surface needed here is identical.
package container

import (
	"context"
	"fmt"
	"io"
)

// Engine defines the interface for container image operations.
type Engine interface {
	// Name returns the engine name (docker or podman)
	Name() string
	// Available checks if the engine is available on the system
	Available() bool
	// Version returns the engine version
	Version(ctx context.Context) (string, error)

	// Build builds an image from a Dockerfile
	Build(ctx context.Context, opts BuildOptions) error
	// Tag applies an additional tag to an existing image
	Tag(ctx context.Context, source, target string) error
	// Save streams the image serialized as a tar archive to w
	Save(ctx context.Context, image string, w io.Writer) error
	// ImageExists checks if an image exists
	ImageExists(ctx context.Context, image string) (bool, error)
	// RemoveImage removes an image
	RemoveImage(ctx context.Context, image string, force bool) error
}

// BuildOptions contains options for building an image.
type BuildOptions struct {
	// ContextDir is the build context directory
	ContextDir string
	// Dockerfile is the path to the Dockerfile (relative to ContextDir)
	Dockerfile string
	// Tags are the image tags to apply; docker/podman accept repeated -t flags
	Tags []string
	// BuildArgs are build-time variables
	BuildArgs map[string]string
	// NoCache disables the build cache
	NoCache bool
	// Stdout is where to write build output
	Stdout io.Writer
	// Stderr is where to write build errors
	Stderr io.Writer
}

// EngineType identifies the container engine type.
type EngineType string

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypePodman EngineType = "podman"
)

// ErrEngineNotAvailable is returned when a container engine is not available.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a new container engine based on preference.
// The non-preferred engine is used as a fallback when the preferred one is
// not installed.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Docker
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Podman
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine returns the first available engine, docker first.
func AutoDetectEngine() (Engine, error) {
	return NewEngine(EngineTypeDocker)
}

// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"refiner-cli/internal/container"
)

// ArtifactName is the name under which the exported image archive is
// kept as a build artifact.
const ArtifactName = "refiner-image"

type (
	// ReleasePublisher publishes a release with its attached archive.
	ReleasePublisher interface {
		Publish(ctx context.Context, rel Release) (*PublishedRelease, error)
	}

	// Options configures one pipeline run.
	Options struct {
		// VersionFile is the single-line file the version is read from.
		VersionFile string
		// ImageName is the image repository part of the built tags.
		ImageName string
		// ContextDir is the container build context.
		ContextDir string
		// Dockerfile overrides the Dockerfile path, relative to ContextDir.
		Dockerfile string
		// OutputDir receives the archive and the release body file.
		OutputDir string

		// NoCache disables the build cache.
		NoCache bool
		// SkipLatest suppresses the "latest" tag.
		SkipLatest bool
		// DryRun resolves the version and reports what would happen
		// without building, exporting or publishing anything.
		DryRun bool

		// Publish explicitly requests publishing; pull-request triggers
		// still never publish.
		Publish bool
		// Trigger is the CI trigger for the publish gate.
		Trigger Trigger

		// PreHook and PostHook are optional shell scripts run before the
		// build and after a successful run.
		PreHook  string
		PostHook string

		// BuildOutput receives build and hook output; nil discards it.
		BuildOutput io.Writer
	}

	// Result reports what one pipeline run produced.
	Result struct {
		Version string
		// ArtifactName is the logical name the archive is recorded under.
		ArtifactName string
		ImageTags    []string
		ArchivePath  string
		ArchiveSize  int64
		Digest       digest.Digest
		BodyPath     string
		ReleaseTag   string
		Published    bool
		ReleaseURL   string
		DryRun       bool
	}

	// Pipeline runs the release stages in strict sequence.
	Pipeline struct {
		engine    container.Engine
		publisher ReleasePublisher
		opts      Options
	}
)

// NewPipeline assembles a pipeline. publisher may be nil, in which case
// the publish stage is skipped even when the gate opens.
func NewPipeline(engine container.Engine, publisher ReleasePublisher, opts Options) *Pipeline {
	if opts.BuildOutput == nil {
		opts.BuildOutput = io.Discard
	}
	return &Pipeline{engine: engine, publisher: publisher, opts: opts}
}

// Run executes the pipeline. The final status line is logged whether or
// not the run succeeded.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	defer func() { LogStatus(err) }()

	version, err := ReadVersion(p.opts.VersionFile)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Version:      version,
		ArtifactName: ArtifactName,
		ImageTags:    ImageTags(p.opts.ImageName, version, p.opts.SkipLatest),
		ArchivePath:  filepath.Join(p.opts.OutputDir, ArchiveName(version)),
		ReleaseTag:   ReleaseTag(version),
		DryRun:       p.opts.DryRun,
	}

	publish := ShouldPublish(p.opts.Publish, p.opts.Trigger)

	if p.opts.DryRun {
		slog.Info("dry run: skipping build, export and publish",
			"version", version,
			"tags", res.ImageTags,
			"archive", res.ArchivePath,
			"would_publish", publish && p.publisher != nil)
		return res, nil
	}

	if p.opts.PreHook != "" {
		slog.Info("running pre-release hook")
		if err = RunHook(ctx, p.opts.PreHook, p.opts.ContextDir, version, p.opts.BuildOutput, p.opts.BuildOutput); err != nil {
			return nil, fmt.Errorf("pre-release hook: %w", err)
		}
	}

	slog.Info("building image", "tags", res.ImageTags, "context", p.opts.ContextDir)
	err = p.engine.Build(ctx, container.BuildOptions{
		ContextDir: p.opts.ContextDir,
		Dockerfile: p.opts.Dockerfile,
		Tags:       res.ImageTags,
		NoCache:    p.opts.NoCache,
		Stdout:     p.opts.BuildOutput,
		Stderr:     p.opts.BuildOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("building image: %w", err)
	}

	slog.Info("exporting image", "image", res.ImageTags[0], "archive", res.ArchivePath)
	export, err := ExportImage(ctx, p.engine, res.ImageTags[0], res.ArchivePath)
	if err != nil {
		return nil, err
	}
	res.Digest = export.Digest
	res.ArchiveSize = export.Size
	slog.Info("archive produced", "artifact", ArtifactName,
		"path", export.Path, "digest", export.Digest.String(), "size", export.Size)

	body, bodyPath, err := WriteReleaseBody(p.opts.OutputDir, ArchiveName(version), export.Digest)
	if err != nil {
		return nil, err
	}
	res.BodyPath = bodyPath

	switch {
	case !publish:
		slog.Info("publish gate closed, skipping release",
			"event", p.opts.Trigger.EventName, "ref", p.opts.Trigger.Ref)
	case p.publisher == nil:
		slog.Warn("publishing requested but no publisher configured, skipping release")
	default:
		published, err2 := p.publisher.Publish(ctx, Release{
			Tag:       res.ReleaseTag,
			Title:     ReleaseTitle(version),
			Body:      body,
			AssetPath: res.ArchivePath,
		})
		if err2 != nil {
			err = fmt.Errorf("publishing release: %w", err2)
			return nil, err
		}
		res.Published = true
		res.ReleaseURL = published.URL
	}

	if p.opts.PostHook != "" {
		slog.Info("running post-release hook")
		if err = RunHook(ctx, p.opts.PostHook, p.opts.ContextDir, version, p.opts.BuildOutput, p.opts.BuildOutput); err != nil {
			return nil, fmt.Errorf("post-release hook: %w", err)
		}
	}

	return res, nil
}

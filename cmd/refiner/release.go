// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"refiner-cli/internal/container"
	"refiner-cli/internal/issue"
	"refiner-cli/internal/release"

	"github.com/spf13/cobra"
)

var (
	releasePublish     bool
	releaseDryRun      bool
	releaseNoCache     bool
	releaseSkipLatest  bool
	releaseOutputDir   string
	releaseVersionFile string
	releasePreHook     string
	releasePostHook    string

	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "Build, export and publish the refiner image",
		Long: `Run the release pipeline: read the version from the VERSION file,
build the refiner container image, export it to a gzip archive with a
SHA-256 checksum, and conditionally publish a tagged GitHub release.

Publishing happens on a CI push to the main branch or when --publish is
given; pull-request runs never publish. The final status line is logged
whether or not the run succeeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd)
		},
	}
)

func init() {
	releaseCmd.Flags().BoolVar(&releasePublish, "publish", false, "publish the release even outside a push to main")
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "resolve the version and report planned actions without building")
	releaseCmd.Flags().BoolVar(&releaseNoCache, "no-cache", false, "build the image without cache")
	releaseCmd.Flags().BoolVar(&releaseSkipLatest, "skip-latest", false, "do not tag the image as latest")
	releaseCmd.Flags().StringVar(&releaseOutputDir, "output", "", "directory for the archive and release body (overrides config)")
	releaseCmd.Flags().StringVar(&releaseVersionFile, "version-file", "", "file the release version is read from (overrides config)")
	releaseCmd.Flags().StringVar(&releasePreHook, "pre-hook", "", "shell script run before the build")
	releaseCmd.Flags().StringVar(&releasePostHook, "post-hook", "", "shell script run after a successful run")
}

func runRelease(cmd *cobra.Command) error {
	cfg := loadConfig()

	outputDir := cfg.OutputDir
	if releaseOutputDir != "" {
		outputDir = releaseOutputDir
	}
	versionFile := cfg.Release.VersionFile
	if releaseVersionFile != "" {
		versionFile = releaseVersionFile
	}

	var engine container.Engine
	var err error
	if cfg.ContainerEngine == "" {
		engine, err = container.AutoDetectEngine()
	} else {
		engine, err = container.NewEngine(container.EngineType(cfg.ContainerEngine))
	}
	if err != nil {
		var notAvailable *container.ErrEngineNotAvailable
		if errors.As(err, &notAvailable) {
			printGuidance(cmd.ErrOrStderr(), issue.Get(issue.ContainerEngineNotFoundId))
			return issue.NewErrorContext().
				WithOperation("run release pipeline").
				WithResource(string(cfg.ContainerEngine)).
				WithSuggestion("Install Docker or Podman and make sure it is on your PATH").
				WithSuggestion("Or select an engine with container_engine in the config file").
				Wrap(err).
				BuildError()
		}
		return err
	}

	var publisher release.ReleasePublisher
	if cfg.GitHub.Token != "" && cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		p, err := release.NewPublisher(cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo)
		if err != nil {
			return err
		}
		publisher = p
	}

	pipeline := release.NewPipeline(engine, publisher, release.Options{
		VersionFile: versionFile,
		ImageName:   cfg.Release.ImageName,
		ContextDir:  cfg.Release.ContextDir,
		OutputDir:   outputDir,
		NoCache:     releaseNoCache,
		SkipLatest:  releaseSkipLatest,
		DryRun:      releaseDryRun,
		Publish:     releasePublish,
		Trigger:     release.TriggerFromEnv(),
		PreHook:     releasePreHook,
		PostHook:    releasePostHook,
		BuildOutput: os.Stderr,
	})

	result, err := pipeline.Run(cmd.Context())
	if err != nil {
		guidance := guidanceFor(err)
		if guidance == nil && errors.Is(err, fs.ErrNotExist) {
			// The only file the pipeline reads before producing its own
			// outputs is the version file.
			guidance = issue.Get(issue.VersionFileNotFoundId)
		}
		printGuidance(cmd.ErrOrStderr(), guidance)
		return &ExitError{Code: 1, Err: issue.WrapWithOperation(err, "run release pipeline")}
	}

	out := cmd.OutOrStdout()
	if result.DryRun {
		fmt.Fprintln(out, WarningStyle.Render("Dry run:"))
		fmt.Fprintf(out, "  Version: %s\n", ValueStyle.Render(result.Version))
		fmt.Fprintf(out, "  Tags:    %s\n", ValueStyle.Render(fmt.Sprint(result.ImageTags)))
		fmt.Fprintf(out, "  Archive: %s\n", ValueStyle.Render(result.ArchivePath))
		return nil
	}

	fmt.Fprintln(out, SuccessStyle.Render("Release pipeline complete."))
	fmt.Fprintf(out, "  Version: %s\n", ValueStyle.Render(result.Version))
	fmt.Fprintf(out, "  Archive: %s\n", ValueStyle.Render(result.ArchivePath))
	fmt.Fprintf(out, "  Digest:  %s\n", ValueStyle.Render(result.Digest.String()))
	if result.Published {
		fmt.Fprintf(out, "  Release: %s\n", ValueStyle.Render(result.ReleaseTag+" "+result.ReleaseURL))
	} else {
		fmt.Fprintln(out, SubtitleStyle.Render("  Release not published (gate closed or no publisher configured)."))
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"refiner-cli/internal/config"
	"refiner-cli/internal/ipfs"
	"refiner-cli/internal/issue"
	"refiner-cli/internal/refine"
	"refiner-cli/internal/spotify"

	"github.com/spf13/cobra"
)

var (
	refineInputDir  string
	refineOutputDir string
	refineFileID    int64

	refineCmd = &cobra.Command{
		Use:   "refine",
		Short: "Refine contribution files into an encrypted database",
		Long: `Refine all JSON contribution files in the input directory into a
normalized SQLite database, encrypt it, and pin the result to IPFS.

The input and output directories, the encryption key and the Pinata and
Spotify credentials are read from the configuration (or the environment
variables the refinement service injects).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(cmd)
		},
	}
)

func init() {
	refineCmd.Flags().StringVar(&refineInputDir, "input", "", "input directory (overrides config)")
	refineCmd.Flags().StringVar(&refineOutputDir, "output", "", "output directory (overrides config)")
	refineCmd.Flags().Int64Var(&refineFileID, "file-id", 0, "file id stamped onto the refined rows")
}

func runRefine(cmd *cobra.Command) error {
	cfg := loadConfig()
	if refineInputDir != "" {
		cfg.InputDir = refineInputDir
	}
	if refineOutputDir != "" {
		cfg.OutputDir = refineOutputDir
	}
	if cmd.Flags().Changed("file-id") {
		cfg.FileID = &refineFileID
	}

	if cfg.RefinementEncryptionKey == "" {
		printGuidance(cmd.ErrOrStderr(), issue.Get(issue.EncryptionKeyMissingId))
		return issue.NewErrorContext().
			WithOperation("refine contributions").
			WithResource("REFINEMENT_ENCRYPTION_KEY").
			WithSuggestion("Set the REFINEMENT_ENCRYPTION_KEY environment variable").
			WithSuggestion("Or set refinement_encryption_key in the config file").
			BuildError()
	}

	output, err := refine.New(cfg, refineOptions(cfg)...).Run(cmd.Context())
	if err != nil {
		printGuidance(cmd.ErrOrStderr(), guidanceFor(err))
		return issue.WrapWithOperation(err, "refine contributions")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, SuccessStyle.Render("Refinement complete."))
	if output.Schema != nil {
		fmt.Fprintf(out, "  Schema:         %s\n", ValueStyle.Render(fmt.Sprintf("%s %s (%s)", output.Schema.Name, output.Schema.Version, output.Schema.Dialect)))
	}
	if output.RefinementURL != "" {
		fmt.Fprintf(out, "  Refinement URL: %s\n", ValueStyle.Render(output.RefinementURL))
	}
	if output.Schema == nil && output.RefinementURL == "" {
		fmt.Fprintln(out, WarningStyle.Render("  No contribution files were processed."))
	}
	return nil
}

// refineOptions assembles the optional collaborators from configuration:
// a Pinata pinner when credentials are present, and a Spotify enricher
// when client credentials are present.
func refineOptions(cfg *config.Config) []refine.Option {
	var opts []refine.Option

	if cfg.Pinata.APIKey != "" && cfg.Pinata.APISecret != "" {
		ipfsOpts := []ipfs.ClientOption{}
		if cfg.Pinata.Gateway != "" {
			ipfsOpts = append(ipfsOpts, ipfs.WithGateway(cfg.Pinata.Gateway))
		}
		opts = append(opts, refine.WithPinner(ipfs.NewClient(cfg.Pinata.APIKey, cfg.Pinata.APISecret, ipfsOpts...)))
	}

	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		spotifyOpts := []spotify.ClientOption{
			spotify.WithBatchSize(cfg.Spotify.MaxIDsPerBatch),
			spotify.WithCallDelay(time.Duration(cfg.Spotify.CallDelaySeconds * float64(time.Second))),
		}
		if cfg.Spotify.APIURL != "" {
			spotifyOpts = append(spotifyOpts, spotify.WithAPIBase(cfg.Spotify.APIURL))
		}
		if cfg.Spotify.TokenURL != "" {
			spotifyOpts = append(spotifyOpts, spotify.WithTokenURL(cfg.Spotify.TokenURL))
		}
		opts = append(opts, refine.WithEnricher(spotify.NewClient(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, spotifyOpts...)))
	}

	return opts
}

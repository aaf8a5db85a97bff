// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"refiner-cli/internal/config"
	"refiner-cli/internal/container"
	"refiner-cli/internal/crypt"
	"refiner-cli/internal/ipfs"
	"refiner-cli/internal/issue"
	"refiner-cli/internal/release"
	"refiner-cli/internal/spotify"
)

// guidanceFor maps an error chain to the registry issue describing it,
// or nil when no guidance applies.
func guidanceFor(err error) *issue.Issue {
	if err == nil {
		return nil
	}

	var notAvailable *container.ErrEngineNotAvailable
	switch {
	case errors.Is(err, release.ErrInvalidVersion):
		return issue.Get(issue.VersionInvalidId)
	case errors.As(err, &notAvailable):
		return issue.Get(issue.ContainerEngineNotFoundId)
	case errors.Is(err, crypt.ErrEmptyKey):
		return issue.Get(issue.EncryptionKeyMissingId)
	case errors.Is(err, ipfs.ErrMissingCredentials):
		return issue.Get(issue.PinataCredentialsMissingId)
	case errors.Is(err, spotify.ErrMissingClientCredentials):
		return issue.Get(issue.SpotifyAuthFailedId)
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.Get(issue.ConfigLoadFailedId)
	default:
		return nil
	}
}

// printGuidance renders an issue's guidance to w. When the terminal
// renderer fails, the raw markdown is printed instead.
func printGuidance(w io.Writer, is *issue.Issue) {
	if is == nil {
		return
	}
	rendered, err := is.Render("dark")
	if err != nil {
		rendered = string(is.MarkdownMsg())
	}
	fmt.Fprintln(w, rendered)
}

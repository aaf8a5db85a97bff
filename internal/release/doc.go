// SPDX-License-Identifier: MPL-2.0

// Package release implements the release pipeline: read the version
// file, build the container image, export it to a checksummed archive,
// and conditionally publish a tagged release. The pipeline is a strict
// sequence; the final status report always runs.
package release

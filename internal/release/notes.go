// SPDX-License-Identifier: MPL-2.0

package release

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// ReleaseBodyFileName is the release description file written next to
// the archive.
const ReleaseBodyFileName = "release_body.txt"

// ChecksumLine formats the archive checksum in the two-space format
// produced by sha256sum, so the line can be verified with
// `sha256sum -c`.
func ChecksumLine(d digest.Digest, archiveName string) string {
	return fmt.Sprintf("%s  %s", d.Encoded(), archiveName)
}

// WriteReleaseBody writes the release description for an exported
// archive into dir and returns both the body text and the file path.
// The body is a markdown block: a checksum heading followed by the
// sha256sum-formatted line.
func WriteReleaseBody(dir, archiveName string, d digest.Digest) (body, path string, err error) {
	body = "## SHA-256 checksum\n\n" + ChecksumLine(d, archiveName) + "\n"
	path = filepath.Join(dir, ReleaseBodyFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", ReleaseBodyFileName, err)
	}
	return body, path, nil
}

// SPDX-License-Identifier: MPL-2.0

package release

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid version")

	// versionPattern accepts version strings that are safe as filesystem
	// names and as container/release tags.
	versionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// InvalidVersionError is returned when the version file content is empty
// or contains characters that are unsafe in tags or filenames. It wraps
// ErrInvalidVersion for errors.Is() compatibility.
type InvalidVersionError struct {
	Path  string
	Value string
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("version file %s is empty", e.Path)
	}
	return fmt.Sprintf("version file %s contains invalid version %q", e.Path, e.Value)
}

// Unwrap returns the sentinel error for errors.Is() checks.
func (e *InvalidVersionError) Unwrap() error {
	return ErrInvalidVersion
}

// ReadVersion reads the single-line version file at path. Surrounding
// whitespace is trimmed; the remaining token must be non-empty and
// filesystem/tag-name safe.
func ReadVersion(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading version file: %w", err)
	}

	version := strings.TrimSpace(string(raw))
	if version == "" || !versionPattern.MatchString(version) {
		return "", &InvalidVersionError{Path: path, Value: version}
	}
	return version, nil
}

// ReleaseTag returns the release tag for a version, e.g. "v1.2.3".
func ReleaseTag(version string) string {
	return "v" + version
}

// ReleaseTitle returns the human-facing release title for a version.
func ReleaseTitle(version string) string {
	return "Refiner " + version
}

// ArchiveName returns the exported image archive filename for a version,
// e.g. "refiner-1.2.3.tar.gz".
func ArchiveName(version string) string {
	return fmt.Sprintf("refiner-%s.tar.gz", version)
}

// ImageTags returns the tags applied to the built image: the versioned
// tag always, plus "latest" unless skipLatest is set.
func ImageTags(imageName, version string, skipLatest bool) []string {
	tags := []string{fmt.Sprintf("%s:%s", imageName, version)}
	if !skipLatest {
		tags = append(tags, imageName+":latest")
	}
	return tags
}

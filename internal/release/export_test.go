// SPDX-License-Identifier: MPL-2.0

package release

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refiner-cli/internal/container"
)

// fakeEngine is an in-memory container.Engine for pipeline tests.
type fakeEngine struct {
	imageBytes []byte
	buildCalls []container.BuildOptions
	buildErr   error
	saveErr    error
	// transientSaves makes that many leading Save calls write a partial
	// stream and fail, simulating a busy daemon.
	transientSaves int
	saveCalls      int
}

func (e *fakeEngine) Name() string                                  { return "fake" }
func (e *fakeEngine) Available() bool                               { return true }
func (e *fakeEngine) Version(ctx context.Context) (string, error)   { return "0.0.0", nil }
func (e *fakeEngine) Tag(ctx context.Context, src, dst string) error { return nil }

func (e *fakeEngine) Build(ctx context.Context, opts container.BuildOptions) error {
	e.buildCalls = append(e.buildCalls, opts)
	return e.buildErr
}

func (e *fakeEngine) Save(ctx context.Context, image string, w io.Writer) error {
	e.saveCalls++
	if e.saveErr != nil {
		return e.saveErr
	}
	if e.saveCalls <= e.transientSaves {
		w.Write(e.imageBytes[:len(e.imageBytes)/2])
		return errors.New("unexpected EOF from daemon")
	}
	_, err := w.Write(e.imageBytes)
	return err
}

func (e *fakeEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	return true, nil
}

func (e *fakeEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	return nil
}

func TestExportImage(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{imageBytes: bytes.Repeat([]byte("layer data "), 1024)}
	dest := filepath.Join(t.TempDir(), "refiner-1.2.3.tar.gz")

	result, err := ExportImage(context.Background(), engine, "refiner:1.2.3", dest)
	if err != nil {
		t.Fatalf("ExportImage() error = %v", err)
	}
	if result.Path != dest {
		t.Errorf("result path = %q, want %q", result.Path, dest)
	}

	archive, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(archive)) != result.Size {
		t.Errorf("result size = %d, file size = %d", result.Size, len(archive))
	}

	// The digest must match the archive bytes on disk.
	sum := sha256.Sum256(archive)
	if got := result.Digest.Encoded(); got != hex.EncodeToString(sum[:]) {
		t.Errorf("digest = %s, want %s", got, hex.EncodeToString(sum[:]))
	}

	// Decompressing must yield the engine's tar stream unchanged.
	gr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("archive is not valid gzip: %v", err)
	}
	decompressed, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, engine.imageBytes) {
		t.Error("decompressed archive does not match the exported image stream")
	}
}

func TestExportImage_RetriesTruncatedStream(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		imageBytes:     bytes.Repeat([]byte("layer data "), 1024),
		transientSaves: 1,
	}
	dest := filepath.Join(t.TempDir(), "refiner-1.2.3.tar.gz")

	result, err := ExportImage(context.Background(), engine, "refiner:1.2.3", dest)
	if err != nil {
		t.Fatalf("ExportImage() error = %v", err)
	}
	if engine.saveCalls != 2 {
		t.Errorf("Save called %d times, want 2", engine.saveCalls)
	}

	// The retried archive must carry the complete stream and the digest
	// of the final bytes, not remnants of the truncated first attempt.
	archive, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(archive)
	if got := result.Digest.Encoded(); got != hex.EncodeToString(sum[:]) {
		t.Errorf("digest = %s, want %s", got, hex.EncodeToString(sum[:]))
	}
	gr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("archive is not valid gzip: %v", err)
	}
	decompressed, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, engine.imageBytes) {
		t.Error("decompressed archive does not match the exported image stream")
	}
}

func TestExportImage_FailureLeavesNoPartialArchive(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{saveErr: errors.New("save failed")}
	dir := t.TempDir()
	dest := filepath.Join(dir, "refiner-1.2.3.tar.gz")

	if _, err := ExportImage(context.Background(), engine, "refiner:1.2.3", dest); err == nil {
		t.Fatal("ExportImage() should propagate the save error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed export left files behind: %v", entries)
	}
}

func TestWriteReleaseBody(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{imageBytes: []byte("image contents")}
	dir := t.TempDir()
	dest := filepath.Join(dir, "refiner-1.2.3.tar.gz")

	result, err := ExportImage(context.Background(), engine, "refiner:1.2.3", dest)
	if err != nil {
		t.Fatal(err)
	}

	body, path, err := WriteReleaseBody(dir, "refiner-1.2.3.tar.gz", result.Digest)
	if err != nil {
		t.Fatalf("WriteReleaseBody() error = %v", err)
	}
	if filepath.Base(path) != ReleaseBodyFileName {
		t.Errorf("body path = %q", path)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != body {
		t.Error("returned body differs from file contents")
	}

	// The checksum line must match the actual digest of the archive,
	// byte for byte, in sha256sum's two-space format.
	archive, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(archive)
	wantLine := fmt.Sprintf("%s  refiner-1.2.3.tar.gz", hex.EncodeToString(sum[:]))
	if !strings.Contains(body, wantLine+"\n") {
		t.Errorf("release body = %q, want checksum line %q", body, wantLine)
	}
	if !strings.HasPrefix(body, "## SHA-256 checksum\n") {
		t.Errorf("release body should start with the checksum heading: %q", body)
	}
	if !strings.HasSuffix(strings.TrimSuffix(body, "\n"), "refiner-1.2.3.tar.gz") {
		t.Errorf("checksum line should end with the archive name: %q", body)
	}
}

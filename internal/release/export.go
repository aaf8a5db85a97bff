// SPDX-License-Identifier: MPL-2.0

package release

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"

	"refiner-cli/internal/container"
)

// writeCounter is an io.Writer that only records the number of bytes
// written.
type writeCounter struct {
	written int64
}

// Write implements the io.Writer interface.
func (wc *writeCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.written += int64(n)
	return n, nil
}

// ExportResult describes a produced image archive.
type ExportResult struct {
	// Path is the final archive location.
	Path string
	// Digest is the SHA-256 digest of the archive bytes.
	Digest digest.Digest
	// Size is the archive size in bytes.
	Size int64
}

const (
	// exportAttempts bounds retries of the full save/compress pass.
	exportAttempts = 3
	// exportBackoff is the base delay between export attempts.
	exportBackoff = 500 * time.Millisecond
)

// ExportImage atomically serializes image to a gzip archive at destPath.
// The engine's tar stream is compressed and digested in a single pass;
// the archive is written to a temporary file first and renamed into
// place only on success, so a failed export never leaves a partial
// archive behind. Each attempt starts from a fresh temporary file, so a
// stream truncated by a busy daemon is simply retried.
func ExportImage(ctx context.Context, engine container.Engine, image, destPath string) (*ExportResult, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	var res *ExportResult
	err := container.RetryWithBackoff(ctx, exportAttempts, exportBackoff, func(attempt int) (bool, error) {
		r, err := exportOnce(ctx, engine, image, destPath)
		if err != nil {
			slog.Warn("image export attempt failed", "image", image, "attempt", attempt+1, "error", err)
			return true, err
		}
		res = r
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// exportOnce performs a single save/compress/digest pass.
func exportOnce(ctx context.Context, engine container.Engine, image, destPath string) (_ *ExportResult, err error) {
	dir := filepath.Dir(destPath)
	tf, err := os.CreateTemp(dir, filepath.Base(destPath)+".tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temporary archive: %w", err)
	}
	tmpName := tf.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	d := digest.Canonical.Digester()
	sz := &writeCounter{}
	mw := io.MultiWriter(d.Hash(), tf, sz)

	gw := gzip.NewWriter(mw)
	if err := engine.Save(ctx, image, gw); err != nil {
		gw.Close()
		tf.Close()
		return nil, fmt.Errorf("exporting image %s: %w", image, err)
	}
	if err := gw.Close(); err != nil {
		tf.Close()
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := tf.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return nil, fmt.Errorf("moving archive into place: %w", err)
	}

	return &ExportResult{
		Path:   destPath,
		Digest: d.Digest(),
		Size:   sz.written,
	}, nil
}

// SPDX-License-Identifier: MPL-2.0

package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"refiner-cli/internal/config"
	"refiner-cli/internal/crypt"
	"refiner-cli/internal/ipfs"
	"refiner-cli/internal/model"
	"refiner-cli/internal/spotify"
	"refiner-cli/internal/transform"

	"github.com/ipfs/go-cid"
)

const (
	// SchemaFileName is the schema document written to the output directory.
	SchemaFileName = "schema.json"

	// OutputFileName is the run result document written to the output
	// directory for the refinement service to pick up.
	OutputFileName = "output.json"
)

type (
	// Pinner pins refinement artifacts to IPFS. Implementations must be
	// safe for sequential reuse within a run.
	Pinner interface {
		PinFile(ctx context.Context, path string) (string, error)
		PinJSON(ctx context.Context, v any) (string, error)
		GatewayURL(hash string) string
	}

	// ArtistEnricher resolves artist metadata for artists the
	// contribution only references by ID.
	ArtistEnricher interface {
		GetArtists(ctx context.Context, ids []string) ([]*spotify.Artist, error)
	}

	// Refiner runs the refinement job end to end.
	Refiner struct {
		cfg      *config.Config
		pinner   Pinner
		enricher ArtistEnricher
	}

	// Option configures a Refiner.
	Option func(*Refiner)
)

// WithPinner enables IPFS pinning of the schema and the encrypted
// database. Without a pinner the refinement URL falls back to a
// file:// path.
func WithPinner(p Pinner) Option {
	return func(r *Refiner) { r.pinner = p }
}

// WithEnricher enables artist metadata enrichment for artists that
// appear in the play history without full metadata.
func WithEnricher(e ArtistEnricher) Option {
	return func(r *Refiner) { r.enricher = e }
}

// New returns a Refiner for the given configuration.
func New(cfg *config.Config, opts ...Option) *Refiner {
	r := &Refiner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every contribution file in the input directory into one
// refined database, then encrypts, pins and reports it. Files that are
// not valid JSON are skipped with a logged error; transformation
// failures abort the run.
func (r *Refiner) Run(ctx context.Context) (*model.Output, error) {
	slog.Info("starting data refinement", "input_dir", r.cfg.InputDir, "output_dir", r.cfg.OutputDir)

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(r.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	output := &model.Output{}
	dbPath := filepath.Join(r.cfg.OutputDir, transform.DatabaseFileName)

	var store *transform.Store
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	transformer := &transform.Transformer{FileID: r.cfg.FileID}
	processed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(r.cfg.InputDir, entry.Name())
		slog.Info("processing input file", "file", entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		var data model.UnwrappedData
		if err := json.Unmarshal(raw, &data); err != nil {
			slog.Error("skipping file with invalid JSON", "file", entry.Name(), "error", err)
			continue
		}

		if store == nil {
			if store, err = transform.NewStore(ctx, dbPath); err != nil {
				return nil, err
			}
		}

		batch, err := transformer.Transform(&data)
		if err != nil {
			return nil, fmt.Errorf("transforming %s: %w", entry.Name(), err)
		}

		r.enrichArtists(ctx, batch)

		if _, err := store.SaveBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("saving rows from %s: %w", entry.Name(), err)
		}
		processed++

		if output.Schema == nil {
			schema, err := r.publishSchema(ctx, store)
			if err != nil {
				return nil, err
			}
			output.Schema = schema
		}
	}

	if processed == 0 {
		slog.Warn("no JSON files were processed from the input directory", "input_dir", r.cfg.InputDir)
		if err := r.writeOutput(output); err != nil {
			return nil, err
		}
		return output, nil
	}

	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("closing database: %w", err)
	}
	store = nil

	encryptedPath, err := crypt.EncryptFile(r.cfg.RefinementEncryptionKey, dbPath)
	if err != nil {
		return nil, fmt.Errorf("encrypting database: %w", err)
	}
	slog.Info("database encrypted", "path", encryptedPath)

	output.RefinementURL = r.pinDatabase(ctx, encryptedPath)

	if err := r.writeOutput(output); err != nil {
		return nil, err
	}

	slog.Info("data refinement completed", "files", processed, "refinement_url", output.RefinementURL)
	return output, nil
}

// enrichArtists fills in metadata for artists the batch only knows by
// ID. Enrichment failures are logged and ignored; placeholder rows are
// still valid data.
func (r *Refiner) enrichArtists(ctx context.Context, batch *model.RefinedBatch) {
	if r.enricher == nil {
		return
	}

	var ids []string
	indexByID := make(map[string]int)
	for i := range batch.Artists {
		if strings.HasPrefix(batch.Artists[i].Name, "[ID: ") {
			ids = append(ids, batch.Artists[i].ID)
			indexByID[batch.Artists[i].ID] = i
		}
	}
	if len(ids) == 0 {
		return
	}

	artists, err := r.enricher.GetArtists(ctx, ids)
	if err != nil {
		slog.Warn("artist metadata enrichment failed", "artists", len(ids), "error", err)
		return
	}

	enriched := 0
	for _, a := range artists {
		if a == nil {
			continue
		}
		i, ok := indexByID[a.ID]
		if !ok {
			continue
		}
		row := &batch.Artists[i]
		row.Name = a.Name
		if a.Popularity > 0 {
			p := a.Popularity
			row.Popularity = &p
		}
		if len(a.Genres) > 0 {
			if encoded, err := json.Marshal(a.Genres); err == nil {
				s := string(encoded)
				row.Genres = &s
			}
		}
		if a.Followers.Total > 0 {
			t := a.Followers.Total
			row.FollowersTotal = &t
		}
		if len(a.Images) > 0 {
			row.PrimaryImageURL = &a.Images[0].URL
		}
		enriched++
	}
	slog.Info("enriched artist metadata", "requested", len(ids), "resolved", enriched)
}

// publishSchema builds the off-chain schema document from the live
// database, writes it to the output directory and pins it when a pinner
// is configured. Pin failures are logged but do not fail the run.
func (r *Refiner) publishSchema(ctx context.Context, store *transform.Store) (*model.OffChainSchema, error) {
	ddl, err := store.SchemaDDL(ctx)
	if err != nil {
		return nil, err
	}

	schema := &model.OffChainSchema{
		Name:             r.cfg.Schema.Name,
		Version:          r.cfg.Schema.Version,
		Description:      r.cfg.Schema.Description,
		Dialect:          r.cfg.Schema.Dialect,
		SchemaDefinition: ddl,
	}

	encoded, err := json.MarshalIndent(schema, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding schema document: %w", err)
	}
	schemaPath := filepath.Join(r.cfg.OutputDir, SchemaFileName)
	if err := os.WriteFile(schemaPath, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", SchemaFileName, err)
	}
	slog.Info("schema definition saved", "path", schemaPath)

	if r.pinner != nil {
		if hash, err := r.pinner.PinJSON(ctx, schema); err != nil {
			slog.Error("failed to pin schema", "error", err)
		} else {
			slog.Info("schema pinned", "hash", hash)
		}
	} else {
		slog.Warn("pinning not configured, skipping schema upload")
	}

	return schema, nil
}

// pinDatabase pins the encrypted database and returns its refinement
// URL, falling back to a local file:// URL when pinning is unavailable
// or fails.
func (r *Refiner) pinDatabase(ctx context.Context, encryptedPath string) string {
	if r.pinner == nil {
		slog.Warn("pinning not configured, using local path for refinement URL")
		return "file://" + encryptedPath
	}

	hash, err := r.pinner.PinFile(ctx, encryptedPath)
	if err != nil {
		slog.Error("failed to pin encrypted database", "error", err)
		return "file://" + encryptedPath
	}
	if local, err := localCID(encryptedPath); err == nil {
		// The raw-bytes CID is logged next to the service's hash so the
		// upload can be tied back to the exact encrypted payload. The two
		// differ by construction: the pinning service reports the CID of
		// its chunked DAG, not of the flat byte stream.
		slog.Info("pinned encrypted database", "hash", hash, "content_cid", local)
	}
	return r.pinner.GatewayURL(hash)
}

// localCID computes the CIDv1 of the raw file bytes at path.
func localCID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ipfs.CIDForBytes(data, 1, cid.Raw)
}

func (r *Refiner) writeOutput(output *model.Output) error {
	encoded, err := json.MarshalIndent(output, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding output document: %w", err)
	}
	path := filepath.Join(r.cfg.OutputDir, OutputFileName)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", OutputFileName, err)
	}
	return nil
}

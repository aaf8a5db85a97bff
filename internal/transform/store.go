// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"refiner-cli/internal/model"
)

// DatabaseFileName is the refined database filename inside the output
// directory.
const DatabaseFileName = "db.libsql"

// schemaDDL defines the refined database layout. Artists and users are
// keyed by their natural identifiers so repeated contributions in one
// run do not duplicate them.
const schemaDDL = `
CREATE TABLE users (
	id_hash TEXT PRIMARY KEY,
	country TEXT,
	product TEXT,
	file_id INTEGER
);

CREATE TABLE user_listening_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id_hash TEXT NOT NULL REFERENCES users(id_hash),
	total_minutes INTEGER NOT NULL,
	track_count INTEGER NOT NULL,
	unique_artists_count INTEGER NOT NULL,
	activity_period_days INTEGER NOT NULL,
	first_listen_at TIMESTAMP,
	last_listen_at TIMESTAMP
);

CREATE TABLE artists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	popularity INTEGER,
	genres TEXT,
	followers_total INTEGER,
	primary_image_url TEXT
);

CREATE TABLE played_tracks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id_hash TEXT NOT NULL REFERENCES users(id_hash),
	track_id TEXT NOT NULL,
	artist_id TEXT NOT NULL REFERENCES artists(id),
	duration_ms INTEGER NOT NULL,
	listened_at TIMESTAMP NOT NULL
);

CREATE TABLE user_top_artists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id_hash TEXT NOT NULL REFERENCES users(id_hash),
	artist_id TEXT NOT NULL REFERENCES artists(id),
	play_count INTEGER,
	last_played_at TIMESTAMP
);

CREATE INDEX idx_played_tracks_user ON played_tracks(user_id_hash);
CREATE INDEX idx_played_tracks_artist ON played_tracks(artist_id);
CREATE INDEX idx_user_top_artists_user ON user_top_artists(user_id_hash);
`

// Store owns the refined SQLite database file.
type Store struct {
	db   *sqlx.DB
	path string
}

// NewStore creates (or recreates) the database at path and applies the
// schema. An existing file is deleted first so every refinement run
// starts from a clean database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing existing database: %w", err)
		}
		slog.Info("deleted existing database", "path", path)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	slog.Info("database initialized", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch writes all rows of a refined batch in one transaction and
// returns the number of rows handed to the database. Users and artists
// already present are left untouched.
func (s *Store) SaveBatch(ctx context.Context, batch *model.RefinedBatch) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO users (id_hash, country, product, file_id)
		VALUES (:id_hash, :country, :product, :file_id)
		ON CONFLICT(id_hash) DO NOTHING`, batch.User); err != nil {
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO user_listening_stats
			(user_id_hash, total_minutes, track_count, unique_artists_count,
			 activity_period_days, first_listen_at, last_listen_at)
		VALUES
			(:user_id_hash, :total_minutes, :track_count, :unique_artists_count,
			 :activity_period_days, :first_listen_at, :last_listen_at)`, batch.Stats); err != nil {
		return 0, fmt.Errorf("inserting listening stats: %w", err)
	}

	for i := range batch.Artists {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO artists (id, name, popularity, genres, followers_total, primary_image_url)
			VALUES (:id, :name, :popularity, :genres, :followers_total, :primary_image_url)
			ON CONFLICT(id) DO NOTHING`, batch.Artists[i]); err != nil {
			return 0, fmt.Errorf("inserting artist %s: %w", batch.Artists[i].ID, err)
		}
	}

	for i := range batch.Tracks {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO played_tracks (user_id_hash, track_id, artist_id, duration_ms, listened_at)
			VALUES (:user_id_hash, :track_id, :artist_id, :duration_ms, :listened_at)`, batch.Tracks[i]); err != nil {
			return 0, fmt.Errorf("inserting played track %s: %w", batch.Tracks[i].TrackID, err)
		}
	}

	for i := range batch.TopArtists {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO user_top_artists (user_id_hash, artist_id, play_count, last_played_at)
			VALUES (:user_id_hash, :artist_id, :play_count, :last_played_at)`, batch.TopArtists[i]); err != nil {
			return 0, fmt.Errorf("inserting top artist %s: %w", batch.TopArtists[i].ArtistID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}

	slog.Debug("committed refined batch", "rows", batch.RowCount())
	return batch.RowCount(), nil
}

// SchemaDDL reads the effective DDL back from sqlite_master: table
// definitions first (ordered by name), then index definitions, each
// terminated with a semicolon.
func (s *Store) SchemaDDL(ctx context.Context) (string, error) {
	var parts []string

	var tables []string
	err := s.db.SelectContext(ctx, &tables,
		`SELECT sql FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
		 ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("reading table definitions: %w", err)
	}
	for _, t := range tables {
		parts = append(parts, t+";")
	}

	var indexes []string
	err = s.db.SelectContext(ctx, &indexes,
		`SELECT sql FROM sqlite_master
		 WHERE type = 'index' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
		 ORDER BY tbl_name, name`)
	if err != nil {
		return "", fmt.Errorf("reading index definitions: %w", err)
	}
	for _, idx := range indexes {
		parts = append(parts, idx+";")
	}

	return strings.Join(parts, "\n\n"), nil
}

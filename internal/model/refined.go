// SPDX-License-Identifier: MPL-2.0

package model

import "time"

// Refined rows mirror the tables of the output SQLite database. Field tags
// follow sqlx naming so rows can be written with NamedExec.

// User is one row of the users table.
type User struct {
	IDHash  string  `db:"id_hash"`
	Country *string `db:"country"`
	Product *string `db:"product"`
	// FileID is the refinement service's file identifier, NULL for local runs.
	FileID *int64 `db:"file_id"`
}

// ListeningStats is one row of the user_listening_stats table.
type ListeningStats struct {
	UserIDHash         string     `db:"user_id_hash"`
	TotalMinutes       int        `db:"total_minutes"`
	TrackCount         int        `db:"track_count"`
	UniqueArtistsCount int        `db:"unique_artists_count"`
	ActivityPeriodDays int        `db:"activity_period_days"`
	FirstListenAt      *time.Time `db:"first_listen_at"`
	LastListenAt       *time.Time `db:"last_listen_at"`
}

// Artist is one row of the artists table. Genres is stored as a JSON array
// string; sqlite has no native array type.
type Artist struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Popularity      *int    `db:"popularity"`
	Genres          *string `db:"genres"`
	FollowersTotal  *int    `db:"followers_total"`
	PrimaryImageURL *string `db:"primary_image_url"`
}

// PlayedTrack is one row of the played_tracks table.
type PlayedTrack struct {
	UserIDHash string    `db:"user_id_hash"`
	TrackID    string    `db:"track_id"`
	ArtistID   string    `db:"artist_id"`
	DurationMS int       `db:"duration_ms"`
	ListenedAt time.Time `db:"listened_at"`
}

// TopArtist is one row of the user_top_artists association table.
type TopArtist struct {
	UserIDHash   string     `db:"user_id_hash"`
	ArtistID     string     `db:"artist_id"`
	PlayCount    *int       `db:"play_count"`
	LastPlayedAt *time.Time `db:"last_played_at"`
}

// RefinedBatch is the full set of rows produced from one contribution.
type RefinedBatch struct {
	User       User
	Stats      ListeningStats
	Artists    []Artist
	Tracks     []PlayedTrack
	TopArtists []TopArtist
}

// RowCount returns the total number of rows in the batch.
func (b *RefinedBatch) RowCount() int {
	return 2 + len(b.Artists) + len(b.Tracks) + len(b.TopArtists)
}

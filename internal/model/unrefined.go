// SPDX-License-Identifier: MPL-2.0

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingIDHash is returned when a contribution has no user id hash.
	ErrMissingIDHash = errors.New("contribution user id_hash is required")
	// ErrInvalidTimestamp is the sentinel error wrapped by InvalidTimestampError.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

type (
	// InvalidTimestampError is returned when a timestamp string cannot be
	// parsed by any accepted layout. It wraps ErrInvalidTimestamp for
	// errors.Is() compatibility.
	InvalidTimestampError struct {
		Value string
	}

	// UnwrappedUser identifies the contributing account. The id hash is the
	// only stable identifier; the raw account id never reaches the refiner.
	UnwrappedUser struct {
		IDHash  string `json:"id_hash"`
		Country string `json:"country,omitempty"`
		Product string `json:"product,omitempty"`
	}

	// UnwrappedStats are aggregate listening statistics computed upstream.
	UnwrappedStats struct {
		TotalMinutes       int    `json:"total_minutes"`
		TrackCount         int    `json:"track_count"`
		UniqueArtistsCount int    `json:"unique_artists_count"`
		ActivityPeriodDays int    `json:"activity_period_days"`
		FirstListen        string `json:"first_listen,omitempty"` // ISO datetime string
		LastListen         string `json:"last_listen,omitempty"`  // ISO datetime string
	}

	// UnwrappedPlayedTrack is one play event from the listening history.
	UnwrappedPlayedTrack struct {
		TrackID    string `json:"track_id"`
		ArtistID   string `json:"artist_id"` // Primary artist ID
		DurationMS int    `json:"duration_ms"`
		ListenedAt string `json:"listened_at"` // ISO datetime string
	}

	// UnwrappedArtistImage is an artist image reference.
	UnwrappedArtistImage struct {
		URL    string `json:"url"`
		Height *int   `json:"height,omitempty"`
		Width  *int   `json:"width,omitempty"`
	}

	// UnwrappedArtistFollowers is the follower count block.
	UnwrappedArtistFollowers struct {
		Href  string `json:"href,omitempty"`
		Total int    `json:"total"`
	}

	// UnwrappedTopArtist is an enriched top-artist entry.
	// PlayCount arrives as a string from the upstream API.
	UnwrappedTopArtist struct {
		ID         string                    `json:"id"`
		Name       string                    `json:"name"`
		Popularity *int                      `json:"popularity,omitempty"`
		Genres     []string                  `json:"genres,omitempty"`
		Images     []UnwrappedArtistImage    `json:"images,omitempty"`
		Followers  *UnwrappedArtistFollowers `json:"followers,omitempty"`
		PlayCount  string                    `json:"play_count,omitempty"`
		LastPlayed string                    `json:"last_played,omitempty"`
	}

	// UnwrappedData is the root contribution document.
	UnwrappedData struct {
		User                 UnwrappedUser          `json:"user"`
		Stats                UnwrappedStats         `json:"stats"`
		Tracks               []UnwrappedPlayedTrack `json:"tracks"`
		TopArtistsMediumTerm []UnwrappedTopArtist   `json:"top_artists_medium_term,omitempty"`
	}
)

// Error implements the error interface.
func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q", e.Value)
}

// Unwrap returns the sentinel for errors.Is.
func (e *InvalidTimestampError) Unwrap() error {
	return ErrInvalidTimestamp
}

// timestampLayouts are the accepted timestamp shapes, tried in order.
// Contributions are produced by more than one client version, so both
// zoned and naive ISO timestamps occur in the wild.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-ish timestamp string. Naive timestamps are
// interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidTimestampError{Value: s}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &InvalidTimestampError{Value: s}
}

// Validate checks structural requirements the JSON decoder cannot express.
func (d *UnwrappedData) Validate() error {
	if strings.TrimSpace(d.User.IDHash) == "" {
		return ErrMissingIDHash
	}

	for i, track := range d.Tracks {
		if track.ListenedAt == "" {
			return fmt.Errorf("tracks[%d]: listened_at is required", i)
		}
		if _, err := ParseTimestamp(track.ListenedAt); err != nil {
			return fmt.Errorf("tracks[%d]: %w", i, err)
		}
		if track.DurationMS < 0 {
			return fmt.Errorf("tracks[%d]: duration_ms must not be negative", i)
		}
	}

	return nil
}

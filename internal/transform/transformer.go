// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"refiner-cli/internal/model"
)

// Transformer maps unrefined contribution documents onto refined row
// batches. FileID, when set, is stamped onto the user row.
type Transformer struct {
	FileID *int64
}

// Transform validates data and produces the refined batch for it. Top
// artists are processed before the play history so artist rows carry
// full metadata when it is available; artists seen only in the play
// history get a placeholder name.
func (t *Transformer) Transform(data *model.UnwrappedData) (*model.RefinedBatch, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("validating contribution: %w", err)
	}

	batch := &model.RefinedBatch{
		User: model.User{
			IDHash:  data.User.IDHash,
			Country: optString(data.User.Country),
			Product: optString(data.User.Product),
			FileID:  t.FileID,
		},
	}

	stats, err := t.statsRow(data)
	if err != nil {
		return nil, err
	}
	batch.Stats = stats

	seen := make(map[string]struct{})

	for i := range data.TopArtistsMediumTerm {
		top := &data.TopArtistsMediumTerm[i]
		if _, ok := seen[top.ID]; !ok {
			seen[top.ID] = struct{}{}
			batch.Artists = append(batch.Artists, artistRow(top))
		}

		row := model.TopArtist{
			UserIDHash: data.User.IDHash,
			ArtistID:   top.ID,
			PlayCount:  parsePlayCount(top.ID, top.PlayCount),
		}
		if top.LastPlayed != "" {
			lastPlayed, err := model.ParseTimestamp(top.LastPlayed)
			if err != nil {
				return nil, fmt.Errorf("top artist %s last_played: %w", top.ID, err)
			}
			row.LastPlayedAt = &lastPlayed
		}
		batch.TopArtists = append(batch.TopArtists, row)
	}

	for i := range data.Tracks {
		track := &data.Tracks[i]
		if _, ok := seen[track.ArtistID]; !ok {
			seen[track.ArtistID] = struct{}{}
			batch.Artists = append(batch.Artists, model.Artist{
				ID:   track.ArtistID,
				Name: placeholderArtistName(track.ArtistID),
			})
		}

		listenedAt, err := model.ParseTimestamp(track.ListenedAt)
		if err != nil {
			return nil, fmt.Errorf("track %s listened_at: %w", track.TrackID, err)
		}
		batch.Tracks = append(batch.Tracks, model.PlayedTrack{
			UserIDHash: data.User.IDHash,
			TrackID:    track.TrackID,
			ArtistID:   track.ArtistID,
			DurationMS: track.DurationMS,
			ListenedAt: listenedAt,
		})
	}

	return batch, nil
}

func (t *Transformer) statsRow(data *model.UnwrappedData) (model.ListeningStats, error) {
	stats := model.ListeningStats{
		UserIDHash:         data.User.IDHash,
		TotalMinutes:       data.Stats.TotalMinutes,
		TrackCount:         data.Stats.TrackCount,
		UniqueArtistsCount: data.Stats.UniqueArtistsCount,
		ActivityPeriodDays: data.Stats.ActivityPeriodDays,
	}

	var err error
	if stats.FirstListenAt, err = optTimestamp(data.Stats.FirstListen); err != nil {
		return stats, fmt.Errorf("stats first_listen: %w", err)
	}
	if stats.LastListenAt, err = optTimestamp(data.Stats.LastListen); err != nil {
		return stats, fmt.Errorf("stats last_listen: %w", err)
	}
	return stats, nil
}

func artistRow(top *model.UnwrappedTopArtist) model.Artist {
	row := model.Artist{
		ID:         top.ID,
		Name:       top.Name,
		Popularity: top.Popularity,
	}
	if len(top.Genres) > 0 {
		if encoded, err := json.Marshal(top.Genres); err == nil {
			s := string(encoded)
			row.Genres = &s
		}
	}
	if top.Followers != nil {
		total := top.Followers.Total
		row.FollowersTotal = &total
	}
	if len(top.Images) > 0 {
		row.PrimaryImageURL = &top.Images[0].URL
	}
	return row
}

// placeholderArtistName names artists known only by ID so rows stay
// joinable until metadata enrichment fills in the real name.
func placeholderArtistName(artistID string) string {
	return fmt.Sprintf("[ID: %s]", artistID)
}

// parsePlayCount converts the upstream string play count; a malformed
// value is logged and stored as NULL rather than failing the batch.
func parsePlayCount(artistID, raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("could not parse play_count", "artist_id", artistID, "value", raw)
		return nil
	}
	return &n
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := model.ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// SPDX-License-Identifier: MPL-2.0

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339",
			in:   "2024-06-01T12:30:00Z",
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with offset normalizes to UTC",
			in:   "2024-06-01T14:30:00+02:00",
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "naive datetime",
			in:   "2024-06-01T12:30:00",
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "space separated",
			in:   "2024-06-01 12:30:00",
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			in:   "2024-06-01",
			want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "not-a-time", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidTimestamp) {
					t.Errorf("error does not wrap ErrInvalidTimestamp: %v", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnwrappedData_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *UnwrappedData {
		return &UnwrappedData{
			User:  UnwrappedUser{IDHash: "abc123"},
			Stats: UnwrappedStats{TotalMinutes: 10, TrackCount: 1},
			Tracks: []UnwrappedPlayedTrack{
				{TrackID: "t1", ArtistID: "a1", DurationMS: 200000, ListenedAt: "2024-06-01T12:00:00Z"},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("missing id hash", func(t *testing.T) {
		t.Parallel()
		d := valid()
		d.User.IDHash = "  "
		if err := d.Validate(); !errors.Is(err, ErrMissingIDHash) {
			t.Errorf("Validate() = %v, want ErrMissingIDHash", err)
		}
	})

	t.Run("bad track timestamp", func(t *testing.T) {
		t.Parallel()
		d := valid()
		d.Tracks[0].ListenedAt = "whenever"
		if err := d.Validate(); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("Validate() = %v, want ErrInvalidTimestamp", err)
		}
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Parallel()
		d := valid()
		d.Tracks[0].DurationMS = -1
		if err := d.Validate(); err == nil {
			t.Error("Validate() = nil, want error for negative duration")
		}
	})
}

func TestUnwrappedData_DecodeJSON(t *testing.T) {
	t.Parallel()

	raw := `{
		"user": {"id_hash": "h1", "country": "DE", "product": "premium"},
		"stats": {
			"total_minutes": 1234,
			"track_count": 56,
			"unique_artists_count": 7,
			"activity_period_days": 30,
			"first_listen": "2024-01-01T00:00:00Z",
			"last_listen": "2024-01-31T00:00:00Z"
		},
		"tracks": [
			{"track_id": "t1", "artist_id": "a1", "duration_ms": 180000, "listened_at": "2024-01-15T08:00:00Z"}
		],
		"top_artists_medium_term": [
			{
				"id": "a1",
				"name": "Artist One",
				"popularity": 80,
				"genres": ["electro", "pop"],
				"images": [{"url": "https://img.example/a1", "height": 640, "width": 640}],
				"followers": {"total": 100000},
				"play_count": "42",
				"last_played": "2024-01-30T21:00:00Z"
			}
		]
	}`

	var d UnwrappedData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if d.User.Country != "DE" {
		t.Errorf("Country = %q", d.User.Country)
	}
	if d.Stats.TotalMinutes != 1234 {
		t.Errorf("TotalMinutes = %d", d.Stats.TotalMinutes)
	}
	if len(d.TopArtistsMediumTerm) != 1 {
		t.Fatalf("top artists = %d", len(d.TopArtistsMediumTerm))
	}
	ta := d.TopArtistsMediumTerm[0]
	if ta.Popularity == nil || *ta.Popularity != 80 {
		t.Errorf("Popularity = %v", ta.Popularity)
	}
	if ta.Followers == nil || ta.Followers.Total != 100000 {
		t.Errorf("Followers = %v", ta.Followers)
	}
	if ta.PlayCount != "42" {
		t.Errorf("PlayCount = %q", ta.PlayCount)
	}
}

func TestRefinedBatch_RowCount(t *testing.T) {
	t.Parallel()

	b := &RefinedBatch{
		Artists:    make([]Artist, 3),
		Tracks:     make([]PlayedTrack, 5),
		TopArtists: make([]TopArtist, 2),
	}
	if got := b.RowCount(); got != 12 {
		t.Errorf("RowCount() = %d, want 12", got)
	}
}

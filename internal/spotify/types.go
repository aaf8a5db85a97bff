// SPDX-License-Identifier: MPL-2.0

package spotify

type (
	// Artist is the subset of the Spotify artist object the refiner uses.
	Artist struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		Genres     []string  `json:"genres"`
		Popularity int       `json:"popularity"`
		Followers  Followers `json:"followers"`
		Images     []Image   `json:"images"`
	}

	// Track is the subset of the Spotify track object the refiner uses.
	Track struct {
		ID         string        `json:"id"`
		Name       string        `json:"name"`
		DurationMS int           `json:"duration_ms"`
		Popularity int           `json:"popularity"`
		Artists    []TrackArtist `json:"artists"`
	}

	// TrackArtist is the simplified artist object embedded in tracks.
	TrackArtist struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Followers carries an artist's follower count.
	Followers struct {
		Total int `json:"total"`
	}

	// Image is a cover or profile image in one resolution.
	Image struct {
		URL    string `json:"url"`
		Height int    `json:"height"`
		Width  int    `json:"width"`
	}
)

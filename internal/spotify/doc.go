// SPDX-License-Identifier: MPL-2.0

// Package spotify is a minimal Spotify Web API client used to enrich
// refined listening data with artist and track metadata. It authenticates
// with the client-credentials flow and honors the API's rate limiting.
package spotify

// SPDX-License-Identifier: MPL-2.0

package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultAPIBase is the Spotify Web API base URL.
	DefaultAPIBase = "https://api.spotify.com/v1"

	// DefaultTokenURL issues client-credentials access tokens.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultBatchSize is the maximum number of IDs per batched lookup,
	// matching the API's documented limit for artists and tracks.
	DefaultBatchSize = 50

	maxRequestAttempts = 3

	// tokenExpirySlack renews tokens slightly before the server-side
	// expiry so in-flight requests never carry a stale token.
	tokenExpirySlack = 60 * time.Second

	maxRetryBackoff = 30 * time.Second
)

// ErrMissingClientCredentials indicates the client ID or secret is unset.
var ErrMissingClientCredentials = errors.New("spotify client credentials not configured")

type (
	// Client calls the Spotify Web API with client-credentials
	// authentication. It is safe for concurrent use.
	Client struct {
		clientID     string
		clientSecret string
		apiBase      string
		tokenURL     string
		callDelay    time.Duration
		batchSize    int
		http         *http.Client

		mu          sync.Mutex
		token       string
		tokenExpiry time.Time
		callCount   int
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)

	tokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
)

// WithAPIBase overrides the API base URL.
func WithAPIBase(u string) ClientOption {
	return func(c *Client) { c.apiBase = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the token endpoint URL.
func WithTokenURL(u string) ClientOption {
	return func(c *Client) { c.tokenURL = u }
}

// WithCallDelay sets the pause inserted before each API call.
func WithCallDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.callDelay = d }
}

// WithBatchSize sets the maximum number of IDs per batched lookup.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a Spotify API client for the given app credentials.
func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiBase:      DefaultAPIBase,
		tokenURL:     DefaultTokenURL,
		callDelay:    50 * time.Millisecond,
		batchSize:    DefaultBatchSize,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallCount reports how many HTTP requests (including token requests)
// the client has issued.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount
}

func (c *Client) countCall() {
	c.mu.Lock()
	c.callCount++
	c.mu.Unlock()
}

// accessToken returns a valid token, requesting a new one when the
// cached token is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingClientCredentials
	}

	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.countCall()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySlack)
	c.mu.Unlock()

	slog.Debug("obtained spotify access token", "expires_in", tr.ExpiresIn)
	return tr.AccessToken, nil
}

// get performs an authenticated GET and decodes the JSON response into
// out. It retries on rate limiting (429, honoring Retry-After) and on
// transient transport errors with capped exponential backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.apiBase + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := range maxRequestAttempts {
		if attempt > 0 {
			backoff := min(maxRetryBackoff, time.Duration(1<<(attempt-1))*time.Second)
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
		}
		if err := sleepCtx(ctx, c.callDelay); err != nil {
			return err
		}

		// Resolved per attempt: a token that expired while the previous
		// attempt was backing off is renewed here, the cached fast path
		// costs nothing otherwise.
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		c.countCall()
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("calling %s: %w", u, err)
			slog.Warn("spotify request failed", "url", u, "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited on %s", u)
			slog.Warn("spotify rate limit hit", "url", u, "retry_after", retryAfter, "attempt", attempt+1)
			if err := sleepCtx(ctx, retryAfter); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			resp.Body.Close()
			return fmt.Errorf("spotify API returned status %d for %s: %s", resp.StatusCode, u, strings.TrimSpace(string(body)))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding response from %s: %w", u, err)
		}
		return nil
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", u, maxRequestAttempts, lastErr)
}

// GetArtists fetches artist metadata in batches. The result preserves
// the first-seen order of the deduplicated input IDs; entries the API
// did not return are nil.
func (c *Client) GetArtists(ctx context.Context, ids []string) ([]*Artist, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	byID := make(map[string]*Artist, len(unique))
	for batch := range batches(unique, c.batchSize) {
		var page struct {
			Artists []*Artist `json:"artists"`
		}
		params := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.get(ctx, "artists", params, &page); err != nil {
			return nil, err
		}
		for _, a := range page.Artists {
			if a != nil && a.ID != "" {
				byID[a.ID] = a
			}
		}
	}

	out := make([]*Artist, len(unique))
	for i, id := range unique {
		out[i] = byID[id]
	}
	return out, nil
}

// GetArtist fetches a single artist by ID.
func (c *Client) GetArtist(ctx context.Context, id string) (*Artist, error) {
	if id == "" {
		return nil, errors.New("artist id is empty")
	}
	var a Artist
	if err := c.get(ctx, "artists/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetTracks fetches track metadata in batches, with the same ordering
// contract as GetArtists.
func (c *Client) GetTracks(ctx context.Context, ids []string) ([]*Track, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	byID := make(map[string]*Track, len(unique))
	for batch := range batches(unique, c.batchSize) {
		var page struct {
			Tracks []*Track `json:"tracks"`
		}
		params := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.get(ctx, "tracks", params, &page); err != nil {
			return nil, err
		}
		for _, tr := range page.Tracks {
			if tr != nil && tr.ID != "" {
				byID[tr.ID] = tr
			}
		}
	}

	out := make([]*Track, len(unique))
	for i, id := range unique {
		out[i] = byID[id]
	}
	return out, nil
}

// GetTrack fetches a single track by ID.
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	if id == "" {
		return nil, errors.New("track id is empty")
	}
	var tr Track
	if err := c.get(ctx, "tracks/"+id, nil, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// dedupe removes empty and duplicate IDs, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// batches yields contiguous slices of at most size elements.
func batches(ids []string, size int) func(yield func([]string) bool) {
	return func(yield func([]string) bool) {
		for i := 0; i < len(ids); i += size {
			end := min(i+size, len(ids))
			if !yield(ids[i:end]) {
				return
			}
		}
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

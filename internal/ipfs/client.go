// SPDX-License-Identifier: MPL-2.0

package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultAPIBase is the Pinata pinning API base URL.
	DefaultAPIBase = "https://api.pinata.cloud"

	// DefaultGateway serves pinned content over HTTP.
	DefaultGateway = "https://gateway.pinata.cloud/ipfs"

	pinFilePath = "/pinning/pinFileToIPFS"
	pinJSONPath = "/pinning/pinJSONToIPFS"

	maxErrorBody = 4 << 10
)

// ErrMissingCredentials indicates the Pinata API key or secret is unset.
var ErrMissingCredentials = errors.New("pinata API credentials not configured")

type (
	// Client pins files and JSON documents via the Pinata API.
	Client struct {
		apiKey    string
		apiSecret string
		baseURL   string
		gateway   string
		http      *retryablehttp.Client
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)

	pinResponse struct {
		IpfsHash string `json:"IpfsHash"`
	}
)

// WithBaseURL overrides the Pinata API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithGateway overrides the gateway URL used to build access URLs.
func WithGateway(u string) ClientOption {
	return func(c *Client) { c.gateway = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.HTTPClient.Timeout = d }
}

// WithRetryMax sets the maximum number of retries for transient failures.
func WithRetryMax(n int) ClientOption {
	return func(c *Client) { c.http.RetryMax = n }
}

// NewClient returns a Pinata client authenticated with the given key pair.
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Timeout = 120 * time.Second

	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   DefaultAPIBase,
		gateway:   DefaultGateway,
		http:      rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GatewayURL returns the gateway access URL for an IPFS hash.
func (c *Client) GatewayURL(hash string) string {
	return c.gateway + "/" + hash
}

// PinFile uploads the file at path and returns its IPFS hash.
func (c *Client) PinFile(ctx context.Context, path string) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", ErrMissingCredentials
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for pinning: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("building multipart request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading file for pinning: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pinFilePath, body.Bytes())
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	hash, err := c.doPin(req)
	if err != nil {
		return "", err
	}
	slog.Info("pinned file to IPFS", "path", path, "hash", hash, "url", c.GatewayURL(hash))
	return hash, nil
}

// PinJSON uploads v as a JSON document and returns its IPFS hash.
func (c *Client) PinJSON(ctx context.Context, v any) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", ErrMissingCredentials
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding JSON for pinning: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pinJSONPath, payload)
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	hash, err := c.doPin(req)
	if err != nil {
		return "", err
	}
	slog.Info("pinned JSON to IPFS", "hash", hash, "url", c.GatewayURL(hash))
	return hash, nil
}

func (c *Client) doPin(req *retryablehttp.Request) (string, error) {
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling pinata API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("pinata API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pr pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decoding pinata response: %w", err)
	}
	if pr.IpfsHash == "" {
		return "", errors.New("pinata response missing IpfsHash")
	}
	return pr.IpfsHash, nil
}

// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/go-github/v82/github"
)

type (
	// Release is a publishable release: tag, title, body and the archive
	// to attach.
	Release struct {
		Tag       string
		Title     string
		Body      string
		AssetPath string
	}

	// PublishedRelease reports where a release ended up.
	PublishedRelease struct {
		ID        int64
		URL       string
		AssetName string
	}

	// Publisher creates tagged releases on a GitHub repository.
	Publisher struct {
		client *github.Client
		owner  string
		repo   string
	}

	// PublisherOption configures a Publisher.
	PublisherOption func(*Publisher) error
)

// WithEndpoint points the publisher at a different API endpoint, used
// for GitHub Enterprise and for tests. Both URLs must end with a slash.
func WithEndpoint(baseURL, uploadURL string) PublisherOption {
	return func(p *Publisher) error {
		base, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parsing API base URL: %w", err)
		}
		upload, err := url.Parse(uploadURL)
		if err != nil {
			return fmt.Errorf("parsing upload URL: %w", err)
		}
		p.client.BaseURL = base
		p.client.UploadURL = upload
		return nil
	}
}

// NewPublisher returns a Publisher for owner/repo authenticated with
// token.
func NewPublisher(token, owner, repo string, opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Publish creates the release and attaches the archive. When a release
// with the same tag already exists it is reused and only the asset is
// uploaded, so a re-run of the pipeline does not fail on the existing
// tag.
func (p *Publisher) Publish(ctx context.Context, rel Release) (*PublishedRelease, error) {
	existing, resp, err := p.client.Repositories.GetReleaseByTag(ctx, p.owner, p.repo, rel.Tag)
	switch {
	case err == nil:
		slog.Info("release tag already exists, reusing release", "tag", rel.Tag, "id", existing.GetID())
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		existing, _, err = p.client.Repositories.CreateRelease(ctx, p.owner, p.repo, &github.RepositoryRelease{
			TagName: github.Ptr(rel.Tag),
			Name:    github.Ptr(rel.Title),
			Body:    github.Ptr(rel.Body),
		})
		if err != nil {
			return nil, fmt.Errorf("creating release %s: %w", rel.Tag, err)
		}
		slog.Info("created release", "tag", rel.Tag, "id", existing.GetID())
	default:
		return nil, fmt.Errorf("looking up release %s: %w", rel.Tag, err)
	}

	assetName := filepath.Base(rel.AssetPath)
	f, err := os.Open(rel.AssetPath)
	if err != nil {
		return nil, fmt.Errorf("opening release asset: %w", err)
	}
	defer f.Close()

	_, _, err = p.client.Repositories.UploadReleaseAsset(ctx, p.owner, p.repo, existing.GetID(),
		&github.UploadOptions{Name: assetName}, f)
	if err != nil {
		return nil, fmt.Errorf("uploading asset %s: %w", assetName, err)
	}
	slog.Info("uploaded release asset", "asset", assetName, "tag", rel.Tag)

	return &PublishedRelease{
		ID:        existing.GetID(),
		URL:       existing.GetHTMLURL(),
		AssetName: assetName,
	}, nil
}

// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newPublisherTestServer(t *testing.T, tagExists bool) (*httptest.Server, *struct {
	created  bool
	assets   []string
	bodySeen string
}) {
	t.Helper()

	state := &struct {
		created  bool
		assets   []string
		bodySeen string
	}{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/refiner/releases/tags/v1.2.3", func(w http.ResponseWriter, r *http.Request) {
		if !tagExists && !state.created {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id": 7, "tag_name": "v1.2.3", "html_url": "https://github.test/acme/refiner/releases/v1.2.3"}`)
	})
	mux.HandleFunc("POST /repos/acme/refiner/releases", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding create payload: %v", err)
		}
		if payload["tag_name"] != "v1.2.3" || payload["name"] != "Refiner 1.2.3" {
			t.Errorf("create payload = %v", payload)
		}
		state.created = true
		state.bodySeen, _ = payload["body"].(string)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7, "tag_name": "v1.2.3", "html_url": "https://github.test/acme/refiner/releases/v1.2.3"}`)
	})
	mux.HandleFunc("POST /repos/acme/refiner/releases/7/assets", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			t.Errorf("reading asset body: %v", err)
		}
		state.assets = append(state.assets, r.URL.Query().Get("name"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 77, "name": "asset"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, state
}

func testArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "refiner-1.2.3.tar.gz")
	if err := os.WriteFile(path, []byte("archive bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPublisher_Publish_CreatesRelease(t *testing.T) {
	t.Parallel()

	srv, state := newPublisherTestServer(t, false)
	p, err := NewPublisher("token", "acme", "refiner", WithEndpoint(srv.URL+"/", srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	published, err := p.Publish(context.Background(), Release{
		Tag:       "v1.2.3",
		Title:     "Refiner 1.2.3",
		Body:      "deadbeef  refiner-1.2.3.tar.gz\n",
		AssetPath: testArchive(t),
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if !state.created {
		t.Error("release was not created")
	}
	if state.bodySeen != "deadbeef  refiner-1.2.3.tar.gz\n" {
		t.Errorf("release body = %q", state.bodySeen)
	}
	if len(state.assets) != 1 || state.assets[0] != "refiner-1.2.3.tar.gz" {
		t.Errorf("uploaded assets = %v", state.assets)
	}
	if published.ID != 7 || published.AssetName != "refiner-1.2.3.tar.gz" {
		t.Errorf("published = %+v", published)
	}
}

func TestPublisher_Publish_ReusesExistingTag(t *testing.T) {
	t.Parallel()

	srv, state := newPublisherTestServer(t, true)
	p, err := NewPublisher("token", "acme", "refiner", WithEndpoint(srv.URL+"/", srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Publish(context.Background(), Release{
		Tag:       "v1.2.3",
		Title:     "Refiner 1.2.3",
		AssetPath: testArchive(t),
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if state.created {
		t.Error("existing release must not be recreated")
	}
	if len(state.assets) != 1 {
		t.Errorf("uploaded assets = %v", state.assets)
	}
}

func TestPublisher_Publish_MissingAsset(t *testing.T) {
	t.Parallel()

	srv, _ := newPublisherTestServer(t, true)
	p, err := NewPublisher("token", "acme", "refiner", WithEndpoint(srv.URL+"/", srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Publish(context.Background(), Release{
		Tag:       "v1.2.3",
		AssetPath: filepath.Join(t.TempDir(), "missing.tar.gz"),
	}); err == nil {
		t.Error("Publish() with missing asset should fail")
	}
}

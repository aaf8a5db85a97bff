// SPDX-License-Identifier: MPL-2.0

package ipfs

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
)

func TestCIDForBytes(t *testing.T) {
	t.Parallel()

	data := []byte("hello refiner")

	v0, err := CIDForBytes(data, 0, cid.DagProtobuf)
	if err != nil {
		t.Fatalf("CIDForBytes(v0) error = %v", err)
	}
	if !strings.HasPrefix(v0, "Qm") {
		t.Errorf("CIDv0 = %q, want Qm prefix", v0)
	}

	v1, err := CIDForBytes(data, 1, cid.DagProtobuf)
	if err != nil {
		t.Fatalf("CIDForBytes(v1) error = %v", err)
	}
	if !strings.HasPrefix(v1, "b") {
		t.Errorf("CIDv1 = %q, want base32 (b) prefix", v1)
	}

	// Same content must always produce the same identifier.
	again, err := CIDForBytes(data, 1, cid.DagProtobuf)
	if err != nil {
		t.Fatal(err)
	}
	if again != v1 {
		t.Errorf("CID not deterministic: %q vs %q", again, v1)
	}

	// A different codec changes the identifier even for identical bytes.
	raw, err := CIDForBytes(data, 1, cid.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if raw == v1 {
		t.Error("raw and dag-pb CIDs should differ")
	}

	if _, err := CIDForBytes(data, 2, cid.Raw); err == nil {
		t.Error("unsupported version should error")
	}
}

func TestCIDForBytes_ParsesBack(t *testing.T) {
	t.Parallel()

	s, err := CIDForBytes([]byte("payload"), 1, cid.Raw)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := cid.Decode(s)
	if err != nil {
		t.Fatalf("Decode(%q) error = %v", s, err)
	}
	if parsed.Version() != 1 {
		t.Errorf("parsed version = %d, want 1", parsed.Version())
	}
	if parsed.Type() != cid.Raw {
		t.Errorf("parsed codec = %#x, want raw", parsed.Type())
	}
}

func TestCIDForJSON_CanonicalAcrossFieldOrder(t *testing.T) {
	t.Parallel()

	type doc struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}

	fromStruct, err := CIDForJSON(doc{Zeta: "z", Alpha: 1}, 1, cid.DagProtobuf)
	if err != nil {
		t.Fatal(err)
	}
	fromMap, err := CIDForJSON(map[string]any{"alpha": 1, "zeta": "z"}, 1, cid.DagProtobuf)
	if err != nil {
		t.Fatal(err)
	}
	if fromStruct != fromMap {
		t.Errorf("canonicalization failed: %q vs %q", fromStruct, fromMap)
	}
}

// SPDX-License-Identifier: MPL-2.0

package ipfs

import (
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// CIDForBytes computes the content identifier for raw bytes using a
// SHA2-256 multihash. Version 0 produces a base58 "Qm..." identifier
// (implicitly dag-pb); version 1 produces a base32 identifier with the
// given codec.
func CIDForBytes(data []byte, version int, codec uint64) (string, error) {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("computing multihash: %w", err)
	}

	switch version {
	case 0:
		return cid.NewCidV0(hash).String(), nil
	case 1:
		return cid.NewCidV1(codec, hash).String(), nil
	default:
		return "", fmt.Errorf("unsupported CID version %d", version)
	}
}

// CIDForJSON computes the content identifier for a JSON-serializable
// value. The value is serialized canonically (sorted keys, no
// insignificant whitespace) so identical documents always yield the
// same CID regardless of field ordering.
func CIDForJSON(v any, version int, codec uint64) (string, error) {
	data, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	return CIDForBytes(data, version, codec)
}

// canonicalJSON round-trips v through an untyped value so that object
// keys come out sorted and the encoding is compact.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	var untyped any
	if err := json.Unmarshal(raw, &untyped); err != nil {
		return nil, fmt.Errorf("canonicalizing JSON: %w", err)
	}
	canonical, err := json.Marshal(untyped)
	if err != nil {
		return nil, fmt.Errorf("re-encoding JSON: %w", err)
	}
	return canonical, nil
}

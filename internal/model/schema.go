// SPDX-License-Identifier: MPL-2.0

package model

// OffChainSchema describes the refined database for consumers that only see
// the on-chain pointer: human metadata plus the full DDL of the payload.
type OffChainSchema struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	Description      string `json:"description"`
	Dialect          string `json:"dialect"`
	SchemaDefinition string `json:"schema_definition"`
}

// Output is the result of one refinement run, reported back to the
// refinement service as JSON.
type Output struct {
	// Schema is nil when no input file was processed.
	Schema *OffChainSchema `json:"output_schema"`
	// RefinementURL points at the encrypted refined database: an IPFS
	// gateway URL when pinning succeeded, a file:// URL otherwise, empty
	// when nothing was produced.
	RefinementURL string `json:"refinement_url,omitempty"`
}

// SPDX-License-Identifier: MPL-2.0

// Package refine orchestrates a refinement run: contribution JSON files
// are transformed into the refined database, the database is encrypted
// and pinned to IPFS, and the run result is reported as an output
// document for the refinement service.
package refine

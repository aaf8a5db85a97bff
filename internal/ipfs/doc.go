// SPDX-License-Identifier: MPL-2.0

// Package ipfs pins refined artifacts to IPFS through the Pinata pinning
// service and computes content identifiers (CIDs) locally so artifacts
// can be referenced before (or without) a pin succeeding.
package ipfs

// SPDX-License-Identifier: MPL-2.0

// Package transform turns unrefined listening contributions into rows of
// the refined SQLite database. The Store owns the database file and its
// schema; the Transformer maps a contribution document onto row batches.
package transform

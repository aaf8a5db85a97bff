// SPDX-License-Identifier: MPL-2.0

// Package model defines the refiner's data contracts: the raw contribution
// JSON shape (unrefined), the relational rows written to the refined
// database, the off-chain schema descriptor and the job output.
package model

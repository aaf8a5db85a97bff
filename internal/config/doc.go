// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates refiner settings.
//
// Settings come from three layers, lowest precedence first: built-in defaults,
// an optional CUE config file validated against the embedded schema, and
// environment variables. Environment variables use the names the refinement
// service injects in production (INPUT_DIR, REFINEMENT_ENCRYPTION_KEY,
// PINATA_API_KEY, ...), each of which is also accepted with a REFINER_ prefix.
package config

// SPDX-License-Identifier: MPL-2.0

// Package crypt encrypts refined database files with OpenPGP symmetric
// encryption before they leave the refinement environment. The encryption
// key doubles as the passphrase; anyone holding it can decrypt the
// artifact with standard OpenPGP tooling.
package crypt

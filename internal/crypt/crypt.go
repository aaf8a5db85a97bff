// SPDX-License-Identifier: MPL-2.0

package crypt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// EncryptedSuffix is appended to the source filename to form the
// encrypted output filename.
const EncryptedSuffix = ".pgp"

// ErrEmptyKey indicates that no encryption key was provided.
var ErrEmptyKey = errors.New("encryption key is empty")

// Encrypt symmetrically encrypts everything read from r into w using key
// as the passphrase. The output is a binary OpenPGP message.
func Encrypt(key string, w io.Writer, r io.Reader) error {
	if key == "" {
		return ErrEmptyKey
	}

	cfg := &packet.Config{
		DefaultCipher: packet.CipherAES256,
	}
	pt, err := openpgp.SymmetricallyEncrypt(w, []byte(key), nil, cfg)
	if err != nil {
		return fmt.Errorf("initializing symmetric encryption: %w", err)
	}
	if _, err := io.Copy(pt, r); err != nil {
		pt.Close()
		return fmt.Errorf("encrypting stream: %w", err)
	}
	if err := pt.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted message: %w", err)
	}
	return nil
}

// Decrypt reads a symmetrically encrypted OpenPGP message from r and
// writes the plaintext to w. It exists so operators can verify artifacts
// without reaching for external tooling.
func Decrypt(key string, w io.Writer, r io.Reader) error {
	if key == "" {
		return ErrEmptyKey
	}

	attempted := false
	prompt := func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if attempted {
			return nil, errors.New("incorrect encryption key")
		}
		attempted = true
		return []byte(key), nil
	}

	md, err := openpgp.ReadMessage(r, nil, prompt, nil)
	if err != nil {
		return fmt.Errorf("reading encrypted message: %w", err)
	}
	if _, err := io.Copy(w, md.UnverifiedBody); err != nil {
		return fmt.Errorf("decrypting stream: %w", err)
	}
	return nil
}

// EncryptFile encrypts the file at path into a sibling file with the
// EncryptedSuffix appended and returns the output path. The source file
// is left untouched.
func EncryptFile(key, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	outPath := path + EncryptedSuffix
	dst, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating encrypted file: %w", err)
	}

	if err := Encrypt(key, dst, src); err != nil {
		dst.Close()
		os.Remove(outPath)
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing encrypted file: %w", err)
	}
	return outPath, nil
}

// SPDX-License-Identifier: MPL-2.0

package mods

import (
	"crypto/sha1" //nolint:gosec // The mod portal publishes SHA-1 digests.
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// ArchiveChecksum returns the BLAKE2b-512 hex digest of the file at path.
// It is what cached records store to detect archives changed behind our back.
func ArchiveChecksum(path string) (string, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return "", fmt.Errorf("creating hash: %w", err)
	}
	return hashFile(path, h)
}

// registryChecksum returns the SHA-1 hex digest the portal publishes for
// release archives.
func registryChecksum(path string) (string, error) {
	return hashFile(path, sha1.New()) //nolint:gosec // Verifying, not signing.
}

func hashFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // read-only file

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

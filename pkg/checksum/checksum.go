// Package checksum provides CRC32 and SHA-256 helpers. The writer uses
// FormatCRC32 to render the CRC32 recorded in journal entries; the other
// helpers are exposed for programmatic callers.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
)

// CRC32 computes the IEEE CRC32 checksum of r, consuming it fully.
func CRC32(r io.Reader) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, fmt.Errorf("compute crc32: %w", err)
	}

	return h.Sum32(), nil
}

// SHA256Hex computes the SHA-256 digest of r and returns it hex-encoded,
// consuming r fully.
func SHA256Hex(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("compute sha256: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FormatCRC32 renders a CRC32 value the way zip tooling and the journal
// both expect: lowercase, zero-padded hex.
func FormatCRC32(crc uint32) string {
	return fmt.Sprintf("%08x", crc)
}

// Equal reports whether two CRC32 checksums match. It exists mainly for
// readability at partition call sites.
func Equal(a, b uint32) bool {
	return a == b
}

// Package identity computes the content digest used to deduplicate
// binaries: SHA-256 over the full file bytes, rendered as lowercase hex.
// Byte-identical files yield the same digest regardless of name or path.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Compute returns the digest of an in-memory byte slice.
func Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeFile streams a file through the hash without loading it whole.
// Output is identical to Compute over the same bytes.
func ComputeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file for hashing: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Package fingerprint provides deterministic content identifiers for source URLs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns the SHA-256 hex digest of the URL. Same URL always yields the
// same fingerprint; used for deduplication and as the chunk key prefix.
func Hash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ChunkKey returns the vector storage key for chunk i of the fingerprinted
// source: "{hash}_{i}". Stable across re-ingestion so upserts overwrite.
func ChunkKey(hash string, i int) string {
	return fmt.Sprintf("%s_%d", hash, i)
}

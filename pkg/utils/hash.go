package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash identifies file contents, e.g. to skip re-imports of unchanged
// files.
func ContentHash(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

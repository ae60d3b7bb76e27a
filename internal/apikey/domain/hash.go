package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAPIKey digests a plain key for storage and lookup. Only the hex
// digest ever reaches the database; the plain key is shown once at creation.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

package prismlate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key from a text hash, the language pair and
// the translation service that produced the value.
func CacheKey(hash, sourceLang, targetLang, service string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + service
}

package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// rawKeyLen is the entropy of a generated API key in bytes.
const rawKeyLen = 32

// GenerateKey produces a new raw API key. The caller shows it to the
// user once and stores only its hash.
func GenerateKey() (string, error) {
	raw := make([]byte, rawKeyLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("users: generate key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashKey computes the stored lookup hash of a raw API key: HMAC-SHA-256
// under the server secret, hex encoded. Keyed hashing keeps a leaked
// database from yielding usable keys without the secret.
func HashKey(secret, rawKey string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const accountTokenBytes = 32

// GenerateAccountToken returns a random hex token for email verification and
// password reset links, along with the SHA-256 digest stored server-side.
func GenerateAccountToken() (token string, digest string, err error) {
	raw := make([]byte, accountTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate account token: %w", err)
	}
	token = hex.EncodeToString(raw)
	return token, HashAccountToken(token), nil
}

// HashAccountToken digests a presented token so lookups never touch the raw value.
func HashAccountToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

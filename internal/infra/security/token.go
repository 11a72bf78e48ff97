package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var errTokenLength = errors.New("token byte length must be positive")

// GenerateSecureToken draws byteLength random bytes and encodes them with
// the URL-safe base64 alphabet, no padding.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", errTokenLength
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken digests an opaque token value with SHA-256. Only the hex digest
// is ever written to storage.
func HashToken(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

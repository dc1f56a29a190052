package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SessionIDBytes is the entropy carried by a session identifier.
const SessionIDBytes = 32

// TempTokenBytes is the entropy carried by a temporary password-change token.
const TempTokenBytes = 32

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value. Used to store
// token material server-side without retaining the raw credential.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// TokensEqual compares a supplied raw token against a stored token hash in
// constant time.
func TokensEqual(supplied, storedHash string) bool {
	if supplied == "" || storedHash == "" {
		return false
	}
	suppliedHash := HashToken(supplied)
	return subtle.ConstantTimeCompare([]byte(suppliedHash), []byte(storedHash)) == 1
}

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. The iteration count is deliberately large: a single
// derivation should cost tens of milliseconds so offline guessing stays
// expensive.
const (
	pbkdf2Iterations = 120_000
	pbkdf2KeyLen     = 64
	saltLen          = 32
)

// GenerateSalt returns a fresh 256-bit salt as a hex string.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// HashPassword derives a key from the password and salt using
// PBKDF2-HMAC-SHA512 and returns it hex-encoded. Deterministic: the same
// (password, salt) pair always yields the same hash.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key)
}

// VerifyPassword recomputes the hash and compares in constant time.
func VerifyPassword(password, encodedHash, salt string) bool {
	expected, err := hex.DecodeString(encodedHash)
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return subtle.ConstantTimeCompare(expected, computed) == 1
}

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KDF parameters are fixed at build time and are not user-configurable.
// Changing them invalidates every stored credential.
const (
	hashIterations = 10000
	hashKeyLength  = 64
	saltBytes      = 16
)

// HashPassword derives a hex-encoded key from the password and salt.
// Deterministic for a given password/salt pair.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// VerifyPassword recomputes the hash and compares it in constant time.
func VerifyPassword(password, storedHash, salt string) bool {
	computed := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// GenerateSalt returns a fresh random salt, hex encoded to 32 characters.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

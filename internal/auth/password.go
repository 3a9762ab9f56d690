package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword applies the fixed-salt one-way hash used for stored
// credentials. The salt is deployment-wide configuration; the function is
// deterministic so stored hashes can be compared directly.
func HashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares a stored hash against the hash of a supplied
// password in constant time.
func VerifyPassword(storedHash, salt, password string) bool {
	candidate := HashPassword(salt, password)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidate)) == 1
}

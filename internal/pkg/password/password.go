package password

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const cost = 12 // bcrypt cost factor (higher = slower but more secure)

// Hash hashes password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// Verify compares password with hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Matches checks password against a configured secret, which may be a
// bcrypt hash or, in development, the plain value.
func Matches(password, secret string) bool {
	if secret == "" || password == "" {
		return false
	}
	if IsHash(secret) {
		return Verify(password, secret)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(secret)) == 1
}

// IsHash reports whether s looks like a bcrypt hash
func IsHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

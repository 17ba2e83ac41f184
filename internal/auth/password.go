package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"unicode"

	"golang.org/x/crypto/pbkdf2"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const (
	// DefaultIterations matches the PBKDF2-SHA256 work factor of stored hashes.
	DefaultIterations = 100000
	saltBytes         = 16
	keyLength         = 32
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// NewSalt returns a random hex-encoded salt.
func NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives the stored hash for password‖salt.
func HashPassword(password, salt string, iterations int) string {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	key := pbkdf2.Key([]byte(password+salt), []byte(salt), iterations, keyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword compares in constant time.
func VerifyPassword(password, salt, hash string, iterations int) bool {
	candidate := HashPassword(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return shared.Invalid("password", "must be at least 8 characters")
	}
	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !digit || !special {
		return shared.Invalid("password", "must contain an uppercase letter, a digit and a special character")
	}
	return nil
}

// ValidateUsername accepts 3-20 letters, digits or underscores.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return shared.Invalid("username", "must be 3-20 letters, digits or underscores")
	}
	return nil
}

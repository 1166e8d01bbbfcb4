package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMode selects how stored credentials are compared.
type PasswordMode string

const (
	// PasswordPlain compares the stored value byte for byte. This is how the
	// shared login table has always been kept.
	PasswordPlain PasswordMode = "plain"
	// PasswordBcrypt expects bcrypt hashes in the password column.
	PasswordBcrypt PasswordMode = "bcrypt"
)

func ParsePasswordMode(s string) (PasswordMode, error) {
	switch PasswordMode(s) {
	case "", PasswordPlain:
		return PasswordPlain, nil
	case PasswordBcrypt:
		return PasswordBcrypt, nil
	default:
		return "", fmt.Errorf("unknown password mode %q", s)
	}
}

// Matches reports whether given is the password stored as stored.
func (m PasswordMode) Matches(stored, given string) bool {
	if m == PasswordBcrypt {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// Hash returns the value to store for password under this mode.
func (m PasswordMode) Hash(password string) (string, error) {
	if m != PasswordBcrypt {
		return password, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Package auth protects the web UI with a single shared password.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost used for the configured password.
	DefaultCost = 12

	// MinCost is the lowest cost accepted for a pre-hashed password.
	MinCost = 10

	MaxCost = 31
)

var (
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordMismatch does not reveal whether the hash itself was valid.
	ErrPasswordMismatch = errors.New("password does not match")

	ErrInvalidHash = errors.New("invalid password hash format")
	ErrCostTooLow  = errors.New("hash cost is below minimum acceptable value")
)

// HashPassword creates a bcrypt hash of password at DefaultCost.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost creates a bcrypt hash with an explicit cost.
// Tests use bcrypt.MinCost to stay fast.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > MaxCost {
		return "", bcrypt.InvalidCostError(cost)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares password with hash in constant time.
func VerifyPassword(password, hash string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if hash == "" {
		return ErrInvalidHash
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// IsValidHash reports whether s is a well-formed bcrypt hash.
func IsValidHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// ValidateHashStrength rejects hashes below MinCost.
func ValidateHashStrength(hash string) error {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return ErrInvalidHash
	}
	if cost < MinCost {
		return ErrCostTooLow
	}
	return nil
}

// PrepareHash turns the configured WEBUI_PWD into a bcrypt hash. A value
// that already is a bcrypt hash is used as is, provided it is strong
// enough; anything else is treated as plaintext and hashed with cost.
func PrepareHash(configured string, cost int) (string, error) {
	if configured == "" {
		return "", ErrEmptyPassword
	}
	if IsValidHash(configured) {
		if err := ValidateHashStrength(configured); err != nil {
			return "", err
		}
		return configured, nil
	}
	return HashPasswordWithCost(configured, cost)
}

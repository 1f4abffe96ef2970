package actor

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"sayit/pkg/platform/sentinel"
)

// HashPassword hashes a plaintext password using bcrypt. The salt lives inside
// the bcrypt hash; plaintext is never persisted or logged.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errors.New("password exceeds 72 bytes")
		}
		return "", err
	}
	return string(hash), nil
}

// VerifyPasswordHash compares plaintext with a stored hash in constant time
// (bcrypt's comparison is constant-time by construction). Returns
// sentinel.ErrInvalidState on mismatch so callers produce one uniform
// "invalid credentials" answer.
func VerifyPasswordHash(hash, password string) error {
	if hash == "" {
		return sentinel.ErrInvalidState
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return sentinel.ErrInvalidState
		}
		return err
	}
	return nil
}

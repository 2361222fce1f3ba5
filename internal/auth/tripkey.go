package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidTripKey = errors.New("invalid trip id or key")
	ErrWeakTripKey    = errors.New("trip key must be at least 8 characters")
)

// HashTripKey derives the bcrypt hash the server keeps instead of the plain
// trip key.
func HashTripKey(key string) (string, error) {
	if len(key) < 8 {
		return "", ErrWeakTripKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash trip key: %w", err)
	}
	return string(hash), nil
}

// VerifyTripKey compares a presented key against the stored hash.
func VerifyTripKey(hash, key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidTripKey
	}
	return nil
}

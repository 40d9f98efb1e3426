package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const passwordLogPrefix = "auth:password"

// HashPassword derives a bcrypt digest at the default cost.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s - hash password: %w", passwordLogPrefix, err)
	}
	return string(digest), nil
}

// CheckPassword reports whether password matches the stored digest.
func CheckPassword(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

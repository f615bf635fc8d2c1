package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"biztech/api/internal/apperr"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePasswordPolicy checks the credential policy: at least 8 characters,
// at least one digit and at least one uppercase letter.
func ValidatePasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Newf(apperr.KindValidation, "Password must be at least %d characters long", MinPasswordLength)
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return apperr.New(apperr.KindValidation, "Password must contain at least one number")
	}
	if !hasUpper {
		return apperr.New(apperr.KindValidation, "Password must contain at least one uppercase letter")
	}
	return nil
}

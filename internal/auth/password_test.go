package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biztech/api/internal/apperr"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)
	assert.True(t, CheckPasswordHash("Secret123", hash))
	assert.False(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Passw0rd", true},
		{"valid long", "CorrectHorse1Battery", true},
		{"too short", "Pass1", false},
		{"no digit", "Password", false},
		{"no uppercase", "password1", false},
		{"empty", "", false},
		{"exactly eight with both", "Abcdefg1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			}
		})
	}
}

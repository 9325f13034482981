package secrets_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezasa/credstore/internal/domain"
	"github.com/nezasa/credstore/internal/secrets"
)

func TestRotateAPIKey(t *testing.T) {
	g := secrets.NewGenerator()
	old := domain.APIKeySecret{Key: "sk_live_abc123456789"}

	rotated, err := g.Rotate(old)
	require.NoError(t, err)

	key := rotated.(domain.APIKeySecret).Key
	assert.True(t, strings.HasPrefix(key, "sk_rotated_"))
	assert.Len(t, strings.TrimPrefix(key, "sk_rotated_"), 32)
	assert.NotEqual(t, old.Key, key)
}

func TestRotateUsernamePassword(t *testing.T) {
	g := secrets.NewGenerator()
	old := domain.UsernamePasswordSecret{Username: "svc-sabre", Password: "hunter2"}

	rotated, err := g.Rotate(old)
	require.NoError(t, err)

	up := rotated.(domain.UsernamePasswordSecret)
	assert.Equal(t, "svc-sabre", up.Username)
	assert.True(t, strings.HasPrefix(up.Password, "rotated_"))
	assert.NotEqual(t, old.Password, up.Password)
}

func TestRotateFallbackUsername(t *testing.T) {
	g := secrets.NewGenerator()

	rotated, err := g.Rotate(domain.UsernamePasswordSecret{Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "rotated_user", rotated.(domain.UsernamePasswordSecret).Username)
}

// Successive rotations must never repeat material.
func TestRotateNeverRepeats(t *testing.T) {
	g := secrets.NewGenerator()
	seen := make(map[string]bool)

	secret := domain.SecretData(domain.APIKeySecret{Key: "sk_live_seed"})
	for i := 0; i < 100; i++ {
		next, err := g.Rotate(secret)
		require.NoError(t, err)
		key := next.(domain.APIKeySecret).Key
		assert.False(t, seen[key], "rotation produced a repeated key")
		seen[key] = true
		secret = next
	}
}

package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/nezasa/credstore/internal/domain"
)

const (
	rotatedKeyPrefix      = "sk_rotated_"
	rotatedPasswordPrefix = "rotated_"
	fallbackUsername      = "rotated_user"

	apiKeyEntropyBytes   = 16
	passwordEntropyBytes = 8
)

// Generator produces replacement secret material for rotation. Tokens come
// from crypto/rand; a predictable rotation source would defeat the feature.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Rotate returns fresh secret material shaped by the old secret's auth
// type: a new prefixed api key, or the same username with a new password.
// It performs no storage access and holds no locks, so callers can compute
// the replacement before entering the record's critical section.
func (g *Generator) Rotate(old domain.SecretData) (domain.SecretData, error) {
	switch s := old.(type) {
	case domain.APIKeySecret:
		token, err := randomHex(apiKeyEntropyBytes)
		if err != nil {
			return nil, err
		}
		return domain.APIKeySecret{Key: rotatedKeyPrefix + token}, nil
	case domain.UsernamePasswordSecret:
		token, err := randomHex(passwordEntropyBytes)
		if err != nil {
			return nil, err
		}
		username := s.Username
		if username == "" {
			username = fallbackUsername
		}
		return domain.UsernamePasswordSecret{
			Username: username,
			Password: rotatedPasswordPrefix + token,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported secret type %T", old)
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

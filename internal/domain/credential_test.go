package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezasa/credstore/internal/domain"
)

func TestMaskAPIKey(t *testing.T) {
	cred := &domain.Credential{
		ID:     domain.NewCredentialID(),
		Secret: domain.APIKeySecret{Key: "sk_live_abc123456789"},
	}

	masked := cred.Mask()
	assert.True(t, masked.Masked)
	assert.Equal(t, "sk_live_...6789", masked.Secret.(domain.APIKeySecret).Key)

	// Stored data is untouched: masking is a projection.
	assert.False(t, cred.Masked)
	assert.Equal(t, "sk_live_abc123456789", cred.Secret.(domain.APIKeySecret).Key)
}

func TestMaskShortAPIKey(t *testing.T) {
	cred := &domain.Credential{Secret: domain.APIKeySecret{Key: "short"}}
	assert.Equal(t, "***", cred.Mask().Secret.(domain.APIKeySecret).Key)
}

func TestMaskUsernamePassword(t *testing.T) {
	cred := &domain.Credential{
		Secret: domain.UsernamePasswordSecret{Username: "svc-sabre", Password: "hunter2"},
	}

	masked := cred.Mask().Secret.(domain.UsernamePasswordSecret)
	assert.Equal(t, "svc-sabre", masked.Username)
	assert.Equal(t, "********", masked.Password)
}

// Masking a masked credential must not chop the secret again.
func TestMaskIdempotent(t *testing.T) {
	cred := &domain.Credential{Secret: domain.APIKeySecret{Key: "sk_live_abc123456789"}}

	once := cred.Mask()
	twice := once.Mask()
	assert.Equal(t, once.Secret, twice.Secret)
	assert.True(t, twice.Masked)
}

func TestParseSecretData(t *testing.T) {
	cases := []struct {
		name     string
		authType domain.AuthType
		fields   map[string]string
		wantErr  bool
	}{
		{"api key ok", domain.AuthTypeAPIKey, map[string]string{"api_key": "sk_x"}, false},
		{"api key missing", domain.AuthTypeAPIKey, map[string]string{}, true},
		{"api key empty", domain.AuthTypeAPIKey, map[string]string{"api_key": ""}, true},
		{"api key extra field", domain.AuthTypeAPIKey, map[string]string{"api_key": "x", "password": "y"}, true},
		{"userpass ok", domain.AuthTypeUsernamePassword, map[string]string{"username": "u", "password": "p"}, false},
		{"userpass missing password", domain.AuthTypeUsernamePassword, map[string]string{"username": "u"}, true},
		{"userpass wrong shape", domain.AuthTypeUsernamePassword, map[string]string{"api_key": "x"}, true},
		{"unknown auth type", domain.AuthType("oauth2"), map[string]string{"token": "t"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := domain.ParseSecretData(tc.authType, tc.fields)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.authType, s.AuthType())
		})
	}
}

func TestSecretDataRoundTrip(t *testing.T) {
	s := domain.UsernamePasswordSecret{Username: "svc", Password: "p@ss"}

	raw, err := domain.MarshalSecretData(s)
	require.NoError(t, err)

	back, err := domain.UnmarshalSecretData(domain.AuthTypeUsernamePassword, raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SecretData(s), back)
}

func TestCredentialIDFromString(t *testing.T) {
	id := domain.NewCredentialID()

	parsed, err := domain.CredentialIDFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = domain.CredentialIDFromString("")
	assert.Error(t, err)
	_, err = domain.CredentialIDFromString("not-a-uuid")
	assert.Error(t, err)
}

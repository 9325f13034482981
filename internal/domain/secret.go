package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type AuthType string

const (
	AuthTypeAPIKey           AuthType = "api_key"
	AuthTypeUsernamePassword AuthType = "username_password"
)

const passwordMask = "********"

// SecretData is the tagged variant behind a credential's secret material:
// either an API key or a username/password pair. The interface is sealed;
// masking and serialization are a match over the two concrete types.
type SecretData interface {
	AuthType() AuthType
	// Fields returns the wire/storage representation, keyed exactly by the
	// field set the auth type requires.
	Fields() map[string]string

	validate() error
	mask() SecretData
	clone() SecretData
}

type APIKeySecret struct {
	Key string
}

func (s APIKeySecret) AuthType() AuthType { return AuthTypeAPIKey }

func (s APIKeySecret) Fields() map[string]string {
	return map[string]string{"api_key": s.Key}
}

func (s APIKeySecret) validate() error {
	if s.Key == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

// mask keeps a short prefix and suffix of keys long enough to stay
// unrecognizable; short keys are redacted entirely.
func (s APIKeySecret) mask() SecretData {
	if len(s.Key) > 12 {
		return APIKeySecret{Key: fmt.Sprintf("%s...%s", s.Key[:8], s.Key[len(s.Key)-4:])}
	}
	return APIKeySecret{Key: "***"}
}

func (s APIKeySecret) clone() SecretData { return s }

type UsernamePasswordSecret struct {
	Username string
	Password string
}

func (s UsernamePasswordSecret) AuthType() AuthType { return AuthTypeUsernamePassword }

func (s UsernamePasswordSecret) Fields() map[string]string {
	return map[string]string{"username": s.Username, "password": s.Password}
}

func (s UsernamePasswordSecret) validate() error {
	if s.Username == "" {
		return fmt.Errorf("username is required")
	}
	if s.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (s UsernamePasswordSecret) mask() SecretData {
	return UsernamePasswordSecret{Username: s.Username, Password: passwordMask}
}

func (s UsernamePasswordSecret) clone() SecretData { return s }

// ParseSecretData builds the variant matching authType from free-form
// fields, rejecting missing, empty, or unrecognized keys.
func ParseSecretData(authType AuthType, fields map[string]string) (SecretData, error) {
	switch authType {
	case AuthTypeAPIKey:
		if err := checkKeys(fields, "api_key"); err != nil {
			return nil, err
		}
		s := APIKeySecret{Key: fields["api_key"]}
		if err := s.validate(); err != nil {
			return nil, err
		}
		return s, nil
	case AuthTypeUsernamePassword:
		if err := checkKeys(fields, "username", "password"); err != nil {
			return nil, err
		}
		s := UsernamePasswordSecret{Username: fields["username"], Password: fields["password"]}
		if err := s.validate(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unrecognized auth_type %q", authType)
	}
}

func checkKeys(fields map[string]string, required ...string) error {
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return fmt.Errorf("missing required field %q", k)
		}
	}
	if len(fields) != len(required) {
		for k := range fields {
			if !contains(required, k) {
				return fmt.Errorf("unexpected field %q", k)
			}
		}
	}
	return nil
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalSecretData serializes secret material for storage as a JSON object
// keyed by the auth type's field set.
func MarshalSecretData(s SecretData) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("secret data is nil")
	}
	return json.Marshal(s.Fields())
}

// UnmarshalSecretData is the inverse of MarshalSecretData; the stored
// auth type selects the variant.
func UnmarshalSecretData(authType AuthType, raw []byte) (SecretData, error) {
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal secret data: %w", err)
	}
	return ParseSecretData(authType, fields)
}

func ParseAuthType(s string) (AuthType, error) {
	switch AuthType(strings.TrimSpace(s)) {
	case AuthTypeAPIKey:
		return AuthTypeAPIKey, nil
	case AuthTypeUsernamePassword:
		return AuthTypeUsernamePassword, nil
	default:
		return "", fmt.Errorf("unrecognized auth_type %q", s)
	}
}

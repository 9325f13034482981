package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CredentialID struct {
	value uuid.UUID
}

func NewCredentialID() CredentialID {
	return CredentialID{value: uuid.New()}
}

func CredentialIDFromString(s string) (CredentialID, error) {
	if s == "" {
		return CredentialID{}, fmt.Errorf("credential id cannot be empty")
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return CredentialID{}, fmt.Errorf("invalid credential id: %w", err)
	}
	return CredentialID{value: id}, nil
}

func (c CredentialID) String() string {
	return c.value.String()
}

func (c CredentialID) IsZero() bool {
	return c.value == uuid.Nil
}

// Credential is the core domain entity: one supplier/environment-scoped
// secret with its access metadata. Secret holds the canonical unmasked
// material unless Masked is set, in which case it is a display projection
// and must never be written back to storage.
type Credential struct {
	ID                CredentialID
	Supplier          string
	Environment       string
	Secret            SecretData
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AllowSelfRotation bool
	Masked            bool
}

func (c *Credential) AuthType() AuthType {
	if c.Secret == nil {
		return ""
	}
	return c.Secret.AuthType()
}

// Clone returns a deep copy. Store implementations hand out clones so a
// caller can never mutate persisted state through a returned pointer.
func (c *Credential) Clone() *Credential {
	cp := *c
	if c.Secret != nil {
		cp.Secret = c.Secret.clone()
	}
	return &cp
}

// Mask returns a copy with the secret material partially redacted.
// Masking an already-masked credential returns an identical copy; the
// projection is only ever computed from canonical data, never chained.
func (c *Credential) Mask() *Credential {
	cp := c.Clone()
	if c.Masked {
		return cp
	}
	cp.Secret = c.Secret.mask()
	cp.Masked = true
	return cp
}

func (c *Credential) Validate() error {
	if c.Supplier == "" {
		return fmt.Errorf("supplier is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Secret == nil {
		return fmt.Errorf("secret data is required")
	}
	return c.Secret.validate()
}

package service

import "github.com/nezasa/credstore/internal/domain"

// CreateRequest carries the fields for a new credential. SecretData is the
// free-form field map; its shape is checked against AuthType before
// anything touches the store.
type CreateRequest struct {
	Supplier          string            `json:"supplier" validate:"required"`
	Environment       string            `json:"environment" validate:"required"`
	AuthType          string            `json:"auth_type" validate:"required,oneof=api_key username_password"`
	SecretData        map[string]string `json:"secret_data" validate:"required"`
	AllowSelfRotation bool              `json:"allow_self_rotation"`
}

// ListRequest narrows a listing; empty fields match everything.
type ListRequest struct {
	Supplier    string `json:"supplier"`
	Environment string `json:"environment"`
}

// UpdateRequest applies a partial update: nil fields are left untouched.
// Changing AuthType without a matching SecretData (or vice versa) fails
// validation if the resulting pair is inconsistent.
type UpdateRequest struct {
	ID                domain.CredentialID `json:"-"`
	Supplier          *string             `json:"supplier"`
	Environment       *string             `json:"environment"`
	AuthType          *string             `json:"auth_type"`
	SecretData        map[string]string   `json:"secret_data"`
	AllowSelfRotation *bool               `json:"allow_self_rotation"`
}

// RotateResult returns the post-rotation credential (masked per the
// caller's role) alongside the freshly generated secret material, which is
// handed back unmasked: delivering the new secret is the point of the
// operation, and the policy check has already admitted the caller.
type RotateResult struct {
	Credential *domain.Credential
	NewSecret  domain.SecretData
}

// AuditQuery filters the audit log; zero values match everything and a
// non-positive limit falls back to the store default.
type AuditQuery struct {
	CredentialID *domain.CredentialID
	Action       domain.Action
	Actor        string
	Limit        int
}

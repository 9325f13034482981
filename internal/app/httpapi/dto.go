package httpapi

import (
	"time"

	"github.com/nezasa/credstore/internal/domain"
)

// CredentialResponse is the wire shape for a credential. SecretData is the
// flat field map of the variant, already masked when the caller's role does
// not see plaintext.
type CredentialResponse struct {
	ID                string            `json:"id"`
	Supplier          string            `json:"supplier"`
	Environment       string            `json:"environment"`
	AuthType          string            `json:"auth_type"`
	SecretData        map[string]string `json:"secret_data"`
	CreatedBy         string            `json:"created_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	AllowSelfRotation bool              `json:"allow_self_rotation"`
	Masked            bool              `json:"masked"`
}

type ListCredentialsResponse struct {
	Total       int                  `json:"total"`
	Credentials []CredentialResponse `json:"credentials"`
}

type RotateResponse struct {
	Message   string            `json:"message"`
	NewData   map[string]string `json:"new_data"`
	RotatedAt time.Time         `json:"rotated_at"`
}

type AuditEntryResponse struct {
	ID           int64     `json:"id"`
	CredentialID string    `json:"credential_id"`
	Action       string    `json:"action"`
	Actor        string    `json:"actor"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}

type AuditLogResponse struct {
	Total   int                  `json:"total"`
	Entries []AuditEntryResponse `json:"entries"`
}

func toCredentialResponse(cred *domain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:                cred.ID.String(),
		Supplier:          cred.Supplier,
		Environment:       cred.Environment,
		AuthType:          string(cred.AuthType()),
		SecretData:        cred.Secret.Fields(),
		CreatedBy:         cred.CreatedBy,
		CreatedAt:         cred.CreatedAt,
		UpdatedAt:         cred.UpdatedAt,
		AllowSelfRotation: cred.AllowSelfRotation,
		Masked:            cred.Masked,
	}
}

func toAuditEntryResponse(entry *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:           entry.ID,
		CredentialID: entry.CredentialID.String(),
		Action:       string(entry.Action),
		Actor:        entry.Actor,
		Details:      entry.Details,
		Timestamp:    entry.Timestamp,
	}
}

package domain

import "time"

// AuditEntry is one immutable record of an action taken against a
// credential. Entries are append-only; nothing in the system updates or
// deletes them. CredentialID is a weak reference: the credential may be
// deleted later and the entry survives.
type AuditEntry struct {
	ID           int64
	CredentialID CredentialID
	Action       Action
	Actor        string
	Details      string
	Timestamp    time.Time
}

// AuditRecord is the caller-supplied part of an audit entry; the store
// assigns the id and timestamp when it appends the entry inside the same
// transaction as the mutation it describes.
type AuditRecord struct {
	Action  Action
	Actor   string
	Details string
}

// AuditFilter narrows an audit query. Zero-valued fields match everything.
// Limit bounds the result; stores apply a default when it is not positive.
type AuditFilter struct {
	CredentialID *CredentialID
	Action       Action
	Actor        string
	Limit        int
}

const DefaultAuditLimit = 100

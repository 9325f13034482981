package domain

import "context"

// ListFilter narrows a credential listing. Empty fields match everything.
type ListFilter struct {
	Supplier    string
	Environment string
}

// Mutation is applied to a credential under its record lock. It receives
// the current persisted state and edits it in place; returning an error
// aborts the transaction with nothing written, audit entry included.
type Mutation func(*Credential) error

// Store is the transactional substrate behind the credential service. Every
// mutating method appends exactly one audit entry in the same transaction
// as the mutation: both persist or neither does. Mutate and Delete hold a
// per-record lock for the duration, so concurrent mutations of the same
// credential serialize instead of racing. Reads never observe a
// half-written record.
//
// Implementations bound every call with a timeout and surface
// apperrors.ErrTimeout rather than hang on a contested record.
type Store interface {
	// Create persists a new credential and the matching audit entry.
	// The store assigns CreatedAt/UpdatedAt.
	Create(ctx context.Context, cred *Credential, rec AuditRecord) (*Credential, error)

	// Get returns the credential or apperrors.ErrNotFound.
	Get(ctx context.Context, id CredentialID) (*Credential, error)

	// List returns credentials matching the filter in a stable order.
	List(ctx context.Context, filter ListFilter) ([]*Credential, error)

	// Mutate loads the credential under its record lock, applies mut,
	// refreshes UpdatedAt, persists the result and appends the audit
	// entry, all in one transaction.
	Mutate(ctx context.Context, id CredentialID, rec AuditRecord, mut Mutation) (*Credential, error)

	// Delete removes the credential, appending the audit entry in the same
	// transaction so the action is recorded before the row disappears.
	Delete(ctx context.Context, id CredentialID, rec AuditRecord) error

	// AppendAudit writes a standalone audit entry (explicit view records).
	AppendAudit(ctx context.Context, id CredentialID, rec AuditRecord) (*AuditEntry, error)

	// QueryAudit returns entries newest first, bounded by filter.Limit.
	QueryAudit(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)

	Close() error
}

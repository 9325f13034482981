package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
)

const opTimeout = 3 * time.Second

// PostgresStore implements domain.Store on pgx. Mutations run inside a
// serializable transaction with the credential row locked FOR UPDATE, and
// the audit row goes into the same transaction, so the mutation/audit pair
// commits or rolls back as one.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
	txm    *TransactionManager[*domain.Credential]
}

func NewPostgresStore(db *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
		txm:    NewTransactionManager[*domain.Credential](logger),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var (
		idStr     string
		authType  string
		secretRaw []byte
		cred      domain.Credential
	)
	err := row.Scan(&idStr, &cred.Supplier, &cred.Environment, &authType, &secretRaw,
		&cred.CreatedBy, &cred.CreatedAt, &cred.UpdatedAt, &cred.AllowSelfRotation)
	if err != nil {
		return nil, err
	}

	cred.ID, err = domain.CredentialIDFromString(idStr)
	if err != nil {
		return nil, err
	}
	cred.Secret, err = domain.UnmarshalSecretData(domain.AuthType(authType), secretRaw)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *PostgresStore) Create(ctx context.Context, cred *domain.Credential, rec domain.AuditRecord) (*domain.Credential, error) {
	cp := cred.Clone()
	if cp.ID.IsZero() {
		cp.ID = domain.NewCredentialID()
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now

	secretRaw, err := domain.MarshalSecretData(cp.Secret)
	if err != nil {
		return nil, apperrors.Validation("marshal secret data: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result, err := s.txm.ExecuteInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) (*domain.Credential, error) {
		if _, err := tx.Exec(ctx, stmtCreateCredential,
			cp.ID.String(), cp.Supplier, cp.Environment, string(cp.AuthType()), secretRaw,
			cp.CreatedBy, cp.CreatedAt, cp.UpdatedAt, cp.AllowSelfRotation); err != nil {
			return nil, fmt.Errorf("insert credential %s: %w", cp.ID, err)
		}
		if err := appendAuditTx(ctx, tx, cp.ID, rec, now); err != nil {
			return nil, err
		}
		return cp, nil
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return result, nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.db.QueryRow(ctx, stmtGetCredential, id.String())
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyStorageErr(fmt.Errorf("get credential %s: %w", id, err))
	}
	return cred, nil
}

func (s *PostgresStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, stmtListCredentials, filter.Supplier, filter.Environment)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("list credentials: %w", err))
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, classifyStorageErr(fmt.Errorf("scan credential row: %w", err))
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("iterate credential rows: %w", err))
	}
	return creds, nil
}

func (s *PostgresStore) Mutate(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord, mut domain.Mutation) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result, err := s.txm.ExecuteInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) (*domain.Credential, error) {
		row := tx.QueryRow(ctx, stmtGetCredentialForUpdate, id.String())
		cred, err := scanCredential(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("lock credential %s: %w", id, err)
		}

		if err := mut(cred); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		cred.UpdatedAt = now

		secretRaw, err := domain.MarshalSecretData(cred.Secret)
		if err != nil {
			return nil, apperrors.Validation("marshal secret data: %v", err)
		}
		if _, err := tx.Exec(ctx, stmtUpdateCredential,
			id.String(), cred.Supplier, cred.Environment, string(cred.AuthType()), secretRaw,
			cred.UpdatedAt, cred.AllowSelfRotation); err != nil {
			return nil, fmt.Errorf("update credential %s: %w", id, err)
		}
		if err := appendAuditTx(ctx, tx, id, rec, now); err != nil {
			return nil, err
		}
		return cred, nil
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.txm.ExecuteInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) (*domain.Credential, error) {
		row := tx.QueryRow(ctx, stmtGetCredentialForUpdate, id.String())
		cred, err := scanCredential(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("lock credential %s: %w", id, err)
		}

		// Audit first so the action is recorded in the same transaction
		// that removes the row.
		if err := appendAuditTx(ctx, tx, id, rec, time.Now().UTC()); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, stmtDeleteCredential, id.String()); err != nil {
			return nil, fmt.Errorf("delete credential %s: %w", id, err)
		}
		return cred, nil
	})
	if err != nil {
		return classifyStorageErr(err)
	}
	return nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) (*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	var entryID int64
	err := s.db.QueryRow(ctx, stmtAppendAudit,
		id.String(), string(rec.Action), rec.Actor, rec.Details, now).Scan(&entryID)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("append audit entry: %w", err))
	}

	return &domain.AuditEntry{
		ID:           entryID,
		CredentialID: id,
		Action:       rec.Action,
		Actor:        rec.Actor,
		Details:      rec.Details,
		Timestamp:    now,
	}, nil
}

func appendAuditTx(ctx context.Context, tx pgx.Tx, id domain.CredentialID, rec domain.AuditRecord, ts time.Time) error {
	var entryID int64
	if err := tx.QueryRow(ctx, stmtAppendAudit,
		id.String(), string(rec.Action), rec.Actor, rec.Details, ts).Scan(&entryID); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryAudit(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultAuditLimit
	}
	credID := ""
	if filter.CredentialID != nil {
		credID = filter.CredentialID.String()
	}

	rows, err := s.db.Query(ctx, stmtQueryAudit, credID, string(filter.Action), filter.Actor, limit)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("query audit log: %w", err))
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			entry domain.AuditEntry
			idStr string
			act   string
		)
		if err := rows.Scan(&entry.ID, &idStr, &act, &entry.Actor, &entry.Details, &entry.Timestamp); err != nil {
			return nil, classifyStorageErr(fmt.Errorf("scan audit row: %w", err))
		}
		entry.CredentialID, err = domain.CredentialIDFromString(idStr)
		if err != nil {
			return nil, classifyStorageErr(err)
		}
		entry.Action = domain.Action(act)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("iterate audit rows: %w", err))
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// classifyStorageErr translates backend failures into the stable error
// taxonomy. Domain errors already in the taxonomy pass through untouched.
func classifyStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrPermission):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
}

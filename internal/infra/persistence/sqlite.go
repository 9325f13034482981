package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
)

// SQLiteStore implements domain.Store on an embedded sqlite database. The
// writer handle is capped at one connection, so every mutating transaction
// serializes; readers get their own small pool and WAL keeps them off the
// writer's lock. Mutation and audit insert share one transaction.
type SQLiteStore struct {
	writer *sql.DB
	reader *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens the database at path with WAL mode, busy timeout and
// foreign keys enabled, and applies pending migrations.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.Ping(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	if err := migrateSQLite(writer); err != nil {
		reader.Close()
		writer.Close()
		return nil, err
	}

	return &SQLiteStore{writer: writer, reader: reader, logger: logger}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, cred *domain.Credential, rec domain.AuditRecord) (*domain.Credential, error) {
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

	err = s.inWriteTx(ctx, func(tx *sql.Tx) error {
		const q = `INSERT INTO credentials (id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q,
			cp.ID.String(), cp.Supplier, cp.Environment, string(cp.AuthType()), string(secretRaw),
			cp.CreatedBy, formatTime(cp.CreatedAt), formatTime(cp.UpdatedAt), cp.AllowSelfRotation); err != nil {
			return fmt.Errorf("insert credential %s: %w", cp.ID, err)
		}
		return s.appendAuditTx(ctx, tx, cp.ID, rec, now)
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return cp, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	const q = `SELECT id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation
	           FROM credentials WHERE id = ?`
	cred, err := scanSQLiteCredential(s.reader.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyStorageErr(fmt.Errorf("get credential %s: %w", id, err))
	}
	return cred, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	q := `SELECT id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation
	      FROM credentials WHERE 1=1`
	var args []any
	if filter.Supplier != "" {
		q += " AND supplier = ?"
		args = append(args, filter.Supplier)
	}
	if filter.Environment != "" {
		q += " AND environment = ?"
		args = append(args, filter.Environment)
	}
	q += " ORDER BY created_at, id"

	rows, err := s.reader.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifyStorageErr(fmt.Errorf("list credentials: %w", err))
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := scanSQLiteCredential(rows)
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

func (s *SQLiteStore) Mutate(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord, mut domain.Mutation) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var result *domain.Credential
	err := s.inWriteTx(ctx, func(tx *sql.Tx) error {
		const q = `SELECT id, supplier, environment, auth_type, secret_data, created_by, created_at, updated_at, allow_self_rotation
		           FROM credentials WHERE id = ?`
		cred, err := scanSQLiteCredential(tx.QueryRowContext(ctx, q, id.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load credential %s: %w", id, err)
		}

		if err := mut(cred); err != nil {
			return err
		}
		now := time.Now().UTC()
		cred.UpdatedAt = now

		secretRaw, err := domain.MarshalSecretData(cred.Secret)
		if err != nil {
			return apperrors.Validation("marshal secret data: %v", err)
		}
		const upd = `UPDATE credentials
		             SET supplier = ?, environment = ?, auth_type = ?, secret_data = ?, updated_at = ?, allow_self_rotation = ?
		             WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd,
			cred.Supplier, cred.Environment, string(cred.AuthType()), string(secretRaw),
			formatTime(now), cred.AllowSelfRotation, id.String()); err != nil {
			return fmt.Errorf("update credential %s: %w", id, err)
		}
		if err := s.appendAuditTx(ctx, tx, id, rec, now); err != nil {
			return err
		}
		result = cred
		return nil
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return result, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := s.inWriteTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM credentials WHERE id = ?`, id.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check credential %s: %w", id, err)
		}

		if err := s.appendAuditTx(ctx, tx, id, rec, time.Now().UTC()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("delete credential %s: %w", id, err)
		}
		return nil
	})
	return classifyStorageErr(err)
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) (*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	var entry *domain.AuditEntry
	err := s.inWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO audit_logs (credential_id, action, actor, details, timestamp) VALUES (?, ?, ?, ?, ?)`,
			id.String(), string(rec.Action), rec.Actor, rec.Details, formatTime(now))
		if err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		entryID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("audit entry id: %w", err)
		}
		entry = &domain.AuditEntry{
			ID:           entryID,
			CredentialID: id,
			Action:       rec.Action,
			Actor:        rec.Actor,
			Details:      rec.Details,
			Timestamp:    now,
		}
		return nil
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	return entry, nil
}

func (s *SQLiteStore) appendAuditTx(ctx context.Context, tx *sql.Tx, id domain.CredentialID, rec domain.AuditRecord, ts time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (credential_id, action, actor, details, timestamp) VALUES (?, ?, ?, ?, ?)`,
		id.String(), string(rec.Action), rec.Actor, rec.Details, formatTime(ts))
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QueryAudit(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultAuditLimit
	}

	q := `SELECT id, credential_id, action, actor, details, timestamp FROM audit_logs WHERE 1=1`
	var args []any
	if filter.CredentialID != nil {
		q += " AND credential_id = ?"
		args = append(args, filter.CredentialID.String())
	}
	if filter.Action != "" {
		q += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if filter.Actor != "" {
		q += " AND actor = ?"
		args = append(args, filter.Actor)
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.reader.QueryContext(ctx, q, args...)
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
			ts    string
		)
		if err := rows.Scan(&entry.ID, &idStr, &act, &entry.Actor, &entry.Details, &ts); err != nil {
			return nil, classifyStorageErr(fmt.Errorf("scan audit row: %w", err))
		}
		entry.CredentialID, err = domain.CredentialIDFromString(idStr)
		if err != nil {
			return nil, classifyStorageErr(err)
		}
		entry.Action = domain.Action(act)
		entry.Timestamp, err = parseTime(ts)
		if err != nil {
			return nil, classifyStorageErr(err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStorageErr(fmt.Errorf("iterate audit rows: %w", err))
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	var firstErr error
	if err := s.reader.Close(); err != nil {
		firstErr = err
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *SQLiteStore) inWriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanSQLiteCredential(row rowScanner) (*domain.Credential, error) {
	var (
		idStr     string
		authType  string
		secretRaw string
		createdAt string
		updatedAt string
		cred      domain.Credential
	)
	err := row.Scan(&idStr, &cred.Supplier, &cred.Environment, &authType, &secretRaw,
		&cred.CreatedBy, &createdAt, &updatedAt, &cred.AllowSelfRotation)
	if err != nil {
		return nil, err
	}

	cred.ID, err = domain.CredentialIDFromString(idStr)
	if err != nil {
		return nil, err
	}
	cred.Secret, err = domain.UnmarshalSecretData(domain.AuthType(authType), []byte(secretRaw))
	if err != nil {
		return nil, err
	}
	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &cred, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

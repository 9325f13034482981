package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
)

// MemoryStore is an in-process domain.Store for tests and single-node
// development. Mutations on the same credential serialize on a per-record
// mutex; the credential write and its audit entry are applied under one
// state lock so readers never observe one without the other.
type MemoryStore struct {
	mu       sync.RWMutex
	creds    map[string]*domain.Credential
	audit    []*domain.AuditEntry
	auditSeq int64

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]*domain.Credential),
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (s *MemoryStore) recordLock(id domain.CredentialID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id.String()]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id.String()] = l
	}
	return l
}

func (s *MemoryStore) Create(ctx context.Context, cred *domain.Credential, rec domain.AuditRecord) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cp := cred.Clone()
	if cp.ID.IsZero() {
		cp.ID = domain.NewCredentialID()
	}
	now := s.now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cp.ID.String()] = cp
	s.appendAuditLocked(cp.ID, rec)

	return cp.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id domain.CredentialID) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[id.String()]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cred.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		if filter.Supplier != "" && cred.Supplier != filter.Supplier {
			continue
		}
		if filter.Environment != "" && cred.Environment != filter.Environment {
			continue
		}
		out = append(out, cred.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord, mut domain.Mutation) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.recordLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	current, ok := s.creds[id.String()]
	var work *domain.Credential
	if ok {
		work = current.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrNotFound
	}

	if err := mut(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[id.String()] = work
	s.appendAuditLocked(id, rec)

	return work.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.recordLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[id.String()]; !ok {
		return apperrors.ErrNotFound
	}
	s.appendAuditLocked(id, rec)
	delete(s.creds, id.String())
	return nil
}

func (s *MemoryStore) AppendAudit(ctx context.Context, id domain.CredentialID, rec domain.AuditRecord) (*domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAuditLocked(id, rec), nil
}

func (s *MemoryStore) appendAuditLocked(id domain.CredentialID, rec domain.AuditRecord) *domain.AuditEntry {
	s.auditSeq++
	entry := &domain.AuditEntry{
		ID:           s.auditSeq,
		CredentialID: id,
		Action:       rec.Action,
		Actor:        rec.Actor,
		Details:      rec.Details,
		Timestamp:    s.now().UTC(),
	}
	s.audit = append(s.audit, entry)
	return entry
}

func (s *MemoryStore) QueryAudit(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultAuditLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.AuditEntry, 0, limit)
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.audit[i]
		if filter.CredentialID != nil && entry.CredentialID != *filter.CredentialID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

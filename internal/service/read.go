package service

import (
	"context"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
	"github.com/nezasa/credstore/internal/metrics"
)

func (s *credentialService) Get(ctx context.Context, p domain.Principal, id domain.CredentialID) (*domain.Credential, error) {
	decision := s.authorizer.Decide(p.Role, domain.ActionView, nil)
	if !decision.Allowed {
		recordDenial(p, domain.ActionView)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionView))
	}

	cred, err := s.store.Get(ctx, id)
	recordOutcome(domain.ActionView, err)
	if err != nil {
		return nil, err
	}
	return s.maskFor(p, cred), nil
}

func (s *credentialService) List(ctx context.Context, p domain.Principal, req ListRequest) ([]*domain.Credential, error) {
	decision := s.authorizer.Decide(p.Role, domain.ActionView, nil)
	if !decision.Allowed {
		recordDenial(p, domain.ActionView)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionView))
	}

	creds, err := s.store.List(ctx, domain.ListFilter{
		Supplier:    req.Supplier,
		Environment: req.Environment,
	})
	recordOutcome(domain.ActionView, err)
	if err != nil {
		return nil, err
	}

	unmasked := s.authorizer.Decide(p.Role, domain.ActionViewUnmasked, nil).Allowed
	if unmasked {
		return creds, nil
	}
	masked := make([]*domain.Credential, len(creds))
	for i, cred := range creds {
		masked[i] = cred.Mask()
	}
	return masked, nil
}

func (s *credentialService) AuditLog(ctx context.Context, p domain.Principal, q AuditQuery) ([]*domain.AuditEntry, error) {
	decision := s.authorizer.Decide(p.Role, domain.ActionViewAudit, nil)
	if !decision.Allowed {
		recordDenial(p, domain.ActionViewAudit)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionViewAudit))
	}

	if err := s.validator.ValidateAuditQuery(&q); err != nil {
		return nil, err
	}

	entries, err := s.store.QueryAudit(ctx, domain.AuditFilter{
		CredentialID: q.CredentialID,
		Action:       q.Action,
		Actor:        q.Actor,
		Limit:        q.Limit,
	})
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(string(domain.ActionViewAudit), metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.OperationsTotal.WithLabelValues(string(domain.ActionViewAudit), metrics.OutcomeSuccess).Inc()
	return entries, nil
}

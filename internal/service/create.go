package service

import (
	"context"
	"fmt"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
)

func (s *credentialService) Create(ctx context.Context, p domain.Principal, req CreateRequest) (*domain.Credential, error) {
	decision := s.authorizer.Decide(p.Role, domain.ActionCreate, nil)
	if !decision.Allowed {
		recordDenial(p, domain.ActionCreate)
		s.auditLog.Denied(ctx, p, domain.ActionCreate, "", decision.ID)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionCreate))
	}

	if err := s.validator.ValidateCreateRequest(&req); err != nil {
		return nil, err
	}
	authType, err := domain.ParseAuthType(req.AuthType)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	secret, err := domain.ParseSecretData(authType, req.SecretData)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	cred := &domain.Credential{
		Supplier:          req.Supplier,
		Environment:       req.Environment,
		Secret:            secret,
		CreatedBy:         p.Actor,
		AllowSelfRotation: req.AllowSelfRotation,
	}
	if err := cred.Validate(); err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	rec := domain.AuditRecord{
		Action:  domain.ActionCreate,
		Actor:   p.Actor,
		Details: fmt.Sprintf("Created credential for %s (%s)", req.Supplier, req.Environment),
	}

	// Once admitted, the mutation runs to completion even if the caller
	// disconnects; a persisted credential without its audit entry, or the
	// reverse, must not exist.
	created, err := s.store.Create(context.WithoutCancel(ctx), cred, rec)
	recordOutcome(domain.ActionCreate, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "create failed", "supplier", req.Supplier, "error", err)
		return nil, err
	}

	s.auditLog.Logged(ctx, p, domain.ActionCreate, created.ID.String(), decision.ID, rec.Details)
	return s.maskFor(p, created), nil
}

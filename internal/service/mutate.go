package service

import (
	"context"
	"fmt"

	"github.com/nezasa/credstore/internal/domain"
	apperrors "github.com/nezasa/credstore/internal/errors"
)

func (s *credentialService) Update(ctx context.Context, p domain.Principal, req UpdateRequest) (*domain.Credential, error) {
	if !s.authorizer.CanEver(p.Role, domain.ActionUpdate) {
		recordDenial(p, domain.ActionUpdate)
		s.auditLog.Denied(ctx, p, domain.ActionUpdate, req.ID.String(), "")
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionUpdate))
	}

	if err := s.validator.ValidateUpdateRequest(&req); err != nil {
		return nil, err
	}

	snapshot, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	decision := s.authorizer.Decide(p.Role, domain.ActionUpdate, snapshot)
	if !decision.Allowed {
		recordDenial(p, domain.ActionUpdate)
		s.auditLog.Denied(ctx, p, domain.ActionUpdate, req.ID.String(), decision.ID)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionUpdate))
	}

	rec := domain.AuditRecord{
		Action:  domain.ActionUpdate,
		Actor:   p.Actor,
		Details: fmt.Sprintf("Updated credential %s", req.ID),
	}

	updated, err := s.store.Mutate(context.WithoutCancel(ctx), req.ID, rec, func(cred *domain.Credential) error {
		if req.Supplier != nil {
			cred.Supplier = *req.Supplier
		}
		if req.Environment != nil {
			cred.Environment = *req.Environment
		}
		if req.AllowSelfRotation != nil {
			cred.AllowSelfRotation = *req.AllowSelfRotation
		}

		if req.AuthType != nil || req.SecretData != nil {
			authType := cred.AuthType()
			if req.AuthType != nil {
				parsed, err := domain.ParseAuthType(*req.AuthType)
				if err != nil {
					return apperrors.Validation("%v", err)
				}
				authType = parsed
			}
			fields := req.SecretData
			if fields == nil {
				fields = cred.Secret.Fields()
			}
			secret, err := domain.ParseSecretData(authType, fields)
			if err != nil {
				return apperrors.Validation("%v", err)
			}
			cred.Secret = secret
		}
		return cred.Validate()
	})
	recordOutcome(domain.ActionUpdate, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "update failed", "credential_id", req.ID.String(), "error", err)
		return nil, err
	}

	s.auditLog.Logged(ctx, p, domain.ActionUpdate, req.ID.String(), decision.ID, rec.Details)
	return s.maskFor(p, updated), nil
}

func (s *credentialService) Rotate(ctx context.Context, p domain.Principal, id domain.CredentialID) (*RotateResult, error) {
	if !s.authorizer.CanEver(p.Role, domain.ActionRotate) {
		recordDenial(p, domain.ActionRotate)
		s.auditLog.Denied(ctx, p, domain.ActionRotate, id.String(), "")
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionRotate))
	}

	snapshot, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	decision := s.authorizer.Decide(p.Role, domain.ActionRotate, snapshot)
	if !decision.Allowed {
		recordDenial(p, domain.ActionRotate)
		s.auditLog.Denied(ctx, p, domain.ActionRotate, id.String(), decision.ID)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionRotate))
	}

	// New material is generated before the record lock is taken; the
	// entropy read must not extend the critical section.
	newSecret, err := s.generator.Rotate(snapshot.Secret)
	if err != nil {
		recordOutcome(domain.ActionRotate, err)
		return nil, fmt.Errorf("%w: generate rotation secret: %v", apperrors.ErrStorage, err)
	}

	rec := domain.AuditRecord{
		Action:  domain.ActionRotate,
		Actor:   p.Actor,
		Details: fmt.Sprintf("Rotated credential %s", id),
	}

	var applied domain.SecretData
	rotated, err := s.store.Mutate(context.WithoutCancel(ctx), id, rec, func(cred *domain.Credential) error {
		if cred.AuthType() != snapshot.AuthType() {
			return fmt.Errorf("%w: auth type changed during rotation", apperrors.ErrConflict)
		}
		// The conditional grant is re-checked under the record lock in
		// case the flag was flipped after the snapshot was taken.
		if p.Role == domain.RolePartner && !cred.AllowSelfRotation {
			return apperrors.NewPermissionError(string(p.Role), string(domain.ActionRotate))
		}

		if up, ok := newSecret.(domain.UsernamePasswordSecret); ok {
			if cur, ok := cred.Secret.(domain.UsernamePasswordSecret); ok && cur.Username != "" {
				up.Username = cur.Username
			}
			newSecret = up
		}
		cred.Secret = newSecret
		applied = newSecret
		return nil
	})
	recordOutcome(domain.ActionRotate, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "rotate failed", "credential_id", id.String(), "error", err)
		return nil, err
	}

	s.auditLog.Logged(ctx, p, domain.ActionRotate, id.String(), decision.ID, rec.Details)
	return &RotateResult{
		Credential: s.maskFor(p, rotated),
		NewSecret:  applied,
	}, nil
}

func (s *credentialService) Delete(ctx context.Context, p domain.Principal, id domain.CredentialID) error {
	if !s.authorizer.CanEver(p.Role, domain.ActionDelete) {
		recordDenial(p, domain.ActionDelete)
		s.auditLog.Denied(ctx, p, domain.ActionDelete, id.String(), "")
		return apperrors.NewPermissionError(string(p.Role), string(domain.ActionDelete))
	}

	snapshot, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	decision := s.authorizer.Decide(p.Role, domain.ActionDelete, snapshot)
	if !decision.Allowed {
		recordDenial(p, domain.ActionDelete)
		s.auditLog.Denied(ctx, p, domain.ActionDelete, id.String(), decision.ID)
		return apperrors.NewPermissionError(string(p.Role), string(domain.ActionDelete))
	}

	rec := domain.AuditRecord{
		Action:  domain.ActionDelete,
		Actor:   p.Actor,
		Details: fmt.Sprintf("Deleted credential %s (%s)", id, snapshot.Supplier),
	}

	err = s.store.Delete(context.WithoutCancel(ctx), id, rec)
	recordOutcome(domain.ActionDelete, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "delete failed", "credential_id", id.String(), "error", err)
		return err
	}

	s.auditLog.Logged(ctx, p, domain.ActionDelete, id.String(), decision.ID, rec.Details)
	return nil
}

func (s *credentialService) RecordView(ctx context.Context, p domain.Principal, id domain.CredentialID) (*domain.AuditEntry, error) {
	decision := s.authorizer.Decide(p.Role, domain.ActionViewUnmasked, nil)
	if !decision.Allowed {
		recordDenial(p, domain.ActionView)
		return nil, apperrors.NewPermissionError(string(p.Role), string(domain.ActionViewUnmasked))
	}

	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	rec := domain.AuditRecord{
		Action:  domain.ActionView,
		Actor:   p.Actor,
		Details: fmt.Sprintf("Viewed credential %s unmasked", id),
	}
	entry, err := s.store.AppendAudit(context.WithoutCancel(ctx), id, rec)
	recordOutcome(domain.ActionView, err)
	if err != nil {
		return nil, err
	}
	s.auditLog.Logged(ctx, p, domain.ActionView, id.String(), decision.ID, rec.Details)
	return entry, nil
}

package service

import (
	"context"
	"log/slog"

	"github.com/nezasa/credstore/internal/authz"
	"github.com/nezasa/credstore/internal/domain"
	"github.com/nezasa/credstore/internal/infra/audit"
	"github.com/nezasa/credstore/internal/metrics"
	"github.com/nezasa/credstore/internal/secrets"
)

// Service is the credential service's public contract. Callers present an
// already-authenticated principal; the service runs the policy check,
// performs the store mutation and audit append as one atomic unit, and
// masks every credential-shaped response for roles without the
// view_unmasked capability.
type Service interface {
	Create(ctx context.Context, p domain.Principal, req CreateRequest) (*domain.Credential, error)
	Get(ctx context.Context, p domain.Principal, id domain.CredentialID) (*domain.Credential, error)
	List(ctx context.Context, p domain.Principal, req ListRequest) ([]*domain.Credential, error)
	Update(ctx context.Context, p domain.Principal, req UpdateRequest) (*domain.Credential, error)
	Rotate(ctx context.Context, p domain.Principal, id domain.CredentialID) (*RotateResult, error)
	Delete(ctx context.Context, p domain.Principal, id domain.CredentialID) error

	// RecordView appends an explicit "view" audit entry. It is opt-in:
	// plain reads never audit; the presentation layer calls this when a
	// caller reveals unmasked secret material.
	RecordView(ctx context.Context, p domain.Principal, id domain.CredentialID) (*domain.AuditEntry, error)

	AuditLog(ctx context.Context, p domain.Principal, q AuditQuery) ([]*domain.AuditEntry, error)
}

// RequestValidator is implemented by internal/validation; injected here to
// keep the dependency direction one-way.
type RequestValidator interface {
	ValidateCreateRequest(*CreateRequest) error
	ValidateUpdateRequest(*UpdateRequest) error
	ValidateAuditQuery(*AuditQuery) error
}

type credentialService struct {
	store      domain.Store
	authorizer authz.Authorizer
	generator  *secrets.Generator
	validator  RequestValidator
	auditLog   *audit.Logger
	logger     *slog.Logger
}

func New(
	store domain.Store,
	authorizer authz.Authorizer,
	generator *secrets.Generator,
	validator RequestValidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) Service {
	return &credentialService{
		store:      store,
		authorizer: authorizer,
		generator:  generator,
		validator:  validator,
		auditLog:   auditLog,
		logger:     logger,
	}
}

// maskFor applies the masking policy for the principal's role.
func (s *credentialService) maskFor(p domain.Principal, cred *domain.Credential) *domain.Credential {
	if s.authorizer.Decide(p.Role, domain.ActionViewUnmasked, nil).Allowed {
		return cred
	}
	return cred.Mask()
}

func recordDenial(p domain.Principal, action domain.Action) {
	metrics.PolicyDenialsTotal.WithLabelValues(string(p.Role), string(action)).Inc()
	metrics.OperationsTotal.WithLabelValues(string(action), metrics.OutcomeDenied).Inc()
}

func recordOutcome(action domain.Action, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.OperationsTotal.WithLabelValues(string(action), outcome).Inc()
}

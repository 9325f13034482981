package authz

import (
	"github.com/google/uuid"

	"github.com/nezasa/credstore/internal/domain"
)

// Decision is the outcome of one policy evaluation. ID correlates the
// decision with the audit entry written for the action it admitted.
type Decision struct {
	Allowed bool
	ID      string
}

// Authorizer is the pure RBAC decision function: no storage, no audit, no
// side effects. Snapshot carries the current credential state for the
// conditional rules that need it and may be nil for non-record actions.
type Authorizer interface {
	Decide(role domain.Role, action domain.Action, snapshot *domain.Credential) Decision

	// CanEver reports whether the role could perform the action on any
	// credential whatsoever. The service denies before touching the store
	// when this is false, so the error shape never reveals whether the
	// target record exists.
	CanEver(role domain.Role, action domain.Action) bool
}

// capabilities fixes each role's unconditional capability set. Partner
// rotation is the one conditional rule and is handled in Decide; every
// role may view (masked) records. Unknown roles get no capabilities at
// all: fail closed.
var capabilities = map[domain.Role]map[domain.Action]bool{
	domain.RoleAdmin: {
		domain.ActionCreate:       true,
		domain.ActionView:         true,
		domain.ActionUpdate:       true,
		domain.ActionRotate:       true,
		domain.ActionDelete:       true,
		domain.ActionViewUnmasked: true,
		domain.ActionViewAudit:    true,
	},
	domain.RoleDevOps: {
		domain.ActionView:         true,
		domain.ActionUpdate:       true,
		domain.ActionViewUnmasked: true,
		domain.ActionViewAudit:    true,
	},
	domain.RoleCS: {
		domain.ActionView: true,
	},
	domain.RolePartner: {
		domain.ActionView: true,
	},
}

type rbacAuthorizer struct{}

func New() Authorizer {
	return &rbacAuthorizer{}
}

func (a *rbacAuthorizer) Decide(role domain.Role, action domain.Action, snapshot *domain.Credential) Decision {
	if capabilities[role][action] {
		return allowed()
	}

	// Partner may rotate a credential that explicitly opted in to
	// self-rotation; without a snapshot there is nothing to grant.
	if role == domain.RolePartner && action == domain.ActionRotate {
		if snapshot != nil && snapshot.AllowSelfRotation {
			return allowed()
		}
	}

	return denied()
}

func (a *rbacAuthorizer) CanEver(role domain.Role, action domain.Action) bool {
	if capabilities[role][action] {
		return true
	}
	return role == domain.RolePartner && action == domain.ActionRotate
}

func allowed() Decision {
	return Decision{Allowed: true, ID: uuid.New().String()}
}

func denied() Decision {
	return Decision{Allowed: false, ID: uuid.New().String()}
}

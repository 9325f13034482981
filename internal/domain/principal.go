package domain

// Role is the caller's pre-resolved authorization role. Resolution from raw
// API keys happens outside the core; anything not in this set fails closed.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDevOps  Role = "devops"
	RoleCS      Role = "cs"
	RolePartner Role = "partner"
)

// Principal is the authenticated role+identity pair supplied with every
// request. The core trusts it; it never sees raw API keys or headers.
type Principal struct {
	Role  Role
	Actor string
}

// Action names one operation a principal can attempt against a credential.
type Action string

const (
	ActionCreate       Action = "create"
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionRotate       Action = "rotate"
	ActionDelete       Action = "delete"
	ActionViewUnmasked Action = "view_unmasked"
	ActionViewAudit    Action = "view_audit"
)

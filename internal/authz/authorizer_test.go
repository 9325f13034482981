package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nezasa/credstore/internal/authz"
	"github.com/nezasa/credstore/internal/domain"
)

func snapshot(allowSelfRotation bool) *domain.Credential {
	return &domain.Credential{
		ID:                domain.NewCredentialID(),
		Supplier:          "Sabre",
		Environment:       "production",
		Secret:            domain.APIKeySecret{Key: "sk_live_abc123456789"},
		AllowSelfRotation: allowSelfRotation,
	}
}

// TestDecideTruthTable checks every role/action pair against the fixed
// capability table, including both branches of the partner rotation rule.
func TestDecideTruthTable(t *testing.T) {
	a := authz.New()

	cases := []struct {
		role     domain.Role
		action   domain.Action
		snapshot *domain.Credential
		want     bool
	}{
		{domain.RoleAdmin, domain.ActionCreate, nil, true},
		{domain.RoleAdmin, domain.ActionView, nil, true},
		{domain.RoleAdmin, domain.ActionUpdate, snapshot(false), true},
		{domain.RoleAdmin, domain.ActionRotate, snapshot(false), true},
		{domain.RoleAdmin, domain.ActionDelete, snapshot(false), true},
		{domain.RoleAdmin, domain.ActionViewUnmasked, nil, true},
		{domain.RoleAdmin, domain.ActionViewAudit, nil, true},

		{domain.RoleDevOps, domain.ActionCreate, nil, false},
		{domain.RoleDevOps, domain.ActionView, nil, true},
		{domain.RoleDevOps, domain.ActionUpdate, snapshot(false), true},
		{domain.RoleDevOps, domain.ActionRotate, snapshot(true), false},
		{domain.RoleDevOps, domain.ActionDelete, snapshot(false), false},
		{domain.RoleDevOps, domain.ActionViewUnmasked, nil, true},
		{domain.RoleDevOps, domain.ActionViewAudit, nil, true},

		{domain.RoleCS, domain.ActionCreate, nil, false},
		{domain.RoleCS, domain.ActionView, nil, true},
		{domain.RoleCS, domain.ActionUpdate, snapshot(false), false},
		{domain.RoleCS, domain.ActionRotate, snapshot(true), false},
		{domain.RoleCS, domain.ActionDelete, snapshot(false), false},
		{domain.RoleCS, domain.ActionViewUnmasked, nil, false},
		{domain.RoleCS, domain.ActionViewAudit, nil, false},

		{domain.RolePartner, domain.ActionCreate, nil, false},
		{domain.RolePartner, domain.ActionView, nil, true},
		{domain.RolePartner, domain.ActionUpdate, snapshot(true), false},
		{domain.RolePartner, domain.ActionRotate, snapshot(true), true},
		{domain.RolePartner, domain.ActionRotate, snapshot(false), false},
		{domain.RolePartner, domain.ActionRotate, nil, false},
		{domain.RolePartner, domain.ActionDelete, snapshot(true), false},
		{domain.RolePartner, domain.ActionViewUnmasked, nil, false},
		{domain.RolePartner, domain.ActionViewAudit, nil, false},
	}

	for _, tc := range cases {
		d := a.Decide(tc.role, tc.action, tc.snapshot)
		assert.Equal(t, tc.want, d.Allowed, "role=%s action=%s", tc.role, tc.action)
		assert.NotEmpty(t, d.ID)
	}
}

// TestDecideUnknownRole verifies an unrecognized role is denied everything.
func TestDecideUnknownRole(t *testing.T) {
	a := authz.New()

	actions := []domain.Action{
		domain.ActionCreate, domain.ActionView, domain.ActionUpdate,
		domain.ActionRotate, domain.ActionDelete,
		domain.ActionViewUnmasked, domain.ActionViewAudit,
	}
	for _, action := range actions {
		d := a.Decide(domain.Role("intruder"), action, snapshot(true))
		assert.False(t, d.Allowed, "action=%s", action)
	}
}

func TestCanEver(t *testing.T) {
	a := authz.New()

	assert.True(t, a.CanEver(domain.RoleAdmin, domain.ActionDelete))
	assert.True(t, a.CanEver(domain.RoleDevOps, domain.ActionUpdate))
	assert.True(t, a.CanEver(domain.RolePartner, domain.ActionRotate), "conditional access still counts")
	assert.False(t, a.CanEver(domain.RolePartner, domain.ActionUpdate))
	assert.False(t, a.CanEver(domain.RoleCS, domain.ActionCreate))
	assert.False(t, a.CanEver(domain.Role("intruder"), domain.ActionView))
}

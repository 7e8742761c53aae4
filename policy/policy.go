// Package policy is the single place where a user's role is decided.
//
// SECURITY: the admin role is granted by an exact match against one configured email address
// or by a role persisted on the profile document. Nothing stronger backs it: whoever controls
// that mailbox's credentials, or can write the users collection, is an admin.
package policy

import (
	"strings"

	"go-storefront/models"
)

type Policy struct {
	adminEmail string
}

func New(adminEmail string) *Policy {
	return &Policy{adminEmail: strings.TrimSpace(adminEmail)}
}

// IsAdminEmail reports an exact, case-sensitive match with the configured admin address.
func (p *Policy) IsAdminEmail(email string) bool {
	return p.adminEmail != "" && email == p.adminEmail
}

// RoleFor resolves the effective role from the session email and the persisted profile role.
func (p *Policy) RoleFor(email string, persisted models.Role) models.Role {
	if p.IsAdminEmail(email) || persisted == models.RoleAdmin {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}

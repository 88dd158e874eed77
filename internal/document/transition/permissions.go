package transition

import (
	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

// targetsByRole lists the statuses each role may move documents into.
// ADMIN is unrestricted and CASHIER may not move documents at all.
var targetsByRole = map[id.Role][]models.Status{
	id.RoleDrafter:   {models.StatusInProgress, models.StatusReady, models.StatusDelivered, models.StatusReceived},
	id.RoleArchive:   {models.StatusInProgress, models.StatusReady, models.StatusDelivered, models.StatusReceived},
	id.RoleReception: {models.StatusReady, models.StatusDelivered, models.StatusInProgress},
}

// CanRoleTarget reports whether role may move documents into status to.
func CanRoleTarget(role id.Role, to models.Status) bool {
	if role == id.RoleAdmin {
		return true
	}
	for _, s := range targetsByRole[role] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiresOwnership reports whether actors of role may only move documents
// assigned to themselves (or unassigned ones).
func RequiresOwnership(role id.Role) bool {
	return role == id.RoleDrafter
}

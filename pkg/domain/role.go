package domain

import (
	"strings"

	dErrors "notaria/pkg/domain-errors"
)

// Role is an office role. Roles decide which target statuses an actor may
// move documents into and whether ownership is checked.
type Role string

const (
	RoleCashier   Role = "CASHIER"
	RoleDrafter   Role = "DRAFTER"
	RoleReception Role = "RECEPTION"
	RoleArchive   Role = "ARCHIVE"
	RoleAdmin     Role = "ADMIN"
)

var roleAliases = map[string]Role{
	"CAJA":       RoleCashier,
	"MATRIZADOR": RoleDrafter,
	"RECEPCION":  RoleReception,
	"ARCHIVO":    RoleArchive,
}

// ParseRole accepts the canonical names and the office's Spanish aliases.
func ParseRole(s string) (Role, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch r := Role(v); r {
	case RoleCashier, RoleDrafter, RoleReception, RoleArchive, RoleAdmin:
		return r, nil
	}
	if r, ok := roleAliases[v]; ok {
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
}

func (r Role) String() string { return string(r) }

// Actor is the authenticated caller performing an operation.
type Actor struct {
	ID   ActorID
	Role Role
	Name string
}

package auth

import "strings"

// Role is one of the fixed marketplace roles carried in session tokens.
type Role string

const (
	RoleBuyer        Role = "BUYER"
	RoleManufacturer Role = "MANUFACTURER"
	RoleStaff        Role = "STAFF"
	RoleModerator    Role = "MODERATOR"
	RoleSuperadmin   Role = "SUPERADMIN"
)

// AdminRoles lists the admin-tier roles.
var AdminRoles = []Role{RoleStaff, RoleModerator, RoleSuperadmin}

// ParseRole normalizes raw and reports whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleManufacturer, RoleStaff, RoleModerator, RoleSuperadmin:
		return true
	}
	return false
}

// IsAdmin reports whether r is an admin-tier role.
func (r Role) IsAdmin() bool {
	return r == RoleStaff || r == RoleModerator || r == RoleSuperadmin
}

func (r Role) String() string { return string(r) }

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

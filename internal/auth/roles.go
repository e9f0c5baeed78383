package auth

import "strings"

// Role is an admin API permission level. Each role includes the ones before it
// in roleLadder.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleLadder = []Role{RoleViewer, RoleOperator, RoleAdmin}

// NormalizeRole parses a role claim, ignoring case and surrounding spaces.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.level() > 0
}

// Allows reports whether r grants at least the permissions of required.
// An unknown role allows nothing.
func (r Role) Allows(required Role) bool {
	level := r.level()
	return level > 0 && level >= required.level()
}

// level is the 1-based position of r in roleLadder, or 0 when unknown.
func (r Role) level() int {
	for i, candidate := range roleLadder {
		if candidate == r {
			return i + 1
		}
	}
	return 0
}

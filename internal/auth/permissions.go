package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermDashboardRead Permission = "dashboard:read"
	PermConfigWrite   Permission = "config:write"
	PermUserManage    Permission = "user:manage"
	PermAuditRead     Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermDashboardRead,
	},
	RoleAdmin: {
		PermDashboardRead,
		PermConfigWrite,
		PermUserManage,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

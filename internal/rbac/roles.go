package rbac

// Role names. Keep these stable; they are part of token contracts.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
	// RoleViewer can read history and analytics but not mutate sequences.
	RoleViewer = "viewer"
	// RoleAdmin is platform staff. It bypasses role checks and quota.
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsKnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleMember, RoleViewer, RoleAdmin:
		return true
	default:
		return false
	}
}

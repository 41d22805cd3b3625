package auth

import "strings"

type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleTeamManager Role = "TeamManager"
	RoleViewer      Role = "Viewer"
)

// NormalizeRole maps any casing of a known role to its canonical form.
// Unknown values fall back to Viewer.
func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return RoleAdmin
	case "teammanager", "team_manager", "team-manager":
		return RoleTeamManager
	default:
		return RoleViewer
	}
}

// ValidRole reports whether role names one of the three roles exactly.
func ValidRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleTeamManager, RoleViewer:
		return true
	}
	return false
}

func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}

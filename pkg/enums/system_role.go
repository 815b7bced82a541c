package enums

import "fmt"

// SystemRole represents a station-level permissions role.
type SystemRole string

const (
	SystemRoleAdmin      SystemRole = "admin"
	SystemRoleSupervisor SystemRole = "supervisor"
	SystemRoleOfficer    SystemRole = "officer"
)

var validSystemRoles = []SystemRole{
	SystemRoleAdmin,
	SystemRoleSupervisor,
	SystemRoleOfficer,
}

// String implements fmt.Stringer.
func (s SystemRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SystemRole.
func (s SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// AtLeast reports whether the role grants the capabilities of other.
// Admins cover supervisors, supervisors cover officers.
func (s SystemRole) AtLeast(other SystemRole) bool {
	return roleRank(s) >= roleRank(other)
}

func roleRank(role SystemRole) int {
	switch role {
	case SystemRoleAdmin:
		return 3
	case SystemRoleSupervisor:
		return 2
	case SystemRoleOfficer:
		return 1
	default:
		return 0
	}
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}

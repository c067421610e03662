package enums

import "fmt"

// UserRole is the single role carried by every user and bearer token.
type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleManager    UserRole = "MANAGER"
	UserRoleSales      UserRole = "SALES"
	UserRoleVP         UserRole = "VP"
	UserRoleVPP        UserRole = "VPP"
	UserRoleProduction UserRole = "PRODUCTION"
	UserRoleViewer     UserRole = "VIEWER"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRoleSales,
	UserRoleVP,
	UserRoleVPP,
	UserRoleProduction,
	UserRoleViewer,
}

// IsValid reports whether the role is known.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

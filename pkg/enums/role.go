package enums

import "fmt"

// StaffRole is the role carried in an access token.
type StaffRole string

const (
	StaffRoleAdmin StaffRole = "admin"
	StaffRoleStaff StaffRole = "staff"
)

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	return r == StaffRoleAdmin || r == StaffRoleStaff
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	role := StaffRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid staff role %q", value)
	}
	return role, nil
}

package enums

import "fmt"

// StaffRole is the role a staff member holds within a tenant.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "ADMIN"
	StaffRoleManager StaffRole = "MANAGER"
	StaffRoleCashier StaffRole = "CASHIER"
	StaffRoleWaiter  StaffRole = "WAITER"
	StaffRoleKitchen StaffRole = "KITCHEN"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleManager,
	StaffRoleCashier,
	StaffRoleWaiter,
	StaffRoleKitchen,
}

func (r StaffRole) String() string {
	return string(r)
}

func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}

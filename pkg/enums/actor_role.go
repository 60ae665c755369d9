package enums

import "fmt"

// ActorRole identifies who is invoking an order or settlement operation.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleRunner   ActorRole = "runner"
	RoleTailor   ActorRole = "tailor"
	RoleStaff    ActorRole = "staff"
	RoleAdmin    ActorRole = "admin"
	// RoleSystem is used for engine-initiated mutations such as expiring an
	// unpaid checkout session.
	RoleSystem ActorRole = "system"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleRunner,
	RoleTailor,
	RoleStaff,
	RoleAdmin,
	RoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsOperator reports whether the role can drive any pipeline edge.
func (r ActorRole) IsOperator() bool {
	return r == RoleStaff || r == RoleAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

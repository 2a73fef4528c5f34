package domain

import dErrors "kindred/pkg/domain-errors"

// Role is the side of a guardian-child link a user occupies.
type Role string

const (
	RoleChild    Role = "child"
	RoleGuardian Role = "guardian"
)

var validRoles = map[Role]bool{
	RoleChild:    true,
	RoleGuardian: true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be 'child' or 'guardian'")
	}
	return r, nil
}

func (r Role) IsValid() bool  { return validRoles[r] }
func (r Role) String() string { return string(r) }

// Other returns the opposite side of the link.
func (r Role) Other() Role {
	if r == RoleChild {
		return RoleGuardian
	}
	return RoleChild
}

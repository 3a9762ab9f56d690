package auth

import (
	"fmt"
	"strings"
)

// Role is an ordered authority level. Authority is compared exclusively
// through Precedence; role names are labels, not an ordering.
type Role string

const (
	RoleUser              Role = "USER"
	RoleOrganizationAdmin Role = "ORGANIZATION_ADMIN"
	RoleAdmin             Role = "ADMIN"
)

var rolePrecedence = map[Role]int{
	RoleUser:              1,
	RoleOrganizationAdmin: 2,
	RoleAdmin:             3,
}

// Precedence returns the integer authority rank of the role. Unknown roles
// rank below every defined role.
func (r Role) Precedence() int {
	return rolePrecedence[r]
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.Precedence() >= other.Precedence()
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := rolePrecedence[r]
	return ok
}

// ParseRole normalizes a wire-level role name.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return role, nil
}

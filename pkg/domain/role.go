package domain

import dErrors "partnerd/pkg/domain-errors"

// Role is the closed set of participant roles. The on-ledger original used
// raw integer codes; exhaustive switches over this enum replace those ad hoc
// comparisons.
type Role uint8

const (
	RoleBrand Role = iota
	RoleInfluencer
)

// ParseRole accepts the wire names for a role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "brand":
		return RoleBrand, nil
	case "influencer":
		return RoleInfluencer, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "role must be brand or influencer")
	}
}

func (r Role) String() string {
	switch r {
	case RoleBrand:
		return "brand"
	case RoleInfluencer:
		return "influencer"
	default:
		return "unknown"
	}
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleBrand, RoleInfluencer:
		return true
	}
	return false
}

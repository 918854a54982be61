package domain

// Role is the side of the session a participant speaks for.
type Role string

const (
	RoleClient    Role = "client"
	RoleCounselor Role = "counselor"
)

// ParseRole accepts exactly the two known spellings.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient:
		return RoleClient, true
	case RoleCounselor:
		return RoleCounselor, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

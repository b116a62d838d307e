package session

// Role is the coarse portal role carried by every [Identity].
type Role string

const (
	// RoleAdmin grants administrative portal views.
	RoleAdmin Role = "admin"
	// RoleStaff is the regular staff role.
	RoleStaff Role = "staff"
	// RoleOther covers every role the portal does not distinguish.
	RoleOther Role = "other"
)

// ParseRole maps a backend role string onto a [Role]. Only the exact
// lower-case names match; anything else, "ADMIN" included, is [RoleOther].
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	default:
		return RoleOther
	}
}

// Identity is the current-user record returned by the backend.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// State is a point-in-time copy of the session record.
//
// Token is non-empty only while a successful login has not been undone by a
// logout or a failed user fetch. User may be nil while Token is set.
type State struct {
	User    *Identity
	Token   string
	Loading bool
	Error   string
}

// HasToken reports whether the snapshot carries a token.
func (s State) HasToken() bool {
	return s.Token != ""
}

// HasUser reports whether the snapshot carries a loaded identity.
func (s State) HasUser() bool {
	return s.User != nil
}

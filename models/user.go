package models

import "errors"

// Role is the account kind chosen at registration.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ErrUnknownRole is returned by ParseRole for anything other than User or Admin.
var ErrUnknownRole = errors.New("role must be User or Admin")

// Roles lists the selectable roles in the order the registration form offers them.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// ParseRole accepts the exact role names only; surrounding whitespace or a
// different case is rejected. There is no default role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

// User represents a registered account.
// It maps to the `users` table in SQLite; the password hash never leaves the store.
type User struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email"`
	Role      Role   `db:"role" json:"role"`
	CreatedAt string `db:"created_at" json:"created_at,omitempty"`
}

// NewUser is the registration payload. Password is the plain submitted value
// and is hashed before it is written.
type NewUser struct {
	Username string
	Email    string
	Role     Role
	Password string
}

package auth

import (
	"errors"
	"fmt"
	"time"
)

// Role represents an authorisation tier in the system.
//
// The set is closed: only RoleAdmin and RoleUser exist. Values read from
// requests, tokens and the database all pass through ParseRole.
type Role string

const (
	// RoleUser can view the dashboard, history and statistics.
	RoleUser Role = "user"

	// RoleAdmin can additionally change the lighting config and manage users.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of valid user roles.
var ValidRoles = []Role{RoleAdmin, RoleUser}

// ParseRole converts s into a Role, rejecting anything outside ValidRoles.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an authenticated human account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal is the verified identity behind a request. It is built from
// token claims and passed explicitly to every operation that needs to know
// who is calling.
type Principal struct {
	UserID   int64
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrSelfRoleChange     = errors.New("cannot change your own role")
	ErrSelfDeletion       = errors.New("cannot delete your own account")
)

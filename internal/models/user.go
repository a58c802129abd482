package models

import (
	"time"
)

// Role is the coarse permission level of a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleEditor: true,
	RoleUser:   true,
}

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, ValidRoles[role]
}

// Actor is the identity attempting an operation. A zero Actor is anonymous.
type Actor struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Anonymous returns the identity used for requests without credentials
func Anonymous() Actor {
	return Actor{}
}

// IsAnonymous reports whether the actor carries no identity
func (a Actor) IsAnonymous() bool {
	return a.UserID == ""
}

// UserRoleAssignment is a row of the user_roles table
type UserRoleAssignment struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Profile holds public display data for a user
type Profile struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name,omitempty" db:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Bio         string    `json:"bio,omitempty" db:"bio"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileInput holds the user-editable profile fields
type ProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

// UserWithRole is a row of the admin user-management listing
type UserWithRole struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Role        *Role     `json:"role"`
	RoleID      *string   `json:"role_id"`
}

// RoleAssignmentRequest sets a user's role
type RoleAssignmentRequest struct {
	Role Role `json:"role" binding:"required"`
}

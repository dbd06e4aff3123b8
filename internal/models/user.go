package models

import (
	"time"
)

// UserRole represents the role of a CRM user
type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleTechnician      UserRole = "technician"
	RoleServiceEngineer UserRole = "service_engineer"
)

// Valid reports whether the role is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleServiceEngineer:
		return true
	}
	return false
}

// User represents a staff member of the repair shop
type User struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Name         string     `json:"name" db:"name"`
	Mobile       *string    `json:"mobile,omitempty" db:"mobile"`
	Email        *string    `json:"email,omitempty" db:"email"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	IsDeleted    bool       `json:"isDeleted" db:"is_deleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedBy    *int64     `json:"deletedBy,omitempty" db:"deleted_by"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// CanAuthenticate reports whether the user may log in
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsDeleted
}

// CanBeAssigned reports whether new work may be given to the user.
// Existing assignments referencing the user are unaffected.
func (u *User) CanBeAssigned() bool {
	return u.IsActive && !u.IsDeleted
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CreateUserRequest represents input for creating a user
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Role     UserRole `json:"role" validate:"required,oneof=admin technician service_engineer"`
	Name     string   `json:"name" validate:"required,max=100"`
	Mobile   *string  `json:"mobile" validate:"omitempty,min=9,max=20"`
	Email    *string  `json:"email" validate:"omitempty,email"`
}

// SetActiveRequest toggles the active flag of a user
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// LoginRequest represents username/password credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        *User     `json:"user"`
}

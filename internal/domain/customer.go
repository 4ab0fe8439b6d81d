package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

type Customer struct {
	ID           string
	Email        string
	Password     string
	Role         Role
	RefreshToken string
	// Code is the pending activation code, nil once confirmed.
	Code         *int
	EmailConfirm bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Deleted reports whether the customer has been soft deleted.
func (c Customer) Deleted() bool {
	return c.DeletedAt != nil
}

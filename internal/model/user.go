package model

import "time"

const (
	RoleAdmin      = "admin"
	RoleRestaurant = "restaurant"
	RoleNGO        = "ngo"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User represents an account in the system
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// IsApproved reports whether the account may use its dashboard
func (u *User) IsApproved() bool {
	return u.Status == StatusApproved
}

// RegisterRequest is used for self-service signup
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	City     string `json:"city" binding:"required"`
}

// DecisionRequest carries an admin approval decision
type DecisionRequest struct {
	Status string `json:"status" binding:"required"`
}

// UserFilters contains equality filters for user listings
type UserFilters struct {
	Role   *string
	Status *string
	City   *string
}

// ValidSelfRegistrationRole reports whether role can be chosen at signup
func ValidSelfRegistrationRole(role string) bool {
	return role == RoleRestaurant || role == RoleNGO
}

// DashboardPath returns the UI route a role lands on after login
func DashboardPath(role string) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleRestaurant:
		return "/restaurant"
	case RoleNGO:
		return "/ngo"
	default:
		return "/"
	}
}

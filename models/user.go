package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Username       *string   `json:"username,omitempty" gorm:"uniqueIndex"` // staff/admin login
	PasswordHash   string    `json:"-" gorm:"not null"`
	Role           UserRole  `json:"role" gorm:"not null;default:'student'"`
	RegistrationNo *string   `json:"registration_no,omitempty" gorm:"uniqueIndex"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsStaff reports whether the user may operate the kitchen side of the API.
func (u User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

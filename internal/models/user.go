package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

func (r UserRole) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User is the local profile of an identity held by the identity provider.
// ID is the provider's user id.
type User struct {
	ID        string   `json:"id" gorm:"primaryKey;size:255"`
	FirstName string   `json:"first_name" gorm:"not null;size:100"`
	LastName  string   `json:"last_name" gorm:"not null;size:100"`
	Email     string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role      UserRole `json:"role" gorm:"not null;size:20;index"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

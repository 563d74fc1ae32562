package models

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleEngineer UserRole = "engineer"
	RoleViewer   UserRole = "viewer"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(20);not null" json:"role"`
}

// CanEdit: viewer только читает.
func (r UserRole) CanEdit() bool {
	return r == RoleAdmin || r == RoleEngineer
}

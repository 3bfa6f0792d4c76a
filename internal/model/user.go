package model

import (
	"time"
)

// Fixed role names. Superadmin rows live only in the platform database;
// every other user lives inside its organization's tenant database.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleDriver     = "driver"
	RoleParent     = "parent"
)

// User represents a user row. The same shape backs the platform users table
// (superadmin bootstrap record only) and each tenant's users table.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Phone        string     `json:"phone" gorm:"type:varchar(20)"`
	Name         string     `json:"name" gorm:"type:varchar(100)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);column:password_hash"`
	Role         string     `json:"role" gorm:"type:varchar(20);not null"`
	DriverID     *uint      `json:"driver_id,omitempty" gorm:"index"`
	RoleID       *uint      `json:"role_id,omitempty" gorm:"index"` // custom role within the tenant
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

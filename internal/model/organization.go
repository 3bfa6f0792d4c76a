package model

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents a customer account stored in the platform database.
// Each organization owns exactly one tenant database whose name is derived
// from Code; Code is immutable after creation.
type Organization struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Code      string         `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

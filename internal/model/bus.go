package model

import (
	"time"

	"gorm.io/gorm"
)

// Bus represents a vehicle owned by the organization
type Bus struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	PlateNumber string         `json:"plate_number" gorm:"type:varchar(20);uniqueIndex;not null"`
	Model       string         `json:"model" gorm:"type:varchar(50)"`
	Capacity    int            `json:"capacity" gorm:"default:0"`
	DriverID    *uint          `json:"driver_id,omitempty" gorm:"index"`
	RouteID     *uint          `json:"route_id,omitempty" gorm:"index"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Student represents a child riding a bus; ParentID owns the record for
// "own"-tier authorization
type Student struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Grade        string         `json:"grade" gorm:"type:varchar(20)"`
	ParentID     uint           `json:"parent_id" gorm:"index;not null"`
	BusID        *uint          `json:"bus_id,omitempty" gorm:"index"`
	RouteID      *uint          `json:"route_id,omitempty" gorm:"index"`
	PickupStopID *uint          `json:"pickup_stop_id,omitempty"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

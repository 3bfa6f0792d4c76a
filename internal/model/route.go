package model

import (
	"time"

	"gorm.io/gorm"
)

// Route represents a bus route with an ordered sequence of stops
type Route struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string         `json:"description" gorm:"type:text"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Stops []Stop `json:"stops,omitempty" gorm:"foreignKey:RouteID"`
}

// Stop represents a single stop on a route
type Stop struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RouteID   uint      `json:"route_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Sequence  int       `json:"sequence" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

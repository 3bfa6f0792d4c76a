package model

import (
	"time"
)

// Trip statuses
const (
	TripStatusNotStarted = "not_started"
	TripStatusInProgress = "in_progress"
	TripStatusCompleted  = "completed"
	TripStatusCancelled  = "cancelled"
)

// Trip represents a single bus run with a live position snapshot. Callers
// rely on at most one in_progress trip existing per bus at a time.
type Trip struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	BusID            uint       `json:"bus_id" gorm:"index;not null"`
	RouteID          uint       `json:"route_id" gorm:"index;not null"`
	DriverID         uint       `json:"driver_id" gorm:"index;not null"`
	Status           string     `json:"status" gorm:"type:varchar(20);not null;default:'not_started';index"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	CurrentLatitude  *float64   `json:"current_latitude,omitempty"`
	CurrentLongitude *float64   `json:"current_longitude,omitempty"`
	SpeedKmh         *float64   `json:"speed_kmh,omitempty" gorm:"column:speed_kmh"`
	LastUpdateTime   *time.Time `json:"last_update_time,omitempty"`
	PassengerCount   int        `json:"passenger_count" gorm:"default:0"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

package model

import (
	"time"
)

// LocationTracking is one immutable GPS sample appended to a trip's history.
// Rows are never updated or deleted except by cascading trip deletion.
type LocationTracking struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TripID     uint      `json:"trip_id" gorm:"index;not null"`
	Latitude   float64   `json:"latitude" gorm:"not null"`
	Longitude  float64   `json:"longitude" gorm:"not null"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty" gorm:"column:speed_kmh"`
	Heading    *float64  `json:"heading,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at" gorm:"index;not null"`
}

// TableName keeps the historical table name
func (LocationTracking) TableName() string {
	return "location_tracking"
}

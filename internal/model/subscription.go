package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription links a parent to notifications about one student's trips.
// Delivery mechanics live outside this service.
type Subscription struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ParentID  uint           `json:"parent_id" gorm:"index;not null"`
	StudentID uint           `json:"student_id" gorm:"index;not null"`
	Channel   string         `json:"channel" gorm:"type:varchar(20);default:'push'"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role kinds. Default roles are seeded during tenant provisioning and
// protected from deletion by ordinary organization admins.
const (
	RoleTypeDefault = "default"
	RoleTypeCustom  = "custom"
)

// UintList is a []uint stored as a JSON array in a jsonb column
type UintList []uint

// Value implements driver.Valuer
func (l UintList) Value() (driver.Value, error) {
	if l == nil {
		l = UintList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *UintList) Scan(value interface{}) error {
	if value == nil {
		*l = UintList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into UintList", value)
	}
}

// Contains reports whether id is in the list
func (l UintList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Role represents a tenant-scoped role with an ordered permission id list
type Role struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	PermissionIDs UintList  `json:"permission_ids" gorm:"type:jsonb;column:permission_ids"`
	Type          string    `json:"type" gorm:"type:varchar(20);not null;default:'custom'"`
	AllowDelete   bool      `json:"allow_delete" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoleWithPermissions is the expanded form returned by list/get operations,
// with permission ids resolved to full Permission objects
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

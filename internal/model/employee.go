package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is a member of staff that can be recruited for events.
type Employee struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Name         string `gorm:"size:256;not null" json:"name"`
	Role         Role   `gorm:"size:32;not null;index" json:"role"`
	AlwaysNeeded bool   `gorm:"not null;default:false" json:"always_needed"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkArea is a capacity-bounded group of slots at an event.
type WorkArea struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	EventID     string `gorm:"size:36;not null;index" json:"event_id"`
	Name        string `gorm:"size:256;not null" json:"name"`
	Location    string `gorm:"size:256" json:"location"`
	MaxCapacity int    `gorm:"not null" json:"max_capacity"`
	// RoleRequirements is kept as submitted; parse.ParseRequirements normalises it.
	RoleRequirements map[string]any `gorm:"type:text;serializer:json" json:"role_requirements"`
	IsActive         bool           `gorm:"not null" json:"is_active"`
}

func (w *WorkArea) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a staffed occasion. Only the two headcount fields are written here.
type Event struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Name               string    `gorm:"size:256;not null" json:"name"`
	Date               time.Time `gorm:"not null;index" json:"date"`
	HeadcountNeeded    int       `gorm:"not null;default:0" json:"headcount_needed"`
	HeadcountRequested int       `gorm:"not null;default:0" json:"headcount_requested"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

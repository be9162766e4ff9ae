package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment places one employee in one work area for an event.
// The unique index keeps at most one live assignment per (event, employee).
type Assignment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID string    `gorm:"size:36;not null;uniqueIndex:idx_assignment_event_employee" json:"employee_id"`
	WorkAreaID string    `gorm:"size:36;not null;index" json:"work_area_id"`
	EventID    string    `gorm:"size:36;not null;uniqueIndex:idx_assignment_event_employee" json:"event_id"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`

	// Associations
	Employee *Employee `gorm:"constraint:OnDelete:CASCADE" json:"employee,omitempty"`
	WorkArea *WorkArea `gorm:"constraint:OnDelete:CASCADE" json:"work_area,omitempty"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

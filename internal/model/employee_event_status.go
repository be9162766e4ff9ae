package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeEventStatus is the per-(event, employee) selection status. It is
// created lazily and upserted, never duplicated.
type EmployeeEventStatus struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EventID    string    `gorm:"size:36;not null;uniqueIndex:idx_status_event_employee" json:"event_id"`
	EmployeeID string    `gorm:"size:36;not null;uniqueIndex:idx_status_event_employee" json:"employee_id"`
	Status     Status    `gorm:"size:32;not null;index" json:"status"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (s *EmployeeEventStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
